package frpt

import (
	"fmt"
	"strings"
)

// ParseStatusGroups parses a StatusGroups section body into a
// group-name → status-code-list map. Each entry is
// `GROUP "Description" ( ST1, ST2, … );`; the description and the
// surrounding block name are discarded, per spec.md §4.4.
func ParseStatusGroups(body string) (map[string][]string, error) {
	toks, err := lex(body)
	if err != nil {
		return nil, err
	}
	cur := &cursor{toks: toks}

	for !cur.atEOF() && cur.peek().kind != tokLBrace {
		cur.next()
	}
	if !cur.atEOF() {
		cur.next()
	}

	groups := make(map[string][]string)
	for cur.peek().kind == tokIdent {
		nameTok := cur.next()
		if _, err := cur.expect(tokString); err != nil { // description, discarded
			return nil, fmt.Errorf("frpt: status group %q: %w", nameTok.text, err)
		}
		if _, err := cur.expect(tokLParen); err != nil {
			return nil, err
		}
		var statuses []string
		for {
			t, err := cur.expect(tokIdent)
			if err != nil {
				return nil, err
			}
			statuses = append(statuses, t.text)
			if cur.peek().kind == tokComma {
				cur.next()
				continue
			}
			break
		}
		if _, err := cur.expect(tokRParen); err != nil {
			return nil, err
		}
		if _, err := cur.expect(tokSemi); err != nil {
			return nil, err
		}
		groups[nameTok.text] = statuses
	}
	return groups, nil
}

// ParseCoverage parses a Coverage section body into a
// formula-name → formula-body map. Each entry is
// `"<name>" = "<body>";`; '^' is rewritten to '**' in the body as the
// common exponent convention, per spec.md §4.4.
func ParseCoverage(body string) (map[string]string, error) {
	toks, err := lex(stripCaret(body))
	if err != nil {
		return nil, err
	}
	cur := &cursor{toks: toks}

	for !cur.atEOF() && cur.peek().kind != tokLBrace {
		cur.next()
	}
	if !cur.atEOF() {
		cur.next()
	}

	formulas := make(map[string]string)
	for cur.peek().kind == tokString {
		nameTok := cur.next()
		if _, err := cur.expect(tokEquals); err != nil {
			return nil, err
		}
		bodyTok, err := cur.expect(tokString)
		if err != nil {
			return nil, err
		}
		if _, err := cur.expect(tokSemi); err != nil {
			return nil, err
		}
		formulas[nameTok.text] = bodyTok.text
	}
	return formulas, nil
}

func stripCaret(s string) string {
	return strings.ReplaceAll(s, "^", "**")
}
