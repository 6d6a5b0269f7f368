package frpt

import (
	"fmt"
	"strings"

	"github.com/cad-polito-it/testcrush/internal/fault"
)

// ParseFaultList parses a FaultList section body (including its outer
// braces, which are ignored) into an ordered list of faults. Entries
// whose status is "--" are attached to the most recently produced prime
// fault, per spec.md §4.4 step 2.
func ParseFaultList(body string) ([]*fault.Fault, error) {
	toks, err := lex(body)
	if err != nil {
		return nil, err
	}
	cur := &cursor{toks: toks}

	// Skip the section name identifier (e.g. "FaultList") and its
	// opening brace, and drop the trailing closing brace.
	for !cur.atEOF() && cur.peek().kind != tokLBrace {
		cur.next()
	}
	if !cur.atEOF() {
		cur.next() // consume '{'
	}

	var faults []*fault.Fault
	var lastPrime *fault.Fault

	for {
		t := cur.peek()
		if t.kind == tokRBrace || t.kind == tokEOF {
			break
		}
		f, prime, err := parseFaultEntry(cur)
		if err != nil {
			return nil, err
		}
		if prime {
			lastPrime = f
		} else {
			if lastPrime == nil {
				return nil, fmt.Errorf("frpt: equivalent fault with no preceding prime")
			}
			fault.MarkEquivalent(f, lastPrime)
		}
		faults = append(faults, f)
	}
	return faults, nil
}

func parseFaultEntry(cur *cursor) (f *fault.Fault, isPrimeEntry bool, err error) {
	f = fault.New()

	// Optional bracketed fault_info segment, e.g. "<  1>". Its contents
	// carry no information the core needs and are discarded, per
	// original_source/src/testcrush/grammars/transformers.py's
	// fault_info transformer (which likewise discards it).
	if cur.peek().kind == tokLT {
		cur.next()
		for cur.peek().kind != tokGT {
			if cur.atEOF() {
				return nil, false, fmt.Errorf("frpt: line %d: unterminated fault_info segment", cur.peek().line)
			}
			cur.next()
		}
		cur.next() // consume '>'
	}

	statusTok := cur.next()
	if statusTok.kind != tokIdent && statusTok.kind != tokNumber {
		return nil, false, fmt.Errorf("frpt: line %d: expected fault status, got %q", statusTok.line, statusTok.text)
	}
	isPrimeEntry = statusTok.text != "--"
	if isPrimeEntry {
		f.SetAttribute("fault_status", statusTok.text)
	}

	typeTok := cur.next()
	f.SetAttribute("fault_type", typeTok.text)

	// Optional timing info: "(" NUMBER IDENT? ("," NUMBER IDENT?)* ")"
	// before the first '{', e.g. "(6.532ns)" or "(6,4,26)", per
	// original_source/src/testcrush/grammars/transformers.py's
	// timing_info transformer (a list of stringified tokens).
	if cur.peek().kind == tokLParen {
		cur.next()
		var timings []string
		for {
			numTok, err := cur.expect(tokNumber)
			if err != nil {
				return nil, false, err
			}
			val := numTok.text
			if cur.peek().kind == tokIdent {
				val += cur.next().text
			}
			timings = append(timings, val)
			if cur.peek().kind == tokComma {
				cur.next()
				continue
			}
			break
		}
		if _, err := cur.expect(tokRParen); err != nil {
			return nil, false, err
		}
		f.SetAttribute("timing_info", strings.Join(timings, ","))
	}

	var sites []string
	for {
		if _, err := cur.expect(tokLBrace); err != nil {
			return nil, false, err
		}
		kindTok, err := cur.expect(tokIdent)
		if err != nil {
			return nil, false, err
		}
		siteTok, err := cur.expect(tokString)
		if err != nil {
			return nil, false, err
		}
		if _, err := cur.expect(tokRBrace); err != nil {
			return nil, false, err
		}
		sites = append(sites, fmt.Sprintf("%s:%s", kindTok.text, siteTok.text))

		if cur.peek().kind == tokPlus {
			cur.next()
			continue
		}
		break
	}
	f.SetAttribute("fault_sites", strings.Join(sites, "+"))

	if cur.peek().kind == tokLParen {
		cur.next()
		if cur.peek().kind == tokStar {
			cur.next()
		}
		for cur.peek().kind == tokIdent || cur.peek().kind == tokString {
			nameTok := cur.next()
			if _, err := cur.expect(tokArrow); err != nil {
				return nil, false, err
			}
			attrTok, err := cur.expect(tokIdent)
			if err != nil {
				return nil, false, err
			}
			if _, err := cur.expect(tokEquals); err != nil {
				return nil, false, err
			}
			var valueParts []string
			for cur.peek().kind != tokSemi && cur.peek().kind != tokEOF {
				valueParts = append(valueParts, cur.next().text)
			}
			if _, err := cur.expect(tokSemi); err != nil {
				return nil, false, err
			}
			f.SetAttribute(fmt.Sprintf("%s.%s", nameTok.text, attrTok.text), strings.Join(valueParts, " "))
		}
		if cur.peek().kind == tokStar {
			cur.next()
		}
		if _, err := cur.expect(tokRParen); err != nil {
			return nil, false, err
		}
	}

	return f, isPrimeEntry, nil
}
