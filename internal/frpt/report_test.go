package frpt

import "testing"

func TestExtractBalancesBraces(t *testing.T) {
	text := "preamble\nFaultList {\n  ON 1 {PORT \"a\"}\n}\nStatusGroups {\n  DE \"desc\" (DD, DN);\n}\n"
	sections, err := Extract(text, "FaultList", "StatusGroups", "Coverage")
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := sections["FaultList"]; !ok {
		t.Fatal("expected FaultList section")
	}
	if _, ok := sections["Coverage"]; ok {
		t.Fatal("did not expect Coverage section")
	}
}

func TestParseFaultListScenarioS3(t *testing.T) {
	body := `FaultList {
ON 1 {PORT "a"}
-- 1 {PORT "b"}
-- 0 {PORT "c"}
}
`
	faults, err := ParseFaultList(body)
	if err != nil {
		t.Fatal(err)
	}
	if len(faults) != 3 {
		t.Fatalf("expected 3 faults, got %d", len(faults))
	}
	prime := faults[0]
	if !prime.IsPrime() {
		t.Fatal("expected first fault to be prime")
	}
	if prime.EquivalentFaults != 3 {
		t.Fatalf("expected EquivalentFaults==3, got %d", prime.EquivalentFaults)
	}
	for _, f := range faults[1:] {
		if f.IsPrime() || f.EquivalentTo != prime {
			t.Fatalf("expected equivalents to point at prime")
		}
	}
}

func TestParseFaultListWithFaultInfoBracket(t *testing.T) {
	body := `FaultList {
<  1> ON 0 {PORT "tb.dut.subunit_a.cellA.ZN"}(* "test1"->PC=30551073; "test1"->time="45ns"; *)
    -- 1 {PORT "tb.dut.subunit_a.cellA.A1"}
    -- 0 {PORT "tb.dut.subunit_a.operand_b[27:3]"}
}
`
	faults, err := ParseFaultList(body)
	if err != nil {
		t.Fatal(err)
	}
	if len(faults) != 3 {
		t.Fatalf("expected 3 faults, got %d", len(faults))
	}
	prime := faults[0]
	if !prime.IsPrime() || prime.EquivalentFaults != 3 {
		t.Fatalf("expected prime with EquivalentFaults==3, got %+v", prime)
	}
	for _, f := range faults[1:] {
		if f.IsPrime() || f.EquivalentTo != prime {
			t.Fatalf("expected equivalents to point at prime")
		}
	}
	if pc, ok := prime.GetAttribute("test1.PC"); !ok || pc != "30551073" {
		t.Fatalf("expected test1.PC==30551073, got %q (ok=%v)", pc, ok)
	}
	if tm, ok := prime.GetAttribute("test1.time"); !ok || tm != "45ns" {
		t.Fatalf("expected test1.time==45ns, got %q (ok=%v)", tm, ok)
	}
}

func TestParseFaultListWithParenthesizedTiming(t *testing.T) {
	body := `FaultList {
<  1> NN F (6.532ns) {PORT "tb.dut.subunit_c.U1528.CI"}
<  1> ON R (6.423ns) {PORT "tb.dut.subunit_c.U1528.CO"}
    -- ~ (6,4,26) {FLOP "tb.dut.subunit_d.reg_q[0]"}
}
`
	faults, err := ParseFaultList(body)
	if err != nil {
		t.Fatal(err)
	}
	if len(faults) != 3 {
		t.Fatalf("expected 3 faults, got %d", len(faults))
	}
	if got, _ := faults[0].GetAttribute("timing_info"); got != "6.532ns" {
		t.Fatalf("expected timing_info %q, got %q", "6.532ns", got)
	}
	if got, _ := faults[1].GetAttribute("timing_info"); got != "6.423ns" {
		t.Fatalf("expected timing_info %q, got %q", "6.423ns", got)
	}
	if got, _ := faults[2].GetAttribute("timing_info"); got != "6,4,26" {
		t.Fatalf("expected timing_info %q, got %q", "6,4,26", got)
	}
}

func TestParseStatusGroups(t *testing.T) {
	body := `StatusGroups {
DE "Detected" (DD, DN);
}
`
	groups, err := ParseStatusGroups(body)
	if err != nil {
		t.Fatal(err)
	}
	if len(groups["DE"]) != 2 || groups["DE"][0] != "DD" || groups["DE"][1] != "DN" {
		t.Fatalf("unexpected groups: %+v", groups)
	}
}

func TestParseCoverageRewritesCaret(t *testing.T) {
	body := `Coverage {
"fc" = "DD ^ 2";
}
`
	formulas, err := ParseCoverage(body)
	if err != nil {
		t.Fatal(err)
	}
	if formulas["fc"] != "DD ** 2" {
		t.Fatalf("expected caret rewritten, got %q", formulas["fc"])
	}
}

func TestReportStatusCounts(t *testing.T) {
	body := `FaultList {
ON 1 {PORT "a"}
-- 1 {PORT "b"}
AB 0 {PORT "c"}
}
`
	faults, err := ParseFaultList(body)
	if err != nil {
		t.Fatal(err)
	}
	r := &Report{Faults: faults}
	counts := r.StatusCounts()
	if counts["ON"] != 2 {
		t.Fatalf("expected ON==2, got %d", counts["ON"])
	}
	if counts["AB"] != 1 {
		t.Fatalf("expected AB==1, got %d", counts["AB"])
	}
}
