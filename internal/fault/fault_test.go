package fault

import "testing"

func TestMarkEquivalentIncrementsPrime(t *testing.T) {
	prime := New()
	prime.SetAttribute("fault_status", "ON")

	e1 := New()
	MarkEquivalent(e1, prime)
	e2 := New()
	MarkEquivalent(e2, prime)

	if prime.EquivalentFaults != 3 {
		t.Fatalf("expected 3, got %d", prime.EquivalentFaults)
	}
	if e1.IsPrime() || e2.IsPrime() {
		t.Fatalf("equivalents must not be prime")
	}
	if e1.EquivalentTo != prime {
		t.Fatalf("expected e1 to point at prime")
	}
}

func TestSetAttributeTrims(t *testing.T) {
	f := New()
	f.SetAttribute("fault_sites", "  a  ")
	v, ok := f.GetAttribute("fault_sites")
	if !ok || v != "a" {
		t.Fatalf("got %q, %v", v, ok)
	}
}
