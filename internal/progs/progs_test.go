package progs

import (
	"slices"
	"testing"

	"github.com/kolkov/awkjit/ir"
)

func TestProgramsValidate(t *testing.T) {
	for _, name := range Names() {
		t.Run(name, func(t *testing.T) {
			p, ok := Lookup(name)
			if !ok {
				t.Fatal("registered program not found")
			}
			if err := ir.Validate(p); err != nil {
				t.Fatalf("%v\n%s", err, p.Disassemble())
			}
			if Usage(name) == "" {
				t.Error("missing usage line")
			}
		})
	}
}

func TestLookup(t *testing.T) {
	if _, ok := Lookup("nope"); ok {
		t.Error("Lookup found an unregistered program")
	}
	a, _ := Lookup("wc")
	b, _ := Lookup("wc")
	if a == b {
		t.Error("Lookup returned a shared program")
	}
	if got := Names(); !slices.IsSorted(got) || len(got) != 4 {
		t.Errorf("Names() = %v", got)
	}
}
