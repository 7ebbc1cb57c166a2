package code

import (
	"strings"
	"testing"
)

func TestOpcodeString(t *testing.T) {
	for op := Opcode(0); op < OpcodeMax; op++ {
		if opcodeNames[op] == "" {
			t.Errorf("missing string representation of opcode %d", op)
		}
		if s := op.String(); strings.Contains(s, "opcode(") {
			t.Errorf("invalid string representation of opcode %d", op)
		}
	}
}

func TestOpcodeValid(t *testing.T) {
	if !ADD.Valid() {
		t.Fatalf("expected ADD to be valid")
	}
	if OpcodeMax.Valid() {
		t.Fatalf("expected OpcodeMax to be invalid")
	}
}

func TestEveryOpcodeHasAShape(t *testing.T) {
	for op := Opcode(0); op < OpcodeMax; op++ {
		_ = op.ArgShape() // must not panic; zero value (Shape0) is a valid default
	}
}
