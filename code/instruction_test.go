package code

import "testing"

func TestInstructionShapeSRoundTrip(t *testing.T) {
	ins := MakeInstruction(LOAD_NIL, 12345, 0, 0)
	if ins.Op() != LOAD_NIL {
		t.Fatalf("got op %v, want LOAD_NIL", ins.Op())
	}
	if got := ins.A24(); got != 12345 {
		t.Fatalf("got A24=%d, want 12345", got)
	}
}

func TestInstructionShapeLNegativeOffset(t *testing.T) {
	ins := MakeInstruction(JUMP, -5, 0, 0)
	if got := ins.L24(); got != -5 {
		t.Fatalf("got L24=%d, want -5", got)
	}
}

func TestInstructionShapeSSS(t *testing.T) {
	ins := MakeInstruction(ADD, 1, 2, 3)
	if got := ins.Slot8(); got != 1 {
		t.Fatalf("got slot8=%d, want 1", got)
	}
	if got := ins.Slot16_2(); got != 2 {
		t.Fatalf("got slot16_2=%d, want 2", got)
	}
	if got := ins.Slot24_3(); got != 3 {
		t.Fatalf("got slot24_3=%d, want 3", got)
	}
}

func TestInstructionShapeSSISignedImmediate(t *testing.T) {
	ins := MakeInstruction(ADD_IMMEDIATE, 1, 2, -7)
	if got := ins.SArg24_3(); got != -7 {
		t.Fatalf("got SArg24_3=%d, want -7", got)
	}
}

func TestInstructionShapeSCConstantIndex(t *testing.T) {
	ins := MakeInstruction(LOAD_CONSTANT, 4, 9000, 0)
	if got := ins.Slot8(); got != 4 {
		t.Fatalf("got slot8=%d, want 4", got)
	}
	if got := ins.Arg16(); got != 9000 {
		t.Fatalf("got arg16=%d, want 9000", got)
	}
}

func TestInstructionShapeSLSignedJump(t *testing.T) {
	ins := MakeInstruction(JUMP_IF, 3, -200, 0)
	if got := ins.SArg16(); got != -200 {
		t.Fatalf("got SArg16=%d, want -200", got)
	}
}
