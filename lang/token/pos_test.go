package token

import "testing"

func TestPosLineCol(t *testing.T) {
	p := MakePos(12, 34)
	line, col := p.LineCol()
	if line != 12 || col != 34 {
		t.Fatalf("got (%d,%d), want (12,34)", line, col)
	}
	if p.Unknown() {
		t.Fatalf("expected known position")
	}
	if !Pos(0).Unknown() {
		t.Fatalf("expected zero position to be unknown")
	}
}
