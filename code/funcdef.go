package code

import (
	"github.com/mna/corevm/coreerr"
	"github.com/mna/corevm/gc"
	"github.com/mna/corevm/lang/token"
	"github.com/mna/corevm/value"
)

// Flags bits recorded on a FuncDef (§3: "flags (vararg, fixed-arity,
// struct-arg, has-name, has-source, ...)").
type Flags uint16

const (
	FlagVararg Flags = 1 << iota
	FlagFixedArity
	FlagStructArg
	FlagHasName
	FlagHasSource
)

// FuncDef is the immutable compiled body a Function closes over (§3, §4.D).
// It is itself GC-owned (its constants and nested defs are heap objects it
// must keep reachable), even though — unlike Function — it
// is never itself a directly callable Value.
type FuncDef struct {
	hdr gc.Header

	Name       string
	Source     string
	SourcePath string

	Arity    int
	MinArity int
	MaxArity int
	Flags    Flags

	SlotCount int

	Bytecode  []Instruction
	Constants []value.Value
	Defs      []*FuncDef

	// Environments[i] == -1 means: capture the current activation as a
	// fresh on-stack FuncEnv. Environments[i] == k >= 0 means: share the
	// k-th captured env of the enclosing function (§4.D "Closure creation").
	Environments []int

	// SourceMap is parallel to Bytecode: SourceMap[i] is the (line, column)
	// the instruction at Bytecode[i] was assembled from, reusing token.Pos's
	// packed encoding rather than a bespoke (line, col) pair.
	SourceMap []token.Pos

	// ClosureBitset records which of this def's slots a nested closure may
	// capture; nil means all slots are capturable.
	ClosureBitset []bool
}

// NewFuncDef registers def with the heap and returns it. Callers should run
// Verify before executing def.
func NewFuncDef(h *gc.Heap, def *FuncDef) *FuncDef {
	h.Register(def, gc.KindFuncDef, uint64(64+len(def.Bytecode)*4+len(def.Constants)*8))
	return def
}

func (d *FuncDef) GCHeader() *gc.Header { return &d.hdr }

func (d *FuncDef) GCMark(h *gc.Heap, depth int) {
	for _, c := range d.Constants {
		if o, ok := c.(gc.Object); ok {
			h.Mark(o, depth+1)
		}
	}
	for _, nested := range d.Defs {
		h.Mark(nested, depth+1)
	}
}

func (d *FuncDef) GCFinalize() {}

// Verify checks the structural invariants of §4.D's "FuncDef verification"
// step, which a verifier is required to run once per freshly-constructed
// def before it is ever executed: every slot referenced by bytecode is in
// [0,slotcount), every constant/child-def/jump-target index is in range,
// and min_arity <= arity <= max_arity.
func (d *FuncDef) Verify() error {
	if d.MinArity > d.Arity || d.Arity > d.MaxArity {
		return coreerr.NewVerificationError(coreerr.Str("min_arity <= arity <= max_arity violated"))
	}
	for i, ins := range d.Bytecode {
		if !ins.Op().Valid() {
			return coreerr.NewVerificationError(coreerr.Str("unrecognized opcode in bytecode"))
		}
		if err := d.verifySlots(ins); err != nil {
			return err
		}
		if err := d.verifyReferences(ins); err != nil {
			return err
		}
		if err := d.verifyJump(ins, i); err != nil {
			return err
		}
	}
	for _, e := range d.Environments {
		if e < -1 {
			return coreerr.NewVerificationError(coreerr.Str("environment index out of range"))
		}
	}
	return nil
}

func (d *FuncDef) checkSlot(s int32) error {
	if s < 0 || int(s) >= d.SlotCount {
		return coreerr.NewVerificationError(coreerr.Str("slot index out of range"))
	}
	return nil
}

// verifySlots checks the local slot operand(s) of ins: the first operand of
// every shape but Shape0/L, the 16-bit second operand of SS, and the 8-bit
// second (and, for SSS, third) operand of SSS/SSI/SSU. Jump offsets,
// immediates and SES's env index and far slot are not slots of this def.
func (d *FuncDef) verifySlots(ins Instruction) error {
	switch ins.Op().ArgShape() {
	case Shape0, ShapeL:
		return nil
	case ShapeS:
		return d.checkSlot(ins.A24())
	default:
		if err := d.checkSlot(ins.Slot8()); err != nil {
			return err
		}
		switch ins.Op().ArgShape() {
		case ShapeSS:
			if err := d.checkSlot(ins.Arg16()); err != nil {
				return err
			}
		case ShapeSSS, ShapeSSI, ShapeSSU:
			if err := d.checkSlot(ins.Slot16_2()); err != nil {
				return err
			}
		}
		if ins.Op().ArgShape() == ShapeSSS {
			return d.checkSlot(ins.Slot24_3())
		}
		return nil
	}
}

// verifyReferences checks constant/child-def indices embedded in ins.
func (d *FuncDef) verifyReferences(ins Instruction) error {
	switch ins.Op() {
	case LOAD_CONSTANT, MAKE_STRING:
		if c := ins.Arg16(); c < 0 || int(c) >= len(d.Constants) {
			return coreerr.NewVerificationError(coreerr.Str("constant index out of range"))
		}
	case CLOSURE:
		if c := ins.Arg16(); c < 0 || int(c) >= len(d.Defs) {
			return coreerr.NewVerificationError(coreerr.Str("child def index out of range"))
		}
	}
	return nil
}

// verifyJump checks that a jump instruction's target lands on a valid
// bytecode address.
func (d *FuncDef) verifyJump(ins Instruction, at int) error {
	var offset int32
	switch ins.Op() {
	case JUMP:
		offset = ins.L24()
	case JUMP_IF, JUMP_IF_NOT, JUMP_IF_NIL, JUMP_IF_NOT_NIL:
		offset = ins.SArg16()
	default:
		return nil
	}
	target := at + 1 + int(offset)
	if target < 0 || target > len(d.Bytecode) {
		return coreerr.NewVerificationError(coreerr.Str("jump target out of range"))
	}
	return nil
}
