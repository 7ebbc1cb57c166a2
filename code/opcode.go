// Package code implements the function model (spec component D): the
// immutable compiled FuncDef, the FuncEnv captured-activation record, the
// Function closure, and the Opcode/Instruction encoding the bytecode
// dispatcher in package fiber reads. Adapted from
// github.com/mna/nenuphar's lang/machine/opcode.go enum-plus-shape-table
// idiom, generalized from nenuphar's operand shapes to janet's 14
// instruction-argument shape classes.
package code

import "fmt"

// Shape identifies how an Instruction's 24 argument bits are carved up,
// per spec §4.E's bytecode encoding table.
type Shape uint8

const (
	Shape0 Shape = iota // no args
	ShapeS              // one slot, bits 8-31 (24-bit unsigned)
	ShapeL              // one jump offset, bits 8-31 (24-bit signed)
	ShapeSS             // slot(8), slot(16)
	ShapeSL             // slot(8), signed-16 jump
	ShapeST             // slot(8), 16-bit type-mask
	ShapeSI             // slot(8), 16-bit signed immediate
	ShapeSU             // slot(8), 16-bit unsigned immediate
	ShapeSD             // slot(8), child-def index(16)
	ShapeSSS            // slot, slot, slot (8 bits each)
	ShapeSSI            // slot, slot, signed-8 immediate
	ShapeSSU            // slot, slot, unsigned-8 immediate
	ShapeSES            // slot(8), env-index(8), far-slot(8)
	ShapeSC             // slot(8), constant-index(16)
)

// Opcode identifies a bytecode instruction's operation.
type Opcode uint8

const ( //nolint:revive
	NOOP Opcode = iota
	DEBUG

	LOAD_NIL
	LOAD_TRUE
	LOAD_FALSE
	LOAD_INTEGER
	LOAD_CONSTANT
	LOAD_SELF
	LOAD_UPVALUE
	SET_UPVALUE
	MOVE_NEAR
	MOVE_FAR

	// comparisons (order matches lang/token's comparison block)
	LESS_THAN
	LESS_THAN_EQUAL
	GREATER_THAN
	GREATER_THAN_EQUAL
	EQUALS
	NOT_EQUALS

	// arithmetic (order matches lang/token's binary-arith block, except for
	// the unary BNOT placed between BXOR_IMMEDIATE and SHIFT_LEFT)
	ADD
	ADD_IMMEDIATE
	SUBTRACT
	SUBTRACT_IMMEDIATE
	MULTIPLY
	MULTIPLY_IMMEDIATE
	DIVIDE
	DIVIDE_IMMEDIATE
	DIVIDE_INTEGER
	DIVIDE_INTEGER_IMMEDIATE
	MODULO
	MODULO_IMMEDIATE
	REMAINDER
	REMAINDER_IMMEDIATE
	BAND
	BAND_IMMEDIATE
	BOR
	BOR_IMMEDIATE
	BXOR
	BXOR_IMMEDIATE
	BNOT
	SHIFT_LEFT
	SHIFT_LEFT_IMMEDIATE
	SHIFT_RIGHT
	SHIFT_RIGHT_IMMEDIATE

	JUMP
	JUMP_IF
	JUMP_IF_NOT
	JUMP_IF_NIL
	JUMP_IF_NOT_NIL

	MAKE_ARRAY
	MAKE_BUFFER
	MAKE_STRING
	MAKE_STRUCT
	MAKE_TABLE
	MAKE_TUPLE
	MAKE_BRACKET_TUPLE

	CALL
	TAILCALL
	RETURN
	RETURN_NIL

	RESUME
	SIGNAL
	PROPAGATE
	YIELD
	CANCEL

	IN
	GET
	PUT
	GET_INDEX
	PUT_INDEX
	LENGTH
	NEXT

	TYPECHECK
	CLOSURE

	PUSH
	PUSH_2
	PUSH_3
	PUSH_ARRAY

	ERROR

	OpcodeMax
)

var opcodeShapes = [...]Shape{
	NOOP:  Shape0,
	DEBUG: Shape0,

	LOAD_NIL:      ShapeS,
	LOAD_TRUE:     ShapeS,
	LOAD_FALSE:    ShapeS,
	LOAD_INTEGER:  ShapeSI,
	LOAD_CONSTANT: ShapeSC,
	LOAD_SELF:     ShapeS,
	LOAD_UPVALUE:  ShapeSES,
	SET_UPVALUE:   ShapeSES,
	MOVE_NEAR:     ShapeSS,
	MOVE_FAR:      ShapeSS,

	LESS_THAN:          ShapeSSS,
	LESS_THAN_EQUAL:    ShapeSSS,
	GREATER_THAN:       ShapeSSS,
	GREATER_THAN_EQUAL: ShapeSSS,
	EQUALS:             ShapeSSS,
	NOT_EQUALS:         ShapeSSS,

	ADD:                      ShapeSSS,
	ADD_IMMEDIATE:            ShapeSSI,
	SUBTRACT:                 ShapeSSS,
	SUBTRACT_IMMEDIATE:       ShapeSSI,
	MULTIPLY:                 ShapeSSS,
	MULTIPLY_IMMEDIATE:       ShapeSSI,
	DIVIDE:                   ShapeSSS,
	DIVIDE_IMMEDIATE:         ShapeSSI,
	DIVIDE_INTEGER:           ShapeSSS,
	DIVIDE_INTEGER_IMMEDIATE: ShapeSSI,
	MODULO:                   ShapeSSS,
	MODULO_IMMEDIATE:         ShapeSSI,
	REMAINDER:                ShapeSSS,
	REMAINDER_IMMEDIATE:      ShapeSSI,
	BAND:                     ShapeSSS,
	BAND_IMMEDIATE:           ShapeSSI,
	BOR:                      ShapeSSS,
	BOR_IMMEDIATE:            ShapeSSI,
	BXOR:                     ShapeSSS,
	BXOR_IMMEDIATE:           ShapeSSI,
	BNOT:                     ShapeSS,
	SHIFT_LEFT:               ShapeSSS,
	SHIFT_LEFT_IMMEDIATE:     ShapeSSI,
	SHIFT_RIGHT:              ShapeSSS,
	SHIFT_RIGHT_IMMEDIATE:    ShapeSSI,

	JUMP:             ShapeL,
	JUMP_IF:          ShapeSL,
	JUMP_IF_NOT:      ShapeSL,
	JUMP_IF_NIL:      ShapeSL,
	JUMP_IF_NOT_NIL:  ShapeSL,

	MAKE_ARRAY:         ShapeSI,
	MAKE_BUFFER:        ShapeSI,
	MAKE_STRING:        ShapeSC,
	MAKE_STRUCT:        ShapeSI,
	MAKE_TABLE:         ShapeSI,
	MAKE_TUPLE:         ShapeSI,
	MAKE_BRACKET_TUPLE: ShapeSI,

	CALL:        ShapeSS,
	TAILCALL:    ShapeS,
	RETURN:      ShapeS,
	RETURN_NIL:  Shape0,

	RESUME:    ShapeSSS,
	SIGNAL:    ShapeSSU,
	PROPAGATE: ShapeSS,
	YIELD:     ShapeSS,
	CANCEL:    ShapeSS,

	IN:        ShapeSSS,
	GET:       ShapeSSS,
	PUT:       ShapeSSS,
	GET_INDEX: ShapeSSS,
	PUT_INDEX: ShapeSSS,
	LENGTH:    ShapeSS,
	NEXT:      ShapeSSS,

	TYPECHECK: ShapeST,
	CLOSURE:   ShapeSD,

	PUSH:       ShapeS,
	PUSH_2:     ShapeSS,
	PUSH_3:     ShapeSSS,
	PUSH_ARRAY: ShapeS,

	ERROR: ShapeS,
}

var opcodeNames = [...]string{
	NOOP:  "noop",
	DEBUG: "debug",

	LOAD_NIL:      "load-nil",
	LOAD_TRUE:     "load-true",
	LOAD_FALSE:    "load-false",
	LOAD_INTEGER:  "load-integer",
	LOAD_CONSTANT: "load-constant",
	LOAD_SELF:     "load-self",
	LOAD_UPVALUE:  "load-upvalue",
	SET_UPVALUE:   "set-upvalue",
	MOVE_NEAR:     "move-near",
	MOVE_FAR:      "move-far",

	LESS_THAN:          "less-than",
	LESS_THAN_EQUAL:    "less-than-equal",
	GREATER_THAN:       "greater-than",
	GREATER_THAN_EQUAL: "greater-than-equal",
	EQUALS:             "equals",
	NOT_EQUALS:         "not-equals",

	ADD:                      "add",
	ADD_IMMEDIATE:            "add-immediate",
	SUBTRACT:                 "subtract",
	SUBTRACT_IMMEDIATE:       "subtract-immediate",
	MULTIPLY:                 "multiply",
	MULTIPLY_IMMEDIATE:       "multiply-immediate",
	DIVIDE:                   "divide",
	DIVIDE_IMMEDIATE:         "divide-immediate",
	DIVIDE_INTEGER:           "divide-integer",
	DIVIDE_INTEGER_IMMEDIATE: "divide-integer-immediate",
	MODULO:                   "modulo",
	MODULO_IMMEDIATE:         "modulo-immediate",
	REMAINDER:                "remainder",
	REMAINDER_IMMEDIATE:      "remainder-immediate",
	BAND:                     "band",
	BAND_IMMEDIATE:           "band-immediate",
	BOR:                      "bor",
	BOR_IMMEDIATE:            "bor-immediate",
	BXOR:                     "bxor",
	BXOR_IMMEDIATE:           "bxor-immediate",
	BNOT:                     "bnot",
	SHIFT_LEFT:               "shift-left",
	SHIFT_LEFT_IMMEDIATE:     "shift-left-immediate",
	SHIFT_RIGHT:              "shift-right",
	SHIFT_RIGHT_IMMEDIATE:    "shift-right-immediate",

	JUMP:            "jump",
	JUMP_IF:         "jump-if",
	JUMP_IF_NOT:     "jump-if-not",
	JUMP_IF_NIL:     "jump-if-nil",
	JUMP_IF_NOT_NIL: "jump-if-not-nil",

	MAKE_ARRAY:         "make-array",
	MAKE_BUFFER:        "make-buffer",
	MAKE_STRING:        "make-string",
	MAKE_STRUCT:        "make-struct",
	MAKE_TABLE:         "make-table",
	MAKE_TUPLE:         "make-tuple",
	MAKE_BRACKET_TUPLE: "make-bracket-tuple",

	CALL:       "call",
	TAILCALL:   "tailcall",
	RETURN:     "return",
	RETURN_NIL: "return-nil",

	RESUME:    "resume",
	SIGNAL:    "signal",
	PROPAGATE: "propagate",
	YIELD:     "yield",
	CANCEL:    "cancel",

	IN:        "in",
	GET:       "get",
	PUT:       "put",
	GET_INDEX: "get-index",
	PUT_INDEX: "put-index",
	LENGTH:    "length",
	NEXT:      "next",

	TYPECHECK: "typecheck",
	CLOSURE:   "closure",

	PUSH:       "push",
	PUSH_2:     "push-2",
	PUSH_3:     "push-3",
	PUSH_ARRAY: "push-array",

	ERROR: "error",
}

func (op Opcode) String() string {
	if int(op) < len(opcodeNames) && opcodeNames[op] != "" {
		return opcodeNames[op]
	}
	return fmt.Sprintf("opcode(%d)", op)
}

// ArgShape returns the argument-shape class of op.
func (op Opcode) ArgShape() Shape {
	if int(op) < len(opcodeShapes) {
		return opcodeShapes[op]
	}
	return Shape0
}

// Valid reports whether op is a recognized opcode.
func (op Opcode) Valid() bool { return op < OpcodeMax }
