// Package coreerr defines the typed error kinds the runtime surfaces (spec
// §7). Every kind wraps a Payload — usually a string but, per spec, any
// runtime value is permitted — so host code can inspect the exact value that
// would be delivered as an ERROR signal, not just a formatted message. This
// package intentionally has no dependency on package value: it is a leaf so
// that value, gc, code, fiber and asm can all return these errors without
// import cycles; the Payload field is typed `any` and callers that hold a
// value.Value store it there directly (value.Value's String method satisfies
// fmt.Stringer, which is all Error() needs).
package coreerr

import "fmt"

// Payload is satisfied by anything with a textual representation; it is
// deliberately minimal so this package does not need to import the value
// model.
type Payload interface {
	String() string
}

type stringPayload string

func (s stringPayload) String() string { return string(s) }

// Str wraps a plain string as a Payload, for call sites that don't have a
// runtime Value at hand (e.g. a verifier rejecting a malformed FuncDef).
func Str(s string) Payload { return stringPayload(s) }

// baseError is embedded by every typed error kind below.
type baseError struct {
	kind    string
	payload Payload
}

func (e *baseError) Error() string {
	if e.payload == nil {
		return e.kind
	}
	return fmt.Sprintf("%s: %s", e.kind, e.payload.String())
}

// Value returns the payload value carried by the error, for host code that
// wants the original Value rather than a formatted string.
func (e *baseError) Value() Payload { return e.payload }

// TypeError reports an operand kind mismatch (e.g. arithmetic on a table).
type TypeError struct{ baseError }

func NewTypeError(p Payload) *TypeError { return &TypeError{baseError{"type error", p}} }

// ArityError reports a fixed-arity function called with the wrong argc.
type ArityError struct{ baseError }

func NewArityError(p Payload) *ArityError { return &ArityError{baseError{"arity error", p}} }

// IndexError reports an integer index out of [0,length).
type IndexError struct{ baseError }

func NewIndexError(p Payload) *IndexError { return &IndexError{baseError{"index error", p}} }

// KeyError reports a non-hashable key, or a nil key in put.
type KeyError struct{ baseError }

func NewKeyError(p Payload) *KeyError { return &KeyError{baseError{"key error", p}} }

// ArithmeticError reports integer division by zero or signed overflow.
type ArithmeticError struct{ baseError }

func NewArithmeticError(p Payload) *ArithmeticError {
	return &ArithmeticError{baseError{"arithmetic error", p}}
}

// StackOverflowError reports stacktop > maxstack.
type StackOverflowError struct{ baseError }

func NewStackOverflowError(p Payload) *StackOverflowError {
	return &StackOverflowError{baseError{"stack overflow", p}}
}

// VerificationError reports a malformed FuncDef rejected before execution.
type VerificationError struct{ baseError }

func NewVerificationError(p Payload) *VerificationError {
	return &VerificationError{baseError{"verification error", p}}
}

// AssemblyError reports malformed symbolic input to the assembler.
type AssemblyError struct{ baseError }

func NewAssemblyError(p Payload) *AssemblyError {
	return &AssemblyError{baseError{"assembly error", p}}
}

// SignalError wraps a non-error signal code raised by the SIGNAL opcode.
type SignalError struct {
	baseError
	Code int
}

func NewSignalError(code int, p Payload) *SignalError {
	return &SignalError{baseError{"signal", p}, code}
}

// CancellationError reports an externally injected cancel(fiber, value).
type CancellationError struct{ baseError }

func NewCancellationError(p Payload) *CancellationError {
	return &CancellationError{baseError{"cancelled", p}}
}
