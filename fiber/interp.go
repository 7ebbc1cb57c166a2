package fiber

import (
	"context"
	"fmt"

	"github.com/mna/corevm/code"
	"github.com/mna/corevm/coreerr"
	"github.com/mna/corevm/gc"
	"github.com/mna/corevm/lang/token"
	"github.com/mna/corevm/value"
)

// defaultMaxSteps is the MaxSteps a new Interp starts with. MaxSteps bounds
// the number of instructions a single Resume call executes before yielding
// control back to the host as a safety net against a fiber that never hits
// a suspension point, the analog of lang/machine's MaxSteps guard (0
// disables the limit).
const defaultMaxSteps = 0

// comparisonToken/arithToken map an Opcode to the token.Token that carries
// the same operator, exploiting the declaration-order correspondence noted
// in package token's doc comment.
func comparisonToken(op code.Opcode) token.Token {
	return token.LT + token.Token(op-code.LESS_THAN)
}

// In the ADD..SHIFT_RIGHT_IMMEDIATE block two opcodes per operator (plain,
// then _IMMEDIATE) map onto one token.Token; BNOT, the block's one unary
// opcode, sits between BXOR_IMMEDIATE and SHIFT_LEFT and is skipped.
func arithToken(op code.Opcode) token.Token {
	d := op - code.ADD
	if op > code.BNOT {
		d--
	}
	return token.PLUS + token.Token(d/2)
}

func isImmediateArith(op code.Opcode) bool {
	d := op - code.ADD
	if op > code.BNOT {
		d--
	}
	return d%2 == 1
}

// Interp drives a single fiber's bytecode interpreter. It holds the heap
// every allocation and collection goes through and the per-Resume step
// limit; cancellation is not stored here but read from the context.Context
// passed to Resume. Grounded on lang/machine's explicit per-call context
// struct.
type Interp struct {
	Heap     *gc.Heap
	MaxSteps int64
}

// NewInterp returns an Interp bound to the given heap.
func NewInterp(h *gc.Heap) *Interp {
	return &Interp{Heap: h, MaxSteps: defaultMaxSteps}
}

// Resume runs f, starting or continuing its topmost frame, until it hits a
// suspension point (YIELD, a user signal, return to an empty frame stack, an
// error, ctx cancellation, or the MaxSteps limit) and returns the resulting
// signal and value. Grounded on lang/machine's Thread.Call outer loop,
// generalized to a resumable fiber instead of a single run-to-completion
// call stack.
func (ip *Interp) Resume(ctx context.Context, f *Fiber, in value.Value) (value.Value, Signal, error) {
	if f.status == StatusDead || f.status == StatusError {
		return nil, SignalError, fmt.Errorf("fiber: cannot resume a %s fiber", f.status)
	}
	f.status = StatusAlive
	f.lastValue = in
	if f.yieldDest >= 0 && len(f.frame) > 0 {
		base := f.localsBase()
		f.data[base+int(f.yieldDest)] = in
		f.yieldDest = -1
	}

	var steps int64
	for {
		select {
		case <-ctx.Done():
			f.status = StatusError
			f.lastValue = value.NewStringFromString(ctx.Err().Error())
			return f.lastValue, SignalError, ctx.Err()
		default:
		}

		if len(f.frame) == 0 {
			f.status = StatusDead
			return f.lastValue, SignalOK, nil
		}

		sig, val, err := ip.step(ctx, f)
		if err != nil {
			return ip.deliverError(f, val, err)
		}
		switch sig {
		case SignalOK:
			// instruction completed normally, keep looping
		case SignalYield:
			f.status = StatusPending
			f.lastValue = val
			return val, SignalYield, nil
		default:
			if sig >= SignalUser0 {
				f.status = StatusUser0 + Status(sig-SignalUser0)
				f.lastValue = val
				return val, sig, nil
			}
		}

		if ip.MaxSteps > 0 {
			steps++
			if steps >= ip.MaxSteps {
				return f.lastValue, SignalYield, nil
			}
		}
		if ip.Heap != nil {
			ip.Heap.MaybeCollect(f)
		}
	}
}

// deliverError reifies a Go error as an ERROR signal: if the fiber's mask
// traps errors it transitions to PENDING with the error value surfaced to
// the resumer (§4.E), otherwise it terminates with status ERROR. raised, if
// non-nil, is the actual runtime value the failing instruction carried (the
// ERROR opcode's operand, a raised panic value); it takes precedence over
// reconstructing a value from the Go error's text.
func (ip *Interp) deliverError(f *Fiber, raised value.Value, err error) (value.Value, Signal, error) {
	val := raised
	if val == nil {
		val = errorValue(err)
	}
	f.lastValue = val
	if f.sigMask.Traps(SignalError) {
		f.status = StatusPending
		return val, SignalError, nil
	}
	f.status = StatusError
	return val, SignalError, err
}

func errorValue(err error) value.Value {
	type valueCarrier interface{ Value() coreerr.Payload }
	if vc, ok := err.(valueCarrier); ok {
		if p := vc.Value(); p != nil {
			if v, ok := p.(value.Value); ok {
				return v
			}
			return value.NewStringFromString(p.String())
		}
	}
	return value.NewStringFromString(err.Error())
}

// step executes exactly one instruction of f's current frame.
func (ip *Interp) step(ctx context.Context, f *Fiber) (Signal, value.Value, error) {
	sf := f.currentFrame()
	def := sf.Fn.Def
	if sf.PC >= len(def.Bytecode) {
		return SignalOK, nil, fmt.Errorf("fiber: program counter past end of bytecode")
	}
	ins := def.Bytecode[sf.PC]
	sf.PC++
	base := f.localsBase()

	get := func(slot int32) value.Value { return f.data[base+int(slot)] }
	set := func(slot int32, v value.Value) { f.data[base+int(slot)] = v }

	op := ins.Op()
	switch {
	case op == code.NOOP || op == code.DEBUG:
		return SignalOK, nil, nil

	case op == code.LOAD_NIL:
		set(ins.A24(), value.Nil)
	case op == code.LOAD_TRUE:
		set(ins.A24(), value.Bool(true))
	case op == code.LOAD_FALSE:
		set(ins.A24(), value.Bool(false))
	case op == code.LOAD_INTEGER:
		set(ins.Slot8(), value.Number(ins.SArg16()))
	case op == code.LOAD_CONSTANT:
		idx := int(ins.Arg16())
		if idx < 0 || idx >= len(def.Constants) {
			return SignalOK, nil, fmt.Errorf("fiber: constant index %d out of range", idx)
		}
		set(ins.Slot8(), def.Constants[idx])
	case op == code.LOAD_SELF:
		set(ins.A24(), sf.Fn)
	case op == code.LOAD_UPVALUE:
		envIdx, far := int(ins.Slot16_2()), int(ins.Slot24_3())
		if envIdx < 0 || envIdx >= len(sf.Fn.Envs) {
			return SignalOK, nil, fmt.Errorf("fiber: env index %d out of range", envIdx)
		}
		set(ins.Slot8(), sf.Fn.Envs[envIdx].Get(far))
	case op == code.SET_UPVALUE:
		envIdx, far := int(ins.Slot16_2()), int(ins.Slot24_3())
		if envIdx < 0 || envIdx >= len(sf.Fn.Envs) {
			return SignalOK, nil, fmt.Errorf("fiber: env index %d out of range", envIdx)
		}
		sf.Fn.Envs[envIdx].Set(far, get(ins.Slot8()))
	case op == code.MOVE_NEAR || op == code.MOVE_FAR:
		set(ins.Slot8(), get(ins.Arg16()))

	case op >= code.LESS_THAN && op <= code.NOT_EQUALS:
		res, err := value.Binary(comparisonToken(op), get(ins.Slot16_2()), get(ins.Slot24_3()))
		if err != nil {
			return SignalOK, nil, err
		}
		set(ins.Slot8(), res)

	case op >= code.ADD && op <= code.SHIFT_RIGHT_IMMEDIATE && op != code.BNOT:
		tok := arithToken(op)
		x := get(ins.Slot16_2())
		var y value.Value
		if isImmediateArith(op) {
			y = value.Number(ins.SArg24_3())
		} else {
			y = get(ins.Slot24_3())
		}
		res, err := value.Binary(tok, x, y)
		if err != nil {
			return SignalOK, nil, err
		}
		set(ins.Slot8(), res)
	case op == code.BNOT:
		res, err := value.Unary(token.TILDE, get(ins.Arg16()))
		if err != nil {
			return SignalOK, nil, err
		}
		set(ins.Slot8(), res)

	case op == code.JUMP:
		sf.PC += int(ins.L24())
	case op == code.JUMP_IF:
		if value.Truthy(get(ins.Slot8())) {
			sf.PC += int(ins.SArg16())
		}
	case op == code.JUMP_IF_NOT:
		if !value.Truthy(get(ins.Slot8())) {
			sf.PC += int(ins.SArg16())
		}
	case op == code.JUMP_IF_NIL:
		if _, isNil := get(ins.Slot8()).(value.NilType); isNil {
			sf.PC += int(ins.SArg16())
		}
	case op == code.JUMP_IF_NOT_NIL:
		if _, isNil := get(ins.Slot8()).(value.NilType); !isNil {
			sf.PC += int(ins.SArg16())
		}

	case op == code.MAKE_ARRAY:
		n := int(ins.Arg16())
		items := f.drainStage(n)
		arr := value.NewArray(ip.Heap, len(items))
		for _, it := range items {
			arr.Push(it)
		}
		set(ins.Slot8(), arr)
	case op == code.MAKE_BUFFER:
		n := int(ins.Arg16())
		items := f.drainStage(n)
		buf := value.NewBuffer(ip.Heap, len(items))
		for _, it := range items {
			if nv, ok := it.(value.Number); ok {
				buf.Push([]byte{byte(value.AsInt(nv))})
			}
		}
		set(ins.Slot8(), buf)
	case op == code.MAKE_STRING:
		idx := int(ins.Arg16())
		if idx < 0 || idx >= len(def.Constants) {
			return SignalOK, nil, fmt.Errorf("fiber: constant index %d out of range", idx)
		}
		set(ins.Slot8(), def.Constants[idx])
	case op == code.MAKE_TUPLE || op == code.MAKE_BRACKET_TUPLE:
		n := int(ins.Arg16())
		items := f.drainStage(n)
		bracket := value.BracketParen
		if op == code.MAKE_BRACKET_TUPLE {
			bracket = value.BracketSquare
		}
		set(ins.Slot8(), value.NewTuple(ip.Heap, items, bracket))
	case op == code.MAKE_STRUCT:
		n := int(ins.Arg16())
		items := f.drainStage(2 * n)
		b := value.BeginStruct(n)
		for i := 0; i+1 < len(items); i += 2 {
			b.Put(items[i], items[i+1])
		}
		set(ins.Slot8(), b.End(ip.Heap))
	case op == code.MAKE_TABLE:
		n := int(ins.Arg16())
		items := f.drainStage(2 * n)
		tbl := value.NewTable(ip.Heap, n)
		for i := 0; i+1 < len(items); i += 2 {
			if err := tbl.Put(items[i], items[i+1]); err != nil {
				return SignalOK, nil, err
			}
		}
		set(ins.Slot8(), tbl)

	case op == code.CALL:
		return ip.call(ctx, f, ins)
	case op == code.TAILCALL:
		return ip.tailcall(ctx, f, ins)
	case op == code.RETURN:
		return ip.ret(f, get(ins.A24()))
	case op == code.RETURN_NIL:
		return ip.ret(f, value.Nil)

	case op == code.RESUME:
		return ip.resumeOp(ctx, f, ins)
	case op == code.SIGNAL:
		sigCode := int(ins.Slot24_3())
		return Signal(SignalUser0 + Signal(sigCode)), get(ins.Slot16_2()), nil
	case op == code.PROPAGATE:
		return SignalError, get(ins.Arg16()), fmt.Errorf("fiber: propagated: %s", get(ins.Arg16()).String())
	case op == code.YIELD:
		f.yieldDest = ins.Slot8()
		return SignalYield, get(ins.Arg16()), nil
	case op == code.CANCEL:
		f.status = StatusError
		return SignalError, get(ins.Arg16()), coreerr.NewCancellationError(coreerr.Str(get(ins.Arg16()).String()))

	case op == code.IN:
		ok, err := value.In(get(ins.Slot16_2()), get(ins.Slot24_3()))
		if err != nil {
			return SignalOK, nil, err
		}
		set(ins.Slot8(), value.Bool(ok))
	case op == code.GET:
		v, found, err := value.Get(get(ins.Slot16_2()), get(ins.Slot24_3()))
		if err != nil {
			return SignalOK, nil, err
		}
		if !found {
			v = value.Nil
		}
		set(ins.Slot8(), v)
	case op == code.PUT:
		if err := value.Put(get(ins.Slot8()), get(ins.Slot16_2()), get(ins.Slot24_3())); err != nil {
			return SignalOK, nil, err
		}
	case op == code.GET_INDEX:
		n, ok := get(ins.Slot24_3()).(value.Number)
		if !ok {
			return SignalOK, nil, fmt.Errorf("fiber: get-index requires a number index")
		}
		v, err := value.GetIndex(get(ins.Slot16_2()), int(value.AsInt(n)))
		if err != nil {
			return SignalOK, nil, err
		}
		set(ins.Slot8(), v)
	case op == code.PUT_INDEX:
		n, ok := get(ins.Slot16_2()).(value.Number)
		if !ok {
			return SignalOK, nil, fmt.Errorf("fiber: put-index requires a number index")
		}
		if err := value.PutIndex(get(ins.Slot8()), int(value.AsInt(n)), get(ins.Slot24_3())); err != nil {
			return SignalOK, nil, err
		}
	case op == code.LENGTH:
		n, err := value.Length(get(ins.Arg16()))
		if err != nil {
			return SignalOK, nil, err
		}
		set(ins.Slot8(), value.Number(n))
	case op == code.NEXT:
		v, err := value.Next(get(ins.Slot16_2()), get(ins.Slot24_3()))
		if err != nil {
			return SignalOK, nil, err
		}
		set(ins.Slot8(), v)

	case op == code.TYPECHECK:
		mask := TypeMask(ins.Arg16())
		if !mask.Test(get(ins.Slot8())) {
			return SignalOK, nil, coreerr.NewTypeError(coreerr.Str(fmt.Sprintf("expected %s, got %s", mask, get(ins.Slot8()).Kind())))
		}
	case op == code.CLOSURE:
		return ip.closure(f, ins)

	case op == code.PUSH:
		f.stage = append(f.stage, get(ins.A24()))
	case op == code.PUSH_2:
		f.stage = append(f.stage, get(ins.Slot8()), get(ins.Arg16()))
	case op == code.PUSH_3:
		f.stage = append(f.stage, get(ins.Slot8()), get(ins.Slot16_2()), get(ins.Slot24_3()))
	case op == code.PUSH_ARRAY:
		arr, ok := get(ins.A24()).(*value.Array)
		if !ok {
			return SignalOK, nil, fmt.Errorf("fiber: push-array requires an array operand")
		}
		for i := 0; i < arr.Length(); i++ {
			v, _ := arr.GetIndex(i)
			f.stage = append(f.stage, v)
		}

	case op == code.ERROR:
		return SignalError, get(ins.A24()), fmt.Errorf("fiber: error: %s", get(ins.A24()).String())

	default:
		return SignalOK, nil, fmt.Errorf("fiber: unimplemented opcode %s", op)
	}
	return SignalOK, nil, nil
}

// drainStage removes and returns the last n values staged by PUSH/PUSH_2/
// PUSH_3/PUSH_ARRAY, in the order they were pushed.
func (f *Fiber) drainStage(n int) []value.Value {
	if n > len(f.stage) {
		n = len(f.stage)
	}
	start := len(f.stage) - n
	out := make([]value.Value, n)
	copy(out, f.stage[start:])
	f.stage = f.stage[:start]
	return out
}
