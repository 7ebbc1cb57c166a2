package fiber

import (
	"context"
	"fmt"

	"github.com/mna/corevm/code"
	"github.com/mna/corevm/coreerr"
	"github.com/mna/corevm/value"
)

// call implements the non-tail call procedure of §4.E: arguments have
// already been staged via PUSH/PUSH_2/PUSH_3/PUSH_ARRAY; CALL dest, callee
// pushes a new frame (or, for a cfunction, invokes it directly) and writes
// the result into dest once the callee returns.
func (ip *Interp) call(ctx context.Context, f *Fiber, ins code.Instruction) (Signal, value.Value, error) {
	sf := f.currentFrame()
	base := f.localsBase()
	dest := ins.Slot8()
	callee := f.data[base+int(ins.Arg16())]
	args := f.drainStage(len(f.stage))

	switch c := callee.(type) {
	case *code.Function:
		if err := f.enterFunction(c, args, false); err != nil {
			return SignalOK, nil, err
		}
		// the new frame carries its own dest slot recorded on the caller's
		// frame below it via retDest, so RETURN knows where to store the value.
		f.retDest = append(f.retDest, dest)
		return SignalOK, nil, nil
	case *value.CFunction:
		result, err := c.Call(args)
		if err != nil {
			return SignalOK, nil, err
		}
		f.data[base+int(dest)] = result
		return SignalOK, nil, nil
	case *Fiber:
		val, sig, err := ip.Resume(ctx, c, argOrNil(args))
		if err != nil {
			return SignalOK, nil, err
		}
		if sig != SignalOK && sig != SignalYield {
			return sig, val, nil
		}
		f.data[base+int(dest)] = val
		return SignalOK, nil, nil
	default:
		_ = sf
		return SignalOK, nil, fmt.Errorf("fiber: value of kind %s is not callable", callee.Kind())
	}
}

func argOrNil(args []value.Value) value.Value {
	if len(args) == 0 {
		return value.Nil
	}
	return args[0]
}

// tailcall implements §4.E's tail call procedure: the current frame is
// reused in place rather than a new one pushed, so a chain of tail calls
// never grows the fiber's call-stack depth.
func (ip *Interp) tailcall(ctx context.Context, f *Fiber, ins code.Instruction) (Signal, value.Value, error) {
	base := f.localsBase()
	callee := f.data[base+int(ins.A24())]
	args := f.drainStage(len(f.stage))

	switch c := callee.(type) {
	case *code.Function:
		if err := f.enterFunction(c, args, true); err != nil {
			return SignalOK, nil, err
		}
		return SignalOK, nil, nil
	case *value.CFunction:
		result, err := c.Call(args)
		if err != nil {
			return SignalOK, nil, err
		}
		return ip.ret(f, result)
	default:
		return SignalOK, nil, fmt.Errorf("fiber: value of kind %s is not callable", callee.Kind())
	}
}

// enterFunction pushes (or, if tail, reuses) a frame for fn with args
// installed as its leading locals, per §4.E steps 2.a-2.f.
func (f *Fiber) enterFunction(fn *code.Function, args []value.Value, tail bool) error {
	def := fn.Def
	min, max := fn.Arity()
	n := len(args)
	if def.Flags&code.FlagVararg == 0 {
		if n < min || n > max {
			return coreerr.NewArityError(coreerr.Str(fmt.Sprintf("expected %d..%d args, got %d", min, max, n)))
		}
	} else if n < min {
		return coreerr.NewArityError(coreerr.Str(fmt.Sprintf("expected at least %d args, got %d", min, n)))
	}

	if tail && len(f.frame) > 0 {
		if err := f.replaceFrame(fn, def.SlotCount); err != nil {
			return err
		}
	} else {
		if err := f.pushFrame(fn, def.SlotCount, len(f.frame) == 0); err != nil {
			return err
		}
	}

	base := f.localsBase()
	fixed := def.Arity
	for i := 0; i < fixed && i < n; i++ {
		f.data[base+i] = args[i]
	}
	if def.Flags&code.FlagVararg != 0 {
		var extra []value.Value
		if n > fixed {
			extra = args[fixed:]
		}
		f.data[base+fixed] = value.NewTuple(f.heap, extra, value.BracketParen)
	}
	return nil
}

// ret implements §4.E's return procedure: detach the frame's env if one was
// captured on-stack, pop the frame, and deliver the value either to the
// caller's recorded dest slot or, if the root frame just returned, as the
// fiber's final OK signal.
func (ip *Interp) ret(f *Fiber, val value.Value) (Signal, value.Value, error) {
	f.popFrame()
	if len(f.frame) == 0 {
		f.lastValue = val
		return SignalOK, val, nil
	}
	dest := f.retDest[len(f.retDest)-1]
	f.retDest = f.retDest[:len(f.retDest)-1]
	base := f.localsBase()
	f.data[base+int(dest)] = val
	return SignalOK, nil, nil
}

// resumeOp implements the RESUME opcode: pause the current fiber and run
// the named child fiber until it yields, returns, or errors, surfacing the
// result according to the current fiber's signal mask.
func (ip *Interp) resumeOp(ctx context.Context, f *Fiber, ins code.Instruction) (Signal, value.Value, error) {
	base := f.localsBase()
	child, ok := f.data[base+int(ins.Slot16_2())].(*Fiber)
	if !ok {
		return SignalOK, nil, fmt.Errorf("fiber: resume requires a fiber operand")
	}
	in := f.data[base+int(ins.Slot24_3())]

	f.child = child
	child.parent = f
	val, sig, err := ip.Resume(ctx, child, in)
	f.child = nil
	if err != nil && !f.sigMask.Traps(sig) {
		return sig, val, err
	}
	f.data[base+int(ins.Slot8())] = val
	return SignalOK, nil, nil
}

// closure implements §4.D's closure creation procedure: for each entry of
// the target child def's Environments table, either capture the current
// activation as a fresh on-stack FuncEnv (-1) or share an env already
// captured by the enclosing function (k >= 0).
func (ip *Interp) closure(f *Fiber, ins code.Instruction) (Signal, value.Value, error) {
	sf := f.currentFrame()
	childIdx := int(ins.Arg16())
	if childIdx < 0 || childIdx >= len(sf.Fn.Def.Defs) {
		return SignalOK, nil, fmt.Errorf("fiber: child def index %d out of range", childIdx)
	}
	childDef := sf.Fn.Def.Defs[childIdx]

	envs := make([]*code.FuncEnv, len(childDef.Environments))
	for i, e := range childDef.Environments {
		if e == -1 {
			if sf.Env == nil {
				base := f.base[len(f.base)-1]
				sf.Env = code.NewOnStackEnv(ip.Heap, f, base+FrameSize, sf.Fn.Def.SlotCount)
			}
			envs[i] = sf.Env
		} else {
			envs[i] = sf.Fn.Envs[e]
		}
	}
	fn := code.NewFunction(ip.Heap, childDef, envs)
	base := f.localsBase()
	f.data[base+int(ins.Slot8())] = fn
	return SignalOK, nil, nil
}
