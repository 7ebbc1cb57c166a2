package fiber

import "github.com/mna/corevm/code"

// FrameSize is the number of value-slots a StackFrame occupies at the base
// of every call frame, ahead of that call's locals: "FRAME_SIZE is a fixed
// constant ... a frame's locals live at [frame + FRAME_SIZE, frame +
// FRAME_SIZE + slotcount)". Grounded on lang/machine's Frame, generalized
// from a single field (callable+pc) to the fuller bookkeeping a resumable,
// tail-call-reusing stack needs: the owning function, the return address,
// the frame's captured environment and the index of the frame below it.
const FrameSize = 4

// frameFlags records frame-local bookkeeping bits.
type frameFlags uint8

const (
	// flagTailcall marks a frame that replaced its caller's frame in place
	// rather than pushing a new one (spec §4.E "TAILCALL reuses the current
	// frame").
	flagTailcall frameFlags = 1 << iota
	// flagEntrance marks the outermost frame of a fiber, the one RETURN from
	// which ends the fiber's current resumption instead of returning to a Go
	// caller within the same Resume call.
	flagEntrance
)

// StackFrame is the call-frame header of one frame on a Fiber, the analog of
// Janet's CallFrame. Fiber keeps these in a slice parallel to its value
// stack rather than in-band; the FrameSize value slots at the base of each
// frame stay reserved.
type StackFrame struct {
	Fn        *code.Function // the executing closure
	PC        int            // index of the next instruction to execute
	Env       *code.FuncEnv  // this frame's environment, created lazily on CLOSURE
	PrevFrame int            // index in the fiber's frame slice of the frame below this one, or -1
	flags     frameFlags
}

func (f *StackFrame) tailcall() bool  { return f.flags&flagTailcall != 0 }
func (f *StackFrame) entrance() bool  { return f.flags&flagEntrance != 0 }
func (f *StackFrame) setTailcall()    { f.flags |= flagTailcall }
func (f *StackFrame) setEntrance()    { f.flags |= flagEntrance }
