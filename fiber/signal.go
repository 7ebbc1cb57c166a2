// Package fiber implements the green-thread machine (spec component E): the
// Fiber stack, its register-based bytecode interpreter, the status/signal
// state machine, and resume/yield/cancel. Adapted from
// github.com/mna/nenuphar's lang/machine Thread/Frame/Call idiom — an
// explicit context struct threaded through every call, a defer-guarded
// frame push/pop, and context.Context-based cancellation — generalized from
// nenuphar's single eager call stack to janet's suspendable, resumable
// fiber stack with its own status/signal state machine.
package fiber

import (
	"fmt"
	"strings"
)

// Status is a fiber's current state in the NEW -> ALIVE <-> PENDING -> DEAD
// state machine, with ERROR/DEBUG/USER0..9 as alternative terminal-or-pause
// states (§4.E).
type Status uint8

const (
	StatusNew Status = iota
	StatusAlive
	StatusPending
	StatusDead
	StatusError
	StatusDebug
	StatusUser0
	// StatusUser1..StatusUser9 follow StatusUser0 contiguously.
)

func (s Status) String() string {
	switch {
	case s == StatusNew:
		return "new"
	case s == StatusAlive:
		return "alive"
	case s == StatusPending:
		return "pending"
	case s == StatusDead:
		return "dead"
	case s == StatusError:
		return "error"
	case s == StatusDebug:
		return "debug"
	case s >= StatusUser0 && s < StatusUser0+10:
		return fmt.Sprintf("user%d", s-StatusUser0)
	default:
		return fmt.Sprintf("status(%d)", s)
	}
}

// Signal is what a fiber communicates to its resumer at a suspension point.
type Signal uint8

const (
	SignalOK Signal = iota
	SignalError
	SignalDebug
	SignalYield
	SignalUser0
	// SignalUser1..SignalUser9 follow SignalUser0 contiguously.
)

func (s Signal) String() string {
	switch {
	case s == SignalOK:
		return "ok"
	case s == SignalError:
		return "error"
	case s == SignalDebug:
		return "debug"
	case s == SignalYield:
		return "yield"
	case s >= SignalUser0 && s < SignalUser0+10:
		return fmt.Sprintf("user%d", s-SignalUser0)
	default:
		return fmt.Sprintf("signal(%d)", s)
	}
}

// Mask is the bitset of signal kinds a fiber intercepts from a child it
// resumes; any signal not in the mask propagates to the grandparent
// unchanged (§4.E: "caller-provided mask string selects which child signals
// are caught vs propagated").
type Mask uint16

const (
	MaskYield Mask = 1 << iota
	MaskError
	MaskDebug
	maskUser0Bit // MaskUser0..MaskUser9 occupy the next 10 bits
)

// MaskUser returns the bit for user signal n (0-9).
func MaskUser(n int) Mask { return maskUser0Bit << uint(n) }

// maskAllUsers is the OR of all ten user-signal bits.
const maskAllUsers Mask = 0x3FF << 3

// MaskAll traps every signal kind.
const MaskAll = MaskYield | MaskError | MaskDebug | maskAllUsers

// ParseMask parses a janet-style mask string: 'y'=yield, 'e'=error,
// 'd'=debug, 'u'=all user signals, a digit selects one user slot, 'a'=all.
func ParseMask(s string) (Mask, error) {
	var m Mask
	for _, r := range s {
		switch {
		case r == 'y':
			m |= MaskYield
		case r == 'e':
			m |= MaskError
		case r == 'd':
			m |= MaskDebug
		case r == 'u':
			m |= MaskUser(0) | MaskUser(1) | MaskUser(2) | MaskUser(3) | MaskUser(4) |
				MaskUser(5) | MaskUser(6) | MaskUser(7) | MaskUser(8) | MaskUser(9)
		case r == 'a':
			m |= MaskAll
		case r >= '0' && r <= '9':
			m |= MaskUser(int(r - '0'))
		default:
			return 0, fmt.Errorf("fiber: invalid mask character %q in %q", r, s)
		}
	}
	return m, nil
}

// Traps reports whether the mask intercepts sig.
func (m Mask) Traps(sig Signal) bool {
	switch {
	case sig == SignalYield:
		return m&MaskYield != 0
	case sig == SignalError:
		return m&MaskError != 0
	case sig == SignalDebug:
		return m&MaskDebug != 0
	case sig >= SignalUser0 && sig < SignalUser0+10:
		return m&MaskUser(int(sig-SignalUser0)) != 0
	default:
		return false
	}
}

func (m Mask) String() string {
	var sb strings.Builder
	if m&MaskYield != 0 {
		sb.WriteByte('y')
	}
	if m&MaskError != 0 {
		sb.WriteByte('e')
	}
	if m&MaskDebug != 0 {
		sb.WriteByte('d')
	}
	for i := 0; i < 10; i++ {
		if m&MaskUser(i) != 0 {
			sb.WriteByte(byte('0' + i))
		}
	}
	return sb.String()
}
