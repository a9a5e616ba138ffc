package pljava

import (
	"github.com/pkg/errors"

	"github.com/tada/pljava-sub010/memctx"
)

// ExecState says which side of the bridge currently has control. It
// replaces a pair of globals the call paths used to flip: the fence that
// keeps server entry points from running while Java is on top, and its
// converse.
type ExecState int

const (
	// StateIdle means no bridge call is in progress.
	StateIdle ExecState = iota
	// StateInServer means Java handed control back to the server: an SPI
	// statement is executing on its behalf.
	StateInServer
	// StateInJava means control is inside the JVM.
	StateInJava
)

func (s ExecState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateInServer:
		return "in-server"
	case StateInJava:
		return "in-java"
	default:
		return "invalid"
	}
}

// Invocation is the per-call frame: one is pushed for every entry from the
// server into Java, including re-entrant entries made while an outer call
// sits inside the JVM (Java code running SQL that calls back into Java).
type Invocation struct {
	// Nest is the depth of this frame, 1 for the outermost call.
	Nest int

	// ErrorOccurred is set when a server error fires while this frame was
	// inside Java. The frame is then poisoned: server operations through it
	// must be refused until the error has propagated out.
	ErrorOccurred bool

	// InExprContext reports whether the call runs in an expression context
	// that can be abandoned without the normal end-of-call cleanup, which is
	// what makes the set-returning close hook necessary.
	InExprContext bool

	// Context is the per-invocation memory context; it is deleted when the
	// frame pops, releasing everything hooked onto it.
	Context *memctx.Context

	readonly   bool
	savedState ExecState
	onPop      []func()
}

// Readonly reports whether SPI work issued in this frame runs read-only,
// taken from the called function's volatility.
func (inv *Invocation) Readonly() bool { return inv.readonly }

// OnPop registers a callback to run when this frame pops, after callbacks
// registered earlier (LIFO).
func (inv *Invocation) OnPop(f func()) {
	inv.onPop = append(inv.onPop, f)
}

// invocationStack is the LIFO of active frames. Single-threaded by
// construction, like the backend it lives in.
type invocationStack struct {
	frames []*Invocation
	top    *memctx.Context
}

func newInvocationStack(top *memctx.Context) *invocationStack {
	return &invocationStack{top: top}
}

// Current returns the innermost frame, or nil outside any call.
func (s *invocationStack) Current() *Invocation {
	if len(s.frames) == 0 {
		return nil
	}
	return s.frames[len(s.frames)-1]
}

// Depth returns the number of active frames.
func (s *invocationStack) Depth() int { return len(s.frames) }

// Push opens a frame for a new entry from the server.
func (s *invocationStack) Push(prev ExecState, inExpr bool) *Invocation {
	inv := &Invocation{
		Nest:          len(s.frames) + 1,
		InExprContext: inExpr,
		Context:       memctx.New(s.top, "Invocation"),
		savedState:    prev,
	}
	s.frames = append(s.frames, inv)
	return inv
}

// Pop closes the frame, which must be the innermost one. The frame's
// callbacks run in reverse registration order, then its memory context is
// deleted.
func (s *invocationStack) Pop(inv *Invocation) (ExecState, error) {
	if len(s.frames) == 0 || s.frames[len(s.frames)-1] != inv {
		return StateIdle, errors.Errorf("invocation popped out of order (nest %d, depth %d)",
			inv.Nest, len(s.frames))
	}
	s.frames = s.frames[:len(s.frames)-1]
	for i := len(inv.onPop) - 1; i >= 0; i-- {
		inv.onPop[i]()
	}
	inv.onPop = nil
	if err := inv.Context.Delete(); err != nil && !errors.Is(err, memctx.ErrDeleted) {
		return inv.savedState, err
	}
	return inv.savedState, nil
}
