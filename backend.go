package pljava

import (
	"context"

	"github.com/pkg/errors"

	"github.com/tada/pljava-sub010/memctx"
	"github.com/tada/pljava-sub010/types"
)

// Backend is the per-process bridge between server entry points and the
// JVM. It owns the type registry, the function cache, the invocation stack
// and the runtime, and like the process it lives in it is single-threaded:
// nothing here is safe for concurrent use.
type Backend struct {
	cfg      *Config
	logger   Logger
	logLevel LogLevel

	runtime Runtime
	started bool

	registry    *types.Registry
	functions   map[types.Oid]*Function
	invocations *invocationStack
	state       ExecState
	topCtx      *memctx.Context
}

// New builds a Backend over the given runtime. The JVM is not booted yet;
// the first call does that, so an installation that never calls Java never
// pays for one.
func New(cfg *Config, rt Runtime) (*Backend, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	if rt == nil {
		return nil, errors.New("nil runtime")
	}
	reg, err := types.NewRegistry(cfg.registryConfig(cfg.CastExec))
	if err != nil {
		return nil, err
	}
	top := memctx.New(memctx.Top(), "PLJava")
	b := &Backend{
		cfg:         cfg,
		logger:      cfg.Logger,
		logLevel:    cfg.LogLevel,
		runtime:     rt,
		registry:    reg,
		functions:   make(map[types.Oid]*Function),
		invocations: newInvocationStack(top),
		topCtx:      top,
	}
	return b, nil
}

// Registry exposes the type registry, for UDT registration and the jvm
// package's marshaling.
func (b *Backend) Registry() *types.Registry { return b.registry }

// State reports which side of the bridge has control.
func (b *Backend) State() ExecState { return b.state }

// Started reports whether the JVM has booted.
func (b *Backend) Started() bool { return b.started }

// ensureStarted boots the JVM on the first call through the bridge.
func (b *Backend) ensureStarted(ctx context.Context) error {
	if b.started {
		return nil
	}
	b.log(ctx, LogLevelInfo, "starting JVM", map[string]interface{}{
		"args": b.cfg.VMArguments(),
	})
	if err := b.runtime.Start(ctx, b.cfg); err != nil {
		return errors.Wrap(err, "JVM startup")
	}
	b.started = true
	return nil
}

// enter opens an invocation frame. Entry happens with the bridge idle (the
// outermost call), with control inside the JVM (Java code invoking another
// function directly), or with the server executing SPI work that reaches a
// Java function; the previous state is saved on the frame and restored at
// leave.
func (b *Backend) enter(inExpr bool) *Invocation {
	inv := b.invocations.Push(b.state, inExpr)
	b.state = StateInJava
	return inv
}

// leave closes the frame opened by enter. callErr is the call's outcome,
// used only for logging; leave's own error reports a broken stack
// discipline and trumps everything.
func (b *Backend) leave(inv *Invocation, callErr error) error {
	prev, err := b.invocations.Pop(inv)
	if err != nil {
		return err
	}
	b.state = prev
	if callErr != nil && b.shouldLog(LogLevelDebug) {
		b.log(context.Background(), LogLevelDebug, "call failed", map[string]interface{}{
			"nest": inv.Nest,
			"err":  callErr.Error(),
		})
	}
	return nil
}

// CurrentInvocation returns the innermost frame, or nil outside any call.
func (b *Backend) CurrentInvocation() *Invocation { return b.invocations.Current() }

// CallFunction runs one non-set, non-trigger function call: resolve (or
// reuse) the binding, push a frame, coerce arguments in, call, coerce the
// result out, pop the frame. A nil datum result is SQL NULL.
func (b *Backend) CallFunction(ctx context.Context, spec *FuncSpec, args []types.Datum) (types.Datum, error) {
	if err := b.ensureStarted(ctx); err != nil {
		return nil, err
	}
	f, err := b.FunctionForOid(spec)
	if err != nil {
		return nil, err
	}
	if f.ReturnsSet() {
		return nil, errors.Errorf("%s returns a set, use OpenSet", f.name)
	}

	inv := b.enter(false)
	inv.readonly = f.Readonly()

	d, callErr := f.call(ctx, b.runtime, args)
	if err := b.leave(inv, callErr); err != nil {
		return nil, err
	}
	return d, callErr
}

// Close shuts the JVM down. Refused while any invocation is active.
func (b *Backend) Close(ctx context.Context) error {
	if b.invocations.Depth() > 0 {
		return errors.New("cannot shut down during an invocation")
	}
	if !b.started {
		return nil
	}
	b.log(ctx, LogLevelInfo, "shutting down JVM", nil)
	err := b.runtime.Shutdown(ctx)
	b.started = false
	b.state = StateIdle
	if derr := b.topCtx.Delete(); derr != nil && !errors.Is(derr, memctx.ErrDeleted) && err == nil {
		err = derr
	}
	return err
}
