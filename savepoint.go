package pljava

import (
	"context"

	"github.com/pkg/errors"

	"github.com/tada/pljava-sub010/memctx"
)

// Savepoint is the bridge-side view of one subtransaction level opened by
// Java code. Its memory context scopes everything cached while the level was
// open: rolling the level back deletes the context, which invalidates every
// wrapper pinned under it, because the server storage those wrappers point
// at was just undone.
//
// The server-side SAVEPOINT itself travels through SPI like any other
// statement; this type only tracks the lifecycle consequences.
type Savepoint struct {
	Name    string
	Context *memctx.Context

	backend *Backend
	inv     *Invocation
	done    bool
}

// SetSavepoint opens a subtransaction level inside the current invocation.
// A savepoint cannot outlive the function that set it: one still open when
// the invocation pops is closed there, released or rolled back per
// Config.ReleaseLingeringSavepoints, with a warning either way.
func (b *Backend) SetSavepoint(ctx context.Context, name string) (*Savepoint, error) {
	inv := b.invocations.Current()
	if inv == nil {
		return nil, errors.New("savepoint outside an invocation")
	}
	if inv.ErrorOccurred {
		return nil, errors.New("savepoint in a failed invocation")
	}
	if b.state != StateInJava {
		return nil, errors.New("savepoint entry while not awaiting a return from Java")
	}

	sp := &Savepoint{
		Name:    name,
		Context: memctx.New(inv.Context, "Subtransaction"),
		backend: b,
		inv:     inv,
	}
	inv.OnPop(func() { sp.closeLingering(ctx) })
	return sp, nil
}

// Release commits the level. Wrappers cached under its context stay valid;
// they are torn down with the enclosing invocation as usual.
func (sp *Savepoint) Release() error {
	if sp.done {
		return errors.Errorf("savepoint %q already closed", sp.Name)
	}
	sp.done = true
	return nil
}

// Rollback aborts the level and invalidates everything cached under it.
func (sp *Savepoint) Rollback() error {
	if sp.done {
		return errors.Errorf("savepoint %q already closed", sp.Name)
	}
	sp.done = true
	return sp.Context.Delete()
}

func (sp *Savepoint) closeLingering(ctx context.Context) {
	if sp.done {
		return
	}
	b := sp.backend
	if b.cfg.ReleaseLingeringSavepoints {
		b.log(ctx, LogLevelWarn, "releasing savepoint still open at function exit",
			map[string]interface{}{"savepoint": sp.Name})
		_ = sp.Release()
		return
	}
	b.log(ctx, LogLevelWarn, "rolling back savepoint still open at function exit",
		map[string]interface{}{"savepoint": sp.Name})
	_ = sp.Rollback()
}
