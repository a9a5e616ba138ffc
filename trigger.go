package pljava

import (
	"context"

	"github.com/pkg/errors"

	"github.com/tada/pljava-sub010/types"
)

// TriggerEvent is the statement kind that fired a trigger.
type TriggerEvent int

const (
	TriggerInsert TriggerEvent = iota
	TriggerUpdate
	TriggerDelete
	TriggerTruncate
)

// TriggerTiming is when the trigger fired relative to the operation.
type TriggerTiming int

const (
	TriggerBefore TriggerTiming = iota
	TriggerAfter
	TriggerInsteadOf
)

// TriggerData is the Go-side view of the server's trigger call data. The
// jvm package marshals it into the TriggerData object the Java method
// receives.
type TriggerData struct {
	Name       string
	SchemaName string
	TableName  string
	Event      TriggerEvent
	Timing     TriggerTiming
	PerRow     bool
	Args       []string

	// Old and New are the row images where the event provides them: Old for
	// UPDATE and DELETE, New for INSERT and UPDATE, row-level only.
	Old *types.Tuple
	New *types.Tuple

	// Suppressed is set by the runtime when the Java code asked for the
	// operation to be skipped. Only meaningful for before-row triggers.
	Suppressed bool
}

const triggerDataSig = "Lorg/postgresql/pljava/TriggerData;"

// resolveTrigger binds the fixed trigger method shape: the method takes the
// trigger data object and returns nothing, modifying the replacement row
// through the data object.
func (b *Backend) resolveTrigger(f *Function) (*Function, error) {
	f.signature = "(" + triggerDataSig + ")V"
	m, err := b.runtime.Resolve(f.className, f.methodName, f.signature)
	if err != nil {
		return nil, errors.Wrapf(err, "no trigger method %s.%s", f.className, f.methodName)
	}
	f.method = m
	return f, nil
}

// CallTrigger fires a trigger function. The returned tuple is the row the
// operation should proceed with for a before-row trigger: td.New (possibly
// modified by the Java code), or nil when the Java code suppressed the
// operation. After-row and statement triggers return nil.
func (b *Backend) CallTrigger(ctx context.Context, spec *FuncSpec, td *TriggerData) (*types.Tuple, error) {
	if !spec.IsTrigger {
		return nil, errors.Errorf("%s is not a trigger function", spec.Name)
	}
	if err := b.ensureStarted(ctx); err != nil {
		return nil, err
	}
	f, err := b.FunctionForOid(spec)
	if err != nil {
		return nil, err
	}

	inv := b.enter(false)
	row, callErr := b.callTriggerInFrame(ctx, f, td)
	if err := b.leave(inv, callErr); err != nil {
		return nil, err
	}
	return row, callErr
}

func (b *Backend) callTriggerInFrame(ctx context.Context, f *Function, td *TriggerData) (*types.Tuple, error) {
	_, err := b.runtime.Call(ctx, f.method, []interface{}{td})
	if err != nil {
		return nil, err
	}
	if td.Timing == TriggerBefore && td.PerRow {
		if td.Suppressed {
			return nil, nil
		}
		return td.New, nil
	}
	return nil, nil
}
