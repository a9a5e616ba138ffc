package pljava

import (
	"context"

	"github.com/tada/pljava-sub010/memctx"
	"github.com/tada/pljava-sub010/types"
)

// CallInfo is one server entry into the bridge: the function to run plus
// everything the call site supplies, and the state that must survive between
// the calls of a value-per-call scan.
type CallInfo struct {
	Spec *FuncSpec
	Args []types.Datum

	// Trigger carries the trigger call data; required when Spec.IsTrigger.
	Trigger *TriggerData

	// MultiCall is the memory context spanning a set-returning scan, the
	// analog of the multi-call context the executor keeps between fetches.
	// Optional; without it an abandoned scan leaks its Java iterator.
	MultiCall *memctx.Context

	// Scan is the open scan of a set-returning call. Nil on the first call;
	// the handler fills it and the call site hands it back on every fetch.
	Scan *SetScan

	// Row receives the replacement row of a before-row trigger, nil when the
	// trigger suppressed the operation.
	Row *types.Tuple

	// Done is set when a set-returning scan is exhausted.
	Done bool
}

// CallHandler is the single entry point the server-side glue needs: it
// dispatches on the function's shape. Plain calls return the result datum.
// Trigger calls report through ci.Row. Set-returning calls open the scan on
// the first call and return one row per call until ci.Done.
func (b *Backend) CallHandler(ctx context.Context, ci *CallInfo) (types.Datum, error) {
	switch {
	case ci.Spec.IsTrigger:
		row, err := b.CallTrigger(ctx, ci.Spec, ci.Trigger)
		if err != nil {
			return nil, err
		}
		ci.Row = row
		return nil, nil

	case ci.Spec.ReturnsSet:
		if ci.Scan == nil {
			scan, err := b.OpenSet(ctx, ci.Spec, ci.Args, ci.MultiCall)
			if err != nil {
				return nil, err
			}
			ci.Scan = scan
		}
		d, ok, err := ci.Scan.Next(ctx)
		if err != nil {
			return nil, err
		}
		if !ok {
			ci.Done = true
			return nil, nil
		}
		return d, nil

	default:
		return b.CallFunction(ctx, ci.Spec, ci.Args)
	}
}
