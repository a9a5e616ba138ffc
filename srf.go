package pljava

import (
	"context"

	"github.com/pkg/errors"

	"github.com/tada/pljava-sub010/memctx"
	"github.com/tada/pljava-sub010/types"
)

// SetScan is one value-per-call scan over a set-returning function. The
// scan outlives the per-row invocations: the first call opens it, every row
// fetch runs in its own frame, and the scan closes exactly once, whether it
// ran to exhaustion, the caller closed it early, or the expression context
// it was opened in was abandoned.
type SetScan struct {
	backend *Backend
	fn      *Function
	handle  SetHandle
	closed  bool
}

// OpenSet starts a scan of a set-returning function. multiCall is the
// memory context spanning the whole scan; its deletion closes the scan, the
// only cleanup an abandoned scan gets.
func (b *Backend) OpenSet(ctx context.Context, spec *FuncSpec, args []types.Datum, multiCall *memctx.Context) (*SetScan, error) {
	if err := b.ensureStarted(ctx); err != nil {
		return nil, err
	}
	f, err := b.FunctionForOid(spec)
	if err != nil {
		return nil, err
	}
	if !f.ReturnsSet() {
		return nil, errors.Errorf("%s does not return a set", f.name)
	}

	inv := b.enter(true)
	inv.readonly = f.Readonly()
	scan, callErr := b.openSetInFrame(ctx, f, args)
	if err := b.leave(inv, callErr); err != nil {
		return nil, err
	}
	if callErr != nil {
		return nil, callErr
	}

	if multiCall != nil {
		multiCall.OnDelete(func() { _ = scan.Close() })
	}
	return scan, nil
}

func (b *Backend) openSetInFrame(ctx context.Context, f *Function, args []types.Datum) (*SetScan, error) {
	in, err := f.coerceArgs(args)
	if err != nil {
		return nil, err
	}
	h, err := b.runtime.OpenSet(ctx, f.method, in)
	if err != nil {
		return nil, err
	}
	return &SetScan{backend: b, fn: f, handle: h}, nil
}

// Next fetches one row. ok is false when the set is exhausted, at which
// point the scan has closed itself.
func (s *SetScan) Next(ctx context.Context) (d types.Datum, ok bool, err error) {
	if s.closed {
		return nil, false, &ErrorData{
			Severity: "ERROR",
			Code:     CodeSRFProtocolViolated,
			Message:  "value-per-call fetch on a closed set scan",
		}
	}

	b := s.backend
	inv := b.enter(true)
	inv.readonly = s.fn.Readonly()
	d, ok, callErr := s.nextInFrame(ctx)
	if err := b.leave(inv, callErr); err != nil {
		return nil, false, err
	}
	return d, ok, callErr
}

func (s *SetScan) nextInFrame(ctx context.Context) (types.Datum, bool, error) {
	v, ok, err := s.backend.runtime.NextOfSet(ctx, s.handle)
	if err != nil {
		_ = s.Close()
		return nil, false, err
	}
	if !ok {
		return nil, false, s.Close()
	}
	if v == nil {
		return nil, true, nil
	}
	d, err := s.fn.retType.CoerceObject(v)
	if err != nil {
		_ = s.Close()
		return nil, false, err
	}
	return d, true, nil
}

// Close releases the scan's Java-side resources. Safe to call any number of
// times from any of the cleanup paths; only the first call reaches the
// runtime.
func (s *SetScan) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.backend.runtime.CloseSet(s.handle)
}
