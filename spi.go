package pljava

import (
	"context"

	"github.com/pkg/errors"

	"github.com/tada/pljava-sub010/types"
)

// SPIResult is the outcome of one statement executed on behalf of Java
// code: the rows (for a query), their descriptor, and the processed count.
type SPIResult struct {
	Desc      *types.TupleDesc
	Rows      [][]types.Datum
	Processed uint64
}

// SPIExecutor runs statements against the server on behalf of Java code.
// The host wires the real server executor in; tests wire fakes. An executor
// failure that is a server error must surface as *ErrorData (or an error
// wrapping one) so the bridge can apply its poisoning and re-throw rules.
type SPIExecutor interface {
	Execute(ctx context.Context, sql string, args []types.Datum, readonly bool, limit int64) (*SPIResult, error)
}

// ExecuteSQL runs a statement for the Java code of the current invocation.
// It is only legal inside an invocation, and never after a server error has
// poisoned the frame: the Java code must let that error propagate out
// before anything else may touch the server.
//
// A server error is recorded on the frame and returned as *ServerError, the
// value that must resurface unchanged if the Java code re-throws it.
func (b *Backend) ExecuteSQL(ctx context.Context, sql string, args []types.Datum, limit int64) (*SPIResult, error) {
	inv := b.invocations.Current()
	if inv == nil {
		return nil, errors.New("SPI call outside an invocation")
	}
	if inv.ErrorOccurred {
		return nil, &ErrorData{
			Severity: "ERROR",
			Code:     CodeInternalError,
			Message:  "SPI call in an invocation poisoned by an earlier error",
		}
	}
	if b.state != StateInJava {
		return nil, &ErrorData{
			Severity: "ERROR",
			Code:     CodeInternalError,
			Message:  "SPI entry while not awaiting a return from Java",
		}
	}
	if b.cfg.SPI == nil {
		return nil, errors.New("no SPI executor configured")
	}

	// Control is back on the server side for the duration of the statement;
	// a function the statement reaches re-enters through the call handler
	// with this state saved on its frame.
	prev := b.state
	b.state = StateInServer
	res, err := b.cfg.SPI.Execute(ctx, sql, args, inv.Readonly(), limit)
	b.state = prev
	if err != nil {
		var data *ErrorData
		if errors.As(err, &data) {
			inv.ErrorOccurred = true
			return nil, &ServerError{Data: data}
		}
		return nil, err
	}
	return res, nil
}
