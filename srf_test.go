package pljava

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tada/pljava-sub010/memctx"
	"github.com/tada/pljava-sub010/types"
)

func rowsSpec() *FuncSpec {
	return &FuncSpec{
		Oid:        types.Oid(51001),
		Name:       "java_rows",
		AS:         "com.example.Gen.rows",
		ReturnOid:  types.TextOID,
		ReturnsSet: true,
	}
}

func setBackend(t *testing.T, rows []interface{}) (*Backend, *fakeRuntime) {
	rt := newFakeRuntime()
	rt.defineSet("com.example.Gen", "rows", "()Ljava/lang/Object;", rows)
	return newTestBackend(t, nil, rt), rt
}

func TestSetScanValuePerCall(t *testing.T) {
	b, rt := setBackend(t, []interface{}{"one", "two"})

	scan, err := b.OpenSet(context.Background(), rowsSpec(), nil, nil)
	require.NoError(t, err)

	d, ok, err := scan.Next(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, types.Datum("one"), d)

	d, ok, err = scan.Next(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, types.Datum("two"), d)

	_, ok, err = scan.Next(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)

	// Exhaustion closed the scan; every later fetch is a protocol error.
	_, _, err = scan.Next(context.Background())
	require.Error(t, err)
	var data *ErrorData
	require.ErrorAs(t, err, &data)
	assert.Equal(t, CodeSRFProtocolViolated, data.Code)

	require.Len(t, rt.openSets, 1)
	assert.Equal(t, 1, rt.openSets[0].closes)
	assert.Equal(t, StateIdle, b.State())
}

func TestSetScanNullRow(t *testing.T) {
	b, _ := setBackend(t, []interface{}{nil, "x"})

	scan, err := b.OpenSet(context.Background(), rowsSpec(), nil, nil)
	require.NoError(t, err)

	d, ok, err := scan.Next(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Nil(t, d)

	d, ok, err = scan.Next(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, types.Datum("x"), d)
}

func TestSetScanCloseIsIdempotent(t *testing.T) {
	b, rt := setBackend(t, []interface{}{"one"})

	scan, err := b.OpenSet(context.Background(), rowsSpec(), nil, nil)
	require.NoError(t, err)

	require.NoError(t, scan.Close())
	require.NoError(t, scan.Close())
	assert.Equal(t, 1, rt.openSets[0].closes)
}

func TestAbandonedScanClosedByContextDeletion(t *testing.T) {
	b, rt := setBackend(t, []interface{}{"one", "two"})

	multiCall := memctx.New(memctx.Top(), "ExprContext")
	scan, err := b.OpenSet(context.Background(), rowsSpec(), nil, multiCall)
	require.NoError(t, err)

	_, ok, err := scan.Next(context.Background())
	require.NoError(t, err)
	require.True(t, ok)

	// The caller walks away without draining the scan; the expression
	// context teardown is the only cleanup that runs.
	require.NoError(t, multiCall.Delete())
	assert.Equal(t, 1, rt.openSets[0].closes)
	assert.True(t, scan.closed)
}

func TestSetScanErrorClosesScan(t *testing.T) {
	b, rt := setBackend(t, []interface{}{"one"})

	scan, err := b.OpenSet(context.Background(), rowsSpec(), nil, nil)
	require.NoError(t, err)
	rt.openSets[0].nextErr = &JavaError{ClassName: "java.lang.RuntimeException", Message: "boom"}

	_, _, err = scan.Next(context.Background())
	require.Error(t, err)
	assert.Equal(t, 1, rt.openSets[0].closes)
	assert.Equal(t, StateIdle, b.State())
}

func TestOpenSetRejectsScalarFunction(t *testing.T) {
	rt := newFakeRuntime()
	rt.define("com.example.Math", "add", "(II)I", func(context.Context, []interface{}) (interface{}, error) {
		return int32(0), nil
	})
	rt.defineSet("com.example.Gen", "rows", "()Ljava/lang/Object;", nil)
	b := newTestBackend(t, nil, rt)

	_, err := b.OpenSet(context.Background(), addSpec(), []types.Datum{{0, 0, 0, 0}, {0, 0, 0, 0}}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not return a set")

	_, err = b.CallFunction(context.Background(), rowsSpec(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "returns a set")
}
