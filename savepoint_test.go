package pljava

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tada/pljava-sub010/types"
)

func TestSavepointOutsideInvocation(t *testing.T) {
	rt := newFakeRuntime()
	b := newTestBackend(t, nil, rt)
	_, err := b.SetSavepoint(context.Background(), "sp1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "outside an invocation")
}

func TestSavepointRollbackInvalidatesScope(t *testing.T) {
	rt := newFakeRuntime()
	b := newTestBackend(t, nil, rt)

	var released []interface{}
	rt.define("com.example.Tx", "work", "()V", func(ctx context.Context, _ []interface{}) (interface{}, error) {
		sp, err := b.SetSavepoint(ctx, "sp1")
		require.NoError(t, err)

		// A wrapper pinned under the savepoint's scope must go away with it.
		sp.Context.NativeCache().Put(0x1000, "wrapper", func(v interface{}) {
			released = append(released, v)
		})

		require.NoError(t, sp.Rollback())
		assert.True(t, sp.Context.Deleted())

		// The level is closed now, both ways.
		assert.Error(t, sp.Rollback())
		assert.Error(t, sp.Release())
		return nil, nil
	})

	_, err := b.CallFunction(context.Background(), &FuncSpec{
		Oid: 54001, Name: "tx_work", AS: "com.example.Tx.work", ReturnOid: types.VoidOID,
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, []interface{}{"wrapper"}, released)
}

func TestSavepointReleaseKeepsScopeUntilInvocationPops(t *testing.T) {
	rt := newFakeRuntime()
	b := newTestBackend(t, nil, rt)

	var released []interface{}
	rt.define("com.example.Tx", "work", "()V", func(ctx context.Context, _ []interface{}) (interface{}, error) {
		sp, err := b.SetSavepoint(ctx, "sp1")
		require.NoError(t, err)
		sp.Context.NativeCache().Put(0x2000, "wrapper", func(v interface{}) {
			released = append(released, v)
		})
		require.NoError(t, sp.Release())
		// Committed: the wrapper survives the savepoint.
		assert.Empty(t, released)
		return nil, nil
	})

	_, err := b.CallFunction(context.Background(), &FuncSpec{
		Oid: 54002, Name: "tx_work", AS: "com.example.Tx.work", ReturnOid: types.VoidOID,
	}, nil)
	require.NoError(t, err)
	// The invocation's teardown reclaims it.
	assert.Equal(t, []interface{}{"wrapper"}, released)
}

func TestLingeringSavepointWarnsAndFollowsPolicy(t *testing.T) {
	var warnings []string
	logger := LoggerFunc(func(_ context.Context, lvl LogLevel, msg string, _ map[string]interface{}) {
		if lvl == LogLevelWarn {
			warnings = append(warnings, msg)
		}
	})

	rt := newFakeRuntime()
	b := newTestBackend(t, &Config{Logger: logger, LogLevel: LogLevelWarn}, rt)

	var sp *Savepoint
	rt.define("com.example.Tx", "leaky", "()V", func(ctx context.Context, _ []interface{}) (interface{}, error) {
		var err error
		sp, err = b.SetSavepoint(ctx, "forgotten")
		return nil, err
	})

	_, err := b.CallFunction(context.Background(), &FuncSpec{
		Oid: 54003, Name: "leaky", AS: "com.example.Tx.leaky", ReturnOid: types.VoidOID,
	}, nil)
	require.NoError(t, err)

	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "rolling back savepoint")
	assert.True(t, sp.Context.Deleted())
}
