package memctx_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tada/pljava-sub010/memctx"
)

func TestResetRunsHooksInReverseOrderOnce(t *testing.T) {
	ctx := memctx.New(nil, "ExprContext")
	defer ctx.Delete()

	var order []int
	ctx.OnReset(func() { order = append(order, 1) })
	ctx.OnReset(func() { order = append(order, 2) })

	ctx.Reset()
	require.Equal(t, []int{2, 1}, order)

	// Hooks are consumed; a second reset must not fire them again.
	ctx.Reset()
	assert.Equal(t, []int{2, 1}, order)
}

func TestDeleteCascadesChildFirst(t *testing.T) {
	parent := memctx.New(nil, "PortalContext")
	child := memctx.New(parent, "PerTupleContext")

	var order []string
	child.OnDelete(func() { order = append(order, "child") })
	parent.OnDelete(func() { order = append(order, "parent") })

	parent.Delete()
	require.Equal(t, []string{"child", "parent"}, order)
	assert.True(t, child.Deleted())
	assert.True(t, parent.Deleted())
}

func TestResetDeletesChildrenButNotSelf(t *testing.T) {
	parent := memctx.New(nil, "PortalContext")
	defer parent.Delete()
	child := memctx.New(parent, "PerTupleContext")

	parent.Reset()
	assert.True(t, child.Deleted())
	assert.False(t, parent.Deleted())
}

func TestDeleteIsIdempotent(t *testing.T) {
	ctx := memctx.New(nil, "scratch")
	fired := 0
	ctx.OnDelete(func() { fired++ })
	require.NoError(t, ctx.Delete())
	assert.ErrorIs(t, ctx.Delete(), memctx.ErrDeleted)
	assert.Equal(t, 1, fired)
}

func TestNativeCacheReturnsSameWrapper(t *testing.T) {
	ctx := memctx.New(nil, "TupleContext")
	defer ctx.Delete()

	nc := ctx.NativeCache()
	nc.Put(0xbeef, "wrapper", nil)

	got, ok := nc.Get(0xbeef)
	require.True(t, ok)
	assert.Equal(t, "wrapper", got)
	// Same cache object on re-lookup.
	assert.Equal(t, nc, ctx.NativeCache())
}

func TestNativeCacheGoesStaleOnReset(t *testing.T) {
	ctx := memctx.New(nil, "TupleContext")
	defer ctx.Delete()

	released := []interface{}{}
	nc := ctx.NativeCache()
	nc.Put(1, "a", func(v interface{}) { released = append(released, v) })
	nc.Put(2, "b", func(v interface{}) { released = append(released, v) })

	ctx.Reset()

	assert.True(t, nc.Stale())
	assert.Equal(t, 0, nc.Len())
	assert.Len(t, released, 2)
	_, ok := nc.Get(1)
	assert.False(t, ok)

	// After reset the context hands out a fresh cache.
	fresh := ctx.NativeCache()
	require.NotNil(t, fresh)
	assert.False(t, fresh.Stale())
}

func TestNativeCachePutReplaceReleasesOld(t *testing.T) {
	ctx := memctx.New(nil, "TupleContext")
	defer ctx.Delete()

	var released interface{}
	nc := ctx.NativeCache()
	nc.Put(7, "old", func(v interface{}) { released = v })
	nc.Put(7, "new", nil)

	assert.Equal(t, "old", released)
	got, _ := nc.Get(7)
	assert.Equal(t, "new", got)
}
