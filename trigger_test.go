package pljava

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tada/pljava-sub010/types"
)

func moddatetimeSpec() *FuncSpec {
	return &FuncSpec{
		Oid:       53001,
		Name:      "moddatetime",
		AS:        "com.example.Triggers.moddatetime",
		IsTrigger: true,
	}
}

func usernameDesc() *types.TupleDesc {
	return &types.TupleDesc{Attrs: []types.Attr{
		{Name: "id", TypeOid: types.Int4OID},
		{Name: "username", TypeOid: types.TextOID},
	}}
}

func TestBeforeRowTriggerReturnsModifiedNew(t *testing.T) {
	rt := newFakeRuntime()
	b := newTestBackend(t, nil, rt)

	rt.define("com.example.Triggers", "moddatetime", "(Lorg/postgresql/pljava/TriggerData;)V",
		func(_ context.Context, args []interface{}) (interface{}, error) {
			td := args[0].(*TriggerData)
			assert.Equal(t, TriggerUpdate, td.Event)
			assert.Equal(t, []string{"username"}, td.Args)
			td.New.Values[1] = "postgres"
			return nil, nil
		})

	td := &TriggerData{
		Name: "upd_username", SchemaName: "public", TableName: "users",
		Event: TriggerUpdate, Timing: TriggerBefore, PerRow: true,
		Args: []string{"username"},
		Old:  &types.Tuple{Desc: usernameDesc(), Values: []interface{}{int32(7), "admin"}},
		New:  &types.Tuple{Desc: usernameDesc(), Values: []interface{}{int32(7), "admin"}},
	}
	row, err := b.CallTrigger(context.Background(), moddatetimeSpec(), td)
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Equal(t, "postgres", row.Values[1])
	assert.Equal(t, StateIdle, b.State())
}

func TestSuppressedTriggerReturnsNoRow(t *testing.T) {
	rt := newFakeRuntime()
	b := newTestBackend(t, nil, rt)

	rt.define("com.example.Triggers", "moddatetime", "(Lorg/postgresql/pljava/TriggerData;)V",
		func(_ context.Context, args []interface{}) (interface{}, error) {
			args[0].(*TriggerData).Suppressed = true
			return nil, nil
		})

	td := &TriggerData{
		Name: "veto", SchemaName: "public", TableName: "users",
		Event: TriggerInsert, Timing: TriggerBefore, PerRow: true,
		New: &types.Tuple{Desc: usernameDesc(), Values: []interface{}{int32(1), "x"}},
	}
	row, err := b.CallTrigger(context.Background(), moddatetimeSpec(), td)
	require.NoError(t, err)
	assert.Nil(t, row)
}

func TestAfterRowTriggerReturnsNoRow(t *testing.T) {
	rt := newFakeRuntime()
	b := newTestBackend(t, nil, rt)

	called := false
	rt.define("com.example.Triggers", "moddatetime", "(Lorg/postgresql/pljava/TriggerData;)V",
		func(_ context.Context, args []interface{}) (interface{}, error) {
			called = true
			return nil, nil
		})

	td := &TriggerData{
		Name: "audit", SchemaName: "public", TableName: "users",
		Event: TriggerDelete, Timing: TriggerAfter, PerRow: true,
		Old: &types.Tuple{Desc: usernameDesc(), Values: []interface{}{int32(1), "x"}},
	}
	row, err := b.CallTrigger(context.Background(), moddatetimeSpec(), td)
	require.NoError(t, err)
	assert.Nil(t, row)
	assert.True(t, called)
}

func TestCallTriggerRejectsPlainFunction(t *testing.T) {
	rt := newFakeRuntime()
	b := newTestBackend(t, nil, rt)

	spec := &FuncSpec{Oid: 53002, Name: "add", AS: "com.example.Math.add", ReturnOid: types.Int4OID}
	_, err := b.CallTrigger(context.Background(), spec, &TriggerData{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a trigger function")
}
