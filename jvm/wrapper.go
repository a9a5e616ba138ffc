package jvm

import (
	"github.com/pkg/errors"
	"github.com/timob/jnigi"

	"github.com/tada/pljava-sub010/memctx"
)

// WrapperFor returns the Java wrapper pinned for a server-side handle (a
// HeapTuple, Portal or TupleDesc address), building and caching it on first
// lookup. The wrapper is held by a global reference whose lifetime is the
// owning memory context: when mc resets or is deleted the entry's release
// hook drops the reference, because the handle's backing storage is gone and
// the wrapper must never be handed out again.
func (m *Machine) WrapperFor(mc *memctx.Context, handle uintptr, build func() (*jnigi.ObjectRef, error)) (*jnigi.ObjectRef, error) {
	if m.env == nil {
		return nil, errors.New("jvm: not started")
	}
	nc := mc.NativeCache()
	if nc == nil {
		return nil, errors.Errorf("wrapper lookup for %#x in a deleted context", handle)
	}
	if v, ok := nc.Get(handle); ok {
		return v.(*jnigi.ObjectRef), nil
	}

	local, err := build()
	if err != nil {
		return nil, err
	}
	global := m.globalRef(local)
	m.env.DeleteLocalRef(local)
	nc.Put(handle, global, func(v interface{}) {
		m.dropGlobalRef(v.(*jnigi.ObjectRef))
	})
	return global, nil
}

// ReleaseWrapper evicts one handle early, for callers that know the handle
// died before its context did.
func (m *Machine) ReleaseWrapper(mc *memctx.Context, handle uintptr) {
	if nc := mc.NativeCache(); nc != nil {
		nc.Remove(handle)
	}
}
