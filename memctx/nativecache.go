package memctx

// NativeCache maps a native handle (a HeapTuple, Portal, or TupleDesc
// address on the PostgreSQL side) to the guest-runtime object wrapping it,
// so repeated lookups of the same handle yield the same wrapper. The cache
// belongs to exactly one Context; when that context resets or is deleted
// every entry is marked stale and its release hook runs, because the
// storage behind the handle is gone.
type NativeCache struct {
	entries map[uintptr]*cacheEntry
	stale   bool
}

type cacheEntry struct {
	value   interface{}
	release func(interface{})
}

// NativeCache returns the context's cache, creating it on first use. Using
// the cache of a deleted context returns nil.
func (c *Context) NativeCache() *NativeCache {
	if c.deleted {
		return nil
	}
	if c.cache == nil {
		c.cache = &NativeCache{entries: make(map[uintptr]*cacheEntry)}
	}
	return c.cache
}

// Put stores value under handle. release, if non-nil, runs when the entry
// is evicted or the cache goes stale; it receives the stored value and is
// where a weak guest reference gets dropped.
func (nc *NativeCache) Put(handle uintptr, value interface{}, release func(interface{})) {
	if nc.stale {
		return
	}
	if old, ok := nc.entries[handle]; ok && old.release != nil {
		old.release(old.value)
	}
	nc.entries[handle] = &cacheEntry{value: value, release: release}
}

// Get returns the wrapper stored under handle. A stale cache never hits.
func (nc *NativeCache) Get(handle uintptr) (interface{}, bool) {
	if nc.stale {
		return nil, false
	}
	e, ok := nc.entries[handle]
	if !ok {
		return nil, false
	}
	return e.value, true
}

// Remove evicts handle, running its release hook.
func (nc *NativeCache) Remove(handle uintptr) {
	if e, ok := nc.entries[handle]; ok {
		if e.release != nil {
			e.release(e.value)
		}
		delete(nc.entries, handle)
	}
}

// Stale reports whether the owning context has reset since Put.
func (nc *NativeCache) Stale() bool { return nc.stale }

// Len reports live entries.
func (nc *NativeCache) Len() int {
	if nc.stale {
		return 0
	}
	return len(nc.entries)
}

func (nc *NativeCache) markStale() {
	for _, e := range nc.entries {
		if e.release != nil {
			e.release(e.value)
		}
	}
	nc.entries = nil
	nc.stale = true
}
