// Package memctx models PostgreSQL memory contexts for lifecycle purposes.
//
// Go's garbage collector owns the bytes; what a backend-embedded bridge
// needs from a memory context is its scope: things that must be torn down
// exactly when the corresponding PostgreSQL context is reset or deleted.
// A Context therefore carries ordered hook chains that fire on reset and
// delete, and an optional cache of native-handle-to-guest-object entries
// that is marked stale at the same moments, because the native storage
// backing those handles is about to become invalid.
package memctx

import "github.com/pkg/errors"

// ErrDeleted is returned when a deleted context is used.
var ErrDeleted = errors.New("memctx: context already deleted")

// Context is one node in the context tree. Deleting a context deletes its
// children first; resetting a context deletes its children and runs its own
// reset hooks, after which the context remains usable.
type Context struct {
	name     string
	parent   *Context
	children []*Context

	resetHooks  []func()
	deleteHooks []func()

	cache   *NativeCache
	deleted bool
}

var top = &Context{name: "TopMemoryContext"}

// Top returns the process-lifetime context. It is never reset or deleted;
// registries that must outlive every call and transaction hang off it.
func Top() *Context { return top }

// New creates a child of parent. A nil parent attaches to Top.
func New(parent *Context, name string) *Context {
	if parent == nil {
		parent = top
	}
	c := &Context{name: name, parent: parent}
	parent.children = append(parent.children, c)
	return c
}

func (c *Context) Name() string     { return c.name }
func (c *Context) Parent() *Context { return c.parent }

// Deleted reports whether Delete has run.
func (c *Context) Deleted() bool { return c.deleted }

// OnReset registers f to run when the context is reset or deleted. Hooks
// run in reverse registration order, matching callback chains that are
// pushed onto a context.
func (c *Context) OnReset(f func()) {
	c.resetHooks = append(c.resetHooks, f)
}

// OnDelete registers f to run only when the context is deleted.
func (c *Context) OnDelete(f func()) {
	c.deleteHooks = append(c.deleteHooks, f)
}

// Reset deletes all children, fires the reset chain, and leaves the context
// usable. Reset hooks are consumed: a hook fires at most once.
func (c *Context) Reset() {
	if c.deleted {
		return
	}
	c.deleteChildren()
	c.fireReset()
}

// Delete resets the context, fires the delete chain, and detaches it from
// its parent. Deleting twice returns ErrDeleted; Delete on Top panics.
func (c *Context) Delete() error {
	if c == top {
		panic("memctx: cannot delete TopMemoryContext")
	}
	if c.deleted {
		return ErrDeleted
	}
	c.deleteChildren()
	c.fireReset()
	for i := len(c.deleteHooks) - 1; i >= 0; i-- {
		c.deleteHooks[i]()
	}
	c.deleteHooks = nil
	c.deleted = true
	if c.parent != nil {
		c.parent.unlink(c)
	}
	return nil
}

func (c *Context) deleteChildren() {
	// children Delete themselves out of c.children; iterate over a copy.
	kids := make([]*Context, len(c.children))
	copy(kids, c.children)
	for i := len(kids) - 1; i >= 0; i-- {
		kids[i].Delete()
	}
}

func (c *Context) fireReset() {
	hooks := c.resetHooks
	c.resetHooks = nil
	for i := len(hooks) - 1; i >= 0; i-- {
		hooks[i]()
	}
	if c.cache != nil {
		c.cache.markStale()
		c.cache = nil
	}
}

func (c *Context) unlink(child *Context) {
	for i, k := range c.children {
		if k == child {
			c.children = append(c.children[:i], c.children[i+1:]...)
			return
		}
	}
}
