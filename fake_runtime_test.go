package pljava

import (
	"context"

	"github.com/pkg/errors"
)

// fakeRuntime stands in for the JVM: methods are Go functions registered
// under the exact class/method/signature triple resolution must produce.
type fakeRuntime struct {
	started    bool
	startErr   error
	shutdowns  int
	resolved   []string
	methods    map[string]func(ctx context.Context, args []interface{}) (interface{}, error)
	setRows    map[string][]interface{}
	openSets   []*fakeSet
}

type fakeMethod struct{ key string }

type fakeSet struct {
	rows   []interface{}
	pos    int
	closes int
	nextErr error
}

func newFakeRuntime() *fakeRuntime {
	return &fakeRuntime{
		methods: make(map[string]func(ctx context.Context, args []interface{}) (interface{}, error)),
		setRows: make(map[string][]interface{}),
	}
}

func methodKey(class, name, sig string) string { return class + "." + name + sig }

func (r *fakeRuntime) define(class, name, sig string, fn func(ctx context.Context, args []interface{}) (interface{}, error)) {
	r.methods[methodKey(class, name, sig)] = fn
}

func (r *fakeRuntime) defineSet(class, name, sig string, rows []interface{}) {
	key := methodKey(class, name, sig)
	r.methods[key] = nil
	r.setRows[key] = rows
}

func (r *fakeRuntime) Start(ctx context.Context, cfg *Config) error {
	if r.startErr != nil {
		return r.startErr
	}
	if r.started {
		return errors.New("already started")
	}
	r.started = true
	return nil
}

func (r *fakeRuntime) Resolve(className, methodName, signature string) (Method, error) {
	key := methodKey(className, methodName, signature)
	if _, ok := r.methods[key]; !ok {
		return nil, errors.Errorf("NoSuchMethodError: %s", key)
	}
	r.resolved = append(r.resolved, key)
	return &fakeMethod{key: key}, nil
}

func (r *fakeRuntime) Call(ctx context.Context, m Method, args []interface{}) (interface{}, error) {
	fn := r.methods[m.(*fakeMethod).key]
	if fn == nil {
		return nil, errors.New("not a plain method")
	}
	return fn(ctx, args)
}

func (r *fakeRuntime) OpenSet(ctx context.Context, m Method, args []interface{}) (SetHandle, error) {
	rows, ok := r.setRows[m.(*fakeMethod).key]
	if !ok {
		return nil, errors.New("not a set method")
	}
	s := &fakeSet{rows: rows}
	r.openSets = append(r.openSets, s)
	return s, nil
}

func (r *fakeRuntime) NextOfSet(ctx context.Context, h SetHandle) (interface{}, bool, error) {
	s := h.(*fakeSet)
	if s.nextErr != nil {
		return nil, false, s.nextErr
	}
	if s.pos >= len(s.rows) {
		return nil, false, nil
	}
	v := s.rows[s.pos]
	s.pos++
	return v, true, nil
}

func (r *fakeRuntime) CloseSet(h SetHandle) error {
	h.(*fakeSet).closes++
	return nil
}

func (r *fakeRuntime) Shutdown(ctx context.Context) error {
	r.shutdowns++
	r.started = false
	return nil
}

func newTestBackend(t interface{ Fatalf(string, ...interface{}) }, cfg *Config, rt *fakeRuntime) *Backend {
	b, err := New(cfg, rt)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return b
}
