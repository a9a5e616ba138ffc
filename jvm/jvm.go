// Package jvm is the JNI-backed implementation of the bridge runtime. It is
// the only package that touches jnigi; everything above it works in terms of
// Go values and the Runtime interface, which is what keeps the upper layers
// testable without a JVM in the process.
//
// The package assumes the companion jar (org.postgresql.pljava.*) is on the
// class path assembled by Config.VMArguments: row and trigger values cross
// the boundary through its SingleRowWriter and TriggerData classes.
package jvm

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/timob/jnigi"

	pljava "github.com/tada/pljava-sub010"
)

// Machine drives one in-process JVM. A Machine is not safe for concurrent
// use: the server calls functions from a single backend thread, and JNI env
// pointers are thread-bound anyway.
type Machine struct {
	jvm *jnigi.JVM
	env *jnigi.Env
	cfg *pljava.Config

	mu      sync.Mutex
	pending *pljava.ServerError

	globals []*jnigi.ObjectRef
}

// New returns a Machine with no JVM yet; Start boots it.
func New() *Machine {
	return &Machine{}
}

var _ pljava.Runtime = (*Machine)(nil)

// Start creates the JVM with the option list assembled from cfg and gates on
// the version it reports. HotSpot allows a single JVM per process for its
// whole lifetime, so a second Start is always an error.
func (m *Machine) Start(ctx context.Context, cfg *pljava.Config) error {
	if m.jvm != nil {
		return errors.New("jvm: already started")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	vm, env, err := jnigi.CreateJVM(jnigi.NewJVMInitArgs(false, true, jnigi.DEFAULT_VERSION, cfg.VMArguments()))
	if err != nil {
		return errors.Wrap(err, "jvm: create")
	}
	m.jvm = vm
	m.env = env
	m.cfg = cfg

	version, err := m.systemProperty("java.version")
	if err != nil {
		return errors.Wrap(err, "jvm: read java.version")
	}
	if err := cfg.CheckJavaVersion(version); err != nil {
		return err
	}
	return nil
}

// Shutdown releases every reference this Machine holds and detaches from the
// JVM. The JVM itself stays resident: HotSpot cannot be unloaded once
// created, and DestroyJavaVM would stall the backend on non-daemon threads,
// so teardown here means "stop using it", not "unload it".
func (m *Machine) Shutdown(ctx context.Context) error {
	if m.jvm == nil {
		return nil
	}

	done := make(chan error, 1)
	go func() {
		for _, ref := range m.globals {
			m.env.DeleteGlobalRef(ref)
		}
		m.globals = nil
		done <- m.jvm.DetachCurrentThread()
	}()

	select {
	case err := <-done:
		m.jvm = nil
		m.env = nil
		return err
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), "jvm: shutdown did not finish")
	}
}

// OnServerError records a server error raised while Java code was on the
// stack. The Java side sees it as a ServerException; when that exception
// unwinds back across the boundary the recorded error is what resurfaces,
// by identity, instead of a reconstruction from the exception text.
func (m *Machine) OnServerError(se *pljava.ServerError) {
	m.mu.Lock()
	m.pending = se
	m.mu.Unlock()
}

func (m *Machine) takePendingServerError() *pljava.ServerError {
	m.mu.Lock()
	se := m.pending
	m.pending = nil
	m.mu.Unlock()
	return se
}

func (m *Machine) globalRef(ref *jnigi.ObjectRef) *jnigi.ObjectRef {
	g := m.env.NewGlobalRef(ref)
	m.globals = append(m.globals, g)
	return g
}

func (m *Machine) dropGlobalRef(g *jnigi.ObjectRef) {
	m.env.DeleteGlobalRef(g)
	for i, r := range m.globals {
		if r == g {
			m.globals = append(m.globals[:i], m.globals[i+1:]...)
			return
		}
	}
}

func (m *Machine) systemProperty(name string) (string, error) {
	fr := newFrame(m.env)
	defer fr.Close()

	jname, err := m.javaString(fr, name)
	if err != nil {
		return "", err
	}
	v, err := m.env.CallStaticMethod("java/lang/System", "getProperty", "java/lang/String", jname)
	if err != nil {
		return "", err
	}
	ref := fr.track(v.(*jnigi.ObjectRef))
	if ref.IsNil() {
		return "", errors.Errorf("system property %s is unset", name)
	}
	return m.goString(fr, ref)
}
