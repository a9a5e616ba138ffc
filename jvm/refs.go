package jvm

import (
	"github.com/pkg/errors"
	"github.com/timob/jnigi"
)

// frame collects the local references created while marshaling one call and
// releases them together. JNI only guarantees a small number of local ref
// slots per native frame, and a wide row can burn through them quickly.
type frame struct {
	env  *jnigi.Env
	refs []*jnigi.ObjectRef
}

func newFrame(env *jnigi.Env) *frame {
	return &frame{env: env}
}

// track registers a local reference for release and returns it unchanged.
func (f *frame) track(ref *jnigi.ObjectRef) *jnigi.ObjectRef {
	if ref != nil && !ref.IsNil() {
		f.refs = append(f.refs, ref)
	}
	return ref
}

func (f *frame) Close() {
	for i := len(f.refs) - 1; i >= 0; i-- {
		f.env.DeleteLocalRef(f.refs[i])
	}
	f.refs = nil
}

// javaString builds a java.lang.String from the Go string, going through the
// UTF-8 byte[] constructor so the content survives any JNI modified-UTF-8
// quirks.
func (m *Machine) javaString(fr *frame, s string) (*jnigi.ObjectRef, error) {
	m.env.PrecalculateSignature("([BLjava/lang/String;)V")
	ref, err := m.env.NewObject("java/lang/String", []byte(s), m.env.GetUTF8String())
	if err != nil {
		return nil, errors.Wrap(err, "new String")
	}
	return fr.track(ref), nil
}

// goString reads a java.lang.String back out through getBytes(charset).
func (m *Machine) goString(fr *frame, ref *jnigi.ObjectRef) (string, error) {
	m.env.PrecalculateSignature("(Ljava/lang/String;)[B")
	v, err := ref.CallMethod(m.env, "getBytes", Byte|Array, m.env.GetUTF8String())
	if err != nil {
		return "", errors.Wrap(err, "String.getBytes")
	}
	return string(v.([]byte)), nil
}
