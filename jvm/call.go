package jvm

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"github.com/timob/jnigi"

	pljava "github.com/tada/pljava-sub010"
)

// boundMethod is the resolved form of one static entry point: the class in
// slash notation plus the verified JNI descriptor, split once so calls do
// not reparse it.
type boundMethod struct {
	class  string
	name   string
	sig    string
	params []string
	ret    string
}

// Resolve verifies through reflection that className has a static method of
// the given name whose descriptor matches signature exactly, mirroring the
// JVM's own linkage failure when it does not.
func (m *Machine) Resolve(className, methodName, signature string) (pljava.Method, error) {
	params, ret, err := splitSignature(signature)
	if err != nil {
		return nil, err
	}

	fr := newFrame(m.env)
	defer fr.Close()

	cls, err := m.classForName(fr, className)
	if err != nil {
		return nil, err
	}
	methodsRef, err := cls.CallMethod(m.env, "getDeclaredMethods", jnigi.ObjectArrayType("java/lang/reflect/Method"))
	if err != nil {
		return nil, errors.Wrapf(err, "reflect methods of %s", className)
	}
	arr := fr.track(methodsRef.(*jnigi.ObjectRef))

	nameSeen := false
	for _, mref := range m.env.FromObjectArray(arr) {
		fr.track(mref)
		name, err := m.reflectString(fr, mref, "getName")
		if err != nil {
			return nil, err
		}
		if name != methodName {
			continue
		}
		nameSeen = true
		desc, err := m.descriptorOf(fr, mref)
		if err != nil {
			return nil, err
		}
		if desc != signature {
			continue
		}
		static, err := m.isStatic(fr, mref)
		if err != nil {
			return nil, err
		}
		if !static {
			return nil, errors.Errorf("%s.%s%s is not static", className, methodName, signature)
		}
		return &boundMethod{
			class:  strings.ReplaceAll(className, ".", "/"),
			name:   methodName,
			sig:    signature,
			params: params,
			ret:    ret,
		}, nil
	}
	if nameSeen {
		return nil, errors.Errorf("NoSuchMethodError: %s.%s%s (name found, descriptor differs)",
			className, methodName, signature)
	}
	return nil, errors.Errorf("NoSuchMethodError: %s.%s%s", className, methodName, signature)
}

func (m *Machine) classForName(fr *frame, className string) (*jnigi.ObjectRef, error) {
	jname, err := m.javaString(fr, className)
	if err != nil {
		return nil, err
	}
	v, err := m.env.CallStaticMethod("java/lang/Class", "forName", "java/lang/Class", jname)
	if err != nil {
		return nil, errors.Errorf("ClassNotFoundException: %s", className)
	}
	return fr.track(v.(*jnigi.ObjectRef)), nil
}

// descriptorOf rebuilds a reflect.Method's JNI descriptor from its parameter
// and return classes.
func (m *Machine) descriptorOf(fr *frame, mref *jnigi.ObjectRef) (string, error) {
	pv, err := mref.CallMethod(m.env, "getParameterTypes", jnigi.ObjectArrayType("java/lang/Class"))
	if err != nil {
		return "", err
	}
	parr := fr.track(pv.(*jnigi.ObjectRef))

	var sb strings.Builder
	sb.WriteByte('(')
	for _, pcls := range m.env.FromObjectArray(parr) {
		fr.track(pcls)
		name, err := m.reflectString(fr, pcls, "getName")
		if err != nil {
			return "", err
		}
		sb.WriteString(descriptorFromClassName(name))
	}
	sb.WriteByte(')')

	rv, err := mref.CallMethod(m.env, "getReturnType", "java/lang/Class")
	if err != nil {
		return "", err
	}
	rcls := fr.track(rv.(*jnigi.ObjectRef))
	name, err := m.reflectString(fr, rcls, "getName")
	if err != nil {
		return "", err
	}
	sb.WriteString(descriptorFromClassName(name))
	return sb.String(), nil
}

func (m *Machine) reflectString(fr *frame, ref *jnigi.ObjectRef, method string) (string, error) {
	v, err := ref.CallMethod(m.env, method, "java/lang/String")
	if err != nil {
		return "", err
	}
	return m.goString(fr, fr.track(v.(*jnigi.ObjectRef)))
}

func (m *Machine) isStatic(fr *frame, mref *jnigi.ObjectRef) (bool, error) {
	mods, err := mref.CallMethod(m.env, "getModifiers", Int)
	if err != nil {
		return false, err
	}
	v, err := m.env.CallStaticMethod("java/lang/reflect/Modifier", "isStatic", Boolean, mods.(int))
	if err != nil {
		return false, err
	}
	return v.(bool), nil
}

// Call invokes a resolved static method with Go-side argument values.
func (m *Machine) Call(ctx context.Context, method pljava.Method, args []interface{}) (interface{}, error) {
	mt := method.(*boundMethod)
	fr := newFrame(m.env)
	defer fr.Close()

	v, writebacks, err := m.invoke(ctx, fr, mt, args)
	if err != nil {
		return nil, err
	}
	for _, wb := range writebacks {
		if wb == nil {
			continue
		}
		if err := wb(); err != nil {
			return nil, err
		}
	}
	return m.unmarshalResult(fr, mt.ret, v)
}

func (m *Machine) invoke(ctx context.Context, fr *frame, mt *boundMethod, args []interface{}) (interface{}, []writeback, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	if len(args) != len(mt.params) {
		return nil, nil, errors.Errorf("%s.%s takes %d arguments, got %d", mt.class, mt.name, len(mt.params), len(args))
	}

	jargs := make([]interface{}, len(args))
	writebacks := make([]writeback, 0, len(args))
	for i, a := range args {
		ja, wb, err := m.toArg(fr, mt.params[i], a)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "argument %d of %s.%s", i+1, mt.class, mt.name)
		}
		jargs[i] = ja
		writebacks = append(writebacks, wb)
	}

	ra, err := retArg(mt.ret)
	if err != nil {
		return nil, nil, err
	}
	m.env.PrecalculateSignature(mt.sig)
	v, err := m.env.CallStaticMethod(mt.class, mt.name, ra, jargs...)
	if err != nil {
		return nil, nil, m.wrapCallError(err, mt)
	}
	return v, writebacks, nil
}

// wrapCallError maps a failed call onto the bridge's error model. A server
// error recorded while the Java frame was live comes back by identity; an
// escaped exception becomes a JavaError keyed by the throwable's class.
func (m *Machine) wrapCallError(err error, mt *boundMethod) error {
	if se := m.takePendingServerError(); se != nil {
		return se
	}
	class, msg := splitThrowable(err.Error())
	if class == "" {
		return errors.Wrapf(err, "call %s.%s", mt.class, mt.name)
	}
	return &pljava.JavaError{ClassName: class, Message: msg}
}

// splitThrowable parses the "com.example.SomeException: message" rendering a
// JNI layer reports for an escaped throwable. A leading token that does not
// look like a class name means the failure was in the bridge, not in Java.
func splitThrowable(s string) (class, msg string) {
	head := s
	if i := strings.Index(s, ": "); i >= 0 {
		head, msg = s[:i], s[i+2:]
	}
	if !strings.Contains(head, ".") || strings.ContainsAny(head, " \t(") {
		return "", s
	}
	for _, part := range strings.Split(head, ".") {
		if part == "" {
			return "", s
		}
	}
	return head, msg
}

// setHandle is an open set-returning call: a global reference to the
// java.util.Iterator driving it.
type setHandle struct {
	iter      *jnigi.ObjectRef
	closeable bool
	closed    bool
}

// OpenSet invokes a set-returning method. The Java side returns a
// java.util.Iterator producing one value per row; the handle pins it across
// the value-per-call fetches.
func (m *Machine) OpenSet(ctx context.Context, method pljava.Method, args []interface{}) (pljava.SetHandle, error) {
	mt := method.(*boundMethod)
	fr := newFrame(m.env)
	defer fr.Close()

	v, _, err := m.invoke(ctx, fr, mt, args)
	if err != nil {
		return nil, err
	}
	ref := fr.track(v.(*jnigi.ObjectRef))
	if ref.IsNil() {
		return &setHandle{}, nil
	}

	isIter, err := ref.IsInstanceOf(m.env, "java/util/Iterator")
	if err != nil {
		return nil, err
	}
	if !isIter {
		name, nerr := m.classNameOf(fr, ref)
		if nerr != nil {
			name = "?"
		}
		return nil, errors.Errorf("%s.%s returned %s, expected java.util.Iterator", mt.class, mt.name, name)
	}
	closeable, err := ref.IsInstanceOf(m.env, "java/io/Closeable")
	if err != nil {
		return nil, err
	}
	return &setHandle{
		iter:      m.globalRef(ref.Cast("java/util/Iterator")),
		closeable: closeable,
	}, nil
}

// NextOfSet fetches one row. A nil iterator (the method returned null) is an
// empty set.
func (m *Machine) NextOfSet(ctx context.Context, h pljava.SetHandle) (interface{}, bool, error) {
	sh := h.(*setHandle)
	if sh.iter == nil || sh.closed {
		return nil, false, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	fr := newFrame(m.env)
	defer fr.Close()

	hv, err := sh.iter.CallMethod(m.env, "hasNext", Boolean)
	if err != nil {
		return nil, false, m.wrapIterError(err)
	}
	if !hv.(bool) {
		return nil, false, nil
	}
	nv, err := sh.iter.CallMethod(m.env, "next", "java/lang/Object")
	if err != nil {
		return nil, false, m.wrapIterError(err)
	}
	ref := fr.track(nv.(*jnigi.ObjectRef))
	if ref.IsNil() {
		return nil, true, nil
	}
	v, err := m.fromObjectDynamic(fr, ref)
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

func (m *Machine) wrapIterError(err error) error {
	if se := m.takePendingServerError(); se != nil {
		return se
	}
	class, msg := splitThrowable(err.Error())
	if class == "" {
		return err
	}
	return &pljava.JavaError{ClassName: class, Message: msg}
}

// CloseSet lets go of the iterator, closing it first if the Java object
// supports it. Safe to call more than once and on the cleanup path of an
// abandoned scan.
func (m *Machine) CloseSet(h pljava.SetHandle) error {
	sh := h.(*setHandle)
	if sh.iter == nil || sh.closed {
		return nil
	}
	sh.closed = true

	var closeErr error
	if sh.closeable {
		m.env.PrecalculateSignature("()V")
		if _, err := sh.iter.CallMethod(m.env, "close", Void); err != nil {
			closeErr = m.wrapIterError(err)
		}
	}
	m.dropGlobalRef(sh.iter)
	sh.iter = nil
	return closeErr
}
