// Package types maps PostgreSQL type oids to coercion strategies between
// the PostgreSQL binary value representation (Datum) and the Go-side values
// handed to the JVM bridge.
//
// Each SQL type (or Java-side view of one: a primitive and its boxed
// counterpart are distinct Types sharing an oid) is represented by one Type
// instance. Type instances are cached process-wide in a Registry and are
// never destroyed; they must not capture per-call state.
package types

import "github.com/pkg/errors"

// ErrNotSupported marks an operation that is a deliberate scope boundary,
// not a bug: callers asked for a conversion this bridge does not implement.
var ErrNotSupported = errors.New("types: not supported")

// Type is the coercion strategy for one PostgreSQL type oid.
//
// CoerceDatum converts the binary image into the Go value the jvm package
// marshals into a jvalue; CoerceObject is the exact inverse. Both must be
// free of side effects on transaction state. Neither is called with a SQL
// NULL: callers keep nulls out of the coercion path.
type Type interface {
	Oid() Oid

	// JavaClassName is the Java type this coercion produces, in source
	// notation ("int", "java.lang.Integer", "java.lang.String[]").
	JavaClassName() string

	// JNISignature is the JVM descriptor used when building a method
	// signature from resolved parameter and return Types ("I",
	// "Ljava/lang/Integer;", "[Ljava/lang/String;").
	JNISignature() string

	// IsPrimitive reports whether the Java-side representation is a JVM
	// primitive. Primitive Types have an ObjectType boxed counterpart.
	IsPrimitive() bool

	CoerceDatum(d Datum) (interface{}, error)
	CoerceObject(v interface{}) (Datum, error)

	// CanReplaceType reports whether this Type may stand in for other when
	// a caller requests this Type's Java class for other's oid.
	CanReplaceType(other Type) bool

	// ElementType is the element Type of an array type, else nil.
	ElementType() Type

	// ObjectType is the boxed counterpart of a primitive Type, else nil.
	ObjectType() Type

	// TupleDesc returns the row descriptor of a composite type. Every
	// non-composite Type returns an error.
	TupleDesc() (*TupleDesc, error)
}

// baseType carries the attributes every Type shares and supplies the
// erroring defaults for the slots a concrete type leaves unset, preserving
// the behavior that calling an unimplemented slot raises an error instead
// of crashing.
type baseType struct {
	oid       Oid
	javaClass string
	jniSig    string
	primitive bool
}

func (t *baseType) Oid() Oid               { return t.oid }
func (t *baseType) JavaClassName() string  { return t.javaClass }
func (t *baseType) JNISignature() string   { return t.jniSig }
func (t *baseType) IsPrimitive() bool      { return t.primitive }
func (t *baseType) ElementType() Type      { return nil }
func (t *baseType) ObjectType() Type       { return nil }

func (t *baseType) CoerceDatum(Datum) (interface{}, error) {
	return nil, errors.Wrapf(ErrNotSupported, "no datum coercion for %s", t.javaClass)
}

func (t *baseType) CoerceObject(interface{}) (Datum, error) {
	return nil, errors.Wrapf(ErrNotSupported, "no object coercion for %s", t.javaClass)
}

func (t *baseType) TupleDesc() (*TupleDesc, error) {
	return nil, errors.Wrapf(ErrNotSupported, "%s has no tuple descriptor", t.javaClass)
}

func (t *baseType) CanReplaceType(other Type) bool {
	return other != nil && other.Oid() == t.oid && other.JavaClassName() == t.javaClass
}

// lengthError is the shared complaint for a binary image of the wrong size.
func lengthError(typ string, want, got int) error {
	return errors.Errorf("invalid length for %s: expected %d, got %d", typ, want, got)
}
