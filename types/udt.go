package types

import (
	"strings"

	"github.com/pkg/errors"
)

// UDTCodec bridges a user-defined type's four support functions to the Java
// class backing it. Parse/ToString carry the text form (the type's input and
// output functions); Read/Write carry the binary form (receive and send).
// The interface{} values are opaque handles owned by the jvm package.
type UDTCodec interface {
	Parse(s string) (interface{}, error)
	ToString(v interface{}) (string, error)
	Read(d Datum) (interface{}, error)
	Write(v interface{}) (Datum, error)
}

// TupleUDTCodec is the extra surface a codec for a composite-backed UDT
// must provide: the stored form is a record image, so the codec exchanges
// tuples instead of raw bytes.
type TupleUDTCodec interface {
	UDTCodec
	ReadTuple(t *Tuple) (interface{}, error)
	WriteTuple(v interface{}) (*Tuple, error)
}

// UDTType coerces a user-defined type whose representation lives in a Java
// class. A scalar UDT owns its binary format outright; a composite-backed
// one stores a record image and maps it through the codec.
type UDTType struct {
	baseType
	codec UDTCodec
	tuple *compositeType
}

// RegisterUDT installs a user-defined type. desc is nil for a scalar UDT;
// for a composite-backed one the codec must also implement TupleUDTCodec.
// The type becomes resolvable both by oid and by its Java class name.
func (r *Registry) RegisterUDT(oid Oid, javaClass string, desc *TupleDesc, codec UDTCodec) (*UDTType, error) {
	t := &UDTType{
		baseType: baseType{
			oid:       oid,
			javaClass: javaClass,
			jniSig:    "L" + strings.ReplaceAll(javaClass, ".", "/") + ";",
		},
		codec: codec,
	}
	if desc != nil {
		if _, ok := codec.(TupleUDTCodec); !ok {
			return nil, errors.Errorf("codec for composite UDT %s must map tuples", javaClass)
		}
		t.tuple = newComposite(oid, desc, r)
	}
	r.RegisterType(oid, t)
	r.RegisterJavaType(javaClass, func(Oid, *Registry) (Type, error) { return t, nil })
	return t, nil
}

func (t *UDTType) CanReplaceType(other Type) bool {
	o, ok := other.(*UDTType)
	return ok && o.oid == t.oid && o.javaClass == t.javaClass
}

func (t *UDTType) TupleDesc() (*TupleDesc, error) {
	if t.tuple == nil {
		return t.baseType.TupleDesc()
	}
	return t.tuple.TupleDesc()
}

func (t *UDTType) CoerceDatum(d Datum) (interface{}, error) {
	if d == nil {
		return nil, nil
	}
	if t.tuple == nil {
		return t.codec.Read(d)
	}
	v, err := t.tuple.CoerceDatum(d)
	if err != nil {
		return nil, err
	}
	return t.codec.(TupleUDTCodec).ReadTuple(v.(*Tuple))
}

func (t *UDTType) CoerceObject(v interface{}) (Datum, error) {
	if v == nil {
		return nil, nil
	}
	if t.tuple == nil {
		return t.codec.Write(v)
	}
	tup, err := t.codec.(TupleUDTCodec).WriteTuple(v)
	if err != nil {
		return nil, err
	}
	return t.tuple.CoerceObject(tup)
}

// Parse runs the UDT's input conversion over the text form.
func (t *UDTType) Parse(s string) (interface{}, error) { return t.codec.Parse(s) }

// ToString runs the UDT's output conversion.
func (t *UDTType) ToString(v interface{}) (string, error) { return t.codec.ToString(v) }
