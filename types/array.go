package types

import (
	"encoding/binary"

	"github.com/jackc/pgio"
	"github.com/pkg/errors"
)

// ArrayType coerces a one-dimensional PostgreSQL array over any element
// Type. Primitive elements produce a typed Go slice ([]int32, []float64,
// ...); a null element in that case is an error, since a Java primitive
// array has no slot for one. Non-primitive elements produce []interface{}
// with nil for SQL NULL.
type ArrayType struct {
	baseType
	elem Type
}

func newArrayType(elem Type, oid Oid) *ArrayType {
	return &ArrayType{
		baseType: baseType{
			oid:       oid,
			javaClass: elem.JavaClassName() + "[]",
			jniSig:    "[" + elem.JNISignature(),
		},
		elem: elem,
	}
}

func (t *ArrayType) ElementType() Type { return t.elem }

func (t *ArrayType) CanReplaceType(other Type) bool {
	o, ok := other.(*ArrayType)
	return ok && t.elem.CanReplaceType(o.elem)
}

// arrayHeader is the fixed prefix of the array binary image: dimension
// count, a has-nulls flag, and the element oid, followed by a
// (length, lower bound) pair per dimension.
type arrayHeader struct {
	hasNulls bool
	elemOid  Oid
	length   int
}

func parseArrayHeader(d Datum) (h arrayHeader, rest Datum, err error) {
	if len(d) < 12 {
		return h, nil, lengthError("array header", 12, len(d))
	}
	ndim := int32(binary.BigEndian.Uint32(d))
	h.hasNulls = binary.BigEndian.Uint32(d[4:]) != 0
	h.elemOid = Oid(binary.BigEndian.Uint32(d[8:]))
	rest = d[12:]
	switch ndim {
	case 0:
		return h, rest, nil
	case 1:
		if len(rest) < 8 {
			return h, nil, lengthError("array dimension", 8, len(rest))
		}
		h.length = int(int32(binary.BigEndian.Uint32(rest)))
		if h.length < 0 {
			return h, nil, errors.Errorf("negative array dimension length %d", h.length)
		}
		return h, rest[8:], nil
	default:
		return h, nil, errors.Wrapf(ErrNotSupported, "%d-dimensional array", ndim)
	}
}

func (t *ArrayType) CoerceDatum(d Datum) (interface{}, error) {
	if d == nil {
		return nil, nil
	}
	h, rest, err := parseArrayHeader(d)
	if err != nil {
		return nil, err
	}
	if h.elemOid != t.elem.Oid() {
		return nil, errors.Errorf("array element oid %d does not match %d", h.elemOid, t.elem.Oid())
	}

	elems := make([]interface{}, h.length)
	for i := range elems {
		if len(rest) < 4 {
			return nil, lengthError("array element length", 4, len(rest))
		}
		elen := int32(binary.BigEndian.Uint32(rest))
		rest = rest[4:]
		if elen == -1 {
			if t.elem.IsPrimitive() {
				return nil, errors.Errorf("null element in array of %s", t.elem.JavaClassName())
			}
			continue
		}
		if elen < -1 {
			return nil, errors.Errorf("invalid array element length %d", elen)
		}
		if int(elen) > len(rest) {
			return nil, lengthError("array element", int(elen), len(rest))
		}
		v, err := t.elem.CoerceDatum(rest[:elen])
		if err != nil {
			return nil, errors.Wrapf(err, "array element %d", i)
		}
		elems[i] = v
		rest = rest[elen:]
	}

	if !t.elem.IsPrimitive() {
		return elems, nil
	}
	return packPrimitives(t.elem, elems)
}

func (t *ArrayType) CoerceObject(v interface{}) (Datum, error) {
	if v == nil {
		return nil, nil
	}
	elems, err := unpackElements(t.elem, v)
	if err != nil {
		return nil, err
	}

	hasNulls := false
	for _, e := range elems {
		if e == nil {
			hasNulls = true
			break
		}
	}

	buf := pgio.AppendInt32(nil, 1)
	if hasNulls {
		buf = pgio.AppendInt32(buf, 1)
	} else {
		buf = pgio.AppendInt32(buf, 0)
	}
	buf = pgio.AppendUint32(buf, uint32(t.elem.Oid()))
	buf = pgio.AppendInt32(buf, int32(len(elems)))
	buf = pgio.AppendInt32(buf, 1) // lower bound

	for i, e := range elems {
		if e == nil {
			buf = pgio.AppendInt32(buf, -1)
			continue
		}
		ed, err := t.elem.CoerceObject(e)
		if err != nil {
			return nil, errors.Wrapf(err, "array element %d", i)
		}
		buf = pgio.AppendInt32(buf, int32(len(ed)))
		buf = append(buf, ed...)
	}
	return buf, nil
}

// packPrimitives turns boxed coercion results into the typed slice a Java
// primitive array marshals from.
func packPrimitives(elem Type, elems []interface{}) (interface{}, error) {
	switch elem.JNISignature() {
	case "Z":
		out := make([]bool, len(elems))
		for i, e := range elems {
			out[i] = e.(bool)
		}
		return out, nil
	case "S":
		out := make([]int16, len(elems))
		for i, e := range elems {
			out[i] = e.(int16)
		}
		return out, nil
	case "I":
		out := make([]int32, len(elems))
		for i, e := range elems {
			out[i] = e.(int32)
		}
		return out, nil
	case "J":
		out := make([]int64, len(elems))
		for i, e := range elems {
			out[i] = e.(int64)
		}
		return out, nil
	case "F":
		out := make([]float32, len(elems))
		for i, e := range elems {
			out[i] = e.(float32)
		}
		return out, nil
	case "D":
		out := make([]float64, len(elems))
		for i, e := range elems {
			out[i] = e.(float64)
		}
		return out, nil
	}
	return nil, errors.Wrapf(ErrNotSupported, "primitive array of %s", elem.JavaClassName())
}

// unpackElements accepts either the typed slice of a primitive array or
// []interface{} and yields the per-element values.
func unpackElements(elem Type, v interface{}) ([]interface{}, error) {
	switch s := v.(type) {
	case []interface{}:
		return s, nil
	case []bool:
		out := make([]interface{}, len(s))
		for i, e := range s {
			out[i] = e
		}
		return out, nil
	case []int16:
		out := make([]interface{}, len(s))
		for i, e := range s {
			out[i] = e
		}
		return out, nil
	case []int32:
		out := make([]interface{}, len(s))
		for i, e := range s {
			out[i] = e
		}
		return out, nil
	case []int64:
		out := make([]interface{}, len(s))
		for i, e := range s {
			out[i] = e
		}
		return out, nil
	case []float32:
		out := make([]interface{}, len(s))
		for i, e := range s {
			out[i] = e
		}
		return out, nil
	case []float64:
		out := make([]interface{}, len(s))
		for i, e := range s {
			out[i] = e
		}
		return out, nil
	case []string:
		out := make([]interface{}, len(s))
		for i, e := range s {
			out[i] = e
		}
		return out, nil
	}
	return nil, errors.Errorf("cannot coerce %T to array of %s", v, elem.JavaClassName())
}
