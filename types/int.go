package types

import (
	"encoding/binary"
	"math"

	"github.com/jackc/pgio"
	"github.com/pkg/errors"
)

// Int2Type coerces int2 to Java short / java.lang.Short.
type Int2Type struct {
	baseType
	object *Int2Type
}

func newInt2Pair() *Int2Type {
	prim := &Int2Type{baseType: baseType{oid: Int2OID, javaClass: "short", jniSig: "S", primitive: true}}
	prim.object = &Int2Type{baseType: baseType{oid: Int2OID, javaClass: "java.lang.Short", jniSig: "Ljava/lang/Short;"}}
	return prim
}

func (t *Int2Type) ObjectType() Type {
	if t.object == nil {
		return nil
	}
	return t.object
}

func (t *Int2Type) CanReplaceType(other Type) bool {
	o, ok := other.(*Int2Type)
	return ok && o.oid == t.oid
}

func (t *Int2Type) CoerceDatum(d Datum) (interface{}, error) {
	if d == nil {
		return nil, nil
	}
	if len(d) != 2 {
		return nil, lengthError("int2", 2, len(d))
	}
	return int16(binary.BigEndian.Uint16(d)), nil
}

func (t *Int2Type) CoerceObject(v interface{}) (Datum, error) {
	if v == nil {
		return nil, nil
	}
	var n int16
	switch value := v.(type) {
	case int16:
		n = value
	case int:
		if value < math.MinInt16 || value > math.MaxInt16 {
			return nil, errors.Errorf("%d out of range for int2", value)
		}
		n = int16(value)
	default:
		return nil, errors.Errorf("cannot coerce %T to int2", v)
	}
	return pgio.AppendInt16(nil, n), nil
}

// Int4Type coerces int4 to Java int / java.lang.Integer. It also serves the
// oid-sized catalog scalars registered against it.
type Int4Type struct {
	baseType
	object *Int4Type
}

func newInt4Pair() *Int4Type {
	prim := &Int4Type{baseType: baseType{oid: Int4OID, javaClass: "int", jniSig: "I", primitive: true}}
	prim.object = &Int4Type{baseType: baseType{oid: Int4OID, javaClass: "java.lang.Integer", jniSig: "Ljava/lang/Integer;"}}
	return prim
}

func (t *Int4Type) ObjectType() Type {
	if t.object == nil {
		return nil
	}
	return t.object
}

func (t *Int4Type) CanReplaceType(other Type) bool {
	o, ok := other.(*Int4Type)
	return ok && o.oid == t.oid
}

func (t *Int4Type) CoerceDatum(d Datum) (interface{}, error) {
	if d == nil {
		return nil, nil
	}
	if len(d) != 4 {
		return nil, lengthError("int4", 4, len(d))
	}
	return int32(binary.BigEndian.Uint32(d)), nil
}

func (t *Int4Type) CoerceObject(v interface{}) (Datum, error) {
	if v == nil {
		return nil, nil
	}
	var n int32
	switch value := v.(type) {
	case int32:
		n = value
	case int:
		if value < math.MinInt32 || value > math.MaxInt32 {
			return nil, errors.Errorf("%d out of range for int4", value)
		}
		n = int32(value)
	default:
		return nil, errors.Errorf("cannot coerce %T to int4", v)
	}
	return pgio.AppendInt32(nil, n), nil
}

// Int8Type coerces int8 to Java long / java.lang.Long.
type Int8Type struct {
	baseType
	object *Int8Type
}

func newInt8Pair() *Int8Type {
	prim := &Int8Type{baseType: baseType{oid: Int8OID, javaClass: "long", jniSig: "J", primitive: true}}
	prim.object = &Int8Type{baseType: baseType{oid: Int8OID, javaClass: "java.lang.Long", jniSig: "Ljava/lang/Long;"}}
	return prim
}

func (t *Int8Type) ObjectType() Type {
	if t.object == nil {
		return nil
	}
	return t.object
}

func (t *Int8Type) CanReplaceType(other Type) bool {
	o, ok := other.(*Int8Type)
	return ok && o.oid == t.oid
}

func (t *Int8Type) CoerceDatum(d Datum) (interface{}, error) {
	if d == nil {
		return nil, nil
	}
	if len(d) != 8 {
		return nil, lengthError("int8", 8, len(d))
	}
	return int64(binary.BigEndian.Uint64(d)), nil
}

func (t *Int8Type) CoerceObject(v interface{}) (Datum, error) {
	if v == nil {
		return nil, nil
	}
	var n int64
	switch value := v.(type) {
	case int64:
		n = value
	case int:
		n = int64(value)
	default:
		return nil, errors.Errorf("cannot coerce %T to int8", v)
	}
	return pgio.AppendInt64(nil, n), nil
}
