package types

import (
	"encoding/binary"
	"math"

	"github.com/jackc/pgio"
	"github.com/pkg/errors"
)

// Float4Type coerces float4 to Java float / java.lang.Float.
type Float4Type struct {
	baseType
	object *Float4Type
}

func newFloat4Pair() *Float4Type {
	prim := &Float4Type{baseType: baseType{oid: Float4OID, javaClass: "float", jniSig: "F", primitive: true}}
	prim.object = &Float4Type{baseType: baseType{oid: Float4OID, javaClass: "java.lang.Float", jniSig: "Ljava/lang/Float;"}}
	return prim
}

func (t *Float4Type) ObjectType() Type {
	if t.object == nil {
		return nil
	}
	return t.object
}

func (t *Float4Type) CanReplaceType(other Type) bool {
	o, ok := other.(*Float4Type)
	return ok && o.oid == t.oid
}

func (t *Float4Type) CoerceDatum(d Datum) (interface{}, error) {
	if d == nil {
		return nil, nil
	}
	if len(d) != 4 {
		return nil, lengthError("float4", 4, len(d))
	}
	return math.Float32frombits(binary.BigEndian.Uint32(d)), nil
}

func (t *Float4Type) CoerceObject(v interface{}) (Datum, error) {
	if v == nil {
		return nil, nil
	}
	f, ok := v.(float32)
	if !ok {
		return nil, errors.Errorf("cannot coerce %T to float4", v)
	}
	return pgio.AppendUint32(nil, math.Float32bits(f)), nil
}

// Float8Type coerces float8 to Java double / java.lang.Double.
type Float8Type struct {
	baseType
	object *Float8Type
}

func newFloat8Pair() *Float8Type {
	prim := &Float8Type{baseType: baseType{oid: Float8OID, javaClass: "double", jniSig: "D", primitive: true}}
	prim.object = &Float8Type{baseType: baseType{oid: Float8OID, javaClass: "java.lang.Double", jniSig: "Ljava/lang/Double;"}}
	return prim
}

func (t *Float8Type) ObjectType() Type {
	if t.object == nil {
		return nil
	}
	return t.object
}

func (t *Float8Type) CanReplaceType(other Type) bool {
	o, ok := other.(*Float8Type)
	return ok && o.oid == t.oid
}

func (t *Float8Type) CoerceDatum(d Datum) (interface{}, error) {
	if d == nil {
		return nil, nil
	}
	if len(d) != 8 {
		return nil, lengthError("float8", 8, len(d))
	}
	return math.Float64frombits(binary.BigEndian.Uint64(d)), nil
}

func (t *Float8Type) CoerceObject(v interface{}) (Datum, error) {
	if v == nil {
		return nil, nil
	}
	f, ok := v.(float64)
	if !ok {
		return nil, errors.Errorf("cannot coerce %T to float8", v)
	}
	return pgio.AppendUint64(nil, math.Float64bits(f)), nil
}
