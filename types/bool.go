package types

import "github.com/pkg/errors"

// BoolType coerces the SQL boolean. The primitive instance presents Java
// boolean, the boxed instance java.lang.Boolean.
type BoolType struct {
	baseType
	object *BoolType
}

func newBoolPair() *BoolType {
	prim := &BoolType{baseType: baseType{oid: BoolOID, javaClass: "boolean", jniSig: "Z", primitive: true}}
	prim.object = &BoolType{baseType: baseType{oid: BoolOID, javaClass: "java.lang.Boolean", jniSig: "Ljava/lang/Boolean;"}}
	return prim
}

func (t *BoolType) ObjectType() Type {
	if t.object == nil {
		return nil
	}
	return t.object
}

func (t *BoolType) CanReplaceType(other Type) bool {
	o, ok := other.(*BoolType)
	return ok && o.oid == t.oid
}

func (t *BoolType) CoerceDatum(d Datum) (interface{}, error) {
	if d == nil {
		return nil, nil
	}
	if len(d) != 1 {
		return nil, lengthError("bool", 1, len(d))
	}
	return d[0] == 1, nil
}

func (t *BoolType) CoerceObject(v interface{}) (Datum, error) {
	if v == nil {
		return nil, nil
	}
	b, ok := v.(bool)
	if !ok {
		return nil, errors.Errorf("cannot coerce %T to bool", v)
	}
	if b {
		return Datum{1}, nil
	}
	return Datum{0}, nil
}
