package types

import "github.com/pkg/errors"

// ByteaType coerces bytea to Java byte[].
type ByteaType struct {
	baseType
}

func newBytea() *ByteaType {
	return &ByteaType{baseType{oid: ByteaOID, javaClass: "byte[]", jniSig: "[B"}}
}

func (t *ByteaType) CanReplaceType(other Type) bool {
	_, ok := other.(*ByteaType)
	return ok
}

func (t *ByteaType) CoerceDatum(d Datum) (interface{}, error) {
	if d == nil {
		return nil, nil
	}
	out := make([]byte, len(d))
	copy(out, d)
	return out, nil
}

func (t *ByteaType) CoerceObject(v interface{}) (Datum, error) {
	if v == nil {
		return nil, nil
	}
	b, ok := v.([]byte)
	if !ok {
		return nil, errors.Errorf("cannot coerce %T to bytea", v)
	}
	return Datum(b).Clone(), nil
}
