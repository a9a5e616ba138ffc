package types

import "github.com/pkg/errors"

// TextType coerces the text-family types (text, varchar, bpchar, name,
// cstring) to java.lang.String. One instance per oid; all of them are
// mutually replaceable.
type TextType struct {
	baseType
	enc *ServerEncoding
}

func newText(oid Oid, enc *ServerEncoding) *TextType {
	return &TextType{
		baseType: baseType{oid: oid, javaClass: "java.lang.String", jniSig: "Ljava/lang/String;"},
		enc:      enc,
	}
}

func (t *TextType) CanReplaceType(other Type) bool {
	switch other.(type) {
	case *TextType, *UnknownType:
		return true
	}
	return false
}

func (t *TextType) CoerceDatum(d Datum) (interface{}, error) {
	if d == nil {
		return nil, nil
	}
	s, err := t.enc.Decode(d)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (t *TextType) CoerceObject(v interface{}) (Datum, error) {
	if v == nil {
		return nil, nil
	}
	s, ok := v.(string)
	if !ok {
		return nil, errors.Errorf("cannot coerce %T to text", v)
	}
	b, err := t.enc.Encode(s)
	if err != nil {
		return nil, err
	}
	return Datum(b), nil
}

// UnknownType is the final fallback for an oid no module claims: the value
// travels as its text representation, which every PostgreSQL type can
// produce and consume.
type UnknownType struct {
	baseType
	enc *ServerEncoding
}

func newUnknown(oid Oid, enc *ServerEncoding) *UnknownType {
	return &UnknownType{
		baseType: baseType{oid: oid, javaClass: "java.lang.String", jniSig: "Ljava/lang/String;"},
		enc:      enc,
	}
}

func (t *UnknownType) CanReplaceType(other Type) bool {
	switch other.(type) {
	case *TextType, *UnknownType:
		return true
	}
	return false
}

func (t *UnknownType) CoerceDatum(d Datum) (interface{}, error) {
	if d == nil {
		return nil, nil
	}
	s, err := t.enc.Decode(d)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (t *UnknownType) CoerceObject(v interface{}) (Datum, error) {
	if v == nil {
		return nil, nil
	}
	s, ok := v.(string)
	if !ok {
		return nil, errors.Errorf("cannot coerce %T to text representation of oid %d", v, t.oid)
	}
	b, err := t.enc.Encode(s)
	if err != nil {
		return nil, err
	}
	return Datum(b), nil
}
