package types

import "github.com/pkg/errors"

// registerBuiltins installs the type modules this bridge implements
// natively, both by oid and by Java class name. Everything else resolves
// through the catalog collaborator or falls back to text.
//
// The by-oid registrations go through obtainers, not the cache: the first
// resolution of an oid must consult the caller's per-schema typeMap before
// any default, or add_type_mapping could never redirect a built-in oid.
func (r *Registry) registerBuiltins() {
	fixed := func(t Type) Obtainer {
		return func(Oid, *Registry) (Type, error) { return t, nil }
	}

	boolT := newBoolPair()
	int2 := newInt2Pair()
	int4 := newInt4Pair()
	int8 := newInt8Pair()
	float4 := newFloat4Pair()
	float8 := newFloat8Pair()
	numeric := newNumeric()
	bytea := newBytea()

	r.RegisterObtainer(BoolOID, fixed(boolT))
	r.RegisterObtainer(Int2OID, fixed(int2))
	r.RegisterObtainer(Int4OID, fixed(int4))
	r.RegisterObtainer(Int8OID, fixed(int8))
	r.RegisterObtainer(Float4OID, fixed(float4))
	r.RegisterObtainer(Float8OID, fixed(float8))
	r.RegisterObtainer(NumericOID, fixed(numeric))
	r.RegisterObtainer(ByteaOID, fixed(bytea))

	for _, oid := range []Oid{TextOID, VarcharOID, BpcharOID, NameOID, CstringOID, JSONOID, XMLOID} {
		r.RegisterObtainer(oid, fixed(newText(oid, r.enc)))
	}
	r.RegisterObtainer(JSONBOID, fixed(newJsonb(r.enc)))
	r.RegisterObtainer(UnknownOID, fixed(newUnknown(UnknownOID, r.enc)))
	r.RegisterObtainer(VoidOID, fixed(voidInstance))

	for _, oid := range []Oid{OIDOID, RegprocOID, XIDOID, CIDOID} {
		r.RegisterObtainer(oid, fixed(newOidType(oid)))
	}
	r.RegisterObtainer(ACLItemOID, fixed(newAclIDType()))

	date := newDate("java.time.LocalDate", "Ljava/time/LocalDate;")
	tim := newTime("java.time.LocalTime", "Ljava/time/LocalTime;", r.floatDatetimes)
	timetz := newTimetz(r.floatDatetimes)
	ts := newTimestamp(TimestampOID, "java.sql.Timestamp", "Ljava/sql/Timestamp;", r.floatDatetimes)
	tstz := newTimestamp(TimestamptzOID, "java.sql.Timestamp", "Ljava/sql/Timestamp;", r.floatDatetimes)
	r.RegisterObtainer(DateOID, fixed(date))
	r.RegisterObtainer(TimeOID, fixed(tim))
	r.RegisterObtainer(TimetzOID, fixed(timetz))
	r.RegisterObtainer(TimestampOID, fixed(ts))
	r.RegisterObtainer(TimestamptzOID, fixed(tstz))

	// Built-in array oids resolve without a catalog round trip.
	for arr, elem := range builtinElementOids {
		arrOid, elemOid := arr, elem
		r.RegisterObtainer(arrOid, func(_ Oid, reg *Registry) (Type, error) {
			et, err := reg.TypeForOid(elemOid, nil)
			if err != nil {
				return nil, err
			}
			return reg.newArray(et, arrOid), nil
		})
	}

	r.RegisterJavaType("boolean", fixed(boolT))
	r.RegisterJavaType("java.lang.Boolean", fixed(boolT.object))
	r.RegisterJavaType("short", fixed(int2))
	r.RegisterJavaType("java.lang.Short", fixed(int2.object))
	r.RegisterJavaType("int", fixed(int4))
	r.RegisterJavaType("java.lang.Integer", fixed(int4.object))
	r.RegisterJavaType("long", fixed(int8))
	r.RegisterJavaType("java.lang.Long", fixed(int8.object))
	r.RegisterJavaType("float", fixed(float4))
	r.RegisterJavaType("java.lang.Float", fixed(float4.object))
	r.RegisterJavaType("double", fixed(float8))
	r.RegisterJavaType("java.lang.Double", fixed(float8.object))
	r.RegisterJavaType("java.math.BigDecimal", fixed(numeric))
	r.RegisterJavaType("byte[]", fixed(bytea))
	r.RegisterJavaType("org.postgresql.pljava.internal.Oid",
		func(oid Oid, _ *Registry) (Type, error) { return newOidType(oid), nil })
	r.RegisterJavaType("java.lang.String",
		func(oid Oid, reg *Registry) (Type, error) { return newText(oid, reg.enc), nil })

	// A default temporal instance plus the legacy java.sql alternates; all
	// instances of one kind replace each other, so either class may be named
	// for the oid.
	r.RegisterJavaType("java.time.LocalDate", fixed(date))
	r.RegisterJavaType("java.sql.Date",
		func(Oid, *Registry) (Type, error) { return newDate("java.sql.Date", "Ljava/sql/Date;"), nil })
	r.RegisterJavaType("java.time.LocalTime", fixed(tim))
	r.RegisterJavaType("java.sql.Time",
		func(_ Oid, reg *Registry) (Type, error) {
			return newTime("java.sql.Time", "Ljava/sql/Time;", reg.floatDatetimes), nil
		})
	r.RegisterJavaType("java.time.OffsetTime", fixed(timetz))
	r.RegisterJavaType("java.sql.Timestamp",
		func(oid Oid, reg *Registry) (Type, error) {
			switch oid {
			case TimestampOID, TimestamptzOID:
				return newTimestamp(oid, "java.sql.Timestamp", "Ljava/sql/Timestamp;", reg.floatDatetimes), nil
			}
			return nil, errors.Errorf("java.sql.Timestamp cannot represent oid %d", oid)
		})
	r.RegisterJavaType("java.time.LocalDateTime",
		func(_ Oid, reg *Registry) (Type, error) {
			return newTimestamp(TimestampOID, "java.time.LocalDateTime", "Ljava/time/LocalDateTime;", reg.floatDatetimes), nil
		})
	r.RegisterJavaType("java.time.OffsetDateTime",
		func(_ Oid, reg *Registry) (Type, error) {
			return newTimestamp(TimestamptzOID, "java.time.OffsetDateTime", "Ljava/time/OffsetDateTime;", reg.floatDatetimes), nil
		})
}

// voidType is the return pseudo-type of a function with no result. There is
// nothing to coerce in either direction.
type voidType struct {
	baseType
}

var voidInstance = &voidType{baseType{oid: VoidOID, javaClass: "void", jniSig: "V", primitive: true}}

func (t *voidType) CoerceDatum(Datum) (interface{}, error)  { return nil, nil }
func (t *voidType) CoerceObject(interface{}) (Datum, error) { return nil, nil }

// jsonbType is text with a one-byte version header. Only version 1 exists.
type jsonbType struct {
	baseType
	enc *ServerEncoding
}

func newJsonb(enc *ServerEncoding) *jsonbType {
	return &jsonbType{
		baseType: baseType{oid: JSONBOID, javaClass: "java.lang.String", jniSig: "Ljava/lang/String;"},
		enc:      enc,
	}
}

func (t *jsonbType) CanReplaceType(other Type) bool {
	_, ok := other.(*jsonbType)
	return ok
}

func (t *jsonbType) CoerceDatum(d Datum) (interface{}, error) {
	if d == nil {
		return nil, nil
	}
	if len(d) < 1 {
		return nil, lengthError("jsonb", 1, len(d))
	}
	if d[0] != 1 {
		return nil, errors.Errorf("unknown jsonb version %d", d[0])
	}
	s, err := t.enc.Decode(d[1:])
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (t *jsonbType) CoerceObject(v interface{}) (Datum, error) {
	if v == nil {
		return nil, nil
	}
	s, ok := v.(string)
	if !ok {
		return nil, errors.Errorf("cannot coerce %T to jsonb", v)
	}
	b, err := t.enc.Encode(s)
	if err != nil {
		return nil, err
	}
	return append(Datum{1}, b...), nil
}
