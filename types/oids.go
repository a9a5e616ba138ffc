package types

// PostgreSQL oids for the types this bridge handles natively.
const (
	BoolOID             Oid = 16
	ByteaOID            Oid = 17
	CharOID             Oid = 18
	NameOID             Oid = 19
	Int8OID             Oid = 20
	Int2OID             Oid = 21
	Int4OID             Oid = 23
	RegprocOID          Oid = 24
	TextOID             Oid = 25
	OIDOID              Oid = 26
	TIDOID              Oid = 27
	XIDOID              Oid = 28
	CIDOID              Oid = 29
	JSONOID             Oid = 114
	XMLOID              Oid = 142
	Float4OID           Oid = 700
	Float8OID           Oid = 701
	UnknownOID          Oid = 705
	BoolArrayOID        Oid = 1000
	ByteaArrayOID       Oid = 1001
	NameArrayOID        Oid = 1003
	Int2ArrayOID        Oid = 1005
	Int4ArrayOID        Oid = 1007
	TextArrayOID        Oid = 1009
	BpcharArrayOID      Oid = 1014
	VarcharArrayOID     Oid = 1015
	Int8ArrayOID        Oid = 1016
	Float4ArrayOID      Oid = 1021
	Float8ArrayOID      Oid = 1022
	ACLItemOID          Oid = 1033
	ACLItemArrayOID     Oid = 1034
	BpcharOID           Oid = 1042
	VarcharOID          Oid = 1043
	DateOID             Oid = 1082
	TimeOID             Oid = 1083
	TimestampOID        Oid = 1114
	TimestampArrayOID   Oid = 1115
	DateArrayOID        Oid = 1182
	TimeArrayOID        Oid = 1183
	TimestamptzOID      Oid = 1184
	TimestamptzArrayOID Oid = 1185
	IntervalOID         Oid = 1186
	TimetzOID           Oid = 1266
	NumericOID          Oid = 1700
	NumericArrayOID     Oid = 1231
	RecordOID           Oid = 2249
	CstringOID          Oid = 2275
	AnyOID              Oid = 2276
	TriggerOID          Oid = 2279
	VoidOID             Oid = 2278
	UUIDOID             Oid = 2950
	UUIDArrayOID        Oid = 2951
	JSONBOID            Oid = 3802
)

// elem oid → array oid for the built-in pairs above. Anything not listed is
// resolved through the catalog collaborator.
var builtinArrayOids = map[Oid]Oid{
	BoolOID:        BoolArrayOID,
	ByteaOID:       ByteaArrayOID,
	NameOID:        NameArrayOID,
	Int2OID:        Int2ArrayOID,
	Int4OID:        Int4ArrayOID,
	TextOID:        TextArrayOID,
	BpcharOID:      BpcharArrayOID,
	VarcharOID:     VarcharArrayOID,
	Int8OID:        Int8ArrayOID,
	Float4OID:      Float4ArrayOID,
	Float8OID:      Float8ArrayOID,
	ACLItemOID:     ACLItemArrayOID,
	DateOID:        DateArrayOID,
	TimeOID:        TimeArrayOID,
	TimestampOID:   TimestampArrayOID,
	TimestamptzOID: TimestamptzArrayOID,
	NumericOID:     NumericArrayOID,
	UUIDOID:        UUIDArrayOID,
}

var builtinElementOids = func() map[Oid]Oid {
	m := make(map[Oid]Oid, len(builtinArrayOids))
	for elem, arr := range builtinArrayOids {
		m[arr] = elem
	}
	return m
}()
