package types

import (
	"encoding/binary"

	"github.com/jackc/pgio"
	"github.com/pkg/errors"
)

// OidType coerces the oid type (and the reg* aliases registered against it)
// to org.postgresql.pljava.internal.Oid on the Java side; the Go-side value
// is Oid.
type OidType struct {
	baseType
}

func newOidType(oid Oid) *OidType {
	return &OidType{baseType{
		oid:       oid,
		javaClass: "org.postgresql.pljava.internal.Oid",
		jniSig:    "Lorg/postgresql/pljava/internal/Oid;",
	}}
}

func (t *OidType) CanReplaceType(other Type) bool {
	_, ok := other.(*OidType)
	return ok
}

func (t *OidType) CoerceDatum(d Datum) (interface{}, error) {
	if d == nil {
		return nil, nil
	}
	if len(d) != 4 {
		return nil, lengthError("oid", 4, len(d))
	}
	return Oid(binary.BigEndian.Uint32(d)), nil
}

func (t *OidType) CoerceObject(v interface{}) (Datum, error) {
	if v == nil {
		return nil, nil
	}
	o, ok := v.(Oid)
	if !ok {
		return nil, errors.Errorf("cannot coerce %T to oid", v)
	}
	return pgio.AppendUint32(nil, uint32(o)), nil
}

// AclIDType coerces aclitem's grantee/grantor role ids surfaced to Java as
// org.postgresql.pljava.internal.AclId; the Go-side value is AclID.
type AclIDType struct {
	baseType
}

func newAclIDType() *AclIDType {
	return &AclIDType{baseType{
		oid:       ACLItemOID,
		javaClass: "org.postgresql.pljava.internal.AclId",
		jniSig:    "Lorg/postgresql/pljava/internal/AclId;",
	}}
}

func (t *AclIDType) CanReplaceType(other Type) bool {
	_, ok := other.(*AclIDType)
	return ok
}

func (t *AclIDType) CoerceDatum(d Datum) (interface{}, error) {
	if d == nil {
		return nil, nil
	}
	if len(d) < 4 {
		return nil, lengthError("aclid", 4, len(d))
	}
	return AclID(binary.BigEndian.Uint32(d)), nil
}

func (t *AclIDType) CoerceObject(v interface{}) (Datum, error) {
	if v == nil {
		return nil, nil
	}
	id, ok := v.(AclID)
	if !ok {
		return nil, errors.Errorf("cannot coerce %T to aclid", v)
	}
	return pgio.AppendUint32(nil, uint32(id)), nil
}
