package types

// Datum is the binary image of one PostgreSQL value, exactly as produced by
// the type's send function (and accepted by its receive function). A nil
// Datum is the SQL NULL. Array and record images carry their element and
// field values inline with a length of -1 marking a null position, which is
// this representation's form of the on-disk null bitmap.
type Datum []byte

// IsNull reports whether d is the SQL NULL.
func (d Datum) IsNull() bool { return d == nil }

// Clone returns a copy that does not alias d.
func (d Datum) Clone() Datum {
	if d == nil {
		return nil
	}
	out := make(Datum, len(d))
	copy(out, d)
	return out
}

// Oid is a PostgreSQL object identifier. Here it identifies SQL data types,
// functions, and roles.
type Oid uint32

// InvalidOid is PostgreSQL's InvalidOid.
const InvalidOid Oid = 0

// AclID identifies a role (an entry of pg_authid). PL/Java surfaces it to
// Java as org.postgresql.pljava.internal.AclId.
type AclID uint32
