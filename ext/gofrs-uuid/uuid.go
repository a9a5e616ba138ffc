// Package uuid maps the uuid type onto github.com/gofrs/uuid values, giving
// Java methods java.util.UUID parameters and returns instead of the text
// fallback the catalog pathway would produce.
package uuid

import (
	"github.com/gofrs/uuid"
	"github.com/pkg/errors"

	"github.com/tada/pljava-sub010/types"
)

// UUID is the coercion strategy for the uuid oid. The binary image is the
// raw 16 bytes.
type UUID struct{}

func (t *UUID) Oid() types.Oid         { return types.UUIDOID }
func (t *UUID) JavaClassName() string  { return "java.util.UUID" }
func (t *UUID) JNISignature() string   { return "Ljava/util/UUID;" }
func (t *UUID) IsPrimitive() bool      { return false }
func (t *UUID) ElementType() types.Type { return nil }
func (t *UUID) ObjectType() types.Type  { return nil }

func (t *UUID) TupleDesc() (*types.TupleDesc, error) {
	return nil, errors.Wrap(types.ErrNotSupported, "uuid has no tuple descriptor")
}

func (t *UUID) CanReplaceType(other types.Type) bool {
	return other != nil && other.Oid() == types.UUIDOID && other.JavaClassName() == t.JavaClassName()
}

func (t *UUID) CoerceDatum(d types.Datum) (interface{}, error) {
	if len(d) != 16 {
		return nil, errors.Errorf("invalid length for uuid: expected 16, got %d", len(d))
	}
	u, err := uuid.FromBytes(d)
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (t *UUID) CoerceObject(v interface{}) (types.Datum, error) {
	switch u := v.(type) {
	case uuid.UUID:
		return types.Datum(u.Bytes()), nil
	case [16]byte:
		return types.Datum(u[:]), nil
	case string:
		parsed, err := uuid.FromString(u)
		if err != nil {
			return nil, err
		}
		return types.Datum(parsed.Bytes()), nil
	}
	return nil, errors.Errorf("cannot coerce %T to uuid", v)
}

// Register installs the uuid mapping, replacing whatever resolution the
// registry would otherwise reach for the oid.
func Register(reg *types.Registry) {
	t := &UUID{}
	reg.RegisterType(types.UUIDOID, t)
	reg.RegisterJavaType("java.util.UUID", func(types.Oid, *types.Registry) (types.Type, error) {
		return t, nil
	})
}
