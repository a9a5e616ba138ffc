package uuid

import (
	"testing"

	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tada/pljava-sub010/types"
)

func newRegistry(t *testing.T) *types.Registry {
	reg, err := types.NewRegistry(types.Config{})
	require.NoError(t, err)
	return reg
}

func TestRegisterResolvesUUID(t *testing.T) {
	reg := newRegistry(t)
	Register(reg)

	byOid, err := reg.TypeForOid(types.UUIDOID, nil)
	require.NoError(t, err)
	assert.Equal(t, "java.util.UUID", byOid.JavaClassName())
	assert.Equal(t, "Ljava/util/UUID;", byOid.JNISignature())

	byName, err := reg.TypeForJavaName("java.util.UUID", types.UUIDOID)
	require.NoError(t, err)
	assert.Same(t, byOid, byName)
}

func TestUUIDRoundTrip(t *testing.T) {
	typ := &UUID{}
	u := uuid.Must(uuid.FromString("6ba7b810-9dad-11d1-80b4-00c04fd430c8"))

	d, err := typ.CoerceObject(u)
	require.NoError(t, err)
	require.Len(t, []byte(d), 16)

	v, err := typ.CoerceDatum(d)
	require.NoError(t, err)
	assert.Equal(t, u, v)
}

func TestUUIDFromString(t *testing.T) {
	typ := &UUID{}
	d, err := typ.CoerceObject("6ba7b810-9dad-11d1-80b4-00c04fd430c8")
	require.NoError(t, err)

	v, err := typ.CoerceDatum(d)
	require.NoError(t, err)
	assert.Equal(t, "6ba7b810-9dad-11d1-80b4-00c04fd430c8", v.(uuid.UUID).String())

	_, err = typ.CoerceObject("not-a-uuid")
	assert.Error(t, err)
}

func TestUUIDRejectsBadLength(t *testing.T) {
	typ := &UUID{}
	_, err := typ.CoerceDatum(types.Datum{1, 2, 3})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid length")

	_, err = typ.CoerceObject(42)
	assert.Error(t, err)
}
