package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServerEncodingPassthrough(t *testing.T) {
	enc, err := NewServerEncoding("")
	require.NoError(t, err)
	assert.Equal(t, "UTF8", enc.Name())

	s, err := enc.Decode([]byte("héllo"))
	require.NoError(t, err)
	assert.Equal(t, "héllo", s)
}

func TestServerEncodingLatin1(t *testing.T) {
	enc, err := NewServerEncoding("LATIN1")
	require.NoError(t, err)

	b, err := enc.Encode("é")
	require.NoError(t, err)
	assert.Equal(t, []byte{0xe9}, b)

	s, err := enc.Decode([]byte{0xe9})
	require.NoError(t, err)
	assert.Equal(t, "é", s)
}

func TestServerEncodingUnsupported(t *testing.T) {
	_, err := NewServerEncoding("EUC_JP")
	require.ErrorIs(t, err, ErrNotSupported)
}

func TestTextTypeHonorsEncoding(t *testing.T) {
	r := mustRegistry(t, Config{ServerEncoding: "LATIN1"})
	typ, err := r.TypeForOid(TextOID, nil)
	require.NoError(t, err)

	d, err := typ.CoerceObject("café")
	require.NoError(t, err)
	assert.Equal(t, Datum{'c', 'a', 'f', 0xe9}, d)

	v, err := typ.CoerceDatum(d)
	require.NoError(t, err)
	assert.Equal(t, "café", v)
}
