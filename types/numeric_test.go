package types

import (
	"testing"

	"github.com/cockroachdb/apd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func numericType(t *testing.T) Type {
	t.Helper()
	r := mustRegistry(t, Config{})
	typ, err := r.TypeForOid(NumericOID, nil)
	require.NoError(t, err)
	return typ
}

func TestNumericRoundTrip(t *testing.T) {
	typ := numericType(t)

	tests := []string{
		"0",
		"1",
		"-1",
		"10000",
		"0.1",
		"-0.0001",
		"1234.5678",
		"99999999999999999999999999.999999",
		"0.00000000000000000001",
	}
	for _, s := range tests {
		t.Run(s, func(t *testing.T) {
			want, _, err := apd.NewFromString(s)
			require.NoError(t, err)

			d, err := typ.CoerceObject(want)
			require.NoError(t, err)
			got, err := typ.CoerceDatum(d)
			require.NoError(t, err)

			dec := got.(*apd.Decimal)
			assert.Equal(t, want.Exponent, dec.Exponent, "exponent")
			assert.Zero(t, want.Coeff.Cmp(&dec.Coeff), "coefficient %s vs %s", want.Coeff.String(), dec.Coeff.String())
			assert.Equal(t, want.Negative, dec.Negative, "sign")
		})
	}
}

func TestNumericWireImage(t *testing.T) {
	typ := numericType(t)

	// 1234.5678 is two base-10000 digits (1234, 5678) with weight 0 and
	// dscale 4.
	in, _, err := apd.NewFromString("1234.5678")
	require.NoError(t, err)
	d, err := typ.CoerceObject(in)
	require.NoError(t, err)
	assert.Equal(t, Datum{
		0, 2, // ndigits
		0, 0, // weight
		0, 0, // sign
		0, 4, // dscale
		0x04, 0xd2, // 1234
		0x16, 0x2e, // 5678
	}, d)

	in, _, err = apd.NewFromString("-0.5")
	require.NoError(t, err)
	d, err = typ.CoerceObject(in)
	require.NoError(t, err)
	assert.Equal(t, Datum{
		0, 1,
		0xff, 0xff, // weight -1
		0x40, 0, // negative
		0, 1,
		0x13, 0x88, // 5000
	}, d)
}

func TestNumericZeroKeepsScale(t *testing.T) {
	typ := numericType(t)

	in, _, err := apd.NewFromString("0.00")
	require.NoError(t, err)
	d, err := typ.CoerceObject(in)
	require.NoError(t, err)
	assert.Equal(t, Datum{0, 0, 0, 0, 0, 0, 0, 2}, d)

	got, err := typ.CoerceDatum(d)
	require.NoError(t, err)
	dec := got.(*apd.Decimal)
	assert.Equal(t, int32(-2), dec.Exponent)
	assert.Zero(t, dec.Coeff.Sign())
}

func TestNumericNaNRefused(t *testing.T) {
	typ := numericType(t)
	_, err := typ.CoerceDatum(Datum{0, 0, 0, 0, 0xc0, 0, 0, 0})
	require.ErrorIs(t, err, ErrNotSupported)
}

func TestNumericRejectsOtherValues(t *testing.T) {
	typ := numericType(t)
	_, err := typ.CoerceObject("12.5")
	assert.Error(t, err)
}
