package types

import (
	"math/big"
	"strings"

	"github.com/cockroachdb/apd"
	"github.com/jackc/pgio"
	"github.com/pkg/errors"
)

// The numeric binary image is a sequence of int16s: ndigits, weight (of the
// first digit, in base-10000 positions relative to the decimal point),
// sign, dscale, then ndigits base-10000 digits. See PostgreSQL's
// numeric_send.
const (
	numericPos = 0x0000
	numericNeg = 0x4000
	numericNaN = 0xC000
)

// NumericType coerces numeric to java.math.BigDecimal. The Go-side value is
// *apd.Decimal, whose coefficient/exponent form maps one-to-one onto
// BigDecimal's unscaledValue/scale.
type NumericType struct {
	baseType
}

func newNumeric() *NumericType {
	return &NumericType{baseType{
		oid:       NumericOID,
		javaClass: "java.math.BigDecimal",
		jniSig:    "Ljava/math/BigDecimal;",
	}}
}

func (t *NumericType) CanReplaceType(other Type) bool {
	_, ok := other.(*NumericType)
	return ok
}

var tenThousand = big.NewInt(10000)

func (t *NumericType) CoerceDatum(d Datum) (interface{}, error) {
	if d == nil {
		return nil, nil
	}
	if len(d) < 8 {
		return nil, lengthError("numeric header", 8, len(d))
	}
	ndigits := int(int16(uint16(d[0])<<8 | uint16(d[1])))
	weight := int(int16(uint16(d[2])<<8 | uint16(d[3])))
	sign := uint16(d[4])<<8 | uint16(d[5])
	dscale := int(int16(uint16(d[6])<<8 | uint16(d[7])))

	if sign == numericNaN {
		return nil, errors.Wrap(ErrNotSupported, "numeric NaN has no BigDecimal representation")
	}
	if len(d) != 8+2*ndigits {
		return nil, lengthError("numeric", 8+2*ndigits, len(d))
	}

	coeff := new(big.Int)
	for i := 0; i < ndigits; i++ {
		dig := int64(int16(uint16(d[8+2*i])<<8 | uint16(d[9+2*i])))
		if dig < 0 || dig > 9999 {
			return nil, errors.Errorf("invalid numeric digit %d", dig)
		}
		coeff.Mul(coeff, tenThousand)
		coeff.Add(coeff, big.NewInt(dig))
	}

	// The stored digits sit at base-10000 positions; shift them onto the
	// dscale the image declares.
	shift := 4*(weight+1-ndigits) + dscale
	switch {
	case shift > 0:
		coeff.Mul(coeff, pow10(shift))
	case shift < 0:
		rem := new(big.Int)
		coeff.QuoRem(coeff, pow10(-shift), rem)
		if rem.Sign() != 0 {
			return nil, errors.New("numeric image has digits below its dscale")
		}
	}

	dec := &apd.Decimal{Exponent: int32(-dscale), Negative: sign == numericNeg}
	dec.Coeff.Set(coeff)
	return dec, nil
}

func (t *NumericType) CoerceObject(v interface{}) (Datum, error) {
	if v == nil {
		return nil, nil
	}
	dec, ok := v.(*apd.Decimal)
	if !ok {
		return nil, errors.Errorf("cannot coerce %T to numeric", v)
	}

	dscale := 0
	if dec.Exponent < 0 {
		dscale = int(-dec.Exponent)
	}

	// Write the coefficient as plain decimal digits around the point, then
	// group into base-10000 digits.
	digits := dec.Coeff.String()
	if dec.Exponent > 0 {
		digits += strings.Repeat("0", int(dec.Exponent))
	}
	intDigits, fracDigits := digits, ""
	if dscale > 0 {
		if len(digits) <= dscale {
			digits = strings.Repeat("0", dscale-len(digits)+1) + digits
		}
		intDigits, fracDigits = digits[:len(digits)-dscale], digits[len(digits)-dscale:]
	}
	if pad := len(intDigits) % 4; pad != 0 {
		intDigits = strings.Repeat("0", 4-pad) + intDigits
	}
	if pad := len(fracDigits) % 4; pad != 0 {
		fracDigits += strings.Repeat("0", 4-pad)
	}
	grouped := intDigits + fracDigits
	weight := len(intDigits)/4 - 1

	var digs []int16
	for i := 0; i < len(grouped); i += 4 {
		n := int16(grouped[i]-'0')*1000 + int16(grouped[i+1]-'0')*100 +
			int16(grouped[i+2]-'0')*10 + int16(grouped[i+3]-'0')
		digs = append(digs, n)
	}
	// Strip zero digits off both ends; leading strips lower the weight.
	for len(digs) > 0 && digs[0] == 0 {
		digs = digs[1:]
		weight--
	}
	for len(digs) > 0 && digs[len(digs)-1] == 0 {
		digs = digs[:len(digs)-1]
	}
	if len(digs) == 0 {
		weight = 0
	}

	sign := int16(numericPos)
	if dec.Negative && dec.Coeff.Sign() != 0 {
		sign = int16(int32(numericNeg))
	}

	buf := pgio.AppendInt16(nil, int16(len(digs)))
	buf = pgio.AppendInt16(buf, int16(weight))
	buf = pgio.AppendInt16(buf, sign)
	buf = pgio.AppendInt16(buf, int16(dscale))
	for _, n := range digs {
		buf = pgio.AppendInt16(buf, n)
	}
	return buf, nil
}

func pow10(n int) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
}
