// Package numeric swaps the numeric mapping over to
// github.com/shopspring/decimal values for callers that already standardize
// on that library. The wire codec stays the built-in one; only the Go-side
// value changes.
package numeric

import (
	"math/big"

	"github.com/cockroachdb/apd"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/tada/pljava-sub010/types"
)

// Numeric wraps the built-in numeric strategy, converting between its
// coefficient/exponent value and decimal.Decimal at the boundary.
type Numeric struct {
	inner types.Type
}

func (t *Numeric) Oid() types.Oid          { return t.inner.Oid() }
func (t *Numeric) JavaClassName() string   { return t.inner.JavaClassName() }
func (t *Numeric) JNISignature() string    { return t.inner.JNISignature() }
func (t *Numeric) IsPrimitive() bool       { return false }
func (t *Numeric) ElementType() types.Type { return nil }
func (t *Numeric) ObjectType() types.Type  { return nil }

func (t *Numeric) TupleDesc() (*types.TupleDesc, error) {
	return nil, errors.Wrap(types.ErrNotSupported, "numeric has no tuple descriptor")
}

func (t *Numeric) CanReplaceType(other types.Type) bool {
	return other != nil && other.Oid() == t.Oid() && other.JavaClassName() == t.JavaClassName()
}

func (t *Numeric) CoerceDatum(d types.Datum) (interface{}, error) {
	v, err := t.inner.CoerceDatum(d)
	if err != nil {
		return nil, err
	}
	a := v.(*apd.Decimal)
	coeff := new(big.Int).Set(&a.Coeff)
	if a.Negative {
		coeff.Neg(coeff)
	}
	return decimal.NewFromBigInt(coeff, a.Exponent), nil
}

func (t *Numeric) CoerceObject(v interface{}) (types.Datum, error) {
	// The JNI layer hands BigDecimal results over in coefficient/exponent
	// form already; those skip the conversion.
	if a, ok := v.(*apd.Decimal); ok {
		return t.inner.CoerceObject(a)
	}
	dec, ok := v.(decimal.Decimal)
	if !ok {
		return nil, errors.Errorf("cannot coerce %T to numeric", v)
	}
	a := &apd.Decimal{Exponent: dec.Exponent()}
	coeff := dec.Coefficient()
	if coeff.Sign() < 0 {
		a.Negative = true
		a.Coeff.Neg(coeff)
	} else {
		a.Coeff.Set(coeff)
	}
	return t.inner.CoerceObject(a)
}

// Register installs the decimal.Decimal mapping for numeric. The built-in
// strategy must still be resolvable when Register runs; it keeps owning the
// wire format.
func Register(reg *types.Registry) error {
	inner, err := reg.TypeForOid(types.NumericOID, nil)
	if err != nil {
		return err
	}
	t := &Numeric{inner: inner}
	reg.RegisterType(types.NumericOID, t)
	reg.RegisterJavaType("java.math.BigDecimal", func(types.Oid, *types.Registry) (types.Type, error) {
		return t, nil
	})
	return nil
}
