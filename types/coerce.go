package types

import "github.com/pkg/errors"

// ErrNoCastPath is returned when the catalog knows no coercion pathway
// between two oids.
var ErrNoCastPath = errors.New("types: no cast pathway")

// CastMethod is how a CastPath converts a datum, mirroring the pg_cast
// method codes.
type CastMethod int

const (
	// CastMethodFunction applies the cast function named by CastPath.FuncOid.
	CastMethodFunction CastMethod = iota
	// CastMethodRelabel reuses the bits unchanged (binary-compatible types).
	CastMethodRelabel
	// CastMethodIO converts through the text representation.
	CastMethodIO
	// CastMethodArrayCoerce applies an element-wise coercion.
	CastMethodArrayCoerce
)

// CastPath is the catalog's answer for one (source, target) pair.
type CastPath struct {
	Source  Oid
	Target  Oid
	Method  CastMethod
	FuncOid Oid // cast function when Method is CastMethodFunction
}

type castKey struct {
	source, target Oid
}

// Coercer converts datums of one oid into another along a resolved pathway.
// Instances are cached per (source, target) pair for the registry's life.
type Coercer struct {
	path *CastPath
	exec CastExec
}

// Coerce runs one datum through the pathway. NULL passes through untouched.
func (c *Coercer) Coerce(d Datum) (Datum, error) {
	if d == nil {
		return nil, nil
	}
	switch c.path.Method {
	case CastMethodRelabel:
		return d, nil
	case CastMethodFunction:
		if c.exec == nil {
			return nil, errors.Wrapf(ErrNotSupported,
				"cast from oid %d to oid %d needs a cast-function executor",
				c.path.Source, c.path.Target)
		}
		return c.exec(c.path.FuncOid, d)
	}
	// IO and array-wise casts need the source type's output function, which
	// lives server side; resolving them here would mean reimplementing the
	// server's coercion machinery.
	return nil, errors.Wrapf(ErrNotSupported, "cast method %d from oid %d to oid %d",
		c.path.Method, c.path.Source, c.path.Target)
}

// CoercerFor resolves (and caches) the coercion pathway between two oids.
func (r *Registry) CoercerFor(source, target Oid) (*Coercer, error) {
	key := castKey{source, target}
	if c, ok := r.coercers[key]; ok {
		return c, nil
	}
	if source == target {
		c := &Coercer{path: &CastPath{Source: source, Target: target, Method: CastMethodRelabel}}
		r.coercers[key] = c
		return c, nil
	}
	path, err := r.catalog.CastPath(source, target)
	if err != nil {
		return nil, err
	}
	c := &Coercer{path: path, exec: r.castExec}
	r.coercers[key] = c
	return c, nil
}

// CoerceIn converts a datum arriving as source into the target's
// representation before the target Type's CoerceDatum runs.
func (r *Registry) CoerceIn(d Datum, source, target Oid) (Datum, error) {
	c, err := r.CoercerFor(source, target)
	if err != nil {
		return nil, err
	}
	return c.Coerce(d)
}

// CoerceOut converts a datum produced as source into what the call site
// expects as target.
func (r *Registry) CoerceOut(d Datum, source, target Oid) (Datum, error) {
	c, err := r.CoercerFor(source, target)
	if err != nil {
		return nil, err
	}
	return c.Coerce(d)
}
