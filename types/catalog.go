package types

import "github.com/pkg/errors"

// ErrUnknownOid is returned when neither the registry nor the catalog
// collaborator can identify an oid.
var ErrUnknownOid = errors.New("types: unknown type oid")

// CatalogEntry is the slice of a pg_type row this bridge needs to resolve
// an oid it has never seen: arrays recurse to their element, domains unwrap
// to their base, and composites carry a row descriptor.
type CatalogEntry struct {
	Oid     Oid
	Name    string
	Element Oid // element type if this is an array type
	Base    Oid // base type if this is a domain
	RelDesc *TupleDesc // row descriptor if this is a composite type
}

// Catalog is the system-catalog collaborator. Implementations look types up
// in pg_type (and pg_cast for coercion pathways); failures surface as
// PostgreSQL errors in the caller.
type Catalog interface {
	Lookup(oid Oid) (*CatalogEntry, error)

	// CastPath resolves the explicit-cast pathway from source to target,
	// per pg_cast / find_coercion_pathway.
	CastPath(source, target Oid) (*CastPath, error)
}

// emptyCatalog backs a Registry constructed without a catalog; every lookup
// misses, which leaves only the built-in and registered types resolvable.
type emptyCatalog struct{}

func (emptyCatalog) Lookup(oid Oid) (*CatalogEntry, error) {
	return nil, errors.Wrapf(ErrUnknownOid, "oid %d", oid)
}

func (emptyCatalog) CastPath(source, target Oid) (*CastPath, error) {
	return nil, errors.Wrapf(ErrNoCastPath, "from oid %d to oid %d", source, target)
}
