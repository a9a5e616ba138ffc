package types

import "github.com/pkg/errors"

// TypeMap is the optional per-schema mapping of type oid to the Java class
// that should represent it, as installed by add_type_mapping.
type TypeMap map[Oid]string

// Obtainer produces a Type instance for an oid on first resolution. It is
// the hook used when one Java class must yield distinct Type instances per
// oid instead of a shared singleton.
type Obtainer func(oid Oid, reg *Registry) (Type, error)

// CastExec executes a cast function by oid over a datum. It is supplied by
// the function-manager collaborator; coercion pathways of method
// CastMethodFunction are unusable without it.
type CastExec func(funcOid Oid, in Datum) (Datum, error)

// Config carries the once-per-process knobs the registry needs.
//
// FloatDatetimes selects the pre-integer_datetimes on-disk convention
// (float8 seconds instead of int64 microseconds) for the temporal types.
// The zero value is the integer-datetimes build, which is what every
// supported PostgreSQL emits.
type Config struct {
	Catalog        Catalog
	ServerEncoding string
	FloatDatetimes bool
	CastExec       CastExec
}

// Registry maps type oids (and Java class names) to Type instances. It is
// created once per backend process and lives until process exit; entries
// are never removed. It is not safe for concurrent use, and does not need
// to be: the backend is single-threaded.
type Registry struct {
	catalog        Catalog
	enc            *ServerEncoding
	floatDatetimes bool
	castExec       CastExec

	// byOid caches every resolution. The key is the oid alone even though
	// resolution may have consulted a per-schema TypeMap: the first schema
	// to resolve an oid wins for the life of the backend. XXX this is a
	// known wart carried over deliberately; see TypeForOid.
	byOid map[Oid]Type

	obtainers  map[Oid]Obtainer
	byJavaName map[string]Obtainer

	arrayByElem map[Type]*ArrayType
	coercers    map[castKey]*Coercer
}

// NewRegistry builds a registry with every built-in type module registered.
func NewRegistry(cfg Config) (*Registry, error) {
	enc, err := NewServerEncoding(cfg.ServerEncoding)
	if err != nil {
		return nil, err
	}
	cat := cfg.Catalog
	if cat == nil {
		cat = emptyCatalog{}
	}
	r := &Registry{
		catalog:        cat,
		enc:            enc,
		floatDatetimes: cfg.FloatDatetimes,
		castExec:       cfg.CastExec,
		byOid:          make(map[Oid]Type, 64),
		obtainers:      make(map[Oid]Obtainer, 16),
		byJavaName:     make(map[string]Obtainer, 64),
		arrayByElem:    make(map[Type]*ArrayType, 16),
		coercers:       make(map[castKey]*Coercer, 8),
	}
	r.registerBuiltins()
	return r, nil
}

// Encoding exposes the server encoding for text-ish types built outside
// this package.
func (r *Registry) Encoding() *ServerEncoding { return r.enc }

// FloatDatetimes reports the temporal on-disk convention in effect.
func (r *Registry) FloatDatetimes() bool { return r.floatDatetimes }

// RegisterType installs t directly as the cached resolution of oid, past
// any per-schema mapping. It is the extension hook for taking over an oid
// outright; built-ins register through obtainers instead so that the first
// resolution of an oid still consults the caller's typeMap.
func (r *Registry) RegisterType(oid Oid, t Type) {
	r.byOid[oid] = t
}

// RegisterObtainer installs a factory producing a fresh Type per oid on
// first resolution (the Type_registerType2 form).
func (r *Registry) RegisterObtainer(oid Oid, ob Obtainer) {
	r.obtainers[oid] = ob
}

// RegisterJavaType makes className resolvable by TypeForJavaName, keyed by
// the Java source notation of the class ("java.util.UUID", "int", ...).
func (r *Registry) RegisterJavaType(className string, ob Obtainer) {
	r.byJavaName[className] = ob
}

// TypeForOid resolves oid to its Type.
//
// Resolution order: the process-wide cache, the per-schema typeMap, a
// registered obtainer, then the catalog collaborator (arrays recurse to the
// element type, domains unwrap to their base, composites wrap their row
// descriptor), and finally the text-in/text-out fallback if the catalog
// knows the name but this bridge has no module for it.
//
// The result is cached by oid alone. A (oid, typeMap) pair is therefore
// conflated into the oid: the first resolution wins even if a later caller
// presents a different mapping for the same oid. Deliberately preserved,
// wart and all; callers that need determinism get it (same oid in, same
// instance out), callers with conflicting typeMaps get the first schema's
// view.
func (r *Registry) TypeForOid(oid Oid, typeMap TypeMap) (Type, error) {
	if oid == InvalidOid {
		return nil, errors.Wrap(ErrUnknownOid, "invalid oid")
	}
	if t, ok := r.byOid[oid]; ok {
		return t, nil
	}

	if typeMap != nil {
		if cls, ok := typeMap[oid]; ok {
			t, err := r.typeForJavaName(cls, oid)
			if err != nil {
				return nil, errors.Wrapf(err, "type map for oid %d", oid)
			}
			r.byOid[oid] = t
			return t, nil
		}
	}

	if ob, ok := r.obtainers[oid]; ok {
		t, err := ob(oid, r)
		if err != nil {
			return nil, err
		}
		r.byOid[oid] = t
		return t, nil
	}

	ent, err := r.catalog.Lookup(oid)
	if err != nil {
		return nil, err
	}

	var t Type
	switch {
	case ent.Element != InvalidOid:
		elem, err := r.TypeForOid(ent.Element, typeMap)
		if err != nil {
			return nil, errors.Wrapf(err, "element of array oid %d", oid)
		}
		t = r.newArray(elem, oid)
	case ent.Base != InvalidOid:
		base, err := r.TypeForOid(ent.Base, typeMap)
		if err != nil {
			return nil, errors.Wrapf(err, "base of domain oid %d", oid)
		}
		t = &domainType{Type: base, oid: oid}
	case ent.RelDesc != nil:
		t = newComposite(oid, ent.RelDesc, r)
	default:
		t = newUnknown(oid, r.enc)
	}
	r.byOid[oid] = t
	return t, nil
}

// TypeForJavaName resolves a Java class name to a Type bound to oid. Used
// when the caller names the representation (typeMap entries, UDT function
// signatures, getObject(int, Class)).
func (r *Registry) TypeForJavaName(className string, oid Oid) (Type, error) {
	return r.typeForJavaName(className, oid)
}

func (r *Registry) typeForJavaName(className string, oid Oid) (Type, error) {
	ob, ok := r.byJavaName[className]
	if !ok {
		return nil, errors.Errorf("no type mapping for Java class %s", className)
	}
	return ob(oid, r)
}

// CoerceDatumAs coerces d, whose default Type for its oid is t, into the
// representation named by javaClass. The alternate Type is used only if it
// declares itself a replacement for t; otherwise the request is refused
// rather than returning an incompatible representation.
func (r *Registry) CoerceDatumAs(t Type, d Datum, javaClass string) (interface{}, error) {
	if javaClass == t.JavaClassName() {
		return t.CoerceDatum(d)
	}
	if obj := t.ObjectType(); obj != nil && javaClass == obj.JavaClassName() {
		return obj.CoerceDatum(d)
	}
	alt, err := r.typeForJavaName(javaClass, t.Oid())
	if err != nil {
		return nil, err
	}
	if !alt.CanReplaceType(t) {
		return nil, errors.Errorf("cannot present %s (oid %d) as %s",
			t.JavaClassName(), t.Oid(), javaClass)
	}
	return alt.CoerceDatum(d)
}

// ArrayFor returns the (cached) array Type over elem. The array oid comes
// from the built-in pairs; element types outside that table cannot grow an
// array type without a catalog-resolved array oid.
func (r *Registry) ArrayFor(elem Type) (Type, error) {
	if at, ok := r.arrayByElem[elem]; ok {
		return at, nil
	}
	arrOid, ok := builtinArrayOids[elem.Oid()]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownOid, "no array type for element oid %d", elem.Oid())
	}
	at := r.newArray(elem, arrOid)
	return at, nil
}

// CompositeFor builds the structural Type for a RECORD of the given
// descriptor. Record descriptors are per call site, so the result is not
// cached by oid.
func (r *Registry) CompositeFor(desc *TupleDesc) Type {
	return newComposite(RecordOID, desc, r)
}

func (r *Registry) newArray(elem Type, oid Oid) *ArrayType {
	if at, ok := r.arrayByElem[elem]; ok && at.Oid() == oid {
		return at
	}
	at := newArrayType(elem, oid)
	r.arrayByElem[elem] = at
	return at
}

// domainType presents a domain as its base type without duplicating state:
// every operation delegates, only the oid differs.
type domainType struct {
	Type
	oid Oid
}

func (t *domainType) Oid() Oid { return t.oid }

func (t *domainType) CanReplaceType(other Type) bool {
	return t.Type.CanReplaceType(other)
}
