package types

import (
	"encoding/binary"

	"github.com/jackc/pgio"
	"github.com/pkg/errors"
)

// Attr is one attribute of a row descriptor.
type Attr struct {
	Name    string
	TypeOid Oid
}

// TupleDesc describes the shape of a composite value: the attribute names
// and type oids, in attribute order. Dropped columns are already filtered
// out by whoever builds the descriptor.
type TupleDesc struct {
	Attrs []Attr
}

// AttrIndex returns the zero-based index of the named attribute, or -1.
func (td *TupleDesc) AttrIndex(name string) int {
	for i, a := range td.Attrs {
		if a.Name == name {
			return i
		}
	}
	return -1
}

// Tuple is the Go-side value of a composite datum: one value per attribute,
// nil for SQL NULL, each in the Go representation of the attribute's Type.
type Tuple struct {
	Desc   *TupleDesc
	Values []interface{}
}

// Get returns the value of the named attribute.
func (t *Tuple) Get(name string) (interface{}, error) {
	i := t.Desc.AttrIndex(name)
	if i < 0 {
		return nil, errors.Errorf("no attribute %q", name)
	}
	return t.Values[i], nil
}

// compositeType coerces a composite (row) type or an anonymous RECORD. The
// binary image is record_send's: a field count, then per field the type oid,
// the value length (-1 for NULL) and the value bytes. Attribute types are
// resolved through the registry on each use; composites over unresolvable
// attribute types fail at coercion time, not construction time.
type compositeType struct {
	baseType
	desc *TupleDesc
	reg  *Registry
}

func newComposite(oid Oid, desc *TupleDesc, reg *Registry) *compositeType {
	return &compositeType{
		baseType: baseType{
			oid:       oid,
			javaClass: "java.sql.ResultSet",
			jniSig:    "Ljava/sql/ResultSet;",
		},
		desc: desc,
		reg:  reg,
	}
}

func (t *compositeType) TupleDesc() (*TupleDesc, error) { return t.desc, nil }

func (t *compositeType) CanReplaceType(other Type) bool {
	o, ok := other.(*compositeType)
	return ok && o.oid == t.oid
}

func (t *compositeType) CoerceDatum(d Datum) (interface{}, error) {
	if d == nil {
		return nil, nil
	}
	if len(d) < 4 {
		return nil, lengthError("record header", 4, len(d))
	}
	nfields := int(int32(binary.BigEndian.Uint32(d)))
	if nfields != len(t.desc.Attrs) {
		return nil, errors.Errorf("record has %d fields, descriptor has %d", nfields, len(t.desc.Attrs))
	}
	rest := Datum(d[4:])

	tup := &Tuple{Desc: t.desc, Values: make([]interface{}, nfields)}
	for i := 0; i < nfields; i++ {
		if len(rest) < 8 {
			return nil, lengthError("record field header", 8, len(rest))
		}
		foid := Oid(binary.BigEndian.Uint32(rest))
		flen := int32(binary.BigEndian.Uint32(rest[4:]))
		rest = rest[8:]
		if foid != t.desc.Attrs[i].TypeOid {
			return nil, errors.Errorf("record field %d has oid %d, descriptor says %d",
				i, foid, t.desc.Attrs[i].TypeOid)
		}
		if flen == -1 {
			continue
		}
		if int(flen) > len(rest) {
			return nil, lengthError("record field", int(flen), len(rest))
		}
		ft, err := t.reg.TypeForOid(foid, nil)
		if err != nil {
			return nil, errors.Wrapf(err, "record field %q", t.desc.Attrs[i].Name)
		}
		v, err := ft.CoerceDatum(rest[:flen])
		if err != nil {
			return nil, errors.Wrapf(err, "record field %q", t.desc.Attrs[i].Name)
		}
		tup.Values[i] = v
		rest = rest[flen:]
	}
	return tup, nil
}

func (t *compositeType) CoerceObject(v interface{}) (Datum, error) {
	if v == nil {
		return nil, nil
	}
	tup, ok := v.(*Tuple)
	if !ok {
		return nil, errors.Errorf("cannot coerce %T to composite", v)
	}
	if len(tup.Values) != len(t.desc.Attrs) {
		return nil, errors.Errorf("tuple has %d values, descriptor has %d",
			len(tup.Values), len(t.desc.Attrs))
	}

	buf := pgio.AppendInt32(nil, int32(len(t.desc.Attrs)))
	for i, a := range t.desc.Attrs {
		buf = pgio.AppendUint32(buf, uint32(a.TypeOid))
		if tup.Values[i] == nil {
			buf = pgio.AppendInt32(buf, -1)
			continue
		}
		ft, err := t.reg.TypeForOid(a.TypeOid, nil)
		if err != nil {
			return nil, errors.Wrapf(err, "record field %q", a.Name)
		}
		fd, err := ft.CoerceObject(tup.Values[i])
		if err != nil {
			return nil, errors.Wrapf(err, "record field %q", a.Name)
		}
		buf = pgio.AppendInt32(buf, int32(len(fd)))
		buf = append(buf, fd...)
	}
	return buf, nil
}
