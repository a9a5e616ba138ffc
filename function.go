package pljava

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"github.com/tada/pljava-sub010/types"
)

// Volatility is the pg_proc provolatile class of a function.
type Volatility byte

const (
	VolatilityImmutable = Volatility('i')
	VolatilityStable    = Volatility('s')
	VolatilityVolatile  = Volatility('v')
)

// FuncSpec is what the server knows about a function to be bound to Java:
// the pg_proc row plus the AS clause naming the implementation.
type FuncSpec struct {
	Oid        types.Oid
	Name       string
	AS         string
	ParamOids  []types.Oid
	ReturnOid  types.Oid
	ReturnsSet bool
	IsTrigger  bool
	Volatility Volatility

	// TypeMap is the per-schema oid-to-class mapping in effect where the
	// function was declared.
	TypeMap types.TypeMap

	// ForceReadonly overrides the volatility-derived SPI mode, the
	// deployment-descriptor escape hatch for misdeclared functions.
	ForceReadonly *bool
}

// parsedAS is the dissected AS clause:
//
//	[returnClass] className.methodName [(paramClass, ...)]
//
// The optional pieces override the types derived from the declaration.
type parsedAS struct {
	returnClass string
	className   string
	methodName  string
	paramClass  []string // nil when no explicit list; empty list is "()"
}

func parseAS(src string) (*parsedAS, error) {
	s := strings.TrimSpace(src)
	if s == "" {
		return nil, errors.New("empty AS clause")
	}

	p := &parsedAS{}
	if open := strings.IndexByte(s, '('); open >= 0 {
		if !strings.HasSuffix(s, ")") {
			return nil, errors.Errorf("malformed parameter list in %q", src)
		}
		list := s[open+1 : len(s)-1]
		p.paramClass = []string{}
		if strings.TrimSpace(list) != "" {
			for _, c := range strings.Split(list, ",") {
				p.paramClass = append(p.paramClass, strings.TrimSpace(c))
			}
		}
		s = strings.TrimSpace(s[:open])
	}

	if sp := strings.IndexAny(s, " \t"); sp >= 0 {
		p.returnClass = s[:sp]
		s = strings.TrimSpace(s[sp+1:])
	}

	dot := strings.LastIndexByte(s, '.')
	if dot <= 0 || dot == len(s)-1 {
		return nil, errors.Errorf("AS clause %q does not name class.method", src)
	}
	p.className = s[:dot]
	p.methodName = s[dot+1:]
	return p, nil
}

// Function is a resolved, callable binding of one pg_proc entry to a static
// Java method. Instances are cached by function oid and reused until the
// cache is cleared.
type Function struct {
	oid        types.Oid
	name       string
	className  string
	methodName string
	signature  string

	params []types.Type
	ret    types.Type

	// retType is the Type the resolved method actually returns; it differs
	// from ret when resolution fell back to the boxed counterpart.
	retType types.Type

	// usesReceiver marks the composite-return convention where the method
	// returns boolean and fills a trailing ResultSet receiver instead of
	// returning the row.
	usesReceiver bool

	returnsSet bool
	isTrigger  bool
	readonly   bool
	typeMap    types.TypeMap

	method Method
}

func (f *Function) Oid() types.Oid     { return f.oid }
func (f *Function) ClassName() string  { return f.className }
func (f *Function) MethodName() string { return f.methodName }
func (f *Function) Signature() string  { return f.signature }
func (f *Function) ReturnsSet() bool   { return f.returnsSet }
func (f *Function) IsTrigger() bool    { return f.isTrigger }

// Readonly reports whether SPI work issued during this function runs in a
// read-only snapshot. Immutable and stable functions are read-only unless
// the deployment overrode it.
func (f *Function) Readonly() bool { return f.readonly }

const resultSetSig = "Ljava/sql/ResultSet;"

// resolveFunction builds and binds a Function. The primitive return form is
// preferred; if the method is not found the boxed-return form is tried, and
// for composite returns the receiver form after that.
func (b *Backend) resolveFunction(spec *FuncSpec) (*Function, error) {
	p, err := parseAS(spec.AS)
	if err != nil {
		return nil, errors.Wrapf(err, "function %s", spec.Name)
	}

	f := &Function{
		oid:        spec.Oid,
		name:       spec.Name,
		className:  p.className,
		methodName: p.methodName,
		returnsSet: spec.ReturnsSet,
		isTrigger:  spec.IsTrigger,
		typeMap:    spec.TypeMap,
	}
	f.readonly = spec.Volatility != VolatilityVolatile
	if spec.ForceReadonly != nil {
		f.readonly = *spec.ForceReadonly
	}

	if spec.IsTrigger {
		return b.resolveTrigger(f)
	}

	f.params, err = b.paramTypes(spec, p)
	if err != nil {
		return nil, errors.Wrapf(err, "function %s", spec.Name)
	}
	f.ret, err = b.returnType(spec, p)
	if err != nil {
		return nil, errors.Wrapf(err, "function %s", spec.Name)
	}

	if err := b.bindMethod(f); err != nil {
		return nil, errors.Wrapf(err, "function %s", spec.Name)
	}
	return f, nil
}

func (b *Backend) paramTypes(spec *FuncSpec, p *parsedAS) ([]types.Type, error) {
	if p.paramClass != nil && len(p.paramClass) != len(spec.ParamOids) {
		return nil, errors.Errorf("AS clause lists %d parameters, declaration has %d",
			len(p.paramClass), len(spec.ParamOids))
	}
	params := make([]types.Type, len(spec.ParamOids))
	for i, oid := range spec.ParamOids {
		var t types.Type
		var err error
		if p.paramClass != nil {
			t, err = b.registry.TypeForJavaName(p.paramClass[i], oid)
		} else {
			t, err = b.registry.TypeForOid(oid, spec.TypeMap)
		}
		if err != nil {
			return nil, errors.Wrapf(err, "parameter %d", i+1)
		}
		params[i] = t
	}
	return params, nil
}

func (b *Backend) returnType(spec *FuncSpec, p *parsedAS) (types.Type, error) {
	if p.returnClass != "" {
		return b.registry.TypeForJavaName(p.returnClass, spec.ReturnOid)
	}
	return b.registry.TypeForOid(spec.ReturnOid, spec.TypeMap)
}

func jniSignature(params []types.Type, retSig string) string {
	var sb strings.Builder
	sb.WriteByte('(')
	for _, p := range params {
		sb.WriteString(p.JNISignature())
	}
	sb.WriteByte(')')
	sb.WriteString(retSig)
	return sb.String()
}

func (b *Backend) bindMethod(f *Function) error {
	retSig := f.ret.JNISignature()
	if f.returnsSet {
		// A set-returning method hands back an iterator object; the element
		// coercion still follows f.ret.
		retSig = "Ljava/lang/Object;"
	}

	f.signature = jniSignature(f.params, retSig)
	f.retType = f.ret
	m, err := b.runtime.Resolve(f.className, f.methodName, f.signature)
	if err == nil {
		f.method = m
		return nil
	}
	firstErr := err

	if obj := f.ret.ObjectType(); obj != nil && !f.returnsSet {
		sig := jniSignature(f.params, obj.JNISignature())
		if m, err := b.runtime.Resolve(f.className, f.methodName, sig); err == nil {
			f.signature = sig
			f.retType = obj
			f.method = m
			return nil
		}
	}

	if _, derr := f.ret.TupleDesc(); derr == nil && !f.returnsSet {
		var sb strings.Builder
		sb.WriteByte('(')
		for _, p := range f.params {
			sb.WriteString(p.JNISignature())
		}
		sb.WriteString(resultSetSig)
		sb.WriteString(")Z")
		sig := sb.String()
		if m, err := b.runtime.Resolve(f.className, f.methodName, sig); err == nil {
			f.signature = sig
			f.usesReceiver = true
			f.method = m
			return nil
		}
	}

	return errors.Wrapf(firstErr, "no method %s.%s matching %s",
		f.className, f.methodName, f.signature)
}

// FunctionForOid returns the cached binding for oid, resolving it through
// spec on a miss.
func (b *Backend) FunctionForOid(spec *FuncSpec) (*Function, error) {
	if f, ok := b.functions[spec.Oid]; ok {
		return f, nil
	}
	f, err := b.resolveFunction(spec)
	if err != nil {
		return nil, err
	}
	b.functions[spec.Oid] = f
	return f, nil
}

// ClearFunctionCache drops every cached binding, forcing re-resolution on
// next use. Refused while any invocation is active: a cached Function may
// be executing right now.
func (b *Backend) ClearFunctionCache() error {
	if b.invocations.Depth() > 0 {
		return errors.New("cannot clear function cache during an invocation")
	}
	b.functions = make(map[types.Oid]*Function)
	return nil
}

// coerceArgs turns the call's datums into the Go-side argument values.
func (f *Function) coerceArgs(args []types.Datum) ([]interface{}, error) {
	if len(args) != len(f.params) {
		return nil, errors.Errorf("%s takes %d arguments, got %d", f.name, len(f.params), len(args))
	}
	out := make([]interface{}, len(args))
	for i, d := range args {
		// SQL NULL stays nil; the runtime binds it as a typed null, which a
		// primitive parameter then refuses.
		if d == nil {
			continue
		}
		v, err := f.params[i].CoerceDatum(d)
		if err != nil {
			return nil, errors.Wrapf(err, "argument %d of %s", i+1, f.name)
		}
		out[i] = v
	}
	return out, nil
}

// call runs a plain (non-set, non-trigger) invocation and coerces the
// result back to a datum.
func (f *Function) call(ctx context.Context, rt Runtime, args []types.Datum) (types.Datum, error) {
	in, err := f.coerceArgs(args)
	if err != nil {
		return nil, err
	}

	if f.usesReceiver {
		desc, err := f.ret.TupleDesc()
		if err != nil {
			return nil, err
		}
		recv := &types.Tuple{Desc: desc, Values: make([]interface{}, len(desc.Attrs))}
		v, err := rt.Call(ctx, f.method, append(in, recv))
		if err != nil {
			return nil, err
		}
		if filled, _ := v.(bool); !filled {
			return nil, nil
		}
		return f.ret.CoerceObject(recv)
	}

	v, err := rt.Call(ctx, f.method, in)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, nil
	}
	return f.retType.CoerceObject(v)
}
