package jvm

import (
	"encoding/binary"
	"math/big"
	"strings"
	"time"

	"github.com/cockroachdb/apd"
	"github.com/gofrs/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/timob/jnigi"

	pljava "github.com/tada/pljava-sub010"
	"github.com/tada/pljava-sub010/types"
)

const (
	Void    = jnigi.Void
	Boolean = jnigi.Boolean
	Byte    = jnigi.Byte
	Char    = jnigi.Char
	Short   = jnigi.Short
	Int     = jnigi.Int
	Long    = jnigi.Long
	Float   = jnigi.Float
	Double  = jnigi.Double
	Object  = jnigi.Object
	Array   = jnigi.Array
)

const (
	stringClass        = "Ljava/lang/String;"
	objectClass        = "Ljava/lang/Object;"
	bigDecimalClass    = "Ljava/math/BigDecimal;"
	resultSetClass     = "Ljava/sql/ResultSet;"
	triggerDataClass   = "Lorg/postgresql/pljava/TriggerData;"
	rowReaderClass     = "org/postgresql/pljava/jdbc/SingleRowReader"
	rowWriterClass     = "org/postgresql/pljava/jdbc/SingleRowWriter"
	uuidClass          = "Ljava/util/UUID;"
	localDateClass     = "Ljava/time/LocalDate;"
	sqlDateClass       = "Ljava/sql/Date;"
	localTimeClass     = "Ljava/time/LocalTime;"
	sqlTimeClass       = "Ljava/sql/Time;"
	offsetTimeClass    = "Ljava/time/OffsetTime;"
	sqlTimestampClass  = "Ljava/sql/Timestamp;"
	localDateTimeClass = "Ljava/time/LocalDateTime;"
	offsetDateTime     = "Ljava/time/OffsetDateTime;"
)

const secondsPerDay = 86400

// splitSignature breaks a JNI method descriptor into its parameter
// descriptors and return descriptor.
func splitSignature(sig string) (params []string, ret string, err error) {
	if len(sig) < 3 || sig[0] != '(' {
		return nil, "", errors.Errorf("malformed signature %q", sig)
	}
	i := 1
	for i < len(sig) && sig[i] != ')' {
		d, n, err := oneDescriptor(sig[i:])
		if err != nil {
			return nil, "", errors.Wrapf(err, "signature %q", sig)
		}
		params = append(params, d)
		i += n
	}
	if i >= len(sig) || sig[i] != ')' {
		return nil, "", errors.Errorf("unterminated parameter list in %q", sig)
	}
	ret = sig[i+1:]
	if _, n, err := oneDescriptor(ret); err != nil || n != len(ret) {
		return nil, "", errors.Errorf("malformed return descriptor in %q", sig)
	}
	return params, ret, nil
}

// oneDescriptor consumes a single field descriptor from the front of s.
func oneDescriptor(s string) (string, int, error) {
	i := 0
	for i < len(s) && s[i] == '[' {
		i++
	}
	if i >= len(s) {
		return "", 0, errors.New("truncated descriptor")
	}
	switch s[i] {
	case 'Z', 'B', 'C', 'S', 'I', 'J', 'F', 'D', 'V':
		return s[:i+1], i + 1, nil
	case 'L':
		end := strings.IndexByte(s[i:], ';')
		if end < 0 {
			return "", 0, errors.New("unterminated class descriptor")
		}
		return s[:i+end+1], i + end + 1, nil
	}
	return "", 0, errors.Errorf("bad descriptor start %q", s[i])
}

// classOf extracts the slash-form class name from an L...; descriptor.
func classOf(desc string) string {
	return strings.TrimSuffix(strings.TrimPrefix(desc, "L"), ";")
}

// descriptorFromClassName maps a Class.getName() result onto its JNI field
// descriptor. Reflection reports primitives by keyword, arrays already in
// descriptor form (with dots), and everything else as a dotted class name.
func descriptorFromClassName(name string) string {
	switch name {
	case "void":
		return "V"
	case "boolean":
		return "Z"
	case "byte":
		return "B"
	case "char":
		return "C"
	case "short":
		return "S"
	case "int":
		return "I"
	case "long":
		return "J"
	case "float":
		return "F"
	case "double":
		return "D"
	}
	if strings.HasPrefix(name, "[") {
		return strings.ReplaceAll(name, ".", "/")
	}
	return "L" + strings.ReplaceAll(name, ".", "/") + ";"
}

// retArg maps a return descriptor onto the return-type argument jnigi call
// sites take.
func retArg(desc string) (interface{}, error) {
	switch desc {
	case "V":
		return Void, nil
	case "Z":
		return Boolean, nil
	case "S":
		return Short, nil
	case "I":
		return Int, nil
	case "J":
		return Long, nil
	case "F":
		return Float, nil
	case "D":
		return Double, nil
	}
	if strings.HasPrefix(desc, "L") {
		return classOf(desc), nil
	}
	if strings.HasPrefix(desc, "[") {
		elem := desc[1:]
		switch elem {
		case "Z":
			return Boolean | Array, nil
		case "B":
			return Byte | Array, nil
		case "S":
			return Short | Array, nil
		case "I":
			return Int | Array, nil
		case "J":
			return Long | Array, nil
		case "F":
			return Float | Array, nil
		case "D":
			return Double | Array, nil
		}
		if strings.HasPrefix(elem, "L") {
			return jnigi.ObjectArrayType(classOf(elem)), nil
		}
	}
	return nil, errors.Errorf("unsupported return descriptor %q", desc)
}

// writeback copies Java-side mutations back into the Go value after a
// successful call; row receivers and trigger replacement rows need one.
type writeback func() error

// toArg converts one Go-side value into the jnigi argument the parameter
// descriptor calls for.
func (m *Machine) toArg(fr *frame, desc string, v interface{}) (interface{}, writeback, error) {
	if v == nil {
		if strings.HasPrefix(desc, "L") {
			return jnigi.WrapJObject(0, classOf(desc), false), nil, nil
		}
		if strings.HasPrefix(desc, "[") {
			return jnigi.WrapJObject(0, strings.TrimPrefix(desc, "["), true), nil, nil
		}
		return nil, nil, errors.Errorf("SQL NULL cannot bind a %s parameter", desc)
	}

	switch desc {
	case "Z":
		return v.(bool), nil, nil
	case "S":
		return int(v.(int16)), nil, nil
	case "I":
		switch n := v.(type) {
		case int32:
			return int(n), nil, nil
		case types.Oid:
			return int(int32(n)), nil, nil
		}
	case "J":
		switch n := v.(type) {
		case int64:
			return n, nil, nil
		case time.Duration:
			return n.Nanoseconds() / int64(time.Millisecond), nil, nil
		}
	case "F":
		return v.(float32), nil, nil
	case "D":
		return v.(float64), nil, nil
	case "[B":
		return v.([]byte), nil, nil
	case "[Z":
		return v.([]bool), nil, nil
	case "[S":
		return v.([]int16), nil, nil
	case "[I":
		src := v.([]int32)
		dst := make([]int, len(src))
		for i, n := range src {
			dst[i] = int(n)
		}
		return dst, nil, nil
	case "[J":
		return v.([]int64), nil, nil
	case "[F":
		return v.([]float32), nil, nil
	case "[D":
		return v.([]float64), nil, nil
	case stringClass:
		ref, err := m.javaString(fr, v.(string))
		return ref, nil, err
	case objectClass:
		ref, err := m.toObjectDynamic(fr, v)
		return ref, nil, err
	case bigDecimalClass:
		switch d := v.(type) {
		case *apd.Decimal:
			ref, err := m.bigDecimal(fr, d)
			return ref, nil, err
		case decimal.Decimal:
			ref, err := m.bigDecimal(fr, apdFromShopspring(d))
			return ref, nil, err
		}
	case uuidClass:
		u, ok := v.(uuid.UUID)
		if !ok {
			break
		}
		ref, err := m.javaUUID(fr, u)
		return ref, nil, err
	case resultSetClass:
		tup, ok := v.(*types.Tuple)
		if !ok {
			break
		}
		return m.rowObject(fr, rowWriterClass, tup)
	case triggerDataClass:
		td, ok := v.(*pljava.TriggerData)
		if !ok {
			break
		}
		return m.triggerData(fr, td)
	case localDateClass, sqlDateClass, sqlTimestampClass, localDateTimeClass, offsetDateTime:
		tm, ok := v.(time.Time)
		if !ok {
			break
		}
		ref, err := m.javaTemporal(fr, desc, tm)
		return ref, nil, err
	case localTimeClass, sqlTimeClass:
		dur, ok := v.(time.Duration)
		if !ok {
			break
		}
		ref, err := m.javaTimeOfDay(fr, desc, dur)
		return ref, nil, err
	case offsetTimeClass:
		tz, ok := v.(types.TimeTZ)
		if !ok {
			break
		}
		ref, err := m.javaOffsetTime(fr, tz)
		return ref, nil, err
	}

	if strings.HasPrefix(desc, "[L") {
		ref, err := m.objectArray(fr, classOf(desc[1:]), v)
		return ref, nil, err
	}
	if strings.HasPrefix(desc, "L") {
		if ref, ok := v.(*jnigi.ObjectRef); ok {
			return ref, nil, nil
		}
		ref, err := m.boxed(fr, classOf(desc), v)
		return ref, nil, err
	}
	return nil, nil, errors.Errorf("cannot marshal %T as %s", v, desc)
}

// unmarshalResult converts a jnigi call result back into the Go-side value
// the return descriptor implies.
func (m *Machine) unmarshalResult(fr *frame, desc string, v interface{}) (interface{}, error) {
	switch desc {
	case "V":
		return nil, nil
	case "Z":
		return v.(bool), nil
	case "S":
		return int16(v.(int)), nil
	case "I":
		return int32(v.(int)), nil
	case "J":
		return v.(int64), nil
	case "F":
		return v.(float32), nil
	case "D":
		return v.(float64), nil
	case "[B":
		return v.([]byte), nil
	case "[Z":
		return v.([]bool), nil
	case "[S":
		return v.([]int16), nil
	case "[I":
		src := v.([]int)
		dst := make([]int32, len(src))
		for i, n := range src {
			dst[i] = int32(n)
		}
		return dst, nil
	case "[J":
		return v.([]int64), nil
	case "[F":
		return v.([]float32), nil
	case "[D":
		return v.([]float64), nil
	}

	ref, ok := v.(*jnigi.ObjectRef)
	if !ok {
		return nil, errors.Errorf("unexpected %T result for descriptor %s", v, desc)
	}
	fr.track(ref)
	if ref.IsNil() {
		return nil, nil
	}

	if strings.HasPrefix(desc, "[L") {
		elems := m.env.FromObjectArray(ref)
		out := make([]interface{}, len(elems))
		for i, e := range elems {
			fr.track(e)
			gv, err := m.fromObjectDynamic(fr, e)
			if err != nil {
				return nil, err
			}
			out[i] = gv
		}
		return out, nil
	}

	switch desc {
	case stringClass:
		return m.goString(fr, ref)
	case objectClass:
		return m.fromObjectDynamic(fr, ref)
	case bigDecimalClass:
		return m.apdFromBigDecimal(fr, ref)
	case uuidClass:
		return m.goUUID(ref)
	case localDateClass, sqlDateClass, sqlTimestampClass, localDateTimeClass, offsetDateTime:
		return m.goTemporal(fr, desc, ref)
	case localTimeClass, sqlTimeClass:
		return m.goTimeOfDay(desc, ref)
	case offsetTimeClass:
		return m.goOffsetTime(fr, ref)
	}
	return m.unboxed(fr, classOf(desc), ref)
}

// toObjectDynamic converts a Go value into a java.lang.Object reference,
// choosing the boxed class from the Go type. Values whose Java class cannot
// be inferred (the temporal family shares time.Time) must go through a typed
// descriptor instead.
func (m *Machine) toObjectDynamic(fr *frame, v interface{}) (*jnigi.ObjectRef, error) {
	switch n := v.(type) {
	case nil:
		return jnigi.WrapJObject(0, "java/lang/Object", false), nil
	case bool:
		return m.boxed(fr, "java/lang/Boolean", n)
	case int16:
		return m.boxed(fr, "java/lang/Short", n)
	case int32:
		return m.boxed(fr, "java/lang/Integer", n)
	case int64:
		return m.boxed(fr, "java/lang/Long", n)
	case float32:
		return m.boxed(fr, "java/lang/Float", n)
	case float64:
		return m.boxed(fr, "java/lang/Double", n)
	case string:
		return m.javaString(fr, n)
	case *apd.Decimal:
		return m.bigDecimal(fr, n)
	case *jnigi.ObjectRef:
		return n, nil
	}
	return nil, errors.Errorf("cannot pass %T as java.lang.Object", v)
}

// fromObjectDynamic converts a java.lang.Object reference into a Go value by
// inspecting its runtime class.
func (m *Machine) fromObjectDynamic(fr *frame, ref *jnigi.ObjectRef) (interface{}, error) {
	if ref.IsNil() {
		return nil, nil
	}
	checks := []struct {
		class   string
		convert func() (interface{}, error)
	}{
		{"java/lang/String", func() (interface{}, error) {
			return m.goString(fr, ref.Cast("java/lang/String"))
		}},
		{"java/lang/Integer", func() (interface{}, error) {
			v, err := ref.CallMethod(m.env, "intValue", Int)
			if err != nil {
				return nil, err
			}
			return int32(v.(int)), nil
		}},
		{"java/lang/Long", func() (interface{}, error) {
			v, err := ref.CallMethod(m.env, "longValue", Long)
			if err != nil {
				return nil, err
			}
			return v.(int64), nil
		}},
		{"java/lang/Short", func() (interface{}, error) {
			v, err := ref.CallMethod(m.env, "intValue", Int)
			if err != nil {
				return nil, err
			}
			return int16(v.(int)), nil
		}},
		{"java/lang/Boolean", func() (interface{}, error) {
			v, err := ref.CallMethod(m.env, "booleanValue", Boolean)
			if err != nil {
				return nil, err
			}
			return v.(bool), nil
		}},
		{"java/lang/Float", func() (interface{}, error) {
			v, err := ref.CallMethod(m.env, "floatValue", Float)
			if err != nil {
				return nil, err
			}
			return v.(float32), nil
		}},
		{"java/lang/Double", func() (interface{}, error) {
			v, err := ref.CallMethod(m.env, "doubleValue", Double)
			if err != nil {
				return nil, err
			}
			return v.(float64), nil
		}},
		{"java/math/BigDecimal", func() (interface{}, error) {
			return m.apdFromBigDecimal(fr, ref.Cast("java/math/BigDecimal"))
		}},
	}
	for _, c := range checks {
		is, err := ref.IsInstanceOf(m.env, c.class)
		if err != nil {
			return nil, err
		}
		if is {
			return c.convert()
		}
	}
	name, err := m.classNameOf(fr, ref)
	if err != nil {
		return nil, err
	}
	return nil, errors.Errorf("no Go representation for Java value of class %s", name)
}

func (m *Machine) classNameOf(fr *frame, ref *jnigi.ObjectRef) (string, error) {
	cls, err := ref.CallMethod(m.env, "getClass", "java/lang/Class")
	if err != nil {
		return "", err
	}
	clsRef := fr.track(cls.(*jnigi.ObjectRef))
	name, err := clsRef.CallMethod(m.env, "getName", "java/lang/String")
	if err != nil {
		return "", err
	}
	return m.goString(fr, fr.track(name.(*jnigi.ObjectRef)))
}

// boxed wraps one primitive Go value in its java.lang wrapper.
func (m *Machine) boxed(fr *frame, class string, v interface{}) (*jnigi.ObjectRef, error) {
	var sig string
	var arg interface{}
	switch n := v.(type) {
	case bool:
		sig, arg = "(Z)V", n
	case int16:
		sig, arg = "(S)V", int(n)
	case int32:
		sig, arg = "(I)V", int(n)
	case types.Oid:
		sig, arg = "(I)V", int(int32(n))
	case int64:
		sig, arg = "(J)V", n
	case float32:
		sig, arg = "(F)V", n
	case float64:
		sig, arg = "(D)V", n
	default:
		return nil, errors.Errorf("cannot box %T as %s", v, class)
	}
	m.env.PrecalculateSignature(sig)
	ref, err := m.env.NewObject(class, arg)
	if err != nil {
		return nil, errors.Wrapf(err, "new %s", class)
	}
	return fr.track(ref), nil
}

// unboxed reads the primitive back out of a java.lang wrapper.
func (m *Machine) unboxed(fr *frame, class string, ref *jnigi.ObjectRef) (interface{}, error) {
	switch class {
	case "java/lang/Boolean":
		v, err := ref.CallMethod(m.env, "booleanValue", Boolean)
		if err != nil {
			return nil, err
		}
		return v.(bool), nil
	case "java/lang/Short":
		v, err := ref.CallMethod(m.env, "intValue", Int)
		if err != nil {
			return nil, err
		}
		return int16(v.(int)), nil
	case "java/lang/Integer":
		v, err := ref.CallMethod(m.env, "intValue", Int)
		if err != nil {
			return nil, err
		}
		return int32(v.(int)), nil
	case "java/lang/Long":
		v, err := ref.CallMethod(m.env, "longValue", Long)
		if err != nil {
			return nil, err
		}
		return v.(int64), nil
	case "java/lang/Float":
		v, err := ref.CallMethod(m.env, "floatValue", Float)
		if err != nil {
			return nil, err
		}
		return v.(float32), nil
	case "java/lang/Double":
		v, err := ref.CallMethod(m.env, "doubleValue", Double)
		if err != nil {
			return nil, err
		}
		return v.(float64), nil
	}
	return nil, errors.Errorf("no unboxing for %s", class)
}

// bigDecimal builds a java.math.BigDecimal from the decimal's coefficient
// and scale, avoiding any round trip through a rendered number.
func (m *Machine) bigDecimal(fr *frame, d *apd.Decimal) (*jnigi.ObjectRef, error) {
	coeff := d.Coeff.String()
	if d.Negative {
		coeff = "-" + coeff
	}
	js, err := m.javaString(fr, coeff)
	if err != nil {
		return nil, err
	}
	m.env.PrecalculateSignature("(Ljava/lang/String;)V")
	bi, err := m.env.NewObject("java/math/BigInteger", js)
	if err != nil {
		return nil, errors.Wrap(err, "new BigInteger")
	}
	fr.track(bi)
	m.env.PrecalculateSignature("(Ljava/math/BigInteger;I)V")
	bd, err := m.env.NewObject("java/math/BigDecimal", bi, int(-d.Exponent))
	if err != nil {
		return nil, errors.Wrap(err, "new BigDecimal")
	}
	return fr.track(bd), nil
}

func (m *Machine) apdFromBigDecimal(fr *frame, ref *jnigi.ObjectRef) (*apd.Decimal, error) {
	uv, err := ref.CallMethod(m.env, "unscaledValue", "java/math/BigInteger")
	if err != nil {
		return nil, err
	}
	uvRef := fr.track(uv.(*jnigi.ObjectRef))
	sv, err := uvRef.CallMethod(m.env, "toString", "java/lang/String")
	if err != nil {
		return nil, err
	}
	coeff, err := m.goString(fr, fr.track(sv.(*jnigi.ObjectRef)))
	if err != nil {
		return nil, err
	}
	scale, err := ref.CallMethod(m.env, "scale", Int)
	if err != nil {
		return nil, err
	}

	d := &apd.Decimal{Exponent: int32(-scale.(int))}
	if strings.HasPrefix(coeff, "-") {
		d.Negative = true
		coeff = coeff[1:]
	}
	if _, ok := d.Coeff.SetString(coeff, 10); !ok {
		return nil, errors.Errorf("BigInteger rendered unparseable coefficient %q", coeff)
	}
	return d, nil
}

// apdFromShopspring rebuilds the coefficient/exponent form the BigDecimal
// constructor path works from.
func apdFromShopspring(d decimal.Decimal) *apd.Decimal {
	a := &apd.Decimal{Exponent: d.Exponent()}
	coeff := new(big.Int).Set(d.Coefficient())
	if coeff.Sign() < 0 {
		a.Negative = true
		coeff.Neg(coeff)
	}
	a.Coeff.Set(coeff)
	return a
}

// javaUUID builds a java.util.UUID from the two 64-bit halves of the raw
// value.
func (m *Machine) javaUUID(fr *frame, u uuid.UUID) (*jnigi.ObjectRef, error) {
	msb := int64(binary.BigEndian.Uint64(u[:8]))
	lsb := int64(binary.BigEndian.Uint64(u[8:]))
	m.env.PrecalculateSignature("(JJ)V")
	ref, err := m.env.NewObject("java/util/UUID", msb, lsb)
	if err != nil {
		return nil, errors.Wrap(err, "new UUID")
	}
	return fr.track(ref), nil
}

func (m *Machine) goUUID(ref *jnigi.ObjectRef) (uuid.UUID, error) {
	msb, err := ref.CallMethod(m.env, "getMostSignificantBits", Long)
	if err != nil {
		return uuid.UUID{}, err
	}
	lsb, err := ref.CallMethod(m.env, "getLeastSignificantBits", Long)
	if err != nil {
		return uuid.UUID{}, err
	}
	var u uuid.UUID
	binary.BigEndian.PutUint64(u[:8], uint64(msb.(int64)))
	binary.BigEndian.PutUint64(u[8:], uint64(lsb.(int64)))
	return u, nil
}

// javaTemporal builds the date and timestamp classes from a time.Time.
func (m *Machine) javaTemporal(fr *frame, desc string, tm time.Time) (*jnigi.ObjectRef, error) {
	switch desc {
	case localDateClass:
		epochDay := tm.Unix() / secondsPerDay
		if tm.Unix() < 0 && tm.Unix()%secondsPerDay != 0 {
			epochDay--
		}
		v, err := m.env.CallStaticMethod("java/time/LocalDate", "ofEpochDay", "java/time/LocalDate", epochDay)
		if err != nil {
			return nil, err
		}
		return fr.track(v.(*jnigi.ObjectRef)), nil
	case sqlDateClass:
		days := types.TimeToDate(tm)
		m.env.PrecalculateSignature("(J)V")
		ref, err := m.env.NewObject("java/sql/Date", types.LegacyDateMillis(days, time.Local))
		if err != nil {
			return nil, err
		}
		return fr.track(ref), nil
	case sqlTimestampClass:
		m.env.PrecalculateSignature("(J)V")
		ref, err := m.env.NewObject("java/sql/Timestamp", tm.UnixNano()/int64(time.Millisecond))
		if err != nil {
			return nil, err
		}
		fr.track(ref)
		m.env.PrecalculateSignature("(I)V")
		if _, err := ref.CallMethod(m.env, "setNanos", Void, tm.Nanosecond()); err != nil {
			return nil, err
		}
		return ref, nil
	case localDateTimeClass:
		utc, err := m.zoneOffsetUTC(fr)
		if err != nil {
			return nil, err
		}
		m.env.PrecalculateSignature("(JILjava/time/ZoneOffset;)Ljava/time/LocalDateTime;")
		v, err := m.env.CallStaticMethod("java/time/LocalDateTime", "ofEpochSecond", "java/time/LocalDateTime",
			tm.Unix(), tm.Nanosecond(), utc)
		if err != nil {
			return nil, err
		}
		return fr.track(v.(*jnigi.ObjectRef)), nil
	case offsetDateTime:
		m.env.PrecalculateSignature("(JJ)Ljava/time/Instant;")
		iv, err := m.env.CallStaticMethod("java/time/Instant", "ofEpochSecond", "java/time/Instant",
			tm.Unix(), int64(tm.Nanosecond()))
		if err != nil {
			return nil, err
		}
		instant := fr.track(iv.(*jnigi.ObjectRef))
		utc, err := m.zoneOffsetUTC(fr)
		if err != nil {
			return nil, err
		}
		m.env.PrecalculateSignature("(Ljava/time/Instant;Ljava/time/ZoneId;)Ljava/time/OffsetDateTime;")
		v, err := m.env.CallStaticMethod("java/time/OffsetDateTime", "ofInstant", "java/time/OffsetDateTime",
			instant, utc.Cast("java/time/ZoneId"))
		if err != nil {
			return nil, err
		}
		return fr.track(v.(*jnigi.ObjectRef)), nil
	}
	return nil, errors.Errorf("no temporal mapping for %s", desc)
}

func (m *Machine) goTemporal(fr *frame, desc string, ref *jnigi.ObjectRef) (time.Time, error) {
	switch desc {
	case localDateClass:
		v, err := ref.CallMethod(m.env, "toEpochDay", Long)
		if err != nil {
			return time.Time{}, err
		}
		return time.Unix(v.(int64)*secondsPerDay, 0).UTC(), nil
	case sqlDateClass:
		v, err := ref.CallMethod(m.env, "getTime", Long)
		if err != nil {
			return time.Time{}, err
		}
		return types.DateToTime(types.DaysFromLegacyMillis(v.(int64), time.Local)), nil
	case sqlTimestampClass:
		ms, err := ref.CallMethod(m.env, "getTime", Long)
		if err != nil {
			return time.Time{}, err
		}
		nanos, err := ref.CallMethod(m.env, "getNanos", Int)
		if err != nil {
			return time.Time{}, err
		}
		sec := ms.(int64) / 1000
		if ms.(int64) < 0 && ms.(int64)%1000 != 0 {
			sec--
		}
		return time.Unix(sec, int64(nanos.(int))).UTC(), nil
	case localDateTimeClass:
		utc, err := m.zoneOffsetUTC(fr)
		if err != nil {
			return time.Time{}, err
		}
		m.env.PrecalculateSignature("(Ljava/time/ZoneOffset;)J")
		sec, err := ref.CallMethod(m.env, "toEpochSecond", Long, utc)
		if err != nil {
			return time.Time{}, err
		}
		nano, err := ref.CallMethod(m.env, "getNano", Int)
		if err != nil {
			return time.Time{}, err
		}
		return time.Unix(sec.(int64), int64(nano.(int))).UTC(), nil
	case offsetDateTime:
		iv, err := ref.CallMethod(m.env, "toInstant", "java/time/Instant")
		if err != nil {
			return time.Time{}, err
		}
		instant := fr.track(iv.(*jnigi.ObjectRef))
		sec, err := instant.CallMethod(m.env, "getEpochSecond", Long)
		if err != nil {
			return time.Time{}, err
		}
		nano, err := instant.CallMethod(m.env, "getNano", Int)
		if err != nil {
			return time.Time{}, err
		}
		return time.Unix(sec.(int64), int64(nano.(int))).UTC(), nil
	}
	return time.Time{}, errors.Errorf("no temporal mapping for %s", desc)
}

func (m *Machine) javaTimeOfDay(fr *frame, desc string, dur time.Duration) (*jnigi.ObjectRef, error) {
	switch desc {
	case localTimeClass:
		v, err := m.env.CallStaticMethod("java/time/LocalTime", "ofNanoOfDay", "java/time/LocalTime", dur.Nanoseconds())
		if err != nil {
			return nil, err
		}
		return fr.track(v.(*jnigi.ObjectRef)), nil
	case sqlTimeClass:
		m.env.PrecalculateSignature("(J)V")
		ref, err := m.env.NewObject("java/sql/Time", dur.Nanoseconds()/int64(time.Millisecond))
		if err != nil {
			return nil, err
		}
		return fr.track(ref), nil
	}
	return nil, errors.Errorf("no time-of-day mapping for %s", desc)
}

func (m *Machine) goTimeOfDay(desc string, ref *jnigi.ObjectRef) (time.Duration, error) {
	switch desc {
	case localTimeClass:
		v, err := ref.CallMethod(m.env, "toNanoOfDay", Long)
		if err != nil {
			return 0, err
		}
		return time.Duration(v.(int64)), nil
	case sqlTimeClass:
		v, err := ref.CallMethod(m.env, "getTime", Long)
		if err != nil {
			return 0, err
		}
		return time.Duration(v.(int64)) * time.Millisecond, nil
	}
	return 0, errors.Errorf("no time-of-day mapping for %s", desc)
}

func (m *Machine) javaOffsetTime(fr *frame, tz types.TimeTZ) (*jnigi.ObjectRef, error) {
	lt, err := m.javaTimeOfDay(fr, localTimeClass, tz.SinceMidnight)
	if err != nil {
		return nil, err
	}
	off, err := m.zoneOffset(fr, -int(tz.ZoneSecsWest))
	if err != nil {
		return nil, err
	}
	m.env.PrecalculateSignature("(Ljava/time/LocalTime;Ljava/time/ZoneOffset;)Ljava/time/OffsetTime;")
	v, err := m.env.CallStaticMethod("java/time/OffsetTime", "of", "java/time/OffsetTime", lt, off)
	if err != nil {
		return nil, err
	}
	return fr.track(v.(*jnigi.ObjectRef)), nil
}

func (m *Machine) goOffsetTime(fr *frame, ref *jnigi.ObjectRef) (types.TimeTZ, error) {
	lv, err := ref.CallMethod(m.env, "toLocalTime", "java/time/LocalTime")
	if err != nil {
		return types.TimeTZ{}, err
	}
	lt := fr.track(lv.(*jnigi.ObjectRef))
	nanos, err := lt.CallMethod(m.env, "toNanoOfDay", Long)
	if err != nil {
		return types.TimeTZ{}, err
	}
	ov, err := ref.CallMethod(m.env, "getOffset", "java/time/ZoneOffset")
	if err != nil {
		return types.TimeTZ{}, err
	}
	off := fr.track(ov.(*jnigi.ObjectRef))
	secs, err := off.CallMethod(m.env, "getTotalSeconds", Int)
	if err != nil {
		return types.TimeTZ{}, err
	}
	return types.TimeTZ{
		SinceMidnight: time.Duration(nanos.(int64)),
		ZoneSecsWest:  -int32(secs.(int)),
	}, nil
}

func (m *Machine) zoneOffset(fr *frame, totalSeconds int) (*jnigi.ObjectRef, error) {
	v, err := m.env.CallStaticMethod("java/time/ZoneOffset", "ofTotalSeconds", "java/time/ZoneOffset", totalSeconds)
	if err != nil {
		return nil, err
	}
	return fr.track(v.(*jnigi.ObjectRef)), nil
}

func (m *Machine) zoneOffsetUTC(fr *frame) (*jnigi.ObjectRef, error) {
	return m.zoneOffset(fr, 0)
}

// objectArray builds a Java object array from a Go slice of strings or
// dynamic values.
func (m *Machine) objectArray(fr *frame, elemClass string, v interface{}) (*jnigi.ObjectRef, error) {
	var refs []*jnigi.ObjectRef
	switch src := v.(type) {
	case []string:
		refs = make([]*jnigi.ObjectRef, len(src))
		for i, s := range src {
			ref, err := m.javaString(fr, s)
			if err != nil {
				return nil, err
			}
			refs[i] = ref
		}
	case []interface{}:
		refs = make([]*jnigi.ObjectRef, len(src))
		for i, e := range src {
			ref, err := m.toObjectDynamic(fr, e)
			if err != nil {
				return nil, err
			}
			refs[i] = ref
		}
	default:
		return nil, errors.Errorf("cannot marshal %T as %s[]", v, elemClass)
	}
	return fr.track(m.env.ToObjectArray(refs, elemClass)), nil
}

// rowObject wraps a tuple's field values in the companion jar's single-row
// ResultSet. The writeback reads the (possibly updated) fields out again so
// receiver-style composite returns and trigger replacement rows observe what
// the Java code stored.
func (m *Machine) rowObject(fr *frame, class string, tup *types.Tuple) (*jnigi.ObjectRef, writeback, error) {
	values := make([]interface{}, len(tup.Values))
	copy(values, tup.Values)
	arr, err := m.objectArray(fr, "java/lang/Object", values)
	if err != nil {
		return nil, nil, err
	}
	m.env.PrecalculateSignature("([Ljava/lang/Object;)V")
	row, err := m.env.NewObject(class, arr)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "new %s", class)
	}
	fr.track(row)

	wb := func() error {
		if class != rowWriterClass {
			return nil
		}
		for i := range tup.Values {
			m.env.PrecalculateSignature("(I)Ljava/lang/Object;")
			v, err := row.CallMethod(m.env, "getObject", "java/lang/Object", i+1)
			if err != nil {
				return errors.Wrapf(err, "read back row field %d", i+1)
			}
			gv, err := m.fromObjectDynamic(fr, fr.track(v.(*jnigi.ObjectRef)))
			if err != nil {
				return err
			}
			tup.Values[i] = gv
		}
		return nil
	}
	return row.Cast("java/sql/ResultSet"), wb, nil
}

const triggerDataCtorSig = "(Ljava/lang/String;Ljava/lang/String;Ljava/lang/String;IIZ" +
	"[Ljava/lang/String;Ljava/sql/ResultSet;Ljava/sql/ResultSet;)V"

// triggerData builds the TriggerData object handed to trigger methods. The
// writeback copies the replacement row's fields back out of the writable New
// image and picks up a suppression request made through suppressTriggerEvent.
func (m *Machine) triggerData(fr *frame, td *pljava.TriggerData) (*jnigi.ObjectRef, writeback, error) {
	name, err := m.javaString(fr, td.Name)
	if err != nil {
		return nil, nil, err
	}
	schema, err := m.javaString(fr, td.SchemaName)
	if err != nil {
		return nil, nil, err
	}
	table, err := m.javaString(fr, td.TableName)
	if err != nil {
		return nil, nil, err
	}
	args, err := m.objectArray(fr, "java/lang/String", td.Args)
	if err != nil {
		return nil, nil, err
	}

	oldRow := jnigi.WrapJObject(0, "java/sql/ResultSet", false)
	if td.Old != nil {
		oldRow, _, err = m.rowObject(fr, rowReaderClass, td.Old)
		if err != nil {
			return nil, nil, err
		}
	}
	newRow := jnigi.WrapJObject(0, "java/sql/ResultSet", false)
	var newWb writeback
	if td.New != nil {
		newRow, newWb, err = m.rowObject(fr, rowWriterClass, td.New)
		if err != nil {
			return nil, nil, err
		}
	}

	m.env.PrecalculateSignature(triggerDataCtorSig)
	ref, err := m.env.NewObject("org/postgresql/pljava/TriggerData",
		name, schema, table, int(td.Event), int(td.Timing), td.PerRow, args, oldRow, newRow)
	if err != nil {
		return nil, nil, errors.Wrap(err, "new TriggerData")
	}
	fr.track(ref)

	wb := func() error {
		if newWb != nil {
			if err := newWb(); err != nil {
				return err
			}
		}
		sv, err := ref.CallMethod(m.env, "wasSuppressed", Boolean)
		if err != nil {
			return errors.Wrap(err, "read trigger suppression flag")
		}
		td.Suppressed = sv.(bool)
		return nil
	}
	return ref, wb, nil
}
