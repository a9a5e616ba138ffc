package types

import (
	"encoding/binary"
	"math"
	"time"

	"github.com/jackc/pgio"
	"github.com/pkg/errors"
)

// PostgreSQL stores dates as days, and times/timestamps as microseconds
// (integer_datetimes builds) or seconds in a float8 (pre-8.4-style float
// builds), all counted from 2000-01-01. Java counts milliseconds from
// 1970-01-01. The conversions below must floor, not truncate, so that
// values before the epoch land on the right day/second; Go's division
// truncates toward zero, so every division biases the remainder
// non-negative first.
const (
	secsPerDay        = 86400
	millisPerDay      = 86400000
	microsPerSec      = 1000000
	y2kUnixSec        = 946684800 // 2000-01-01 00:00:00 UTC in Unix seconds
	unixEpochToY2KDay = 10957     // days from 1970-01-01 to 2000-01-01
)

// floorDivMod divides with a non-negative remainder regardless of the sign
// of v, turning Go's truncating division into floor division.
func floorDivMod(v, d int64) (q, r int64) {
	q = v / d
	r = v % d
	if r < 0 {
		q--
		r += d
	}
	return q, r
}

// DateType coerces the date type. The Go-side value is a time.Time at
// midnight UTC of the date; the jvm marshaler turns that into the resolved
// Java class. Instances for java.time.LocalDate (the default) and
// java.sql.Date share the coercion and replace each other.
type DateType struct {
	baseType
}

func newDate(javaClass, jniSig string) *DateType {
	return &DateType{baseType{oid: DateOID, javaClass: javaClass, jniSig: jniSig}}
}

func (t *DateType) CanReplaceType(other Type) bool {
	_, ok := other.(*DateType)
	return ok
}

func (t *DateType) CoerceDatum(d Datum) (interface{}, error) {
	if d == nil {
		return nil, nil
	}
	if len(d) != 4 {
		return nil, lengthError("date", 4, len(d))
	}
	days := int32(binary.BigEndian.Uint32(d))
	return DateToTime(days), nil
}

func (t *DateType) CoerceObject(v interface{}) (Datum, error) {
	if v == nil {
		return nil, nil
	}
	tm, ok := v.(time.Time)
	if !ok {
		return nil, errors.Errorf("cannot coerce %T to date", v)
	}
	return pgio.AppendInt32(nil, TimeToDate(tm)), nil
}

// DateToTime converts a date datum's day offset into midnight UTC.
func DateToTime(days int32) time.Time {
	return time.Unix((int64(days)+unixEpochToY2KDay)*secsPerDay, 0).UTC()
}

// TimeToDate converts any instant into the day offset of its UTC date.
func TimeToDate(tm time.Time) int32 {
	day, _ := floorDivMod(tm.Unix(), secsPerDay)
	return int32(day - unixEpochToY2KDay)
}

// LegacyDateMillis converts a date datum into the millisecond value a
// java.sql.Date carries: midnight UTC of the date shifted by the zone
// offset, so the JVM's default zone renders the same calendar date (the
// UTC masquerade).
func LegacyDateMillis(days int32, loc *time.Location) int64 {
	utcMillis := (int64(days) + unixEpochToY2KDay) * millisPerDay
	_, off := time.Unix(utcMillis/1000, 0).In(loc).Zone()
	return utcMillis - int64(off)*1000
}

// DaysFromLegacyMillis inverts LegacyDateMillis.
func DaysFromLegacyMillis(ms int64, loc *time.Location) int32 {
	_, off := time.Unix(0, ms*int64(time.Millisecond)).In(loc).Zone()
	day, _ := floorDivMod(ms+int64(off)*1000, millisPerDay)
	return int32(day - unixEpochToY2KDay)
}

// TimeType coerces time without time zone. The Go-side value is a
// time.Duration since midnight with microsecond resolution.
type TimeType struct {
	baseType
	float bool
}

func newTime(javaClass, jniSig string, float bool) *TimeType {
	return &TimeType{
		baseType: baseType{oid: TimeOID, javaClass: javaClass, jniSig: jniSig},
		float:    float,
	}
}

func (t *TimeType) CanReplaceType(other Type) bool {
	_, ok := other.(*TimeType)
	return ok
}

func (t *TimeType) CoerceDatum(d Datum) (interface{}, error) {
	if d == nil {
		return nil, nil
	}
	if len(d) != 8 {
		return nil, lengthError("time", 8, len(d))
	}
	if t.float {
		secs := math.Float64frombits(binary.BigEndian.Uint64(d))
		return time.Duration(int64(math.Round(secs*microsPerSec))) * time.Microsecond, nil
	}
	return time.Duration(int64(binary.BigEndian.Uint64(d))) * time.Microsecond, nil
}

func (t *TimeType) CoerceObject(v interface{}) (Datum, error) {
	if v == nil {
		return nil, nil
	}
	dur, ok := v.(time.Duration)
	if !ok {
		return nil, errors.Errorf("cannot coerce %T to time", v)
	}
	micros := dur.Microseconds()
	if micros < 0 || micros > secsPerDay*microsPerSec {
		return nil, errors.Errorf("time out of range: %v", dur)
	}
	if t.float {
		return pgio.AppendUint64(nil, math.Float64bits(float64(micros)/microsPerSec)), nil
	}
	return pgio.AppendInt64(nil, micros), nil
}

// TimeTZ is the Go-side value of time with time zone: microseconds since
// midnight plus the zone displacement PostgreSQL stores (seconds west of
// Greenwich, so UTC+2 is -7200).
type TimeTZ struct {
	SinceMidnight time.Duration
	ZoneSecsWest  int32
}

// TimetzType coerces time with time zone.
type TimetzType struct {
	baseType
	float bool
}

func newTimetz(float bool) *TimetzType {
	return &TimetzType{
		baseType: baseType{oid: TimetzOID, javaClass: "java.time.OffsetTime", jniSig: "Ljava/time/OffsetTime;"},
		float:    float,
	}
}

func (t *TimetzType) CanReplaceType(other Type) bool {
	_, ok := other.(*TimetzType)
	return ok
}

func (t *TimetzType) CoerceDatum(d Datum) (interface{}, error) {
	if d == nil {
		return nil, nil
	}
	if len(d) != 12 {
		return nil, lengthError("timetz", 12, len(d))
	}
	var micros int64
	if t.float {
		secs := math.Float64frombits(binary.BigEndian.Uint64(d))
		micros = int64(math.Round(secs * microsPerSec))
	} else {
		micros = int64(binary.BigEndian.Uint64(d))
	}
	zone := int32(binary.BigEndian.Uint32(d[8:]))
	return TimeTZ{SinceMidnight: time.Duration(micros) * time.Microsecond, ZoneSecsWest: zone}, nil
}

func (t *TimetzType) CoerceObject(v interface{}) (Datum, error) {
	if v == nil {
		return nil, nil
	}
	tz, ok := v.(TimeTZ)
	if !ok {
		return nil, errors.Errorf("cannot coerce %T to timetz", v)
	}
	micros := tz.SinceMidnight.Microseconds()
	if micros < 0 || micros > secsPerDay*microsPerSec {
		return nil, errors.Errorf("timetz out of range: %v", tz.SinceMidnight)
	}
	var buf []byte
	if t.float {
		buf = pgio.AppendUint64(nil, math.Float64bits(float64(micros)/microsPerSec))
	} else {
		buf = pgio.AppendInt64(nil, micros)
	}
	return pgio.AppendInt32(buf, tz.ZoneSecsWest), nil
}

// TimestampType coerces timestamp and timestamptz; both store the same
// offset from 2000-01-01, a timestamptz just interprets it as UTC. The
// Go-side value is a time.Time in UTC.
type TimestampType struct {
	baseType
	float bool
}

func newTimestamp(oid Oid, javaClass, jniSig string, float bool) *TimestampType {
	return &TimestampType{
		baseType: baseType{oid: oid, javaClass: javaClass, jniSig: jniSig},
		float:    float,
	}
}

func (t *TimestampType) CanReplaceType(other Type) bool {
	o, ok := other.(*TimestampType)
	return ok && o.oid == t.oid
}

func (t *TimestampType) CoerceDatum(d Datum) (interface{}, error) {
	if d == nil {
		return nil, nil
	}
	if len(d) != 8 {
		return nil, lengthError("timestamp", 8, len(d))
	}
	var micros int64
	if t.float {
		secs := math.Float64frombits(binary.BigEndian.Uint64(d))
		micros = int64(math.Round(secs * microsPerSec))
	} else {
		micros = int64(binary.BigEndian.Uint64(d))
	}
	return MicrosY2KToTime(micros), nil
}

func (t *TimestampType) CoerceObject(v interface{}) (Datum, error) {
	if v == nil {
		return nil, nil
	}
	tm, ok := v.(time.Time)
	if !ok {
		return nil, errors.Errorf("cannot coerce %T to timestamp", v)
	}
	micros := TimeToMicrosY2K(tm)
	if t.float {
		return pgio.AppendUint64(nil, math.Float64bits(float64(micros)/microsPerSec)), nil
	}
	return pgio.AppendInt64(nil, micros), nil
}

// MicrosY2KToTime converts a timestamp datum's microsecond offset into a
// UTC instant, flooring correctly for pre-2000 values.
func MicrosY2KToTime(micros int64) time.Time {
	sec, rem := floorDivMod(micros, microsPerSec)
	return time.Unix(sec+y2kUnixSec, rem*int64(time.Microsecond)).UTC()
}

// TimeToMicrosY2K inverts MicrosY2KToTime, truncating sub-microsecond
// precision toward minus infinity.
func TimeToMicrosY2K(tm time.Time) int64 {
	return (tm.Unix()-y2kUnixSec)*microsPerSec + int64(tm.Nanosecond())/1000
}
