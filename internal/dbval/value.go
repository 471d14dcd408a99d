// Package dbval defines the dialect-neutral value and row types every driver,
// the schema cache, and the query pipeline exchange.
package dbval

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"
)

// Kind tags the variant held by a Value.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindInt8
	KindInt16
	KindInt32
	KindInt64
	KindFloat32
	KindFloat64
	KindDecimal
	KindString
	KindBytes
	KindUUID
	KindDate
	KindTime
	KindDateTime
	KindDateTimeUTC
	KindJSON
	KindArray
)

// Value is a tagged union over every scalar and composite type a driver can
// produce. Zero value is Null.
type Value struct {
	kind  Kind
	b     bool
	i     int64
	f     float64
	s     string // String, Decimal (as string)
	bytes []byte
	t     time.Time
	arr   []Value
	js    any // structured JSON value (map[string]any, []any, scalars)
}

func Null() Value                     { return Value{kind: KindNull} }
func NewBool(v bool) Value            { return Value{kind: KindBool, b: v} }
func NewInt8(v int8) Value            { return Value{kind: KindInt8, i: int64(v)} }
func NewInt16(v int16) Value          { return Value{kind: KindInt16, i: int64(v)} }
func NewInt32(v int32) Value          { return Value{kind: KindInt32, i: int64(v)} }
func NewInt64(v int64) Value          { return Value{kind: KindInt64, i: v} }
func NewFloat32(v float32) Value      { return Value{kind: KindFloat32, f: float64(v)} }
func NewFloat64(v float64) Value      { return Value{kind: KindFloat64, f: v} }
func NewDecimal(v string) Value       { return Value{kind: KindDecimal, s: v} }
func NewString(v string) Value        { return Value{kind: KindString, s: v} }
func NewBytes(v []byte) Value         { return Value{kind: KindBytes, bytes: v} }
func NewUUID(v string) Value          { return Value{kind: KindUUID, s: v} }
func NewDate(v time.Time) Value       { return Value{kind: KindDate, t: v} }
func NewTime(v time.Time) Value       { return Value{kind: KindTime, t: v} }
func NewDateTime(v time.Time) Value   { return Value{kind: KindDateTime, t: v} }
func NewDateTimeUTC(v time.Time) Value {
	return Value{kind: KindDateTimeUTC, t: v.UTC()}
}
func NewJSON(v any) Value     { return Value{kind: KindJSON, js: v} }
func NewArray(v []Value) Value { return Value{kind: KindArray, arr: v} }

func (v Value) Kind() Kind   { return v.kind }
func (v Value) IsNull() bool { return v.kind == KindNull }

func (v Value) Bool() (bool, bool)          { return v.b, v.kind == KindBool }
func (v Value) Int64() (int64, bool) {
	switch v.kind {
	case KindInt8, KindInt16, KindInt32, KindInt64:
		return v.i, true
	}
	return 0, false
}
func (v Value) Float64() (float64, bool) {
	switch v.kind {
	case KindFloat32, KindFloat64:
		return v.f, true
	}
	return 0, false
}
func (v Value) String() (string, bool) {
	switch v.kind {
	case KindString, KindDecimal, KindUUID:
		return v.s, true
	}
	return "", false
}
func (v Value) Bytes() ([]byte, bool) { return v.bytes, v.kind == KindBytes }
func (v Value) Time() (time.Time, bool) {
	switch v.kind {
	case KindDate, KindTime, KindDateTime, KindDateTimeUTC:
		return v.t, true
	}
	return time.Time{}, false
}
func (v Value) JSON() (any, bool)     { return v.js, v.kind == KindJSON }
func (v Value) Array() ([]Value, bool) { return v.arr, v.kind == KindArray }

// Display renders a Value the way a table cell or CLI output would.
func (v Value) Display() string {
	switch v.kind {
	case KindNull:
		return "NULL"
	case KindBool:
		if v.b {
			return "true"
		}
		return "false"
	case KindInt8, KindInt16, KindInt32, KindInt64:
		return fmt.Sprintf("%d", v.i)
	case KindFloat32, KindFloat64:
		return fmt.Sprintf("%v", v.f)
	case KindDecimal, KindString, KindUUID:
		return v.s
	case KindBytes:
		return base64.StdEncoding.EncodeToString(v.bytes)
	case KindDate:
		return v.t.Format("2006-01-02")
	case KindTime:
		return v.t.Format("15:04:05")
	case KindDateTime:
		return v.t.Format("2006-01-02T15:04:05")
	case KindDateTimeUTC:
		return v.t.UTC().Format(time.RFC3339)
	case KindJSON:
		return fmt.Sprintf("%v", v.js)
	case KindArray:
		parts := make([]string, len(v.arr))
		for i, e := range v.arr {
			parts[i] = e.Display()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	}
	return ""
}

// Equal reports byte-level equality, used by the pending-changes revert
// invariant: applying original -> new then new -> original must restore the
// original Value exactly.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindBool:
		return v.b == other.b
	case KindInt8, KindInt16, KindInt32, KindInt64:
		return v.i == other.i
	case KindFloat32, KindFloat64:
		return v.f == other.f
	case KindDecimal, KindString, KindUUID:
		return v.s == other.s
	case KindBytes:
		return string(v.bytes) == string(other.bytes)
	case KindDate, KindTime, KindDateTime, KindDateTimeUTC:
		return v.t.Equal(other.t)
	case KindJSON:
		return fmt.Sprintf("%v", v.js) == fmt.Sprintf("%v", other.js)
	case KindArray:
		if len(v.arr) != len(other.arr) {
			return false
		}
		for i := range v.arr {
			if !v.arr[i].Equal(other.arr[i]) {
				return false
			}
		}
		return true
	}
	return false
}
