package model

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// ValueKind records which JSON kind a Value arrived as.
type ValueKind int

const (
	ValueNone ValueKind = iota
	ValueNumber
	ValueText
)

// Value is a metric or event value. It keeps the JSON kind it was sent with
// so that numeric checks only succeed for real JSON numbers.
type Value struct {
	kind ValueKind
	num  float64
	text string
}

// Number builds a numeric value.
func Number(f float64) Value {
	return Value{kind: ValueNumber, num: f}
}

// Text builds a string value.
func Text(s string) Value {
	return Value{kind: ValueText, text: s}
}

func (v Value) Kind() ValueKind { return v.kind }

func (v Value) IsNumeric() bool { return v.kind == ValueNumber }

func (v Value) IsZero() bool { return v.kind == ValueNone }

// Float returns the numeric value and whether the value is numeric.
func (v Value) Float() (float64, bool) {
	if v.kind != ValueNumber {
		return 0, false
	}
	return v.num, true
}

// String renders the value the way it would appear in a listing.
func (v Value) String() string {
	switch v.kind {
	case ValueNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case ValueText:
		return v.text
	default:
		return ""
	}
}

// Interface returns the value as a plain Go value (float64, string or nil).
func (v Value) Interface() any {
	switch v.kind {
	case ValueNumber:
		return v.num
	case ValueText:
		return v.text
	default:
		return nil
	}
}

// ValueOf converts a decoded driver value back into a Value.
func ValueOf(x any) Value {
	switch t := x.(type) {
	case nil:
		return Value{}
	case float64:
		return Number(t)
	case float32:
		return Number(float64(t))
	case int:
		return Number(float64(t))
	case int32:
		return Number(float64(t))
	case int64:
		return Number(float64(t))
	case string:
		return Text(t)
	case bool:
		return Text(strconv.FormatBool(t))
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return Value{}
		}
		return Text(string(b))
	}
}

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case ValueNumber:
		return json.Marshal(v.num)
	case ValueText:
		return json.Marshal(v.text)
	default:
		return []byte("null"), nil
	}
}

func (v *Value) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case len(b) == 0, bytes.Equal(b, []byte("null")):
		*v = Value{}
	case b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*v = Text(s)
	case bytes.Equal(b, []byte("true")), bytes.Equal(b, []byte("false")):
		*v = Text(string(b))
	case b[0] == '-' || (b[0] >= '0' && b[0] <= '9'):
		f, err := strconv.ParseFloat(string(b), 64)
		if err != nil {
			return err
		}
		*v = Number(f)
	default:
		// objects and arrays are kept as their raw JSON text
		*v = Text(string(b))
	}
	return nil
}

// FlexString accepts either a JSON string or a JSON number.
type FlexString string

func (s *FlexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*s = ""
		return nil
	}
	if b[0] == '"' {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		*s = FlexString(str)
		return nil
	}
	*s = FlexString(strings.Trim(string(b), " "))
	return nil
}

func (s FlexString) String() string { return string(s) }

// ParseEpoch reads an epoch-seconds timestamp. Integers, fractional numbers
// and numeric strings are accepted.
func ParseEpoch(raw json.RawMessage) (time.Time, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return time.Time{}, false
	}
	str := string(raw)
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &str); err != nil {
			return time.Time{}, false
		}
		// RFC3339 strings are accepted too
		if t, err := time.Parse(time.RFC3339, str); err == nil {
			return t.UTC(), true
		}
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(str), 64)
	if err != nil {
		return time.Time{}, false
	}
	sec := int64(f)
	nsec := int64((f - float64(sec)) * 1e9)
	return time.Unix(sec, nsec).UTC(), true
}

// Epoch converts a time to integer epoch seconds; the zero time maps to 0.
func Epoch(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}
