package school

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the wire and display format of date-only fields.
const DateLayout = "2006-01-02"

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05Z07:00",
	DateLayout,
}

// Record is a loosely typed wire record, as decoded from JSON.
// Its accessors take a list of field aliases in priority order and return the
// first populated one, coerced to the wanted type; when none is populated they
// return the zero value of that type.
type Record map[string]interface{}

// populated reports whether v carries a value: nil and blank strings do not.
func populated(v interface{}) bool {
	switch v := v.(type) {
	case nil:
		return false
	case string:
		return strings.TrimSpace(v) != ""
	case json.Number:
		return v != ""
	default:
		return true
	}
}

func (r Record) lookup(keys ...string) (interface{}, bool) {
	for _, k := range keys {
		if v, ok := r[k]; ok && populated(v) {
			return v, true
		}
	}
	return nil, false
}

// Has reports whether one of the keys is populated.
func (r Record) Has(keys ...string) bool {
	_, ok := r.lookup(keys...)
	return ok
}

func (r Record) String(keys ...string) string {
	for _, k := range keys {
		if s, ok := asString(r[k]); ok {
			return s
		}
	}
	return ""
}

// ID is String restricted to scalar values, with integral numbers printed without decimals.
func (r Record) ID(keys ...string) string {
	for _, k := range keys {
		switch v := r[k].(type) {
		case map[string]interface{}, []interface{}, bool:
			continue
		default:
			if s, ok := asString(v); ok {
				return s
			}
		}
	}
	return ""
}

func (r Record) Bool(keys ...string) bool {
	for _, k := range keys {
		if b, ok := asBool(r[k]); ok {
			return b
		}
	}
	return false
}

func (r Record) Float(keys ...string) float64 {
	for _, k := range keys {
		if f, ok := asFloat(r[k]); ok {
			return f
		}
	}
	return 0
}

// Int is Float rounded to the nearest integer.
func (r Record) Int(keys ...string) int {
	for _, k := range keys {
		if f, ok := asFloat(r[k]); ok {
			return int(math.Round(f))
		}
	}
	return 0
}

// Date returns the date-only component ("2006-01-02") of the first parseable value.
// "2024-03-05T23:30:00Z" and "2024-03-05 08:00" both give "2024-03-05".
func (r Record) Date(keys ...string) string {
	for _, k := range keys {
		if d, ok := asDate(r[k]); ok {
			return d
		}
	}
	return ""
}

// Time returns the first parseable date-time; date-only values are midnight UTC.
func (r Record) Time(keys ...string) time.Time {
	for _, k := range keys {
		if t, ok := asTime(r[k]); ok {
			return t
		}
	}
	return time.Time{}
}

// Record returns the first nested object, nil if there is none.
func (r Record) Record(keys ...string) Record {
	for _, k := range keys {
		switch v := r[k].(type) {
		case map[string]interface{}:
			return v
		case Record:
			return v
		}
	}
	return nil
}

// List returns the elements of the first array-valued key.
// A key holding null or a scalar counts as an empty list.
// Scalar elements become a Record with the scalar as "id".
func (r Record) List(keys ...string) []Record {
	for _, k := range keys {
		var items []interface{}
		switch v := r[k].(type) {
		case []interface{}:
			items = v
		case []Record:
			return append([]Record{}, v...)
		default:
			continue
		}
		return Records(items)
	}
	return []Record{}
}

// Records converts decoded JSON array elements into records.
func Records(items []interface{}) []Record {
	recs := make([]Record, 0, len(items))
	for _, item := range items {
		switch v := item.(type) {
		case map[string]interface{}:
			recs = append(recs, v)
		case Record:
			recs = append(recs, v)
		default:
			rec := Record{}
			if populated(v) {
				rec["id"] = v
			}
			recs = append(recs, rec)
		}
	}
	return recs
}

// Decode parses a JSON object or array of objects, keeping numbers exact.
func Decode(data []byte) (interface{}, error) {
	var v interface{}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

// Coercions

func asString(v interface{}) (string, bool) {
	switch v := v.(type) {
	case string:
		s := strings.TrimSpace(v)
		return s, s != ""
	case json.Number:
		return v.String(), v != ""
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case int:
		return strconv.Itoa(v), true
	case int64:
		return strconv.FormatInt(v, 10), true
	case bool:
		return strconv.FormatBool(v), true
	default:
		return "", false
	}
}

// asBool coerces 1/0, "1"/"0", "true"/"false", "yes"/"no" and booleans.
// Other values are not booleans.
func asBool(v interface{}) (bool, bool) {
	switch v := v.(type) {
	case bool:
		return v, true
	case float64:
		return v != 0, true
	case int:
		return v != 0, true
	case int64:
		return v != 0, true
	case json.Number:
		f, err := v.Float64()
		return f != 0, err == nil
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "t", "on", "active":
			return true, true
		case "0", "false", "no", "n", "f", "off", "inactive":
			return false, true
		}
	}
	return false, false
}

func asFloat(v interface{}) (float64, bool) {
	switch v := v.(type) {
	case float64:
		return v, !math.IsNaN(v) && !math.IsInf(v, 0)
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil && !math.IsNaN(f) && !math.IsInf(f, 0)
	default:
		return 0, false
	}
}

func asDate(v interface{}) (string, bool) {
	switch v := v.(type) {
	case time.Time:
		if v.IsZero() {
			return "", false
		}
		return v.Format(DateLayout), true
	case string:
		s := strings.TrimSpace(v)
		if len(s) < len(DateLayout) {
			return "", false
		}
		// the date part as written, whatever the time and offset after it
		d := s[:len(DateLayout)]
		if len(s) > len(DateLayout) && !strings.ContainsRune("T ", rune(s[len(DateLayout)])) {
			return "", false
		}
		if _, err := time.Parse(DateLayout, d); err != nil {
			return "", false
		}
		return d, true
	default:
		return "", false
	}
}

func asTime(v interface{}) (time.Time, bool) {
	switch v := v.(type) {
	case time.Time:
		return v, !v.IsZero()
	case string:
		s := strings.TrimSpace(v)
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t, true
			}
		}
	}
	return time.Time{}, false
}
