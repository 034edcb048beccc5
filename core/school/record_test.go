package school

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecord_String(t *testing.T) {
	r := Record{"name": "  ", "studentName": " Alice ", "full_name": "Alice B", "age": json.Number("12"), "score": 12.5}

	assert.Equal(t, "Alice", r.String("name", "studentName", "full_name"), "blank canonical field falls through")
	assert.Equal(t, "Alice B", r.String("full_name", "studentName"), "priority is the argument order")
	assert.Equal(t, "12", r.String("age"))
	assert.Equal(t, "12.5", r.String("score"))
	assert.Equal(t, "", r.String("missing"))
	assert.Equal(t, "", r.String())
}

func TestRecord_ID(t *testing.T) {
	tests := []struct {
		name string
		rec  Record
		want string
	}{
		{name: "string", rec: Record{"id": " s-1 "}, want: "s-1"},
		{name: "float", rec: Record{"id": float64(42)}, want: "42"},
		{name: "json number", rec: Record{"id": json.Number("7")}, want: "7"},
		{name: "alias", rec: Record{"_id": "abc"}, want: "abc"},
		{name: "object is no id", rec: Record{"id": map[string]interface{}{"id": "x"}}},
		{name: "bool is no id", rec: Record{"id": true}},
		{name: "null", rec: Record{"id": nil}},
		{name: "blank", rec: Record{"id": ""}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.rec.ID("id", "_id"))
		})
	}
}

func TestRecord_Bool(t *testing.T) {
	tests := []struct {
		in   interface{}
		want bool
	}{
		{in: true, want: true},
		{in: false},
		{in: float64(1), want: true},
		{in: float64(0)},
		{in: json.Number("1"), want: true},
		{in: json.Number("0")},
		{in: "1", want: true},
		{in: "0"},
		{in: "true", want: true},
		{in: "FALSE"},
		{in: "Yes", want: true},
		{in: "no"},
		{in: "Active", want: true},
		{in: "inactive"},
		{in: "maybe"},
		{in: nil},
	}
	for _, tt := range tests {
		r := Record{"is_active": tt.in}
		assert.Equal(t, tt.want, r.Bool("is_active"), "%#v", tt.in)
	}

	// unparseable values fall through to the next alias
	r := Record{"active": "maybe", "is_active": 1}
	assert.True(t, r.Bool("active", "is_active"))
}

func TestRecord_Numbers(t *testing.T) {
	r := Record{"a": "42.5", "b": json.Number("30"), "c": float64(2.6), "d": "n/a"}
	assert.Equal(t, 42.5, r.Float("a"))
	assert.Equal(t, 30.0, r.Float("b"))
	assert.Equal(t, 0.0, r.Float("d"))
	assert.Equal(t, 30.0, r.Float("d", "b"))
	assert.Equal(t, 3, r.Int("c"))
	assert.Equal(t, 30, r.Int("b"))
	assert.Equal(t, 0, r.Int("missing"))
}

func TestRecord_Date(t *testing.T) {
	tests := []struct {
		in   interface{}
		want string
	}{
		{in: "2024-03-05", want: "2024-03-05"},
		{in: "2024-03-05T23:30:00Z", want: "2024-03-05"},
		{in: "2024-03-05T23:30:00-05:00", want: "2024-03-05"},
		{in: "2024-03-05 08:00:00", want: "2024-03-05"},
		{in: time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC), want: "2024-03-05"},
		{in: "2024-13-05"},
		{in: "05/03/2024"},
		{in: "2024-03-05X"},
		{in: ""},
		{in: float64(20240305)},
	}
	for _, tt := range tests {
		r := Record{"date": tt.in}
		assert.Equal(t, tt.want, r.Date("date"), "%#v", tt.in)
	}
}

func TestRecord_Time(t *testing.T) {
	r := Record{
		"a": "2024-03-05T08:30:00Z",
		"b": "2024-03-05 08:30:00",
		"c": "2024-03-05",
		"d": "tomorrow",
	}
	want := time.Date(2024, 3, 5, 8, 30, 0, 0, time.UTC)
	assert.True(t, want.Equal(r.Time("a")))
	assert.True(t, want.Equal(r.Time("b")))
	assert.True(t, time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC).Equal(r.Time("c")))
	assert.True(t, r.Time("d").IsZero())
	assert.True(t, want.Equal(r.Time("d", "a")))
}

func TestRecord_List(t *testing.T) {
	r := Record{
		"null":    nil,
		"scalar":  "none",
		"object":  map[string]interface{}{"id": "x"},
		"items":   []interface{}{map[string]interface{}{"id": "a"}, "b", nil},
		"records": []Record{{"id": "r"}},
	}
	assert.Equal(t, []Record{}, r.List("null"))
	assert.Equal(t, []Record{}, r.List("scalar"))
	assert.Equal(t, []Record{}, r.List("object"))
	assert.Equal(t, []Record{}, r.List("missing"))
	assert.Equal(t, []Record{{"id": "a"}, {"id": "b"}, {}}, r.List("items"))
	assert.Equal(t, []Record{{"id": "r"}}, r.List("null", "records"))
}

func TestDecode_KeepsNumbersExact(t *testing.T) {
	v, err := Decode([]byte(`{"id": 12345678901234567, "capacity": 30}`))
	require.NoError(t, err)
	rec := Record(v.(map[string]interface{}))
	assert.Equal(t, "12345678901234567", rec.ID("id"))
	assert.Equal(t, 30, rec.Int("capacity"))

	_, err = Decode([]byte(`{"id": `))
	assert.Error(t, err)
}
