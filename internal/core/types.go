package core

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
)

// Kind identifies which scalar a Value holds.
type Kind uint8

const (
	KindNull Kind = iota
	KindString
	KindNumber
)

// String returns the kind name used in API responses.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	default:
		return fmt.Sprintf("kind(%d)", k)
	}
}

// Value is a single cell: a string, an integer number, or null.
// The zero Value is null.
type Value struct {
	kind Kind
	str  string
	num  int64
}

// NullValue returns the null Value.
func NullValue() Value { return Value{} }

// StringValue wraps s as a string Value.
func StringValue(s string) Value { return Value{kind: KindString, str: s} }

// NumberValue wraps n as a number Value.
func NumberValue(n int64) Value { return Value{kind: KindNumber, num: n} }

// Kind returns the kind of scalar held.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// Int returns the number held by v, or 0 for non-numbers.
func (v Value) Int() int64 { return v.num }

// Text renders the value as cell text: "" for null, decimal digits for numbers.
func (v Value) Text() string {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		return strconv.FormatInt(v.num, 10)
	default:
		return ""
	}
}

// Any returns nil, string or int64.
func (v Value) Any() any {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		return v.num
	default:
		return nil
	}
}

func (v Value) String() string {
	if v.kind == KindNull {
		return "null"
	}
	return v.Text()
}

// MarshalJSON encodes v as a JSON string, number or null.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindString:
		return json.Marshal(v.str)
	case KindNumber:
		return []byte(strconv.FormatInt(v.num, 10)), nil
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON accepts a JSON string, integer or null.
// Non-integer numbers keep their literal text as a string.
func (v *Value) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		*v = NullValue()
		return nil
	case len(b) > 0 && b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*v = StringValue(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("unsupported value %s: %w", b, err)
	}
	if i, err := n.Int64(); err == nil {
		*v = NumberValue(i)
		return nil
	}
	*v = StringValue(n.String())
	return nil
}

// Record is one row: values ordered by the dataset's columns.
// Records share their column slice with the owning Dataset.
type Record struct {
	columns []string
	values  []Value
}

// Len returns the number of columns.
func (r Record) Len() int { return len(r.values) }

// Columns returns a copy of the column names in order.
func (r Record) Columns() []string { return slices.Clone(r.columns) }

// Values returns a copy of the values in column order.
func (r Record) Values() []Value { return slices.Clone(r.values) }

// At returns the i-th value.
func (r Record) At(i int) Value { return r.values[i] }

// Get returns the value for a column name.
func (r Record) Get(column string) (Value, bool) {
	for i, c := range r.columns {
		if c == column {
			return r.values[i], true
		}
	}
	return Value{}, false
}

// MarshalJSON encodes the record as an object with keys in column order.
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, col := range r.columns {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(col)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := r.values[i].MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Dataset is an immutable, ordered collection of records that share one
// column list. A nil *Dataset behaves as an empty dataset.
type Dataset struct {
	columns []string
	records []Record
}

// NewDataset builds a dataset from a header and rows of values.
// Column names must be non-empty and unique, and every row must have
// exactly len(columns) values.
func NewDataset(columns []string, rows [][]Value) (*Dataset, error) {
	seen := make(map[string]bool, len(columns))
	for i, c := range columns {
		if c == "" {
			return nil, fmt.Errorf("column %d has an empty name", i+1)
		}
		if seen[c] {
			return nil, fmt.Errorf("duplicate column name %q", c)
		}
		seen[c] = true
	}

	cols := slices.Clone(columns)
	records := make([]Record, len(rows))
	for i, row := range rows {
		if len(row) != len(cols) {
			return nil, fmt.Errorf("row %d has %d values, expected %d", i+1, len(row), len(cols))
		}
		records[i] = Record{columns: cols, values: slices.Clone(row)}
	}

	return &Dataset{columns: cols, records: records}, nil
}

// Columns returns a copy of the column names in header order.
func (d *Dataset) Columns() []string {
	if d == nil {
		return nil
	}
	return slices.Clone(d.columns)
}

// Len returns the number of records.
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.records)
}

// IsEmpty reports whether the dataset has no records.
func (d *Dataset) IsEmpty() bool { return d.Len() == 0 }

// Record returns the i-th record.
func (d *Dataset) Record(i int) Record { return d.records[i] }

// Records returns all records. The returned slice is a copy; the records
// themselves are read-only views.
func (d *Dataset) Records() []Record {
	if d == nil {
		return nil
	}
	return slices.Clone(d.records)
}

// Slice returns records in [start, end), clamped to the dataset bounds.
func (d *Dataset) Slice(start, end int) []Record {
	n := d.Len()
	start = max(0, min(start, n))
	end = max(start, min(end, n))
	if start == end {
		return nil
	}
	return slices.Clone(d.records[start:end])
}

// ParseStats summarises what the parser did to produce a dataset.
type ParseStats struct {
	Delimiter     rune `json:"-"`
	Lines         int  `json:"lines"`
	BlankLines    int  `json:"blank_lines"`
	Rows          int  `json:"rows"`
	PaddedRows    int  `json:"padded_rows"`
	TruncatedRows int  `json:"truncated_rows"`
}
