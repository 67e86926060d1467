package core

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValue(t *testing.T) {
	assert.True(t, NullValue().IsNull())
	assert.True(t, Value{}.IsNull())
	assert.Equal(t, "", NullValue().Text())
	assert.Equal(t, "null", NullValue().String())
	assert.Nil(t, NullValue().Any())

	n := NumberValue(-42)
	assert.Equal(t, KindNumber, n.Kind())
	assert.Equal(t, int64(-42), n.Int())
	assert.Equal(t, "-42", n.Text())
	assert.Equal(t, int64(-42), n.Any())

	s := StringValue("x")
	assert.Equal(t, KindString, s.Kind())
	assert.Equal(t, "x", s.Any())
	assert.Equal(t, "string", s.Kind().String())
}

func TestValue_JSON(t *testing.T) {
	tests := []struct {
		name string
		in   Value
		json string
	}{
		{"null", NullValue(), `null`},
		{"string", StringValue(`a "b"`), `"a \"b\""`},
		{"empty string", StringValue(""), `""`},
		{"number", NumberValue(30), `30`},
		{"numeric text stays text", StringValue("007"), `"007"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := json.Marshal(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.json, string(b))

			var back Value
			require.NoError(t, json.Unmarshal(b, &back))
			assert.Equal(t, tt.in, back)
		})
	}

	var v Value
	require.NoError(t, json.Unmarshal([]byte(`1.5`), &v))
	assert.Equal(t, StringValue("1.5"), v)
	assert.Error(t, json.Unmarshal([]byte(`true`), &v))
}

func TestNewDataset(t *testing.T) {
	_, err := NewDataset([]string{"a", ""}, nil)
	assert.Error(t, err)

	_, err = NewDataset([]string{"a", "a"}, nil)
	assert.Error(t, err)

	_, err = NewDataset([]string{"a", "b"}, [][]Value{{NumberValue(1)}})
	assert.Error(t, err)

	ds, err := NewDataset([]string{"a", "b"}, [][]Value{{NumberValue(1), NullValue()}})
	require.NoError(t, err)
	assert.Equal(t, 1, ds.Len())

	v, ok := ds.Record(0).Get("b")
	assert.True(t, ok)
	assert.True(t, v.IsNull())
	_, ok = ds.Record(0).Get("c")
	assert.False(t, ok)
}

func TestDataset_Immutable(t *testing.T) {
	cols := []string{"a"}
	row := []Value{StringValue("x")}
	ds, err := NewDataset(cols, [][]Value{row})
	require.NoError(t, err)

	cols[0] = "changed"
	row[0] = StringValue("changed")
	ds.Columns()[0] = "changed"
	ds.Record(0).Values()[0] = StringValue("changed")

	assert.Equal(t, []string{"a"}, ds.Columns())
	assert.Equal(t, StringValue("x"), ds.Record(0).At(0))
}

func TestDataset_Nil(t *testing.T) {
	var ds *Dataset
	assert.Equal(t, 0, ds.Len())
	assert.True(t, ds.IsEmpty())
	assert.Nil(t, ds.Columns())
	assert.Nil(t, ds.Records())
	assert.Nil(t, ds.Slice(0, 10))
}

func TestDataset_Slice(t *testing.T) {
	ds := numberedDataset(t, 5)

	assert.Len(t, ds.Slice(1, 3), 2)
	assert.Len(t, ds.Slice(3, 100), 2)
	assert.Nil(t, ds.Slice(7, 9))
	assert.Nil(t, ds.Slice(3, 1))
	assert.Len(t, ds.Slice(-5, 2), 2)
}
