package core

import (
	"reflect"
	"testing"
)

func TestCoerceCell(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		coerce bool
		want   Value
	}{
		{name: "positive integer", input: "30", coerce: true, want: NumberValue(30)},
		{name: "zero", input: "0", coerce: true, want: NumberValue(0)},
		{name: "negative integer", input: "-456", coerce: true, want: NumberValue(-456)},
		{name: "max int64", input: "9223372036854775807", coerce: true, want: NumberValue(9223372036854775807)},

		// Stay strings so they render back unchanged
		{name: "leading zero", input: "007", coerce: true, want: StringValue("007")},
		{name: "negative zero", input: "-0", coerce: true, want: StringValue("-0")},
		{name: "plus sign", input: "+3", coerce: true, want: StringValue("+3")},
		{name: "decimal", input: "1.50", coerce: true, want: StringValue("1.50")},
		{name: "exponent", input: "1e3", coerce: true, want: StringValue("1e3")},
		{name: "surrounding space", input: " 12", coerce: true, want: StringValue(" 12")},
		{name: "thousands separator", input: "1,000", coerce: true, want: StringValue("1,000")},
		{name: "overflow", input: "9223372036854775808", coerce: true, want: StringValue("9223372036854775808")},
		{name: "text", input: "Alice", coerce: true, want: StringValue("Alice")},

		{name: "empty is empty string", input: "", coerce: true, want: StringValue("")},
		{name: "coercion disabled", input: "30", coerce: false, want: StringValue("30")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CoerceCell(tt.input, tt.coerce)
			if got != tt.want {
				t.Errorf("CoerceCell(%q, %v) = %#v, want %#v", tt.input, tt.coerce, got, tt.want)
			}
			if got.Text() != tt.input {
				t.Errorf("CoerceCell(%q).Text() = %q, want the original text", tt.input, got.Text())
			}
		})
	}
}

func TestNormalizeHeader(t *testing.T) {
	tests := []struct {
		name  string
		input []string
		want  []string
	}{
		{
			name:  "already clean",
			input: []string{"name", "age"},
			want:  []string{"name", "age"},
		},
		{
			name:  "trims whitespace",
			input: []string{" name ", "\tage"},
			want:  []string{"name", "age"},
		},
		{
			name:  "blank names get positions",
			input: []string{"id", "", "  "},
			want:  []string{"id", "column_2", "column_3"},
		},
		{
			name:  "duplicates get suffixes",
			input: []string{"a", "a", "a"},
			want:  []string{"a", "a_1", "a_2"},
		},
		{
			name:  "suffix skips taken names",
			input: []string{"a", "a_1", "a"},
			want:  []string{"a", "a_1", "a_2"},
		},
		{
			name:  "duplicates after trimming",
			input: []string{"x", " x"},
			want:  []string{"x", "x_1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeHeader(tt.input)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("NormalizeHeader(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestIsBlankRow(t *testing.T) {
	tests := []struct {
		name string
		row  []string
		raw  string
		want bool
	}{
		{name: "whitespace line", row: []string{"  \t"}, raw: "  \t\n", want: true},
		{name: "carriage return only", row: []string{""}, raw: "\r\n", want: true},
		{name: "quoted empty cell", row: []string{""}, raw: "\"\"\n", want: false},
		{name: "quoted spaces", row: []string{"  "}, raw: "\"  \"\n", want: false},
		{name: "delimiters only", row: []string{"", ""}, raw: ",\n", want: false},
		{name: "data", row: []string{"x"}, raw: "x\n", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isBlankRow(tt.row, []byte(tt.raw)); got != tt.want {
				t.Errorf("isBlankRow(%q, %q) = %v, want %v", tt.row, tt.raw, got, tt.want)
			}
		})
	}
}
