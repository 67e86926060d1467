package core

// convert.go turns raw CSV cells and header names into dataset values.
//
// Coercion is deliberately narrow: only canonical integers become numbers,
// so that every number renders back to exactly the text it came from.
// "007", "1.50", "+3" and "-0" all stay strings.

import (
	"bytes"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// integerRegex matches canonical integers: no sign on zero, no leading zeros.
var integerRegex = regexp.MustCompile(`^(0|-?[1-9][0-9]*)$`)

// CoerceCell converts a raw cell to a Value. With coerce disabled every
// cell is a string. Empty cells are empty strings, never null.
func CoerceCell(raw string, coerce bool) Value {
	if !coerce || !integerRegex.MatchString(raw) {
		return StringValue(raw)
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		// out of int64 range
		return StringValue(raw)
	}
	return NumberValue(n)
}

// NormalizeHeader returns column names that are trimmed, non-empty and unique.
//
// A blank name becomes "column_N" (1-based position). A repeated name gets
// the first free "_1", "_2", ... suffix; the first occurrence keeps its name.
func NormalizeHeader(raw []string) []string {
	out := make([]string, len(raw))
	taken := make(map[string]bool, len(raw))

	for i, h := range raw {
		name := strings.TrimSpace(h)
		if name == "" {
			name = fmt.Sprintf("column_%d", i+1)
		}
		if taken[name] {
			base := name
			for k := 1; ; k++ {
				name = fmt.Sprintf("%s_%d", base, k)
				if !taken[name] {
					break
				}
			}
		}
		taken[name] = true
		out[i] = name
	}

	return out
}

// isBlankRow reports whether a CSV record came from a whitespace-only line.
// raw is the input consumed for the record. Rows that contain delimiters or
// quotes are data, even when every field is empty: `""` is one empty cell.
func isBlankRow(row []string, raw []byte) bool {
	return len(row) == 1 && len(bytes.TrimSpace(raw)) == 0
}
