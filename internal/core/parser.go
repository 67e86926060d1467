package core

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"
)

// ContextCheckInterval is how often (in rows) Parse checks for cancellation.
var ContextCheckInterval = 100

// CSVMediaType is the only declared type accepted without a .csv name.
const CSVMediaType = "text/csv"

// ExtraFieldPolicy decides what happens to rows longer than the header.
type ExtraFieldPolicy string

const (
	// ExtraFieldsTruncate drops the surplus fields and counts the row.
	ExtraFieldsTruncate ExtraFieldPolicy = "truncate"
	// ExtraFieldsReject fails the whole parse.
	ExtraFieldsReject ExtraFieldPolicy = "reject"
)

// ParseOptions controls how delimited text becomes a Dataset.
type ParseOptions struct {
	// Delimiter separates fields. Zero means detect from the header line.
	Delimiter rune

	// CoerceNumbers turns canonical integers into numbers.
	CoerceNumbers bool

	// LazyQuotes tolerates quotes in unquoted fields and stray quotes in quoted ones.
	LazyQuotes bool

	// ExtraFields is the policy for rows with more fields than the header.
	ExtraFields ExtraFieldPolicy

	// MaxFileSize caps the input size in bytes; <= 0 means no cap.
	MaxFileSize int64
}

// DefaultParseOptions returns the options used when nothing is configured.
func DefaultParseOptions() ParseOptions {
	return ParseOptions{
		CoerceNumbers: true,
		ExtraFields:   ExtraFieldsTruncate,
		MaxFileSize:   10 << 20,
	}
}

// Source is a file offered for conversion, whatever produced it
// (form field, drag and drop, local path).
type Source interface {
	Name() string
	ContentType() string
	Open() (io.ReadCloser, error)
}

// ValidateSource accepts a source whose declared media type is text/csv or
// whose name ends in .csv (both case-insensitive). Content is not read.
func ValidateSource(src Source) error {
	if src == nil {
		return fmt.Errorf("%w: no file provided", ErrInvalidFormat)
	}
	if strings.EqualFold(filepath.Ext(src.Name()), ".csv") {
		return nil
	}
	if mt, _, err := mime.ParseMediaType(src.ContentType()); err == nil && mt == CSVMediaType {
		return nil
	}
	return fmt.Errorf("%w: %q (%s) is not a csv file", ErrInvalidFormat, src.Name(), src.ContentType())
}

// ParseSource validates src, reads it and parses the content.
// See Parse for the result contract.
func ParseSource(ctx context.Context, src Source, opts ParseOptions) (*Dataset, ParseStats, error) {
	if err := ValidateSource(src); err != nil {
		return nil, ParseStats{}, err
	}

	rc, err := src.Open()
	if err != nil {
		return nil, ParseStats{}, fmt.Errorf("%w: open %s: %v", ErrParseFailure, src.Name(), err)
	}
	defer rc.Close()

	data, err := readLimited(rc, opts.MaxFileSize)
	if err != nil {
		return nil, ParseStats{}, err
	}

	return Parse(ctx, data, opts)
}

// Parse converts delimited text into a Dataset.
//
// The first non-blank line is the header. Blank lines are skipped. Short
// rows are padded with nulls; long rows follow opts.ExtraFields.
//
// When there are no data rows the returned error wraps ErrEmptyResult and
// the returned Dataset is non-nil and empty. Any other error wraps
// ErrParseFailure and the Dataset is nil.
func Parse(ctx context.Context, data []byte, opts ParseOptions) (*Dataset, ParseStats, error) {
	data = sanitizeUTF8(stripBOM(data))

	delim := opts.Delimiter
	if delim == 0 {
		delim = DetectDelimiter(data)
	}
	stats := ParseStats{Delimiter: delim}
	stats.Lines, stats.BlankLines = countLines(data)

	r := csv.NewReader(bytes.NewReader(data))
	r.Comma = delim
	r.FieldsPerRecord = -1
	r.LazyQuotes = opts.LazyQuotes

	var header []string
	var rows [][]Value

	for i := 0; ; i++ {
		if i%ContextCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, stats, fmt.Errorf("%w: cancelled: %w", ErrParseFailure, err)
			}
		}

		start := r.InputOffset()
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, stats, fmt.Errorf("%w: %v", ErrParseFailure, err)
		}
		if isBlankRow(rec, data[start:r.InputOffset()]) {
			continue
		}
		if header == nil {
			header = NormalizeHeader(rec)
			continue
		}

		if len(rec) > len(header) {
			if opts.ExtraFields == ExtraFieldsReject {
				line, _ := r.FieldPos(0)
				return nil, stats, fmt.Errorf("%w: line %d has %d fields, header has %d",
					ErrParseFailure, line, len(rec), len(header))
			}
			stats.TruncatedRows++
			rec = rec[:len(header)]
		} else if len(rec) < len(header) {
			stats.PaddedRows++
		}

		values := make([]Value, len(header))
		for j := range header {
			if j < len(rec) {
				values[j] = CoerceCell(rec[j], opts.CoerceNumbers)
			} else {
				values[j] = NullValue()
			}
		}
		rows = append(rows, values)
	}

	ds, err := NewDataset(header, rows)
	if err != nil {
		return nil, stats, fmt.Errorf("%w: %v", ErrParseFailure, err)
	}
	stats.Rows = ds.Len()

	if ds.IsEmpty() {
		return ds, stats, fmt.Errorf("%w: %d columns, no data rows", ErrEmptyResult, len(header))
	}
	return ds, stats, nil
}

// countLines returns the number of physical lines and how many of them are
// blank. Line breaks inside quoted fields do not end a line.
func countLines(data []byte) (lines, blank int) {
	if len(data) == 0 {
		return 0, 0
	}
	inQuotes, onlySpace := false, true
	for _, c := range data {
		switch {
		case c == '"':
			inQuotes = !inQuotes
			onlySpace = false
		case c == '\n' && !inQuotes:
			lines++
			if onlySpace {
				blank++
			}
			onlySpace = true
		case c != ' ' && c != '\t' && c != '\r':
			onlySpace = false
		}
	}
	if data[len(data)-1] != '\n' {
		lines++
		if onlySpace {
			blank++
		}
	}
	return lines, blank
}

// delimiterCandidates in tie-break order.
var delimiterCandidates = []rune{',', ';', '\t', '|'}

// DetectDelimiter picks the candidate that occurs most often outside quotes
// on the first non-blank line. Falls back to ','.
func DetectDelimiter(data []byte) rune {
	line := firstNonBlankLine(data)

	counts := make(map[rune]int, len(delimiterCandidates))
	inQuotes := false
	for _, c := range line {
		if c == '"' {
			inQuotes = !inQuotes
			continue
		}
		if !inQuotes {
			counts[c]++
		}
	}

	best, bestCount := ',', 0
	for _, d := range delimiterCandidates {
		if counts[d] > bestCount {
			best, bestCount = d, counts[d]
		}
	}
	return best
}

func firstNonBlankLine(data []byte) string {
	for len(data) > 0 {
		var line []byte
		if i := bytes.IndexByte(data, '\n'); i >= 0 {
			line, data = data[:i], data[i+1:]
		} else {
			line, data = data, nil
		}
		if s := strings.TrimSpace(string(line)); s != "" {
			return s
		}
	}
	return ""
}

// ParseDelimiter converts a configured delimiter name into a rune.
// "auto" and "" mean detection (zero rune); "tab" and `\t` mean a tab.
func ParseDelimiter(s string) (rune, error) {
	switch strings.ToLower(s) {
	case "", "auto":
		return 0, nil
	case "tab", `\t`:
		return '\t', nil
	}

	rs := []rune(s)
	if len(rs) != 1 || rs[0] == '"' || rs[0] == '\r' || rs[0] == '\n' {
		return 0, fmt.Errorf("invalid delimiter %q", s)
	}
	return rs[0], nil
}
