package core

// input.go prepares raw upload bytes for the CSV reader:
//
//   - readLimited: reads at most MaxFileSize bytes, failing beyond that
//   - stripBOM: removes the UTF-8 BOM (0xEF 0xBB 0xBF) written by Windows tools
//   - sanitizeUTF8: replaces invalid UTF-8 bytes with '?'
//
// Files are small by contract, so everything works on whole buffers.

import (
	"bytes"
	"fmt"
	"io"
	"unicode/utf8"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// readLimited reads all of r, failing with ErrFileTooLarge when more than
// limit bytes are available. A limit <= 0 disables the check.
func readLimited(r io.Reader, limit int64) ([]byte, error) {
	if limit <= 0 {
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("%w: read: %v", ErrParseFailure, err)
		}
		return data, nil
	}

	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read: %v", ErrParseFailure, err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%w: %w: more than %d bytes", ErrParseFailure, ErrFileTooLarge, limit)
	}
	return data, nil
}

// stripBOM removes a leading UTF-8 byte order mark.
func stripBOM(data []byte) []byte {
	return bytes.TrimPrefix(data, utf8BOM)
}

// sanitizeUTF8 replaces each invalid byte with '?'. Valid input is returned as is.
func sanitizeUTF8(data []byte) []byte {
	if utf8.Valid(data) {
		return data
	}

	out := make([]byte, 0, len(data))
	for len(data) > 0 {
		r, size := utf8.DecodeRune(data)
		if r == utf8.RuneError && size == 1 {
			out = append(out, '?')
		} else {
			out = append(out, data[:size]...)
		}
		data = data[size:]
	}
	return out
}
