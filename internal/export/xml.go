package export

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/JonMunkholm/csvconvert/internal/core"
)

// ErrInvalidElementName is returned under NamesReject for a column name
// that cannot be an XML element name.
var ErrInvalidElementName = errors.New("invalid element name")

// NamePolicy decides what happens to column names that are not valid
// XML element names.
type NamePolicy string

const (
	// NamesSanitize rewrites invalid names into valid, unique ones.
	NamesSanitize NamePolicy = "sanitize"
	// NamesReject fails the export.
	NamesReject NamePolicy = "reject"
)

// EncodeXML writes
//
//	<?xml version="1.0" encoding="UTF-8"?>
//	<root>
//	  <record id="1">
//	    <name>Alice</name>
//	  </record>
//	</root>
//
// with one child per column in order. Nulls are empty elements.
func EncodeXML(ds *core.Dataset, opts Options) ([]byte, error) {
	names, err := ElementNames(ds.Columns(), opts.XMLNames)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.WriteString(xml.Header)

	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")

	root := xml.StartElement{Name: xml.Name{Local: "root"}}
	if err := enc.EncodeToken(root); err != nil {
		return nil, err
	}

	for i, rec := range ds.Records() {
		start := xml.StartElement{
			Name: xml.Name{Local: "record"},
			Attr: []xml.Attr{{Name: xml.Name{Local: "id"}, Value: strconv.Itoa(i + 1)}},
		}
		if err := enc.EncodeToken(start); err != nil {
			return nil, err
		}
		for j, name := range names {
			if err := encodeField(enc, name, rec.At(j)); err != nil {
				return nil, err
			}
		}
		if err := enc.EncodeToken(start.End()); err != nil {
			return nil, err
		}
	}

	if err := enc.EncodeToken(root.End()); err != nil {
		return nil, err
	}
	if err := enc.Flush(); err != nil {
		return nil, err
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

func encodeField(enc *xml.Encoder, name string, v core.Value) error {
	el := xml.StartElement{Name: xml.Name{Local: name}}
	if err := enc.EncodeToken(el); err != nil {
		return err
	}
	if !v.IsNull() {
		if err := enc.EncodeToken(xml.CharData(v.Text())); err != nil {
			return err
		}
	}
	return enc.EncodeToken(el.End())
}

// ElementNames maps column names to element names under policy.
// An empty policy means NamesSanitize.
func ElementNames(columns []string, policy NamePolicy) ([]string, error) {
	names := make([]string, len(columns))

	if policy == NamesReject {
		for i, c := range columns {
			if !validElementName(c) {
				return nil, fmt.Errorf("%w %q", ErrInvalidElementName, c)
			}
			names[i] = c
		}
		return names, nil
	}

	// Valid names keep priority so that sanitized ones never steal them.
	taken := make(map[string]bool, len(columns))
	for _, c := range columns {
		if validElementName(c) {
			taken[c] = true
		}
	}

	for i, c := range columns {
		if validElementName(c) {
			names[i] = c
			continue
		}
		name := sanitizeElementName(c)
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
		names[i] = name
	}
	return names, nil
}

// validElementName reports whether s is a colon-free XML name that does
// not start with the reserved "xml" prefix.
func validElementName(s string) bool {
	if s == "" || hasXMLPrefix(s) {
		return false
	}
	for i, r := range s {
		if i == 0 && !isNameStart(r) {
			return false
		}
		if !isNameChar(r) {
			return false
		}
	}
	return true
}

func sanitizeElementName(s string) string {
	var b strings.Builder
	for _, r := range s {
		if isNameChar(r) {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}

	out := b.String()
	if out == "" {
		return "_"
	}
	first, _ := utf8.DecodeRuneInString(out)
	if !isNameStart(first) || hasXMLPrefix(out) {
		out = "_" + out
	}
	return out
}

func isNameStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isNameChar(r rune) bool {
	return isNameStart(r) || unicode.IsDigit(r) || r == '-' || r == '.' ||
		unicode.Is(unicode.Mn, r) || unicode.Is(unicode.Mc, r)
}

func hasXMLPrefix(s string) bool {
	return len(s) >= 3 && strings.EqualFold(s[:3], "xml")
}
