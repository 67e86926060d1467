package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"

	"github.com/JonMunkholm/csvconvert/internal/core"
)

// EncodeJSON writes the records as an array of objects, keys in column
// order, indented by two spaces, with a trailing newline.
func EncodeJSON(ds *core.Dataset, _ Options) ([]byte, error) {
	records := ds.Records()
	if records == nil {
		records = []core.Record{}
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// DecodeJSON reads what EncodeJSON wrote. Object keys must appear in the
// same order in every record; that order becomes the column order.
func DecodeJSON(data []byte) (*core.Dataset, error) {
	dec := json.NewDecoder(bytes.NewReader(data))

	if err := expectDelim(dec, '['); err != nil {
		return nil, err
	}

	var columns []string
	var rows [][]core.Value
	for n := 1; dec.More(); n++ {
		keys, values, err := decodeObject(dec)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", n, err)
		}
		if columns == nil {
			columns = keys
		} else if !slices.Equal(columns, keys) {
			return nil, fmt.Errorf("record %d: keys %q differ from %q", n, keys, columns)
		}
		rows = append(rows, values)
	}

	if err := expectDelim(dec, ']'); err != nil {
		return nil, err
	}
	return core.NewDataset(columns, rows)
}

func decodeObject(dec *json.Decoder) ([]string, []core.Value, error) {
	if err := expectDelim(dec, '{'); err != nil {
		return nil, nil, err
	}

	var keys []string
	var values []core.Value
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, nil, fmt.Errorf("expected key, got %v", tok)
		}

		var v core.Value
		if err := dec.Decode(&v); err != nil {
			return nil, nil, fmt.Errorf("key %q: %w", key, err)
		}
		keys = append(keys, key)
		values = append(values, v)
	}

	if err := expectDelim(dec, '}'); err != nil {
		return nil, nil, err
	}
	return keys, values, nil
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return fmt.Errorf("expected %q, got %v", want, tok)
	}
	return nil
}
