// Package export serializes a core.Dataset into downloadable formats.
//
// Formats register themselves at init time. Every encoder is a pure
// function of the dataset and options, so callers may run them
// concurrently on the same snapshot.
package export

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/JonMunkholm/csvconvert/internal/core"
)

// ErrUnknownFormat is returned for a key no format is registered under.
var ErrUnknownFormat = errors.New("unknown format")

// EncodeFunc turns a non-empty dataset into file contents.
type EncodeFunc func(ds *core.Dataset, opts Options) ([]byte, error)

// Format describes one output format.
type Format struct {
	Key         string // url-safe identifier, e.g. "xlsx"
	Label       string // button text
	FileName    string // download name
	ContentType string
	Order       int // display order
	Encode      EncodeFunc
}

// Options tune encoders that have choices to make.
type Options struct {
	XMLNames NamePolicy
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return Options{XMLNames: NamesSanitize}
}

// Artifact is a rendered file ready to be written or downloaded.
type Artifact struct {
	Format Format
	Data   []byte
}

// FileName returns the download name.
func (a *Artifact) FileName() string { return a.Format.FileName }

// ContentType returns the media type.
func (a *Artifact) ContentType() string { return a.Format.ContentType }

var (
	registry   = make(map[string]Format)
	registryMu sync.RWMutex
)

// Register adds a format. Panics if the key is taken or Encode is nil.
func Register(f Format) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if f.Encode == nil {
		panic(fmt.Sprintf("format %s has no encoder", f.Key))
	}
	if _, exists := registry[f.Key]; exists {
		panic(fmt.Sprintf("format already registered: %s", f.Key))
	}
	registry[f.Key] = f
}

// Get returns a format by key.
func Get(key string) (Format, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	f, ok := registry[key]
	return f, ok
}

// All returns every registered format in display order.
func All() []Format {
	registryMu.RLock()
	defer registryMu.RUnlock()

	result := make([]Format, 0, len(registry))
	for _, f := range registry {
		result = append(result, f)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Order != result[j].Order {
			return result[i].Order < result[j].Order
		}
		return result[i].Key < result[j].Key
	})

	return result
}

// Keys returns the registered keys in display order.
func Keys() []string {
	all := All()
	keys := make([]string, len(all))
	for i, f := range all {
		keys[i] = f.Key
	}
	return keys
}

// Render encodes ds in the format registered under key.
// A nil or empty dataset yields no artifact and no error.
func Render(key string, ds *core.Dataset, opts Options) (*Artifact, error) {
	f, ok := Get(key)
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownFormat, key)
	}
	if ds.IsEmpty() {
		return nil, nil
	}

	data, err := f.Encode(ds, opts)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", key, err)
	}
	return &Artifact{Format: f, Data: data}, nil
}

func init() {
	Register(Format{
		Key:         "json",
		Label:       "JSON",
		FileName:    "converted.json",
		ContentType: "application/json",
		Order:       1,
		Encode:      EncodeJSON,
	})
	Register(Format{
		Key:         "xlsx",
		Label:       "Excel",
		FileName:    "converted.xlsx",
		ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		Order:       2,
		Encode:      EncodeXLSX,
	})
	Register(Format{
		Key:         "xml",
		Label:       "XML",
		FileName:    "converted.xml",
		ContentType: "application/xml",
		Order:       3,
		Encode:      EncodeXML,
	})
	Register(Format{
		Key:         "parquet",
		Label:       "Parquet",
		FileName:    "converted.parquet",
		ContentType: "application/vnd.apache.parquet",
		Order:       4,
		Encode:      EncodeParquet,
	})
}
