package config

import (
	"github.com/JonMunkholm/csvconvert/internal/core"
	"github.com/JonMunkholm/csvconvert/internal/export"
)

// ParseOptions converts the convert and upload settings into parser options.
// Call after Validate; an invalid delimiter falls back to detection.
func (c *Config) ParseOptions() core.ParseOptions {
	delim, _ := core.ParseDelimiter(c.Convert.Delimiter)
	return core.ParseOptions{
		Delimiter:     delim,
		CoerceNumbers: c.Convert.CoerceNumbers,
		LazyQuotes:    c.Convert.LazyQuotes,
		ExtraFields:   core.ExtraFieldPolicy(c.Convert.ExtraFields),
		MaxFileSize:   c.Upload.MaxFileSize,
	}
}

// ExportOptions returns the serializer options.
func (c *Config) ExportOptions() export.Options {
	return export.Options{XMLNames: export.NamePolicy(c.Convert.XMLNames)}
}
