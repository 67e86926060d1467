package core

import (
	"bytes"
	"io"
	"mime"
	"os"
	"path/filepath"
)

// BytesSource is an in-memory Source.
type BytesSource struct {
	name        string
	contentType string
	data        []byte
}

// NewBytesSource wraps data as a Source with the given name and media type.
func NewBytesSource(name, contentType string, data []byte) *BytesSource {
	return &BytesSource{name: name, contentType: contentType, data: data}
}

func (s *BytesSource) Name() string        { return s.name }
func (s *BytesSource) ContentType() string { return s.contentType }

func (s *BytesSource) Open() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(s.data)), nil
}

// FileSource is a Source backed by a path on disk. The media type is
// guessed from the extension and may be empty.
type FileSource struct {
	path string
}

// NewFileSource returns a Source for path. The file is opened lazily.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

func (s *FileSource) Name() string { return filepath.Base(s.path) }

func (s *FileSource) ContentType() string {
	return mime.TypeByExtension(filepath.Ext(s.path))
}

func (s *FileSource) Open() (io.ReadCloser, error) {
	return os.Open(s.path)
}
