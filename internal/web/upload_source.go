package web

import (
	"io"
	"mime/multipart"
)

// uploadSource adapts a multipart file part to core.Source.
type uploadSource struct {
	file   multipart.File
	header *multipart.FileHeader
}

func (u uploadSource) Name() string { return u.header.Filename }

func (u uploadSource) ContentType() string { return u.header.Header.Get("Content-Type") }

// Open rewinds the part; the handler owns and closes the file.
func (u uploadSource) Open() (io.ReadCloser, error) {
	if _, err := u.file.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	return io.NopCloser(u.file), nil
}
