package upload

import (
	"bytes"
	"io"
)

// FileRef is an opaque byte source selected by a user.
type FileRef interface {
	Name() string
	MediaType() string
	Size() int64
	Open() (io.ReadCloser, error)
}

// Releaser is implemented by refs that own backing storage.
type Releaser interface {
	Release() error
}

type memoryFile struct {
	name      string
	mediaType string
	content   []byte
}

// NewMemoryFile wraps content already held in memory.
func NewMemoryFile(name, mediaType string, content []byte) FileRef {
	return &memoryFile{name: name, mediaType: mediaType, content: content}
}

func (m *memoryFile) Name() string      { return m.name }
func (m *memoryFile) MediaType() string { return m.mediaType }
func (m *memoryFile) Size() int64       { return int64(len(m.content)) }

func (m *memoryFile) Open() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(m.content)), nil
}
