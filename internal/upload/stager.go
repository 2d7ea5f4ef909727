package upload

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/afero"
)

// Stager copies incoming parts to a filesystem so candidates outlive the
// request that delivered them.
type Stager struct {
	fs  afero.Fs
	dir string
}

func NewStager(fs afero.Fs, dir string) (*Stager, error) {
	if err := fs.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create staging dir: %w", err)
	}
	return &Stager{fs: fs, dir: dir}, nil
}

// ErrStageLimit is returned by StageLimited when the content runs past its limit.
var ErrStageLimit = errors.New("staged content exceeds limit")

// Stage writes r to a fresh staging file.
func (s *Stager) Stage(name, mediaType string, r io.Reader) (FileRef, error) {
	return s.stage(name, mediaType, r, -1)
}

// StageLimited is Stage that stops reading one byte past limit. Content
// longer than limit is discarded and ErrStageLimit returned.
func (s *Stager) StageLimited(name, mediaType string, r io.Reader, limit int64) (FileRef, error) {
	if limit < 0 {
		limit = 0
	}
	return s.stage(name, mediaType, r, limit)
}

func (s *Stager) stage(name, mediaType string, r io.Reader, limit int64) (FileRef, error) {
	path := filepath.Join(s.dir, uuid.New().String())

	f, err := s.fs.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return nil, fmt.Errorf("create staging file: %w", err)
	}

	if limit >= 0 {
		r = io.LimitReader(r, limit+1)
	}
	n, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err == nil && limit >= 0 && n > limit {
		err = ErrStageLimit
	}
	if err != nil {
		_ = s.fs.Remove(path)
		if errors.Is(err, ErrStageLimit) {
			return nil, err
		}
		return nil, fmt.Errorf("write staging file: %w", err)
	}

	return &stagedFile{fs: s.fs, path: path, name: name, mediaType: mediaType, size: n}, nil
}

// Adopt wraps an existing file without copying it. Release leaves it in place.
func (s *Stager) Adopt(path, mediaType string) (FileRef, error) {
	info, err := s.fs.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}
	return &stagedFile{fs: s.fs, path: path, name: filepath.Base(path), mediaType: mediaType, size: info.Size(), borrowed: true}, nil
}

type stagedFile struct {
	fs        afero.Fs
	path      string
	name      string
	mediaType string
	size      int64
	borrowed  bool
}

func (f *stagedFile) Name() string      { return f.name }
func (f *stagedFile) MediaType() string { return f.mediaType }
func (f *stagedFile) Size() int64       { return f.size }

func (f *stagedFile) Open() (io.ReadCloser, error) {
	return f.fs.Open(f.path)
}

func (f *stagedFile) Release() error {
	if f.borrowed {
		return nil
	}
	return f.fs.Remove(f.path)
}
