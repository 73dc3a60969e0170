package cache

import (
	"encoding/gob"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"

	"crop-stress-lab/internal/domain"
	"crop-stress-lab/internal/gridio"
)

// File name suffixes.
const (
	ResponseSuffix = "_response.nc"
	BundleSuffix   = "_metrics.bundle"
)

// FileStore keeps response fields as NetCDF and bundles as zstd-compressed gob
// under one directory. Removing a file invalidates its entry.
type FileStore struct {
	dir string
}

// NewFileStore creates dir if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// ResponsePath returns the response file of key.
func (s *FileStore) ResponsePath(key Key) string {
	return filepath.Join(s.dir, key.String()+ResponseSuffix)
}

// BundlePath returns the bundle file of key.
func (s *FileStore) BundlePath(key Key) string {
	return filepath.Join(s.dir, key.String()+BundleSuffix)
}

// LoadResponse reads a cached response field.
func (s *FileStore) LoadResponse(key Key) (*domain.ResponseField, error) {
	path := s.ResponsePath(key)
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil, ErrMiss
	}
	return gridio.ReadResponse(path)
}

// SaveResponse writes a response field.
func (s *FileStore) SaveResponse(key Key, r *domain.ResponseField) error {
	path := s.ResponsePath(key)
	tmp := path + ".tmp"
	if err := gridio.WriteResponse(tmp, r); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

// LoadBundle reads a cached stress bundle.
func (s *FileStore) LoadBundle(key Key) (*domain.StressBundle, error) {
	f, err := os.Open(s.BundlePath(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("zstd reader: %w", err)
	}
	defer dec.Close()

	var b domain.StressBundle
	if err := gob.NewDecoder(dec).Decode(&b); err != nil {
		return nil, fmt.Errorf("decode bundle %s: %w", key, err)
	}
	return &b, nil
}

// SaveBundle writes a stress bundle.
func (s *FileStore) SaveBundle(key Key, b *domain.StressBundle) error {
	path := s.BundlePath(key)
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}

	err = writeBundle(f, b)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp)
		return fmt.Errorf("encode bundle %s: %w", key, err)
	}
	return os.Rename(tmp, path)
}

func writeBundle(f *os.File, b *domain.StressBundle) error {
	enc, err := zstd.NewWriter(f)
	if err != nil {
		return err
	}
	if err := gob.NewEncoder(enc).Encode(b); err != nil {
		enc.Close()
		return err
	}
	return enc.Close()
}

var _ Store = (*FileStore)(nil)
