package storage

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ErrTooLarge is returned when a blob exceeds the store's size limit.
var ErrTooLarge = errors.New("blob exceeds size limit")

// ErrInvalidKey is returned for keys that escape the store root.
var ErrInvalidKey = errors.New("invalid blob key")

// BlobInfo describes a stored blob.
type BlobInfo struct {
	Key    string
	Size   int64
	SHA256 string
}

// BlobStore keeps evidence files on the local filesystem under a root directory.
type BlobStore struct {
	root     string
	maxBytes int64
}

// NewBlobStore creates the root directory if needed.
func NewBlobStore(root string, maxBytes int64) (*BlobStore, error) {
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("create blob dir: %w", err)
	}
	return &BlobStore{root: root, maxBytes: maxBytes}, nil
}

// MaxBytes returns the configured size limit.
func (s *BlobStore) MaxBytes() int64 {
	return s.maxBytes
}

// Put streams r into key, hashing as it writes. The file only becomes
// visible at key once fully written.
func (s *BlobStore) Put(key string, r io.Reader) (*BlobInfo, error) {
	path, err := s.path(key)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".upload-*")
	if err != nil {
		return nil, err
	}
	defer os.Remove(tmp.Name())

	hash := sha256.New()
	src := r
	if s.maxBytes > 0 {
		src = io.LimitReader(r, s.maxBytes+1)
	}
	n, err := io.Copy(io.MultiWriter(tmp, hash), src)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return nil, err
	}
	if s.maxBytes > 0 && n > s.maxBytes {
		return nil, ErrTooLarge
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return nil, err
	}
	return &BlobInfo{Key: key, Size: n, SHA256: hex.EncodeToString(hash.Sum(nil))}, nil
}

// Open returns a reader for key. The caller closes it.
func (s *BlobStore) Open(key string) (*os.File, error) {
	path, err := s.path(key)
	if err != nil {
		return nil, err
	}
	return os.Open(path)
}

// Delete removes key; a missing blob is not an error.
func (s *BlobStore) Delete(key string) error {
	path, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func (s *BlobStore) path(key string) (string, error) {
	if key == "" || strings.Contains(key, "..") || filepath.IsAbs(key) {
		return "", ErrInvalidKey
	}
	return filepath.Join(s.root, filepath.FromSlash(key)), nil
}
