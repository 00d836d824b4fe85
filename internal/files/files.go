// Package files stores uploaded guía documents on local disk. The
// stored reference is an opaque name inside the configured directory,
// never the client-supplied filename.
package files

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

type Store interface {
	Save(r io.Reader, originalName string) (string, error)
	Open(ref string) (io.ReadCloser, error)
	Remove(ref string) error
}

type LocalStore struct {
	Dir string
}

func NewLocalStore(dir string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage dir: %w", err)
	}
	return &LocalStore{Dir: dir}, nil
}

// Save copies the upload into the store under a generated name,
// keeping only the original extension.
func (s *LocalStore) Save(r io.Reader, originalName string) (string, error) {
	ext := strings.ToLower(filepath.Ext(originalName))
	ref := uuid.New().String() + ext

	f, err := os.Create(filepath.Join(s.Dir, ref))
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}

	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(filepath.Join(s.Dir, ref))
		return "", fmt.Errorf("failed to write file: %w", err)
	}

	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to close file: %w", err)
	}
	return ref, nil
}

func (s *LocalStore) Open(ref string) (io.ReadCloser, error) {
	return os.Open(filepath.Join(s.Dir, filepath.Base(ref)))
}

// Remove deletes the stored blob. A missing file is not an error so
// that a retried delete can still clean up the database row.
func (s *LocalStore) Remove(ref string) error {
	err := os.Remove(filepath.Join(s.Dir, filepath.Base(ref)))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove file: %w", err)
	}
	return nil
}
