// Package storage keeps uploaded files on local disk. Stored names are opaque
// and never derived from user input; the original filename lives in the
// database row pointing at the file.
package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

type FileStore struct {
	dir string
}

func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("storage.NewFileStore: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// Save streams src to a fresh file and returns its storage path. The original
// extension is kept so exported bundles stay openable.
func (s *FileStore) Save(src io.Reader, originalName string) (string, error) {
	name := uuid.NewString() + filepath.Ext(originalName)
	path := filepath.Join(s.dir, name)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("storage.FileStore.Save: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, src); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("storage.FileStore.Save: %w", err)
	}
	return path, nil
}

func (s *FileStore) Open(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("storage.FileStore.Open: %w", err)
	}
	return f, nil
}

// Remove deletes a stored file. A missing file is not an error, removal backs
// out partially saved uploads.
func (s *FileStore) Remove(path string) error {
	err := os.Remove(path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("storage.FileStore.Remove: %w", err)
	}
	return nil
}
