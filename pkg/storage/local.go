package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// LocalStorage implements Storage on the local filesystem.
// Layout: <root>/<userID>/<fileID>
type LocalStorage struct {
	root string
}

// NewLocalStorage creates the root directory if needed.
func NewLocalStorage(root string) (*LocalStorage, error) {
	if root == "" {
		return nil, fmt.Errorf("storage root is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage root: %w", err)
	}
	return &LocalStorage{root: root}, nil
}

func (s *LocalStorage) Save(_ context.Context, userID, fileID uuid.UUID, r io.Reader) (string, int64, error) {
	dir := filepath.Join(s.root, userID.String())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", 0, fmt.Errorf("failed to create user dir: %w", err)
	}

	path := filepath.Join(dir, fileID.String())
	f, err := os.Create(path)
	if err != nil {
		return "", 0, fmt.Errorf("failed to create file: %w", err)
	}

	size, err := io.Copy(f, r)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(path)
		return "", 0, fmt.Errorf("failed to write file: %w", err)
	}
	return path, size, nil
}

func (s *LocalStorage) Open(_ context.Context, userID, fileID uuid.UUID) (io.ReadCloser, error) {
	f, err := os.Open(filepath.Join(s.root, userID.String(), fileID.String()))
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	return f, nil
}

func (s *LocalStorage) Delete(_ context.Context, userID, fileID uuid.UUID) error {
	err := os.Remove(filepath.Join(s.root, userID.String(), fileID.String()))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}
