// Package storage provides file storage for uploaded statement files.
// A file outlives its preview session so the original statement can be
// downloaded alongside the import history; the session sweep removes
// files whose preview expired uncommitted, and the nightly purge ages
// the rest out with their jobs. Metadata lives in the user_files
// table, not here.
package storage

import (
	"context"
	"io"

	"github.com/google/uuid"
)

// Storage persists raw statement files keyed by owner and file ID.
type Storage interface {
	// Save stores the file bytes and returns the internal path and size.
	Save(ctx context.Context, userID, fileID uuid.UUID, r io.Reader) (path string, size int64, err error)

	// Open returns a reader for a previously saved file.
	Open(ctx context.Context, userID, fileID uuid.UUID) (io.ReadCloser, error)

	// Delete removes a saved file. Deleting a missing file is not an error.
	Delete(ctx context.Context, userID, fileID uuid.UUID) error
}
