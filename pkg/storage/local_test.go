package storage

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorage_RoundTrip(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()
	userID := uuid.New()
	fileID := uuid.New()

	path, size, err := store.Save(ctx, userID, fileID, strings.NewReader("date,amount\n2024-01-01,4.50\n"))
	require.NoError(t, err)
	assert.NotEmpty(t, path)
	assert.Equal(t, int64(28), size)

	r, err := store.Open(ctx, userID, fileID)
	require.NoError(t, err)
	defer r.Close()

	data, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "date,amount\n2024-01-01,4.50\n", string(data))

	require.NoError(t, store.Delete(ctx, userID, fileID))
	_, err = store.Open(ctx, userID, fileID)
	assert.Error(t, err)

	// Deleting again is fine.
	assert.NoError(t, store.Delete(ctx, userID, fileID))
}

func TestLocalStorage_RequiresRoot(t *testing.T) {
	_, err := NewLocalStorage("")
	assert.Error(t, err)
}
