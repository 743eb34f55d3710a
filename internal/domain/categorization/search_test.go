package categorization

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPopulatedIndex(t *testing.T) *SimilarityIndex {
	t.Helper()
	index, err := NewSimilarityIndex()
	require.NoError(t, err)
	t.Cleanup(func() { _ = index.Close() })

	err = index.Index([]SimilarDocument{
		{ID: "1", Description: "STARBUCKS STORE 0123"},
		{ID: "2", Description: "STARBUCKS STORE 0456"},
		{ID: "3", Description: "ELECTRIC COMPANY DIRECT DEBIT"},
		{ID: "4", Description: "PINGO DOCE ALVALADE"},
	})
	require.NoError(t, err)
	return index
}

func TestSimilarityIndex(t *testing.T) {
	t.Run("finds variations of the same merchant", func(t *testing.T) {
		index := newPopulatedIndex(t)

		hits, err := index.FindSimilar("STARBUCKS STORE 0999", 10)
		require.NoError(t, err)

		ids := make(map[string]bool)
		for _, hit := range hits {
			ids[hit.ID] = true
		}
		assert.True(t, ids["1"])
		assert.True(t, ids["2"])
		assert.False(t, ids["3"])
	})

	t.Run("tolerates a typo", func(t *testing.T) {
		index := newPopulatedIndex(t)

		hits, err := index.FindSimilar("PINGO DOC ALVALADE", 10)
		require.NoError(t, err)
		require.NotEmpty(t, hits)
		assert.Equal(t, "4", hits[0].ID)
	})

	t.Run("no hits for unrelated query", func(t *testing.T) {
		index := newPopulatedIndex(t)

		hits, err := index.FindSimilar("ZZZZ QQQQ", 10)
		require.NoError(t, err)
		assert.Empty(t, hits)
	})

	t.Run("respects limit", func(t *testing.T) {
		index := newPopulatedIndex(t)

		hits, err := index.FindSimilar("STARBUCKS STORE", 1)
		require.NoError(t, err)
		assert.Len(t, hits, 1)
	})
}
