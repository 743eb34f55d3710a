package normalizer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	t.Run("iso format", func(t *testing.T) {
		d, err := ParseDate("2024-03-15", false)
		require.NoError(t, err)
		assert.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), d)
	})

	t.Run("day first preference", func(t *testing.T) {
		d, err := ParseDate("03/04/2024", true)
		require.NoError(t, err)
		assert.Equal(t, time.April, d.Month())
		assert.Equal(t, 3, d.Day())
	})

	t.Run("month first preference", func(t *testing.T) {
		d, err := ParseDate("03/04/2024", false)
		require.NoError(t, err)
		assert.Equal(t, time.March, d.Month())
		assert.Equal(t, 4, d.Day())
	})

	t.Run("falls back across conventions", func(t *testing.T) {
		// 25 cannot be a month, so month-first preference still
		// resolves it as day-first.
		d, err := ParseDate("25/12/2024", false)
		require.NoError(t, err)
		assert.Equal(t, time.December, d.Month())
		assert.Equal(t, 25, d.Day())
	})

	t.Run("textual month", func(t *testing.T) {
		d, err := ParseDate("02-Jan-2024", true)
		require.NoError(t, err)
		assert.Equal(t, time.January, d.Month())
	})

	t.Run("surrounding whitespace", func(t *testing.T) {
		_, err := ParseDate("  2024-01-02  ", true)
		assert.NoError(t, err)
	})

	t.Run("rejects garbage", func(t *testing.T) {
		_, err := ParseDate("not a date", true)
		assert.Error(t, err)
	})

	t.Run("rejects empty", func(t *testing.T) {
		_, err := ParseDate("", true)
		assert.Error(t, err)
	})
}

func TestLooksLikeDate(t *testing.T) {
	assert.True(t, LooksLikeDate("2024-01-02"))
	assert.True(t, LooksLikeDate("31/01/2024"))
	assert.False(t, LooksLikeDate("Grocery Store"))
	assert.False(t, LooksLikeDate("12.34"))
}

func TestParseAmount(t *testing.T) {
	t.Run("plain", func(t *testing.T) {
		d, err := ParseAmount("12.34", false)
		require.NoError(t, err)
		assert.Equal(t, "12.34", d.String())
	})

	t.Run("european", func(t *testing.T) {
		d, err := ParseAmount("1.234,56", true)
		require.NoError(t, err)
		assert.Equal(t, "1234.56", d.String())
	})

	t.Run("invalid", func(t *testing.T) {
		_, err := ParseAmount("n/a", false)
		assert.Error(t, err)
	})
}

func TestCleanDescription(t *testing.T) {
	assert.Equal(t, "COFFEE SHOP LONDON", CleanDescription("  COFFEE   SHOP\tLONDON "))
	assert.Equal(t, "", CleanDescription("   "))
}

func TestDedupDescription(t *testing.T) {
	a := DedupDescription("Coffee  Shop")
	b := DedupDescription(" COFFEE SHOP ")
	assert.Equal(t, a, b)
}
