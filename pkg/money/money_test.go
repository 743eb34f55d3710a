package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDecimal(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		european bool
		want     string
		wantErr  bool
	}{
		{"plain", "45.00", false, "45", false},
		{"negative", "-12.34", false, "-12.34", false},
		{"explicit plus", "+12.34", false, "12.34", false},
		{"parenthesized negative", "(99.95)", false, "-99.95", false},
		{"us thousands", "1,234.56", false, "1234.56", false},
		{"european decimal", "4,50", true, "4.5", false},
		{"european thousands", "1.234,56", true, "1234.56", false},
		{"currency symbol", "€ 20,00", true, "20", false},
		{"dollar symbol", "$1,000.00", false, "1000", false},
		{"empty", "", false, "", true},
		{"whitespace only", "   ", false, "", true},
		{"garbage", "n/a", false, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDecimal(tt.raw, tt.european)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			want, err := decimal.NewFromString(tt.want)
			require.NoError(t, err)
			assert.True(t, got.Equal(want), "got %s, want %s", got, want)
		})
	}
}

func TestFromDecimal(t *testing.T) {
	t.Run("two-decimal currency", func(t *testing.T) {
		d := decimal.RequireFromString("12.34")
		a := FromDecimal(d, EUR)
		assert.Equal(t, int64(1234), a.MinorUnits)
		assert.Equal(t, EUR, a.Currency)
	})

	t.Run("zero-decimal currency", func(t *testing.T) {
		d := decimal.RequireFromString("1500")
		a := FromDecimal(d, "JPY")
		assert.Equal(t, int64(1500), a.MinorUnits)
	})

	t.Run("rounds half up", func(t *testing.T) {
		d := decimal.RequireFromString("0.005")
		a := FromDecimal(d, EUR)
		assert.Equal(t, int64(1), a.MinorUnits)
	})
}

func TestDecimalRoundTrip(t *testing.T) {
	a := New(4550, EUR)
	assert.Equal(t, "45.5", a.Decimal().String())
	assert.Equal(t, a, FromDecimal(a.Decimal(), EUR))
}

func TestIsValidCurrency(t *testing.T) {
	assert.True(t, IsValidCurrency("EUR"))
	assert.True(t, IsValidCurrency("usd"))
	assert.False(t, IsValidCurrency("XXZ"))
	assert.False(t, IsValidCurrency(""))
}
