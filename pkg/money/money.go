// Package money provides currency-safe amount handling using integer minor
// units. Parsing goes through shopspring/decimal for precision; currency
// metadata (fraction digits, formatting) comes from go-money.
package money

import (
	"fmt"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// Common currency codes (ISO-4217)
const (
	USD = "USD"
	EUR = "EUR"
	GBP = "GBP"
)

var currencySymbols = []string{"$", "€", "£", "R$", "¥", "₹", "USD", "EUR", "GBP"}

// Amount is a monetary value in minor units with its currency code.
type Amount struct {
	MinorUnits int64
	Currency   string
}

// New creates an Amount from minor units and a currency code.
func New(minorUnits int64, currencyCode string) Amount {
	return Amount{MinorUnits: minorUnits, Currency: currencyCode}
}

// FromDecimal converts a decimal value into minor units for the currency.
// For JPY and other zero-decimal currencies the value is used as-is.
func FromDecimal(d decimal.Decimal, currencyCode string) Amount {
	currency := money.GetCurrency(currencyCode)
	if currency == nil {
		currency = money.GetCurrency(EUR)
	}
	multiplier := decimal.New(1, int32(currency.Fraction))
	return Amount{
		MinorUnits: d.Mul(multiplier).Round(0).IntPart(),
		Currency:   currencyCode,
	}
}

// Decimal returns the amount as a decimal in major units.
func (a Amount) Decimal() decimal.Decimal {
	currency := money.GetCurrency(a.Currency)
	fraction := 2
	if currency != nil {
		fraction = currency.Fraction
	}
	return decimal.New(a.MinorUnits, -int32(fraction))
}

// String formats the amount using the currency's display rules.
func (a Amount) String() string {
	return money.New(a.MinorUnits, a.Currency).Display()
}

// IsValidCurrency reports whether the code is a known ISO-4217 currency.
func IsValidCurrency(code string) bool {
	return money.GetCurrency(strings.ToUpper(code)) != nil
}

// ParseDecimal parses a raw statement amount string into a decimal.
// It tolerates currency symbols, spaces, parenthesized negatives and
// both thousands-separator conventions ("1,234.56" and "1.234,56").
func ParseDecimal(raw string, european bool) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return decimal.Zero, fmt.Errorf("empty amount")
	}

	for _, sym := range currencySymbols {
		s = strings.ReplaceAll(s, sym, "")
	}
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, " ", "")

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = strings.Trim(s, "()")
	}
	if strings.HasPrefix(s, "-") {
		negative = true
		s = strings.TrimPrefix(s, "-")
	}
	s = strings.TrimPrefix(s, "+")

	if european {
		// European: 1.234,56
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	} else {
		// American: 1,234.56
		s = strings.ReplaceAll(s, ",", "")
	}

	if s == "" {
		return decimal.Zero, fmt.Errorf("empty amount")
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q: %w", raw, err)
	}

	if negative {
		d = d.Neg()
	}
	return d, nil
}
