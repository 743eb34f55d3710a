// Package normalizer turns raw statement cell values into typed
// transaction fields: calendar dates, non-negative decimal amounts and
// whitespace-normalized descriptions.
package normalizer

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ledgerline/statements/pkg/money"
)

// dayFirstFormats are tried before monthFirstFormats when the file's
// dialect indicates day-first dates, and after them otherwise.
var dayFirstFormats = []string{
	"02/01/2006",
	"02-01-2006",
	"02.01.2006",
	"2-Jan-2006",
	"02-Jan-2006",
}

var monthFirstFormats = []string{
	"01/02/2006",
	"01-02-2006",
}

// unambiguousFormats parse the same way regardless of dialect.
var unambiguousFormats = []string{
	"2006-01-02",
	"2006/01/02",
	"2006-01-02T15:04:05Z",
	"2006-01-02 15:04:05",
}

// ParseDate parses a statement date using the common bank-export
// formats. dayFirst resolves the DD/MM vs MM/DD ambiguity: the
// preferred order is tried first, the other only as a fallback.
func ParseDate(raw string, dayFirst bool) (time.Time, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}

	formats := make([]string, 0, len(unambiguousFormats)+len(dayFirstFormats)+len(monthFirstFormats))
	formats = append(formats, unambiguousFormats...)
	if dayFirst {
		formats = append(formats, dayFirstFormats...)
		formats = append(formats, monthFirstFormats...)
	} else {
		formats = append(formats, monthFirstFormats...)
		formats = append(formats, dayFirstFormats...)
	}

	for _, format := range formats {
		if t, err := time.Parse(format, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date format: %s", s)
}

// LooksLikeDate reports whether the value parses under any known format.
func LooksLikeDate(raw string) bool {
	_, err := ParseDate(raw, true)
	return err == nil
}

// ParseAmount parses a raw amount cell into a decimal, tolerating
// currency symbols and either thousands-separator convention.
func ParseAmount(raw string, european bool) (decimal.Decimal, error) {
	return money.ParseDecimal(raw, european)
}

// LooksLikeAmount reports whether the value parses as a number.
func LooksLikeAmount(raw string) bool {
	_, err := money.ParseDecimal(raw, false)
	if err == nil {
		return true
	}
	_, err = money.ParseDecimal(raw, true)
	return err == nil
}

// CleanDescription trims and collapses internal whitespace.
func CleanDescription(raw string) string {
	return strings.Join(strings.Fields(raw), " ")
}

// DedupDescription normalizes a description for duplicate matching:
// whitespace-collapsed and case-insensitive.
func DedupDescription(raw string) string {
	return strings.ToLower(CleanDescription(raw))
}
