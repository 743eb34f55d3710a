// Package sniffer guesses how a parsed statement's columns map onto
// transaction fields. Suggestions are advisory: anything it cannot
// place with confidence it leaves empty for the user to fill in.
package sniffer

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/ledgerline/statements/internal/domain/importer/normalizer"
	"github.com/ledgerline/statements/internal/domain/importer/parser"
)

// ColumnMapping names the source headers that feed each transaction
// field. Either Debit and Credit are both set, or Amount alone is set
// with signed values carrying the direction.
type ColumnMapping struct {
	Date        string `json:"date"`
	Description string `json:"description"`
	Debit       string `json:"debit,omitempty"`
	Credit      string `json:"credit,omitempty"`
	Amount      string `json:"amount,omitempty"`

	// Dialect hints carried alongside the column assignment so the
	// committer parses cells the same way the preview did.
	EuropeanAmounts bool `json:"european_amounts,omitempty"`
	DayFirst        bool `json:"day_first,omitempty"`
}

// Validate checks the mapping is complete enough to commit against.
func (m ColumnMapping) Validate() error {
	if m.Date == "" {
		return fmt.Errorf("date column is required")
	}
	if m.Description == "" {
		return fmt.Errorf("description column is required")
	}
	pair := m.Debit != "" && m.Credit != ""
	half := (m.Debit != "") != (m.Credit != "")
	switch {
	case half:
		return fmt.Errorf("debit and credit columns must be mapped together")
	case pair && m.Amount != "":
		return fmt.Errorf("map either a debit/credit pair or a single amount column, not both")
	case !pair && m.Amount == "":
		return fmt.Errorf("no amount column mapped")
	}
	return nil
}

// SeparateColumns reports whether debits and credits arrive in their
// own columns rather than as one signed amount.
func (m ColumnMapping) SeparateColumns() bool {
	return m.Debit != "" && m.Credit != ""
}

// dateThreshold is the fraction of sampled non-empty values that must
// parse as dates before a column is claimed by content alone.
const dateThreshold = 0.8

var dateSynonyms = synonymSet(
	"date", "transaction date", "posted date", "posting date",
	"booking date", "value date", "date posted", "data", "data valor",
	"fecha", "datum",
)

var descriptionSynonyms = synonymSet(
	"description", "narrative", "details", "detail", "memo", "payee",
	"merchant", "transaction details", "descricao", "descrição",
	"descripcion", "descripción", "concepto",
)

var debitSynonyms = synonymSet(
	"debit", "debit amount", "withdrawal", "withdrawals", "money out",
	"paid out", "out", "debito", "débito", "cargo",
)

var creditSynonyms = synonymSet(
	"credit", "credit amount", "deposit", "deposits", "money in",
	"paid in", "in", "credito", "crédito", "abono",
)

var amountSynonyms = synonymSet(
	"amount", "transaction amount", "value", "sum", "valor", "importe",
	"montant", "montante", "betrag",
)

func synonymSet(words ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

func normalizeHeader(h string) string {
	s := strings.ToLower(strings.Join(strings.Fields(h), " "))
	return strings.Trim(s, " .:")
}

// InferMapping proposes a column mapping for the parsed file. Header
// names are matched against known synonyms first; columns that resist
// name matching are sniffed by content. The result is deterministic
// for a given input and may be partial.
func InferMapping(headers []string, sample []parser.Row) ColumnMapping {
	var m ColumnMapping
	assigned := make(map[string]bool, len(headers))

	claim := func(field *string, header string) {
		*field = header
		assigned[header] = true
	}

	// Pass 1: header names.
	for _, h := range headers {
		if assigned[h] {
			continue
		}
		norm := normalizeHeader(h)
		switch {
		case m.Date == "" && contains(dateSynonyms, norm):
			claim(&m.Date, h)
		case m.Description == "" && contains(descriptionSynonyms, norm):
			claim(&m.Description, h)
		case m.Debit == "" && contains(debitSynonyms, norm):
			claim(&m.Debit, h)
		case m.Credit == "" && contains(creditSynonyms, norm):
			claim(&m.Credit, h)
		case m.Amount == "" && contains(amountSynonyms, norm):
			claim(&m.Amount, h)
		}
	}

	// Pass 2: content sniffing for anything names did not settle.
	if m.Date == "" {
		for _, h := range headers {
			if assigned[h] {
				continue
			}
			if columnDateRate(h, sample) >= dateThreshold {
				claim(&m.Date, h)
				break
			}
		}
	}
	if m.Description == "" {
		if h := longestTextColumn(headers, sample, assigned); h != "" {
			claim(&m.Description, h)
		}
	}

	// A full debit/credit pair wins over a lone signed-amount column.
	if m.SeparateColumns() {
		m.Amount = ""
	} else if m.Debit != "" || m.Credit != "" {
		// Half a pair is unusable; fall back to the amount column if
		// one was found, otherwise leave the partial guess visible so
		// the user sees what was recognized.
		if m.Amount != "" {
			m.Debit = ""
			m.Credit = ""
		}
	}

	m.EuropeanAmounts, m.DayFirst = ProbeDialect(m, sample)
	return m
}

func contains(set map[string]struct{}, key string) bool {
	_, ok := set[key]
	return ok
}

func columnDateRate(header string, sample []parser.Row) float64 {
	var nonEmpty, parsed int
	for _, row := range sample {
		v := row.Get(header)
		if v == "" {
			continue
		}
		nonEmpty++
		if normalizer.LooksLikeDate(v) {
			parsed++
		}
	}
	if nonEmpty == 0 {
		return 0
	}
	return float64(parsed) / float64(nonEmpty)
}

// longestTextColumn picks the unassigned column whose non-empty values
// are mostly free text, preferring the one with the longest average
// value. Headers are scanned in file order so ties break predictably.
func longestTextColumn(headers []string, sample []parser.Row, assigned map[string]bool) string {
	best := ""
	bestAvg := 0.0
	for _, h := range headers {
		if assigned[h] {
			continue
		}
		var nonEmpty, textual, total int
		for _, row := range sample {
			v := row.Get(h)
			if v == "" {
				continue
			}
			nonEmpty++
			total += len(v)
			if !normalizer.LooksLikeDate(v) && !normalizer.LooksLikeAmount(v) {
				textual++
			}
		}
		if nonEmpty == 0 || float64(textual)/float64(nonEmpty) < 0.5 {
			continue
		}
		avg := float64(total) / float64(nonEmpty)
		if avg > bestAvg {
			best, bestAvg = h, avg
		}
	}
	return best
}

// ProbeDialect inspects the mapped date and amount columns and reports
// whether the file uses European decimal commas and day-first dates.
func ProbeDialect(m ColumnMapping, sample []parser.Row) (european, dayFirst bool) {
	var commaDecimal, dotDecimal int
	amountHeaders := []string{m.Amount, m.Debit, m.Credit}
	for _, row := range sample {
		for _, h := range amountHeaders {
			if h == "" {
				continue
			}
			v := row.Get(h)
			switch {
			case looksEuropean(v):
				commaDecimal++
			case looksAnglo(v):
				dotDecimal++
			}
		}
	}
	european = commaDecimal > dotDecimal

	var dayFirstOnly, monthFirstOnly int
	for _, row := range sample {
		if m.Date == "" {
			break
		}
		v := row.Get(m.Date)
		first, second, ok := splitNumericDate(v)
		if !ok {
			continue
		}
		if first > 12 && second <= 12 {
			dayFirstOnly++
		}
		if second > 12 && first <= 12 {
			monthFirstOnly++
		}
	}
	// Ambiguous files default to day-first, the dominant convention
	// among the bank exports this tool sees.
	dayFirst = dayFirstOnly >= monthFirstOnly
	return european, dayFirst
}

func looksEuropean(v string) bool {
	lastComma := strings.LastIndex(v, ",")
	lastDot := strings.LastIndex(v, ".")
	return lastComma > lastDot && lastComma >= 0
}

func looksAnglo(v string) bool {
	lastComma := strings.LastIndex(v, ",")
	lastDot := strings.LastIndex(v, ".")
	return lastDot > lastComma && lastDot >= 0
}

// splitNumericDate extracts the first two numeric components of a
// slash/dash/dot separated date, skipping year-first values.
func splitNumericDate(v string) (first, second int, ok bool) {
	v = strings.TrimSpace(v)
	parts := strings.FieldsFunc(v, func(r rune) bool {
		return r == '/' || r == '-' || r == '.'
	})
	if len(parts) != 3 {
		return 0, 0, false
	}
	if len(parts[0]) == 4 {
		return 0, 0, false
	}
	if _, err := fmt.Sscanf(parts[0], "%d", &first); err != nil {
		return 0, 0, false
	}
	if _, err := fmt.Sscanf(parts[1], "%d", &second); err != nil {
		return 0, 0, false
	}
	return first, second, true
}

// Fingerprint hashes the normalized header row so a previously
// confirmed mapping can be recalled when the same bank's layout shows
// up again.
func Fingerprint(headers []string) string {
	norm := make([]string, len(headers))
	for i, h := range headers {
		norm[i] = normalizeHeader(h)
	}
	sum := sha256.Sum256([]byte(strings.Join(norm, "\x1f")))
	return hex.EncodeToString(sum[:])
}
