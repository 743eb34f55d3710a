package money

import (
	"fmt"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v6"
)

// StatementGenerator produces synthetic bank statement data for tests
// and benchmarks.
type StatementGenerator struct {
	faker *gofakeit.Faker
}

// NewStatementGenerator creates a generator with a specific seed so
// generated statements are reproducible.
func NewStatementGenerator(seed int64) *StatementGenerator {
	return &StatementGenerator{faker: gofakeit.New(seed)}
}

// StatementLine is one movement as a bank export would render it.
// Exactly one of Debit and Credit is set.
type StatementLine struct {
	Date        time.Time
	Description string
	Debit       string
	Credit      string
}

var statementMerchants = []string{
	"Amazon", "Walmart", "Starbucks", "Uber", "Netflix", "Spotify",
	"Whole Foods", "Shell", "CVS Pharmacy", "IKEA", "Lidl", "Continente",
}

var statementIncome = []string{
	"Salary deposit", "Freelance payment", "Tax refund", "Interest income",
}

// Line generates a single statement line. Roughly one line in eight is
// a credit.
func (g *StatementGenerator) Line() StatementLine {
	date := g.faker.DateRange(time.Now().AddDate(-1, 0, 0), time.Now())

	if g.faker.Number(0, 7) == 0 {
		amount := fmt.Sprintf("%d.%02d", g.faker.Number(500, 5000), g.faker.Number(0, 99))
		return StatementLine{
			Date:        date,
			Description: statementIncome[g.faker.Number(0, len(statementIncome)-1)],
			Credit:      amount,
		}
	}

	merchant := statementMerchants[g.faker.Number(0, len(statementMerchants)-1)]
	amount := fmt.Sprintf("%d.%02d", g.faker.Number(1, 400), g.faker.Number(0, 99))
	return StatementLine{
		Date:        date,
		Description: fmt.Sprintf("%s %s", strings.ToUpper(merchant), g.faker.DigitN(4)),
		Debit:       amount,
	}
}

// Lines generates count statement lines.
func (g *StatementGenerator) Lines(count int) []StatementLine {
	lines := make([]StatementLine, count)
	for i := range lines {
		lines[i] = g.Line()
	}
	return lines
}

// CSV renders lines as a debit/credit statement export with the given
// delimiter and day-first dates.
func (g *StatementGenerator) CSV(lines []StatementLine, delimiter rune) []byte {
	var b strings.Builder
	d := string(delimiter)
	b.WriteString(strings.Join([]string{"Date", "Description", "Debit", "Credit"}, d))
	b.WriteByte('\n')
	for _, line := range lines {
		b.WriteString(strings.Join([]string{
			line.Date.Format("02/01/2006"),
			line.Description,
			line.Debit,
			line.Credit,
		}, d))
		b.WriteByte('\n')
	}
	return []byte(b.String())
}
