package parser

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerline/statements/pkg/money"
)

func TestParse(t *testing.T) {
	t.Run("parses standard CSV", func(t *testing.T) {
		data := []byte("Date,Description,Debit,Credit\n" +
			"01/03/2024,Coffee Shop,4.50,\n" +
			"02/03/2024,Salary,,2000.00\n")

		result, err := Parse(data, 0)
		require.NoError(t, err)

		assert.Equal(t, []string{"Date", "Description", "Debit", "Credit"}, result.Headers)
		assert.Equal(t, ',', result.Delimiter)
		require.Len(t, result.Rows, 2)
		assert.Empty(t, result.Warnings)

		assert.Equal(t, 1, result.Rows[0].Index)
		assert.Equal(t, "Coffee Shop", result.Rows[0].Get("Description"))
		assert.Equal(t, "4.50", result.Rows[0].Get("Debit"))
		assert.Equal(t, "", result.Rows[0].Get("Credit"))
		assert.Equal(t, 2, result.Rows[1].Index)
		assert.Equal(t, "2000.00", result.Rows[1].Get("Credit"))
	})

	t.Run("detects semicolon delimiter", func(t *testing.T) {
		data := []byte("Data Mov.;Descrição;Débito;Crédito\n" +
			"15/01/2024;Café;4,50;\n" +
			"16/01/2024;Salário;;5.000,00\n")

		result, err := Parse(data, 0)
		require.NoError(t, err)
		assert.Equal(t, ';', result.Delimiter)
		assert.Len(t, result.Headers, 4)
		assert.Len(t, result.Rows, 2)
	})

	t.Run("detects tab delimiter", func(t *testing.T) {
		data := []byte("Date\tDescription\tAmount\n2024-01-01\tCoffee\t-4.50\n")

		result, err := Parse(data, 0)
		require.NoError(t, err)
		assert.Equal(t, '\t', result.Delimiter)
		assert.Len(t, result.Rows, 1)
	})

	t.Run("honors declared delimiter", func(t *testing.T) {
		data := []byte("a;b\n1;2\n")
		result, err := Parse(data, ';')
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b"}, result.Headers)
	})

	t.Run("handles quoted fields with delimiter and newline", func(t *testing.T) {
		data := []byte("Date,Description,Amount\n" +
			"2024-01-01,\"Store, the one\non Main St\",-10.00\n" +
			"2024-01-02,Plain,-5.00\n")

		result, err := Parse(data, 0)
		require.NoError(t, err)
		require.Len(t, result.Rows, 2)
		assert.Equal(t, "Store, the one\non Main St", result.Rows[0].Get("Description"))
	})

	t.Run("strips byte-order mark", func(t *testing.T) {
		data := append([]byte{0xEF, 0xBB, 0xBF}, []byte("Date,Amount\n2024-01-01,1.00\n")...)
		result, err := Parse(data, 0)
		require.NoError(t, err)
		assert.Equal(t, "Date", result.Headers[0])
	})

	t.Run("decodes Latin-1 fallback", func(t *testing.T) {
		// "Débito" with ISO-8859-1 encoded é (0xE9)
		data := []byte("Date,D\xe9bito\n2024-01-01,4.50\n")
		result, err := Parse(data, 0)
		require.NoError(t, err)
		assert.Equal(t, "Débito", result.Headers[1])
	})

	t.Run("tolerates CR and CRLF line endings", func(t *testing.T) {
		data := []byte("Date,Amount\r2024-01-01,1.00\r\n2024-01-02,2.00\r")
		result, err := Parse(data, 0)
		require.NoError(t, err)
		assert.Len(t, result.Rows, 2)
	})

	t.Run("skips trailing blank lines", func(t *testing.T) {
		data := []byte("Date,Amount\n2024-01-01,1.00\n\n\n")
		result, err := Parse(data, 0)
		require.NoError(t, err)
		assert.Len(t, result.Rows, 1)
		assert.Empty(t, result.Warnings)
	})

	t.Run("reports mismatched rows as warnings", func(t *testing.T) {
		data := []byte("Date,Description,Amount\n" +
			"2024-01-01,Coffee,-4.50\n" +
			"2024-01-02,too,many,fields,here\n" +
			"2024-01-03,Lunch,-12.00\n")

		result, err := Parse(data, 0)
		require.NoError(t, err)
		assert.Len(t, result.Rows, 2)
		require.Len(t, result.Warnings, 1)
		assert.Equal(t, 2, result.Warnings[0].Row)
		assert.Contains(t, result.Warnings[0].Reason, "expected 3 fields")

		// Row indices keep the original data ordering.
		assert.Equal(t, 1, result.Rows[0].Index)
		assert.Equal(t, 3, result.Rows[1].Index)
	})

	t.Run("row count preserved minus exclusions", func(t *testing.T) {
		var sb strings.Builder
		sb.WriteString("Date,Description,Amount\n")
		for i := 0; i < 20; i++ {
			sb.WriteString("2024-01-01,Item,-1.00\n")
		}
		result, err := Parse([]byte(sb.String()), 0)
		require.NoError(t, err)
		assert.Len(t, result.Rows, 20)
	})

	t.Run("empty input", func(t *testing.T) {
		_, err := Parse(nil, 0)
		assert.ErrorIs(t, err, ErrNoDataRows)
	})

	t.Run("header only", func(t *testing.T) {
		_, err := Parse([]byte("Date,Description,Amount\n"), 0)
		assert.ErrorIs(t, err, ErrNoDataRows)
	})

	t.Run("all rows malformed", func(t *testing.T) {
		_, err := Parse([]byte("a,b,c\n1,2\n3,4\n"), 0)
		assert.ErrorIs(t, err, ErrNoDataRows)
	})
}

func TestParse_Deterministic(t *testing.T) {
	data := []byte("Date;Description;Amount\n2024-01-01;Coffee;-4,50\n")
	first, err := Parse(data, 0)
	require.NoError(t, err)
	second, err := Parse(data, 0)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestIsExcel(t *testing.T) {
	assert.True(t, IsExcel([]byte{0x50, 0x4B, 0x03, 0x04, 0x00}))
	assert.False(t, IsExcel([]byte("Date,Amount\n")))
	assert.False(t, IsExcel(nil))
}

func TestParse_GeneratedStatement(t *testing.T) {
	gen := money.NewStatementGenerator(42)
	data := gen.CSV(gen.Lines(200), ';')

	result, err := Parse(data, 0)
	require.NoError(t, err)

	assert.Equal(t, ';', result.Delimiter)
	assert.Equal(t, []string{"Date", "Description", "Debit", "Credit"}, result.Headers)
	assert.Len(t, result.Rows, 200)
	assert.Empty(t, result.Warnings)
	for _, row := range result.Rows {
		assert.NotEmpty(t, row.Get("Description"))
	}
}
