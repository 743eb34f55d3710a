// Package parser decodes uploaded bank-statement files into an ordered
// sequence of header-keyed rows. CSV is the primary format; xlsx files
// are converted into the same shape (see excel.go). Parsing is a pure
// function over the input bytes.
package parser

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

// ErrNoDataRows is returned when a file parses but yields no usable
// data rows (empty file, header only, or every row malformed).
var ErrNoDataRows = errors.New("no data rows")

// candidate delimiters, in detection precedence order
var delimiters = []rune{',', ';', '\t'}

// delimiterProbeRows is how many data rows the delimiter detector
// checks for a consistent column count.
const delimiterProbeRows = 5

// Row is one CSV data line keyed by header. Index is 1-based over the
// data rows of the original file (header excluded), matching the row
// numbering used in import results.
type Row struct {
	Index  int
	Values map[string]string
}

// Get returns the raw value for a header, trimmed.
func (r Row) Get(header string) string {
	return strings.TrimSpace(r.Values[header])
}

// Warning reports a data row that was excluded from the result.
type Warning struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}

// Result holds the parsed file.
type Result struct {
	Headers   []string
	Rows      []Row
	Warnings  []Warning
	Delimiter rune
}

// Parse decodes CSV bytes into headers and rows. A zero delimiter asks
// for detection from the content. Rows whose field count does not match
// the header are excluded and reported as warnings; the parse only
// fails when no data rows survive.
func Parse(data []byte, delimiter rune) (*Result, error) {
	text := normalizeBytes(data)
	if strings.TrimSpace(text) == "" {
		return nil, ErrNoDataRows
	}

	if delimiter == 0 {
		delimiter = detectDelimiter(text)
	}

	reader := csv.NewReader(strings.NewReader(text))
	reader.Comma = delimiter
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	headers, err := readHeader(reader)
	if err != nil {
		return nil, err
	}

	result := &Result{Headers: headers, Delimiter: delimiter}

	dataIndex := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		dataIndex++
		if err != nil {
			result.Warnings = append(result.Warnings, Warning{
				Row:    dataIndex,
				Reason: fmt.Sprintf("unreadable row: %v", err),
			})
			continue
		}
		if isBlank(record) {
			dataIndex--
			continue
		}
		if len(record) != len(headers) {
			result.Warnings = append(result.Warnings, Warning{
				Row:    dataIndex,
				Reason: fmt.Sprintf("expected %d fields, got %d", len(headers), len(record)),
			})
			continue
		}

		values := make(map[string]string, len(headers))
		for i, h := range headers {
			values[h] = record[i]
		}
		result.Rows = append(result.Rows, Row{Index: dataIndex, Values: values})
	}

	if len(result.Rows) == 0 {
		return nil, ErrNoDataRows
	}
	return result, nil
}

// readHeader reads the first non-empty record and cleans it up.
func readHeader(reader *csv.Reader) ([]string, error) {
	for {
		record, err := reader.Read()
		if err == io.EOF {
			return nil, ErrNoDataRows
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read header row: %w", err)
		}
		if isBlank(record) {
			continue
		}
		headers := make([]string, len(record))
		for i, h := range record {
			headers[i] = strings.TrimSpace(h)
		}
		return headers, nil
	}
}

// detectDelimiter picks the candidate that appears in the header line
// and yields the most consistent column count across the first few
// data rows. Counting happens through the csv reader so quoted
// delimiters do not skew the result.
func detectDelimiter(text string) rune {
	best := ','
	bestScore := -1

	for _, d := range delimiters {
		reader := csv.NewReader(strings.NewReader(text))
		reader.Comma = d
		reader.LazyQuotes = true
		reader.FieldsPerRecord = -1

		header, err := reader.Read()
		if err != nil || len(header) < 2 {
			continue
		}

		columns := len(header)
		consistent := 0
		for i := 0; i < delimiterProbeRows; i++ {
			record, err := reader.Read()
			if err != nil {
				break
			}
			if len(record) == columns {
				consistent++
			}
		}

		score := columns*10 + consistent
		if score > bestScore {
			bestScore = score
			best = d
		}
	}
	return best
}

// normalizeBytes strips a UTF-8 BOM, falls back to Latin-1 when the
// bytes are not valid UTF-8, and unifies line endings. Bare CR line
// endings still appear in exports from old banking software.
func normalizeBytes(data []byte) string {
	data = bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})
	if !utf8.Valid(data) {
		data = decodeLatin1(data)
	}
	text := string(data)
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	return text
}

func decodeLatin1(data []byte) []byte {
	runes := make([]rune, len(data))
	for i, b := range data {
		runes[i] = rune(b)
	}
	return []byte(string(runes))
}

func isBlank(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
