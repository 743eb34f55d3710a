package parser

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ParseExcel decodes the first sheet of an xlsx workbook into the same
// headers+rows shape as Parse. excelize trims trailing empty cells, so
// short rows are padded to the header width rather than rejected;
// over-long rows are reported like their CSV counterparts.
func ParseExcel(data []byte) (*Result, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrNoDataRows
	}

	records, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}

	var headers []string
	result := &Result{}
	dataIndex := 0

	for _, record := range records {
		if isBlank(record) {
			continue
		}
		if headers == nil {
			headers = make([]string, len(record))
			for i, h := range record {
				headers[i] = strings.TrimSpace(h)
			}
			result.Headers = headers
			continue
		}

		dataIndex++
		if len(record) > len(headers) {
			result.Warnings = append(result.Warnings, Warning{
				Row:    dataIndex,
				Reason: fmt.Sprintf("expected %d fields, got %d", len(headers), len(record)),
			})
			continue
		}

		values := make(map[string]string, len(headers))
		for i, h := range headers {
			if i < len(record) {
				values[h] = record[i]
			} else {
				values[h] = ""
			}
		}
		result.Rows = append(result.Rows, Row{Index: dataIndex, Values: values})
	}

	if len(result.Rows) == 0 {
		return nil, ErrNoDataRows
	}
	return result, nil
}

// IsExcel sniffs the xlsx zip signature.
func IsExcel(data []byte) bool {
	return len(data) >= 4 && bytes.Equal(data[:4], []byte{0x50, 0x4B, 0x03, 0x04})
}
