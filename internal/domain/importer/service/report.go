package service

import (
	"context"
	"fmt"

	"github.com/gocarina/gocsv"
	"github.com/google/uuid"
)

type errorReportRow struct {
	Row     int    `csv:"row"`
	Code    string `csv:"code"`
	Message string `csv:"message"`
}

// ErrorReportCSV renders a job's row errors as a downloadable CSV so
// the user can fix the affected rows in a spreadsheet and re-upload.
func (s *ImportService) ErrorReportCSV(ctx context.Context, userID, jobID uuid.UUID) ([]byte, error) {
	// Ownership check before exposing anything about the job.
	if _, err := s.repo.GetJob(ctx, jobID, userID); err != nil {
		return nil, err
	}

	rowErrors, err := s.repo.ListRowErrors(ctx, jobID)
	if err != nil {
		return nil, err
	}

	report := make([]*errorReportRow, len(rowErrors))
	for i, e := range rowErrors {
		report[i] = &errorReportRow{Row: e.RowIndex, Code: e.Code, Message: e.Message}
	}

	out, err := gocsv.MarshalBytes(&report)
	if err != nil {
		return nil, fmt.Errorf("failed to render error report: %w", err)
	}
	return out, nil
}
