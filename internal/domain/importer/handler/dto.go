package handler

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ledgerline/statements/internal/domain/importer/repository"
	"github.com/ledgerline/statements/internal/domain/importer/service"
	"github.com/ledgerline/statements/internal/domain/importer/sniffer"
)

type commitRequest struct {
	SessionID       string                `json:"session_id"`
	AccountID       string                `json:"account_id"`
	Mapping         sniffer.ColumnMapping `json:"mapping"`
	BankName        string                `json:"bank_name"`
	RememberMapping bool                  `json:"remember_mapping"`
}

func (c commitRequest) toServiceRequest() (service.CommitRequest, error) {
	sessionID, err := uuid.Parse(c.SessionID)
	if err != nil {
		return service.CommitRequest{}, fmt.Errorf("invalid session id")
	}
	accountID, err := uuid.Parse(c.AccountID)
	if err != nil {
		return service.CommitRequest{}, fmt.Errorf("invalid account id")
	}
	return service.CommitRequest{
		SessionID:       sessionID,
		AccountID:       accountID,
		Mapping:         c.Mapping,
		BankName:        c.BankName,
		RememberMapping: c.RememberMapping,
	}, nil
}

type previewRowResponse struct {
	Row    int               `json:"row"`
	Values map[string]string `json:"values"`
}

type previewWarningResponse struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}

type previewResponse struct {
	SessionID    string                   `json:"session_id"`
	FileID       string                   `json:"file_id"`
	Headers      []string                 `json:"headers"`
	Rows         []previewRowResponse     `json:"rows"`
	RowsTotal    int                      `json:"rows_total"`
	Warnings     []previewWarningResponse `json:"warnings,omitempty"`
	Suggested    sniffer.ColumnMapping    `json:"suggested_mapping"`
	Fingerprint  string                   `json:"fingerprint"`
	KnownMapping bool                     `json:"known_mapping"`
}

func toPreviewResponse(p *service.PreviewResult) previewResponse {
	rows := make([]previewRowResponse, len(p.Rows))
	for i, r := range p.Rows {
		rows[i] = previewRowResponse{Row: r.Index, Values: r.Values}
	}
	warnings := make([]previewWarningResponse, len(p.Warnings))
	for i, w := range p.Warnings {
		warnings[i] = previewWarningResponse{Row: w.Row, Reason: w.Reason}
	}
	return previewResponse{
		SessionID:    p.SessionID.String(),
		FileID:       p.FileID.String(),
		Headers:      p.Headers,
		Rows:         rows,
		RowsTotal:    p.RowsTotal,
		Warnings:     warnings,
		Suggested:    p.Suggested,
		Fingerprint:  p.Fingerprint,
		KnownMapping: p.KnownMapping,
	}
}

type jobResponse struct {
	ID                string     `json:"id"`
	AccountID         string     `json:"account_id"`
	FileID            *string    `json:"file_id,omitempty"`
	Status            string     `json:"status"`
	RowsTotal         int        `json:"rows_total"`
	RowsImported      int        `json:"rows_imported"`
	DuplicatesSkipped int        `json:"duplicates_skipped"`
	RowsFailed        int        `json:"rows_failed"`
	ErrorMessage      *string    `json:"error_message,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	FinishedAt        *time.Time `json:"finished_at,omitempty"`
}

func toJobResponse(job *repository.ImportJob) jobResponse {
	var fileID *string
	if job.FileID != nil {
		s := job.FileID.String()
		fileID = &s
	}
	return jobResponse{
		ID:                job.ID.String(),
		AccountID:         job.AccountID.String(),
		FileID:            fileID,
		Status:            string(job.Status),
		RowsTotal:         job.RowsTotal,
		RowsImported:      job.RowsImported,
		DuplicatesSkipped: job.DuplicatesSkipped,
		RowsFailed:        job.RowsFailed,
		ErrorMessage:      job.ErrorMessage,
		CreatedAt:         job.CreatedAt,
		FinishedAt:        job.FinishedAt,
	}
}

type jobListResponse struct {
	Jobs []jobResponse `json:"jobs"`
}

func toJobListResponse(jobs []*repository.ImportJob) jobListResponse {
	out := jobListResponse{Jobs: make([]jobResponse, len(jobs))}
	for i, job := range jobs {
		out.Jobs[i] = toJobResponse(job)
	}
	return out
}
