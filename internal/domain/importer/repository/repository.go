// Package repository provides database operations for statement imports.
package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ImportJobStatus represents the lifecycle state of an import job
type ImportJobStatus string

const (
	ImportJobStatusRunning   ImportJobStatus = "running"
	ImportJobStatusCompleted ImportJobStatus = "completed"
	ImportJobStatusFailed    ImportJobStatus = "failed"
)

// ImportJob records one commit attempt and its outcome counters
type ImportJob struct {
	ID                uuid.UUID
	UserID            uuid.UUID
	AccountID         uuid.UUID
	FileID            *uuid.UUID
	Status            ImportJobStatus
	RowsTotal         int
	RowsImported      int
	DuplicatesSkipped int
	RowsFailed        int
	ErrorMessage      *string
	CreatedAt         time.Time
	FinishedAt        *time.Time
}

// ImportRowError is a per-row failure kept for the job's error report
type ImportRowError struct {
	JobID    uuid.UUID
	RowIndex int
	Code     string
	Message  string
}

// UserFile is an uploaded statement kept on disk so the original can
// be downloaded while its import history is retained
type UserFile struct {
	ID          uuid.UUID
	UserID      uuid.UUID
	FileName    string
	MimeType    string
	SizeBytes   int64
	StoragePath string
	CreatedAt   time.Time
}

// BankMapping is a confirmed column mapping keyed by header fingerprint
// so repeat uploads from the same bank skip the mapping step
type BankMapping struct {
	ID          uuid.UUID
	UserID      uuid.UUID
	Fingerprint string
	BankName    *string
	Mapping     json.RawMessage
	CreatedAt   time.Time
}

// TransactionCandidate is a normalized row ready to be inserted.
// Exactly one of DebitMinor and CreditMinor is positive.
type TransactionCandidate struct {
	RowIndex        int
	Date            time.Time
	Description     string
	DescriptionNorm string
	DebitMinor      int64
	CreditMinor     int64
	Category        *string
}

// BatchResult reports what a transactional insert actually wrote
type BatchResult struct {
	Inserted   int
	Duplicates int
}

// ImportRepository defines the interface for import persistence operations
type ImportRepository interface {
	// Transaction operations
	InsertBatch(ctx context.Context, userID, accountID, jobID uuid.UUID, currencyCode string, candidates []*TransactionCandidate) (BatchResult, error)

	// Job operations
	CreateJob(ctx context.Context, job *ImportJob) error
	FinishJob(ctx context.Context, job *ImportJob) error
	GetJob(ctx context.Context, id, userID uuid.UUID) (*ImportJob, error)
	ListJobs(ctx context.Context, userID uuid.UUID, limit int) ([]*ImportJob, error)
	DeleteJobsBefore(ctx context.Context, cutoff time.Time) (int64, error)

	// Row error operations
	SaveRowErrors(ctx context.Context, rowErrors []*ImportRowError) error
	ListRowErrors(ctx context.Context, jobID uuid.UUID) ([]*ImportRowError, error)

	// File operations
	CreateUserFile(ctx context.Context, file *UserFile) error
	GetUserFile(ctx context.Context, id, userID uuid.UUID) (*UserFile, error)
	DeleteUserFile(ctx context.Context, id, userID uuid.UUID) error
	DeleteUserFilesBefore(ctx context.Context, cutoff time.Time) ([]*UserFile, error)

	// Mapping memory operations
	GetMapping(ctx context.Context, userID uuid.UUID, fingerprint string) (*BankMapping, error)
	SaveMapping(ctx context.Context, mapping *BankMapping) error
}
