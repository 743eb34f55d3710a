package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/ledgerline/statements/pkg/db"
)

// PostgresImportRepository implements ImportRepository using PostgreSQL
type PostgresImportRepository struct {
	db db.Querier
}

// NewPostgresImportRepository creates a new PostgreSQL import repository
func NewPostgresImportRepository(querier db.Querier) *PostgresImportRepository {
	return &PostgresImportRepository{db: querier}
}

// InsertBatch writes all candidates inside a single transaction. Rows
// that collide with the dedup index are silently skipped and counted
// as duplicates; any other failure rolls the whole batch back.
func (r *PostgresImportRepository) InsertBatch(ctx context.Context, userID, accountID, jobID uuid.UUID, currencyCode string, candidates []*TransactionCandidate) (BatchResult, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return BatchResult{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO transactions (id, user_id, account_id, import_job_id, posted_at, description, description_norm, debit_minor, credit_minor, currency_code, category)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (account_id, posted_at, description_norm, debit_minor, credit_minor) DO NOTHING`

	var result BatchResult
	for _, c := range candidates {
		tag, err := tx.Exec(ctx, query,
			uuid.New(),
			userID,
			accountID,
			jobID,
			c.Date,
			c.Description,
			c.DescriptionNorm,
			c.DebitMinor,
			c.CreditMinor,
			currencyCode,
			c.Category,
		)
		if err != nil {
			return BatchResult{}, fmt.Errorf("failed to insert transaction at row %d: %w", c.RowIndex, err)
		}
		if tag.RowsAffected() == 0 {
			result.Duplicates++
		} else {
			result.Inserted++
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return BatchResult{}, fmt.Errorf("failed to commit batch: %w", err)
	}
	return result, nil
}

// CreateJob inserts a new import job in the running state
func (r *PostgresImportRepository) CreateJob(ctx context.Context, job *ImportJob) error {
	query := `
		INSERT INTO import_jobs (id, user_id, account_id, file_id, status, rows_total)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`

	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	if job.Status == "" {
		job.Status = ImportJobStatusRunning
	}

	err := r.db.QueryRow(ctx, query,
		job.ID,
		job.UserID,
		job.AccountID,
		job.FileID,
		job.Status,
		job.RowsTotal,
	).Scan(&job.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create import job: %w", err)
	}
	return nil
}

// FinishJob records the final status and counters of a job
func (r *PostgresImportRepository) FinishJob(ctx context.Context, job *ImportJob) error {
	query := `
		UPDATE import_jobs
		SET status = $2, rows_imported = $3, duplicates_skipped = $4, rows_failed = $5, error_message = $6, finished_at = now()
		WHERE id = $1
		RETURNING finished_at`

	var finishedAt time.Time
	err := r.db.QueryRow(ctx, query,
		job.ID,
		job.Status,
		job.RowsImported,
		job.DuplicatesSkipped,
		job.RowsFailed,
		job.ErrorMessage,
	).Scan(&finishedAt)
	if err != nil {
		return fmt.Errorf("failed to finish import job: %w", err)
	}
	job.FinishedAt = &finishedAt
	return nil
}

// GetJob retrieves a job by ID, scoped to its owner
func (r *PostgresImportRepository) GetJob(ctx context.Context, id, userID uuid.UUID) (*ImportJob, error) {
	query := `
		SELECT id, user_id, account_id, file_id, status, rows_total, rows_imported, duplicates_skipped, rows_failed, error_message, created_at, finished_at
		FROM import_jobs
		WHERE id = $1 AND user_id = $2`

	job := &ImportJob{}
	err := r.db.QueryRow(ctx, query, id, userID).Scan(
		&job.ID,
		&job.UserID,
		&job.AccountID,
		&job.FileID,
		&job.Status,
		&job.RowsTotal,
		&job.RowsImported,
		&job.DuplicatesSkipped,
		&job.RowsFailed,
		&job.ErrorMessage,
		&job.CreatedAt,
		&job.FinishedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, sql.ErrNoRows
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get import job: %w", err)
	}
	return job, nil
}

// ListJobs retrieves the user's most recent import jobs
func (r *PostgresImportRepository) ListJobs(ctx context.Context, userID uuid.UUID, limit int) ([]*ImportJob, error) {
	query := `
		SELECT id, user_id, account_id, file_id, status, rows_total, rows_imported, duplicates_skipped, rows_failed, error_message, created_at, finished_at
		FROM import_jobs
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2`

	rows, err := r.db.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list import jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*ImportJob
	for rows.Next() {
		job := &ImportJob{}
		if err := rows.Scan(
			&job.ID,
			&job.UserID,
			&job.AccountID,
			&job.FileID,
			&job.Status,
			&job.RowsTotal,
			&job.RowsImported,
			&job.DuplicatesSkipped,
			&job.RowsFailed,
			&job.ErrorMessage,
			&job.CreatedAt,
			&job.FinishedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan import job: %w", err)
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// DeleteJobsBefore removes jobs older than the cutoff, cascading to
// their row errors
func (r *PostgresImportRepository) DeleteJobsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM import_jobs WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete stale import jobs: %w", err)
	}
	return tag.RowsAffected(), nil
}

// SaveRowErrors persists per-row failures for the job's error report
func (r *PostgresImportRepository) SaveRowErrors(ctx context.Context, rowErrors []*ImportRowError) error {
	query := `
		INSERT INTO import_job_errors (job_id, row_index, code, message)
		VALUES ($1, $2, $3, $4)`

	for _, e := range rowErrors {
		if _, err := r.db.Exec(ctx, query, e.JobID, e.RowIndex, e.Code, e.Message); err != nil {
			return fmt.Errorf("failed to save row error: %w", err)
		}
	}
	return nil
}

// ListRowErrors retrieves the failures recorded for a job in row order
func (r *PostgresImportRepository) ListRowErrors(ctx context.Context, jobID uuid.UUID) ([]*ImportRowError, error) {
	query := `
		SELECT job_id, row_index, code, message
		FROM import_job_errors
		WHERE job_id = $1
		ORDER BY row_index`

	rows, err := r.db.Query(ctx, query, jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to list row errors: %w", err)
	}
	defer rows.Close()

	var out []*ImportRowError
	for rows.Next() {
		e := &ImportRowError{}
		if err := rows.Scan(&e.JobID, &e.RowIndex, &e.Code, &e.Message); err != nil {
			return nil, fmt.Errorf("failed to scan row error: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// CreateUserFile records an uploaded statement file
func (r *PostgresImportRepository) CreateUserFile(ctx context.Context, file *UserFile) error {
	query := `
		INSERT INTO user_files (id, user_id, file_name, mime_type, size_bytes, storage_path)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`

	if file.ID == uuid.Nil {
		file.ID = uuid.New()
	}

	err := r.db.QueryRow(ctx, query,
		file.ID,
		file.UserID,
		file.FileName,
		file.MimeType,
		file.SizeBytes,
		file.StoragePath,
	).Scan(&file.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create user file: %w", err)
	}
	return nil
}

// GetUserFile retrieves an uploaded file record, scoped to its owner
func (r *PostgresImportRepository) GetUserFile(ctx context.Context, id, userID uuid.UUID) (*UserFile, error) {
	query := `
		SELECT id, user_id, file_name, mime_type, size_bytes, storage_path, created_at
		FROM user_files
		WHERE id = $1 AND user_id = $2`

	file := &UserFile{}
	err := r.db.QueryRow(ctx, query, id, userID).Scan(
		&file.ID,
		&file.UserID,
		&file.FileName,
		&file.MimeType,
		&file.SizeBytes,
		&file.StoragePath,
		&file.CreatedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, sql.ErrNoRows
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user file: %w", err)
	}
	return file, nil
}

// DeleteUserFile removes an uploaded file record, scoped to its owner.
// Deleting a missing record is not an error.
func (r *PostgresImportRepository) DeleteUserFile(ctx context.Context, id, userID uuid.UUID) error {
	_, err := r.db.Exec(ctx, `DELETE FROM user_files WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete user file: %w", err)
	}
	return nil
}

// DeleteUserFilesBefore removes file records older than the cutoff and
// returns them so the caller can remove the stored bytes as well. Jobs
// still referencing a removed file keep their history with file_id
// cleared.
func (r *PostgresImportRepository) DeleteUserFilesBefore(ctx context.Context, cutoff time.Time) ([]*UserFile, error) {
	query := `
		DELETE FROM user_files
		WHERE created_at < $1
		RETURNING id, user_id, storage_path`

	rows, err := r.db.Query(ctx, query, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to delete stale user files: %w", err)
	}
	defer rows.Close()

	var removed []*UserFile
	for rows.Next() {
		f := &UserFile{}
		if err := rows.Scan(&f.ID, &f.UserID, &f.StoragePath); err != nil {
			return nil, fmt.Errorf("failed to scan deleted user file: %w", err)
		}
		removed = append(removed, f)
	}
	return removed, rows.Err()
}

// GetMapping retrieves a remembered column mapping by header fingerprint
func (r *PostgresImportRepository) GetMapping(ctx context.Context, userID uuid.UUID, fingerprint string) (*BankMapping, error) {
	query := `
		SELECT id, user_id, fingerprint, bank_name, mapping, created_at
		FROM bank_mappings
		WHERE user_id = $1 AND fingerprint = $2`

	m := &BankMapping{}
	err := r.db.QueryRow(ctx, query, userID, fingerprint).Scan(
		&m.ID,
		&m.UserID,
		&m.Fingerprint,
		&m.BankName,
		&m.Mapping,
		&m.CreatedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, sql.ErrNoRows
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get bank mapping: %w", err)
	}
	return m, nil
}

// SaveMapping upserts a confirmed column mapping for the fingerprint
func (r *PostgresImportRepository) SaveMapping(ctx context.Context, mapping *BankMapping) error {
	query := `
		INSERT INTO bank_mappings (id, user_id, fingerprint, bank_name, mapping)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (fingerprint, user_id) DO UPDATE SET mapping = EXCLUDED.mapping, bank_name = EXCLUDED.bank_name
		RETURNING created_at`

	if mapping.ID == uuid.Nil {
		mapping.ID = uuid.New()
	}

	err := r.db.QueryRow(ctx, query,
		mapping.ID,
		mapping.UserID,
		mapping.Fingerprint,
		mapping.BankName,
		mapping.Mapping,
	).Scan(&mapping.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save bank mapping: %w", err)
	}
	return nil
}
