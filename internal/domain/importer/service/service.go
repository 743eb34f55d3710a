// Package service provides the import orchestration logic: preview an
// uploaded statement, then commit it against a confirmed column
// mapping.
package service

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/ledgerline/statements/internal/domain/importer/normalizer"
	"github.com/ledgerline/statements/internal/domain/importer/parser"
	"github.com/ledgerline/statements/internal/domain/importer/repository"
	"github.com/ledgerline/statements/internal/domain/importer/session"
	"github.com/ledgerline/statements/internal/domain/importer/sniffer"
	"github.com/ledgerline/statements/pkg/metrics"
	"github.com/ledgerline/statements/pkg/money"
	"github.com/ledgerline/statements/pkg/storage"
)

var (
	ErrEmptyFile      = errors.New("uploaded file is empty")
	ErrFileTooLarge   = errors.New("uploaded file exceeds the size limit")
	ErrInvalidMapping = errors.New("invalid column mapping")
)

// Row error codes surfaced in commit results and error reports.
const (
	CodeMissingField  = "missing_field"
	CodeInvalidDate   = "invalid_date"
	CodeInvalidAmount = "invalid_amount"
)

const (
	defaultMaxFileBytes = 10 << 20
	defaultPreviewRows  = 20
	defaultSampleRows   = 50
	defaultJobListLimit = 20
)

// AccountResolver checks account ownership and yields the account's
// currency for amount conversion
type AccountResolver interface {
	CurrencyFor(ctx context.Context, accountID, userID uuid.UUID) (string, error)
}

// CategorizationService defines the interface for transaction categorization
type CategorizationService interface {
	// CategorizeBatch returns one category per description; nil entries
	// mean no rule matched.
	CategorizeBatch(ctx context.Context, userID uuid.UUID, descriptions []string) []*string
}

// PreviewResult is what the user reviews before committing
type PreviewResult struct {
	SessionID   uuid.UUID
	FileID      uuid.UUID
	Headers     []string
	Rows        []parser.Row
	RowsTotal   int
	Warnings    []parser.Warning
	Suggested   sniffer.ColumnMapping
	Fingerprint string
	// KnownMapping is true when a previously confirmed mapping for this
	// header layout was found and used as the suggestion.
	KnownMapping bool
}

// RowError is a per-row failure reported back to the caller
type RowError struct {
	Row     int    `json:"row"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// CommitRequest asks for a previewed session to be written to an account
type CommitRequest struct {
	SessionID       uuid.UUID
	AccountID       uuid.UUID
	Mapping         sniffer.ColumnMapping
	BankName        string
	RememberMapping bool
}

// ImportResult contains the outcome of a commit
type ImportResult struct {
	JobID             uuid.UUID  `json:"job_id"`
	RowsTotal         int        `json:"rows_total"`
	RowsImported      int        `json:"rows_imported"`
	DuplicatesSkipped int        `json:"duplicates_skipped"`
	RowsFailed        int        `json:"rows_failed"`
	Errors            []RowError `json:"errors,omitempty"`
}

// ImportService orchestrates statement preview and commit
type ImportService struct {
	repo       repository.ImportRepository
	accounts   AccountResolver
	sessions   *session.Store
	files      storage.Storage
	catService CategorizationService // Optional: nil if categorization not available
	logger     *slog.Logger
	tracer     trace.Tracer

	maxFileBytes int64
	previewRows  int
	sampleRows   int
}

// NewImportService creates a new import service
func NewImportService(repo repository.ImportRepository, accounts AccountResolver, sessions *session.Store, files storage.Storage, logger *slog.Logger) *ImportService {
	return &ImportService{
		repo:         repo,
		accounts:     accounts,
		sessions:     sessions,
		files:        files,
		logger:       logger,
		tracer:       otel.Tracer("importer"),
		maxFileBytes: defaultMaxFileBytes,
		previewRows:  defaultPreviewRows,
		sampleRows:   defaultSampleRows,
	}
}

// WithCategorizationService adds categorization support to the import service
func (s *ImportService) WithCategorizationService(catService CategorizationService) *ImportService {
	s.catService = catService
	return s
}

// WithLimits overrides the default file size and row sampling limits
func (s *ImportService) WithLimits(maxFileBytes int64, previewRows, sampleRows int) *ImportService {
	if maxFileBytes > 0 {
		s.maxFileBytes = maxFileBytes
	}
	if previewRows > 0 {
		s.previewRows = previewRows
	}
	if sampleRows > 0 {
		s.sampleRows = sampleRows
	}
	return s
}

// Preview parses an uploaded statement, suggests a column mapping and
// opens a session the user can later commit. The raw file is kept in
// storage so the original stays downloadable from the import history.
func (s *ImportService) Preview(ctx context.Context, userID uuid.UUID, fileName string, data []byte) (*PreviewResult, error) {
	ctx, span := s.tracer.Start(ctx, "import.preview")
	defer span.End()

	if len(data) == 0 {
		return nil, ErrEmptyFile
	}
	if int64(len(data)) > s.maxFileBytes {
		return nil, ErrFileTooLarge
	}

	var (
		parsed   *parser.Result
		mimeType string
		err      error
	)
	if parser.IsExcel(data) {
		parsed, err = parser.ParseExcel(data)
		mimeType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	} else {
		parsed, err = parser.Parse(data, 0)
		mimeType = "text/csv"
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse statement: %w", err)
	}

	sample := parsed.Rows
	if len(sample) > s.sampleRows {
		sample = sample[:s.sampleRows]
	}
	suggested := sniffer.InferMapping(parsed.Headers, sample)
	fingerprint := sniffer.Fingerprint(parsed.Headers)

	known := false
	if saved, err := s.repo.GetMapping(ctx, userID, fingerprint); err == nil {
		var m sniffer.ColumnMapping
		if jsonErr := json.Unmarshal(saved.Mapping, &m); jsonErr == nil {
			suggested = m
			known = true
		}
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to lookup saved mapping: %w", err)
	}

	fileID := uuid.New()
	path, size, err := s.files.Save(ctx, userID, fileID, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to store uploaded file: %w", err)
	}
	file := &repository.UserFile{
		ID:          fileID,
		UserID:      userID,
		FileName:    fileName,
		MimeType:    mimeType,
		SizeBytes:   size,
		StoragePath: path,
	}
	if err := s.repo.CreateUserFile(ctx, file); err != nil {
		return nil, fmt.Errorf("failed to record uploaded file: %w", err)
	}

	sess := &session.Session{
		UserID:      userID,
		FileID:      fileID,
		FileName:    fileName,
		Headers:     parsed.Headers,
		Rows:        parsed.Rows,
		Warnings:    parsed.Warnings,
		Suggested:   suggested,
		Fingerprint: fingerprint,
	}
	s.sessions.Put(sess)

	metrics.PreviewsTotal.Inc()
	s.logger.Info("statement previewed",
		slog.String("user_id", userID.String()),
		slog.String("session_id", sess.ID.String()),
		slog.Int("rows", len(parsed.Rows)),
		slog.Int("warnings", len(parsed.Warnings)),
		slog.Bool("known_mapping", known),
	)

	previewRows := parsed.Rows
	if len(previewRows) > s.previewRows {
		previewRows = previewRows[:s.previewRows]
	}
	return &PreviewResult{
		SessionID:    sess.ID,
		FileID:       fileID,
		Headers:      parsed.Headers,
		Rows:         previewRows,
		RowsTotal:    len(parsed.Rows),
		Warnings:     parsed.Warnings,
		Suggested:    suggested,
		Fingerprint:  fingerprint,
		KnownMapping: known,
	}, nil
}

// Commit writes a previewed session to the account using the confirmed
// mapping. All valid rows land in one transaction: either the whole
// batch is recorded or none of it is. Problem rows never abort the
// commit, they are reported back instead.
func (s *ImportService) Commit(ctx context.Context, userID uuid.UUID, req CommitRequest) (*ImportResult, error) {
	ctx, span := s.tracer.Start(ctx, "import.commit")
	defer span.End()

	timer := prometheus.NewTimer(metrics.CommitDuration)
	defer timer.ObserveDuration()

	if err := req.Mapping.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMapping, err)
	}

	sess, err := s.sessions.Get(req.SessionID, userID)
	if err != nil {
		return nil, err
	}
	currency, err := s.accounts.CurrencyFor(ctx, req.AccountID, userID)
	if err != nil {
		return nil, err
	}

	candidates, rowErrors := buildCandidates(sess.Rows, req.Mapping, currency)

	// Identical rows within the same file are duplicates of each other;
	// only the first survives.
	candidates, intraDupes := dropIntraBatchDuplicates(candidates)

	if s.catService != nil {
		descriptions := make([]string, len(candidates))
		for i, c := range candidates {
			descriptions[i] = c.Description
		}
		categories := s.catService.CategorizeBatch(ctx, userID, descriptions)
		for i, cat := range categories {
			if i < len(candidates) {
				candidates[i].Category = cat
			}
		}
	}

	job := &repository.ImportJob{
		UserID:    userID,
		AccountID: req.AccountID,
		FileID:    &sess.FileID,
		RowsTotal: len(sess.Rows),
	}
	if err := s.repo.CreateJob(ctx, job); err != nil {
		return nil, err
	}

	batch, err := s.repo.InsertBatch(ctx, userID, req.AccountID, job.ID, currency, candidates)
	if err != nil {
		s.failJob(ctx, job, err)
		return nil, fmt.Errorf("failed to commit batch: %w", err)
	}

	job.Status = repository.ImportJobStatusCompleted
	job.RowsImported = batch.Inserted
	job.DuplicatesSkipped = batch.Duplicates + intraDupes
	job.RowsFailed = len(rowErrors)
	if err := s.repo.FinishJob(ctx, job); err != nil {
		return nil, err
	}
	if len(rowErrors) > 0 {
		persisted := make([]*repository.ImportRowError, len(rowErrors))
		for i, e := range rowErrors {
			persisted[i] = &repository.ImportRowError{
				JobID:    job.ID,
				RowIndex: e.Row,
				Code:     e.Code,
				Message:  e.Message,
			}
		}
		if err := s.repo.SaveRowErrors(ctx, persisted); err != nil {
			s.logger.Warn("failed to persist row errors", slog.String("job_id", job.ID.String()), slog.Any("error", err))
		}
	}

	if req.RememberMapping {
		s.rememberMapping(ctx, userID, sess.Fingerprint, req)
	}
	s.sessions.Delete(sess.ID)

	metrics.RowsImported.Add(float64(batch.Inserted))
	metrics.DuplicatesSkipped.Add(float64(job.DuplicatesSkipped))
	for _, e := range rowErrors {
		metrics.RowErrors.WithLabelValues(e.Code).Inc()
	}

	s.logger.Info("statement committed",
		slog.String("user_id", userID.String()),
		slog.String("job_id", job.ID.String()),
		slog.Int("imported", batch.Inserted),
		slog.Int("duplicates", job.DuplicatesSkipped),
		slog.Int("failed", len(rowErrors)),
	)

	return &ImportResult{
		JobID:             job.ID,
		RowsTotal:         len(sess.Rows),
		RowsImported:      batch.Inserted,
		DuplicatesSkipped: job.DuplicatesSkipped,
		RowsFailed:        len(rowErrors),
		Errors:            rowErrors,
	}, nil
}

func (s *ImportService) failJob(ctx context.Context, job *repository.ImportJob, cause error) {
	msg := cause.Error()
	job.Status = repository.ImportJobStatusFailed
	job.ErrorMessage = &msg
	if err := s.repo.FinishJob(ctx, job); err != nil {
		s.logger.Error("failed to mark import job failed", slog.String("job_id", job.ID.String()), slog.Any("error", err))
	}
}

func (s *ImportService) rememberMapping(ctx context.Context, userID uuid.UUID, fingerprint string, req CommitRequest) {
	raw, err := json.Marshal(req.Mapping)
	if err != nil {
		return
	}
	var bankName *string
	if req.BankName != "" {
		bankName = &req.BankName
	}
	m := &repository.BankMapping{
		UserID:      userID,
		Fingerprint: fingerprint,
		BankName:    bankName,
		Mapping:     raw,
	}
	if err := s.repo.SaveMapping(ctx, m); err != nil {
		s.logger.Warn("failed to remember mapping", slog.String("user_id", userID.String()), slog.Any("error", err))
	}
}

// ListJobs returns the user's recent import history
func (s *ImportService) ListJobs(ctx context.Context, userID uuid.UUID, limit int) ([]*repository.ImportJob, error) {
	if limit <= 0 {
		limit = defaultJobListLimit
	}
	return s.repo.ListJobs(ctx, userID, limit)
}

// GetJob returns one import job, scoped to its owner
func (s *ImportService) GetJob(ctx context.Context, id, userID uuid.UUID) (*repository.ImportJob, error) {
	return s.repo.GetJob(ctx, id, userID)
}

// OpenFile returns the original uploaded statement and its metadata,
// scoped to the owner. The caller must close the reader.
func (s *ImportService) OpenFile(ctx context.Context, userID, fileID uuid.UUID) (io.ReadCloser, *repository.UserFile, error) {
	file, err := s.repo.GetUserFile(ctx, fileID, userID)
	if err != nil {
		return nil, nil, err
	}
	rc, err := s.files.Open(ctx, userID, fileID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open stored file: %w", err)
	}
	return rc, file, nil
}

// buildCandidates normalizes parsed rows into insertable transactions.
// A row failing any field check is reported and skipped; the rest of
// the file is unaffected.
func buildCandidates(rows []parser.Row, m sniffer.ColumnMapping, currency string) ([]*repository.TransactionCandidate, []RowError) {
	var (
		candidates []*repository.TransactionCandidate
		rowErrors  []RowError
	)

	fail := func(row parser.Row, code, message string) {
		rowErrors = append(rowErrors, RowError{Row: row.Index, Code: code, Message: message})
	}

	for _, row := range rows {
		dateRaw := row.Get(m.Date)
		if dateRaw == "" {
			fail(row, CodeMissingField, fmt.Sprintf("column %q is empty", m.Date))
			continue
		}
		description := normalizer.CleanDescription(row.Get(m.Description))
		if description == "" {
			fail(row, CodeMissingField, fmt.Sprintf("column %q is empty", m.Description))
			continue
		}

		date, err := normalizer.ParseDate(dateRaw, m.DayFirst)
		if err != nil {
			fail(row, CodeInvalidDate, err.Error())
			continue
		}

		debitMinor, creditMinor, amountErr := rowAmounts(row, m, currency)
		if amountErr != "" {
			fail(row, CodeInvalidAmount, amountErr)
			continue
		}

		candidates = append(candidates, &repository.TransactionCandidate{
			RowIndex:        row.Index,
			Date:            date,
			Description:     description,
			DescriptionNorm: normalizer.DedupDescription(description),
			DebitMinor:      debitMinor,
			CreditMinor:     creditMinor,
		})
	}
	return candidates, rowErrors
}

// rowAmounts extracts the debit/credit minor units from a row. With
// separate columns the values are magnitudes; with a single signed
// column a negative value is a debit and a positive one a credit.
func rowAmounts(row parser.Row, m sniffer.ColumnMapping, currency string) (debitMinor, creditMinor int64, errMessage string) {
	if m.SeparateColumns() {
		debitRaw := row.Get(m.Debit)
		creditRaw := row.Get(m.Credit)
		if debitRaw == "" && creditRaw == "" {
			return 0, 0, "no debit or credit value"
		}
		if debitRaw != "" {
			d, err := normalizer.ParseAmount(debitRaw, m.EuropeanAmounts)
			if err != nil {
				return 0, 0, err.Error()
			}
			debitMinor = money.FromDecimal(d.Abs(), currency).MinorUnits
		}
		if creditRaw != "" {
			c, err := normalizer.ParseAmount(creditRaw, m.EuropeanAmounts)
			if err != nil {
				return 0, 0, err.Error()
			}
			creditMinor = money.FromDecimal(c.Abs(), currency).MinorUnits
		}
		switch {
		case debitMinor > 0 && creditMinor > 0:
			return 0, 0, "row has both a debit and a credit value"
		case debitMinor == 0 && creditMinor == 0:
			return 0, 0, "zero amount"
		}
		return debitMinor, creditMinor, ""
	}

	amountRaw := row.Get(m.Amount)
	if amountRaw == "" {
		return 0, 0, "no amount value"
	}
	a, err := normalizer.ParseAmount(amountRaw, m.EuropeanAmounts)
	if err != nil {
		return 0, 0, err.Error()
	}
	minor := money.FromDecimal(a.Abs(), currency).MinorUnits
	if minor == 0 {
		return 0, 0, "zero amount"
	}
	if a.IsNegative() {
		return minor, 0, ""
	}
	return 0, minor, ""
}

func dropIntraBatchDuplicates(candidates []*repository.TransactionCandidate) ([]*repository.TransactionCandidate, int) {
	seen := make(map[string]bool, len(candidates))
	kept := candidates[:0]
	dropped := 0
	for _, c := range candidates {
		key := dedupKey(c)
		if seen[key] {
			dropped++
			continue
		}
		seen[key] = true
		kept = append(kept, c)
	}
	return kept, dropped
}

func dedupKey(c *repository.TransactionCandidate) string {
	return strings.Join([]string{
		c.Date.Format("2006-01-02"),
		c.DescriptionNorm,
		strconv.FormatInt(c.DebitMinor, 10),
		strconv.FormatInt(c.CreditMinor, 10),
	}, "|")
}
