// Package cron provides scheduled background jobs using robfig/cron.
package cron

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	importrepo "github.com/ledgerline/statements/internal/domain/importer/repository"
	"github.com/ledgerline/statements/internal/domain/importer/session"
	"github.com/ledgerline/statements/pkg/storage"
)

// Scheduler manages background scheduled jobs using robfig/cron.
type Scheduler struct {
	cron       *cron.Cron
	sessions   *session.Store
	importRepo importrepo.ImportRepository
	files      storage.Storage
	logger     *slog.Logger

	sweepEvery   time.Duration
	jobRetention time.Duration
}

// NewScheduler creates a new job scheduler.
func NewScheduler(sessions *session.Store, importRepo importrepo.ImportRepository, files storage.Storage, sweepEvery, jobRetention time.Duration, logger *slog.Logger) *Scheduler {
	c := cron.New(cron.WithLogger(cron.VerbosePrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelDebug))))

	return &Scheduler{
		cron:         c,
		sessions:     sessions,
		importRepo:   importRepo,
		files:        files,
		logger:       logger,
		sweepEvery:   sweepEvery,
		jobRetention: jobRetention,
	}
}

// Start begins scheduled jobs.
func (s *Scheduler) Start() error {
	// Expired preview sessions are swept frequently; their row data is
	// the largest thing held in memory.
	if _, err := s.cron.AddFunc(fmt.Sprintf("@every %s", s.sweepEvery), s.sweepSessions); err != nil {
		return err
	}

	// Old import jobs, their error reports and the stored statement
	// files age out nightly.
	if _, err := s.cron.AddFunc("0 3 * * *", s.purgeOldJobs); err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info("cron scheduler started",
		slog.Int("jobs", len(s.cron.Entries())),
	)
	return nil
}

// Stop gracefully stops all scheduled jobs.
func (s *Scheduler) Stop() context.Context {
	s.logger.Info("cron scheduler stopping")
	return s.cron.Stop()
}

// sweepSessions drops expired preview sessions. A session that expires
// without being committed is the last reference to its uploaded file,
// so the stored bytes and the user_files row go with it.
func (s *Scheduler) sweepSessions() {
	removed := s.sessions.Sweep()
	if len(removed) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	for _, sess := range removed {
		if err := s.files.Delete(ctx, sess.UserID, sess.FileID); err != nil {
			s.logger.Warn("failed to delete expired session file",
				slog.String("file_id", sess.FileID.String()), slog.Any("error", err))
			continue
		}
		if err := s.importRepo.DeleteUserFile(ctx, sess.FileID, sess.UserID); err != nil {
			s.logger.Warn("failed to delete expired session file record",
				slog.String("file_id", sess.FileID.String()), slog.Any("error", err))
		}
	}
	s.logger.Info("expired import sessions swept", slog.Int("removed", len(removed)))
}

func (s *Scheduler) purgeOldJobs() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	cutoff := time.Now().Add(-s.jobRetention)
	removed, err := s.importRepo.DeleteJobsBefore(ctx, cutoff)
	if err != nil {
		s.logger.Error("failed to purge old import jobs", slog.Any("error", err))
		return
	}

	// Stored originals follow the same retention as the job history
	// they belong to.
	files, err := s.importRepo.DeleteUserFilesBefore(ctx, cutoff)
	if err != nil {
		s.logger.Error("failed to purge old statement files", slog.Any("error", err))
		return
	}
	for _, f := range files {
		if err := s.files.Delete(ctx, f.UserID, f.ID); err != nil {
			s.logger.Warn("failed to delete stored statement file",
				slog.String("file_id", f.ID.String()), slog.Any("error", err))
		}
	}

	if removed > 0 || len(files) > 0 {
		s.logger.Info("old import data purged",
			slog.Int64("jobs_removed", removed),
			slog.Int("files_removed", len(files)),
			slog.Time("cutoff", cutoff),
		)
	}
}
