package main

import (
	"fmt"
	"log/slog"
	"time"

	accountshandler "github.com/ledgerline/statements/internal/domain/accounts/handler"
	accountsrepo "github.com/ledgerline/statements/internal/domain/accounts/repository"
	accountsservice "github.com/ledgerline/statements/internal/domain/accounts/service"
	"github.com/ledgerline/statements/internal/domain/categorization"
	goalshandler "github.com/ledgerline/statements/internal/domain/goals/handler"
	goalsrepo "github.com/ledgerline/statements/internal/domain/goals/repository"
	goalsservice "github.com/ledgerline/statements/internal/domain/goals/service"
	importhandler "github.com/ledgerline/statements/internal/domain/importer/handler"
	importrepo "github.com/ledgerline/statements/internal/domain/importer/repository"
	importservice "github.com/ledgerline/statements/internal/domain/importer/service"
	"github.com/ledgerline/statements/internal/domain/importer/session"

	"github.com/ledgerline/statements/pkg/config"
	"github.com/ledgerline/statements/pkg/cron"
	"github.com/ledgerline/statements/pkg/db"
	"github.com/ledgerline/statements/pkg/storage"
)

// Dependencies holds all application dependencies
type Dependencies struct {
	Config *config.Config
	DB     *db.DB
	Logger *slog.Logger

	// Repositories
	ImportRepo         importrepo.ImportRepository
	AccountsRepo       accountsrepo.AccountRepository
	GoalsRepo          goalsrepo.GoalRepository
	CategorizationRepo *categorization.Repository

	// Services
	ImportService         *importservice.ImportService
	AccountsService       *accountsservice.AccountService
	GoalsService          *goalsservice.GoalService
	CategorizationService *categorization.Service
	Sessions              *session.Store
	FileStorage           storage.Storage
	Scheduler             *cron.Scheduler

	// Handlers
	ImportHandler         *importhandler.ImportHandler
	AccountsHandler       *accountshandler.AccountHandler
	GoalsHandler          *goalshandler.GoalHandler
	CategorizationHandler *categorization.Handler
}

// InitDependencies initializes all application dependencies
func InitDependencies(cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	if err := deps.initDatabase(); err != nil {
		return nil, fmt.Errorf("failed to init database: %w", err)
	}

	if err := deps.initRepositories(); err != nil {
		return nil, fmt.Errorf("failed to init repositories: %w", err)
	}

	if err := deps.initServices(); err != nil {
		return nil, fmt.Errorf("failed to init services: %w", err)
	}

	if err := deps.initHandlers(); err != nil {
		return nil, fmt.Errorf("failed to init handlers: %w", err)
	}

	logger.Info("all dependencies initialized successfully")

	return deps, nil
}

// initDatabase initializes the database connection and runs migrations
func (d *Dependencies) initDatabase() error {
	database, err := db.New(db.Config{
		DSN:             d.Config.Database.DSN(),
		MaxConns:        25,
		MinConns:        5,
		MaxConnLifetime: 5 * time.Minute,
		MaxConnIdleTime: 10 * time.Minute,
	}, d.Logger)
	if err != nil {
		return err
	}

	d.DB = database

	if err := d.DB.RunMigrations(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	d.Logger.Info("database connected and migrations completed successfully")
	return nil
}

// initRepositories initializes all repository layer dependencies
func (d *Dependencies) initRepositories() error {
	d.ImportRepo = importrepo.NewPostgresImportRepository(d.DB.Pool)
	d.AccountsRepo = accountsrepo.NewPostgresAccountRepository(d.DB.Pool)
	d.GoalsRepo = goalsrepo.NewPostgresGoalRepository(d.DB.Pool)
	d.CategorizationRepo = categorization.NewRepository(d.DB.Pool)

	d.Logger.Info("repositories initialized")
	return nil
}

// initServices initializes all service layer dependencies
func (d *Dependencies) initServices() error {
	fileStorage, err := storage.NewLocalStorage(d.Config.Import.UploadDir)
	if err != nil {
		return fmt.Errorf("failed to init file storage: %w", err)
	}
	d.FileStorage = fileStorage

	// Preview sessions live in memory; the scheduler sweeps the expired ones.
	d.Sessions = session.NewStore(d.Config.Import.SessionTTL)

	d.AccountsService = accountsservice.NewAccountService(d.AccountsRepo, d.Logger)
	d.GoalsService = goalsservice.NewGoalService(d.GoalsRepo, d.Logger)
	d.CategorizationService = categorization.NewService(d.CategorizationRepo, d.Logger)

	// Import service with categorization wired in for enrichment at commit time
	d.ImportService = importservice.NewImportService(d.ImportRepo, d.AccountsService, d.Sessions, d.FileStorage, d.Logger).
		WithCategorizationService(d.CategorizationService).
		WithLimits(d.Config.Import.MaxFileBytes, d.Config.Import.PreviewRows, d.Config.Import.SampleRows)

	d.Scheduler = cron.NewScheduler(
		d.Sessions,
		d.ImportRepo,
		d.FileStorage,
		d.Config.Import.SweepFrequency,
		d.Config.Import.JobRetention,
		d.Logger,
	)

	d.Logger.Info("services initialized")
	return nil
}

// initHandlers initializes all handler dependencies
func (d *Dependencies) initHandlers() error {
	d.ImportHandler = importhandler.NewImportHandler(d.ImportService, d.Logger)
	d.AccountsHandler = accountshandler.NewAccountHandler(d.AccountsService, d.Logger)
	d.GoalsHandler = goalshandler.NewGoalHandler(d.GoalsService, d.Logger)
	d.CategorizationHandler = categorization.NewHandler(d.CategorizationService, d.Logger)

	d.Logger.Info("handlers initialized")
	return nil
}

// Cleanup closes all resources
func (d *Dependencies) Cleanup() {
	if d.Scheduler != nil {
		<-d.Scheduler.Stop().Done()
	}
	if d.DB != nil {
		d.DB.Close()
	}
	d.Logger.Info("cleanup completed")
}
