package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"herbtrace/internal/api"
	"herbtrace/internal/archive"
	"herbtrace/internal/chain"
	"herbtrace/internal/compliance"
	"herbtrace/internal/config"
	"herbtrace/internal/database"
	"herbtrace/internal/encryption"
	"herbtrace/internal/ledger"
	"herbtrace/internal/model"
	"herbtrace/internal/scan"
)

// HTApp is the application layer between the CLI and the ledger service.
// It builds every dependency from config, records mutating operations and,
// on Close, publishes a sealed snapshot of the ledger database.
type HTApp struct {
	cfg     *config.Config
	db      *database.SQLiteDatabase
	archive ledger.Archive
	sealer  ledger.Sealer
	service *ledger.Service
	scanner *scan.BulkScanner
	logger  ledger.Logger
	op      *Operation
	logFile *os.File
}

// Options adjust how NewHTApp wires the application.
type Options struct {
	// LogWriter receives log lines in addition to the log file. Nil means
	// the log file only.
	LogWriter io.Writer
}

// NewHTApp creates a fully wired HTApp for one invocation of operation.
// The caller must call Close when done.
func NewHTApp(cfg *config.Config, opts Options, operation string, args ...string) (*HTApp, error) {
	rules, err := loadRules(cfg.Compliance)
	if err != nil {
		return nil, err
	}

	var arch ledger.Archive
	if len(cfg.Archives) > 0 {
		arch, err = archive.NewArchiveFromConfig(cfg.Archives[0])
		if err != nil {
			return nil, fmt.Errorf("creating archive: %w", err)
		}
	}

	sealer, err := encryption.NewSealerFromConfig(cfg.Encryption)
	if err != nil {
		return nil, fmt.Errorf("creating sealer: %w", err)
	}

	db, err := database.NewDatabaseFromConfig(cfg.Database, cfg.LedgerID)
	if err != nil {
		return nil, fmt.Errorf("creating database: %w", err)
	}

	if err := db.CheckMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database schema out of date: %w", err)
	}

	if arch != nil {
		if err := checkVersions(db, arch, cfg.LedgerID); err != nil {
			db.Close()
			return nil, err
		}
	}

	opID := time.Now().UTC().Format("20060102T150405Z")
	slogger, logFile, err := newLogger(cfg.LogDir, opID, cfg.LogLevel, opts.LogWriter)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	logger := &slogAdapter{l: slogger}

	svc := ledger.NewService(db, rules, arch, sealer, logger, ledger.RealClock{}, ledger.UUIDGenerator{}, serviceOptions(cfg))

	return &HTApp{
		cfg:     cfg,
		db:      db,
		archive: arch,
		sealer:  sealer,
		service: svc,
		scanner: scan.NewBulkScanner(svc, logger, cfg.Scan.Workers),
		logger:  logger,
		op:      NewOperation(operation, args...),
		logFile: logFile,
	}, nil
}

// checkVersions refuses to run on a local database older than its archive.
func checkVersions(db *database.SQLiteDatabase, arch ledger.Archive, ledgerID string) error {
	remote, err := arch.GetSnapshotVersion(ledgerID)
	if err != nil {
		return fmt.Errorf("checking archived snapshot version: %w", err)
	}
	local, err := db.MaxOperationID()
	if err != nil {
		return fmt.Errorf("checking local operation version: %w", err)
	}
	if remote > local {
		return fmt.Errorf("local ledger is behind the archive (local=%d, archive=%d): run 'herbtrace archive restore' first", local, remote)
	}
	return nil
}

func loadRules(cfg config.ComplianceConfig) (*compliance.RuleSet, error) {
	if cfg.RulesPath == "" {
		return compliance.DefaultRuleSet(), nil
	}
	f, err := os.Open(cfg.RulesPath)
	if err != nil {
		return nil, fmt.Errorf("opening rule file: %w", err)
	}
	defer f.Close()

	rules, err := compliance.LoadRuleSet(f)
	if err != nil {
		return nil, fmt.Errorf("loading rules from %s: %w", cfg.RulesPath, err)
	}
	return rules, nil
}

func serviceOptions(cfg *config.Config) ledger.Options {
	return ledger.Options{
		BonusAmount:   cfg.Rewards.BonusAmount,
		OncePerSerial: cfg.Rewards.OncePerSerial,
		MaxRetries:    cfg.Rewards.MaxRetries,
		RetryBackoff:  cfg.Rewards.RetryBackoff.Duration,
		UnitsPerBatch: cfg.Labels.UnitsPerBatch,
	}
}

// persistOperation saves the operation, giving it an auto-increment ID.
// Only ledger-mutating commands call it.
func (a *HTApp) persistOperation() error {
	if a.op.Persisted() {
		return nil
	}
	dbOp, err := a.db.CreateOperation(a.op.Operation, a.op.Parameters)
	if err != nil {
		return fmt.Errorf("persisting operation: %w", err)
	}
	a.op.ID = dbOp.ID
	return nil
}

// Operation returns the operation this app instance is recording.
func (a *HTApp) Operation() *Operation {
	return a.op
}

func (a *HTApp) Plants() []string {
	return a.service.Plants()
}

func (a *HTApp) CheckCompliance(plant string, coord model.Coordinate) (compliance.Verdict, error) {
	return a.service.CheckCompliance(plant, coord)
}

// SubmitHarvest commits a compliant harvest as a new block.
func (a *HTApp) SubmitHarvest(ctx context.Context, req ledger.HarvestRequest) (*ledger.Submission, error) {
	if err := a.persistOperation(); err != nil {
		return nil, err
	}
	sub, err := a.service.SubmitHarvest(ctx, req)
	return sub, a.op.Record(err)
}

// RecordEvent attaches a lab test or manufacturing step to a batch.
func (a *HTApp) RecordEvent(ctx context.Context, batchRef string, in ledger.EventInput) (*model.SupplyChainEvent, error) {
	if err := a.persistOperation(); err != nil {
		return nil, err
	}
	event, err := a.service.RecordEvent(ctx, batchRef, in)
	return event, a.op.Record(err)
}

// Scan resolves a serial and applies the reward.
func (a *HTApp) Scan(ctx context.Context, code string) (*ledger.ScanOutcome, error) {
	if err := a.persistOperation(); err != nil {
		return nil, err
	}
	out, err := a.service.Scan(ctx, code)
	return out, a.op.Record(err)
}

// ScanAll rewards every serial through the bulk scan pool.
func (a *HTApp) ScanAll(ctx context.Context, serials []string) ([]scan.Result, error) {
	if err := a.persistOperation(); err != nil {
		return nil, err
	}
	results, err := a.scanner.ScanAll(ctx, serials)
	return results, a.op.Record(err)
}

func (a *HTApp) Resolve(ctx context.Context, code string) (*model.FullHistory, error) {
	return a.service.Resolve(ctx, code)
}

func (a *HTApp) ListBatches(ctx context.Context, limit int) ([]*model.HarvestBatch, error) {
	return a.service.ListBatches(ctx, limit)
}

func (a *HTApp) Earnings(ctx context.Context) (*ledger.Earnings, error) {
	return a.service.Earnings(ctx)
}

func (a *HTApp) Labels(ctx context.Context, batchRef string) ([]string, error) {
	return a.service.Labels(ctx, batchRef)
}

func (a *HTApp) VerifyChain(ctx context.Context) (*chain.Report, error) {
	return a.service.VerifyChain(ctx)
}

// GetHistory returns the most recent operations.
func (a *HTApp) GetHistory(limit int) ([]*model.Operation, error) {
	return a.service.GetHistory(limit)
}

// Handler returns the HTTP API for this app.
func (a *HTApp) Handler() http.Handler {
	return api.NewRouter(api.NewServer(a.service, a.scanner, a.logger))
}

// Serve runs the HTTP API on cfg.Server.Listen until ctx is cancelled.
// A served session counts as one mutating operation.
func (a *HTApp) Serve(ctx context.Context) error {
	if err := a.persistOperation(); err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              a.cfg.Server.Listen,
		Handler:           a.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	a.logger.Info("api listening", "addr", a.cfg.Server.Listen)

	select {
	case err := <-errCh:
		return a.op.Record(fmt.Errorf("serving api: %w", err))
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return a.op.Record(fmt.Errorf("shutting down api: %w", err))
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return a.op.Record(err)
	}
	return nil
}

// Close finalizes the operation and closes all resources. For persisted
// operations it also snapshots the database and publishes it to the
// archive with version = operation ID.
func (a *HTApp) Close() error {
	var firstErr error
	keep := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	if !a.op.Persisted() {
		if err := a.db.Close(); err != nil {
			keep(fmt.Errorf("closing database: %w", err))
		}
		a.closeLog()
		return firstErr
	}

	if err := a.db.FinishOperation(a.op.ID, a.op.Status); err != nil {
		keep(fmt.Errorf("finishing operation: %w", err))
	}

	var snapshot, tmpDir string
	if a.archive != nil {
		dir, err := os.MkdirTemp("", "herbtrace-snapshot-")
		if err != nil {
			keep(fmt.Errorf("creating temp dir for snapshot: %w", err))
		} else {
			tmpDir = dir
			snapshot = filepath.Join(dir, a.cfg.LedgerID+".db")
			if err := a.db.BackupTo(snapshot); err != nil {
				keep(err)
				snapshot = ""
			}
		}
	}

	if err := a.db.Close(); err != nil {
		keep(fmt.Errorf("closing database: %w", err))
	}

	if snapshot != "" {
		keep(a.publish(snapshot, a.op.ID))
	}
	if tmpDir != "" {
		os.RemoveAll(tmpDir)
	}

	a.closeLog()
	return firstErr
}

func (a *HTApp) publish(path string, version int64) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening snapshot: %w", err)
	}
	defer f.Close()

	if err := a.service.PublishSnapshot(a.cfg.LedgerID, f, version); err != nil {
		return fmt.Errorf("publishing snapshot: %w", err)
	}
	return nil
}

func (a *HTApp) closeLog() {
	if a.logFile != nil {
		a.logFile.Close()
	}
}

// Initialize writes a new config file and prepares the ledger database,
// the archive layout and the log directory it names.
func Initialize(configPath string, cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if err := config.Init(configPath, cfg); err != nil {
		return err
	}
	if err := MigrateDatabase(cfg); err != nil {
		return err
	}
	for _, ac := range cfg.Archives {
		if ac.Type != "filesystem" {
			continue
		}
		if _, err := archive.NewArchiveFromConfig(ac); err != nil {
			return fmt.Errorf("preparing archive %s: %w", ac.Name, err)
		}
	}
	if cfg.LogDir != "" {
		if err := os.MkdirAll(cfg.LogDir, 0755); err != nil {
			return fmt.Errorf("creating log directory: %w", err)
		}
	}
	return nil
}

// MigrateDatabase applies pending schema migrations to the ledger database.
func MigrateDatabase(cfg *config.Config) error {
	db, err := database.NewDatabaseFromConfig(cfg.Database, cfg.LedgerID)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		return fmt.Errorf("migrating database: %w", err)
	}
	return nil
}

// SetupKeys generates the snapshot sealing keys.
func SetupKeys(cfg *config.Config, passphrase string) error {
	sealer, err := encryption.NewSealerFromConfig(cfg.Encryption)
	if err != nil {
		return fmt.Errorf("creating sealer: %w", err)
	}
	if sealer.IsConfigured() {
		return fmt.Errorf("encryption keys already exist")
	}
	return sealer.Setup(passphrase)
}

// RestoreSnapshot downloads the archived snapshot, opens it with passphrase
// and writes the database to outPath. outPath must not exist.
func RestoreSnapshot(cfg *config.Config, passphrase, outPath string) error {
	if len(cfg.Archives) == 0 {
		return fmt.Errorf("no archives configured")
	}
	arch, err := archive.NewArchiveFromConfig(cfg.Archives[0])
	if err != nil {
		return fmt.Errorf("creating archive: %w", err)
	}
	sealer, err := encryption.NewSealerFromConfig(cfg.Encryption)
	if err != nil {
		return fmt.Errorf("creating sealer: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	out, err := os.OpenFile(outPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return fmt.Errorf("creating %s: %w", outPath, err)
	}

	svc := ledger.NewService(nil, nil, arch, sealer, ledger.NewNopLogger(), ledger.RealClock{}, ledger.UUIDGenerator{}, serviceOptions(cfg))
	if err := svc.RestoreSnapshot(cfg.LedgerID, passphrase, out); err != nil {
		out.Close()
		os.Remove(outPath)
		return err
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", outPath, err)
	}
	return nil
}
