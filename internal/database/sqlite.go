package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mattn/go-sqlite3"

	"herbtrace/internal/database/migrations"
	"herbtrace/internal/database/sqlc"
	"herbtrace/internal/ledger"
	"herbtrace/internal/model"
)

// busyTimeout is how long a writer waits for the SQLite write lock before
// the driver reports SQLITE_BUSY.
const busyTimeout = 5 * time.Second

// prefixUpperBound is appended to a prefix to form the inclusive upper end of
// a range scan over ids.
const prefixUpperBound = "\uf8ff"

// SQLiteDatabase implements ledger.Store using SQLite.
type SQLiteDatabase struct {
	db      *sql.DB
	queries *sqlc.Queries
	path    string

	// appendMu serializes block appends within this process. The immediate
	// transaction serializes them across processes.
	appendMu sync.Mutex
}

var _ ledger.Store = (*SQLiteDatabase)(nil)

// NewSQLiteDatabase creates a new SQLite database connection.
// path can be a file path or ":memory:" for in-memory database.
func NewSQLiteDatabase(path string) (*SQLiteDatabase, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}

	return &SQLiteDatabase{
		db:      db,
		queries: sqlc.New(db),
		path:    path,
	}, nil
}

// NewSQLiteDatabaseFromDB wraps an existing database connection.
// The caller is responsible for ensuring the connection is properly configured.
func NewSQLiteDatabaseFromDB(db *sql.DB) *SQLiteDatabase {
	return &SQLiteDatabase{
		db:      db,
		queries: sqlc.New(db),
	}
}

// OpenConnection opens and configures a SQLite database connection.
// Every transaction begins IMMEDIATE so a writer takes the write lock before
// it reads. An in-memory database lives on a single connection.
func OpenConnection(path string) (*sql.DB, error) {
	params := fmt.Sprintf("_txlock=immediate&_foreign_keys=1&_busy_timeout=%d", busyTimeout.Milliseconds())
	if path != ":memory:" {
		params += "&_journal_mode=WAL&_synchronous=NORMAL"
	}

	db, err := sql.Open("sqlite3", path+"?"+params)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if path == ":memory:" {
		db.SetMaxOpenConns(1)
		db.SetConnMaxLifetime(0)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return db, nil
}

// classify maps SQLite lock errors to ledger.ErrConflict.
func classify(err error) error {
	var se sqlite3.Error
	if errors.As(err, &se) && (se.Code == sqlite3.ErrBusy || se.Code == sqlite3.ErrLocked) {
		return fmt.Errorf("%w: %v", ledger.ErrConflict, err)
	}
	return err
}

// Batch operations

func (s *SQLiteDatabase) AppendBatch(ctx context.Context, build ledger.BuildFunc) (*model.HarvestBatch, error) {
	s.appendMu.Lock()
	defer s.appendMu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("starting transaction: %w", classify(err))
	}
	defer tx.Rollback()

	qtx := s.queries.WithTx(tx)

	var tip *model.HarvestBatch
	latest, err := qtx.GetLatestBatch(ctx)
	switch {
	case err == nil:
		tip = batchFromRow(latest)
	case errors.Is(err, sql.ErrNoRows):
		// empty ledger
	default:
		return nil, fmt.Errorf("reading latest batch: %w", classify(err))
	}

	batch, err := build(tip)
	if err != nil {
		return nil, err
	}

	if err := qtx.InsertBatch(ctx, insertBatchParams(batch)); err != nil {
		return nil, fmt.Errorf("inserting batch: %w", classify(err))
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing transaction: %w", classify(err))
	}

	return batch, nil
}

func (s *SQLiteDatabase) FindBatchByID(ctx context.Context, id string) (*model.HarvestBatch, error) {
	row, err := s.queries.GetBatchByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("finding batch by id: %w", err)
	}
	return batchFromRow(row), nil
}

func (s *SQLiteDatabase) FindBatchByPrefix(ctx context.Context, prefix string) (*model.HarvestBatch, error) {
	batches, err := s.FindBatchesByPrefix(ctx, prefix, 1)
	if err != nil {
		return nil, err
	}
	if len(batches) == 0 {
		return nil, nil
	}
	return batches[0], nil
}

func (s *SQLiteDatabase) FindBatchesByPrefix(ctx context.Context, prefix string, limit int) ([]*model.HarvestBatch, error) {
	if prefix == "" {
		return nil, fmt.Errorf("finding batches by prefix: empty prefix")
	}
	rows, err := s.queries.GetBatchesByIDRange(ctx, sqlc.GetBatchesByIDRangeParams{
		Lower:   prefix,
		Upper:   prefix + prefixUpperBound,
		MaxRows: int64(limit),
	})
	if err != nil {
		return nil, fmt.Errorf("finding batches by prefix: %w", err)
	}
	return batchesFromRows(rows), nil
}

func (s *SQLiteDatabase) ListBatches(ctx context.Context, limit int) ([]*model.HarvestBatch, error) {
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}
	rows, err := s.queries.GetBatchesNewestFirst(ctx, int64(limit))
	if err != nil {
		return nil, fmt.Errorf("listing batches: %w", err)
	}
	return batchesFromRows(rows), nil
}

func (s *SQLiteDatabase) ListBatchesChronological(ctx context.Context) ([]*model.HarvestBatch, error) {
	rows, err := s.queries.GetBatchesChronological(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing batches: %w", err)
	}
	return batchesFromRows(rows), nil
}

func (s *SQLiteDatabase) TotalBonus(ctx context.Context) (int64, error) {
	total, err := s.queries.GetTotalBonus(ctx)
	if err != nil {
		return 0, fmt.Errorf("totalling bonus: %w", err)
	}
	return total, nil
}

// AddBonus performs the reward read-modify-write inside one immediate
// transaction, so concurrent callers are applied one after another.
func (s *SQLiteDatabase) AddBonus(ctx context.Context, batchID string, amount int64, receipt *model.ScanReceipt) (*ledger.BonusUpdate, error) {
	if amount < 0 {
		return nil, fmt.Errorf("adding bonus: negative amount %d", amount)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("starting transaction: %w", classify(err))
	}
	defer tx.Rollback()

	qtx := s.queries.WithTx(tx)

	row, err := qtx.GetBatchByID(ctx, batchID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("batch %s: %w", batchID, ledger.ErrNotFound)
		}
		return nil, fmt.Errorf("reading batch: %w", classify(err))
	}

	if receipt != nil {
		_, err := qtx.GetScanReceipt(ctx, receipt.Serial)
		switch {
		case err == nil:
			return &ledger.BonusUpdate{Batch: batchFromRow(row), Applied: false}, nil
		case !errors.Is(err, sql.ErrNoRows):
			return nil, fmt.Errorf("reading scan receipt: %w", classify(err))
		}

		err = qtx.InsertScanReceipt(ctx, sqlc.InsertScanReceiptParams{
			Serial:    receipt.Serial,
			BatchID:   batchID,
			ScannedAt: receipt.ScannedAt,
		})
		if err != nil {
			return nil, fmt.Errorf("recording scan receipt: %w", classify(err))
		}
	}

	row.SustainabilityBonus += amount
	err = qtx.UpdateBatchBonus(ctx, sqlc.UpdateBatchBonusParams{
		SustainabilityBonus: row.SustainabilityBonus,
		ID:                  batchID,
	})
	if err != nil {
		return nil, fmt.Errorf("updating bonus: %w", classify(err))
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing transaction: %w", classify(err))
	}

	return &ledger.BonusUpdate{Batch: batchFromRow(row), Applied: true}, nil
}

// Event operations

func (s *SQLiteDatabase) InsertEvent(ctx context.Context, event *model.SupplyChainEvent) error {
	err := s.queries.InsertEvent(ctx, sqlc.InsertEventParams{
		ID:        event.ID,
		BatchID:   event.BatchID,
		Timestamp: event.Timestamp,
		Type:      string(event.Type),
		Analyst:   event.Analyst,
		Result:    event.Result,
		Facility:  event.Facility,
		Action:    event.Action,
	})
	if err != nil {
		return fmt.Errorf("inserting event: %w", classify(err))
	}
	return nil
}

func (s *SQLiteDatabase) EventsForBatch(ctx context.Context, batchID string) ([]*model.SupplyChainEvent, error) {
	rows, err := s.queries.GetEventsByBatchID(ctx, batchID)
	if err != nil {
		return nil, fmt.Errorf("finding events for batch: %w", err)
	}

	result := make([]*model.SupplyChainEvent, len(rows))
	for i, r := range rows {
		result[i] = &model.SupplyChainEvent{
			ID:        r.ID,
			BatchID:   r.BatchID,
			Timestamp: r.Timestamp,
			Type:      model.EventType(r.Type),
			Analyst:   r.Analyst,
			Result:    r.Result,
			Facility:  r.Facility,
			Action:    r.Action,
		}
	}
	return result, nil
}

// Operation tracking

func (s *SQLiteDatabase) CreateOperation(operation string, parameters string) (*model.Operation, error) {
	startedAt := time.Now().UTC()
	res, err := s.queries.InsertOperation(context.Background(), sqlc.InsertOperationParams{
		Operation:  operation,
		Parameters: parameters,
		StartedAt:  startedAt,
	})
	if err != nil {
		return nil, fmt.Errorf("creating operation: %w", classify(err))
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("reading operation id: %w", err)
	}
	return &model.Operation{
		ID:         id,
		Operation:  operation,
		Parameters: parameters,
		StartedAt:  startedAt,
		Status:     "running",
	}, nil
}

func (s *SQLiteDatabase) FinishOperation(id int64, status string) error {
	err := s.queries.UpdateOperationFinished(context.Background(), sqlc.UpdateOperationFinishedParams{
		FinishedAt: sql.NullTime{Time: time.Now().UTC(), Valid: true},
		Status:     status,
		ID:         id,
	})
	if err != nil {
		return fmt.Errorf("finishing operation: %w", classify(err))
	}
	return nil
}

func (s *SQLiteDatabase) ListOperations(limit int) ([]*model.Operation, error) {
	ops, err := s.queries.GetOperations(context.Background(), int64(limit))
	if err != nil {
		return nil, fmt.Errorf("listing operations: %w", err)
	}

	result := make([]*model.Operation, len(ops))
	for i, op := range ops {
		result[i] = &model.Operation{
			ID:         op.ID,
			Operation:  op.Operation,
			Parameters: op.Parameters,
			StartedAt:  op.StartedAt,
			Status:     op.Status,
		}
		if op.FinishedAt.Valid {
			t := op.FinishedAt.Time
			result[i].FinishedAt = &t
		}
	}
	return result, nil
}

func (s *SQLiteDatabase) MaxOperationID() (int64, error) {
	id, err := s.queries.GetMaxOperationID(context.Background())
	if err != nil {
		return 0, fmt.Errorf("getting max operation ID: %w", err)
	}
	return id, nil
}

// Path returns the database file path (or ":memory:" for in-memory databases).
func (s *SQLiteDatabase) Path() string {
	return s.path
}

// Migrate applies pending migrations.
func (s *SQLiteDatabase) Migrate() error {
	return migrations.MigrateUp(s.db)
}

// CheckMigrations verifies the database schema is up-to-date.
func (s *SQLiteDatabase) CheckMigrations() error {
	return migrations.CheckDBMigrationStatus(s.db)
}

// BackupTo creates a complete copy of the database at destPath using VACUUM INTO.
// destPath must not exist.
func (s *SQLiteDatabase) BackupTo(destPath string) error {
	_, err := s.db.Exec("VACUUM INTO ?", destPath)
	if err != nil {
		return fmt.Errorf("backing up database: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteDatabase) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func insertBatchParams(b *model.HarvestBatch) sqlc.InsertBatchParams {
	return sqlc.InsertBatchParams{
		ID:                  b.ID,
		BotanicalName:       b.BotanicalName,
		Timestamp:           b.Timestamp,
		PreviousHash:        b.PreviousHash,
		ComplianceStatus:    string(b.ComplianceStatus),
		FarmName:            b.Farm.Name,
		FarmNotes:           b.Farm.Notes,
		FarmLatitude:        b.Farm.Latitude,
		FarmLongitude:       b.Farm.Longitude,
		WeatherTemperature:  b.Weather.Temperature,
		WeatherCondition:    b.Weather.Condition,
		SustainabilityBonus: b.SustainabilityBonus,
	}
}

func batchFromRow(r sqlc.Batch) *model.HarvestBatch {
	return &model.HarvestBatch{
		ID:               r.ID,
		BotanicalName:    r.BotanicalName,
		Timestamp:        r.Timestamp,
		PreviousHash:     r.PreviousHash,
		ComplianceStatus: model.ComplianceStatus(r.ComplianceStatus),
		Farm: model.Farm{
			Name:      r.FarmName,
			Notes:     r.FarmNotes,
			Latitude:  r.FarmLatitude,
			Longitude: r.FarmLongitude,
		},
		Weather: model.Weather{
			Temperature: r.WeatherTemperature,
			Condition:   r.WeatherCondition,
		},
		SustainabilityBonus: r.SustainabilityBonus,
	}
}

func batchesFromRows(rows []sqlc.Batch) []*model.HarvestBatch {
	result := make([]*model.HarvestBatch, len(rows))
	for i := range rows {
		result[i] = batchFromRow(rows[i])
	}
	return result
}
