package ledger

import (
	"context"

	"herbtrace/internal/model"
)

// BuildFunc creates the next block given the current chain tip.
// previous is nil when the ledger has no blocks yet.
type BuildFunc func(previous *model.HarvestBatch) (*model.HarvestBatch, error)

// BonusUpdate is the outcome of Store.AddBonus.
type BonusUpdate struct {
	// Batch is the batch as it stands after the transaction.
	Batch *model.HarvestBatch
	// Applied is false when a receipt for the serial already existed.
	Applied bool
}

// Store is the ledger's persistence layer.
// Lookups return (nil, nil) when nothing matches.
type Store interface {
	// AppendBatch reads the chain tip (the last inserted batch), calls build
	// with it and inserts the result, all in one serialized write transaction.
	// No other append can interleave.
	AppendBatch(ctx context.Context, build BuildFunc) (*model.HarvestBatch, error)

	// FindBatchByID returns the batch with exactly this id.
	FindBatchByID(ctx context.Context, id string) (*model.HarvestBatch, error)

	// FindBatchByPrefix returns the lexicographically first batch whose id
	// starts with prefix.
	FindBatchByPrefix(ctx context.Context, prefix string) (*model.HarvestBatch, error)

	// FindBatchesByPrefix returns up to limit batches whose id starts with
	// prefix, ordered by id.
	FindBatchesByPrefix(ctx context.Context, prefix string, limit int) ([]*model.HarvestBatch, error)

	// ListBatches returns batches newest first. limit <= 0 means all.
	ListBatches(ctx context.Context, limit int) ([]*model.HarvestBatch, error)

	// ListBatchesChronological returns every batch in insertion order, which
	// is chain order.
	ListBatchesChronological(ctx context.Context) ([]*model.HarvestBatch, error)

	// TotalBonus sums the bonus across all batches.
	TotalBonus(ctx context.Context) (int64, error)

	// InsertEvent records a supply chain event. The batch must exist.
	InsertEvent(ctx context.Context, event *model.SupplyChainEvent) error

	// EventsForBatch returns the batch's events in ascending timestamp order,
	// ties by insertion order.
	EventsForBatch(ctx context.Context, batchID string) ([]*model.SupplyChainEvent, error)

	// AddBonus atomically re-reads the batch's bonus, adds amount and writes
	// it back. When receipt is non-nil it is recorded in the same transaction,
	// and an existing receipt for the same serial turns the call into a no-op.
	// A missing batch is ErrNotFound; a lost lock race is ErrConflict.
	AddBonus(ctx context.Context, batchID string, amount int64, receipt *model.ScanReceipt) (*BonusUpdate, error)

	// Operation log

	CreateOperation(operation string, parameters string) (*model.Operation, error)
	FinishOperation(id int64, status string) error
	ListOperations(limit int) ([]*model.Operation, error)
	MaxOperationID() (int64, error)

	// CheckMigrations verifies the schema is current.
	CheckMigrations() error

	// BackupTo writes a consistent copy of the store to destPath.
	BackupTo(destPath string) error

	Close() error
}
