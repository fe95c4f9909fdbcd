package ledger

import (
	"context"
	"fmt"

	"herbtrace/internal/model"
	"herbtrace/internal/serial"
)

// Resolve returns the full provenance of the product identified by a scanned
// serial: its harvest block and every later event in chronological order.
func (s *Service) Resolve(ctx context.Context, code string) (*model.FullHistory, error) {
	batch, err := s.batchForSerial(ctx, code)
	if err != nil {
		return nil, err
	}

	events, err := s.store.EventsForBatch(ctx, batch.ID)
	if err != nil {
		return nil, fmt.Errorf("loading events for %s: %w", batch.ID, err)
	}

	history := &model.FullHistory{Harvest: *batch, Events: make([]model.SupplyChainEvent, len(events))}
	for i, e := range events {
		history.Events[i] = *e
	}
	return history, nil
}

// batchForSerial decodes code and resolves its prefix to a batch.
func (s *Service) batchForSerial(ctx context.Context, code string) (*model.HarvestBatch, error) {
	prefix, err := serial.Decode(code)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSerial, err)
	}

	batch, err := s.store.FindBatchByPrefix(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("finding batch for %s: %w", prefix, err)
	}
	if batch == nil {
		return nil, fmt.Errorf("no batch for serial %s: %w", code, ErrNotFound)
	}
	return batch, nil
}
