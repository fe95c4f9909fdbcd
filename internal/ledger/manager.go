package ledger

import (
	"context"
	"fmt"
	"strings"

	"herbtrace/internal/chain"
	"herbtrace/internal/model"
	"herbtrace/internal/serial"
)

// EventInput is a supply chain event as entered by a manager.
type EventInput struct {
	Type     model.EventType `json:"type"`
	Analyst  string          `json:"analyst,omitempty"`
	Result   string          `json:"result,omitempty"`
	Facility string          `json:"facility,omitempty"`
	Action   string          `json:"action,omitempty"`
}

// Validate checks that the fields required by the event type are present.
func (in EventInput) Validate() error {
	switch in.Type {
	case model.EventLabTest:
		if strings.TrimSpace(in.Analyst) == "" || strings.TrimSpace(in.Result) == "" {
			return fmt.Errorf("%w: lab test requires analyst and result", ErrInvalidInput)
		}
	case model.EventMfgStep:
		if strings.TrimSpace(in.Facility) == "" || strings.TrimSpace(in.Action) == "" {
			return fmt.Errorf("%w: manufacturing step requires facility and action", ErrInvalidInput)
		}
	default:
		return fmt.Errorf("%w: unknown event type %q", ErrInvalidInput, in.Type)
	}
	return nil
}

// Earnings is the producer dashboard: total bonus and the batches behind it.
type Earnings struct {
	Total   int64                 `json:"total"`
	Batches []*model.HarvestBatch `json:"batches"`
}

// FindBatch resolves a manager-supplied reference: a full id, or a prefix of
// at least serial.PrefixLen characters that matches exactly one batch.
func (s *Service) FindBatch(ctx context.Context, ref string) (*model.HarvestBatch, error) {
	ref = strings.TrimSpace(ref)
	if len(ref) < serial.PrefixLen {
		return nil, fmt.Errorf("%w: batch reference %q shorter than %d characters", ErrInvalidInput, ref, serial.PrefixLen)
	}

	if len(ref) == len(chain.GenesisHash) {
		batch, err := s.store.FindBatchByID(ctx, ref)
		if err != nil {
			return nil, fmt.Errorf("finding batch: %w", err)
		}
		if batch == nil {
			return nil, fmt.Errorf("batch %s: %w", ref, ErrNotFound)
		}
		return batch, nil
	}

	matches, err := s.store.FindBatchesByPrefix(ctx, ref, 2)
	if err != nil {
		return nil, fmt.Errorf("finding batch: %w", err)
	}
	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("batch %s: %w", ref, ErrNotFound)
	case 1:
		return matches[0], nil
	default:
		return nil, fmt.Errorf("%w: batch reference %q is ambiguous", ErrInvalidInput, ref)
	}
}

// RecordEvent attaches a lab test or manufacturing step to an existing batch.
func (s *Service) RecordEvent(ctx context.Context, batchRef string, in EventInput) (*model.SupplyChainEvent, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	batch, err := s.FindBatch(ctx, batchRef)
	if err != nil {
		return nil, err
	}

	event := &model.SupplyChainEvent{
		ID:        s.idgen.New(),
		BatchID:   batch.ID,
		Timestamp: model.FormatTimestamp(s.clock.Now()),
		Type:      in.Type,
	}
	switch in.Type {
	case model.EventLabTest:
		event.Analyst, event.Result = in.Analyst, in.Result
	case model.EventMfgStep:
		event.Facility, event.Action = in.Facility, in.Action
	}

	if err := s.store.InsertEvent(ctx, event); err != nil {
		return nil, fmt.Errorf("recording event: %w", err)
	}

	s.logger.Info("event recorded", "batch", batch.ID, "type", string(event.Type), "event", event.ID)
	return event, nil
}

// ListBatches returns the most recent batches, newest first.
func (s *Service) ListBatches(ctx context.Context, limit int) ([]*model.HarvestBatch, error) {
	batches, err := s.store.ListBatches(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("listing batches: %w", err)
	}
	return batches, nil
}

// Earnings totals the sustainability bonus across every batch.
func (s *Service) Earnings(ctx context.Context) (*Earnings, error) {
	total, err := s.store.TotalBonus(ctx)
	if err != nil {
		return nil, fmt.Errorf("totalling bonus: %w", err)
	}
	batches, err := s.store.ListBatches(ctx, 0)
	if err != nil {
		return nil, fmt.Errorf("listing batches: %w", err)
	}
	return &Earnings{Total: total, Batches: batches}, nil
}

// Labels returns the printable serials for an existing batch.
func (s *Service) Labels(ctx context.Context, batchRef string) ([]string, error) {
	batch, err := s.FindBatch(ctx, batchRef)
	if err != nil {
		return nil, err
	}
	return serial.Generate(batch.ID, s.opts.UnitsPerBatch)
}

// VerifyChain re-hashes every block and checks the links between them.
func (s *Service) VerifyChain(ctx context.Context) (*chain.Report, error) {
	batches, err := s.store.ListBatchesChronological(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading batches: %w", err)
	}
	report, err := chain.VerifyChain(batches)
	if err != nil {
		return nil, err
	}
	if !report.OK() {
		s.logger.Warn("chain verification found issues", "issues", len(report.Issues))
	}
	return report, nil
}
