package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"herbtrace/internal/chain"
	"herbtrace/internal/compliance"
	"herbtrace/internal/model"
	"herbtrace/internal/serial"
)

// Options tunes the reward and labelling policy.
type Options struct {
	BonusAmount   int64
	OncePerSerial bool
	MaxRetries    int
	RetryBackoff  time.Duration
	UnitsPerBatch int
}

// DefaultOptions returns the reference policy: 5 per scan, 10 labels per batch.
func DefaultOptions() Options {
	return Options{
		BonusAmount:   5,
		MaxRetries:    5,
		RetryBackoff:  20 * time.Millisecond,
		UnitsPerBatch: 10,
	}
}

// Service is the orchestration layer behind the CLI and the HTTP API.
// It coordinates compliance, block building, the store and the archive.
type Service struct {
	store   Store
	rules   *compliance.RuleSet
	archive Archive
	sealer  Sealer
	logger  Logger
	clock   Clock
	idgen   IDGenerator
	opts    Options
}

// NewService creates a Service with the provided dependencies.
// archive and sealer may be nil when snapshots are not used.
func NewService(store Store, rules *compliance.RuleSet, archive Archive, sealer Sealer, logger Logger, clock Clock, idgen IDGenerator, opts Options) *Service {
	return &Service{
		store:   store,
		rules:   rules,
		archive: archive,
		sealer:  sealer,
		logger:  logger,
		clock:   clock,
		idgen:   idgen,
		opts:    opts,
	}
}

// HarvestRequest is a producer submission.
type HarvestRequest struct {
	Plant      string           `json:"plant"`
	Coordinate model.Coordinate `json:"coordinate"`
	Farm       model.Farm       `json:"farm"`
	Weather    model.Weather    `json:"weather"`
}

// Submission is the result of a committed harvest.
type Submission struct {
	Batch   *model.HarvestBatch `json:"batch"`
	Verdict compliance.Verdict  `json:"verdict"`
	Serials []string            `json:"serials"`
}

// Plants lists the species the rule set knows about.
func (s *Service) Plants() []string {
	return s.rules.Plants()
}

// CheckCompliance evaluates a harvest without touching the store.
func (s *Service) CheckCompliance(plant string, coord model.Coordinate) (compliance.Verdict, error) {
	if err := validateCoordinate(coord); err != nil {
		return compliance.Verdict{}, err
	}
	return s.rules.Evaluate(plant, coord, s.clock.Now()), nil
}

// SubmitHarvest evaluates compliance and, if permitted, appends a new block
// linked to the current latest block. A blocked submission returns a
// *ComplianceError and never reaches the store.
func (s *Service) SubmitHarvest(ctx context.Context, req HarvestRequest) (*Submission, error) {
	if err := validateCoordinate(req.Coordinate); err != nil {
		return nil, err
	}

	verdict := s.rules.Evaluate(req.Plant, req.Coordinate, s.clock.Now())
	if !verdict.IsCompliant {
		s.logger.Info("harvest blocked", "plant", req.Plant, "status", string(verdict.Status))
		return nil, &ComplianceError{Verdict: verdict}
	}

	var batch *model.HarvestBatch
	err := s.retry(ctx, "append batch", func() error {
		var err error
		batch, err = s.store.AppendBatch(ctx, func(previous *model.HarvestBatch) (*model.HarvestBatch, error) {
			previousHash := chain.GenesisHash
			// Stamped under the append lock so timestamp order follows chain order.
			now := s.clock.Now()
			if previous != nil {
				previousHash = previous.ID
				now = notBefore(now, previous.Timestamp)
			}
			return chain.BuildBlock(req.Plant, verdict, previousHash, chain.BlockContext{
				Timestamp: now,
				Farm:      req.Farm,
				Weather:   req.Weather,
			})
		})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("appending batch: %w", err)
	}

	serials, err := serial.Generate(batch.ID, s.opts.UnitsPerBatch)
	if err != nil {
		return nil, fmt.Errorf("generating serials: %w", err)
	}

	s.logger.Info("batch committed", "batch", batch.ID, "plant", batch.BotanicalName, "previous", batch.PreviousHash)
	return &Submission{Batch: batch, Verdict: verdict, Serials: serials}, nil
}

// notBefore returns now, or the predecessor's timestamp when the clock has
// stepped back behind it.
func notBefore(now time.Time, previous string) time.Time {
	prev, err := model.ParseTimestamp(previous)
	if err != nil || !now.Before(prev) {
		return now
	}
	return prev
}

// retry runs fn until it succeeds, fails with something other than
// ErrConflict, or exhausts MaxRetries. Backoff grows linearly.
func (s *Service) retry(ctx context.Context, what string, fn func() error) error {
	var err error
	for attempt := 0; attempt <= s.opts.MaxRetries; attempt++ {
		if attempt > 0 {
			wait := s.opts.RetryBackoff * time.Duration(attempt)
			s.logger.Warn("retrying after conflict", "op", what, "attempt", attempt, "wait", wait)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
		}
		err = fn()
		if err == nil || !errors.Is(err, ErrConflict) {
			return err
		}
	}
	return err
}

func validateCoordinate(c model.Coordinate) error {
	if c.Latitude < -90 || c.Latitude > 90 {
		return fmt.Errorf("%w: latitude %v out of range", ErrInvalidInput, c.Latitude)
	}
	if c.Longitude < -180 || c.Longitude > 180 {
		return fmt.Errorf("%w: longitude %v out of range", ErrInvalidInput, c.Longitude)
	}
	return nil
}
