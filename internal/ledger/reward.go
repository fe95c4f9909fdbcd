package ledger

import (
	"context"
	"fmt"

	"herbtrace/internal/model"
)

// Reward reasons.
const (
	ReasonAwarded         = "AWARDED"
	ReasonNotCompliant    = "NOT_COMPLIANT"
	ReasonAlreadyRewarded = "ALREADY_REWARDED"
)

// RewardResult is the outcome of a consumer scan's reward step.
type RewardResult struct {
	Awarded bool                `json:"awarded"`
	Batch   *model.HarvestBatch `json:"batch"`
	Bonus   int64               `json:"bonus"`
	Reason  string              `json:"reason"`
}

// ScanOutcome is what a consumer sees after scanning a product.
type ScanOutcome struct {
	History *model.FullHistory `json:"history"`
	Reward  *RewardResult      `json:"reward"`
}

// AwardIfCompliant credits the producer of the scanned product when the batch
// was compliant at creation. Each call adds the bonus once; concurrent calls
// never lose an update. A serial that matches no batch changes nothing and
// is reported as an ErrNotFound error, not as an unawarded result.
func (s *Service) AwardIfCompliant(ctx context.Context, code string) (*RewardResult, error) {
	batch, err := s.batchForSerial(ctx, code)
	if err != nil {
		return nil, err
	}
	return s.award(ctx, code, batch)
}

// Scan resolves the provenance of a product and then applies the reward.
func (s *Service) Scan(ctx context.Context, code string) (*ScanOutcome, error) {
	history, err := s.Resolve(ctx, code)
	if err != nil {
		return nil, err
	}

	reward, err := s.award(ctx, code, &history.Harvest)
	if err != nil {
		return nil, err
	}
	history.Harvest = *reward.Batch
	return &ScanOutcome{History: history, Reward: reward}, nil
}

func (s *Service) award(ctx context.Context, code string, batch *model.HarvestBatch) (*RewardResult, error) {
	if batch.ComplianceStatus != model.StatusCompliant {
		return &RewardResult{
			Awarded: false,
			Batch:   batch,
			Bonus:   batch.SustainabilityBonus,
			Reason:  ReasonNotCompliant,
		}, nil
	}

	var receipt *model.ScanReceipt
	if s.opts.OncePerSerial {
		receipt = &model.ScanReceipt{
			Serial:    code,
			BatchID:   batch.ID,
			ScannedAt: model.FormatTimestamp(s.clock.Now()),
		}
	}

	var upd *BonusUpdate
	err := s.retry(ctx, "add bonus", func() error {
		var err error
		upd, err = s.store.AddBonus(ctx, batch.ID, s.opts.BonusAmount, receipt)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("rewarding batch %s: %w", batch.ID, err)
	}

	if !upd.Applied {
		s.logger.Info("repeat scan ignored", "serial", code, "batch", batch.ID)
		return &RewardResult{
			Awarded: false,
			Batch:   upd.Batch,
			Bonus:   upd.Batch.SustainabilityBonus,
			Reason:  ReasonAlreadyRewarded,
		}, nil
	}

	s.logger.Info("bonus awarded", "serial", code, "batch", batch.ID, "bonus", upd.Batch.SustainabilityBonus)
	return &RewardResult{
		Awarded: true,
		Batch:   upd.Batch,
		Bonus:   upd.Batch.SustainabilityBonus,
		Reason:  ReasonAwarded,
	}, nil
}
