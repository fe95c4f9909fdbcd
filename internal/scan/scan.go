// Package scan ingests batches of consumer scans concurrently.
package scan

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"herbtrace/internal/ledger"
)

// ErrAborted marks a serial whose scan never completed.
var ErrAborted = errors.New("scan aborted")

// Awarder applies the reward step for one scanned serial.
type Awarder interface {
	AwardIfCompliant(ctx context.Context, code string) (*ledger.RewardResult, error)
}

// Result is the outcome for one serial. Exactly one of Reward and Err is set.
type Result struct {
	Serial string               `json:"serial"`
	Reward *ledger.RewardResult `json:"reward,omitempty"`
	Error  string               `json:"error,omitempty"`
	Err    error                `json:"-"`
}

func (r *Result) fail(err error) {
	r.Reward = nil
	r.Err = err
	r.Error = err.Error()
}

// Tally counts results by outcome.
type Tally struct {
	Awarded int `json:"awarded"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

// Count tallies results.
func Count(results []Result) Tally {
	var t Tally
	for _, r := range results {
		switch {
		case r.Err != nil:
			t.Failed++
		case r.Reward.Awarded:
			t.Awarded++
		default:
			t.Skipped++
		}
	}
	return t
}

// BulkScanner fans a list of serials over a bounded worker pool.
type BulkScanner struct {
	awarder Awarder
	logger  ledger.Logger
	workers int
}

func NewBulkScanner(awarder Awarder, logger ledger.Logger, workers int) *BulkScanner {
	if workers < 1 {
		workers = 1
	}
	return &BulkScanner{awarder: awarder, logger: logger, workers: workers}
}

// ScanAll awards every serial and returns one Result per input, in input
// order. Per-serial failures are reported in the results; the error return
// is only for failing to run the pool at all.
func (b *BulkScanner) ScanAll(ctx context.Context, serials []string) ([]Result, error) {
	results := make([]Result, len(serials))
	for i, s := range serials {
		results[i] = Result{Serial: s}
		results[i].fail(ErrAborted)
	}
	if len(serials) == 0 {
		return results, nil
	}

	pool, err := ants.NewPool(b.workers,
		ants.WithPanicHandler(func(p any) {
			b.logger.Error("scan worker panic recovered", "panic", fmt.Sprint(p))
		}),
		ants.WithNonblocking(false),
		ants.WithExpiryDuration(10*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("creating scan pool: %w", err)
	}
	defer pool.Release()

	var wg sync.WaitGroup
	for i := range serials {
		if err := ctx.Err(); err != nil {
			results[i].fail(err)
			continue
		}

		wg.Add(1)
		err := pool.Submit(func() {
			defer wg.Done()
			if err := ctx.Err(); err != nil {
				results[i].fail(err)
				return
			}

			reward, err := b.awarder.AwardIfCompliant(ctx, serials[i])
			if err != nil {
				results[i].fail(err)
				return
			}
			results[i] = Result{Serial: serials[i], Reward: reward}
		})
		if err != nil {
			wg.Done()
			results[i].fail(fmt.Errorf("submitting scan: %w", err))
		}
	}
	wg.Wait()

	t := Count(results)
	b.logger.Info("bulk scan finished", "serials", len(serials), "awarded", t.Awarded, "skipped", t.Skipped, "failed", t.Failed)
	return results, nil
}
