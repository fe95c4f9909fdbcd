package ledger_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"herbtrace/internal/compliance"
	"herbtrace/internal/ledger"
	"herbtrace/internal/model"
	"herbtrace/internal/testutil"
)

func TestAwardIfCompliant_AddsBonus(t *testing.T) {
	f := testutil.NewTestService(t, testutil.FastOptions())
	b := harvest(t, f, "Ashwagandha").Batch

	res, err := f.Service.AwardIfCompliant(context.Background(), firstSerial(t, b.ID))
	require.NoError(t, err)
	assert.True(t, res.Awarded)
	assert.Equal(t, ledger.ReasonAwarded, res.Reason)
	assert.Equal(t, int64(5), res.Bonus)
	assert.Equal(t, b.ID, res.Batch.ID)
}

func TestAwardIfCompliant_RepeatScansCountTwice(t *testing.T) {
	f := testutil.NewTestService(t, testutil.FastOptions())
	b := harvest(t, f, "Ashwagandha").Batch
	code := firstSerial(t, b.ID)

	for want := int64(5); want <= 10; want += 5 {
		res, err := f.Service.AwardIfCompliant(context.Background(), code)
		require.NoError(t, err)
		assert.True(t, res.Awarded)
		assert.Equal(t, want, res.Bonus)
	}
}

func TestAwardIfCompliant_OncePerSerial(t *testing.T) {
	opts := testutil.FastOptions()
	opts.OncePerSerial = true
	f := testutil.NewTestService(t, opts)
	b := harvest(t, f, "Ashwagandha").Batch
	ctx := context.Background()

	first, err := f.Service.AwardIfCompliant(ctx, "PROD-"+b.ID[:8]+"-0001")
	require.NoError(t, err)
	assert.True(t, first.Awarded)

	again, err := f.Service.AwardIfCompliant(ctx, "PROD-"+b.ID[:8]+"-0001")
	require.NoError(t, err)
	assert.False(t, again.Awarded)
	assert.Equal(t, ledger.ReasonAlreadyRewarded, again.Reason)
	assert.Equal(t, int64(5), again.Bonus)

	other, err := f.Service.AwardIfCompliant(ctx, "PROD-"+b.ID[:8]+"-0002")
	require.NoError(t, err)
	assert.True(t, other.Awarded)
	assert.Equal(t, int64(10), other.Bonus)
}

func TestAwardIfCompliant_NonCompliantNeverEarns(t *testing.T) {
	statuses := []model.ComplianceStatus{model.StatusOutOfSeason, model.StatusProtectedZone, model.StatusNoRules}

	for _, status := range statuses {
		t.Run(string(status), func(t *testing.T) {
			f := testutil.NewTestService(t, testutil.FastOptions())
			b := appendWithStatus(t, f, "Brahmi", status)
			code := firstSerial(t, b.ID)

			for i := 0; i < 2; i++ {
				out, err := f.Service.Scan(context.Background(), code)
				require.NoError(t, err)
				assert.False(t, out.Reward.Awarded)
				assert.Equal(t, ledger.ReasonNotCompliant, out.Reward.Reason)
				assert.Equal(t, int64(0), out.History.Harvest.SustainabilityBonus)
			}

			stored, err := f.DB.FindBatchByID(context.Background(), b.ID)
			require.NoError(t, err)
			assert.Equal(t, int64(0), stored.SustainabilityBonus)
		})
	}
}

func TestAwardIfCompliant_BadSerials(t *testing.T) {
	f := testutil.NewTestService(t, testutil.FastOptions())
	harvest(t, f, "Ashwagandha")

	tests := []struct {
		code string
		want error
	}{
		{"BATCH-12345678-0001", ledger.ErrInvalidSerial},
		{"", ledger.ErrInvalidSerial},
		{"PROD-", ledger.ErrInvalidSerial},
		{"PROD--0001", ledger.ErrInvalidSerial},
		{"PROD-zzzzzzzz-0001", ledger.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			_, err := f.Service.AwardIfCompliant(context.Background(), tt.code)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)

			other := ledger.ErrNotFound
			if tt.want == ledger.ErrNotFound {
				other = ledger.ErrInvalidSerial
			}
			assert.False(t, errors.Is(err, other), "invalid serial and not found must stay distinct")
		})
	}
}

func TestAwardIfCompliant_ConcurrentScansLoseNothing(t *testing.T) {
	tests := []struct {
		name  string
		file  bool
		scans int
	}{
		{"memory", false, 50},
		{"file", true, 25},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var f *testutil.ServiceFixture
			if tt.file {
				f = testutil.NewTestServiceWithStore(t, testutil.NewFileTestDatabase(t), testutil.FastOptions())
			} else {
				f = testutil.NewTestService(t, testutil.FastOptions())
			}
			b := harvest(t, f, "Ashwagandha").Batch

			var wg sync.WaitGroup
			var failed atomic.Int32
			for i := 0; i < tt.scans; i++ {
				wg.Add(1)
				go func(unit int) {
					defer wg.Done()
					code := fmt.Sprintf("PROD-%s-%04d", b.ID[:8], unit%10+1)
					if _, err := f.Service.AwardIfCompliant(context.Background(), code); err != nil {
						failed.Add(1)
					}
				}(i)
			}
			wg.Wait()
			require.Zero(t, failed.Load())

			stored, err := f.DB.FindBatchByID(context.Background(), b.ID)
			require.NoError(t, err)
			assert.Equal(t, int64(tt.scans*5), stored.SustainabilityBonus)

			// the accumulator is outside the digest
			report, err := f.Service.VerifyChain(context.Background())
			require.NoError(t, err)
			assert.True(t, report.OK())
		})
	}
}

func TestScan_ReturnsHistoryWithUpdatedBonus(t *testing.T) {
	f := testutil.NewTestService(t, testutil.FastOptions())
	b := harvest(t, f, "Shatavari").Batch

	_, err := f.Service.RecordEvent(context.Background(), b.ID, ledger.EventInput{Type: model.EventLabTest, Analyst: "Dr. Rao", Result: "Pass"})
	require.NoError(t, err)

	out, err := f.Service.Scan(context.Background(), firstSerial(t, b.ID))
	require.NoError(t, err)
	assert.True(t, out.Reward.Awarded)
	assert.Equal(t, int64(5), out.History.Harvest.SustainabilityBonus)
	assert.Len(t, out.History.Events, 1)
}

// conflictStore fails AddBonus with ErrConflict a set number of times.
type conflictStore struct {
	ledger.Store
	failures int
	calls    int
}

func (s *conflictStore) AddBonus(ctx context.Context, batchID string, amount int64, receipt *model.ScanReceipt) (*ledger.BonusUpdate, error) {
	s.calls++
	if s.calls <= s.failures {
		return nil, fmt.Errorf("begin: %w", ledger.ErrConflict)
	}
	return s.Store.AddBonus(ctx, batchID, amount, receipt)
}

func newConflictService(t *testing.T, failures, maxRetries int) (*ledger.Service, *conflictStore, string) {
	t.Helper()
	f := testutil.NewTestService(t, testutil.FastOptions())
	b := harvest(t, f, "Ashwagandha").Batch

	store := &conflictStore{Store: f.DB, failures: failures}
	opts := testutil.FastOptions()
	opts.MaxRetries = maxRetries
	svc := ledger.NewService(store, compliance.DefaultRuleSet(), nil, nil, ledger.NewNopLogger(), f.Clock, f.IDs, opts)
	return svc, store, firstSerial(t, b.ID)
}

func TestAwardIfCompliant_RetriesConflicts(t *testing.T) {
	svc, store, code := newConflictService(t, 3, 5)

	res, err := svc.AwardIfCompliant(context.Background(), code)
	require.NoError(t, err)
	assert.True(t, res.Awarded)
	assert.Equal(t, int64(5), res.Bonus)
	assert.Equal(t, 4, store.calls)
}

func TestAwardIfCompliant_GivesUpAfterMaxRetries(t *testing.T) {
	svc, store, code := newConflictService(t, 100, 2)

	_, err := svc.AwardIfCompliant(context.Background(), code)
	require.Error(t, err)
	assert.ErrorIs(t, err, ledger.ErrConflict)
	assert.Equal(t, 3, store.calls)
}

func TestAwardIfCompliant_CancelledWhileRetrying(t *testing.T) {
	svc, _, code := newConflictService(t, 100, 100)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.AwardIfCompliant(ctx, code)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
