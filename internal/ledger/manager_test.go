package ledger_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"herbtrace/internal/ledger"
	"herbtrace/internal/model"
	"herbtrace/internal/serial"
	"herbtrace/internal/testutil"
)

func TestEventInput_Validate(t *testing.T) {
	tests := []struct {
		name  string
		in    ledger.EventInput
		valid bool
	}{
		{"lab test", ledger.EventInput{Type: model.EventLabTest, Analyst: "Dr. Rao", Result: "Pass"}, true},
		{"mfg step", ledger.EventInput{Type: model.EventMfgStep, Facility: "Unit 4", Action: "Drying"}, true},
		{"lab test without result", ledger.EventInput{Type: model.EventLabTest, Analyst: "Dr. Rao"}, false},
		{"lab test blank analyst", ledger.EventInput{Type: model.EventLabTest, Analyst: "  ", Result: "Pass"}, false},
		{"mfg step without facility", ledger.EventInput{Type: model.EventMfgStep, Action: "Drying"}, false},
		{"unknown type", ledger.EventInput{Type: "SHIPMENT", Facility: "x", Action: "y"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.in.Validate()
			if tt.valid {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, ledger.ErrInvalidInput)
		})
	}
}

func TestRecordEvent(t *testing.T) {
	f := testutil.NewTestService(t, testutil.FastOptions())
	b := harvest(t, f, "Ashwagandha").Batch
	ctx := context.Background()

	t.Run("by prefix", func(t *testing.T) {
		e, err := f.Service.RecordEvent(ctx, b.ID[:8], ledger.EventInput{Type: model.EventLabTest, Analyst: "Dr. Rao", Result: "Pass"})
		require.NoError(t, err)
		assert.Equal(t, b.ID, e.BatchID)
		assert.Equal(t, "evt-1", e.ID)
		assert.Equal(t, "Dr. Rao", e.Analyst)
		assert.Empty(t, e.Facility)
	})

	t.Run("keeps only fields of its type", func(t *testing.T) {
		e, err := f.Service.RecordEvent(ctx, b.ID, ledger.EventInput{Type: model.EventMfgStep, Facility: "Unit 4", Action: "Drying", Analyst: "ignored"})
		require.NoError(t, err)
		assert.Equal(t, "Unit 4", e.Facility)
		assert.Empty(t, e.Analyst)
	})

	t.Run("unknown batch", func(t *testing.T) {
		_, err := f.Service.RecordEvent(ctx, "ffffffffffff", ledger.EventInput{Type: model.EventLabTest, Analyst: "a", Result: "b"})
		assert.ErrorIs(t, err, ledger.ErrNotFound)
	})

	t.Run("invalid input never touches the store", func(t *testing.T) {
		_, err := f.Service.RecordEvent(ctx, b.ID, ledger.EventInput{Type: model.EventLabTest})
		assert.ErrorIs(t, err, ledger.ErrInvalidInput)

		events, err := f.DB.EventsForBatch(ctx, b.ID)
		require.NoError(t, err)
		assert.Len(t, events, 2)
	})
}

func TestFindBatch(t *testing.T) {
	f := testutil.NewTestService(t, testutil.FastOptions())
	one := appendWithID(t, f, "abcdef0111"+strings.Repeat("a", 54))
	two := appendWithID(t, f, "abcdef0122"+strings.Repeat("b", 54))
	ctx := context.Background()

	tests := []struct {
		name    string
		ref     string
		want    string
		wantErr error
	}{
		{"full id", one.ID, one.ID, nil},
		{"unique prefix", "abcdef012", two.ID, nil},
		{"surrounding space", "  abcdef011  ", one.ID, nil},
		{"ambiguous prefix", "abcdef01", "", ledger.ErrInvalidInput},
		{"too short", "abc", "", ledger.ErrInvalidInput},
		{"no match", "0123456789", "", ledger.ErrNotFound},
		{"unknown full id", strings.Repeat("c", 64), "", ledger.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := f.Service.FindBatch(ctx, tt.ref)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.ID)
		})
	}
}

func TestLabels(t *testing.T) {
	opts := testutil.FastOptions()
	opts.UnitsPerBatch = 3
	f := testutil.NewTestService(t, opts)
	b := harvest(t, f, "Ashwagandha").Batch

	labels, err := f.Service.Labels(context.Background(), b.ID[:10])
	require.NoError(t, err)
	require.Len(t, labels, 3)
	for i, l := range labels {
		prefix, err := serial.Decode(l)
		require.NoError(t, err)
		assert.Equal(t, b.ID[:8], prefix)
		assert.True(t, strings.HasSuffix(l, []string{"-0001", "-0002", "-0003"}[i]))
	}
}

func TestListBatchesAndEarnings(t *testing.T) {
	f := testutil.NewTestService(t, testutil.FastOptions())
	ctx := context.Background()
	a := harvest(t, f, "Ashwagandha").Batch
	b := harvest(t, f, "Shatavari").Batch

	batches, err := f.Service.ListBatches(ctx, 0)
	require.NoError(t, err)
	require.Len(t, batches, 2)
	assert.Equal(t, b.ID, batches[0].ID, "newest first")

	limited, err := f.Service.ListBatches(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	for _, id := range []string{a.ID, a.ID, b.ID} {
		_, err := f.Service.AwardIfCompliant(ctx, firstSerial(t, id))
		require.NoError(t, err)
	}

	earnings, err := f.Service.Earnings(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(15), earnings.Total)
	require.Len(t, earnings.Batches, 2)
	assert.Equal(t, int64(5), earnings.Batches[0].SustainabilityBonus)
	assert.Equal(t, int64(10), earnings.Batches[1].SustainabilityBonus)
}

func TestEarnings_EmptyLedger(t *testing.T) {
	f := testutil.NewTestService(t, testutil.FastOptions())

	earnings, err := f.Service.Earnings(context.Background())
	require.NoError(t, err)
	assert.Zero(t, earnings.Total)
	assert.Empty(t, earnings.Batches)
}

func TestVerifyChain_ReportsTamperedBlock(t *testing.T) {
	f := testutil.NewTestService(t, testutil.FastOptions())
	appendWithID(t, f, strings.Repeat("1", 64))

	report, err := f.Service.VerifyChain(context.Background())
	require.NoError(t, err)
	assert.False(t, report.OK(), "hand-made id cannot match its content")
}

func TestGetHistory(t *testing.T) {
	f := testutil.NewTestService(t, testutil.FastOptions())

	ops, err := f.Service.GetHistory(10)
	require.NoError(t, err)
	assert.Empty(t, ops)

	for _, name := range []string{"harvest", "scan", "event"} {
		op, err := f.DB.CreateOperation(name, "[]")
		require.NoError(t, err)
		require.NoError(t, f.DB.FinishOperation(op.ID, "success"))
	}

	ops, err = f.Service.GetHistory(2)
	require.NoError(t, err)
	require.Len(t, ops, 2)
	assert.Equal(t, "event", ops[0].Operation)
	assert.Equal(t, "scan", ops[1].Operation)
	assert.Equal(t, "success", ops[0].Status)
}
