package ledger_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"herbtrace/internal/compliance"
	"herbtrace/internal/ledger"
	"herbtrace/internal/model"
	"herbtrace/internal/testutil"
)

func TestResolve_EventsInChronologicalOrder(t *testing.T) {
	f := testutil.NewTestService(t, testutil.FastOptions())
	b := harvest(t, f, "Ashwagandha").Batch
	ctx := context.Background()

	// written out of order on purpose
	later := &model.SupplyChainEvent{ID: "e-late", BatchID: b.ID, Timestamp: "2025-10-01T09:00:00.000Z", Type: model.EventMfgStep, Facility: "Unit 4", Action: "Drying"}
	earlier := &model.SupplyChainEvent{ID: "e-early", BatchID: b.ID, Timestamp: "2025-09-20T09:00:00.000Z", Type: model.EventLabTest, Analyst: "Dr. Rao", Result: "Pass"}
	require.NoError(t, f.DB.InsertEvent(ctx, later))
	require.NoError(t, f.DB.InsertEvent(ctx, earlier))

	history, err := f.Service.Resolve(ctx, firstSerial(t, b.ID))
	require.NoError(t, err)
	require.Len(t, history.Events, 2)
	assert.Equal(t, "e-early", history.Events[0].ID)
	assert.Equal(t, "e-late", history.Events[1].ID)
	assert.Equal(t, "Dr. Rao", history.Events[0].Analyst)
}

func TestResolve_OnlyEventsOfTheBatch(t *testing.T) {
	f := testutil.NewTestService(t, testutil.FastOptions())
	a := harvest(t, f, "Ashwagandha").Batch
	b := harvest(t, f, "Shatavari").Batch
	ctx := context.Background()

	_, err := f.Service.RecordEvent(ctx, a.ID, ledger.EventInput{Type: model.EventLabTest, Analyst: "A", Result: "Pass"})
	require.NoError(t, err)
	_, err = f.Service.RecordEvent(ctx, b.ID, ledger.EventInput{Type: model.EventMfgStep, Facility: "F", Action: "Grinding"})
	require.NoError(t, err)

	history, err := f.Service.Resolve(ctx, firstSerial(t, b.ID))
	require.NoError(t, err)
	require.Len(t, history.Events, 1)
	assert.Equal(t, model.EventMfgStep, history.Events[0].Type)
	assert.Equal(t, b.ID, history.Events[0].BatchID)
}

func TestResolve_InvalidAndMissing(t *testing.T) {
	f := testutil.NewTestService(t, testutil.FastOptions())
	harvest(t, f, "Ashwagandha")

	_, err := f.Service.Resolve(context.Background(), "LOT-1234")
	assert.ErrorIs(t, err, ledger.ErrInvalidSerial)
	assert.NotErrorIs(t, err, ledger.ErrNotFound)

	_, err = f.Service.Resolve(context.Background(), "PROD-zzzzzzzz-0003")
	assert.ErrorIs(t, err, ledger.ErrNotFound)
	assert.NotErrorIs(t, err, ledger.ErrInvalidSerial)
}

func TestResolve_FirstLexicographicMatch(t *testing.T) {
	f := testutil.NewTestService(t, testutil.FastOptions())
	high := appendWithID(t, f, "abcdef01ff"+strings.Repeat("0", 54))
	low := appendWithID(t, f, "abcdef0100"+strings.Repeat("0", 54))
	require.NotEqual(t, high.ID, low.ID)

	history, err := f.Service.Resolve(context.Background(), "PROD-abcdef01-0001")
	require.NoError(t, err)
	assert.Equal(t, low.ID, history.Harvest.ID)
}

// failingEventsStore resolves batches but cannot read events.
type failingEventsStore struct {
	ledger.Store
}

func (failingEventsStore) EventsForBatch(context.Context, string) ([]*model.SupplyChainEvent, error) {
	return nil, errors.New("disk I/O error")
}

func TestResolve_FailsClosedWhenEventsUnavailable(t *testing.T) {
	f := testutil.NewTestService(t, testutil.FastOptions())
	b := harvest(t, f, "Ashwagandha").Batch

	svc := ledger.NewService(failingEventsStore{Store: f.DB}, compliance.DefaultRuleSet(), nil, nil,
		ledger.NewNopLogger(), f.Clock, f.IDs, testutil.FastOptions())

	history, err := svc.Resolve(context.Background(), firstSerial(t, b.ID))
	require.Error(t, err)
	assert.Nil(t, history)
	assert.Contains(t, err.Error(), "disk I/O error")
}
