package ledger_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"herbtrace/internal/chain"
	"herbtrace/internal/compliance"
	"herbtrace/internal/ledger"
	"herbtrace/internal/model"
	"herbtrace/internal/serial"
	"herbtrace/internal/testutil"
)

// outside every protected zone in the default rule set
var openField = model.Coordinate{Latitude: 19.2183, Longitude: 72.9781}

// inside the Brahmi reserve
var reserve = model.Coordinate{Latitude: 19.27, Longitude: 73.02}

func harvest(t *testing.T, f *testutil.ServiceFixture, plant string) *ledger.Submission {
	t.Helper()
	sub, err := f.Service.SubmitHarvest(context.Background(), ledger.HarvestRequest{
		Plant:      plant,
		Coordinate: openField,
		Farm:       model.Farm{Name: "Green Valley", Latitude: openField.Latitude, Longitude: openField.Longitude},
		Weather:    model.Weather{Temperature: "28C", Condition: "Clear"},
	})
	require.NoError(t, err)
	return sub
}

// appendWithStatus commits a block with an arbitrary frozen status, the way
// an older rule set might have recorded it.
func appendWithStatus(t *testing.T, f *testutil.ServiceFixture, plant string, status model.ComplianceStatus) *model.HarvestBatch {
	t.Helper()
	b, err := f.DB.AppendBatch(context.Background(), func(previous *model.HarvestBatch) (*model.HarvestBatch, error) {
		prev := chain.GenesisHash
		if previous != nil {
			prev = previous.ID
		}
		v := compliance.Verdict{IsCompliant: status == model.StatusCompliant, Status: status}
		return chain.BuildBlock(plant, v, prev, chain.BlockContext{Timestamp: f.Clock.Now()})
	})
	require.NoError(t, err)
	return b
}

// appendWithID commits a block whose id is chosen by the test.
func appendWithID(t *testing.T, f *testutil.ServiceFixture, id string) *model.HarvestBatch {
	t.Helper()
	b, err := f.DB.AppendBatch(context.Background(), func(*model.HarvestBatch) (*model.HarvestBatch, error) {
		return &model.HarvestBatch{
			ID:               id,
			BotanicalName:    "Tulsi",
			Timestamp:        model.FormatTimestamp(f.Clock.Now()),
			PreviousHash:     chain.GenesisHash,
			ComplianceStatus: model.StatusCompliant,
		}, nil
	})
	require.NoError(t, err)
	return b
}

func firstSerial(t *testing.T, batchID string) string {
	t.Helper()
	s, err := serial.Encode(batchID, 1)
	require.NoError(t, err)
	return s
}
