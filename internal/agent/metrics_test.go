package agent

import (
	"testing"

	"github.com/parleylabs/parley/internal/models"
)

func TestMetricsAccumulateMonotonically(t *testing.T) {
	t.Parallel()

	var m Metrics
	free := models.Pricing{}

	first := m.RecordTurn(100, 50, 10, free)
	if first.InputTokens != 100 || first.OutputTokens != 50 || first.OverheadTokens != 10 || first.Exchanges != 1 {
		t.Fatalf("unexpected first snapshot: %+v", first)
	}

	second := m.RecordTurn(200, 80, 0, free)
	if second.InputTokens != 300 || second.OutputTokens != 130 || second.OverheadTokens != 10 || second.Exchanges != 2 {
		t.Fatalf("unexpected second snapshot: %+v", second)
	}

	// Snapshots are values; mutating the aggregate later must not change
	// an earlier snapshot.
	m.RecordTurn(1, 1, 1, free)
	if first.InputTokens != 100 {
		t.Error("snapshot aliases the live aggregate")
	}
}

func TestMetricsCostUsesPerMillionPricing(t *testing.T) {
	t.Parallel()

	var m Metrics
	pricing := models.Pricing{Input: 0.28, Output: 0.42}

	snap := m.RecordTurn(1_000_000, 500_000, 0, pricing)
	want := 0.28 + 0.21
	if diff := snap.Cost - want; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("cost: got %v, want %v", snap.Cost, want)
	}
}
