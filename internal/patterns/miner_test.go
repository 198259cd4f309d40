package patterns

import (
	"context"
	"testing"
	"time"

	"github.com/miradorstack/mirador-gate/internal/models"
)

func decisionAt(at time.Time, units ...models.UnitDecision) models.Decision {
	return models.Decision{CreatedAt: at, Chain: models.ChainResult{Units: units}}
}

func TestMinerMinesBlockingPatterns(t *testing.T) {
	var stored []models.BlockingPattern
	miner := NewMiner(nil, StoreFunc(func(ctx context.Context, tenantID string, patterns []models.BlockingPattern) error {
		stored = patterns
		return nil
	}))

	now := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	decisions := []models.Decision{
		decisionAt(now,
			models.UnitDecision{Name: "arima", Allowed: true},
			models.UnitDecision{Name: "prophet", Allowed: false, Reason: models.ReasonSerialBlock},
		),
		decisionAt(now.Add(time.Hour),
			models.UnitDecision{Name: "arima", Allowed: false, Reason: "quarantine"},
			models.UnitDecision{Name: "prophet", Allowed: false, Reason: "quarantine"},
		),
		decisionAt(now.Add(2*time.Hour),
			models.UnitDecision{Name: "arima", Allowed: true},
			models.UnitDecision{Name: "prophet", Allowed: false, Reason: models.ReasonSerialBlock},
		),
	}

	patterns, err := miner.Mine(context.Background(), "tenant", decisions, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(patterns) != 2 {
		t.Fatalf("expected two hotspots, got %d", len(patterns))
	}

	top := patterns[0]
	if top.Unit != "prophet" || top.Denied != 3 || top.DenyRate != 1 {
		t.Fatalf("unexpected top hotspot: %+v", top)
	}
	if top.TopReason != models.ReasonSerialBlock {
		t.Fatalf("expected serial-block as top reason, got %s", top.TopReason)
	}
	if !top.LastDeniedAt.Equal(now.Add(2 * time.Hour)) {
		t.Fatalf("unexpected last denied time %v", top.LastDeniedAt)
	}

	if patterns[1].Unit != "arima" || patterns[1].Evaluations != 3 || patterns[1].Denied != 1 {
		t.Fatalf("unexpected second hotspot: %+v", patterns[1])
	}
	if len(stored) != 2 {
		t.Fatalf("expected patterns to be stored, got %d", len(stored))
	}
}

func TestMinerSkipsNeverDeniedUnitsAndLimits(t *testing.T) {
	miner := NewMiner(nil, nil)
	now := time.Now()
	decisions := []models.Decision{
		decisionAt(now,
			models.UnitDecision{Name: "a", Allowed: true},
			models.UnitDecision{Name: "b", Allowed: false, Reason: models.ReasonParallelUnavailable},
			models.UnitDecision{Name: "c", Allowed: false, Reason: models.ReasonParallelUnavailable},
		),
	}

	patterns, err := miner.Mine(context.Background(), "tenant", decisions, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(patterns) != 1 || patterns[0].Unit != "b" {
		t.Fatalf("expected only b after limit, got %+v", patterns)
	}

	empty, err := miner.Mine(context.Background(), "tenant", nil, 0)
	if err != nil || empty != nil {
		t.Fatalf("expected nil result for empty history, got %v (%v)", empty, err)
	}
}
