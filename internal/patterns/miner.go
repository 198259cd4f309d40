package patterns

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/miradorstack/mirador-gate/internal/models"
)

// Store abstracts publication of mined patterns.
type Store interface {
	StorePatterns(ctx context.Context, tenantID string, patterns []models.BlockingPattern) error
}

// Miner aggregates decision history into per-unit blocking hotspots.
type Miner struct {
	store  Store
	logger *slog.Logger
}

// NewMiner constructs a Miner; store may be nil for dry runs.
func NewMiner(logger *slog.Logger, store Store) *Miner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Miner{store: store, logger: logger}
}

// Mine counts how often each unit was denied across decisions and returns
// the units that were denied at least once, worst first. limit <= 0 keeps all.
func (m *Miner) Mine(ctx context.Context, tenantID string, decisions []models.Decision, limit int) ([]models.BlockingPattern, error) {
	if len(decisions) == 0 {
		return nil, nil
	}

	units := make(map[string]*unitAggregate)
	for _, decision := range decisions {
		for _, unit := range decision.Chain.Units {
			agg := ensureAggregate(units, unit.Name)
			agg.evaluations++
			if unit.Allowed {
				continue
			}
			agg.denied++
			agg.reasons[unit.Reason]++
			if decision.CreatedAt.After(agg.lastDenied) {
				agg.lastDenied = decision.CreatedAt
			}
		}
	}

	patterns := make([]models.BlockingPattern, 0, len(units))
	for name, agg := range units {
		if agg.denied == 0 {
			continue
		}
		patterns = append(patterns, models.BlockingPattern{
			Unit:         name,
			Evaluations:  agg.evaluations,
			Denied:       agg.denied,
			DenyRate:     float64(agg.denied) / float64(agg.evaluations),
			TopReason:    agg.topReason(),
			LastDeniedAt: agg.lastDenied,
			ReasonCounts: agg.reasons,
		})
	}

	sort.Slice(patterns, func(i, j int) bool {
		if patterns[i].DenyRate != patterns[j].DenyRate {
			return patterns[i].DenyRate > patterns[j].DenyRate
		}
		if patterns[i].Denied != patterns[j].Denied {
			return patterns[i].Denied > patterns[j].Denied
		}
		return patterns[i].Unit < patterns[j].Unit
	})
	if limit > 0 && len(patterns) > limit {
		patterns = patterns[:limit]
	}

	if m.store != nil && len(patterns) > 0 {
		if err := m.store.StorePatterns(ctx, tenantID, patterns); err != nil {
			m.logger.Warn("pattern store failed", slog.Any("error", err))
		}
	}

	return patterns, nil
}

type unitAggregate struct {
	evaluations int
	denied      int
	lastDenied  time.Time
	reasons     map[string]int
}

func ensureAggregate(m map[string]*unitAggregate, unit string) *unitAggregate {
	if unit == "" {
		unit = "unknown"
	}
	agg, ok := m[unit]
	if !ok {
		agg = &unitAggregate{reasons: make(map[string]int)}
		m[unit] = agg
	}
	return agg
}

// topReason picks the most frequent deny reason; ties go to the lexically smaller one.
func (agg *unitAggregate) topReason() string {
	var (
		best  string
		count int
	)
	for reason, n := range agg.reasons {
		if n > count || (n == count && reason < best) {
			best, count = reason, n
		}
	}
	return best
}
