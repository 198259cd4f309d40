package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/miradorstack/mirador-gate/internal/api"
	"github.com/miradorstack/mirador-gate/internal/engine"
	"github.com/miradorstack/mirador-gate/internal/models"
	"github.com/miradorstack/mirador-gate/internal/patterns"
	"github.com/miradorstack/mirador-gate/internal/utils"
)

// Decider runs gate evaluations.
type Decider interface {
	Decide(ctx context.Context, req models.DecisionRequest) (models.Decision, error)
	LastDecision(ctx context.Context, tenantID, pipelineID string) (models.Decision, error)
}

// HistoryRepo lists stored decisions.
type HistoryRepo interface {
	List(ctx context.Context, req models.ListDecisionsRequest) (models.ListDecisionsResponse, error)
}

// GateService is the transport-neutral facade over the gate, its history
// and the hotspot miner. HTTP calls it directly; gRPC goes through GateServer.
type GateService struct {
	logger        *slog.Logger
	gate          Decider
	policies      engine.PolicySource
	history       HistoryRepo
	miner         *patterns.Miner
	hotspotSample int
	latencies     *utils.LatencyTracker
	decided       atomic.Int64
}

// NewGateService constructs the service. history and miner may be nil, in
// which case the history-backed endpoints report unavailable.
func NewGateService(logger *slog.Logger, gate Decider, policies engine.PolicySource, history HistoryRepo, miner *patterns.Miner, hotspotSample int) *GateService {
	if logger == nil {
		logger = slog.Default()
	}
	if hotspotSample <= 0 {
		hotspotSample = 500
	}
	return &GateService{
		logger:        logger,
		gate:          gate,
		policies:      policies,
		history:       history,
		miner:         miner,
		hotspotSample: hotspotSample,
		latencies:     utils.NewLatencyTracker(1024),
	}
}

// Decide evaluates one pipeline.
func (s *GateService) Decide(ctx context.Context, req models.DecisionRequest) (models.Decision, error) {
	if s.gate == nil {
		return models.Decision{}, fmt.Errorf("gate: %w", api.ErrUnavailable)
	}

	start := time.Now()
	decision, err := s.gate.Decide(ctx, req)
	if err != nil {
		return models.Decision{}, err
	}
	s.latencies.Observe(time.Since(start))
	if n := s.decided.Add(1); n%20 == 0 {
		s.logger.Info("decision latency",
			slog.Duration("p95", s.latencies.Percentile(95)),
			slog.Int("samples", s.latencies.Count()),
			slog.Int64("decisions", n),
		)
	}
	return decision, nil
}

// LastDecision returns the most recent decision for a pipeline.
func (s *GateService) LastDecision(ctx context.Context, ref api.PipelineRef) (models.Decision, error) {
	if s.gate == nil {
		return models.Decision{}, fmt.Errorf("gate: %w", api.ErrUnavailable)
	}
	return s.gate.LastDecision(ctx, ref.TenantID, ref.PipelineID)
}

// ListDecisions pages through decision history.
func (s *GateService) ListDecisions(ctx context.Context, req models.ListDecisionsRequest) (models.ListDecisionsResponse, error) {
	if s.history == nil {
		return models.ListDecisionsResponse{}, fmt.Errorf("decision history: %w", api.ErrUnavailable)
	}
	return s.history.List(ctx, req)
}

// Hotspots mines the most recent decisions for units that are repeatedly held back.
func (s *GateService) Hotspots(ctx context.Context, query api.HotspotsQuery) ([]models.BlockingPattern, error) {
	if s.history == nil || s.miner == nil {
		return nil, fmt.Errorf("decision history: %w", api.ErrUnavailable)
	}

	var (
		decisions []models.Decision
		token     string
	)
	for len(decisions) < s.hotspotSample {
		page, err := s.history.List(ctx, models.ListDecisionsRequest{
			TenantID:   query.TenantID,
			PipelineID: query.PipelineID,
			PageSize:   s.hotspotSample - len(decisions),
			PageToken:  token,
		})
		if err != nil {
			return nil, err
		}
		decisions = append(decisions, page.Decisions...)
		if page.NextPageToken == "" {
			break
		}
		token = page.NextPageToken
	}

	return s.miner.Mine(ctx, query.TenantID, decisions, query.Limit)
}

// Actions lists every known action with its display metadata.
func (s *GateService) Actions() []models.ActionDescriptor {
	return models.Actions()
}

// Health reports serving state and the active policy.
func (s *GateService) Health(ctx context.Context) api.Health {
	health := api.Health{Status: "SERVING", Latency: s.latencies.Summary()}
	if s.policies != nil {
		policy := s.policies.Current()
		health.Policy = policy.Name
		health.Rules = len(policy.Rules)
	}
	return health
}
