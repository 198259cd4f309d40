package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"github.com/miradorstack/mirador-gate/internal/cache"
	"github.com/miradorstack/mirador-gate/internal/metrics"
	"github.com/miradorstack/mirador-gate/internal/models"
)

// PolicySource supplies the policy snapshot used for a decision.
type PolicySource interface {
	Current() models.Policy
}

// Registry describes the scheduler/registry lookups the gate falls back to
// when a request omits its report or unit list.
type Registry interface {
	FetchUnits(ctx context.Context, tenantID, pipelineID string) ([]models.Unit, error)
	FetchReport(ctx context.Context, tenantID, pipelineID string) (models.Report, error)
}

// Recorder persists decisions for later lookup.
type Recorder interface {
	Record(ctx context.Context, decision models.Decision) error
	Latest(ctx context.Context, tenantID, pipelineID string) (models.Decision, error)
}

// Gate runs summarize -> choose action -> evaluate chain for one pipeline.
type Gate struct {
	logger      *slog.Logger
	policies    PolicySource
	registry    Registry
	recorder    Recorder
	cache       cache.Provider
	decisionTTL time.Duration
	now         func() time.Time
}

// NewGate constructs a Gate. registry, recorder and cacheProvider may be nil.
func NewGate(
	logger *slog.Logger,
	policies PolicySource,
	registry Registry,
	recorder Recorder,
	cacheProvider cache.Provider,
	decisionTTL time.Duration,
) *Gate {
	if logger == nil {
		logger = slog.Default()
	}
	if cacheProvider == nil {
		cacheProvider = cache.NoopProvider{}
	}
	return &Gate{
		logger:      logger,
		policies:    policies,
		registry:    registry,
		recorder:    recorder,
		cache:       cacheProvider,
		decisionTTL: decisionTTL,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Decide evaluates the current policy against the pipeline's report and units.
// Only registry failures produce an error; the evaluation itself is total.
func (g *Gate) Decide(ctx context.Context, req models.DecisionRequest) (models.Decision, error) {
	ctx, span := otel.Tracer("mirador-gate/engine").Start(ctx, "gate.decide")
	defer span.End()
	span.SetAttributes(
		attribute.String("gate.tenant_id", req.TenantID),
		attribute.String("gate.pipeline_id", req.PipelineID),
	)

	start := time.Now()
	report, units, err := g.resolveInputs(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "resolve inputs")
		return models.Decision{}, err
	}

	var policy models.Policy
	if g.policies != nil {
		policy = g.policies.Current()
	}

	signals := Summarize(report)
	action, ruleIndex := MatchIndex(policy, signals)
	chain := EvaluateChain(units, action)
	descriptor, known := action.Describe()
	if !known {
		g.logger.Warn("policy selected unknown action", slog.String("action", string(action)), slog.String("policy", policy.Name))
	}

	decision := models.Decision{
		ID:         uuid.NewString(),
		TenantID:   req.TenantID,
		PipelineID: req.PipelineID,
		PolicyName: policy.Name,
		Signals:    signals,
		Action:     action,
		Descriptor: descriptor,
		Chain:      chain,
		CreatedAt:  g.now(),
	}

	span.SetAttributes(
		attribute.String("gate.action", string(action)),
		attribute.String("gate.verdict", string(chain.Overall)),
		attribute.Int("gate.rule_index", ruleIndex),
	)
	g.logger.Debug("gate decision",
		slog.String("tenant_id", req.TenantID),
		slog.String("pipeline_id", req.PipelineID),
		slog.String("action", string(action)),
		slog.Int("rule_index", ruleIndex),
		slog.String("verdict", string(chain.Overall)),
	)

	metrics.ObserveDecision(time.Since(start), string(action), string(chain.Overall))
	for i, unitDecision := range chain.Units {
		kind := models.UnitKindParallel
		if units[i].IsSerial() {
			kind = models.UnitKindSerial
		}
		metrics.ObserveUnit(string(kind), unitDecision.Allowed)
	}

	g.remember(ctx, decision)
	return decision, nil
}

// LastDecision returns the most recent decision for a pipeline, preferring the cache.
func (g *Gate) LastDecision(ctx context.Context, tenantID, pipelineID string) (models.Decision, error) {
	payload, err := g.cache.Get(ctx, lastDecisionKey(tenantID, pipelineID))
	if err == nil {
		var decision models.Decision
		if jsonErr := json.Unmarshal(payload, &decision); jsonErr == nil {
			return decision, nil
		}
		g.logger.Warn("discarding undecodable cached decision", slog.String("pipeline_id", pipelineID))
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		g.logger.Warn("decision cache lookup failed", slog.Any("error", err))
	}

	if g.recorder == nil {
		return models.Decision{}, models.ErrDecisionNotFound
	}
	return g.recorder.Latest(ctx, tenantID, pipelineID)
}

func (g *Gate) resolveInputs(ctx context.Context, req models.DecisionRequest) (models.Report, []models.Unit, error) {
	report := req.Report
	units := req.Units
	if g.registry == nil || (report != nil && units != nil) {
		return report, units, nil
	}

	grp, grpCtx := errgroup.WithContext(ctx)
	if report == nil {
		grp.Go(func() error {
			fetched, err := g.registry.FetchReport(grpCtx, req.TenantID, req.PipelineID)
			if err != nil {
				return fmt.Errorf("fetch report: %w", err)
			}
			report = fetched
			return nil
		})
	}
	if units == nil {
		grp.Go(func() error {
			fetched, err := g.registry.FetchUnits(grpCtx, req.TenantID, req.PipelineID)
			if err != nil {
				return fmt.Errorf("fetch units: %w", err)
			}
			units = fetched
			return nil
		})
	}
	if err := grp.Wait(); err != nil {
		return nil, nil, err
	}
	return report, units, nil
}

func (g *Gate) remember(ctx context.Context, decision models.Decision) {
	if g.recorder != nil {
		if err := g.recorder.Record(ctx, decision); err != nil {
			g.logger.Warn("failed to persist decision", slog.String("decision_id", decision.ID), slog.Any("error", err))
		}
	}

	payload, err := json.Marshal(decision)
	if err != nil {
		g.logger.Warn("failed to encode decision", slog.Any("error", err))
		return
	}
	if err := g.cache.Set(ctx, lastDecisionKey(decision.TenantID, decision.PipelineID), payload, g.decisionTTL); err != nil {
		g.logger.Warn("failed to cache decision", slog.Any("error", err))
	}
}

func lastDecisionKey(tenantID, pipelineID string) string {
	return fmt.Sprintf("mirador-gate:decision:last:%s:%s", tenantID, pipelineID)
}
