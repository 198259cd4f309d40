package services

import (
	"context"
	"errors"
	"log/slog"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/miradorstack/mirador-gate/internal/api"
	"github.com/miradorstack/mirador-gate/internal/grpc/gatev1"
	"github.com/miradorstack/mirador-gate/internal/models"
	"github.com/miradorstack/mirador-gate/internal/utils"
)

// GateServer implements the gRPC GateEngine service over GateService.
type GateServer struct {
	gatev1.UnimplementedGateEngineServer

	service *GateService
	logger  *slog.Logger
}

// NewGateServer wraps a GateService for gRPC.
func NewGateServer(service *GateService, logger *slog.Logger) *GateServer {
	if logger == nil {
		logger = slog.Default()
	}
	return &GateServer{service: service, logger: logger}
}

// Decide evaluates one pipeline.
func (s *GateServer) Decide(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request cannot be nil")
	}
	domainReq, err := api.DecisionRequestFromMap(req.AsMap())
	if err != nil {
		return nil, toStatus(err)
	}

	s.logger.Debug("Decide called", slog.String("tenant_id", domainReq.TenantID), slog.String("pipeline_id", domainReq.PipelineID))

	decision, err := s.service.Decide(ctx, domainReq)
	if err != nil {
		s.logger.Error("decision failed", slog.String("pipeline_id", domainReq.PipelineID), slog.Any("error", err))
		return nil, toStatus(err)
	}
	return encode(api.ToProtoDecision(decision))
}

// GetLastDecision returns the latest decision for a pipeline.
func (s *GateServer) GetLastDecision(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	ref, err := api.PipelineRefFromMap(api.FieldsOf(req))
	if err != nil {
		return nil, toStatus(err)
	}
	decision, err := s.service.LastDecision(ctx, ref)
	if err != nil {
		return nil, toStatus(err)
	}
	return encode(api.ToProtoDecision(decision))
}

// ListDecisions pages through decision history.
func (s *GateServer) ListDecisions(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	domainReq, err := api.ListDecisionsRequestFromMap(api.FieldsOf(req))
	if err != nil {
		return nil, toStatus(err)
	}
	resp, err := s.service.ListDecisions(ctx, domainReq)
	if err != nil {
		if !isCallerError(err) {
			s.logger.Error("list decisions failed", slog.Any("error", err))
		}
		return nil, toStatus(err)
	}
	return encode(api.ToProtoListDecisionsResponse(resp))
}

// GetHotspots returns units most often held back.
func (s *GateServer) GetHotspots(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	query, err := api.HotspotsQueryFromMap(api.FieldsOf(req))
	if err != nil {
		return nil, toStatus(err)
	}
	patterns, err := s.service.Hotspots(ctx, query)
	if err != nil {
		if !isCallerError(err) {
			s.logger.Error("hotspot mining failed", slog.Any("error", err))
		}
		return nil, toStatus(err)
	}
	return encode(api.ToProtoHotspots(patterns))
}

// ListActions returns the action display table.
func (s *GateServer) ListActions(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return encode(api.ToProtoActions(s.service.Actions()))
}

// HealthCheck returns the current health state.
func (s *GateServer) HealthCheck(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return encode(api.ToProtoHealth(s.service.Health(ctx)))
}

func encode(resp *structpb.Struct, err error) (*structpb.Struct, error) {
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return resp, nil
}

func isCallerError(err error) bool {
	return utils.IsInvalidArgument(err) || errors.Is(err, models.ErrDecisionNotFound) || errors.Is(err, api.ErrUnavailable)
}

func toStatus(err error) error {
	switch {
	case utils.IsInvalidArgument(err):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, models.ErrDecisionNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, api.ErrUnavailable):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
