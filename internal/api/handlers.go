package api

import (
	"encoding/json"
	"fmt"
	"strconv"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/miradorstack/mirador-gate/internal/models"
	"github.com/miradorstack/mirador-gate/internal/utils"
)

// PipelineRef identifies a pipeline within a tenant.
type PipelineRef struct {
	TenantID   string
	PipelineID string
}

// HotspotsQuery selects the decision window mined for hotspots.
type HotspotsQuery struct {
	TenantID   string
	PipelineID string
	Limit      int
}

// Health is the service health snapshot.
type Health struct {
	Status  string               `json:"status"`
	Policy  string               `json:"policy"`
	Rules   int                  `json:"rules"`
	Latency utils.LatencySummary `json:"latency"`
}

// DecisionRequestFromMap decodes a decision request payload. report and
// units are optional; when absent the service fetches them from the
// registry, so "missing" and "empty" are kept distinct.
func DecisionRequestFromMap(fields map[string]any) (models.DecisionRequest, error) {
	if fields == nil {
		return models.DecisionRequest{}, utils.InvalidArgument("decode.decision", "request is empty")
	}

	req := models.DecisionRequest{
		TenantID:   stringField(fields, "tenant_id"),
		PipelineID: stringField(fields, "pipeline_id"),
	}
	if req.PipelineID == "" {
		return models.DecisionRequest{}, utils.InvalidArgument("decode.decision", "pipeline_id is required")
	}

	if raw, ok := fields["report"]; ok && raw != nil {
		report, ok := raw.(map[string]any)
		if !ok {
			return models.DecisionRequest{}, utils.InvalidArgument("decode.decision", "report must be an object")
		}
		req.Report = models.Report(report)
	}

	if raw, ok := fields["units"]; ok && raw != nil {
		list, ok := raw.([]any)
		if !ok {
			return models.DecisionRequest{}, utils.InvalidArgument("decode.decision", "units must be a list")
		}
		req.Units = make([]models.Unit, 0, len(list))
		for i, item := range list {
			obj, ok := item.(map[string]any)
			if !ok {
				return models.DecisionRequest{}, utils.InvalidArgument("decode.decision", "units[%d] must be an object", i)
			}
			unit := models.UnitFromFields(obj)
			if unit.Name == "" {
				return models.DecisionRequest{}, utils.InvalidArgument("decode.decision", "units[%d].name is required", i)
			}
			req.Units = append(req.Units, unit)
		}
	}
	return req, nil
}

// PipelineRefFromMap decodes a tenant/pipeline lookup.
func PipelineRefFromMap(fields map[string]any) (PipelineRef, error) {
	ref := PipelineRef{
		TenantID:   stringField(fields, "tenant_id"),
		PipelineID: stringField(fields, "pipeline_id"),
	}
	if ref.PipelineID == "" {
		return PipelineRef{}, utils.InvalidArgument("decode.pipeline", "pipeline_id is required")
	}
	return ref, nil
}

// ListDecisionsRequestFromMap decodes history filters. Time bounds are RFC3339 strings.
func ListDecisionsRequestFromMap(fields map[string]any) (models.ListDecisionsRequest, error) {
	start, end, err := utils.ParseRange(stringField(fields, "start"), stringField(fields, "end"))
	if err != nil {
		return models.ListDecisionsRequest{}, err
	}
	pageSize, err := intField(fields, "page_size")
	if err != nil {
		return models.ListDecisionsRequest{}, err
	}
	action := models.Action(stringField(fields, "action"))
	if action != "" && !action.Known() {
		return models.ListDecisionsRequest{}, utils.InvalidArgument("decode.list", "unknown action %q", action)
	}
	return models.ListDecisionsRequest{
		TenantID:   stringField(fields, "tenant_id"),
		PipelineID: stringField(fields, "pipeline_id"),
		Action:     action,
		Start:      start,
		End:        end,
		PageSize:   pageSize,
		PageToken:  stringField(fields, "page_token"),
	}, nil
}

// HotspotsQueryFromMap decodes a hotspot query.
func HotspotsQueryFromMap(fields map[string]any) (HotspotsQuery, error) {
	limit, err := intField(fields, "limit")
	if err != nil {
		return HotspotsQuery{}, err
	}
	return HotspotsQuery{
		TenantID:   stringField(fields, "tenant_id"),
		PipelineID: stringField(fields, "pipeline_id"),
		Limit:      limit,
	}, nil
}

// DecisionResponse is the wire shape of a decision: the domain record plus
// the UI-facing summary fields callers render directly.
type DecisionResponse struct {
	models.Decision
	Label   string `json:"label"`
	Badge   string `json:"badge"`
	Color   string `json:"color"`
	Allowed bool   `json:"allowed"`
}

// NewDecisionResponse flattens the descriptor onto the decision.
func NewDecisionResponse(d models.Decision) DecisionResponse {
	return DecisionResponse{
		Decision: d,
		Label:    d.Descriptor.Label,
		Badge:    d.Descriptor.Badge,
		Color:    d.Descriptor.Color,
		Allowed:  d.Chain.Overall == models.VerdictAllowed,
	}
}

// ListDecisionsResponse is the wire shape of a history page.
type ListDecisionsResponse struct {
	Decisions     []DecisionResponse `json:"decisions"`
	NextPageToken string             `json:"next_page_token,omitempty"`
}

// NewListDecisionsResponse converts a history page.
func NewListDecisionsResponse(resp models.ListDecisionsResponse) ListDecisionsResponse {
	out := ListDecisionsResponse{
		Decisions:     make([]DecisionResponse, 0, len(resp.Decisions)),
		NextPageToken: resp.NextPageToken,
	}
	for _, d := range resp.Decisions {
		out.Decisions = append(out.Decisions, NewDecisionResponse(d))
	}
	return out
}

// ToProtoDecision converts a decision into its Struct representation.
func ToProtoDecision(d models.Decision) (*structpb.Struct, error) {
	return ToStruct(NewDecisionResponse(d))
}

// ToProtoListDecisionsResponse converts a history page into a Struct.
func ToProtoListDecisionsResponse(resp models.ListDecisionsResponse) (*structpb.Struct, error) {
	return ToStruct(NewListDecisionsResponse(resp))
}

// ToProtoHotspots converts mined patterns into a Struct.
func ToProtoHotspots(patterns []models.BlockingPattern) (*structpb.Struct, error) {
	if patterns == nil {
		patterns = []models.BlockingPattern{}
	}
	return ToStruct(map[string]any{"hotspots": patterns})
}

// ToProtoActions converts the action table into a Struct.
func ToProtoActions(actions []models.ActionDescriptor) (*structpb.Struct, error) {
	return ToStruct(map[string]any{"actions": actions})
}

// ToProtoHealth converts a health snapshot into a Struct.
func ToProtoHealth(h Health) (*structpb.Struct, error) {
	return ToStruct(h)
}

// ToStruct renders any JSON-encodable value as a Struct, so gRPC and HTTP
// share one field layout.
func ToStruct(v any) (*structpb.Struct, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	var fields map[string]any
	if err := json.Unmarshal(payload, &fields); err != nil {
		return nil, fmt.Errorf("payload is not an object: %w", err)
	}
	s, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, fmt.Errorf("build struct: %w", err)
	}
	return s, nil
}

// FieldsOf returns the request fields of a possibly-nil Struct.
func FieldsOf(s *structpb.Struct) map[string]any {
	if s == nil {
		return nil
	}
	return s.AsMap()
}

func stringField(fields map[string]any, key string) string {
	if v, ok := fields[key].(string); ok {
		return v
	}
	return ""
}

// intField accepts JSON/Struct numbers and decimal strings (query parameters).
func intField(fields map[string]any, key string) (int, error) {
	switch v := fields[key].(type) {
	case nil:
		return 0, nil
	case float64:
		if v < 0 || v != float64(int(v)) {
			return 0, utils.InvalidArgument("decode", "%s must be a non-negative integer", key)
		}
		return int(v), nil
	case string:
		if v == "" {
			return 0, nil
		}
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return 0, utils.InvalidArgument("decode", "%s must be a non-negative integer", key)
		}
		return n, nil
	default:
		return 0, utils.InvalidArgument("decode", "%s must be a number", key)
	}
}
