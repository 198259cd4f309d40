package models

import (
	"errors"
	"time"
)

// DecisionRequest asks the gate for a decision on one pipeline.
// Report and Units are fetched from the registry when left nil.
type DecisionRequest struct {
	TenantID   string
	PipelineID string
	Report     Report
	Units      []Unit
}

// Decision is the full outcome of one gate evaluation.
type Decision struct {
	ID         string           `json:"id"`
	TenantID   string           `json:"tenant_id"`
	PipelineID string           `json:"pipeline_id"`
	PolicyName string           `json:"policy"`
	Signals    Signals          `json:"signals"`
	Action     Action           `json:"action"`
	Descriptor ActionDescriptor `json:"descriptor"`
	Chain      ChainResult      `json:"chain"`
	CreatedAt  time.Time        `json:"created_at"`
}

// ListDecisionsRequest captures filters for decision history.
type ListDecisionsRequest struct {
	TenantID   string
	PipelineID string
	Action     Action
	Start      time.Time
	End        time.Time
	PageSize   int
	PageToken  string
}

// ListDecisionsResponse contains decision history records and pagination state.
type ListDecisionsResponse struct {
	Decisions     []Decision
	NextPageToken string
}

// BlockingPattern summarises how often a unit was held back.
type BlockingPattern struct {
	Unit         string         `json:"unit"`
	Evaluations  int            `json:"evaluations"`
	Denied       int            `json:"denied"`
	DenyRate     float64        `json:"deny_rate"`
	TopReason    string         `json:"top_reason"`
	LastDeniedAt time.Time      `json:"last_denied_at"`
	ReasonCounts map[string]int `json:"reason_counts"`
}

// ErrDecisionNotFound signals that no stored decision matches the lookup.
var ErrDecisionNotFound = errors.New("decision not found")
