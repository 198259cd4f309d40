package models

import "fmt"

// UnitKind controls how a unit interacts with serial blocking.
type UnitKind string

const (
	UnitKindSerial   UnitKind = "serial"
	UnitKindParallel UnitKind = "parallel"
)

// StatusReady marks a unit as ready to run; any other status is not ready.
const StatusReady = "ready"

// Unit is one stage of a deployable pipeline.
type Unit struct {
	Name   string   `json:"name" yaml:"name"`
	Kind   UnitKind `json:"kind,omitempty" yaml:"kind,omitempty"`
	Status string   `json:"status,omitempty" yaml:"status,omitempty"`
}

// IsSerial applies the serial default for an unset kind.
func (u Unit) IsSerial() bool {
	return u.Kind == "" || u.Kind == UnitKindSerial
}

// IsReady applies the ready default for an unset status.
func (u Unit) IsReady() bool {
	return u.Status == "" || u.Status == StatusReady
}

// UnitFromFields decodes a loosely typed unit object. kind and status fall
// back to their defaults only when the key is absent or an empty string; any
// other non-string value (null, false, 0) is kept in printed form so it never
// reads as serial or ready.
func UnitFromFields(fields map[string]any) Unit {
	name, _ := fields["name"].(string)
	return Unit{
		Name:   name,
		Kind:   UnitKind(looseField(fields, "kind")),
		Status: looseField(fields, "status"),
	}
}

func looseField(fields map[string]any, key string) string {
	raw, ok := fields[key]
	if !ok {
		return ""
	}
	if s, ok := raw.(string); ok {
		return s
	}
	return fmt.Sprint(raw)
}

// Verdict is the aggregate chain outcome.
type Verdict string

const (
	VerdictAllowed Verdict = "allowed"
	VerdictBlocked Verdict = "blocked"
)

// Deny reasons emitted by the chain evaluator when the gate is open.
const (
	ReasonSerialBlock         = "serial-block"
	ReasonParallelUnavailable = "parallel-unavailable"
)

// UnitDecision records whether a single unit may run.
type UnitDecision struct {
	Name    string `json:"name"`
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}

// ChainResult is the per-unit outcome plus the aggregate verdict.
type ChainResult struct {
	Overall Verdict        `json:"overall"`
	Units   []UnitDecision `json:"units"`
}
