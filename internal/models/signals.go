package models

// Report is a raw alerting/monitoring report of arbitrary shape.
type Report map[string]any

// Signal names understood by policy rules.
const (
	SignalAnyAlerts      = "any_alerts"
	SignalCriticalAlerts = "critical_alerts"
	SignalAllClear       = "all_clear"
)

// Signals is the reduced view of a report used for rule matching.
type Signals struct {
	AnyAlerts      bool `json:"any_alerts" yaml:"any_alerts"`
	CriticalAlerts bool `json:"critical_alerts" yaml:"critical_alerts"`
	AllClear       bool `json:"all_clear" yaml:"all_clear"`
}

// Lookup returns the value of a named signal and whether the record carries it.
func (s Signals) Lookup(name string) (any, bool) {
	switch name {
	case SignalAnyAlerts:
		return s.AnyAlerts, true
	case SignalCriticalAlerts:
		return s.CriticalAlerts, true
	case SignalAllClear:
		return s.AllClear, true
	default:
		return nil, false
	}
}

// Map renders the record as a name -> value mapping.
func (s Signals) Map() map[string]any {
	return map[string]any{
		SignalAnyAlerts:      s.AnyAlerts,
		SignalCriticalAlerts: s.CriticalAlerts,
		SignalAllClear:       s.AllClear,
	}
}
