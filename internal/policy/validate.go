package policy

import (
	"fmt"

	"github.com/miradorstack/mirador-gate/internal/engine"
	"github.com/miradorstack/mirador-gate/internal/models"
)

// Issue describes a likely authoring mistake in a policy. Issues never stop a
// policy from loading.
type Issue struct {
	Rule    int    `json:"rule"`
	Message string `json:"message"`
}

func (i Issue) String() string {
	return fmt.Sprintf("rule %d: %s", i.Rule, i.Message)
}

// Validate reports unknown actions, conditions that can never hold and rules
// shadowed by an earlier catch-all.
func Validate(policy models.Policy) []Issue {
	var issues []Issue
	catchAll := -1
	for i, rule := range policy.Rules {
		if !rule.Then.Known() {
			issues = append(issues, Issue{Rule: i, Message: fmt.Sprintf("unknown action %q blocks every unit", rule.Then)})
		}
		if catchAll >= 0 {
			issues = append(issues, Issue{Rule: i, Message: fmt.Sprintf("unreachable after catch-all rule %d", catchAll)})
		}
		if v, ok := rule.If[models.SignalCriticalAlerts]; ok && engine.ValuesEqual(v, true) {
			issues = append(issues, Issue{Rule: i, Message: "critical_alerts is never raised; rule cannot match"})
		}
		for key, v := range rule.If {
			if _, known := (models.Signals{}).Lookup(key); !known {
				if v != nil {
					issues = append(issues, Issue{Rule: i, Message: fmt.Sprintf("unknown signal %q; rule cannot match", key)})
				}
				continue
			}
			if !engine.ValuesEqual(v, true) && !engine.ValuesEqual(v, false) {
				issues = append(issues, Issue{Rule: i, Message: fmt.Sprintf("%s compared with %v, which is neither true nor false; rule cannot match", key, v)})
			}
		}
		if len(rule.If) == 0 && catchAll < 0 {
			catchAll = i
		}
	}
	return issues
}
