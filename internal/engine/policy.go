package engine

import (
	"reflect"

	"github.com/miradorstack/mirador-gate/internal/models"
)

// ChooseAction walks the policy rules in order and returns the action of the
// first rule whose conditions all hold. Without a match it returns review.
func ChooseAction(policy models.Policy, signals models.Signals) models.Action {
	for _, rule := range policy.Rules {
		if ruleMatches(rule, signals) {
			return rule.Then
		}
	}
	return models.DefaultAction
}

// MatchIndex is ChooseAction that also reports which rule fired (-1 for the default).
func MatchIndex(policy models.Policy, signals models.Signals) (models.Action, int) {
	for i, rule := range policy.Rules {
		if ruleMatches(rule, signals) {
			return rule.Then, i
		}
	}
	return models.DefaultAction, -1
}

func ruleMatches(rule models.Rule, signals models.Signals) bool {
	for key, expected := range rule.If {
		actual, ok := signals.Lookup(key)
		if !ok {
			if expected != nil {
				return false
			}
			continue
		}
		if !ValuesEqual(actual, expected) {
			return false
		}
	}
	return true
}

// ValuesEqual compares numbers by value so YAML ints and JSON floats agree.
// Booleans count as 1 and 0, so a condition of 1 matches a true signal.
func ValuesEqual(a, b any) bool {
	af, aNum := asFloat(a)
	bf, bNum := asFloat(b)
	if aNum && bNum {
		return af == bf
	}
	return reflect.DeepEqual(a, b)
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}
