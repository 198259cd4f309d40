package engine

import "github.com/miradorstack/mirador-gate/internal/models"

// EvaluateChain decides which units may run under the given action.
//
// Actions outside the allow set block every unit with the action name as the
// reason. Otherwise units are folded in order: an unready or blocked serial
// unit blocks every later serial unit, while parallel units only depend on
// their own readiness.
func EvaluateChain(units []models.Unit, action models.Action) models.ChainResult {
	decisions := make([]models.UnitDecision, 0, len(units))

	if !action.AllowsChain() {
		for _, unit := range units {
			decisions = append(decisions, models.UnitDecision{Name: unit.Name, Allowed: false, Reason: string(action)})
		}
		return models.ChainResult{Overall: models.VerdictBlocked, Units: decisions}
	}

	state := chainState{}
	for _, unit := range units {
		var decision models.UnitDecision
		decision, state = state.step(unit)
		decisions = append(decisions, decision)
	}

	return models.ChainResult{Overall: overallVerdict(decisions), Units: decisions}
}

// chainState is the accumulator carried across one chain evaluation.
type chainState struct {
	serialBlock bool
}

func (s chainState) step(unit models.Unit) (models.UnitDecision, chainState) {
	if unit.IsSerial() {
		allowed := !s.serialBlock && unit.IsReady()
		if !allowed {
			return models.UnitDecision{Name: unit.Name, Reason: models.ReasonSerialBlock}, chainState{serialBlock: true}
		}
		return models.UnitDecision{Name: unit.Name, Allowed: true}, s
	}

	if !unit.IsReady() {
		return models.UnitDecision{Name: unit.Name, Reason: models.ReasonParallelUnavailable}, s
	}
	return models.UnitDecision{Name: unit.Name, Allowed: true}, s
}

func overallVerdict(decisions []models.UnitDecision) models.Verdict {
	for _, d := range decisions {
		if d.Allowed {
			return models.VerdictAllowed
		}
	}
	return models.VerdictBlocked
}
