package engine

import (
	"testing"

	"github.com/miradorstack/mirador-gate/internal/models"
)

func TestChooseActionFirstMatchWins(t *testing.T) {
	policy := models.Policy{Rules: []models.Rule{
		{If: map[string]any{"any_alerts": true}, Then: models.ActionQuarantine},
		{If: map[string]any{"any_alerts": true, "critical_alerts": false}, Then: models.ActionRollback},
		{If: map[string]any{"all_clear": true}, Then: models.ActionAutoDeploy},
	}}

	alerting := Summarize(models.Report{"alerts": []any{"latency"}})
	if got := ChooseAction(policy, alerting); got != models.ActionQuarantine {
		t.Fatalf("expected quarantine, got %s", got)
	}

	clear := Summarize(models.Report{})
	if got := ChooseAction(policy, clear); got != models.ActionAutoDeploy {
		t.Fatalf("expected auto_deploy, got %s", got)
	}
}

func TestChooseActionDefaultsToReview(t *testing.T) {
	signals := Summarize(nil)
	if got := ChooseAction(models.Policy{}, signals); got != models.ActionReview {
		t.Fatalf("expected review for empty policy, got %s", got)
	}

	policy := models.Policy{Rules: []models.Rule{{If: map[string]any{"any_alerts": true}, Then: models.ActionQuarantine}}}
	if got := ChooseAction(policy, signals); got != models.ActionReview {
		t.Fatalf("expected review when nothing matches, got %s", got)
	}
}

func TestChooseActionCatchAll(t *testing.T) {
	policy := models.Policy{Rules: []models.Rule{
		{If: map[string]any{}, Then: models.ActionApproveRequired},
		{If: map[string]any{"all_clear": true}, Then: models.ActionAutoDeploy},
	}}
	if got := ChooseAction(policy, Summarize(nil)); got != models.ActionApproveRequired {
		t.Fatalf("expected catch-all to win, got %s", got)
	}
}

func TestChooseActionMissingSignal(t *testing.T) {
	signals := Summarize(nil)

	missing := models.Policy{Rules: []models.Rule{{If: map[string]any{"deploy_freeze": true}, Then: models.ActionTriage}}}
	if got := ChooseAction(missing, signals); got != models.ActionReview {
		t.Fatalf("unknown signal must not match, got %s", got)
	}

	nullExpected := models.Policy{Rules: []models.Rule{{If: map[string]any{"deploy_freeze": nil}, Then: models.ActionTriage}}}
	if got := ChooseAction(nullExpected, signals); got != models.ActionTriage {
		t.Fatalf("null expectation should match an absent signal, got %s", got)
	}
}

func TestChooseActionCriticalRuleUnreachable(t *testing.T) {
	policy := models.Policy{Rules: []models.Rule{{If: map[string]any{"critical_alerts": true}, Then: models.ActionAutoRollback}}}
	report := models.Report{"alerts": []any{"p0", "p0"}}
	if got := ChooseAction(policy, Summarize(report)); got != models.ActionReview {
		t.Fatalf("critical rule should never fire, got %s", got)
	}
}

func TestChooseActionValueTypes(t *testing.T) {
	policy := models.Policy{Rules: []models.Rule{{If: map[string]any{"any_alerts": "true"}, Then: models.ActionTriage}}}
	if got := ChooseAction(policy, Summarize(models.Report{"alerts": true})); got != models.ActionReview {
		t.Fatalf("string and bool must not compare equal, got %s", got)
	}
}

func TestChooseActionBoolMatchesOneAndZero(t *testing.T) {
	policy := models.Policy{Rules: []models.Rule{
		{If: map[string]any{"any_alerts": 1}, Then: models.ActionQuarantine},
		{If: map[string]any{"all_clear": 1.0, "any_alerts": 0}, Then: models.ActionAutoDeploy},
	}}
	if got := ChooseAction(policy, Summarize(models.Report{"alerts": []any{"cpu"}})); got != models.ActionQuarantine {
		t.Fatalf("1 should match a true signal, got %s", got)
	}
	if got := ChooseAction(policy, Summarize(models.Report{})); got != models.ActionAutoDeploy {
		t.Fatalf("0 should match a false signal, got %s", got)
	}

	twos := models.Policy{Rules: []models.Rule{{If: map[string]any{"any_alerts": 2}, Then: models.ActionQuarantine}}}
	if got := ChooseAction(twos, Summarize(models.Report{"alerts": true})); got != models.ActionReview {
		t.Fatalf("2 must not match true, got %s", got)
	}
}

func TestMatchIndex(t *testing.T) {
	policy := models.Policy{Rules: []models.Rule{
		{If: map[string]any{"any_alerts": true}, Then: models.ActionQuarantine},
		{If: map[string]any{"all_clear": true}, Then: models.ActionAutoDeploy},
	}}
	action, idx := MatchIndex(policy, Summarize(nil))
	if action != models.ActionAutoDeploy || idx != 1 {
		t.Fatalf("expected auto_deploy at rule 1, got %s at %d", action, idx)
	}
	action, idx = MatchIndex(models.Policy{}, Summarize(nil))
	if action != models.ActionReview || idx != -1 {
		t.Fatalf("expected default review at -1, got %s at %d", action, idx)
	}
}

func TestChooseActionDeterministic(t *testing.T) {
	policy := models.Policy{Rules: []models.Rule{
		{If: map[string]any{"any_alerts": true, "all_clear": false}, Then: models.ActionQuarantine},
		{If: map[string]any{}, Then: models.ActionAutoDeploy},
	}}
	signals := Summarize(models.Report{"alerts": []any{1}})
	first := ChooseAction(policy, signals)
	for i := 0; i < 50; i++ {
		if got := ChooseAction(policy, signals); got != first {
			t.Fatalf("iteration %d: expected %s, got %s", i, first, got)
		}
	}
}
