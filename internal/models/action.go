package models

import "sort"

// Action is the outcome chosen by the policy evaluator.
type Action string

const (
	ActionAutoDeploy      Action = "auto_deploy"
	ActionApproveRequired Action = "approve_required"
	ActionReview          Action = "review"
	ActionTriage          Action = "triage"
	ActionQuarantine      Action = "quarantine"
	ActionAutoQuarantine  Action = "auto_quarantine"
	ActionAutoRollback    Action = "auto_rollback"
	ActionRollback        Action = "rollback"
)

// DefaultAction is returned when no policy rule matches.
const DefaultAction = ActionReview

// ActionDescriptor carries presentation metadata for an action.
type ActionDescriptor struct {
	Action Action `json:"action"`
	Label  string `json:"label"`
	Badge  string `json:"badge"`
	Color  string `json:"color"`
}

var actionDescriptors = map[Action]ActionDescriptor{
	ActionAutoDeploy:      {Action: ActionAutoDeploy, Label: "Auto-Deploy", Badge: "✅", Color: "green"},
	ActionApproveRequired: {Action: ActionApproveRequired, Label: "Approval Required", Badge: "🟨", Color: "orange"},
	ActionReview:          {Action: ActionReview, Label: "Review", Badge: "🟦", Color: "blue"},
	ActionTriage:          {Action: ActionTriage, Label: "Triage", Badge: "🟪", Color: "purple"},
	ActionQuarantine:      {Action: ActionQuarantine, Label: "Quarantine", Badge: "🟥", Color: "red"},
	ActionAutoQuarantine:  {Action: ActionAutoQuarantine, Label: "Auto-Quarantine", Badge: "🟥", Color: "red"},
	ActionAutoRollback:    {Action: ActionAutoRollback, Label: "Auto-Rollback", Badge: "⛔", Color: "red"},
	ActionRollback:        {Action: ActionRollback, Label: "Rollback", Badge: "⛔", Color: "red"},
}

// Known reports whether the action belongs to the closed action set.
func (a Action) Known() bool {
	_, ok := actionDescriptors[a]
	return ok
}

// AllowsChain reports whether the action lets pipeline units run at all.
func (a Action) AllowsChain() bool {
	return a == ActionAutoDeploy || a == ActionApproveRequired
}

// Describe returns the presentation descriptor for the action. Unknown actions
// get a bare descriptor labelled with the action name.
func (a Action) Describe() (ActionDescriptor, bool) {
	desc, ok := actionDescriptors[a]
	if !ok {
		return ActionDescriptor{Action: a, Label: string(a)}, false
	}
	return desc, true
}

// Actions lists every known action descriptor ordered by action name.
func Actions() []ActionDescriptor {
	out := make([]ActionDescriptor, 0, len(actionDescriptors))
	for _, desc := range actionDescriptors {
		out = append(out, desc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Action < out[j].Action })
	return out
}
