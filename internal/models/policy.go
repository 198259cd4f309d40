package models

// Rule maps a condition set onto an action.
type Rule struct {
	If   map[string]any `json:"if" yaml:"if"`
	Then Action         `json:"then" yaml:"then"`
}

// Policy is an ordered decision tree; the first matching rule wins.
type Policy struct {
	Name  string `json:"name" yaml:"name"`
	Rules []Rule `json:"decision_tree" yaml:"decision_tree"`
}
