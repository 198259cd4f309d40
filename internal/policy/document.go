package policy

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/miradorstack/mirador-gate/internal/models"
	"github.com/miradorstack/mirador-gate/internal/utils"
)

// document is the on-disk shape of a policy. JSON documents parse as well
// since they are valid YAML.
type document struct {
	Name         string         `yaml:"name"`
	DecisionTree []ruleDocument `yaml:"decision_tree"`
}

type ruleDocument struct {
	If   map[string]any `yaml:"if"`
	Then *string        `yaml:"then"`
}

// Parse decodes a policy document. Only structural problems are errors; unknown
// action names are accepted and reported by Validate.
func Parse(data []byte) (models.Policy, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return models.Policy{}, fmt.Errorf("parse policy: %w", err)
	}

	policy := models.Policy{Name: doc.Name, Rules: make([]models.Rule, 0, len(doc.DecisionTree))}
	for i, rule := range doc.DecisionTree {
		if rule.Then == nil || *rule.Then == "" {
			return models.Policy{}, fmt.Errorf("parse policy: rule %d has no action", i)
		}
		conditions := rule.If
		if conditions == nil {
			conditions = map[string]any{}
		}
		policy.Rules = append(policy.Rules, models.Rule{If: conditions, Then: models.Action(*rule.Then)})
	}
	return policy, nil
}

// LoadFile reads and parses a policy document from disk.
func LoadFile(path string) (models.Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return models.Policy{}, utils.NewAppError("policy.load", "policy file "+path+" not found", err)
		}
		return models.Policy{}, utils.NewAppError("policy.load", "read policy file", err)
	}
	policy, err := Parse(data)
	if err != nil {
		return models.Policy{}, utils.NewAppError("policy.load", path, err)
	}
	return policy, nil
}
