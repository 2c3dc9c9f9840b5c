package merge

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"crm_backend/internal/leads/domain"

	"gopkg.in/yaml.v3"
)

// Strategy decides how one field is consolidated.
type Strategy string

const (
	// StrategyFillIfEmpty copies the first non-empty duplicate value, in
	// duplicate-list order, when the master's value is empty.
	StrategyFillIfEmpty Strategy = "fill_if_empty"
	// StrategyUnion combines the master's and every duplicate's values.
	// Only list fields can be unioned.
	StrategyUnion Strategy = "union"
	// StrategyMasterWins keeps the master's value untouched.
	StrategyMasterWins Strategy = "master_wins"
)

// Rule binds a field to a strategy.
type Rule struct {
	Field    string   `yaml:"field"`
	Strategy Strategy `yaml:"strategy"`
}

// Policy is the ordered consolidation table. Fields it does not name are left
// as the master has them.
type Policy struct {
	Rules []Rule `yaml:"fields"`
}

//go:embed policy.yaml
var defaultPolicyYAML []byte

var listFields = map[string]bool{
	domain.FieldOrders:      true,
	domain.FieldActivities:  true,
	domain.FieldAttachments: true,
	domain.FieldAssignees:   true,
}

// relationFields must always be unioned.
var relationFields = []string{domain.FieldOrders, domain.FieldActivities}

// DefaultPolicy returns the built-in table.
func DefaultPolicy() Policy {
	p, err := ParsePolicy(defaultPolicyYAML)
	if err != nil {
		panic(fmt.Sprintf("merge: embedded policy is invalid: %v", err))
	}
	return p
}

// LoadPolicy reads a policy file, or returns DefaultPolicy when path is empty.
func LoadPolicy(path string) (Policy, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultPolicy(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Policy{}, fmt.Errorf("read merge policy: %w", err)
	}
	return ParsePolicy(data)
}

// ParsePolicy decodes and validates a YAML policy. Relation fields that the
// document omits are added as union.
func ParsePolicy(data []byte) (Policy, error) {
	var p Policy
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Policy{}, fmt.Errorf("decode merge policy: %w", err)
	}
	if err := p.normalize(); err != nil {
		return Policy{}, err
	}
	return p, nil
}

// StrategyFor returns the strategy bound to field, if any.
func (p Policy) StrategyFor(field string) (Strategy, bool) {
	for _, r := range p.Rules {
		if r.Field == field {
			return r.Strategy, true
		}
	}
	return "", false
}

// FillFields lists the scalar fields consolidated with fill_if_empty, in table order.
func (p Policy) FillFields() []string {
	var out []string
	for _, r := range p.Rules {
		if r.Strategy == StrategyFillIfEmpty && !listFields[r.Field] {
			out = append(out, r.Field)
		}
	}
	return out
}

func (p *Policy) normalize() error {
	seen := make(map[string]bool, len(p.Rules))
	for i, r := range p.Rules {
		field := strings.TrimSpace(r.Field)
		if field == "" {
			return fmt.Errorf("merge policy rule %d: field is required", i)
		}
		if seen[field] {
			return fmt.Errorf("merge policy: field %q listed twice", field)
		}
		seen[field] = true

		switch r.Strategy {
		case StrategyFillIfEmpty, StrategyMasterWins:
		case StrategyUnion:
			if !listFields[field] {
				return fmt.Errorf("merge policy: %q is a scalar field and cannot be unioned", field)
			}
		default:
			return fmt.Errorf("merge policy: unknown strategy %q for %q", r.Strategy, field)
		}

		if field == domain.FieldID || field == domain.FieldCreatedAt {
			return fmt.Errorf("merge policy: %q is protected", field)
		}
		p.Rules[i].Field = field
	}

	for _, field := range relationFields {
		strategy, ok := p.StrategyFor(field)
		if !ok {
			p.Rules = append(p.Rules, Rule{Field: field, Strategy: StrategyUnion})
			continue
		}
		if strategy != StrategyUnion {
			return fmt.Errorf("merge policy: %q must use %s, got %s", field, StrategyUnion, strategy)
		}
	}
	return nil
}
