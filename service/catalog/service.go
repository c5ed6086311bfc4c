// Package catalog supplies versioned compliance rule sets per jurisdiction
// and profession. The engine treats the catalog as read-only; rule authoring
// lives with external collaborators.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/justy6674/comply/model"
	"github.com/justy6674/comply/service/catalog/predicate"
)

var (
	// ErrUnavailable indicates the catalog backend could not be reached or
	// its content could not be decoded. The evaluator fails closed on it.
	ErrUnavailable = errors.New("catalog: unavailable")

	// ErrNotFound indicates no rule set exists for the requested
	// jurisdiction/profession pair.
	ErrNotFound = errors.New("catalog: rule set not found")
)

// Provider supplies the rule set for a jurisdiction/profession pair.
type Provider interface {
	Rules(ctx context.Context, jurisdiction, profession string) (*model.RuleSet, error)
}

// Validate checks a rule set before it is served: every rule needs an id, a
// severity, a non-negative penalty and a parsable When predicate. Unknown
// categories are allowed through so the evaluator can flag them per item.
func Validate(ruleSet *model.RuleSet) error {
	if ruleSet == nil {
		return fmt.Errorf("rule set is nil")
	}
	seen := make(map[string]bool, len(ruleSet.Rules))
	for i, rule := range ruleSet.Rules {
		if rule == nil {
			return fmt.Errorf("rule %d is nil", i)
		}
		if rule.ID == "" {
			return fmt.Errorf("rule %d has no id", i)
		}
		if seen[rule.ID] {
			return fmt.Errorf("duplicate rule id %q", rule.ID)
		}
		seen[rule.ID] = true
		switch rule.Severity {
		case model.SeverityInfo, model.SeverityWarning, model.SeverityError, model.SeverityCritical:
		default:
			return fmt.Errorf("rule %s has invalid severity %q", rule.ID, rule.Severity)
		}
		if rule.PenaltyWeight < 0 {
			return fmt.Errorf("rule %s has negative penalty", rule.ID)
		}
		if rule.When != "" {
			if _, err := predicate.Parse([]byte(rule.When)); err != nil {
				return fmt.Errorf("rule %s has invalid predicate: %w", rule.ID, err)
			}
		}
	}
	return nil
}

// Key builds the lookup key for a jurisdiction/profession pair.
func Key(jurisdiction, profession string) string {
	return strings.ToLower(jurisdiction) + "/" + strings.ToLower(profession)
}

// Memory is a static in-memory provider, used in tests and for embedding
// rule sets directly.
type Memory struct {
	mu       sync.RWMutex
	ruleSets map[string]*model.RuleSet
}

// NewMemory creates an empty in-memory provider.
func NewMemory() *Memory {
	return &Memory{ruleSets: map[string]*model.RuleSet{}}
}

// Register validates and stores a rule set, replacing any previous version
// for the same jurisdiction/profession.
func (m *Memory) Register(ruleSet *model.RuleSet) error {
	if err := Validate(ruleSet); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ruleSets[Key(ruleSet.Jurisdiction, ruleSet.Profession)] = ruleSet
	return nil
}

// Rules returns the registered rule set or ErrNotFound.
func (m *Memory) Rules(_ context.Context, jurisdiction, profession string) (*model.RuleSet, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ruleSet, ok := m.ruleSets[Key(jurisdiction, profession)]
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, jurisdiction, profession)
	}
	return ruleSet, nil
}

var _ Provider = (*Memory)(nil)
