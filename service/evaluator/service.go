// Package evaluator scores content against a compliance rule set. Evaluation
// is pure and deterministic: identical inputs always produce an identical
// report, and nothing is mutated, so items can be evaluated concurrently.
package evaluator

import (
	"context"
	"fmt"
	"time"

	"github.com/justy6674/comply/internal/clock"
	"github.com/justy6674/comply/model"
	"github.com/justy6674/comply/service/catalog/predicate"
	"github.com/justy6674/comply/tracing"
)

// ConsentChecker answers whether an item's identifiable subject has valid
// consent at a point in time; the reason explains a negative answer.
type ConsentChecker interface {
	IsConsentValid(ctx context.Context, item *model.ContentItem, at time.Time) (bool, string)
}

// Service evaluates content items. The zero value works; options attach the
// consent ledger and a clock override.
type Service struct {
	consent ConsentChecker
	now     func() time.Time
}

// Option configures the evaluator.
type Option func(*Service)

// WithConsentChecker attaches the consent ledger used by consent-validity
// rules.
func WithConsentChecker(checker ConsentChecker) Option {
	return func(s *Service) { s.consent = checker }
}

// WithClock overrides the evaluation clock, used by temporal rules and
// report timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New creates an evaluator service.
func New(options ...Option) *Service {
	ret := &Service{now: clock.Now}
	for _, option := range options {
		option(ret)
	}
	if ret.now == nil {
		ret.now = clock.Now
	}
	return ret
}

// Evaluate scores the item against the rule set. The returned report is
// immutable: callers must not modify it after attaching it to a request.
//
// Scoring starts at 100; each firing rule subtracts its penalty weight and
// the running total is clamped to [0,100] only once at the end. Breaches at
// error/critical severity are violations, info/warning breaches are
// warnings, and conflicting rules apply independently.
func (s *Service) Evaluate(ctx context.Context, item *model.ContentItem, ruleSet *model.RuleSet) (*model.ComplianceReport, error) {
	if item == nil {
		return nil, fmt.Errorf("content item is nil")
	}
	if ruleSet == nil {
		return nil, fmt.Errorf("rule set is nil")
	}
	ctx, span := tracing.StartSpan(ctx, "evaluator.evaluate")
	defer tracing.EndSpan(span, nil)
	span.WithAttributes(map[string]string{"content.id": item.ID, "ruleset.version": ruleSet.Version})

	now := s.now()
	report := &model.ComplianceReport{
		ContentID:      item.ID,
		RuleSetVersion: ruleSet.Version,
		Score:          100,
		RiskLevel:      model.RiskLow,
		EvaluatedAt:    now,
	}

	score := 100
	for _, rule := range ruleSet.Rules {
		if rule == nil || !rule.ActiveAt(now) {
			continue
		}
		if !applies(item, rule) {
			continue
		}

		fired, message, recognized := s.applyRule(ctx, item, rule, now)
		if !recognized {
			report.Warnings = append(report.Warnings, &model.Finding{
				RuleID:   rule.ID,
				Category: rule.Category,
				Severity: model.SeverityWarning,
				Message:  fmt.Sprintf("unrecognized rule category %q", rule.Category),
			})
			continue
		}
		if !fired {
			continue
		}

		finding := &model.Finding{
			RuleID:   rule.ID,
			Category: rule.Category,
			Severity: rule.Severity,
			Message:  message,
			Penalty:  rule.PenaltyWeight,
		}
		score -= rule.PenaltyWeight
		if rule.Severity.Blocking() {
			report.Violations = append(report.Violations, finding)
		} else {
			report.Warnings = append(report.Warnings, finding)
		}
		if rule.Remediation != "" {
			report.Recommendations = append(report.Recommendations,
				fmt.Sprintf("[%s] %s", rule.ID, rule.Remediation))
		}
	}

	report.Score = clampScore(score)
	report.RiskLevel = riskLevel(report.Violations, report.Warnings)
	return report, nil
}

// FailClosed builds the report returned when the rule catalog cannot be
// fetched: critical risk, zero score, explicitly incomplete. The engine
// never silently reports "compliant" on catalog failure.
func (s *Service) FailClosed(item *model.ContentItem, cause error) *model.ComplianceReport {
	report := &model.ComplianceReport{
		Score:                0,
		RiskLevel:            model.RiskCritical,
		EvaluationIncomplete: true,
		EvaluatedAt:          s.now(),
		Recommendations: []string{
			fmt.Sprintf("compliance rules could not be loaded (%v); resubmit once the rule catalog is reachable", cause),
		},
	}
	if item != nil {
		report.ContentID = item.ID
	}
	return report
}

// applies evaluates rule scoping: jurisdiction, profession and the optional
// When predicate. Predicates were validated at catalog load; a malformed one
// here simply keeps the rule out.
func applies(item *model.ContentItem, rule *model.ComplianceRule) bool {
	if rule.Jurisdiction != "" && item.Jurisdiction != "" && rule.Jurisdiction != item.Jurisdiction {
		return false
	}
	if rule.Profession != "" && item.Profession != "" && rule.Profession != item.Profession {
		return false
	}
	if rule.When != "" {
		parsed, err := predicate.Parse([]byte(rule.When))
		if err != nil {
			return false
		}
		return parsed.Eval(item)
	}
	return true
}

// applyRule dispatches on the rule category. The third return value is false
// for categories the engine does not recognize.
func (s *Service) applyRule(ctx context.Context, item *model.ContentItem, rule *model.ComplianceRule, now time.Time) (fired bool, message string, recognized bool) {
	switch rule.Category {
	case model.CategoryProhibitedTerm:
		fired, message = checkProhibitedTerms(item, rule)
	case model.CategoryRequiredDisclosure:
		fired, message = checkRequiredDisclosure(item, rule)
	case model.CategoryClaimSubstantiation:
		fired, message = checkClaimSubstantiation(item, rule)
	case model.CategoryAudience:
		fired, message = checkAudience(item, rule)
	case model.CategoryConsent:
		fired, message = s.checkConsent(ctx, item, now)
	case model.CategoryTemporal:
		fired, message = checkTemporal(item, now)
	default:
		return false, "", false
	}
	return fired, message, true
}
