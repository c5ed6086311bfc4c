package model

import "time"

// RiskLevel is the ordinal review-triage summary of a compliance report.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

var riskRank = map[RiskLevel]int{
	RiskLow:      0,
	RiskMedium:   1,
	RiskHigh:     2,
	RiskCritical: 3,
}

// Rank returns the ordinal position of the level, low first.
func (r RiskLevel) Rank() int { return riskRank[r] }

// AtLeast reports whether r is the same or a higher level than other.
func (r RiskLevel) AtLeast(other RiskLevel) bool { return r.Rank() >= other.Rank() }

// MaxRisk returns the higher of the two levels.
func MaxRisk(a, b RiskLevel) RiskLevel {
	if b.Rank() > a.Rank() {
		return b
	}
	return a
}

// Finding is a single rule breach recorded in a compliance report.
type Finding struct {
	RuleID   string       `json:"ruleId"`
	Category RuleCategory `json:"category"`
	Severity Severity     `json:"severity"`
	Message  string       `json:"message"`
	Penalty  int          `json:"penalty"`
}

// ComplianceReport is the immutable result of evaluating one content item
// against one rule set. It is attached to the approval-request version that
// produced it and never mutated afterwards.
type ComplianceReport struct {
	ContentID      string     `json:"contentId"`
	RuleSetVersion string     `json:"ruleSetVersion,omitempty"`
	Violations     []*Finding `json:"violations,omitempty"`
	Warnings       []*Finding `json:"warnings,omitempty"`

	// Recommendations itemize remediation guidance for every finding so
	// submitters never get a bare pass/fail.
	Recommendations []string `json:"recommendations,omitempty"`

	Score     int       `json:"score"` // always within [0,100]
	RiskLevel RiskLevel `json:"riskLevel"`

	// EvaluationIncomplete marks a fail-closed report produced when the rule
	// catalog could not be fetched. Such a report is never compliant.
	EvaluationIncomplete bool `json:"evaluationIncomplete,omitempty"`

	EvaluatedAt time.Time `json:"evaluatedAt"`
}

// IsCompliant reports whether the content can be published as-is: no
// violations and a complete evaluation. Warnings alone do not block.
func (r *ComplianceReport) IsCompliant() bool {
	return r != nil && !r.EvaluationIncomplete && len(r.Violations) == 0
}

// Clone returns a deep copy of the report.
func (r *ComplianceReport) Clone() *ComplianceReport {
	if r == nil {
		return nil
	}
	clone := *r
	if len(r.Violations) > 0 {
		clone.Violations = make([]*Finding, len(r.Violations))
		for i, f := range r.Violations {
			v := *f
			clone.Violations[i] = &v
		}
	}
	if len(r.Warnings) > 0 {
		clone.Warnings = make([]*Finding, len(r.Warnings))
		for i, f := range r.Warnings {
			w := *f
			clone.Warnings[i] = &w
		}
	}
	if len(r.Recommendations) > 0 {
		clone.Recommendations = append([]string(nil), r.Recommendations...)
	}
	return &clone
}
