package model

import "time"

// Severity indicates how serious a rule breach is. Breaches at error or
// critical severity block publication (violations); info and warning breaches
// only reduce the score (warnings).
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityError    Severity = "error"
	SeverityCritical Severity = "critical"
)

// Blocking reports whether a breach at this severity is a violation rather
// than a warning.
func (s Severity) Blocking() bool {
	return s == SeverityError || s == SeverityCritical
}

// RuleCategory identifies the check a rule performs.
type RuleCategory string

const (
	CategoryProhibitedTerm      RuleCategory = "prohibitedTerm"
	CategoryRequiredDisclosure  RuleCategory = "requiredDisclosure"
	CategoryClaimSubstantiation RuleCategory = "claimSubstantiation"
	CategoryAudience            RuleCategory = "audienceAppropriateness"
	CategoryConsent             RuleCategory = "consentValidity"
	CategoryTemporal            RuleCategory = "temporalValidity"
)

// ComplianceRule is a single regulator rule evaluated against content.
// Category-specific data lives in the optional fields; Terms for prohibited
// term matching, Phrases for required disclosures and so on.
type ComplianceRule struct {
	ID          string       `json:"id" yaml:"id"`
	Category    RuleCategory `json:"category" yaml:"category"`
	Description string       `json:"description,omitempty" yaml:"description,omitempty"`
	Severity    Severity     `json:"severity" yaml:"severity"`

	// PenaltyWeight is subtracted from the running score when the rule fires.
	PenaltyWeight int `json:"penaltyWeight" yaml:"penaltyWeight"`

	// Terms lists prohibited terms; a normalized match of any fires the rule.
	Terms []string `json:"terms,omitempty" yaml:"terms,omitempty"`

	// Phrases lists semantically equivalent disclosure wordings; the rule
	// fires when none of them is present.
	Phrases []string `json:"phrases,omitempty" yaml:"phrases,omitempty"`

	// ContentTypes and Audiences scope audience-appropriateness rules: the
	// rule fires when the content type and target audience both match.
	ContentTypes []ContentType `json:"contentTypes,omitempty" yaml:"contentTypes,omitempty"`
	Audiences    []string      `json:"audiences,omitempty" yaml:"audiences,omitempty"`

	// When is an optional predicate expression in the form
	// field[matcher](value) gating rule applicability.
	When string `json:"when,omitempty" yaml:"when,omitempty"`

	Jurisdiction string `json:"jurisdiction,omitempty" yaml:"jurisdiction,omitempty"`
	Profession   string `json:"profession,omitempty" yaml:"profession,omitempty"`

	// Remediation is surfaced to submitters as a recommendation when the
	// rule fires.
	Remediation string `json:"remediation,omitempty" yaml:"remediation,omitempty"`

	ValidFrom  *time.Time `json:"validFrom,omitempty" yaml:"validFrom,omitempty"`
	ValidUntil *time.Time `json:"validUntil,omitempty" yaml:"validUntil,omitempty"`
}

// ActiveAt reports whether the rule itself is in force at the given time.
func (r *ComplianceRule) ActiveAt(at time.Time) bool {
	if r.ValidFrom != nil && at.Before(*r.ValidFrom) {
		return false
	}
	if r.ValidUntil != nil && at.After(*r.ValidUntil) {
		return false
	}
	return true
}

// RuleSet is a versioned collection of rules for one jurisdiction/profession.
type RuleSet struct {
	Version      string            `json:"version" yaml:"version"`
	Jurisdiction string            `json:"jurisdiction" yaml:"jurisdiction"`
	Profession   string            `json:"profession" yaml:"profession"`
	Rules        []*ComplianceRule `json:"rules" yaml:"rules"`
}
