package evaluator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/justy6674/comply/model"
)

var evalTime = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return evalTime }

func newItem() *model.ContentItem {
	return &model.ContentItem{
		ID:           "content-1",
		PracticeID:   "practice-1",
		AuthorID:     "author-1",
		Body:         "Meet our new whitening service. Book a consultation today.",
		ContentType:  model.ContentTypeSocialPost,
		Jurisdiction: "AU",
		Profession:   "dental",
	}
}

func TestEvaluate(t *testing.T) {
	prohibited := &model.ComplianceRule{
		ID:            "r-term",
		Category:      model.CategoryProhibitedTerm,
		Severity:      model.SeverityError,
		PenaltyWeight: 25,
		Terms:         []string{"painless", "best"},
		Remediation:   "remove superlative wording",
	}
	disclosure := &model.ComplianceRule{
		ID:            "r-disclosure",
		Category:      model.CategoryRequiredDisclosure,
		Description:   "risk disclosure required",
		Severity:      model.SeverityWarning,
		PenaltyWeight: 10,
		Phrases:       []string{"risks apply", "risks may apply"},
		Remediation:   "add a risk disclosure",
	}

	testCases := []struct {
		description        string
		item               *model.ContentItem
		rules              []*model.ComplianceRule
		expectScore        int
		expectRisk         model.RiskLevel
		expectViolations   int
		expectWarnings     int
		expectCompliant    bool
		expectRecommend    int
	}{
		{
			description:     "no rules fire",
			item:            newItem(),
			rules:           []*model.ComplianceRule{prohibited},
			expectScore:     100,
			expectRisk:      model.RiskLow,
			expectCompliant: true,
		},
		{
			description: "violation plus warning accumulate penalties",
			item: func() *model.ContentItem {
				item := newItem()
				item.Body = "Painless whitening, guaranteed."
				return item
			}(),
			rules:            []*model.ComplianceRule{prohibited, disclosure},
			expectScore:      65,
			expectRisk:       model.RiskMedium,
			expectViolations: 1,
			expectWarnings:   1,
			expectRecommend:  2,
		},
		{
			description: "empty body still misses required disclosure",
			item: func() *model.ContentItem {
				item := newItem()
				item.Body = ""
				return item
			}(),
			rules:           []*model.ComplianceRule{disclosure},
			expectScore:     90,
			expectRisk:      model.RiskLow,
			expectWarnings:  1,
			expectCompliant: true,
			expectRecommend: 1,
		},
		{
			description: "critical severity dominates risk regardless of count",
			item: func() *model.ContentItem {
				item := newItem()
				item.Body = "miracle cure for everyone"
				return item
			}(),
			rules: []*model.ComplianceRule{{
				ID:            "r-critical",
				Category:      model.CategoryProhibitedTerm,
				Severity:      model.SeverityCritical,
				PenaltyWeight: 40,
				Terms:         []string{"miracle cure"},
			}},
			expectScore:      60,
			expectRisk:       model.RiskCritical,
			expectViolations: 1,
		},
		{
			description: "score clamps at zero after all penalties",
			item: func() *model.ContentItem {
				item := newItem()
				item.Body = "painless miracle cure, the best"
				return item
			}(),
			rules: []*model.ComplianceRule{
				prohibited,
				{ID: "r2", Category: model.CategoryProhibitedTerm, Severity: model.SeverityError, PenaltyWeight: 50, Terms: []string{"miracle cure"}},
				{ID: "r3", Category: model.CategoryProhibitedTerm, Severity: model.SeverityError, PenaltyWeight: 60, Terms: []string{"best"}},
			},
			expectScore:      0,
			expectRisk:       model.RiskCritical,
			expectViolations: 3,
		},
		{
			description: "four warnings lift risk to medium",
			item: func() *model.ContentItem {
				item := newItem()
				item.Body = "w1 w2 w3 w4"
				return item
			}(),
			rules: []*model.ComplianceRule{
				{ID: "w1", Category: model.CategoryProhibitedTerm, Severity: model.SeverityWarning, PenaltyWeight: 5, Terms: []string{"w1"}},
				{ID: "w2", Category: model.CategoryProhibitedTerm, Severity: model.SeverityWarning, PenaltyWeight: 5, Terms: []string{"w2"}},
				{ID: "w3", Category: model.CategoryProhibitedTerm, Severity: model.SeverityInfo, PenaltyWeight: 5, Terms: []string{"w3"}},
				{ID: "w4", Category: model.CategoryProhibitedTerm, Severity: model.SeverityInfo, PenaltyWeight: 5, Terms: []string{"w4"}},
			},
			expectScore:     80,
			expectRisk:      model.RiskMedium,
			expectWarnings:  4,
			expectCompliant: true,
		},
		{
			description: "unrecognized category degrades to warning",
			item:        newItem(),
			rules: []*model.ComplianceRule{{
				ID:       "r-future",
				Category: "sentimentAnalysis",
				Severity: model.SeverityError,
			}},
			expectScore:     100,
			expectRisk:      model.RiskLow,
			expectWarnings:  1,
			expectCompliant: true,
		},
		{
			description: "unsubstantiated claim fires, approved claim does not",
			item: func() *model.ContentItem {
				item := newItem()
				item.Claims = []model.Claim{
					{Text: "straightens teeth in 6 months", Kind: "outcome"},
					{Text: "registered provider", Kind: "status"},
				}
				item.ApprovedClaims = []string{"Registered provider"}
				return item
			}(),
			rules: []*model.ComplianceRule{{
				ID:            "r-claims",
				Category:      model.CategoryClaimSubstantiation,
				Severity:      model.SeverityError,
				PenaltyWeight: 20,
			}},
			expectScore:      80,
			expectRisk:       model.RiskMedium,
			expectViolations: 1,
		},
		{
			description: "audience rule scoped by content type and audience",
			item: func() *model.ContentItem {
				item := newItem()
				item.ContentType = model.ContentTypeClinicalPhoto
				item.TargetAudience = "general public"
				return item
			}(),
			rules: []*model.ComplianceRule{{
				ID:            "r-audience",
				Category:      model.CategoryAudience,
				Severity:      model.SeverityError,
				PenaltyWeight: 30,
				ContentTypes:  []model.ContentType{model.ContentTypeClinicalPhoto},
				Audiences:     []string{"General Public"},
			}},
			expectScore:      70,
			expectRisk:       model.RiskMedium,
			expectViolations: 1,
		},
		{
			description: "lapsed registration fires temporal rule",
			item: func() *model.ContentItem {
				item := newItem()
				expired := evalTime.AddDate(0, -1, 0)
				item.RegistrationExpiresAt = &expired
				return item
			}(),
			rules: []*model.ComplianceRule{{
				ID:            "r-temporal",
				Category:      model.CategoryTemporal,
				Severity:      model.SeverityCritical,
				PenaltyWeight: 50,
			}},
			expectScore:      50,
			expectRisk:       model.RiskCritical,
			expectViolations: 1,
		},
		{
			description: "rule outside item jurisdiction does not apply",
			item:        newItem(),
			rules: []*model.ComplianceRule{{
				ID:            "r-uk",
				Category:      model.CategoryProhibitedTerm,
				Severity:      model.SeverityError,
				PenaltyWeight: 25,
				Terms:         []string{"whitening"},
				Jurisdiction:  "UK",
			}},
			expectScore:     100,
			expectRisk:      model.RiskLow,
			expectCompliant: true,
		},
		{
			description: "when predicate gates rule applicability",
			item:        newItem(),
			rules: []*model.ComplianceRule{
				{
					ID:            "r-gated-off",
					Category:      model.CategoryProhibitedTerm,
					Severity:      model.SeverityError,
					PenaltyWeight: 25,
					Terms:         []string{"whitening"},
					When:          "contentType[equals](article)",
				},
				{
					ID:            "r-gated-on",
					Category:      model.CategoryProhibitedTerm,
					Severity:      model.SeverityError,
					PenaltyWeight: 15,
					Terms:         []string{"whitening"},
					When:          "contentType[in](socialPost|article)",
				},
			},
			expectScore:      85,
			expectRisk:       model.RiskMedium,
			expectViolations: 1,
		},
		{
			description: "rule not yet in force is skipped",
			item:        newItem(),
			rules: func() []*model.ComplianceRule {
				from := evalTime.AddDate(0, 1, 0)
				return []*model.ComplianceRule{{
					ID:            "r-future-rule",
					Category:      model.CategoryProhibitedTerm,
					Severity:      model.SeverityError,
					PenaltyWeight: 25,
					Terms:         []string{"whitening"},
					ValidFrom:     &from,
				}}
			}(),
			expectScore:     100,
			expectRisk:      model.RiskLow,
			expectCompliant: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			service := New(WithClock(fixedClock))
			ruleSet := &model.RuleSet{Version: "v1", Jurisdiction: "AU", Profession: "dental", Rules: tc.rules}

			report, err := service.Evaluate(context.Background(), tc.item, ruleSet)
			require.NoError(t, err)
			require.NotNil(t, report)

			assert.Equal(t, tc.expectScore, report.Score)
			assert.Equal(t, tc.expectRisk, report.RiskLevel)
			assert.Len(t, report.Violations, tc.expectViolations)
			assert.Len(t, report.Warnings, tc.expectWarnings)
			assert.Len(t, report.Recommendations, tc.expectRecommend)
			assert.Equal(t, tc.expectCompliant, report.IsCompliant())
			assert.Equal(t, tc.item.ID, report.ContentID)
			assert.Equal(t, "v1", report.RuleSetVersion)
			assert.False(t, report.EvaluationIncomplete)
		})
	}
}

func TestEvaluateIsDeterministic(t *testing.T) {
	service := New(WithClock(fixedClock))
	item := newItem()
	item.Body = "The best painless whitening"
	ruleSet := &model.RuleSet{
		Version: "v1",
		Rules: []*model.ComplianceRule{
			{ID: "a", Category: model.CategoryProhibitedTerm, Severity: model.SeverityError, PenaltyWeight: 25, Terms: []string{"best"}},
			{ID: "b", Category: model.CategoryProhibitedTerm, Severity: model.SeverityError, PenaltyWeight: 25, Terms: []string{"painless"}},
		},
	}

	first, err := service.Evaluate(context.Background(), item, ruleSet)
	require.NoError(t, err)
	second, err := service.Evaluate(context.Background(), item, ruleSet)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

type stubConsent struct {
	valid  bool
	reason string
}

func (s *stubConsent) IsConsentValid(_ context.Context, _ *model.ContentItem, _ time.Time) (bool, string) {
	return s.valid, s.reason
}

func TestEvaluateConsent(t *testing.T) {
	consentRule := &model.ComplianceRule{
		ID:            "r-consent",
		Category:      model.CategoryConsent,
		Severity:      model.SeverityCritical,
		PenaltyWeight: 50,
	}
	item := newItem()
	item.Subject = &model.SubjectMetadata{SubjectID: "subject-1", Identifiable: true}
	ruleSet := &model.RuleSet{Version: "v1", Rules: []*model.ComplianceRule{consentRule}}

	t.Run("valid consent passes", func(t *testing.T) {
		service := New(WithClock(fixedClock), WithConsentChecker(&stubConsent{valid: true}))
		report, err := service.Evaluate(context.Background(), item, ruleSet)
		require.NoError(t, err)
		assert.Empty(t, report.Violations)
		assert.True(t, report.IsCompliant())
	})

	t.Run("withdrawn consent is a critical violation", func(t *testing.T) {
		service := New(WithClock(fixedClock), WithConsentChecker(&stubConsent{valid: false, reason: "consent withdrawn"}))
		report, err := service.Evaluate(context.Background(), item, ruleSet)
		require.NoError(t, err)
		require.Len(t, report.Violations, 1)
		assert.Contains(t, report.Violations[0].Message, "consent withdrawn")
		assert.Equal(t, model.RiskCritical, report.RiskLevel)
	})

	t.Run("no ledger fails closed for identifiable subject", func(t *testing.T) {
		service := New(WithClock(fixedClock))
		report, err := service.Evaluate(context.Background(), item, ruleSet)
		require.NoError(t, err)
		require.Len(t, report.Violations, 1)
		assert.Contains(t, report.Violations[0].Message, "no consent ledger")
	})

	t.Run("non identifiable subject skips the check", func(t *testing.T) {
		service := New(WithClock(fixedClock))
		anonymous := newItem()
		anonymous.Subject = &model.SubjectMetadata{SubjectID: "subject-1"}
		report, err := service.Evaluate(context.Background(), anonymous, ruleSet)
		require.NoError(t, err)
		assert.Empty(t, report.Violations)
	})
}

func TestFailClosed(t *testing.T) {
	service := New(WithClock(fixedClock))
	report := service.FailClosed(newItem(), errors.New("catalog unreachable"))

	assert.Equal(t, 0, report.Score)
	assert.Equal(t, model.RiskCritical, report.RiskLevel)
	assert.True(t, report.EvaluationIncomplete)
	assert.False(t, report.IsCompliant())
	assert.Equal(t, "content-1", report.ContentID)
	require.Len(t, report.Recommendations, 1)
	assert.Contains(t, report.Recommendations[0], "catalog unreachable")
}

func TestEvaluateInvalidInput(t *testing.T) {
	service := New(WithClock(fixedClock))
	_, err := service.Evaluate(context.Background(), nil, &model.RuleSet{})
	assert.Error(t, err)
	_, err = service.Evaluate(context.Background(), newItem(), nil)
	assert.Error(t, err)
}
