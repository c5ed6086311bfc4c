package evaluator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/justy6674/comply/model"
)

// normalize lowercases text and collapses runs of whitespace so term and
// phrase matching is insensitive to formatting.
func normalize(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}

// checkProhibitedTerms fires when any of the rule's terms occurs in the
// normalized body.
func checkProhibitedTerms(item *model.ContentItem, rule *model.ComplianceRule) (bool, string) {
	body := normalize(item.Body)
	var matched []string
	for _, term := range rule.Terms {
		if term == "" {
			continue
		}
		if strings.Contains(body, normalize(term)) {
			matched = append(matched, term)
		}
	}
	if len(matched) == 0 {
		return false, ""
	}
	return true, fmt.Sprintf("prohibited term(s) found: %s", strings.Join(matched, ", "))
}

// checkRequiredDisclosure fires when none of the rule's equivalent phrasings
// is present. An empty body still fires: absence of content is absence of
// the disclosure.
func checkRequiredDisclosure(item *model.ContentItem, rule *model.ComplianceRule) (bool, string) {
	body := normalize(item.Body)
	for _, phrase := range rule.Phrases {
		if phrase == "" {
			continue
		}
		if strings.Contains(body, normalize(phrase)) {
			return false, ""
		}
	}
	return true, fmt.Sprintf("required disclosure missing: %s", rule.Description)
}

// checkClaimSubstantiation fires when the item makes claims absent from its
// approved-claims allowlist.
func checkClaimSubstantiation(item *model.ContentItem, _ *model.ComplianceRule) (bool, string) {
	if len(item.Claims) == 0 {
		return false, ""
	}
	approved := make(map[string]bool, len(item.ApprovedClaims))
	for _, claim := range item.ApprovedClaims {
		approved[normalize(claim)] = true
	}
	var unsubstantiated []string
	for _, claim := range item.Claims {
		if !approved[normalize(claim.Text)] {
			unsubstantiated = append(unsubstantiated, claim.Text)
		}
	}
	if len(unsubstantiated) == 0 {
		return false, ""
	}
	return true, fmt.Sprintf("unsubstantiated claim(s): %s", strings.Join(unsubstantiated, "; "))
}

// checkAudience fires when the content type and target audience both fall in
// the rule's scope.
func checkAudience(item *model.ContentItem, rule *model.ComplianceRule) (bool, string) {
	if len(rule.ContentTypes) > 0 {
		var typeMatch bool
		for _, ct := range rule.ContentTypes {
			if ct == item.ContentType {
				typeMatch = true
				break
			}
		}
		if !typeMatch {
			return false, ""
		}
	}
	if len(rule.Audiences) > 0 {
		audience := normalize(item.TargetAudience)
		var audienceMatch bool
		for _, a := range rule.Audiences {
			if normalize(a) == audience {
				audienceMatch = true
				break
			}
		}
		if !audienceMatch {
			return false, ""
		}
	}
	return true, fmt.Sprintf("content type %s is not appropriate for audience %q", item.ContentType, item.TargetAudience)
}

// checkConsent delegates to the consent ledger for items with an
// identifiable subject. Without a ledger the check fails closed.
func (s *Service) checkConsent(ctx context.Context, item *model.ContentItem, at time.Time) (bool, string) {
	if item.Subject == nil || !item.Subject.Identifiable {
		return false, ""
	}
	if s.consent == nil {
		return true, "consent cannot be verified: no consent ledger configured"
	}
	ok, reason := s.consent.IsConsentValid(ctx, item, at)
	if ok {
		return false, ""
	}
	return true, fmt.Sprintf("consent invalid: %s", reason)
}

// checkTemporal fires when the author's professional registration has lapsed
// at evaluation time.
func checkTemporal(item *model.ContentItem, at time.Time) (bool, string) {
	if item.RegistrationExpiresAt == nil {
		return false, ""
	}
	if at.After(*item.RegistrationExpiresAt) {
		return true, fmt.Sprintf("professional registration expired on %s",
			item.RegistrationExpiresAt.Format("2006-01-02"))
	}
	return false, ""
}
