// Package predicate parses and evaluates rule applicability expressions of
// the form field[matcher](value), for example:
//
//	contentType[in](socialPost|article)
//	body[contains](guarantee)
//	targetAudience[equals](general)
//
// Alternatives inside the value are separated by '|'. Matching is
// case-insensitive on both sides.
package predicate

import (
	"fmt"
	"strings"

	"github.com/justy6674/comply/model"
)

// Matcher names accepted by Parse.
const (
	MatcherContains = "contains"
	MatcherEquals   = "equals"
	MatcherIn       = "in"
	MatcherPrefix   = "prefix"
)

// Field names accepted by Parse.
const (
	FieldBody           = "body"
	FieldContentType    = "contentType"
	FieldTargetAudience = "targetAudience"
	FieldJurisdiction   = "jurisdiction"
	FieldProfession     = "profession"
	FieldAuthorID       = "authorId"
)

// Predicate is a parsed applicability expression.
type Predicate struct {
	Field   string
	Matcher string
	Values  []string
}

// Eval reports whether the predicate holds for the supplied content item.
func (p *Predicate) Eval(item *model.ContentItem) bool {
	if p == nil {
		return true
	}
	actual := strings.ToLower(fieldValue(item, p.Field))
	switch p.Matcher {
	case MatcherContains:
		for _, v := range p.Values {
			if strings.Contains(actual, strings.ToLower(v)) {
				return true
			}
		}
	case MatcherEquals, MatcherIn:
		for _, v := range p.Values {
			if actual == strings.ToLower(v) {
				return true
			}
		}
	case MatcherPrefix:
		for _, v := range p.Values {
			if strings.HasPrefix(actual, strings.ToLower(v)) {
				return true
			}
		}
	}
	return false
}

func fieldValue(item *model.ContentItem, field string) string {
	if item == nil {
		return ""
	}
	switch field {
	case FieldBody:
		return item.Body
	case FieldContentType:
		return string(item.ContentType)
	case FieldTargetAudience:
		return item.TargetAudience
	case FieldJurisdiction:
		return item.Jurisdiction
	case FieldProfession:
		return item.Profession
	case FieldAuthorID:
		return item.AuthorID
	}
	return ""
}

var validMatchers = map[string]bool{
	MatcherContains: true,
	MatcherEquals:   true,
	MatcherIn:       true,
	MatcherPrefix:   true,
}

var validFields = map[string]bool{
	FieldBody:           true,
	FieldContentType:    true,
	FieldTargetAudience: true,
	FieldJurisdiction:   true,
	FieldProfession:     true,
	FieldAuthorID:       true,
}

// Validate checks field and matcher names after a syntactic parse.
func (p *Predicate) Validate() error {
	if !validFields[p.Field] {
		return fmt.Errorf("unknown predicate field %q", p.Field)
	}
	if !validMatchers[p.Matcher] {
		return fmt.Errorf("unknown predicate matcher %q", p.Matcher)
	}
	if len(p.Values) == 0 {
		return fmt.Errorf("predicate %s[%s] has no value", p.Field, p.Matcher)
	}
	return nil
}
