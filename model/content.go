package model

import "time"

// ContentType classifies a piece of user-authored content.
type ContentType string

const (
	ContentTypeSocialPost      ContentType = "socialPost"
	ContentTypeArticle         ContentType = "article"
	ContentTypeDevicePromotion ContentType = "devicePromotion"
	ContentTypeClinicalPhoto   ContentType = "clinicalPhoto"
)

// Claim is a factual assertion made by content that may require substantiation
// against the practice's approved-claims allowlist.
type Claim struct {
	Text string `json:"text" yaml:"text"`
	Kind string `json:"kind,omitempty" yaml:"kind,omitempty"` // therapeutic, outcome, pricing …
}

// SubjectMetadata describes the person depicted or referenced by the content.
type SubjectMetadata struct {
	SubjectID    string `json:"subjectId,omitempty"`
	Identifiable bool   `json:"identifiable,omitempty"`
}

// ContentItem is a single piece of content submitted for compliance review.
type ContentItem struct {
	ID             string           `json:"id"`
	PracticeID     string           `json:"practiceId,omitempty"`
	AuthorID       string           `json:"authorId,omitempty"`
	Body           string           `json:"body"`
	ContentType    ContentType      `json:"contentType"`
	TargetAudience string           `json:"targetAudience,omitempty"`
	Jurisdiction   string           `json:"jurisdiction,omitempty"`
	Profession     string           `json:"profession,omitempty"`
	Subject        *SubjectMetadata `json:"subject,omitempty"`
	Claims         []Claim          `json:"claims,omitempty"`

	// ApprovedClaims is the allowlist of substantiated claims attached to the
	// authoring practice or entity.
	ApprovedClaims []string `json:"approvedClaims,omitempty"`

	// RegistrationExpiresAt is the author's professional registration expiry,
	// checked by temporal-validity rules.
	RegistrationExpiresAt *time.Time `json:"registrationExpiresAt,omitempty"`

	CreatedAt time.Time `json:"createdAt,omitempty"`
}

// Clone returns a deep copy so callers can mutate the result without
// affecting the original.
func (c *ContentItem) Clone() *ContentItem {
	if c == nil {
		return nil
	}
	clone := *c
	if c.Subject != nil {
		subject := *c.Subject
		clone.Subject = &subject
	}
	if len(c.Claims) > 0 {
		clone.Claims = append([]Claim(nil), c.Claims...)
	}
	if len(c.ApprovedClaims) > 0 {
		clone.ApprovedClaims = append([]string(nil), c.ApprovedClaims...)
	}
	if c.RegistrationExpiresAt != nil {
		t := *c.RegistrationExpiresAt
		clone.RegistrationExpiresAt = &t
	}
	return &clone
}
