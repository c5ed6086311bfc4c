package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/justy6674/comply/model"
)

// SystemActor is the actor id recorded on system-initiated transitions such
// as sweep escalations and expiries.
const SystemActor = "system"

// Config represents workflow service configuration. The zero value is not
// usable; start from DefaultConfig.
type Config struct {
	// SLA is the per-level deadline by which an assigned reviewer must act
	// before the sweep escalates the request.
	SLA map[model.ApprovalLevel]time.Duration `json:"sla" yaml:"sla"`

	// PublishDeadline bounds how long an approved request waits for a
	// publish confirmation before it expires.
	PublishDeadline time.Duration `json:"publishDeadline" yaml:"publishDeadline"`

	// SweepInterval is how often the escalation sweep runs.
	SweepInterval time.Duration `json:"sweepInterval" yaml:"sweepInterval"`
}

// DefaultConfig returns the default workflow configuration.
func DefaultConfig() Config {
	return Config{
		SLA: map[model.ApprovalLevel]time.Duration{
			model.LevelJuniorReview:    24 * time.Hour,
			model.LevelSeniorReview:    12 * time.Hour,
			model.LevelManagerApproval: 8 * time.Hour,
		},
		PublishDeadline: 72 * time.Hour,
		SweepInterval:   30 * time.Second,
	}
}

// Validate returns an error describing invalid settings or nil.
func (c *Config) Validate() error {
	for level, sla := range c.SLA {
		if sla <= 0 {
			return fmt.Errorf("sla for %s must be > 0", level)
		}
	}
	if c.PublishDeadline <= 0 {
		return fmt.Errorf("publishDeadline must be > 0")
	}
	if c.SweepInterval <= 0 {
		return fmt.Errorf("sweepInterval must be > 0")
	}
	return nil
}

// Filter narrows GetQueue results. Zero fields match everything.
type Filter struct {
	States     []model.State
	PracticeID string
	AssigneeID string
	Level      model.ApprovalLevel
	ContentID  string
}

// PublishEvent is emitted by the external publish-confirmation source once
// approved content has actually gone live.
type PublishEvent struct {
	RequestID   string    `json:"requestId"`
	ContentID   string    `json:"contentId,omitempty"`
	PublishedAt time.Time `json:"publishedAt"`
}

// Evaluator re-scores content on resubmission. The returned report must
// never be nil: catalog failures yield a fail-closed report.
type Evaluator interface {
	EvaluateContent(ctx context.Context, item *model.ContentItem) *model.ComplianceReport
}
