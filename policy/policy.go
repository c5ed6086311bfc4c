// Package policy provides a simple, optional per-submission gate that can be
// attached to a workflow call via context. It is deliberately decoupled from
// the rest of the engine so that using it is entirely opt-in – callers that
// do not embed the Policy in their context keep the original "auto"
// behaviour.

package policy

import (
	"context"
	"strings"
)

// Submission modes recognised by the workflow.
const (
	ModeAsk  = "ask"  // ask before accepting every submission
	ModeAuto = "auto" // accept automatically (default)
	ModeDeny = "deny" // block submissions
)

// AskFunc is invoked when Mode==ask. Returning true accepts the submission,
// false rejects it. Implementations MAY mutate the policy (for example,
// switching to ModeAuto after the first approval).
type AskFunc func(
	ctx context.Context,
	contentType string, // content type of the submission
	practiceID string,
	p *Policy,
) bool

// Policy represents the submission gate settings for the current call chain.
//
//   - Mode controls the high-level behaviour (ask / auto / deny).
//   - AllowList, BlockList filter content types regardless of Mode.
//   - Ask is only used when Mode==ask.
//
// A nil *Policy means "accept every submission" and is therefore the
// zero-cost default.
type Policy struct {
	Mode      string   // ask / auto / deny      (default = auto)
	AllowList []string // allowed content types (empty => all)
	BlockList []string // blocked content types
	Ask       AskFunc  // used only when Mode==ask
}

// Config represents the declarative, serialisable part of a Policy.
type Config struct {
	Mode      string   `json:"mode,omitempty" yaml:"mode,omitempty"`
	AllowList []string `json:"allow,omitempty" yaml:"allow,omitempty"`
	BlockList []string `json:"block,omitempty" yaml:"block,omitempty"`
}

// ToConfig converts a runtime Policy into a persistable Config.
func ToConfig(p *Policy) *Config {
	if p == nil {
		return nil
	}
	return &Config{
		Mode:      p.Mode,
		AllowList: append([]string(nil), p.AllowList...),
		BlockList: append([]string(nil), p.BlockList...),
	}
}

// FromConfig converts a stored Config back to a runtime Policy (without
// AskFunc).
func FromConfig(c *Config) *Policy {
	if c == nil {
		return nil
	}
	return &Policy{
		Mode:      c.Mode,
		AllowList: append([]string(nil), c.AllowList...),
		BlockList: append([]string(nil), c.BlockList...),
	}
}

// IsAllowed evaluates AllowList / BlockList. Both lists match by exact
// string comparison (case-insensitive) of the content type.
func (p *Policy) IsAllowed(contentType string) bool {
	if p == nil {
		return true
	}

	normalized := strings.ToLower(contentType)

	// BlockList has priority.
	for _, b := range p.BlockList {
		if normalized == strings.ToLower(b) {
			return false
		}
	}

	// AllowList – if empty everything is allowed, otherwise only the listed
	// entries.
	if len(p.AllowList) == 0 {
		return true
	}

	for _, a := range p.AllowList {
		if normalized == strings.ToLower(a) {
			return true
		}
	}

	return false
}

// Accepts applies the full policy to a submission: list filtering first,
// then the mode.
func (p *Policy) Accepts(ctx context.Context, contentType, practiceID string) bool {
	if p == nil {
		return true
	}
	if !p.IsAllowed(contentType) {
		return false
	}
	switch p.Mode {
	case ModeDeny:
		return false
	case ModeAsk:
		if p.Ask == nil {
			return false
		}
		return p.Ask(ctx, contentType, practiceID, p)
	}
	return true
}

// ---------------------------------------------------------------------------
// Context helpers
// ---------------------------------------------------------------------------

type ctxKeyT struct{}

var ctxKey ctxKeyT

// WithPolicy embeds policy in ctx.
func WithPolicy(ctx context.Context, p *Policy) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxKey, p)
}

// FromContext extracts (*Policy, ok).
func FromContext(ctx context.Context) *Policy {
	if ctx == nil {
		return nil
	}
	if v, ok := ctx.Value(ctxKey).(*Policy); ok {
		return v
	}
	return nil
}
