package comply

import (
	"context"
	"fmt"

	"github.com/justy6674/comply/model"
	"github.com/justy6674/comply/service/audit"
	amemory "github.com/justy6674/comply/service/audit/memory"
	"github.com/justy6674/comply/service/catalog"
	"github.com/justy6674/comply/service/consent"
	"github.com/justy6674/comply/service/dao"
	rmemory "github.com/justy6674/comply/service/dao/request/memory"
	"github.com/justy6674/comply/service/directory"
	"github.com/justy6674/comply/service/evaluator"
	"github.com/justy6674/comply/service/event"
	"github.com/justy6674/comply/service/messaging"
	"github.com/justy6674/comply/service/notify"
	"github.com/justy6674/comply/service/workflow"
	"github.com/justy6674/comply/tracing"
)

// Service is the compliance engine facade: evaluation, approval workflow,
// consent ledger and audit trail behind one setup.
type Service struct {
	config       *Config
	catalog      catalog.Provider
	consentStore consent.Store
	ledger       *consent.Ledger
	evaluator    *evaluator.Service
	requests     dao.Service[string, model.ApprovalRequest]
	audit        audit.Service
	directory    directory.Service
	notifySink   notify.Sink

	workflow *workflow.Service
	sweeper  *workflow.Sweeper

	publishQueue    messaging.Queue[event.Event[workflow.PublishEvent]]
	publishListener *event.Listener[workflow.PublishEvent]
}

// New creates the engine with in-memory defaults for any collaborator not
// supplied via options.
func New(options ...Option) *Service {
	ret := &Service{}
	ret.init(options)
	return ret
}

func (s *Service) init(options []Option) {
	for _, option := range options {
		option(s)
	}
	s.ensureBaseSetup()

	if s.config.Tracing.Enabled {
		_ = tracing.Init("comply", "", s.config.Tracing.OutputFile)
	}

	var evaluatorOptions []evaluator.Option
	if s.ledger != nil {
		evaluatorOptions = append(evaluatorOptions, evaluator.WithConsentChecker(s.ledger))
	}
	s.evaluator = evaluator.New(evaluatorOptions...)

	s.workflow = workflow.New(s.requests, s.audit,
		workflow.WithConfig(s.config.Workflow),
		workflow.WithEvaluator(s),
		workflow.WithConsentLedger(s.ledger),
		workflow.WithDirectory(s.directory),
		workflow.WithNotifier(s.notifySink))
	s.sweeper = workflow.NewSweeper(s.workflow)

	if s.publishQueue != nil {
		publisher := event.NewPublisher[workflow.PublishEvent](s.publishQueue)
		s.publishListener = event.NewListener(publisher, func(e *event.Event[workflow.PublishEvent]) {
			confirmation := e.Data
			_, _ = s.workflow.ConfirmPublish(context.Background(), confirmation.RequestID, confirmation.PublishedAt)
		})
	}
}

func (s *Service) ensureBaseSetup() {
	if s.config == nil {
		s.config = DefaultConfig()
	}
	if s.requests == nil {
		s.requests = rmemory.New()
	}
	if s.audit == nil {
		s.audit = amemory.New()
	}
	if s.notifySink == nil {
		s.notifySink = notify.Nop{}
	}
	if s.consentStore != nil {
		s.ledger = consent.New(s.consentStore)
	}
}

// Evaluate scores a content item against the active rule catalog for its
// jurisdiction and profession. When the catalog is missing or unavailable
// the report fails closed: critical risk, score zero, incomplete.
func (s *Service) Evaluate(ctx context.Context, item *model.ContentItem) (*model.ComplianceReport, error) {
	if item == nil {
		return nil, fmt.Errorf("content item is nil")
	}
	if s.catalog == nil {
		return s.evaluator.FailClosed(item, catalog.ErrUnavailable), nil
	}
	ruleSet, err := s.catalog.Rules(ctx, item.Jurisdiction, item.Profession)
	if err != nil {
		return s.evaluator.FailClosed(item, err), nil
	}
	return s.evaluator.Evaluate(ctx, item, ruleSet)
}

// EvaluateContent implements the workflow evaluator contract: it never
// returns nil, downgrading any evaluation failure to a fail-closed report.
func (s *Service) EvaluateContent(ctx context.Context, item *model.ContentItem) *model.ComplianceReport {
	report, err := s.Evaluate(ctx, item)
	if err != nil || report == nil {
		return s.evaluator.FailClosed(item, err)
	}
	return report
}

// Submit evaluates the content item and enters it into the approval
// workflow in one call.
func (s *Service) Submit(ctx context.Context, item *model.ContentItem, actorID string) (*model.ApprovalRequest, error) {
	report := s.EvaluateContent(ctx, item)
	return s.workflow.Submit(ctx, item, report, actorID)
}

// Workflow exposes the approval workflow service.
func (s *Service) Workflow() *workflow.Service {
	return s.workflow
}

// Audit exposes the audit trail.
func (s *Service) Audit() audit.Service {
	return s.audit
}

// Consent exposes the consent ledger; nil when no consent store was
// configured.
func (s *Service) Consent() *consent.Ledger {
	return s.ledger
}

// Start launches the escalation sweep and, when configured, the publish
// confirmation listener.
func (s *Service) Start(ctx context.Context) {
	s.sweeper.Start(ctx)
	if s.publishListener != nil {
		s.publishListener.Start()
	}
}

// Shutdown stops background processing.
func (s *Service) Shutdown() {
	s.sweeper.Shutdown()
	if s.publishListener != nil {
		s.publishListener.Stop()
	}
}
