package comply

import (
	"github.com/justy6674/comply/model"
	"github.com/justy6674/comply/service/audit"
	"github.com/justy6674/comply/service/catalog"
	"github.com/justy6674/comply/service/consent"
	"github.com/justy6674/comply/service/dao"
	"github.com/justy6674/comply/service/directory"
	"github.com/justy6674/comply/service/event"
	"github.com/justy6674/comply/service/messaging"
	"github.com/justy6674/comply/service/notify"
	"github.com/justy6674/comply/service/workflow"
)

// Option configures the engine.
type Option func(s *Service)

// WithCatalog sets the rule catalog provider. Without one every evaluation
// fails closed.
func WithCatalog(provider catalog.Provider) Option {
	return func(s *Service) { s.catalog = provider }
}

// WithConsentStore sets the consent record store backing the ledger.
func WithConsentStore(store consent.Store) Option {
	return func(s *Service) { s.consentStore = store }
}

// WithRequestDAO sets the approval request store.
func WithRequestDAO(dao dao.Service[string, model.ApprovalRequest]) Option {
	return func(s *Service) { s.requests = dao }
}

// WithAuditService sets the audit trail.
func WithAuditService(service audit.Service) Option {
	return func(s *Service) { s.audit = service }
}

// WithDirectory sets the reviewer directory used for escalation assignment.
func WithDirectory(service directory.Service) Option {
	return func(s *Service) { s.directory = service }
}

// WithNotificationSink sets the notification sink.
func WithNotificationSink(sink notify.Sink) Option {
	return func(s *Service) { s.notifySink = sink }
}

// WithNotificationQueue publishes workflow notifications onto the supplied
// queue instead of discarding them.
func WithNotificationQueue(queue messaging.Queue[event.Event[notify.Event]]) Option {
	return func(s *Service) { s.notifySink = notify.NewQueueSink(queue) }
}

// WithPublishQueue sets the queue from which publish confirmations are
// consumed; each confirmation transitions its approved request to published.
func WithPublishQueue(queue messaging.Queue[event.Event[workflow.PublishEvent]]) Option {
	return func(s *Service) { s.publishQueue = queue }
}

// WithConfig sets the engine configuration.
func WithConfig(config *Config) Option {
	return func(s *Service) { s.config = config }
}
