package workflow

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/justy6674/comply/model"
)

// Sweeper periodically escalates requests whose SLA deadline elapsed and
// expires approved requests whose publish deadline elapsed. Escalation
// resets the SLA deadline to the new level's budget, so a rerun over the
// same request never escalates twice for one breach.
type Sweeper struct {
	service    *Service
	interval   time.Duration
	shutdownCh chan struct{}
	stopOnce   sync.Once
	wg         sync.WaitGroup
}

// NewSweeper creates a sweeper over the workflow service using the
// configured sweep interval.
func NewSweeper(service *Service) *Sweeper {
	return &Sweeper{
		service:    service,
		interval:   service.config.SweepInterval,
		shutdownCh: make(chan struct{}),
	}
}

// Start launches the sweep loop. It returns immediately; the loop stops when
// ctx is cancelled or Shutdown is called.
func (s *Sweeper) Start(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-s.shutdownCh:
				return
			case <-ticker.C:
				s.SweepOnce(ctx)
			}
		}
	}()
}

// Shutdown stops the sweep loop and waits for an in-flight pass to finish.
func (s *Sweeper) Shutdown() {
	s.stopOnce.Do(func() { close(s.shutdownCh) })
	s.wg.Wait()
}

// SweepOnce runs a single pass. Failures on individual requests are logged
// and do not stop the pass; a concurrent transition simply wins over the
// sweep.
func (s *Sweeper) SweepOnce(ctx context.Context) {
	now := s.service.now()

	pending, err := s.service.GetQueue(ctx, Filter{
		States: []model.State{model.StateSubmitted, model.StateUnderReview},
	})
	if err != nil {
		log.Printf("sweep: listing pending requests: %v", err)
	}
	for _, request := range pending {
		if request.SLADeadlineAt == nil || request.SLADeadlineAt.After(now) {
			continue
		}
		if _, err := s.service.Escalate(ctx, request.ID, model.ReasonSLABreach, SystemActor); err != nil {
			if IsConflict(err) {
				continue
			}
			s.service.extendAtMaxLevel(ctx, request.ID, err)
		}
	}

	approved, err := s.service.GetQueue(ctx, Filter{States: []model.State{model.StateApproved}})
	if err != nil {
		log.Printf("sweep: listing approved requests: %v", err)
	}
	for _, request := range approved {
		if request.DeadlineAt == nil || request.DeadlineAt.After(now) {
			continue
		}
		if _, err := s.service.expire(ctx, request); err != nil && !IsConflict(err) {
			log.Printf("sweep: expiring request %s: %v", request.ID, err)
		}
	}
}

// extendAtMaxLevel handles an SLA breach at the top approval level: there is
// no level left to escalate to, so the deadline is pushed out by the top
// level's allowance and a deadline_extended entry records the push. The queue
// surfaces the request again once the new deadline elapses.
func (s *Service) extendAtMaxLevel(ctx context.Context, requestID string, cause error) {
	if !errors.Is(cause, ErrMaxLevel) {
		log.Printf("sweep: escalating request %s: %v", requestID, cause)
		return
	}
	request, err := s.load(ctx, requestID)
	if err != nil {
		log.Printf("sweep: reloading request %s: %v", requestID, err)
		return
	}
	deadline := s.now().Add(s.config.SLA[request.ApprovalLevel])
	request.SLADeadlineAt = &deadline

	entry := s.newEntry(request, SystemActor, model.AuditDeadlineExtended, model.ReasonSLABreach)
	if err := s.commit(ctx, request, entry); err != nil && !IsConflict(err) {
		log.Printf("sweep: extending deadline on request %s: %v", requestID, err)
	}
}
