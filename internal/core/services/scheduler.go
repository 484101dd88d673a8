package services

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/custodia-labs/keyward/internal/core/domain"
	"github.com/custodia-labs/keyward/internal/core/ports/driven"
	"github.com/custodia-labs/keyward/internal/core/ports/driving"
)

// Scheduler is the owning layer of the background managers. It forwards
// their notifications to an Observer and runs key rotation only while an
// account is logged in.
type Scheduler struct {
	tracker  driving.AccountExpiryTracker
	rotation driving.KeyRotationManager
	store    driven.SchedulerStore
	clock    driven.Clock

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
}

// Verify interface compliance.
var _ driving.Scheduler = (*Scheduler)(nil)

// NewScheduler creates a scheduler over tracker and rotation.
// The store may be nil.
func NewScheduler(
	tracker driving.AccountExpiryTracker,
	rotation driving.KeyRotationManager,
	store driven.SchedulerStore,
	clock driven.Clock,
) *Scheduler {
	return &Scheduler{
		tracker:  tracker,
		rotation: rotation,
		store:    store,
		clock:    clock,
	}
}

// Start attaches observer to both managers and blocks until ctx is done or
// Stop is called. The managers are detached again before Start returns;
// closing them is up to the caller.
func (s *Scheduler) Start(ctx context.Context, observer driving.Observer) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil // Already running
	}
	s.running = true
	s.stopCh = make(chan struct{})
	stopCh := s.stopCh
	s.mu.Unlock()

	s.reportOverdueTasks(ctx)

	s.rotation.SetKeyRotationEventHandler(observer.KeyRotated)
	s.tracker.SetOnAccountAlert(observer.AccountAlert)
	s.tracker.SetOnAccountDataChange(func(data domain.AccountData) {
		if data.AccountNumber == "" {
			s.rotation.Stop()
		} else {
			s.rotation.Start()
		}
		observer.AccountDataChanged(data)
	})

	defer func() {
		s.tracker.SetOnAccountDataChange(nil)
		s.tracker.SetOnAccountAlert(nil)
		s.rotation.SetKeyRotationEventHandler(nil)
		s.rotation.Stop()

		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-stopCh:
		return nil
	}
}

// Stop makes a running Start return.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return nil
	}
	s.running = false
	close(s.stopCh)
	s.stopCh = nil
	return nil
}

// reportOverdueTasks logs journalled tasks whose next run passed while no
// scheduler was running. The managers catch up on their own.
func (s *Scheduler) reportOverdueTasks(ctx context.Context) {
	if s.store == nil {
		return
	}

	tasks, err := s.store.ListTasks(ctx)
	if err != nil {
		log.Printf("scheduler: failed to list tasks: %v", err)
		return
	}

	now := s.clock.Now()
	for i := range tasks {
		task := &tasks[i]
		if !task.NextRun.IsZero() && task.NextRun.Before(now) {
			log.Printf("scheduler: %s overdue since %s", task.Name, task.NextRun.Format(time.RFC3339))
		}
	}
}
