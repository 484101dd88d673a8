package services

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/custodia-labs/keyward/internal/core/domain"
	"github.com/custodia-labs/keyward/internal/core/ports/driven"
	"github.com/custodia-labs/keyward/internal/core/ports/driving"
	"github.com/custodia-labs/keyward/internal/logger"
)

// Ensure KeyRotationManager implements the interface.
var _ driving.KeyRotationManager = (*KeyRotationManager)(nil)

// taskRotation is the manager's only timer: the next cycle evaluation.
const taskRotation = "rotation"

// rotationCycle is one in-flight cycle evaluation.
type rotationCycle struct {
	startedAt time.Time
	cancel    context.CancelFunc
}

// KeyRotationManager rotates the private key of a stored tunnel
// configuration once it is older than the rotation interval.
type KeyRotationManager struct {
	reference string
	interval  time.Duration
	retry     domain.RetryPolicy
	store     driven.TunnelConfigStore
	authority driven.AccountAuthority
	keygen    driven.KeyGenerator
	clock     driven.Clock
	journal   *TaskJournal

	queue *SerialQueue
	tasks *TaskRegistry

	mu      sync.Mutex
	running bool
	closed  bool
	cycle   *rotationCycle
	attempt uint
	last    *domain.KeyRotationEvent
	rotated *domain.KeyRotationEvent
	handler callbackSlot[domain.KeyRotationEvent]
}

// NewKeyRotationManager creates a stopped manager for the configuration
// stored under reference. The journal may be nil.
func NewKeyRotationManager(
	reference string,
	settings domain.RotationSettings,
	store driven.TunnelConfigStore,
	authority driven.AccountAuthority,
	keygen driven.KeyGenerator,
	clock driven.Clock,
	journal *TaskJournal,
) *KeyRotationManager {
	queue := NewSerialQueue("keyrotation")
	return &KeyRotationManager{
		reference: reference,
		interval:  settings.Interval,
		retry:     settings.RetryPolicy(),
		store:     store,
		authority: authority,
		keygen:    keygen,
		clock:     clock,
		journal:   journal,
		queue:     queue,
		tasks:     NewTaskRegistry(clock, queue),
	}
}

// Start enables automatic rotation and evaluates a cycle immediately.
func (m *KeyRotationManager) Start() {
	m.queue.Submit(func() {
		m.mu.Lock()
		if m.closed || m.running {
			m.mu.Unlock()
			return
		}
		m.running = true
		m.mu.Unlock()

		log.Printf("keyrotation: start automatic key rotation")
		m.performKeyRotation()
	})
}

// Stop disables automatic rotation. The in-flight cycle, if any, is
// cancelled and its result discarded.
func (m *KeyRotationManager) Stop() {
	m.queue.Submit(func() {
		m.mu.Lock()
		if !m.running {
			m.mu.Unlock()
			return
		}
		m.running = false
		if m.cycle != nil {
			m.cycle.cancel()
			m.cycle = nil
		}
		m.mu.Unlock()

		log.Printf("keyrotation: stop automatic key rotation")
		m.tasks.CancelAll()
	})
}

// SetKeyRotationEventHandler assigns the event callback and replays the
// last rotation to it. The handler only sees events that installed a new key.
func (m *KeyRotationManager) SetKeyRotationEventHandler(handler func(domain.KeyRotationEvent)) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	version := m.handler.set(handler)
	m.mu.Unlock()

	if handler == nil {
		return
	}

	m.queue.Submit(func() {
		m.mu.Lock()
		notify := m.handler.current(version)
		rotated := m.rotated
		m.mu.Unlock()

		if rotated != nil {
			deliver(notify, *rotated)
		}
	})
}

// LastEvent returns the outcome of the most recent successful cycle,
// whether or not it rotated the key.
func (m *KeyRotationManager) LastEvent() (domain.KeyRotationEvent, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.last == nil {
		return domain.KeyRotationEvent{}, false
	}
	return *m.last, true
}

// IsRunning reports whether automatic rotation is enabled.
func (m *KeyRotationManager) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// Close stops the manager and waits for its queue to drain.
// It must not be called from the event handler.
func (m *KeyRotationManager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	m.running = false
	m.handler.set(nil)
	if m.cycle != nil {
		m.cycle.cancel()
		m.cycle = nil
	}
	m.mu.Unlock()

	m.tasks.CancelAll()
	m.queue.Close()
}

// Sync blocks until all work submitted to the manager so far has run.
func (m *KeyRotationManager) Sync() {
	m.queue.Sync()
}

// performKeyRotation starts a cycle evaluation unless one is in flight.
// Runs on the queue.
func (m *KeyRotationManager) performKeyRotation() {
	m.mu.Lock()
	if !m.running || m.cycle != nil {
		m.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	cycle := &rotationCycle{
		startedAt: m.clock.Now(),
		cancel:    cancel,
	}
	m.cycle = cycle
	m.mu.Unlock()

	m.tasks.Cancel(taskRotation)

	go func() {
		event, err := m.tryRotatingPrivateKey(ctx)
		m.queue.Submit(func() {
			m.handleRotationResult(cycle, event, err)
		})
	}()
}

// handleRotationResult emits the event and schedules the next evaluation,
// unless the cycle was superseded by Stop.
func (m *KeyRotationManager) handleRotationResult(cycle *rotationCycle, event domain.KeyRotationEvent, err error) {
	defer cycle.cancel()

	m.mu.Lock()
	if m.cycle != cycle {
		m.mu.Unlock()
		logger.Debug("keyrotation: discarding result of a cancelled cycle")
		return
	}
	m.cycle = nil
	now := m.clock.Now()

	outcome := cycleOutcome{
		startedAt: cycle.startedAt,
		endedAt:   now,
		err:       err,
	}

	if err != nil {
		m.attempt++
		attempt := m.attempt
		m.mu.Unlock()

		delay := m.retry.NextDelay(attempt)
		log.Printf("keyrotation: failed to rotate the private key: %v. Retry in %s.", err, delay)

		outcome.detail = "retry"
		outcome.attempt = attempt
		outcome.nextRun = now.Add(delay)
		m.scheduleNext(delay)
		m.journal.record(domain.TaskIDKeyRotation, outcome)
		return
	}

	m.attempt = 0
	m.last = &event
	var notify func(domain.KeyRotationEvent)
	if event.IsNew {
		m.rotated = &event
		notify = m.handler.fn
	}
	m.mu.Unlock()

	if event.IsNew {
		log.Printf("keyrotation: finished private key rotation")
		outcome.detail = "rotated"
		deliver(notify, event)
	} else {
		logger.Debug("keyrotation: key created %s is not due", event.CreationDate.Format(time.RFC3339))
		outcome.detail = "not due"
	}

	next := domain.NextRotation(event.CreationDate, m.interval)
	log.Printf("keyrotation: next private key rotation on %s", next.Format(time.RFC3339))

	outcome.nextRun = next
	m.scheduleNext(next.Sub(now))
	m.journal.record(domain.TaskIDKeyRotation, outcome)
}

// scheduleNext replaces any pending evaluation with one after delay.
func (m *KeyRotationManager) scheduleNext(delay time.Duration) {
	m.tasks.Schedule(taskRotation, delay, func(context.Context) {
		m.performKeyRotation()
	})
}

// tryRotatingPrivateKey loads the configuration and rotates the key if it is
// due. Runs off the queue.
func (m *KeyRotationManager) tryRotatingPrivateKey(ctx context.Context) (domain.KeyRotationEvent, error) {
	entry, err := m.store.Load(ctx, m.reference)
	if err != nil {
		return domain.KeyRotationEvent{}, &domain.RotationError{Op: domain.RotationOpReadTunnelConfiguration, Err: err}
	}

	current := entry.TunnelConfiguration.Interface.PrivateKey
	if !domain.IsKeyDue(current.CreationDate, m.clock.Now(), m.interval) {
		return domain.KeyRotationEvent{
			IsNew:        false,
			CreationDate: current.CreationDate,
			PublicKey:    current.Public,
		}, nil
	}

	newKey, err := m.replaceKey(ctx, entry.AccountToken, current.Public)
	if err != nil {
		return domain.KeyRotationEvent{}, err
	}

	return domain.KeyRotationEvent{
		IsNew:        true,
		CreationDate: newKey.CreationDate,
		PublicKey:    newKey.Public,
	}, nil
}

// replaceKey registers a new key with the authority and stores it.
func (m *KeyRotationManager) replaceKey(ctx context.Context, accountToken string, oldKey domain.Key) (domain.PrivateKey, error) {
	newKey, err := m.keygen.Generate(m.clock.Now())
	if err != nil {
		return domain.PrivateKey{}, &domain.RotationError{Op: domain.RotationOpGenerateKey, Err: err}
	}

	addresses, err := m.authority.ReplaceKey(ctx, accountToken, oldKey, newKey.Public)
	if err != nil {
		return domain.PrivateKey{}, &domain.RotationError{Op: domain.RotationOpRPC, Err: err}
	}

	// The authority already holds the new key, so the local copy must be
	// written even if the cycle is cancelled now.
	err = m.store.Update(context.WithoutCancel(ctx), m.reference, func(cfg *domain.TunnelConfiguration) error {
		cfg.Interface.PrivateKey = newKey
		cfg.Interface.Addresses = addresses.Prefixes()
		return nil
	})
	if err != nil {
		return domain.PrivateKey{}, &domain.RotationError{Op: domain.RotationOpUpdateTunnelConfiguration, Err: err}
	}

	return newKey, nil
}
