package services

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/custodia-labs/keyward/internal/core/domain"
	"github.com/custodia-labs/keyward/internal/core/ports/driven"
	"github.com/custodia-labs/keyward/internal/core/ports/driving"
	"github.com/custodia-labs/keyward/internal/logger"
)

// Ensure AccountExpiryTracker implements the interface.
var _ driving.AccountExpiryTracker = (*AccountExpiryTracker)(nil)

// Task names used by the tracker's registry.
const (
	// taskAccountCheck is the single "next check": either a retry after a
	// transient failure or the validity check at the expected expiry.
	taskAccountCheck = "account-check"

	// taskGraceCheck concludes expiry if no successful fetch arrives in time.
	taskGraceCheck = "grace-check"
)

// fetchCycle is one in-flight account data request.
type fetchCycle struct {
	account   string
	attempt   uint
	startedAt time.Time
	cancel    context.CancelFunc
}

// AccountExpiryTracker polls the account data of the current account and
// reports the (account number, expiry) pair to a single subscriber.
type AccountExpiryTracker struct {
	authority  driven.AccountAuthority
	feed       driven.IdentityFeed
	clock      driven.Clock
	retry      domain.RetryPolicy
	graceDelay time.Duration
	journal    *TaskJournal

	queue        *SerialQueue
	tasks        *TaskRegistry
	subscription driven.SubscriptionID

	mu       sync.Mutex
	account  string
	expiry   time.Time
	attempt  uint
	fetch    *fetchCycle
	alerted  domain.AlertReason
	closed   bool
	onChange callbackSlot[domain.AccountData]
	onAlert  callbackSlot[domain.AccountAlert]
}

// NewAccountExpiryTracker creates a tracker and subscribes it to feed.
// The journal may be nil.
func NewAccountExpiryTracker(
	settings domain.ExpirySettings,
	authority driven.AccountAuthority,
	feed driven.IdentityFeed,
	clock driven.Clock,
	journal *TaskJournal,
) *AccountExpiryTracker {
	queue := NewSerialQueue("expiry")
	t := &AccountExpiryTracker{
		authority:  authority,
		feed:       feed,
		clock:      clock,
		retry:      settings.RetryPolicy(),
		graceDelay: settings.GraceDelay,
		journal:    journal,
		queue:      queue,
		tasks:      NewTaskRegistry(clock, queue),
	}

	t.subscription = feed.Subscribe(func(accountNumber string) {
		t.queue.Submit(func() {
			t.handleNewAccount(accountNumber)
		})
	})

	return t
}

// FetchAccountExpiry starts a fetch cycle for the current account.
// A fetch already in flight is not duplicated.
func (t *AccountExpiryTracker) FetchAccountExpiry() {
	t.queue.Submit(func() {
		t.mu.Lock()
		if t.fetch == nil {
			t.attempt = 0
		}
		t.mu.Unlock()

		t.startFetch()
	})
}

// SetOnAccountDataChange assigns the change callback and replays the
// current snapshot to it. Clearing the callback idles the tracker without
// discarding the resolved state.
func (t *AccountExpiryTracker) SetOnAccountDataChange(handler func(domain.AccountData)) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	version := t.onChange.set(handler)
	t.mu.Unlock()

	if handler == nil {
		t.queue.Submit(t.idle)
		return
	}

	t.queue.Submit(func() {
		t.replay(version)
		t.resume()
	})
}

// SetOnAccountAlert assigns the alert callback.
func (t *AccountExpiryTracker) SetOnAccountAlert(handler func(domain.AccountAlert)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	t.onAlert.set(handler)
}

// Snapshot returns the current (account number, expiry) pair.
func (t *AccountExpiryTracker) Snapshot() domain.AccountData {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshotLocked()
}

// Close unsubscribes from the identity feed and cancels all pending work.
// It must not be called from one of the tracker's callbacks.
func (t *AccountExpiryTracker) Close() {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.closed = true
	t.onChange.set(nil)
	t.onAlert.set(nil)
	if t.fetch != nil {
		t.fetch.cancel()
		t.fetch = nil
	}
	t.mu.Unlock()

	t.feed.Unsubscribe(t.subscription)
	t.tasks.CancelAll()
	t.queue.Close()
}

// Sync blocks until all work submitted to the tracker so far has run.
func (t *AccountExpiryTracker) Sync() {
	t.queue.Sync()
}

func (t *AccountExpiryTracker) snapshotLocked() domain.AccountData {
	return domain.AccountData{
		AccountNumber: t.account,
		Expiry:        t.expiry,
	}
}

// handleNewAccount runs on the queue when the identity feed reports an
// account number. A report of the current number also resets and refetches.
func (t *AccountExpiryTracker) handleNewAccount(accountNumber string) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	if t.fetch != nil {
		t.fetch.cancel()
		t.fetch = nil
	}
	t.account = accountNumber
	t.expiry = time.Time{}
	t.attempt = 0
	t.alerted = ""
	snapshot := t.snapshotLocked()
	notify := t.onChange.fn
	t.mu.Unlock()

	logger.Debug("expiry: account changed to %q", accountNumber)

	t.tasks.CancelAll()
	deliver(notify, snapshot)
	t.startFetch()
}

// startFetch issues a request for the current account unless the tracker
// is idle or a request is already in flight. Runs on the queue.
func (t *AccountExpiryTracker) startFetch() {
	t.mu.Lock()
	if t.closed || t.account == "" || !t.onChange.attached() || t.fetch != nil {
		t.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	cycle := &fetchCycle{
		account:   t.account,
		attempt:   t.attempt,
		startedAt: t.clock.Now(),
		cancel:    cancel,
	}
	t.fetch = cycle
	t.mu.Unlock()

	t.tasks.Cancel(taskAccountCheck)
	logger.Debug("expiry: fetching account data (attempt %d)", cycle.attempt)

	go func() {
		data, err := t.authority.GetAccountData(ctx, cycle.account)
		t.queue.Submit(func() {
			t.handleFetchResult(cycle, data, err)
		})
	}()
}

// handleFetchResult applies a completed request if it is still current.
func (t *AccountExpiryTracker) handleFetchResult(cycle *fetchCycle, data domain.AccountData, err error) {
	defer cycle.cancel()

	t.mu.Lock()
	if t.fetch != cycle || t.account != cycle.account {
		t.mu.Unlock()
		logger.Debug("expiry: discarding stale response for %q", cycle.account)
		return
	}
	t.fetch = nil
	now := t.clock.Now()

	outcome := cycleOutcome{
		startedAt: cycle.startedAt,
		endedAt:   now,
		err:       err,
	}

	switch {
	case err == nil:
		t.expiry = data.Expiry
		t.attempt = 0
		snapshot := t.snapshotLocked()
		notify := t.onChange.fn
		expired := snapshot.WillHaveExpiredAt(now)
		attached := t.onChange.attached()
		var alert func(domain.AccountAlert)
		if expired {
			alert = t.alertLocked(domain.AlertAccountExpired)
		} else {
			t.alerted = ""
		}
		t.mu.Unlock()

		t.tasks.Cancel(taskGraceCheck)
		deliver(notify, snapshot)

		if expired {
			outcome.detail = "expired"
			log.Printf("expiry: account ran out of time at %s", snapshot.Expiry.Format(time.RFC3339))
			deliver(alert, domain.AccountAlert{AccountNumber: cycle.account, Reason: domain.AlertAccountExpired})
		} else {
			outcome.detail = "active"
			if attached {
				outcome.nextRun = snapshot.Expiry
				t.scheduleValidityCheck(cycle.account, snapshot.Expiry)
			}
		}

	case errors.Is(err, domain.ErrInvalidAccount):
		t.attempt = 0
		alert := t.alertLocked(domain.AlertInvalidAccount)
		t.mu.Unlock()

		outcome.detail = "invalid account"
		log.Printf("expiry: account rejected by authority: %v", err)
		t.tasks.Cancel(taskGraceCheck)
		deliver(alert, domain.AccountAlert{AccountNumber: cycle.account, Reason: domain.AlertInvalidAccount})

	default:
		t.attempt++
		attempt := t.attempt
		attached := t.onChange.attached()
		t.mu.Unlock()

		outcome.detail = "retry"
		outcome.attempt = attempt
		if attached {
			delay := t.retry.NextDelay(attempt)
			outcome.nextRun = now.Add(delay)
			log.Printf("expiry: failed to fetch account data: %v. Retry in %s.", err, delay)
			t.tasks.Schedule(taskAccountCheck, delay, func(context.Context) {
				t.startFetch()
			})
		} else {
			log.Printf("expiry: failed to fetch account data: %v. No subscriber, not retrying.", err)
		}
	}

	t.journal.record(domain.TaskIDAccountExpiry, outcome)
}

// scheduleValidityCheck re-validates the account exactly when it is expected
// to expire.
func (t *AccountExpiryTracker) scheduleValidityCheck(account string, expiry time.Time) {
	delay := expiry.Sub(t.clock.Now())
	logger.Debug("expiry: next validity check in %s", delay)

	t.tasks.Schedule(taskAccountCheck, delay, func(context.Context) {
		t.validityCheck(account)
	})
}

// validityCheck runs at the expected expiry: it refetches and arms the grace
// check that concludes expiry unless a successful fetch supersedes it.
func (t *AccountExpiryTracker) validityCheck(account string) {
	t.mu.Lock()
	if t.closed || t.account != account || !t.onChange.attached() {
		t.mu.Unlock()
		return
	}
	t.attempt = 0
	t.mu.Unlock()

	t.tasks.Schedule(taskGraceCheck, t.graceDelay, func(context.Context) {
		t.graceCheck(account)
	})
	t.startFetch()
}

func (t *AccountExpiryTracker) graceCheck(account string) {
	t.mu.Lock()
	if t.closed || t.account != account || t.expiry.After(t.clock.Now()) {
		t.mu.Unlock()
		return
	}
	alert := t.alertLocked(domain.AlertAccountExpired)
	t.mu.Unlock()

	log.Printf("expiry: no confirmation within %s of expiry, assuming account ran out of time", t.graceDelay)
	deliver(alert, domain.AccountAlert{AccountNumber: account, Reason: domain.AlertAccountExpired})
}

// alertLocked records reason as raised for the current account and returns
// the callback to raise it with, or nil if it was already raised.
func (t *AccountExpiryTracker) alertLocked(reason domain.AlertReason) func(domain.AccountAlert) {
	if t.alerted == reason {
		return nil
	}
	t.alerted = reason
	return t.onAlert.fn
}

// replay delivers the current snapshot to the handler installed as version.
func (t *AccountExpiryTracker) replay(version uint64) {
	t.mu.Lock()
	notify := t.onChange.current(version)
	snapshot := t.snapshotLocked()
	t.mu.Unlock()

	deliver(notify, snapshot)
}

// resume restarts the fetch loop after a subscriber attaches.
func (t *AccountExpiryTracker) resume() {
	t.mu.Lock()
	if t.closed || t.account == "" || !t.onChange.attached() || t.fetch != nil {
		t.mu.Unlock()
		return
	}
	account := t.account
	expiry := t.expiry
	t.mu.Unlock()

	if _, pending := t.tasks.Pending(taskAccountCheck); pending {
		return
	}

	switch {
	case expiry.IsZero():
		t.startFetch()
	case expiry.After(t.clock.Now()):
		t.scheduleValidityCheck(account, expiry)
	default:
		// The expiry passed while idle and was never re-checked.
		t.validityCheck(account)
	}
}

// idle stops further scheduling once the subscriber is gone.
func (t *AccountExpiryTracker) idle() {
	t.mu.Lock()
	attached := t.onChange.attached()
	t.mu.Unlock()

	if attached {
		return
	}
	t.tasks.Cancel(taskAccountCheck)
	t.tasks.Cancel(taskGraceCheck)
}
