package driving

import "github.com/custodia-labs/keyward/internal/core/domain"

// KeyRotationManager periodically rotates the tunnel key pair.
type KeyRotationManager interface {
	// Start enables automatic rotation and evaluates a cycle immediately.
	// Idempotent while running.
	Start()

	// Stop disables automatic rotation, cancelling any in-flight cycle and
	// scheduled retry. Idempotent while stopped.
	Stop()

	// SetKeyRotationEventHandler assigns the event callback. Only events that
	// installed a new key are delivered; the last one, if any, is replayed to
	// the new handler. Nil clears the slot.
	SetKeyRotationEventHandler(handler func(domain.KeyRotationEvent))

	// LastEvent returns the outcome of the most recent successful cycle,
	// rotated or not, and whether one has completed.
	LastEvent() (domain.KeyRotationEvent, bool)

	// IsRunning reports whether automatic rotation is enabled.
	IsRunning() bool

	// Close stops the manager and releases its execution context.
	Close()
}

// AccountExpiryTracker polls the account expiry and notifies on change.
type AccountExpiryTracker interface {
	// FetchAccountExpiry starts a fetch cycle for the current account.
	FetchAccountExpiry()

	// SetOnAccountDataChange assigns the change callback. The current snapshot
	// is delivered to the new handler immediately. Nil clears the slot and
	// idles the tracker.
	SetOnAccountDataChange(handler func(domain.AccountData))

	// SetOnAccountAlert assigns the callback raised when the account is
	// concluded expired or invalid. Nil clears the slot.
	SetOnAccountAlert(handler func(domain.AccountAlert))

	// Snapshot returns the current (account number, expiry) pair.
	Snapshot() domain.AccountData

	// Close unsubscribes from the identity feed, cancels all pending work and
	// releases the execution context. No callback fires after Close returns.
	Close()
}
