package domain

import "time"

// RetryPolicy maps a retry attempt count to the delay before the next attempt.
// Implementations are pure functions of the attempt count.
type RetryPolicy interface {
	NextDelay(attempt uint) time.Duration
}

// ExponentialBackoff doubles the delay with every attempt up to a ceiling.
// The delay is Base * 2^min(attempt, MaxExponent).
type ExponentialBackoff struct {
	Base        time.Duration
	MaxExponent uint
}

// NextDelay implements RetryPolicy.
func (b ExponentialBackoff) NextDelay(attempt uint) time.Duration {
	exponent := min(attempt, b.MaxExponent)
	return b.Base * time.Duration(uint64(1)<<exponent)
}

// FlatDelay waits the same duration after every failure.
type FlatDelay time.Duration

// NextDelay implements RetryPolicy.
func (d FlatDelay) NextDelay(uint) time.Duration {
	return time.Duration(d)
}

// Default retry parameters.
const (
	// DefaultExpiryBackoffBase is the first expiry fetch retry delay.
	DefaultExpiryBackoffBase = time.Second

	// DefaultExpiryBackoffMaxExponent caps the expiry retry delay at 2^13 seconds.
	DefaultExpiryBackoffMaxExponent = 13

	// DefaultRotationRetryInterval is the key rotation retry delay on failure.
	DefaultRotationRetryInterval = 300 * time.Second

	// DefaultExpiryGraceDelay is how long after expiry the tracker waits for a
	// successful fetch before concluding the account ran out of time.
	DefaultExpiryGraceDelay = 5 * time.Second
)

// ExpiryRetryPolicy returns the policy used when polling account expiry.
func ExpiryRetryPolicy() RetryPolicy {
	return ExponentialBackoff{Base: DefaultExpiryBackoffBase, MaxExponent: DefaultExpiryBackoffMaxExponent}
}

// RotationRetryPolicy returns the policy used after a failed key rotation.
func RotationRetryPolicy() RetryPolicy {
	return FlatDelay(DefaultRotationRetryInterval)
}
