package domain

import (
	"fmt"
	"time"
)

// Settings holds the tunable parameters of the background managers.
type Settings struct {
	Rotation  RotationSettings
	Expiry    ExpirySettings
	Authority AuthoritySettings

	// KeychainReference is the persistent reference of the tunnel configuration.
	KeychainReference string

	// JournalKeep is how many results per task are kept in history.
	JournalKeep int
}

// RotationSettings configures the key rotation manager.
type RotationSettings struct {
	// Interval is the key lifetime.
	Interval time.Duration

	// RetryInterval is the flat delay after a failed rotation.
	RetryInterval time.Duration
}

// ExpirySettings configures the account expiry tracker.
type ExpirySettings struct {
	// BackoffBase is the delay unit of the exponential retry policy.
	BackoffBase time.Duration

	// BackoffMaxExponent caps the retry exponent.
	BackoffMaxExponent uint

	// GraceDelay bounds the re-check after the expected expiry.
	GraceDelay time.Duration
}

// AuthoritySettings configures the remote account and key authority client.
type AuthoritySettings struct {
	// URL is the JSON-RPC endpoint.
	URL string

	// Timeout bounds each request.
	Timeout time.Duration

	// RequestsPerSecond is the sustained request rate.
	RequestsPerSecond float64

	// Burst is the maximum request burst.
	Burst int
}

// DefaultKeychainReference is the reference used when none is configured.
const DefaultKeychainReference = "default"

// DefaultAuthorityURL is the JSON-RPC endpoint used when none is configured.
const DefaultAuthorityURL = "https://api.keyward.net/rpc/"

// DefaultSettings returns sensible defaults.
func DefaultSettings() Settings {
	return Settings{
		Rotation: RotationSettings{
			Interval:      DefaultRotationInterval,
			RetryInterval: DefaultRotationRetryInterval,
		},
		Expiry: ExpirySettings{
			BackoffBase:        DefaultExpiryBackoffBase,
			BackoffMaxExponent: DefaultExpiryBackoffMaxExponent,
			GraceDelay:         DefaultExpiryGraceDelay,
		},
		Authority: AuthoritySettings{
			URL:               DefaultAuthorityURL,
			Timeout:           30 * time.Second,
			RequestsPerSecond: 1,
			Burst:             5,
		},
		KeychainReference: DefaultKeychainReference,
		JournalKeep:       DefaultJournalKeep,
	}
}

// Validate checks the settings are usable.
func (s Settings) Validate() error {
	switch {
	case s.Rotation.Interval <= 0:
		return fmt.Errorf("%w: rotation interval must be positive", ErrInvalidInput)
	case s.Rotation.RetryInterval <= 0:
		return fmt.Errorf("%w: rotation retry interval must be positive", ErrInvalidInput)
	case s.Expiry.BackoffBase <= 0:
		return fmt.Errorf("%w: expiry backoff base must be positive", ErrInvalidInput)
	case s.Expiry.BackoffMaxExponent > 30:
		return fmt.Errorf("%w: expiry backoff exponent must not exceed 30", ErrInvalidInput)
	case s.Expiry.GraceDelay < 0:
		return fmt.Errorf("%w: expiry grace delay must not be negative", ErrInvalidInput)
	case s.Authority.URL == "":
		return fmt.Errorf("%w: authority url is required", ErrInvalidInput)
	case s.Authority.Timeout <= 0:
		return fmt.Errorf("%w: authority timeout must be positive", ErrInvalidInput)
	case s.Authority.RequestsPerSecond < 0 || s.Authority.Burst < 0:
		return fmt.Errorf("%w: authority rate limit must not be negative", ErrInvalidInput)
	case s.JournalKeep < 0:
		return fmt.Errorf("%w: journal keep must not be negative", ErrInvalidInput)
	case s.KeychainReference == "":
		return fmt.Errorf("%w: keychain reference is required", ErrInvalidInput)
	}
	return nil
}

// RetryPolicy returns the configured expiry polling policy.
func (s ExpirySettings) RetryPolicy() RetryPolicy {
	return ExponentialBackoff{Base: s.BackoffBase, MaxExponent: s.BackoffMaxExponent}
}

// RetryPolicy returns the configured rotation failure policy.
func (s RotationSettings) RetryPolicy() RetryPolicy {
	return FlatDelay(s.RetryInterval)
}
