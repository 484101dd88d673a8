package services

import (
	"fmt"
	"log"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/keyward/internal/core/domain"
	"github.com/custodia-labs/keyward/internal/core/ports/driven"
	"github.com/custodia-labs/keyward/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
const (
	keyRotationInterval      = "rotation.interval"
	keyRotationRetryInterval = "rotation.retry_interval"
	keyExpiryBackoffBase     = "expiry.backoff_base"
	keyExpiryBackoffMaxExp   = "expiry.backoff_max_exponent"
	keyExpiryGraceDelay      = "expiry.grace_delay"
	keyAuthorityURL          = "authority.url"
	keyAuthorityTimeout      = "authority.timeout"
	keyAuthorityRPS          = "authority.requests_per_second"
	keyAuthorityBurst        = "authority.burst"
	keyKeychainReference     = "keychain.reference"
	keyJournalKeep           = "journal.keep"
)

// settingKind is how a setting value is parsed and stored.
type settingKind int

const (
	kindDuration settingKind = iota
	kindString
	kindUint
	kindInt
	kindFloat
)

// settingKinds lists every recognised key.
var settingKinds = map[string]settingKind{
	keyRotationInterval:      kindDuration,
	keyRotationRetryInterval: kindDuration,
	keyExpiryBackoffBase:     kindDuration,
	keyExpiryBackoffMaxExp:   kindUint,
	keyExpiryGraceDelay:      kindDuration,
	keyAuthorityURL:          kindString,
	keyAuthorityTimeout:      kindDuration,
	keyAuthorityRPS:          kindFloat,
	keyAuthorityBurst:        kindInt,
	keyKeychainReference:     kindString,
	keyJournalKeep:           kindInt,
}

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore) *SettingsService {
	return &SettingsService{configStore: configStore}
}

// Get retrieves current settings. Unset or unparseable keys use defaults.
func (s *SettingsService) Get() (domain.Settings, error) {
	settings := s.load()
	if err := settings.Validate(); err != nil {
		return settings, fmt.Errorf("%w: %s: %w", domain.ErrConfigurationRead, s.configStore.Path(), err)
	}
	return settings, nil
}

func (s *SettingsService) load() domain.Settings {
	d := domain.DefaultSettings()

	return domain.Settings{
		Rotation: domain.RotationSettings{
			Interval:      s.getDuration(keyRotationInterval, d.Rotation.Interval),
			RetryInterval: s.getDuration(keyRotationRetryInterval, d.Rotation.RetryInterval),
		},
		Expiry: domain.ExpirySettings{
			BackoffBase:        s.getDuration(keyExpiryBackoffBase, d.Expiry.BackoffBase),
			BackoffMaxExponent: uint(s.getInt(keyExpiryBackoffMaxExp, int(d.Expiry.BackoffMaxExponent))),
			GraceDelay:         s.getDuration(keyExpiryGraceDelay, d.Expiry.GraceDelay),
		},
		Authority: domain.AuthoritySettings{
			URL:               s.getString(keyAuthorityURL, d.Authority.URL),
			Timeout:           s.getDuration(keyAuthorityTimeout, d.Authority.Timeout),
			RequestsPerSecond: s.getFloat(keyAuthorityRPS, d.Authority.RequestsPerSecond),
			Burst:             s.getInt(keyAuthorityBurst, d.Authority.Burst),
		},
		KeychainReference: s.getString(keyKeychainReference, d.KeychainReference),
		JournalKeep:       s.getInt(keyJournalKeep, d.JournalKeep),
	}
}

// Set parses value for key, validates the resulting settings and persists it.
func (s *SettingsService) Set(key, value string) error {
	kind, ok := settingKinds[key]
	if !ok {
		return fmt.Errorf("%w: unknown setting %q", domain.ErrInvalidInput, key)
	}

	parsed, err := parseSetting(kind, strings.TrimSpace(value))
	if err != nil {
		return fmt.Errorf("%w: %s: %w", domain.ErrInvalidInput, key, err)
	}

	previous, existed := s.configStore.Get(key)
	if err := s.configStore.Set(key, parsed); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrConfigurationWrite, err)
	}

	if err := s.load().Validate(); err != nil {
		s.restore(key, previous, existed)
		return err
	}
	return nil
}

// Reset removes key so its default applies again.
func (s *SettingsService) Reset(key string) error {
	if _, ok := settingKinds[key]; !ok {
		return fmt.Errorf("%w: unknown setting %q", domain.ErrInvalidInput, key)
	}
	if err := s.configStore.Delete(key); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrConfigurationWrite, err)
	}
	return nil
}

// Keys returns the recognised setting keys in sorted order.
func (s *SettingsService) Keys() []string {
	keys := make([]string, 0, len(settingKinds))
	for key := range settingKinds {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.Settings {
	return domain.DefaultSettings()
}

func (s *SettingsService) restore(key string, previous any, existed bool) {
	var err error
	if existed {
		err = s.configStore.Set(key, previous)
	} else {
		err = s.configStore.Delete(key)
	}
	if err != nil {
		log.Printf("settings: failed to restore %s: %v", key, err)
	}
}

func parseSetting(kind settingKind, value string) (any, error) {
	switch kind {
	case kindDuration:
		d, err := time.ParseDuration(value)
		if err != nil {
			return nil, err
		}
		return d.String(), nil
	case kindUint:
		n, err := strconv.ParseUint(value, 10, 32)
		if err != nil {
			return nil, err
		}
		return int64(n), nil
	case kindInt:
		n, err := strconv.ParseInt(value, 10, 32)
		if err != nil {
			return nil, err
		}
		return n, nil
	case kindFloat:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, err
		}
		return f, nil
	default:
		if value == "" {
			return nil, fmt.Errorf("value must not be empty")
		}
		return value, nil
	}
}

func (s *SettingsService) getString(key, defaultVal string) string {
	if val := s.configStore.GetString(key); val != "" {
		return val
	}
	return defaultVal
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetInt(key)
}

func (s *SettingsService) getFloat(key string, defaultVal float64) float64 {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetFloat(key)
}

func (s *SettingsService) getDuration(key string, defaultVal time.Duration) time.Duration {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		log.Printf("settings: ignoring invalid duration %q for %s", val, key)
		return defaultVal
	}
	return d
}
