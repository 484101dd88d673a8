package services

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/keyward/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/keyward/internal/core/domain"
)

func TestNewSettingsService(t *testing.T) {
	store := memory.NewConfigStore()
	service := NewSettingsService(store)

	require.NotNil(t, service)
}

func TestSettingsService_Get_ReturnsDefaults(t *testing.T) {
	service := NewSettingsService(memory.NewConfigStore())

	settings, err := service.Get()

	require.NoError(t, err)
	assert.Equal(t, domain.DefaultSettings(), settings)
	assert.Equal(t, domain.DefaultSettings(), service.GetDefaults())
}

func TestSettingsService_Get_ReturnsStoredValues(t *testing.T) {
	store := memory.NewConfigStore()
	_ = store.Set("rotation.interval", "12h")
	_ = store.Set("expiry.backoff_max_exponent", int64(5))
	_ = store.Set("authority.url", "https://example.test/rpc")
	_ = store.Set("authority.requests_per_second", 2.5)
	_ = store.Set("journal.keep", 7)

	service := NewSettingsService(store)

	settings, err := service.Get()

	require.NoError(t, err)
	assert.Equal(t, 12*time.Hour, settings.Rotation.Interval)
	assert.Equal(t, uint(5), settings.Expiry.BackoffMaxExponent)
	assert.Equal(t, "https://example.test/rpc", settings.Authority.URL)
	assert.InDelta(t, 2.5, settings.Authority.RequestsPerSecond, 1e-9)
	assert.Equal(t, 7, settings.JournalKeep)
}

func TestSettingsService_Get_InvalidDurationFallsBackToDefault(t *testing.T) {
	store := memory.NewConfigStore()
	_ = store.Set("rotation.interval", "daily")

	settings, err := NewSettingsService(store).Get()

	require.NoError(t, err)
	assert.Equal(t, domain.DefaultRotationInterval, settings.Rotation.Interval)
}

func TestSettingsService_Get_InvalidStoredSettings(t *testing.T) {
	store := memory.NewConfigStore()
	_ = store.Set("rotation.interval", "-1h")

	_, err := NewSettingsService(store).Get()

	assert.ErrorIs(t, err, domain.ErrConfigurationRead)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestSettingsService_Set(t *testing.T) {
	tests := []struct {
		key   string
		value string
		check func(t *testing.T, s domain.Settings)
	}{
		{"rotation.interval", "36h", func(t *testing.T, s domain.Settings) {
			assert.Equal(t, 36*time.Hour, s.Rotation.Interval)
		}},
		{"rotation.retry_interval", "1m", func(t *testing.T, s domain.Settings) {
			assert.Equal(t, time.Minute, s.Rotation.RetryInterval)
		}},
		{"expiry.backoff_base", "500ms", func(t *testing.T, s domain.Settings) {
			assert.Equal(t, 500*time.Millisecond, s.Expiry.BackoffBase)
		}},
		{"expiry.backoff_max_exponent", "10", func(t *testing.T, s domain.Settings) {
			assert.Equal(t, uint(10), s.Expiry.BackoffMaxExponent)
		}},
		{"expiry.grace_delay", " 0s ", func(t *testing.T, s domain.Settings) {
			assert.Zero(t, s.Expiry.GraceDelay)
		}},
		{"authority.timeout", "10s", func(t *testing.T, s domain.Settings) {
			assert.Equal(t, 10*time.Second, s.Authority.Timeout)
		}},
		{"authority.burst", "3", func(t *testing.T, s domain.Settings) {
			assert.Equal(t, 3, s.Authority.Burst)
		}},
		{"keychain.reference", "work", func(t *testing.T, s domain.Settings) {
			assert.Equal(t, "work", s.KeychainReference)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			service := NewSettingsService(memory.NewConfigStore())

			require.NoError(t, service.Set(tt.key, tt.value))

			settings, err := service.Get()
			require.NoError(t, err)
			tt.check(t, settings)
		})
	}
}

func TestSettingsService_Set_Rejects(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"unknown key", "search.mode", "hybrid"},
		{"bad duration", "rotation.interval", "soon"},
		{"bad integer", "authority.burst", "many"},
		{"negative exponent", "expiry.backoff_max_exponent", "-1"},
		{"bad float", "authority.requests_per_second", "fast"},
		{"empty string", "authority.url", "  "},
		{"fails validation", "rotation.interval", "0s"},
		{"exponent too large", "expiry.backoff_max_exponent", "31"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := memory.NewConfigStore()
			service := NewSettingsService(store)

			err := service.Set(tt.key, tt.value)

			assert.ErrorIs(t, err, domain.ErrInvalidInput)
			_, exists := store.Get(tt.key)
			assert.False(t, exists, "rejected value must not be stored")
		})
	}
}

func TestSettingsService_Set_RestoresPreviousValue(t *testing.T) {
	store := memory.NewConfigStore()
	service := NewSettingsService(store)
	require.NoError(t, service.Set("rotation.interval", "12h"))

	err := service.Set("rotation.interval", "0s")

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Equal(t, "12h0m0s", store.GetString("rotation.interval"))
}

func TestSettingsService_WriteFailure(t *testing.T) {
	store := memory.NewConfigStore()
	service := NewSettingsService(store)
	store.FailWrites(errors.New("read-only file system"))

	assert.ErrorIs(t, service.Set("journal.keep", "5"), domain.ErrConfigurationWrite)
	assert.ErrorIs(t, service.Reset("journal.keep"), domain.ErrConfigurationWrite)
}

func TestSettingsService_Reset(t *testing.T) {
	store := memory.NewConfigStore()
	service := NewSettingsService(store)
	require.NoError(t, service.Set("journal.keep", "5"))

	require.NoError(t, service.Reset("journal.keep"))

	settings, err := service.Get()
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultJournalKeep, settings.JournalKeep)
	assert.ErrorIs(t, service.Reset("nope"), domain.ErrInvalidInput)
}

func TestSettingsService_Keys(t *testing.T) {
	keys := NewSettingsService(memory.NewConfigStore()).Keys()

	assert.Len(t, keys, 11)
	assert.IsIncreasing(t, keys)
	assert.Contains(t, keys, "rotation.interval")
	assert.Contains(t, keys, "journal.keep")
}
