package driving

import "github.com/custodia-labs/keyward/internal/core/domain"

// SettingsService manages application settings.
type SettingsService interface {
	// Get retrieves current settings, applying defaults for unset keys.
	Get() (domain.Settings, error)

	// Set parses and stores a single setting by key.
	Set(key, value string) error

	// Reset removes a single setting so its default applies again.
	Reset(key string) error

	// Keys returns the recognised setting keys.
	Keys() []string

	// GetDefaults returns default settings.
	GetDefaults() domain.Settings
}
