package driven

// ConfigStore holds the keyward settings file. Keys use dot notation
// matching the file's sections ("rotation.interval", "authority.url").
// Writes are persisted before they return.
type ConfigStore interface {
	// Get returns the raw value of key and whether it is set.
	Get(key string) (any, bool)

	// GetString returns key as a string, or "" if unset or not a string.
	// Durations are stored as strings in time.ParseDuration form.
	GetString(key string) string

	// GetInt returns key as an int, or 0 if unset or not numeric.
	GetInt(key string) int

	// GetFloat returns key as a float64, or 0 if unset or not numeric.
	GetFloat(key string) float64

	// Set stores value under key.
	Set(key string, value any) error

	// Delete unsets key so its default applies again.
	Delete(key string) error

	// Keys returns the set keys in sorted order.
	Keys() []string

	// Load re-reads the backing file.
	Load() error

	// Path returns the backing file path.
	Path() string
}
