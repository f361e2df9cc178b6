package driving

import "github.com/custodia-labs/tagmark/internal/core/domain"

// SettingsService exposes the startup configuration.
type SettingsService interface {
	// Get builds application settings from configuration, applying defaults.
	// Returns domain.ErrInvalidConfig for out-of-range values.
	Get() (*domain.AppSettings, error)

	// GetDefaults returns default settings.
	GetDefaults() domain.AppSettings

	// Set parses raw according to the key's type, checks the resulting
	// settings are valid and persists the value. Only scalar keys can be set.
	Set(key, raw string) error

	// Path returns the configuration file location.
	Path() string
}
