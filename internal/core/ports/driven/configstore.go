package driven

import "github.com/custodia-labs/kbnote/internal/core/domain"

// ConfigStore loads and persists the application configuration.
// Implementations handle persistence (e.g., TOML files) and merge the
// stored values over domain.DefaultConfig.
type ConfigStore interface {
	// Load returns the configuration with defaults applied for absent
	// values and secrets taken from the environment. A missing file is
	// not an error. The result is not validated.
	Load() (domain.Config, error)

	// Save writes the configuration. Secrets are never written.
	Save(cfg domain.Config) error

	// Exists reports whether the configuration file is present.
	Exists() bool

	// Path returns the configuration file path.
	Path() string
}
