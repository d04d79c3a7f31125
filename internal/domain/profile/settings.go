package profile

import (
	"fmt"

	"github.com/pelletier/go-toml/v2"

	"github.com/felixgeelhaar/rigup/internal/ports"
)

// Settings are operator preferences from rigup.toml. They tune how
// rigup runs; what it installs always comes from the profile.
type Settings struct {
	Concurrency int    `toml:"concurrency"`
	LogLevel    string `toml:"log_level"`
	StateDir    string `toml:"state_dir"`
	NoColor     bool   `toml:"no_color"`
}

// DefaultSettings returns the settings used when no rigup.toml exists.
// Concurrency 0 means "derive from CPU count".
func DefaultSettings() Settings {
	return Settings{
		Concurrency: 0,
		LogLevel:    "info",
	}
}

// LoadSettings reads rigup.toml from path. A missing file is not an
// error; it just yields the defaults.
func LoadSettings(fs ports.FileSystem, path string) (Settings, error) {
	settings := DefaultSettings()

	if !fs.Exists(path) {
		return settings, nil
	}

	data, err := fs.ReadFile(path)
	if err != nil {
		return settings, NewSettingsParseError(path, err)
	}
	if err := toml.Unmarshal(data, &settings); err != nil {
		return settings, NewSettingsParseError(path, err)
	}

	if settings.Concurrency < 0 {
		return settings, NewSettingsParseError(path,
			fmt.Errorf("concurrency must be >= 0, got %d", settings.Concurrency))
	}
	switch settings.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return settings, NewSettingsParseError(path,
			fmt.Errorf("log_level must be one of debug, info, warn, error; got %q", settings.LogLevel))
	}
	return settings, nil
}
