package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/BurntSushi/toml"
)

// Load reads the TOML configuration at path, applies defaults for every
// omitted field, and validates the result. A missing file is not an error:
// the defaults are returned and a note is logged.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	meta, err := toml.DecodeFile(path, cfg)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		slog.Info("No config file found, using defaults", "path", path)
	case err != nil:
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	default:
		if undecoded := meta.Undecoded(); len(undecoded) > 0 {
			slog.Warn("Config contains unknown keys", "path", path, "keys", undecoded)
		}
		slog.Info("Loaded configuration", "path", path)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LogLevelVar translates the configured log level into a slog.Level.
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
