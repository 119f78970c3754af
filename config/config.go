// Package config loads application configuration from defaults, an
// optional TOML file and CONTRACTINTEL_ environment overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config represents the application configuration.
type Config struct {
	Backend struct {
		BaseURL        string `koanf:"base_url"`
		TimeoutSeconds int    `koanf:"timeout_seconds"`
	} `koanf:"backend"`

	Data struct {
		DBPath string `koanf:"db_path"`
	} `koanf:"data"`

	Autosave struct {
		QuietMillis int `koanf:"quiet_millis"`
	} `koanf:"autosave"`

	Log struct {
		Level string `koanf:"level"`
	} `koanf:"log"`
}

// Timeout returns the backend request timeout.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.Backend.TimeoutSeconds) * time.Second
}

// QuietPeriod returns the autosave debounce window.
func (c *Config) QuietPeriod() time.Duration {
	return time.Duration(c.Autosave.QuietMillis) * time.Millisecond
}

// envKeys maps CONTRACTINTEL_ environment variables to config keys.
var envKeys = map[string]string{
	"CONTRACTINTEL_BACKEND_BASE_URL":        "backend.base_url",
	"CONTRACTINTEL_BACKEND_TIMEOUT_SECONDS": "backend.timeout_seconds",
	"CONTRACTINTEL_DATA_DB_PATH":            "data.db_path",
	"CONTRACTINTEL_AUTOSAVE_QUIET_MILLIS":   "autosave.quiet_millis",
	"CONTRACTINTEL_LOG_LEVEL":               "log.level",
}

// Load loads the configuration from a file, falling back through the
// default locations when configPath is empty.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	k.Load(confmap.Provider(map[string]interface{}{
		"backend.base_url":        "http://localhost:8000",
		"backend.timeout_seconds": 300,
		"data.db_path":            defaultDBPath(),
		"autosave.quiet_millis":   1000,
		"log.level":               "info",
	}, "."), nil)

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), toml.Parser()); err != nil {
			return nil, fmt.Errorf("error loading config: %w", err)
		}
	} else {
		defaultPaths := []string{"./contractintel.toml"}
		if home, err := os.UserHomeDir(); err == nil {
			defaultPaths = append(defaultPaths, filepath.Join(home, ".contractintel.toml"))
		}
		for _, path := range defaultPaths {
			if _, err := os.Stat(path); err == nil {
				if err := k.Load(file.Provider(path), toml.Parser()); err == nil {
					break
				}
			}
		}
	}

	// Key names contain underscores, so a blanket underscore-to-dot
	// rewrite would mangle them. Variables not in the map are ignored.
	k.Load(env.Provider("CONTRACTINTEL_", ".", func(s string) string {
		return envKeys[s]
	}), nil)

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}
	return &cfg, nil
}

// defaultDBPath puts the database under the user config directory.
func defaultDBPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "./data/contractintel.db"
	}
	return filepath.Join(dir, "contract-intel-client", "contractintel.db")
}
