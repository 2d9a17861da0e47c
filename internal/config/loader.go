package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Loader reads and writes the golem configuration file.
type Loader struct {
	v    *viper.Viper
	path string
}

// NewLoader creates a loader for the given config path.
// An empty path uses ~/.golem/golem.json.
func NewLoader(path string) *Loader {
	if path == "" {
		path = DefaultConfigPath()
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")
	v.SetEnvPrefix("GOLEM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return &Loader{v: v, path: path}
}

// Load reads the configuration file, applying defaults for missing keys.
// A missing file is not an error; defaults are returned.
func (l *Loader) Load() (*Config, error) {
	cfg := DefaultConfig()

	err := l.v.ReadInConfig()
	switch {
	case err == nil:
		if uerr := l.v.Unmarshal(cfg); uerr != nil {
			return nil, fmt.Errorf("failed to parse config: %w", uerr)
		}
	case os.IsNotExist(err):
		// Missing file is fine, defaults apply.
	default:
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	l.applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies GOLEM_* environment variables. AutomaticEnv
// only resolves keys viper already knows about, so the supported
// overrides are bound explicitly.
func (l *Loader) applyEnvOverrides(cfg *Config) {
	if v := l.v.GetString("model.provider"); v != "" {
		cfg.Model.Provider = v
	}
	if v := l.v.GetString("model.name"); v != "" {
		cfg.Model.Name = v
	}
	if v := l.v.GetString("model.ollama_url"); v != "" {
		cfg.Model.OllamaURL = v
	}
	if v := l.v.GetString("model.api_key"); v != "" {
		cfg.Model.APIKey = v
	}
	if v := l.v.GetInt("agent.max_history"); v != 0 {
		cfg.Agent.MaxHistory = v
	}
	if v := l.v.GetInt("agent.max_tool_calls"); v != 0 {
		cfg.Agent.MaxToolCalls = v
	}
	if v := l.v.GetString("logging.level"); v != "" {
		cfg.Logging.Level = v
	}
}

// Save writes the configuration to the loader's path, creating the
// directory if needed.
func (l *Loader) Save(cfg *Config) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("refusing to save invalid config: %w", err)
	}

	dir := filepath.Dir(l.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	l.v.Set("model", cfg.Model)
	l.v.Set("agent", cfg.Agent)
	l.v.Set("tools", cfg.Tools)
	l.v.Set("sessions", cfg.Sessions)
	l.v.Set("email", cfg.Email)
	l.v.Set("logging", cfg.Logging)
	l.v.Set("metrics", cfg.Metrics)

	if err := l.v.WriteConfigAs(l.path); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Path returns the config file path this loader reads and writes.
func (l *Loader) Path() string {
	return l.path
}

// DefaultConfigPath returns ~/.golem/golem.json.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".golem", "golem.json")
}

// Load is a convenience wrapper that loads from the default path.
func Load() (*Config, error) {
	return NewLoader("").Load()
}
