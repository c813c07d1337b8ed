// Package config loads the CLI configuration file.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so YAML accepts "500ms" style strings.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// StoreConfig selects where dispatched job records are kept.
type StoreConfig struct {
	// Kind is "memory" (default, per-process) or "redis".
	Kind     string `yaml:"kind"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// Config is the on-disk CLI configuration.
type Config struct {
	// ClientID identifies this caller on remote peers. Generated when empty.
	ClientID string `yaml:"client_id"`
	// Remote is the default peer endpoint.
	Remote string `yaml:"remote"`
	// PollInterval is the fixed period between history polls.
	PollInterval Duration `yaml:"poll_interval"`
	// FailureBudget bounds consecutive transport failures while polling.
	FailureBudget int `yaml:"failure_budget"`
	// AssetRoots maps storage categories to local directories.
	AssetRoots map[string]string `yaml:"asset_roots"`
	// LogLevel is debug, info, warn, or error.
	LogLevel string `yaml:"log_level"`

	Store StoreConfig `yaml:"store"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Remote:        "http://127.0.0.1:8288",
		PollInterval:  Duration(500 * time.Millisecond),
		FailureBudget: 3,
		AssetRoots:    map[string]string{"input": "input", "output": "output", "temp": "temp"},
		LogLevel:      "info",
		Store:         StoreConfig{Kind: "memory"},
	}
}

// Load reads the YAML file at path, filling unset fields with defaults.
// A missing file is not an error; defaults apply.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = Duration(500 * time.Millisecond)
	}
	if cfg.FailureBudget <= 0 {
		cfg.FailureBudget = 3
	}
	if cfg.Store.Kind == "" {
		cfg.Store.Kind = "memory"
	}
	return cfg, nil
}
