// Package config loads the archon configuration file and retention
// policy files.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// StoreConfig selects the relational store.
type StoreConfig struct {
	Driver          string `json:"driver"`            // "sqlite3" or "pgx"
	DSN             string `json:"dsn,omitempty"`     // empty selects ~/.archon/archon.db
	MaxOpenConns    int    `json:"max_open_conns,omitempty"`
	MaxIdleConns    int    `json:"max_idle_conns,omitempty"`
	ConnMaxLifetime string `json:"conn_max_lifetime,omitempty"` // Go duration string
}

// LogConfig selects logger level and encoding.
type LogConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"` // "json" or "console"
}

// ArchiveDefaults hold the retention defaults applied when a request
// leaves them unset.
type ArchiveDefaults struct {
	BookingRetentionMonths int    `json:"booking_retention_months"`
	MessageRetentionMonths int    `json:"message_retention_months"`
	AuditRetentionMonths   int    `json:"audit_retention_months"`
	BatchSize              int    `json:"batch_size"`
	ColdTableSuffix        string `json:"cold_table_suffix"`
}

// Config is the flat archon configuration.
type Config struct {
	Version string          `json:"version"`
	Store   StoreConfig     `json:"store"`
	Log     LogConfig       `json:"log"`
	Archive ArchiveDefaults `json:"archive"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Version: "1",
		Store:   StoreConfig{Driver: "sqlite3"},
		Log:     LogConfig{Level: "info", Format: "console"},
		Archive: ArchiveDefaults{
			BookingRetentionMonths: 18,
			MessageRetentionMonths: 12,
			AuditRetentionMonths:   6,
			BatchSize:              1000,
			ColdTableSuffix:        "_archive",
		},
	}
}

// Load reads .archon/config.json from dir, falling back to defaults
// when the file does not exist.
func Load(dir string) (*Config, error) {
	path := filepath.Join(dir, ".archon", "config.json")
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := Default()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// Save writes config.json under dir/.archon.
func Save(dir string, cfg *Config) error {
	confDir := filepath.Join(dir, ".archon")
	if err := os.MkdirAll(confDir, 0755); err != nil {
		return fmt.Errorf("failed to create .archon dir: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(filepath.Join(confDir, "config.json"), data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// ConnMaxLifetimeDuration parses the lifetime string, zero when unset.
func (s StoreConfig) ConnMaxLifetimeDuration() (time.Duration, error) {
	if s.ConnMaxLifetime == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s.ConnMaxLifetime)
	if err != nil {
		return 0, fmt.Errorf("failed to parse conn_max_lifetime: %w", err)
	}
	return d, nil
}

// policyFile is the YAML shape of a retention policy file: dataset name
// mapped to an age threshold in days.
type policyFile struct {
	Policies map[string]int `yaml:"policies"`
}

// LoadPolicies reads a YAML retention-policy file mapping dataset names
// to retention days.
func LoadPolicies(path string) (map[string]time.Duration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read policy file: %w", err)
	}

	var pf policyFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return nil, fmt.Errorf("failed to parse policy file: %w", err)
	}
	if len(pf.Policies) == 0 {
		return nil, fmt.Errorf("policy file %s declares no policies", path)
	}

	out := make(map[string]time.Duration, len(pf.Policies))
	for name, days := range pf.Policies {
		if days < 0 {
			return nil, fmt.Errorf("policy %s has negative retention", name)
		}
		out[name] = time.Duration(days) * 24 * time.Hour
	}
	return out, nil
}
