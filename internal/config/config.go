// Package config loads and persists techlore settings from the workspace
// dot-directory (.lore/config.yaml). Missing files and missing fields fall
// back to compiled defaults; a handful of LORE_* environment variables
// override the file for one-off runs.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"

	"techlore/internal/logging"
)

// DirName is the workspace dot-directory that anchors all techlore state.
const DirName = ".lore"

// Config is the full settings tree.
type Config struct {
	Store       StoreConfig       `yaml:"store"`
	Validation  ValidationConfig  `yaml:"validation"`
	Maintenance MaintenanceConfig `yaml:"maintenance"`
	Ingest      IngestConfig      `yaml:"ingest"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// StoreConfig controls the experience repository. Relative paths resolve
// against the .lore directory.
type StoreConfig struct {
	File           string `yaml:"file"`
	BackupDir      string `yaml:"backup_dir"`
	MaxRecords     int    `yaml:"max_records"`
	MaxFieldLength int    `yaml:"max_field_length"`
	WatchFile      bool   `yaml:"watch_file"`
}

// ValidationConfig points at an optional rule overlay file and lets the
// acceptance threshold be tightened without editing the rules file.
type ValidationConfig struct {
	RulesFile       string  `yaml:"rules_file"`
	MinQualityScore float64 `yaml:"min_quality_score"`
}

// MaintenanceConfig controls the run ledger.
type MaintenanceConfig struct {
	HistoryFile string `yaml:"history_file"`
}

// IngestConfig controls batch ingestion.
type IngestConfig struct {
	Workers int `yaml:"workers"`
}

// LoggingConfig mirrors the logging package's view of the same file.
type LoggingConfig struct {
	DebugMode  bool            `yaml:"debug_mode"`
	Categories map[string]bool `yaml:"categories"`
	Level      string          `yaml:"level"`
	JSONFormat bool            `yaml:"json_format"`
}

// DefaultConfig returns the compiled-in settings.
func DefaultConfig() *Config {
	return &Config{
		Store: StoreConfig{
			File:           "experiences.json",
			BackupDir:      "backups",
			MaxRecords:     10000,
			MaxFieldLength: 10000,
			WatchFile:      false,
		},
		Validation: ValidationConfig{
			RulesFile: "rules.yaml",
		},
		Maintenance: MaintenanceConfig{
			HistoryFile: "history.db",
		},
		Ingest: IngestConfig{
			Workers: 4,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads .lore/config.yaml from the workspace, overlaying the defaults
// and then the LORE_* environment. A missing file is not an error.
func Load(workspace string) (*Config, error) {
	cfg := DefaultConfig()

	path := filepath.Join(workspace, DirName, "config.yaml")
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
		logging.ConfigDebug("Loaded config from %s", path)
	case os.IsNotExist(err):
		logging.ConfigDebug("No config at %s, using defaults", path)
	default:
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	applyEnv(cfg)

	if err := cfg.check(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the config back to .lore/config.yaml, creating the directory
// if needed.
func (c *Config) Save(workspace string) error {
	dir := filepath.Join(workspace, DirName)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	logging.Config("Saved config to %s", path)
	return nil
}

// applyEnv overlays one-off environment overrides on the loaded config.
func applyEnv(cfg *Config) {
	if v := os.Getenv("LORE_DEBUG"); v != "" {
		cfg.Logging.DebugMode = v == "1" || v == "true"
	}
	if v := os.Getenv("LORE_STORE_FILE"); v != "" {
		cfg.Store.File = v
	}
	if v := os.Getenv("LORE_MAX_RECORDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Store.MaxRecords = n
		}
	}
	if v := os.Getenv("LORE_INGEST_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Ingest.Workers = n
		}
	}
	if v := os.Getenv("LORE_MIN_QUALITY_SCORE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Validation.MinQualityScore = f
		}
	}
}

func (c *Config) check() error {
	if c.Store.MaxRecords <= 0 {
		return fmt.Errorf("store.max_records must be positive, got %d", c.Store.MaxRecords)
	}
	if c.Store.MaxFieldLength <= 0 {
		return fmt.Errorf("store.max_field_length must be positive, got %d", c.Store.MaxFieldLength)
	}
	if c.Validation.MinQualityScore < 0 || c.Validation.MinQualityScore > 10 {
		return fmt.Errorf("validation.min_quality_score must be in [0, 10], got %v", c.Validation.MinQualityScore)
	}
	if c.Ingest.Workers <= 0 {
		return fmt.Errorf("ingest.workers must be positive, got %d", c.Ingest.Workers)
	}
	return nil
}

// Dir returns the workspace dot-directory.
func Dir(workspace string) string {
	return filepath.Join(workspace, DirName)
}

// StorePath resolves the experience file location.
func (c *Config) StorePath(workspace string) string {
	return resolve(workspace, c.Store.File)
}

// BackupDirPath resolves the backup directory.
func (c *Config) BackupDirPath(workspace string) string {
	return resolve(workspace, c.Store.BackupDir)
}

// HistoryPath resolves the maintenance ledger location.
func (c *Config) HistoryPath(workspace string) string {
	return resolve(workspace, c.Maintenance.HistoryFile)
}

// RulesPath resolves the validation rule overlay, or "" when unset.
func (c *Config) RulesPath(workspace string) string {
	if c.Validation.RulesFile == "" {
		return ""
	}
	return resolve(workspace, c.Validation.RulesFile)
}

func resolve(workspace, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(workspace, DirName, path)
}

// FindWorkspaceRoot walks up from start looking for a .lore directory.
// When none exists the start directory itself is the workspace.
func FindWorkspaceRoot(start string) string {
	abs, err := filepath.Abs(start)
	if err != nil {
		return start
	}
	dir := abs
	for {
		if info, err := os.Stat(filepath.Join(dir, DirName)); err == nil && info.IsDir() {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return abs
}
