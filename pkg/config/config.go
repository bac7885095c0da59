// Package config loads collodrill settings from a YAML file and the
// environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	EnvDB      = "COLLODRILL_DB"
	EnvLogMode = "COLLODRILL_LOG_MODE"
)

type Drill struct {
	MaxSize   int `yaml:"max_size"`
	NewTarget int `yaml:"new_target"`
}

type Recommend struct {
	Count int `yaml:"count"`
}

type Import struct {
	Workers   int `yaml:"workers"`
	BatchSize int `yaml:"batch_size"`
}

// Config is the resolved application configuration.
type Config struct {
	DBPath    string    `yaml:"db_path"`
	LogMode   string    `yaml:"log_mode"`
	StudyList string    `yaml:"study_list"`
	Drill     Drill     `yaml:"drill"`
	Recommend Recommend `yaml:"recommend"`
	Import    Import    `yaml:"import"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		DBPath:    DefaultDBPath(),
		LogMode:   "dev",
		Drill:     Drill{MaxSize: 15, NewTarget: 3},
		Recommend: Recommend{Count: 10},
		Import:    Import{Workers: 4, BatchSize: 50},
	}
}

// DefaultDBPath is ~/.collodrill/collodrill.db.
func DefaultDBPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".collodrill", "collodrill.db")
}

// DefaultPath is ~/.collodrill/config.yaml.
func DefaultPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".collodrill", "config.yaml")
}

// Load reads path over the defaults and applies environment overrides.
// A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return cfg, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(b, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}
	applyEnv(&cfg)
	cfg.fillZero()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv(EnvDB)); v != "" {
		cfg.DBPath = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogMode)); v != "" {
		cfg.LogMode = v
	}
}

// fillZero restores defaults for keys present in the file but left empty.
func (c *Config) fillZero() {
	d := Default()
	if c.DBPath == "" {
		c.DBPath = d.DBPath
	}
	if c.LogMode == "" {
		c.LogMode = d.LogMode
	}
	if c.Drill.MaxSize == 0 {
		c.Drill.MaxSize = d.Drill.MaxSize
	}
	if c.Recommend.Count == 0 {
		c.Recommend.Count = d.Recommend.Count
	}
	if c.Import.Workers == 0 {
		c.Import.Workers = d.Import.Workers
	}
	if c.Import.BatchSize == 0 {
		c.Import.BatchSize = d.Import.BatchSize
	}
	c.DBPath = expandHome(c.DBPath)
}

// Validate rejects negative sizes and unknown log modes.
func (c Config) Validate() error {
	switch strings.ToLower(c.LogMode) {
	case "dev", "prod", "production", "quiet":
	default:
		return fmt.Errorf("config: unknown log_mode %q", c.LogMode)
	}
	if c.Drill.MaxSize < 0 || c.Drill.NewTarget < 0 {
		return fmt.Errorf("config: drill sizes must not be negative")
	}
	if c.Drill.NewTarget > c.Drill.MaxSize {
		return fmt.Errorf("config: drill.new_target %d exceeds drill.max_size %d", c.Drill.NewTarget, c.Drill.MaxSize)
	}
	if c.Recommend.Count < 0 || c.Import.Workers < 0 || c.Import.BatchSize < 0 {
		return fmt.Errorf("config: counts must not be negative")
	}
	return nil
}

func expandHome(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return p
		}
		return filepath.Join(home, strings.TrimPrefix(p, "~"))
	}
	return p
}
