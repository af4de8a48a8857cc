// Package config loads planner settings from an optional YAML file and
// PLANNER_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. PLANNER_DATABASE.
const EnvPrefix = "PLANNER"

// Config holds the settings shared by every command.
type Config struct {
	// Database is the default (ambient) store location.
	Database string `yaml:"database" mapstructure:"database"`

	// Credentials is a path to a service-account credential file. When set,
	// it selects the target store and wins over Database.
	Credentials string `yaml:"credentials" mapstructure:"credentials"`

	// Timezone names the location calendar dates are computed in.
	Timezone string `yaml:"timezone" mapstructure:"timezone"`

	HorizonDays int `yaml:"horizon_days" mapstructure:"horizon_days"`
	BatchSize   int `yaml:"batch_size" mapstructure:"batch_size"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Database:    filepath.Join(".planner", "planner.db"),
		Timezone:    "Local",
		HorizonDays: 90,
		BatchSize:   500,
	}
}

// ProjectConfigPath is where Load looks when no path is given.
func ProjectConfigPath() string {
	return filepath.Join(".planner", "config.yaml")
}

// Load reads configuration. An explicit path must exist; the default
// project path is optional. Environment variables override the file.
func Load(path string) (*Config, error) {
	def := DefaultConfig()

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetDefault("database", def.Database)
	v.SetDefault("credentials", def.Credentials)
	v.SetDefault("timezone", def.Timezone)
	v.SetDefault("horizon_days", def.HorizonDays)
	v.SetDefault("batch_size", def.BatchSize)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	explicit := path != ""
	if !explicit {
		path = ProjectConfigPath()
	}
	if _, err := os.Stat(path); err == nil {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else if explicit || !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	var errs []error
	if c.HorizonDays < 1 {
		errs = append(errs, fmt.Errorf("horizon_days must be >= 1, got %d", c.HorizonDays))
	}
	if c.BatchSize < 1 || c.BatchSize > 500 {
		errs = append(errs, fmt.Errorf("batch_size must be 1..500, got %d", c.BatchSize))
	}
	if _, err := c.Location(); err != nil {
		errs = append(errs, err)
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Location resolves Timezone.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// Target resolves the store to open. A credential file wins over the
// ambient database path; an unreadable or invalid credential is an error.
func (c *Config) Target() (string, error) {
	if c.Credentials == "" {
		if c.Database == "" {
			return "", errors.New("no database configured")
		}
		return c.Database, nil
	}
	creds, err := LoadCredentials(c.Credentials)
	if err != nil {
		return "", err
	}
	return creds.DatabasePath(filepath.Dir(c.Credentials)), nil
}
