package config

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/viper"
)

// ServiceAccountType is the only credential type accepted.
const ServiceAccountType = "service_account"

// ErrInvalidCredentials is returned for credential files that cannot select a
// store.
var ErrInvalidCredentials = errors.New("invalid credentials")

// Credentials is a service-account credential blob. It selects the store
// deployment a run targets.
type Credentials struct {
	Type      string `mapstructure:"type"`
	ProjectID string `mapstructure:"project_id"`
	// Database overrides the database file derived from ProjectID.
	Database string `mapstructure:"database"`
}

// LoadCredentials reads a JSON credential file.
func LoadCredentials(path string) (*Credentials, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrInvalidCredentials, path, err)
	}

	var c Credentials
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", ErrInvalidCredentials, path, err)
	}
	if c.Type != ServiceAccountType {
		return nil, fmt.Errorf("%w: type must be %q, got %q", ErrInvalidCredentials, ServiceAccountType, c.Type)
	}
	if c.ProjectID == "" {
		return nil, fmt.Errorf("%w: project_id is required", ErrInvalidCredentials)
	}
	return &c, nil
}

// DatabasePath returns the store file for the credential's deployment.
// Relative paths resolve against dir.
func (c *Credentials) DatabasePath(dir string) string {
	p := c.Database
	if p == "" {
		p = c.ProjectID + ".db"
	}
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(dir, p)
}
