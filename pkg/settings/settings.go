// Package settings loads the buildplan tool configuration.
package settings

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/buildplan/buildplan/pkg/telemetry"
)

// DefaultFile is read from the working directory when no settings file is
// named.
const DefaultFile = "buildplan.yaml"

// Settings is the tool configuration. Command flags override it.
type Settings struct {
	// Catalog is the plugin catalog file. Empty uses the built-in catalog.
	Catalog string `yaml:"catalog"`

	// Keystores is the signing identity inventory. Empty means only the
	// implicit debug identity exists.
	Keystores string `yaml:"keystores"`

	// Policies are Rego files or directories loaded in addition to the
	// built-in policies.
	Policies []string `yaml:"policies" validate:"dive,required"`

	// DisabledPolicies names policies to switch off, built-ins included.
	DisabledPolicies []string `yaml:"disabled_policies" validate:"dive,required"`

	// Format is the default plan format.
	Format string `yaml:"format" validate:"omitempty,oneof=json yaml yml"`

	// Parallelism bounds concurrent variant resolution. 0 or 1 is sequential.
	Parallelism int `yaml:"parallelism" validate:"gte=0,lte=64"`

	// History is the SQLite run history database. Empty disables history.
	History string `yaml:"history"`

	Logging telemetry.LoggingConfig `yaml:"logging"`
	Tracing telemetry.TracingConfig `yaml:"tracing"`
	Metrics MetricsSettings         `yaml:"metrics"`
}

// MetricsSettings configures the metrics textfile.
type MetricsSettings struct {
	// Textfile receives Prometheus metrics when a run finishes.
	Textfile string `yaml:"textfile"`
}

// Default returns the settings used when no file is given.
func Default() *Settings {
	tc := telemetry.DefaultConfig()
	return &Settings{
		Format:      "json",
		Parallelism: 1,
		Logging:     tc.Logging,
		Tracing:     tc.Tracing,
	}
}

// Load reads a settings file on top of the defaults. A missing file is an
// error; callers that treat the file as optional check os.ErrNotExist.
func Load(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read settings: %w", err)
	}
	return Parse(data)
}

// Parse decodes settings from YAML on top of the defaults.
func Parse(data []byte) (*Settings, error) {
	s := Default()
	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("failed to parse settings YAML: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// LoadOptional behaves like Load but returns the defaults when path is empty
// or the file does not exist.
func LoadOptional(path string) (*Settings, error) {
	if path == "" {
		return Default(), nil
	}
	s, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return s, err
}

// Validate checks field constraints and the telemetry configuration.
func (s *Settings) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.Struct(s); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}
	if err := s.Telemetry().Validate(); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}
	return nil
}

// Telemetry builds the telemetry configuration these settings describe.
func (s *Settings) Telemetry() *telemetry.Config {
	cfg := telemetry.DefaultConfig()
	cfg.Logging = s.Logging
	cfg.Tracing = s.Tracing
	cfg.Metrics.Textfile = s.Metrics.Textfile
	return cfg
}
