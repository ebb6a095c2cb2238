package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/morphovis/internal/morphology"
	"github.com/starford/morphovis/internal/skeleton"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App      ApplicationConfig `yaml:"app"`
	Library  LibraryConfig     `yaml:"library"`
	SQLite   SQLiteConfig      `yaml:"sqlite"`
	Auth     AuthConfig        `yaml:"auth"`
	Analysis AnalysisConfig    `yaml:"analysis"`
	Skeleton SkeletonConfig    `yaml:"skeleton"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Library.Validate(); err != nil {
		return err
	}
	if err := c.SQLite.Validate(); err != nil {
		return err
	}
	if err := c.Auth.Validate(); err != nil {
		return err
	}
	if err := c.Analysis.Validate(); err != nil {
		return err
	}
	return c.Skeleton.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// LibraryConfig holds the path to the directory of SWC files.
type LibraryConfig struct {
	Path string `yaml:"path"`
	// Watch re-analyzes files as they change on disk.
	Watch bool `yaml:"watch"`
}

// Validate validates the library configuration.
func (c *LibraryConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// SQLiteConfig holds SQLite database configuration.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	// Normalise empty mode to "disabled" for backward compatibility.
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// AnalysisConfig controls library analysis runs.
type AnalysisConfig struct {
	// Workers bounds how many files a sync analyzes at once.
	Workers int `yaml:"workers"`
	// EventThrottle is the minimum interval between results.updated events.
	EventThrottle time.Duration `yaml:"event_throttle"`
}

// Validate validates the analysis configuration.
func (c *AnalysisConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Workers, validation.Required, validation.Min(1), validation.Max(256)),
		validation.Field(&c.EventThrottle, validation.Min(time.Duration(0))),
	)
}

// SkeletonConfig holds the default skeleton builder options.
type SkeletonConfig struct {
	skeleton.Options `yaml:",inline"`
}

// Validate validates the skeleton configuration.
func (c *SkeletonConfig) Validate() error {
	o := &c.Options
	if !o.Method.Buildable() {
		return fmt.Errorf("skeleton: method %q cannot be built", o.Method)
	}
	if err := validation.ValidateStruct(o,
		validation.Field(&o.BevelObjectSides, validation.Required, validation.Min(3)),
	); err != nil {
		return fmt.Errorf("skeleton: %w", err)
	}
	if err := validation.ValidateStruct(&o.Soma,
		validation.Field(&o.Soma.Segments, validation.Required, validation.Min(3)),
		validation.Field(&o.Soma.RadiusScaleFactor, validation.Min(float32(0))),
	); err != nil {
		return fmt.Errorf("skeleton: soma: %w", err)
	}
	if err := validation.ValidateStruct(&o.Radii,
		validation.Field(&o.Radii.ScaleFactor, validation.When(o.Radii.Method == morphology.RadiiScaled, validation.Required, validation.Min(float32(0)))),
		validation.Field(&o.Radii.UnifiedRadius, validation.When(o.Radii.Method == morphology.RadiiUnified, validation.Required, validation.Min(float32(0)))),
		validation.Field(&o.Radii.FilterThreshold, validation.Min(float32(0))),
	); err != nil {
		return fmt.Errorf("skeleton: radii: %w", err)
	}
	if err := validation.ValidateStruct(&o.Resampling,
		validation.Field(&o.Resampling.Step, validation.When(o.Resampling.Method == morphology.ResampleFixedStep, validation.Required, validation.Min(float32(0)))),
	); err != nil {
		return fmt.Errorf("skeleton: resampling: %w", err)
	}
	return nil
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Library: LibraryConfig{
			Path:  "./library",
			Watch: true,
		},
		SQLite: SQLiteConfig{
			Path: "./morphovis.db",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		Analysis: AnalysisConfig{
			Workers:       4,
			EventThrottle: 2 * time.Second,
		},
		Skeleton: SkeletonConfig{Options: skeleton.DefaultOptions()},
	}
}
