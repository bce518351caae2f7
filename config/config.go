// Package config loads docforge settings from YAML files, .env files and the
// environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"

	"github.com/lvillar/docforge/export"
	"github.com/lvillar/docforge/media"
)

// Default values applied when a setting is left empty.
const (
	DefaultPort           = 8080
	DefaultMode           = "release"
	DefaultLogLevel       = "info"
	DefaultLogFormat      = "json"
	DefaultPageSize       = "A4"
	DefaultSessionTTL     = 24 * time.Hour
	DefaultSweepInterval  = 10 * time.Minute
	DefaultMaxUploadBytes = media.DefaultMaxBytes
)

// Environment variables that override file settings.
const (
	EnvPort        = "DOCFORGE_PORT"
	EnvCompanyName = "DOCFORGE_COMPANY_NAME"
	EnvLogLevel    = "LOG_LEVEL"
)

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("invalid configuration")

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	if err := v.RegisterValidation("duration", func(fl validator.FieldLevel) bool {
		d, err := time.ParseDuration(fl.Field().String())
		return err == nil && d > 0
	}); err != nil {
		panic(err)
	}
	return v
}

// Config is the complete docforge configuration.
type Config struct {
	Server  ServerConfig  `yaml:"Server"`
	Logging LoggingConfig `yaml:"Logging"`
	Export  ExportConfig  `yaml:"Export"`
	Session SessionConfig `yaml:"Session"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	// Port is the port the HTTP API listens on.
	Port int `yaml:"Port" validate:"min=1,max=65535"`

	// Mode is the gin mode: debug, release or test.
	Mode string `yaml:"Mode" validate:"oneof=debug release test"`

	// MaxUploadBytes limits logo and image uploads.
	MaxUploadBytes int64 `yaml:"MaxUploadBytes" validate:"min=1"`
}

// LoggingConfig configures the logger.
type LoggingConfig struct {
	Level  string `yaml:"Level" validate:"oneof=debug info warn error"`
	Format string `yaml:"Format" validate:"oneof=json console"`
}

// ExportConfig configures the export pipeline.
type ExportConfig struct {
	// CompanyName appears in the DOCX copyright footer.
	CompanyName string `yaml:"CompanyName" validate:"required"`

	// PageSize is A4, Letter or Legal.
	PageSize string `yaml:"PageSize" validate:"oneof=A4 Letter Legal"`

	// DisableCompression writes uncompressed PDF streams.
	DisableCompression bool `yaml:"DisableCompression"`
}

// SessionConfig configures the in-memory session store.
type SessionConfig struct {
	// TTL is how long an idle session is kept, e.g. "24h".
	TTL string `yaml:"TTL" validate:"duration"`

	// SweepInterval is how often expired sessions are removed.
	SweepInterval string `yaml:"SweepInterval" validate:"duration"`
}

// NewConfig returns a Config with reasonable defaults for every setting.
func NewConfig() *Config {
	conf := &Config{}
	conf.ensureDefaultValue()
	return conf
}

// NewConfigFromFile returns the Config read from the YAML file at path, with
// defaults filled in for every setting the file leaves out.
func NewConfigFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	conf := &Config{}
	if err := yaml.UnmarshalStrict(data, conf); err != nil {
		return nil, fmt.Errorf("unmarshal config file: %w", err)
	}
	conf.ensureDefaultValue()
	return conf, nil
}

// Load reads the config file at path, or the defaults when path is empty,
// after loading any .env files, then applies environment overrides and
// validates the result.
func Load(path string, envFiles ...string) (*Config, error) {
	if err := loadEnvFiles(envFiles); err != nil {
		return nil, err
	}

	conf := NewConfig()
	if path != "" {
		var err error
		if conf, err = NewConfigFromFile(path); err != nil {
			return nil, err
		}
	}
	if err := conf.ApplyEnv(); err != nil {
		return nil, err
	}
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	return conf, nil
}

func loadEnvFiles(files []string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("load env file %s: %w", f, err)
		}
	}
	return nil
}

// ApplyEnv overrides settings from the environment.
func (c *Config) ApplyEnv() error {
	if v := os.Getenv(EnvPort); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s=%q: %w", EnvPort, v, ErrInvalidConfig)
		}
		c.Server.Port = port
	}
	if v := os.Getenv(EnvCompanyName); v != "" {
		c.Export.CompanyName = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Logging.Level = v
	}
	return nil
}

// Validate returns an error if any setting is out of range.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%v: %w", err, ErrInvalidConfig)
	}
	return nil
}

// SessionTTL returns the parsed session TTL.
func (c *Config) SessionTTL() time.Duration {
	return parseDuration(c.Session.TTL, DefaultSessionTTL)
}

// SweepInterval returns the parsed session sweep interval.
func (c *Config) SweepInterval() time.Duration {
	return parseDuration(c.Session.SweepInterval, DefaultSweepInterval)
}

// ExportOptions returns the export options described by the config.
func (c *Config) ExportOptions() []export.Option {
	return []export.Option{
		export.WithCompanyName(c.Export.CompanyName),
		export.WithPageSize(c.Export.PageSize),
		export.WithCompression(!c.Export.DisableCompression),
	}
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// ensureDefaultValue sets the value of every setting the user left empty.
func (c *Config) ensureDefaultValue() {
	if c.Server.Port == 0 {
		c.Server.Port = DefaultPort
	}
	if c.Server.Mode == "" {
		c.Server.Mode = DefaultMode
	}
	if c.Server.MaxUploadBytes == 0 {
		c.Server.MaxUploadBytes = DefaultMaxUploadBytes
	}

	if c.Logging.Level == "" {
		c.Logging.Level = DefaultLogLevel
	}
	if c.Logging.Format == "" {
		c.Logging.Format = DefaultLogFormat
	}

	if c.Export.CompanyName == "" {
		c.Export.CompanyName = export.DefaultCompanyName
	}
	if c.Export.PageSize == "" {
		c.Export.PageSize = DefaultPageSize
	}

	if c.Session.TTL == "" {
		c.Session.TTL = DefaultSessionTTL.String()
	}
	if c.Session.SweepInterval == "" {
		c.Session.SweepInterval = DefaultSweepInterval.String()
	}
}
