// Package config loads the intake server configuration.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/gabrielmiguelok/intakewizard/pkg/logging"
)

// Config is the full server configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Analysis   AnalysisConfig   `yaml:"analysis"`
	OTP        OTPConfig        `yaml:"otp"`
	Scheduling SchedulingConfig `yaml:"scheduling"`
	Logging    LoggingConfig    `yaml:"logging"`
	Audit      AuditConfig      `yaml:"audit"`

	// SupportEmail is offered on the error panel.
	SupportEmail string `yaml:"support_email"`
}

// ServerConfig configures the HTTP and live surface.
type ServerConfig struct {
	Addr            string  `yaml:"addr"`
	MaxConnections  int     `yaml:"max_connections"`
	EventsPerSecond float64 `yaml:"events_per_second"`
	EventBurst      int     `yaml:"event_burst"`
	RequestsPerSec  float64 `yaml:"requests_per_second"`
	RequestBurst    int     `yaml:"request_burst"`
	SessionTTL      string  `yaml:"session_ttl"`
	IdleTimeout     string  `yaml:"idle_timeout"`
	ShutdownTimeout string  `yaml:"shutdown_timeout"`
}

// AnalysisConfig points at the submission endpoint.
type AnalysisConfig struct {
	BaseURL string `yaml:"base_url"`
	Timeout string `yaml:"timeout"`
}

// OTPConfig points at the email verification provider.
type OTPConfig struct {
	BaseURL        string `yaml:"base_url"`
	APIKey         string `yaml:"api_key"`
	ResendCooldown string `yaml:"resend_cooldown"`
}

// SchedulingConfig configures the embedded booking widget.
type SchedulingConfig struct {
	URL string `yaml:"url"`
}

// LoggingConfig configures the process logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}

// AuditConfig configures the verification and submission audit trail.
type AuditConfig struct {
	// Path is the file events are appended to. Empty disables auditing.
	Path string `yaml:"path"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":3000",
			MaxConnections:  10000,
			EventsPerSecond: 20,
			EventBurst:      40,
			RequestsPerSec:  50,
			RequestBurst:    100,
			SessionTTL:      "24h",
			IdleTimeout:     "30m",
			ShutdownTimeout: "30s",
		},
		Analysis: AnalysisConfig{
			BaseURL: "http://localhost:8080",
			Timeout: "30s",
		},
		OTP: OTPConfig{
			BaseURL:        "http://localhost:8081",
			ResendCooldown: "30s",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads configuration from a YAML file on top of the defaults.
// A missing file yields the defaults. Environment overrides apply last.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
		case err != nil:
			return nil, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("INTAKE_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("INTAKE_ANALYSIS_URL"); v != "" {
		c.Analysis.BaseURL = v
	}
	if v := os.Getenv("INTAKE_OTP_URL"); v != "" {
		c.OTP.BaseURL = v
	}
	if v := os.Getenv("INTAKE_OTP_API_KEY"); v != "" {
		c.OTP.APIKey = v
	}
	if v := os.Getenv("INTAKE_SCHEDULING_URL"); v != "" {
		c.Scheduling.URL = v
	}
	if v := os.Getenv("INTAKE_SUPPORT_EMAIL"); v != "" {
		c.SupportEmail = v
	}
	if v := os.Getenv("INTAKE_AUDIT_PATH"); v != "" {
		c.Audit.Path = v
	}
	if v := os.Getenv("INTAKE_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("INTAKE_LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return ErrAddrRequired
	}
	if c.Server.MaxConnections <= 0 {
		return ErrInvalidMaxConnections
	}
	if c.Server.EventsPerSecond <= 0 || c.Server.EventBurst <= 0 {
		return ErrInvalidEventRate
	}
	if c.Server.RequestsPerSec <= 0 || c.Server.RequestBurst <= 0 {
		return ErrInvalidRequestRate
	}
	if err := checkURL("analysis.base_url", c.Analysis.BaseURL); err != nil {
		return err
	}
	if err := checkURL("otp.base_url", c.OTP.BaseURL); err != nil {
		return err
	}
	if c.Scheduling.URL != "" {
		if err := checkURL("scheduling.url", c.Scheduling.URL); err != nil {
			return err
		}
	}
	for name, v := range map[string]string{
		"server.session_ttl":      c.Server.SessionTTL,
		"server.idle_timeout":     c.Server.IdleTimeout,
		"server.shutdown_timeout": c.Server.ShutdownTimeout,
		"analysis.timeout":        c.Analysis.Timeout,
		"otp.resend_cooldown":     c.OTP.ResendCooldown,
	} {
		if d, err := time.ParseDuration(v); err != nil || d <= 0 {
			return &FieldError{Field: name, Value: v, Err: ErrInvalidDuration}
		}
	}
	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		return &FieldError{Field: "logging.level", Value: c.Logging.Level, Err: err}
	}
	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
	default:
		return &FieldError{Field: "logging.format", Value: c.Logging.Format, Err: ErrInvalidLogFormat}
	}
	return nil
}

func checkURL(field, raw string) error {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return &FieldError{Field: field, Value: raw, Err: ErrInvalidURL}
	}
	return nil
}

// SessionTTL is how long a wizard snapshot survives without activity.
func (c *Config) SessionTTL() time.Duration {
	return duration(c.Server.SessionTTL, 24*time.Hour)
}

// IdleTimeout is how long a live connection may stay silent before it is reaped.
func (c *Config) IdleTimeout() time.Duration {
	return duration(c.Server.IdleTimeout, 30*time.Minute)
}

// ShutdownTimeout bounds graceful shutdown.
func (c *Config) ShutdownTimeout() time.Duration {
	return duration(c.Server.ShutdownTimeout, 30*time.Second)
}

// AnalysisTimeout bounds one submission.
func (c *Config) AnalysisTimeout() time.Duration {
	return duration(c.Analysis.Timeout, 30*time.Second)
}

// ResendCooldown is the minimum gap between verification emails.
func (c *Config) ResendCooldown() time.Duration {
	return duration(c.OTP.ResendCooldown, 30*time.Second)
}

// FrameSources lists the origins the page may embed, derived from the
// scheduling URL.
func (c *Config) FrameSources() []string {
	if c.Scheduling.URL == "" {
		return nil
	}
	u, err := url.Parse(c.Scheduling.URL)
	if err != nil || u.Host == "" {
		return nil
	}
	return []string{u.Scheme + "://" + u.Host}
}

// Logger builds the process logger.
func (c *Config) Logger() (*logging.SlogLogger, error) {
	level, err := logging.ParseLevel(c.Logging.Level)
	if err != nil {
		return nil, err
	}
	opts := []logging.LoggerOption{logging.WithOutput(os.Stderr), logging.WithLevel(level)}
	if strings.EqualFold(c.Logging.Format, "json") {
		opts = append(opts, logging.WithJSON())
	}
	return logging.NewSlogLogger(opts...), nil
}

func duration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// Configuration errors.
var (
	ErrAddrRequired          = configError("server.addr is required")
	ErrInvalidMaxConnections = configError("server.max_connections must be positive")
	ErrInvalidEventRate      = configError("server event rate and burst must be positive")
	ErrInvalidRequestRate    = configError("server request rate and burst must be positive")
	ErrInvalidURL            = configError("must be an absolute http(s) URL")
	ErrInvalidDuration       = configError("must be a positive duration")
	ErrInvalidLogFormat      = configError("must be text or json")
)

type configError string

func (e configError) Error() string { return string(e) }

// FieldError reports an invalid value for one setting.
type FieldError struct {
	Field string
	Value string
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s %q: %v", e.Field, e.Value, e.Err)
}

func (e *FieldError) Unwrap() error { return e.Err }
