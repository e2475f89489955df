// Package config handles the YAML config file of the docgate binary.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/broady/docgate/backend"
	"github.com/broady/docgate/middleware"
)

// Config is the top-level gateway configuration.
type Config struct {
	Addr               string                 `yaml:"addr"`
	LogLevel           string                 `yaml:"log_level"`
	LogFormat          string                 `yaml:"log_format"`
	MaxRequestBodySize uint64                 `yaml:"max_request_body_size"`
	MaskInternalErrors bool                   `yaml:"mask_internal_errors"`
	MetricsPath        string                 `yaml:"metrics_path"`
	RequestTimeout     Duration               `yaml:"request_timeout"`
	CORS               *middleware.CORSConfig `yaml:"cors,omitempty"`
	Backend            Backend                `yaml:"backend"`
}

// Backend selects the Caller requests are forwarded to.
type Backend struct {
	// Kind is "echo" or "http".
	Kind    string   `yaml:"kind"`
	URL     string   `yaml:"url"`
	Codec   string   `yaml:"codec"`
	Timeout Duration `yaml:"timeout"`
}

// Backend kinds.
const (
	BackendEcho = "echo"
	BackendHTTP = "http"
)

// Duration wraps time.Duration for YAML string parsing (e.g. "10s", "5m").
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses a duration string like "10s" or "5m30s".
func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	if s == "" {
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}

// MarshalYAML writes the duration in its string form.
func (d Duration) MarshalYAML() (any, error) {
	return d.String(), nil
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Addr:               ":8080",
		LogLevel:           "info",
		LogFormat:          "json",
		MaxRequestBodySize: 1 << 20,
		MetricsPath:        "/metrics",
		Backend: Backend{
			Kind:    BackendEcho,
			Codec:   "json",
			Timeout: Duration{30 * time.Second},
		},
	}
}

// Validate checks the configuration and reports every problem at once.
func (c *Config) Validate() error {
	var errs []error

	if c.Addr == "" {
		errs = append(errs, errors.New("addr must not be empty"))
	}
	if _, err := c.SlogLevel(); err != nil {
		errs = append(errs, err)
	}
	switch c.LogFormat {
	case "json", "text":
	default:
		errs = append(errs, fmt.Errorf("log_format must be json or text, got %q", c.LogFormat))
	}
	if c.MetricsPath != "" && !strings.HasPrefix(c.MetricsPath, "/") {
		errs = append(errs, fmt.Errorf("metrics_path must start with /, got %q", c.MetricsPath))
	}
	if c.RequestTimeout.Duration < 0 {
		errs = append(errs, errors.New("request_timeout must not be negative"))
	}

	switch c.Backend.Kind {
	case BackendEcho:
	case BackendHTTP:
		if c.Backend.URL == "" {
			errs = append(errs, errors.New("backend.url is required for the http backend"))
		} else if u, err := url.Parse(c.Backend.URL); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			errs = append(errs, fmt.Errorf("backend.url must be an http(s) URL, got %q", c.Backend.URL))
		}
	default:
		errs = append(errs, fmt.Errorf("backend.kind must be echo or http, got %q", c.Backend.Kind))
	}
	if _, err := backend.CodecByName(c.Backend.Codec); err != nil {
		errs = append(errs, fmt.Errorf("backend.codec: %w", err))
	}
	if c.Backend.Timeout.Duration < 0 {
		errs = append(errs, errors.New("backend.timeout must not be negative"))
	}

	return errors.Join(errs...)
}

// SlogLevel parses LogLevel.
func (c *Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("log_level: %w", err)
	}
	return level, nil
}
