// Package config provides configuration loading and validation for the report generator.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Report kinds
const (
	KindStandard   = "standard"
	KindCompany    = "company"
	KindComparison = "comparison"
	KindIndividual = "individual"
	KindInvoice    = "invoice"
)

// Kinds lists the report kinds in a stable order
var Kinds = []string{KindStandard, KindCompany, KindComparison, KindIndividual, KindInvoice}

// Environment variables that override file settings
const (
	EnvBaseURL    = "REPORT_API_BASE_URL"
	EnvToken      = "REPORT_API_TOKEN"
	EnvArchiveDSN = "ARCHIVE_DSN"
)

// Config represents the main configuration structure
type Config struct {
	General    GeneralConfig    `toml:"general" yaml:"general"`
	API        APIConfig        `toml:"api" yaml:"api"`
	Validation ValidationConfig `toml:"validation" yaml:"validation"`
	Archive    ArchiveConfig    `toml:"archive" yaml:"archive"`
	Logo       LogoConfig       `toml:"logo" yaml:"logo"`
	Server     ServerConfig     `toml:"server" yaml:"server"`
	Reports    []ReportConfig   `toml:"reports" yaml:"reports" validate:"dive"`
}

// GeneralConfig contains general settings
type GeneralConfig struct {
	Concurrency int      `toml:"concurrency" yaml:"concurrency" validate:"gte=1"`
	Timeout     string   `toml:"timeout" yaml:"timeout"`
	OutputDir   string   `toml:"output_dir" yaml:"output_dir"`
	Formats     []string `toml:"formats" yaml:"formats" validate:"dive,oneof=html md json"`
}

// APIConfig describes the report API
type APIConfig struct {
	BaseURL string `toml:"base_url" yaml:"base_url" validate:"omitempty,url"`
	Token   string `toml:"token,omitempty" yaml:"token,omitempty"`
	// MaxRetries is a pointer so an explicit 0 disables retries.
	MaxRetries    *int    `toml:"max_retries,omitempty" yaml:"max_retries,omitempty" validate:"omitempty,gte=0"`
	RatePerSecond float64 `toml:"rate_per_second" yaml:"rate_per_second" validate:"gte=0"`
	Burst         int     `toml:"burst" yaml:"burst" validate:"gte=0"`
}

// ValidationConfig selects how bad metric values are treated
type ValidationConfig struct {
	Mode string `toml:"mode" yaml:"mode" validate:"omitempty,oneof=lenient strict"`
}

// ArchiveConfig configures the snapshot archive. An empty DSN disables it.
type ArchiveConfig struct {
	Driver string `toml:"driver" yaml:"driver" validate:"omitempty,oneof=sqlite postgres"`
	DSN    string `toml:"dsn,omitempty" yaml:"dsn,omitempty"`
}

// LogoConfig configures the company logo lookup
type LogoConfig struct {
	Enabled   bool   `toml:"enabled" yaml:"enabled"`
	Timeout   string `toml:"timeout" yaml:"timeout"`
	UserAgent string `toml:"user_agent,omitempty" yaml:"user_agent,omitempty"`
}

// ServerConfig configures the HTTP service
type ServerConfig struct {
	Addr string `toml:"addr" yaml:"addr"`
}

// ReportConfig is one report rendered by a batch run
type ReportConfig struct {
	Kind string `toml:"kind" yaml:"kind" validate:"required,oneof=standard company comparison individual invoice"`
	ID   string `toml:"id,omitempty" yaml:"id,omitempty"`
	Name string `toml:"name,omitempty" yaml:"name,omitempty"`
	// Input is the JSON file an invoice is read from.
	Input string `toml:"input,omitempty" yaml:"input,omitempty"`
}

// Label returns the report name, or kind/id when unnamed
func (r ReportConfig) Label() string {
	if r.Name != "" {
		return r.Name
	}
	if r.ID != "" {
		return r.Kind + "/" + r.ID
	}
	return r.Kind
}

// TimeoutDuration parses the timeout string into a Duration
func (g GeneralConfig) TimeoutDuration() time.Duration {
	d, err := time.ParseDuration(g.Timeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// TimeoutDuration parses the logo crawl timeout
func (l LogoConfig) TimeoutDuration() time.Duration {
	d, err := time.ParseDuration(l.Timeout)
	if err != nil {
		return 5 * time.Second
	}
	return d
}

// Retries returns the configured retry count, defaulting to 3
func (a APIConfig) Retries() int {
	if a.MaxRetries == nil {
		return 3
	}
	return *a.MaxRetries
}

// Default returns a configuration with every default applied
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.General.Concurrency <= 0 {
		c.General.Concurrency = 4
	}
	if c.General.Timeout == "" {
		c.General.Timeout = "30s"
	}
	if c.General.OutputDir == "" {
		c.General.OutputDir = "./reports"
	}
	if len(c.General.Formats) == 0 {
		c.General.Formats = []string{"html", "md", "json"}
	}
	if c.Validation.Mode == "" {
		c.Validation.Mode = "lenient"
	}
	if c.Archive.Driver == "" {
		c.Archive.Driver = "sqlite"
	}
	if c.Logo.Timeout == "" {
		c.Logo.Timeout = "5s"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.API.Burst == 0 {
		c.API.Burst = 1
	}
}

// ApplyEnv overrides the API and archive settings from the environment
func (c *Config) ApplyEnv() {
	if v := strings.TrimSpace(os.Getenv(EnvBaseURL)); v != "" {
		c.API.BaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvToken)); v != "" {
		c.API.Token = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvArchiveDSN)); v != "" {
		c.Archive.DSN = v
	}
}

// Validate checks field constraints and report entries
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return fmt.Errorf("invalid configuration: %s failed on '%s' (value %v)", fe.Namespace(), fe.Tag(), fe.Value())
		}
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if _, err := time.ParseDuration(c.General.Timeout); err != nil {
		return fmt.Errorf("invalid general.timeout %q: %w", c.General.Timeout, err)
	}

	for i, r := range c.Reports {
		if r.Kind == KindInvoice {
			if r.Input == "" {
				return fmt.Errorf("report at index %d of kind 'invoice' requires an input file", i)
			}
			if err := validatePath(r.Input); err != nil {
				return fmt.Errorf("report '%s': %w", r.Label(), err)
			}
			continue
		}
		if strings.TrimSpace(r.ID) == "" {
			return fmt.Errorf("report at index %d of kind '%s' requires an id", i, r.Kind)
		}
	}
	return nil
}

// validatePath checks for path traversal attempts
func validatePath(path string) error {
	cleanPath := filepath.Clean(path)

	// Reject paths that climb above the working directory
	if strings.HasPrefix(cleanPath, "..") || strings.Contains(cleanPath, "../") {
		return fmt.Errorf("path contains invalid traversal sequence: %s", path)
	}

	return nil
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// Load reads a TOML (or YAML, by extension) configuration file, applies
// defaults and environment overrides, and validates the result.
func Load(path string) (*Config, error) {
	if err := validatePath(path); err != nil {
		return nil, fmt.Errorf("invalid config path: %w", err)
	}

	// #nosec G304 - Path validated above, this is intentional file inclusion
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if isYAML(path) {
		err = yaml.Unmarshal(data, &cfg)
	} else {
		err = toml.Unmarshal(data, &cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyDefaults()
	cfg.ApplyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes the configuration to a TOML file
func (c *Config) Save(path string) error {
	if err := validatePath(path); err != nil {
		return fmt.Errorf("invalid config path: %w", err)
	}

	// #nosec G304 - Path validated above, this is intentional file creation
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	encoder := toml.NewEncoder(f)
	return encoder.Encode(c)
}
