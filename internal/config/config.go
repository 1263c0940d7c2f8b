// Package config handles TOML configuration loading with environment
// variable substitution.
package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config is the root configuration structure.
type Config struct {
	Server           ServerConfig       `toml:"server"`
	Database         DatabaseConfig     `toml:"database"`
	MediaServer      *MediaServerConfig `toml:"mediaserver"`
	Catalog          *CatalogConfig     `toml:"catalog"`
	SeriesAutomation *AutomationConfig  `toml:"series_automation"`
	MovieAutomation  *AutomationConfig  `toml:"movie_automation"`
	Quota            QuotaConfig        `toml:"quota"`
	Calendar         CalendarConfig     `toml:"calendar"`
	Sweep            SweepConfig        `toml:"sweep"`
}

type ServerConfig struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	LogLevel string `toml:"log_level"`
}

type DatabaseConfig struct {
	Path string `toml:"path"`
}

// MediaServerConfig points at the Jellyfin-compatible server the library
// lives on. RateLimit bounds how hard availability checks may hit it.
type MediaServerConfig struct {
	URL       string `toml:"url"`
	APIKey    string `toml:"api_key"`
	RateLimit int    `toml:"rate_limit"`
	RateBurst int    `toml:"rate_burst"`
}

type CatalogConfig struct {
	URL    string `toml:"url"`
	APIKey string `toml:"api_key"`
}

// AutomationConfig configures one of the two downstream acquisition
// services: one instance handles series, the other movies.
type AutomationConfig struct {
	URL              string `toml:"url"`
	APIKey           string `toml:"api_key"`
	QualityProfileID int    `toml:"quality_profile_id"`
	RootFolder       string `toml:"root_folder"`
}

// QuotaConfig sets rolling per-user request limits. A limit of 0 means
// unlimited.
type QuotaConfig struct {
	MovieLimit int `toml:"movie_limit"`
	MovieDays  int `toml:"movie_days"`
	TVLimit    int `toml:"tv_limit"`
	TVDays     int `toml:"tv_days"`
}

type CalendarConfig struct {
	SourceTimeoutSeconds int `toml:"source_timeout_seconds"`
}

// SweepConfig controls the background job that promotes requests to
// available once their files show up in the library.
type SweepConfig struct {
	Enabled         bool `toml:"enabled"`
	IntervalMinutes int  `toml:"interval_minutes"`
}

// ConfigError aggregates everything wrong with a config file so the
// operator sees all problems in one pass instead of one per restart.
type ConfigError struct {
	Path    string   // Config file path
	Missing []string // Unresolved environment variables
	Errors  []string // Validation errors
}

func (e *ConfigError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing environment variables: "+strings.Join(e.Missing, ", "))
	}
	for _, msg := range e.Errors {
		parts = append(parts, "invalid "+msg)
	}
	return fmt.Sprintf("config %s: %s", e.Path, strings.Join(parts, "; "))
}

// Load reads, parses, and validates the configuration file.
// All problems are aggregated into a single *ConfigError.
func Load(path string) (*Config, error) {
	cfg, missing, err := load(path)
	if err != nil {
		return nil, err
	}

	errs := cfg.Validate()
	if len(missing) > 0 || len(errs) > 0 {
		return nil, &ConfigError{Path: path, Missing: missing, Errors: errs}
	}
	return cfg, nil
}

// LoadWithoutValidation reads and parses the configuration file, skipping
// validation and ignoring unresolved environment variables. Used by tooling
// that inspects partial configs.
func LoadWithoutValidation(path string) (*Config, error) {
	cfg, _, err := load(path)
	return cfg, err
}

func load(path string) (*Config, []string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("reading config: %w", err)
	}

	content, missing := substituteEnvVars(string(data))

	var cfg Config
	if _, err := toml.Decode(content, &cfg); err != nil {
		return nil, nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg.applyDefaults()
	return &cfg, missing, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 5055
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = "info"
	}
	if c.Database.Path == "" {
		c.Database.Path = "./data/lemedia.db"
	}
	if c.MediaServer != nil {
		if c.MediaServer.RateLimit == 0 {
			c.MediaServer.RateLimit = 10
		}
		if c.MediaServer.RateBurst == 0 {
			c.MediaServer.RateBurst = 20
		}
	}
	if c.Quota.MovieDays == 0 {
		c.Quota.MovieDays = 7
	}
	if c.Quota.TVDays == 0 {
		c.Quota.TVDays = 7
	}
	if c.Calendar.SourceTimeoutSeconds == 0 {
		c.Calendar.SourceTimeoutSeconds = 15
	}
	if c.Sweep.IntervalMinutes == 0 {
		c.Sweep.IntervalMinutes = 30
	}
}

// substituteEnvVars replaces ${VAR} with environment variable values.
// ${VAR:-default} falls back to default when VAR is unset or empty;
// ${VAR:?message} records message as the reason the variable is required.
// Unresolved references are left in place and reported in the second
// return value.
var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

func substituteEnvVars(content string) (string, []string) {
	var missing []string
	result := envVarPattern.ReplaceAllStringFunc(content, func(match string) string {
		expr := match[2 : len(match)-1] // Strip ${ and }

		name, op, arg := expr, "", ""
		if i := strings.Index(expr, ":-"); i >= 0 {
			name, op, arg = expr[:i], ":-", expr[i+2:]
		} else if i := strings.Index(expr, ":?"); i >= 0 {
			name, op, arg = expr[:i], ":?", expr[i+2:]
		}

		// Empty counts as unset so containers can pass VAR= harmlessly.
		if value := os.Getenv(name); value != "" {
			return value
		}

		switch op {
		case ":-":
			return arg
		case ":?":
			missing = append(missing, name+": "+arg)
		default:
			missing = append(missing, name)
		}
		return match
	})
	return result, missing
}
