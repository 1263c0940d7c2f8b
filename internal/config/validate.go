package config

import "fmt"

var validLogLevels = map[string]bool{
	"debug": true, "info": true, "warn": true, "error": true, "": true,
}

// Validate checks the configuration for errors.
// Returns a slice of error messages (empty if valid).
func (c *Config) Validate() []string {
	var errs []string

	if c.Server.Port != 0 && (c.Server.Port < 1 || c.Server.Port > 65535) {
		errs = append(errs, fmt.Sprintf("server.port: must be between 1 and 65535, got %d", c.Server.Port))
	}
	if !validLogLevels[c.Server.LogLevel] {
		errs = append(errs, fmt.Sprintf("server.log_level: must be one of debug, info, warn, error; got %q", c.Server.LogLevel))
	}

	if c.MediaServer != nil {
		if c.MediaServer.URL == "" {
			errs = append(errs, "mediaserver.url: required when mediaserver is configured")
		}
		if c.MediaServer.APIKey == "" {
			errs = append(errs, "mediaserver.api_key: required when mediaserver is configured")
		}
		if c.MediaServer.RateLimit < 0 {
			errs = append(errs, fmt.Sprintf("mediaserver.rate_limit: must not be negative, got %d", c.MediaServer.RateLimit))
		}
	}

	// Catalog URL is optional; the client defaults to the public API.
	if c.Catalog != nil && c.Catalog.APIKey == "" {
		errs = append(errs, "catalog.api_key: required when catalog is configured")
	}

	for name, a := range map[string]*AutomationConfig{
		"series_automation": c.SeriesAutomation,
		"movie_automation":  c.MovieAutomation,
	} {
		if a == nil {
			continue
		}
		if a.URL == "" {
			errs = append(errs, fmt.Sprintf("%s.url: required when %s is configured", name, name))
		}
		if a.APIKey == "" {
			errs = append(errs, fmt.Sprintf("%s.api_key: required when %s is configured", name, name))
		}
		if a.RootFolder == "" {
			errs = append(errs, fmt.Sprintf("%s.root_folder: required when %s is configured", name, name))
		}
	}

	if c.Quota.MovieLimit < 0 || c.Quota.TVLimit < 0 {
		errs = append(errs, "quota: limits must not be negative")
	}
	if c.Quota.MovieLimit > 0 && c.Quota.MovieDays < 1 {
		errs = append(errs, "quota.movie_days: must be at least 1 when movie_limit is set")
	}
	if c.Quota.TVLimit > 0 && c.Quota.TVDays < 1 {
		errs = append(errs, "quota.tv_days: must be at least 1 when tv_limit is set")
	}

	if c.Calendar.SourceTimeoutSeconds < 0 {
		errs = append(errs, fmt.Sprintf("calendar.source_timeout_seconds: must not be negative, got %d", c.Calendar.SourceTimeoutSeconds))
	}
	if c.Sweep.Enabled && c.Sweep.IntervalMinutes < 1 {
		errs = append(errs, fmt.Sprintf("sweep.interval_minutes: must be at least 1, got %d", c.Sweep.IntervalMinutes))
	}

	return errs
}
