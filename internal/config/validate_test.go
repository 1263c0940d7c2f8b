package config

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func containsError(errs []string, substr string) bool {
	for _, e := range errs {
		if strings.Contains(e, substr) {
			return true
		}
	}
	return false
}

func TestValidate_MinimalValid(t *testing.T) {
	cfg := &Config{
		MediaServer: &MediaServerConfig{
			URL:    "http://localhost:8096",
			APIKey: "key",
		},
	}
	errs := cfg.Validate()
	assert.Empty(t, errs, "expected no errors for minimal valid config")
}

func TestValidate_InvalidPort(t *testing.T) {
	cfg := &Config{Server: ServerConfig{Port: 99999}}
	errs := cfg.Validate()
	assert.True(t, containsError(errs, "server.port"), "expected port error, got %v", errs)
}

func TestValidate_InvalidLogLevel(t *testing.T) {
	cfg := &Config{Server: ServerConfig{LogLevel: "verbose"}}
	errs := cfg.Validate()
	assert.True(t, containsError(errs, "log_level"), "expected log_level error, got %v", errs)
}

func TestValidate_MediaServerMissingAPIKey(t *testing.T) {
	cfg := &Config{MediaServer: &MediaServerConfig{URL: "http://localhost:8096"}}
	errs := cfg.Validate()
	assert.True(t, containsError(errs, "mediaserver.api_key"), "expected api_key error, got %v", errs)
}

func TestValidate_CatalogMissingAPIKey(t *testing.T) {
	cfg := &Config{Catalog: &CatalogConfig{}}
	errs := cfg.Validate()
	assert.True(t, containsError(errs, "catalog.api_key"), "expected api_key error, got %v", errs)

	// URL is optional; the client falls back to the public endpoint.
	cfg.Catalog.APIKey = "key"
	assert.Empty(t, cfg.Validate())
}

func TestValidate_AutomationMissingRootFolder(t *testing.T) {
	cfg := &Config{
		SeriesAutomation: &AutomationConfig{
			URL:    "http://localhost:8989",
			APIKey: "key",
		},
	}
	errs := cfg.Validate()
	assert.True(t, containsError(errs, "series_automation.root_folder"), "expected root_folder error, got %v", errs)
}

func TestValidate_NegativeQuota(t *testing.T) {
	cfg := &Config{Quota: QuotaConfig{MovieLimit: -1}}
	errs := cfg.Validate()
	assert.True(t, containsError(errs, "quota"), "expected quota error, got %v", errs)
}

func TestValidate_QuotaWindowRequiredWithLimit(t *testing.T) {
	cfg := &Config{Quota: QuotaConfig{MovieLimit: 5}}
	errs := cfg.Validate()
	assert.True(t, containsError(errs, "quota.movie_days"), "expected movie_days error, got %v", errs)
}

func TestValidate_SweepInterval(t *testing.T) {
	cfg := &Config{Sweep: SweepConfig{Enabled: true}}
	errs := cfg.Validate()
	assert.True(t, containsError(errs, "sweep.interval_minutes"), "expected sweep error, got %v", errs)
}
