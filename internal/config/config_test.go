package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	if cfg.NSWBaseURL != "https://api.onegov.nsw.gov.au" {
		t.Errorf("unexpected default base URL: %s", cfg.NSWBaseURL)
	}
	if cfg.HTTPTimeout != 30*time.Second {
		t.Errorf("unexpected default timeout: %s", cfg.HTTPTimeout)
	}
	if cfg.Port != "8080" {
		t.Errorf("unexpected default port: %s", cfg.Port)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("NSW_API_BASE_URL", "https://example.test")
	t.Setenv("HTTP_TIMEOUT_SECONDS", "10")
	t.Setenv("NSW_AUTH_HEADER", "Basic abc")
	t.Setenv("NSW_API_KEY", "key123")

	cfg := Load()
	if cfg.NSWBaseURL != "https://example.test" {
		t.Errorf("env override not applied: %s", cfg.NSWBaseURL)
	}
	if cfg.HTTPTimeout != 10*time.Second {
		t.Errorf("timeout override not applied: %s", cfg.HTTPTimeout)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() failed with credentials set: %v", err)
	}
}

func TestValidate_MissingCredentials(t *testing.T) {
	cfg := &Config{}
	if err := cfg.Validate(); err == nil {
		t.Error("expected Validate() to fail without credentials")
	}
}
