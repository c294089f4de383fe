package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("loopwalk-test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("expected port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Routing.Profile != "foot" {
		t.Errorf("expected foot profile, got %s", cfg.Routing.Profile)
	}
	if cfg.Search.Tolerance != 0.10 {
		t.Errorf("expected tolerance 0.10, got %g", cfg.Search.Tolerance)
	}
	if cfg.Search.Delay() != time.Second {
		t.Errorf("expected 1s delay, got %s", cfg.Search.Delay())
	}
	if cfg.Search.FallbackLat != 51.505 || cfg.Search.FallbackLon != -0.09 {
		t.Errorf("unexpected fallback start (%g, %g)", cfg.Search.FallbackLat, cfg.Search.FallbackLon)
	}
	if cfg.Telemetry.ServiceName != "loopwalk-test" {
		t.Errorf("expected service name from argument, got %s", cfg.Telemetry.ServiceName)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("LOOPWALK_SEARCH_MAX_ATTEMPTS", "3")
	t.Setenv("LOOPWALK_ROUTING_API_KEY", "secret")

	cfg, err := Load("loopwalk-test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Search.MaxAttempts != 3 {
		t.Errorf("expected 3 attempts, got %d", cfg.Search.MaxAttempts)
	}
	if cfg.Routing.APIKey != "secret" {
		t.Errorf("expected api key from env, got %q", cfg.Routing.APIKey)
	}
}

func TestLoad_InvalidEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("LOOPWALK_SEARCH_TOLERANCE", "1.5")

	if _, err := Load("loopwalk-test"); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := &Config{}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for empty config")
	}
	for _, want := range []string{"server.port", "routing.base_url", "search.tolerance", "nats.url", "valkey.addr"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("expected %q in error, got:\n%s", want, err)
		}
	}
}
