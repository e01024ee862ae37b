package config

import (
	"strings"
	"testing"
	"time"
)

func validConfig() *Config {
	return &Config{
		Server:    ServerConfig{Port: 8000, ReadTimeout: 10, WriteTimeout: 60},
		Database:  DatabaseConfig{Host: "localhost", Port: 5432, User: "gigguard", DBName: "gigguard"},
		NATS:      NATSConfig{URL: "nats://localhost:4222"},
		Valkey:    ValkeyConfig{Addr: "localhost:6379"},
		Overpass:  OverpassConfig{URL: "http://overpass", UserAgent: "ua", Timeout: time.Second, MaxAttempts: 3, RetryDelay: time.Second},
		Nominatim: NominatimConfig{URL: "http://nominatim", Timeout: time.Second},
		Search:    SearchConfig{Radii: []int{20000, 50000}, TopN: 5, Budget: time.Minute, EmergencyNumber: "108"},
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("gigguard-test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := cfg.Search.Radii; len(got) != 2 || got[0] != 20000 || got[1] != 50000 {
		t.Errorf("expected default radii [20000 50000], got %v", got)
	}
	if cfg.Overpass.MaxAttempts != 3 {
		t.Errorf("expected 3 attempts, got %d", cfg.Overpass.MaxAttempts)
	}
	if cfg.Search.EmergencyNumber != "108" {
		t.Errorf("expected emergency number 108, got %s", cfg.Search.EmergencyNumber)
	}
	if cfg.Search.Fallbacks["hospital"] != "clinic" {
		t.Errorf("expected hospital->clinic fallback, got %v", cfg.Search.Fallbacks)
	}
	if cfg.Telemetry.ServiceName != "gigguard-test" {
		t.Errorf("expected service name from Load, got %s", cfg.Telemetry.ServiceName)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("GIGGUARD_OVERPASS_MAX_ATTEMPTS", "2")
	t.Setenv("GIGGUARD_SEARCH_EMERGENCY_NUMBER", "112")

	cfg, err := Load("gigguard-test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Overpass.MaxAttempts != 2 {
		t.Errorf("expected 2 attempts from env, got %d", cfg.Overpass.MaxAttempts)
	}
	if cfg.Search.EmergencyNumber != "112" {
		t.Errorf("expected 112 from env, got %s", cfg.Search.EmergencyNumber)
	}
}

func TestValidate(t *testing.T) {
	for _, tc := range []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{name: "ok", mutate: func(*Config) {}},
		{name: "empty radii", mutate: func(c *Config) { c.Search.Radii = nil }, want: "search.radii must not be empty"},
		{name: "decreasing radii", mutate: func(c *Config) { c.Search.Radii = []int{50000, 20000} }, want: "strictly increasing"},
		{name: "negative radius", mutate: func(c *Config) { c.Search.Radii = []int{-1} }, want: "must be positive"},
		{name: "attempts", mutate: func(c *Config) { c.Overpass.MaxAttempts = 0 }, want: "overpass.max_attempts"},
		{name: "top n", mutate: func(c *Config) { c.Search.TopN = 0 }, want: "search.top_n"},
		{name: "port", mutate: func(c *Config) { c.Server.Port = 70000 }, want: "server.port"},
		{name: "ack timeout", mutate: func(c *Config) { c.Temporal.Enabled = true }, want: "temporal.ack_timeout"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(cfg)
			err := cfg.Validate()
			if tc.want == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error containing %q", tc.want)
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Errorf("expected error containing %q, got %v", tc.want, err)
			}
		})
	}
}
