package config

import (
	"strings"
	"testing"
)

func validConfig() *Config {
	return &Config{
		Port:           "8080",
		AllowedOrigins: []string{"*"},
		DatabaseURL:    "postgres://localhost:5432/budget",
		JWTSecret:      strings.Repeat("s", 32),
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*Config)
		wantErrs []string
	}{
		{
			name:   "valid config",
			mutate: func(c *Config) {},
		},
		{
			name:     "non-numeric port",
			mutate:   func(c *Config) { c.Port = "http" },
			wantErrs: []string{"invalid port"},
		},
		{
			name:     "port out of range",
			mutate:   func(c *Config) { c.Port = "70000" },
			wantErrs: []string{"between 1 and 65535"},
		},
		{
			name:     "missing database url",
			mutate:   func(c *Config) { c.DatabaseURL = "" },
			wantErrs: []string{"DATABASE_URL is required"},
		},
		{
			name:     "missing jwt secret",
			mutate:   func(c *Config) { c.JWTSecret = "" },
			wantErrs: []string{"JWT_SECRET is required"},
		},
		{
			name:     "short jwt secret",
			mutate:   func(c *Config) { c.JWTSecret = "tooshort" },
			wantErrs: []string{"at least 32 characters"},
		},
		{
			name: "multiple problems reported together",
			mutate: func(c *Config) {
				c.Port = "abc"
				c.DatabaseURL = ""
				c.JWTSecret = ""
			},
			wantErrs: []string{"invalid port", "DATABASE_URL is required", "JWT_SECRET is required"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if len(tt.wantErrs) == 0 {
				if err != nil {
					t.Fatalf("expected valid config, got %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("expected validation error, got nil")
			}
			for _, want := range tt.wantErrs {
				if !strings.Contains(err.Error(), want) {
					t.Errorf("error %q missing %q", err.Error(), want)
				}
			}
		})
	}
}

func TestSplitList(t *testing.T) {
	got := splitList(" https://app.example.com , https://admin.example.com ,, ")
	if len(got) != 2 {
		t.Fatalf("expected 2 origins, got %d: %v", len(got), got)
	}
	if got[0] != "https://app.example.com" || got[1] != "https://admin.example.com" {
		t.Errorf("unexpected origins: %v", got)
	}
}
