package cli

import (
	"testing"

	"github.com/wardline/wardline/pkg/config"
	apperrors "github.com/wardline/wardline/pkg/errors"
)

func TestApplySetting(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		value   string
		wantErr bool
		check   func(config.Config) bool
	}{
		{
			name:  "api key",
			key:   "census-api-key",
			value: "0123abcd",
			check: func(c config.Config) bool { return c.CensusAPIKey == "0123abcd" },
		},
		{
			name:  "cache dir",
			key:   "cache-dir",
			value: "/tmp/wl",
			check: func(c config.Config) bool { return c.CacheDir == "/tmp/wl" },
		},
		{
			name:  "cache backend redis",
			key:   "cache-backend",
			value: "redis",
			check: func(c config.Config) bool { return c.CacheBackend == "redis" },
		},
		{
			name:    "cache backend invalid",
			key:     "cache-backend",
			value:   "memcached",
			wantErr: true,
		},
		{
			name:  "redis addr",
			key:   "redis-addr",
			value: "10.0.0.1:6379",
			check: func(c config.Config) bool { return c.RedisAddr == "10.0.0.1:6379" },
		},
		{
			name:  "resolution block",
			key:   "resolution",
			value: "block",
			check: func(c config.Config) bool { return c.Resolution == "block" },
		},
		{
			name:    "resolution invalid",
			key:     "resolution",
			value:   "county",
			wantErr: true,
		},
		{
			name:  "engine union",
			key:   "engine",
			value: "union",
			check: func(c config.Config) bool { return c.Engine == "union" },
		},
		{
			name:    "engine invalid",
			key:     "engine",
			value:   "warp",
			wantErr: true,
		},
		{
			name:    "unknown key",
			key:     "color-scheme",
			value:   "dark",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			err := applySetting(&cfg, tt.key, tt.value)
			if (err != nil) != tt.wantErr {
				t.Fatalf("applySetting(%q, %q) error = %v, wantErr %v", tt.key, tt.value, err, tt.wantErr)
			}
			if tt.check != nil && !tt.check(cfg) {
				t.Errorf("applySetting(%q, %q) did not apply", tt.key, tt.value)
			}
		})
	}
}

func TestApplySettingErrorCode(t *testing.T) {
	cfg := config.Default()
	err := applySetting(&cfg, "nope", "x")
	if !apperrors.Is(err, apperrors.ErrCodeInvalidConfig) {
		t.Errorf("applySetting() error = %v, want INVALID_CONFIGURATION", err)
	}
}

func TestRedactSecret(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", "(not set)"},
		{"short", "********"},
		{"0123456789abcdef", "0123…cdef"},
	}

	for _, tt := range tests {
		if got := redactSecret(tt.in); got != tt.want {
			t.Errorf("redactSecret(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
