package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("port = %d", cfg.Server.Port)
	}
	if cfg.Session.Backend != SessionBackendMemory || cfg.Session.TTL != 30*time.Minute {
		t.Errorf("session = %+v", cfg.Session)
	}
	if cfg.Nutrition.Enabled {
		t.Errorf("nutrition must be disabled by default")
	}
	if cfg.DedupWindow != time.Second {
		t.Errorf("dedup window = %v", cfg.DedupWindow)
	}
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("SESSION_BACKEND", "redis")
	t.Setenv("REDIS_ADDR", "cache:6380")
	t.Setenv("APP_SESSION_TTL", "5m")
	t.Setenv("NUTRITION_ENABLED", "true")
	t.Setenv("NUTRITION_API_URL", "http://nutrition.local")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("port = %d", cfg.Server.Port)
	}
	if cfg.Session.Backend != SessionBackendRedis || cfg.Redis.Addr != "cache:6380" {
		t.Errorf("session = %+v, redis = %+v", cfg.Session, cfg.Redis)
	}
	if cfg.Session.TTL != 5*time.Minute {
		t.Errorf("ttl = %v", cfg.Session.TTL)
	}
	if !cfg.Nutrition.Enabled || cfg.Nutrition.BaseURL != "http://nutrition.local" {
		t.Errorf("nutrition = %+v", cfg.Nutrition)
	}
}

func TestLoadConfigValidation(t *testing.T) {
	cases := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{"unknown backend", map[string]string{"SESSION_BACKEND": "disk"}, "unknown session backend"},
		{"nutrition without url", map[string]string{"NUTRITION_ENABLED": "true"}, "nutrition base url"},
		{"redis without addr", map[string]string{"SESSION_BACKEND": "redis", "APP_REDIS_ADDR": " "}, "redis addr"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := LoadConfig()
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("err = %v, want %q", err, tc.wantErr)
			}
		})
	}
}

func TestMaskAPIKey(t *testing.T) {
	if got := MaskAPIKey("short"); got != "****" {
		t.Errorf("short key = %q", got)
	}
	if got := MaskAPIKey("abcd1234efgh5678"); got != "abcd...5678" {
		t.Errorf("long key = %q", got)
	}
}
