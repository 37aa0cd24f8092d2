package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Addr != ":8080" {
		t.Fatalf("Addr = %q", cfg.Addr)
	}
	if cfg.SessionTTL != 12*time.Hour {
		t.Fatalf("SessionTTL = %v", cfg.SessionTTL)
	}
	if cfg.CookieName != "clinic_admin_session" {
		t.Fatalf("CookieName = %q", cfg.CookieName)
	}
	if cfg.MinIOConfigured() {
		t.Fatal("expected MinIO to be unconfigured by default")
	}
	if cfg.SMTPConfigured() {
		t.Fatal("expected SMTP to be unconfigured by default")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("API_ADDR", ":9999")
	t.Setenv("CLINIC_SESSION_TTL", "30m")
	t.Setenv("CLINIC_COOKIE_SECURE", "true")
	t.Setenv("MEDIA_PUBLIC_BASE_URL", "https://cdn.example.com/media/")
	t.Setenv("MINIO_ENDPOINT", "minio:9000")
	t.Setenv("MINIO_ACCESS_KEY", "key")
	t.Setenv("MINIO_SECRET_KEY", "secret")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Addr != ":9999" || cfg.SessionTTL != 30*time.Minute || !cfg.CookieSecure {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.MediaPublicBaseURL != "https://cdn.example.com/media" {
		t.Fatalf("MediaPublicBaseURL = %q", cfg.MediaPublicBaseURL)
	}
	if !cfg.MinIOConfigured() {
		t.Fatal("expected MinIO to be configured")
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := []struct {
		name  string
		key   string
		value string
	}{
		{name: "short secret", key: "CLINIC_SESSION_SECRET", value: "short"},
		{name: "bad duration", key: "CLINIC_SESSION_TTL", value: "soon"},
		{name: "bad bool", key: "CLINIC_COOKIE_SECURE", value: "maybe"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv(tc.key, tc.value)
			if _, err := Load(); err == nil {
				t.Fatalf("expected Load() to fail for %s=%q", tc.key, tc.value)
			}
		})
	}
}
