package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Session.ClockSkew != 60*time.Second {
		t.Fatalf("expected 60s clock skew, got %v", cfg.Session.ClockSkew)
	}
	if cfg.Storage.Backend != "file" {
		t.Fatalf("expected file storage backend, got %q", cfg.Storage.Backend)
	}
	if cfg.Storage.Path == "" {
		t.Fatalf("expected default credentials path to be resolved")
	}
	if cfg.Realtime.ChatNamespace != "chat" || cfg.Realtime.NotificationNamespace != "notifications" {
		t.Fatalf("unexpected namespaces: %+v", cfg.Realtime)
	}
	if len(cfg.Kafka.Brokers) != 0 {
		t.Fatalf("expected no kafka brokers by default, got %v", cfg.Kafka.Brokers)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("SPRUCE_STORAGE_BACKEND", "redis")
	t.Setenv("SPRUCE_AUTHORITY_BASE_URL", "https://spruce.example/api")
	t.Setenv("NOTIFICATIONS_DISPLAY_DURATION", "2s")
	t.Setenv("SPRUCE_STORAGE_PATH", "/tmp/creds.json")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Storage.Backend != "redis" {
		t.Fatalf("expected redis backend, got %q", cfg.Storage.Backend)
	}
	if cfg.Authority.BaseURL != "https://spruce.example/api" {
		t.Fatalf("unexpected authority url %q", cfg.Authority.BaseURL)
	}
	if cfg.Notifications.DisplayDuration != 2*time.Second {
		t.Fatalf("expected 2s display duration, got %v", cfg.Notifications.DisplayDuration)
	}
	if cfg.Storage.Path != "/tmp/creds.json" {
		t.Fatalf("unexpected storage path %q", cfg.Storage.Path)
	}
}
