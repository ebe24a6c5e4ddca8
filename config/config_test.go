package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load returned %v", err)
	}
	if cfg.HTTP.Addr != ":5050" {
		t.Errorf("Expected default addr :5050, got %q", cfg.HTTP.Addr)
	}
	if cfg.DB.Driver != "sqlite" {
		t.Errorf("Expected sqlite driver, got %q", cfg.DB.Driver)
	}
	if cfg.History.DefaultLimit != 50 || cfg.History.MaxLimit != 200 {
		t.Errorf("Unexpected history limits %+v", cfg.History)
	}
	if cfg.WS.EventTimeout != 10*time.Second {
		t.Errorf("Unexpected event timeout %v", cfg.WS.EventTimeout)
	}
	if cfg.Friends.ResendCooldown != 0 {
		t.Errorf("Expected no resend cooldown, got %v", cfg.Friends.ResendCooldown)
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	yaml := []byte("http:\n  addr: \":9000\"\nfriends:\n  resend_cooldown: 1h\ndb:\n  dsn: file.db\n")
	if err := os.WriteFile(filepath.Join(dir, "app.yaml"), yaml, 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CHAT_DB_DSN", "env.db")

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load returned %v", err)
	}
	if cfg.HTTP.Addr != ":9000" {
		t.Errorf("Expected addr from file, got %q", cfg.HTTP.Addr)
	}
	if cfg.Friends.ResendCooldown != time.Hour {
		t.Errorf("Expected 1h cooldown, got %v", cfg.Friends.ResendCooldown)
	}
	if cfg.DB.DSN != "env.db" {
		t.Errorf("Expected env to override file, got %q", cfg.DB.DSN)
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("CHAT_AUTH_SECRET=from-dotenv\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Unsetenv("CHAT_AUTH_SECRET") })

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load returned %v", err)
	}
	if cfg.Auth.Secret != "from-dotenv" {
		t.Errorf("Expected secret from .env, got %q", cfg.Auth.Secret)
	}
}
