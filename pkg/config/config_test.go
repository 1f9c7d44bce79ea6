package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"livechat/pkg/config"
)

func TestLoadEffectiveDefaults(t *testing.T) {
	eff, err := config.LoadEffective("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if eff.Config.Auth.RolePrefix != "ROLE_" {
		t.Fatalf("expected default role prefix, got %q", eff.Config.Auth.RolePrefix)
	}
	if eff.Config.Auth.RoleClaim != "groups" {
		t.Fatalf("expected default role claim, got %q", eff.Config.Auth.RoleClaim)
	}
	if eff.Config.Notify.QueueSize != 256 {
		t.Fatalf("expected default queue size, got %d", eff.Config.Notify.QueueSize)
	}
	if eff.DBPath != "./data" {
		t.Fatalf("expected default db path, got %q", eff.DBPath)
	}
	if eff.Addr != ":8080" {
		t.Fatalf("expected default addr, got %q", eff.Addr)
	}
}

func TestLoadEffectiveFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "livechat.yaml")
	yaml := `server:
  address: 127.0.0.1
  port: 9090
  db_path: /tmp/chatdb
auth:
  jwks_url: https://idp.example.com/jwks
  role_claim: cognito:groups
  timeout: 5s
media:
  max_upload_size: 2MB
retention:
  enabled: true
  period: 720h
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	eff, err := config.LoadEffective(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if eff.Addr != "127.0.0.1:9090" {
		t.Fatalf("addr: %q", eff.Addr)
	}
	if eff.DBPath != "/tmp/chatdb" {
		t.Fatalf("db path: %q", eff.DBPath)
	}
	if eff.Config.Auth.RoleClaim != "cognito:groups" {
		t.Fatalf("role claim: %q", eff.Config.Auth.RoleClaim)
	}
	if eff.Config.Auth.Timeout.Duration() != 5*time.Second {
		t.Fatalf("timeout: %v", eff.Config.Auth.Timeout.Duration())
	}
	if eff.Config.Media.MaxUploadSize.Int64() != 2*1000*1000 {
		t.Fatalf("max upload: %d", eff.Config.Media.MaxUploadSize.Int64())
	}
	if !eff.Config.Retention.Enabled || eff.Config.Retention.Period != "720h" {
		t.Fatalf("retention: %+v", eff.Config.Retention)
	}
	if eff.Source != "config" {
		t.Fatalf("source: %q", eff.Source)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	t.Setenv("LIVECHAT_DB_PATH", "/env/db")
	t.Setenv("LIVECHAT_AUTH_ROLE_PREFIX", "APP_")

	eff, err := config.LoadEffective("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if eff.DBPath != "/env/db" {
		t.Fatalf("env db path not applied: %q", eff.DBPath)
	}
	if eff.Config.Auth.RolePrefix != "APP_" {
		t.Fatalf("env role prefix not applied: %q", eff.Config.Auth.RolePrefix)
	}
	if eff.Source != "env" {
		t.Fatalf("source: %q", eff.Source)
	}
}
