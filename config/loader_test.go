package config

import (
	"os"
	"path/filepath"
	"testing"
)

const minimalYAML = `
db:
  url: postgres://localhost:5432/pulsewatch
auth:
  secret: test-secret
  operator_email: ops@example.com
  operator_password_hash: not-a-real-hash
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "env.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfigWithoutRedis(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, minimalYAML))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Redis != nil {
		t.Fatalf("redis section absent from the file, got %+v", cfg.Redis)
	}
	if cfg.Checker.MaxConcurrent != 100 {
		t.Errorf("checker.max_concurrent default = %d, want 100", cfg.Checker.MaxConcurrent)
	}
}

func TestLoadConfigMissingDBFails(t *testing.T) {
	body := `
auth:
  secret: test-secret
  operator_email: ops@example.com
  operator_password_hash: not-a-real-hash
`
	if _, err := LoadConfig(writeConfig(t, body)); err == nil {
		t.Fatal("expected validation to reject a config without db")
	}
}
