package gateway

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfig_AppliesDefaults(t *testing.T) {
	path := writeConfig(t, "workers: 4\n")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Workers != 4 {
		t.Fatalf("expected workers 4, got %d", cfg.Workers)
	}
	if cfg.TCPAddr != ":8080" || cfg.HTTPAddr != ":8081" {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
}

func TestLoadConfig_FullFile(t *testing.T) {
	path := writeConfig(t, `
tcp_addr: "127.0.0.1:9000"
http_addr: "127.0.0.1:9001"
workers: 8
audit_db: "/tmp/audit.db"
log_level: debug
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.TCPAddr != "127.0.0.1:9000" || cfg.HTTPAddr != "127.0.0.1:9001" {
		t.Fatalf("addresses not parsed: %+v", cfg)
	}
	if cfg.Workers != 8 || cfg.AuditDB != "/tmp/audit.db" || cfg.LogLevel != "debug" {
		t.Fatalf("fields not parsed: %+v", cfg)
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}

	path := writeConfig(t, "workers: -1\n")
	if _, err := LoadConfig(path); err == nil {
		t.Fatalf("expected error for negative workers")
	}

	path = writeConfig(t, "log_level: noisy\n")
	if _, err := LoadConfig(path); err == nil {
		t.Fatalf("expected error for unknown log level")
	}

	path = writeConfig(t, "not yaml: [\n")
	if _, err := LoadConfig(path); err == nil {
		t.Fatalf("expected error for malformed YAML")
	}
}
