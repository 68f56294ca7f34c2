package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadValidConfig(t *testing.T) {
	path := writeConfig(t, `
version: 1
general:
  data_root: /tmp/gallery-data
  input_root: /tmp/gallery-input
server:
  listen: 127.0.0.1:8790
  per_page: 50
cache:
  listing_ttl_seconds: 30
  metadata_ttl_seconds: 300
thumbnails:
  max_size: 400
  quality: 92
logging:
  level: info
  format: human
ui:
  preview_size: 110
`)
	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if c.Version != 1 {
		t.Fatalf("expected version 1, got %d", c.Version)
	}
	if c.General.DataRoot == "" || c.General.InputRoot == "" {
		t.Fatalf("expected non-empty general paths")
	}
	if c.PerPage() != 50 {
		t.Fatalf("per_page=%d, want 50", c.PerPage())
	}
	if got := c.BaseURL(); got != "http://127.0.0.1:8790" {
		t.Fatalf("base url=%q", got)
	}
}

func TestLoadEnvExpansion(t *testing.T) {
	t.Setenv("GALLERY_TEST_ROOT", "/tmp/gallery-env")
	path := writeConfig(t, `
version: 1
general:
  data_root: ${GALLERY_TEST_ROOT}/data
  input_root: ${GALLERY_TEST_ROOT}/input
server:
  listen: 127.0.0.1:8790
`)
	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if c.General.DataRoot != "/tmp/gallery-env/data" {
		t.Fatalf("env expansion failed: %q", c.General.DataRoot)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"wrong version", "version: 2\ngeneral:\n  data_root: /a\n  input_root: /b\nserver:\n  listen: :1\n"},
		{"missing data_root", "version: 1\ngeneral:\n  input_root: /b\nserver:\n  listen: :1\n"},
		{"missing input_root", "version: 1\ngeneral:\n  data_root: /a\nserver:\n  listen: :1\n"},
		{"missing listen", "version: 1\ngeneral:\n  data_root: /a\n  input_root: /b\n"},
		{"bad log level", "version: 1\ngeneral:\n  data_root: /a\n  input_root: /b\nserver:\n  listen: :1\nlogging:\n  level: loud\n"},
		{"bad quality", "version: 1\ngeneral:\n  data_root: /a\n  input_root: /b\nserver:\n  listen: :1\nthumbnails:\n  quality: 150\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tc.body)); err == nil {
				t.Fatalf("expected error for %s", tc.name)
			}
		})
	}
}

func TestDefaultPerPage(t *testing.T) {
	c := &Config{}
	if c.PerPage() != 100 {
		t.Fatalf("default per_page=%d, want 100", c.PerPage())
	}
}
