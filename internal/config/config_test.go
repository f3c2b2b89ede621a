package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "8080" {
		t.Errorf("default port = %q, want 8080", cfg.Port)
	}
	if cfg.Kit.BaseURL != "https://api.kit.com/v4" {
		t.Errorf("default kit base url = %q", cfg.Kit.BaseURL)
	}
}

func TestLoadYAMLWithEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "kitflow.yaml")
	yaml := "port: \"9000\"\nkit:\n  base_url: https://kit.example.test/v4\n"
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("PORT", "9999")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "9999" {
		t.Errorf("env override lost: port = %q, want 9999", cfg.Port)
	}
	if cfg.Kit.BaseURL != "https://kit.example.test/v4" {
		t.Errorf("yaml value lost: base_url = %q", cfg.Kit.BaseURL)
	}
}

func TestLoadMissingFileIsFine(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err != nil {
		t.Fatalf("missing config file should not error: %v", err)
	}
}
