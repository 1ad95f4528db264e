package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Errorf("expected default http addr, got %q", cfg.HTTPAddr)
	}
	if cfg.PluginRoot != "./plugins" {
		t.Errorf("expected default plugin root, got %q", cfg.PluginRoot)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dashost.yaml")
	content := "http_addr: \":9090\"\nplugin_root: \"/opt/plugins\"\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPAddr != ":9090" {
		t.Errorf("expected file override, got %q", cfg.HTTPAddr)
	}
	if cfg.PluginRoot != "/opt/plugins" {
		t.Errorf("expected file override, got %q", cfg.PluginRoot)
	}
	if cfg.ProfileRoot != "./profiles" {
		t.Errorf("expected default to survive unset key, got %q", cfg.ProfileRoot)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("DASHOST_HTTP_ADDR", ":7777")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPAddr != ":7777" {
		t.Errorf("expected env override, got %q", cfg.HTTPAddr)
	}
}
