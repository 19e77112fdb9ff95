package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

type sample struct {
	Name     string   `yaml:"name" toml:"name"`
	Paths    []string `yaml:"paths" toml:"paths"`
	Debounce Duration `yaml:"debounce" toml:"debounce"`
}

func (s *sample) Validate() error {
	if s.Name == "" {
		return errors.New("name is required")
	}
	return nil
}

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadYAML(t *testing.T) {
	path := writeConfig(t, "settings.yaml", "name: lists\npaths:\n  - a.md\n  - b.md\ndebounce: 300ms\n")

	var cfg sample
	if err := Load(path, &cfg); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Name != "lists" {
		t.Errorf("name = %q, want lists", cfg.Name)
	}
	if len(cfg.Paths) != 2 || cfg.Paths[1] != "b.md" {
		t.Errorf("paths = %v", cfg.Paths)
	}
	if cfg.Debounce.Std() != 300*time.Millisecond {
		t.Errorf("debounce = %v, want 300ms", cfg.Debounce.Std())
	}
}

func TestLoadTOML(t *testing.T) {
	path := writeConfig(t, "settings.toml", "name = \"lists\"\npaths = [\"a.md\"]\ndebounce = \"2s\"\n")

	var cfg sample
	if err := Load(path, &cfg); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Name != "lists" || len(cfg.Paths) != 1 {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.Debounce.Std() != 2*time.Second {
		t.Errorf("debounce = %v, want 2s", cfg.Debounce.Std())
	}
}

func TestLoadExpandsEnv(t *testing.T) {
	t.Setenv("AWESOME_TEST_NAME", "from-env")
	path := writeConfig(t, "settings.yaml", "name: ${AWESOME_TEST_NAME}\n")

	var cfg sample
	if err := Load(path, &cfg); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Name != "from-env" {
		t.Errorf("name = %q, want from-env", cfg.Name)
	}
}

func TestLoadRunsValidator(t *testing.T) {
	path := writeConfig(t, "settings.yaml", "paths: [a.md]\n")

	var cfg sample
	if err := Load(path, &cfg); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestLoadInvalidSyntax(t *testing.T) {
	path := writeConfig(t, "settings.toml", "name = \n")

	var cfg sample
	if err := Load(path, &cfg); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLoadOptionalMissingFile(t *testing.T) {
	cfg := sample{Name: "default"}
	loaded, err := LoadOptional(filepath.Join(t.TempDir(), "missing.toml"), &cfg)
	if err != nil {
		t.Fatalf("LoadOptional: %v", err)
	}
	if loaded {
		t.Error("loaded = true for a missing file")
	}
	if cfg.Name != "default" {
		t.Errorf("defaults overwritten: %+v", cfg)
	}
}

func TestLoadOptionalValidatesDefaults(t *testing.T) {
	var cfg sample
	if _, err := LoadOptional("", &cfg); err == nil {
		t.Fatal("expected validation error for empty defaults")
	}
}

func TestDurationRejectsGarbage(t *testing.T) {
	var d Duration
	if err := d.UnmarshalText([]byte("soon")); err == nil {
		t.Fatal("expected error")
	}
}
