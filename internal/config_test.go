package internal

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/starford/awesomeview/internal/apperr"
	"github.com/starford/awesomeview/internal/cache"
	"github.com/starford/awesomeview/pkg/config"
)

func TestAuthConfig_DisabledMode(t *testing.T) {
	cfg := AuthConfig{Mode: "disabled", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled mode should pass: %v", err)
	}
	if cfg.AuthEnabled() {
		t.Error("disabled mode should not be enabled")
	}
}

func TestAuthConfig_EmptyModeDefaultsDisabled(t *testing.T) {
	cfg := AuthConfig{Mode: "", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty mode should default to disabled: %v", err)
	}
	if cfg.Mode != AuthModeDisabled {
		t.Errorf("mode = %q, want %q", cfg.Mode, AuthModeDisabled)
	}
}

func TestAuthConfig_TokenModeEmptyToken(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: ""}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("token mode with empty token should fail")
	}
	if !strings.Contains(err.Error(), "token is empty") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestAuthConfig_InvalidMode(t *testing.T) {
	cfg := AuthConfig{Mode: "magic", Token: "x"}
	if err := cfg.Validate(); err == nil {
		t.Fatal("invalid mode should fail validation")
	}
}

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config: %v", err)
	}
	if cfg.Cache.Strategy() != cache.StrategyMTime {
		t.Errorf("strategy = %q, want mtime", cfg.Cache.Strategy())
	}
	if filepath.Base(cfg.Cache.Path) != "awesome_list.json" {
		t.Errorf("cache path = %q", cfg.Cache.Path)
	}
}

func TestFullConfig_ErrorsWrapConfiguration(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Auth.Mode = "token"
	err := cfg.Validate()
	if err == nil {
		t.Fatal("full config validate should catch auth error")
	}
	if !errors.Is(err, apperr.ErrConfiguration) {
		t.Errorf("err = %v, want ErrConfiguration", err)
	}
}

func TestSourcesConfig_RejectsNonMarkdown(t *testing.T) {
	cfg := SourcesConfig{Paths: []string{"list.txt"}}
	if err := cfg.Validate(); err == nil {
		t.Fatal("non-markdown source should fail")
	}
}

func TestSourcesConfig_AcceptsDirectory(t *testing.T) {
	cfg := SourcesConfig{Paths: []string{t.TempDir(), "list.md"}}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("directory source: %v", err)
	}
}

func TestSourcesConfig_ExpandsHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home dir")
	}
	cfg := SourcesConfig{Paths: []string{"~/lists/awesome.md"}}
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join(home, "lists", "awesome.md"); cfg.Paths[0] != want {
		t.Errorf("path = %q, want %q", cfg.Paths[0], want)
	}
}

func TestCacheConfig_UnknownStaleness(t *testing.T) {
	cfg := CacheConfig{Path: "c.json", Staleness: "sometimes"}
	if err := cfg.Validate(); err == nil {
		t.Fatal("unknown staleness should fail")
	}
}

func TestTUIConfig_Styles(t *testing.T) {
	ok := TUIConfig{MarkdownStyle: "dark", WordWrap: 80}
	if err := ok.Validate(); err != nil {
		t.Fatalf("dark style: %v", err)
	}
	bad := TUIConfig{MarkdownStyle: "neon"}
	if err := bad.Validate(); err == nil {
		t.Fatal("unknown style should fail")
	}
}

func TestLoadTOMLSettings(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.toml")
	content := `
[app]
log_level = "debug"
log_format = "json"

[app.http]
port = 9090
events_throttle = "5s"

[sources]
paths = ["lists/awesome.md"]
exclude_tags = ["archived"]

[cache]
path = "` + filepath.ToSlash(filepath.Join(dir, "cache.json")) + `"
staleness = "checksum"

[watch]
enabled = true
debounce = "500ms"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := NewDefaultConfig()
	if err := config.Load(path, cfg); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.App.HTTP.Port != 9090 {
		t.Errorf("port = %d, want 9090", cfg.App.HTTP.Port)
	}
	if cfg.App.HTTP.EventsThrottle.Std() != 5*time.Second {
		t.Errorf("throttle = %v", cfg.App.HTTP.EventsThrottle.Std())
	}
	if len(cfg.Sources.ExcludeTags) != 1 || cfg.Sources.ExcludeTags[0] != "archived" {
		t.Errorf("exclude tags = %v", cfg.Sources.ExcludeTags)
	}
	if cfg.Cache.Strategy() != cache.StrategyChecksum {
		t.Errorf("strategy = %q", cfg.Cache.Strategy())
	}
	if !cfg.Watch.Enabled || cfg.Watch.Debounce.Std() != 500*time.Millisecond {
		t.Errorf("watch = %+v", cfg.Watch)
	}
	if cfg.TUI.WordWrap != 80 {
		t.Errorf("defaults lost: word wrap = %d", cfg.TUI.WordWrap)
	}
}

func TestLoadLegacySettings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.toml")
	content := `
[awesome-list-view]
AWESOME_LIST_PATHS = ["a.md", "b.md"]
EXCLUDE_TAGS = ["archived"]
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := NewDefaultConfig()
	if err := config.Load(path, cfg); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.Sources.Paths) != 2 || cfg.Sources.Paths[1] != "b.md" {
		t.Errorf("paths = %v", cfg.Sources.Paths)
	}
	if len(cfg.Sources.ExcludeTags) != 1 {
		t.Errorf("exclude tags = %v", cfg.Sources.ExcludeTags)
	}
}
