package internal

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/glamour/styles"
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/awesomeview/internal/apperr"
	"github.com/starford/awesomeview/internal/cache"
	"github.com/starford/awesomeview/pkg/config"
)

// AppName names the config and cache directories.
const AppName = "awesome-list-view"

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Log formats.
const (
	LogFormatJSON = "json"
	LogFormatText = "text"
)

// Config represents the application configuration.
type Config struct {
	App     ApplicationConfig `yaml:"app" toml:"app"`
	Sources SourcesConfig     `yaml:"sources" toml:"sources"`
	Cache   CacheConfig       `yaml:"cache" toml:"cache"`
	Watch   WatchConfig       `yaml:"watch" toml:"watch"`
	Auth    AuthConfig        `yaml:"auth" toml:"auth"`
	TUI     TUIConfig         `yaml:"tui" toml:"tui"`

	// Legacy is the flat [awesome-list-view] table of older settings files.
	Legacy LegacyConfig `yaml:"awesome-list-view" toml:"awesome-list-view"`
}

// Validate validates the configuration. Failures wrap apperr.ErrConfiguration.
func (c *Config) Validate() error {
	c.Legacy.mergeInto(&c.Sources)

	for _, v := range []validation.Validatable{&c.App, &c.Sources, &c.Cache, &c.Watch, &c.Auth, &c.TUI} {
		if err := v.Validate(); err != nil {
			return fmt.Errorf("%w: %w", apperr.ErrConfiguration, err)
		}
	}
	return nil
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel  slog.Level `yaml:"log_level" toml:"log_level"`
	LogFormat string     `yaml:"log_format" toml:"log_format"`
	HTTP      HTTPConfig `yaml:"http" toml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	if c.LogFormat == "" {
		c.LogFormat = LogFormatJSON
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.LogFormat, validation.In(LogFormatJSON, LogFormatText)),
	); err != nil {
		return err
	}
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port" toml:"port"`
	// EventsThrottle is the minimum gap between collection.reloaded events.
	EventsThrottle config.Duration `yaml:"events_throttle" toml:"events_throttle"`
	// EventsHeartbeat is how often idle event streams get a keep-alive
	// comment. Zero disables it.
	EventsHeartbeat config.Duration `yaml:"events_heartbeat" toml:"events_heartbeat"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
		validation.Field(&c.EventsThrottle, validation.Min(config.Duration(0))),
		validation.Field(&c.EventsHeartbeat, validation.Min(config.Duration(0))),
	)
}

// SourcesConfig lists the awesome-list files to load.
type SourcesConfig struct {
	// Paths are markdown files or directories of markdown files. A leading
	// "~" is expanded to the home directory.
	Paths       []string `yaml:"paths" toml:"paths"`
	ExcludeTags []string `yaml:"exclude_tags" toml:"exclude_tags"`
}

// Validate expands the paths and checks that each names a markdown file or
// an existing directory. An empty list is valid here; the library reports
// it when loading.
func (c *SourcesConfig) Validate() error {
	for i, p := range c.Paths {
		c.Paths[i] = ExpandHome(p)
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.Paths, validation.Each(validation.Required, validation.By(markdownSource))),
		validation.Field(&c.ExcludeTags, validation.Each(validation.Required)),
	)
}

func markdownSource(value any) error {
	p, _ := value.(string)
	if strings.EqualFold(filepath.Ext(p), ".md") {
		return nil
	}
	if info, err := os.Stat(p); err == nil && info.IsDir() {
		return nil
	}
	return errors.New("must be a .md file or a directory")
}

// CacheConfig holds the location and staleness strategy of the JSON cache.
type CacheConfig struct {
	Path      string `yaml:"path" toml:"path"`
	Staleness string `yaml:"staleness" toml:"staleness"`
}

// Validate validates the cache configuration.
func (c *CacheConfig) Validate() error {
	c.Path = ExpandHome(c.Path)
	if c.Staleness == "" {
		c.Staleness = string(cache.StrategyMTime)
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
		validation.Field(&c.Staleness, validation.In(string(cache.StrategyMTime), string(cache.StrategyChecksum))),
	)
}

// Strategy returns the configured staleness strategy.
func (c *CacheConfig) Strategy() cache.Strategy {
	return cache.Strategy(c.Staleness)
}

// WatchConfig controls rebuilding on source changes.
type WatchConfig struct {
	Enabled  bool            `yaml:"enabled" toml:"enabled"`
	Debounce config.Duration `yaml:"debounce" toml:"debounce"`
}

// Validate validates the watch configuration.
func (c *WatchConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Debounce, validation.Min(config.Duration(0))),
	)
}

// AuthConfig holds authentication configuration for the HTTP API.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication, the API is read-only and local.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode" toml:"mode"`
	Token string `yaml:"token" toml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// TUIConfig holds terminal browser settings.
type TUIConfig struct {
	// MarkdownStyle is "auto" or one of glamour's standard styles.
	MarkdownStyle string `yaml:"markdown_style" toml:"markdown_style"`
	WordWrap      int    `yaml:"word_wrap" toml:"word_wrap"`
}

// Validate validates the TUI configuration.
func (c *TUIConfig) Validate() error {
	if c.MarkdownStyle == "" {
		c.MarkdownStyle = styles.AutoStyle
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.MarkdownStyle, validation.By(func(value any) error {
			s, _ := value.(string)
			if s == styles.AutoStyle {
				return nil
			}
			if _, ok := styles.DefaultStyles[s]; !ok {
				return fmt.Errorf("unknown style %q", s)
			}
			return nil
		})),
		validation.Field(&c.WordWrap, validation.Min(0), validation.Max(400)),
	)
}

// LegacyConfig is the older settings layout:
//
//	[awesome-list-view]
//	AWESOME_LIST_PATHS = ["~/notes/awesome.md"]
//	EXCLUDE_TAGS = ["archived"]
type LegacyConfig struct {
	Paths       []string `yaml:"AWESOME_LIST_PATHS" toml:"AWESOME_LIST_PATHS"`
	ExcludeTags []string `yaml:"EXCLUDE_TAGS" toml:"EXCLUDE_TAGS"`
}

func (c *LegacyConfig) mergeInto(s *SourcesConfig) {
	if len(s.Paths) == 0 {
		s.Paths = append(s.Paths, c.Paths...)
	}
	if len(s.ExcludeTags) == 0 {
		s.ExcludeTags = append(s.ExcludeTags, c.ExcludeTags...)
	}
}

// ExpandHome replaces a leading "~" with the user's home directory.
func ExpandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}

// DefaultConfigPath returns <user config dir>/awesome-list-view/settings.toml,
// or "" when the config dir is unknown.
func DefaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, AppName, "settings.toml")
}

// DefaultCacheDir returns <user cache dir>/awesome-list-view.
func DefaultCacheDir() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, AppName)
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel:  slog.LevelInfo,
			LogFormat: LogFormatText,
			HTTP: HTTPConfig{
				Port:            8080,
				EventsThrottle:  config.Duration(2 * time.Second),
				EventsHeartbeat: config.Duration(30 * time.Second),
			},
		},
		Cache: CacheConfig{
			Path:      filepath.Join(DefaultCacheDir(), "awesome_list.json"),
			Staleness: string(cache.StrategyMTime),
		},
		Watch: WatchConfig{
			Debounce: config.Duration(200 * time.Millisecond),
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		TUI: TUIConfig{
			MarkdownStyle: styles.AutoStyle,
			WordWrap:      80,
		},
	}
}
