package internal

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/starford/awesomeview/internal/cache"
	"github.com/starford/awesomeview/internal/library"
	"github.com/starford/awesomeview/internal/storage"
)

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config *Config
	logger *slog.Logger
	out    io.Writer
	fs     storage.Provider
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithLogger replaces the logger built from the app config.
func WithLogger(logger *slog.Logger) Option {
	return func(a *application) {
		a.logger = logger
	}
}

// WithOutput sets where one-shot commands print their results. Defaults to
// stdout.
func WithOutput(w io.Writer) Option {
	return func(a *application) {
		a.out = w
	}
}

// WithStorage replaces the local filesystem provider.
func WithStorage(fs storage.Provider) Option {
	return func(a *application) {
		a.fs = fs
	}
}

// newApplication applies opts, validates the config and fills defaults.
// logTo is where the default logger writes.
func newApplication(logTo io.Writer, opts ...Option) (*application, error) {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if err := app.config.Validate(); err != nil {
		return nil, err
	}
	if app.out == nil {
		app.out = os.Stdout
	}
	if app.fs == nil {
		app.fs = storage.NewFS()
	}
	if app.logger == nil {
		app.logger = NewLogger(app.config.App, logTo)
	}
	return app, nil
}

// library builds the library described by the config. Nothing is loaded.
func (a *application) library() *library.Library {
	cfg := a.config
	return library.New(library.Options{
		Sources:     cfg.Sources.Paths,
		ExcludeTags: cfg.Sources.ExcludeTags,
		CachePath:   cfg.Cache.Path,
	}, a.fs, cache.NewStore(a.fs, cfg.Cache.Strategy()), a.logger)
}
