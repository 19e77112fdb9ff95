package internal

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"

	"github.com/starford/awesomeview/internal/library"
	"github.com/starford/awesomeview/internal/mcpserver"
	"github.com/starford/awesomeview/internal/tui"
)

// RunTUI loads the library and runs the terminal browser until the user
// quits. Logs go to a file next to the default cache since the browser owns
// the terminal.
func RunTUI(ctx context.Context, opts ...Option) error {
	var logTo io.Writer = io.Discard
	if f, err := OpenLogFile(DefaultCacheDir()); err == nil {
		defer f.Close()
		logTo = f
	}

	app, err := newApplication(logTo, opts...)
	if err != nil {
		return err
	}
	slog.SetDefault(app.logger)

	lib := app.library()
	report, err := lib.Open()
	if err != nil {
		return err
	}
	logReport(app.logger, report)

	cfg := app.config
	var watch tui.WatchFunc
	if cfg.Watch.Enabled {
		watch = func(ctx context.Context, onReload func(*library.Report, error)) error {
			return lib.Watch(ctx, cfg.Watch.Debounce.Std(), onReload)
		}
	}

	return tui.Run(ctx, lib, tui.Options{
		MarkdownStyle: cfg.TUI.MarkdownStyle,
		WordWrap:      cfg.TUI.WordWrap,
		Logger:        app.logger,
	}, watch)
}

// RunMCP loads the library and serves the MCP tools over stdio. Logs go to
// stderr; stdout carries the protocol.
func RunMCP(ctx context.Context, version string, opts ...Option) error {
	app, err := newApplication(os.Stderr, opts...)
	if err != nil {
		return err
	}
	slog.SetDefault(app.logger)

	lib := app.library()
	report, err := lib.Open()
	if err != nil {
		return err
	}
	logReport(app.logger, report)

	cfg := app.config
	if cfg.Watch.Enabled {
		wctx, cancel := context.WithCancel(ctx)
		defer cancel()
		go func() {
			err := lib.Watch(wctx, cfg.Watch.Debounce.Std(), func(report *library.Report, err error) {
				if err == nil {
					logReport(app.logger, report)
				}
			})
			if err != nil && !errors.Is(err, context.Canceled) {
				app.logger.Error("MCP watcher stopped", slog.String("error", err.Error()))
			}
		}()
	}

	srv := mcpserver.New(lib, version, func() (string, string, bool) {
		return cfg.Cache.Path, cfg.Cache.Staleness, lib.IsStale()
	})
	app.logger.Info("MCP server starting on stdio", slog.String("version", version))
	return srv.ServeStdio()
}
