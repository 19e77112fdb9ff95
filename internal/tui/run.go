package tui

import (
	"context"
	"errors"
	"log/slog"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/starford/awesomeview/internal/library"
)

// WatchFunc watches the sources and reports each reload. It blocks until
// ctx is cancelled.
type WatchFunc func(ctx context.Context, onReload func(*library.Report, error)) error

// Run starts the browser on the alternate screen and blocks until the user
// quits or ctx is cancelled. A non-nil watch runs for the lifetime of the
// browser and its reloads are applied live.
func Run(ctx context.Context, lib Library, opts Options, watch WatchFunc) error {
	m := New(lib, opts)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))

	if watch != nil {
		wctx, cancel := context.WithCancel(ctx)
		defer cancel()
		go func() {
			err := watch(wctx, func(report *library.Report, err error) {
				p.Send(ReloadedMsg{Report: report, Err: err})
			})
			if err != nil && !errors.Is(err, context.Canceled) {
				m.opts.Logger.Error("tui: watcher stopped", slog.String("error", err.Error()))
			}
		}()
	}

	if _, err := p.Run(); err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return nil
		}
		return err
	}
	return nil
}
