package internal

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	charmlog "github.com/charmbracelet/log"
)

// NewLogger builds the process logger. The json format writes one JSON
// object per line; text uses charmbracelet/log for people reading a terminal.
func NewLogger(cfg ApplicationConfig, w io.Writer) *slog.Logger {
	if cfg.LogFormat == LogFormatText {
		h := charmlog.NewWithOptions(w, charmlog.Options{
			Level:           charmlog.Level(cfg.LogLevel),
			ReportTimestamp: true,
			TimeFormat:      time.Kitchen,
		})
		return slog.New(h)
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
}

// OpenLogFile opens <dir>/awesome-list-view.log for appending, creating dir.
// The terminal browser logs there because it owns stdout and stderr.
func OpenLogFile(dir string) (*os.File, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	f, err := os.OpenFile(filepath.Join(dir, AppName+".log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return f, nil
}
