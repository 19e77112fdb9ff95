// Package library loads the configured awesome lists into a collection,
// going through the cache when it is fresh, and swaps in a new collection
// atomically whenever the lists are regenerated.
package library

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/starford/awesomeview/internal/apperr"
	"github.com/starford/awesomeview/internal/cache"
	"github.com/starford/awesomeview/internal/collection"
	"github.com/starford/awesomeview/internal/models"
	"github.com/starford/awesomeview/internal/parser"
	"github.com/starford/awesomeview/internal/storage"
	"github.com/starford/awesomeview/internal/watch"
)

// Options configures a Library.
type Options struct {
	// Sources are markdown files or directories of markdown files, in
	// display order.
	Sources     []string
	ExcludeTags []string
	CachePath   string
}

// Library owns the current collection. Collection and LastReport are safe
// for concurrent use; loads are serialized.
type Library struct {
	opts   Options
	fs     storage.Provider
	store  *cache.Store
	logger *slog.Logger

	mu     sync.Mutex
	coll   atomic.Pointer[collection.Collection]
	report atomic.Pointer[Report]
	now    func() time.Time
}

// New creates a Library. Nothing is read until Open or Regenerate.
func New(opts Options, fs storage.Provider, store *cache.Store, logger *slog.Logger) *Library {
	if logger == nil {
		logger = slog.Default()
	}
	return &Library{opts: opts, fs: fs, store: store, logger: logger, now: time.Now}
}

// Collection returns the current collection. Before the first load it is
// empty.
func (l *Library) Collection() *collection.Collection {
	if c := l.coll.Load(); c != nil {
		return c
	}
	return collection.Empty()
}

// LastReport returns the report of the most recent successful load, or nil.
func (l *Library) LastReport() *Report { return l.report.Load() }

// Options returns the options the library was created with.
func (l *Library) Options() Options { return l.opts }

// IsStale reports whether the cache file no longer reflects the sources.
func (l *Library) IsStale() bool {
	sources, err := l.resolveSources()
	if err != nil {
		return true
	}
	return l.store.IsStale(sources, l.opts.CachePath)
}

// Open loads the collection from the cache when it is fresh and matches the
// configured sources, and regenerates it otherwise.
func (l *Library) Open() (*Report, error) {
	sources, err := l.resolveSources()
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.store.IsStale(sources, l.opts.CachePath) {
		snap, err := l.store.Load(l.opts.CachePath)
		switch {
		case err != nil:
			l.logger.Warn("library: cache unusable, regenerating", slog.String("error", err.Error()))
		case !sameSources(snap.SourcePaths(), sources):
			l.logger.Info("library: configured sources changed, regenerating")
		default:
			report := &Report{FromCache: true}
			for _, src := range snap.Sources {
				fr := FileResult{Path: src.Path, Items: src.Items}
				if src.Error != "" {
					fr.Err = errors.New(src.Error)
				}
				report.Files = append(report.Files, fr)
			}
			l.install(snap, report)
			l.logger.Info("library: loaded from cache",
				slog.String("path", l.opts.CachePath),
				slog.Int("items", report.Total),
				slog.Int("excluded", report.Excluded))
			return report, nil
		}
	}
	return l.regenerate(sources)
}

// Regenerate re-parses every source, rewrites the cache and swaps in the
// new collection. Files that fail are reported and skipped. If no file can
// be parsed the current collection is kept and an ErrConfiguration error is
// returned along with the report.
func (l *Library) Regenerate() (*Report, error) {
	sources, err := l.resolveSources()
	if err != nil {
		return nil, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.regenerate(sources)
}

func (l *Library) regenerate(sources []string) (*Report, error) {
	report := &Report{}
	var (
		items   []models.Item
		records []cache.Source
	)
	for _, path := range sources {
		data, err := l.fs.Read(path)
		if err != nil {
			perr := &parser.ParseError{File: path, Msg: "read", Err: err}
			l.logger.Warn("library: source unreadable", slog.String("path", path), slog.String("error", err.Error()))
			report.Files = append(report.Files, FileResult{Path: path, Err: perr})
			records = append(records, cache.UnreadableRecord(path, perr))
			continue
		}
		doc, err := parser.Parse(data, path)
		if err != nil {
			l.logger.Warn("library: source failed to parse", slog.String("path", path), slog.String("error", err.Error()))
			report.Files = append(report.Files, FileResult{Path: path, Err: err})
			records = append(records, cache.SourceRecord(path, data, 0, err))
			continue
		}
		for _, w := range doc.Warnings {
			l.logger.Warn("library: frontmatter ignored", slog.String("path", path), slog.String("warning", w.Message))
		}
		items = append(items, doc.Items...)
		records = append(records, cache.SourceRecord(path, data, len(doc.Items), nil))
		report.Files = append(report.Files, FileResult{Path: path, Items: len(doc.Items), Warnings: doc.Warnings})
	}

	if report.Loaded() == 0 {
		return report, fmt.Errorf("library: regenerate: %w: none of %d source files could be loaded", apperr.ErrConfiguration, len(sources))
	}

	snap := cache.Build(items, records)
	if err := l.store.Write(snap, l.opts.CachePath); err != nil {
		l.logger.Warn("library: cache write failed", slog.String("error", err.Error()))
		report.CacheErr = err
	}
	l.install(snap, report)
	l.logger.Info("library: regenerated",
		slog.Int("loaded", report.Loaded()),
		slog.Int("failed", report.Failed()),
		slog.Int("items", report.Total),
		slog.Int("excluded", report.Excluded))
	return report, nil
}

func (l *Library) install(snap *cache.Snapshot, report *Report) {
	coll := collection.Load(snap, l.opts.ExcludeTags)
	report.Total = coll.TotalCount()
	report.Excluded = coll.ExcludedCount()
	report.LoadedAt = l.now()
	l.coll.Store(coll)
	l.report.Store(report)
}

// resolveSources expands directories into their .md files. Missing files
// stay in the list so they show up as failures. It fails when nothing is
// configured or nothing configured exists.
func (l *Library) resolveSources() ([]string, error) {
	if len(l.opts.Sources) == 0 {
		return nil, fmt.Errorf("library: %w: no source files configured", apperr.ErrConfiguration)
	}
	var (
		out      []string
		existing int
	)
	seen := make(map[string]struct{})
	add := func(p string) {
		if _, dup := seen[p]; dup {
			return
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	for _, src := range l.opts.Sources {
		src = filepath.Clean(src)
		info, err := l.fs.Stat(src)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			l.logger.Warn("library: source not found", slog.String("path", src))
			add(src)
		case err != nil:
			add(src)
		case info.IsDir:
			files, err := l.fs.List(src)
			if err != nil {
				return nil, fmt.Errorf("library: %w", err)
			}
			for _, f := range files {
				existing++
				add(f.Path)
			}
		default:
			existing++
			add(src)
		}
	}
	if existing == 0 {
		return nil, fmt.Errorf("library: %w: none of the configured sources exist", apperr.ErrConfiguration)
	}
	return out, nil
}

func sameSources(recorded, configured []string) bool {
	if len(recorded) != len(configured) {
		return false
	}
	for i := range recorded {
		if recorded[i] != configured[i] {
			return false
		}
	}
	return true
}

// Watch regenerates the library whenever a source changes and reports each
// reload through onReload. It blocks until ctx is cancelled.
func (l *Library) Watch(ctx context.Context, debounce time.Duration, onReload func(*Report, error)) error {
	var opts watch.Options
	opts.Debounce = debounce
	for _, src := range l.opts.Sources {
		src = filepath.Clean(src)
		if info, err := l.fs.Stat(src); err == nil && info.IsDir {
			opts.Dirs = append(opts.Dirs, src)
			continue
		}
		opts.Files = append(opts.Files, src)
	}
	return watch.Watch(ctx, opts, l.logger, func(changed []string) {
		l.logger.Info("library: sources changed", slog.Int("files", len(changed)))
		report, err := l.Regenerate()
		if err != nil {
			l.logger.Error("library: reload failed", slog.String("error", err.Error()))
		}
		if onReload != nil {
			onReload(report, err)
		}
	})
}
