package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/starford/awesomeview/internal/apperr"
	"github.com/starford/awesomeview/internal/checksum"
	"github.com/starford/awesomeview/internal/storage"
)

// Strategy selects how staleness is detected.
type Strategy string

const (
	// StrategyMTime marks the cache stale when any source was modified
	// strictly after the cache file.
	StrategyMTime Strategy = "mtime"
	// StrategyChecksum marks the cache stale when any source's content hash
	// differs from the one recorded in the snapshot.
	StrategyChecksum Strategy = "checksum"
)

// Error reports a cache file that could not be read, decoded or written.
// Callers treat it as a cache miss.
type Error struct {
	Op   string
	Path string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("cache: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *Error) Unwrap() []error { return []error{apperr.ErrCache, e.Err} }

var errInvalid = errors.New("invalid snapshot")

// Store reads and writes snapshots through a storage provider.
type Store struct {
	fs       storage.Provider
	strategy Strategy
	now      func() time.Time
}

// NewStore creates a Store. An empty strategy means StrategyMTime.
func NewStore(fs storage.Provider, strategy Strategy) *Store {
	if strategy == "" {
		strategy = StrategyMTime
	}
	return &Store{fs: fs, strategy: strategy, now: time.Now}
}

// Strategy returns the staleness strategy in use.
func (s *Store) Strategy() Strategy { return s.strategy }

// SourceRecord describes a source file for inclusion in a snapshot.
// parseErr is recorded for files that could be read but not parsed.
func SourceRecord(path string, content []byte, items int, parseErr error) Source {
	src := Source{Path: path, Checksum: checksum.Sum(content), Items: items}
	if parseErr != nil {
		src.Error = parseErr.Error()
	}
	return src
}

// UnreadableRecord describes a configured source that could not be read.
// It carries no checksum, so the file appearing later makes the cache stale.
func UnreadableRecord(path string, readErr error) Source {
	return Source{Path: path, Error: readErr.Error()}
}

// Write serializes snap and atomically replaces the file at path.
func (s *Store) Write(snap *Snapshot, path string) error {
	if snap.GeneratedAt.IsZero() {
		snap.GeneratedAt = s.now().UTC()
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return &Error{Op: "encode", Path: path, Err: err}
	}
	data = append(data, '\n')
	if err := s.fs.Write(path, data); err != nil {
		return &Error{Op: "write", Path: path, Err: err}
	}
	return nil
}

// Load reads and validates the snapshot at path.
func (s *Store) Load(path string) (*Snapshot, error) {
	data, err := s.fs.Read(path)
	if err != nil {
		return nil, &Error{Op: "read", Path: path, Err: err}
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, &Error{Op: "decode", Path: path, Err: err}
	}
	if err := validate(&snap); err != nil {
		return nil, &Error{Op: "decode", Path: path, Err: err}
	}
	return &snap, nil
}

func validate(snap *Snapshot) error {
	if snap.Version != Version {
		return fmt.Errorf("%w: version %d, want %d", errInvalid, snap.Version, Version)
	}
	for i, topic := range snap.Topics {
		for j, e := range topic.Items {
			if e.Title == "" {
				return fmt.Errorf("%w: topics[%d].items[%d]: empty title", errInvalid, i, j)
			}
		}
	}
	return nil
}

// IsStale reports whether the cache at path must be regenerated from
// sourcePaths. An absent or unreadable cache is always stale. Sources that
// do not exist are ignored.
func (s *Store) IsStale(sourcePaths []string, path string) bool {
	switch s.strategy {
	case StrategyChecksum:
		return s.staleByChecksum(sourcePaths, path)
	default:
		return s.staleByMTime(sourcePaths, path)
	}
}

func (s *Store) staleByMTime(sourcePaths []string, path string) bool {
	info, err := s.fs.Stat(path)
	if err != nil || info.IsDir {
		return true
	}
	for _, src := range sourcePaths {
		si, err := s.fs.Stat(src)
		if err != nil || si.IsDir {
			continue
		}
		if si.ModTime.After(info.ModTime) {
			return true
		}
	}
	if _, err := s.fs.Read(path); err != nil {
		return true
	}
	return false
}

func (s *Store) staleByChecksum(sourcePaths []string, path string) bool {
	snap, err := s.Load(path)
	if err != nil {
		return true
	}
	recorded := make(map[string]string, len(snap.Sources))
	readable := 0
	for _, src := range snap.Sources {
		recorded[src.Path] = src.Checksum
		if src.Checksum != "" {
			readable++
		}
	}
	present := 0
	for _, p := range sourcePaths {
		data, err := s.fs.Read(p)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			// Still unreadable, as recorded.
			if sum, ok := recorded[p]; ok && sum == "" {
				continue
			}
			return true
		}
		present++
		sum, ok := recorded[p]
		if !ok || !checksum.Matches(data, sum) {
			return true
		}
	}
	return present != readable
}
