package library

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/starford/awesomeview/internal/parser"
)

// FileResult is the outcome of loading one source file: either a number of
// items (possibly with frontmatter warnings) or an error.
type FileResult struct {
	Path     string
	Items    int
	Warnings []parser.FrontmatterWarning
	Err      error
}

// OK reports whether the file was parsed.
func (r FileResult) OK() bool { return r.Err == nil }

// Report describes one load of the library.
type Report struct {
	Files     []FileResult
	FromCache bool
	Total     int
	Excluded  int
	LoadedAt  time.Time

	// CacheErr is set when the parsed result could not be written to the
	// cache. The collection is still usable.
	CacheErr error
}

// Loaded returns the number of files parsed successfully.
func (r *Report) Loaded() int {
	n := 0
	for _, f := range r.Files {
		if f.OK() {
			n++
		}
	}
	return n
}

// Failed returns the number of files that could not be parsed.
func (r *Report) Failed() int { return len(r.Files) - r.Loaded() }

// Warnings returns every frontmatter warning, file by file.
func (r *Report) Warnings() []parser.FrontmatterWarning {
	var out []parser.FrontmatterWarning
	for _, f := range r.Files {
		out = append(out, f.Warnings...)
	}
	return out
}

func (r *Report) String() string {
	s := fmt.Sprintf("%d %s loaded, %d failed", r.Loaded(), plural(r.Loaded(), "file", "files"), r.Failed())
	if r.FromCache {
		s += " (from cache)"
	}
	return s
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

type fileResultJSON struct {
	Path     string   `json:"path"`
	Items    int      `json:"items"`
	Warnings []string `json:"warnings,omitempty"`
	Error    string   `json:"error,omitempty"`
}

type reportJSON struct {
	Summary   string           `json:"summary"`
	Loaded    int              `json:"loaded"`
	Failed    int              `json:"failed"`
	FromCache bool             `json:"from_cache"`
	CacheErr  string           `json:"cache_error,omitempty"`
	Total     int              `json:"total_items"`
	Excluded  int              `json:"excluded_items"`
	LoadedAt  time.Time        `json:"loaded_at"`
	Files     []fileResultJSON `json:"files"`
}

// MarshalJSON renders errors and warnings as strings.
func (r *Report) MarshalJSON() ([]byte, error) {
	out := reportJSON{
		Summary:   r.String(),
		Loaded:    r.Loaded(),
		Failed:    r.Failed(),
		FromCache: r.FromCache,
		Total:     r.Total,
		Excluded:  r.Excluded,
		LoadedAt:  r.LoadedAt,
		Files:     make([]fileResultJSON, 0, len(r.Files)),
	}
	if r.CacheErr != nil {
		out.CacheErr = r.CacheErr.Error()
	}
	for _, f := range r.Files {
		fj := fileResultJSON{Path: f.Path, Items: f.Items}
		for _, w := range f.Warnings {
			fj.Warnings = append(fj.Warnings, w.String())
		}
		if f.Err != nil {
			fj.Error = f.Err.Error()
		}
		out.Files = append(out.Files, fj)
	}
	return json.Marshal(out)
}
