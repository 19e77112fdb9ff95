package internal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/starford/awesomeview/internal/api"
	"github.com/starford/awesomeview/internal/apperr"
	"github.com/starford/awesomeview/internal/filter"
	"github.com/starford/awesomeview/internal/library"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true)
	faintStyle = lipgloss.NewStyle().Faint(true)
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
)

// Query selects items for the list, topics and tags commands.
type Query struct {
	Search string
	Topics []string
	Tags   []string
	Mode   string
	JSON   bool
}

func (q Query) engine(lib *library.Library) (*filter.Engine, error) {
	mode, err := filter.ParseTagMode(q.Mode)
	if err != nil {
		return nil, err
	}
	e := filter.New(lib.Collection())
	e.SetSearchQuery(q.Search)
	e.SetTagFilterMode(mode)
	for _, t := range q.Topics {
		if !e.Collection().HasTopic(t) {
			return nil, fmt.Errorf("unknown topic %q: %w", t, apperr.ErrNotFound)
		}
		if !e.IsTopicSelected(t) {
			e.ToggleTopicFilter(t)
		}
	}
	for _, t := range q.Tags {
		if !e.Collection().HasTag(t) {
			return nil, fmt.Errorf("unknown tag %q: %w", t, apperr.ErrNotFound)
		}
		if !e.IsTagSelected(t) {
			e.ToggleTagFilter(t)
		}
	}
	return e, nil
}

// open builds the application for a one-shot command and loads the
// library. Logs go to stderr so stdout stays machine readable.
func open(opts []Option) (*application, *library.Library, error) {
	app, err := newApplication(os.Stderr, opts...)
	if err != nil {
		return nil, nil, err
	}
	lib := app.library()
	report, err := lib.Open()
	if err != nil {
		return nil, nil, fmt.Errorf("load library: %w", err)
	}
	logReport(app.logger, report)
	return app, lib, nil
}

// List prints the items matching q.
func List(_ context.Context, q Query, opts ...Option) error {
	app, lib, err := open(opts)
	if err != nil {
		return err
	}
	e, err := q.engine(lib)
	if err != nil {
		return err
	}
	items := e.FilteredItems()

	if q.JSON {
		return writeJSON(app.out, api.ItemListResponse{
			Items:   items,
			Total:   e.Collection().Len(),
			Shown:   len(items),
			Summary: e.Summary(),
			Status:  e.Status(),
		})
	}

	w := app.out
	width := len(strconv.Itoa(e.Collection().TotalCount()))
	indent := strings.Repeat(" ", width+2)
	for _, it := range items {
		fmt.Fprintf(w, "%*d  %s\n", width, it.ID, titleStyle.Render(it.Title))
		if link := it.LinkString(); link != "" {
			fmt.Fprintf(w, "%s%s\n", indent, link)
		}
		if len(it.Tags) > 0 {
			fmt.Fprintf(w, "%s%s\n", indent, faintStyle.Render("#"+strings.Join(it.Tags, " #")))
		}
	}
	fmt.Fprintln(w, faintStyle.Render(e.Status()+" ["+e.TagFilterMode().String()+"]"))
	return nil
}

// Topics prints topic counts under q.
func Topics(_ context.Context, q Query, opts ...Option) error {
	return printCounts(q, opts, "TOPIC", (*filter.Engine).TopicList)
}

// Tags prints tag counts under q.
func Tags(_ context.Context, q Query, opts ...Option) error {
	return printCounts(q, opts, "TAG", (*filter.Engine).TagList)
}

func printCounts(q Query, opts []Option, header string, list func(*filter.Engine) []filter.Count) error {
	app, lib, err := open(opts)
	if err != nil {
		return err
	}
	e, err := q.engine(lib)
	if err != nil {
		return err
	}
	counts := list(e)

	if q.JSON {
		return writeJSON(app.out, api.CountResponse{Counts: counts})
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(header, "ITEMS")
	for _, c := range counts {
		name := c.Name
		if c.Selected {
			name = "* " + name
		}
		t.Row(name, strconv.Itoa(c.Count))
	}
	fmt.Fprintln(app.out, t.Render())
	return nil
}

// Stats prints collection totals and the load report.
func Stats(_ context.Context, asJSON bool, opts ...Option) error {
	app, lib, err := open(opts)
	if err != nil {
		return err
	}
	stats := api.NewStats(lib.Collection(), lib.LastReport())

	if asJSON {
		return writeJSON(app.out, stats)
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Row("Items", strconv.Itoa(stats.TotalItems)).
		Row("Visible", strconv.Itoa(stats.VisibleItems)).
		Row("Excluded", strconv.Itoa(stats.ExcludedItems)).
		Row("Topics", strconv.Itoa(stats.Topics)).
		Row("Tags", strconv.Itoa(stats.Tags)).
		Row("Exclude tags", strings.Join(stats.ExcludeTags, ", ")).
		Row("Cache", app.config.Cache.Path)
	fmt.Fprintln(app.out, t.Render())
	if stats.Report != nil {
		fmt.Fprintln(app.out, stats.Report.String())
	}
	return nil
}

// Regenerate validates the sources, re-parses them and rewrites the cache.
func Regenerate(_ context.Context, opts ...Option) error {
	app, err := newApplication(os.Stderr, opts...)
	if err != nil {
		return err
	}
	w := app.out

	fmt.Fprintln(w, "Validating settings...")
	if problems := CheckSources(app.config); len(problems) > 0 {
		fmt.Fprintln(w, "Settings validation errors:")
		for _, p := range problems {
			fmt.Fprintf(w, "  - %s\n", p)
		}
		if len(problems) == len(app.config.Sources.Paths) || len(app.config.Sources.Paths) == 0 {
			return fmt.Errorf("%w: no usable sources", apperr.ErrConfiguration)
		}
	}

	fmt.Fprintln(w, "Regenerating awesome list cache...")
	report, err := app.library().Regenerate()
	if err != nil {
		fmt.Fprintln(w, errStyle.Render("✗ Cache regeneration failed!"))
		printReport(w, report)
		return err
	}
	fmt.Fprintln(w, okStyle.Render("✓ Cache regeneration successful!"))
	printReport(w, report)
	if report.CacheErr != nil {
		return report.CacheErr
	}
	return nil
}

// Validate checks the configuration and the sources without loading them.
func Validate(_ context.Context, opts ...Option) error {
	probe := &application{out: os.Stdout}
	for _, opt := range opts {
		opt(probe)
	}
	w := probe.out

	var problems []string
	app, err := newApplication(os.Stderr, opts...)
	switch {
	case errors.Is(err, apperr.ErrConfiguration):
		problems = []string{err.Error()}
	case err != nil:
		return err
	default:
		problems = CheckSources(app.config)
	}

	if len(problems) == 0 {
		fmt.Fprintln(w, okStyle.Render("✓ Settings are valid"))
		return nil
	}
	fmt.Fprintln(w, errStyle.Render("✗ Settings validation failed:"))
	for _, p := range problems {
		fmt.Fprintf(w, "  - %s\n", p)
	}
	return fmt.Errorf("%w: %d problem(s)", apperr.ErrConfiguration, len(problems))
}

// CheckSources lists configured sources that cannot be loaded.
func CheckSources(cfg *Config) []string {
	if len(cfg.Sources.Paths) == 0 {
		return []string{"no sources configured"}
	}
	var problems []string
	for _, p := range cfg.Sources.Paths {
		info, err := os.Stat(p)
		switch {
		case errors.Is(err, os.ErrNotExist):
			problems = append(problems, "file not found: "+p)
		case err != nil:
			problems = append(problems, fmt.Sprintf("cannot read %s: %v", p, err))
		case !info.IsDir() && !strings.EqualFold(filepath.Ext(p), ".md"):
			problems = append(problems, "not a markdown file: "+p)
		}
	}
	return problems
}

func printReport(w io.Writer, report *library.Report) {
	if report == nil {
		return
	}
	fmt.Fprintf(w, "  %d items, %s\n", report.Total, report.String())
	for _, f := range report.Files {
		if f.Err != nil {
			fmt.Fprintf(w, "  %s %s: %v\n", errStyle.Render("✗"), f.Path, f.Err)
			continue
		}
		fmt.Fprintf(w, "  %s %s: %d items\n", okStyle.Render("✓"), f.Path, f.Items)
		for _, warn := range f.Warnings {
			fmt.Fprintf(w, "    ! %s\n", warn.String())
		}
	}
	if report.CacheErr != nil {
		fmt.Fprintf(w, "  cache not written: %v\n", report.CacheErr)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
