package internal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/starford/awesomeview/internal/api"
	"github.com/starford/awesomeview/internal/apperr"
	"github.com/starford/awesomeview/internal/testutil"
)

func commandOptions(t *testing.T, out io.Writer, sources ...string) ([]Option, *Config) {
	t.Helper()
	if sources == nil {
		sources = []string{testutil.SampleFile(t)}
	}
	cfg := NewDefaultConfig()
	cfg.Sources.Paths = sources
	cfg.Cache.Path = filepath.Join(t.TempDir(), "awesome_list.json")
	return []Option{
		WithConfig(cfg),
		WithOutput(out),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	}, cfg
}

func TestList_Search(t *testing.T) {
	var out bytes.Buffer
	opts, _ := commandOptions(t, &out)

	if err := List(context.Background(), Query{Search: "copilot"}, opts...); err != nil {
		t.Fatalf("list: %v", err)
	}
	got := out.String()
	if !strings.Contains(got, "GitHub Copilot") || !strings.Contains(got, "https://github.com/features/copilot") {
		t.Errorf("missing Copilot in output:\n%s", got)
	}
	if strings.Contains(got, "Gemma 3") {
		t.Errorf("Gemma 3 should be filtered out:\n%s", got)
	}
	if !strings.Contains(got, `Showing 1 of 3 items matching "copilot"`) {
		t.Errorf("missing status line:\n%s", got)
	}
}

func TestList_JSON(t *testing.T) {
	var out bytes.Buffer
	opts, _ := commandOptions(t, &out)

	q := Query{Tags: []string{"google", "github"}, Mode: "or", JSON: true}
	if err := List(context.Background(), q, opts...); err != nil {
		t.Fatalf("list: %v", err)
	}
	var resp api.ItemListResponse
	if err := json.Unmarshal(out.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Total != 3 || resp.Shown != 2 {
		t.Errorf("total/shown = %d/%d, want 3/2", resp.Total, resp.Shown)
	}
	if resp.Summary.ActiveTags != 2 {
		t.Errorf("active tags = %d, want 2", resp.Summary.ActiveTags)
	}
}

func TestList_AndMode(t *testing.T) {
	var out bytes.Buffer
	opts, _ := commandOptions(t, &out)

	q := Query{Tags: []string{"google", "github"}, Mode: "and", JSON: true}
	if err := List(context.Background(), q, opts...); err != nil {
		t.Fatalf("list: %v", err)
	}
	var resp api.ItemListResponse
	if err := json.Unmarshal(out.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Shown != 0 {
		t.Errorf("shown = %d, want 0", resp.Shown)
	}
}

func TestList_UnknownTag(t *testing.T) {
	opts, _ := commandOptions(t, io.Discard)

	err := List(context.Background(), Query{Tags: []string{"nope"}}, opts...)
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestList_BadMode(t *testing.T) {
	opts, _ := commandOptions(t, io.Discard)

	if err := List(context.Background(), Query{Mode: "xor"}, opts...); err == nil {
		t.Fatal("expected error for unknown mode")
	}
}

func TestList_NoSources(t *testing.T) {
	opts, cfg := commandOptions(t, io.Discard)
	cfg.Sources.Paths = nil

	err := List(context.Background(), Query{}, opts...)
	if !errors.Is(err, apperr.ErrConfiguration) {
		t.Fatalf("err = %v, want ErrConfiguration", err)
	}
}

func TestTopicsAndTags(t *testing.T) {
	var out bytes.Buffer
	opts, _ := commandOptions(t, &out)

	if err := Topics(context.Background(), Query{}, opts...); err != nil {
		t.Fatalf("topics: %v", err)
	}
	if got := out.String(); !strings.Contains(got, "TOPIC") || !strings.Contains(got, testutil.SampleTopic) {
		t.Errorf("unexpected topics output:\n%s", got)
	}

	out.Reset()
	q := Query{Search: "copilot", Tags: []string{"github"}}
	if err := Tags(context.Background(), q, opts...); err != nil {
		t.Fatalf("tags: %v", err)
	}
	got := out.String()
	if !strings.Contains(got, "* github") {
		t.Errorf("selected tag not marked:\n%s", got)
	}
	if strings.Contains(got, "gemma") {
		t.Errorf("tags outside the search results should be hidden:\n%s", got)
	}
}

func TestTags_JSON(t *testing.T) {
	var out bytes.Buffer
	opts, _ := commandOptions(t, &out)

	if err := Tags(context.Background(), Query{JSON: true}, opts...); err != nil {
		t.Fatalf("tags: %v", err)
	}
	var resp api.CountResponse
	if err := json.Unmarshal(out.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	for _, c := range resp.Counts {
		if c.Name == "llms" && c.Count != 3 {
			t.Errorf("llms count = %d, want 3", c.Count)
		}
		if c.Name == "awesome" {
			t.Error("awesome should never be a tag")
		}
	}
}

func TestStats(t *testing.T) {
	var out bytes.Buffer
	opts, _ := commandOptions(t, &out)

	if err := Stats(context.Background(), true, opts...); err != nil {
		t.Fatalf("stats: %v", err)
	}
	var resp struct {
		TotalItems int `json:"total_items"`
		Topics     int `json:"topics"`
	}
	if err := json.Unmarshal(out.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.TotalItems != 3 || resp.Topics != 1 {
		t.Errorf("stats = %+v", resp)
	}

	out.Reset()
	if err := Stats(context.Background(), false, opts...); err != nil {
		t.Fatalf("stats: %v", err)
	}
	if !strings.Contains(out.String(), "(from cache)") {
		t.Errorf("second run should load from cache:\n%s", out.String())
	}
}

func TestRegenerate(t *testing.T) {
	var out bytes.Buffer
	opts, cfg := commandOptions(t, &out)

	if err := Regenerate(context.Background(), opts...); err != nil {
		t.Fatalf("regenerate: %v", err)
	}
	got := out.String()
	for _, want := range []string{"Validating settings...", "Regenerating awesome list cache...", "✓ Cache regeneration successful!", "3 items"} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
	if _, err := os.Stat(cfg.Cache.Path); err != nil {
		t.Errorf("cache not written: %v", err)
	}
}

func TestRegenerate_PartialFailure(t *testing.T) {
	var out bytes.Buffer
	dir := t.TempDir()
	good := testutil.WriteFile(t, dir, "good.md", testutil.SampleList)
	bad := testutil.WriteFile(t, dir, "bad.md", "- orphan item\n")
	opts, _ := commandOptions(t, &out, good, bad)

	if err := Regenerate(context.Background(), opts...); err != nil {
		t.Fatalf("one good source should be enough: %v", err)
	}
	got := out.String()
	if !strings.Contains(got, "✗ "+bad) {
		t.Errorf("failed file not reported:\n%s", got)
	}
	if !strings.Contains(got, "1 file loaded, 1 failed") {
		t.Errorf("missing summary:\n%s", got)
	}
}

func TestValidate(t *testing.T) {
	var out bytes.Buffer
	opts, _ := commandOptions(t, &out)

	if err := Validate(context.Background(), opts...); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if !strings.Contains(out.String(), "✓ Settings are valid") {
		t.Errorf("unexpected output: %s", out.String())
	}
}

func TestValidate_MissingSource(t *testing.T) {
	var out bytes.Buffer
	missing := filepath.Join(t.TempDir(), "missing.md")
	opts, _ := commandOptions(t, &out, missing)

	err := Validate(context.Background(), opts...)
	if !errors.Is(err, apperr.ErrConfiguration) {
		t.Fatalf("err = %v, want ErrConfiguration", err)
	}
	if !strings.Contains(out.String(), "✗ Settings validation failed:") {
		t.Errorf("unexpected output: %s", out.String())
	}
}

func TestCheckSources(t *testing.T) {
	dir := t.TempDir()
	md := testutil.WriteFile(t, dir, "list.md", testutil.SampleList)
	txt := testutil.WriteFile(t, dir, "notes.txt", "hello")

	cfg := NewDefaultConfig()
	if got := CheckSources(cfg); len(got) != 1 || got[0] != "no sources configured" {
		t.Errorf("empty sources: %v", got)
	}

	cfg.Sources.Paths = []string{md, dir, txt, filepath.Join(dir, "gone.md")}
	got := CheckSources(cfg)
	want := []string{"not a markdown file: " + txt, "file not found: " + filepath.Join(dir, "gone.md")}
	if len(got) != len(want) {
		t.Fatalf("problems = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("problem %d = %q, want %q", i, got[i], want[i])
		}
	}
}
