// Package testutil provides shared fixtures for tests: a sample awesome list
// and helpers that write source files into a temporary directory.
package testutil

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// SampleTopic is the level-1 heading of SampleList.
const SampleTopic = "Awesome list on large language models"

// SampleList is a small awesome list with frontmatter tags, three tagged
// sections and one item in each.
const SampleList = `---
tags:
  - llms
  - ai_tools
  - awesome
---

# Awesome list on large language models

## Models & Platforms #llms

- Gemma 3 #google #gemma

  <https://blog.google/technology/developers/gemma-3/>

  Lightweight open models built from the same research as Gemini.

## LLM Coding Assistants #coding-assistants

- GitHub Copilot #github #coding

  <https://github.com/features/copilot>

  AI pair programmer by GitHub.

______________________________________________________________________

## Prompt Engineering #prompt-engineering

- LLM System Prompts

  <https://github.com/asgeirtj/system_prompts_leaks/>

  Collection of system prompts from popular LLM products.
`

// WriteFile writes content to name inside dir and returns the full path.
func WriteFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// SampleFile writes SampleList into a fresh temporary directory.
func SampleFile(t *testing.T) string {
	t.Helper()
	return WriteFile(t, t.TempDir(), "llms.md", SampleList)
}

// Touch sets the modification time of path to now plus offset.
func Touch(t *testing.T, path string, offset time.Duration) {
	t.Helper()
	ts := time.Now().Add(offset)
	if err := os.Chtimes(path, ts, ts); err != nil {
		t.Fatal(err)
	}
}
