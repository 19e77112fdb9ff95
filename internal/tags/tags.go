// Package tags extracts #tags from markdown lines and resolves an item's
// final tag list from its own tags, its ancestor headings and the document
// frontmatter.
package tags

import (
	"regexp"
	"sort"
	"strings"

	"github.com/starford/awesomeview/internal/models"
)

// Ignored is dropped from every resolved tag list.
const Ignored = "awesome"

var tagRe = regexp.MustCompile(`(^|\s)#([\p{L}\p{N}_][\p{L}\p{N}_-]*)`)

// Extract returns text with its #tags removed and whitespace collapsed,
// together with the tags in the order they appear. Tags differing only in
// case collapse into the first one.
func Extract(text string) (string, []string) {
	matches := tagRe.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return strings.Join(strings.Fields(text), " "), nil
	}
	s := NewFoldSet()
	for _, m := range matches {
		s.Add(m[2])
	}
	clean := tagRe.ReplaceAllString(text, "$1")
	return strings.Join(strings.Fields(clean), " "), s.Slice()
}

// Resolve merges tag scopes by priority: the item's inline tags, then the
// ancestor headings nearest first, then the frontmatter tags. Duplicates,
// compared without case, keep their first position and casing. The ignored
// tag never appears.
func Resolve(inline []string, ancestors []models.Heading, frontmatter []string) []string {
	s := NewFoldSet()
	add := func(list []string) {
		for _, t := range list {
			if strings.EqualFold(t, Ignored) {
				continue
			}
			s.Add(t)
		}
	}
	add(inline)
	for _, h := range ancestors {
		add(h.Tags)
	}
	add(frontmatter)
	return s.Slice()
}

// Topic returns the topic name for items under stack.
func Topic(stack *models.HeadingStack) string {
	return stack.Topic()
}

// Set is an insertion-ordered set of tags. The zero value is ready to use
// and compares tags exactly.
type Set struct {
	order []string
	index map[string]struct{}
	fold  bool
}

// NewSet returns a set holding values in order, duplicates dropped.
func NewSet(values ...string) *Set {
	s := &Set{}
	for _, v := range values {
		s.Add(v)
	}
	return s
}

// NewFoldSet returns a set that treats values differing only in case as the
// same tag and keeps the casing added first.
func NewFoldSet(values ...string) *Set {
	s := &Set{fold: true}
	for _, v := range values {
		s.Add(v)
	}
	return s
}

func (s *Set) key(v string) string {
	if s.fold {
		return strings.ToLower(v)
	}
	return v
}

// Add inserts v and reports whether it was not already present.
// Empty strings are ignored.
func (s *Set) Add(v string) bool {
	v = strings.TrimSpace(v)
	if v == "" {
		return false
	}
	if s.index == nil {
		s.index = make(map[string]struct{})
	}
	k := s.key(v)
	if _, ok := s.index[k]; ok {
		return false
	}
	s.index[k] = struct{}{}
	s.order = append(s.order, v)
	return true
}

// Remove deletes v and reports whether it was present.
func (s *Set) Remove(v string) bool {
	k := s.key(v)
	if _, ok := s.index[k]; !ok {
		return false
	}
	delete(s.index, k)
	for i, o := range s.order {
		if s.key(o) == k {
			s.order = append(s.order[:i:i], s.order[i+1:]...)
			break
		}
	}
	return true
}

// Toggle adds v when absent and removes it when present. It reports whether
// v is present afterwards.
func (s *Set) Toggle(v string) bool {
	if s.Has(v) {
		s.Remove(v)
		return false
	}
	return s.Add(v)
}

// Has reports whether v is in the set.
func (s *Set) Has(v string) bool {
	_, ok := s.index[s.key(v)]
	return ok
}

// Len returns the number of elements.
func (s *Set) Len() int { return len(s.order) }

// Clear empties the set.
func (s *Set) Clear() {
	s.order = nil
	s.index = nil
}

// Slice returns the elements in insertion order.
func (s *Set) Slice() []string {
	if len(s.order) == 0 {
		return nil
	}
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Sorted returns the elements in lexical order.
func (s *Set) Sorted() []string {
	out := s.Slice()
	sort.Strings(out)
	return out
}

// Intersects reports whether any of values is in the set.
func (s *Set) Intersects(values []string) bool {
	for _, v := range values {
		if s.Has(v) {
			return true
		}
	}
	return false
}
