// Package filter narrows a collection by free-text search, topic and tag.
//
// Filtering is a pure function of the item list and a State value. Engine
// keeps the current State for interactive use and re-derives results and
// counts on every call.
package filter

import (
	"fmt"
	"strings"

	"github.com/starford/awesomeview/internal/models"
)

// TagMode controls how several selected tags combine.
type TagMode string

const (
	// ModeOR keeps items carrying at least one selected tag.
	ModeOR TagMode = "or"
	// ModeAND keeps items carrying every selected tag.
	ModeAND TagMode = "and"
)

// ParseTagMode parses "and" or "or" in any casing. Empty means ModeOR.
func ParseTagMode(s string) (TagMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "or":
		return ModeOR, nil
	case "and":
		return ModeAND, nil
	}
	return "", fmt.Errorf("filter: unknown tag mode %q", s)
}

func (m TagMode) String() string { return strings.ToUpper(string(m)) }

// State is the complete filter configuration.
type State struct {
	Query  string
	Topics []string
	Tags   []string
	Mode   TagMode
}

// Apply returns the items passing search, topic and tag filters, in collection
// order.
func Apply(items []models.Item, st State) []models.Item {
	m := newMatcher(st)
	out := make([]models.Item, 0, len(items))
	for _, it := range items {
		if m.search(it) && m.topic(it) && m.matchTags(it) {
			out = append(out, it)
		}
	}
	return out
}

// TopicCounts counts items per topic over the items passing the search and
// tag filters. The topic filter is ignored so unselected topics still show
// what selecting them would add.
func TopicCounts(items []models.Item, st State) map[string]int {
	m := newMatcher(st)
	counts := make(map[string]int)
	for _, it := range items {
		if m.search(it) && m.matchTags(it) {
			counts[it.Topic]++
		}
	}
	return counts
}

// TagCounts counts items per tag over the items passing the search and topic
// filters, ignoring the tag filter.
func TagCounts(items []models.Item, st State) map[string]int {
	m := newMatcher(st)
	counts := make(map[string]int)
	for _, it := range items {
		if m.search(it) && m.topic(it) {
			for _, t := range it.Tags {
				counts[t]++
			}
		}
	}
	return counts
}

type matcher struct {
	query  string
	topics map[string]struct{}
	tags   []string
	mode   TagMode
}

func newMatcher(st State) matcher {
	m := matcher{
		query: strings.ToLower(strings.TrimSpace(st.Query)),
		tags:  st.Tags,
		mode:  st.Mode,
	}
	if len(st.Topics) > 0 {
		m.topics = make(map[string]struct{}, len(st.Topics))
		for _, t := range st.Topics {
			m.topics[t] = struct{}{}
		}
	}
	return m
}

func (m matcher) search(it models.Item) bool {
	if m.query == "" {
		return true
	}
	if strings.Contains(strings.ToLower(it.Title), m.query) {
		return true
	}
	if strings.Contains(strings.ToLower(it.DescriptionString()), m.query) {
		return true
	}
	for _, t := range it.Tags {
		if strings.Contains(strings.ToLower(t), m.query) {
			return true
		}
	}
	return false
}

func (m matcher) topic(it models.Item) bool {
	if m.topics == nil {
		return true
	}
	_, ok := m.topics[it.Topic]
	return ok
}

func (m matcher) matchTags(it models.Item) bool {
	if len(m.tags) == 0 {
		return true
	}
	if m.mode == ModeAND {
		for _, t := range m.tags {
			if !it.HasTag(t) {
				return false
			}
		}
		return true
	}
	for _, t := range m.tags {
		if it.HasTag(t) {
			return true
		}
	}
	return false
}
