package filter

import (
	"fmt"
	"sort"
	"strings"

	"github.com/starford/awesomeview/internal/collection"
	"github.com/starford/awesomeview/internal/models"
	"github.com/starford/awesomeview/internal/tags"
)

// Count is one row of a topic or tag picker.
type Count struct {
	Name     string `json:"name"`
	Count    int    `json:"count"`
	Selected bool   `json:"selected"`
}

// Summary describes the current view.
type Summary struct {
	Total         int     `json:"total"`
	Shown         int     `json:"shown"`
	Query         string  `json:"query,omitempty"`
	ActiveFilters int     `json:"active_filters"`
	ActiveTopics  int     `json:"active_topics"`
	ActiveTags    int     `json:"active_tags"`
	Mode          TagMode `json:"mode"`
}

// Engine holds interactive filter state over one collection. It is not safe
// for concurrent use.
type Engine struct {
	coll   *collection.Collection
	query  string
	topics tags.Set
	tags   tags.Set
	mode   TagMode
}

// New returns an engine with no filters over c, in OR tag mode.
func New(c *collection.Collection) *Engine {
	if c == nil {
		c = collection.Empty()
	}
	return &Engine{coll: c, mode: ModeOR}
}

// Collection returns the collection being filtered.
func (e *Engine) Collection() *collection.Collection { return e.coll }

// SetCollection swaps in a reloaded collection. Selected topics and tags
// that no longer exist are dropped. The search query is kept.
func (e *Engine) SetCollection(c *collection.Collection) {
	if c == nil {
		c = collection.Empty()
	}
	e.coll = c
	for _, t := range e.topics.Slice() {
		if !c.HasTopic(t) {
			e.topics.Remove(t)
		}
	}
	for _, t := range e.tags.Slice() {
		if !c.HasTag(t) {
			e.tags.Remove(t)
		}
	}
}

// State returns a copy of the current filter state.
func (e *Engine) State() State {
	return State{
		Query:  e.query,
		Topics: e.topics.Slice(),
		Tags:   e.tags.Slice(),
		Mode:   e.mode,
	}
}

// Restore replaces the current state with st. Topics and tags unknown to
// the collection are ignored.
func (e *Engine) Restore(st State) {
	e.query = st.Query
	e.mode = st.Mode
	if e.mode == "" {
		e.mode = ModeOR
	}
	e.topics.Clear()
	e.tags.Clear()
	for _, t := range st.Topics {
		if e.coll.HasTopic(t) {
			e.topics.Add(t)
		}
	}
	for _, t := range st.Tags {
		if e.coll.HasTag(t) {
			e.tags.Add(t)
		}
	}
}

// SetSearchQuery sets the free-text query.
func (e *Engine) SetSearchQuery(q string) { e.query = q }

// SearchQuery returns the free-text query.
func (e *Engine) SearchQuery() string { return e.query }

// ClearSearchResults clears the free-text query.
func (e *Engine) ClearSearchResults() { e.query = "" }

// ToggleTopicFilter selects or deselects topic and reports whether it is
// selected afterwards. Unknown topics are ignored.
func (e *Engine) ToggleTopicFilter(topic string) bool {
	if !e.topics.Has(topic) && !e.coll.HasTopic(topic) {
		return false
	}
	return e.topics.Toggle(topic)
}

// ToggleTagFilter selects or deselects tag and reports whether it is
// selected afterwards. Unknown tags are ignored.
func (e *Engine) ToggleTagFilter(tag string) bool {
	if !e.tags.Has(tag) && !e.coll.HasTag(tag) {
		return false
	}
	return e.tags.Toggle(tag)
}

// Unknown lists filter names that matched nothing in the collection.
type Unknown struct {
	Topics []string `json:"topics,omitempty"`
	Tags   []string `json:"tags,omitempty"`
}

// Empty reports whether every name was known.
func (u Unknown) Empty() bool { return len(u.Topics) == 0 && len(u.Tags) == 0 }

func (u Unknown) String() string {
	var parts []string
	if len(u.Topics) > 0 {
		parts = append(parts, "unknown topic: "+strings.Join(u.Topics, ", "))
	}
	if len(u.Tags) > 0 {
		parts = append(parts, "unknown tag: "+strings.Join(u.Tags, ", "))
	}
	return strings.Join(parts, "; ")
}

// Select adds topics and tags to the current selection. Names already
// selected stay selected. Names the collection does not know are skipped
// and returned.
func (e *Engine) Select(topics, tags []string) Unknown {
	var u Unknown
	for _, t := range topics {
		if e.IsTopicSelected(t) {
			continue
		}
		if !e.ToggleTopicFilter(t) {
			u.Topics = append(u.Topics, t)
		}
	}
	for _, t := range tags {
		if e.IsTagSelected(t) {
			continue
		}
		if !e.ToggleTagFilter(t) {
			u.Tags = append(u.Tags, t)
		}
	}
	return u
}

// SetTagFilterMode sets how selected tags combine.
func (e *Engine) SetTagFilterMode(m TagMode) {
	if m != ModeAND {
		m = ModeOR
	}
	e.mode = m
}

// ToggleTagFilterMode flips between OR and AND and returns the new mode.
func (e *Engine) ToggleTagFilterMode() TagMode {
	if e.mode == ModeAND {
		e.mode = ModeOR
	} else {
		e.mode = ModeAND
	}
	return e.mode
}

// TagFilterMode returns the current tag mode.
func (e *Engine) TagFilterMode() TagMode { return e.mode }

// ResetFilters clears topic and tag selections and restores OR mode.
// The search query is left alone.
func (e *Engine) ResetFilters() {
	e.topics.Clear()
	e.tags.Clear()
	e.mode = ModeOR
}

// IsTopicSelected reports whether topic is selected.
func (e *Engine) IsTopicSelected(topic string) bool { return e.topics.Has(topic) }

// IsTagSelected reports whether tag is selected.
func (e *Engine) IsTagSelected(tag string) bool { return e.tags.Has(tag) }

// HasActiveFilters reports whether the query, topic or tag state differs
// from the default.
func (e *Engine) HasActiveFilters() bool {
	return strings.TrimSpace(e.query) != "" || e.topics.Len() > 0 || e.tags.Len() > 0
}

// FilteredItems returns the items passing every filter.
func (e *Engine) FilteredItems() []models.Item {
	return Apply(e.coll.Items(), e.State())
}

// TopicCounts returns live counts per topic. Selected topics are present
// even when their count is zero.
func (e *Engine) TopicCounts() map[string]int {
	counts := TopicCounts(e.coll.Items(), e.State())
	for _, t := range e.topics.Slice() {
		if _, ok := counts[t]; !ok {
			counts[t] = 0
		}
	}
	return counts
}

// TagCounts returns live counts per tag. Selected tags are present even
// when their count is zero.
func (e *Engine) TagCounts() map[string]int {
	counts := TagCounts(e.coll.Items(), e.State())
	for _, t := range e.tags.Slice() {
		if _, ok := counts[t]; !ok {
			counts[t] = 0
		}
	}
	return counts
}

// TopicList returns every topic of the collection in document order with
// its live count.
func (e *Engine) TopicList() []Count {
	counts := e.TopicCounts()
	out := make([]Count, 0, len(e.coll.Topics()))
	for _, t := range e.coll.Topics() {
		out = append(out, Count{Name: t, Count: counts[t], Selected: e.topics.Has(t)})
	}
	return out
}

// TagList returns the tags with a non-zero live count, plus selected tags,
// sorted by name.
func (e *Engine) TagList() []Count {
	counts := e.TagCounts()
	out := make([]Count, 0, len(counts))
	for t, n := range counts {
		out = append(out, Count{Name: t, Count: n, Selected: e.tags.Has(t)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Summary returns totals for the current view.
func (e *Engine) Summary() Summary {
	return Summary{
		Total:         e.coll.Len(),
		Shown:         len(e.FilteredItems()),
		Query:         strings.TrimSpace(e.query),
		ActiveFilters: e.topics.Len() + e.tags.Len(),
		ActiveTopics:  e.topics.Len(),
		ActiveTags:    e.tags.Len(),
		Mode:          e.mode,
	}
}

// Status renders the summary as a single status line.
func (e *Engine) Status() string {
	return e.Summary().String()
}

func (s Summary) String() string {
	if s.Query == "" && s.ActiveFilters == 0 {
		return fmt.Sprintf("Showing all %d items", s.Total)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Showing %d of %d items", s.Shown, s.Total)
	if s.Query != "" {
		fmt.Fprintf(&b, " matching %q", s.Query)
	}
	if s.ActiveFilters > 0 {
		noun := "filters"
		if s.ActiveFilters == 1 {
			noun = "filter"
		}
		var parts []string
		if s.ActiveTopics > 0 {
			parts = append(parts, fmt.Sprintf("%d topic", s.ActiveTopics))
		}
		if s.ActiveTags > 0 {
			parts = append(parts, fmt.Sprintf("%d tag", s.ActiveTags))
		}
		fmt.Fprintf(&b, " (%d %s active: %s)", s.ActiveFilters, noun, strings.Join(parts, ", "))
	}
	return b.String()
}
