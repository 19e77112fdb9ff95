// Package models defines the domain types shared by the parser, cache and
// filter layers.
package models

// Item is one bullet entry of an awesome list, with its tags already
// resolved against the enclosing headings and the document frontmatter.
type Item struct {
	ID          int      `json:"id"`
	Title       string   `json:"title"`
	Topic       string   `json:"topic"`
	Tags        []string `json:"tags"`
	Link        *string  `json:"link"`
	Description *string  `json:"description"`
	Sections    []string `json:"sections,omitempty"`
	SourceFile  string   `json:"source_file,omitempty"`
	Line        int      `json:"line,omitempty"`
}

// LinkString returns the link or "" when the item has none.
func (it Item) LinkString() string {
	if it.Link == nil {
		return ""
	}
	return *it.Link
}

// DescriptionString returns the description or "" when the item has none.
func (it Item) DescriptionString() string {
	if it.Description == nil {
		return ""
	}
	return *it.Description
}

// HasTag reports whether tag is one of the item's resolved tags.
func (it Item) HasTag(tag string) bool {
	for _, t := range it.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Heading is a markdown heading with the #tags found on its line.
type Heading struct {
	Level int      `json:"level"`
	Text  string   `json:"text"`
	Tags  []string `json:"tags,omitempty"`
}

// MaxHeadingLevel is the deepest heading level tracked for inheritance.
// Deeper headings share the last slot.
const MaxHeadingLevel = 3

// HeadingStack holds the most recent heading seen at each tracked level.
// Index 0 is the level-1 heading.
type HeadingStack [MaxHeadingLevel]*Heading

// Push records h at its level and clears every deeper level.
func (s *HeadingStack) Push(h Heading) {
	level := h.Level
	if level > MaxHeadingLevel {
		level = MaxHeadingLevel
	}
	if level < 1 {
		level = 1
	}
	h.Level = level
	s[level-1] = &h
	for i := level; i < MaxHeadingLevel; i++ {
		s[i] = nil
	}
}

// Topic returns the text of the level-1 heading, or "" before any.
func (s *HeadingStack) Topic() string {
	if s[0] == nil {
		return ""
	}
	return s[0].Text
}

// Ancestors returns the tracked headings nearest first (level 3, 2, then 1).
func (s *HeadingStack) Ancestors() []Heading {
	out := make([]Heading, 0, MaxHeadingLevel)
	for i := MaxHeadingLevel - 1; i >= 0; i-- {
		if s[i] != nil {
			out = append(out, *s[i])
		}
	}
	return out
}

// Sections returns the texts of the tracked sub-headings in document order.
func (s *HeadingStack) Sections() []string {
	var out []string
	for i := 1; i < MaxHeadingLevel; i++ {
		if s[i] != nil && s[i].Text != "" {
			out = append(out, s[i].Text)
		}
	}
	return out
}
