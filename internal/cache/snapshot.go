// Package cache persists parsed awesome lists as a JSON snapshot grouped by
// topic and decides when the snapshot is stale relative to its sources.
package cache

import (
	"sort"
	"time"

	"github.com/starford/awesomeview/internal/models"
)

// Version is the snapshot format written by this package.
const Version = 1

// Snapshot is the persisted cache document.
type Snapshot struct {
	Version     int       `json:"version"`
	GeneratedAt time.Time `json:"generated_at"`
	Sources     []Source  `json:"sources"`
	Metadata    Metadata  `json:"metadata"`
	Topics      []Topic   `json:"topics"`
}

// Source records one parsed list file.
type Source struct {
	Path     string `json:"path"`
	Checksum string `json:"checksum,omitempty"`
	Items    int    `json:"items"`
	Error    string `json:"error,omitempty"`
}

// Metadata summarizes the snapshot for tools reading the file directly.
type Metadata struct {
	Topics     []string `json:"topics"`
	Tags       []string `json:"tags"`
	TotalItems int      `json:"total_items"`
	TotalLists int      `json:"total_lists"`
}

// Topic groups the items found under one level-1 heading.
type Topic struct {
	Topic string  `json:"topic"`
	Items []Entry `json:"items"`
}

// Entry is the persisted form of an item. The topic is implied by the
// enclosing Topic.
type Entry struct {
	Title       string   `json:"title"`
	Tags        []string `json:"tags"`
	Link        *string  `json:"link"`
	Description *string  `json:"description"`
	Sections    []string `json:"sections,omitempty"`
	SourceFile  string   `json:"source_file,omitempty"`
	Line        int      `json:"line,omitempty"`
}

// Build groups items by topic in first-seen order, keeping document order
// within each topic.
func Build(items []models.Item, sources []Source) *Snapshot {
	snap := &Snapshot{
		Version: Version,
		Sources: sources,
		Topics:  []Topic{},
	}
	index := make(map[string]int)
	tagSeen := make(map[string]struct{})
	for _, it := range items {
		i, ok := index[it.Topic]
		if !ok {
			i = len(snap.Topics)
			index[it.Topic] = i
			snap.Topics = append(snap.Topics, Topic{Topic: it.Topic, Items: []Entry{}})
			snap.Metadata.Topics = append(snap.Metadata.Topics, it.Topic)
		}
		tags := it.Tags
		if tags == nil {
			tags = []string{}
		}
		snap.Topics[i].Items = append(snap.Topics[i].Items, Entry{
			Title:       it.Title,
			Tags:        tags,
			Link:        it.Link,
			Description: it.Description,
			Sections:    it.Sections,
			SourceFile:  it.SourceFile,
			Line:        it.Line,
		})
		for _, t := range it.Tags {
			if _, dup := tagSeen[t]; !dup {
				tagSeen[t] = struct{}{}
				snap.Metadata.Tags = append(snap.Metadata.Tags, t)
			}
		}
	}
	sort.Strings(snap.Metadata.Tags)
	if snap.Metadata.Topics == nil {
		snap.Metadata.Topics = []string{}
	}
	if snap.Metadata.Tags == nil {
		snap.Metadata.Tags = []string{}
	}
	if snap.Sources == nil {
		snap.Sources = []Source{}
	}
	snap.Metadata.TotalItems = len(items)
	for _, src := range snap.Sources {
		if src.Error == "" {
			snap.Metadata.TotalLists++
		}
	}
	return snap
}

// Items flattens the snapshot back into items, topic by topic.
func (s *Snapshot) Items() []models.Item {
	var out []models.Item
	for _, topic := range s.Topics {
		for _, e := range topic.Items {
			it := models.Item{
				Title:       e.Title,
				Topic:       topic.Topic,
				Tags:        e.Tags,
				Link:        e.Link,
				Description: e.Description,
				Sections:    e.Sections,
				SourceFile:  e.SourceFile,
				Line:        e.Line,
			}
			if len(it.Tags) == 0 {
				it.Tags = nil
			}
			if len(it.Sections) == 0 {
				it.Sections = nil
			}
			out = append(out, it)
		}
	}
	return out
}

// SourcePaths returns the recorded source paths in order.
func (s *Snapshot) SourcePaths() []string {
	out := make([]string, 0, len(s.Sources))
	for _, src := range s.Sources {
		out = append(out, src.Path)
	}
	return out
}
