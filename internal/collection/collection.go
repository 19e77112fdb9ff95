// Package collection holds the immutable set of items a filter engine
// queries, after global tag exclusion.
package collection

import (
	"github.com/starford/awesomeview/internal/cache"
	"github.com/starford/awesomeview/internal/models"
	"github.com/starford/awesomeview/internal/tags"
)

// Collection is the in-memory item set built from one snapshot. It is never
// mutated after Load; a reload builds a new Collection.
type Collection struct {
	items    []models.Item
	byID     map[int]int
	topics   []string
	tags     []string
	exclude  []string
	total    int
	excluded int
	sources  []cache.Source
}

// Load flattens snap into items and drops every item whose tags intersect
// excludeTags. Items are numbered from 1 in snapshot order, excluded items
// included, so IDs stay stable for a given snapshot.
func Load(snap *cache.Snapshot, excludeTags []string) *Collection {
	exclude := tags.NewSet(excludeTags...)
	all := snap.Items()

	c := &Collection{
		byID:    make(map[int]int, len(all)),
		exclude: exclude.Slice(),
		total:   len(all),
		sources: snap.Sources,
	}
	topicSeen := tags.NewSet()
	tagSeen := tags.NewSet()
	for i, it := range all {
		it.ID = i + 1
		if exclude.Intersects(it.Tags) {
			c.excluded++
			continue
		}
		c.byID[it.ID] = len(c.items)
		c.items = append(c.items, it)
		topicSeen.Add(it.Topic)
		for _, t := range it.Tags {
			tagSeen.Add(t)
		}
	}
	c.topics = topicSeen.Slice()
	c.tags = tagSeen.Sorted()
	return c
}

// Empty returns a collection with no items.
func Empty() *Collection {
	return Load(&cache.Snapshot{}, nil)
}

// Items returns the kept items in snapshot order. Callers must not modify
// the returned slice.
func (c *Collection) Items() []models.Item { return c.items }

// Item returns the kept item with the given id.
func (c *Collection) Item(id int) (models.Item, bool) {
	i, ok := c.byID[id]
	if !ok {
		return models.Item{}, false
	}
	return c.items[i], true
}

// Len returns the number of kept items.
func (c *Collection) Len() int { return len(c.items) }

// TotalCount returns the number of items in the snapshot, before exclusion.
func (c *Collection) TotalCount() int { return c.total }

// ExcludedCount returns the number of items dropped by the exclude tags.
func (c *Collection) ExcludedCount() int { return c.excluded }

// Topics returns the topics of kept items in first-seen order.
func (c *Collection) Topics() []string { return c.topics }

// Tags returns the tags of kept items in lexical order.
func (c *Collection) Tags() []string { return c.tags }

// ExcludeTags returns the exclude set the collection was loaded with.
func (c *Collection) ExcludeTags() []string { return c.exclude }

// Sources returns the source records of the snapshot.
func (c *Collection) Sources() []cache.Source { return c.sources }

// HasTopic reports whether any kept item belongs to topic.
func (c *Collection) HasTopic(topic string) bool {
	for _, t := range c.topics {
		if t == topic {
			return true
		}
	}
	return false
}

// HasTag reports whether any kept item carries tag.
func (c *Collection) HasTag(tag string) bool {
	for _, t := range c.tags {
		if t == tag {
			return true
		}
	}
	return false
}
