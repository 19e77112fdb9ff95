package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/awesomeview/internal/cache"
	"github.com/starford/awesomeview/internal/collection"
	"github.com/starford/awesomeview/internal/models"
	"github.com/starford/awesomeview/internal/parser"
	"github.com/starford/awesomeview/internal/testutil"
)

func strPtr(s string) *string { return &s }

func load(items []models.Item, exclude ...string) *collection.Collection {
	return collection.Load(cache.Build(items, nil), exclude)
}

func sampleCollection(t *testing.T) *collection.Collection {
	t.Helper()
	doc, err := parser.Parse([]byte(testutil.SampleList), "llms.md")
	require.NoError(t, err)
	return load(doc.Items)
}

func fiveItems() []models.Item {
	return []models.Item{
		{Title: "Django", Topic: "Web Development", Tags: []string{"python", "web", "framework"}, Description: strPtr("High-level web framework")},
		{Title: "Flask", Topic: "Web Development", Tags: []string{"python", "web"}},
		{Title: "NumPy", Topic: "Data Science", Tags: []string{"python", "data"}},
		{Title: "React", Topic: "Frontend", Tags: []string{"javascript", "framework"}},
		{Title: "Nginx", Topic: "Infrastructure", Tags: []string{"web", "server"}},
	}
}

func titles(items []models.Item) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.Title)
	}
	return out
}

func TestSearchCopilot(t *testing.T) {
	e := New(sampleCollection(t))
	e.SetSearchQuery("copilot")
	assert.Equal(t, []string{"GitHub Copilot"}, titles(e.FilteredItems()))

	e.SetSearchQuery("COPILOT")
	assert.Len(t, e.FilteredItems(), 1, "search is case-insensitive")
}

func TestSearchMatchesDescriptionAndTags(t *testing.T) {
	e := New(load(fiveItems()))

	e.SetSearchQuery("high-level")
	assert.Equal(t, []string{"Django"}, titles(e.FilteredItems()))

	e.SetSearchQuery("javascr")
	assert.Equal(t, []string{"React"}, titles(e.FilteredItems()))

	e.ClearSearchResults()
	assert.Len(t, e.FilteredItems(), 5)
}

func TestTagModeAndVersusOr(t *testing.T) {
	e := New(load([]models.Item{
		{Title: "both", Topic: "T", Tags: []string{"cli", "coding"}},
		{Title: "cli only", Topic: "T", Tags: []string{"cli"}},
	}))
	e.ToggleTagFilter("coding")
	e.ToggleTagFilter("cli")

	e.SetTagFilterMode(ModeAND)
	assert.Equal(t, []string{"both"}, titles(e.FilteredItems()))

	e.SetTagFilterMode(ModeOR)
	assert.Equal(t, []string{"both", "cli only"}, titles(e.FilteredItems()))

	assert.Equal(t, ModeAND, e.ToggleTagFilterMode())
	assert.Equal(t, ModeOR, e.ToggleTagFilterMode())
}

func TestTopicFilterReturnsWholeTopic(t *testing.T) {
	e := New(sampleCollection(t))
	require.True(t, e.ToggleTopicFilter(testutil.SampleTopic))
	assert.Len(t, e.FilteredItems(), 3)
}

func TestMultipleTopicsAreOr(t *testing.T) {
	e := New(load(fiveItems()))
	e.ToggleTopicFilter("Frontend")
	e.ToggleTopicFilter("Data Science")
	assert.Equal(t, []string{"NumPy", "React"}, titles(e.FilteredItems()))
}

func TestPipelineOrder(t *testing.T) {
	e := New(load(fiveItems()))
	e.SetSearchQuery("a")
	e.ToggleTopicFilter("Web Development")
	e.ToggleTagFilter("framework")
	assert.Equal(t, []string{"Django"}, titles(e.FilteredItems()))
}

func TestCountsIgnoreTheirOwnFilter(t *testing.T) {
	e := New(load(fiveItems()))
	e.ToggleTopicFilter("Web Development")
	e.ToggleTagFilter("python")

	topics := e.TopicCounts()
	assert.Equal(t, map[string]int{"Web Development": 2, "Data Science": 1}, topics)

	tagCounts := e.TagCounts()
	assert.Equal(t, map[string]int{"python": 2, "web": 2, "framework": 1}, tagCounts)
}

func TestSelectedEntriesAppearWithZeroCount(t *testing.T) {
	e := New(load(fiveItems()))
	e.ToggleTagFilter("javascript")
	e.SetSearchQuery("django")

	assert.Equal(t, 0, e.TagCounts()["javascript"])
	_, ok := e.TagCounts()["javascript"]
	assert.True(t, ok)

	list := e.TagList()
	var names []string
	for _, c := range list {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"framework", "javascript", "python", "web"}, names)
	assert.True(t, list[1].Selected)
}

func TestTopicListKeepsCollectionOrder(t *testing.T) {
	e := New(load(fiveItems()))
	e.ToggleTagFilter("web")

	list := e.TopicList()
	require.Len(t, list, 4)
	assert.Equal(t, Count{Name: "Web Development", Count: 2}, list[0])
	assert.Equal(t, Count{Name: "Data Science", Count: 0}, list[1])
	assert.Equal(t, Count{Name: "Infrastructure", Count: 1}, list[3])
}

func TestExcludedItemsNeverCounted(t *testing.T) {
	e := New(load(fiveItems(), "javascript"))

	assert.Len(t, e.FilteredItems(), 4)
	assert.NotContains(t, titles(e.FilteredItems()), "React")
	assert.NotContains(t, e.TopicCounts(), "Frontend")
	assert.NotContains(t, e.TagCounts(), "javascript")
	assert.Equal(t, 1, e.TagCounts()["framework"])
	assert.Equal(t, 1, e.Collection().ExcludedCount())

	assert.False(t, e.ToggleTagFilter("javascript"), "excluded tag cannot be selected")
}

func TestToggleUnknownIsNoop(t *testing.T) {
	e := New(load(fiveItems()))
	assert.False(t, e.ToggleTopicFilter("Nope"))
	assert.False(t, e.ToggleTagFilter("nope"))
	assert.False(t, e.HasActiveFilters())
}

func TestSelectReportsUnknownNames(t *testing.T) {
	e := New(load(fiveItems()))
	e.ToggleTagFilter("web")

	u := e.Select([]string{"Frontend", "Nope"}, []string{"web", "python", "typo"})
	assert.Equal(t, []string{"Nope"}, u.Topics)
	assert.Equal(t, []string{"typo"}, u.Tags)
	assert.False(t, u.Empty())
	assert.Equal(t, "unknown topic: Nope; unknown tag: typo", u.String())
	assert.True(t, e.IsTagSelected("web"), "already selected tags stay selected")
	assert.True(t, e.IsTagSelected("python"))
	assert.True(t, e.IsTopicSelected("Frontend"))

	assert.True(t, e.Select(nil, []string{"data"}).Empty())
}

func TestHasActiveFiltersAndReset(t *testing.T) {
	e := New(load(fiveItems()))
	assert.False(t, e.HasActiveFilters())

	e.SetSearchQuery("x")
	assert.True(t, e.HasActiveFilters())
	e.ClearSearchResults()

	e.ToggleTopicFilter("Frontend")
	assert.True(t, e.HasActiveFilters())

	e.ToggleTagFilter("web")
	e.SetTagFilterMode(ModeAND)
	e.SetSearchQuery("keep")
	e.ResetFilters()
	assert.Empty(t, e.State().Topics)
	assert.Empty(t, e.State().Tags)
	assert.Equal(t, ModeOR, e.TagFilterMode())
	assert.Equal(t, "keep", e.SearchQuery())
}

func TestStatus(t *testing.T) {
	e := New(load(fiveItems()))
	assert.Equal(t, "Showing all 5 items", e.Status())

	e.ToggleTagFilter("python")
	assert.Equal(t, "Showing 3 of 5 items (1 filter active: 1 tag)", e.Status())

	e.ToggleTagFilter("framework")
	assert.Equal(t, "Showing 4 of 5 items (2 filters active: 2 tag)", e.Status())

	e.ToggleTopicFilter("Web Development")
	assert.Equal(t, "Showing 2 of 5 items (3 filters active: 1 topic, 2 tag)", e.Status())

	e.ResetFilters()
	e.SetSearchQuery("flask")
	assert.Equal(t, `Showing 1 of 5 items matching "flask"`, e.Status())
}

func TestSetCollectionPrunesSelections(t *testing.T) {
	e := New(load(fiveItems()))
	e.ToggleTopicFilter("Frontend")
	e.ToggleTagFilter("web")
	e.SetSearchQuery("n")

	e.SetCollection(load(fiveItems()[:3]))
	assert.Empty(t, e.State().Topics)
	assert.Equal(t, []string{"web"}, e.State().Tags)
	assert.Equal(t, "n", e.SearchQuery())
}

func TestRestore(t *testing.T) {
	e := New(load(fiveItems()))
	e.Restore(State{Query: "f", Topics: []string{"Frontend", "Missing"}, Tags: []string{"framework"}, Mode: ModeAND})

	st := e.State()
	assert.Equal(t, []string{"Frontend"}, st.Topics)
	assert.Equal(t, []string{"framework"}, st.Tags)
	assert.Equal(t, ModeAND, st.Mode)
	assert.Equal(t, []string{"React"}, titles(e.FilteredItems()))
}

func TestParseTagMode(t *testing.T) {
	m, err := ParseTagMode("AND")
	require.NoError(t, err)
	assert.Equal(t, ModeAND, m)

	m, err = ParseTagMode("")
	require.NoError(t, err)
	assert.Equal(t, ModeOR, m)

	_, err = ParseTagMode("xor")
	assert.Error(t, err)
}
