// Package tui implements the interactive terminal browser: a filterable item
// list, a rendered detail pane, topic and tag pickers and a status bar.
package tui

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/starford/awesomeview/internal/collection"
	"github.com/starford/awesomeview/internal/filter"
	"github.com/starford/awesomeview/internal/library"
	"github.com/starford/awesomeview/internal/models"
)

// Library is the part of *library.Library the browser uses.
type Library interface {
	Collection() *collection.Collection
	LastReport() *library.Report
	Regenerate() (*library.Report, error)
}

// Options configures the browser.
type Options struct {
	// MarkdownStyle is "auto" or a glamour standard style name.
	MarkdownStyle string
	// WordWrap caps the detail pane wrap column; 0 wraps at the pane width.
	WordWrap int
	// OpenURL opens links. Defaults to the platform handler.
	OpenURL func(string) error
	// Editor is the command used to edit a source file. Defaults to
	// $VISUAL, then $EDITOR.
	Editor string
	Logger *slog.Logger
}

type focus int

const (
	focusList focus = iota
	focusDetail
	focusSearch
	focusPicker
)

// Model is the browser's bubbletea model.
type Model struct {
	lib    Library
	engine *filter.Engine
	opts   Options
	keys   *KeyMap
	styles *Styles

	search   textinput.Model
	detail   viewport.Model
	help     help.Model
	renderer *glamour.TermRenderer
	picker   *Picker

	items      []models.Item
	cursor     int
	offset     int
	renderedID int
	focus      focus

	report       *library.Report
	notice       string
	noticeErr    bool
	regenerating bool

	width  int
	height int
}

var _ tea.Model = (*Model)(nil)

// New creates a browser over the library's current collection.
func New(lib Library, opts Options) *Model {
	if opts.OpenURL == nil {
		opts.OpenURL = OpenURL
	}
	if opts.Editor == "" {
		opts.Editor = editor()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	ti := textinput.New()
	ti.Prompt = "/ "
	ti.Placeholder = "search titles, descriptions and tags"

	m := &Model{
		lib:        lib,
		engine:     filter.New(lib.Collection()),
		opts:       opts,
		keys:       DefaultKeyMap(),
		styles:     DefaultStyles(),
		search:     ti,
		detail:     viewport.New(60, 20),
		help:       help.New(),
		report:     lib.LastReport(),
		renderedID: -1,
		width:      100,
		height:     30,
	}
	m.resize()
	return m
}

// Engine returns the filter engine behind the view.
func (m *Model) Engine() *filter.Engine { return m.engine }

// Items returns the items currently listed.
func (m *Model) Items() []models.Item { return m.items }

// Selected returns the item under the cursor.
func (m *Model) Selected() (models.Item, bool) {
	if m.cursor < 0 || m.cursor >= len(m.items) {
		return models.Item{}, false
	}
	return m.items[m.cursor], true
}

// Picker returns the open picker, or nil.
func (m *Model) Picker() *Picker { return m.picker }

// Notice returns the last transient message shown in the status bar.
func (m *Model) Notice() string { return m.notice }

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return tea.SetWindowTitle("awesome-list-view")
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		return m, nil

	case ReloadedMsg:
		m.regenerating = false
		if msg.Err != nil {
			m.opts.Logger.Error("tui: reload failed", slog.String("error", msg.Err.Error()))
			m.setNotice("Reload failed: "+msg.Err.Error(), true)
			return m, nil
		}
		m.engine.SetCollection(m.lib.Collection())
		m.report = msg.Report
		m.renderedID = -1
		m.refresh()
		if m.picker != nil {
			m.refreshPicker()
		}
		if msg.Report != nil {
			m.setNotice("Reloaded: "+msg.Report.String(), false)
		}
		return m, nil

	case noticeMsg:
		m.setNotice(msg.text, msg.err)
		return m, nil

	case editorFinishedMsg:
		if msg.err != nil {
			m.setNotice("Editor: "+msg.err.Error(), true)
			return m, nil
		}
		return m, m.startRegenerate()

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}
	switch m.focus {
	case focusSearch:
		return m.updateSearch(msg)
	case focusPicker:
		return m.updatePicker(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Search):
		m.focus = focusSearch
		return m, m.search.Focus()
	case key.Matches(msg, m.keys.Topics):
		m.openPicker(PickTopics)
	case key.Matches(msg, m.keys.Tags):
		m.openPicker(PickTags)
	case key.Matches(msg, m.keys.Mode):
		mode := m.engine.ToggleTagFilterMode()
		m.refresh()
		m.setNotice("Tag mode: "+mode.String(), false)
	case key.Matches(msg, m.keys.Reset):
		m.engine.ResetFilters()
		m.refresh()
		m.setNotice("Filters cleared", false)
	case key.Matches(msg, m.keys.Regenerate):
		return m, m.startRegenerate()
	case key.Matches(msg, m.keys.Open):
		return m, m.openLink()
	case key.Matches(msg, m.keys.Edit):
		return m, m.editSource()
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		m.resize()
	case key.Matches(msg, m.keys.Switch):
		if m.focus == focusList {
			m.focus = focusDetail
		} else {
			m.focus = focusList
		}
	case key.Matches(msg, m.keys.Back):
		if m.focus == focusDetail {
			m.focus = focusList
		} else if m.engine.SearchQuery() != "" {
			m.clearSearch()
		}
	case m.focus == focusDetail:
		var cmd tea.Cmd
		m.detail, cmd = m.detail.Update(msg)
		return m, cmd
	default:
		m.moveList(msg)
	}
	return m, nil
}

func (m *Model) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.clearSearch()
		m.search.Blur()
		m.focus = focusList
		return m, nil
	case tea.KeyEnter, tea.KeyTab:
		m.search.Blur()
		m.focus = focusList
		return m, nil
	case tea.KeyUp, tea.KeyDown, tea.KeyPgUp, tea.KeyPgDown:
		m.moveList(msg)
		return m, nil
	}

	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	if q := m.search.Value(); q != m.engine.SearchQuery() {
		m.engine.SetSearchQuery(q)
		m.cursor = 0
		m.refresh()
	}
	return m, cmd
}

func (m *Model) updatePicker(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	page := m.bodyHeight() - 4
	switch {
	case key.Matches(msg, m.keys.Up):
		m.picker.Move(-1)
	case key.Matches(msg, m.keys.Down):
		m.picker.Move(1)
	case key.Matches(msg, m.keys.PageUp):
		m.picker.Move(-page)
	case key.Matches(msg, m.keys.PageDown):
		m.picker.Move(page)
	case key.Matches(msg, m.keys.Toggle):
		row, ok := m.picker.Current()
		if !ok {
			break
		}
		if m.picker.Kind() == PickTopics {
			m.engine.ToggleTopicFilter(row.Name)
		} else {
			m.engine.ToggleTagFilter(row.Name)
		}
		m.cursor = 0
		m.refresh()
		m.refreshPicker()
	case key.Matches(msg, m.keys.Mode):
		m.engine.ToggleTagFilterMode()
		m.refresh()
		m.refreshPicker()
	case key.Matches(msg, m.keys.Close):
		m.picker = nil
		m.focus = focusList
	}
	return m, nil
}

func (m *Model) moveList(msg tea.KeyMsg) {
	page := m.bodyHeight() - 2
	switch {
	case key.Matches(msg, m.keys.Up):
		m.cursor--
	case key.Matches(msg, m.keys.Down):
		m.cursor++
	case key.Matches(msg, m.keys.PageUp):
		m.cursor -= page
	case key.Matches(msg, m.keys.PageDown):
		m.cursor += page
	default:
		return
	}
	m.clampCursor()
	m.syncDetail()
}

func (m *Model) openPicker(kind PickerKind) {
	m.picker = newPicker(kind, nil)
	m.refreshPicker()
	m.focus = focusPicker
}

func (m *Model) refreshPicker() {
	if m.picker.Kind() == PickTopics {
		m.picker.SetRows(m.engine.TopicList())
	} else {
		m.picker.SetRows(m.engine.TagList())
	}
}

func (m *Model) clearSearch() {
	m.search.SetValue("")
	m.engine.ClearSearchResults()
	m.refresh()
}

func (m *Model) startRegenerate() tea.Cmd {
	if m.regenerating {
		return nil
	}
	m.regenerating = true
	m.setNotice("Regenerating...", false)
	return regenerateCmd(m.lib)
}

func (m *Model) openLink() tea.Cmd {
	it, ok := m.Selected()
	if !ok {
		return nil
	}
	link := it.LinkString()
	if link == "" {
		m.setNotice("No link for this item", true)
		return nil
	}
	return openCmd(m.opts.OpenURL, link)
}

func (m *Model) editSource() tea.Cmd {
	it, ok := m.Selected()
	if !ok {
		return nil
	}
	if m.opts.Editor == "" {
		m.setNotice("$EDITOR is not set", true)
		return nil
	}
	if it.SourceFile == "" {
		m.setNotice("No source file for this item", true)
		return nil
	}
	return editCmd(m.opts.Editor, it.SourceFile, it.Line)
}

func (m *Model) setNotice(text string, isErr bool) {
	m.notice = text
	m.noticeErr = isErr
}

// refresh re-applies the filters and keeps the cursor in range.
func (m *Model) refresh() {
	m.items = m.engine.FilteredItems()
	m.clampCursor()
	m.syncDetail()
}

func (m *Model) clampCursor() {
	if m.cursor >= len(m.items) {
		m.cursor = len(m.items) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

// syncDetail renders the selected item into the detail pane when the
// selection changed.
func (m *Model) syncDetail() {
	it, ok := m.Selected()
	if !ok {
		if m.renderedID != 0 {
			m.detail.SetContent(m.styles.Muted.Render("No items match the current filters."))
			m.renderedID = 0
		}
		return
	}
	if it.ID == m.renderedID {
		return
	}
	m.detail.SetContent(renderMarkdown(m.renderer, ItemMarkdown(it)))
	m.detail.GotoTop()
	m.renderedID = it.ID
}

// Layout.

func (m *Model) listWidth() int {
	w := m.width * 2 / 5
	if w < 24 {
		w = 24
	}
	return w
}

func (m *Model) bodyHeight() int {
	h := m.height - 2 - lipgloss.Height(m.helpView())
	if h < 5 {
		h = 5
	}
	return h
}

func (m *Model) resize() {
	m.help.Width = m.width
	m.search.Width = m.width - 4

	m.detail.Width = m.width - m.listWidth() - 2
	if m.detail.Width < 10 {
		m.detail.Width = 10
	}
	m.detail.Height = m.bodyHeight() - 2

	wrap := m.detail.Width - 2
	if m.opts.WordWrap > 0 && m.opts.WordWrap < wrap {
		wrap = m.opts.WordWrap
	}
	r, err := newRenderer(m.opts.MarkdownStyle, wrap)
	if err != nil {
		m.opts.Logger.Warn("tui: markdown renderer unavailable", slog.String("error", err.Error()))
		r = nil
	}
	m.renderer = r
	m.renderedID = -1
	m.refresh()
}

// View implements tea.Model.
func (m *Model) View() string {
	body := lipgloss.JoinHorizontal(lipgloss.Top, m.listView(), m.detailView())
	if m.picker != nil {
		w := m.width / 2
		if w < 30 {
			w = 30
		}
		modal := m.styles.Modal.Width(w).Render(m.picker.View(m.styles, w-2, m.bodyHeight()-4))
		body = lipgloss.Place(m.width, m.bodyHeight(), lipgloss.Center, lipgloss.Center, modal)
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		m.search.View(),
		body,
		m.statusView(),
		m.helpView(),
	)
}

func (m *Model) listView() string {
	width := m.listWidth() - 2
	height := m.bodyHeight() - 2

	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+height {
		m.offset = m.cursor - height + 1
	}

	lines := make([]string, 0, height)
	if len(m.items) == 0 {
		lines = append(lines, m.styles.Muted.Render("No items"))
	}
	for i := m.offset; i < len(m.items) && i < m.offset+height; i++ {
		title := truncate(m.items[i].Title, width-2)
		if i == m.cursor {
			lines = append(lines, m.styles.Selected.Width(width).Render("> "+title))
			continue
		}
		lines = append(lines, "  "+title)
	}

	pane := m.styles.Pane
	if m.focus == focusList || m.focus == focusSearch {
		pane = m.styles.FocusedPane
	}
	return pane.Width(width).Height(height).Render(strings.Join(lines, "\n"))
}

func (m *Model) detailView() string {
	pane := m.styles.Pane
	if m.focus == focusDetail {
		pane = m.styles.FocusedPane
	}
	return pane.Width(m.detail.Width).Height(m.detail.Height).Render(m.detail.View())
}

func (m *Model) statusView() string {
	mode := m.styles.Mode.Render(fmt.Sprintf(" %s ", m.engine.TagFilterMode()))
	left := m.engine.Status()

	var right string
	switch {
	case m.notice != "" && m.noticeErr:
		right = m.styles.Error.Render(m.notice)
	case m.notice != "":
		right = m.notice
	case m.report != nil:
		right = m.report.String()
	}

	padding := m.width - lipgloss.Width(mode) - lipgloss.Width(left) - lipgloss.Width(right) - 3
	if padding < 1 {
		padding = 1
	}
	return mode + m.styles.StatusBar.Render(left+strings.Repeat(" ", padding)+right)
}

func (m *Model) helpView() string {
	if m.picker != nil {
		return m.help.View(pickerKeys{m.keys})
	}
	return m.help.View(m.keys)
}
