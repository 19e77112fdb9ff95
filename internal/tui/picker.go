package tui

import (
	"fmt"
	"strings"

	"github.com/starford/awesomeview/internal/filter"
)

// PickerKind selects what a picker toggles.
type PickerKind int

const (
	PickTopics PickerKind = iota
	PickTags
)

func (k PickerKind) String() string {
	if k == PickTags {
		return "Tags"
	}
	return "Topics"
}

// Picker is a checkbox list of topics or tags with live counts.
type Picker struct {
	kind   PickerKind
	rows   []filter.Count
	cursor int
	offset int
}

func newPicker(kind PickerKind, rows []filter.Count) *Picker {
	p := &Picker{kind: kind}
	p.SetRows(rows)
	return p
}

// Kind returns what the picker toggles.
func (p *Picker) Kind() PickerKind { return p.kind }

// SetRows replaces the rows, keeping the cursor on the same name when it
// still exists.
func (p *Picker) SetRows(rows []filter.Count) {
	var current string
	if c, ok := p.Current(); ok {
		current = c.Name
	}
	p.rows = rows
	for i, r := range rows {
		if r.Name == current {
			p.cursor = i
			return
		}
	}
	p.Move(0)
}

// Rows returns the rows.
func (p *Picker) Rows() []filter.Count { return p.rows }

// Move moves the cursor by delta, clamped to the rows.
func (p *Picker) Move(delta int) {
	p.cursor += delta
	if p.cursor >= len(p.rows) {
		p.cursor = len(p.rows) - 1
	}
	if p.cursor < 0 {
		p.cursor = 0
	}
}

// Current returns the row under the cursor.
func (p *Picker) Current() (filter.Count, bool) {
	if p.cursor < 0 || p.cursor >= len(p.rows) {
		return filter.Count{}, false
	}
	return p.rows[p.cursor], true
}

// View renders at most height rows, scrolled to keep the cursor visible.
func (p *Picker) View(s *Styles, width, height int) string {
	var b strings.Builder
	selected := 0
	for _, r := range p.rows {
		if r.Selected {
			selected++
		}
	}
	b.WriteString(s.Title.Render(fmt.Sprintf("%s (%d selected)", p.kind, selected)))
	b.WriteString("\n\n")

	if len(p.rows) == 0 {
		b.WriteString(s.Muted.Render("Nothing to pick"))
		return b.String()
	}

	visible := height - 2
	if visible < 1 {
		visible = 1
	}
	if p.cursor < p.offset {
		p.offset = p.cursor
	}
	if p.cursor >= p.offset+visible {
		p.offset = p.cursor - visible + 1
	}
	end := p.offset + visible
	if end > len(p.rows) {
		end = len(p.rows)
	}

	for i := p.offset; i < end; i++ {
		r := p.rows[i]
		box := "[ ]"
		if r.Selected {
			box = "[x]"
		}
		line := truncate(fmt.Sprintf("%s %s", box, r.Name), width-8) + " " + s.Muted.Render(fmt.Sprintf("(%d)", r.Count))
		if i == p.cursor {
			line = s.Selected.Render("> " + line)
		} else {
			line = "  " + line
		}
		b.WriteString(line)
		if i < end-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// truncate shortens s to limit runes, ending with an ellipsis.
func truncate(s string, limit int) string {
	if limit < 2 {
		limit = 2
	}
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit-1]) + "…"
}
