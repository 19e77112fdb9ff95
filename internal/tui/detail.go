package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/glamour/styles"

	"github.com/starford/awesomeview/internal/models"
)

// ItemMarkdown renders an item as the markdown shown in the detail pane.
func ItemMarkdown(it models.Item) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", it.Title)
	fmt.Fprintf(&b, "**Topic:** %s\n\n", it.Topic)
	if len(it.Sections) > 0 {
		fmt.Fprintf(&b, "**Section:** %s\n\n", strings.Join(it.Sections, " › "))
	}
	if link := it.LinkString(); link != "" {
		fmt.Fprintf(&b, "**Link:** <%s>\n\n", link)
	}
	if len(it.Tags) > 0 {
		tags := make([]string, len(it.Tags))
		for i, t := range it.Tags {
			tags[i] = "`#" + t + "`"
		}
		fmt.Fprintf(&b, "**Tags:** %s\n\n", strings.Join(tags, " "))
	}
	if desc := it.DescriptionString(); desc != "" {
		b.WriteString(desc)
		b.WriteString("\n\n")
	} else {
		b.WriteString("_No description._\n\n")
	}
	if it.SourceFile != "" {
		fmt.Fprintf(&b, "---\n\n_%s:%d_\n", it.SourceFile, it.Line)
	}
	return b.String()
}

// newRenderer builds a glamour renderer. style is "auto" or a standard
// style name; wrap is the word-wrap column.
func newRenderer(style string, wrap int) (*glamour.TermRenderer, error) {
	styleOpt := glamour.WithStandardStyle(style)
	if style == "" || style == styles.AutoStyle {
		styleOpt = glamour.WithAutoStyle()
	}
	return glamour.NewTermRenderer(styleOpt, glamour.WithWordWrap(wrap))
}

// renderMarkdown renders md, falling back to the raw text.
func renderMarkdown(r *glamour.TermRenderer, md string) string {
	if r == nil {
		return md
	}
	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return out
}
