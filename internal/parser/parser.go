// Package parser turns an awesome-list markdown document into resolved items:
// frontmatter tags, a level 1..3 heading stack, and one item per bullet.
package parser

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/adrg/frontmatter"

	"github.com/starford/awesomeview/internal/apperr"
	"github.com/starford/awesomeview/internal/models"
	"github.com/starford/awesomeview/internal/tags"
)

var (
	headingRe       = regexp.MustCompile(`^ {0,3}(#{1,6})\s+(.+?)\s*$`)
	closingHashesRe = regexp.MustCompile(`\s+#+$`)
	bulletRe        = regexp.MustCompile(`^\s*[-*+](?:\s+(.*))?$`)
	breakRe         = regexp.MustCompile(`^ {0,3}(?:(?:-[ \t]*){3,}|(?:\*[ \t]*){3,}|(?:_[ \t]*){3,})$`)
	fenceRe         = regexp.MustCompile("^\\s*(```|~~~)")

	// urlRe matches, in order of preference at a given position, an
	// angle-bracketed URL, a markdown link, and a bare URL.
	urlRe = regexp.MustCompile(`<(https?://[^\s>]+)>|\[([^\]]*)\]\((https?://[^\s)]+)\)|(https?://[^\s<>]+)`)
)

var frontmatterDelims = []string{"---", "+++", ";;;"}

// Document is the result of parsing one markdown file.
type Document struct {
	SourceFile      string
	FrontmatterTags []string
	Headings        []models.Heading
	Items           []models.Item
	Warnings        []FrontmatterWarning
}

// FrontmatterWarning reports a frontmatter block that could not be decoded.
// The document is still parsed, with no frontmatter tags.
type FrontmatterWarning struct {
	File    string
	Line    int
	Message string
}

func (w FrontmatterWarning) String() string {
	return fmt.Sprintf("%s:%d: frontmatter ignored: %s", w.File, w.Line, w.Message)
}

// ParseError means a file could not be read or is malformed. Other files
// are unaffected.
type ParseError struct {
	File string
	Line int
	Msg  string
	Err  error
}

func (e *ParseError) Error() string {
	var b strings.Builder
	b.WriteString("parser: ")
	b.WriteString(e.File)
	if e.Line > 0 {
		fmt.Fprintf(&b, ":%d", e.Line)
	}
	if e.Msg != "" {
		b.WriteString(": ")
		b.WriteString(e.Msg)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *ParseError) Unwrap() []error {
	if e.Err == nil {
		return []error{apperr.ErrParse}
	}
	return []error{apperr.ErrParse, e.Err}
}

// Parse parses a markdown document. sourceFile is recorded on every item.
func Parse(data []byte, sourceFile string) (*Document, error) {
	lines := splitLines(data)
	doc := &Document{SourceFile: sourceFile}

	start := 0
	if fm, end, warn := splitFrontmatter(lines); end > 0 {
		start = end
		doc.FrontmatterTags = fm
		if warn != "" {
			doc.Warnings = append(doc.Warnings, FrontmatterWarning{File: sourceFile, Line: 1, Message: warn})
		}
	}

	var (
		stack   models.HeadingStack
		current *pendingItem
		inFence bool
	)
	flush := func() {
		if current == nil {
			return
		}
		if it, ok := current.build(doc.FrontmatterTags, sourceFile); ok {
			doc.Items = append(doc.Items, it)
		}
		current = nil
	}

	for i := start; i < len(lines); i++ {
		line := lines[i]
		lineNo := i + 1

		isFence := fenceRe.MatchString(line)
		if isFence {
			inFence = !inFence
		}
		if inFence || isFence {
			if current != nil {
				current.body = append(current.body, line)
			}
			continue
		}

		if m := headingRe.FindStringSubmatch(line); m != nil {
			flush()
			text := closingHashesRe.ReplaceAllString(m[2], "")
			clean, found := tags.Extract(text)
			h := models.Heading{Level: len(m[1]), Text: clean, Tags: found}
			doc.Headings = append(doc.Headings, h)
			stack.Push(h)
			continue
		}

		if breakRe.MatchString(line) {
			flush()
			continue
		}

		if m := bulletRe.FindStringSubmatch(line); m != nil {
			flush()
			first := strings.TrimSpace(m[1])
			if first == "" {
				// Empty bullet: swallow its body without producing an item.
				current = &pendingItem{line: lineNo, stack: stack}
				continue
			}
			if stack[0] == nil {
				return nil, &ParseError{File: sourceFile, Line: lineNo, Msg: "item before any level-1 heading"}
			}
			current = &pendingItem{line: lineNo, first: first, stack: stack}
			continue
		}

		if current != nil {
			current.body = append(current.body, line)
		}
	}
	flush()

	return doc, nil
}

// splitLines splits data into lines without their terminators.
func splitLines(data []byte) []string {
	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	text = strings.TrimSuffix(text, "\n")
	if text == "" {
		return nil
	}
	return strings.Split(text, "\n")
}

// splitFrontmatter finds a frontmatter block that starts at the first
// non-blank line. It returns the decoded tags, the index of the first line
// after the block (0 when there is no block), and a warning message when
// the block could not be decoded.
func splitFrontmatter(lines []string) ([]string, int, string) {
	open := -1
	for i, l := range lines {
		if strings.TrimSpace(l) != "" {
			open = i
			break
		}
	}
	if open < 0 {
		return nil, 0, ""
	}

	delim := strings.TrimRight(lines[open], " \t")
	known := false
	for _, d := range frontmatterDelims {
		if delim == d {
			known = true
			break
		}
	}
	if !known {
		return nil, 0, ""
	}

	closeAt := -1
	for i := open + 1; i < len(lines); i++ {
		if strings.TrimRight(lines[i], " \t") == delim {
			closeAt = i
			break
		}
	}
	if closeAt < 0 {
		// No closing delimiter: not frontmatter.
		return nil, 0, ""
	}

	block := strings.Join(lines[open:closeAt+1], "\n") + "\n"
	var meta struct {
		Tags any `yaml:"tags" toml:"tags" json:"tags"`
	}
	if _, err := frontmatter.Parse(bytes.NewReader([]byte(block)), &meta); err != nil {
		return nil, closeAt + 1, err.Error()
	}
	return frontmatterTags(meta.Tags), closeAt + 1, ""
}

// frontmatterTags accepts a tag sequence or a comma/space separated string.
func frontmatterTags(raw any) []string {
	var values []string
	switch v := raw.(type) {
	case nil:
		return nil
	case string:
		values = strings.FieldsFunc(v, func(r rune) bool { return r == ',' || r == ' ' || r == '\t' })
	case []string:
		values = v
	case []any:
		for _, item := range v {
			if item == nil {
				continue
			}
			values = append(values, fmt.Sprint(item))
		}
	default:
		values = []string{fmt.Sprint(v)}
	}
	set := tags.NewFoldSet()
	for _, t := range values {
		set.Add(strings.TrimPrefix(strings.TrimSpace(t), "#"))
	}
	return set.Slice()
}

type pendingItem struct {
	line  int
	first string
	body  []string
	stack models.HeadingStack
}

// build resolves the pending bullet into an item. ok is false for bullets
// that carry no title.
func (p *pendingItem) build(frontmatterTags []string, sourceFile string) (models.Item, bool) {
	if p.first == "" {
		return models.Item{}, false
	}

	titleText, inline := tags.Extract(p.first)
	title, link := unwrapTitle(titleText)
	if title == "" {
		return models.Item{}, false
	}

	body := make([]string, len(p.body))
	copy(body, p.body)
	if link == "" {
		for i, l := range body {
			if rest, url, ok := takeFirstURL(l); ok {
				body[i] = rest
				link = url
				break
			}
		}
	}

	it := models.Item{
		Title:      title,
		Topic:      tags.Topic(&p.stack),
		Tags:       tags.Resolve(inline, p.stack.Ancestors(), frontmatterTags),
		Sections:   p.stack.Sections(),
		SourceFile: sourceFile,
		Line:       p.line,
	}
	if link != "" {
		it.Link = &link
	}
	if desc := joinParagraphs(body); desc != "" {
		it.Description = &desc
	}
	return it, true
}

// unwrapTitle rewrites markdown links in the title line to their text and
// takes the first URL on the line as the item link. A bare or angle URL is
// removed from the title unless it is the only content.
func unwrapTitle(text string) (string, string) {
	matches := urlRe.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return text, ""
	}

	var (
		b    strings.Builder
		link string
		last int
	)
	for _, m := range matches {
		b.WriteString(text[last:m[0]])
		last = m[1]
		switch {
		case m[2] >= 0: // <url>
			if link == "" {
				link = text[m[2]:m[3]]
				continue
			}
			b.WriteString(text[m[0]:m[1]])
		case m[6] >= 0: // [text](url)
			if link == "" {
				link = text[m[6]:m[7]]
			}
			b.WriteString(text[m[4]:m[5]])
		default: // bare url
			url, trailing := trimURL(text[m[8]:m[9]])
			if link == "" {
				link = url
				b.WriteString(trailing)
				continue
			}
			b.WriteString(text[m[0]:m[1]])
		}
	}
	b.WriteString(text[last:])

	title := strings.Join(strings.Fields(b.String()), " ")
	title = strings.Trim(title, " -–:")
	if title == "" {
		title = link
	}
	return title, link
}

// takeFirstURL removes the first URL token from line. A markdown link leaves
// its text in place.
func takeFirstURL(line string) (string, string, bool) {
	m := urlRe.FindStringSubmatchIndex(line)
	if m == nil {
		return line, "", false
	}
	var url, keep string
	switch {
	case m[2] >= 0:
		url = line[m[2]:m[3]]
	case m[6] >= 0:
		url = line[m[6]:m[7]]
		keep = line[m[4]:m[5]]
	default:
		url, keep = trimURL(line[m[8]:m[9]])
	}
	return line[:m[0]] + keep + line[m[1]:], url, true
}

// trimURL splits trailing sentence punctuation and unbalanced closing
// parentheses off a bare URL.
func trimURL(raw string) (url, trailing string) {
	url = raw
	for url != "" {
		c := url[len(url)-1]
		if strings.IndexByte(".,;:!?'\"", c) >= 0 {
			url = url[:len(url)-1]
			continue
		}
		if c == ')' && strings.Count(url, "(") < strings.Count(url, ")") {
			url = url[:len(url)-1]
			continue
		}
		break
	}
	return url, raw[len(url):]
}

// joinParagraphs trims body lines, joins the lines of a paragraph with a
// space and separates paragraphs with a blank line.
func joinParagraphs(lines []string) string {
	var (
		paragraphs []string
		current    []string
	)
	for _, l := range lines {
		l = strings.TrimSpace(l)
		if l == "" {
			if len(current) > 0 {
				paragraphs = append(paragraphs, strings.Join(current, " "))
				current = nil
			}
			continue
		}
		current = append(current, l)
	}
	if len(current) > 0 {
		paragraphs = append(paragraphs, strings.Join(current, " "))
	}
	return strings.Join(paragraphs, "\n\n")
}
