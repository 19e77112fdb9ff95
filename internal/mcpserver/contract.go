package mcpserver

// FormatContract describes the awesome-list Markdown format that the sources
// follow, so LLM consumers can read items and suggest edits.
const FormatContract = `# Awesome List Format

An awesome list is a Markdown file of curated links grouped under headings.

## Structure

` + "```" + `markdown
---
tags:                       # OPTIONAL – applies to every item in the file
  - llms
  - ai_tools
---

# Awesome list on large language models      <- topic (level 1)

## LLM Coding Assistants #coding-assistants  <- section, tagged

- GitHub Copilot #github #coding             <- item title with inline tags

  <https://github.com/features/copilot>      <- first URL becomes the link

  AI pair programmer by GitHub.              <- description
` + "```" + `

## Rules

1. **Frontmatter** is optional. It starts on the first non-blank line with
   ` + "`" + `---` + "`" + ` (YAML), ` + "`" + `+++` + "`" + ` (TOML) or ` + "`" + `;;;` + "`" + ` (JSON) and must be closed by
   the same delimiter. ` + "`" + `tags` + "`" + ` may be a list or a comma separated string.
2. **Topics** are level 1 headings. Every item belongs to the nearest one; an
   item before any level 1 heading makes the file invalid.
3. **Sections** are level 2 and 3 headings. Deeper headings count as level 3.
4. **Items** are bullets (` + "`" + `-` + "`" + `, ` + "`" + `*` + "`" + ` or ` + "`" + `+` + "`" + `). The first line is the
   title; following lines up to the next bullet, heading or thematic break are
   the body.
5. **Links** are the first URL on the title line, else in the body:
   ` + "`" + `<https://…>` + "`" + `, ` + "`" + `[text](https://…)` + "`" + ` or a bare ` + "`" + `https://…` + "`" + `.
6. **Descriptions** are the remaining body text. Lines of a paragraph are
   joined with a space; paragraphs are separated by a blank line.
7. **Tags** are ` + "`" + `#word` + "`" + ` tokens preceded by whitespace or the start of
   a line. Letters, digits, ` + "`" + `_` + "`" + ` and ` + "`" + `-` + "`" + ` are allowed; the first character is a
   letter or ` + "`" + `_` + "`" + `.
8. **Tag order** on an item is: inline tags, then the level 3, level 2 and
   level 1 heading tags, then frontmatter tags. Duplicates keep their first
   position. The tag ` + "`" + `awesome` + "`" + ` is never kept.
9. **Exclusion**: items carrying a configured exclude tag are hidden. Tags are
   compared exactly.
10. Content inside fenced code blocks is never treated as structure.
`
