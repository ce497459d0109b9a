package main

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
)

// ChangelogEntry represents a single version entry in the changelog
type ChangelogEntry struct {
	Version string
	Date    string
	Line    int
	Content string
}

// IsUnreleased reports whether this is the [Unreleased] entry.
func (e *ChangelogEntry) IsUnreleased() bool {
	return strings.EqualFold(e.Version, "Unreleased")
}

// Changelog represents a parsed Keep a Changelog file
type Changelog struct {
	Entries []ChangelogEntry
	Links   map[string]string
}

// FindVersion finds a version entry by version string
func (c *Changelog) FindVersion(version string) *ChangelogEntry {
	version = strings.TrimPrefix(version, "v")

	for i := range c.Entries {
		entryVersion := strings.TrimPrefix(c.Entries[i].Version, "v")
		if entryVersion == version {
			return &c.Entries[i]
		}
	}
	return nil
}

// Releases returns the version entries without the Unreleased section, in
// file order.
func (c *Changelog) Releases() []ChangelogEntry {
	var releases []ChangelogEntry
	for _, entry := range c.Entries {
		if !entry.IsUnreleased() {
			releases = append(releases, entry)
		}
	}
	return releases
}

// Latest returns the newest released entry. Entries are newest-first in a
// conforming changelog, so this is the first non-Unreleased entry.
func (c *Changelog) Latest() *ChangelogEntry {
	for i := range c.Entries {
		if !c.Entries[i].IsUnreleased() {
			return &c.Entries[i]
		}
	}
	return nil
}

// section is a version heading plus the byte range its body occupies.
// The body of one section ends where the next heading starts.
type section struct {
	entry ChangelogEntry
	start int // offset of the heading itself
	body  int // offset just past the heading line
}

// Parse parses a Keep a Changelog formatted markdown file
func Parse(source []byte) (*Changelog, error) {
	md := goldmark.New()
	reader := text.NewReader(source)
	ctx := parser.NewContext()
	doc := md.Parser().Parse(reader, parser.WithContext(ctx))

	changelog := &Changelog{
		Links: make(map[string]string),
	}

	// Link definitions ([1.2.3]: https://...) land in the parser context
	for _, ref := range ctx.References() {
		changelog.Links[string(ref.Label())] = string(ref.Destination())
	}

	// Version sections are the level-2 headings
	var sections []section
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		heading, ok := n.(*ast.Heading)
		if !ok || heading.Level != 2 {
			return ast.WalkContinue, nil
		}

		version, date := splitVersionHeading(headingText(heading, source))

		var start, body int
		if lines := heading.Lines(); lines.Len() > 0 {
			start = lines.At(0).Start
			body = lines.At(lines.Len() - 1).Stop
		}

		sections = append(sections, section{
			entry: ChangelogEntry{
				Version: version,
				Date:    date,
				Line:    lineOf(source, start),
			},
			start: start,
			body:  body,
		})
		return ast.WalkContinue, nil
	})

	// Close each section's body against the next heading (or EOF)
	for i := range sections {
		end := len(source)
		if i+1 < len(sections) {
			end = sections[i+1].start
		}
		if sections[i].body < end {
			sections[i].entry.Content = strings.TrimSpace(string(source[sections[i].body:end]))
		}
		changelog.Entries = append(changelog.Entries, sections[i].entry)
	}

	return changelog, nil
}

// lineOf converts a byte offset into a 1-based line number.
func lineOf(source []byte, offset int) int {
	if offset > len(source) {
		offset = len(source)
	}
	return 1 + bytes.Count(source[:offset], []byte("\n"))
}

// headingText flattens a heading to plain text, descending through links
// and any other inline nodes.
func headingText(node ast.Node, source []byte) string {
	var buf bytes.Buffer
	var collect func(ast.Node)
	collect = func(n ast.Node) {
		for child := n.FirstChild(); child != nil; child = child.NextSibling() {
			if textNode, ok := child.(*ast.Text); ok {
				buf.Write(textNode.Segment.Value(source))
				continue
			}
			collect(child)
		}
	}
	collect(node)
	return buf.String()
}

// splitVersionHeading takes a heading like "[1.2.3] - 2024-05-01" (or the
// unbracketed "1.2.3 - 2024-05-01") apart into version and date.
func splitVersionHeading(heading string) (version, date string) {
	heading = strings.TrimSpace(heading)

	if rest, ok := strings.CutPrefix(heading, "["); ok {
		if v, tail, found := strings.Cut(rest, "]"); found {
			if d, ok := strings.CutPrefix(strings.TrimSpace(tail), "-"); ok {
				date = strings.TrimSpace(d)
			}
			return v, date
		}
	}

	if v, d, found := strings.Cut(heading, " - "); found {
		return strings.TrimSpace(v), strings.TrimSpace(d)
	}
	return heading, ""
}
