// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
	"go.yaml.in/yaml/v3"
)

// referencesHeading matches a line that holds nothing but a references
// heading, with or without Markdown heading marks.
var referencesHeading = regexp.MustCompile(`(?im)^[ \t]*(?:#{1,6}[ \t]*)?(?:references|参考文献)[ \t]*$`)

// StripReferences drops the references section: everything from the first
// line that is only a "References" (or "参考文献") heading to the end.
func StripReferences(markdown string) string {
	loc := referencesHeading.FindStringIndex(markdown)
	if loc == nil {
		return markdown
	}
	return strings.TrimRight(markdown[:loc[0]], " \t\n") + "\n"
}

var headingParser = goldmark.New().Parser()

// FirstHeading returns the plain text of the first heading in markdown, or
// "" when there is none.
func FirstHeading(markdown string) string {
	src := []byte(markdown)
	doc := headingParser.Parse(text.NewReader(src))

	var title string
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		h, ok := n.(*ast.Heading)
		if !ok {
			return ast.WalkContinue, nil
		}
		title = inlineText(h, src)
		return ast.WalkStop, nil
	})
	return title
}

// inlineText concatenates the text segments below n.
func inlineText(n ast.Node, src []byte) string {
	var buf bytes.Buffer
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if t, ok := c.(*ast.Text); ok {
			buf.Write(t.Segment.Value(src))
			if t.SoftLineBreak() {
				buf.WriteByte(' ')
			}
		}
		return ast.WalkContinue, nil
	})
	return strings.Join(strings.Fields(buf.String()), " ")
}

// Frontmatter is the YAML header written above converted Markdown.
type Frontmatter struct {
	PaperID     string    `yaml:"paper_id"`
	Title       string    `yaml:"title,omitempty"`
	SourceURL   string    `yaml:"source_url,omitempty"`
	SourcePDF   string    `yaml:"source_pdf,omitempty"`
	ConvertedAt time.Time `yaml:"converted_at"`
}

const frontmatterDelim = "---\n"

// AddFrontmatter prepends fm as a YAML block to body.
func AddFrontmatter(fm Frontmatter, body string) (string, error) {
	data, err := yaml.Marshal(fm)
	if err != nil {
		return "", fmt.Errorf("marshaling frontmatter: %w", err)
	}
	var b strings.Builder
	b.WriteString(frontmatterDelim)
	b.Write(data)
	b.WriteString(frontmatterDelim)
	b.WriteString("\n")
	b.WriteString(body)
	return b.String(), nil
}

// SplitFrontmatter separates a leading YAML block from the body. Content
// without a frontmatter block is returned unchanged with a zero Frontmatter.
func SplitFrontmatter(content string) (Frontmatter, string, error) {
	var fm Frontmatter
	if !strings.HasPrefix(content, frontmatterDelim) {
		return fm, content, nil
	}
	rest := content[len(frontmatterDelim):]
	end := strings.Index(rest, "\n"+frontmatterDelim)
	if end < 0 {
		return fm, content, nil
	}
	if err := yaml.Unmarshal([]byte(rest[:end+1]), &fm); err != nil {
		return fm, content, fmt.Errorf("parsing frontmatter: %w", err)
	}
	body := rest[end+1+len(frontmatterDelim):]
	return fm, strings.TrimPrefix(body, "\n"), nil
}
