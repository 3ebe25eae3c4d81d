// Package transcode converts Canvas rich content (HTML) to the Markdown used
// in local documents and back.
//
// Headings, lists, links, emphasis, code and quotes map to their Markdown
// equivalents. Plain tables become pipe tables. Tables carrying a caption,
// scope or other attributes, spans or block content are embedded verbatim
// and restored byte-for-byte by ToHTML, also inside lists and block quotes.
// Paragraphs carrying a class keep their markup as raw HTML.
package transcode

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmhtml "github.com/yuin/goldmark/renderer/html"
)

var renderer = goldmark.New(
	goldmark.WithExtensions(extension.Table, extension.Strikethrough),
	goldmark.WithRendererOptions(gmhtml.WithUnsafe()),
)

var excessNewlines = regexp.MustCompile(`\n{3,}`)

// ToMarkdown converts Canvas HTML to Markdown.
func ToMarkdown(src string) string {
	src = strings.ReplaceAll(src, "\r\n", "\n")
	if strings.TrimSpace(src) == "" {
		return ""
	}

	stripped, tables := extractHTMLTables(src)
	md := convert(stripped)
	md = excessNewlines.ReplaceAllString(md, "\n\n")
	md = strings.TrimSpace(md)

	for i, table := range tables {
		md = restoreTable(md, placeholder(i), table)
	}
	return md
}

// restoreTable replaces token with table, continuing the list or quote
// prefix of the token's line onto every table line.
func restoreTable(md, token, table string) string {
	idx := strings.Index(md, token)
	if idx < 0 {
		return md
	}
	start := strings.LastIndex(md[:idx], "\n") + 1
	cont := continuation(md[start:idx])
	return md[:idx] + indentLines(table, cont) + md[idx+len(token):]
}

// ToHTML converts Markdown to Canvas HTML.
func ToHTML(src string) string {
	src = strings.ReplaceAll(src, "\r\n", "\n")
	if strings.TrimSpace(src) == "" {
		return ""
	}

	stripped, tables := extractMarkdownTables(src)

	var buf bytes.Buffer
	if err := renderer.Convert([]byte(stripped), &buf); err != nil {
		// goldmark only fails on writer errors, which bytes.Buffer never returns.
		return src
	}
	out := strings.TrimRight(buf.String(), "\n")

	for i, table := range tables {
		token := placeholder(i)
		if strings.Contains(out, "<p>"+token+"</p>") {
			out = strings.Replace(out, "<p>"+token+"</p>", table, 1)
		} else {
			out = strings.Replace(out, token, table, 1)
		}
	}
	return out
}

// Normalize projects remote HTML through a full round trip so it can be
// compared with HTML produced from a local document.
func Normalize(src string) string {
	return ToHTML(ToMarkdown(src))
}

func placeholder(i int) string {
	return fmt.Sprintf("CANVASTABLE%dPLACEHOLDER", i)
}
