// Package markup renders article Markdown into sanitized HTML.
package markup

import (
	"bytes"
	"html/template"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

var (
	md = goldmark.New(
		goldmark.WithExtensions(extension.Table, extension.Strikethrough, extension.Linkify),
		goldmark.WithRendererOptions(html.WithHardWraps()),
	)
	policy = bluemonday.UGCPolicy()
	strip  = bluemonday.StrictPolicy()
)

// ToHTML renders Markdown. Raw HTML in the source is dropped, and the output
// is passed through a UGC sanitizer.
func ToHTML(source string) template.HTML {
	source = strings.TrimSpace(source)
	if source == "" {
		return ""
	}
	var buf bytes.Buffer
	if err := md.Convert([]byte(source), &buf); err != nil {
		return template.HTML("<p>" + template.HTMLEscapeString(source) + "</p>")
	}
	return template.HTML(policy.SanitizeBytes(buf.Bytes()))
}

// PlainText renders Markdown and strips every tag, collapsing whitespace.
func PlainText(source string) string {
	rendered := string(ToHTML(source))
	text := strip.Sanitize(rendered)
	text = strings.NewReplacer("&amp;", "&", "&lt;", "<", "&gt;", ">", "&#34;", `"`, "&#39;", "'").Replace(text)
	return strings.Join(strings.Fields(text), " ")
}

// Excerpt returns at most max runes of the plain text, with an ellipsis when cut.
func Excerpt(source string, max int) string {
	text := PlainText(source)
	if max <= 0 || utf8.RuneCountInString(text) <= max {
		return text
	}
	runes := []rune(text)
	return strings.TrimSpace(string(runes[:max])) + "…"
}
