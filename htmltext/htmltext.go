// Package htmltext flattens possibly-HTML feed content into readable
// plain text. List items keep a bullet marker and block elements keep a
// line break so the structure survives.
package htmltext

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

var skipped = map[string]bool{
	"script":   true,
	"style":    true,
	"link":     true,
	"iframe":   true,
	"noscript": true,
}

// Elements that terminate a line of text once flattened.
var blocks = map[string]bool{
	"p": true, "div": true, "br": true, "hr": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"ul": true, "ol": true, "table": true, "tr": true,
	"blockquote": true, "pre": true,
}

var (
	anyTag        = regexp.MustCompile(`<[^>]*>`)
	horizontalWS  = regexp.MustCompile(`[^\S\n]+`)
	spacedNewline = regexp.MustCompile(`[^\S\n]*\n[^\S\n]*`)
	newlineRuns   = regexp.MustCompile(`\n{3,}`)
)

// Normalize converts a possibly-HTML string into plain text. If the
// markup cannot be parsed at all, it degrades to stripping every <...>
// span instead of failing.
func Normalize(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}

	doc, err := html.Parse(strings.NewReader(raw))
	if err != nil {
		return collapse(anyTag.ReplaceAllString(raw, ""))
	}

	var b strings.Builder
	flatten(doc, &b)
	return collapse(b.String())
}

func flatten(n *html.Node, b *strings.Builder) {
	if n.Type == html.ElementNode {
		if skipped[n.Data] {
			return
		}
		if n.Data == "li" {
			b.WriteString("\n• ")
		}
	}
	if n.Type == html.TextNode {
		b.WriteString(n.Data)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		flatten(c, b)
	}
	if n.Type == html.ElementNode && blocks[n.Data] {
		b.WriteString("\n")
	}
}

// collapse squeezes horizontal whitespace runs to a single space and
// three or more line breaks to one blank line, then trims the edges.
func collapse(s string) string {
	s = horizontalWS.ReplaceAllString(s, " ")
	s = spacedNewline.ReplaceAllString(s, "\n")
	s = newlineRuns.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}
