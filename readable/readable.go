// Package readable extracts the readable text of an article page. It
// backs the optional per-source fallback for feeds that announce items
// without shipping their body.
package readable

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/go-shiori/go-readability"
)

// The extraction leaves long runs of blank lines behind once the
// markup is gone; squeeze them to a single blank line.
var redundantNewlines = regexp.MustCompile(`\n{3,}`)

// Extract returns the readable plain text of an HTML page.
func Extract(body, pageURL string) (string, error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		u = nil
	}

	article, err := readability.FromReader(strings.NewReader(body), u)
	if err != nil {
		return "", fmt.Errorf("readability extraction failed for '%s': %w", pageURL, err)
	}

	text := redundantNewlines.ReplaceAllString(article.TextContent, "\n\n")
	return strings.TrimSpace(text), nil
}
