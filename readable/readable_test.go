package readable

import (
	"strings"
	"testing"
)

func TestExtract(t *testing.T) {
	page := `<!DOCTYPE html>
<html>
<head><title>Test Article</title></head>
<body>
<nav><a href="/">home</a></nav>
<article>
<h1>Test Article</h1>
<p>Syndication feeds sometimes announce an item with an empty body, leaving
the reader to visit the page itself. In that case the refresh workflow
fetches the article and extracts its readable text.</p>
<p>This second paragraph exists so the extractor has enough content to
consider the page an article rather than boilerplate navigation.</p>
</article>
</body>
</html>`

	text, err := Extract(page, "http://x.test/article")
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if !strings.Contains(text, "refresh workflow") {
		t.Errorf("extracted text missing article body: %q", text)
	}
	if strings.Contains(text, "<p>") {
		t.Errorf("extracted text still contains markup: %q", text)
	}
	if strings.Contains(text, "\n\n\n") {
		t.Errorf("extracted text contains redundant blank lines: %q", text)
	}
}
