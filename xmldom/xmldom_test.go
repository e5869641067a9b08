package xmldom

import (
	"errors"
	"strings"
	"testing"
)

const sample = `<?xml version="1.0"?>
<rss version="2.0">
  <channel>
    <title>Feed</title>
    <item>
      <title>One</title>
      <link>http://x.test/1</link>
    </item>
    <item>
      <title>Two</title>
      <enclosure url="http://x.test/2.mp3" type="audio/mpeg"/>
    </item>
  </channel>
</rss>`

func TestParse_Tree(t *testing.T) {
	root, err := Parse(sample, "http://x.test/feed")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if root.Tag != "rss" {
		t.Errorf("root tag = %q, want rss", root.Tag)
	}
	if got := root.Attr("version"); got != "2.0" {
		t.Errorf("version attr = %q, want 2.0", got)
	}

	// First title in document order is the channel title.
	title := root.Find("title")
	if title == nil || strings.TrimSpace(title.Text()) != "Feed" {
		t.Fatalf("Find(title) = %v, want channel title", title)
	}

	items := root.FindAll("item")
	if len(items) != 2 {
		t.Fatalf("FindAll(item) returned %d elements, want 2", len(items))
	}
	if got := strings.TrimSpace(items[0].Find("title").Text()); got != "One" {
		t.Errorf("first item title = %q, want One", got)
	}
	if got := strings.TrimSpace(items[1].Find("title").Text()); got != "Two" {
		t.Errorf("second item title = %q, want Two", got)
	}
	if got := items[1].Find("enclosure").Attr("url"); got != "http://x.test/2.mp3" {
		t.Errorf("enclosure url = %q", got)
	}
}

func TestParse_SubtreeText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "text only",
			in:   "<a>plain</a>",
			want: "plain",
		},
		{
			name: "text interleaved with child",
			in:   "<a>one <b>two</b> three</a>",
			want: "one two three",
		},
		{
			name: "inline markup inside a body",
			in:   "<content><div>para1 <em>x</em> para2</div></content>",
			want: "para1 x para2",
		},
		{
			name: "nested mixed content",
			in:   "<a>A<b>B<c>C</c>D</b>E</a>",
			want: "ABCDE",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root, err := Parse(tt.in, "http://x.test")
			if err != nil {
				t.Fatalf("Parse failed: %v", err)
			}
			if got := root.Text(); got != tt.want {
				t.Errorf("Text() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParse_MissingLookups(t *testing.T) {
	root, err := Parse("<a><b/></a>", "http://x.test")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if root.Find("missing") != nil {
		t.Error("Find on absent tag should return nil")
	}
	if got := root.FindAll("missing"); len(got) != 0 {
		t.Errorf("FindAll on absent tag returned %d elements", len(got))
	}
	if got := root.Attr("missing"); got != "" {
		t.Errorf("Attr on absent attribute = %q, want empty", got)
	}
}

func TestParse_Malformed(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{name: "plain text", in: "not xml at all"},
		{name: "unclosed tag", in: "<rss><channel><title>x</channel></rss>"},
		{name: "empty input", in: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.in, "http://bad.test/feed")
			if err == nil {
				t.Fatal("expected parse error")
			}
			var perr *ParseError
			if !errors.As(err, &perr) {
				t.Fatalf("error type %T, want *ParseError", err)
			}
			if perr.URL != "http://bad.test/feed" {
				t.Errorf("ParseError.URL = %q", perr.URL)
			}
		})
	}
}
