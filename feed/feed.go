// Package feed turns a raw syndication payload into a normalized item
// list. It accepts both RSS and Atom, tolerates the usual vendor
// deviations, and never drops a feed because a single item is missing a
// field.
package feed

import (
	"net/url"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/scipunch/feedpipe/htmltext"
	"github.com/scipunch/feedpipe/sanitize"
	"github.com/scipunch/feedpipe/xmldom"
)

// Item is the pipeline's output unit. GUID is never empty: it falls
// back to the link, then the title, so the caller can always dedupe.
// PublishedAt is always a valid instant; an absent or garbage source
// date resolves to the moment of parsing.
type Item struct {
	Title       string
	Link        string
	Content     string
	GUID        string
	PublishedAt time.Time
}

// Feed is a channel title plus its items in document order.
type Feed struct {
	Title string
	Items []Item
}

type dialect int

const (
	dialectRSS dialect = iota
	dialectAtom
)

// Parse sanitizes and parses body, detects the dialect once and
// extracts every item. RSS is tried first: a valid RSS document always
// has item elements, so the Atom path only fires on genuinely
// RSS-absent documents. A structural failure surfaces as
// *xmldom.ParseError carrying sourceURL.
func Parse(body, sourceURL string) (Feed, error) {
	root, err := xmldom.Parse(sanitize.Sanitize(body), sourceURL)
	if err != nil {
		return Feed{}, err
	}

	f := Feed{}
	if title := root.Find("title"); title != nil {
		f.Title = strings.TrimSpace(title.Text())
	}

	if items := root.FindAll("item"); len(items) > 0 {
		f.Items = lo.Map(items, func(el *xmldom.Element, _ int) Item {
			return extractItem(el, dialectRSS)
		})
		return f, nil
	}

	f.Items = lo.Map(root.FindAll("entry"), func(el *xmldom.Element, _ int) Item {
		return extractItem(el, dialectAtom)
	})
	return f, nil
}

func extractItem(el *xmldom.Element, d dialect) Item {
	var link, guid, content, date string
	switch d {
	case dialectRSS:
		link = childText(el, "link")
		guid = childText(el, "guid")
		// content:encoded arrives as plain "encoded" after namespace
		// stripping and wins over description.
		content = childText(el, "encoded")
		if content == "" {
			content = childText(el, "description")
		}
		date = childText(el, "pubDate")
	case dialectAtom:
		// Atom links are attribute-based, not text-based.
		if l := el.Find("link"); l != nil {
			link = l.Attr("href")
		}
		guid = childText(el, "id")
		content = childText(el, "content")
		if content == "" {
			content = childText(el, "summary")
		}
		date = childText(el, "updated")
		if date == "" {
			date = childText(el, "published")
		}
	}

	title := childText(el, "title")
	if link == "" && looksLikeURL(guid) {
		link = guid
	}
	if guid == "" {
		guid = link
	}
	if guid == "" {
		guid = title
	}

	return Item{
		Title:       title,
		Link:        link,
		Content:     htmltext.Normalize(content),
		GUID:        guid,
		PublishedAt: parseDate(date),
	}
}

func childText(el *xmldom.Element, tag string) string {
	if c := el.Find(tag); c != nil {
		return strings.TrimSpace(c.Text())
	}
	return ""
}

func looksLikeURL(s string) bool {
	u, err := url.Parse(s)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// Date layouts observed in the wild, most common first. RFC1123 covers
// the RSS pubDate convention, RFC3339 the Atom one.
var dateLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	time.RFC3339,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04:05 MST",
	"2 Jan 2006 15:04:05 -0700",
	time.RFC822Z,
	time.RFC822,
	"2006-01-02T15:04:05Z0700",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseDate(raw string) time.Time {
	raw = strings.TrimSpace(raw)
	if raw != "" {
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, raw); err == nil {
				return t
			}
		}
	}
	return time.Now()
}
