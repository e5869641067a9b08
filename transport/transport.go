// Package transport retrieves a feed document over HTTP, falling back
// through an ordered list of relay routes when the direct origin is
// unreachable or blocked. Every refresh walks the full list from the
// top; the router keeps no state between calls.
package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

// Encoding selects how a route embeds the target URL.
type Encoding string

const (
	// EncodingDirect requests the target URL itself.
	EncodingDirect Encoding = "direct"
	// EncodingQuery appends the target percent-encoded as a query value.
	EncodingQuery Encoding = "query"
	// EncodingPath appends the target as a raw path suffix.
	EncodingPath Encoding = "path"
)

// Route is one prioritized access path to a feed.
type Route struct {
	Name     string
	BaseURL  string
	Encoding Encoding
}

// Target returns the URL this route actually requests for feedURL.
func (r Route) Target(feedURL string) string {
	switch r.Encoding {
	case EncodingQuery:
		return r.BaseURL + url.QueryEscape(feedURL)
	case EncodingPath:
		return r.BaseURL + feedURL
	default:
		return feedURL
	}
}

// DefaultRoutes is the stock route list: the origin itself, then two
// public read-only relays for origins that block direct access.
func DefaultRoutes() []Route {
	return []Route{
		{Name: "direct", Encoding: EncodingDirect},
		{Name: "allorigins", BaseURL: "https://api.allorigins.win/raw?url=", Encoding: EncodingQuery},
		{Name: "cors.sh", BaseURL: "https://proxy.cors.sh/", Encoding: EncodingPath},
	}
}

// RawDocument is one fetched response body plus the feed URL it was
// requested for, kept for diagnostics further down the pipeline.
type RawDocument struct {
	Body string
	URL  string
}

// ErrAllRoutes reports that every configured route failed.
var ErrAllRoutes = errors.New("all transport routes exhausted")

// RouteError is a single failed attempt. Status is zero when the
// request never produced a response.
type RouteError struct {
	Route  string
	Status int
	Err    error
}

func (e *RouteError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("route %s: unexpected status %d", e.Route, e.Status)
	}
	return fmt.Sprintf("route %s: %v", e.Route, e.Err)
}

func (e *RouteError) Unwrap() error { return e.Err }

const defaultTimeout = 15 * time.Second

// Router tries routes in priority order with a bounded timeout per
// attempt. The route list is injected so tests can substitute local
// endpoints.
type Router struct {
	routes  []Route
	client  *http.Client
	timeout time.Duration
}

// NewRouter builds a Router over the given routes. A non-positive
// timeout falls back to 15s.
func NewRouter(routes []Route, timeout time.Duration) *Router {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Router{
		routes:  routes,
		client:  &http.Client{},
		timeout: timeout,
	}
}

// Fetch retrieves feedURL through the first route that answers with a
// success status. A timed-out or failed attempt advances to the next
// route without retrying the same one. When the list is exhausted the
// returned error wraps ErrAllRoutes plus every per-route failure.
func (r *Router) Fetch(ctx context.Context, feedURL string) (RawDocument, error) {
	var attempts []error
	for _, route := range r.routes {
		body, err := r.attempt(ctx, route, feedURL)
		if err != nil {
			slog.Warn("transport route failed", "route", route.Name, "url", feedURL, "error", err)
			attempts = append(attempts, err)
			continue
		}
		slog.Debug("feed fetched", "route", route.Name, "url", feedURL, "bytes", len(body))
		return RawDocument{Body: body, URL: feedURL}, nil
	}
	return RawDocument{}, fmt.Errorf("%w for %s: %w", ErrAllRoutes, feedURL, errors.Join(attempts...))
}

func (r *Router) attempt(ctx context.Context, route Route, feedURL string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, route.Target(feedURL), nil)
	if err != nil {
		return "", &RouteError{Route: route.Name, Err: err}
	}
	req.Header.Set("User-Agent", "feedpipe/1.0 (+https://github.com/scipunch/feedpipe)")

	resp, err := r.client.Do(req)
	if err != nil {
		return "", &RouteError{Route: route.Name, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &RouteError{Route: route.Name, Status: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &RouteError{Route: route.Name, Err: err}
	}
	return string(body), nil
}
