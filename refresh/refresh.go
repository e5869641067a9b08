// Package refresh runs the ingestion pipeline for every registered
// source. Sources are independent: each gets its own outcome and no
// failure of one can abort the batch.
package refresh

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/scipunch/feedpipe/agent"
	"github.com/scipunch/feedpipe/config"
	"github.com/scipunch/feedpipe/feed"
	"github.com/scipunch/feedpipe/filter"
	"github.com/scipunch/feedpipe/readable"
	"github.com/scipunch/feedpipe/transport"
)

// Fetcher retrieves a raw feed document. Implemented by
// *transport.Router; tests substitute fakes.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (transport.RawDocument, error)
}

// Store receives the parsed items and reports which ones are new.
type Store interface {
	UpsertItems(ctx context.Context, source string, items []feed.Item) ([]feed.Item, error)
	SetSummary(ctx context.Context, source, guid, summary string) error
}

// Outcome is the per-source result of one refresh cycle.
type Outcome struct {
	Source string
	New    []feed.Item
	Err    error
}

// Refresher owns the pipeline collaborators for a batch refresh.
type Refresher struct {
	fetcher     Fetcher
	store       Store
	filters     *filter.Pipeline
	agents      map[string]agent.Agent
	sources     []config.SourceConfig
	concurrency int
}

// New assembles a Refresher. A non-positive concurrency means one
// source at a time.
func New(
	fetcher Fetcher,
	store Store,
	filters *filter.Pipeline,
	agents map[string]agent.Agent,
	sources []config.SourceConfig,
	concurrency int,
) *Refresher {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Refresher{
		fetcher:     fetcher,
		store:       store,
		filters:     filters,
		agents:      agents,
		sources:     sources,
		concurrency: concurrency,
	}
}

// Refresh runs the pipeline for every enabled source, up to the
// configured number of sources in parallel. It always returns one
// outcome per attempted source.
func (r *Refresher) Refresh(ctx context.Context) []Outcome {
	outcomes := make([]Outcome, len(r.sources))

	var wg sync.WaitGroup
	sem := make(chan struct{}, r.concurrency)
	for i, src := range r.sources {
		if !src.IsEnabled() {
			slog.Debug("skipping disabled source", "source", src.Name)
			outcomes[i] = Outcome{Source: src.Name}
			continue
		}

		wg.Add(1)
		go func(i int, src config.SourceConfig) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			newItems, err := r.refreshSource(ctx, src)
			if err != nil {
				slog.Error("feed refresh failed", "source", src.Name, "url", src.FeedURL, "error", err)
			}
			outcomes[i] = Outcome{Source: src.Name, New: newItems, Err: err}
		}(i, src)
	}
	wg.Wait()

	return outcomes
}

// refreshSource runs one source through fetch, parse, filter, store and
// the configured agents. Execution within a source is sequential.
func (r *Refresher) refreshSource(ctx context.Context, src config.SourceConfig) ([]feed.Item, error) {
	doc, err := r.fetcher.Fetch(ctx, src.FeedURL)
	if err != nil {
		return nil, fmt.Errorf("fetch failed: %w", err)
	}

	parsed, err := feed.Parse(doc.Body, doc.URL)
	if err != nil {
		return nil, fmt.Errorf("parse failed: %w", err)
	}
	slog.Info("feed parsed", "source", src.Name, "title", parsed.Title, "items", len(parsed.Items))

	items := parsed.Items
	if r.filters != nil && len(src.FilterNames) > 0 {
		kept := items[:0:0]
		for _, item := range items {
			if include, reason := r.filters.ShouldInclude(item, src.FilterNames); !include {
				slog.Debug("item filtered out", "source", src.Name, "guid", item.GUID, "reason", reason)
				continue
			}
			kept = append(kept, item)
		}
		items = kept
	}

	if src.ExtractContent {
		items = r.fillMissingContent(ctx, src, items)
	}

	newItems, err := r.store.UpsertItems(ctx, src.Name, items)
	if err != nil {
		return nil, fmt.Errorf("store failed: %w", err)
	}
	slog.Info("feed refreshed", "source", src.Name, "new", len(newItems), "seen", len(items)-len(newItems))

	if len(src.Agents) > 0 {
		r.runAgents(ctx, src, newItems)
	}

	return newItems, nil
}

// fillMissingContent fetches the article page for items the feed
// announced without a body. A failed extraction keeps the empty
// content; it is not an error for the feed.
func (r *Refresher) fillMissingContent(ctx context.Context, src config.SourceConfig, items []feed.Item) []feed.Item {
	for i, item := range items {
		if item.Content != "" || item.Link == "" {
			continue
		}
		page, err := r.fetcher.Fetch(ctx, item.Link)
		if err != nil {
			slog.Warn("article fetch failed", "source", src.Name, "link", item.Link, "error", err)
			continue
		}
		text, err := readable.Extract(page.Body, item.Link)
		if err != nil {
			slog.Warn("article extraction failed", "source", src.Name, "link", item.Link, "error", err)
			continue
		}
		items[i].Content = text
	}
	return items
}

// runAgents pushes each new item's content through the source's agent
// chain and stores the result as its summary. Agent failures are
// advisory only.
func (r *Refresher) runAgents(ctx context.Context, src config.SourceConfig, items []feed.Item) {
	for _, item := range items {
		content := item.Content
		processed := false
		for _, name := range src.Agents {
			a, ok := r.agents[name]
			if !ok {
				slog.Warn("agent not configured, skipping", "agent", name, "source", src.Name)
				continue
			}
			out, err := a.Process(ctx, content)
			if err != nil {
				slog.Error("agent processing failed", "agent", name, "source", src.Name, "guid", item.GUID, "error", err)
				processed = false
				break
			}
			content = out
			processed = true
		}
		if !processed {
			continue
		}
		if err := r.store.SetSummary(ctx, src.Name, item.GUID, content); err != nil {
			slog.Warn("failed to store summary", "source", src.Name, "guid", item.GUID, "error", err)
		}
	}
}
