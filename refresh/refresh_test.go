package refresh

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/scipunch/feedpipe/agent"
	"github.com/scipunch/feedpipe/config"
	"github.com/scipunch/feedpipe/feed"
	"github.com/scipunch/feedpipe/filter"
	"github.com/scipunch/feedpipe/transport"
)

type fakeFetcher struct {
	mu     sync.Mutex
	bodies map[string]string
	errs   map[string]error
	calls  []string
}

func (f *fakeFetcher) Fetch(ctx context.Context, url string) (transport.RawDocument, error) {
	f.mu.Lock()
	f.calls = append(f.calls, url)
	f.mu.Unlock()
	if err, ok := f.errs[url]; ok {
		return transport.RawDocument{}, err
	}
	return transport.RawDocument{Body: f.bodies[url], URL: url}, nil
}

type fakeStore struct {
	mu        sync.Mutex
	seen      map[string]bool
	summaries map[string]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{seen: make(map[string]bool), summaries: make(map[string]string)}
}

func (s *fakeStore) UpsertItems(ctx context.Context, source string, items []feed.Item) ([]feed.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var inserted []feed.Item
	for _, item := range items {
		key := source + "|" + item.GUID
		if s.seen[key] {
			continue
		}
		s.seen[key] = true
		inserted = append(inserted, item)
	}
	return inserted, nil
}

func (s *fakeStore) SetSummary(ctx context.Context, source, guid, summary string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.summaries[source+"|"+guid] = summary
	return nil
}

type upperAgent struct{}

func (upperAgent) Name() string { return "upper" }
func (upperAgent) Process(ctx context.Context, content string) (string, error) {
	return "SUMMARY: " + content, nil
}

const twoItemRSS = `<rss version="2.0"><channel><title>T</title>
<item><title>one</title><guid>g1</guid><description>body one</description></item>
<item><title>two</title><guid>g2</guid><description>body two</description></item>
</channel></rss>`

func TestRefresh_IndependentOutcomes(t *testing.T) {
	fetcher := &fakeFetcher{
		bodies: map[string]string{
			"http://good.test/feed": twoItemRSS,
			"http://junk.test/feed": "<<<not xml",
		},
		errs: map[string]error{
			"http://down.test/feed": errors.New("connection refused"),
		},
	}
	sources := []config.SourceConfig{
		{Name: "good", FeedURL: "http://good.test/feed"},
		{Name: "down", FeedURL: "http://down.test/feed"},
		{Name: "junk", FeedURL: "http://junk.test/feed"},
	}

	r := New(fetcher, newFakeStore(), nil, nil, sources, 2)
	outcomes := r.Refresh(context.Background())

	if len(outcomes) != 3 {
		t.Fatalf("got %d outcomes, want 3", len(outcomes))
	}
	if outcomes[0].Err != nil {
		t.Errorf("good source failed: %v", outcomes[0].Err)
	}
	if len(outcomes[0].New) != 2 {
		t.Errorf("good source produced %d new items, want 2", len(outcomes[0].New))
	}
	if outcomes[1].Err == nil {
		t.Error("unreachable source should report an error")
	}
	if outcomes[2].Err == nil {
		t.Error("unparsable source should report an error")
	}
}

func TestRefresh_SecondCycleFindsNothingNew(t *testing.T) {
	fetcher := &fakeFetcher{bodies: map[string]string{"http://x.test/feed": twoItemRSS}}
	sources := []config.SourceConfig{{Name: "src", FeedURL: "http://x.test/feed"}}
	store := newFakeStore()

	r := New(fetcher, store, nil, nil, sources, 1)

	first := r.Refresh(context.Background())
	if len(first[0].New) != 2 {
		t.Fatalf("first cycle: %d new items, want 2", len(first[0].New))
	}

	second := r.Refresh(context.Background())
	if len(second[0].New) != 0 {
		t.Errorf("second cycle: %d new items, want 0 (deduped by guid)", len(second[0].New))
	}
}

func TestRefresh_DisabledSourceSkipped(t *testing.T) {
	disabled := false
	fetcher := &fakeFetcher{bodies: map[string]string{}}
	sources := []config.SourceConfig{
		{Name: "off", FeedURL: "http://off.test/feed", Enabled: &disabled},
	}

	r := New(fetcher, newFakeStore(), nil, nil, sources, 1)
	outcomes := r.Refresh(context.Background())

	if outcomes[0].Err != nil || len(outcomes[0].New) != 0 {
		t.Errorf("disabled source should produce an empty outcome, got %+v", outcomes[0])
	}
	if len(fetcher.calls) != 0 {
		t.Errorf("disabled source was fetched: %v", fetcher.calls)
	}
}

func TestRefresh_FiltersApplied(t *testing.T) {
	fetcher := &fakeFetcher{bodies: map[string]string{"http://x.test/feed": twoItemRSS}}
	pipeline, err := filter.NewPipeline(map[string]config.Filter{
		"drop_two": {ExcludePatterns: []string{"two"}},
	})
	if err != nil {
		t.Fatalf("filter pipeline: %v", err)
	}
	sources := []config.SourceConfig{
		{Name: "src", FeedURL: "http://x.test/feed", FilterNames: []string{"drop_two"}},
	}

	r := New(fetcher, newFakeStore(), pipeline, nil, sources, 1)
	outcomes := r.Refresh(context.Background())

	if len(outcomes[0].New) != 1 {
		t.Fatalf("got %d new items, want 1 after filtering", len(outcomes[0].New))
	}
	if outcomes[0].New[0].GUID != "g1" {
		t.Errorf("wrong item survived the filter: %+v", outcomes[0].New[0])
	}
}

func TestRefresh_AgentSummariesStored(t *testing.T) {
	fetcher := &fakeFetcher{bodies: map[string]string{"http://x.test/feed": twoItemRSS}}
	store := newFakeStore()
	agents := map[string]agent.Agent{"upper": upperAgent{}}
	sources := []config.SourceConfig{
		{Name: "src", FeedURL: "http://x.test/feed", Agents: []string{"upper"}},
	}

	r := New(fetcher, store, nil, agents, sources, 1)
	r.Refresh(context.Background())

	if got := store.summaries["src|g1"]; got != "SUMMARY: body one" {
		t.Errorf("summary for g1 = %q", got)
	}
	if got := store.summaries["src|g2"]; got != "SUMMARY: body two" {
		t.Errorf("summary for g2 = %q", got)
	}
}

func TestRefresh_ExtractContentFallback(t *testing.T) {
	article := `<html><head><title>A</title></head><body><article><h1>A</h1>
<p>The announced item had no body, so the pipeline fetched the page and
pulled this paragraph out of the article markup for storage.</p>
<p>A second paragraph keeps the extractor comfortable about treating the
page as genuine article content.</p></article></body></html>`

	emptyBodyRSS := `<rss version="2.0"><channel><title>T</title>
<item><title>one</title><guid>g1</guid><link>http://x.test/article</link></item>
</channel></rss>`

	fetcher := &fakeFetcher{bodies: map[string]string{
		"http://x.test/feed":    emptyBodyRSS,
		"http://x.test/article": article,
	}}
	sources := []config.SourceConfig{
		{Name: "src", FeedURL: "http://x.test/feed", ExtractContent: true},
	}

	r := New(fetcher, newFakeStore(), nil, nil, sources, 1)
	outcomes := r.Refresh(context.Background())

	if outcomes[0].Err != nil {
		t.Fatalf("refresh failed: %v", outcomes[0].Err)
	}
	if len(outcomes[0].New) != 1 {
		t.Fatalf("got %d items, want 1", len(outcomes[0].New))
	}
	if content := outcomes[0].New[0].Content; content == "" {
		t.Error("item content should have been filled from the article page")
	}

	want := []string{"http://x.test/feed", "http://x.test/article"}
	if fmt.Sprint(fetcher.calls) != fmt.Sprint(want) {
		t.Errorf("fetch calls = %v, want %v", fetcher.calls, want)
	}
}
