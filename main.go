package main

import (
	"context"
	"embed"
	"errors"
	"flag"
	"fmt"
	"html/template"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/scipunch/feedpipe/agent"
	"github.com/scipunch/feedpipe/agent/summary"
	"github.com/scipunch/feedpipe/config"
	"github.com/scipunch/feedpipe/feed"
	"github.com/scipunch/feedpipe/filter"
	"github.com/scipunch/feedpipe/refresh"
	"github.com/scipunch/feedpipe/store"
	"github.com/scipunch/feedpipe/transport"
)

//go:embed templates/*.html
var templateFS embed.FS

// Digest is the render model for the generated HTML report.
type Digest struct {
	GeneratedAt time.Time
	Feeds       []FeedSection
}

type FeedSection struct {
	Name  string
	Items []feed.Item
}

func main() {
	t := template.Must(template.ParseFS(templateFS, "templates/*.html"))

	if os.Getenv("DEBUG") != "" {
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
	}

	var cfgPath string
	flag.StringVar(&cfgPath, "config", config.DefaultPath(), "path to a TOML config")
	flag.Parse()

	// Read config and create if default is missing
	conf, err := config.Read(cfgPath)
	if errors.Is(err, os.ErrNotExist) && cfgPath == config.DefaultPath() {
		if err := config.Write(cfgPath, conf); err != nil {
			log.Fatalf("failed to write default config with %s", err)
		}
	} else if err != nil {
		log.Fatalf("failed to read config with %s", err)
	}

	// Load credentials
	creds, err := config.ReadCredentials(config.DefaultCredentialsPath())
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Fatalf("failed to read credentials: %s", err)
	}

	// Initialize filter pipeline
	filterPipeline, err := filter.NewPipeline(conf.Filters)
	if err != nil {
		log.Fatalf("failed to initialize filters: %s", err)
	}
	if len(conf.Filters) > 0 {
		slog.Info("initialized filters", "count", len(conf.Filters))
	}

	// Initialize agents if any source requires them
	agentTypes := agent.CollectUniqueAgentTypes(conf.Sources)
	var agents map[string]agent.Agent
	if len(agentTypes) > 0 {
		if !creds.OpenAI.IsValid() {
			log.Fatal("OpenAI API key required for agents but not found in creds.toml")
		}
		agents, err = agent.Init(agentTypes, creds.OpenAI, agent.Registry{
			"summary": func(c config.OpenAICredentials) agent.Agent { return summary.New(c) },
		})
		if err != nil {
			log.Fatalf("failed to initialize agents: %s", err)
		}
		slog.Info("initialized agents", "types", agentTypes)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Open the item store
	db, err := store.Open(conf.DatabasePath)
	if err != nil {
		log.Fatalf("failed to open item store with %v", err)
	}
	defer db.Close()

	if stats, err := db.Stats(ctx); err != nil {
		slog.Warn("failed to get store stats", "error", err)
	} else {
		slog.Info("store opened", "items", stats.Items, "sources", stats.Sources)
	}

	// Build the transport router
	routes, err := routesFromConfig(conf.Routes)
	if err != nil {
		log.Fatalf("failed to build transport routes with %s", err)
	}
	router := transport.NewRouter(routes, time.Duration(conf.FetchTimeoutSeconds)*time.Second)

	// Refresh every source
	refresher := refresh.New(router, db, filterPipeline, agents, conf.Sources, conf.Concurrency)
	outcomes := refresher.Refresh(ctx)

	var errs []error
	digest := Digest{GeneratedAt: time.Now()}
	for _, outcome := range outcomes {
		if outcome.Err != nil {
			errs = append(errs, fmt.Errorf("could not refresh feed '%s': %w", outcome.Source, outcome.Err))
			continue
		}
		if len(outcome.New) > 0 {
			digest.Feeds = append(digest.Feeds, FeedSection{Name: outcome.Source, Items: outcome.New})
		}
	}
	if len(errs) > 0 {
		slog.Error("several feeds were not refreshed", "feeds", errors.Join(errs...))
	}

	if len(digest.Feeds) == 0 {
		slog.Info("no new items, skipping digest")
		return
	}

	// Generate the HTML digest
	if err := os.MkdirAll(conf.OutputDirectory, os.ModePerm); err != nil {
		log.Fatalf("failed to create output directory with %s", err)
	}
	outPath := filepath.Join(conf.OutputDirectory, "digest.html")
	out, err := os.Create(outPath)
	if err != nil {
		log.Fatal("could not create digest HTML file", err)
	}
	defer out.Close()
	if err := t.ExecuteTemplate(out, "digest.html", digest); err != nil {
		log.Fatal("could not render digest", err)
	}
	slog.Info("digest generated", "path", outPath)
}

func routesFromConfig(configured []config.RouteConfig) ([]transport.Route, error) {
	if len(configured) == 0 {
		return transport.DefaultRoutes(), nil
	}

	routes := make([]transport.Route, 0, len(configured))
	for _, rc := range configured {
		var enc transport.Encoding
		switch rc.Encoding {
		case "", string(transport.EncodingDirect):
			enc = transport.EncodingDirect
		case string(transport.EncodingQuery):
			enc = transport.EncodingQuery
		case string(transport.EncodingPath):
			enc = transport.EncodingPath
		default:
			return nil, fmt.Errorf("route '%s' has unknown encoding '%s'", rc.Name, rc.Encoding)
		}
		routes = append(routes, transport.Route{Name: rc.Name, BaseURL: rc.BaseURL, Encoding: enc})
	}
	return routes, nil
}
