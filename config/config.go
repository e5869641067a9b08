package config

import (
	"fmt"
	"log/slog"
	"os"
	"path"

	"github.com/BurntSushi/toml"
)

const baseCfgPath = "feedpipe/config.toml"

type Config struct {
	Sources             []SourceConfig    `toml:"sources"`
	Routes              []RouteConfig     `toml:"routes"`                // Ordered transport routes; empty = built-in defaults
	Filters             map[string]Filter `toml:"filters"`               // Named filters that can be referenced by sources
	DatabasePath        string            `toml:"database_path"`
	OutputDirectory     string            `toml:"output_directory"`      // Directory for the generated digest
	FetchTimeoutSeconds int               `toml:"fetch_timeout_seconds"` // Per-route attempt timeout
	Concurrency         int               `toml:"concurrency"`           // Fan-out limit for concurrent source refreshes
}

type SourceConfig struct {
	Name           string   `toml:"name"`
	FeedURL        string   `toml:"feed_url"`
	FilterNames    []string `toml:"filters"`         // Names of filters to apply (pipeline)
	Agents         []string `toml:"agents"`          // Post-processing agents, e.g., ["summary"]
	ExtractContent bool     `toml:"extract_content"` // Fetch the article page when the feed ships no body
	Enabled        *bool    `toml:"enabled"`         // Whether this source is active (defaults to true if not set)
}

// RouteConfig is one transport route in priority order. Encoding is
// "direct", "query" or "path".
type RouteConfig struct {
	Name     string `toml:"name"`
	BaseURL  string `toml:"base_url"`
	Encoding string `toml:"encoding"`
}

// Filter defines rules for filtering parsed items
type Filter struct {
	MinLength         int      `toml:"min_length"`         // Minimum character count (0 = no limit)
	MinWords          int      `toml:"min_words"`          // Minimum word count (0 = no limit)
	ExcludePatterns   []string `toml:"exclude_patterns"`   // Regex patterns to exclude
	RequireParagraphs bool     `toml:"require_paragraphs"` // Require at least two non-empty lines
}

// IsEnabled returns true if the source is enabled (defaults to true if not explicitly set)
func (s SourceConfig) IsEnabled() bool {
	if s.Enabled == nil {
		return true
	}
	return *s.Enabled
}

func Read(path string) (Config, error) {
	conf := Default()
	dat, err := os.ReadFile(path)
	if err != nil {
		return conf, err
	}
	_, err = toml.Decode(string(dat), &conf)
	if err != nil {
		return conf, fmt.Errorf("failed to decode config at %s with %w", path, err)
	}
	return conf, nil
}

func Write(cfgPath string, cfg Config) error {
	blob, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode config with %w", err)
	}
	basePath := path.Dir(cfgPath)
	err = os.MkdirAll(basePath, os.ModePerm)
	if err != nil {
		return fmt.Errorf("failed to create base config directory at '%s' with %w", basePath, err)
	}
	err = os.WriteFile(cfgPath, blob, 0644)
	if err != nil {
		return fmt.Errorf("failed to write into config file at '%s' with %w", cfgPath, err)
	}
	slog.Info("config written", "at", cfgPath)
	return nil
}

func Default() Config {
	var home = os.Getenv("HOME")
	var dbBase = path.Join(home, ".local/share/feedpipe")
	return Config{
		DatabasePath:        path.Join(dbBase, "data.db"),
		OutputDirectory:     path.Join(home, "feedpipe"),
		FetchTimeoutSeconds: 15,
		Concurrency:         4,
		Sources:             []SourceConfig{},
	}
}

func DefaultPath() string {
	var xdgHome = os.Getenv("XDG_CONFIG_HOME")
	if xdgHome != "" {
		return path.Join(xdgHome, baseCfgPath)
	}

	var home = os.Getenv("HOME")
	if home != "" {
		return path.Join(home, ".config", baseCfgPath)
	}

	panic("unclear where to search for the config file")
}
