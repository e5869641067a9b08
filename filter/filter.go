// Package filter drops uninteresting parsed items before they reach
// the store. Filters are named in the config and referenced per source.
package filter

import (
	"log/slog"
	"regexp"
	"strings"
	"unicode"

	"github.com/scipunch/feedpipe/config"
	"github.com/scipunch/feedpipe/feed"
)

// Pipeline applies a series of named filters to parsed items
type Pipeline struct {
	filters map[string]*compiledFilter
}

// compiledFilter contains compiled regex patterns for efficient matching
type compiledFilter struct {
	config          config.Filter
	excludePatterns []*regexp.Regexp
}

// NewPipeline creates a filter pipeline from config
func NewPipeline(filtersConfig map[string]config.Filter) (*Pipeline, error) {
	compiled := make(map[string]*compiledFilter)

	for name, filterCfg := range filtersConfig {
		cf := &compiledFilter{
			config:          filterCfg,
			excludePatterns: make([]*regexp.Regexp, 0, len(filterCfg.ExcludePatterns)),
		}

		for _, pattern := range filterCfg.ExcludePatterns {
			re, err := regexp.Compile(pattern)
			if err != nil {
				slog.Warn("invalid regex pattern in filter", "filter", name, "pattern", pattern, "error", err)
				continue
			}
			cf.excludePatterns = append(cf.excludePatterns, re)
		}

		compiled[name] = cf
	}

	return &Pipeline{filters: compiled}, nil
}

// ShouldInclude returns true if the item passes all named filters.
// The second return value names the rule that rejected the item.
func (p *Pipeline) ShouldInclude(item feed.Item, filterNames []string) (bool, string) {
	if len(filterNames) == 0 {
		return true, "" // No filters = include everything
	}

	for _, filterName := range filterNames {
		f, exists := p.filters[filterName]
		if !exists {
			slog.Warn("filter not found, skipping", "filter_name", filterName)
			continue
		}

		if include, reason := f.apply(item, filterName); !include {
			return false, reason
		}
	}

	return true, ""
}

func (f *compiledFilter) apply(item feed.Item, name string) (bool, string) {
	text := item.Title + " " + item.Content

	if f.config.MinLength > 0 && len(text) < f.config.MinLength {
		return false, name + ":min_length"
	}

	if f.config.MinWords > 0 && countWords(text) < f.config.MinWords {
		return false, name + ":min_words"
	}

	for i, pattern := range f.excludePatterns {
		if pattern.MatchString(text) {
			return false, name + ":exclude_pattern[" + f.config.ExcludePatterns[i] + "]"
		}
	}

	if f.config.RequireParagraphs && !hasMultipleParagraphs(text) {
		return false, name + ":require_paragraphs"
	}

	return true, ""
}

// hasMultipleParagraphs checks if text has multiple paragraphs
func hasMultipleParagraphs(text string) bool {
	nonEmptyLines := 0
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) != "" {
			nonEmptyLines++
		}
	}
	return nonEmptyLines >= 2
}

// countWords counts the number of words in text
func countWords(text string) int {
	words := 0
	inWord := false

	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			if !inWord {
				words++
				inWord = true
			}
		} else {
			inWord = false
		}
	}

	return words
}
