// Package search provides the web-search fallback used when local
// retrieval cannot ground an answer. Tavily is the primary backend; a
// DuckDuckGo HTML scraper serves as the keyless fallback.
package search

import (
	"context"
	"errors"
)

// ErrNoResults indicates the backend answered but found nothing usable.
var ErrNoResults = errors.New("no search results")

// Result is one web search hit.
type Result struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Content string `json:"content"`
}

// Searcher runs a web search and returns ranked results.
type Searcher interface {
	Search(ctx context.Context, query string) ([]Result, error)
}

// Fallback tries each searcher in order until one returns results.
type Fallback struct {
	backends []Searcher
}

// NewFallback chains searchers; nil entries are skipped.
func NewFallback(backends ...Searcher) *Fallback {
	f := &Fallback{}
	for _, b := range backends {
		if b != nil {
			f.backends = append(f.backends, b)
		}
	}
	return f
}

// Search implements Searcher.
func (f *Fallback) Search(ctx context.Context, query string) ([]Result, error) {
	var lastErr error = ErrNoResults
	for _, b := range f.backends {
		results, err := b.Search(ctx, query)
		if err == nil && len(results) > 0 {
			return results, nil
		}
		if err != nil {
			lastErr = err
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}
	return nil, lastErr
}
