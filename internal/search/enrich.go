package search

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	readability "github.com/go-shiori/go-readability"

	"github.com/alexandria-ai/alexandria/internal/log"
)

// Enricher upgrades thin search snippets by fetching the page and
// extracting its readable text. Failures are soft; the original snippet
// is kept when extraction does not work out.
type Enricher struct {
	inner      Searcher
	timeout    time.Duration
	maxChars   int
	minSnippet int
	logger     log.Logger
}

// NewEnricher wraps a searcher. Snippets shorter than minSnippet runes are
// candidates for enrichment; extracted text is capped at maxChars runes.
func NewEnricher(inner Searcher, logger log.Logger) *Enricher {
	return &Enricher{
		inner:      inner,
		timeout:    10 * time.Second,
		maxChars:   2000,
		minSnippet: 200,
		logger:     logger,
	}
}

// Search implements Searcher.
func (e *Enricher) Search(ctx context.Context, query string) ([]Result, error) {
	results, err := e.inner.Search(ctx, query)
	if err != nil {
		return nil, err
	}

	for i := range results {
		if ctx.Err() != nil {
			break
		}
		r := &results[i]
		if r.URL == "" || utf8.RuneCountInString(r.Content) >= e.minSnippet {
			continue
		}
		article, err := readability.FromURL(r.URL, e.timeout)
		if err != nil {
			e.logger.Debug("readability extraction failed", "url", r.URL, "error", err)
			continue
		}
		text := strings.TrimSpace(article.TextContent)
		if text == "" {
			continue
		}
		r.Content = truncateRunes(text, e.maxChars)
	}
	return results, nil
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n]) + "..."
}
