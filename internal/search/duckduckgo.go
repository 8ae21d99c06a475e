package search

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"

	"github.com/alexandria-ai/alexandria/internal/log"
)

const ddgEndpoint = "https://html.duckduckgo.com/html/"

// DuckDuckGo implements Searcher by scraping the HTML results page. It
// needs no API key, which makes it the natural fallback when Tavily is
// unconfigured or down.
type DuckDuckGo struct {
	maxResults int
	timeout    time.Duration
	logger     log.Logger
}

func NewDuckDuckGo(maxResults int, logger log.Logger) *DuckDuckGo {
	if maxResults <= 0 {
		maxResults = 2
	}
	return &DuckDuckGo{
		maxResults: maxResults,
		timeout:    15 * time.Second,
		logger:     logger,
	}
}

// Search implements Searcher.
func (d *DuckDuckGo) Search(ctx context.Context, query string) ([]Result, error) {
	c := colly.NewCollector(
		colly.UserAgent("Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36"),
		colly.StdlibContext(ctx),
	)
	c.SetRequestTimeout(d.timeout)

	var results []Result
	c.OnHTML("div.result", func(e *colly.HTMLElement) {
		if len(results) >= d.maxResults {
			return
		}
		if r, ok := parseResult(e.DOM); ok {
			results = append(results, r)
		}
	})

	target := ddgEndpoint + "?q=" + url.QueryEscape(query)
	if err := c.Visit(target); err != nil {
		return nil, fmt.Errorf("duckduckgo: %w", err)
	}
	c.Wait()

	if len(results) == 0 {
		return nil, ErrNoResults
	}
	d.logger.Debug("duckduckgo search", "query", query, "results", len(results))
	return results, nil
}

// parseResult extracts one search hit from a div.result selection.
func parseResult(sel *goquery.Selection) (Result, bool) {
	link := sel.Find("a.result__a")
	title := strings.TrimSpace(link.Text())
	href, _ := link.Attr("href")
	snippet := strings.TrimSpace(sel.Find("a.result__snippet").Text())
	if title == "" || snippet == "" {
		return Result{}, false
	}
	return Result{
		Title:   title,
		URL:     unwrapRedirect(href),
		Content: snippet,
	}, true
}

// unwrapRedirect decodes DuckDuckGo's /l/?uddg=<target> redirect links.
func unwrapRedirect(href string) string {
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if target := u.Query().Get("uddg"); target != "" {
		return target
	}
	if u.Scheme == "" {
		return "https:" + href
	}
	return href
}
