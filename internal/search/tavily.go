package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/alexandria-ai/alexandria/internal/log"
)

const tavilyEndpoint = "https://api.tavily.com/search"

// Tavily implements Searcher against the Tavily REST API.
type Tavily struct {
	apiKey     string
	endpoint   string
	maxResults int
	httpClient *http.Client
	logger     log.Logger
}

// NewTavily builds a client. maxResults <= 0 defaults to 2, the snippet
// count the answer prompt is tuned for.
func NewTavily(apiKey string, maxResults int, logger log.Logger) *Tavily {
	if maxResults <= 0 {
		maxResults = 2
	}
	return &Tavily{
		apiKey:     apiKey,
		endpoint:   tavilyEndpoint,
		maxResults: maxResults,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		logger:     logger,
	}
}

type tavilyRequest struct {
	APIKey     string `json:"api_key"`
	Query      string `json:"query"`
	MaxResults int    `json:"max_results"`
}

type tavilyResponse struct {
	Results []struct {
		Title   string `json:"title"`
		URL     string `json:"url"`
		Content string `json:"content"`
	} `json:"results"`
}

// Search implements Searcher.
func (t *Tavily) Search(ctx context.Context, query string) ([]Result, error) {
	if t.apiKey == "" {
		return nil, fmt.Errorf("tavily: missing api key")
	}
	return t.searchAt(ctx, t.endpoint, query)
}

func (t *Tavily) searchAt(ctx context.Context, endpoint, query string) ([]Result, error) {
	body, err := json.Marshal(tavilyRequest{
		APIKey:     t.apiKey,
		Query:      query,
		MaxResults: t.maxResults,
	})
	if err != nil {
		return nil, fmt.Errorf("tavily: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("tavily: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tavily: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("tavily: status %d: %s", resp.StatusCode, snippet)
	}

	var parsed tavilyResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("tavily: decode response: %w", err)
	}
	if len(parsed.Results) == 0 {
		return nil, ErrNoResults
	}

	results := make([]Result, 0, len(parsed.Results))
	for _, r := range parsed.Results {
		if r.Content == "" {
			continue
		}
		results = append(results, Result{Title: r.Title, URL: r.URL, Content: r.Content})
	}
	t.logger.Debug("tavily search", "query", query, "results", len(results))
	if len(results) == 0 {
		return nil, ErrNoResults
	}
	return results, nil
}
