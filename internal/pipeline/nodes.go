package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/alexandria-ai/alexandria/internal/library"
	"github.com/alexandria-ai/alexandria/internal/llm"
	"github.com/alexandria-ai/alexandria/internal/vectorindex"
)

// route classifies the query. Any failure falls open to web search.
func (g *Graph) route(ctx context.Context, s *State) {
	out, err := g.models.Small.Complete(ctx, llm.Request{
		System:      routerInstruction,
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: s.Query}},
		Temperature: llm.Temp(0),
	})
	if err != nil {
		g.logger.Warn("router call failed, defaulting to web search", "error", err)
		s.Route = RouteWebSearch
		return
	}
	s.Route = parseRoute(out)
}

// greet answers a pure greeting with no retrieval.
func (g *Graph) greet(ctx context.Context, s *State) {
	out, err := g.models.Small.Complete(ctx, llm.Request{
		System:   greetInstruction,
		Messages: []llm.Message{{Role: llm.RoleUser, Content: s.Query}},
	})
	if err != nil {
		g.logger.Warn("greeting call failed, using canned reply", "error", err)
		s.Answer = "Hello! How can I help you with books today?"
		return
	}
	s.Answer = strings.TrimSpace(out)
}

// retrieve queries the chunk collection. Empty results and retrieval
// errors both arm the web-search fallback instead of failing the run.
func (g *Graph) retrieve(ctx context.Context, s *State) {
	embedding, err := g.embedder.EmbedQuery(ctx, s.Query)
	if err != nil {
		g.logger.Warn("query embedding failed, falling back to web search", "error", err)
		s.WebSearch = "yes"
		return
	}

	opts := []vectorindex.QueryOption{
		vectorindex.WithK(g.cfg.TopK),
		vectorindex.WithThreshold(g.cfg.ChunkThreshold),
	}
	if s.DocumentHash != "" {
		opts = append(opts, vectorindex.WithFilter(map[string]any{"document_hash": s.DocumentHash}))
	}

	chunks, err := g.index.Query(ctx, vectorindex.CollectionChunks, embedding, opts...)
	if err != nil {
		g.logger.Warn("retrieval failed, falling back to web search", "error", err)
		s.WebSearch = "yes"
		return
	}
	if len(chunks) == 0 {
		s.WebSearch = "yes"
		return
	}
	s.Documents = chunks
}

// grade asks the model whether the retrieved text is relevant. Anything
// short of a clear yes arms the fallback.
func (g *Graph) grade(ctx context.Context, s *State) {
	if len(s.Documents) == 0 {
		s.WebSearch = "yes"
		return
	}

	var docText strings.Builder
	for _, d := range s.Documents {
		docText.WriteString(d.Content)
		docText.WriteString("\n\n")
	}

	out, err := g.models.Big.Complete(ctx, llm.Request{
		System:      graderInstruction,
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: fmt.Sprintf(graderPrompt, docText.String(), s.Query)}},
		Temperature: llm.Temp(0),
	})
	if err != nil {
		g.logger.Warn("grading call failed, falling back to web search", "error", err)
		s.WebSearch = "yes"
		return
	}
	if !parseGrade(out) {
		s.WebSearch = "yes"
	}
}

// webSearch appends search snippets. A failed or empty search leaves the
// state untouched; generate decides what can be answered with what is
// left.
func (g *Graph) webSearch(ctx context.Context, s *State) {
	if g.searcher == nil {
		g.logger.Warn("web search requested but no searcher configured")
		return
	}
	results, err := g.searcher.Search(ctx, s.Query)
	if err != nil {
		g.logger.Warn("web search failed", "error", err)
		return
	}
	s.SearchResults = append(s.SearchResults, results...)
}

// generate produces the grounded answer. With no evidence at all it
// returns the explicit insufficient-context reply without calling the
// model.
func (g *Graph) generate(ctx context.Context, s *State) error {
	contextBlock := buildContext(s.Documents, s.SearchResults)
	if contextBlock == "" {
		s.Answer = insufficientContextAnswer
		return nil
	}

	out, err := g.models.Big.Complete(ctx, llm.Request{
		Messages: []llm.Message{{Role: llm.RoleUser, Content: fmt.Sprintf(ragPrompt, contextBlock, s.Query)}},
	})
	if err != nil {
		return fmt.Errorf("generate answer: %w", err)
	}
	s.Answer = strings.TrimSpace(out)
	return nil
}

// findBooks extracts structured filters from the query and collects
// matching books from the catalog, unioned with summary-embedding
// matches when the user described a plot.
func (g *Graph) findBooks(ctx context.Context, s *State) {
	if g.catalog == nil {
		g.logger.Warn("find_books requested but no catalog configured")
		return
	}

	fields := g.extractFields(ctx, s.Query)

	books, err := g.catalog.Find(ctx, library.Filter{
		Genres:   fields.Genres,
		Authors:  fields.Authors,
		Title:    fields.Title,
		YearFrom: fields.YearFrom,
		YearTo:   fields.YearTo,
	})
	if err != nil {
		g.logger.Warn("catalog lookup failed", "error", err)
	}

	if fields.Summary != "" {
		books = g.unionSummaryMatches(ctx, books, fields.Summary)
	}
	s.Books = books
}

// extractFields runs the structured-extraction call. When the output
// cannot be parsed, the whole query becomes a summary search so the
// request still gets a recall-oriented answer.
func (g *Graph) extractFields(ctx context.Context, query string) BookFields {
	genres, err := g.catalog.Genres(ctx)
	if err != nil {
		g.logger.Warn("genre vocabulary lookup failed", "error", err)
	}
	authors, err := g.catalog.Authors(ctx)
	if err != nil {
		g.logger.Warn("author vocabulary lookup failed", "error", err)
	}

	out, err := g.models.Small.Complete(ctx, llm.Request{
		Messages: []llm.Message{{Role: llm.RoleUser, Content: fmt.Sprintf(fieldsExtractionPrompt,
			strings.Join(genres, ", "), strings.Join(authors, ", "), query)}},
		Temperature: llm.Temp(0),
	})
	if err != nil {
		g.logger.Warn("field extraction call failed", "error", err)
		return BookFields{Summary: query}
	}

	fields, err := parseBookFields(out)
	if err != nil {
		g.logger.Warn("field extraction output rejected", "error", err)
		return BookFields{Summary: query}
	}
	if fields.Empty() {
		return BookFields{Summary: query}
	}
	return fields
}

// unionSummaryMatches embeds the plot description, queries the summary
// collection with its stricter threshold, and unions any new books into
// the result set. Union, not intersection: recommendation recall beats
// precision here.
func (g *Graph) unionSummaryMatches(ctx context.Context, books []*library.Book, summary string) []*library.Book {
	embedding, err := g.embedder.EmbedQuery(ctx, summary)
	if err != nil {
		g.logger.Warn("summary embedding failed", "error", err)
		return books
	}

	chunks, err := g.index.Query(ctx, vectorindex.CollectionSummaries, embedding,
		vectorindex.WithK(g.cfg.TopK),
		vectorindex.WithThreshold(g.cfg.SummaryThreshold))
	if err != nil {
		g.logger.Warn("summary retrieval failed", "error", err)
		return books
	}

	seen := make(map[string]bool, len(books))
	for _, b := range books {
		seen[b.ISBN] = true
	}
	var isbns []string
	for _, c := range chunks {
		isbn, _ := c.Metadata["book_isbn"].(string)
		if isbn == "" || seen[isbn] {
			continue
		}
		seen[isbn] = true
		isbns = append(isbns, isbn)
	}
	if len(isbns) == 0 {
		return books
	}

	matched, err := g.catalog.ByISBNs(ctx, isbns)
	if err != nil {
		g.logger.Warn("summary match lookup failed", "error", err)
		return books
	}
	return append(books, matched...)
}

// recommend turns the collected books, or the explicit none-found
// marker, into the final answer.
func (g *Graph) recommend(ctx context.Context, s *State) error {
	out, err := g.models.Big.Complete(ctx, llm.Request{
		Messages: []llm.Message{{Role: llm.RoleUser, Content: fmt.Sprintf(findBooksAnswerPrompt,
			formatBooks(s.Books), s.Query)}},
	})
	if err != nil {
		return fmt.Errorf("recommend books: %w", err)
	}
	s.Answer = strings.TrimSpace(out)
	return nil
}
