package pipeline

import (
	"context"
	"fmt"

	"github.com/alexandria-ai/alexandria/internal/embed"
	"github.com/alexandria-ai/alexandria/internal/library"
	"github.com/alexandria-ai/alexandria/internal/llm"
	"github.com/alexandria-ai/alexandria/internal/log"
	"github.com/alexandria-ai/alexandria/internal/search"
	"github.com/alexandria-ai/alexandria/internal/vectorindex"
)

// Node identifies one step of the graph.
type Node int

const (
	NodeRoute Node = iota
	NodeGreet
	NodeFindBooks
	NodeRecommend
	NodeRetrieve
	NodeGrade
	NodeWebSearch
	NodeGenerate
	NodeEnd
)

func (n Node) String() string {
	switch n {
	case NodeRoute:
		return "route"
	case NodeGreet:
		return "greet"
	case NodeFindBooks:
		return "find_books"
	case NodeRecommend:
		return "recommend"
	case NodeRetrieve:
		return "retrieve"
	case NodeGrade:
		return "grade_documents"
	case NodeWebSearch:
		return "web_search"
	case NodeGenerate:
		return "generate"
	case NodeEnd:
		return "end"
	}
	return fmt.Sprintf("node(%d)", int(n))
}

// next is the pure transition function: given the state after executing
// node, it returns the node to run next. It performs no I/O.
func next(s *State, node Node) Node {
	switch node {
	case NodeRoute:
		switch s.Route {
		case RouteGreet:
			return NodeGreet
		case RouteFindBooks:
			return NodeFindBooks
		case RouteVectorstore:
			return NodeRetrieve
		default:
			return NodeWebSearch
		}
	case NodeGreet:
		return NodeEnd
	case NodeFindBooks:
		return NodeRecommend
	case NodeRecommend:
		return NodeEnd
	case NodeRetrieve:
		return NodeGrade
	case NodeGrade:
		if s.WebSearch == "yes" {
			return NodeWebSearch
		}
		return NodeGenerate
	case NodeWebSearch:
		return NodeGenerate
	case NodeGenerate:
		return NodeEnd
	}
	return NodeEnd
}

// chunkQuerier is the vector index surface the graph needs.
type chunkQuerier interface {
	Query(ctx context.Context, collection string, embedding []float32, opts ...vectorindex.QueryOption) ([]vectorindex.Chunk, error)
}

// bookCatalog is the structured book index surface the graph needs.
type bookCatalog interface {
	Find(ctx context.Context, f library.Filter) ([]*library.Book, error)
	ByISBNs(ctx context.Context, isbns []string) ([]*library.Book, error)
	Genres(ctx context.Context) ([]string, error)
	Authors(ctx context.Context) ([]string, error)
}

// Config carries the retrieval tuning knobs.
type Config struct {
	// TopK is the number of chunks fetched per retrieval.
	TopK int
	// ChunkThreshold is the minimum similarity for full-text chunks.
	ChunkThreshold float64
	// SummaryThreshold is the stricter minimum for summary matches.
	SummaryThreshold float64
}

// Graph wires the nodes to their collaborators and runs queries through
// the transition function.
type Graph struct {
	models   llm.Tiers
	embedder embed.Embedder
	index    chunkQuerier
	catalog  bookCatalog
	searcher search.Searcher
	cfg      Config
	logger   log.Logger
}

// New builds a graph. catalog and searcher may be nil when the deployment
// has no book catalog or no search backend; the corresponding paths then
// degrade (find_books recommends nothing, web search adds no snippets).
func New(models llm.Tiers, embedder embed.Embedder, index chunkQuerier,
	catalog bookCatalog, searcher search.Searcher, cfg Config, logger log.Logger) *Graph {
	if cfg.TopK <= 0 {
		cfg.TopK = 4
	}
	if cfg.ChunkThreshold <= 0 {
		cfg.ChunkThreshold = 0.30
	}
	if cfg.SummaryThreshold <= 0 {
		cfg.SummaryThreshold = 0.50
	}
	return &Graph{
		models:   models,
		embedder: embedder,
		index:    index,
		catalog:  catalog,
		searcher: searcher,
		cfg:      cfg,
		logger:   logger,
	}
}

// Run executes the graph for a query, starting at the router, and
// returns the final state. Node failures that have a safe degraded path
// (retrieval, grading, search) never abort the run; only the final
// generation call can return an error.
func (g *Graph) Run(ctx context.Context, s *State) (*State, error) {
	for node := NodeRoute; node != NodeEnd; node = next(s, node) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		s.Visited = append(s.Visited, node)

		var err error
		switch node {
		case NodeRoute:
			g.route(ctx, s)
		case NodeGreet:
			g.greet(ctx, s)
		case NodeFindBooks:
			g.findBooks(ctx, s)
		case NodeRecommend:
			err = g.recommend(ctx, s)
		case NodeRetrieve:
			g.retrieve(ctx, s)
		case NodeGrade:
			g.grade(ctx, s)
		case NodeWebSearch:
			g.webSearch(ctx, s)
		case NodeGenerate:
			err = g.generate(ctx, s)
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", node, err)
		}
		g.logger.Debug("graph node done",
			"node", node.String(), "route", string(s.Route), "web_search", s.WebSearch)
	}
	return s, nil
}
