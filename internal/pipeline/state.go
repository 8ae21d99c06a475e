// Package pipeline implements the answer graph: route, retrieve, grade,
// fall back to web search when local evidence is weak, and generate a
// grounded answer. The graph is an explicit node enum with a pure
// transition function, so the control flow is testable without any model
// behind it.
package pipeline

import (
	"github.com/alexandria-ai/alexandria/internal/library"
	"github.com/alexandria-ai/alexandria/internal/search"
	"github.com/alexandria-ai/alexandria/internal/vectorindex"
)

// Route is the router's classification of a query.
type Route string

const (
	RouteGreet       Route = "only_greet"
	RouteFindBooks   Route = "find_books"
	RouteVectorstore Route = "vectorstore"
	RouteWebSearch   Route = "web_search"
)

// State carries a single query through the graph. Nodes read the fields
// earlier nodes wrote; nothing outside Run mutates it.
type State struct {
	// Query is the (possibly rewritten) user question.
	Query string
	// DocumentHash, when set, scopes retrieval to one document.
	DocumentHash string

	// Route is the router's decision.
	Route Route
	// WebSearch is "yes" when the graph has decided local evidence is
	// insufficient and the search fallback must run.
	WebSearch string

	// Documents holds retrieved chunks; SearchResults holds web snippets.
	Documents     []vectorindex.Chunk
	SearchResults []search.Result
	// Books holds catalog matches on the find_books path.
	Books []*library.Book

	// Answer is the final response text.
	Answer string

	// Visited records the nodes the run passed through, in order.
	Visited []Node
}

// NewState builds the initial state for a query.
func NewState(query string) *State {
	return &State{Query: query, WebSearch: "no"}
}
