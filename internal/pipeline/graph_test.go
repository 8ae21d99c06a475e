package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/alexandria-ai/alexandria/internal/library"
	"github.com/alexandria-ai/alexandria/internal/llm"
	"github.com/alexandria-ai/alexandria/internal/log"
	"github.com/alexandria-ai/alexandria/internal/search"
	"github.com/alexandria-ai/alexandria/internal/vectorindex"
)

// stubLLM replies from a prompt-substring lookup table.
type stubLLM struct {
	replies map[string]string // prompt substring -> reply
	err     error
	calls   []string
}

func (s *stubLLM) Complete(_ context.Context, req llm.Request) (string, error) {
	prompt := req.System
	for _, m := range req.Messages {
		prompt += "\n" + m.Content
	}
	s.calls = append(s.calls, prompt)
	if s.err != nil {
		return "", s.err
	}
	for sub, reply := range s.replies {
		if strings.Contains(prompt, sub) {
			return reply, nil
		}
	}
	return "", fmt.Errorf("stub has no reply for prompt %q", prompt)
}

type stubEmbedder struct{ err error }

func (s *stubEmbedder) EmbedQuery(context.Context, string) ([]float32, error) {
	if s.err != nil {
		return nil, s.err
	}
	return []float32{0.1, 0.2}, nil
}

func (s *stubEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = []float32{0.1, 0.2}
	}
	return out, nil
}

type stubIndex struct {
	chunks    map[string][]vectorindex.Chunk
	err       error
	lastOpts  map[string]bool
	queriedAt []string
}

func (s *stubIndex) Query(_ context.Context, collection string, _ []float32, opts ...vectorindex.QueryOption) ([]vectorindex.Chunk, error) {
	s.queriedAt = append(s.queriedAt, collection)
	if s.err != nil {
		return nil, s.err
	}
	return s.chunks[collection], nil
}

type stubCatalog struct {
	found    []*library.Book
	byISBN   map[string]*library.Book
	genres   []string
	authors  []string
	lastFind library.Filter
}

func (s *stubCatalog) Find(_ context.Context, f library.Filter) ([]*library.Book, error) {
	s.lastFind = f
	return s.found, nil
}

func (s *stubCatalog) ByISBNs(_ context.Context, isbns []string) ([]*library.Book, error) {
	var out []*library.Book
	for _, isbn := range isbns {
		if b, ok := s.byISBN[isbn]; ok {
			out = append(out, b)
		}
	}
	return out, nil
}

func (s *stubCatalog) Genres(context.Context) ([]string, error)  { return s.genres, nil }
func (s *stubCatalog) Authors(context.Context) ([]string, error) { return s.authors, nil }

type stubSearcher struct {
	results []search.Result
	err     error
	calls   int
}

func (s *stubSearcher) Search(context.Context, string) ([]search.Result, error) {
	s.calls++
	return s.results, s.err
}

func visited(s *State) string {
	names := make([]string, len(s.Visited))
	for i, n := range s.Visited {
		names[i] = n.String()
	}
	return strings.Join(names, ",")
}

func TestNextTransitions(t *testing.T) {
	tests := []struct {
		name  string
		state State
		node  Node
		want  Node
	}{
		{"route to greet", State{Route: RouteGreet}, NodeRoute, NodeGreet},
		{"route to find_books", State{Route: RouteFindBooks}, NodeRoute, NodeFindBooks},
		{"route to retrieve", State{Route: RouteVectorstore}, NodeRoute, NodeRetrieve},
		{"route to search", State{Route: RouteWebSearch}, NodeRoute, NodeWebSearch},
		{"unknown route fails open", State{Route: Route("")}, NodeRoute, NodeWebSearch},
		{"greet ends", State{}, NodeGreet, NodeEnd},
		{"find_books recommends", State{}, NodeFindBooks, NodeRecommend},
		{"recommend ends", State{}, NodeRecommend, NodeEnd},
		{"retrieve grades", State{}, NodeRetrieve, NodeGrade},
		{"grade pass generates", State{WebSearch: "no"}, NodeGrade, NodeGenerate},
		{"grade fail searches", State{WebSearch: "yes"}, NodeGrade, NodeWebSearch},
		{"search generates", State{}, NodeWebSearch, NodeGenerate},
		{"generate ends", State{}, NodeGenerate, NodeEnd},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := next(&tt.state, tt.node); got != tt.want {
				t.Errorf("next(%s) = %s, want %s", tt.node, got, tt.want)
			}
		})
	}
}

func TestRunVectorstorePath(t *testing.T) {
	small := &stubLLM{replies: map[string]string{
		"routing a user question": `{"datasource": "vectorstore"}`,
	}}
	big := &stubLLM{replies: map[string]string{
		"grader assessing relevance": "yes",
		"question-answering tasks":   "Book A is about a voyage.",
	}}
	index := &stubIndex{chunks: map[string][]vectorindex.Chunk{
		vectorindex.CollectionChunks: {
			{ID: "c0", Content: "Book A, paragraph one.", Similarity: 0.9},
			{ID: "c1", Content: "Book A, paragraph two.", Similarity: 0.8},
			{ID: "c2", Content: "Book A, paragraph three.", Similarity: 0.7},
		},
	}}
	searcher := &stubSearcher{}
	g := New(llm.Tiers{Small: small, Big: big}, &stubEmbedder{}, index, nil, searcher, Config{}, log.NewNop())

	s, err := g.Run(t.Context(), NewState("What is Book A about?"))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if s.Answer != "Book A is about a voyage." {
		t.Errorf("answer = %q", s.Answer)
	}
	if s.WebSearch != "no" {
		t.Errorf("web_search = %q, want no", s.WebSearch)
	}
	if len(s.SearchResults) != 0 || searcher.calls != 0 {
		t.Error("search ran on a clean vectorstore path")
	}
	if got := visited(s); got != "route,retrieve,grade_documents,generate" {
		t.Errorf("visited = %s", got)
	}
}

func TestRunGreetingPath(t *testing.T) {
	small := &stubLLM{replies: map[string]string{
		"routing a user question": `{"datasource": "only_greet"}`,
		"friendly library":        "Hello! How can I help you today?",
	}}
	index := &stubIndex{}
	g := New(llm.Tiers{Small: small, Big: &stubLLM{}}, &stubEmbedder{}, index, nil, nil, Config{}, log.NewNop())

	s, err := g.Run(t.Context(), NewState("hi"))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if s.Answer != "Hello! How can I help you today?" {
		t.Errorf("answer = %q", s.Answer)
	}
	if len(s.Documents) != 0 || len(s.SearchResults) != 0 || len(index.queriedAt) != 0 {
		t.Error("greeting path touched retrieval or search")
	}
}

func TestRunEmptyRetrievalFallsBackToSearch(t *testing.T) {
	small := &stubLLM{replies: map[string]string{
		"routing a user question": `{"datasource": "vectorstore"}`,
	}}
	big := &stubLLM{replies: map[string]string{
		"question-answering tasks": "Answer from the web.",
	}}
	searcher := &stubSearcher{results: []search.Result{
		{Title: "Snippet", URL: "https://x", Content: "web evidence"},
	}}
	g := New(llm.Tiers{Small: small, Big: big}, &stubEmbedder{}, &stubIndex{}, nil, searcher, Config{}, log.NewNop())

	s, err := g.Run(t.Context(), NewState("unrelated question"))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if s.WebSearch != "yes" {
		t.Errorf("web_search = %q, want yes", s.WebSearch)
	}
	if searcher.calls != 1 || len(s.SearchResults) != 1 {
		t.Error("search fallback did not run")
	}
	if s.Answer != "Answer from the web." {
		t.Errorf("answer = %q", s.Answer)
	}
	if got := visited(s); got != "route,retrieve,grade_documents,web_search,generate" {
		t.Errorf("visited = %s", got)
	}
}

func TestRunGraderRejectsDocuments(t *testing.T) {
	small := &stubLLM{replies: map[string]string{
		"routing a user question": `{"datasource": "vectorstore"}`,
	}}
	big := &stubLLM{replies: map[string]string{
		"grader assessing relevance": "no",
		"question-answering tasks":   "Answer using search only.",
	}}
	index := &stubIndex{chunks: map[string][]vectorindex.Chunk{
		vectorindex.CollectionChunks: {{ID: "c0", Content: "off-topic text"}},
	}}
	searcher := &stubSearcher{results: []search.Result{{Title: "t", Content: "snippet"}}}
	g := New(llm.Tiers{Small: small, Big: big}, &stubEmbedder{}, index, nil, searcher, Config{}, log.NewNop())

	s, err := g.Run(t.Context(), NewState("question"))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if s.WebSearch != "yes" || searcher.calls != 1 {
		t.Error("grader rejection did not trigger the search fallback")
	}
}

func TestRunRetrievalErrorDegrades(t *testing.T) {
	small := &stubLLM{replies: map[string]string{
		"routing a user question": `{"datasource": "vectorstore"}`,
	}}
	big := &stubLLM{replies: map[string]string{
		"question-answering tasks": "Recovered answer.",
	}}
	index := &stubIndex{err: errors.New("connection refused")}
	searcher := &stubSearcher{results: []search.Result{{Title: "t", Content: "snippet"}}}
	g := New(llm.Tiers{Small: small, Big: big}, &stubEmbedder{}, index, nil, searcher, Config{}, log.NewNop())

	s, err := g.Run(t.Context(), NewState("question"))
	if err != nil {
		t.Fatalf("retrieval error should degrade, not fail: %v", err)
	}
	if s.WebSearch != "yes" || s.Answer != "Recovered answer." {
		t.Errorf("state = web_search %q answer %q", s.WebSearch, s.Answer)
	}
}

func TestRunRouterGarbageFailsOpen(t *testing.T) {
	small := &stubLLM{replies: map[string]string{
		"routing a user question": "",
	}}
	big := &stubLLM{replies: map[string]string{
		"question-answering tasks": "Web answer.",
	}}
	searcher := &stubSearcher{results: []search.Result{{Title: "t", Content: "snippet"}}}
	g := New(llm.Tiers{Small: small, Big: big}, &stubEmbedder{}, &stubIndex{}, nil, searcher, Config{}, log.NewNop())

	s, err := g.Run(t.Context(), NewState("anything"))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if s.Route != RouteWebSearch {
		t.Errorf("route = %q, want web_search", s.Route)
	}
	if got := visited(s); got != "route,web_search,generate" {
		t.Errorf("visited = %s", got)
	}
}

func TestRunAllSourcesEmptyReturnsExplicitAnswer(t *testing.T) {
	small := &stubLLM{replies: map[string]string{
		"routing a user question": `{"datasource": "web_search"}`,
	}}
	big := &stubLLM{err: errors.New("generate should not be called")}
	searcher := &stubSearcher{err: search.ErrNoResults}
	g := New(llm.Tiers{Small: small, Big: big}, &stubEmbedder{}, &stubIndex{}, nil, searcher, Config{}, log.NewNop())

	s, err := g.Run(t.Context(), NewState("question"))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if s.Answer != insufficientContextAnswer {
		t.Errorf("answer = %q, want the explicit insufficient-context reply", s.Answer)
	}
	if len(big.calls) != 0 {
		t.Error("generation model was called with no evidence")
	}
}

func TestRunFindBooksPath(t *testing.T) {
	small := &stubLLM{replies: map[string]string{
		"routing a user question":  `{"datasource": "find_books"}`,
		"extracting structured":    `{"genres": ["gothic"], "summary": "a vampire in london"}`,
	}}
	big := &stubLLM{replies: map[string]string{
		"librarian recommending": `You might enjoy "Dracula" by Bram Stoker.`,
	}}
	catalog := &stubCatalog{
		found:   []*library.Book{{ISBN: "1", Title: "Dracula", Author: "Bram Stoker", Genre: "gothic"}},
		byISBN:  map[string]*library.Book{"2": {ISBN: "2", Title: "Carmilla", Author: "Le Fanu"}},
		genres:  []string{"gothic", "fantasy"},
		authors: []string{"Bram Stoker"},
	}
	index := &stubIndex{chunks: map[string][]vectorindex.Chunk{
		vectorindex.CollectionSummaries: {
			{ID: "s1", Metadata: map[string]any{"book_isbn": "2"}, Similarity: 0.8},
			{ID: "s2", Metadata: map[string]any{"book_isbn": "1"}, Similarity: 0.7}, // already found
		},
	}}
	g := New(llm.Tiers{Small: small, Big: big}, &stubEmbedder{}, index, catalog, nil, Config{}, log.NewNop())

	s, err := g.Run(t.Context(), NewState("recommend a gothic novel about a vampire in london"))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(s.Books) != 2 {
		t.Fatalf("got %d books, want catalog match plus one summary match", len(s.Books))
	}
	if s.Books[0].ISBN != "1" || s.Books[1].ISBN != "2" {
		t.Errorf("books = %v, %v", s.Books[0].ISBN, s.Books[1].ISBN)
	}
	if catalog.lastFind.Genres[0] != "gothic" {
		t.Errorf("catalog filter = %+v", catalog.lastFind)
	}
	if s.Answer == "" {
		t.Error("recommendation answer is empty")
	}
	if got := visited(s); got != "route,find_books,recommend" {
		t.Errorf("visited = %s", got)
	}
}

func TestRunDocumentScopedRetrieval(t *testing.T) {
	small := &stubLLM{replies: map[string]string{
		"routing a user question": `{"datasource": "vectorstore"}`,
	}}
	big := &stubLLM{replies: map[string]string{
		"grader assessing relevance": "yes",
		"question-answering tasks":   "Scoped answer.",
	}}
	index := &stubIndex{chunks: map[string][]vectorindex.Chunk{
		vectorindex.CollectionChunks: {{ID: "c0", Content: "scoped text"}},
	}}
	g := New(llm.Tiers{Small: small, Big: big}, &stubEmbedder{}, index, nil, nil, Config{}, log.NewNop())

	state := NewState("what does this file say?")
	state.DocumentHash = "abc123"
	s, err := g.Run(t.Context(), state)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if s.Answer != "Scoped answer." {
		t.Errorf("answer = %q", s.Answer)
	}
}

func TestRunContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	g := New(llm.Tiers{Small: &stubLLM{}, Big: &stubLLM{}}, &stubEmbedder{}, &stubIndex{}, nil, nil, Config{}, log.NewNop())
	if _, err := g.Run(ctx, NewState("q")); !errors.Is(err, context.Canceled) {
		t.Fatalf("Run on canceled context: err = %v", err)
	}
}
