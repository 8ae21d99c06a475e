// Package chat is the thin use-case layer over the answer graph: it owns
// session lifecycles, folds prior turns into the query, and persists both
// sides of each exchange.
package chat

import (
	"context"
	"fmt"
	"strings"

	"github.com/alexandria-ai/alexandria/internal/llm"
	"github.com/alexandria-ai/alexandria/internal/log"
	"github.com/alexandria-ai/alexandria/internal/pipeline"
	"github.com/alexandria-ai/alexandria/internal/session"
)

const summarizePrompt = `Please provide a short concise summary of the conversation below. Focus on key topics, questions, and any details which would help continue the conversation.

%s

Summary:`

const rewritePrompt = `You are a text rewriting engine.
You will ONLY output a single rewritten user question, nothing else.

Rewrite the following question so that it stands alone given the conversation summary.
Keep it concise and natural.
Return the original text unchanged if it is already self-contained, if it is unrelated to the summary, or if you are not confident in the rewrite.
Return greetings and thanks exactly as they are.

Conversation summary:
%s

Original question:
%s

Rewritten question:`

// sessionStore is the slice of the session layer the service needs.
type sessionStore interface {
	GetOrCreate(ctx context.Context, sessionID, userID string) (*session.Session, error)
	History(ctx context.Context, sessionID string, limit int) ([]*session.Message, error)
	AppendMessage(ctx context.Context, sessionID string, role session.Role, content string) (*session.Message, error)
}

// graph runs a query through the answer pipeline.
type graph interface {
	Run(ctx context.Context, s *pipeline.State) (*pipeline.State, error)
}

// Reply is the outcome of one exchange.
type Reply struct {
	SessionID string
	Answer    string
	// Route and WebSearch expose what the pipeline decided, for clients
	// that surface provenance.
	Route     pipeline.Route
	WebSearch bool
}

// Service orchestrates a conversation turn end to end.
type Service struct {
	sessions      sessionStore
	graph         graph
	small         llm.Client
	historyWindow int
	logger        log.Logger
}

// New builds the service. historyWindow bounds how many prior messages
// feed the summary; <= 0 falls back to 10.
func New(sessions sessionStore, g graph, small llm.Client, historyWindow int, logger log.Logger) *Service {
	if historyWindow <= 0 {
		historyWindow = 10
	}
	return &Service{
		sessions:      sessions,
		graph:         g,
		small:         small,
		historyWindow: historyWindow,
		logger:        logger,
	}
}

// Respond answers query within a session. documentHash optionally scopes
// retrieval to one ingested document; pass "" for the whole index.
func (s *Service) Respond(ctx context.Context, sessionID, userID, query, documentHash string) (*Reply, error) {
	if strings.TrimSpace(query) == "" {
		return nil, session.ErrEmptyContent
	}

	sess, err := s.sessions.GetOrCreate(ctx, sessionID, userID)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}

	history, err := s.sessions.History(ctx, sess.SessionID, s.historyWindow)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}

	effective := query
	if len(history) > 0 {
		summary := s.summarize(ctx, history)
		effective = s.rewrite(ctx, query, summary)
	}

	// The transcript keeps what the user actually said, not the rewrite.
	if _, err := s.sessions.AppendMessage(ctx, sess.SessionID, session.RoleUser, query); err != nil {
		return nil, fmt.Errorf("persist user message: %w", err)
	}

	state := pipeline.NewState(effective)
	state.DocumentHash = documentHash
	state, err = s.graph.Run(ctx, state)
	if err != nil {
		return nil, fmt.Errorf("run pipeline: %w", err)
	}

	if _, err := s.sessions.AppendMessage(ctx, sess.SessionID, session.RoleAssistant, state.Answer); err != nil {
		return nil, fmt.Errorf("persist answer: %w", err)
	}

	s.logger.Info("chat turn completed",
		"session_id", sess.SessionID,
		"route", string(state.Route),
		"web_search", state.WebSearch,
	)
	return &Reply{
		SessionID: sess.SessionID,
		Answer:    state.Answer,
		Route:     state.Route,
		WebSearch: state.WebSearch == "yes",
	}, nil
}

// summarize folds prior turns into a short standalone summary. A failed
// call degrades to a generic placeholder rather than blocking the turn.
func (s *Service) summarize(ctx context.Context, history []*session.Message) string {
	var b strings.Builder
	for _, m := range history {
		fmt.Fprintf(&b, "%s: %s\n", m.Role, m.Content)
	}

	out, err := s.small.Complete(ctx, llm.Request{
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: fmt.Sprintf(summarizePrompt, b.String())}},
		Temperature: llm.Temp(0),
	})
	if err != nil || strings.TrimSpace(out) == "" {
		s.logger.Warn("history summarization failed", "error", err)
		return fmt.Sprintf("Conversation of %d messages about various topics.", len(history))
	}
	return strings.TrimSpace(out)
}

// rewrite makes the query standalone given the summary. Any failure
// keeps the original query.
func (s *Service) rewrite(ctx context.Context, query, summary string) string {
	if summary == "" {
		return query
	}
	out, err := s.small.Complete(ctx, llm.Request{
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: fmt.Sprintf(rewritePrompt, summary, query)}},
		Temperature: llm.Temp(0),
	})
	if err != nil || strings.TrimSpace(out) == "" {
		s.logger.Warn("query rewrite failed, keeping original", "error", err)
		return query
	}
	return strings.TrimSpace(out)
}
