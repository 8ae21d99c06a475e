package chat

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/alexandria-ai/alexandria/internal/llm"
	"github.com/alexandria-ai/alexandria/internal/log"
	"github.com/alexandria-ai/alexandria/internal/pipeline"
	"github.com/alexandria-ai/alexandria/internal/session"
)

type fakeSessions struct {
	history   []*session.Message
	appended  []*session.Message
	appendErr error
}

func (f *fakeSessions) GetOrCreate(_ context.Context, sessionID, userID string) (*session.Session, error) {
	return &session.Session{SessionID: sessionID, UserID: userID}, nil
}

func (f *fakeSessions) History(_ context.Context, _ string, limit int) ([]*session.Message, error) {
	if limit > 0 && len(f.history) > limit {
		return f.history[len(f.history)-limit:], nil
	}
	return f.history, nil
}

func (f *fakeSessions) AppendMessage(_ context.Context, sessionID string, role session.Role, content string) (*session.Message, error) {
	if f.appendErr != nil {
		return nil, f.appendErr
	}
	m := &session.Message{
		SessionID:      sessionID,
		Role:           role,
		Content:        content,
		SequenceNumber: len(f.appended) + 1,
	}
	f.appended = append(f.appended, m)
	return m, nil
}

type fakeGraph struct {
	answer   string
	err      error
	gotQuery string
	gotHash  string
}

func (f *fakeGraph) Run(_ context.Context, s *pipeline.State) (*pipeline.State, error) {
	f.gotQuery = s.Query
	f.gotHash = s.DocumentHash
	if f.err != nil {
		return nil, f.err
	}
	s.Answer = f.answer
	s.Route = pipeline.RouteVectorstore
	return s, nil
}

type fakeLLM struct {
	reply string
	err   error
	calls int
}

func (f *fakeLLM) Complete(context.Context, llm.Request) (string, error) {
	f.calls++
	return f.reply, f.err
}

func TestRespondFreshSessionSkipsRewrite(t *testing.T) {
	sessions := &fakeSessions{}
	g := &fakeGraph{answer: "the answer"}
	model := &fakeLLM{reply: "should not be used"}
	svc := New(sessions, g, model, 10, log.NewNop())

	reply, err := svc.Respond(t.Context(), "s1", "u1", "what is dracula about?", "")
	if err != nil {
		t.Fatalf("Respond: %v", err)
	}
	if reply.Answer != "the answer" {
		t.Errorf("answer = %q", reply.Answer)
	}
	if model.calls != 0 {
		t.Error("summarize/rewrite ran for an empty history")
	}
	if g.gotQuery != "what is dracula about?" {
		t.Errorf("graph query = %q", g.gotQuery)
	}
}

func TestRespondPersistsBothTurns(t *testing.T) {
	sessions := &fakeSessions{}
	svc := New(sessions, &fakeGraph{answer: "reply text"}, &fakeLLM{}, 10, log.NewNop())

	if _, err := svc.Respond(t.Context(), "s1", "u1", "hello there", ""); err != nil {
		t.Fatalf("Respond: %v", err)
	}
	if len(sessions.appended) != 2 {
		t.Fatalf("appended %d messages, want 2", len(sessions.appended))
	}
	if sessions.appended[0].Role != session.RoleUser || sessions.appended[0].Content != "hello there" {
		t.Errorf("first message = %+v", sessions.appended[0])
	}
	if sessions.appended[1].Role != session.RoleAssistant || sessions.appended[1].Content != "reply text" {
		t.Errorf("second message = %+v", sessions.appended[1])
	}
}

func TestRespondRewritesWithHistory(t *testing.T) {
	sessions := &fakeSessions{history: []*session.Message{
		{Role: session.RoleUser, Content: "tell me about dracula"},
		{Role: session.RoleAssistant, Content: "Dracula is a gothic novel."},
	}}
	g := &fakeGraph{answer: "he is the antagonist"}
	model := &fakeLLM{reply: "who is the antagonist of Dracula?"}
	svc := New(sessions, g, model, 10, log.NewNop())

	if _, err := svc.Respond(t.Context(), "s1", "u1", "who is the antagonist?", ""); err != nil {
		t.Fatalf("Respond: %v", err)
	}
	// Two model calls: summarize, then rewrite.
	if model.calls != 2 {
		t.Errorf("model called %d times, want 2", model.calls)
	}
	if g.gotQuery != "who is the antagonist of Dracula?" {
		t.Errorf("graph ran with %q, want the rewritten query", g.gotQuery)
	}
	// The transcript keeps the raw query.
	if sessions.appended[0].Content != "who is the antagonist?" {
		t.Errorf("persisted user message = %q", sessions.appended[0].Content)
	}
}

func TestRespondRewriteFailureKeepsOriginal(t *testing.T) {
	sessions := &fakeSessions{history: []*session.Message{
		{Role: session.RoleUser, Content: "earlier turn"},
	}}
	g := &fakeGraph{answer: "ok"}
	model := &fakeLLM{err: errors.New("model down")}
	svc := New(sessions, g, model, 10, log.NewNop())

	if _, err := svc.Respond(t.Context(), "s1", "u1", "follow-up question", ""); err != nil {
		t.Fatalf("Respond: %v", err)
	}
	if g.gotQuery != "follow-up question" {
		t.Errorf("graph query = %q, want the original", g.gotQuery)
	}
}

func TestRespondEmptyQuery(t *testing.T) {
	svc := New(&fakeSessions{}, &fakeGraph{}, &fakeLLM{}, 10, log.NewNop())
	if _, err := svc.Respond(t.Context(), "s1", "u1", "  ", ""); !errors.Is(err, session.ErrEmptyContent) {
		t.Fatalf("err = %v, want ErrEmptyContent", err)
	}
}

func TestRespondPropagatesGraphError(t *testing.T) {
	boom := errors.New("generation failed")
	sessions := &fakeSessions{}
	svc := New(sessions, &fakeGraph{err: boom}, &fakeLLM{}, 10, log.NewNop())

	_, err := svc.Respond(t.Context(), "s1", "u1", "question", "")
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want graph error", err)
	}
	// The user turn is already persisted; no assistant turn follows.
	if len(sessions.appended) != 1 || sessions.appended[0].Role != session.RoleUser {
		t.Errorf("appended = %+v", sessions.appended)
	}
}

func TestRespondForwardsDocumentHash(t *testing.T) {
	g := &fakeGraph{answer: "scoped"}
	svc := New(&fakeSessions{}, g, &fakeLLM{}, 10, log.NewNop())

	if _, err := svc.Respond(t.Context(), "s1", "u1", "what does it say?", "abc123"); err != nil {
		t.Fatalf("Respond: %v", err)
	}
	if g.gotHash != "abc123" {
		t.Errorf("document hash = %q", g.gotHash)
	}
}

func TestRespondHistoryWindow(t *testing.T) {
	var history []*session.Message
	for i := 0; i < 25; i++ {
		history = append(history, &session.Message{Role: session.RoleUser, Content: strings.Repeat("x", 5)})
	}
	sessions := &fakeSessions{history: history}
	svc := New(sessions, &fakeGraph{answer: "ok"}, &fakeLLM{reply: "rewritten"}, 10, log.NewNop())

	if _, err := svc.Respond(t.Context(), "s1", "u1", "q", ""); err != nil {
		t.Fatalf("Respond: %v", err)
	}
}
