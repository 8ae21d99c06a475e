//go:build integration

package session_test

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/alexandria-ai/alexandria/internal/log"
	"github.com/alexandria-ai/alexandria/internal/session"
	"github.com/alexandria-ai/alexandria/internal/testutil"
)

func TestStoreSessionLifecycle(t *testing.T) {
	db, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	store := session.New(db.Pool, log.NewNop())
	ctx := t.Context()

	sess, err := store.Create(ctx, "s1", "u1")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if sess.SessionID != "s1" || sess.UserID != "u1" {
		t.Errorf("session = %+v", sess)
	}

	// Creating again returns the existing row.
	again, err := store.Create(ctx, "s1", "other")
	if err != nil {
		t.Fatalf("second Create: %v", err)
	}
	if again.UserID != "u1" {
		t.Errorf("existing session owner overwritten: %q", again.UserID)
	}

	if _, err := store.AppendMessage(ctx, "s1", session.RoleUser, "hello"); err != nil {
		t.Fatalf("AppendMessage: %v", err)
	}
	if _, err := store.AppendMessage(ctx, "s1", session.RoleAssistant, "hi there"); err != nil {
		t.Fatalf("AppendMessage: %v", err)
	}

	msgs, err := store.History(ctx, "s1", 0)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(msgs) != 2 || msgs[0].Role != session.RoleUser || msgs[1].SequenceNumber != 2 {
		t.Errorf("history = %+v", msgs)
	}

	// Appending to a missing session is an error.
	if _, err := store.AppendMessage(ctx, "missing", session.RoleUser, "x"); !errors.Is(err, session.ErrNotFound) {
		t.Fatalf("append to missing session: err = %v", err)
	}

	if err := store.Delete(ctx, "s1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	msgs, err = store.History(ctx, "s1", 0)
	if err != nil || len(msgs) != 0 {
		t.Fatalf("messages survived cascade: %d, err %v", len(msgs), err)
	}
}

func TestStoreConcurrentAppends(t *testing.T) {
	db, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	store := session.New(db.Pool, log.NewNop())
	ctx := t.Context()

	if _, err := store.Create(ctx, "busy", "u1"); err != nil {
		t.Fatalf("Create: %v", err)
	}

	const writers = 8
	const perWriter = 5
	var wg sync.WaitGroup
	errCh := make(chan error, writers*perWriter)
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				if _, err := store.AppendMessage(ctx, "busy", session.RoleUser,
					fmt.Sprintf("writer %d message %d", w, i)); err != nil {
					errCh <- err
				}
			}
		}(w)
	}
	wg.Wait()
	close(errCh)
	for err := range errCh {
		t.Errorf("concurrent append: %v", err)
	}

	msgs, err := store.History(ctx, "busy", 0)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(msgs) != writers*perWriter {
		t.Fatalf("got %d messages, want %d", len(msgs), writers*perWriter)
	}
	// Sequence numbers are dense and strictly increasing: no lost updates.
	for i, m := range msgs {
		if m.SequenceNumber != i+1 {
			t.Fatalf("message %d has sequence %d", i, m.SequenceNumber)
		}
	}
}

func TestStoreHistoryWindow(t *testing.T) {
	db, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	store := session.New(db.Pool, log.NewNop())
	ctx := t.Context()

	if _, err := store.Create(ctx, "s1", "u1"); err != nil {
		t.Fatalf("Create: %v", err)
	}
	for i := 1; i <= 6; i++ {
		if _, err := store.AppendMessage(ctx, "s1", session.RoleUser, fmt.Sprintf("message %d", i)); err != nil {
			t.Fatalf("AppendMessage: %v", err)
		}
	}

	msgs, err := store.History(ctx, "s1", 4)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(msgs) != 4 {
		t.Fatalf("got %d messages, want 4", len(msgs))
	}
	// The window keeps the most recent turns, oldest first.
	if msgs[0].Content != "message 3" || msgs[3].Content != "message 6" {
		t.Errorf("window = %q .. %q", msgs[0].Content, msgs[3].Content)
	}
}
