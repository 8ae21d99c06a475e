package session

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alexandria-ai/alexandria/internal/log"
)

// Store persists sessions and messages in Postgres.
type Store struct {
	pool   *pgxpool.Pool
	logger log.Logger
}

func New(pool *pgxpool.Pool, logger log.Logger) *Store {
	return &Store{pool: pool, logger: logger}
}

// Create inserts a new session. Creating an existing session is not an
// error; the existing row wins and is returned.
func (s *Store) Create(ctx context.Context, sessionID, userID string) (*Session, error) {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO chat_sessions (session_id, user_id, created_at, updated_at)
		VALUES ($1, $2, NOW(), NOW())
		ON CONFLICT (session_id) DO NOTHING`, sessionID, userID)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return s.Get(ctx, sessionID)
}

// Get fetches a session by id.
func (s *Store) Get(ctx context.Context, sessionID string) (*Session, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT session_id, user_id, created_at, updated_at
		FROM chat_sessions WHERE session_id = $1`, sessionID)

	var sess Session
	if err := row.Scan(&sess.SessionID, &sess.UserID, &sess.CreatedAt, &sess.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get session: %w", err)
	}
	return &sess, nil
}

// GetOrCreate returns the session, creating it when absent.
func (s *Store) GetOrCreate(ctx context.Context, sessionID, userID string) (*Session, error) {
	sess, err := s.Get(ctx, sessionID)
	if err == nil {
		return sess, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	return s.Create(ctx, sessionID, userID)
}

// AppendMessage appends a message with the next sequence number and bumps
// the session's updated_at. Concurrent appends to the same session are
// serialized with a transaction-scoped advisory lock so sequence numbers
// never collide.
func (s *Store) AppendMessage(ctx context.Context, sessionID string, role Role, content string) (*Message, error) {
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyContent
	}
	if !role.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin append: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, sessionID); err != nil {
		return nil, fmt.Errorf("lock session: %w", err)
	}

	var exists bool
	if err := tx.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM chat_sessions WHERE session_id = $1)`, sessionID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("check session: %w", err)
	}
	if !exists {
		return nil, ErrNotFound
	}

	msg := Message{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Role:      role,
		Content:   content,
	}
	err = tx.QueryRow(ctx, `
		INSERT INTO chat_messages (id, session_id, role, content, sequence_number, created_at)
		VALUES ($1, $2, $3, $4,
			(SELECT COALESCE(MAX(sequence_number), 0) + 1 FROM chat_messages WHERE session_id = $2),
			NOW())
		RETURNING sequence_number, created_at`,
		msg.ID, sessionID, string(role), content,
	).Scan(&msg.SequenceNumber, &msg.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("append message: %w", err)
	}

	if _, err := tx.Exec(ctx,
		`UPDATE chat_sessions SET updated_at = NOW() WHERE session_id = $1`, sessionID); err != nil {
		return nil, fmt.Errorf("touch session: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit append: %w", err)
	}
	return &msg, nil
}

// History returns the last limit messages of a session in chronological
// order. limit <= 0 returns the full history.
func (s *Store) History(ctx context.Context, sessionID string, limit int) ([]*Message, error) {
	query := `
		SELECT id, session_id, role, content, sequence_number, created_at
		FROM chat_messages WHERE session_id = $1
		ORDER BY sequence_number DESC`
	args := []any{sessionID}
	if limit > 0 {
		query += " LIMIT $2"
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	defer rows.Close()

	var msgs []*Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.SessionID, &m.Role, &m.Content, &m.SequenceNumber, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		msgs = append(msgs, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Query walks newest-first for the LIMIT; callers want oldest-first.
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

// ListByUser returns a user's sessions, most recently active first.
func (s *Store) ListByUser(ctx context.Context, userID string) ([]*Session, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT session_id, user_id, created_at, updated_at
		FROM chat_sessions WHERE user_id = $1
		ORDER BY updated_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		var sess Session
		if err := rows.Scan(&sess.SessionID, &sess.UserID, &sess.CreatedAt, &sess.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, &sess)
	}
	return sessions, rows.Err()
}

// Delete removes a session and, through the FK cascade, its messages.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM chat_sessions WHERE session_id = $1`, sessionID)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
