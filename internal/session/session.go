// Package session persists chat sessions and their ordered message history.
package session

import (
	"errors"
	"time"
)

var (
	// ErrNotFound indicates the session does not exist.
	ErrNotFound = errors.New("session not found")
	// ErrEmptyContent indicates a message with no content was rejected.
	ErrEmptyContent = errors.New("message content is empty")
	// ErrInvalidRole indicates a role outside user/assistant/system.
	ErrInvalidRole = errors.New("invalid message role")
)

// Role identifies the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Valid reports whether the role is one the schema accepts.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem:
		return true
	}
	return false
}

// Session is a conversation container owned by a user.
type Session struct {
	SessionID string
	UserID    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Message is a single turn in a session. SequenceNumber is assigned by the
// store and is strictly increasing within a session.
type Message struct {
	ID             string
	SessionID      string
	Role           Role
	Content        string
	SequenceNumber int
	CreatedAt      time.Time
}
