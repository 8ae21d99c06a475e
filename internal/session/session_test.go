package session

import (
	"errors"
	"testing"
)

func TestRoleValid(t *testing.T) {
	tests := []struct {
		role Role
		want bool
	}{
		{RoleUser, true},
		{RoleAssistant, true},
		{RoleSystem, true},
		{Role("tool"), false},
		{Role(""), false},
	}
	for _, tt := range tests {
		if got := tt.role.Valid(); got != tt.want {
			t.Errorf("Role(%q).Valid() = %v, want %v", tt.role, got, tt.want)
		}
	}
}

func TestAppendMessageRejectsEmptyContent(t *testing.T) {
	// Validation runs before any database work, so a nil pool is safe here.
	s := &Store{}

	_, err := s.AppendMessage(t.Context(), "sess-1", RoleUser, "   ")
	if !errors.Is(err, ErrEmptyContent) {
		t.Fatalf("AppendMessage with blank content: err = %v, want ErrEmptyContent", err)
	}

	_, err = s.AppendMessage(t.Context(), "sess-1", Role("tool"), "hi")
	if !errors.Is(err, ErrInvalidRole) {
		t.Fatalf("AppendMessage with bad role: err = %v, want ErrInvalidRole", err)
	}
}
