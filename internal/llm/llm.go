// Package llm defines the chat-completion boundary used by the answer
// pipeline and provides the Gemini implementation behind it.
package llm

import "context"

// Role identifies who authored a message in a completion request.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of a completion request.
type Message struct {
	Role    Role
	Content string
}

// Request is a single completion call. Temperature is optional; nil keeps
// the model default.
type Request struct {
	System      string
	Messages    []Message
	Temperature *float32
}

// Client produces a text completion for a request.
type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// Tiers pairs the two model sizes the pipeline draws from: Small for
// classification-style calls (routing, grading, rewriting), Big for the
// grounded answer itself.
type Tiers struct {
	Small Client
	Big   Client
}

// Temp is a convenience for building Request.Temperature values.
func Temp(t float32) *float32 { return &t }
