// Package llm defines the chat transport contract the Copilot Runtime calls
// once per turn.
package llm

import "context"

// Role is a chat message's role.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one chat turn entry.
type Message struct {
	Role    Role
	Content string
}

// ChatRequest carries the messages for a single completion.
type ChatRequest struct {
	Messages []Message
}

// ChatResponse carries the transport's outcome. Success is false whenever
// the call could not be completed; Error then carries a carrier-facing
// message and Content is empty.
type ChatResponse struct {
	Success bool
	Content string
	Error   string
}

// Transport is a single chat completion call. No streaming is required:
// one completion per turn.
type Transport interface {
	Chat(ctx context.Context, req ChatRequest) (ChatResponse, error)
}
