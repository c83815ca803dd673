package domain

import "context"

// Chat message roles.
const (
	ChatRoleSystem = "system"
	ChatRoleUser   = "user"
)

// ChatMessage is one turn of a chat-completion conversation.
type ChatMessage struct {
	Role    string
	Content string
}

// ChatClient sends a message sequence to the generative model and returns the
// completed answer text.
type ChatClient interface {
	Complete(ctx context.Context, messages []ChatMessage) (string, error)
	ModelName() string
}
