// Package llm defines the LLM collaborator interface for Testimator.
// Implementations provide the actual HTTP transport to a specific provider.
package llm

import "context"

// Role tags one side of a conversation turn. The values match the Gemini
// wire format ("user"/"model"); other providers translate as needed.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Turn is a single role-tagged utterance replayed to the provider as
// conversational context.
type Turn struct {
	Role Role
	Text string
}

// Conversation is a single chat exchange seeded with prior turns.
// SendMessage issues one synchronous generation request and returns the
// model's reply text unmodified. maxOutputTokens caps the reply length;
// zero means provider default.
type Conversation interface {
	SendMessage(ctx context.Context, instruction string, maxOutputTokens int) (string, error)
}

// Client creates conversations against a provider. A Client must be safe
// for concurrent use; Conversations are not.
type Client interface {
	StartConversation(prior []Turn) Conversation
}
