package model

import (
	"context"

	"github.com/cloudwego/eino/schema"
)

// ConversationRepository stores the user and assistant turns of a chat,
// keyed by conversation id. Implementations expire a conversation after a
// period without writes; every AddMessage pushes that expiry forward. The
// store keeps the full transcript: trimming to the last turns happens when
// the response context is assembled, not here.
type ConversationRepository interface {
	// AddMessage appends one turn and refreshes the conversation TTL.
	AddMessage(ctx context.Context, conversationID string, message *schema.Message) error

	// LoadHistory returns the stored turns, oldest first. An unknown or
	// expired conversation yields an empty history, not an error.
	LoadHistory(ctx context.Context, conversationID string) (*ConversationHistory, error)

	// ClearHistory forgets the conversation (the CLI forget command).
	ClearHistory(ctx context.Context, conversationID string) error

	// GetMessageCount returns how many turns are stored.
	GetMessageCount(ctx context.Context, conversationID string) (int, error)
}

// ConversationHistory is the transcript of one conversation.
type ConversationHistory struct {
	ConversationID string
	Messages       []*schema.Message
}
