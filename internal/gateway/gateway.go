package gateway

import (
	"context"

	"github.com/astralabs/astra/internal/agent"
)

// Handler processes one transcribed utterance and returns the response
// text. The confirm callback is invoked when a sensitive plan needs
// explicit approval before execution.
type Handler interface {
	Handle(ctx context.Context, utterance string, confirm agent.ConfirmFunc) string
}

// Messenger defines the interface for utterance transports (console,
// Telegram, Discord, etc.)
type Messenger interface {
	// Start begins the listening loop and blocks until ctx is cancelled
	// or the transport fails.
	Start(ctx context.Context) error
	// Send sends a message to a specific chat.
	Send(chatID string, text string) error
	// Stop gracefully shuts down the gateway.
	Stop() error
}
