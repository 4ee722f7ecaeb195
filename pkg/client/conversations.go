package client

import (
	"context"
	"sync"

	"bizchat/internal/domain"
)

// ConversationList holds the conversation sidebar state for a business:
// a snapshot of conversations ordered by recent activity plus the last
// load error.
type ConversationList struct {
	client     *Client
	businessID string

	mu            sync.Mutex
	conversations []domain.Conversation
	lastErr       error
	loaded        bool
}

// NewConversationList creates an empty list bound to a business.
func NewConversationList(c *Client, businessID string) *ConversationList {
	return &ConversationList{client: c, businessID: businessID}
}

// Load fetches the current conversations. Errors are returned and also kept
// for Err; a failed load preserves the previous snapshot.
func (l *ConversationList) Load(ctx context.Context) error {
	conversations, err := l.client.ListConversations(ctx, l.businessID, "")
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lastErr = err
	if err != nil {
		return err
	}
	l.conversations = conversations
	l.loaded = true
	return nil
}

// Refetch reloads conversations, same as Load.
func (l *ConversationList) Refetch(ctx context.Context) error {
	return l.Load(ctx)
}

// Search fetches conversations matching a customer-name term without
// touching the main snapshot.
func (l *ConversationList) Search(ctx context.Context, term string) ([]domain.Conversation, error) {
	return l.client.ListConversations(ctx, l.businessID, term)
}

// Conversations returns the latest loaded snapshot.
func (l *ConversationList) Conversations() []domain.Conversation {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]domain.Conversation, len(l.conversations))
	copy(out, l.conversations)
	return out
}

// Loaded reports whether at least one load has succeeded.
func (l *ConversationList) Loaded() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loaded
}

// Err returns the error from the most recent load, if any.
func (l *ConversationList) Err() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastErr
}
