package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"bizchat/internal/domain"
)

var (
	// ErrNotFound is returned when a business, conversation, or message
	// does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDatabase wraps storage-engine failures so driver internals never
	// reach API callers. The wrapped detail is for logs only.
	ErrDatabase = errors.New("database operation failed")
)

// ValidationError reports malformed message input rejected before any write.
type ValidationError struct {
	Message string
	Fields  []string
}

func (e *ValidationError) Error() string { return e.Message }

// NewMessage is the validated input for CreateMessage.
type NewMessage struct {
	ConversationID int64
	SenderType     domain.SenderType
	SenderName     string
	Content        string
	Type           domain.MessageType
	FileURL        string
	FileName       string
}

// Validate checks required fields and the content-or-attachment invariant.
// An empty Type defaults to text.
func (p *NewMessage) Validate() error {
	var missing []string
	if p.ConversationID <= 0 {
		missing = append(missing, "conversationId")
	}
	if _, ok := domain.ParseSenderType(string(p.SenderType)); !ok {
		missing = append(missing, "senderType")
	}
	if strings.TrimSpace(p.SenderName) == "" {
		missing = append(missing, "senderName")
	}
	if len(missing) > 0 {
		return &ValidationError{
			Message: "missing required fields: " + strings.Join(missing, ", "),
			Fields:  missing,
		}
	}
	if strings.TrimSpace(p.Content) == "" && strings.TrimSpace(p.FileURL) == "" {
		return &ValidationError{
			Message: "message must have either content or file attachment",
			Fields:  []string{"content", "fileUrl"},
		}
	}
	if p.Type == "" {
		p.Type = domain.MessageText
	}
	if _, ok := domain.ParseMessageType(string(p.Type)); !ok {
		return &ValidationError{
			Message: "invalid message type: " + string(p.Type),
			Fields:  []string{"messageType"},
		}
	}
	return nil
}

// Store defines persistence operations for businesses, conversations, and
// messages. Implementations are safe for concurrent use.
type Store interface {
	GetBusiness(ctx context.Context, id string) (domain.Business, bool, error)
	UpdateBusinessStatus(ctx context.Context, id string, status domain.BusinessStatus) (bool, error)
	BusinessStats(ctx context.Context, businessID string) (domain.BusinessStats, error)

	// ListConversations orders by most recent activity descending, with
	// last-message fields and unread counts computed from messages.
	ListConversations(ctx context.Context, businessID string) ([]domain.Conversation, error)
	// SearchConversations filters by case-insensitive customer-name substring.
	SearchConversations(ctx context.Context, businessID, term string) ([]domain.Conversation, error)
	GetConversation(ctx context.Context, id int64) (domain.Conversation, bool, error)
	UpdateConversationStatus(ctx context.Context, id int64, status domain.ConversationStatus) (bool, error)
	// TouchConversation bumps the conversation's updated_at timestamp.
	TouchConversation(ctx context.Context, id int64) error

	// ListMessages returns the most recent limit rows after skipping offset,
	// ascending by time.
	ListMessages(ctx context.Context, conversationID int64, limit, offset int) ([]domain.Message, error)
	// CreateMessage fails with *ValidationError on malformed input and
	// ErrNotFound when the conversation does not exist.
	CreateMessage(ctx context.Context, params NewMessage) (domain.Message, error)
	// UpdateMessageStatus applies a forward-only delivery transition.
	// Backward or same-state updates report false without writing.
	UpdateMessageStatus(ctx context.Context, id int64, status domain.MessageStatus) (bool, error)

	// Seed installs demo data once, gated by the sentinel business id.
	Seed(ctx context.Context) error
}

func wrapDB(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrDatabase, op, err)
}
