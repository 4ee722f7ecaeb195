package client

import (
	"context"
	"encoding/json"
	"sync"

	"bizchat/internal/domain"
	"bizchat/internal/realtime"
)

// MessageFeed holds the message history of one open conversation and keeps it
// current from the socket: incoming new_message events are appended with
// id-based dedupe, and message_status_update events adjust delivery state.
type MessageFeed struct {
	client         *Client
	socket         *Socket
	conversationID int64

	mu       sync.Mutex
	messages []domain.Message
	seen     map[int64]struct{}
	nextTemp int64
	lastErr  error

	offs   []func()
	closed bool
}

// NewMessageFeed creates a feed for one conversation. Call Load to fetch
// history and start receiving events.
func NewMessageFeed(c *Client, s *Socket, conversationID int64) *MessageFeed {
	return &MessageFeed{
		client:         c,
		socket:         s,
		conversationID: conversationID,
		seen:           make(map[int64]struct{}),
		nextTemp:       -1,
	}
}

// Load fetches history, joins the conversation room, and subscribes to
// message events.
func (f *MessageFeed) Load(ctx context.Context) error {
	page, err := f.client.ListMessages(ctx, f.conversationID, 100, 0)
	f.mu.Lock()
	f.lastErr = err
	f.mu.Unlock()
	if err != nil {
		return err
	}

	f.mu.Lock()
	f.messages = page.Messages
	f.seen = make(map[int64]struct{}, len(page.Messages))
	for _, m := range page.Messages {
		f.seen[m.ID] = struct{}{}
	}
	f.mu.Unlock()

	if err := f.socket.JoinConversation(f.conversationID); err != nil {
		return err
	}
	offNew := f.socket.On(realtime.EventNewMessage, f.onNewMessage)
	offStatus := f.socket.On(realtime.EventMessageStatusUpdate, f.onStatusUpdate)
	f.mu.Lock()
	f.offs = append(f.offs, offNew, offStatus)
	f.mu.Unlock()
	return nil
}

func (f *MessageFeed) onNewMessage(data json.RawMessage) {
	var msg domain.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}
	if msg.ConversationID != f.conversationID {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.appendLocked(msg)
}

func (f *MessageFeed) onStatusUpdate(data json.RawMessage) {
	var upd realtime.MessageStatusUpdatePayload
	if err := json.Unmarshal(data, &upd); err != nil {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.messages {
		if f.messages[i].ID == upd.MessageID {
			f.messages[i].Status = upd.Status
			return
		}
	}
}

// appendLocked adds a message unless its id is already present.
func (f *MessageFeed) appendLocked(msg domain.Message) {
	if _, dup := f.seen[msg.ID]; dup {
		return
	}
	f.seen[msg.ID] = struct{}{}
	f.messages = append(f.messages, msg)
}

// Send posts a message and shows it immediately: a pending local entry is
// appended before the request, then swapped for the server message. The
// socket echo of the same id is deduplicated whether it lands before or
// after the response.
func (f *MessageFeed) Send(ctx context.Context, content, senderID, senderType string) (domain.Message, error) {
	f.mu.Lock()
	tempID := f.nextTemp
	f.nextTemp--
	pending := domain.Message{
		ID:             tempID,
		ConversationID: f.conversationID,
		SenderType:     domain.SenderType(senderType),
		SenderName:     senderID,
		Content:        content,
		Type:           domain.MessageText,
		Status:         domain.StatusSent,
	}
	f.messages = append(f.messages, pending)
	f.mu.Unlock()

	msg, err := f.client.SendMessage(ctx, f.conversationID, SendMessageInput{
		Content:    content,
		SenderID:   senderID,
		SenderType: senderType,
	})

	f.mu.Lock()
	defer f.mu.Unlock()
	idx := f.indexOfLocked(tempID)
	if err != nil {
		if idx >= 0 {
			f.messages = append(f.messages[:idx], f.messages[idx+1:]...)
		}
		f.lastErr = err
		return domain.Message{}, err
	}
	if _, echoed := f.seen[msg.ID]; echoed {
		// Socket echo beat the response; drop the placeholder.
		if idx >= 0 {
			f.messages = append(f.messages[:idx], f.messages[idx+1:]...)
		}
		return msg, nil
	}
	f.seen[msg.ID] = struct{}{}
	if idx >= 0 {
		f.messages[idx] = msg
	} else {
		f.messages = append(f.messages, msg)
	}
	return msg, nil
}

func (f *MessageFeed) indexOfLocked(id int64) int {
	for i := range f.messages {
		if f.messages[i].ID == id {
			return i
		}
	}
	return -1
}

// Messages returns a snapshot of the feed in order.
func (f *MessageFeed) Messages() []domain.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.Message, len(f.messages))
	copy(out, f.messages)
	return out
}

// Err returns the error from the most recent load or send, if any.
func (f *MessageFeed) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastErr
}

// Close leaves the room and detaches every handler this feed registered.
// The socket stays open for other feeds.
func (f *MessageFeed) Close() error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return nil
	}
	f.closed = true
	offs := f.offs
	f.offs = nil
	f.mu.Unlock()

	for _, off := range offs {
		off()
	}
	return f.socket.LeaveConversation(f.conversationID)
}
