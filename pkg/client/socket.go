package client

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"github.com/gorilla/websocket"

	"bizchat/internal/realtime"
)

// EventHandler receives the data payload of a socket event.
type EventHandler func(data json.RawMessage)

// Socket is a realtime connection to the /ws endpoint. One socket serves a
// whole session; feeds and lists subscribe to it with On.
type Socket struct {
	conn *websocket.Conn

	writeMu sync.Mutex

	mu       sync.Mutex
	handlers map[string]map[int]EventHandler
	nextID   int
	closed   bool

	done chan struct{}
}

// DialSocket connects to the server's websocket endpoint. baseURL may use an
// http(s) or ws(s) scheme.
func DialSocket(ctx context.Context, baseURL string) (*Socket, error) {
	wsURL := strings.TrimRight(baseURL, "/")
	switch {
	case strings.HasPrefix(wsURL, "https"):
		wsURL = "wss" + strings.TrimPrefix(wsURL, "https")
	case strings.HasPrefix(wsURL, "http"):
		wsURL = "ws" + strings.TrimPrefix(wsURL, "http")
	}
	if !strings.HasSuffix(wsURL, "/ws") {
		wsURL += "/ws"
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, err
	}
	s := &Socket{
		conn:     conn,
		handlers: make(map[string]map[int]EventHandler),
		done:     make(chan struct{}),
	}
	go s.readLoop()
	return s, nil
}

func (s *Socket) readLoop() {
	defer close(s.done)
	for {
		_, frame, err := s.conn.ReadMessage()
		if err != nil {
			return
		}
		var ev realtime.Event
		if err := json.Unmarshal(frame, &ev); err != nil {
			continue
		}
		s.mu.Lock()
		var snapshot []EventHandler
		for _, h := range s.handlers[ev.Event] {
			snapshot = append(snapshot, h)
		}
		s.mu.Unlock()
		for _, h := range snapshot {
			h(ev.Data)
		}
	}
}

// On registers a handler for an event and returns a function that removes it.
func (s *Socket) On(event string, handler EventHandler) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.handlers[event] == nil {
		s.handlers[event] = make(map[int]EventHandler)
	}
	id := s.nextID
	s.nextID++
	s.handlers[event][id] = handler
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.handlers[event], id)
	}
}

// Emit sends an event frame to the server.
func (s *Socket) Emit(event string, payload any) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteMessage(websocket.TextMessage, realtime.Encode(event, payload))
}

// JoinBusiness subscribes this connection to business-level events.
func (s *Socket) JoinBusiness(businessID string) error {
	return s.Emit(realtime.EventJoinBusiness, realtime.JoinBusinessPayload{BusinessID: businessID})
}

// JoinConversation subscribes this connection to a conversation room.
func (s *Socket) JoinConversation(conversationID int64) error {
	return s.Emit(realtime.EventJoinConversation, realtime.ConversationRefPayload{ConversationID: conversationID})
}

// LeaveConversation unsubscribes from a conversation room.
func (s *Socket) LeaveConversation(conversationID int64) error {
	return s.Emit(realtime.EventLeaveConversation, realtime.ConversationRefPayload{ConversationID: conversationID})
}

// StartTyping reports typing activity in a conversation.
func (s *Socket) StartTyping(conversationID int64, senderName, senderType string) error {
	return s.Emit(realtime.EventTypingStart, realtime.TypingPayload{
		ConversationID: conversationID,
		SenderName:     senderName,
		SenderType:     senderType,
	})
}

// StopTyping reports the end of typing activity.
func (s *Socket) StopTyping(conversationID int64) error {
	return s.Emit(realtime.EventTypingStop, realtime.TypingPayload{ConversationID: conversationID})
}

// MarkDelivered reports a message as delivered on this device.
func (s *Socket) MarkDelivered(conversationID, messageID int64) error {
	return s.Emit(realtime.EventMessageDelivered, realtime.MessageStatusRefPayload{
		MessageID:      messageID,
		ConversationID: conversationID,
	})
}

// MarkRead reports a message as read on this device.
func (s *Socket) MarkRead(conversationID, messageID int64) error {
	return s.Emit(realtime.EventMessageRead, realtime.MessageStatusRefPayload{
		MessageID:      messageID,
		ConversationID: conversationID,
	})
}

// Close tears the connection down. Registered handlers stop firing once the
// read loop exits.
func (s *Socket) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()
	err := s.conn.Close()
	<-s.done
	return err
}
