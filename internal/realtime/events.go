package realtime

import (
	"encoding/json"
	"strconv"
	"time"

	"bizchat/internal/domain"
)

// Named events exchanged over the socket, both directions.
const (
	EventJoinBusiness        = "join_business"
	EventJoinConversation    = "join_conversation"
	EventLeaveConversation   = "leave_conversation"
	EventTypingStart         = "typing_start"
	EventTypingStop          = "typing_stop"
	EventUserTyping          = "user_typing"
	EventUserStopTyping      = "user_stop_typing"
	EventNewMessage          = "new_message"
	EventMessageDelivered    = "message_delivered"
	EventMessageRead         = "message_read"
	EventMessageStatusUpdate = "message_status_update"
	EventError               = "error"
)

// Event is the wire envelope for every socket frame.
type Event struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Encode marshals an event frame. Marshal failures are programmer errors on
// our own payload types, so they surface as an error frame instead.
func Encode(name string, payload any) []byte {
	data, err := json.Marshal(payload)
	if err != nil {
		data, _ = json.Marshal(ErrorPayload{Message: "encode " + name})
		name = EventError
	}
	frame, _ := json.Marshal(Event{Event: name, Data: data})
	return frame
}

// BusinessRoom names the per-business broadcast group.
func BusinessRoom(businessID string) string {
	return "business_" + businessID
}

// ConversationRoom names the per-conversation broadcast group.
func ConversationRoom(conversationID int64) string {
	return "conversation_" + strconv.FormatInt(conversationID, 10)
}

type JoinBusinessPayload struct {
	BusinessID string `json:"businessId"`
}

type ConversationRefPayload struct {
	ConversationID int64 `json:"conversationId"`
}

type TypingPayload struct {
	ConversationID int64  `json:"conversationId"`
	SenderName     string `json:"senderName"`
	SenderType     string `json:"senderType"`
}

type UserTypingPayload struct {
	SenderName string    `json:"senderName"`
	SenderType string    `json:"senderType"`
	Timestamp  time.Time `json:"timestamp"`
}

type MessageStatusRefPayload struct {
	MessageID      int64 `json:"messageId"`
	ConversationID int64 `json:"conversationId"`
}

type MessageStatusUpdatePayload struct {
	MessageID int64                `json:"messageId"`
	Status    domain.MessageStatus `json:"status"`
	Timestamp time.Time            `json:"timestamp"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}
