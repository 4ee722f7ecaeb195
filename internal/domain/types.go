package domain

import "time"

type BusinessStatus string

const (
	BusinessOnline  BusinessStatus = "online"
	BusinessOffline BusinessStatus = "offline"
	BusinessBusy    BusinessStatus = "busy"
	BusinessAway    BusinessStatus = "away"
)

// ParseBusinessStatus validates a raw status string.
func ParseBusinessStatus(raw string) (BusinessStatus, bool) {
	switch s := BusinessStatus(raw); s {
	case BusinessOnline, BusinessOffline, BusinessBusy, BusinessAway:
		return s, true
	}
	return "", false
}

type ConversationStatus string

const (
	ConversationActive   ConversationStatus = "active"
	ConversationResolved ConversationStatus = "resolved"
	ConversationClosed   ConversationStatus = "closed"
	ConversationArchived ConversationStatus = "archived"
)

func ParseConversationStatus(raw string) (ConversationStatus, bool) {
	switch s := ConversationStatus(raw); s {
	case ConversationActive, ConversationResolved, ConversationClosed, ConversationArchived:
		return s, true
	}
	return "", false
}

type SenderType string

const (
	SenderCustomer SenderType = "customer"
	SenderBusiness SenderType = "business"
)

func ParseSenderType(raw string) (SenderType, bool) {
	switch s := SenderType(raw); s {
	case SenderCustomer, SenderBusiness:
		return s, true
	}
	return "", false
}

type MessageType string

const (
	MessageText  MessageType = "text"
	MessageImage MessageType = "image"
	MessageFile  MessageType = "file"
)

func ParseMessageType(raw string) (MessageType, bool) {
	switch t := MessageType(raw); t {
	case MessageText, MessageImage, MessageFile:
		return t, true
	}
	return "", false
}

type MessageStatus string

const (
	StatusSent      MessageStatus = "sent"
	StatusDelivered MessageStatus = "delivered"
	StatusRead      MessageStatus = "read"
	StatusFailed    MessageStatus = "failed"
)

func ParseMessageStatus(raw string) (MessageStatus, bool) {
	switch s := MessageStatus(raw); s {
	case StatusSent, StatusDelivered, StatusRead, StatusFailed:
		return s, true
	}
	return "", false
}

// rank orders delivery states so transitions only move forward.
func (s MessageStatus) rank() int {
	switch s {
	case StatusSent:
		return 1
	case StatusDelivered:
		return 2
	case StatusRead:
		return 3
	}
	return 0
}

// CanTransitionTo reports whether moving to next is a forward transition.
// Failed is terminal and unreachable from the delivered/read track.
func (s MessageStatus) CanTransitionTo(next MessageStatus) bool {
	if s == StatusFailed || next == StatusFailed {
		return false
	}
	return next.rank() > s.rank()
}

type Business struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	LogoURL   string         `json:"logoUrl,omitempty"`
	Status    BusinessStatus `json:"status"`
	CreatedAt time.Time      `json:"createdAt"`
}

// Conversation carries derived last-message and unread fields computed from
// the messages table at read time. They are never persisted on the row.
type Conversation struct {
	ID            int64              `json:"id"`
	BusinessID    string             `json:"businessId"`
	CustomerName  string             `json:"customerName"`
	CustomerPhone string             `json:"customerPhone,omitempty"`
	Status        ConversationStatus `json:"status"`
	LastMessage   string             `json:"lastMessage,omitempty"`
	LastMessageAt *time.Time         `json:"lastMessageTime,omitempty"`
	UnreadCount   int                `json:"unreadCount"`
	CreatedAt     time.Time          `json:"createdAt"`
	UpdatedAt     time.Time          `json:"updatedAt"`
}

type Message struct {
	ID             int64         `json:"id"`
	ConversationID int64         `json:"conversationId"`
	SenderType     SenderType    `json:"senderType"`
	SenderName     string        `json:"senderName"`
	Content        string        `json:"content,omitempty"`
	Type           MessageType   `json:"messageType"`
	FileURL        string        `json:"fileUrl,omitempty"`
	FileName       string        `json:"fileName,omitempty"`
	Status         MessageStatus `json:"status"`
	CreatedAt      time.Time     `json:"timestamp"`
}

type BusinessStats struct {
	TotalConversations    int `json:"totalConversations"`
	ActiveConversations   int `json:"activeConversations"`
	ResolvedConversations int `json:"resolvedConversations"`
	TotalMessages         int `json:"totalMessages"`
	CustomerMessages      int `json:"customerMessages"`
	BusinessMessages      int `json:"businessMessages"`

	AverageMessagesPerConversation float64 `json:"averageMessagesPerConversation"`
	CustomerEngagementRate         float64 `json:"customerEngagementRate"`
	BusinessResponseRate           float64 `json:"businessResponseRate"`
}

// FillDerived computes the ratio metrics from the raw counters.
func (s *BusinessStats) FillDerived() {
	if s.TotalConversations > 0 {
		s.AverageMessagesPerConversation = round2(float64(s.TotalMessages) / float64(s.TotalConversations))
	}
	if s.TotalMessages > 0 {
		s.CustomerEngagementRate = round2(float64(s.CustomerMessages) / float64(s.TotalMessages) * 100)
		s.BusinessResponseRate = round2(float64(s.BusinessMessages) / float64(s.TotalMessages) * 100)
	}
}

func round2(v float64) float64 {
	return float64(int64(v*100+0.5)) / 100
}
