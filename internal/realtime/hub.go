package realtime

import (
	"log/slog"
	"sync"
	"time"

	"bizchat/internal/domain"
)

// DefaultTypingTimeout is how long a typing indicator stays up without a
// fresh typing_start before the hub auto-expires it.
const DefaultTypingTimeout = 3 * time.Second

// typingState tracks the single live typing indicator a connection may own.
// seq guards the expiry callback against firing for a replaced timer.
type typingState struct {
	conversationID int64
	senderName     string
	senderType     string
	seq            uint64
	timer          *time.Timer
}

// session is the hub's per-connection registry entry, inserted on connect and
// removed on disconnect.
type session struct {
	conn        *Connection
	businessID  string
	currentConv int64 // 0 when not in a conversation room
	typing      *typingState
}

// Hub owns all room membership and typing state for one server process.
// Within a room, frames are enqueued to every subscriber in publish order;
// there is no cross-process fan-out.
type Hub struct {
	mu            sync.Mutex
	sessions      map[string]*session
	rooms         map[string]map[string]*Connection
	connRooms     map[string]map[string]struct{}
	typingTimeout time.Duration
	typingSeq     uint64
}

// NewHub constructs an empty registry. A non-positive timeout falls back to
// DefaultTypingTimeout.
func NewHub(typingTimeout time.Duration) *Hub {
	if typingTimeout <= 0 {
		typingTimeout = DefaultTypingTimeout
	}
	return &Hub{
		sessions:      make(map[string]*session),
		rooms:         make(map[string]map[string]*Connection),
		connRooms:     make(map[string]map[string]struct{}),
		typingTimeout: typingTimeout,
	}
}

// Register inserts a connection into the registry.
func (h *Hub) Register(conn *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sessions[conn.ID] = &session{conn: conn}
	h.connRooms[conn.ID] = make(map[string]struct{})
}

// Disconnect removes the connection, cancels any armed typing timer, and
// broadcasts a stop-typing event so no indicator is left stuck.
func (h *Hub) Disconnect(connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	sess, ok := h.sessions[connID]
	if !ok {
		return
	}
	h.clearTypingLocked(connID, sess)
	for room := range h.connRooms[connID] {
		h.leaveRoomLocked(room, connID)
	}
	delete(h.connRooms, connID)
	delete(h.sessions, connID)
	slog.Info("socket disconnected", "conn_id", connID)
}

// JoinBusiness subscribes the connection to the business broadcast group.
func (h *Hub) JoinBusiness(connID, businessID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	sess, ok := h.sessions[connID]
	if !ok {
		return
	}
	sess.businessID = businessID
	h.joinRoomLocked(BusinessRoom(businessID), sess.conn)
	slog.Info("socket joined business", "conn_id", connID, "business_id", businessID)
}

// JoinConversation subscribes the connection to the conversation group and
// marks it as the connection's current conversation for typing bookkeeping.
func (h *Hub) JoinConversation(connID string, conversationID int64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	sess, ok := h.sessions[connID]
	if !ok {
		return
	}
	sess.currentConv = conversationID
	h.joinRoomLocked(ConversationRoom(conversationID), sess.conn)
	slog.Info("socket joined conversation", "conn_id", connID, "conversation_id", conversationID)
}

// LeaveConversation unsubscribes from the conversation group, clearing the
// typing indicator first if one is armed there.
func (h *Hub) LeaveConversation(connID string, conversationID int64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	sess, ok := h.sessions[connID]
	if !ok {
		return
	}
	if sess.typing != nil && sess.typing.conversationID == conversationID {
		h.clearTypingLocked(connID, sess)
	}
	if sess.currentConv == conversationID {
		sess.currentConv = 0
	}
	h.leaveRoomLocked(ConversationRoom(conversationID), connID)
	slog.Info("socket left conversation", "conn_id", connID, "conversation_id", conversationID)
}

// StartTyping broadcasts user_typing to the rest of the conversation group
// and arms the auto-expiry timer. Typing again replaces the prior timer, it
// never stacks.
func (h *Hub) StartTyping(connID string, conversationID int64, senderName, senderType string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	sess, ok := h.sessions[connID]
	if !ok {
		return
	}
	if sess.typing != nil {
		sess.typing.timer.Stop()
	}
	h.typingSeq++
	seq := h.typingSeq
	sess.typing = &typingState{
		conversationID: conversationID,
		senderName:     senderName,
		senderType:     senderType,
		seq:            seq,
		timer: time.AfterFunc(h.typingTimeout, func() {
			h.expireTyping(connID, seq)
		}),
	}
	h.broadcastLocked(ConversationRoom(conversationID), Encode(EventUserTyping, UserTypingPayload{
		SenderName: senderName,
		SenderType: senderType,
		Timestamp:  time.Now().UTC(),
	}), connID)
}

// StopTyping cancels the timer and broadcasts user_stop_typing. Calling it
// when nothing is armed is a no-op.
func (h *Hub) StopTyping(connID string, conversationID int64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	sess, ok := h.sessions[connID]
	if !ok || sess.typing == nil || sess.typing.conversationID != conversationID {
		return
	}
	h.clearTypingLocked(connID, sess)
}

// expireTyping is the timer callback; seq keeps a replaced timer from
// clearing its successor.
func (h *Hub) expireTyping(connID string, seq uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	sess, ok := h.sessions[connID]
	if !ok || sess.typing == nil || sess.typing.seq != seq {
		return
	}
	h.clearTypingLocked(connID, sess)
}

// RelayStatus broadcasts a delivery-state change to the conversation group,
// excluding the reporting connection.
func (h *Hub) RelayStatus(connID string, conversationID, messageID int64, status domain.MessageStatus) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.broadcastLocked(ConversationRoom(conversationID), Encode(EventMessageStatusUpdate, MessageStatusUpdatePayload{
		MessageID: messageID,
		Status:    status,
		Timestamp: time.Now().UTC(),
	}), connID)
}

// PublishNewMessage fans a freshly persisted message out to everyone in the
// conversation's room, sender included.
func (h *Hub) PublishNewMessage(msg domain.Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.broadcastLocked(ConversationRoom(msg.ConversationID), Encode(EventNewMessage, msg), "")
}

// RoomSize reports the current number of subscribers in a room.
func (h *Hub) RoomSize(room string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.rooms[room])
}

// Broadcast enqueues payload to every room member except excludeID, returning
// the delivered count.
func (h *Hub) Broadcast(room string, payload []byte, excludeID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.broadcastLocked(room, payload, excludeID)
}

func (h *Hub) broadcastLocked(room string, payload []byte, excludeID string) int {
	delivered := 0
	for id, conn := range h.rooms[room] {
		if excludeID != "" && id == excludeID {
			continue
		}
		if err := conn.Send(payload); err == nil {
			delivered++
		}
	}
	return delivered
}

// clearTypingLocked cancels the timer idempotently and tells the whole room,
// typist included, that the indicator is gone.
func (h *Hub) clearTypingLocked(connID string, sess *session) {
	typing := sess.typing
	if typing == nil {
		return
	}
	typing.timer.Stop()
	sess.typing = nil
	h.broadcastLocked(ConversationRoom(typing.conversationID), Encode(EventUserStopTyping, UserTypingPayload{
		SenderName: typing.senderName,
		SenderType: typing.senderType,
		Timestamp:  time.Now().UTC(),
	}), "")
}

func (h *Hub) joinRoomLocked(room string, conn *Connection) {
	members := h.rooms[room]
	if members == nil {
		members = make(map[string]*Connection)
		h.rooms[room] = members
	}
	members[conn.ID] = conn

	memberships := h.connRooms[conn.ID]
	if memberships == nil {
		memberships = make(map[string]struct{})
		h.connRooms[conn.ID] = memberships
	}
	memberships[room] = struct{}{}
}

func (h *Hub) leaveRoomLocked(room, connID string) {
	members := h.rooms[room]
	if members == nil {
		return
	}
	delete(members, connID)
	if len(members) == 0 {
		delete(h.rooms, room)
	}
	if memberships, ok := h.connRooms[connID]; ok {
		delete(memberships, room)
	}
}
