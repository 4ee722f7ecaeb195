package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"bizchat/internal/domain"
)

// StatusRecorder persists delivery-state transitions reported over the
// socket. Persistence is best effort; relay happens regardless.
type StatusRecorder interface {
	UpdateMessageStatus(ctx context.Context, id int64, status domain.MessageStatus) (bool, error)
}

// Handler upgrades websocket requests and pumps inbound events into the hub.
type Handler struct {
	hub      *Hub
	statuses StatusRecorder
	upgrader websocket.Upgrader
}

// NewHandler wires the socket endpoint. An origin of "*" accepts any browser
// origin; statuses may be nil to skip persistence of delivery reports.
func NewHandler(hub *Hub, statuses StatusRecorder, origin string) *Handler {
	return &Handler{
		hub:      hub,
		statuses: statuses,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				if origin == "" || origin == "*" {
					return true
				}
				return r.Header.Get("Origin") == origin
			},
		},
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "err", err, "remote", r.RemoteAddr)
		return
	}
	conn := NewConnection(ws)
	h.hub.Register(conn)
	conn.Start()
	slog.Info("socket connected", "conn_id", conn.ID, "remote", r.RemoteAddr)

	defer func() {
		h.hub.Disconnect(conn.ID)
		conn.Close(websocket.CloseNormalClosure, "bye")
	}()

	for {
		data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		h.dispatch(conn, data)
	}
}

// dispatch routes one inbound frame. Malformed frames and unknown events get
// an error frame back; the connection stays open.
func (h *Handler) dispatch(conn *Connection, data []byte) {
	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		h.sendError(conn, "malformed event frame")
		return
	}
	switch ev.Event {
	case EventJoinBusiness:
		var p JoinBusinessPayload
		if !h.decode(conn, ev, &p) {
			return
		}
		if p.BusinessID == "" {
			h.sendError(conn, "invalid business id")
			return
		}
		h.hub.JoinBusiness(conn.ID, p.BusinessID)
	case EventJoinConversation:
		var p ConversationRefPayload
		if !h.decode(conn, ev, &p) {
			return
		}
		if p.ConversationID <= 0 {
			h.sendError(conn, "invalid conversation id")
			return
		}
		h.hub.JoinConversation(conn.ID, p.ConversationID)
	case EventLeaveConversation:
		var p ConversationRefPayload
		if !h.decode(conn, ev, &p) {
			return
		}
		if p.ConversationID <= 0 {
			h.sendError(conn, "invalid conversation id")
			return
		}
		h.hub.LeaveConversation(conn.ID, p.ConversationID)
	case EventTypingStart:
		var p TypingPayload
		if !h.decode(conn, ev, &p) {
			return
		}
		if p.ConversationID <= 0 {
			h.sendError(conn, "invalid conversation id")
			return
		}
		h.hub.StartTyping(conn.ID, p.ConversationID, p.SenderName, p.SenderType)
	case EventTypingStop:
		var p TypingPayload
		if !h.decode(conn, ev, &p) {
			return
		}
		if p.ConversationID <= 0 {
			h.sendError(conn, "invalid conversation id")
			return
		}
		h.hub.StopTyping(conn.ID, p.ConversationID)
	case EventMessageDelivered:
		h.handleStatusReport(conn, ev, domain.StatusDelivered)
	case EventMessageRead:
		h.handleStatusReport(conn, ev, domain.StatusRead)
	default:
		h.sendError(conn, "unknown event: "+ev.Event)
	}
}

func (h *Handler) handleStatusReport(conn *Connection, ev Event, status domain.MessageStatus) {
	var p MessageStatusRefPayload
	if !h.decode(conn, ev, &p) {
		return
	}
	if p.ConversationID <= 0 || p.MessageID <= 0 {
		h.sendError(conn, "invalid message reference")
		return
	}
	if h.statuses != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if _, err := h.statuses.UpdateMessageStatus(ctx, p.MessageID, status); err != nil {
			slog.Warn("persist message status failed", "message_id", p.MessageID, "status", status, "err", err)
		}
		cancel()
	}
	h.hub.RelayStatus(conn.ID, p.ConversationID, p.MessageID, status)
}

func (h *Handler) decode(conn *Connection, ev Event, out any) bool {
	if len(ev.Data) == 0 {
		h.sendError(conn, "missing payload for "+ev.Event)
		return false
	}
	if err := json.Unmarshal(ev.Data, out); err != nil {
		h.sendError(conn, "malformed payload for "+ev.Event)
		return false
	}
	return true
}

func (h *Handler) sendError(conn *Connection, message string) {
	_ = conn.Send(Encode(EventError, ErrorPayload{Message: message}))
}
