package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"bizchat/internal/domain"
	"bizchat/internal/store"
	"bizchat/internal/util"
)

func (s *Server) handleListConversations(w http.ResponseWriter, r *http.Request) {
	businessID := r.PathValue("businessId")
	if !validBusinessID(businessID) {
		writeError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid business ID format", nil)
		return
	}

	var (
		conversations []domain.Conversation
		err           error
	)
	if term := strings.TrimSpace(r.URL.Query().Get("search")); term != "" {
		conversations, err = s.store.SearchConversations(r.Context(), businessID, term)
	} else {
		conversations, err = s.store.ListConversations(r.Context(), businessID)
	}
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	if conversations == nil {
		conversations = []domain.Conversation{}
	}
	writeSuccess(w, r, http.StatusOK, "Data retrieved successfully", conversations)
}

func (s *Server) handleGetConversation(w http.ResponseWriter, r *http.Request) {
	id, ok := parseConversationID(r.PathValue("id"))
	if !ok {
		writeError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid conversation ID format", nil)
		return
	}
	conv, found, err := s.store.GetConversation(r.Context(), id)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	if !found {
		writeError(w, r, http.StatusNotFound, "NOT_FOUND", "Conversation not found", nil)
		return
	}
	writeSuccess(w, r, http.StatusOK, "Data retrieved successfully", conv)
}

// handleConversationSubresource fans GET /api/conversations/{id}/{sub} out to
// the known subresources. Anything but messages is an unknown endpoint.
func (s *Server) handleConversationSubresource(w http.ResponseWriter, r *http.Request) {
	if r.PathValue("sub") != "messages" {
		s.handleAPINotFound(w, r)
		return
	}
	s.handleListMessages(w, r)
}

func (s *Server) handleListMessages(w http.ResponseWriter, r *http.Request) {
	id, ok := parseConversationID(r.PathValue("id"))
	if !ok {
		writeError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid conversation ID format", nil)
		return
	}
	limit, offset, reason, ok := parsePagination(r)
	if !ok {
		writeError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", reason, nil)
		return
	}
	conv, found, err := s.store.GetConversation(r.Context(), id)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	if !found {
		writeError(w, r, http.StatusNotFound, "NOT_FOUND", "Conversation not found", nil)
		return
	}
	messages, err := s.store.ListMessages(r.Context(), id, limit, offset)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	if messages == nil {
		messages = []domain.Message{}
	}
	writeSuccess(w, r, http.StatusOK, "Data retrieved successfully", map[string]any{
		"messages":     messages,
		"conversation": conv,
		"pagination": map[string]int{
			"limit":  limit,
			"offset": offset,
			"total":  len(messages),
		},
	})
}

type sendMessageRequest struct {
	Content     string `json:"content"`
	SenderID    string `json:"senderId"`
	SenderName  string `json:"senderName"`
	SenderType  string `json:"senderType"`
	MessageType string `json:"messageType"`
	FileURL     string `json:"fileUrl"`
	FileName    string `json:"fileName"`
}

func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	id, ok := parseConversationID(r.PathValue("id"))
	if !ok {
		writeError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid conversation ID format", nil)
		return
	}
	var req sendMessageRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid JSON body", nil)
		return
	}

	var missing []string
	fileURL := strings.TrimSpace(req.FileURL)
	if strings.TrimSpace(req.Content) == "" && fileURL == "" {
		missing = append(missing, "content")
	}
	senderName := strings.TrimSpace(req.SenderName)
	if senderName == "" {
		senderName = strings.TrimSpace(req.SenderID)
	}
	if senderName == "" {
		missing = append(missing, "senderId")
	}
	if strings.TrimSpace(req.SenderType) == "" {
		missing = append(missing, "senderType")
	}
	if len(missing) > 0 {
		writeError(w, r, http.StatusBadRequest, "VALIDATION_ERROR",
			"Missing required fields: "+strings.Join(missing, ", "),
			map[string][]string{"missingFields": missing})
		return
	}
	if utf8.RuneCountInString(req.Content) > maxContentLength {
		writeError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "Message content cannot exceed 1000 characters", nil)
		return
	}
	senderType, ok := domain.ParseSenderType(req.SenderType)
	if !ok {
		writeError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", `Sender type must be either "customer" or "business"`, nil)
		return
	}
	msgType := domain.MessageText
	if fileURL != "" {
		msgType = domain.MessageFile
	}
	if raw := strings.TrimSpace(req.MessageType); raw != "" {
		msgType, ok = domain.ParseMessageType(raw)
		if !ok {
			writeError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "Message type must be one of: text, image, file", nil)
			return
		}
	}

	msg, err := s.store.CreateMessage(r.Context(), store.NewMessage{
		ConversationID: id,
		SenderType:     senderType,
		SenderName:     senderName,
		Content:        req.Content,
		Type:           msgType,
		FileURL:        fileURL,
		FileName:       strings.TrimSpace(req.FileName),
	})
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	s.afterMessageCreated(r.Context(), msg)

	writeSuccess(w, r, http.StatusCreated, "Message sent successfully", msg)
}

// afterMessageCreated runs the post-write side effects. The message is already
// durable, so broadcast and activity-bump failures are logged, never surfaced.
func (s *Server) afterMessageCreated(ctx context.Context, msg domain.Message) {
	if s.hub != nil {
		s.hub.PublishNewMessage(msg)
	}
	touchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.store.TouchConversation(touchCtx, msg.ConversationID); err != nil {
		util.LoggerFromContext(ctx).Warn("conversation activity bump failed",
			"conversation_id", msg.ConversationID, "err", err)
	}
}

type statusRequest struct {
	Status string `json:"status"`
}

func (s *Server) handleConversationStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := parseConversationID(r.PathValue("id"))
	if !ok {
		writeError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid conversation ID format", nil)
		return
	}
	var req statusRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid JSON body", nil)
		return
	}
	status, ok := domain.ParseConversationStatus(req.Status)
	if !ok {
		writeError(w, r, http.StatusBadRequest, "VALIDATION_ERROR",
			"Status must be one of: active, resolved, closed, archived", nil)
		return
	}
	updated, err := s.store.UpdateConversationStatus(r.Context(), id, status)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	if !updated {
		writeError(w, r, http.StatusNotFound, "NOT_FOUND", "Conversation not found", nil)
		return
	}
	conv, _, err := s.store.GetConversation(r.Context(), id)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeSuccess(w, r, http.StatusOK, "Conversation status updated successfully", conv)
}
