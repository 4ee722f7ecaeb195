package server

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"bizchat/internal/domain"
	"bizchat/internal/storage"
	"bizchat/internal/store"
	"bizchat/internal/util"
)

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if s.files == nil {
		writeError(w, r, http.StatusInternalServerError, "SERVER_ERROR", "File storage not configured", nil)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes+1<<20)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid form data", nil)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "No file uploaded", nil)
		return
	}
	defer file.Close()

	var missing []string
	rawConvID := strings.TrimSpace(r.FormValue("conversationId"))
	if rawConvID == "" {
		missing = append(missing, "conversationId")
	}
	senderName := strings.TrimSpace(r.FormValue("senderId"))
	if senderName == "" {
		missing = append(missing, "senderId")
	}
	rawSenderType := strings.TrimSpace(r.FormValue("senderType"))
	if rawSenderType == "" {
		missing = append(missing, "senderType")
	}
	if len(missing) > 0 {
		writeError(w, r, http.StatusBadRequest, "VALIDATION_ERROR",
			"Missing required fields: "+strings.Join(missing, ", "),
			map[string][]string{"missingFields": missing})
		return
	}
	conversationID, ok := parseConversationID(rawConvID)
	if !ok {
		writeError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid conversation ID format", nil)
		return
	}
	senderType, ok := domain.ParseSenderType(rawSenderType)
	if !ok {
		writeError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", `Sender type must be either "customer" or "business"`, nil)
		return
	}

	// Conversation check runs before anything hits disk.
	if _, found, err := s.store.GetConversation(r.Context(), conversationID); err != nil {
		writeAppError(w, r, err)
		return
	} else if !found {
		writeError(w, r, http.StatusNotFound, "NOT_FOUND", "Conversation not found", nil)
		return
	}

	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = storage.MIMEFromExtension(header.Filename)
	}
	saved, err := s.files.Save(header.Filename, mimeType, file)
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	messageType := domain.MessageFile
	if saved.IsImage {
		messageType = domain.MessageImage
	}
	msg, err := s.store.CreateMessage(r.Context(), store.NewMessage{
		ConversationID: conversationID,
		SenderType:     senderType,
		SenderName:     senderName,
		Content:        fmt.Sprintf("Sent a %s", messageType),
		Type:           messageType,
		FileURL:        saved.URL,
		FileName:       saved.OriginalName,
	})
	if err != nil {
		if removeErr := s.files.Remove(saved.StoredName); removeErr != nil {
			util.LoggerFromContext(r.Context()).Warn("orphan upload cleanup failed",
				"file", saved.StoredName, "err", removeErr)
		}
		writeAppError(w, r, err)
		return
	}
	s.afterMessageCreated(r.Context(), msg)

	writeSuccess(w, r, http.StatusCreated, "File uploaded successfully", map[string]any{
		"message": msg,
		"file": map[string]any{
			"id":           saved.StoredName,
			"originalName": saved.OriginalName,
			"filename":     saved.StoredName,
			"size":         saved.Size,
			"mimetype":     saved.MIMEType,
			"url":          saved.URL,
			"isImage":      saved.IsImage,
			"uploadedAt":   time.Now().UTC(),
		},
	})
}

func (s *Server) handleFileInfo(w http.ResponseWriter, r *http.Request) {
	if s.files == nil {
		writeError(w, r, http.StatusInternalServerError, "SERVER_ERROR", "File storage not configured", nil)
		return
	}
	info, err := s.files.Info(r.PathValue("filename"))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeSuccess(w, r, http.StatusOK, "Data retrieved successfully", map[string]any{
		"filename": info.StoredName,
		"size":     info.Size,
		"mimetype": info.MIMEType,
		"isImage":  info.IsImage,
		"url":      info.URL,
	})
}

func (s *Server) handleDeleteFile(w http.ResponseWriter, r *http.Request) {
	if s.files == nil {
		writeError(w, r, http.StatusInternalServerError, "SERVER_ERROR", "File storage not configured", nil)
		return
	}
	filename := r.PathValue("filename")
	if err := s.files.Remove(filename); err != nil {
		writeAppError(w, r, err)
		return
	}
	writeSuccess(w, r, http.StatusOK, "File deleted successfully", map[string]any{
		"filename": filename,
		"deleted":  true,
	})
}
