package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"bizchat/internal/storage"
	"bizchat/internal/store"
	"bizchat/internal/util"
)

// successEnvelope is the wrapper every 2xx response carries.
type successEnvelope struct {
	Success    bool      `json:"success"`
	StatusCode int       `json:"statusCode"`
	Message    string    `json:"message"`
	Data       any       `json:"data"`
	Timestamp  time.Time `json:"timestamp"`
	RequestID  string    `json:"requestId,omitempty"`
}

type errorEnvelope struct {
	Success    bool      `json:"success"`
	StatusCode int       `json:"statusCode"`
	Error      string    `json:"error"`
	Message    string    `json:"message"`
	Details    any       `json:"details,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
	RequestID  string    `json:"requestId,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeSuccess(w http.ResponseWriter, r *http.Request, status int, message string, data any) {
	writeJSON(w, status, successEnvelope{
		Success:    true,
		StatusCode: status,
		Message:    message,
		Data:       data,
		Timestamp:  time.Now().UTC(),
		RequestID:  util.RequestIDFromRequest(r),
	})
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string, details any) {
	writeJSON(w, status, errorEnvelope{
		Success:    false,
		StatusCode: status,
		Error:      code,
		Message:    message,
		Details:    details,
		Timestamp:  time.Now().UTC(),
		RequestID:  util.RequestIDFromRequest(r),
	})
}

// writeAppError maps the storage and upload error taxonomy onto envelopes.
// Database detail never reaches the caller; it is logged upstream.
func writeAppError(w http.ResponseWriter, r *http.Request, err error) {
	var validation *store.ValidationError
	var upload *storage.UploadError
	switch {
	case errors.As(err, &validation):
		var details any
		if len(validation.Fields) > 0 {
			details = map[string][]string{"missingFields": validation.Fields}
		}
		writeError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", validation.Message, details)
	case errors.As(err, &upload):
		writeError(w, r, http.StatusBadRequest, "FILE_UPLOAD_ERROR", upload.Message, nil)
	case errors.Is(err, store.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "NOT_FOUND", "Resource not found", nil)
	case errors.Is(err, storage.ErrFileNotFound):
		writeError(w, r, http.StatusNotFound, "NOT_FOUND", "File not found", nil)
	case errors.Is(err, store.ErrDatabase):
		util.LoggerFromContext(r.Context()).Error("database error", "err", err)
		writeError(w, r, http.StatusInternalServerError, "DATABASE_ERROR", "Database operation failed", nil)
	default:
		util.LoggerFromContext(r.Context()).Error("internal error", "err", err)
		writeError(w, r, http.StatusInternalServerError, "SERVER_ERROR", "Internal server error", nil)
	}
}
