package server

import (
	"net/http"
	"time"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, r, http.StatusOK, "Server is healthy", map[string]any{
		"status": "OK",
		"uptime": time.Since(s.startedAt).Seconds(),
	})
}

func (s *Server) handleDocs(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"title":   "BizChat API",
		"version": "1.0.0",
		"endpoints": map[string]map[string]string{
			"conversations": {
				"GET /api/conversations/business/{businessId}": "Get all conversations for a business",
				"GET /api/conversations/{id}":                  "Get conversation details",
				"GET /api/conversations/{id}/messages":         "Get messages for a conversation",
				"POST /api/conversations/{id}/messages":        "Send a new message",
				"PATCH /api/conversations/{id}/status":         "Update conversation status",
			},
			"business": {
				"GET /api/business/{businessId}":          "Get business information",
				"PATCH /api/business/{businessId}/status": "Update business status",
				"GET /api/business/{businessId}/stats":    "Get business statistics",
				"GET /api/business/{businessId}/profile":  "Get business profile with statistics",
			},
			"upload": {
				"POST /api/upload":              "Upload a file",
				"GET /api/upload/{filename}":    "Get file information",
				"DELETE /api/upload/{filename}": "Delete a file",
			},
			"system": {
				"GET /api/health": "Health check",
				"GET /api/docs":   "API documentation",
			},
		},
	})
}

func (s *Server) handleAPINotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, r, http.StatusNotFound, "NOT_FOUND",
		"The endpoint "+r.Method+" "+r.URL.Path+" does not exist",
		map[string]string{"availableEndpoints": "/api/docs"})
}
