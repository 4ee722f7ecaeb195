package server

import (
	"net/http"
	"time"

	"bizchat/internal/ratelimit"
	"bizchat/internal/realtime"
	"bizchat/internal/storage"
	"bizchat/internal/store"
	"bizchat/internal/util"
)

// Config wires required dependencies for the HTTP server.
type Config struct {
	Store          store.Store
	Files          *storage.FileStore
	Hub            *realtime.Hub
	Realtime       *realtime.Handler
	Limiter        *ratelimit.FixedWindowLimiter
	TrustedProxies *util.TrustedProxies
	CORSOrigin     string
	MaxUploadBytes int64
}

// Server exposes the REST API, the upload endpoints, static file serving,
// and the websocket endpoint.
type Server struct {
	store          store.Store
	files          *storage.FileStore
	hub            *realtime.Hub
	mux            *http.ServeMux
	limiter        *ratelimit.FixedWindowLimiter
	trusted        *util.TrustedProxies
	corsOrigin     string
	maxUploadBytes int64
	startedAt      time.Time
}

// New constructs the server with routes configured.
func New(cfg Config) *Server {
	maxUploadBytes := cfg.MaxUploadBytes
	if maxUploadBytes <= 0 {
		maxUploadBytes = 10 * 1024 * 1024
	}
	corsOrigin := cfg.CORSOrigin
	if corsOrigin == "" {
		corsOrigin = "*"
	}
	s := &Server{
		store:          cfg.Store,
		files:          cfg.Files,
		hub:            cfg.Hub,
		mux:            http.NewServeMux(),
		limiter:        cfg.Limiter,
		trusted:        cfg.TrustedProxies,
		corsOrigin:     corsOrigin,
		maxUploadBytes: maxUploadBytes,
		startedAt:      time.Now(),
	}
	s.routes(cfg.Realtime)
	return s
}

// Router returns the configured handler with the middleware chain applied.
func (s *Server) Router() http.Handler {
	return util.WithRequestID(util.WithRequestLog(util.WithSecurityHeaders(util.WithCORS(s.corsOrigin, s.withRecover(s.mux)))))
}

func (s *Server) routes(rt *realtime.Handler) {
	api := http.NewServeMux()

	// conversations
	// The business listing and the per-conversation subresources share the
	// /api/conversations prefix, so the GET side uses a two-wildcard pattern
	// with the literal business segment registered alongside it. ServeMux
	// precedence routes /business/* to the listing and everything else to
	// the subresource dispatch.
	api.HandleFunc("GET /api/conversations/business/{businessId}", s.handleListConversations)
	api.HandleFunc("GET /api/conversations/{id}", s.handleGetConversation)
	api.HandleFunc("GET /api/conversations/{id}/{sub}", s.handleConversationSubresource)
	api.HandleFunc("POST /api/conversations/{id}/messages", s.handleSendMessage)
	api.HandleFunc("PATCH /api/conversations/{id}/status", s.handleConversationStatus)

	// business
	api.HandleFunc("GET /api/business/{businessId}", s.handleGetBusiness)
	api.HandleFunc("PATCH /api/business/{businessId}/status", s.handleBusinessStatus)
	api.HandleFunc("GET /api/business/{businessId}/stats", s.handleBusinessStats)
	api.HandleFunc("GET /api/business/{businessId}/profile", s.handleBusinessProfile)

	// upload
	api.HandleFunc("POST /api/upload", s.handleUpload)
	api.HandleFunc("GET /api/upload/{filename}", s.handleFileInfo)
	api.HandleFunc("DELETE /api/upload/{filename}", s.handleDeleteFile)

	// system
	api.HandleFunc("GET /api/health", s.handleHealth)
	api.HandleFunc("GET /api/docs", s.handleDocs)
	api.HandleFunc("/api/", s.handleAPINotFound)

	s.mux.Handle("/api/", s.withRateLimit(api))
	if s.files != nil {
		s.mux.Handle("/uploads/", http.StripPrefix("/uploads/", http.FileServer(http.Dir(s.files.BasePath()))))
	}
	if rt != nil {
		s.mux.Handle("/ws", rt)
	}
}

func (s *Server) withRecover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				util.LoggerFromContext(r.Context()).Error("panic recovered", "err", rec, "path", r.URL.Path)
				writeError(w, r, http.StatusInternalServerError, "SERVER_ERROR", "Internal server error", nil)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) withRateLimit(next http.Handler) http.Handler {
	if s.limiter == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow(util.ClientIP(r, s.trusted)) {
			writeError(w, r, http.StatusTooManyRequests, "RATE_LIMIT_EXCEEDED", "Too many requests, please try again later", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}
