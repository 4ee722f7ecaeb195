package server

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"bizchat/internal/domain"
)

func (s *Server) handleGetBusiness(w http.ResponseWriter, r *http.Request) {
	businessID := r.PathValue("businessId")
	if !validBusinessID(businessID) {
		writeError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid business ID format", nil)
		return
	}
	business, found, err := s.store.GetBusiness(r.Context(), businessID)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	if !found {
		writeError(w, r, http.StatusNotFound, "NOT_FOUND", "Business not found", nil)
		return
	}
	writeSuccess(w, r, http.StatusOK, "Data retrieved successfully", business)
}

func (s *Server) handleBusinessStatus(w http.ResponseWriter, r *http.Request) {
	businessID := r.PathValue("businessId")
	if !validBusinessID(businessID) {
		writeError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid business ID format", nil)
		return
	}
	var req statusRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid JSON body", nil)
		return
	}
	status, ok := domain.ParseBusinessStatus(req.Status)
	if !ok {
		writeError(w, r, http.StatusBadRequest, "VALIDATION_ERROR",
			"Status must be one of: online, offline, busy, away", nil)
		return
	}
	updated, err := s.store.UpdateBusinessStatus(r.Context(), businessID, status)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	if !updated {
		writeError(w, r, http.StatusNotFound, "NOT_FOUND", "Business not found", nil)
		return
	}
	business, _, err := s.store.GetBusiness(r.Context(), businessID)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeSuccess(w, r, http.StatusOK, "Business status updated successfully", business)
}

func (s *Server) handleBusinessStats(w http.ResponseWriter, r *http.Request) {
	businessID := r.PathValue("businessId")
	if !validBusinessID(businessID) {
		writeError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid business ID format", nil)
		return
	}
	if _, found, err := s.store.GetBusiness(r.Context(), businessID); err != nil {
		writeAppError(w, r, err)
		return
	} else if !found {
		writeError(w, r, http.StatusNotFound, "NOT_FOUND", "Business not found", nil)
		return
	}
	stats, err := s.store.BusinessStats(r.Context(), businessID)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeSuccess(w, r, http.StatusOK, "Data retrieved successfully", stats)
}

func (s *Server) handleBusinessProfile(w http.ResponseWriter, r *http.Request) {
	businessID := r.PathValue("businessId")
	if !validBusinessID(businessID) {
		writeError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid business ID format", nil)
		return
	}
	business, found, err := s.store.GetBusiness(r.Context(), businessID)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	if !found {
		writeError(w, r, http.StatusNotFound, "NOT_FOUND", "Business not found", nil)
		return
	}
	stats, err := s.store.BusinessStats(r.Context(), businessID)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeSuccess(w, r, http.StatusOK, "Data retrieved successfully", map[string]any{
		"id":          business.ID,
		"name":        business.Name,
		"logoUrl":     business.LogoURL,
		"status":      business.Status,
		"createdAt":   business.CreatedAt,
		"statistics":  stats,
		"lastUpdated": time.Now().UTC(),
	})
}
