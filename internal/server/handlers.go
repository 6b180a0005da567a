package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/effortless-app/effortless-server/internal/database"
)

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		fmt.Printf("Error encoding JSON response: %v\n", err)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(r.PathValue("id"), 10, 64)
}

// Health Check

func (s *Server) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	if err := s.db.Ping(); err != nil {
		respondError(w, http.StatusServiceUnavailable, "database unavailable")
		return
	}

	status := map[string]interface{}{
		"status":   "healthy",
		"whatsapp": "disconnected",
	}
	if s.waClient != nil && s.waClient.IsLoggedIn() {
		status["whatsapp"] = "connected"
	}

	respondJSON(w, http.StatusOK, status)
}

// Users API

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PhoneNumber string `json:"phone_number"`
		Email       string `json:"email"`
		Name        string `json:"name"`
		Timezone    string `json:"timezone"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.PhoneNumber == "" && req.Email == "" {
		respondError(w, http.StatusBadRequest, "phone_number or email is required")
		return
	}

	user := &database.User{
		Email:    req.Email,
		Name:     req.Name,
		Timezone: req.Timezone,
	}
	if req.PhoneNumber != "" {
		user.PhoneNumber = &req.PhoneNumber
	}

	created, err := s.db.CreateUser(user)
	if err != nil {
		s.logger.Error("failed to create user", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to create user")
		return
	}

	respondJSON(w, http.StatusCreated, created)
}

// Tags API

func (s *Server) handleListTags(w http.ResponseWriter, r *http.Request) {
	tags, err := s.db.GetUserTags(r.PathValue("id"))
	if err != nil {
		s.logger.Error("failed to list tags", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to list tags")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"tags": tags})
}

func (s *Server) handleCreateTag(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Name) == "" {
		respondError(w, http.StatusBadRequest, "tag name is required")
		return
	}

	tag, err := s.db.CreateTag(r.PathValue("id"), strings.TrimSpace(req.Name))
	if err != nil {
		s.logger.Error("failed to create tag", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to create tag")
		return
	}
	respondJSON(w, http.StatusCreated, tag)
}

func (s *Server) handleShareTag(w http.ResponseWriter, r *http.Request) {
	tagID, err := pathID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid tag id")
		return
	}

	var req struct {
		OwnerID    string `json:"owner_id"`
		SharedWith string `json:"shared_with"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.OwnerID == "" || req.SharedWith == "" {
		respondError(w, http.StatusBadRequest, "owner_id and shared_with are required")
		return
	}

	share, err := s.db.ShareTag(tagID, req.OwnerID, req.SharedWith)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	respondJSON(w, http.StatusCreated, share)
}

func (s *Server) handleAcceptShare(w http.ResponseWriter, r *http.Request) {
	shareID, err := pathID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid share id")
		return
	}

	if err := s.db.AcceptTagShare(shareID); err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "accepted"})
}

// Extraction API

func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID string `json:"user_id"`
		Text   string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserID == "" || strings.TrimSpace(req.Text) == "" {
		respondError(w, http.StatusBadRequest, "user_id and text are required")
		return
	}

	result, err := s.extractor.ExtractAndCreate(r.Context(), req.UserID, req.Text)
	if err != nil {
		s.logger.Error("extraction failed",
			zap.String("user_id", req.UserID),
			zap.Error(err))
		respondError(w, http.StatusInternalServerError, "extraction failed")
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// Pulse API

func (s *Server) handlePulse(w http.ResponseWriter, r *http.Request) {
	stats, err := s.sweeper.SweepNow(r.Context())
	if err != nil {
		s.logger.Error("pulse sweep failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "pulse sweep failed")
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

// Subscriptions API

func (s *Server) handleReconcile(w http.ResponseWriter, r *http.Request) {
	tally, err := s.reconciler.ReconcileAll(r.Context())
	if err != nil {
		s.logger.Error("subscription reconciliation failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "reconciliation failed")
		return
	}
	respondJSON(w, http.StatusOK, tally)
}
