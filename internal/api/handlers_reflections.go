package api

import (
	"net/http"
	"strings"

	"github.com/billowhq/billow/internal/auth"
	"github.com/billowhq/billow/internal/storage"
)

type createReflectionRequest struct {
	Type           string `json:"type"`
	Content        string `json:"content"`
	MoodScore      int    `json:"moodScore"`
	ReflectionDate string `json:"reflectionDate"`
}

func (s *Server) handleListReflections(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.PrincipalFromContext(r.Context())

	typ := r.URL.Query().Get("type")
	if !oneOf(typ, storage.ReflectionTypes) {
		writeFieldError(w, "type", "unknown reflection type")
		return
	}
	limit, offset := pagination(r, 50, 200)

	reflections, err := s.store.ListReflections(r.Context(), principal.UserID, typ, limit, offset)
	if err != nil {
		s.logger.Error().Err(err).Msg("list reflections failed")
		writeStorageError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"reflections": reflections})
}

func (s *Server) handleCreateReflection(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.PrincipalFromContext(r.Context())

	var req createReflectionRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.Content = strings.TrimSpace(req.Content)
	if req.Content == "" {
		writeFieldError(w, "content", "content is required")
		return
	}
	if len(req.Content) > maxContentLen {
		writeFieldError(w, "content", "content is too long")
		return
	}
	if !oneOf(req.Type, storage.ReflectionTypes) {
		writeFieldError(w, "type", "unknown reflection type")
		return
	}
	if req.MoodScore != 0 && (req.MoodScore < 1 || req.MoodScore > 5) {
		writeFieldError(w, "moodScore", "mood score must be between 1 and 5")
		return
	}
	if !validDate(req.ReflectionDate) {
		writeFieldError(w, "reflectionDate", "must be an ISO date (YYYY-MM-DD)")
		return
	}

	reflection, err := s.store.CreateReflection(r.Context(), principal.UserID,
		req.Type, req.Content, req.MoodScore, req.ReflectionDate)
	if err != nil {
		s.logger.Error().Err(err).Msg("create reflection failed")
		writeStorageError(w, err)
		return
	}

	s.invalidateInsights(principal.UserID)
	writeJSON(w, http.StatusCreated, reflection)
}
