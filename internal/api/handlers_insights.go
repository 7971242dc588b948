package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/billowhq/billow/internal/auth"
)

func (s *Server) handleWeeklyInsights(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.PrincipalFromContext(r.Context())

	weeks := queryInt(r, "weeks", 12)
	if weeks <= 0 || weeks > 52 {
		weeks = 12
	}

	key := fmt.Sprintf("insights:%s:weekly:%d", principal.UserID, weeks)
	if cached, ok := s.cache.Get(key); ok {
		writeRawJSON(w, cached)
		return
	}

	insights, err := s.store.WeeklyInsights(r.Context(), principal.UserID, weeks)
	if err != nil {
		s.logger.Error().Err(err).Msg("weekly insights failed")
		writeStorageError(w, err)
		return
	}

	s.respondAndCache(w, key, map[string]any{"weeks": insights})
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.PrincipalFromContext(r.Context())

	days := queryInt(r, "days", 30)
	if days <= 0 || days > 365 {
		days = 30
	}

	key := fmt.Sprintf("insights:%s:dashboard:%d", principal.UserID, days)
	if cached, ok := s.cache.Get(key); ok {
		writeRawJSON(w, cached)
		return
	}

	aggregates, err := s.store.DashboardAggregates(r.Context(), principal.UserID, days)
	if err != nil {
		s.logger.Error().Err(err).Msg("dashboard aggregates failed")
		writeStorageError(w, err)
		return
	}

	s.respondAndCache(w, key, map[string]any{"days": aggregates})
}

// respondAndCache serializes v once, stores it under key and writes it.
func (s *Server) respondAndCache(w http.ResponseWriter, key string, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	s.cache.Set(key, body, insightsTTL)
	writeRawJSON(w, body)
}

func writeRawJSON(w http.ResponseWriter, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}
