package api

import (
	"net/http"

	"github.com/billowhq/billow/internal/auth"
)

var digestTypes = []string{"daily", "weekly", "monthly"}

type generateDigestRequest struct {
	DigestType  string `json:"digestType"`
	PeriodStart string `json:"periodStart"`
	PeriodEnd   string `json:"periodEnd"`
}

func (s *Server) handleListDigests(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.PrincipalFromContext(r.Context())

	typ := r.URL.Query().Get("type")
	if !oneOf(typ, digestTypes) {
		writeFieldError(w, "type", "unknown digest type")
		return
	}
	limit, offset := pagination(r, 10, 50)

	digests, err := s.store.ListDigests(r.Context(), principal.UserID, typ, limit, offset)
	if err != nil {
		s.logger.Error().Err(err).Msg("list digests failed")
		writeStorageError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"digests": digests})
}

func (s *Server) handleGenerateDigest(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.PrincipalFromContext(r.Context())

	var req generateDigestRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.DigestType == "" {
		req.DigestType = "weekly"
	}
	if !oneOf(req.DigestType, digestTypes) {
		writeFieldError(w, "digestType", "unknown digest type")
		return
	}
	if req.PeriodStart == "" || !validDate(req.PeriodStart) {
		writeFieldError(w, "periodStart", "must be an ISO date (YYYY-MM-DD)")
		return
	}
	if req.PeriodEnd == "" || !validDate(req.PeriodEnd) {
		writeFieldError(w, "periodEnd", "must be an ISO date (YYYY-MM-DD)")
		return
	}
	if req.PeriodEnd < req.PeriodStart {
		writeFieldError(w, "periodEnd", "period end must not precede period start")
		return
	}

	digest, err := s.store.GenerateDigest(r.Context(), principal.UserID,
		req.DigestType, req.PeriodStart, req.PeriodEnd)
	if err != nil {
		s.logger.Error().Err(err).Msg("generate digest failed")
		writeStorageError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, digest)
}
