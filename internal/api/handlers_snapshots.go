package api

import (
	"encoding/json"
	"net/http"

	"github.com/billowhq/billow/internal/auth"
)

type createSnapshotRequest struct {
	SnapshotDate string          `json:"snapshotDate"`
	Data         json.RawMessage `json:"data"`
}

// snapshotStats are the comparable fields inside a snapshot's data blob.
type snapshotStats struct {
	TasksCompleted int     `json:"tasksCompleted"`
	AvgMood        float64 `json:"avgMood"`
}

func (s *Server) handleListSnapshots(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.PrincipalFromContext(r.Context())
	limit, offset := pagination(r, 30, 100)

	snapshots, err := s.store.ListSnapshots(r.Context(), principal.UserID, limit, offset)
	if err != nil {
		s.logger.Error().Err(err).Msg("list snapshots failed")
		writeStorageError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"snapshots": snapshots})
}

func (s *Server) handleCreateSnapshot(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.PrincipalFromContext(r.Context())

	var req createSnapshotRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Data) == 0 || !json.Valid(req.Data) {
		writeFieldError(w, "data", "data must be a JSON object")
		return
	}
	if !validDate(req.SnapshotDate) {
		writeFieldError(w, "snapshotDate", "must be an ISO date (YYYY-MM-DD)")
		return
	}

	snapshot, err := s.store.CreateSnapshot(r.Context(), principal.UserID, req.SnapshotDate, req.Data)
	if err != nil {
		s.logger.Error().Err(err).Msg("create snapshot failed")
		writeStorageError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, snapshot)
}

// handleCompareSnapshots diffs the stats of two snapshots: ?a=<id>&b=<id>.
func (s *Server) handleCompareSnapshots(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.PrincipalFromContext(r.Context())

	aID := r.URL.Query().Get("a")
	bID := r.URL.Query().Get("b")
	if aID == "" || bID == "" {
		writeFieldError(w, "a", "both a and b snapshot ids are required")
		return
	}

	a, err := s.store.GetSnapshot(r.Context(), principal.UserID, aID)
	if err != nil {
		writeStorageError(w, err)
		return
	}
	b, err := s.store.GetSnapshot(r.Context(), principal.UserID, bID)
	if err != nil {
		writeStorageError(w, err)
		return
	}

	var aStats, bStats snapshotStats
	_ = json.Unmarshal(a.Data, &aStats)
	_ = json.Unmarshal(b.Data, &bStats)

	writeJSON(w, http.StatusOK, map[string]any{
		"a":           a,
		"b":           b,
		"tasksChange": bStats.TasksCompleted - aStats.TasksCompleted,
		"moodChange":  bStats.AvgMood - aStats.AvgMood,
	})
}
