package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/billowhq/billow/internal/auth"
	"github.com/billowhq/billow/internal/storage"
)

type createTaskRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Status      string `json:"status"`
	Priority    string `json:"priority"`
	DueDate     string `json:"dueDate"`
}

type updateTaskRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Status      *string `json:"status"`
	Priority    *string `json:"priority"`
	DueDate     *string `json:"dueDate"`
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.PrincipalFromContext(r.Context())

	status := r.URL.Query().Get("status")
	priority := r.URL.Query().Get("priority")
	if !oneOf(status, storage.TaskStatuses) {
		writeFieldError(w, "status", "unknown status")
		return
	}
	if !oneOf(priority, storage.TaskPriorities) {
		writeFieldError(w, "priority", "unknown priority")
		return
	}
	limit, offset := pagination(r, 100, 500)

	tasks, err := s.store.ListTasks(r.Context(), principal.UserID, storage.TaskFilter{
		Status:   status,
		Priority: priority,
		Limit:    limit,
		Offset:   offset,
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("list tasks failed")
		writeStorageError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tasks": tasks})
}

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.PrincipalFromContext(r.Context())

	var req createTaskRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		writeFieldError(w, "title", "title is required")
		return
	}
	if len(req.Title) > maxTitleLen {
		writeFieldError(w, "title", "title is too long")
		return
	}
	if !oneOf(req.Status, storage.TaskStatuses) {
		writeFieldError(w, "status", "unknown status")
		return
	}
	if !oneOf(req.Priority, storage.TaskPriorities) {
		writeFieldError(w, "priority", "unknown priority")
		return
	}
	if !validDate(req.DueDate) {
		writeFieldError(w, "dueDate", "must be an ISO date (YYYY-MM-DD)")
		return
	}

	task, err := s.store.CreateTask(r.Context(), principal.UserID,
		req.Title, req.Description, req.Status, req.Priority, req.DueDate)
	if err != nil {
		s.logger.Error().Err(err).Msg("create task failed")
		writeStorageError(w, err)
		return
	}

	s.invalidateInsights(principal.UserID)
	writeJSON(w, http.StatusCreated, task)
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.PrincipalFromContext(r.Context())

	task, err := s.store.GetTask(r.Context(), principal.UserID, chi.URLParam(r, "id"))
	if err != nil {
		writeStorageError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (s *Server) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.PrincipalFromContext(r.Context())

	var req updateTaskRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Title != nil {
		trimmed := strings.TrimSpace(*req.Title)
		if trimmed == "" {
			writeFieldError(w, "title", "title must not be empty")
			return
		}
		if len(trimmed) > maxTitleLen {
			writeFieldError(w, "title", "title is too long")
			return
		}
		req.Title = &trimmed
	}
	if req.Status != nil && !oneOf(*req.Status, storage.TaskStatuses) {
		writeFieldError(w, "status", "unknown status")
		return
	}
	if req.Priority != nil && !oneOf(*req.Priority, storage.TaskPriorities) {
		writeFieldError(w, "priority", "unknown priority")
		return
	}
	if req.DueDate != nil && !validDate(*req.DueDate) {
		writeFieldError(w, "dueDate", "must be an ISO date (YYYY-MM-DD)")
		return
	}

	task, err := s.store.UpdateTask(r.Context(), principal.UserID, chi.URLParam(r, "id"), storage.TaskUpdate{
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
		Priority:    req.Priority,
		DueDate:     req.DueDate,
	})
	if err != nil {
		writeStorageError(w, err)
		return
	}

	s.invalidateInsights(principal.UserID)
	writeJSON(w, http.StatusOK, task)
}

func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.PrincipalFromContext(r.Context())

	if err := s.store.DeleteTask(r.Context(), principal.UserID, chi.URLParam(r, "id")); err != nil {
		writeStorageError(w, err)
		return
	}

	s.invalidateInsights(principal.UserID)
	w.WriteHeader(http.StatusNoContent)
}
