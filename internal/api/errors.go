// Package api exposes the billow HTTP surface: auth, tasks, reflections,
// snapshots, digests, insights and system endpoints on a chi router.
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/billowhq/billow/internal/storage"
)

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error envelope.
func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

// writeFieldError writes a 400 validation failure naming the offending field.
func writeFieldError(w http.ResponseWriter, field, detail string) {
	writeJSON(w, http.StatusBadRequest, map[string]string{
		"error":  "validation failed",
		"field":  field,
		"detail": detail,
	})
}

// writeStorageError maps storage sentinel errors to HTTP statuses.
func writeStorageError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, storage.ErrDuplicateEmail):
		writeError(w, http.StatusConflict, "email already registered")
	case errors.Is(err, storage.ErrNoFields):
		writeError(w, http.StatusBadRequest, "no fields to update")
	default:
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// decodeBody decodes a JSON request body into v, rejecting unknown fields.
func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
