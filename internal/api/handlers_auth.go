package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/billowhq/billow/internal/auth"
	"github.com/billowhq/billow/internal/log"
	"github.com/billowhq/billow/internal/storage"
)

type registerRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type userResponse struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName,omitempty"`
	IsGuest     bool   `json:"isGuest"`
}

type authResponse struct {
	User         userResponse `json:"user"`
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken"`
}

func toUserResponse(u *storage.User) userResponse {
	return userResponse{
		ID:          u.ID,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		IsGuest:     u.IsGuest,
	}
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if !validEmail(req.Email) {
		writeFieldError(w, "email", "a valid email address is required")
		return
	}
	if len(req.Password) < 8 {
		writeFieldError(w, "password", "password must be at least 8 characters")
		return
	}
	if len(req.DisplayName) > 100 {
		writeFieldError(w, "displayName", "display name must be at most 100 characters")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	user, err := s.store.CreateUser(r.Context(), req.Email, hash, req.DisplayName, false)
	if err != nil {
		if !errors.Is(err, storage.ErrDuplicateEmail) {
			s.logger.Error().Err(err).Msg("create user failed")
		}
		writeStorageError(w, err)
		return
	}

	s.logger.Info().Str(log.FieldUserID, user.ID).Msg("user registered")
	s.issueTokens(w, user, http.StatusCreated)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := s.store.UserByEmail(r.Context(), strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		s.logger.Error().Err(err).Msg("lookup user failed")
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if !auth.CheckPassword(user.PasswordHash, req.Password) {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	s.logger.Info().Str(log.FieldUserID, user.ID).Msg("user logged in")
	s.issueTokens(w, user, http.StatusOK)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeBody(r, &req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		writeError(w, http.StatusBadRequest, "refreshToken is required")
		return
	}

	principal, err := s.tokens.VerifyRefresh(req.RefreshToken)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid refresh token")
		return
	}

	// The account must still exist; refresh tokens outlive deletions.
	user, err := s.store.UserByID(r.Context(), principal.UserID)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid refresh token")
		return
	}

	s.issueTokens(w, user, http.StatusOK)
}

// handleDemo creates a throwaway guest account with a random identity.
func (s *Server) handleDemo(w http.ResponseWriter, r *http.Request) {
	id := uuid.NewString()
	email := fmt.Sprintf("guest-%s@billow.local", id[:8])

	hash, err := auth.HashPassword(uuid.NewString())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	user, err := s.store.CreateUser(r.Context(), email, hash, "Guest", true)
	if err != nil {
		s.logger.Error().Err(err).Msg("create guest failed")
		writeStorageError(w, err)
		return
	}

	s.logger.Info().Str(log.FieldUserID, user.ID).Msg("guest account created")
	s.issueTokens(w, user, http.StatusCreated)
}

// issueTokens signs the token pair, sets the session cookie and writes the
// auth response.
func (s *Server) issueTokens(w http.ResponseWriter, user *storage.User, code int) {
	principal := auth.Principal{UserID: user.ID, Email: user.Email, IsGuest: user.IsGuest}

	access, err := s.tokens.IssueAccess(principal)
	if err != nil {
		s.logger.Error().Err(err).Msg("sign access token failed")
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	refresh, err := s.tokens.IssueRefresh(user.ID)
	if err != nil {
		s.logger.Error().Err(err).Msg("sign refresh token failed")
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookieName,
		Value:    access,
		Path:     "/",
		MaxAge:   int(s.cfg.AccessTokenTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	writeJSON(w, code, authResponse{
		User:         toUserResponse(user),
		AccessToken:  access,
		RefreshToken: refresh,
	})
}
