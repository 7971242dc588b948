// Package auth issues and verifies the JWT credentials consumed by the API
// and the focus websocket gateway.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidToken is returned for malformed, mis-signed or wrong-purpose tokens.
	ErrInvalidToken = errors.New("invalid token")
	// ErrTokenExpired is returned when a token is past its expiry.
	ErrTokenExpired = errors.New("token expired")
)

// Claims is the payload carried by billow access tokens.
type Claims struct {
	UserID  string `json:"userId"`
	Email   string `json:"email,omitempty"`
	IsGuest bool   `json:"isGuest"`
	jwt.RegisteredClaims
}

// Manager signs and verifies access and refresh tokens with separate secrets.
type Manager struct {
	secret        []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

// NewManager creates a token manager. Both secrets are required.
func NewManager(secret, refreshSecret string, accessTTL, refreshTTL time.Duration) (*Manager, error) {
	if strings.TrimSpace(secret) == "" || strings.TrimSpace(refreshSecret) == "" {
		return nil, errors.New("jwt secrets are required")
	}
	return &Manager{
		secret:        []byte(secret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
	}, nil
}

// IssueAccess signs a new access token for the given principal.
func (m *Manager) IssueAccess(p Principal) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID:  p.UserID,
		Email:   p.Email,
		IsGuest: p.IsGuest,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.accessTTL)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}
	return signed, nil
}

// IssueRefresh signs a new refresh token carrying only the user id.
func (m *Manager) IssueRefresh(userID string) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.refreshTTL)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.refreshSecret)
	if err != nil {
		return "", fmt.Errorf("sign refresh token: %w", err)
	}
	return signed, nil
}

// VerifyAccess validates an access token and returns the principal it names.
func (m *Manager) VerifyAccess(token string) (Principal, error) {
	return m.verify(token, m.secret)
}

// VerifyRefresh validates a refresh token and returns the principal it names.
func (m *Manager) VerifyRefresh(token string) (Principal, error) {
	return m.verify(token, m.refreshSecret)
}

func (m *Manager) verify(token string, secret []byte) (Principal, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Principal{}, ErrTokenExpired
		}
		return Principal{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid || strings.TrimSpace(claims.UserID) == "" {
		return Principal{}, ErrInvalidToken
	}
	return Principal{
		UserID:  claims.UserID,
		Email:   claims.Email,
		IsGuest: claims.IsGuest,
	}, nil
}
