package auth

import (
	"net/http"
	"strings"

	"github.com/billowhq/billow/internal/log"
)

// SessionCookieName is the cookie browsers use to carry the access token.
const SessionCookieName = "billow_session"

// ExtractToken retrieves the access token from the request.
// 1. Authorization: Bearer <token>
// 2. Cookie: billow_session
// 3. Query: ?token= (if enabled; used by websocket upgrades where headers are awkward)
func ExtractToken(r *http.Request, allowQuery bool) string {
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(auth[7:])
	}

	if c, err := r.Cookie(SessionCookieName); err == nil && c.Value != "" {
		return c.Value
	}

	if allowQuery {
		if t := r.URL.Query().Get("token"); t != "" {
			logger := log.WithComponent("auth")
			logger.Debug().
				Str("path", r.URL.Path).
				Msg("token extracted from query parameter")
			return t
		}
	}

	return ""
}
