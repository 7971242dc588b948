package auth

import (
	"context"
	"errors"
	"net/http"

	"github.com/billowhq/billow/internal/log"
)

type principalCtxKey struct{}

// ContextWithPrincipal stores the authenticated principal in ctx.
func ContextWithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalCtxKey{}, p)
}

// PrincipalFromContext returns the authenticated principal, if any.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalCtxKey{}).(Principal)
	return p, ok
}

// Verifier validates an access token and resolves it to a principal.
type Verifier interface {
	VerifyAccess(token string) (Principal, error)
}

// Middleware enforces a valid access token on every wrapped route and stores
// the resulting principal in the request context.
func Middleware(verifier Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := ExtractToken(r, false)
			if token == "" {
				writeAuthError(w, http.StatusUnauthorized, "no token provided")
				return
			}

			principal, err := verifier.VerifyAccess(token)
			if err != nil {
				logger := log.WithComponentFromContext(r.Context(), "auth")
				logger.Debug().Err(err).Str(log.FieldPath, r.URL.Path).Msg("token rejected")
				if errors.Is(err, ErrTokenExpired) {
					writeAuthError(w, http.StatusUnauthorized, "token expired")
					return
				}
				writeAuthError(w, http.StatusUnauthorized, "invalid token")
				return
			}

			next.ServeHTTP(w, r.WithContext(ContextWithPrincipal(r.Context(), principal)))
		})
	}
}

func writeAuthError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write([]byte(`{"error":"` + msg + `"}`))
}
