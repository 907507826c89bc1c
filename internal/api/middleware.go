// Package api implements the LifeONE REST API using chi.
package api

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"

	"github.com/starford/lifeone/internal/auth"
)

// Auth modes.
const (
	AuthDisabled = "disabled"
	AuthToken    = "token"
	AuthJWT      = "jwt"
)

// AuthConfig selects how API requests are authenticated.
type AuthConfig struct {
	Mode  string
	Token string
	JWT   *auth.JWTManager
}

// AuthMiddleware validates the bearer token of each request.
//
//	disabled: every request passes.
//	token:    the bearer must equal the configured static token.
//	jwt:      the bearer must be an HS256 token signed with the configured secret.
func AuthMiddleware(cfg AuthConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cfg.Mode == AuthDisabled || cfg.Mode == "" {
				next.ServeHTTP(w, r)
				return
			}
			bearer, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok {
				// EventSource cannot set headers.
				bearer = r.URL.Query().Get("access_token")
			}
			if !authorized(cfg, bearer) {
				writeJSON(w, http.StatusUnauthorized, errorBody("unauthorized"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func authorized(cfg AuthConfig, bearer string) bool {
	if bearer == "" {
		return false
	}
	switch cfg.Mode {
	case AuthToken:
		return subtle.ConstantTimeCompare([]byte(bearer), []byte(cfg.Token)) == 1
	case AuthJWT:
		if cfg.JWT == nil {
			return false
		}
		if _, err := cfg.JWT.Validate(bearer); err != nil {
			slog.Debug("jwt rejected", slog.String("error", err.Error()))
			return false
		}
		return true
	default:
		return false
	}
}
