package middleware

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/hawksec/hawk/internal/app"
	"github.com/hawksec/hawk/internal/auth"
	"github.com/hawksec/hawk/internal/pkg/errors"
	"github.com/hawksec/hawk/internal/pkg/utils"
)

// ContextKey is a custom type for context keys
type ContextKey string

const (
	// SessionKey is the context key for the caller's dashboard session
	SessionKey ContextKey = "session"
	// AccessTokenKey is the context key for the raw bearer token
	AccessTokenKey ContextKey = "accessToken"
)

// SessionLookup finds the open session of a user
type SessionLookup interface {
	Lookup(userID string) (*app.Session, bool)
}

// BearerToken returns the access token from the Authorization header, or
// from the accessToken cookie when the header is absent.
func BearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		parts := strings.SplitN(h, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}
	if cookie, err := r.Cookie("accessToken"); err == nil {
		return cookie.Value
	}
	return ""
}

// AuthMiddleware validates the backend access token and attaches the
// signed-in user's session. A valid token without an open session is
// rejected: the user has to sign in through this server first. Without a
// jwtSecret the signature cannot be checked, so the token must be the one
// the session holds.
func AuthMiddleware(sessions SessionLookup, jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr := BearerToken(r)
			if tokenStr == "" {
				utils.WriteError(w, errors.Unauthorized("Missing authentication token"))
				return
			}

			claims, err := auth.ParseClaims(tokenStr, jwtSecret)
			if err != nil {
				utils.WriteError(w, errors.Unauthorized("Invalid or expired token"))
				return
			}

			s, ok := sessions.Lookup(claims.UserID())
			if !ok {
				utils.WriteError(w, errors.Unauthorized("No active session, please sign in"))
				return
			}
			// an unverified token is only trusted as the session's own token
			if jwtSecret == "" && !holdsToken(s, tokenStr) {
				utils.WriteError(w, errors.Unauthorized("Invalid or expired token"))
				return
			}

			ctx := context.WithValue(r.Context(), SessionKey, s)
			ctx = context.WithValue(ctx, AccessTokenKey, tokenStr)

			AddLogField(r, "user_id", claims.UserID())
			AddLogField(r, "email", claims.Email)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// holdsToken reports whether tokenStr is the backend access token s was
// opened with
func holdsToken(s *app.Session, tokenStr string) bool {
	if s.Gateway == nil {
		return false
	}
	gs := s.Gateway.Session()
	if gs == nil || gs.AccessToken == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(gs.AccessToken), []byte(tokenStr)) == 1
}

// WithSession returns a copy of ctx carrying s
func WithSession(ctx context.Context, s *app.Session) context.Context {
	return context.WithValue(ctx, SessionKey, s)
}

// GetSession extracts the dashboard session from the request context
func GetSession(r *http.Request) (*app.Session, bool) {
	s, ok := r.Context().Value(SessionKey).(*app.Session)
	return s, ok && s != nil
}

// GetUserID returns the id of the signed-in user
func GetUserID(r *http.Request) (string, bool) {
	s, ok := GetSession(r)
	if !ok {
		return "", false
	}
	return s.User.ID, true
}
