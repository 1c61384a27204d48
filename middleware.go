package notesauth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
)

type loggedInUserKey string

// Middleware extracts the session token from incoming requests so the
// downstream notes API can resolve the caller. Tokens are accepted from
// the Authorization header (Bearer), a cookie, or the server-side session.
type Middleware struct {
	AuthTokenHeaderName string
	AuthTokenCookieName string
	UserParamName       string

	// SessionGetter reads a value from the server-side session, if any
	SessionGetter func(r *http.Request, param string) any

	// VerifyToken validates a session token and returns the user it asserts.
	// Typically SessionIssuer.Verify wrapped to this shape.
	VerifyToken func(tokenString string) (loggedInUserId string, claims any, err error)
}

func (m *Middleware) EnsureDefaults() {
	if m.UserParamName == "" {
		m.UserParamName = "loggedInUserId"
	}
	if m.AuthTokenHeaderName == "" {
		m.AuthTokenHeaderName = "Authorization"
	}
}

// GetLoggedInUserId resolves the calling user for the request, or ""
func (m *Middleware) GetLoggedInUserId(r *http.Request) string {
	if v := r.Context().Value(loggedInUserKey(m.UserParamName)); v != nil {
		if userId, ok := v.(string); ok && userId != "" {
			return userId
		}
	}

	if m.SessionGetter != nil {
		if v := m.SessionGetter(r, m.UserParamName); v != nil && v != "" {
			if userId, ok := v.(string); ok {
				return userId
			}
		}
	}

	if m.VerifyToken == nil {
		slog.Warn("No auth token verifier found.  Please set one")
		return ""
	}

	for _, token := range m.candidateTokens(r) {
		userId, _, err := m.VerifyToken(token)
		if err == nil && userId != "" {
			return userId
		} else if err != nil {
			slog.Warn("Error verifying token", "error", err)
		}
	}
	return ""
}

// candidateTokens collects possible session tokens from header and cookie
func (m *Middleware) candidateTokens(r *http.Request) []string {
	var tokens []string
	for _, header := range r.Header.Values(m.AuthTokenHeaderName) {
		token := header
		if parts := strings.SplitN(header, " ", 2); len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			token = strings.TrimSpace(parts[1])
		}
		if token != "" {
			tokens = append(tokens, token)
		}
	}
	if m.AuthTokenCookieName != "" {
		for _, cookie := range r.CookiesNamed(m.AuthTokenCookieName) {
			if cookie.Value != "" {
				tokens = append(tokens, cookie.Value)
			}
		}
	}
	return tokens
}

// ExtractUser resolves the caller (if any) and stores the user ID as a
// request scoped variable for downstream handlers. It never rejects.
func (m *Middleware) ExtractUser(next http.Handler) http.Handler {
	m.EnsureDefaults()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userId := m.GetLoggedInUserId(r)
		next.ServeHTTP(w, m.setLoggedInUserId(userId, r))
	})
}

// EnsureUser is like ExtractUser but responds 401 when no valid token is present
func (m *Middleware) EnsureUser(next http.Handler) http.Handler {
	m.EnsureDefaults()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userId := m.GetLoggedInUserId(r)
		if userId == "" {
			WriteAuthError(w, NewAuthError(ErrCodeUnauthorized, "Authentication required", ""))
			return
		}
		next.ServeHTTP(w, m.setLoggedInUserId(userId, r))
	})
}

func (m *Middleware) setLoggedInUserId(userId string, r *http.Request) *http.Request {
	ctx := context.WithValue(r.Context(), loggedInUserKey(m.UserParamName), userId)
	return r.WithContext(ctx)
}

// GetUserIdFromRequest reads the user ID a Middleware stored on the request
func GetUserIdFromRequest(r *http.Request, userParamName string) string {
	if userParamName == "" {
		userParamName = "loggedInUserId"
	}
	if v := r.Context().Value(loggedInUserKey(userParamName)); v != nil {
		if userId, ok := v.(string); ok {
			return userId
		}
	}
	return ""
}
