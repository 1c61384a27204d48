package notesauth

import (
	"encoding/json"
	"errors"
	"net/http"
)

// Sentinel errors returned by stores. Handlers map them to AuthErrors.
var (
	ErrChallengeNotFound = errors.New("challenge not found")
	ErrUserNotFound      = errors.New("user not found")
	ErrUserExists        = errors.New("user already exists")
)

// Error codes surfaced to API callers
const (
	ErrCodeMissingField   = "missing_field"
	ErrCodeInvalidEmail   = "invalid_email"
	ErrCodeUserExists     = "user_exists"
	ErrCodeUserNotFound   = "user_not_found"
	ErrCodeInvalidOTP     = "invalid_otp"
	ErrCodeExpiredOTP     = "expired_otp"
	ErrCodeDeliveryFailed = "delivery_failed"
	ErrCodeUnauthorized   = "unauthorized"
	ErrCodeServerError    = "server_error"
)

// AuthError is a typed, user-visible authentication error
type AuthError struct {
	Code    string `json:"code"`
	Message string `json:"error"`
	Field   string `json:"field,omitempty"`
}

func NewAuthError(code, message, field string) *AuthError {
	return &AuthError{Code: code, Message: message, Field: field}
}

func (e *AuthError) Error() string {
	return e.Message
}

// HTTPStatus maps an error code to its response status
func (e *AuthError) HTTPStatus() int {
	switch e.Code {
	case ErrCodeUserExists:
		return http.StatusConflict
	case ErrCodeUserNotFound:
		return http.StatusNotFound
	case ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case ErrCodeDeliveryFailed:
		return http.StatusBadGateway
	case ErrCodeServerError:
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}

// AuthErrorHandler allows apps to customize error responses (e.g. redirects).
// Return true if the error was handled.
type AuthErrorHandler func(err *AuthError, w http.ResponseWriter, r *http.Request) bool

// WriteAuthError writes the default JSON error response for an AuthError
func WriteAuthError(w http.ResponseWriter, err *AuthError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.HTTPStatus())
	json.NewEncoder(w).Encode(err)
}
