package notesauth

import (
	"strings"
	"time"
)

// User is an account in the notes system. Email is the unique identity
// users authenticate with; GoogleId is set only for accounts that have
// signed in through Google at least once.
type User struct {
	Id        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	DOB       string    `json:"dob,omitempty"`
	GoogleId  string    `json:"google_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// UserStore manages user accounts keyed by email
type UserStore interface {
	// UserExists reports whether an account exists for the email
	UserExists(email string) (bool, error)

	// GetUserByEmail retrieves a user, returning ErrUserNotFound if absent
	GetUserByEmail(email string) (*User, error)

	// CreateUser creates a new local user. Returns ErrUserExists if the
	// email is already registered.
	CreateUser(user *User) (*User, error)

	// EnsureFederatedUser returns the user for the email, creating one with
	// the given profile if absent. Idempotent: repeated calls with claims
	// for the same email always resolve to the same user. An existing user
	// without a GoogleId gets the subject attached on first federated login.
	EnsureFederatedUser(email, name, googleId string) (*User, error)
}

// NormalizeEmail case-normalizes an email so it can serve as a store key
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// looksLikeEmail is a light sanity check; real validation happens at delivery
func looksLikeEmail(email string) bool {
	at := strings.Index(email, "@")
	return at > 0 && at < len(email)-1
}
