package notesauth_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	na "github.com/panyam/notesauth"
	"github.com/panyam/notesauth/stores"
)

// fakeVerifier maps raw tokens to canned claims; unknown tokens fail
// verification the way a bad signature would.
type fakeVerifier struct {
	tokens map[string]*na.Claims
}

func (f *fakeVerifier) Verify(ctx context.Context, rawToken string) (*na.Claims, error) {
	if claims, ok := f.tokens[rawToken]; ok {
		return claims, nil
	}
	return nil, errors.New("token signature mismatch")
}

func setupGoogleAuth(t *testing.T) (*na.GoogleAuth, *stores.MemoryUserStore, *fakeVerifier) {
	t.Helper()
	issuer, err := na.NewSessionIssuer("test-secret-key", "notesauth-test")
	if err != nil {
		t.Fatalf("Failed to create issuer: %v", err)
	}
	verifier := &fakeVerifier{tokens: map[string]*na.Claims{}}
	userStore := stores.NewMemoryUserStore()
	return &na.GoogleAuth{
		Verifier: verifier,
		Users:    userStore,
		Issuer:   issuer,
	}, userStore, verifier
}

func TestGoogleLoginCreatesAndReusesUser(t *testing.T) {
	googleAuth, userStore, verifier := setupGoogleAuth(t)
	verifier.tokens["good-token"] = &na.Claims{Email: "g@x.com", Name: "Gia", Subject: "google-sub-1"}

	first, authErr := googleAuth.Login(context.Background(), "good-token")
	if authErr != nil {
		t.Fatalf("Expected login to succeed, got %v", authErr)
	}
	if first.Token == "" || first.User.Email != "g@x.com" || first.User.GoogleId != "google-sub-1" {
		t.Errorf("Unexpected login result: %+v", first.User)
	}

	// a second assertion for the same email resolves to the same account
	second, authErr := googleAuth.Login(context.Background(), "good-token")
	if authErr != nil {
		t.Fatalf("Expected repeat login to succeed, got %v", authErr)
	}
	if second.User.Id != first.User.Id {
		t.Errorf("Expected same user across logins, got %s and %s", first.User.Id, second.User.Id)
	}

	if _, err := userStore.GetUserByEmail("g@x.com"); err != nil {
		t.Errorf("Expected persisted federated user, got %v", err)
	}
}

func TestGoogleLoginLinksExistingAccount(t *testing.T) {
	googleAuth, userStore, verifier := setupGoogleAuth(t)
	created, err := userStore.CreateUser(&na.User{Email: "g@x.com", Name: "Gia", DOB: "2000-01-01"})
	if err != nil {
		t.Fatalf("Failed to seed user: %v", err)
	}
	verifier.tokens["good-token"] = &na.Claims{Email: "g@x.com", Name: "Gia", Subject: "google-sub-1"}

	result, authErr := googleAuth.Login(context.Background(), "good-token")
	if authErr != nil {
		t.Fatalf("Expected login to succeed, got %v", authErr)
	}
	if result.User.Id != created.Id {
		t.Errorf("Expected the existing account, got %s vs %s", result.User.Id, created.Id)
	}
	if result.User.GoogleId != "google-sub-1" {
		t.Errorf("Expected linked Google subject, got %q", result.User.GoogleId)
	}
}

func TestGoogleLoginFailures(t *testing.T) {
	googleAuth, _, verifier := setupGoogleAuth(t)
	verifier.tokens["no-name"] = &na.Claims{Email: "g@x.com", Subject: "google-sub-1"}
	verifier.tokens["no-email"] = &na.Claims{Name: "Gia", Subject: "google-sub-1"}

	tests := []struct {
		name           string
		token          string
		expectedCode   string
		expectedStatus int
	}{
		{"missing token", "", na.ErrCodeMissingField, http.StatusBadRequest},
		{"unverifiable token", "forged", na.ErrCodeUnauthorized, http.StatusUnauthorized},
		{"claims without name", "no-name", na.ErrCodeUnauthorized, http.StatusUnauthorized},
		{"claims without email", "no-email", na.ErrCodeUnauthorized, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, authErr := googleAuth.Login(context.Background(), tt.token)
			if result != nil || authErr == nil {
				t.Fatalf("Expected failure, got result=%v err=%v", result, authErr)
			}
			if authErr.Code != tt.expectedCode {
				t.Errorf("Expected code %s, got %s", tt.expectedCode, authErr.Code)
			}
			if authErr.HTTPStatus() != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d", tt.expectedStatus, authErr.HTTPStatus())
			}
		})
	}
}

func TestHandleGoogleLogin(t *testing.T) {
	googleAuth, _, verifier := setupGoogleAuth(t)
	verifier.tokens["good-token"] = &na.Claims{Email: "g@x.com", Name: "Gia", Subject: "google-sub-1"}

	rr := postJSON(t, googleAuth.HandleGoogleLogin, "/google-login", map[string]any{"idToken": "good-token"})
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d. Body: %s", rr.Code, rr.Body.String())
	}

	rr = postJSON(t, googleAuth.HandleGoogleLogin, "/google-login", map[string]any{"idToken": "forged"})
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("Expected 401, got %d", rr.Code)
	}
	if authErr := decodeError(t, rr); authErr.Message != "Google authentication failed." {
		t.Errorf("Unexpected message: %q", authErr.Message)
	}
}
