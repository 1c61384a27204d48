package notesauth

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"google.golang.org/api/idtoken"
)

// Claims is the identity assertion extracted from a verified external token
type Claims struct {
	Email   string
	Name    string
	Subject string
}

// IdentityVerifier verifies an external identity token and returns its
// claims. Implementations own the cryptographic verification; this
// subsystem only consumes the resulting claim set.
type IdentityVerifier interface {
	Verify(ctx context.Context, rawToken string) (*Claims, error)
}

// GoogleVerifier validates Google ID tokens against a client ID audience
type GoogleVerifier struct {
	ClientID string
}

func (g *GoogleVerifier) Verify(ctx context.Context, rawToken string) (*Claims, error) {
	payload, err := idtoken.Validate(ctx, rawToken, g.ClientID)
	if err != nil {
		return nil, fmt.Errorf("invalid google token: %w", err)
	}
	email, _ := payload.Claims["email"].(string)
	name, _ := payload.Claims["name"].(string)
	return &Claims{Email: email, Name: name, Subject: payload.Subject}, nil
}

// GoogleAuth handles federated login with a Google ID token. It is
// stateless: no challenge is involved, the external assertion is verified
// and exchanged directly for a session token.
type GoogleAuth struct {
	// Verifier validates the incoming ID token
	Verifier IdentityVerifier

	// Users resolves or creates the federated account
	Users UserStore

	// Issuer mints session tokens on success
	Issuer *SessionIssuer

	// TokenField is the request field carrying the ID token (default "idToken")
	TokenField string

	// OnAuthError is called when login fails. If nil, returns JSON error.
	OnAuthError AuthErrorHandler

	// OnLogin is called after a successful login. If nil, returns JSON.
	OnLogin LoginHandlerFunc
}

func (g *GoogleAuth) tokenField() string {
	if g.TokenField != "" {
		return g.TokenField
	}
	return "idToken"
}

// Login verifies the external assertion and resolves it to a session.
// Calling it twice with claims for the same email yields tokens for the
// same underlying user.
func (g *GoogleAuth) Login(ctx context.Context, rawToken string) (*LoginResult, *AuthError) {
	if rawToken == "" {
		return nil, NewAuthError(ErrCodeMissingField, "Missing Google ID token.", g.tokenField())
	}

	claims, err := g.Verifier.Verify(ctx, rawToken)
	if err != nil {
		log.Println("google token verification failed: ", err)
		return nil, NewAuthError(ErrCodeUnauthorized, "Google authentication failed.", "")
	}
	if claims.Email == "" || claims.Name == "" || claims.Subject == "" {
		return nil, NewAuthError(ErrCodeUnauthorized, "Invalid Google token payload.", "")
	}

	user, err := g.Users.EnsureFederatedUser(NormalizeEmail(claims.Email), claims.Name, claims.Subject)
	if err != nil {
		log.Println("error resolving federated user: ", err)
		return nil, NewAuthError(ErrCodeServerError, "Failed to resolve account", "")
	}

	token, err := g.Issuer.Issue(user)
	if err != nil {
		log.Println("error issuing session token: ", err)
		return nil, NewAuthError(ErrCodeServerError, "Failed to create session", "")
	}
	return &LoginResult{Token: token, User: user}, nil
}

// HandleGoogleLogin handles POST /google-login
func (g *GoogleAuth) HandleGoogleLogin(w http.ResponseWriter, r *http.Request) {
	fields, parseErr := parseBody(r)
	if parseErr != nil {
		g.handleError(parseErr, w, r)
		return
	}

	result, authErr := g.Login(r.Context(), stringField(fields, g.tokenField()))
	if authErr != nil {
		g.handleError(authErr, w, r)
		return
	}
	if g.OnLogin != nil {
		g.OnLogin(result, w, r)
		return
	}
	WriteLoginResult(w, result)
}

func (g *GoogleAuth) handleError(err *AuthError, w http.ResponseWriter, r *http.Request) {
	if g.OnAuthError != nil && g.OnAuthError(err, w, r) {
		return
	}
	WriteAuthError(w, err)
}
