package notesauth

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"
)

// DefaultOTPTTL is how long a delivered passcode stays verifiable
const DefaultOTPTTL = 5 * time.Minute

// ChallengeRequest asks for a passcode to be emailed to an identity
type ChallengeRequest struct {
	Email  string `json:"email"`
	Signup bool   `json:"signup"`
	Name   string `json:"name,omitempty"`
	DOB    string `json:"dob,omitempty"`
}

// VerifyRequest submits a passcode for an identity. Name and DOB are only
// consulted when the verify completes a signup.
type VerifyRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
	Name  string `json:"name,omitempty"`
	DOB   string `json:"dob,omitempty"`
}

// LoginResult is what a successful verification or federated login yields
type LoginResult struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}

// LoginHandlerFunc is called on successful authentication. Apps use it to
// set session cookies before (or instead of) the default JSON response.
type LoginHandlerFunc func(result *LoginResult, w http.ResponseWriter, r *http.Request)

// OTPAuth drives the email passcode flows: request-challenge and verify.
//
// Per identity the flow is a small state machine: no challenge, challenge
// issued, then verified / expired / invalid. Issuing a new challenge
// supersedes any prior one for the same identity, and any verify attempt
// consumes the stored challenge whatever its outcome.
type OTPAuth struct {
	// Users resolves identities to accounts
	Users UserStore

	// Challenges holds pending passcodes
	Challenges ChallengeStore

	// EmailSender delivers the passcode; its failure surfaces as delivery_failed
	EmailSender EmailSender

	// Issuer mints session tokens on success
	Issuer *SessionIssuer

	// OTPTTL defaults to 5 minutes
	OTPTTL time.Duration

	// EmailSubject defaults to "Your OTP Code"
	EmailSubject string

	// OnAuthError is called when a flow fails. If nil, returns JSON error.
	OnAuthError AuthErrorHandler

	// OnLogin is called after a successful verify. If nil, returns JSON.
	OnLogin LoginHandlerFunc

	// Now can be overridden in tests to simulate passcode expiry
	Now func() time.Time
}

func (a *OTPAuth) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}

func (a *OTPAuth) otpTTL() time.Duration {
	if a.OTPTTL > 0 {
		return a.OTPTTL
	}
	return DefaultOTPTTL
}

func (a *OTPAuth) emailSubject() string {
	if a.EmailSubject != "" {
		return a.EmailSubject
	}
	return "Your OTP Code"
}

// RequestChallenge validates flow preconditions, stores a fresh passcode
// for the identity and emails it. If delivery fails the stored challenge
// stays live; a retry request simply supersedes it.
func (a *OTPAuth) RequestChallenge(req *ChallengeRequest) *AuthError {
	email := NormalizeEmail(req.Email)
	if email == "" {
		return NewAuthError(ErrCodeMissingField, "Email is required", "email")
	}
	if !looksLikeEmail(email) {
		return NewAuthError(ErrCodeInvalidEmail, "Invalid email format", "email")
	}

	if req.Signup {
		if req.Name == "" {
			return NewAuthError(ErrCodeMissingField, "Name is required for signup", "name")
		}
		if req.DOB == "" {
			return NewAuthError(ErrCodeMissingField, "Date of birth is required for signup", "dob")
		}
		exists, err := a.Users.UserExists(email)
		if err != nil {
			log.Println("error checking user existence: ", err)
			return NewAuthError(ErrCodeServerError, "Failed to check account status", "")
		}
		if exists {
			return NewAuthError(ErrCodeUserExists, "User already exists.", "email")
		}
	} else {
		exists, err := a.Users.UserExists(email)
		if err != nil || !exists {
			if err != nil {
				log.Println("error checking user existence: ", err)
			}
			return NewAuthError(ErrCodeUserNotFound, "User not found.", "email")
		}
	}

	code, err := GenerateOTP()
	if err != nil {
		log.Println("error generating otp: ", err)
		return NewAuthError(ErrCodeServerError, "Failed to generate passcode", "")
	}
	codeHash, err := HashOTP(code)
	if err != nil {
		log.Println("error hashing otp: ", err)
		return NewAuthError(ErrCodeServerError, "Failed to generate passcode", "")
	}

	ttl := a.otpTTL()
	if err := a.Challenges.Put(email, codeHash, ttl); err != nil {
		log.Println("error storing challenge: ", err)
		return NewAuthError(ErrCodeServerError, "Failed to store passcode", "")
	}

	// The store write above is deliberately not rolled back on send failure
	body := fmt.Sprintf("Your OTP code is: %s. It expires in %d minutes.", code, int(ttl.Minutes()))
	if err := a.EmailSender.SendEmail(email, a.emailSubject(), body); err != nil {
		log.Println("error sending otp email: ", err)
		return NewAuthError(ErrCodeDeliveryFailed, "Failed to send OTP email.", "")
	}
	return nil
}

// VerifyChallenge consumes the identity's pending challenge and, on a
// matching unexpired code, resolves the user (creating one on first signup
// verify) and issues a session token.
func (a *OTPAuth) VerifyChallenge(req *VerifyRequest) (*LoginResult, *AuthError) {
	email := NormalizeEmail(req.Email)
	if email == "" || req.OTP == "" {
		return nil, NewAuthError(ErrCodeMissingField, "Email and OTP are required", "")
	}

	// Take is single-use: expired and mismatched attempts burn the entry
	// too. A mismatched code reports Invalid even when the challenge has
	// also expired.
	challenge, err := a.Challenges.Take(email)
	if err != nil {
		return nil, NewAuthError(ErrCodeInvalidOTP, "Invalid OTP.", "otp")
	}
	if !VerifyOTPHash(challenge.CodeHash, req.OTP) {
		return nil, NewAuthError(ErrCodeInvalidOTP, "Invalid OTP.", "otp")
	}
	if challenge.IsExpiredAt(a.now()) {
		return nil, NewAuthError(ErrCodeExpiredOTP, "OTP expired.", "otp")
	}

	// first signup verify creates the account, but only with a full profile
	user, err := a.Users.GetUserByEmail(email)
	if errors.Is(err, ErrUserNotFound) && req.Name != "" && req.DOB != "" {
		user, err = a.Users.CreateUser(&User{Email: email, Name: req.Name, DOB: req.DOB})
		if errors.Is(err, ErrUserExists) {
			// lost a create race; the account is there now
			user, err = a.Users.GetUserByEmail(email)
		}
	}
	if err != nil || user == nil {
		// unreachable when request-challenge preconditions held, but never assumed
		if err != nil && !errors.Is(err, ErrUserNotFound) {
			log.Println("error resolving user: ", err)
		}
		return nil, NewAuthError(ErrCodeUserNotFound, "User not found. Please sign up.", "email")
	}

	token, err := a.Issuer.Issue(user)
	if err != nil {
		log.Println("error issuing session token: ", err)
		return nil, NewAuthError(ErrCodeServerError, "Failed to create session", "")
	}
	return &LoginResult{Token: token, User: user}, nil
}

// HandleRequestOTP handles POST /request-otp
func (a *OTPAuth) HandleRequestOTP(w http.ResponseWriter, r *http.Request) {
	req, parseErr := parseChallengeRequest(r)
	if parseErr != nil {
		a.handleError(parseErr, w, r)
		return
	}
	if authErr := a.RequestChallenge(req); authErr != nil {
		a.handleError(authErr, w, r)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"message": "OTP sent to email."})
}

// HandleVerifyOTP handles POST /verify-otp
func (a *OTPAuth) HandleVerifyOTP(w http.ResponseWriter, r *http.Request) {
	req, parseErr := parseVerifyRequest(r)
	if parseErr != nil {
		a.handleError(parseErr, w, r)
		return
	}
	result, authErr := a.VerifyChallenge(req)
	if authErr != nil {
		a.handleError(authErr, w, r)
		return
	}
	if a.OnLogin != nil {
		a.OnLogin(result, w, r)
		return
	}
	WriteLoginResult(w, result)
}

func (a *OTPAuth) handleError(err *AuthError, w http.ResponseWriter, r *http.Request) {
	if a.OnAuthError != nil && a.OnAuthError(err, w, r) {
		return
	}
	WriteAuthError(w, err)
}

// WriteLoginResult writes the default token + user projection response
func WriteLoginResult(w http.ResponseWriter, result *LoginResult) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"token": result.Token,
		"user": map[string]any{
			"id":    result.User.Id,
			"email": result.User.Email,
			"name":  result.User.Name,
		},
	})
}

func parseChallengeRequest(r *http.Request) (*ChallengeRequest, *AuthError) {
	fields, authErr := parseBody(r)
	if authErr != nil {
		return nil, authErr
	}
	return &ChallengeRequest{
		Email:  stringField(fields, "email"),
		Signup: boolField(fields, "signup"),
		Name:   stringField(fields, "name"),
		DOB:    stringField(fields, "dob"),
	}, nil
}

func parseVerifyRequest(r *http.Request) (*VerifyRequest, *AuthError) {
	fields, authErr := parseBody(r)
	if authErr != nil {
		return nil, authErr
	}
	return &VerifyRequest{
		Email: stringField(fields, "email"),
		OTP:   stringField(fields, "otp"),
		Name:  stringField(fields, "name"),
		DOB:   stringField(fields, "dob"),
	}, nil
}

// maxFormMemory bounds how much of a multipart body is held in memory
const maxFormMemory = 1 << 20

// parseBody accepts a JSON object, url-encoded or multipart form data
func parseBody(r *http.Request) (map[string]any, *AuthError) {
	contentType := r.Header.Get("Content-Type")
	switch {
	case strings.HasPrefix(contentType, "application/x-www-form-urlencoded"):
		if err := r.ParseForm(); err != nil {
			return nil, NewAuthError("parse_error", "Error parsing form", "")
		}
	case strings.HasPrefix(contentType, "multipart/form-data"):
		if err := r.ParseMultipartForm(maxFormMemory); err != nil {
			return nil, NewAuthError("parse_error", "Error parsing form", "")
		}
	default:
		var data map[string]any
		if err := json.NewDecoder(r.Body).Decode(&data); err != nil || data == nil {
			return nil, NewAuthError("parse_error", "Invalid post body", "")
		}
		return data, nil
	}

	fields := make(map[string]any, len(r.Form))
	for key := range r.Form {
		fields[key] = r.FormValue(key)
	}
	return fields, nil
}

func stringField(fields map[string]any, name string) string {
	if v, ok := fields[name].(string); ok {
		return v
	}
	return ""
}

func boolField(fields map[string]any, name string) bool {
	switch v := fields[name].(type) {
	case bool:
		return v
	case string:
		return v == "true" || v == "1"
	default:
		return false
	}
}
