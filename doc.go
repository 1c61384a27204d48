// Package notesauth provides email one-time-passcode and Google login for
// the notes API, issuing signed session tokens that downstream services
// consume.
//
// # Architecture
//
// Challenge: the pending passcode state for one identity. Challenges live
// in a ChallengeStore, expire after five minutes, and are consumed by the
// first verify attempt whatever its outcome.
//
// User: an account keyed by email. Accounts are created either on the
// first successful signup verify or on first Google login.
//
// Session token: a signed JWT carrying {userId, email, name} with a 7-day
// expiry. The signing secret is loaded once at startup and passed in
// explicitly; rotation and revocation are out of scope.
//
// # Basic Usage
//
// Set up the stores and the issuer:
//
//	import (
//	    "github.com/panyam/notesauth"
//	    "github.com/panyam/notesauth/stores"
//	)
//
//	userStore := stores.NewMemoryUserStore()
//	issuer, err := notesauth.NewSessionIssuer(secretKey, "notesapp")
//
// Configure the flows:
//
//	otpAuth := &notesauth.OTPAuth{
//	    Users:       userStore,
//	    Challenges:  notesauth.NewMemoryChallengeStore(),
//	    EmailSender: &notesauth.ConsoleEmailSender{},
//	    Issuer:      issuer,
//	}
//	googleAuth := &notesauth.GoogleAuth{
//	    Verifier: &notesauth.GoogleVerifier{ClientID: clientID},
//	    Users:    userStore,
//	    Issuer:   issuer,
//	}
//
// Mount the handlers:
//
//	auth := notesauth.New("notesapp", issuer, otpAuth, googleAuth)
//	http.Handle("/api/auth/", http.StripPrefix("/api/auth", auth.Handler()))
//
// Protect the notes API with the middleware:
//
//	http.Handle("/api/notes", auth.Middleware.EnsureUser(notesHandler))
//
// # Store Implementations
//
// An in-memory user store lives in the stores package for development and
// tests; stores/gorm and stores/gae back the same interface with a SQL
// database or Cloud Datastore for production.
//
// # Security
//
// Passcodes are 6-digit values drawn from crypto/rand, bcrypt-hashed at
// rest, single-use, and expire after five minutes. Expired entries are
// reclaimed lazily at verify time rather than by a background sweeper, so
// behavior stays deterministic under test.
//
// # Testing
//
// Flow handlers can be tested without a running HTTP server using
// httptest.NewRequest and httptest.ResponseRecorder. The challenge store
// and the flows accept a Now func so expiry can be simulated.
package notesauth
