// Command server is a demo host app for notesauth. It mounts the auth
// routes, protects a sample endpoint with the middleware, and picks a user
// store from the environment.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"cloud.google.com/go/datastore"
	"github.com/caarlos0/env/v11"
	oauth2lib "golang.org/x/oauth2"

	notesauth "github.com/panyam/notesauth"
	oauth2flow "github.com/panyam/notesauth/oauth2"
	"github.com/panyam/notesauth/stores"
	gaestores "github.com/panyam/notesauth/stores/gae"
)

type config struct {
	Port               int    `env:"NOTESAUTH_PORT" envDefault:"5000"`
	JWTSecret          string `env:"NOTESAUTH_JWT_SECRET"`
	JWTIssuer          string `env:"NOTESAUTH_JWT_ISSUER" envDefault:"notesauth"`
	GoogleClientID     string `env:"NOTESAUTH_GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `env:"NOTESAUTH_GOOGLE_CLIENT_SECRET"`
	GoogleCallbackURL  string `env:"NOTESAUTH_GOOGLE_CALLBACK_URL"`
	DatastoreProject   string `env:"NOTESAUTH_DATASTORE_PROJECT"`
}

func main() {
	var cfg config
	if err := env.Parse(&cfg); err != nil {
		log.Fatal("error parsing config: ", err)
	}

	// A missing signing secret is fatal: without it no session can be
	// minted and every login would fail late instead of loudly here.
	issuer, err := notesauth.NewSessionIssuer(cfg.JWTSecret, cfg.JWTIssuer)
	if err != nil {
		log.Fatal("NOTESAUTH_JWT_SECRET is required: ", err)
	}

	userStore, err := buildUserStore(&cfg)
	if err != nil {
		log.Fatal("error creating user store: ", err)
	}

	otpAuth := &notesauth.OTPAuth{
		Users:       userStore,
		Challenges:  notesauth.NewMemoryChallengeStore(),
		EmailSender: &notesauth.ConsoleEmailSender{},
		Issuer:      issuer,
	}
	googleAuth := &notesauth.GoogleAuth{
		Verifier: &notesauth.GoogleVerifier{ClientID: cfg.GoogleClientID},
		Users:    userStore,
		Issuer:   issuer,
	}
	auth := notesauth.New("notesapp", issuer, otpAuth, googleAuth)

	mux := http.NewServeMux()
	mux.Handle("/api/auth/", http.StripPrefix("/api/auth", auth.Handler()))

	// browser redirect flow, for web clients without a client-side ID token
	if cfg.GoogleClientSecret != "" {
		flow := oauth2flow.NewGoogleOAuth2(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleCallbackURL,
			func(token *oauth2lib.Token, email, name, subject string, w http.ResponseWriter, r *http.Request) {
				user, err := userStore.EnsureFederatedUser(email, name, subject)
				if err != nil {
					log.Println("error resolving federated user: ", err)
					notesauth.WriteAuthError(w, notesauth.NewAuthError(notesauth.ErrCodeServerError, "Failed to resolve account", ""))
					return
				}
				sessionToken, err := issuer.Issue(user)
				if err != nil {
					log.Println("error issuing session token: ", err)
					notesauth.WriteAuthError(w, notesauth.NewAuthError(notesauth.ErrCodeServerError, "Failed to create session", ""))
					return
				}
				notesauth.WriteLoginResult(w, &notesauth.LoginResult{Token: sessionToken, User: user})
			})
		mux.Handle("/api/auth/google/", http.StripPrefix("/api/auth/google", flow))
	}
	mux.Handle("/api/me", auth.Middleware.EnsureUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userId := notesauth.GetUserIdFromRequest(r, "")
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"userId": userId})
	})))
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "API is running")
	})

	addr := fmt.Sprintf(":%d", cfg.Port)
	log.Printf("Server running on port %d", cfg.Port)
	log.Fatal(http.ListenAndServe(addr, mux))
}

func buildUserStore(cfg *config) (notesauth.UserStore, error) {
	if cfg.DatastoreProject == "" {
		return stores.NewMemoryUserStore(), nil
	}
	client, err := datastore.NewClient(context.Background(), cfg.DatastoreProject)
	if err != nil {
		return nil, err
	}
	return gaestores.NewUserStore(client, ""), nil
}
