// Package oauth2 provides the browser redirect flow for Google login, for
// web clients that cannot obtain an ID token on their own. The callback
// resolves the Google profile to the same claim set the token-based
// federated login consumes.
package oauth2

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// DefaultGoogleUserInfoURL is where the callback fetches the profile from
const DefaultGoogleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

// HandleClaimsFunc receives the verified Google profile after a successful
// redirect flow. Apps wire this to their federated login path.
type HandleClaimsFunc func(token *oauth2.Token, email, name, subject string, w http.ResponseWriter, r *http.Request)

// GoogleOAuth2 implements the authorization-code redirect flow against Google
type GoogleOAuth2 struct {
	ClientId     string
	ClientSecret string
	CallbackURL  string
	HandleClaims HandleClaimsFunc

	// UserInfoURL defaults to Google's userinfo endpoint; tests point it
	// at a mock provider
	UserInfoURL string

	// HTTPClient, when set, is used for the token exchange and the
	// profile fetch instead of the default client
	HTTPClient *http.Client

	oauthConfig oauth2.Config
	mux         *http.ServeMux
}

func NewGoogleOAuth2(clientId, clientSecret, callbackUrl string, handleClaims HandleClaimsFunc) *GoogleOAuth2 {
	if clientId == "" {
		clientId = os.Getenv("OAUTH2_GOOGLE_CLIENT_ID")
	}
	if clientSecret == "" {
		clientSecret = os.Getenv("OAUTH2_GOOGLE_CLIENT_SECRET")
	}
	if callbackUrl == "" {
		callbackUrl = os.Getenv("OAUTH2_GOOGLE_CALLBACK_URL")
	}

	out := &GoogleOAuth2{
		ClientId:     clientId,
		ClientSecret: clientSecret,
		CallbackURL:  callbackUrl,
		HandleClaims: handleClaims,
		UserInfoURL:  DefaultGoogleUserInfoURL,
		mux:          http.NewServeMux(),
		oauthConfig: oauth2.Config{
			ClientID:     clientId,
			ClientSecret: clientSecret,
			RedirectURL:  callbackUrl,
			Scopes: []string{
				"https://www.googleapis.com/auth/userinfo.email",
				"https://www.googleapis.com/auth/userinfo.profile",
			},
			Endpoint: google.Endpoint,
		},
	}
	out.mux.HandleFunc("/", OauthRedirector(&out.oauthConfig))
	out.mux.HandleFunc("/callback/", out.handleCallback)
	return out
}

// SetHTTPClient overrides the HTTP client used for provider calls
func (g *GoogleOAuth2) SetHTTPClient(client *http.Client) {
	g.HTTPClient = client
}

// SetOAuthEndpoint overrides the provider's auth and token endpoints
func (g *GoogleOAuth2) SetOAuthEndpoint(endpoint oauth2.Endpoint) {
	g.oauthConfig.Endpoint = endpoint
}

func (g *GoogleOAuth2) httpClient() *http.Client {
	if g.HTTPClient != nil {
		return g.HTTPClient
	}
	return http.DefaultClient
}

// ServeHTTP lets the flow be mounted under an auth prefix
func (g *GoogleOAuth2) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	g.mux.ServeHTTP(w, r)
}

func (g *GoogleOAuth2) handleCallback(w http.ResponseWriter, r *http.Request) {
	oauthState, _ := r.Cookie(stateCookieName)
	if oauthState == nil {
		http.Error(w, "OauthState is nil", http.StatusBadRequest)
		return
	}
	if r.FormValue("state") != oauthState.Value {
		http.SetCookie(w, &http.Cookie{Name: stateCookieName, MaxAge: 0})
		http.Error(w, fmt.Sprintf("invalid oauth google state: %s", r.FormValue("state")), http.StatusBadRequest)
		return
	}

	// route the exchange through our client so tests can intercept it
	ctx := context.WithValue(r.Context(), oauth2.HTTPClient, g.httpClient())
	token, err := g.oauthConfig.Exchange(ctx, r.FormValue("code"))
	if err != nil {
		log.Println("code exchange wrong: ", err)
		http.Error(w, "Google authentication failed.", http.StatusUnauthorized)
		return
	}

	profile, err := g.fetchProfile(token)
	if err != nil {
		log.Println("error fetching google profile: ", err)
		http.Error(w, "Google authentication failed.", http.StatusUnauthorized)
		return
	}

	g.HandleClaims(token, profile.Email, profile.Name, profile.Id, w, r)
}

type googleProfile struct {
	Id    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

func (g *GoogleOAuth2) fetchProfile(token *oauth2.Token) (*googleProfile, error) {
	response, err := g.httpClient().Get(g.UserInfoURL + "?access_token=" + token.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("failed getting user info: %s", err.Error())
	}
	defer response.Body.Close()
	if response.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("user info returned status %d", response.StatusCode)
	}
	contents, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, fmt.Errorf("failed read response: %s", err.Error())
	}
	var profile googleProfile
	if err := json.Unmarshal(contents, &profile); err != nil {
		return nil, fmt.Errorf("failed parsing profile: %s", err.Error())
	}
	return &profile, nil
}
