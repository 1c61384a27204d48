package notesauth

import (
	"fmt"
	"log"
	"net/http"
	"slices"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/gorilla/mux"
)

// Auth bundles the OTP and Google login flows behind one router and takes
// care of browser state: on success the issued token is mirrored into the
// server-side session and cookies so both API clients (Authorization
// header) and web pages (cookie) can call the notes API.
type Auth struct {
	router     *mux.Router
	Middleware Middleware

	// Session is optional; when set, login results are stored in it
	Session *scs.SessionManager

	// Optional name used as a prefix for defaulted vars
	AppName string

	// Name of the session variable and cookie where the auth token is stored
	AuthTokenSessionVar string

	// All the domains where auth cookies are set on login and cleared on logout
	CookieDomains []string

	// How long login cookies live. Defaults to the issuer's token TTL.
	SessionTimeoutInSeconds int

	// Flow handlers; Issuer must be shared between them
	OTP    *OTPAuth
	Google *GoogleAuth
	Issuer *SessionIssuer
}

// New creates an Auth router around the given flows. Both flows get their
// success hooks pointed at the session/cookie bookkeeping here.
func New(appName string, issuer *SessionIssuer, otp *OTPAuth, google *GoogleAuth) *Auth {
	a := &Auth{AppName: appName, Issuer: issuer, OTP: otp, Google: google}
	a.EnsureDefaults()
	if a.OTP != nil && a.OTP.OnLogin == nil {
		a.OTP.OnLogin = a.onLogin
	}
	if a.Google != nil && a.Google.OnLogin == nil {
		a.Google.OnLogin = a.onLogin
	}
	return a
}

func (a *Auth) EnsureDefaults() *Auth {
	if a.AppName == "" {
		a.AppName = "NotesAuth"
	}
	if a.AuthTokenSessionVar == "" {
		a.AuthTokenSessionVar = fmt.Sprintf("%sAuthToken", a.AppName)
	}
	if a.SessionTimeoutInSeconds <= 0 {
		ttl := DefaultSessionTTL
		if a.Issuer != nil && a.Issuer.TokenTTL > 0 {
			ttl = a.Issuer.TokenTTL
		}
		a.SessionTimeoutInSeconds = int(ttl.Seconds())
	}
	if a.Middleware.AuthTokenCookieName == "" {
		a.Middleware.AuthTokenCookieName = a.AuthTokenSessionVar
	}
	if a.Middleware.VerifyToken == nil && a.Issuer != nil {
		a.Middleware.VerifyToken = func(tokenString string) (string, any, error) {
			userId, claims, err := a.Issuer.Verify(tokenString)
			return userId, claims, err
		}
	}
	if a.Middleware.SessionGetter == nil && a.Session != nil {
		a.Middleware.SessionGetter = func(r *http.Request, param string) any {
			return a.Session.Get(r.Context(), param)
		}
	}
	return a
}

// Handler returns the auth routes: request-otp, verify-otp, google-login, logout
func (a *Auth) Handler() http.Handler {
	return a.setupRoutes().router
}

func (a *Auth) setupRoutes() *Auth {
	if a.router == nil {
		a.router = mux.NewRouter()
		if a.OTP != nil {
			a.router.HandleFunc("/request-otp", a.OTP.HandleRequestOTP).Methods(http.MethodPost)
			a.router.HandleFunc("/verify-otp", a.OTP.HandleVerifyOTP).Methods(http.MethodPost)
		}
		if a.Google != nil {
			a.router.HandleFunc("/google-login", a.Google.HandleGoogleLogin).Methods(http.MethodPost)
		}
		a.router.HandleFunc("/logout", a.onLogout)
	}
	return a
}

// onLogin stores the issued token in session and cookies, then responds
func (a *Auth) onLogin(result *LoginResult, w http.ResponseWriter, r *http.Request) {
	a.setLoggedInUser(result, w, r)
	WriteLoginResult(w, result)
}

func (a *Auth) onLogout(w http.ResponseWriter, r *http.Request) {
	a.setLoggedInUser(nil, w, r)
	toUrl := r.URL.Query().Get("to")
	if toUrl == "" {
		fmt.Fprintf(w, "Logged Out")
	} else {
		http.Redirect(w, r, toUrl, http.StatusFound)
	}
}

// setLoggedInUser sets (or with nil result clears) the auth token and
// logged in user id on the session and on every configured cookie domain.
func (a *Auth) setLoggedInUser(result *LoginResult, w http.ResponseWriter, r *http.Request) {
	a.EnsureDefaults()
	domains := a.CookieDomains
	if slices.Index(domains, "") < 0 { // default domain
		domains = append(domains, "")
	}
	for _, cookieDomain := range domains {
		if result != nil {
			expires := time.Now().Add(time.Second * time.Duration(a.SessionTimeoutInSeconds))
			http.SetCookie(w, &http.Cookie{
				Name:    "loggedInUserId",
				Value:   result.User.Id,
				Domain:  cookieDomain,
				Path:    "/",
				Expires: expires, MaxAge: a.SessionTimeoutInSeconds,
			})
			http.SetCookie(w, &http.Cookie{
				Name:    a.AuthTokenSessionVar,
				Value:   result.Token,
				Domain:  cookieDomain,
				Path:    "/",
				Expires: expires, MaxAge: a.SessionTimeoutInSeconds,
			})
		} else {
			http.SetCookie(w, &http.Cookie{
				Name:   "loggedInUserId",
				Domain: cookieDomain,
				Path:   "/",
				MaxAge: -1, Expires: time.Now(),
			})
			http.SetCookie(w, &http.Cookie{
				Name:   a.AuthTokenSessionVar,
				Domain: cookieDomain,
				Path:   "/",
				MaxAge: -1, Expires: time.Now(),
			})
		}
	}

	if a.Session == nil {
		return
	}
	if result != nil {
		a.Session.Put(r.Context(), "loggedInUserId", result.User.Id)
		a.Session.Put(r.Context(), a.AuthTokenSessionVar, result.Token)
	} else {
		log.Println("Logging out user")
		if err := a.Session.Clear(r.Context()); err != nil {
			log.Println("error clearing session: ", err)
		}
	}
}
