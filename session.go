package notesauth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultSessionTTL is how long an issued session token stays valid
const DefaultSessionTTL = 7 * 24 * time.Hour

// SessionIssuer mints signed session tokens bound to a user. The signing
// secret is an explicit dependency loaded once at startup; there is no
// runtime rotation or revocation.
type SessionIssuer struct {
	SecretKey string
	Issuer    string

	// TokenTTL defaults to 7 days
	TokenTTL time.Duration

	// Now can be overridden in tests
	Now func() time.Time
}

// NewSessionIssuer creates an issuer. An empty secret is a configuration
// error the caller should treat as fatal at startup.
func NewSessionIssuer(secretKey, issuer string) (*SessionIssuer, error) {
	if secretKey == "" {
		return nil, fmt.Errorf("session signing secret is required")
	}
	return &SessionIssuer{SecretKey: secretKey, Issuer: issuer}, nil
}

func (s *SessionIssuer) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *SessionIssuer) ttl() time.Duration {
	if s.TokenTTL > 0 {
		return s.TokenTTL
	}
	return DefaultSessionTTL
}

// Issue mints a signed token asserting {userId, email, name} for the user
func (s *SessionIssuer) Issue(user *User) (string, error) {
	now := s.now()
	claims := jwt.MapClaims{
		"sub":    user.Id,
		"userId": user.Id,
		"email":  user.Email,
		"name":   user.Name,
		"iat":    now.Unix(),
		"exp":    now.Add(s.ttl()).Unix(),
	}
	if s.Issuer != "" {
		claims["iss"] = s.Issuer
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(s.SecretKey))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return tokenString, nil
}

// Verify parses and validates a session token and returns the user ID it
// asserts. Downstream consumers (notes API middleware, gRPC interceptors)
// use this; issuance callers never need it.
func (s *SessionIssuer) Verify(tokenString string) (userId string, claims jwt.MapClaims, err error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.SecretKey), nil
	})
	if err != nil {
		return "", nil, err
	}
	if !token.Valid {
		return "", nil, fmt.Errorf("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || claims == nil {
		return "", nil, fmt.Errorf("claims is not a map")
	}
	if s.Issuer != "" {
		if iss, ok := claims["iss"].(string); !ok || iss != s.Issuer {
			return "", nil, fmt.Errorf("invalid issuer")
		}
	}
	sub, err := claims.GetSubject()
	if sub == "" {
		return "", nil, fmt.Errorf("subject not found")
	} else if err != nil {
		return "", nil, err
	}
	return sub, claims, nil
}
