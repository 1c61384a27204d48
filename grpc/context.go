// Package grpc lets gRPC notes services consume the session tokens this
// module issues: an interceptor verifies the bearer token carried in
// request metadata and exposes the authenticated user ID to handlers.
package grpc

import (
	"context"

	"google.golang.org/grpc/metadata"
)

// Default metadata keys for authentication context
const (
	// DefaultMetadataKeyAuthToken carries the bearer session token
	DefaultMetadataKeyAuthToken = "authorization"

	// DefaultMetadataKeyUserID carries the resolved user ID for handlers
	DefaultMetadataKeyUserID = "x-user-id"
)

type userIdContextKey struct{}

// Config holds the metadata key configuration for auth context
type Config struct {
	// MetadataKeyAuthToken is where the session token is read from.
	// Defaults to "authorization".
	MetadataKeyAuthToken string

	// MetadataKeyUserID is where a pre-resolved user ID may be supplied by
	// a trusted gateway. Defaults to "x-user-id".
	MetadataKeyUserID string

	// TrustUserIDMetadata, when true, accepts MetadataKeyUserID without a
	// token. Only enable behind a gateway that already verified the token.
	TrustUserIDMetadata bool
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		MetadataKeyAuthToken: DefaultMetadataKeyAuthToken,
		MetadataKeyUserID:    DefaultMetadataKeyUserID,
	}
}

// EnsureDefaults fills in default values for any unset fields
func (c *Config) EnsureDefaults() {
	if c.MetadataKeyAuthToken == "" {
		c.MetadataKeyAuthToken = DefaultMetadataKeyAuthToken
	}
	if c.MetadataKeyUserID == "" {
		c.MetadataKeyUserID = DefaultMetadataKeyUserID
	}
}

// UserIDFromContext returns the user ID the interceptor resolved for this
// request, or "" for unauthenticated requests.
func UserIDFromContext(ctx context.Context) string {
	if v := ctx.Value(userIdContextKey{}); v != nil {
		if userId, ok := v.(string); ok {
			return userId
		}
	}
	return ""
}

// IsAuthenticated returns true if there is an authenticated user in the context
func IsAuthenticated(ctx context.Context) bool {
	return UserIDFromContext(ctx) != ""
}

func contextWithUserID(ctx context.Context, userId string) context.Context {
	return context.WithValue(ctx, userIdContextKey{}, userId)
}

// TokenToOutgoingContext attaches a session token to outgoing gRPC metadata
func TokenToOutgoingContext(ctx context.Context, token string) context.Context {
	return metadata.AppendToOutgoingContext(ctx, DefaultMetadataKeyAuthToken, "Bearer "+token)
}

// UserIDToOutgoingContext adds a pre-resolved user ID to outgoing metadata.
// Only honored by servers configured with TrustUserIDMetadata.
func UserIDToOutgoingContext(ctx context.Context, userId string) context.Context {
	return metadata.AppendToOutgoingContext(ctx, DefaultMetadataKeyUserID, userId)
}
