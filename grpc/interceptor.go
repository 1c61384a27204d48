package grpc

import (
	"context"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// VerifyTokenFunc validates a session token and returns the user it
// asserts. Typically SessionIssuer.Verify wrapped to this shape.
type VerifyTokenFunc func(tokenString string) (userId string, claims any, err error)

// InterceptorConfig configures the auth interceptor behavior
type InterceptorConfig struct {
	// Config holds the metadata key configuration
	*Config

	// VerifyToken validates bearer tokens found in metadata
	VerifyToken VerifyTokenFunc

	// RequireAuth when true rejects unauthenticated requests.
	// When false, requests proceed but UserIDFromContext returns empty.
	RequireAuth bool

	// PublicMethods is a set of method names that don't require auth.
	// Keys should be full method names like "/notes.NotesService/ListNotes".
	PublicMethods map[string]bool
}

// NewInterceptorConfig returns a config that requires a valid session
// token for every method except the listed public ones.
func NewInterceptorConfig(verify VerifyTokenFunc, publicMethods ...string) *InterceptorConfig {
	config := &InterceptorConfig{
		Config:        DefaultConfig(),
		VerifyToken:   verify,
		RequireAuth:   true,
		PublicMethods: make(map[string]bool),
	}
	for _, method := range publicMethods {
		config.PublicMethods[method] = true
	}
	return config
}

// OptionalAuthConfig returns a config that allows unauthenticated requests
func OptionalAuthConfig(verify VerifyTokenFunc) *InterceptorConfig {
	return &InterceptorConfig{
		Config:        DefaultConfig(),
		VerifyToken:   verify,
		RequireAuth:   false,
		PublicMethods: make(map[string]bool),
	}
}

func (c *InterceptorConfig) ensure() {
	if c.Config == nil {
		c.Config = DefaultConfig()
	}
	c.Config.EnsureDefaults()
	if c.PublicMethods == nil {
		c.PublicMethods = make(map[string]bool)
	}
}

// UnaryAuthInterceptor returns a gRPC unary interceptor that verifies the
// bearer session token in metadata and puts the user ID on the context.
func UnaryAuthInterceptor(config *InterceptorConfig) grpc.UnaryServerInterceptor {
	if config == nil {
		config = NewInterceptorConfig(nil)
	}
	config.ensure()
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		userId := resolveUserID(ctx, config)
		if config.RequireAuth && !config.PublicMethods[info.FullMethod] && userId == "" {
			return nil, status.Error(codes.Unauthenticated, "authentication required")
		}
		return handler(contextWithUserID(ctx, userId), req)
	}
}

// StreamAuthInterceptor returns the stream counterpart of UnaryAuthInterceptor
func StreamAuthInterceptor(config *InterceptorConfig) grpc.StreamServerInterceptor {
	if config == nil {
		config = NewInterceptorConfig(nil)
	}
	config.ensure()
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		userId := resolveUserID(ss.Context(), config)
		if config.RequireAuth && !config.PublicMethods[info.FullMethod] && userId == "" {
			return status.Error(codes.Unauthenticated, "authentication required")
		}
		return handler(srv, &wrappedStream{ServerStream: ss, ctx: contextWithUserID(ss.Context(), userId)})
	}
}

type wrappedStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (w *wrappedStream) Context() context.Context {
	return w.ctx
}

// resolveUserID extracts and verifies the caller identity from metadata
func resolveUserID(ctx context.Context, config *InterceptorConfig) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}

	if config.TrustUserIDMetadata {
		if values := md.Get(config.MetadataKeyUserID); len(values) > 0 && values[0] != "" {
			return values[0]
		}
	}

	if config.VerifyToken == nil {
		return ""
	}
	for _, value := range md.Get(config.MetadataKeyAuthToken) {
		token := value
		if parts := strings.SplitN(value, " ", 2); len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			token = strings.TrimSpace(parts[1])
		}
		if token == "" {
			continue
		}
		if userId, _, err := config.VerifyToken(token); err == nil && userId != "" {
			return userId
		}
	}
	return ""
}
