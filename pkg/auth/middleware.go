package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// Method names how a request was authenticated.
type Method string

const (
	MethodJWT    Method = "jwt"
	MethodAPIKey Method = "apikey"
)

// Principal is the authenticated caller attached to a request context.
type Principal struct {
	UserID string
	Email  string
	Role   string
	Method Method
	// KeyID is set for API key authentication.
	KeyID string
}

type principalKey struct{}

// WithPrincipal returns ctx carrying p.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// FromContext returns the caller attached by the middleware, if any.
func FromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(*Principal)
	return p, ok && p != nil
}

// UserID returns the authenticated user id of r, or "".
func UserID(r *http.Request) string {
	if p, ok := FromContext(r.Context()); ok {
		return p.UserID
	}
	return ""
}

// Middleware authenticates requests with a bearer token or an X-API-Key
// header. Either manager may be nil to disable that method.
type Middleware struct {
	jwt      *JWTManager
	apiKeys  *APIKeyManager
	optional bool
	logger   *zap.Logger
}

// NewMiddleware creates the authentication middleware. With optional set,
// requests without credentials pass through unauthenticated; invalid
// credentials are still rejected.
func NewMiddleware(jwtManager *JWTManager, apiKeys *APIKeyManager, optional bool, logger *zap.Logger) *Middleware {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Middleware{jwt: jwtManager, apiKeys: apiKeys, optional: optional, logger: logger}
}

// Handler wraps next
func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, err := m.authenticate(r)
		switch {
		case err != nil:
			m.logger.Debug("authentication failed",
				zap.String("path", r.URL.Path),
				zap.Error(err))
			writeError(w, http.StatusUnauthorized, "unauthorized", err.Error())
			return
		case p != nil:
			r = r.WithContext(WithPrincipal(r.Context(), p))
		case !m.optional:
			writeError(w, http.StatusUnauthorized, "unauthorized", "no credentials provided")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// authenticate returns (nil, nil) when the request carries no credentials.
func (m *Middleware) authenticate(r *http.Request) (*Principal, error) {
	if h := r.Header.Get("Authorization"); h != "" {
		token, ok := strings.CutPrefix(h, "Bearer ")
		if !ok || m.jwt == nil {
			return nil, errors.New("unsupported authorization scheme")
		}
		claims, err := m.jwt.Verify(strings.TrimSpace(token))
		if err != nil {
			return nil, ErrInvalidToken
		}
		return &Principal{UserID: claims.UserID, Email: claims.Email, Role: claims.Role, Method: MethodJWT}, nil
	}

	if key := r.Header.Get("X-API-Key"); key != "" {
		if m.apiKeys == nil {
			return nil, errors.New("API keys are not accepted")
		}
		k, err := m.apiKeys.Verify(key)
		if err != nil {
			return nil, err
		}
		return &Principal{UserID: k.UserID, Method: MethodAPIKey, KeyID: k.ID}, nil
	}

	return nil, nil
}

// RequireRole rejects authenticated callers without role
func RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := FromContext(r.Context())
			if !ok || p.Role != role {
				writeError(w, http.StatusForbidden, "forbidden", "insufficient permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// writeError uses the same body shape as the API handlers.
func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(struct {
		Error   string `json:"error"`
		Message string `json:"message"`
		Code    int    `json:"code"`
	}{code, message, status})
}
