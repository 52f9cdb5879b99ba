package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestMiddleware(t *testing.T, optional bool) (*Middleware, *JWTManager, *APIKeyManager) {
	t.Helper()
	jwtManager := NewJWTManager("test-secret", time.Hour)
	apiKeys := NewAPIKeyManager()
	return NewMiddleware(jwtManager, apiKeys, optional, zap.NewNop()), jwtManager, apiKeys
}

func serve(h http.Handler, header, value string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/jobs", nil)
	if header != "" {
		req.Header.Set(header, value)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestMiddleware_JWT(t *testing.T) {
	m, jwtManager, _ := newTestMiddleware(t, false)

	token, err := jwtManager.Generate("user123", "user@example.com", "admin")
	require.NoError(t, err)

	var got *Principal
	handler := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = FromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	rr := serve(handler, "Authorization", "Bearer "+token)
	assert.Equal(t, http.StatusOK, rr.Code)
	require.NotNil(t, got)
	assert.Equal(t, &Principal{UserID: "user123", Email: "user@example.com", Role: "admin", Method: MethodJWT}, got)
}

func TestMiddleware_APIKey(t *testing.T) {
	m, _, apiKeys := newTestMiddleware(t, false)

	apiKey, err := apiKeys.Generate("user456", "Test Key", nil)
	require.NoError(t, err)

	handler := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := FromContext(r.Context())
		assert.True(t, ok)
		assert.Equal(t, MethodAPIKey, p.Method)
		assert.Equal(t, apiKey.ID, p.KeyID)
		assert.Equal(t, "user456", UserID(r))
		w.WriteHeader(http.StatusOK)
	}))

	rr := serve(handler, "X-API-Key", apiKey.Key)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestMiddleware_Rejections(t *testing.T) {
	tests := []struct {
		name     string
		optional bool
		header   string
		value    string
	}{
		{"invalid bearer", false, "Authorization", "Bearer invalid-token"},
		{"basic scheme", false, "Authorization", "Basic dXNlcjpwYXNz"},
		{"invalid api key", false, "X-API-Key", "invalid-key"},
		{"no credentials", false, "", ""},
		{"invalid bearer when optional", true, "Authorization", "Bearer invalid-token"},
		{"invalid api key when optional", true, "X-API-Key", "invalid-key"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, _, _ := newTestMiddleware(t, tt.optional)
			handler := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				t.Fatal("handler should not be called")
			}))

			rr := serve(handler, tt.header, tt.value)
			assert.Equal(t, http.StatusUnauthorized, rr.Code)

			var body struct {
				Error string `json:"error"`
				Code  int    `json:"code"`
			}
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
			assert.Equal(t, "unauthorized", body.Error)
			assert.Equal(t, http.StatusUnauthorized, body.Code)
		})
	}
}

func TestMiddleware_OptionalWithoutCredentials(t *testing.T) {
	m, _, _ := newTestMiddleware(t, true)

	handler := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, ok := FromContext(r.Context())
		assert.False(t, ok)
		assert.Empty(t, UserID(r))
		w.WriteHeader(http.StatusOK)
	}))

	rr := serve(handler, "", "")
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestMiddleware_DisabledMethod(t *testing.T) {
	m := NewMiddleware(NewJWTManager("s", time.Hour), nil, false, nil)
	handler := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be called")
	}))

	rr := serve(handler, "X-API-Key", "anything")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestRequireRole(t *testing.T) {
	m, jwtManager, _ := newTestMiddleware(t, false)

	adminToken, err := jwtManager.Generate("admin123", "admin@example.com", "admin")
	require.NoError(t, err)
	userToken, err := jwtManager.Generate("user123", "user@example.com", "user")
	require.NoError(t, err)

	handler := m.Handler(RequireRole("admin")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})))

	t.Run("admin access", func(t *testing.T) {
		rr := serve(handler, "Authorization", "Bearer "+adminToken)
		assert.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("user denied", func(t *testing.T) {
		rr := serve(handler, "Authorization", "Bearer "+userToken)
		assert.Equal(t, http.StatusForbidden, rr.Code)
	})
}
