package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func mintToken(t *testing.T, secret string, claims Claims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func authedRequest(token string) (*httptest.ResponseRecorder, *Claims) {
	var got *Claims
	handler := NewJWTMiddleware(testSecret).Authenticate(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got = ClaimsFromContext(r.Context())
			w.WriteHeader(http.StatusOK)
		}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/contacts", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec, got
}

func TestAuthenticateValidToken(t *testing.T) {
	token := mintToken(t, testSecret, Claims{
		Sub:    "u-123",
		Email:  "ada@acme.test",
		Tenant: "acme",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	rec, claims := authedRequest(token)
	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, claims)
	assert.Equal(t, "u-123", claims.Sub)
	assert.Equal(t, "acme", claims.Tenant)
}

func TestAuthenticateMissingToken(t *testing.T) {
	rec, _ := authedRequest("")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthenticateWrongSecret(t *testing.T) {
	token := mintToken(t, "other-secret", Claims{Sub: "u-123"})
	rec, _ := authedRequest(token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthenticateExpiredToken(t *testing.T) {
	token := mintToken(t, testSecret, Claims{
		Sub: "u-123",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	})
	rec, _ := authedRequest(token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthenticateGarbageToken(t *testing.T) {
	rec, _ := authedRequest("not.a.jwt")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
