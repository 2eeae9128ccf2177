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

const secret = "test-secret"

func TestIssueVerify(t *testing.T) {
	token, err := Issue(secret, "user-42", time.Hour)
	require.NoError(t, err)

	id, err := NewVerifier(secret).Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "user-42", id)
}

func TestVerify_Rejects(t *testing.T) {
	expired, err := Issue(secret, "user-42", -time.Minute)
	require.NoError(t, err)

	wrongSecret, err := Issue("other", "user-42", time.Hour)
	require.NoError(t, err)

	noUser, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(secret))
	require.NoError(t, err)

	for name, token := range map[string]string{
		"expired":      expired,
		"wrong secret": wrongSecret,
		"no user":      noUser,
		"garbage":      "not.a.jwt",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := NewVerifier(secret).Verify(token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestVerify_FallbackClaims(t *testing.T) {
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"email": "someone@example.com",
		"exp":   time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(secret))
	require.NoError(t, err)

	id, err := NewVerifier(secret).Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "someone@example.com", id)

	token, err = jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"userId": float64(17),
		"exp":    time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(secret))
	require.NoError(t, err)

	id, err = NewVerifier(secret).Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "17", id)
}

func TestMiddleware(t *testing.T) {
	var seen string
	h := NewVerifier(secret).Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = UserID(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	t.Run("missing header", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.JSONEq(t, `{"error":"authorization header required"}`, rec.Body.String())
	})

	t.Run("bad token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer nope")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("valid token", func(t *testing.T) {
		token, err := Issue(secret, "user-7", time.Hour)
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, "user-7", seen)
	})
}
