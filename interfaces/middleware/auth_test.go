package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"social-publisher/infrastructure/utils"
)

const testSecret = "test-secret"

func newAuthRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Auth(testSecret))
	r.GET("/me", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": c.GetString("user_id")})
	})
	return r
}

func call(r *gin.Engine, header string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestAuth(t *testing.T) {
	r := newAuthRouter()
	valid, err := utils.GenerateToken(map[string]interface{}{
		"user_name": "alice",
		"sub":       "owner-1",
		"exp":       time.Now().Add(time.Hour).Unix(),
	}, testSecret)
	require.NoError(t, err)
	legacy, err := utils.GenerateToken(map[string]interface{}{"user_name": "bob", "iss": "owner-2"}, testSecret)
	require.NoError(t, err)
	expired, err := utils.GenerateToken(map[string]interface{}{"sub": "owner-1", "exp": time.Now().Add(-time.Hour).Unix()}, testSecret)
	require.NoError(t, err)
	forged, err := utils.GenerateToken(map[string]interface{}{"sub": "owner-1"}, "other-secret")
	require.NoError(t, err)

	t.Run("valid", func(t *testing.T) {
		w := call(r, "Bearer "+valid)
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"user_id":"owner-1"}`, w.Body.String())
	})
	t.Run("issuer fallback", func(t *testing.T) {
		w := call(r, "Bearer "+legacy)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "owner-2")
	})
	t.Run("missing header", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, call(r, "").Code)
	})
	t.Run("not bearer", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, call(r, "Basic abc").Code)
	})
	t.Run("expired", func(t *testing.T) {
		w := call(r, "Bearer "+expired)
		require.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "Timing is everything")
	})
	t.Run("malformed", func(t *testing.T) {
		w := call(r, "Bearer not.a.jwt")
		require.Equal(t, http.StatusUnauthorized, w.Code)
	})
	t.Run("wrong secret", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, call(r, "Bearer "+forged).Code)
	})
}
