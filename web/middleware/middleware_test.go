package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiterPerIP(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute)
	now := time.Now()

	assert.True(t, rl.allow("1.1.1.1", now))
	assert.True(t, rl.allow("1.1.1.1", now))
	assert.False(t, rl.allow("1.1.1.1", now))
	assert.True(t, rl.allow("2.2.2.2", now))

	// one token refills every 30s
	assert.True(t, rl.allow("1.1.1.1", now.Add(31*time.Second)))

	rl.sweep(now.Add(2 * time.Minute))
	assert.Empty(t, rl.visitors)
}

func adminRequest(t *testing.T, secret, header string) int {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/", AdminAuth(secret), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w.Code
}

func TestAdminAuth(t *testing.T) {
	token, err := IssueAdminToken("s3cret", time.Hour)
	require.NoError(t, err)

	assert.Equal(t, http.StatusNoContent, adminRequest(t, "s3cret", "Bearer "+token))
	assert.Equal(t, http.StatusUnauthorized, adminRequest(t, "s3cret", ""))
	assert.Equal(t, http.StatusUnauthorized, adminRequest(t, "s3cret", token))
	assert.Equal(t, http.StatusUnauthorized, adminRequest(t, "other", "Bearer "+token))
	assert.Equal(t, http.StatusUnauthorized, adminRequest(t, "", "Bearer "+token))

	expired, err := IssueAdminToken("s3cret", -time.Minute)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, adminRequest(t, "s3cret", "Bearer "+expired))

	user, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "someone",
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("s3cret"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, adminRequest(t, "s3cret", "Bearer "+user))

	_, err = IssueAdminToken("", time.Hour)
	assert.Error(t, err)
}
