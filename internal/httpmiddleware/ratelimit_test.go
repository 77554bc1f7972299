package httpmiddleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"

	"checkin/internal/auth"
)

func TestAllowRefills(t *testing.T) {
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	l := NewSimpleTokenBucket(2, 60)
	l.now = func() time.Time { return now }

	assert.True(t, l.Allow("a"))
	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"))
	assert.True(t, l.Allow("b"), "buckets are per key")

	now = now.Add(time.Second)
	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"))

	now = now.Add(time.Hour)
	assert.True(t, l.Allow("a"))
	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"), "refill is capped at capacity")
}

func TestMiddlewareKeysByStation(t *testing.T) {
	gin.SetMode(gin.TestMode)
	l := NewSimpleTokenBucket(1, 1)
	r := gin.New()
	r.GET("/x", func(c *gin.Context) {
		if s := c.GetHeader("X-Station"); s != "" {
			c.Set(auth.ClaimsKey, auth.Claims{Role: auth.RoleStation, RegisteredClaims: jwt.RegisteredClaims{Subject: s}})
		}
	}, l.GinMiddleware(), func(c *gin.Context) { c.Status(http.StatusOK) })

	do := func(station string) int {
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		req.RemoteAddr = "10.0.0.1:5555"
		if station != "" {
			req.Header.Set("X-Station", station)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, do("gate-a"))
	assert.Equal(t, http.StatusTooManyRequests, do("gate-a"))
	assert.Equal(t, http.StatusOK, do("gate-b"), "same IP, different station")
	assert.Equal(t, http.StatusOK, do(""))
	assert.Equal(t, http.StatusTooManyRequests, do(""))
}
