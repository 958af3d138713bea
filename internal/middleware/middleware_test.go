package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"moral-torture-machine/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestSanitizedPath(t *testing.T) {
	u, err := url.Parse("/get-dilemma?exclude=a-en,b-en&language=it&email=x@y.z")
	require.NoError(t, err)
	assert.Equal(t, "/get-dilemma?language=it", SanitizedPath(u))

	u, err = url.Parse("/vote?secret=1")
	require.NoError(t, err)
	assert.Equal(t, "/vote", SanitizedPath(u))
}

func TestGinZapLogger(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	r := gin.New()
	r.Use(GinZapLogger(zap.New(core)))
	r.GET("/get-dilemma", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/get-dilemma?language=en&exclude=secret-id", nil))
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))

	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(RequestIDHeader, "fixed-id")
	r.ServeHTTP(w, req)
	assert.Equal(t, "fixed-id", w.Header().Get(RequestIDHeader))

	entries := logs.All()
	require.Len(t, entries, 1, "/health is not logged")
	assert.Equal(t, "/get-dilemma?language=en", entries[0].ContextMap()["path"])
}

func TestSecurityHeaders(t *testing.T) {
	r := gin.New()
	r.Use(SecurityHeaders())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "default-src 'self'", w.Header().Get("Content-Security-Policy"))
	assert.Contains(t, w.Header().Get("Strict-Transport-Security"), "max-age=31536000")
}

func TestSession(t *testing.T) {
	r := gin.New()
	r.Use(Session())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, SessionID(c)) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(SessionHeader, "abc-123")
	r.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Body.String())

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Len(t, w.Body.String(), 36)
}

func TestAdminAuth(t *testing.T) {
	verifier := func(_ context.Context, token string) (*models.Claims, error) {
		switch token {
		case "admin":
			return &models.Claims{Roles: []string{models.RoleAdmin}}, nil
		case "player":
			return &models.Claims{Roles: []string{"player"}}, nil
		case "expired":
			return nil, models.ErrTokenExpired
		}
		return nil, models.ErrTokenInvalid
	}
	r := gin.New()
	r.POST("/admin", AdminAuth(verifier, zap.NewNop(), models.RoleAdmin), func(c *gin.Context) {
		claims, ok := ClaimsFrom(c)
		assert.True(t, ok)
		assert.True(t, claims.HasRole(models.RoleAdmin))
		c.Status(http.StatusNoContent)
	})

	tests := []struct {
		header string
		want   int
	}{
		{"", http.StatusUnauthorized},
		{"Token admin", http.StatusUnauthorized},
		{"Bearer expired", http.StatusUnauthorized},
		{"Bearer garbage", http.StatusUnauthorized},
		{"Bearer player", http.StatusForbidden},
		{"bearer admin", http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/admin", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}
