package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func corsRouter(cfg CORSConfig) *gin.Engine {
	router := gin.New()
	router.Use(CORSWithConfig(cfg))
	router.GET("/api/v1/listings", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	return router
}

func doRequest(router *gin.Engine, method, path string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestCORS_DefaultRejectsCrossOrigin(t *testing.T) {
	router := gin.New()
	router.Use(CORS())
	router.GET("/api/v1/listings", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	w := doRequest(router, "GET", "/api/v1/listings", map[string]string{
		"Origin": "https://evil.example.com",
	})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSWithConfig(t *testing.T) {
	t.Run("whitelisted origin gets headers", func(t *testing.T) {
		cfg := DefaultCORSConfig()
		cfg.AllowOrigins = []string{"https://app.crosslist.io"}
		router := corsRouter(cfg)

		w := doRequest(router, "GET", "/api/v1/listings", map[string]string{
			"Origin": "https://app.crosslist.io",
		})

		assert.Equal(t, "https://app.crosslist.io", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
		assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "DELETE")
	})

	t.Run("unlisted origin gets no headers", func(t *testing.T) {
		cfg := DefaultCORSConfig()
		cfg.AllowOrigins = []string{"https://app.crosslist.io"}
		router := corsRouter(cfg)

		w := doRequest(router, "GET", "/api/v1/listings", map[string]string{
			"Origin": "https://other.example.com",
		})

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("wildcard allows any origin without credentials", func(t *testing.T) {
		cfg := DefaultCORSConfig()
		cfg.AllowOrigins = []string{"*"}
		router := corsRouter(cfg)

		w := doRequest(router, "GET", "/api/v1/listings", map[string]string{
			"Origin": "https://anything.example.com",
		})

		assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Credentials"))
	})

	t.Run("preflight always gets 204", func(t *testing.T) {
		cfg := DefaultCORSConfig()
		cfg.AllowOrigins = []string{"https://app.crosslist.io"}
		router := corsRouter(cfg)

		w := doRequest(router, "OPTIONS", "/api/v1/listings", map[string]string{
			"Origin": "https://app.crosslist.io",
		})

		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Equal(t, "https://app.crosslist.io", w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("preflight from unlisted origin gets 204 without headers", func(t *testing.T) {
		cfg := DefaultCORSConfig()
		cfg.AllowOrigins = []string{"https://app.crosslist.io"}
		router := corsRouter(cfg)

		w := doRequest(router, "OPTIONS", "/api/v1/listings", map[string]string{
			"Origin": "https://other.example.com",
		})

		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("max age is emitted in seconds", func(t *testing.T) {
		cfg := DefaultCORSConfig()
		cfg.AllowOrigins = []string{"*"}
		cfg.MaxAge = 2 * time.Hour
		router := corsRouter(cfg)

		w := doRequest(router, "OPTIONS", "/api/v1/listings", map[string]string{
			"Origin": "https://app.crosslist.io",
		})

		assert.Equal(t, "7200", w.Header().Get("Access-Control-Max-Age"))
	})
}

func TestDefaultCORSConfig(t *testing.T) {
	cfg := DefaultCORSConfig()

	assert.Empty(t, cfg.AllowOrigins, "origins must be opted into explicitly")
	assert.Contains(t, cfg.AllowHeaders, "Idempotency-Key")
	assert.Contains(t, cfg.ExposeHeaders, "X-Request-ID")
	assert.True(t, cfg.AllowCredentials)
}

func TestRequestID(t *testing.T) {
	router := gin.New()
	router.Use(RequestID())
	router.GET("/api/v1/listings", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString("request_id"))
	})

	t.Run("mints an ID when none supplied", func(t *testing.T) {
		w := doRequest(router, "GET", "/api/v1/listings", nil)

		echoed := w.Header().Get("X-Request-ID")
		require.NotEmpty(t, echoed)
		assert.Equal(t, echoed, w.Body.String())

		_, err := uuid.Parse(echoed)
		assert.NoError(t, err)
	})

	t.Run("propagates a caller-supplied ID", func(t *testing.T) {
		w := doRequest(router, "GET", "/api/v1/listings", map[string]string{
			"X-Request-ID": "sync-req-42",
		})

		assert.Equal(t, "sync-req-42", w.Header().Get("X-Request-ID"))
		assert.Equal(t, "sync-req-42", w.Body.String())
	})

	t.Run("distinct requests get distinct IDs", func(t *testing.T) {
		first := doRequest(router, "GET", "/api/v1/listings", nil)
		second := doRequest(router, "GET", "/api/v1/listings", nil)

		assert.NotEqual(t, first.Header().Get("X-Request-ID"), second.Header().Get("X-Request-ID"))
	})
}

func TestSecure(t *testing.T) {
	router := gin.New()
	router.Use(Secure())
	router.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	w := doRequest(router, "GET", "/health", nil)

	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "strict-origin-when-cross-origin", w.Header().Get("Referrer-Policy"))
	assert.Contains(t, w.Header().Get("Content-Security-Policy"), "default-src 'self'")
	assert.NotEmpty(t, w.Header().Get("Permissions-Policy"))
	assert.Empty(t, w.Header().Get("Strict-Transport-Security"), "HSTS is off by default")
}

func TestSecureWithConfig(t *testing.T) {
	t.Run("HSTS header assembled from settings", func(t *testing.T) {
		cfg := DefaultSecurityConfig()
		cfg.HSTSEnabled = true
		cfg.HSTSPreload = true

		router := gin.New()
		router.Use(SecureWithConfig(cfg))
		router.GET("/health", func(c *gin.Context) {
			c.String(http.StatusOK, "ok")
		})

		w := doRequest(router, "GET", "/health", nil)

		hsts := w.Header().Get("Strict-Transport-Security")
		assert.Contains(t, hsts, "max-age=31536000")
		assert.Contains(t, hsts, "includeSubDomains")
		assert.Contains(t, hsts, "preload")
	})

	t.Run("CSP can be disabled", func(t *testing.T) {
		cfg := DefaultSecurityConfig()
		cfg.CSPEnabled = false

		router := gin.New()
		router.Use(SecureWithConfig(cfg))
		router.GET("/health", func(c *gin.Context) {
			c.String(http.StatusOK, "ok")
		})

		w := doRequest(router, "GET", "/health", nil)

		assert.Empty(t, w.Header().Get("Content-Security-Policy"))
		assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	})

	t.Run("custom permissions policy", func(t *testing.T) {
		cfg := DefaultSecurityConfig()
		cfg.PermissionsPolicyDirective = "camera=(), microphone=()"

		router := gin.New()
		router.Use(SecureWithConfig(cfg))
		router.GET("/health", func(c *gin.Context) {
			c.String(http.StatusOK, "ok")
		})

		w := doRequest(router, "GET", "/health", nil)

		assert.Equal(t, "camera=(), microphone=()", w.Header().Get("Permissions-Policy"))
	})
}

func TestDefaultSecurityConfig(t *testing.T) {
	cfg := DefaultSecurityConfig()

	assert.False(t, cfg.HSTSEnabled)
	assert.Equal(t, 31536000, cfg.HSTSMaxAge)
	assert.True(t, cfg.CSPEnabled)
	assert.Contains(t, cfg.CSPDirective, "frame-ancestors 'none'")
	assert.True(t, cfg.PermissionsPolicyEnabled)
}
