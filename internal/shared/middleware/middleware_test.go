package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/draftforge/server/internal/shared/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestRequestID(t *testing.T) {
	t.Run("generates new request ID when not provided", func(t *testing.T) {
		router := gin.New()
		router.Use(RequestID())
		router.GET("/test", func(c *gin.Context) {
			c.String(http.StatusOK, GetRequestID(c))
		})

		req := httptest.NewRequest("GET", "/test", nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		headerID := w.Header().Get(RequestIDHeader)
		assert.NotEmpty(t, headerID)
		assert.Equal(t, headerID, w.Body.String())
	})

	t.Run("uses existing request ID from header", func(t *testing.T) {
		router := gin.New()
		router.Use(RequestID())
		router.GET("/test", func(c *gin.Context) {
			c.String(http.StatusOK, GetRequestID(c))
		})

		existingID := "existing-request-id-123"
		req := httptest.NewRequest("GET", "/test", nil)
		req.Header.Set(RequestIDHeader, existingID)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, existingID, w.Header().Get(RequestIDHeader))
		assert.Equal(t, existingID, w.Body.String())
	})
}

func TestLogging(t *testing.T) {
	t.Run("logs successful requests", func(t *testing.T) {
		buf := &bytes.Buffer{}
		log := logger.New(&logger.Config{
			Level:  "info",
			Format: "json",
			Output: buf,
		})

		router := gin.New()
		router.Use(RequestID())
		router.Use(Logging(log))
		router.GET("/test", func(c *gin.Context) {
			c.String(http.StatusOK, "ok")
		})

		req := httptest.NewRequest("GET", "/test", nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		logOutput := buf.String()
		assert.Contains(t, logOutput, "HTTP Request")
		assert.Contains(t, logOutput, "GET")
		assert.Contains(t, logOutput, "/test")
		assert.Contains(t, logOutput, "200")
	})

	t.Run("logs 5xx requests as errors", func(t *testing.T) {
		buf := &bytes.Buffer{}
		log := logger.New(&logger.Config{
			Level:  "error",
			Format: "json",
			Output: buf,
		})

		router := gin.New()
		router.Use(Logging(log))
		router.GET("/test", func(c *gin.Context) {
			c.String(http.StatusInternalServerError, "error")
		})

		req := httptest.NewRequest("GET", "/test", nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		logOutput := buf.String()
		assert.Contains(t, logOutput, "ERROR")
		assert.Contains(t, logOutput, "500")
	})
}

func TestRecovery(t *testing.T) {
	t.Run("recovers from panic", func(t *testing.T) {
		buf := &bytes.Buffer{}
		log := logger.New(&logger.Config{
			Level:  "error",
			Format: "json",
			Output: buf,
		})

		router := gin.New()
		router.Use(Recovery(log))
		router.GET("/panic", func(c *gin.Context) {
			panic("test panic")
		})

		req := httptest.NewRequest("GET", "/panic", nil)
		w := httptest.NewRecorder()

		require.NotPanics(t, func() {
			router.ServeHTTP(w, req)
		})

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Contains(t, w.Body.String(), "INTERNAL_ERROR")

		logOutput := buf.String()
		assert.Contains(t, logOutput, "Panic recovered")
		assert.Contains(t, logOutput, "test panic")
	})

	t.Run("uses default logger when nil", func(t *testing.T) {
		router := gin.New()
		router.Use(Recovery(nil))
		router.GET("/panic", func(c *gin.Context) {
			panic("test panic")
		})

		req := httptest.NewRequest("GET", "/panic", nil)
		w := httptest.NewRecorder()

		require.NotPanics(t, func() {
			router.ServeHTTP(w, req)
		})

		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestAuth(t *testing.T) {
	const secret = "test-secret"
	validator := NewJWTValidator(secret)

	signToken := func(t *testing.T, claims TenantClaims) string {
		t.Helper()
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
		signed, err := token.SignedString([]byte(secret))
		require.NoError(t, err)
		return signed
	}

	newRouter := func() *gin.Engine {
		router := gin.New()
		router.Use(Auth(validator))
		router.GET("/test", func(c *gin.Context) {
			c.String(http.StatusOK, GetTenantID(c).String())
		})
		return router
	}

	t.Run("rejects missing header", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/test", nil)
		w := httptest.NewRecorder()

		newRouter().ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "UNAUTHORIZED")
	})

	t.Run("rejects malformed token", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/test", nil)
		req.Header.Set(AuthorizationHeader, BearerPrefix+"not-a-jwt")
		w := httptest.NewRecorder()

		newRouter().ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "INVALID_TOKEN")
	})

	t.Run("rejects expired token", func(t *testing.T) {
		token := signToken(t, TenantClaims{
			TenantID: uuid.New().String(),
			RegisteredClaims: jwt.RegisteredClaims{
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
			},
		})

		req := httptest.NewRequest("GET", "/test", nil)
		req.Header.Set(AuthorizationHeader, BearerPrefix+token)
		w := httptest.NewRecorder()

		newRouter().ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("rejects token without tenant claim", func(t *testing.T) {
		token := signToken(t, TenantClaims{
			RegisteredClaims: jwt.RegisteredClaims{
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		})

		req := httptest.NewRequest("GET", "/test", nil)
		req.Header.Set(AuthorizationHeader, BearerPrefix+token)
		w := httptest.NewRecorder()

		newRouter().ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("sets tenant ID from valid token", func(t *testing.T) {
		tenantID := uuid.New()
		token := signToken(t, TenantClaims{
			TenantID: tenantID.String(),
			RegisteredClaims: jwt.RegisteredClaims{
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		})

		req := httptest.NewRequest("GET", "/test", nil)
		req.Header.Set(AuthorizationHeader, BearerPrefix+token)
		w := httptest.NewRecorder()

		newRouter().ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, tenantID.String(), w.Body.String())
	})
}

func TestGetTenantID(t *testing.T) {
	t.Run("returns Nil when not set", func(t *testing.T) {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		assert.Equal(t, uuid.Nil, GetTenantID(c))
	})

	t.Run("returns tenant ID when set", func(t *testing.T) {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		id := uuid.New()
		c.Set(TenantIDKey, id)
		assert.Equal(t, id, GetTenantID(c))
	})
}

func TestDefaultCORSConfig(t *testing.T) {
	cfg := DefaultCORSConfig()

	assert.Equal(t, []string{"*"}, cfg.AllowOrigins)
	assert.Contains(t, cfg.AllowMethods, "GET")
	assert.Contains(t, cfg.AllowMethods, "POST")
	assert.Contains(t, cfg.AllowHeaders, "Authorization")
	assert.False(t, cfg.AllowCredentials)
}
