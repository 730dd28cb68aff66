package middleware

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"golang.org/x/time/rate"

	"github.com/AyanAhmedKhan/careerly-backend/pkg/errors"
	"github.com/AyanAhmedKhan/careerly-backend/pkg/logger"
)

func newTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	logger.Init("test")

	r := gin.New()
	r.Use(ErrorHandlerMiddleware())
	return r
}

func TestErrorHandlerMapsAppError(t *testing.T) {
	r := newTestRouter()
	r.GET("/boom", func(c *gin.Context) {
		c.Error(errors.Unauthorized("Invalid or expired token"))
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/boom", nil))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid or expired token")
}

func TestErrorHandlerMasksUnknownError(t *testing.T) {
	r := newTestRouter()
	r.GET("/oops", func(c *gin.Context) {
		c.Error(fmt.Errorf("connection refused"))
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/oops", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	// Internal detail never reaches the client.
	assert.NotContains(t, w.Body.String(), "connection refused")
}

func TestErrorHandlerRecoversPanic(t *testing.T) {
	r := newTestRouter()
	r.GET("/panic", func(c *gin.Context) {
		panic("unreachable state")
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/panic", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestAuthMiddlewareMissingHeader(t *testing.T) {
	r := newTestRouter()
	r.GET("/me", AuthMiddleware(), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/me", nil))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Authorization header required")
}

func TestRateLimitExceededReturns429(t *testing.T) {
	r := newTestRouter()
	limiter := NewIPRateLimiter(rate.Limit(0), 1)
	r.GET("/ping", RateLimitMiddleware(limiter), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w1 := httptest.NewRecorder()
	r.ServeHTTP(w1, httptest.NewRequest("GET", "/ping", nil))
	assert.Equal(t, http.StatusOK, w1.Code)

	w2 := httptest.NewRecorder()
	r.ServeHTTP(w2, httptest.NewRequest("GET", "/ping", nil))
	assert.Equal(t, http.StatusTooManyRequests, w2.Code)
	assert.Contains(t, w2.Body.String(), "Rate limit exceeded")
}
