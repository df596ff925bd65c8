package middleware

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func limitedRouter(limiter *RateLimiter, mw gin.HandlerFunc) *gin.Engine {
	router := gin.New()
	router.Use(mw)
	router.GET("/api/v1/briefing", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	return router
}

func serveLimited(router *gin.Engine, headers map[string]string, remoteAddr string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/briefing", nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	if remoteAddr != "" {
		req.RemoteAddr = remoteAddr
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRateLimiter(t *testing.T) {
	t.Run("allows requests within limit", func(t *testing.T) {
		limiter := NewRateLimiter(5, time.Minute)

		for i := 0; i < 5; i++ {
			assert.True(t, limiter.Allow("exec-dashboard"), "request %d should pass", i+1)
		}
		assert.False(t, limiter.Allow("exec-dashboard"))
	})

	t.Run("separate buckets per key", func(t *testing.T) {
		limiter := NewRateLimiter(2, time.Minute)

		assert.True(t, limiter.Allow("org-acme"))
		assert.True(t, limiter.Allow("org-acme"))
		assert.False(t, limiter.Allow("org-acme"))

		assert.True(t, limiter.Allow("org-globex"))
		assert.True(t, limiter.Allow("org-globex"))
	})

	t.Run("refills after window", func(t *testing.T) {
		limiter := NewRateLimiter(2, 50*time.Millisecond)

		assert.True(t, limiter.Allow("refresher"))
		assert.True(t, limiter.Allow("refresher"))
		assert.False(t, limiter.Allow("refresher"))

		time.Sleep(60 * time.Millisecond)

		assert.True(t, limiter.Allow("refresher"))
	})

	t.Run("remaining tracks consumed tokens", func(t *testing.T) {
		limiter := NewRateLimiter(5, time.Minute)

		assert.Equal(t, 5, limiter.Remaining("fresh"))

		limiter.Allow("fresh")
		limiter.Allow("fresh")

		assert.Equal(t, 3, limiter.Remaining("fresh"))
	})

	t.Run("concurrent access is safe", func(t *testing.T) {
		limiter := NewRateLimiter(100, time.Minute)

		var wg sync.WaitGroup
		var mu sync.Mutex
		allowed := 0

		for i := 0; i < 150; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if limiter.Allow("burst") {
					mu.Lock()
					allowed++
					mu.Unlock()
				}
			}()
		}

		wg.Wait()
		assert.Equal(t, 100, allowed)
	})
}

func TestRateLimit(t *testing.T) {
	t.Run("blocks with RATE_LIMIT_EXCEEDED past the limit", func(t *testing.T) {
		limiter := NewRateLimiter(2, time.Minute)
		router := limitedRouter(limiter, RateLimit(limiter))

		for i := 0; i < 2; i++ {
			assert.Equal(t, http.StatusOK, serveLimited(router, nil, "").Code)
		}

		w := serveLimited(router, nil, "")
		assert.Equal(t, http.StatusTooManyRequests, w.Code)
		assert.Contains(t, w.Body.String(), "RATE_LIMIT_EXCEEDED")
	})

	t.Run("keys on org header", func(t *testing.T) {
		limiter := NewRateLimiter(1, time.Minute)
		router := limitedRouter(limiter, RateLimit(limiter))

		acme := map[string]string{"X-Org-ID": "org-acme"}
		globex := map[string]string{"X-Org-ID": "org-globex"}

		assert.Equal(t, http.StatusOK, serveLimited(router, acme, "").Code)
		assert.Equal(t, http.StatusTooManyRequests, serveLimited(router, acme, "").Code)
		assert.Equal(t, http.StatusOK, serveLimited(router, globex, "").Code)
	})
}

func TestRateLimitByKey(t *testing.T) {
	limiter := NewRateLimiter(1, time.Minute)
	keyFunc := func(c *gin.Context) string {
		return c.GetHeader("X-User-ID")
	}
	router := limitedRouter(limiter, RateLimitByKey(limiter, keyFunc))

	exec := map[string]string{"X-User-ID": "user-exec-1"}

	assert.Equal(t, http.StatusOK, serveLimited(router, exec, "").Code)
	assert.Equal(t, http.StatusTooManyRequests, serveLimited(router, exec, "").Code)
}

func TestAuthRateLimit(t *testing.T) {
	loginRouter := func(limiter *RateLimiter) *gin.Engine {
		router := gin.New()
		router.Use(AuthRateLimit(limiter))
		router.POST("/api/v1/auth/login", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"success": true})
		})
		return router
	}
	login := func(router *gin.Engine, addr string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", nil)
		req.RemoteAddr = addr
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	t.Run("blocks with auth specific error", func(t *testing.T) {
		router := loginRouter(NewRateLimiter(3, time.Minute))

		for i := 0; i < 3; i++ {
			assert.Equal(t, http.StatusOK, login(router, "192.168.1.100:12345").Code)
		}

		w := login(router, "192.168.1.100:12345")
		assert.Equal(t, http.StatusTooManyRequests, w.Code)
		assert.Contains(t, w.Body.String(), "AUTH_RATE_LIMIT_EXCEEDED")
		assert.Contains(t, w.Body.String(), "Too many authentication attempts")
	})

	t.Run("exposes limit headers", func(t *testing.T) {
		router := loginRouter(NewRateLimiter(5, time.Minute))

		w := login(router, "192.168.1.100:12345")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "5", w.Header().Get("X-RateLimit-Limit"))
		assert.Equal(t, "4", w.Header().Get("X-RateLimit-Remaining"))
	})

	t.Run("sets Retry-After when blocked", func(t *testing.T) {
		router := loginRouter(NewRateLimiter(1, time.Minute))

		login(router, "192.168.1.100:12345")
		w := login(router, "192.168.1.100:12345")

		assert.Equal(t, http.StatusTooManyRequests, w.Code)
		assert.Equal(t, "60", w.Header().Get("Retry-After"))
	})

	t.Run("keys on client IP", func(t *testing.T) {
		router := loginRouter(NewRateLimiter(2, time.Minute))

		for i := 0; i < 2; i++ {
			assert.Equal(t, http.StatusOK, login(router, "192.168.1.1:12345").Code)
		}
		assert.Equal(t, http.StatusTooManyRequests, login(router, "192.168.1.1:12345").Code)
		assert.Equal(t, http.StatusOK, login(router, "192.168.1.2:12345").Code)
	})

	t.Run("auth bucket is isolated from the global limiter", func(t *testing.T) {
		globalLimiter := NewRateLimiter(100, time.Minute)
		authLimiter := NewRateLimiter(2, time.Minute)

		router := gin.New()
		authGroup := router.Group("/api/v1/auth")
		authGroup.Use(AuthRateLimit(authLimiter))
		authGroup.POST("/login", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"success": true})
		})
		router.Use(RateLimit(globalLimiter))
		router.GET("/api/v1/briefing", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"date": "2026-08-29"})
		})

		for i := 0; i < 2; i++ {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", nil)
			req.RemoteAddr = "192.168.1.100:12345"
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			assert.Equal(t, http.StatusOK, w.Code)
		}

		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", nil)
		req.RemoteAddr = "192.168.1.100:12345"
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusTooManyRequests, w.Code)

		req = httptest.NewRequest(http.MethodGet, "/api/v1/briefing", nil)
		req.RemoteAddr = "192.168.1.100:12345"
		w = httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	})
}
