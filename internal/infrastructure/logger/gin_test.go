package logger

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// serveLogged runs one request through a router wrapped in GinMiddleware and
// returns the recorder plus the "HTTP Request" log entry, if any.
func serveLogged(t *testing.T, level zapcore.Level, register func(*gin.Engine), req *http.Request) (*httptest.ResponseRecorder, *observer.LoggedEntry) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	core, recorded := observer.New(level)
	router := gin.New()
	router.Use(GinMiddleware(zap.New(core)))
	register(router)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	for _, entry := range recorded.All() {
		if entry.Message == "HTTP Request" {
			e := entry
			return w, &e
		}
	}
	return w, nil
}

func TestGinMiddleware(t *testing.T) {
	req := httptest.NewRequest("GET", "/api/v1/briefing?date=2026-03-10", nil)
	req.Header.Set("User-Agent", "briefing-dashboard/1.0")

	w, entry := serveLogged(t, zapcore.InfoLevel, func(r *gin.Engine) {
		r.GET("/api/v1/briefing", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"date": "2026-03-10"})
		})
	}, req)

	assert.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, entry)
	assert.Equal(t, zapcore.InfoLevel, entry.Level)

	fields := make(map[string]zapcore.Field)
	for _, f := range entry.Context {
		fields[f.Key] = f
	}
	assert.Contains(t, fields, "status")
	assert.Contains(t, fields, "latency")
	assert.Contains(t, fields, "client_ip")
	assert.Equal(t, "briefing-dashboard/1.0", fields["user_agent"].String)
	assert.Equal(t, "GET", fields["method"].String)
	assert.Equal(t, "/api/v1/briefing", fields["path"].String)
	assert.Contains(t, fields["query"].String, "date=2026-03-10")
}

func TestGinMiddleware_CarriesRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)

	core, recorded := observer.New(zapcore.InfoLevel)
	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set("request_id", "briefing-req-7")
		c.Next()
	})
	router.Use(GinMiddleware(zap.New(core)))
	router.GET("/api/v1/briefing", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{})
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/briefing", nil))

	require.NotEmpty(t, recorded.All())
	found := false
	for _, entry := range recorded.All() {
		for _, f := range entry.Context {
			if f.Key == "request_id" {
				found = true
				assert.Equal(t, "briefing-req-7", f.String)
			}
		}
	}
	assert.True(t, found)
}

func TestGinMiddleware_ClientErrorLogsWarn(t *testing.T) {
	w, entry := serveLogged(t, zapcore.WarnLevel, func(r *gin.Engine) {
		r.POST("/api/v1/connections", func(c *gin.Context) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown provider"})
		})
	}, httptest.NewRequest("POST", "/api/v1/connections", nil))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	require.NotNil(t, entry)
	assert.Equal(t, zapcore.WarnLevel, entry.Level)
}

func TestGinMiddleware_ServerErrorLogsError(t *testing.T) {
	w, entry := serveLogged(t, zapcore.ErrorLevel, func(r *gin.Engine) {
		r.GET("/api/v1/briefing", func(c *gin.Context) {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "assembly failed"})
		})
	}, httptest.NewRequest("GET", "/api/v1/briefing", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	require.NotNil(t, entry)
	assert.Equal(t, zapcore.ErrorLevel, entry.Level)
}

func TestRecovery(t *testing.T) {
	gin.SetMode(gin.TestMode)

	core, recorded := observer.New(zapcore.ErrorLevel)
	router := gin.New()
	router.Use(Recovery(zap.New(core)))
	router.GET("/api/v1/briefing", func(c *gin.Context) {
		panic("provider client exploded")
	})

	w := httptest.NewRecorder()
	assert.NotPanics(t, func() {
		router.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/briefing", nil))
	})

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	require.NotEmpty(t, recorded.All())
	assert.Contains(t, recorded.All()[0].Message, "Panic recovered")
}

func TestGetGinLogger(t *testing.T) {
	gin.SetMode(gin.TestMode)

	core, _ := observer.New(zapcore.InfoLevel)
	var fromContext *zap.Logger

	router := gin.New()
	router.Use(GinMiddleware(zap.New(core)))
	router.GET("/api/v1/briefing", func(c *gin.Context) {
		fromContext = GetGinLogger(c)
		c.JSON(http.StatusOK, gin.H{})
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/briefing", nil))

	assert.NotNil(t, fromContext)
}

func TestGetGinLogger_NotSet(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var fromContext *zap.Logger
	router := gin.New()
	router.GET("/api/v1/briefing", func(c *gin.Context) {
		fromContext = GetGinLogger(c)
		c.JSON(http.StatusOK, gin.H{})
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/briefing", nil))

	// Falls back to a no-op logger rather than nil
	require.NotNil(t, fromContext)
	assert.NotPanics(t, func() { fromContext.Info("noop") })
}
