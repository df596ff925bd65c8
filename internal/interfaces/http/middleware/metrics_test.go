package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func manualMeter(t *testing.T) (*sdkmetric.MeterProvider, *sdkmetric.ManualReader) {
	t.Helper()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(mp)

	t.Cleanup(func() {
		_ = mp.Shutdown(context.Background())
	})

	return mp, reader
}

func collectHTTPMetric(t *testing.T, reader *sdkmetric.ManualReader, name string) *metricdata.Metrics {
	t.Helper()

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

func counterTotal(t *testing.T, m *metricdata.Metrics) int64 {
	t.Helper()

	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok, "expected Sum data for counter")

	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

func TestDefaultHTTPMetricsConfig(t *testing.T) {
	cfg := DefaultHTTPMetricsConfig()

	assert.Equal(t, "briefing-backend", cfg.ServiceName)
	assert.True(t, cfg.Enabled)
	assert.Nil(t, cfg.MeterProvider)
}

func TestHTTPMetrics_DisabledOrNilProvider(t *testing.T) {
	for _, cfg := range []HTTPMetricsConfig{
		{Enabled: false},
		{Enabled: true, MeterProvider: nil},
	} {
		router := gin.New()
		router.Use(HTTPMetrics(cfg))
		router.GET("/api/v1/briefing", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"date": "2026-08-29"})
		})

		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, "/api/v1/briefing", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	}
}

func TestHTTPMetricsWithMeter_RequestCounter(t *testing.T) {
	mp, reader := manualMeter(t)

	router := gin.New()
	router.Use(HTTPMetricsWithMeter(mp.Meter("http.server"), true))
	router.GET("/api/v1/briefing", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"date": "2026-08-29"})
	})

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, "/api/v1/briefing", nil)
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	}

	total := collectHTTPMetric(t, reader, "http_server_request_total")
	require.NotNil(t, total)
	assert.Equal(t, int64(3), counterTotal(t, total))

	duration := collectHTTPMetric(t, reader, "http_server_request_duration_seconds")
	require.NotNil(t, duration)
}

func TestHTTPMetricsWithMeter_StatusAndMethodLabels(t *testing.T) {
	mp, reader := manualMeter(t)

	router := gin.New()
	router.Use(HTTPMetricsWithMeter(mp.Meter("http.server"), true))
	router.GET("/api/v1/briefing", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"date": "2026-08-29"})
	})
	router.POST("/api/v1/briefing/refresh", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"refreshed": true})
	})
	router.GET("/api/v1/connections/missing", func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown provider"})
	})

	for _, r := range []struct{ method, path string }{
		{http.MethodGet, "/api/v1/briefing"},
		{http.MethodGet, "/api/v1/briefing"},
		{http.MethodPost, "/api/v1/briefing/refresh"},
		{http.MethodGet, "/api/v1/connections/missing"},
	} {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest(r.method, r.path, nil)
		router.ServeHTTP(w, req)
	}

	total := collectHTTPMetric(t, reader, "http_server_request_total")
	require.NotNil(t, total)

	// mixed methods and status codes still sum to the request count
	assert.Equal(t, int64(4), counterTotal(t, total))

	sum, ok := total.Data.(metricdata.Sum[int64])
	require.True(t, ok)
	assert.Greater(t, len(sum.DataPoints), 1, "expected separate series per route/status")
}

func TestHTTPMetricsWithMeter_SizeHistograms(t *testing.T) {
	mp, reader := manualMeter(t)

	router := gin.New()
	router.Use(HTTPMetricsWithMeter(mp.Meter("http.server"), true))
	router.POST("/api/v1/connections/zendesk", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"provider": "zendesk", "status": "connected"})
	})

	w := httptest.NewRecorder()
	body := strings.NewReader(`{"subdomain": "acme", "api_token": "zd-token"}`)
	req, _ := http.NewRequest(http.MethodPost, "/api/v1/connections/zendesk", body)
	req.Header.Set("Content-Type", "application/json")
	req.ContentLength = int64(body.Len())
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	for _, name := range []string{"http_server_request_size_bytes", "http_server_response_size_bytes"} {
		m := collectHTTPMetric(t, reader, name)
		require.NotNil(t, m, name)

		hist, ok := m.Data.(metricdata.Histogram[float64])
		require.True(t, ok, "expected Histogram data")
		require.Len(t, hist.DataPoints, 1)
		assert.Greater(t, hist.DataPoints[0].Sum, float64(0))
	}
}

func TestHTTPMetricsWithMeter_ActiveRequestsDrainToZero(t *testing.T) {
	mp, reader := manualMeter(t)

	router := gin.New()
	router.Use(HTTPMetricsWithMeter(mp.Meter("http.server"), true))
	router.GET("/api/v1/briefing", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"date": "2026-08-29"})
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/api/v1/briefing", nil)
	router.ServeHTTP(w, req)

	active := collectHTTPMetric(t, reader, "http_server_active_requests")
	require.NotNil(t, active)

	sum, ok := active.Data.(metricdata.Sum[int64])
	require.True(t, ok)
	if len(sum.DataPoints) > 0 {
		assert.Equal(t, int64(0), sum.DataPoints[0].Value)
	}
}

func TestHTTPMetricsWithMeter_OrgAttribute(t *testing.T) {
	mp, reader := manualMeter(t)

	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set(JWTOrgIDKey, "org-acme")
		c.Next()
	})
	router.Use(HTTPMetricsWithMeter(mp.Meter("http.server"), true))
	router.GET("/api/v1/briefing", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"date": "2026-08-29"})
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/api/v1/briefing", nil)
	router.ServeHTTP(w, req)

	total := collectHTTPMetric(t, reader, "http_server_request_total")
	require.NotNil(t, total)

	sum, ok := total.Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, sum.DataPoints, 1)

	found := false
	for _, attr := range sum.DataPoints[0].Attributes.ToSlice() {
		if string(attr.Key) == "org_id" {
			assert.Equal(t, "org-acme", attr.Value.AsString())
			found = true
		}
	}
	assert.True(t, found, "org_id attribute not recorded")
}

func TestHTTPMetricsWithMeter_RoutePatternCollapsesParams(t *testing.T) {
	mp, reader := manualMeter(t)

	router := gin.New()
	router.Use(HTTPMetricsWithMeter(mp.Meter("http.server"), true))
	router.GET("/api/v1/identity/users/:id", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"id": c.Param("id")})
	})

	for _, id := range []string{"1", "2", "exec-a", "exec-b"} {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, "/api/v1/identity/users/"+id, nil)
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	}

	total := collectHTTPMetric(t, reader, "http_server_request_total")
	require.NotNil(t, total)

	sum, ok := total.Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, sum.DataPoints, 1, "parameterized paths must share one series")
	assert.Equal(t, int64(4), sum.DataPoints[0].Value)

	found := false
	for _, attr := range sum.DataPoints[0].Attributes.ToSlice() {
		if string(attr.Key) == "http.route" {
			assert.Equal(t, "/api/v1/identity/users/:id", attr.Value.AsString())
			found = true
		}
	}
	assert.True(t, found, "http.route attribute not recorded")
}

func TestHTTPMetricsWithMeter_Disabled(t *testing.T) {
	mp, _ := manualMeter(t)

	router := gin.New()
	router.Use(HTTPMetricsWithMeter(mp.Meter("http.server"), false))
	router.GET("/api/v1/briefing", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"date": "2026-08-29"})
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/api/v1/briefing", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestGetRoutePattern(t *testing.T) {
	t.Run("matched route", func(t *testing.T) {
		router := gin.New()
		router.GET("/api/v1/identity/users/:id", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"route": getRoutePattern(c)})
		})

		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, "/api/v1/identity/users/42", nil)
		router.ServeHTTP(w, req)

		assert.Contains(t, w.Body.String(), "/api/v1/identity/users/:id")
	})

	t.Run("unmatched route", func(t *testing.T) {
		router := gin.New()
		router.Use(func(c *gin.Context) {
			c.JSON(http.StatusNotFound, gin.H{"route": getRoutePattern(c)})
			c.Abort()
		})

		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, "/nope", nil)
		router.ServeHTTP(w, req)

		assert.Contains(t, w.Body.String(), "unknown")
	})
}

func TestGetRequestSize(t *testing.T) {
	for _, tc := range []struct {
		name          string
		contentLength int64
		expected      int64
	}{
		{"positive", 100, 100},
		{"zero", 0, 0},
		{"unknown length", -1, 0},
	} {
		t.Run(tc.name, func(t *testing.T) {
			router := gin.New()
			router.POST("/api/v1/connections/gmail", func(c *gin.Context) {
				assert.Equal(t, tc.expected, getRequestSize(c))
				c.Status(http.StatusOK)
			})

			w := httptest.NewRecorder()
			req, _ := http.NewRequest(http.MethodPost, "/api/v1/connections/gmail", nil)
			req.ContentLength = tc.contentLength
			router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusOK, w.Code)
		})
	}
}

func TestGetOrgIDFromContext(t *testing.T) {
	for _, tc := range []struct {
		name     string
		value    interface{}
		expected string
	}{
		{"string value", "org-acme", "org-acme"},
		{"empty string", "", ""},
		{"unset", nil, ""},
		{"non-string", 123, ""},
	} {
		t.Run(tc.name, func(t *testing.T) {
			router := gin.New()
			if tc.value != nil {
				router.Use(func(c *gin.Context) {
					c.Set(JWTOrgIDKey, tc.value)
					c.Next()
				})
			}
			router.GET("/api/v1/briefing", func(c *gin.Context) {
				assert.Equal(t, tc.expected, GetJWTOrgID(c))
				c.Status(http.StatusOK)
			})

			w := httptest.NewRecorder()
			req, _ := http.NewRequest(http.MethodGet, "/api/v1/briefing", nil)
			router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusOK, w.Code)
		})
	}
}

func TestHTTPMetricsStatusGroup(t *testing.T) {
	for _, tc := range []struct {
		status   int
		expected string
	}{
		{200, "2xx"}, {201, "2xx"}, {299, "2xx"},
		{301, "3xx"}, {399, "3xx"},
		{400, "4xx"}, {404, "4xx"}, {499, "4xx"},
		{500, "5xx"}, {503, "5xx"}, {600, "5xx"},
		{100, "other"}, {0, "other"},
	} {
		assert.Equal(t, tc.expected, HTTPMetricsStatusGroup(tc.status), "status %d", tc.status)
	}
}

func TestParseStatusCode(t *testing.T) {
	for _, tc := range []struct {
		input    string
		expected int
	}{
		{"200", 200},
		{"404", 404},
		{"invalid", 0},
		{"", 0},
		{"12.34", 0},
	} {
		assert.Equal(t, tc.expected, ParseStatusCode(tc.input), tc.input)
	}
}

func TestHTTPMetricsResponseWriter(t *testing.T) {
	w := httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(w)
	rw := &HTTPMetricsResponseWriter{ResponseWriter: ctx.Writer}

	n, err := rw.Write([]byte("daily"))
	assert.NoError(t, err)
	assert.Equal(t, 5, n)

	_, err = rw.Write([]byte(" briefing"))
	assert.NoError(t, err)
	assert.Equal(t, 14, rw.BytesWritten())
}
