package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubValidator map[string]string

func (v stubValidator) Validate(token string) (string, error) {
	if op, ok := v[token]; ok {
		return op, nil
	}
	return "", errors.New("недействительный токен")
}

func serve(r http.Handler, method, path string, header map[string]string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(method, path, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestRequireOperator(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequireOperator(stubValidator{"good": "alice"}))
	r.GET("/whoami", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(OperatorKey))
	})

	w := serve(r, http.MethodGet, "/whoami", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code, "Без заголовка доступ запрещён")

	w = serve(r, http.MethodGet, "/whoami", map[string]string{"Authorization": "Basic good"})
	assert.Equal(t, http.StatusUnauthorized, w.Code, "Нужна схема Bearer")

	w = serve(r, http.MethodGet, "/whoami", map[string]string{"Authorization": "Bearer bad"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = serve(r, http.MethodGet, "/whoami", map[string]string{"Authorization": "Bearer good"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "alice", w.Body.String(), "Оператор попадает в контекст запроса")
}

func TestPrometheusMiddleware_BasicMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()

	gin.SetMode(gin.TestMode)
	r := gin.New()
	promMw := NewPrometheusMiddleware("test", registry)
	r.Use(promMw.Handler())

	r.GET("/test", func(c *gin.Context) { c.JSON(200, gin.H{"ok": true}) })
	r.GET("/error", func(c *gin.Context) { c.JSON(500, gin.H{"error": "test error"}) })

	assert.Equal(t, 200, serve(r, "GET", "/test", nil).Code)
	assert.Equal(t, 500, serve(r, "GET", "/error", nil).Code)
	assert.Equal(t, 404, serve(r, "GET", "/nowhere/123", nil).Code)

	metricFamilies, err := registry.Gather()
	require.NoError(t, err)

	var durationFound, errorsFound bool
	for _, mf := range metricFamilies {
		switch mf.GetName() {
		case "test_http_request_duration_seconds":
			durationFound = true
			assert.Len(t, mf.Metric, 3, "Неизвестные пути сводятся к одной метке")
			for _, m := range mf.Metric {
				for _, l := range m.Label {
					if l.GetName() == "path" {
						assert.NotContains(t, l.GetValue(), "123")
					}
				}
			}
		case "test_http_request_errors_total":
			errorsFound = true
			assert.Len(t, mf.Metric, 2, "Ошибки 500 и 404")
		}
	}
	assert.True(t, durationFound, "Метрика длительности не найдена")
	assert.True(t, errorsFound, "Метрика ошибок не найдена")
}

func TestPrometheusMiddleware_MetricsEndpoint(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	promMw := NewPrometheusMiddleware("endpoint_test", prometheus.NewRegistry())
	r.Use(promMw.Handler())
	promMw.RegisterMetricsEndpoint(r)
	r.GET("/api/test", func(c *gin.Context) { c.JSON(200, gin.H{"ok": true}) })

	assert.Equal(t, 200, serve(r, "GET", "/api/test", nil).Code)

	w := serve(r, "GET", "/metrics", nil)
	assert.Equal(t, 200, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/plain")
	assert.Contains(t, w.Body.String(), "endpoint_test_http_request_duration_seconds")
}

func TestRequestLogger_TraceID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(NewRequestLogger().Handler())

	var captured string
	r.GET("/test", func(c *gin.Context) {
		traceID, exists := c.Get("trace_id")
		require.True(t, exists, "trace_id должен быть в контексте")
		captured = traceID.(string)
		c.Status(http.StatusNoContent)
	})

	w := serve(r, "GET", "/test", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.NotEmpty(t, captured)
	assert.Equal(t, captured, w.Header().Get("X-Trace-Id"), "trace_id возвращается в заголовке")
}

func BenchmarkPrometheusMiddleware(b *testing.B) {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(NewPrometheusMiddleware("bench", prometheus.NewRegistry()).Handler())
	r.GET("/bench", func(c *gin.Context) { c.JSON(200, gin.H{"ok": true}) })

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			serve(r, "GET", "/bench", nil)
		}
	})
}
