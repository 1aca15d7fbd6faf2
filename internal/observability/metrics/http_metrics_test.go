package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestGinMiddlewareCountsRequests(t *testing.T) {
	gin.SetMode(gin.TestMode)
	reg := prometheus.NewRegistry()
	m, err := NewHTTPMetricsWithRegisterer(reg)
	if err != nil {
		t.Fatalf("new http metrics: %v", err)
	}

	router := gin.New()
	router.Use(GinMiddleware(m))
	router.GET("/config", func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/config", nil))
	}

	got := testutil.ToFloat64(m.requests.WithLabelValues("/config", http.MethodGet, "200"))
	if got != 2 {
		t.Fatalf("expected 2 requests counted, got %v", got)
	}
}

func TestNewHTTPMetricsReusesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewHTTPMetricsWithRegisterer(reg)
	if err != nil {
		t.Fatalf("first register: %v", err)
	}
	second, err := NewHTTPMetricsWithRegisterer(reg)
	if err != nil {
		t.Fatalf("second register: %v", err)
	}
	if first.requests != second.requests {
		t.Fatalf("expected the existing counter to be reused")
	}
}
