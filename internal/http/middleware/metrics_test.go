package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/mediavault-backend/internal/observability"
)

func TestMetricsUsesRouteTemplate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m, err := observability.NewMetrics()
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	r := gin.New()
	r.Use(Metrics(m))
	r.GET("/api/uploads/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/uploads/abc", nil))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	want := `mediavault_api_requests_total{method="GET",route="/api/uploads/:id",status="200"} 1`
	if !strings.Contains(rec.Body.String(), want) {
		t.Fatalf("metrics: missing %q", want)
	}
}

func TestMetricsGroupsUnmatchedAndSkipsScrapes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m, err := observability.NewMetrics()
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	r := gin.New()
	r.Use(Metrics(m))
	r.GET("/metrics", gin.WrapH(m.Handler()))
	r.POST("/api/uploads", func(c *gin.Context) { c.Status(http.StatusCreated) })

	for _, p := range []string{"/wp-admin", "/.env"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, p, nil))
	}
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/metrics", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/uploads", strings.NewReader("0123456789")))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()

	want := `mediavault_api_requests_total{method="GET",route="unmatched",status="404"} 2`
	if !strings.Contains(body, want) {
		t.Fatalf("metrics: missing %q", want)
	}
	if strings.Contains(body, `route="/metrics"`) {
		t.Fatalf("metrics: scrape requests should not be counted")
	}
	want = `mediavault_upload_request_bytes_sum{route="/api/uploads"} 10`
	if !strings.Contains(body, want) {
		t.Fatalf("metrics: missing %q", want)
	}
}
