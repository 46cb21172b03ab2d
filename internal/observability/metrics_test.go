package observability

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/yungbote/mediavault-backend/internal/types"
)

func TestMetricsRecordPipeline(t *testing.T) {
	m, err := NewMetrics()
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}

	m.ObserveUpload(types.AssetKindVideo, "success", time.Second, 2048)
	m.ObserveUpload("", "failure", time.Millisecond, 10)
	m.ObserveStorageOp("put", time.Millisecond, nil)
	m.ObserveStorageOp("delete", time.Millisecond, errors.New("boom"))
	m.ObserveBatch(5, 2)

	if got := testutil.ToFloat64(m.uploads.WithLabelValues("video", "success")); got != 1 {
		t.Fatalf("uploads video/success: want=1 got=%v", got)
	}
	if got := testutil.ToFloat64(m.uploads.WithLabelValues("other", "failure")); got != 1 {
		t.Fatalf("uploads other/failure: want=1 got=%v", got)
	}
	if got := testutil.ToFloat64(m.uploadBytes); got != 2048 {
		t.Fatalf("uploaded bytes: want=2048 got=%v", got)
	}
	if got := testutil.ToFloat64(m.storageErrors.WithLabelValues("delete")); got != 1 {
		t.Fatalf("storage errors delete: want=1 got=%v", got)
	}
	if got := testutil.ToFloat64(m.batchFiles.WithLabelValues("failure")); got != 2 {
		t.Fatalf("batch failures: want=2 got=%v", got)
	}
}

func TestMetricsHandlerExposesCollectors(t *testing.T) {
	m, err := NewMetrics()
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	m.ObserveAPI("GET", "/api/uploads", "200", 5*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status: want=%d got=%d", http.StatusOK, rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `mediavault_api_requests_total{method="GET",route="/api/uploads",status="200"} 1`) {
		t.Fatalf("metrics body missing api counter:\n%s", rec.Body.String())
	}
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	m.ObserveAPI("GET", "/", "200", time.Millisecond)
	m.ApiInflightInc()
	m.ApiInflightDec()
	m.ObserveUpload(types.AssetKindImage, "success", time.Millisecond, 1)
	m.ObserveProbe("duration", "failure", time.Millisecond)
	m.ObserveStorageOp("put", time.Millisecond, nil)
	m.ObserveBatch(1, 0)
}
