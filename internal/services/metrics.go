package services

import (
	"time"

	"github.com/yungbote/mediavault-backend/internal/types"
)

const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeSkipped = "skipped"
)

// Metrics receives pipeline measurements. The Prometheus implementation lives
// in internal/observability.
type Metrics interface {
	ObserveUpload(kind types.AssetKind, outcome string, d time.Duration, bytes int64)
	ObserveProbe(step string, outcome string, d time.Duration)
	ObserveStorageOp(op string, d time.Duration, err error)
	ObserveBatch(total int, failed int)
}

type NopMetrics struct{}

func (NopMetrics) ObserveUpload(types.AssetKind, string, time.Duration, int64) {}
func (NopMetrics) ObserveProbe(string, string, time.Duration)                  {}
func (NopMetrics) ObserveStorageOp(string, time.Duration, error)               {}
func (NopMetrics) ObserveBatch(int, int)                                       {}

func metricsOrNop(m Metrics) Metrics {
	if m == nil {
		return NopMetrics{}
	}
	return m
}
