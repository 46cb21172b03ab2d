package services

import (
	"context"
	"errors"
	"os"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/yungbote/mediavault-backend/internal/platform/ctxutil"
	"github.com/yungbote/mediavault-backend/internal/platform/localmedia"
	"github.com/yungbote/mediavault-backend/internal/platform/logger"
)

// ProbeResult is the derived video metadata. A zero value means nothing could
// be derived, which is never an error for the pipeline.
type ProbeResult struct {
	DurationSeconds float64
	ThumbnailPath   string
}

// Release removes the thumbnail temp file if it still exists.
func (r ProbeResult) Release() {
	if r.ThumbnailPath == "" {
		return
	}
	_ = os.Remove(r.ThumbnailPath)
}

type MediaProber struct {
	log     *logger.Logger
	prober  localmedia.Prober
	metrics Metrics
}

func NewMediaProber(baseLog *logger.Logger, prober localmedia.Prober, metrics Metrics) *MediaProber {
	return &MediaProber{
		log:     baseLog.With("service", "MediaProber"),
		prober:  prober,
		metrics: metricsOrNop(metrics),
	}
}

// Probe derives duration and a mid-point thumbnail. Failures are logged and
// degrade to zero values.
func (p *MediaProber) Probe(ctx context.Context, staged *StagedFile) ProbeResult {
	ctx = ctxutil.Default(ctx)
	var out ProbeResult
	if staged == nil || staged.Path == "" {
		return out
	}
	if p.prober == nil {
		p.metrics.ObserveProbe("duration", OutcomeSkipped, 0)
		p.metrics.ObserveProbe("thumbnail", OutcomeSkipped, 0)
		return out
	}

	ctx, span := otel.Tracer("mediavault/services").Start(ctx, "media.probe")
	defer span.End()

	start := time.Now()
	duration, err := p.prober.Duration(ctx, staged.Path)
	if err != nil {
		p.logProbeFailure("duration", staged, err)
		p.metrics.ObserveProbe("duration", OutcomeFailure, time.Since(start))
		duration = 0
	} else {
		p.metrics.ObserveProbe("duration", OutcomeSuccess, time.Since(start))
	}
	out.DurationSeconds = duration
	span.SetAttributes(attribute.Float64("media.duration_seconds", duration))

	start = time.Now()
	thumb, err := p.prober.Thumbnail(ctx, staged.Path, duration*0.5)
	if err != nil {
		p.logProbeFailure("thumbnail", staged, err)
		p.metrics.ObserveProbe("thumbnail", OutcomeFailure, time.Since(start))
		return out
	}
	p.metrics.ObserveProbe("thumbnail", OutcomeSuccess, time.Since(start))
	out.ThumbnailPath = thumb
	return out
}

func (p *MediaProber) logProbeFailure(step string, staged *StagedFile, err error) {
	if errors.Is(err, localmedia.ErrMissingBinary) {
		p.log.Warn("Media probe tool unavailable", "step", step, "original_name", staged.OriginalName, "error", err)
		return
	}
	p.log.Warn("Media probe failed", "step", step, "original_name", staged.OriginalName, "error", err)
}
