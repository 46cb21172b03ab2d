package services

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/mediavault-backend/internal/platform/localmedia"
	"github.com/yungbote/mediavault-backend/internal/platform/logger"
)

func TestMediaProberDerivesDurationAndMidpointThumbnail(t *testing.T) {
	prober := &scriptedProber{duration: 30, thumbDir: t.TempDir()}
	mp := NewMediaProber(logger.NewNop(), prober, nil)

	res := mp.Probe(context.Background(), &StagedFile{Path: "/staged/clip.mp4"})
	defer res.Release()

	assert.Equal(t, 30.0, res.DurationSeconds)
	require.NotEmpty(t, res.ThumbnailPath)
	assert.Equal(t, []float64{15}, prober.thumbAt)

	res.Release()
	_, err := os.Stat(res.ThumbnailPath)
	assert.True(t, os.IsNotExist(err))
}

func TestMediaProberDurationFailureIsNonFatal(t *testing.T) {
	prober := &scriptedProber{durationErr: localmedia.ErrMissingBinary, thumbDir: t.TempDir()}
	mp := NewMediaProber(logger.NewNop(), prober, nil)

	res := mp.Probe(context.Background(), &StagedFile{Path: "/staged/clip.mp4"})
	defer res.Release()

	assert.Zero(t, res.DurationSeconds)
	assert.Equal(t, []float64{0}, prober.thumbAt)
}

func TestMediaProberThumbnailFailureIsNonFatal(t *testing.T) {
	prober := &scriptedProber{duration: 8, thumbErr: errors.New("corrupt stream")}
	mp := NewMediaProber(logger.NewNop(), prober, nil)

	res := mp.Probe(context.Background(), &StagedFile{Path: "/staged/clip.mp4"})
	assert.Equal(t, 8.0, res.DurationSeconds)
	assert.Empty(t, res.ThumbnailPath)
}

func TestMediaProberWithoutTool(t *testing.T) {
	mp := NewMediaProber(logger.NewNop(), nil, nil)
	res := mp.Probe(context.Background(), &StagedFile{Path: "/staged/clip.mp4"})
	assert.Equal(t, ProbeResult{}, res)
	assert.Equal(t, ProbeResult{}, mp.Probe(context.Background(), nil))
}
