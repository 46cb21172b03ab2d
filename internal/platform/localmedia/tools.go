package localmedia

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/mediavault-backend/internal/platform/ctxutil"
	"github.com/yungbote/mediavault-backend/internal/platform/logger"
)

// Prober wraps the external media-analysis binaries. Implementations must be
// safe for concurrent use; every call works on caller-owned paths.
type Prober interface {
	AssertReady(ctx context.Context) error
	Duration(ctx context.Context, path string) (float64, error)
	Thumbnail(ctx context.Context, path string, atSeconds float64) (string, error)
}

var ErrMissingBinary = errors.New("media binary not available")

const (
	ThumbnailWidth  = 320
	ThumbnailHeight = 240
)

type Options struct {
	FFmpegPath  string
	FFprobePath string
	WorkRoot    string
	Timeout     time.Duration
}

type tools struct {
	log *logger.Logger

	ffmpegPath  string
	ffprobePath string

	workRoot string

	defaultTimeout time.Duration
}

func New(log *logger.Logger, opts Options) Prober {
	slog := log.With("service", "MediaTools")
	t := &tools{
		log:            slog,
		ffmpegPath:     strings.TrimSpace(opts.FFmpegPath),
		ffprobePath:    strings.TrimSpace(opts.FFprobePath),
		workRoot:       strings.TrimSpace(opts.WorkRoot),
		defaultTimeout: opts.Timeout,
	}
	if t.ffmpegPath == "" {
		t.ffmpegPath = "ffmpeg"
	}
	if t.ffprobePath == "" {
		t.ffprobePath = "ffprobe"
	}
	if t.workRoot == "" {
		t.workRoot = filepath.Join(os.TempDir(), "mediavault-thumbnails")
	}
	if t.defaultTimeout <= 0 {
		t.defaultTimeout = 60 * time.Second
	}
	return t
}

func (m *tools) AssertReady(ctx context.Context) error {
	ctx = ctxutil.Default(ctx)
	for _, bin := range []string{m.ffprobePath, m.ffmpegPath} {
		if err := m.assertBinary(ctx, bin); err != nil {
			return err
		}
	}
	if err := os.MkdirAll(m.workRoot, 0o755); err != nil {
		return fmt.Errorf("create workRoot: %w", err)
	}
	return nil
}

func (m *tools) assertBinary(_ context.Context, name string) error {
	if _, err := exec.LookPath(name); err != nil {
		return fmt.Errorf("%w: %q: %v", ErrMissingBinary, name, err)
	}
	return nil
}

func (m *tools) Duration(ctx context.Context, path string) (float64, error) {
	ctx = ctxutil.Default(ctx)
	if path == "" {
		return 0, fmt.Errorf("path required")
	}
	if err := m.assertBinary(ctx, m.ffprobePath); err != nil {
		return 0, err
	}

	ctx, cancel := context.WithTimeout(ctx, m.defaultTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, m.ffprobePath,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	out, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return 0, fmt.Errorf("ffprobe duration failed: %w; out=%s", err, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return 0, fmt.Errorf("ffprobe duration failed: %w", err)
	}
	return parseDuration(string(out))
}

// parseDuration reads ffprobe's bare "format=duration" output.
func parseDuration(out string) (float64, error) {
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || line == "N/A" {
			continue
		}
		d, err := strconv.ParseFloat(line, 64)
		if err != nil {
			return 0, fmt.Errorf("parse ffprobe duration %q: %w", line, err)
		}
		if d < 0 {
			return 0, fmt.Errorf("negative duration %v", d)
		}
		return d, nil
	}
	return 0, fmt.Errorf("ffprobe returned no duration")
}

// Thumbnail grabs a single frame at atSeconds and scales it to 320x240.
// The returned path is owned by the caller.
func (m *tools) Thumbnail(ctx context.Context, path string, atSeconds float64) (string, error) {
	ctx = ctxutil.Default(ctx)
	if path == "" {
		return "", fmt.Errorf("path required")
	}
	if err := m.assertBinary(ctx, m.ffmpegPath); err != nil {
		return "", err
	}
	if err := os.MkdirAll(m.workRoot, 0o755); err != nil {
		return "", fmt.Errorf("mkdir workRoot: %w", err)
	}
	if atSeconds < 0 {
		atSeconds = 0
	}

	ctx, cancel := context.WithTimeout(ctx, m.defaultTimeout)
	defer cancel()

	outPath := filepath.Join(m.workRoot, fmt.Sprintf("thumb-%d-%s.jpg", time.Now().UnixMilli(), uuid.NewString()))
	cmd := exec.CommandContext(ctx, m.ffmpegPath, thumbnailArgs(path, outPath, atSeconds)...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		_ = os.Remove(outPath)
		return "", fmt.Errorf("ffmpeg thumbnail failed: %w; out=%s", err, tail(string(out), 2000))
	}
	if st, err := os.Stat(outPath); err != nil || st.Size() == 0 {
		_ = os.Remove(outPath)
		return "", fmt.Errorf("ffmpeg thumbnail produced no output")
	}
	return outPath, nil
}

func thumbnailArgs(in, out string, atSeconds float64) []string {
	return []string{
		"-hide_banner",
		"-loglevel", "error",
		"-y",
		"-ss", strconv.FormatFloat(atSeconds, 'f', 3, 64),
		"-i", in,
		"-frames:v", "1",
		"-vf", fmt.Sprintf("scale=%d:%d", ThumbnailWidth, ThumbnailHeight),
		"-q:v", "3",
		out,
	}
}

func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
