package localmedia

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/yungbote/mediavault-backend/internal/platform/logger"
)

func TestParseDuration(t *testing.T) {
	cases := []struct {
		in      string
		want    float64
		wantErr bool
	}{
		{in: "12.480000\n", want: 12.48},
		{in: "\n\n3\n", want: 3},
		{in: "N/A\n", wantErr: true},
		{in: "", wantErr: true},
		{in: "abc", wantErr: true},
		{in: "-1.5", wantErr: true},
	}
	for _, tc := range cases {
		got, err := parseDuration(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("parseDuration(%q): expected error, got=%v", tc.in, got)
			}
			continue
		}
		if err != nil {
			t.Fatalf("parseDuration(%q): %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("parseDuration(%q): want=%v got=%v", tc.in, tc.want, got)
		}
	}
}

func TestThumbnailArgs(t *testing.T) {
	args := thumbnailArgs("/in.mp4", "/out.jpg", 6.25)
	joined := strings.Join(args, " ") + " "
	for _, want := range []string{"-ss 6.250 ", "-i /in.mp4 ", "-frames:v 1 ", "scale=320:240 "} {
		if !strings.Contains(joined, want) {
			t.Fatalf("thumbnailArgs: missing %q in %q", want, joined)
		}
	}
	if args[len(args)-1] != "/out.jpg" {
		t.Fatalf("thumbnailArgs: want output last, got=%q", args[len(args)-1])
	}
}

func TestMissingBinaryIsReported(t *testing.T) {
	p := New(logger.NewNop(), Options{
		FFmpegPath:  "mediavault-no-such-ffmpeg",
		FFprobePath: "mediavault-no-such-ffprobe",
		WorkRoot:    t.TempDir(),
		Timeout:     time.Second,
	})
	if _, err := p.Duration(context.Background(), "/tmp/x.mp4"); !errors.Is(err, ErrMissingBinary) {
		t.Fatalf("Duration: want ErrMissingBinary got=%v", err)
	}
	if _, err := p.Thumbnail(context.Background(), "/tmp/x.mp4", 1); !errors.Is(err, ErrMissingBinary) {
		t.Fatalf("Thumbnail: want ErrMissingBinary got=%v", err)
	}
	if err := p.AssertReady(context.Background()); !errors.Is(err, ErrMissingBinary) {
		t.Fatalf("AssertReady: want ErrMissingBinary got=%v", err)
	}
}

func TestTail(t *testing.T) {
	if got := tail("  abcdef  ", 3); got != "def" {
		t.Fatalf("tail: want=%q got=%q", "def", got)
	}
	if got := tail("ab", 3); got != "ab" {
		t.Fatalf("tail: want=%q got=%q", "ab", got)
	}
}
