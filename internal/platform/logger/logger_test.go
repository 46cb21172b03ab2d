package logger

import (
	"strings"
	"testing"
)

func TestSanitizeValueRedactsSecrets(t *testing.T) {
	for _, key := range []string{"token", "object_storage_secret_key", "authorization", "access_key"} {
		if got := sanitizeValue(key, "value"); got != "[REDACTED]" {
			t.Fatalf("sanitizeValue(%q): want=%q got=%v", key, "[REDACTED]", got)
		}
	}
}

func TestSanitizeValueHashesTenantIDs(t *testing.T) {
	got, ok := sanitizeValue("business_id", "0b9b7c4e-0000-0000-0000-000000000001").(string)
	if !ok {
		t.Fatalf("sanitizeValue: expected string")
	}
	if !strings.HasPrefix(got, "hash:") || len(got) != len("hash:")+12 {
		t.Fatalf("sanitizeValue: unexpected hash %q", got)
	}
	again := sanitizeValue("business_id", "0b9b7c4e-0000-0000-0000-000000000001")
	if again != got {
		t.Fatalf("sanitizeValue: hash not stable want=%q got=%v", got, again)
	}
}

func TestSanitizeValueStripsSignedURLQuery(t *testing.T) {
	in := "https://bucket.s3.amazonaws.com/videos/1-a.mp4?X-Amz-Signature=abc&X-Amz-Expires=3600"
	got := sanitizeValue("url", in)
	want := "https://bucket.s3.amazonaws.com/videos/1-a.mp4?[REDACTED]"
	if got != want {
		t.Fatalf("sanitizeValue: want=%q got=%v", want, got)
	}
	plain := "https://bucket.s3.amazonaws.com/videos/1-a.mp4"
	if got := sanitizeValue("url", plain); got != plain {
		t.Fatalf("sanitizeValue: want=%q got=%v", plain, got)
	}
}

func TestSanitizeKVsOddLength(t *testing.T) {
	out := sanitizeKVs([]interface{}{"storage_key", "videos/a.mp4", "dangling"})
	if len(out) != 3 {
		t.Fatalf("sanitizeKVs: want len=3 got=%d", len(out))
	}
	if out[2] != "dangling" {
		t.Fatalf("sanitizeKVs: want trailing value kept, got=%v", out[2])
	}
}

func TestNewModes(t *testing.T) {
	for _, mode := range []string{"production", "development", "test", ""} {
		l, err := New(mode)
		if err != nil {
			t.Fatalf("New(%q): %v", mode, err)
		}
		l.With("service", "test").Debug("hello")
	}
}
