package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yungbote/mediavault-backend/internal/data/repos"
	"github.com/yungbote/mediavault-backend/internal/data/repos/testutil"
	"github.com/yungbote/mediavault-backend/internal/platform/logger"
	"github.com/yungbote/mediavault-backend/internal/platform/objectstore"
)

// memBackend is an in-memory objectstore.Backend.
type memBackend struct {
	mu          sync.Mutex
	objects     map[string][]byte
	types       map[string]string
	deleted     []string
	failUpload  map[string]bool
	failDelete  bool
	signCounter int
}

func newMemBackend() *memBackend {
	return &memBackend{
		objects:    map[string][]byte{},
		types:      map[string]string{},
		failUpload: map[string]bool{},
	}
}

func (m *memBackend) Bucket() string { return "test-bucket" }

func (m *memBackend) Upload(_ context.Context, key string, r io.Reader, _ int64, contentType string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for prefix := range m.failUpload {
		if len(key) >= len(prefix) && key[:len(prefix)] == prefix {
			return errors.New("simulated upload failure")
		}
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return err
	}
	m.objects[key] = buf.Bytes()
	m.types[key] = contentType
	return nil
}

func (m *memBackend) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, key)
	if m.failDelete {
		return errors.New("simulated delete failure")
	}
	if _, ok := m.objects[key]; !ok {
		return objectstore.ErrObjectNotFound
	}
	delete(m.objects, key)
	return nil
}

func (m *memBackend) SignedURL(_ context.Context, key string, ttl time.Duration) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.signCounter++
	return fmt.Sprintf("https://test-bucket.s3.us-east-1.amazonaws.com/%s?X-Amz-Expires=%d&X-Amz-Signature=sig%d",
		key, int(ttl.Seconds()), m.signCounter), nil
}

func (m *memBackend) PublicURL(key string) string {
	return "https://test-bucket.s3.us-east-1.amazonaws.com/" + key
}

func (m *memBackend) has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[key]
	return ok
}

func (m *memBackend) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}

func (m *memBackend) deletedKeys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.deleted...)
}

// scriptedProber returns canned results and records the thumbnail timestamp.
type scriptedProber struct {
	mu          sync.Mutex
	duration    float64
	durationErr error
	thumbErr    error
	thumbDir    string
	thumbAt     []float64
}

func (p *scriptedProber) AssertReady(context.Context) error { return nil }

func (p *scriptedProber) Duration(context.Context, string) (float64, error) {
	if p.durationErr != nil {
		return 0, p.durationErr
	}
	return p.duration, nil
}

func (p *scriptedProber) Thumbnail(_ context.Context, _ string, atSeconds float64) (string, error) {
	p.mu.Lock()
	p.thumbAt = append(p.thumbAt, atSeconds)
	p.mu.Unlock()
	if p.thumbErr != nil {
		return "", p.thumbErr
	}
	f, err := os.CreateTemp(p.thumbDir, "thumb-*.jpg")
	if err != nil {
		return "", err
	}
	_, _ = f.WriteString("jpeg")
	_ = f.Close()
	return f.Name(), nil
}

type pipeline struct {
	backend   *memBackend
	prober    *scriptedProber
	gateway   *ObjectStoreGateway
	catalog   AssetCatalog
	broker    *AccessBroker
	uploads   UploadService
	arena     *StagingArena
	assetRepo repos.AssetRepo
}

func newPipeline(t *testing.T) *pipeline {
	t.Helper()
	log := logger.NewNop()
	db := testutil.DB(t)

	backend := newMemBackend()
	prober := &scriptedProber{duration: 12, thumbDir: t.TempDir()}
	gateway := NewObjectStoreGateway(log, backend, nil, nil)
	assetRepo := repos.NewAssetRepo(db, log)
	catalog := NewAssetCatalog(log, assetRepo)
	arena := NewStagingArena(log, filepath.Join(t.TempDir(), "staging"))

	uploads := NewUploadService(
		log,
		UploadConfig{MaxBatchFiles: 10, BatchConcurrency: 4},
		NewIngestValidator(1<<20),
		arena,
		NewMediaProber(log, prober, nil),
		gateway,
		catalog,
		nil,
		nil,
	)
	return &pipeline{
		backend:   backend,
		prober:    prober,
		gateway:   gateway,
		catalog:   catalog,
		broker:    NewAccessBroker(log, gateway, time.Hour),
		uploads:   uploads,
		arena:     arena,
		assetRepo: assetRepo,
	}
}

func fileInput(name, mimeType string, body []byte) FileInput {
	return FileInput{
		Name:     name,
		MimeType: mimeType,
		Size:     int64(len(body)),
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(body)), nil
		},
	}
}

func requireEmptyDir(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return
	}
	require.NoError(t, err)
	require.Empty(t, entries, "expected %s to be empty", dir)
}
