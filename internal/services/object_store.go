package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/yungbote/mediavault-backend/internal/platform/ctxutil"
	"github.com/yungbote/mediavault-backend/internal/platform/logger"
	"github.com/yungbote/mediavault-backend/internal/platform/objectstore"
)

const (
	FolderVideos     = "videos"
	FolderImages     = "images"
	FolderThumbnails = "thumbnails"

	DefaultSignedURLTTL = time.Hour
)

type StoredObject struct {
	Key      string
	URL      string
	FileName string
	Size     int64
}

// ObjectStoreGateway places payloads under {folder}/{unixMillis}-{name} and
// issues signed links for them.
type ObjectStoreGateway struct {
	log     *logger.Logger
	backend objectstore.Backend
	initErr error
	metrics Metrics
	now     func() time.Time
}

// NewObjectStoreGateway accepts a nil backend together with the error that
// prevented building it; uploads then fail with a ConfigurationError.
func NewObjectStoreGateway(baseLog *logger.Logger, backend objectstore.Backend, initErr error, metrics Metrics) *ObjectStoreGateway {
	return &ObjectStoreGateway{
		log:     baseLog.With("service", "ObjectStoreGateway"),
		backend: backend,
		initErr: initErr,
		metrics: metricsOrNop(metrics),
		now:     time.Now,
	}
}

func (g *ObjectStoreGateway) Ready() error {
	if g.initErr != nil {
		return ConfigurationError(g.initErr)
	}
	if g.backend == nil {
		return ConfigurationError(ErrObjectStoreNotConfigured)
	}
	return nil
}

// Put uploads localPath and removes it once the object is durable.
func (g *ObjectStoreGateway) Put(ctx context.Context, localPath, logicalName, contentType, folder string) (StoredObject, error) {
	ctx = ctxutil.Default(ctx)
	if err := g.Ready(); err != nil {
		return StoredObject{}, err
	}

	f, err := os.Open(localPath)
	if err != nil {
		return StoredObject{}, StorageError("open staged file", err)
	}
	defer f.Close()
	st, err := f.Stat()
	if err != nil {
		return StoredObject{}, StorageError("stat staged file", err)
	}

	fileName := fmt.Sprintf("%d-%s", g.now().UnixMilli(), SafeObjectName(logicalName))
	key := fmt.Sprintf("%s/%s", folder, fileName)

	start := time.Now()
	err = g.backend.Upload(ctx, key, f, st.Size(), contentType)
	g.metrics.ObserveStorageOp("put", time.Since(start), err)
	if err != nil {
		g.log.Error("Object upload failed", "storage_key", key, "bucket", g.backend.Bucket(), "error", err)
		return StoredObject{}, StorageError("upload object", err)
	}

	_ = f.Close()
	if rmErr := os.Remove(localPath); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
		g.log.Warn("Failed to remove local file after upload", "path", localPath, "error", rmErr)
	}

	return StoredObject{
		Key:      key,
		URL:      g.backend.PublicURL(key),
		FileName: fileName,
		Size:     st.Size(),
	}, nil
}

// Delete never fails the caller; it reports whether the object is gone.
func (g *ObjectStoreGateway) Delete(ctx context.Context, key string) bool {
	ctx = ctxutil.Default(ctx)
	key = strings.TrimSpace(key)
	if key == "" {
		return true
	}
	if g.backend == nil {
		g.log.Warn("Object delete skipped, storage not configured", "storage_key", key)
		return false
	}
	start := time.Now()
	err := g.backend.Delete(ctx, key)
	g.metrics.ObserveStorageOp("delete", time.Since(start), err)
	if err != nil {
		if errors.Is(err, objectstore.ErrObjectNotFound) {
			return true
		}
		g.log.Warn("Object delete failed", "storage_key", key, "error", err)
		return false
	}
	return true
}

func (g *ObjectStoreGateway) SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	ctx = ctxutil.Default(ctx)
	if err := g.Ready(); err != nil {
		return "", err
	}
	if ttl <= 0 {
		ttl = DefaultSignedURLTTL
	}
	start := time.Now()
	u, err := g.backend.SignedURL(ctx, key, ttl)
	g.metrics.ObserveStorageOp("sign", time.Since(start), err)
	if err != nil {
		return "", StorageError("sign object url", err)
	}
	return u, nil
}

// SafeObjectName keeps the base name and replaces characters that make keys
// awkward to address.
func SafeObjectName(name string) string {
	name = filepath.Base(strings.ReplaceAll(strings.TrimSpace(name), `\`, "/"))
	if name == "." || name == "/" || name == "" {
		return "file"
	}
	var b strings.Builder
	for _, r := range name {
		switch {
		case r == '/' || r == '?' || r == '#' || r == '%' || r < 0x20 || r == 0x7f:
			b.WriteRune('_')
		case r == ' ' || r == '\t':
			b.WriteRune('-')
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
