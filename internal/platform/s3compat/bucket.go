package s3compat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/yungbote/mediavault-backend/internal/platform/logger"
	"github.com/yungbote/mediavault-backend/internal/platform/objectstore"
)

// bucketService talks to AWS S3 or any S3-compatible endpoint (MinIO, R2, ...).
type bucketService struct {
	log           *logger.Logger
	client        *minio.Client
	bucketName    string
	region        string
	endpoint      string
	secure        bool
	amazon        bool
	publicBaseURL string
}

var _ objectstore.Backend = (*bucketService)(nil)

func NewBucketService(log *logger.Logger, cfg objectstore.Config) (objectstore.Backend, error) {
	cfg = objectstore.Normalize(cfg)
	if cfg.Mode != objectstore.ModeS3 {
		return nil, &objectstore.ConfigError{Code: objectstore.ConfigErrorInvalidMode, Mode: string(cfg.Mode)}
	}
	if err := objectstore.Validate(cfg); err != nil {
		return nil, fmt.Errorf("validate object storage config: %w", err)
	}

	endpoint, secure, amazon := resolveEndpoint(cfg)
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: secure,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create s3 client: %w", err)
	}

	serviceLog := log.With("service", "S3BucketService")
	serviceLog.Info(
		"Object storage initialized",
		"mode", cfg.Mode,
		"endpoint", endpoint,
		"region", cfg.Region,
		"bucket", cfg.Bucket,
		"public_base_url", cfg.PublicBaseURL,
	)

	return &bucketService{
		log:           serviceLog,
		client:        client,
		bucketName:    cfg.Bucket,
		region:        cfg.Region,
		endpoint:      endpoint,
		secure:        secure,
		amazon:        amazon,
		publicBaseURL: cfg.PublicBaseURL,
	}, nil
}

// resolveEndpoint returns a scheme-less host for minio.New.
func resolveEndpoint(cfg objectstore.Config) (host string, secure bool, amazon bool) {
	raw := strings.TrimRight(strings.TrimSpace(cfg.Endpoint), "/")
	if raw == "" {
		return fmt.Sprintf("s3.%s.amazonaws.com", cfg.Region), true, true
	}
	secure = cfg.UseSSL
	if u, err := url.Parse(raw); err == nil && u.Host != "" {
		raw = u.Host
		secure = strings.EqualFold(u.Scheme, "https")
	}
	return raw, secure, strings.HasSuffix(raw, ".amazonaws.com")
}

func (bs *bucketService) Bucket() string { return bs.bucketName }

func (bs *bucketService) Upload(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()
	if size <= 0 {
		size = -1
	}
	_, err := bs.client.PutObject(ctx, bs.bucketName, key, r, size, minio.PutObjectOptions{
		ContentType: strings.TrimSpace(contentType),
	})
	if err != nil {
		return fmt.Errorf("put s3 object %q: %w", key, err)
	}
	return nil
}

func (bs *bucketService) Delete(ctx context.Context, key string) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := bs.client.RemoveObject(ctx, bs.bucketName, key, minio.RemoveObjectOptions{}); err != nil {
		var resp minio.ErrorResponse
		if errors.As(err, &resp) && resp.Code == "NoSuchKey" {
			return fmt.Errorf("delete s3 object %q: %w", key, objectstore.ErrObjectNotFound)
		}
		return fmt.Errorf("delete s3 object %q in bucket %q: %w", key, bs.bucketName, err)
	}
	return nil
}

func (bs *bucketService) SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	key = strings.TrimLeft(strings.TrimSpace(key), "/")
	if key == "" {
		return "", fmt.Errorf("signed url: empty key")
	}
	u, err := bs.client.PresignedGetObject(ctx, bs.bucketName, key, ttl, url.Values{})
	if err != nil {
		return "", fmt.Errorf("presign s3 object %q: %w", key, err)
	}
	return u.String(), nil
}

func (bs *bucketService) PublicURL(key string) string {
	key = strings.TrimLeft(strings.TrimSpace(key), "/")
	if bs.publicBaseURL != "" {
		return fmt.Sprintf("%s/%s", bs.publicBaseURL, key)
	}
	if bs.amazon {
		return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", bs.bucketName, bs.region, key)
	}
	scheme := "http"
	if bs.secure {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s/%s/%s", scheme, bs.endpoint, bs.bucketName, key)
}
