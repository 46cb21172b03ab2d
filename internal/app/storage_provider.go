package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/yungbote/mediavault-backend/internal/platform/gcp"
	"github.com/yungbote/mediavault-backend/internal/platform/logger"
	"github.com/yungbote/mediavault-backend/internal/platform/objectstore"
	"github.com/yungbote/mediavault-backend/internal/platform/s3compat"
)

var (
	newS3Backend  = s3compat.NewBucketService
	newGCSBackend = gcp.NewBucketService
)

type StorageProviderBootstrapErrorCode string

const (
	StorageProviderBootstrapErrorInvalidMode         StorageProviderBootstrapErrorCode = "invalid_mode"
	StorageProviderBootstrapErrorNotConfigured       StorageProviderBootstrapErrorCode = "not_configured"
	StorageProviderBootstrapErrorMissingEmulatorHost StorageProviderBootstrapErrorCode = "missing_emulator_host"
	StorageProviderBootstrapErrorInvalidEmulatorHost StorageProviderBootstrapErrorCode = "invalid_emulator_host"
	StorageProviderBootstrapErrorConnectFailed       StorageProviderBootstrapErrorCode = "connect_failed"
)

type StorageProviderBootstrapError struct {
	Code  StorageProviderBootstrapErrorCode
	Mode  string
	Cause error
}

// Error keeps the cause text first so operators see the missing setting
// verbatim in the upload endpoint's 500 body.
func (e *StorageProviderBootstrapError) Error() string {
	if e == nil {
		return "object storage bootstrap failed"
	}
	return fmt.Sprintf("%v (code=%s mode=%q)", e.Cause, e.Code, e.Mode)
}

func (e *StorageProviderBootstrapError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// resolveObjectStore builds the configured backend. A failure is returned to
// the caller, which keeps serving and reports it on upload requests.
func resolveObjectStore(ctx context.Context, log *logger.Logger, raw objectstore.Config) (objectstore.Backend, error) {
	cfg := objectstore.Normalize(raw)
	log.Info(
		"Selecting object storage provider",
		"mode", cfg.Mode,
		"mode_source", cfg.ModeSource(),
		"bucket", cfg.Bucket,
		"emulator_host", cfg.EmulatorHost,
	)

	var (
		backend objectstore.Backend
		err     error
	)
	if verr := objectstore.Validate(cfg); verr != nil {
		err = verr
	} else {
		switch cfg.Mode {
		case objectstore.ModeS3:
			backend, err = newS3Backend(log, cfg)
		case objectstore.ModeGCS, objectstore.ModeGCSEmulator:
			backend, err = newGCSBackend(ctx, log, cfg)
		}
	}
	if err != nil {
		classified := classifyStorageProviderBootstrapError(cfg, err)
		log.Error(
			"Object storage provider bootstrap failed",
			"mode", cfg.Mode,
			"error_code", storageProviderBootstrapErrorCode(classified),
			"error", classified,
		)
		return nil, classified
	}
	return backend, nil
}

func classifyStorageProviderBootstrapError(cfg objectstore.Config, err error) error {
	code := StorageProviderBootstrapErrorConnectFailed
	var cfgErr *objectstore.ConfigError
	if errors.As(err, &cfgErr) {
		switch cfgErr.Code {
		case objectstore.ConfigErrorInvalidMode:
			code = StorageProviderBootstrapErrorInvalidMode
		case objectstore.ConfigErrorMissingEmulatorHost:
			code = StorageProviderBootstrapErrorMissingEmulatorHost
		case objectstore.ConfigErrorInvalidEmulatorHost:
			code = StorageProviderBootstrapErrorInvalidEmulatorHost
		default:
			code = StorageProviderBootstrapErrorNotConfigured
		}
	}
	return &StorageProviderBootstrapError{Code: code, Mode: string(cfg.Mode), Cause: err}
}

func storageProviderBootstrapErrorCode(err error) StorageProviderBootstrapErrorCode {
	var bootstrapErr *StorageProviderBootstrapError
	if errors.As(err, &bootstrapErr) && bootstrapErr.Code != "" {
		return bootstrapErr.Code
	}
	return StorageProviderBootstrapErrorConnectFailed
}
