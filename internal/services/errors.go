package services

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/yungbote/mediavault-backend/internal/platform/apierr"
)

const (
	CodeValidation    = "validation_error"
	CodeConfiguration = "configuration_error"
	CodeStorage       = "storage_error"
	CodeNotFound      = "not_found"
	CodeAccessDenied  = "access_denied"
)

// ErrObjectStoreNotConfigured is returned by upload paths when the object
// store could not be built from configuration.
var ErrObjectStoreNotConfigured = errors.New("object storage is not configured")

func ValidationError(format string, args ...interface{}) error {
	return apierr.New(http.StatusBadRequest, CodeValidation, fmt.Errorf(format, args...))
}

func ConfigurationError(err error) error {
	if err == nil {
		err = ErrObjectStoreNotConfigured
	}
	return apierr.New(http.StatusInternalServerError, CodeConfiguration, err)
}

func StorageError(op string, err error) error {
	return apierr.New(http.StatusInternalServerError, CodeStorage, fmt.Errorf("%s: %w", op, err))
}

func NotFoundError(what string) error {
	return apierr.New(http.StatusNotFound, CodeNotFound, fmt.Errorf("%s not found", what))
}

// AccessDeniedError deliberately shares the 404 status with NotFoundError so
// other tenants cannot probe for asset ids.
func AccessDeniedError(what string) error {
	return apierr.New(http.StatusNotFound, CodeAccessDenied, fmt.Errorf("%s not found", what))
}
