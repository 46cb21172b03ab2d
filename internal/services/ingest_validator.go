package services

import (
	"path/filepath"
	"strings"

	"github.com/yungbote/mediavault-backend/internal/types"
)

const DefaultMaxFileBytes int64 = 500 << 20

var allowedMimeTypes = map[string]types.AssetKind{
	"video/mp4":        types.AssetKindVideo,
	"video/mpeg":       types.AssetKindVideo,
	"video/quicktime":  types.AssetKindVideo,
	"video/x-msvideo":  types.AssetKindVideo,
	"video/x-ms-wmv":   types.AssetKindVideo,
	"video/webm":       types.AssetKindVideo,
	"video/x-matroska": types.AssetKindVideo,
	"video/3gpp":       types.AssetKindVideo,
	"video/ogg":        types.AssetKindVideo,

	"image/jpeg":    types.AssetKindImage,
	"image/jpg":     types.AssetKindImage,
	"image/png":     types.AssetKindImage,
	"image/gif":     types.AssetKindImage,
	"image/webp":    types.AssetKindImage,
	"image/bmp":     types.AssetKindImage,
	"image/svg+xml": types.AssetKindImage,
	"image/heic":    types.AssetKindImage,
	"image/heif":    types.AssetKindImage,
	"image/tiff":    types.AssetKindImage,
}

var allowedExtensions = map[string]types.AssetKind{
	".mp4":  types.AssetKindVideo,
	".m4v":  types.AssetKindVideo,
	".mov":  types.AssetKindVideo,
	".avi":  types.AssetKindVideo,
	".wmv":  types.AssetKindVideo,
	".webm": types.AssetKindVideo,
	".mkv":  types.AssetKindVideo,
	".mpeg": types.AssetKindVideo,
	".mpg":  types.AssetKindVideo,
	".3gp":  types.AssetKindVideo,
	".ogv":  types.AssetKindVideo,

	".jpg":  types.AssetKindImage,
	".jpeg": types.AssetKindImage,
	".png":  types.AssetKindImage,
	".gif":  types.AssetKindImage,
	".webp": types.AssetKindImage,
	".bmp":  types.AssetKindImage,
	".svg":  types.AssetKindImage,
	".heic": types.AssetKindImage,
	".heif": types.AssetKindImage,
	".tif":  types.AssetKindImage,
	".tiff": types.AssetKindImage,
}

// IngestValidator decides admission from the declared descriptor alone, before
// any bytes are read.
type IngestValidator struct {
	maxBytes int64
}

func NewIngestValidator(maxBytes int64) *IngestValidator {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxFileBytes
	}
	return &IngestValidator{maxBytes: maxBytes}
}

func (v *IngestValidator) MaxBytes() int64 { return v.maxBytes }

// Validate admits a file when either its declared mime type or its extension
// is allow-listed, and returns the kind derived from those signals.
func (v *IngestValidator) Validate(name, mimeType string, size int64) (types.AssetKind, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ValidationError("no file provided")
	}
	if size <= 0 {
		return "", ValidationError("file %q is empty", name)
	}
	if size > v.maxBytes {
		return "", ValidationError("file %q exceeds the %d byte limit", name, v.maxBytes)
	}

	mime := normalizeMime(mimeType)
	ext := strings.ToLower(filepath.Ext(name))
	mimeKind, mimeOK := allowedMimeTypes[mime]
	extKind, extOK := allowedExtensions[ext]
	if !mimeOK && !extOK {
		return "", ValidationError("file type not allowed: %q (%s)", name, mimeType)
	}
	// An unlisted mime type carries no weight once the extension admitted the file.
	if mimeOK {
		return mimeKind, nil
	}
	return extKind, nil
}

func normalizeMime(mimeType string) string {
	mime := strings.ToLower(strings.TrimSpace(mimeType))
	if i := strings.Index(mime, ";"); i >= 0 {
		mime = strings.TrimSpace(mime[:i])
	}
	return mime
}
