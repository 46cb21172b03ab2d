package services

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/yungbote/mediavault-backend/internal/platform/logger"
	"github.com/yungbote/mediavault-backend/internal/types"
)

// AccessBroker decides which URL a caller receives for an asset. Signed URLs
// are minted per request and never written back to the record.
type AccessBroker struct {
	log     *logger.Logger
	gateway *ObjectStoreGateway
	ttl     time.Duration
}

func NewAccessBroker(baseLog *logger.Logger, gateway *ObjectStoreGateway, ttl time.Duration) *AccessBroker {
	if ttl <= 0 {
		ttl = DefaultSignedURLTTL
	}
	return &AccessBroker{
		log:     baseLog.With("service", "AccessBroker"),
		gateway: gateway,
		ttl:     ttl,
	}
}

func (b *AccessBroker) TTL() time.Duration { return b.ttl }

func (b *AccessBroker) ResolveServableURL(ctx context.Context, asset *types.Asset) (string, error) {
	if asset == nil {
		return "", nil
	}
	if asset.IsPublic || IsExternalURL(asset.URL, asset.StorageKey) {
		return asset.URL, nil
	}
	return b.gateway.SignedURL(ctx, asset.StorageKey, b.ttl)
}

// DownloadURL always mints a fresh link unless the stored URL points outside
// the object store.
func (b *AccessBroker) DownloadURL(ctx context.Context, asset *types.Asset) (string, error) {
	if asset == nil {
		return "", nil
	}
	if IsExternalURL(asset.URL, asset.StorageKey) {
		return asset.URL, nil
	}
	return b.gateway.SignedURL(ctx, asset.StorageKey, b.ttl)
}

// Present returns a copy of asset with servable URLs filled in.
func (b *AccessBroker) Present(ctx context.Context, asset *types.Asset) (*types.Asset, error) {
	if asset == nil {
		return nil, nil
	}
	out := *asset
	u, err := b.ResolveServableURL(ctx, asset)
	if err != nil {
		return nil, err
	}
	out.URL = u

	if !asset.IsPublic && asset.HasThumbnail() {
		thumbURL := ""
		if asset.ThumbnailURL != nil {
			thumbURL = *asset.ThumbnailURL
		}
		if !IsExternalURL(thumbURL, *asset.ThumbnailKey) {
			signed, err := b.gateway.SignedURL(ctx, *asset.ThumbnailKey, b.ttl)
			if err != nil {
				b.log.Warn("Thumbnail signing failed", "asset_id", asset.ID, "storage_key", *asset.ThumbnailKey, "error", err)
				out.ThumbnailURL = nil
			} else {
				out.ThumbnailURL = &signed
			}
		}
	}
	return &out, nil
}

func (b *AccessBroker) PresentAll(ctx context.Context, assets []*types.Asset) ([]*types.Asset, error) {
	out := make([]*types.Asset, 0, len(assets))
	for _, a := range assets {
		p, err := b.Present(ctx, a)
		if err != nil {
			return nil, err
		}
		if p != nil {
			out = append(out, p)
		}
	}
	return out, nil
}

// IsExternalURL reports whether rawURL is an absolute link that does not
// address storageKey in the object store.
func IsExternalURL(rawURL string, storageKey string) bool {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return false
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return false
	}
	key := strings.TrimLeft(strings.TrimSpace(storageKey), "/")
	if key == "" {
		return true
	}
	return !strings.HasSuffix(u.Path, "/"+key)
}
