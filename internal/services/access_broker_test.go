package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/mediavault-backend/internal/platform/logger"
	"github.com/yungbote/mediavault-backend/internal/types"
)

func newBroker() (*AccessBroker, *memBackend) {
	backend := newMemBackend()
	g := NewObjectStoreGateway(logger.NewNop(), backend, nil, nil)
	return NewAccessBroker(logger.NewNop(), g, 15*time.Minute), backend
}

func storedAsset(public bool) *types.Asset {
	key := "videos/1700000000000-clip.mp4"
	thumbKey := "thumbnails/1700000000001-clip.jpg"
	thumbURL := "https://test-bucket.s3.us-east-1.amazonaws.com/" + thumbKey
	return &types.Asset{
		ID:           uuid.New(),
		BusinessID:   uuid.New(),
		StorageKey:   key,
		URL:          "https://test-bucket.s3.us-east-1.amazonaws.com/" + key,
		ThumbnailKey: &thumbKey,
		ThumbnailURL: &thumbURL,
		IsPublic:     public,
	}
}

func TestResolveServableURLPublicIsVerbatim(t *testing.T) {
	b, _ := newBroker()
	a := storedAsset(true)

	first, err := b.ResolveServableURL(context.Background(), a)
	require.NoError(t, err)
	second, err := b.ResolveServableURL(context.Background(), a)
	require.NoError(t, err)
	assert.Equal(t, a.URL, first)
	assert.Equal(t, first, second)
}

func TestResolveServableURLPrivateIsFreshlySigned(t *testing.T) {
	b, _ := newBroker()
	a := storedAsset(false)
	stored := a.URL

	first, err := b.ResolveServableURL(context.Background(), a)
	require.NoError(t, err)
	second, err := b.ResolveServableURL(context.Background(), a)
	require.NoError(t, err)

	assert.Contains(t, first, "X-Amz-Signature=")
	assert.Contains(t, first, "X-Amz-Expires=900")
	assert.NotEqual(t, first, second)
	assert.Equal(t, stored, a.URL, "signed url must not be written back")
}

func TestResolveServableURLExternalIsVerbatim(t *testing.T) {
	b, _ := newBroker()
	a := storedAsset(false)
	a.URL = "https://cdn.partner.example/embed/xyz"

	got, err := b.ResolveServableURL(context.Background(), a)
	require.NoError(t, err)
	assert.Equal(t, a.URL, got)
}

func TestDownloadURLSignsPublicAssets(t *testing.T) {
	b, _ := newBroker()
	a := storedAsset(true)

	got, err := b.DownloadURL(context.Background(), a)
	require.NoError(t, err)
	assert.Contains(t, got, "X-Amz-Signature=")
}

func TestPresentSignsPrivateThumbnailOnCopy(t *testing.T) {
	b, _ := newBroker()
	a := storedAsset(false)
	origThumb := *a.ThumbnailURL

	out, err := b.Present(context.Background(), a)
	require.NoError(t, err)
	require.NotNil(t, out.ThumbnailURL)
	assert.Contains(t, out.URL, "X-Amz-Signature=")
	assert.Contains(t, *out.ThumbnailURL, "X-Amz-Signature=")
	assert.Equal(t, origThumb, *a.ThumbnailURL)

	pub := storedAsset(true)
	out, err = b.Present(context.Background(), pub)
	require.NoError(t, err)
	assert.Equal(t, pub.URL, out.URL)
	assert.Equal(t, *pub.ThumbnailURL, *out.ThumbnailURL)
}

func TestIsExternalURL(t *testing.T) {
	key := "videos/1-a.mp4"
	assert.False(t, IsExternalURL("https://b.s3.us-east-1.amazonaws.com/videos/1-a.mp4", key))
	assert.False(t, IsExternalURL("http://localhost:4443/storage/v1/b/b/o/videos%2F1-a.mp4?alt=media", key))
	assert.True(t, IsExternalURL("https://youtube.example/watch?v=1", key))
	assert.False(t, IsExternalURL("videos/1-a.mp4", key))
	assert.False(t, IsExternalURL("", key))
}
