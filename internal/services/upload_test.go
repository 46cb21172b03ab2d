package services

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/mediavault-backend/internal/platform/apierr"
	"github.com/yungbote/mediavault-backend/internal/platform/eventbus"
	"github.com/yungbote/mediavault-backend/internal/platform/logger"
	"github.com/yungbote/mediavault-backend/internal/types"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []eventbus.Event
}

func (r *recordingPublisher) Publish(_ context.Context, evt eventbus.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
	return nil
}

func (r *recordingPublisher) Close() error { return nil }

func (r *recordingPublisher) eventTypes() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

func TestProcessFileImage(t *testing.T) {
	p := newPipeline(t)
	owner := uuid.New()

	asset, err := p.uploads.ProcessFile(context.Background(), fileInput("Front Yard.png", "image/png", []byte("pngbytes")), owner, SharedMetadata{
		Description: "before",
		Tags:        []string{"yard"},
		Metadata:    map[string]interface{}{"job": "J-1"},
	})
	require.NoError(t, err)

	assert.Equal(t, owner, asset.BusinessID)
	assert.Equal(t, types.AssetKindImage, asset.Kind)
	assert.Equal(t, int64(8), asset.SizeBytes)
	assert.Equal(t, "Front Yard.png", asset.Title)
	assert.True(t, strings.HasPrefix(asset.StorageKey, "images/"))
	assert.True(t, strings.HasSuffix(asset.StorageKey, "-Front-Yard.png"))
	assert.Zero(t, asset.DurationSeconds)
	assert.Nil(t, asset.ThumbnailURL)
	assert.Empty(t, p.prober.thumbAt, "images are never probed")
	assert.True(t, p.backend.has(asset.StorageKey))

	got, err := p.catalog.GetForOwner(context.Background(), asset.ID, owner)
	require.NoError(t, err)
	assert.Equal(t, asset.SizeBytes, got.SizeBytes)
	assert.Equal(t, asset.Kind, got.Kind)

	requireEmptyDir(t, p.arena.Dir())
}

func TestProcessFileVideoWithThumbnail(t *testing.T) {
	p := newPipeline(t)
	owner := uuid.New()

	asset, err := p.uploads.ProcessFile(context.Background(), fileInput("walk.mp4", "video/mp4", []byte("mp4bytes")), owner, SharedMetadata{Title: "Walkthrough"})
	require.NoError(t, err)

	assert.Equal(t, types.AssetKindVideo, asset.Kind)
	assert.Equal(t, 12.0, asset.DurationSeconds)
	assert.Equal(t, []float64{6}, p.prober.thumbAt)
	require.True(t, asset.HasThumbnail())
	assert.True(t, strings.HasPrefix(*asset.ThumbnailKey, "thumbnails/"))
	assert.True(t, strings.HasSuffix(*asset.ThumbnailKey, "-walk.jpg"))
	primaryName := strings.SplitN(asset.FileName, "-", 2)[1]
	thumbName := strings.SplitN(strings.TrimPrefix(*asset.ThumbnailKey, "thumbnails/"), "-", 2)[1]
	assert.Equal(t, strings.TrimSuffix(primaryName, ".mp4")+".jpg", thumbName)
	assert.True(t, p.backend.has(*asset.ThumbnailKey))
	assert.Equal(t, "image/jpeg", p.backend.types[*asset.ThumbnailKey])
	assert.True(t, strings.HasPrefix(asset.StorageKey, "videos/"))

	requireEmptyDir(t, p.arena.Dir())
	requireEmptyDir(t, p.prober.thumbDir)
}

func TestProcessFileThumbnailFailureStillCreatesRecord(t *testing.T) {
	p := newPipeline(t)
	p.prober.thumbErr = errors.New("ffmpeg: invalid data found")
	p.prober.durationErr = errors.New("ffprobe: exit status 1")

	asset, err := p.uploads.ProcessFile(context.Background(), fileInput("broken.mov", "video/quicktime", []byte("mov")), uuid.New(), SharedMetadata{})
	require.NoError(t, err)
	assert.Nil(t, asset.ThumbnailURL)
	assert.Nil(t, asset.ThumbnailKey)
	assert.Zero(t, asset.DurationSeconds)
}

func TestProcessFileThumbnailUploadFailureIsNonFatal(t *testing.T) {
	p := newPipeline(t)
	p.backend.failUpload[FolderThumbnails+"/"] = true

	asset, err := p.uploads.ProcessFile(context.Background(), fileInput("walk.mp4", "video/mp4", []byte("v")), uuid.New(), SharedMetadata{})
	require.NoError(t, err)
	assert.Nil(t, asset.ThumbnailURL)
	requireEmptyDir(t, p.prober.thumbDir)
}

func TestProcessFileStorageFailureCreatesNothing(t *testing.T) {
	p := newPipeline(t)
	p.backend.failUpload[FolderVideos+"/"] = true
	owner := uuid.New()

	_, err := p.uploads.ProcessFile(context.Background(), fileInput("walk.mp4", "video/mp4", []byte("v")), owner, SharedMetadata{})
	require.Error(t, err)
	assert.True(t, apierr.HasCode(err, CodeStorage))

	list, err := p.catalog.ListByOwner(context.Background(), owner, types.AssetFilter{}, types.Page{})
	require.NoError(t, err)
	assert.Zero(t, list.Total)
	requireEmptyDir(t, p.arena.Dir())
	requireEmptyDir(t, p.prober.thumbDir)
}

func TestProcessFileRejectsBeforeIO(t *testing.T) {
	p := newPipeline(t)
	opened := false
	in := FileInput{Name: "notes.txt", MimeType: "text/plain", Size: 3, Open: func() (io.ReadCloser, error) {
		opened = true
		return io.NopCloser(strings.NewReader("abc")), nil
	}}

	_, err := p.uploads.ProcessFile(context.Background(), in, uuid.New(), SharedMetadata{})
	require.Error(t, err)
	assert.True(t, apierr.HasCode(err, CodeValidation))
	assert.False(t, opened)
	assert.Zero(t, p.backend.count())
}

func TestProcessFileConfigurationError(t *testing.T) {
	log := logger.NewNop()
	p := newPipeline(t)
	gateway := NewObjectStoreGateway(log, nil, errors.New("missing bucket"), nil)
	svc := NewUploadService(log, UploadConfig{}, NewIngestValidator(0), p.arena, NewMediaProber(log, p.prober, nil), gateway, p.catalog, nil, nil)

	_, err := svc.ProcessFile(context.Background(), fileInput("a.png", "image/png", []byte("x")), uuid.New(), SharedMetadata{})
	require.Error(t, err)
	ae := apierr.From(err, "")
	assert.Equal(t, 500, ae.Status)
	assert.Equal(t, CodeConfiguration, ae.Code)
	assert.Contains(t, err.Error(), "missing bucket")
}

func TestProcessBatchIsolatesFailures(t *testing.T) {
	p := newPipeline(t)
	owner := uuid.New()

	files := []FileInput{
		fileInput("a.png", "image/png", []byte("a")),
		fileInput("bad.exe", "application/x-msdownload", []byte("b")),
		fileInput("c.mp4", "video/mp4", []byte("c")),
		{Name: "d.jpg", MimeType: "image/jpeg", Size: 1, Open: func() (io.ReadCloser, error) {
			return nil, errors.New("multipart part vanished")
		}},
		fileInput("e.webp", "image/webp", []byte("e")),
	}

	res := p.uploads.ProcessBatch(context.Background(), files, owner, SharedMetadata{Tags: []string{"shared"}})
	assert.Equal(t, 5, res.Total)
	assert.Equal(t, 3, res.Successful)
	assert.Equal(t, 2, res.Failed)
	require.Len(t, res.Results, 5)

	for i, f := range files {
		assert.Equal(t, f.Name, res.Results[i].OriginalName, "results keep input order")
	}
	assert.True(t, res.Results[0].Success)
	assert.False(t, res.Results[1].Success)
	assert.NotEmpty(t, res.Results[1].Error)
	assert.True(t, res.Results[2].Success)
	assert.False(t, res.Results[3].Success)
	assert.True(t, res.Results[4].Success)
	assert.Equal(t, []string{"shared"}, []string(res.Results[4].Asset.Tags))

	list, err := p.catalog.ListByOwner(context.Background(), owner, types.AssetFilter{}, types.Page{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), list.Total)
	requireEmptyDir(t, p.arena.Dir())
}

func TestProcessBatchSameNamesKeepEveryObject(t *testing.T) {
	p := newPipeline(t)
	p.gateway.now = func() time.Time { return time.UnixMilli(1700000000000) }
	owner := uuid.New()

	files := make([]FileInput, 8)
	for i := range files {
		files[i] = fileInput("IMG_0001.jpg", "image/jpeg", []byte{byte('a' + i)})
	}
	res := p.uploads.ProcessBatch(context.Background(), files, owner, SharedMetadata{})
	assert.Equal(t, 8, res.Successful)
	assert.Zero(t, res.Failed)

	keys := map[string]bool{}
	for _, r := range res.Results {
		require.True(t, r.Success, r.Error)
		assert.False(t, keys[r.Asset.StorageKey], "duplicate storage key %s", r.Asset.StorageKey)
		keys[r.Asset.StorageKey] = true
		assert.True(t, strings.HasPrefix(r.Asset.StorageKey, "images/1700000000000-"))
		assert.True(t, strings.HasSuffix(r.Asset.StorageKey, "-IMG_0001.jpg"))
		assert.True(t, p.backend.has(r.Asset.StorageKey), "object for %s is gone", r.Asset.ID)
	}
	assert.Equal(t, 8, p.backend.count())
}

func TestProcessFileSameNameAcrossTenantsIsIsolated(t *testing.T) {
	p := newPipeline(t)
	p.gateway.now = func() time.Time { return time.UnixMilli(1700000000000) }
	ctx := context.Background()

	first, err := p.uploads.ProcessFile(ctx, fileInput("image.jpg", "image/jpeg", []byte("first")), uuid.New(), SharedMetadata{})
	require.NoError(t, err)
	second, err := p.uploads.ProcessFile(ctx, fileInput("image.jpg", "image/jpeg", []byte("second")), uuid.New(), SharedMetadata{})
	require.NoError(t, err)

	assert.NotEqual(t, first.StorageKey, second.StorageKey)
	assert.True(t, p.backend.has(first.StorageKey))
	assert.True(t, p.backend.has(second.StorageKey))
	assert.Empty(t, p.backend.deletedKeys())
}

func TestProcessBatchRecoversPanics(t *testing.T) {
	p := newPipeline(t)
	files := []FileInput{
		{Name: "boom.png", MimeType: "image/png", Size: 1, Open: func() (io.ReadCloser, error) { panic("reader exploded") }},
		fileInput("ok.png", "image/png", []byte("x")),
	}
	res := p.uploads.ProcessBatch(context.Background(), files, uuid.New(), SharedMetadata{})
	assert.Equal(t, 1, res.Successful)
	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, "boom.png", res.Results[0].OriginalName)
	assert.Equal(t, "internal error", res.Results[0].Error)
}

func TestDeleteAssetTargetsBothObjectsAndSurvivesStorageFailure(t *testing.T) {
	p := newPipeline(t)
	owner := uuid.New()
	asset, err := p.uploads.ProcessFile(context.Background(), fileInput("walk.mp4", "video/mp4", []byte("v")), owner, SharedMetadata{})
	require.NoError(t, err)
	require.True(t, asset.HasThumbnail())

	p.backend.failDelete = true
	deleted, err := p.uploads.DeleteAsset(context.Background(), asset.ID, owner)
	require.NoError(t, err)
	assert.Equal(t, asset.ID, deleted.ID)
	assert.ElementsMatch(t, []string{asset.StorageKey, *asset.ThumbnailKey}, p.backend.deletedKeys())

	_, err = p.catalog.Get(context.Background(), asset.ID)
	assert.True(t, apierr.HasCode(err, CodeNotFound))
}

func TestDeleteAssetOtherTenant(t *testing.T) {
	p := newPipeline(t)
	asset, err := p.uploads.ProcessFile(context.Background(), fileInput("a.png", "image/png", []byte("v")), uuid.New(), SharedMetadata{})
	require.NoError(t, err)

	_, err = p.uploads.DeleteAsset(context.Background(), asset.ID, uuid.New())
	assert.True(t, apierr.HasCode(err, CodeNotFound))
	assert.Empty(t, p.backend.deletedKeys())
	assert.True(t, p.backend.has(asset.StorageKey))
}

func TestLifecycleEventsArePublished(t *testing.T) {
	p := newPipeline(t)
	log := logger.NewNop()
	pub := &recordingPublisher{}
	svc := NewUploadService(log, UploadConfig{}, NewIngestValidator(0), p.arena, NewMediaProber(log, p.prober, nil), p.gateway, p.catalog, pub, nil)
	owner := uuid.New()

	asset, err := svc.ProcessFile(context.Background(), fileInput("a.png", "image/png", []byte("v")), owner, SharedMetadata{})
	require.NoError(t, err)
	title := "renamed"
	_, err = svc.UpdateAsset(context.Background(), asset.ID, owner, types.AssetPatch{Title: &title})
	require.NoError(t, err)
	_, err = svc.UpdateAsset(context.Background(), asset.ID, owner, types.AssetPatch{})
	require.NoError(t, err)
	_, err = svc.DeleteAsset(context.Background(), asset.ID, owner)
	require.NoError(t, err)

	assert.Equal(t, []string{eventbus.EventAssetCreated, eventbus.EventAssetUpdated, eventbus.EventAssetDeleted}, pub.eventTypes())
}
