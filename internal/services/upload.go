package services

import (
	"context"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"

	"github.com/yungbote/mediavault-backend/internal/platform/ctxutil"
	"github.com/yungbote/mediavault-backend/internal/platform/eventbus"
	"github.com/yungbote/mediavault-backend/internal/platform/logger"
	"github.com/yungbote/mediavault-backend/internal/types"
)

const (
	DefaultMaxBatchFiles    = 10
	DefaultBatchConcurrency = 4
)

// FileInput describes one submitted file. Open is called at most once.
type FileInput struct {
	Name     string
	MimeType string
	Size     int64
	Open     func() (io.ReadCloser, error)
}

// SharedMetadata is applied to every file of a request.
type SharedMetadata struct {
	Title       string
	Description string
	Tags        []string
	IsPublic    bool
	Metadata    map[string]interface{}
}

type FileResult struct {
	Success      bool         `json:"success"`
	OriginalName string       `json:"original_name"`
	Asset        *types.Asset `json:"upload,omitempty"`
	Error        string       `json:"error,omitempty"`
}

type BatchResult struct {
	Total      int          `json:"total"`
	Successful int          `json:"successful"`
	Failed     int          `json:"failed"`
	Results    []FileResult `json:"results"`
}

type UploadService interface {
	Ready() error
	MaxBatchFiles() int
	ProcessFile(ctx context.Context, in FileInput, businessID uuid.UUID, meta SharedMetadata) (*types.Asset, error)
	ProcessBatch(ctx context.Context, files []FileInput, businessID uuid.UUID, meta SharedMetadata) BatchResult
	UpdateAsset(ctx context.Context, id uuid.UUID, businessID uuid.UUID, patch types.AssetPatch) (*types.Asset, error)
	DeleteAsset(ctx context.Context, id uuid.UUID, businessID uuid.UUID) (*types.Asset, error)
}

type UploadConfig struct {
	MaxBatchFiles    int
	BatchConcurrency int
}

type uploadService struct {
	log       *logger.Logger
	validator *IngestValidator
	arena     *StagingArena
	prober    *MediaProber
	gateway   *ObjectStoreGateway
	catalog   AssetCatalog
	events    eventbus.Publisher
	metrics   Metrics
	tracer    trace.Tracer
	cfg       UploadConfig
}

func NewUploadService(
	baseLog *logger.Logger,
	cfg UploadConfig,
	validator *IngestValidator,
	arena *StagingArena,
	prober *MediaProber,
	gateway *ObjectStoreGateway,
	catalog AssetCatalog,
	events eventbus.Publisher,
	metrics Metrics,
) UploadService {
	if cfg.MaxBatchFiles <= 0 {
		cfg.MaxBatchFiles = DefaultMaxBatchFiles
	}
	if cfg.BatchConcurrency <= 0 {
		cfg.BatchConcurrency = DefaultBatchConcurrency
	}
	if events == nil {
		events = eventbus.NewNop()
	}
	return &uploadService{
		log:       baseLog.With("service", "UploadService"),
		validator: validator,
		arena:     arena,
		prober:    prober,
		gateway:   gateway,
		catalog:   catalog,
		events:    events,
		metrics:   metricsOrNop(metrics),
		tracer:    otel.Tracer("mediavault/services"),
		cfg:       cfg,
	}
}

func (s *uploadService) Ready() error { return s.gateway.Ready() }

func (s *uploadService) MaxBatchFiles() int { return s.cfg.MaxBatchFiles }

// ProcessFile runs stage, probe, store and catalog write in order. No record
// is created unless every required stage succeeds.
func (s *uploadService) ProcessFile(ctx context.Context, in FileInput, businessID uuid.UUID, meta SharedMetadata) (asset *types.Asset, err error) {
	ctx = ctxutil.Default(ctx)
	start := time.Now()
	kind := types.AssetKindOther

	ctx, span := s.tracer.Start(ctx, "upload.process_file", trace.WithAttributes(
		attribute.String("upload.original_name", in.Name),
		attribute.String("upload.mime_type", in.MimeType),
		attribute.Int64("upload.size_bytes", in.Size),
	))
	defer func() {
		outcome := OutcomeSuccess
		if err != nil {
			outcome = OutcomeFailure
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		s.metrics.ObserveUpload(kind, outcome, time.Since(start), in.Size)
		span.End()
	}()

	if err := s.gateway.Ready(); err != nil {
		return nil, err
	}
	if businessID == uuid.Nil {
		return nil, ValidationError("business id is required")
	}
	kind, err = s.validator.Validate(in.Name, in.MimeType, in.Size)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("upload.kind", string(kind)))
	if in.Open == nil {
		return nil, ValidationError("no file provided")
	}

	staged, err := s.stage(ctx, in)
	if err != nil {
		return nil, err
	}
	defer staged.Release()
	if staged.Size > s.validator.MaxBytes() {
		return nil, ValidationError("file %q exceeds the %d byte limit", in.Name, s.validator.MaxBytes())
	}

	var probe ProbeResult
	if kind == types.AssetKindVideo {
		probe = s.prober.Probe(ctx, staged)
		defer probe.Release()
	}

	folder := FolderImages
	if kind == types.AssetKindVideo {
		folder = FolderVideos
	}
	contentType := contentTypeFor(in.Name, in.MimeType)
	objectName := uniqueObjectName(in.Name)
	stored, err := s.gateway.Put(ctx, staged.Path, objectName, contentType, folder)
	if err != nil {
		return nil, err
	}

	var thumbKey, thumbURL *string
	if probe.ThumbnailPath != "" {
		thumb, terr := s.gateway.Put(ctx, probe.ThumbnailPath, thumbnailObjectName(objectName), "image/jpeg", FolderThumbnails)
		if terr != nil {
			s.log.Warn("Thumbnail upload failed", "storage_key", stored.Key, "error", terr)
		} else {
			thumbKey, thumbURL = &thumb.Key, &thumb.URL
		}
	}

	title := strings.TrimSpace(meta.Title)
	if title == "" {
		title = in.Name
	}
	tags := meta.Tags
	if tags == nil {
		tags = []string{}
	}
	metadata := meta.Metadata
	if metadata == nil {
		metadata = map[string]interface{}{}
	}

	row := &types.Asset{
		ID:              uuid.New(),
		BusinessID:      businessID,
		OriginalName:    in.Name,
		FileName:        stored.FileName,
		StorageKey:      stored.Key,
		URL:             stored.URL,
		SizeBytes:       staged.Size,
		MimeType:        contentType,
		Kind:            kind,
		DurationSeconds: probe.DurationSeconds,
		ThumbnailURL:    thumbURL,
		ThumbnailKey:    thumbKey,
		Title:           title,
		Description:     meta.Description,
		Tags:            datatypes.JSONSlice[string](tags),
		Metadata:        datatypes.JSONMap(metadata),
		IsPublic:        meta.IsPublic,
	}
	created, err := s.catalog.Create(ctx, row)
	if err != nil {
		// The keys embed this run's unique name, so nobody else references them.
		s.gateway.Delete(ctx, stored.Key)
		if thumbKey != nil {
			s.gateway.Delete(ctx, *thumbKey)
		}
		return nil, err
	}

	s.log.Info("Upload stored",
		"asset_id", created.ID,
		"business_id", businessID,
		"storage_key", created.StorageKey,
		"kind", created.Kind,
		"size_bytes", created.SizeBytes,
	)
	s.publish(ctx, eventbus.EventAssetCreated, created)
	return created, nil
}

// uniqueObjectName prefixes the sanitized client name with a random id so two
// runs never share a storage key, even for identical names in the same
// millisecond.
func uniqueObjectName(originalName string) string {
	return uuid.NewString() + "-" + SafeObjectName(originalName)
}

// thumbnailObjectName derives the thumbnail name from the primary object name.
func thumbnailObjectName(objectName string) string {
	return strings.TrimSuffix(objectName, filepath.Ext(objectName)) + ".jpg"
}

// contentTypeFor prefers the declared type and falls back to the extension.
func contentTypeFor(name, declared string) string {
	declared = strings.TrimSpace(declared)
	if declared != "" && normalizeMime(declared) != "application/octet-stream" {
		return declared
	}
	if byExt := mime.TypeByExtension(strings.ToLower(filepath.Ext(name))); byExt != "" {
		return byExt
	}
	return "application/octet-stream"
}

func (s *uploadService) stage(ctx context.Context, in FileInput) (*StagedFile, error) {
	ctx, span := s.tracer.Start(ctx, "upload.stage")
	defer span.End()

	rc, err := in.Open()
	if err != nil {
		return nil, StorageError("open upload", err)
	}
	defer rc.Close()
	return s.arena.Stage(ctx, rc, in.Name)
}

// ProcessBatch runs each file through ProcessFile on a bounded pool. One
// file's failure never affects another; results keep input order.
func (s *uploadService) ProcessBatch(ctx context.Context, files []FileInput, businessID uuid.UUID, meta SharedMetadata) BatchResult {
	ctx = ctxutil.Default(ctx)
	ctx, span := s.tracer.Start(ctx, "upload.process_batch", trace.WithAttributes(
		attribute.Int("upload.batch_size", len(files)),
	))
	defer span.End()

	results := make([]FileResult, len(files))

	var g errgroup.Group
	g.SetLimit(s.cfg.BatchConcurrency)
	for i := range files {
		i := i
		g.Go(func() error {
			results[i] = s.processOne(ctx, files[i], businessID, meta)
			return nil
		})
	}
	_ = g.Wait()

	out := BatchResult{Total: len(files), Results: results}
	for _, r := range results {
		if r.Success {
			out.Successful++
		} else {
			out.Failed++
		}
	}
	s.metrics.ObserveBatch(out.Total, out.Failed)
	span.SetAttributes(attribute.Int("upload.batch_failed", out.Failed))
	return out
}

func (s *uploadService) processOne(ctx context.Context, in FileInput, businessID uuid.UUID, meta SharedMetadata) (res FileResult) {
	res.OriginalName = in.Name
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("Upload pipeline panic", "original_name", in.Name, "panic", fmt.Sprint(r))
			res = FileResult{OriginalName: in.Name, Error: "internal error"}
		}
	}()

	asset, err := s.ProcessFile(ctx, in, businessID, meta)
	if err != nil {
		s.log.Warn("Batch file failed", "original_name", in.Name, "error", err)
		res.Error = err.Error()
		return res
	}
	res.Success = true
	res.Asset = asset
	return res
}

func (s *uploadService) UpdateAsset(ctx context.Context, id uuid.UUID, businessID uuid.UUID, patch types.AssetPatch) (*types.Asset, error) {
	updated, err := s.catalog.Update(ctx, id, businessID, patch)
	if err != nil {
		return nil, err
	}
	if !patch.Empty() {
		s.publish(ctx, eventbus.EventAssetUpdated, updated)
	}
	return updated, nil
}

// DeleteAsset targets the primary and thumbnail objects, then removes the
// row even if storage cleanup failed.
func (s *uploadService) DeleteAsset(ctx context.Context, id uuid.UUID, businessID uuid.UUID) (*types.Asset, error) {
	ctx = ctxutil.Default(ctx)
	ctx, span := s.tracer.Start(ctx, "upload.delete")
	defer span.End()

	row, err := s.catalog.GetForOwner(ctx, id, businessID)
	if err != nil {
		return nil, err
	}

	if !s.gateway.Delete(ctx, row.StorageKey) {
		s.log.Warn("Orphaned object after delete", "asset_id", row.ID, "storage_key", row.StorageKey)
	}
	if row.HasThumbnail() && !s.gateway.Delete(ctx, *row.ThumbnailKey) {
		s.log.Warn("Orphaned thumbnail after delete", "asset_id", row.ID, "storage_key", *row.ThumbnailKey)
	}

	deleted, err := s.catalog.Delete(ctx, id, businessID)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, eventbus.EventAssetDeleted, deleted)
	return deleted, nil
}

func (s *uploadService) publish(ctx context.Context, eventType string, asset *types.Asset) {
	if err := s.events.Publish(ctx, eventbus.NewAssetEvent(eventType, asset)); err != nil {
		s.log.Warn("Event publish failed", "type", eventType, "asset_id", asset.ID, "error", err)
	}
}
