package app

import (
	"context"
	"os"
	"path/filepath"

	"github.com/yungbote/mediavault-backend/internal/observability"
	"github.com/yungbote/mediavault-backend/internal/platform/eventbus"
	"github.com/yungbote/mediavault-backend/internal/platform/localmedia"
	"github.com/yungbote/mediavault-backend/internal/platform/logger"
	"github.com/yungbote/mediavault-backend/internal/services"
)

type Services struct {
	Gateway *services.ObjectStoreGateway
	Catalog services.AssetCatalog
	Broker  *services.AccessBroker
	Uploads services.UploadService
	Events  eventbus.Publisher
}

func wireServices(ctx context.Context, log *logger.Logger, cfg Config, reposet Repos, metrics *observability.Metrics) (Services, error) {
	log.Info("Wiring services...")

	var pipelineMetrics services.Metrics
	if metrics != nil {
		pipelineMetrics = metrics
	}

	backend, storeErr := resolveObjectStore(ctx, log, cfg.Storage)
	gateway := services.NewObjectStoreGateway(log, backend, storeErr, pipelineMetrics)

	stagingDir := cfg.StagingDir
	if stagingDir == "" {
		stagingDir = filepath.Join(os.TempDir(), "mediavault-staging")
	}
	prober := localmedia.New(log, localmedia.Options{
		FFmpegPath:  cfg.FFmpegPath,
		FFprobePath: cfg.FFprobePath,
		WorkRoot:    filepath.Join(stagingDir, "thumbnails"),
		Timeout:     cfg.ProbeTimeout,
	})
	if err := prober.AssertReady(ctx); err != nil {
		log.Warn("Media tools unavailable; videos will be stored without duration or thumbnail", "error", err)
	}

	events, err := wireEventPublisher(log, cfg)
	if err != nil {
		return Services{}, err
	}

	catalog := services.NewAssetCatalog(log, reposet.Asset)
	uploads := services.NewUploadService(
		log,
		services.UploadConfig{
			MaxBatchFiles:    cfg.MaxBatchFiles,
			BatchConcurrency: cfg.BatchConcurrency,
		},
		services.NewIngestValidator(cfg.MaxFileBytes),
		services.NewStagingArena(log, stagingDir),
		services.NewMediaProber(log, prober, pipelineMetrics),
		gateway,
		catalog,
		events,
		pipelineMetrics,
	)

	return Services{
		Gateway: gateway,
		Catalog: catalog,
		Broker:  services.NewAccessBroker(log, gateway, cfg.SignedURLTTL),
		Uploads: uploads,
		Events:  events,
	}, nil
}
