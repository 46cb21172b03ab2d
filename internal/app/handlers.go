package app

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	httpapi "github.com/yungbote/mediavault-backend/internal/http"
	httpH "github.com/yungbote/mediavault-backend/internal/http/handlers"
	httpMW "github.com/yungbote/mediavault-backend/internal/http/middleware"
	"github.com/yungbote/mediavault-backend/internal/observability"
	"github.com/yungbote/mediavault-backend/internal/platform/logger"
)

type Handlers struct {
	Upload *httpH.UploadHandler
	Health *httpH.HealthHandler
}

func wireHandlers(log *logger.Logger, db *gorm.DB, serviceset Services) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Upload: httpH.NewUploadHandler(log, serviceset.Uploads, serviceset.Catalog, serviceset.Broker),
		Health: httpH.NewHealthHandler(db),
	}
}

func wireRouter(log *logger.Logger, cfg Config, handlerset Handlers, metrics *observability.Metrics) *gin.Engine {
	if cfg.JWTSecretKey == "" {
		log.Warn("JWT_SECRET_KEY is empty; every protected route will answer 401")
	}
	return httpapi.NewRouter(httpapi.RouterConfig{
		Log:            log,
		ServiceName:    "mediavault",
		CORSOrigins:    cfg.CORSOrigins,
		MaxMemoryBytes: 32 << 20,
		AuthMiddleware: httpMW.NewAuthMiddleware(log, cfg.JWTSecretKey),
		Metrics:        metrics,
		UploadHandler:  handlerset.Upload,
		HealthHandler:  handlerset.Health,
	})
}
