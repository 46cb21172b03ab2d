package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/mediavault-backend/internal/http/handlers"
	httpMW "github.com/yungbote/mediavault-backend/internal/http/middleware"
	"github.com/yungbote/mediavault-backend/internal/observability"
	"github.com/yungbote/mediavault-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log            *logger.Logger
	ServiceName    string
	CORSOrigins    []string
	MaxMemoryBytes int64

	AuthMiddleware *httpMW.AuthMiddleware
	Metrics        *observability.Metrics

	UploadHandler *httpH.UploadHandler
	HealthHandler *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.MaxMemoryBytes > 0 {
		r.MaxMultipartMemory = cfg.MaxMemoryBytes
	}
	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "mediavault"
	}
	r.Use(otelgin.Middleware(serviceName))
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.CORS(cfg.CORSOrigins))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}

	api := r.Group("/api")
	if cfg.UploadHandler != nil {
		api.GET("/uploads/public", cfg.UploadHandler.ListPublic)
	}

	protected := api.Group("/")
	{
		if cfg.AuthMiddleware != nil {
			protected.Use(cfg.AuthMiddleware.RequireAuth())
		}

		// Uploads
		if cfg.UploadHandler != nil {
			h := cfg.UploadHandler
			protected.POST("/uploads", h.UploadSingle)
			protected.POST("/uploads/multiple", h.UploadMultiple)
			protected.GET("/uploads", h.List)
			protected.GET("/uploads/search", h.Search)
			protected.GET("/uploads/recent", h.Recent)
			protected.GET("/uploads/stats", h.Stats)
			protected.GET("/uploads/:id", h.Get)
			protected.PUT("/uploads/:id", h.Update)
			protected.DELETE("/uploads/:id", h.Delete)
			protected.GET("/uploads/:id/view", h.View)
			protected.GET("/uploads/:id/download", h.Download)
		}
	}

	return r
}
