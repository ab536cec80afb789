package api

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/your-org/scancore/internal/api/auth"
	"github.com/your-org/scancore/internal/api/handlers"
	"github.com/your-org/scancore/internal/api/ws"
	"github.com/your-org/scancore/internal/pricing/catalog"
	"github.com/your-org/scancore/internal/pricing/v3"
	"github.com/your-org/scancore/internal/pricing/v4"
	"github.com/your-org/scancore/internal/queue"
	"github.com/your-org/scancore/internal/storage"
)

type RouterConfig struct {
	APIKeys       []string
	DB            *storage.PostgresStore
	MinIO         *storage.MinIOStore
	Producer      *queue.Producer
	Hub           *ws.Hub
	Catalog       *catalog.Store
	V3            *v3.Service
	V4            *v4.Service
	PromptVersion string
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(LoggingMiddleware())
	r.Use(cors.Default())

	// System endpoints (no auth)
	systemH := handlers.NewSystemHandler(cfg.DB, cfg.MinIO, cfg.Producer)
	r.GET("/healthz", systemH.Healthz)
	r.GET("/readyz", systemH.Readyz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API v1 (with auth)
	v1 := r.Group("/v1")
	v1.Use(auth.APIKeyMiddleware(cfg.APIKeys))

	// Scan diagnostics WebSocket
	v1.GET("/scan/ws", cfg.Hub.HandleWS)

	// Pricing
	pricingH := handlers.NewPricingHandler(cfg.V3, cfg.V4, cfg.PromptVersion)
	v1.POST("/pricing/v3", pricingH.V3)
	v1.POST("/pricing/v4", pricingH.V4)

	// Catalog
	catalogH := handlers.NewCatalogHandler(cfg.Catalog)
	v1.GET("/catalog/:subtype/brands", catalogH.Brands)
	v1.GET("/catalog/:subtype/models", catalogH.Models)

	return r
}
