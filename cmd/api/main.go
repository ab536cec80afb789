package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/your-org/scancore/internal/api"
	"github.com/your-org/scancore/internal/api/ws"
	"github.com/your-org/scancore/internal/config"
	"github.com/your-org/scancore/internal/models"
	"github.com/your-org/scancore/internal/observability"
	"github.com/your-org/scancore/internal/pricing/adapter"
	"github.com/your-org/scancore/internal/pricing/cache"
	"github.com/your-org/scancore/internal/pricing/catalog"
	"github.com/your-org/scancore/internal/pricing/cluster"
	"github.com/your-org/scancore/internal/pricing/filter"
	"github.com/your-org/scancore/internal/pricing/queryplan"
	"github.com/your-org/scancore/internal/pricing/v3"
	"github.com/your-org/scancore/internal/pricing/v4"
	"github.com/your-org/scancore/internal/queue"
	"github.com/your-org/scancore/internal/storage"
	"github.com/your-org/scancore/pkg/dto"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	observability.SetupLogger(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("starting scancore API service", "port", cfg.Server.Port)

	db, err := storage.NewPostgresStore(cfg.Database)
	if err != nil {
		slog.Error("connect to postgres", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	minioStore, err := storage.NewMinIOStore(cfg.MinIO)
	if err != nil {
		slog.Error("connect to minio", "error", err)
		os.Exit(1)
	}
	if err := minioStore.EnsureBucket(context.Background()); err != nil {
		slog.Warn("ensure minio bucket", "error", err)
	}

	producer, err := queue.NewProducer(cfg.NATS.URL)
	if err != nil {
		slog.Error("connect to nats", "error", err)
		os.Exit(1)
	}
	defer producer.Close()

	if err := producer.EnsureStreams(context.Background()); err != nil {
		slog.Warn("ensure nats streams", "error", err)
	}

	// WebSocket hub for scan diagnostics
	hub := ws.NewHub()
	go hub.Run()

	consumer, err := queue.NewConsumer(cfg.NATS.URL)
	if err != nil {
		slog.Error("create event consumer", "error", err)
		os.Exit(1)
	}
	defer consumer.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	err = consumer.ConsumeEvents(ctx, "api-scan-events", func(ctx context.Context, msg jetstream.Msg) error {
		var evt models.ScanEvent
		if err := json.Unmarshal(msg.Data(), &evt); err != nil {
			return nil // don't retry on unmarshal errors
		}
		hub.Broadcast(&dto.WSEvent{
			Type:      evt.Type,
			SessionID: evt.SessionID,
			State:     evt.State,
			CaptureID: evt.CaptureID,
			Reason:    evt.Reason,
		})
		return nil
	})
	if err != nil {
		slog.Warn("start event consumer", "error", err)
	}

	catalogStore, err := catalog.Load(cfg.Pricing.CatalogDir)
	if err != nil {
		slog.Warn("load catalog", "error", err)
		catalogStore, _ = catalog.Load("")
	}

	v3svc, v4svc := buildPricingStack(cfg.Pricing)

	router := api.NewRouter(api.RouterConfig{
		APIKeys:       cfg.Server.APIKeys,
		DB:            db,
		MinIO:         minioStore,
		Producer:      producer,
		Hub:           hub,
		Catalog:       catalogStore,
		V3:            v3svc,
		V4:            v4svc,
		PromptVersion: cfg.Pricing.PromptVersion,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("API server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down API server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	slog.Info("API server stopped")
}

// buildPricingStack wires the V4 glue (adapters, query-plan resolvers,
// filter rules, AI clusterer) and the V3 fallback service from config.
func buildPricingStack(cfg config.PricingConfig) (*v3.Service, *v4.Service) {
	pricingCache := cache.New(cfg.CacheTTL, cfg.CacheJanitorPeriod)

	v3svc := v3.NewService(cfg.Enabled, cfg.V3Endpoint, cfg.V3APIKey, cfg.V3Model, cfg.OverallTimeout, pricingCache)

	if !cfg.Enabled {
		return v3svc, v4.NewService(v4.Config{Enabled: false}, nil, nil, filter.Rules{}, nil, v3svc, pricingCache)
	}

	adapters := make([]adapter.Adapter, 0, len(cfg.Adapters))
	resolvers := make(map[string]*queryplan.CategoryResolver, len(cfg.Adapters))
	httpClient := &http.Client{Timeout: cfg.AdapterTimeout}

	for _, name := range cfg.Adapters {
		adapters = append(adapters, adapter.NewHTTPAdapter(adapter.HTTPAdapterConfig{
			Name:      name,
			SearchURL: fmt.Sprintf("https://%s.example.com/search", name),
		}, httpClient))

		resolver, err := queryplan.LoadCategoryResolver(cfg.CatalogDir, name)
		if err != nil {
			slog.Warn("load category resolver", "marketplace", name, "error", err)
			resolver = nil
		}
		resolvers[name] = resolver
	}

	rules := filter.NewRules(cfg.AccessoryPatterns, cfg.BundlePatterns)

	var clusterer *cluster.Client
	if cfg.AINormalization && cfg.ClusterEndpoint != "" {
		clusterer = cluster.NewClient(cfg.ClusterEndpoint, cfg.ClusterAPIKey, cfg.ClusterModel, cfg.AdapterTimeout)
	}

	v4cfg := v4.Config{
		Enabled:           cfg.Enabled,
		FallbackToV3:      cfg.FallbackToV3,
		AINormalization:   cfg.AINormalization,
		NoiseRatioTrigger: cfg.NoiseRatioTrigger,
		AdapterTimeout:    cfg.AdapterTimeout,
		OverallTimeout:    cfg.OverallTimeout,
		TimeWindowDays:    cfg.TimeWindowDays,
	}

	v4svc := v4.NewService(v4cfg, adapters, resolvers, rules, clusterer, v3svc, pricingCache)
	return v3svc, v4svc
}
