package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ldinh/marketd/internal/adapter/auth"
	"github.com/ldinh/marketd/internal/adapter/entitlement"
	"github.com/ldinh/marketd/internal/adapter/handler"
	"github.com/ldinh/marketd/internal/adapter/storage"
	"github.com/ldinh/marketd/internal/config"
	"github.com/ldinh/marketd/internal/core/service"
	"github.com/ldinh/marketd/internal/port"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := newLogger()
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Storage: MySQL when a DSN is configured, in-memory otherwise.
	var (
		repo    port.MarketRepository
		wallets port.WalletRepository
	)
	var db *sql.DB
	if cfg.MySQL.DSN != "" {
		db, err = sql.Open("mysql", cfg.MySQL.DSN)
		if err != nil {
			logger.Fatal("mysql_open_failed", zap.Error(err))
		}
		db.SetMaxOpenConns(cfg.MySQL.MaxOpenConns)
		db.SetMaxIdleConns(cfg.MySQL.MaxIdleConns)
		db.SetConnMaxLifetime(cfg.MySQL.ConnMaxLifetime)
		if err := db.PingContext(ctx); err != nil {
			logger.Fatal("mysql_ping_failed", zap.Error(err))
		}
		adapter := storage.NewMySQLAdapter(db)
		repo, wallets = adapter, adapter
		logger.Info("storage_ready", zap.String("backend", "mysql"))
	} else {
		adapter := storage.NewMemoryAdapter()
		repo, wallets = adapter, adapter
		logger.Info("storage_ready", zap.String("backend", "memory"))
	}

	// Snapshot cache: optional.
	var cache port.SnapshotCache
	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			PoolSize: cfg.Redis.PoolSize,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Fatal("redis_ping_failed", zap.Error(err))
		}
		cache = storage.NewRedisAdapter(rdb)
		logger.Info("snapshot_cache_ready", zap.String("addr", cfg.Redis.Addr))
	} else {
		cache = storage.NewMemoryCache()
		logger.Info("snapshot_cache_ready", zap.String("backend", "memory"))
	}

	var granter port.EntitlementGranter = entitlement.NoopGranter{}
	if cfg.Entitlement.WebhookURL != "" {
		granter = entitlement.NewWebhookGranter(cfg.Entitlement.WebhookURL, cfg.Entitlement.Timeout)
	}

	metrics := service.NewMetrics(prometheus.DefaultRegisterer)
	locks := service.NewTenantLocks()
	generator := service.NewGenerator(time.Now().UnixNano())
	authorizer := auth.NewStaticAuthorizer(cfg.Auth.Admins)

	markets := service.NewMarketService(
		repo, cfg.DomainCatalog(), generator, locks, cache, authorizer,
		logger, metrics, cfg.Market.ListingTTL, cfg.Market.MaxOpenDuration,
	)
	purchases := service.NewPurchaseService(
		repo, wallets, markets, cache, granter,
		logger, metrics, cfg.Market.DefaultBalance,
	)

	scheduler := service.NewExpiryScheduler(cfg.Market.ExpiryInterval, repo, markets, logger, metrics)
	scheduler.Start(ctx)

	httpHandler := handler.NewHTTPHandler(markets, purchases)
	mux := http.NewServeMux()
	mux.HandleFunc("/health", httpHandler.HealthCheck)
	mux.HandleFunc("/api/market/open", httpHandler.OpenMarket)
	mux.HandleFunc("/api/market/close", httpHandler.CloseMarket)
	mux.HandleFunc("/api/market/state", httpHandler.MarketState)
	mux.HandleFunc("/api/market/items", httpHandler.ListItems)
	mux.HandleFunc("/api/purchase", httpHandler.Purchase)
	mux.Handle("/metrics", promhttp.Handler())

	httpServer := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: mux,
	}

	go func() {
		logger.Info("http_server_start", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http_server_error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting_down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("http_server_shutdown_error", zap.Error(err))
	}

	scheduler.Stop()

	if rdb != nil {
		_ = rdb.Close()
	}
	if db != nil {
		_ = db.Close()
	}
	logger.Info("stopped")
}

// newLogger builds a production JSON logger writing to stdout.
func newLogger() (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stdout"}
	cfg.ErrorOutputPaths = []string{"stdout"}
	cfg.InitialFields = map[string]any{"service": "marketd"}
	return cfg.Build()
}
