package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/utafrali/storefront/internal/catalog"
	"github.com/utafrali/storefront/internal/config"
	"github.com/utafrali/storefront/internal/event"
	handler "github.com/utafrali/storefront/internal/handler/http"
	"github.com/utafrali/storefront/internal/repository"
	esrepo "github.com/utafrali/storefront/internal/repository/elasticsearch"
	"github.com/utafrali/storefront/internal/repository/memory"
	redisrepo "github.com/utafrali/storefront/internal/repository/redis"
	"github.com/utafrali/storefront/internal/service"
	"github.com/utafrali/storefront/pkg/database"
	"github.com/utafrali/storefront/pkg/health"
	pkgkafka "github.com/utafrali/storefront/pkg/kafka"
	"github.com/utafrali/storefront/pkg/middleware"
	"github.com/utafrali/storefront/pkg/tracing"
)

const serviceName = "storefront"

// App wires together all dependencies and runs the storefront service.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	repo           repository.WishlistRepository
	closeStore     func() error
	producer       *pkgkafka.Producer
	rateLimiter    *middleware.RateLimiter
	httpServer     *http.Server
	tracerShutdown tracing.ShutdownFunc
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	// Initialize OpenTelemetry tracing.
	tracerShutdown, err := tracing.InitTracer(ctx, tracing.Config{
		ServiceName:    serviceName,
		ServiceVersion: "0.1.0",
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTelEndpoint,
		SampleRate:     cfg.OTelSampleRate,
		Enabled:        cfg.OTelEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	if cfg.SlowOperationThreshold > 0 {
		database.SetSlowOperationLogging(cfg.SlowOperationThreshold, logger)
	}

	repo, closeStore, err := newRepository(ctx, cfg, logger)
	if err != nil {
		_ = tracerShutdown(context.Background())
		return nil, err
	}

	a := &App{
		cfg:            cfg,
		logger:         logger,
		repo:           repo,
		closeStore:     closeStore,
		tracerShutdown: tracerShutdown,
	}

	healthHandler := health.NewHandler()
	healthHandler.Register("store", repo.Ping)

	// Wishlist events are opt-in.
	var publisher event.Publisher = event.Noop{}
	if cfg.KafkaEnabled {
		a.producer = pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
		publisher = event.NewProducer(a.producer, cfg.WishlistStore, logger)
		healthHandler.Register("kafka", a.producer.Ping)
		logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
	}

	feed := catalog.NewClient(
		catalog.NewFeedDoer(cfg.FeedTimeout, cfg.FeedMaxRetries, logger),
		cfg.ProductFeedURL,
		cfg.FeedTimeout,
		logger,
	)

	wishlistService := service.NewWishlistService(repo, feed, publisher, logger, cfg.WishlistListLimit)

	routerCfg := handler.RouterConfig{RequestTimeout: cfg.RequestTimeout}
	if cfg.RateLimitRPS > 0 {
		a.rateLimiter = middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, logger)
		if cfg.RateLimitTrustProxy {
			a.rateLimiter.TrustProxyHeaders()
		}
		routerCfg.RateLimiter = a.rateLimiter
	}

	routerCfg.CORS = middleware.DefaultCORSConfig()
	routerCfg.CORS.AllowedOrigins = cfg.CORSAllowedOrigins

	router := handler.NewRouter(wishlistService, healthHandler, logger, routerCfg)

	logger.Info("health checks registered", slog.Any("checks", healthHandler.Names()))

	a.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return a, nil
}

// newRepository connects the configured wishlist store and returns a
// function releasing it.
func newRepository(ctx context.Context, cfg *config.Config, logger *slog.Logger) (repository.WishlistRepository, func() error, error) {
	noop := func() error { return nil }

	switch cfg.WishlistStore {
	case config.StoreRedis:
		redisCfg := database.DefaultRedisConfig()
		redisCfg.Addr = cfg.RedisAddr
		redisCfg.Password = cfg.RedisPassword
		redisCfg.DB = cfg.RedisDB

		client, err := database.NewRedisClient(ctx, redisCfg)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to redis: %w", err)
		}
		if err := database.RegisterRedisPoolMetrics(prometheus.DefaultRegisterer, client, serviceName); err != nil {
			logger.Warn("redis pool metrics not registered", slog.String("error", err.Error()))
		}
		logger.Info("connected to Redis", slog.String("addr", cfg.RedisAddr), slog.Int("db", cfg.RedisDB))
		return redisrepo.NewWishlistRepository(client, ""), client.Close, nil

	case config.StoreMemory:
		logger.Warn("using in-memory wishlist store; entries are lost on restart")
		return memory.New(), noop, nil

	default:
		repo, err := esrepo.New(ctx, esrepo.Config{
			URL:   cfg.ElasticsearchURL,
			Index: cfg.ElasticsearchIndex,
		}, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to elasticsearch: %w", err)
		}
		logger.Info("connected to Elasticsearch",
			slog.String("url", cfg.ElasticsearchURL),
			slog.String("index", repo.Index()),
		)
		return repo, noop, nil
	}
}

// Handler returns the HTTP handler serving the storefront API.
func (a *App) Handler() http.Handler {
	return a.httpServer.Handler
}

// Run starts the HTTP server and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
			slog.String("store", a.cfg.WishlistStore),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		_ = a.Shutdown()
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components in order: HTTP server, tracer,
// Kafka producer, rate limiter, store.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	timeout := a.cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	httpCtx, httpCancel := context.WithTimeout(context.Background(), timeout)
	defer httpCancel()
	if err := a.httpServer.Shutdown(httpCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	if a.tracerShutdown != nil {
		tracerCtx, tracerCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer tracerCancel()
		if err := a.tracerShutdown(tracerCtx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if a.rateLimiter != nil {
		a.rateLimiter.Stop()
	}

	if a.closeStore != nil {
		if err := a.closeStore(); err != nil {
			a.logger.Error("store close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}
