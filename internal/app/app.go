package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/roorq/storefront/internal/access"
	"github.com/roorq/storefront/internal/audit"
	"github.com/roorq/storefront/internal/config"
	"github.com/roorq/storefront/internal/csrf"
	"github.com/roorq/storefront/internal/event"
	handler "github.com/roorq/storefront/internal/handler/http"
	"github.com/roorq/storefront/internal/jobs"
	"github.com/roorq/storefront/internal/notify"
	"github.com/roorq/storefront/internal/repository"
	"github.com/roorq/storefront/internal/repository/postgres"
	rediscache "github.com/roorq/storefront/internal/repository/redis"
	"github.com/roorq/storefront/internal/service"
	"github.com/roorq/storefront/internal/session"
	"github.com/roorq/storefront/internal/storage"
	"github.com/roorq/storefront/internal/storage/memory"
	"github.com/roorq/storefront/internal/storage/minio"
	"github.com/roorq/storefront/migrations"
	"github.com/roorq/storefront/pkg/database"
	"github.com/roorq/storefront/pkg/health"
	"github.com/roorq/storefront/pkg/httpclient"
	pkgkafka "github.com/roorq/storefront/pkg/kafka"
	"github.com/roorq/storefront/pkg/middleware"
	"github.com/roorq/storefront/pkg/tracing"
)

// App wires together all dependencies and runs the storefront service.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	pool           *pgxpool.Pool
	redis          *redis.Client
	producer       *pkgkafka.Producer
	consumer       *pkgkafka.Consumer
	dlq            *pkgkafka.DLQProducer
	recorder       *audit.Recorder
	scheduler      *jobs.Scheduler
	rateLimiter    *middleware.RateLimiter
	httpServer     *http.Server
	tracerShutdown func(context.Context) error
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	a := &App{cfg: cfg, logger: logger}

	// Initialize OpenTelemetry tracing.
	tracerShutdown, err := tracing.InitTracer(ctx, cfg.Tracing())
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}
	a.tracerShutdown = tracerShutdown

	// Initialize PostgreSQL connection pool.
	pool, err := database.NewPostgresPool(ctx, cfg.Postgres(), logger)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	a.pool = pool
	logger.Info("connected to PostgreSQL",
		slog.String("host", cfg.PostgresHost),
		slog.Int("port", cfg.PostgresPort),
		slog.String("database", cfg.PostgresDB),
	)
	if err := database.RegisterPoolMetrics(prometheus.DefaultRegisterer, pool, cfg.ServiceName); err != nil {
		logger.Warn("pool metrics not registered", slog.String("error", err.Error()))
	}

	// Run database migrations.
	if err := database.RunMigrations(ctx, pool, migrations.FS, logger); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	logger.Info("database migrations completed")

	// Configure slow query logging.
	if cfg.SlowQueryThresholdMs > 0 {
		database.SetSlowQueryLogging(time.Duration(cfg.SlowQueryThresholdMs)*time.Millisecond, logger)
	}

	// Redis is optional: without it roles are read from Postgres on every
	// request and the payout job runs without a cross-replica lock.
	rdb, err := database.NewRedisClient(ctx, cfg.Redis())
	if err != nil {
		logger.Warn("redis unavailable, continuing without role cache",
			slog.String("error", err.Error()),
		)
	} else {
		a.redis = rdb
		logger.Info("connected to Redis")
	}

	// Repositories.
	users := postgres.NewUserRepository(pool)
	vendors := postgres.NewVendorRepository(pool)
	documents := postgres.NewDocumentRepository(pool)
	products := postgres.NewProductRepository(pool)
	orders := postgres.NewOrderRepository(pool)
	payouts := postgres.NewPayoutRepository(pool)
	audits := postgres.NewAuditRepository(pool)

	var (
		roles       repository.RoleRepository = users
		invalidator service.RoleInvalidator
		lock        redis.Cmdable
	)
	if a.redis != nil {
		cache := rediscache.NewRoleCache(a.redis, users, cfg.RoleCacheTTL, logger)
		roles, invalidator, lock = cache, cache, a.redis
	}

	// Event publishing.
	var publisher event.Publisher = event.Discard{}
	if cfg.KafkaEnabled {
		a.producer = pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
		if err := pingKafkaWithRetry(ctx, a.producer, logger); err != nil {
			logger.Warn("kafka producer ping failed after retries, continuing in degraded mode",
				slog.String("error", err.Error()),
			)
		} else {
			logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
		}
		publisher = a.producer

		if cfg.NotificationsEnabled {
			var store pkgkafka.IdempotencyStore = pkgkafka.NewMemoryIdempotencyStore(24 * time.Hour)
			if a.redis != nil {
				store = pkgkafka.NewRedisIdempotencyStore(a.redis, "roorq:events:", 24*time.Hour)
			}
			a.dlq = pkgkafka.NewDLQProducer(cfg.KafkaBrokers, logger)
			consumerHandler := event.NewConsumerHandler(notify.NewLogSender(logger), vendors, logger)
			a.consumer = event.NewConsumer(cfg.KafkaBrokers, cfg.NotificationGroupID, consumerHandler, store, a.dlq, logger)
		}
	}
	producer := event.NewProducer(publisher, logger)

	// Object storage for KYC documents.
	var (
		objects     storage.Store
		objectFiles http.Handler
	)
	switch cfg.StorageBackend {
	case config.StorageMinio:
		store, err := minio.New(minio.Config{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Region:    cfg.MinioRegion,
			UseSSL:    cfg.MinioUseSSL,
			Bucket:    cfg.DocumentBucket,
		})
		if err != nil {
			a.closeStores()
			return nil, fmt.Errorf("init object storage: %w", err)
		}
		if err := store.EnsureBucket(ctx); err != nil {
			a.closeStores()
			return nil, fmt.Errorf("ensure document bucket: %w", err)
		}
		objects = store
	default:
		store := memory.New(strings.TrimRight(cfg.PublicBaseURL, "/") + handler.ObjectsPath)
		objects, objectFiles = store, store
		logger.Warn("using in-memory document storage, uploads are lost on restart")
	}

	// Session resolution.
	var resolver session.Resolver
	switch cfg.AuthMode {
	case config.AuthModeRemote:
		client := httpclient.NewCircuitBreakerClient(
			httpclient.New(httpclient.DefaultConfig()),
			httpclient.DefaultCircuitBreakerConfig("auth-provider"),
			logger,
		)
		resolver = session.NewRemoteResolver(client, cfg.AuthURL, cfg.AuthAPIKey)
	default:
		resolver = session.NewJWTResolver(cfg.AuthJWTSecret, cfg.AuthJWTIssuer, cfg.AuthJWTAudience)
	}

	// Access control.
	a.recorder = audit.NewRecorder(audits, cfg.AuditTimeout, logger)
	guard := access.NewGuard(resolver, roles, a.recorder, logger)
	gate := csrf.NewGate(cfg.CookieSecure)

	// Services.
	orderService := service.NewOrderService(orders, products, producer, cfg.DeliveryFee, logger)
	vendorService := service.NewVendorService(vendors, documents, objects, invalidator, producer, service.DocumentPolicy{
		MaxBytes:   cfg.MaxDocumentBytes,
		PresignTTL: cfg.PresignTTL,
	}, logger)
	productService := service.NewProductService(products, logger)
	payoutService := service.NewPayoutService(payouts, producer, service.PayoutPolicy{
		CommissionPercent: cfg.CommissionPercent,
		MinAmount:         cfg.PayoutMinAmount,
	}, logger)
	referralService := service.NewReferralService(users, cfg.ReferralRewardAmount)

	if cfg.PayoutJobEnabled {
		a.scheduler = jobs.NewScheduler(payoutService, lock, logger)
	}

	// Health checks.
	healthHandler := health.NewHandler()
	healthHandler.RegisterCritical("postgres", func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	if a.redis != nil {
		healthHandler.RegisterNonCritical("redis", func(ctx context.Context) error {
			return a.redis.Ping(ctx).Err()
		})
	}
	if a.producer != nil {
		healthHandler.RegisterNonCritical("kafka", a.producer.Ping)
	}
	healthHandler.RegisterNonCritical("storage", objects.Ping)

	if cfg.RateLimitRPS > 0 {
		a.rateLimiter = middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, logger)
	}

	// HTTP router.
	router := handler.NewRouter(handler.RouterConfig{
		ServiceName:      cfg.ServiceName,
		Orders:           orderService,
		Vendors:          vendorService,
		Products:         productService,
		Payouts:          payoutService,
		Referrals:        referralService,
		Payments:         service.NewPaymentService(),
		Audit:            a.recorder,
		Guard:            guard,
		Gate:             gate,
		Health:           healthHandler,
		Objects:          objectFiles,
		RateLimiter:      a.rateLimiter,
		CORSOrigins:      cfg.CORSAllowedOrigins,
		PprofCIDRs:       cfg.PprofAllowedCIDRs,
		MaxDocumentBytes: cfg.MaxDocumentBytes,
	}, logger)

	a.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      35 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return a, nil
}

// Run starts the HTTP server, the notification consumer and the payout
// scheduler, then blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 2)

	// Start HTTP server.
	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	// Start the notification consumer.
	if a.consumer != nil {
		go func() {
			if err := a.consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				errCh <- fmt.Errorf("notification consumer: %w", err)
			}
		}()
	}

	// Start the payout scheduler.
	if a.scheduler != nil {
		if err := a.scheduler.Start(a.cfg.PayoutSchedule); err != nil {
			return fmt.Errorf("start scheduler: %w", err)
		}
	}

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		_ = a.Shutdown()
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components in the correct order:
// 1. HTTP server (drain in-flight requests)
// 2. Scheduler (wait for a running payout job)
// 3. Audit recorder (flush pending writes)
// 4. Tracer (flush pending spans)
// 5. Kafka consumer and producers
// 6. Redis and PostgreSQL
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	// 1. Drain in-flight HTTP requests.
	httpCtx, httpCancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer httpCancel()
	if err := a.httpServer.Shutdown(httpCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}
	if a.rateLimiter != nil {
		a.rateLimiter.Close()
	}

	// 2. Stop scheduling payouts.
	if a.scheduler != nil {
		jobCtx, jobCancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
		defer jobCancel()
		if err := a.scheduler.Stop(jobCtx); err != nil {
			a.logger.Error("scheduler stop error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	// 3. Audit writes are bounded by their own timeout.
	a.recorder.Wait()

	// 4. Flush pending spans after HTTP drain so in-flight request spans are captured.
	if a.tracerShutdown != nil {
		tracerCtx, tracerCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer tracerCancel()
		if err := a.tracerShutdown(tracerCtx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	// 5. Close Kafka.
	if a.consumer != nil {
		if err := a.consumer.Close(); err != nil {
			a.logger.Error("notification consumer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}
	if a.dlq != nil {
		if err := a.dlq.Close(); err != nil {
			a.logger.Error("dlq producer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	// 6. Close stores.
	a.closeStores()

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}

func (a *App) closeStores() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Error("redis close error", slog.String("error", err.Error()))
		}
	}
	a.pool.Close()
}

// pingKafkaWithRetry attempts to ping the Kafka producer with exponential
// backoff (3 attempts, 1s/2s/4s with ±25% jitter).
func pingKafkaWithRetry(ctx context.Context, producer *pkgkafka.Producer, logger *slog.Logger) error {
	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		if err := producer.Ping(ctx); err == nil {
			return nil
		} else {
			lastErr = err
		}
		if attempt < 2 {
			base := time.Duration(1<<uint(attempt)) * time.Second
			jitter := time.Duration(float64(base) * 0.25 * (2*rand.Float64() - 1)) // #nosec G404 -- non-cryptographic jitter for retry backoff
			wait := base + jitter
			logger.Warn("kafka producer ping failed, retrying",
				slog.Int("attempt", attempt+1),
				slog.Int("max_attempts", 3),
				slog.Duration("backoff", wait),
				slog.String("error", lastErr.Error()),
			)
			select {
			case <-ctx.Done():
				return fmt.Errorf("kafka ping: context canceled during retry: %w", ctx.Err())
			case <-time.After(wait):
			}
		}
	}
	return fmt.Errorf("kafka producer ping failed after 3 attempts: %w", lastErr)
}
