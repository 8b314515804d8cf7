package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/veloshop/orderdesk/internal/domain/auth"
	"github.com/veloshop/orderdesk/internal/domain/order"
	"github.com/veloshop/orderdesk/internal/domain/receipt"
	"github.com/veloshop/orderdesk/internal/domain/review"
	"github.com/veloshop/orderdesk/internal/handler"
	"github.com/veloshop/orderdesk/internal/notify"
	"github.com/veloshop/orderdesk/internal/storage/postgres"
	"github.com/veloshop/orderdesk/pkg/health"
	"github.com/veloshop/orderdesk/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	// PostgreSQL pool + migrations.
	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	// Health check service.
	healthSvc := health.New()
	healthSvc.AddReadinessCheck("postgres", 5*time.Second, func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))
	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	// Notification transport: AMQP when configured, log-only otherwise.
	var notifier notify.Notifier = notify.LogNotifier{}
	if cfg.Notify.AMQPURL != "" {
		amqpNotifier, err := notify.NewAMQPNotifier(cfg.Notify.AMQPURL, cfg.Notify.Exchange)
		if err != nil {
			return errors.Wrap(err, "create amqp notifier")
		}
		defer amqpNotifier.Close()
		notifier = amqpNotifier
	}

	// Notification dedupe: Redis when configured, in-memory otherwise.
	var dedupe notify.DedupeStore = notify.NewMemoryDedupe()
	if cfg.Notify.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Notify.RedisAddr})
		defer rdb.Close()
		healthSvc.AddReadinessCheck("redis", 5*time.Second, func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		})
		dedupe = notify.NewRedisDedupe(rdb, cfg.Notify.DedupeTTL)
	}
	dispatcher := notify.NewDispatcher(notifier, dedupe, cfg.Notify.Timeout)

	// Repositories.
	orderRepo := postgres.NewOrderRepository(pool)
	apikeyRepo := postgres.NewAPIKeyRepository(pool)

	// Domain services.
	engine := order.NewService(orderRepo)
	guard := auth.NewGuard(cfg.Admin.Emails)
	store, err := receipt.NewFSStore(cfg.Receipts.Dir, cfg.Receipts.BaseURL)
	if err != nil {
		return errors.Wrap(err, "create receipt store")
	}
	intake := receipt.NewIntake(engine, store, dispatcher, cfg.Admin.Inbox, cfg.Receipts.MaxSize)
	reviewSvc := review.NewService(engine, guard, dispatcher, cfg.Admin.HistoryURL)

	// HTTP handlers.
	h := handler.NewHandler(engine, intake, reviewSvc, guard)
	securityHandler := handler.NewSecurityHandler(apikeyRepo, []byte(cfg.APIKeyPepper))

	// Mux: health endpoints + authenticated API routes on one server.
	api := http.NewServeMux()
	h.Register(api)

	mux := http.NewServeMux()
	mux.HandleFunc("/livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("/readyz", healthSvc.ReadyEndpoint)
	mux.Handle("/api/", securityHandler.Middleware()(api))

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: httpmiddleware.Wrap(mux,
			httpmiddleware.Recovery(),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				AllowOrigins:     cfg.CORS.Origins,
				AllowHeaders:     []string{"Content-Type", "Authorization", "api_key"},
				AllowCredentials: cfg.CORS.AllowCredentials,
				MaxAge:           86400,
			}),
			httpmiddleware.RateLimitWithCleanup(ctx, httpmiddleware.RateLimitConfig{
				Max:    cfg.RateLimit.Max,
				Window: cfg.RateLimit.Window,
			}),
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.Instrument("orderdesk-api", m),
			httpmiddleware.LogRequests(),
		),
	}

	// Graceful shutdown: wait for context cancellation, drain, then stop.
	shutdownDone := make(chan struct{})
	go func() {
		<-ctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		// Let in-flight notifications finish before the transports close.
		dispatcher.Wait()
		healthSvc.Stop()
		close(shutdownDone)
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}
