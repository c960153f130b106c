package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/storefront-relay/internal/domain/order"
	"github.com/xenking/storefront-relay/internal/handler"
	"github.com/xenking/storefront-relay/internal/paystack"
	"github.com/xenking/storefront-relay/internal/reservation"
	"github.com/xenking/storefront-relay/internal/sms"
	"github.com/xenking/storefront-relay/internal/storage/postgres"
	"github.com/xenking/storefront-relay/pkg/health"
	"github.com/xenking/storefront-relay/pkg/httpmiddleware"
)

// vendorHTTPTimeout bounds outbound Paystack and SMS gateway calls so a
// stalled vendor cannot pin callback requests forever.
const vendorHTTPTimeout = 30 * time.Second

// Run creates all dependencies, starts the HTTP server and the reservation
// change-feed reactor, and handles graceful shutdown. It is the single wiring
// point for the application.
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
	defer healthSvc.Stop()

	// Outbound vendor clients share one instrumented HTTP client.
	vendorClient := &http.Client{
		Timeout:   vendorHTTPTimeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport,
			otelhttp.WithTracerProvider(m.TracerProvider()),
			otelhttp.WithMeterProvider(m.MeterProvider()),
		),
	}

	verifier := paystack.NewClient(vendorClient, cfg.Paystack.BaseURL, cfg.Paystack.SecretKey)
	dispatcher := sms.NewClient(vendorClient,
		cfg.SMS.BaseURL, cfg.SMS.ClientID, cfg.SMS.ClientSecret, cfg.SMS.SenderID)

	if cfg.SMS.ClientID == "" || cfg.SMS.ClientSecret == "" {
		lg.Warn("SMS credentials not configured, notifications will be logged as failures")
	}

	// Settlement workflow.
	orderRepo := postgres.NewOrderRepository(pool)
	settlement := order.NewService(verifier, orderRepo, lg.Named("settlement"))

	// HTTP handlers.
	h := handler.NewHandler(settlement)
	mux := http.NewServeMux()
	mux.HandleFunc("/livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("/readyz", healthSvc.ReadyEndpoint)
	h.RegisterRoutes(mux)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: otelhttp.NewHandler(
			httpmiddleware.Wrap(mux,
				httpmiddleware.Recovery(),
				httpmiddleware.CORS(httpmiddleware.CORSConfig{
					AllowOrigins:     cfg.CORS.Origins,
					AllowHeaders:     []string{"Content-Type"},
					AllowCredentials: cfg.CORS.AllowCredentials,
					MaxAge:           86400,
				}),
				httpmiddleware.RateLimit(ctx, httpmiddleware.RateLimitConfig{
					Max:    cfg.RateLimit.Max,
					Window: cfg.RateLimit.Window,
				}),
				httpmiddleware.RequestID(),
				httpmiddleware.InjectLogger(zctx.From(ctx)),
				httpmiddleware.LogRequests(),
			),
			"relay-api",
			otelhttp.WithTracerProvider(m.TracerProvider()),
			otelhttp.WithMeterProvider(m.MeterProvider()),
		),
	}

	g, ctx := errgroup.WithContext(ctx)

	// Reservation change feed: LISTEN/NOTIFY → channel → reactor.
	if cfg.Notifications.Enabled {
		events := make(chan reservation.ChangeEvent, 16)
		listener := reservation.NewListener(pool, lg.Named("changefeed"))
		reactor := reservation.NewReactor(dispatcher,
			cfg.ReservationMessages(reservation.DefaultMessages()),
			lg.Named("reactor"),
		)

		g.Go(func() error {
			return listener.Listen(ctx, events)
		})
		g.Go(func() error {
			reactor.Run(ctx, events)
			return nil
		})
	} else {
		lg.Info("reservation notifications disabled by configuration")
	}

	// Graceful shutdown: wait for context cancellation, drain, then stop.
	g.Go(func() error {
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
		return nil
	})

	g.Go(func() error {
		lg.Info("Server listening", zap.String("addr", cfg.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "server")
		}
		return nil
	})

	return g.Wait()
}
