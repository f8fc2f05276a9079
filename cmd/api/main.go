package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/noah-isme/toko-pricing/internal/checkout"
	"github.com/noah-isme/toko-pricing/internal/config"
	"github.com/noah-isme/toko-pricing/internal/health"
	"github.com/noah-isme/toko-pricing/internal/lock"
	"github.com/noah-isme/toko-pricing/internal/obs"
	"github.com/noah-isme/toko-pricing/internal/pricing"
	"github.com/noah-isme/toko-pricing/internal/security"
	"github.com/noah-isme/toko-pricing/internal/session"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLogger := obs.NewLogger("json", "error")
		bootLogger.Fatal().Err(err).Msg("load config")
	}

	logger := obs.NewLogger(cfg.Log.Format, cfg.Log.Level).With().Str("env", cfg.AppEnv).Logger()
	logPricing(logger, cfg.Pricing)

	if cfg.Metrics.Enabled {
		obs.MustRegisterDomainMetrics(cfg.Metrics.Namespace, nil)
	}
	if cfg.Tracing.Enabled {
		shutdown, err := obs.InitTracer(context.Background(), obs.TracingConfig{
			ServiceName:   "toko-pricing",
			Endpoint:      cfg.Tracing.Endpoint,
			Exporter:      cfg.Tracing.Exporter,
			SamplingRatio: cfg.Tracing.SamplingRatio,
			Environment:   cfg.AppEnv,
		})
		if err != nil {
			logger.Error().Err(err).Msg("initialise tracing")
			cfg.Tracing.Enabled = false
		} else {
			defer func() {
				if err := shutdown(context.Background()); err != nil {
					logger.Error().Err(err).Msg("shutdown tracer")
				}
			}()
		}
	}

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}
	redisClient := redis.NewClient(redisOpts)
	if cfg.Tracing.Enabled {
		if err := redisotel.InstrumentTracing(redisClient); err != nil {
			logger.Error().Err(err).Msg("instrument redis tracing")
		}
	}
	if cfg.Metrics.Enabled {
		if err := redisotel.InstrumentMetrics(redisClient); err != nil {
			logger.Error().Err(err).Msg("instrument redis metrics")
		}
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close redis")
		}
	}()

	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := redisClient.Ping(pingCtx).Err(); err != nil {
		logger.Fatal().Err(err).Msg("ping redis")
	}

	checkoutSvc := &checkout.Service{
		Sessions: session.NewStore(redisClient, cfg.SessionTTL),
		Locker:   lock.Locker{R: redisClient, TTL: cfg.LockTTL, MaxWait: cfg.LockWait},
		Pricing:  pricing.NewCalculator(cfg.Pricing),
		Currency: cfg.CurrencyCode,
		Logger:   logger.With().Str("component", "checkout").Logger(),
	}
	checkoutHandler := &checkout.Handler{Svc: checkoutSvc}
	healthHandler := health.Handler{
		SessionStore: health.PingFunc(func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }),
	}

	var httpMetrics *obs.HTTPMetrics
	if cfg.Metrics.Enabled {
		httpMetrics = obs.NewHTTPMetrics(cfg.Metrics.Namespace, obs.ParseBucketsCSV(cfg.Metrics.BucketsMS), nil)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(obs.RoutePatternMiddleware)
	if httpMetrics != nil {
		r.Use(obs.HTTPObs{Metrics: httpMetrics}.Middleware)
	}
	r.Use(obs.RequestLogger{Logger: logger}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins(cfg),
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	if cfg.Metrics.Enabled {
		r.Handle("/metrics", promhttp.Handler())
	}
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)
	r.Route("/api/v1/checkout/sessions", func(c chi.Router) {
		c.Use(security.NoStore)
		c.Use(security.BodyLimit{Max: cfg.MaxBodyBytes}.Middleware)
		checkoutHandler.Routes(c)
	})

	var handler http.Handler = r
	if cfg.Tracing.Enabled {
		handler = otelhttp.NewHandler(r, "toko-pricing")
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server exited unexpectedly")
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("shutdown server")
	}
	logger.Info().Msg("server stopped")
}

func allowedOrigins(cfg *config.Config) []string {
	if len(cfg.CORSAllowedOrigins) == 0 {
		return []string{"*"}
	}
	return cfg.CORSAllowedOrigins
}

func logPricing(logger zerolog.Logger, cfg pricing.Config) {
	logger.Info().
		Str("discount_type", string(cfg.Discount.Type)).
		Int64("discount_value", cfg.Discount.Value).
		Int64("discount_percent_bps", cfg.Discount.PercentBps).
		Bool("discount_clamp", cfg.ClampDiscount).
		Int64("shipping_flat", cfg.Shipping.FlatAmount).
		Int64("shipping_free_threshold", cfg.Shipping.FreeThreshold).
		Str("payment_gateway", cfg.Store.PaymentGateway).
		Msg("pricing configured")
}
