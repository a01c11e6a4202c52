package main

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	migrate "github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	limiter "github.com/ulule/limiter/v3"
	limiterstdlib "github.com/ulule/limiter/v3/drivers/middleware/stdlib"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/khanhERP/laundry-pos/internal/app"
	"github.com/khanhERP/laundry-pos/internal/auth"
	"github.com/khanhERP/laundry-pos/internal/cart"
	"github.com/khanhERP/laundry-pos/internal/catalog"
	"github.com/khanhERP/laundry-pos/internal/checkout"
	"github.com/khanhERP/laundry-pos/internal/common"
	"github.com/khanhERP/laundry-pos/internal/config"
	"github.com/khanhERP/laundry-pos/internal/events"
	"github.com/khanhERP/laundry-pos/internal/health"
	"github.com/khanhERP/laundry-pos/internal/invoice"
	"github.com/khanhERP/laundry-pos/internal/lock"
	"github.com/khanhERP/laundry-pos/internal/obs"
	"github.com/khanhERP/laundry-pos/internal/order"
	"github.com/khanhERP/laundry-pos/internal/payment"
	"github.com/khanhERP/laundry-pos/internal/pricing"
	"github.com/khanhERP/laundry-pos/internal/ratelimit"
	"github.com/khanhERP/laundry-pos/internal/resilience"
	"github.com/khanhERP/laundry-pos/internal/security"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := obs.NewLogger(envStr("OBS_LOG_FORMAT", "json"), envStr("OBS_LOG_LEVEL", "info")).
		With().Str("env", cfg.AppEnv).Logger()

	metricsNamespace := envStr("OBS_METRICS_NAMESPACE", "laundrypos")
	metricsEnabled := envBool("OBS_ENABLE_PROMETHEUS", true)
	obs.MustRegisterDomainMetrics(metricsNamespace, nil)

	tracingEnabled := setupTracing(cfg, logger)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pool := mustOpenPostgres(ctx, cfg, logger)
	defer pool.Close()

	if envBool("DB_AUTO_MIGRATE", false) {
		if err := runMigrations(cfg.DatabaseURL); err != nil {
			logger.Fatal().Err(err).Msg("run migrations")
		}
		logger.Info().Msg("migrations applied")
	}

	redisClient, redisOpts := mustOpenRedis(ctx, cfg, logger, metricsEnabled)
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close redis")
		}
	}()

	taskClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     redisOpts.Addr,
		Password: redisOpts.Password,
		DB:       redisOpts.DB,
	})
	defer func() {
		if err := taskClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close task client")
		}
	}()

	catalogSvc := &catalog.Service{
		Store: &catalog.PgStore{Pool: pool},
		Cache: catalog.NewCache(redisClient, envMillis("CATALOG_CACHE_TTL_MS", 300000)),
	}
	catalogHandler := &catalog.Handler{Svc: catalogSvc}

	authSvc, err := auth.NewService(auth.Config{
		Store:          &auth.PgStore{Pool: pool},
		Secret:         cfg.JWTSecret,
		AccessTokenTTL: cfg.AccessTokenTTL,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise auth service")
	}
	authHandler := &auth.Handler{Svc: authSvc}
	authMiddleware := auth.Middleware{Service: authSvc}

	idem := common.Idem{R: redisClient, TTL: cfg.IdempotencyTTL}

	cartSvc := &cart.Service{
		R:       redisClient,
		Catalog: catalogSvc,
		Opts: pricing.Options{
			PriceIncludesTax: cfg.PriceIncludesTax,
			Strategy:         pricing.Strategy(cfg.DiscountStrategy),
		},
		TTL: cfg.CartTTL,
	}
	cartHandler := &cart.Handler{Svc: cartSvc, Currency: cfg.CurrencyCode}

	bus := &events.Bus{
		Store:     &events.PgStore{Pool: pool},
		Scheduler: invoice.Scheduler{Client: taskClient},
		Notifiers: []events.Notifier{logNotifier{logger: logger}},
	}

	orderStore := &order.PgStore{Pool: pool}
	orderHandler := &order.Handler{Store: orderStore, Events: bus}

	checkoutSvc := &checkout.Service{
		Carts:    cartSvc,
		Orders:   orderStore,
		Events:   bus,
		Locks:    lock.Locker{R: redisClient},
		Currency: cfg.CurrencyCode,
	}
	checkoutHandler := &checkout.Handler{Svc: checkoutSvc}

	var tenderProvider payment.Provider
	if base := envStr("PAYMENT_PROVIDER_URL", ""); base != "" {
		tenderProvider = &payment.HTTPProvider{
			BaseURL: base,
			APIKey:  envStr("PAYMENT_PROVIDER_API_KEY", ""),
			Client: resilience.HTTPClient{
				Client:      &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
				Breaker:     resilience.NewBreaker(10, 0.5, 30*time.Second).WithTarget("payment-provider").WithLogger(logger),
				BaseBackoff: 200 * time.Millisecond,
				MaxAttempts: 3,
				Timeout:     envMillis("PAYMENT_PROVIDER_TIMEOUT_MS", 5000),
			},
		}
	}
	paymentSvc := &payment.Service{
		Orders:   orderStore,
		Store:    &payment.PgStore{Pool: pool},
		Provider: tenderProvider,
		Events:   bus,
		Currency: cfg.CurrencyCode,
	}
	paymentHandler := &payment.Handler{Svc: paymentSvc}

	var httpMetrics *obs.HTTPMetrics
	if metricsEnabled {
		buckets := obs.ParseBucketsCSV(envStr("OBS_METRICS_BUCKETS_MS", ""))
		httpMetrics = obs.NewHTTPMetrics(metricsNamespace, buckets, nil)
	}

	rateLimit := ratelimit.Handler{
		Limiter: ratelimit.Limiter{Client: redisClient, Prefix: "rl:"},
		Config: ratelimit.Config{
			Key:    common.ClientIP,
			Window: time.Minute,
			Max:    cfg.RateLimitPerMinute,
		},
		OnError: func(err error) {
			logger.Error().Err(err).Msg("rate limiter")
		},
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(obs.RoutePatternMiddleware)
	if tracingEnabled {
		r.Use(obs.TracingMiddleware)
	}
	if httpMetrics != nil {
		r.Use(obs.HTTPObs{Metrics: httpMetrics}.Middleware)
	}
	r.Use(obs.RequestLogger{Logger: logger}.Middleware)
	r.Use(security.Headers{Enable: envBool("SECURE_HEADERS", true)}.Middleware)
	r.Use(security.BodyLimit{Max: int64(envInt("SECURE_MAX_BODY_BYTES", 1<<20))}.Middleware)
	if envBool("SECURE_CSRF", true) {
		r.Use(security.CSRF{}.Middleware)
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins(cfg),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}
	if envBool("OBS_ENABLE_PPROF", true) {
		r.Mount("/debug/pprof", basicAuthOr(profilerMux(),
			envStr("SECURE_PPROF_BASIC_AUTH_USER", ""),
			envStr("SECURE_PPROF_BASIC_AUTH_PASS", "")))
	}

	healthHandler := health.Handler{
		Checker:      storeProbes{db: pool, redis: redisClient},
		DBTimeout:    envMillis("HEALTH_READY_DB_TIMEOUT_MS", 500),
		RedisTimeout: envMillis("HEALTH_READY_REDIS_TIMEOUT_MS", 300),
	}
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	loginLimit := loginLimiter(redisClient, logger)

	r.Route("/api/v1", func(v chi.Router) {
		v.Use(rateLimit.Middleware)

		v.Route("/auth", func(a chi.Router) {
			a.With(loginLimit).Post("/login", authHandler.Login)
			a.Group(func(protected chi.Router) {
				protected.Use(authMiddleware.RequireAuth)
				protected.Get("/me", authHandler.Me)
			})
		})

		v.Get("/items", catalogHandler.List)
		v.Get("/items/{id}", catalogHandler.Get)

		v.Route("/carts", func(c chi.Router) {
			c.Use(authMiddleware.RequireAuth)
			c.Get("/{id}", cartHandler.Get)
			c.Group(func(g chi.Router) {
				g.Use(idem.Middleware)
				g.Post("/", cartHandler.Create)
				g.Put("/{id}/lines", cartHandler.UpsertLine)
				g.Delete("/{id}/lines/{lineId}", cartHandler.RemoveLine)
				g.Post("/{id}/discount", cartHandler.ApplyDiscount)
				g.Delete("/{id}/discount", cartHandler.RemoveDiscount)
			})
		})

		v.With(authMiddleware.RequireAuth, idem.Middleware).Post("/checkout", checkoutHandler.Create)

		v.Group(func(authR chi.Router) {
			authR.Use(authMiddleware.RequireAuth)
			authR.Get("/orders", orderHandler.List)
			authR.Get("/orders/{id}", orderHandler.Get)
			authR.Post("/orders/{id}/void", orderHandler.Void)
			authR.Get("/orders/{id}/receipt", paymentHandler.Receipt)
			authR.With(idem.Middleware).Post("/orders/{id}/payments", paymentHandler.Settle)
		})
	})

	serve(r, cfg, logger)
}

func serve(handler http.Handler, cfg *config.Config, logger zerolog.Logger) {
	srv := &http.Server{Addr: cfg.HTTPAddr(), Handler: handler}

	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		<-shutdownCtx.Done()
		health.SetReady(false)
		drainCtx, drainCancel := context.WithTimeout(context.Background(), envMillis("SHUTDOWN_TIMEOUT_MS", 10000))
		defer drainCancel()
		if err := srv.Shutdown(drainCtx); err != nil {
			logger.Error().Err(err).Msg("shutdown server")
		}
	}()

	logger.Info().Str("addr", srv.Addr).Msg("server starting")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal().Err(err).Msg("server exited unexpectedly")
	}
	if tracerShutdown != nil {
		if err := tracerShutdown(context.Background()); err != nil {
			logger.Error().Err(err).Msg("shutdown tracer")
		}
	}
	logger.Info().Msg("server shutdown complete")
}

// setupTracing installs the tracer provider and registers its shutdown with
// the process exit path. Returns false when tracing is disabled or failed to
// come up.
func setupTracing(cfg *config.Config, logger zerolog.Logger) bool {
	if !envBool("OBS_ENABLE_TRACING", true) {
		return false
	}
	shutdown, err := obs.InitTracer(context.Background(), obs.TracingConfig{
		ServiceName:   "laundry-pos-api",
		Endpoint:      envStr("OBS_OTLP_ENDPOINT", ""),
		Exporter:      envStr("OBS_TRACING_EXPORTER", "otlp"),
		SamplingRatio: envFloat("OBS_TRACING_SAMPLING_RATIO", 1.0),
		Environment:   cfg.AppEnv,
	})
	if err != nil {
		logger.Error().Err(err).Msg("initialise tracing")
		return false
	}
	tracerShutdown = shutdown
	return true
}

// tracerShutdown is flushed by serve on exit when tracing is enabled.
var tracerShutdown func(context.Context) error

func mustOpenPostgres(ctx context.Context, cfg *config.Config, logger zerolog.Logger) *pgxpool.Pool {
	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse database config")
	}
	poolConfig.ConnConfig.Tracer = obs.PGXTracer{}
	if poolConfig.ConnConfig.RuntimeParams == nil {
		poolConfig.ConnConfig.RuntimeParams = map[string]string{}
	}
	poolConfig.ConnConfig.RuntimeParams["application_name"] = "laundry-pos-api"

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect database")
	}
	if err := pool.Ping(ctx); err != nil {
		logger.Fatal().Err(err).Msg("ping database")
	}
	return pool
}

func mustOpenRedis(ctx context.Context, cfg *config.Config, logger zerolog.Logger, withMetrics bool) (*redis.Client, *redis.Options) {
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}
	client := redis.NewClient(opts)
	if err := redisotel.InstrumentTracing(client); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	if withMetrics {
		if err := redisotel.InstrumentMetrics(client); err != nil {
			logger.Error().Err(err).Msg("instrument redis metrics")
		}
	}
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Fatal().Err(err).Msg("ping redis")
	}
	return client, opts
}

// loginLimiter throttles login attempts per client separately from the global
// window, using ulule/limiter's Redis store.
func loginLimiter(redisClient *redis.Client, logger zerolog.Logger) func(http.Handler) http.Handler {
	store, err := app.NewLimiterStore(redisClient)
	if err != nil {
		logger.Error().Err(err).Msg("initialise login limiter store")
		return func(next http.Handler) http.Handler { return next }
	}
	lim := limiter.New(store, limiter.Rate{
		Period: time.Minute,
		Limit:  int64(envInt("AUTH_LOGIN_RATE_LIMIT_PER_MINUTE", 10)),
	})
	return limiterstdlib.NewMiddleware(lim).Handler
}

// logNotifier mirrors every domain event into the structured log.
type logNotifier struct {
	logger zerolog.Logger
}

func (n logNotifier) Notify(_ context.Context, event events.Event) error {
	n.logger.Info().
		Str("topic", event.Topic).
		Str("event_id", uuid.UUID(event.ID.Bytes).String()).
		Msg("domain event")
	return nil
}

func runMigrations(databaseURL string) error {
	// golang-migrate's pgx/v5 driver registers the pgx5 scheme.
	migrateURL := databaseURL
	for _, scheme := range []string{"postgres://", "postgresql://"} {
		if strings.HasPrefix(migrateURL, scheme) {
			migrateURL = "pgx5://" + strings.TrimPrefix(migrateURL, scheme)
			break
		}
	}
	m, err := migrate.New(envStr("DB_MIGRATIONS_URL", "file://migrations"), migrateURL)
	if err != nil {
		return err
	}
	defer func() { _, _ = m.Close() }()
	return app.RunMigrations(m)
}

func allowedOrigins(cfg *config.Config) []string {
	if len(cfg.CORSAllowedOrigins) == 0 {
		return []string{"*"}
	}
	return cfg.CORSAllowedOrigins
}

// storeProbes adapts the pgx pool and Redis client to the health checker.
type storeProbes struct {
	db    *pgxpool.Pool
	redis *redis.Client
}

func (p storeProbes) PingDB(ctx context.Context, timeout time.Duration) error {
	if p.db == nil {
		return errors.New("db not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return p.db.Ping(ctx)
}

func (p storeProbes) PingRedis(ctx context.Context, timeout time.Duration) error {
	if p.redis == nil {
		return errors.New("redis not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return p.redis.Ping(ctx).Err()
}

func envStr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "1", "t", "true", "yes", "on":
		return true
	case "0", "f", "false", "no", "off":
		return false
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v, err := strconv.ParseFloat(strings.TrimSpace(os.Getenv(key)), 64); err == nil {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v, err := strconv.Atoi(strings.TrimSpace(os.Getenv(key))); err == nil {
		return v
	}
	return fallback
}

func envMillis(key string, fallback int) time.Duration {
	return time.Duration(envInt(key, fallback)) * time.Millisecond
}

func profilerMux() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", pprof.Index)
	mux.HandleFunc("/cmdline", pprof.Cmdline)
	mux.HandleFunc("/profile", pprof.Profile)
	mux.HandleFunc("/symbol", pprof.Symbol)
	mux.HandleFunc("/trace", pprof.Trace)
	for _, profile := range []string{"allocs", "block", "goroutine", "heap", "mutex", "threadcreate"} {
		mux.Handle("/"+profile, pprof.Handler(profile))
	}
	return mux
}

func basicAuthOr(handler http.Handler, user, pass string) http.Handler {
	user = strings.TrimSpace(user)
	pass = strings.TrimSpace(pass)
	if user == "" {
		return handler
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, p, ok := r.BasicAuth()
		if !ok ||
			subtle.ConstantTimeCompare([]byte(u), []byte(user)) != 1 ||
			subtle.ConstantTimeCompare([]byte(p), []byte(pass)) != 1 {
			w.Header().Set("WWW-Authenticate", `Basic realm="pprof"`)
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		handler.ServeHTTP(w, r)
	})
}
