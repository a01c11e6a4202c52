package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/khanhERP/laundry-pos/internal/config"
	"github.com/khanhERP/laundry-pos/internal/events"
	"github.com/khanhERP/laundry-pos/internal/invoice"
	"github.com/khanhERP/laundry-pos/internal/obs"
	"github.com/khanhERP/laundry-pos/internal/order"
	"github.com/khanhERP/laundry-pos/internal/resilience"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logFormat := envOrDefault("OBS_LOG_FORMAT", "json")
	logLevel := envOrDefault("OBS_LOG_LEVEL", "info")
	logger := obs.NewLogger(logFormat, logLevel).With().Str("component", "worker").Logger()

	obs.MustRegisterDomainMetrics(envOrDefault("OBS_METRICS_NAMESPACE", "laundrypos"), nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pool := mustInitDatabase(ctx, cfg, logger)
	defer pool.Close()

	redisClient, redisOpts := mustInitRedis(ctx, cfg, logger)
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close redis")
		}
	}()

	bus := &events.Bus{Store: &events.PgStore{Pool: pool}}

	submitter := &invoice.Submitter{
		Orders:  &order.PgStore{Pool: pool},
		Builder: invoice.Builder{Seller: sellerFromEnv()},
		Store:   &invoice.PgStore{Pool: pool},
		Events:  bus,
		Logger:  logger,
		BaseURL: cfg.InvoiceProviderURL,
		APIKey:  cfg.InvoiceAPIKey,
		HTTP: resilience.HTTPClient{
			Client:      &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
			Breaker:     resilience.NewBreaker(10, 0.5, 30*time.Second).WithTarget("invoice-provider").WithLogger(logger),
			BaseBackoff: 500 * time.Millisecond,
			MaxAttempts: envInt("INVOICE_HTTP_MAX_ATTEMPTS", 3),
			Timeout:     envDurationMillis("INVOICE_HTTP_TIMEOUT_MS", 10000),
		},
	}

	srv := asynq.NewServer(
		asynq.RedisClientOpt{Addr: redisOpts.Addr, Password: redisOpts.Password, DB: redisOpts.DB},
		asynq.Config{
			Concurrency: envInt("WORKER_CONCURRENCY", 5),
			Logger:      asynqLogger{logger: logger},
		},
	)

	mux := asynq.NewServeMux()
	mux.Handle(invoice.TaskSubmit, submitter)

	logger.Info().Msg("worker starting")
	if err := srv.Run(mux); err != nil {
		logger.Fatal().Err(err).Msg("worker stopped with error")
	}
	logger.Info().Msg("worker shutdown complete")
}

func sellerFromEnv() invoice.Seller {
	return invoice.Seller{
		Name:    envOrDefault("INVOICE_SELLER_NAME", ""),
		TaxCode: envOrDefault("INVOICE_SELLER_TAX_CODE", ""),
		Address: envOrDefault("INVOICE_SELLER_ADDRESS", ""),
	}
}

func mustInitDatabase(ctx context.Context, cfg *config.Config, logger zerolog.Logger) *pgxpool.Pool {
	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse database config")
	}
	poolConfig.ConnConfig.Tracer = obs.PGXTracer{}
	if poolConfig.ConnConfig.RuntimeParams == nil {
		poolConfig.ConnConfig.RuntimeParams = map[string]string{}
	}
	poolConfig.ConnConfig.RuntimeParams["application_name"] = "laundry-pos-worker"
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect database")
	}
	if err := pool.Ping(ctx); err != nil {
		logger.Fatal().Err(err).Msg("ping database")
	}
	return pool
}

func mustInitRedis(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*redis.Client, *redis.Options) {
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}
	client := redis.NewClient(opts)
	if err := redisotel.InstrumentTracing(client); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Fatal().Err(err).Msg("ping redis")
	}
	return client, opts
}

// asynqLogger adapts zerolog to asynq's logging interface.
type asynqLogger struct {
	logger zerolog.Logger
}

func (l asynqLogger) Debug(args ...any) { l.logger.Debug().Msg(join(args)) }
func (l asynqLogger) Info(args ...any)  { l.logger.Info().Msg(join(args)) }
func (l asynqLogger) Warn(args ...any)  { l.logger.Warn().Msg(join(args)) }
func (l asynqLogger) Error(args ...any) { l.logger.Error().Msg(join(args)) }
func (l asynqLogger) Fatal(args ...any) { l.logger.Fatal().Msg(join(args)) }

func join(args []any) string {
	parts := make([]string, 0, len(args))
	for _, arg := range args {
		parts = append(parts, fmt.Sprint(arg))
	}
	return strings.Join(parts, " ")
}

func envOrDefault(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
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

func envDurationMillis(key string, fallback int) time.Duration {
	return time.Duration(envInt(key, fallback)) * time.Millisecond
}
