package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pubike/pubike/libs/auth"
	"github.com/pubike/pubike/libs/db"
	"github.com/pubike/pubike/libs/httpx"
	"github.com/pubike/pubike/libs/kafkax"
	"github.com/pubike/pubike/libs/metrics"
	otelx "github.com/pubike/pubike/libs/otel"
	"github.com/pubike/pubike/libs/runtime"
	"github.com/pubike/pubike/services/appointment-service/internal/appointment"
	"github.com/pubike/pubike/services/appointment-service/internal/handlers"
	"github.com/pubike/pubike/services/appointment-service/internal/identity"
	"github.com/pubike/pubike/services/appointment-service/internal/notify"
	"github.com/pubike/pubike/services/appointment-service/internal/outbox"
	"github.com/pubike/pubike/services/appointment-service/internal/session"
	"github.com/pubike/pubike/services/appointment-service/internal/settings"
	"github.com/pubike/pubike/services/appointment-service/internal/sms"
	"github.com/pubike/pubike/services/appointment-service/internal/storage"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	cfg, err := settings.Load()
	if err != nil {
		panic(err)
	}
	logger := runtime.NewLogger(cfg.ServiceName, cfg.LogLevel)

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(cfg.ServiceName))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	clock := clockwork.NewRealClock()
	reg := metrics.NewRegistry()

	store, pool, storeCfg := openStore(ctx, cfg, clock, logger)
	defer pool.Close()

	authn, signer, err := buildAuthenticator(cfg, clock, logger)
	if err != nil {
		logger.Error("failed to init identity", "err", err)
		panic(err)
	}

	var checks []runtime.ReadyCheck
	if cfg.Kafka.Brokers != "" {
		checks = append(checks, runtime.ReadyCheck{Name: "kafka", Optional: true, Check: kafkax.ReadyCheck(cfg.Kafka.Brokers)})
	}
	if pool != nil {
		checks = append(checks, runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)})
	}

	limiter, rdb := buildLimiter(cfg, clock)
	if rdb != nil {
		defer rdb.Close()
		checks = append(checks, runtime.ReadyCheck{
			Name:     "redis",
			Optional: cfg.RateLimit.FailOpen,
			Check:    func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		})
	}
	var limit httpx.Middleware
	if limiter != nil {
		limit = httpx.RateLimit(limiter, logger, httpx.RateLimitOptions{
			FailOpen:          cfg.RateLimit.FailOpen,
			TrustForwardedFor: cfg.RateLimit.TrustProxy,
		})
	}

	mux := runtime.NewBaseMuxWithReady(checks...)
	mux.Handle("/metrics", metrics.Handler(reg))

	sessions := session.NewInitializer(session.Config{
		AppID:            cfg.AppID,
		InitialAuthToken: cfg.InitialAuthToken,
	}, authn, store, logger, session.NewMetrics(reg))
	submitter := appointment.NewSubmitter(logger, appointment.NewMetrics(reg))

	handlers.NewAppointmentHandler(sessions, submitter, logger, handlers.Options{
		Clock:        clock,
		CookieTTL:    cfg.Auth.TokenTTL,
		SecureCookie: cfg.CookieSecure,
	}).Register(mux, limit, httpx.WithBodyLimit(64<<10))
	if signer != nil {
		identity.NewHandler(authn, signer, logger).Register(mux, limit, httpx.WithBodyLimit(16<<10))
	}

	if pool != nil && storeCfg.OutboxEnabled() {
		startEvents(ctx, cfg, pool, logger)
	}

	handler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithRecover(logger),
		httpx.WithAccessLog(logger),
		httpx.NewHTTPMetrics(reg, "pubike").Middleware(),
		httpx.WithCORS(httpx.CORSPolicy{AllowedOrigins: cfg.CORSOrigins()}),
	)
	handler = otelhttp.NewHandler(handler, "appointment")
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	runtime.Serve(ctx, srv, logger, 10*time.Second)
}

// openStore returns a nil store when none is configured or reachable; the page
// then reports that scheduling is unavailable.
func openStore(ctx context.Context, cfg *settings.Config, clock clockwork.Clock, logger *slog.Logger) (storage.DocumentStore, *db.Pool, storage.Config) {
	storeCfg, err := storage.ParseConfig(cfg.StoreConfig)
	if err != nil {
		if errors.Is(err, storage.ErrNoConfig) {
			logger.Error("store configuration not found; submissions disabled")
			return nil, nil, storage.Config{}
		}
		panic(err)
	}
	store, pool, err := storage.Open(ctx, storeCfg, clock)
	if err != nil {
		logger.Error("store connection failed; submissions disabled", "driver", storeCfg.Driver, "err", err)
		return nil, nil, storeCfg
	}
	logger.Info("document store ready", "driver", storeCfg.Driver, "outbox", pool != nil && storeCfg.OutboxEnabled())
	return store, pool, storeCfg
}

func buildAuthenticator(cfg *settings.Config, clock clockwork.Clock, logger *slog.Logger) (identity.Authenticator, identity.TokenSigner, error) {
	if cfg.RemoteIdentity() {
		logger.Info("using remote identity service", "url", cfg.Auth.IdentityURL)
		return identity.NewClient(cfg.Auth.IdentityURL), nil, nil
	}

	signer, err := buildSigner(cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	var jwks *auth.JWKSClient
	if cfg.Auth.JWKSURL != "" {
		jwks = auth.NewJWKSClient(cfg.Auth.JWKSURL, 10*time.Minute)
	}
	svc := identity.NewService(signer, logger, identity.ServiceConfig{
		AppID:    cfg.AppID,
		TokenTTL: cfg.Auth.TokenTTL,
		JWKS:     jwks,
		Clock:    clock,
	})
	return svc, signer, nil
}

func buildSigner(cfg *settings.Config, logger *slog.Logger) (identity.TokenSigner, error) {
	if cfg.Auth.RSAPrivateKey != "" {
		return identity.NewRS256Signer([]byte(cfg.Auth.RSAPrivateKey), cfg.Auth.RSAKeyID)
	}
	secret := cfg.Auth.JWTSecret
	if secret == "" {
		buf := make([]byte, 32)
		if _, err := rand.Read(buf); err != nil {
			return nil, err
		}
		secret = hex.EncodeToString(buf)
		logger.Warn("AUTH_JWT_SECRET not set; using an ephemeral secret, sessions end on restart")
	}
	return identity.NewHS256Signer(secret)
}

func buildLimiter(cfg *settings.Config, clock clockwork.Clock) (httpx.Limiter, *redis.Client) {
	if cfg.RateLimit.PerMinute == 0 {
		return nil, nil
	}
	if cfg.RateLimit.RedisAddr == "" {
		return httpx.NewRateLimiter(cfg.RateLimit.PerMinute, time.Minute, clock), nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RateLimit.RedisAddr,
		Password: cfg.RateLimit.RedisPassword,
		DB:       cfg.RateLimit.RedisDB,
	})
	return httpx.NewRedisRateLimiter(rdb, cfg.RateLimit.PerMinute, time.Minute, "pubike:ratelimit:"), rdb
}

func startEvents(ctx context.Context, cfg *settings.Config, pool *db.Pool, logger *slog.Logger) {
	publisher := outbox.NewPublisher(pool, outbox.NewRepository(pool), logger, outbox.PublisherConfig{
		Brokers:   cfg.Kafka.Brokers,
		PollEvery: 2 * time.Second,
		BatchSize: 50,
	})
	go publisher.Run(ctx)

	if len(kafkax.SplitBrokers(cfg.Kafka.Brokers)) == 0 {
		return
	}
	sender := sms.New(cfg.Notify.WebhookURL, cfg.Notify.WebhookToken, logger)
	consumer := notify.NewConsumer(logger, notify.NewPostgresInbox(pool), notify.Config{
		Brokers: cfg.Kafka.Brokers,
		GroupID: cfg.Kafka.GroupID,
		Topic:   outbox.EventDocumentCreated,
	}, notify.ProviderHandler(sender, cfg.Notify.ProviderPhone, logger))
	go consumer.Run(ctx)
	logger.Info("provider notifier started", "sender", sender.ProviderID(), "group_id", cfg.Kafka.GroupID)
}
