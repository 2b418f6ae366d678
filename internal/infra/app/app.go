package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/pinilDissanayaka/Sharing-Backend/internal/core/port"
	"github.com/pinilDissanayaka/Sharing-Backend/internal/infra/config"
	"github.com/pinilDissanayaka/Sharing-Backend/internal/infra/database"
	kafkainfra "github.com/pinilDissanayaka/Sharing-Backend/internal/infra/kafka"
	"github.com/pinilDissanayaka/Sharing-Backend/internal/infra/logger"
	redisinfra "github.com/pinilDissanayaka/Sharing-Backend/internal/infra/redis"
	"github.com/pinilDissanayaka/Sharing-Backend/internal/infra/security"
	"github.com/pinilDissanayaka/Sharing-Backend/internal/infra/telemetry"
	postgresrepo "github.com/pinilDissanayaka/Sharing-Backend/internal/repository/postgres"
	redisrepo "github.com/pinilDissanayaka/Sharing-Backend/internal/repository/redis"
	"github.com/pinilDissanayaka/Sharing-Backend/internal/transport/http/middleware"
	"github.com/pinilDissanayaka/Sharing-Backend/internal/transport/http/routes"
	"github.com/pinilDissanayaka/Sharing-Backend/internal/usecase"
)

type Application struct {
	cfg      *config.AppConfig
	engine   *gin.Engine
	logger   *zap.Logger
	pool     *pgxpool.Pool
	redis    *redisinfra.Client
	tracing  *telemetry.TracerProvider
	sessions *usecase.SessionService
}

func New(ctx context.Context, cfg *config.AppConfig) (*Application, error) {
	log, err := logger.New(cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	var tracing *telemetry.TracerProvider
	if cfg.Telemetry.OTLPEndpoint != "" {
		tracing, err = telemetry.NewTracerProvider(ctx, cfg.Telemetry, log)
		if err != nil {
			return nil, fmt.Errorf("init telemetry: %w", err)
		}
	} else {
		log.Info("otlp endpoint not configured, tracing disabled")
	}

	metrics := telemetry.NewMetrics()

	pool, err := database.NewPostgresPool(ctx, cfg.Postgres, log)
	if err != nil {
		return nil, fmt.Errorf("init postgres: %w", err)
	}

	redisClient, err := redisinfra.NewClient(cfg.Redis, log)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("init redis: %w", err)
	}

	repos := postgresrepo.NewRepositories(pool)
	ledger := redisrepo.NewRevocationLedger(redisClient.Client(), cfg.Redis.RevocationPrefix)

	// Initialize Kafka event publisher
	var eventPublisher port.EventPublisher
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaProducer, err := kafkainfra.NewProducer(cfg.Kafka, log)
		if err != nil {
			log.Warn("failed to init kafka producer, using stub publisher", zap.Error(err))
			eventPublisher = kafkainfra.NewStubPublisher(log)
		} else {
			eventPublisher = kafkainfra.NewEventPublisher(kafkaProducer, cfg.App, log)
			log.Info("kafka event publisher initialized", zap.Strings("brokers", cfg.Kafka.Brokers))
		}
	} else {
		log.Info("kafka brokers not configured, using stub publisher")
		eventPublisher = kafkainfra.NewStubPublisher(log)
	}

	hasher, err := security.NewArgon2Hasher(security.DefaultArgon2Config())
	if err != nil {
		_ = redisClient.Close()
		pool.Close()
		return nil, fmt.Errorf("init password hasher: %w", err)
	}
	passwordValidator := security.DefaultPasswordValidator()

	tokenService, err := usecase.NewTokenService(cfg)
	if err != nil {
		_ = redisClient.Close()
		pool.Close()
		return nil, fmt.Errorf("init token service: %w", err)
	}

	sessionService := usecase.NewSessionService(cfg.Session, repos.Sessions, ledger, metrics, log)
	lockoutPolicy := usecase.NewLockoutPolicy(cfg.Lockout, repos.Credentials, log)

	authService := usecase.NewAuthService(
		cfg,
		repos.Credentials,
		ledger,
		tokenService,
		sessionService,
		lockoutPolicy,
		hasher,
		passwordValidator,
		eventPublisher,
		metrics,
		log,
	)

	httpMetrics, err := middleware.NewHTTPMetrics(middleware.HTTPMetricsOptions{})
	if err != nil {
		_ = redisClient.Close()
		pool.Close()
		return nil, fmt.Errorf("init http metrics: %w", err)
	}

	engine := routes.Register(routes.Dependencies{
		Config:      cfg,
		Logger:      log,
		Auth:        authService,
		HTTPMetrics: httpMetrics,
		Database:    pool,
		Cache:       redisClient,
	})

	return &Application{
		cfg:      cfg,
		engine:   engine,
		logger:   log,
		pool:     pool,
		redis:    redisClient,
		tracing:  tracing,
		sessions: sessionService,
	}, nil
}

func (a *Application) Run(ctx context.Context) error {
	defer func() {
		_ = a.logger.Sync()
	}()
	defer func() {
		if a.pool != nil {
			a.pool.Close()
		}
	}()
	defer func() {
		if a.redis != nil {
			_ = a.redis.Close()
		}
	}()
	defer func() {
		if a.tracing != nil {
			_ = a.tracing.Shutdown(context.Background())
		}
	}()

	sweeperCtx, stopSweeper := context.WithCancel(ctx)
	defer stopSweeper()
	go a.runSweeper(sweeperCtx)

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", a.cfg.App.Host, a.cfg.App.Port),
		Handler:           a.engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	a.logger.Info("starting auth API",
		zap.String("env", a.cfg.App.Env),
		zap.String("address", srv.Addr),
	)

	serverErrCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- fmt.Errorf("run server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown server: %w", err)
		}
		return nil
	case err := <-serverErrCh:
		return err
	}
}

// runSweeper closes idle sessions and drops expired revocation records on a
// fixed interval until the context is cancelled.
func (a *Application) runSweeper(ctx context.Context) {
	interval := a.cfg.Session.CleanupInterval
	if interval <= 0 {
		interval = 10 * time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if cleaned, err := a.sessions.CleanupStale(ctx); err != nil {
				a.logger.Warn("session cleanup failed", zap.Error(err))
			} else if cleaned > 0 {
				a.logger.Info("closed stale sessions", zap.Int("count", cleaned))
			}
			if swept, err := a.sessions.SweepRevocations(ctx); err != nil {
				a.logger.Warn("revocation sweep failed", zap.Error(err))
			} else if swept > 0 {
				a.logger.Info("swept expired revocations", zap.Int("count", swept))
			}
		}
	}
}
