package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/sonbon03/vinhxuan-mono-sub003/internal/api"
	"github.com/sonbon03/vinhxuan-mono-sub003/internal/core/domain"
	"github.com/sonbon03/vinhxuan-mono-sub003/internal/core/ports"
	"github.com/sonbon03/vinhxuan-mono-sub003/internal/core/service"
	"github.com/sonbon03/vinhxuan-mono-sub003/internal/infrastructure/config"
	mongodb "github.com/sonbon03/vinhxuan-mono-sub003/internal/infrastructure/db/mongo"
	"github.com/sonbon03/vinhxuan-mono-sub003/internal/infrastructure/db/postgres"
	redisdb "github.com/sonbon03/vinhxuan-mono-sub003/internal/infrastructure/db/redis"
	"github.com/sonbon03/vinhxuan-mono-sub003/internal/infrastructure/http/handlers"
	"github.com/sonbon03/vinhxuan-mono-sub003/internal/infrastructure/messaging/kafka"
	"github.com/sonbon03/vinhxuan-mono-sub003/internal/infrastructure/queue"
	"github.com/sonbon03/vinhxuan-mono-sub003/pkg/logger"
	"github.com/sonbon03/vinhxuan-mono-sub003/pkg/password"
)

const shutdownTimeout = 10 * time.Second

// @title						Auth Service API
// @version					1.0
// @description				Authentication, token lifecycle and role-based authorization for the legal-services platform.
// @BasePath					/
// @securityDefinitions.apikey	BearerAuth
// @in							header
// @name						Authorization
// @description				Type "Bearer" followed by a space and the access token.
func main() {
	// A missing .env is fine; real deployments use the process environment.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.IsDevelopment(),
		Service: "auth",
		Caller:  cfg.IsDevelopment(),
	})

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	checks := map[string]handlers.Check{}
	var cleanup []func()
	defer func() {
		for i := len(cleanup) - 1; i >= 0; i-- {
			cleanup[i]()
		}
	}()

	// --- Credential store ---
	var (
		identities ports.IdentityRepository
		mongoDB    *mongo.Database
	)
	switch cfg.Store.Driver {
	case config.StorePostgres:
		db, err := postgres.Connect(ctx, postgres.Config{DSN: cfg.Postgres.DSN, Verbose: cfg.IsDevelopment()})
		if err != nil {
			return err
		}
		cleanup = append(cleanup, func() { _ = postgres.Close(db) })
		checks["postgres"] = postgres.Ping(db)
		identities = postgres.NewIdentityRepository(db)
	default:
		db, err := connectMongo(ctx, cfg, checks, &cleanup)
		if err != nil {
			return err
		}
		repo := mongodb.NewIdentityRepository(db)
		if err := repo.EnsureIndexes(ctx); err != nil {
			return err
		}
		identities = repo
		mongoDB = db
	}
	log.Info().Str("driver", cfg.Store.Driver).Msg("credential store connected")

	hasher, err := password.NewHasher(cfg.Auth.BcryptCost)
	if err != nil {
		return err
	}
	tokenCfg := service.TokenConfig{
		Secret:     cfg.Auth.JWTSecret,
		Issuer:     cfg.Auth.Issuer,
		AccessTTL:  cfg.Auth.AccessTTL,
		RefreshTTL: cfg.Auth.RefreshTTL,
	}
	issuer, err := service.NewTokenIssuer(tokenCfg, time.Now)
	if err != nil {
		return err
	}
	verifier, err := service.NewTokenVerifier(tokenCfg, time.Now)
	if err != nil {
		return err
	}

	opts := []service.AuthOption{service.WithRefreshRotation(cfg.Auth.RotateRefresh)}

	// --- Token denylist ---
	if cfg.Auth.DenylistEnabled {
		rdb, err := redisdb.Connect(ctx, redisdb.Config{Addr: cfg.Redis.Addr, DB: cfg.Redis.DB, Password: cfg.Redis.Password})
		if err != nil {
			return err
		}
		cleanup = append(cleanup, func() { _ = rdb.Close() })
		checks["redis"] = redisdb.Ping(rdb)
		opts = append(opts, service.WithDenylist(redisdb.NewDenylist(rdb)))
		log.Info().Str("addr", cfg.Redis.Addr).Msg("token denylist enabled")
	}

	// --- Audit trail ---
	sink, err := auditSink(ctx, cfg, mongoDB, checks, &cleanup)
	if err != nil {
		return err
	}
	if sink != nil {
		dispatcher := queue.NewDispatcher(cfg.Audit.Workers, sink, logger.Component("audit"))
		workerCtx, cancelWorkers := context.WithCancel(context.Background())
		dispatcher.Start(workerCtx)
		// Drain queued events before the sink is closed.
		cleanup = append(cleanup, func() {
			dispatcher.Close()
			cancelWorkers()
		})
		opts = append(opts, service.WithAuditRecorder(dispatcher))
		log.Info().Str("sink", cfg.Audit.Sink).Int("workers", cfg.Audit.Workers).Msg("audit trail enabled")
	}

	matrix := domain.DefaultPermissionMatrix()
	authService := service.NewAuthService(identities, hasher, issuer, verifier, matrix, logger.Component("auth"), opts...)
	userService := service.NewUserService(identities, hasher, logger.Component("users"))

	if cfg.Bootstrap.AdminEmail != "" {
		admin, err := service.EnsureAdmin(ctx, userService, cfg.Bootstrap.AdminEmail, cfg.Bootstrap.AdminPassword)
		if err != nil {
			return fmt.Errorf("bootstrap admin: %w", err)
		}
		if admin != nil {
			log.Info().Str("user_id", admin.ID).Msg("bootstrap admin created")
		}
	}

	e := api.NewRouter(api.Dependencies{
		Auth:   authService,
		Users:  userService,
		Matrix: matrix,
		Checks: checks,
		Log:    logger.Component("http"),
	})

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("starting auth service")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

func connectMongo(ctx context.Context, cfg *config.Config, checks map[string]handlers.Check, cleanup *[]func()) (*mongo.Database, error) {
	client, db, err := mongodb.Connect(ctx, mongodb.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
	if err != nil {
		return nil, err
	}
	*cleanup = append(*cleanup, func() {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = client.Disconnect(disconnectCtx)
	})
	checks["mongo"] = mongodb.Ping(db)
	return db, nil
}

// auditSink builds the configured sink, or returns nil when auditing is off.
// The mongo sink reuses the store connection when the store is mongo too.
func auditSink(ctx context.Context, cfg *config.Config, db *mongo.Database, checks map[string]handlers.Check, cleanup *[]func()) (ports.AuditSink, error) {
	switch cfg.Audit.Sink {
	case config.AuditMongo:
		if db == nil {
			var err error
			if db, err = connectMongo(ctx, cfg, checks, cleanup); err != nil {
				return nil, err
			}
		}
		return mongodb.NewAuditRepository(db), nil
	case config.AuditKafka:
		publisher, err := kafka.NewAuditPublisher(kafka.Config{Brokers: cfg.Kafka.Brokers, Topic: cfg.Kafka.AuditTopic})
		if err != nil {
			return nil, err
		}
		*cleanup = append(*cleanup, func() { _ = publisher.Close() })
		return publisher, nil
	default:
		return nil, nil
	}
}
