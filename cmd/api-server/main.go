package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/docuflow/docuflow/pkg/apiserver"
	"github.com/docuflow/docuflow/pkg/audit"
	"github.com/docuflow/docuflow/pkg/auth"
	"github.com/docuflow/docuflow/pkg/config"
	"github.com/docuflow/docuflow/pkg/eventbus"
	"github.com/docuflow/docuflow/pkg/lock"
	"github.com/docuflow/docuflow/pkg/logging"
	"github.com/docuflow/docuflow/pkg/store"
	"github.com/docuflow/docuflow/pkg/store/memory"
	"github.com/docuflow/docuflow/pkg/store/postgres"
	redisclient "github.com/docuflow/docuflow/pkg/store/redis"
	"github.com/docuflow/docuflow/pkg/workflow"
)

type storage struct {
	documents     store.DocumentStore
	audits        store.AuditStore
	notifications store.NotificationStore
	tx            store.Transactor
	close         func() error
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStorage(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to open storage", zap.Error(err))
	}
	defer st.close()

	var redis *redisclient.Client
	if cfg.Lock.Driver == "redis" || cfg.Publisher.Driver == "redis" {
		redis, err = redisclient.NewClient(ctx, &cfg.Redis)
		if err != nil {
			logger.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer redis.Close()
	}

	var locker lock.Locker
	switch cfg.Lock.Driver {
	case "redis":
		locker = lock.NewRedis(redis.Client(), lock.RedisOptions{
			TTL:           cfg.Lock.TTL,
			RetryInterval: cfg.Lock.RetryInterval,
			WaitTimeout:   cfg.Lock.WaitTimeout,
		}, logger)
	default:
		locker = lock.NewLocal(cfg.Lock.WaitTimeout)
	}

	var publisher *eventbus.BestEffort
	if redis != nil {
		publisher = eventbus.Open(ctx, cfg, redis.Client(), logger)
	} else {
		publisher = eventbus.Open(ctx, cfg, nil, logger)
	}

	recorder := audit.NewRecorder(st.audits, st.notifications, publisher, logger)
	engine := workflow.NewEngine(st.documents, st.tx, workflow.NewPolicy(workflow.DefaultTransitions()), recorder, locker, logger)

	var tokens *auth.TokenManager
	if cfg.Auth.JWTSecret != "" {
		tokens = auth.NewTokenManager([]byte(cfg.Auth.JWTSecret), cfg.Auth.TokenTTL)
	} else {
		logger.Warn("auth.jwt_secret is empty, bearer tokens are disabled")
	}

	server := apiserver.NewServer(apiserver.Dependencies{
		Engine:        engine,
		Audits:        st.audits,
		Notifications: st.notifications,
		Tokens:        tokens,
	}, cfg, logger)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler:      server.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.ReadTimeout * 2,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting API server", zap.Int("port", cfg.Server.HTTPPort))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server forced to shutdown", zap.Error(err))
		}
		publisher.Close(shutdownCtx)
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", zap.Error(err))
		os.Exit(1)
	}
}

func openStorage(cfg *config.Config, logger *zap.Logger) (*storage, error) {
	switch cfg.Storage.Driver {
	case "memory":
		logger.Warn("using in-memory storage, data is lost on restart")
		s := memory.NewStore()
		return &storage{
			documents:     s.Documents(),
			audits:        s.Audits(),
			notifications: s.Notifications(),
			tx:            s,
			close:         func() error { return nil },
		}, nil
	case "postgres":
		db, err := postgres.NewStore(&cfg.Database)
		if err != nil {
			return nil, err
		}
		if err := db.AutoMigrate(); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
		return &storage{
			documents:     db.Documents(),
			audits:        db.Audits(),
			notifications: db.Notifications(),
			tx:            db,
			close:         db.Close,
		}, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}
