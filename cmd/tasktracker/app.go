package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/nkiryanov/tasktracker/internal/db"
	"github.com/nkiryanov/tasktracker/internal/handlers"
	"github.com/nkiryanov/tasktracker/internal/handlers/middleware"
	"github.com/nkiryanov/tasktracker/internal/logger"
	"github.com/nkiryanov/tasktracker/internal/metrics"
	"github.com/nkiryanov/tasktracker/internal/repository"
	"github.com/nkiryanov/tasktracker/internal/repository/postgres"
	redisrepo "github.com/nkiryanov/tasktracker/internal/repository/redis"
	"github.com/nkiryanov/tasktracker/internal/service/auth"
	"github.com/nkiryanov/tasktracker/internal/service/auth/tokenmanager"
	"github.com/nkiryanov/tasktracker/internal/service/task"
	"github.com/nkiryanov/tasktracker/internal/service/user"
)

const shutdownTimeout = 5 * time.Second

type ServerApp struct {
	ListenAddr string
	Handler    http.Handler
	Purger     *auth.Purger
	Logger     logger.Logger

	// Release connections, called in reverse order
	closers []func()
}

func NewServerApp(ctx context.Context, c *Config) (*ServerApp, error) {
	app := &ServerApp{ListenAddr: c.ListenAddr}

	// Release what was already opened if initialization failed
	initialized := false
	defer func() {
		if !initialized {
			app.Close()
		}
	}()

	// Initialize logger
	l, err := logger.New(c.Environment, c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("error while initializing logger: %w", err)
	}
	app.Logger = l

	// Connect to the database and run migrations
	pool, err := db.ConnectAndMigrate(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("error while connecting to db. Err: %w", err)
	}
	app.closers = append(app.closers, pool.Close)

	// Initialize repositories
	storage := postgres.NewStorage(pool)

	var revocations repository.RevocationRepo = storage.Revocation()
	if c.RevocationType == BackendRedis {
		opts, err := redis.ParseURL(c.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("invalid redis url. Err: %w", err)
		}
		client := redis.NewClient(opts)
		app.closers = append(app.closers, func() { _ = client.Close() })

		if err := client.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("error while connecting to redis. Err: %w", err)
		}
		revocations = redisrepo.NewRevocationRepo(client)
	}

	// Initialize services
	m := metrics.New()

	hasher, err := auth.NewHasher(c.PasswordHasher)
	if err != nil {
		return nil, err
	}

	tokenManager, err := tokenmanager.New(tokenmanager.Config{
		SecretKey:  c.SecretKey,
		Alg:        c.TokenAlg,
		AccessTTL:  c.AccessTTL,
		RefreshTTL: c.RefreshTTL,
		Leeway:     c.TokenLeeway,
	})
	if err != nil {
		return nil, fmt.Errorf("error while creating token manager. Err: %w", err)
	}

	authService, err := auth.NewService(auth.Config{
		SecureCookies:        c.Environment != logger.EnvDevelopment,
		DisableRotation:      !c.RotateRefresh,
		Hasher:               hasher,
		EmailCaseInsensitive: c.EmailCaseInsensitive,
		Logger:               app.Logger,
		Recorder:             m,
	}, tokenManager, storage.User(), revocations)
	if err != nil {
		return nil, fmt.Errorf("error while creating auth service. Err: %w", err)
	}

	userService := user.NewService(hasher, storage.User())
	taskService := task.NewService(storage.Task())

	app.Purger = auth.NewPurger(revocations, c.PurgeInterval, app.Logger)
	app.Handler = handlers.NewRouter(
		authService,
		userService,
		taskService,
		m,
		middleware.NewRateLimit(c.LoginRateLimit, c.LoginRateBurst),
		app.Logger,
	)

	initialized = true
	return app, nil
}

// Run starts http server and purger, closes them gracefully on context cancellation
func (s *ServerApp) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:    s.ListenAddr,
		Handler: s.Handler,
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.Logger.Info("Starting server", "address", s.ListenAddr)
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	// Stop server when context cancelled or server failed
	g.Go(func() error {
		<-gCtx.Done()

		timeoutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := httpServer.Shutdown(timeoutCtx); errors.Is(err, context.DeadlineExceeded) {
			s.Logger.Error("HTTP server shutdown timeout exceeded, forcing shutdown...")
			_ = httpServer.Close()
		}
		s.Logger.Info("HTTP server stopped")
		return nil
	})

	g.Go(func() error {
		<-s.Purger.Run(gCtx)
		return nil
	})

	return g.Wait()
}

func (s *ServerApp) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	s.closers = nil
}
