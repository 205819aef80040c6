package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"profile-portal/internal/auth"
	"profile-portal/internal/backend"
	"profile-portal/internal/config"
	"profile-portal/internal/database"
	"profile-portal/internal/event"
	"profile-portal/internal/handler"
	"profile-portal/internal/logger"
	"profile-portal/internal/metrics"
	"profile-portal/internal/profile"
	"profile-portal/internal/router"
	"profile-portal/internal/session"
	"profile-portal/internal/stream"
)

const (
	sessionCleanupInterval = 5 * time.Minute
	idleSweepInterval      = time.Minute
)

type App struct {
	server       *http.Server
	cleanupFuncs []func()
}

type sessionBackend struct {
	backend session.Backend
	check   handler.HealthCheck
	close   func()
}

func New() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	log := logger.New(os.Stdout, cfg.LogFormat, cfg.LogLevel)
	slog.SetDefault(log)

	bgCtx, cancel := context.WithCancel(context.Background())
	cleanupFuncs := []func(){cancel}
	fail := func(err error) (*App, error) {
		for i := len(cleanupFuncs) - 1; i >= 0; i-- {
			cleanupFuncs[i]()
		}
		return nil, err
	}

	sessions, err := openSessions(bgCtx, cfg)
	if err != nil {
		return fail(err)
	}
	if sessions.close != nil {
		cleanupFuncs = append(cleanupFuncs, sessions.close)
	}
	go session.StartJanitor(bgCtx, sessions.backend, sessionCleanupInterval)
	slog.Info("session store ready", "backend", cfg.SessionBackend, "ttl", cfg.SessionTTL)

	codec, err := profile.ForContract(cfg.BackendContract)
	if err != nil {
		return fail(fmt.Errorf("failed to select backend contract: %w", err))
	}

	client := backend.NewClient(cfg.BackendURL, &http.Client{Timeout: cfg.BackendTimeout}, codec, log)
	slog.Info("backend client ready", "url", cfg.BackendURL, "contract", client.Contract())

	bus := event.NewBus()
	hub := stream.NewHub(bus)
	go hub.Run(bgCtx)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector(reg)
	client.SetObserver(collector)
	collector.Consume(bgCtx, bus)
	collector.TrackDroppedEvents(bus.Dropped)

	registry := auth.NewRegistry(auth.RegistryConfig{
		Sessions: sessions.backend,
		Backends: func(store session.Store) auth.Backend {
			return client.ForSession(store)
		},
		SessionTTL: cfg.SessionTTL,
		Machine: auth.Options{
			MaxPhotoSize:      cfg.MaxPhotoSize,
			PhotoMaxDimension: cfg.PhotoMaxDimension,
			Bus:               bus,
			Logger:            log,
		},
		Logger: log,
	})
	registry.StartSweeper(bgCtx, idleSweepInterval)
	collector.TrackSessions(registry.Len)
	cleanupFuncs = append(cleanupFuncs, registry.Close)

	appRouter := router.New(cfg, router.Handlers{
		Auth:    handler.NewAuthHandler(registry),
		Profile: handler.NewProfileHandler(registry, cfg.MaxPhotoSize),
		Health: handler.NewHealthHandler(client.Contract(), cfg.SessionBackend, map[string]handler.HealthCheck{
			"sessions": sessions.check,
		}),
		Events:  hub,
		Metrics: metrics.Handler(reg),
	})

	server := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           appRouter,
		ReadHeaderTimeout: cfg.ServerReadHeaderTimeout,
		IdleTimeout:       cfg.ServerIdleTimeout,
		// WriteTimeout stays unset for the event stream; Timeout middleware
		// bounds every other API route.
	}

	return &App{
		server:       server,
		cleanupFuncs: cleanupFuncs,
	}, nil
}

func openSessions(ctx context.Context, cfg *config.Config) (*sessionBackend, error) {
	switch cfg.SessionBackend {
	case config.SessionBackendPostgres:
		sealer, err := session.NewSealer(cfg.SessionSecret)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize session sealer: %w", err)
		}

		slog.Info("connecting to PostgreSQL")
		db, err := database.New(ctx, database.Options{
			URL:      cfg.DatabaseURL,
			MaxConns: cfg.DBMaxConns,
			MinConns: cfg.DBMinConns,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := db.EnsureSchema(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to ensure database schema: %w", err)
		}

		return &sessionBackend{
			backend: session.NewPostgres(db.Pool, sealer),
			check:   db.Health,
			close:   db.Close,
		}, nil

	case config.SessionBackendRedis:
		sealer, err := session.NewSealer(cfg.SessionSecret)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize session sealer: %w", err)
		}

		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		store := session.NewRedis(rdb, sealer)

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := store.Ping(pingCtx); err != nil {
			_ = rdb.Close()
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}

		return &sessionBackend{
			backend: store,
			check:   store.Ping,
			close: func() {
				if err := rdb.Close(); err != nil {
					slog.Warn("redis close failed", "error", err)
				}
			},
		}, nil

	default:
		memory := session.NewMemory()
		return &sessionBackend{
			backend: memory,
			check:   func(context.Context) error { return nil },
		}, nil
	}
}

func (a *App) Run() error {
	go func() {
		slog.Info("server starting", "addr", a.server.Addr)
		if serveErr := a.server.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			slog.Error("server failed", "error", serveErr)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Streams end first so Shutdown does not wait on them.
	a.cleanupFuncs[0]()

	shutdownErr := a.server.Shutdown(ctx)

	for i := len(a.cleanupFuncs) - 1; i > 0; i-- {
		a.cleanupFuncs[i]()
	}

	if shutdownErr != nil {
		return fmt.Errorf("graceful shutdown failed: %w", shutdownErr)
	}

	slog.Info("server stopped")
	return nil
}
