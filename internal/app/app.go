package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"gouauth/internal/auth"
	"gouauth/internal/config"
	handlers "gouauth/internal/transport/http"
	"gouauth/internal/infrastructure"
	customMiddleware "gouauth/internal/middleware"
	"gouauth/internal/store"
)

const AppName = "gouauth"

// Application is the main application container.
type Application struct {
	Config        *config.Config
	Router        *chi.Mux
	Server        *http.Server
	Store         store.Store
	AuthService   *auth.Service
	Logger        *slog.Logger
	OTelProviders *infrastructure.OTelProviders

	closers []func(context.Context) error
}

// NewApplication creates a new application instance with dependency injection.
func NewApplication(ctx context.Context) (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return NewApplicationWithConfig(ctx, cfg)
}

// NewApplicationWithConfig wires the application from an already-loaded
// configuration. Tests use this to skip environment loading.
func NewApplicationWithConfig(ctx context.Context, cfg *config.Config) (*Application, error) {
	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	logger.Info("Application starting",
		slog.String("name", AppName),
		slog.String("version", handlers.Version),
		slog.String("storage", cfg.Storage.Driver))

	otelProviders, err := infrastructure.InitializeOTel(ctx, logger, 1.0)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	app := &Application{
		Config:        cfg,
		Logger:        logger,
		OTelProviders: otelProviders,
	}

	if err := app.initializeServices(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	app.setupRouter()
	app.createServer()

	return app, nil
}

// initializeServices builds the store and the auth service on top of it.
func (a *Application) initializeServices(ctx context.Context) error {
	st, err := a.buildStore(ctx)
	if err != nil {
		return err
	}
	a.Store = st

	signer := auth.NewTokenSigner(a.Config.Auth.JWTSecret)
	a.AuthService = auth.NewService(st, signer, a.Logger,
		a.Config.Auth.SessionTTL, a.Config.Auth.MaxSessions, a.Config.Auth.BcryptCost)

	return nil
}

// buildStore assembles the persistence backend selected by configuration.
// The redis driver keeps sessions in redis and users/keys in postgres when a
// DSN is configured, falling back to memory otherwise.
func (a *Application) buildStore(ctx context.Context) (store.Store, error) {
	switch a.Config.Storage.Driver {
	case "memory":
		return store.NewMemoryStore(), nil

	case "postgres":
		return a.openPostgres(ctx)

	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:        a.Config.Storage.RedisAddr,
			DB:          a.Config.Storage.RedisDB,
			DialTimeout: a.Config.Storage.Timeout,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("redis unreachable at %s: %w", a.Config.Storage.RedisAddr, err)
		}
		a.closers = append(a.closers, func(context.Context) error { return client.Close() })
		sessions := store.NewRedisSessionStore(client)

		if a.Config.Storage.PostgresDSN != "" {
			pg, err := a.openPostgres(ctx)
			if err != nil {
				return nil, err
			}
			return store.NewComposite(pg, pg, sessions), nil
		}
		mem := store.NewMemoryStore()
		return store.NewComposite(mem, mem, sessions), nil

	default:
		return nil, fmt.Errorf("unknown storage driver %q", a.Config.Storage.Driver)
	}
}

func (a *Application) openPostgres(ctx context.Context) (*store.PostgresStore, error) {
	pg, err := store.NewPostgresStore(ctx, a.Config.Storage.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}
	if err := pg.Migrate(ctx); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	a.closers = append(a.closers, func(context.Context) error { return pg.Close() })
	return pg, nil
}

// setupRouter configures the HTTP router with all routes.
func (a *Application) setupRouter() {
	r := chi.NewRouter()

	r.Use(customMiddleware.RequestID)
	r.Use(customMiddleware.StructuredLogger(a.Logger))
	r.Use(customMiddleware.Recoverer(a.Logger))
	r.Use(customMiddleware.SecurityHeaders)
	r.Use(customMiddleware.CORS(customMiddleware.CORSConfig{
		AllowedOrigins: a.Config.Security.AllowedOrigins,
	}))
	r.Use(customMiddleware.Metrics)

	healthHandler := handlers.NewHealthHandler()
	r.Get("/healthz", healthHandler.HealthCheck)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))
		r.Get("/version", healthHandler.VersionInfo)

		r.Group(func(r chi.Router) {
			if a.Config.Security.RateLimit.Enabled {
				r.Use(customMiddleware.NewRateLimiter(
					a.Config.Security.RateLimit.RPS,
					a.Config.Security.RateLimit.Burst,
					a.Logger,
				).Handler)
			}

			authHandler := handlers.NewAuthHandler(a.AuthService, a.Logger)
			r.Mount("/auth", authHandler.Routes())
		})
	})

	a.Router = r
}

func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:           fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:        a.Router,
		ReadTimeout:    a.Config.Server.ReadTimeout,
		WriteTimeout:   a.Config.Server.WriteTimeout,
		IdleTimeout:    a.Config.Server.IdleTimeout,
		MaxHeaderBytes: a.Config.Server.MaxHeaderBytes,
	}
}

// Start runs the HTTP server until ctx is cancelled, then shuts down
// gracefully.
func (a *Application) Start(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "Server listening",
		slog.String("address", a.Server.Addr),
		slog.String("level", a.Config.Logging.Level))

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := a.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		return a.Stop(context.Background())
	})

	return g.Wait()
}

// Stop gracefully stops the server, storage backends and telemetry.
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "Shutting down application")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	for _, closeFn := range a.closers {
		if err := closeFn(shutdownCtx); err != nil {
			a.Logger.ErrorContext(ctx, "Error closing backend", slog.String("error", err.Error()))
		}
	}

	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
			a.Logger.ErrorContext(ctx, "Error shutting down OpenTelemetry", slog.String("error", err.Error()))
		}
	}

	a.Logger.InfoContext(ctx, "Application shutdown complete")
	return nil
}

// Run runs the application until interrupted.
func (a *Application) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return a.Start(ctx)
}

// WaitReady polls the health endpoint until the server answers or the
// deadline passes. Supervisors use it as a readiness signal.
func (a *Application) WaitReady(ctx context.Context, deadline time.Duration) error {
	url := fmt.Sprintf("http://localhost:%d/healthz", a.Config.Server.Port)
	timer := time.NewTimer(deadline)
	defer timer.Stop()

	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		resp, err := http.DefaultClient.Do(req)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			return fmt.Errorf("server not ready after %s", deadline)
		case <-time.After(100 * time.Millisecond):
		}
	}
}
