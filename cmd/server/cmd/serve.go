package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/Togather-Foundation/confdir/internal/api"
	"github.com/Togather-Foundation/confdir/internal/api/middleware"
	"github.com/Togather-Foundation/confdir/internal/auth"
	"github.com/Togather-Foundation/confdir/internal/config"
	"github.com/Togather-Foundation/confdir/internal/metrics"
	"github.com/Togather-Foundation/confdir/internal/seed"
	"github.com/Togather-Foundation/confdir/internal/telemetry"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

type serveOptions struct {
	host string
	port int
}

func newServeCmd(root *rootOptions) *cobra.Command {
	opts := &serveOptions{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the confdir HTTP server",
		Long: `Start the confdir HTTP server and begin accepting API requests.

The server will:
- Load configuration from environment variables (and a .env file if present)
- Connect to PostgreSQL, or fall back to the in-memory demo store
- Bootstrap an admin user if ADMIN_* env vars are set
- Seed the demo dataset into an empty directory unless SEED_ON_EMPTY=false
- Handle graceful shutdown on SIGINT/SIGTERM

Examples:
  # Start with default configuration (from env vars)
  server serve

  # Start on a specific host and port
  server serve --host 127.0.0.1 --port 9090

  # Start with debug logging
  server serve --log-level debug`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return fmt.Errorf("config error: %w", err)
			}
			if opts.host != "" {
				cfg.Server.Host = opts.host
			}
			if opts.port != 0 {
				cfg.Server.Port = opts.port
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServer(ctx, cfg)
		},
	}

	cmd.Flags().StringVar(&opts.host, "host", "", "server host address (default: 0.0.0.0)")
	cmd.Flags().IntVar(&opts.port, "port", 0, "server port (default: 8080)")
	return cmd
}

func runServer(ctx context.Context, cfg config.Config) error {
	logger := config.NewLogger(cfg.Logging)
	logger.Info().Str("version", Version).Str("environment", cfg.Environment).Msg("starting confdir server")

	metrics.Init(Version, GitCommit, BuildDate)

	shutdownTracing, err := telemetry.InitTracing(ctx, cfg.Tracing, Version)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTracing(stopCtx); err != nil {
			logger.Error().Err(err).Msg("tracing shutdown error")
		}
	}()

	dir, err := openDirectory(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer dir.Close()

	report := dir.store.Status(ctx)
	metrics.SetStorageStatus(string(report.Backend), string(report.Status))

	if err := bootstrapAdmin(ctx, cfg, dir, logger); err != nil {
		logger.Error().Err(err).Msg("admin bootstrap failed")
	}
	if cfg.Storage.SeedOnEmpty {
		if err := seedIfEmpty(ctx, cfg, dir, logger); err != nil {
			logger.Error().Err(err).Msg("demo seed failed")
		}
	}

	if cfg.Auth.SecretGenerated {
		logger.Warn().Msg("JWT_SECRET not set, using a random secret; admin sessions end on restart")
	}
	signingKey, err := auth.DeriveSessionKey([]byte(cfg.Auth.JWTSecret))
	if err != nil {
		return fmt.Errorf("derive session key: %w", err)
	}
	jwtManager := auth.NewJWTManager(string(signingKey), cfg.Auth.JWTExpiry, "confdir")

	limiter := middleware.NewRateLimiter(cfg.RateLimit, cfg.Environment)
	defer limiter.Stop()

	if pool := dir.store.Pool(); pool != nil {
		unregister, err := metrics.RegisterPool(pool)
		if err != nil {
			return fmt.Errorf("register pool metrics: %w", err)
		}
		defer unregister()
	}

	handler, err := api.NewRouter(api.Dependencies{
		Config:      cfg,
		Logger:      logger,
		Store:       dir.store,
		Conferences: dir.conferences,
		Events:      dir.events,
		Users:       dir.users,
		JWTManager:  jwtManager,
		RateLimiter: limiter,
		Build:       api.BuildInfo{Version: Version, GitCommit: GitCommit, BuildDate: BuildDate},
	})
	if err != nil {
		return fmt.Errorf("build router: %w", err)
	}

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           handler,
		ReadTimeout:       10 * time.Second, // Total time to read request
		WriteTimeout:      30 * time.Second, // Total time to write response
		ReadHeaderTimeout: 5 * time.Second,  // Time to read headers
		MaxHeaderBytes:    1 << 20,          // 1 MB max header size
	}
	return serve(ctx, server, logger)
}

// serve runs server until ctx is cancelled, then shuts it down gracefully.
func serve(ctx context.Context, server *http.Server, logger zerolog.Logger) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info().Str("addr", server.Addr).Msg("listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		logger.Info().Msg("server stopped")
		return nil
	})

	return g.Wait()
}

func bootstrapAdmin(ctx context.Context, cfg config.Config, dir *directory, logger zerolog.Logger) error {
	bootstrap := cfg.Auth.BootstrapAdmin
	if bootstrap.Email == "" || bootstrap.Password == "" {
		logger.Debug().Msg("admin bootstrap env vars not set; skipping")
		return nil
	}

	created, err := dir.users.Bootstrap(ctx, bootstrap.Name, bootstrap.Email, bootstrap.Password)
	if err != nil {
		return err
	}
	if created {
		// Redact email in production to avoid PII in logs
		if cfg.IsProduction() {
			logger.Info().Msg("bootstrapped admin user")
		} else {
			logger.Info().Str("email", bootstrap.Email).Msg("bootstrapped admin user")
		}
	}
	return nil
}

func seedIfEmpty(ctx context.Context, cfg config.Config, dir *directory, logger zerolog.Logger) error {
	ds, err := loadDataset(cfg.Storage.SeedFile)
	if err != nil {
		return err
	}
	_, _, err = seed.NewSeeder(dir.conferences, dir.events, logger).ApplyIfEmpty(ctx, ds)
	return err
}
