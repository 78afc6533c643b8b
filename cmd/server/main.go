package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/antonkondratyev/api-universal/internal/config"
	"github.com/antonkondratyev/api-universal/internal/database"
	"github.com/antonkondratyev/api-universal/internal/handler"
	"github.com/antonkondratyev/api-universal/internal/metrics"
	"github.com/antonkondratyev/api-universal/internal/middleware"
	"github.com/antonkondratyev/api-universal/internal/queue"
	"github.com/antonkondratyev/api-universal/internal/repository"
	"github.com/antonkondratyev/api-universal/internal/router"
	"github.com/antonkondratyev/api-universal/internal/service"
	"github.com/antonkondratyev/api-universal/internal/telemetry"
	"github.com/antonkondratyev/api-universal/internal/utils"
)

const serviceName = "api-universal"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	_ = godotenv.Load()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		log.Error().Err(err).Msg(serviceName)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           serviceName,
		Short:         "User, role and session REST API",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context())
		},
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Migrate the schema and start the HTTP server",
			RunE:  func(cmd *cobra.Command, args []string) error { return serve(cmd.Context()) },
		},
		&cobra.Command{
			Use:   "migrate",
			Short: "Create or update the database schema",
			RunE: func(cmd *cobra.Command, args []string) error {
				return withDatabase(cmd.Context(), database.Migrate)
			},
		},
		&cobra.Command{
			Use:   "reset",
			Short: "Drop every table and recreate the schema",
			RunE: func(cmd *cobra.Command, args []string) error {
				return withDatabase(cmd.Context(), database.Reset)
			},
		},
		&cobra.Command{
			Use:   "consume",
			Short: "Append audit events from the queue to the audit log",
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, err := setup(cmd.Context())
				if err != nil {
					return err
				}
				err = queue.NewConsumer(cfg.Queue, log.Logger).Run(cmd.Context())
				if errors.Is(err, context.Canceled) {
					return nil
				}
				return err
			},
		},
	)
	return cmd
}

// setup loads the configuration and installs the global logger.
func setup(ctx context.Context) (config.Config, error) {
	cfg, err := config.Load(ctx)
	if err != nil {
		return cfg, err
	}
	zerolog.TimeFieldFormat = time.RFC3339
	if cfg.IsDev() {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	} else {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}
	log.Logger = log.With().Str("service", serviceName).Str("env", cfg.Env).Logger()
	return cfg, nil
}

func withDatabase(ctx context.Context, fn func(context.Context, *gorm.DB) error) error {
	cfg, err := setup(ctx)
	if err != nil {
		return err
	}
	db, err := database.Open(cfg.Database)
	if err != nil {
		return err
	}
	defer func() {
		if err := database.Close(db); err != nil {
			log.Error().Err(err).Msg("close database")
		}
	}()
	if err := fn(ctx, db); err != nil {
		return err
	}
	log.Info().Str("dialect", cfg.Database.Dialect).Msg("schema ready")
	return nil
}

func serve(ctx context.Context) error {
	cfg, err := setup(ctx)
	if err != nil {
		return err
	}

	cleanup, err := telemetry.Init(ctx, serviceName, cfg.OTLPEndpoint)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = cleanup(shutdownCtx)
	}()

	db, err := database.Open(cfg.Database)
	if err != nil {
		return err
	}
	defer func() {
		if err := database.Close(db); err != nil {
			log.Error().Err(err).Msg("close database")
		}
	}()
	if err := database.Migrate(ctx, db); err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	var rdb *redis.Client
	if cfg.Cache.Enabled {
		if rdb = config.NewRedisClient(cfg.Redis); rdb != nil {
			defer func() { _ = rdb.Close() }()
		} else {
			log.Warn().Str("addr", cfg.Redis.Addr).Msg("redis unavailable, read cache disabled")
		}
	}

	issuer := utils.NewTokenIssuer(cfg.Tokens)
	deps := service.Deps{
		Users:      repository.NewUserRepo(db),
		Tokens:     repository.NewTokenRepo(db),
		Roles:      repository.NewRoleRepo(db),
		Issuer:     issuer,
		Events:     queue.NewPublisher(cfg.Queue, log.Logger),
		Metrics:    m,
		Log:        log.Logger,
		BcryptCost: cfg.BcryptCost,
	}
	users := service.NewUserService(deps)
	e := router.New(router.Deps{
		Auth:           handler.NewAuthHandler(service.NewSessionService(deps)),
		Users:          handler.NewUserHandler(users),
		UserRoles:      handler.NewUserRolesHandler(users),
		Roles:          handler.NewRoleHandler(service.NewRoleService(deps)),
		Issuer:         issuer,
		Credentials:    cfg.Credentials,
		Origins:        cfg.AllowedOrigins,
		Cache:          middleware.ReadCache(cfg.Cache, rdb, log.Logger),
		Metrics:        m,
		MetricsHandler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
		Log:            log.Logger,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           e,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Str("dialect", cfg.Database.Dialect).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
