package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/diagnosis/luxsuv-accounts/internal/http/handlers"
	"github.com/diagnosis/luxsuv-accounts/internal/platform/auth"
	"github.com/diagnosis/luxsuv-accounts/internal/platform/mailer"
	"github.com/diagnosis/luxsuv-accounts/internal/platform/notify"
	"github.com/diagnosis/luxsuv-accounts/internal/platform/sms"
	"github.com/diagnosis/luxsuv-accounts/internal/platform/storage"
	"github.com/diagnosis/luxsuv-accounts/internal/repo/postgres"
	"github.com/diagnosis/luxsuv-accounts/internal/service"
	"github.com/diagnosis/luxsuv-accounts/pkg/config"
	"github.com/diagnosis/luxsuv-accounts/pkg/database"
	"github.com/diagnosis/luxsuv-accounts/pkg/events"
	"github.com/diagnosis/luxsuv-accounts/pkg/logger"
	mw "github.com/diagnosis/luxsuv-accounts/pkg/middleware"
)

const serviceName = "accounts"

func newServeCommand() *cobra.Command {
	var port string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig()
			if port != "" {
				cfg.Server.Port = port
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
	cmd.Flags().StringVar(&port, "port", "", "listen port (overrides PORT)")
	return cmd
}

func serve(ctx context.Context, cfg *config.Config) error {
	pool, err := connectDB(ctx, cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	publisher := newPublisher(cfg.NATS)
	defer publisher.Close()

	photos, err := storage.NewPhotoStore(cfg.Storage.Endpoint, cfg.Storage.AccessKey, cfg.Storage.SecretKey, cfg.Storage.Bucket, cfg.Storage.UseSSL)
	if err != nil {
		return err
	}

	tokens := auth.NewIssuer(cfg.Auth, auth.NewRedisBlacklist(rdb, ""))
	accounts := service.NewAccountService(postgres.NewAccountsRepo(pool), auth.NewPasswordHasher(nil), photos, publisher)
	verify := service.NewVerificationService(
		postgres.NewVerifyRepo(pool),
		notify.NewSender(newMailer(cfg.Email), newSMS(cfg.SMS)),
		publisher,
	)

	r := chi.NewRouter()
	r.Use(mw.RequestID)
	r.Use(mw.ServiceName(serviceName))
	r.Use(mw.Logging)
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(mw.Health(map[string]mw.HealthCheck{
		"postgres": pool.Ping,
		"redis":    func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
	}))

	handlers.NewAuthHandler(accounts, verify, tokens, cfg.Auth.SignupSendsCode).Register(r)
	handlers.NewProfileHandler(accounts, tokens).Register(r)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting accounts service", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down accounts service...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Accounts service error", "error", err)
		return err
	}
	return nil
}

func connectDB(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	pool, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		return nil, err
	}
	return pool, nil
}

func newPruner(pool *pgxpool.Pool) *service.VerificationService {
	return service.NewVerificationService(postgres.NewVerifyRepo(pool), nil, events.NopPublisher{})
}

// newPublisher falls back to a no-op publisher when NATS is disabled or
// unreachable.
func newPublisher(cfg config.NATSConfig) events.Publisher {
	if !cfg.Enabled {
		return events.NopPublisher{}
	}
	p, err := events.NewNATSPublisher(cfg.URL)
	if err != nil {
		logger.Warn("NATS unavailable, events disabled", "url", cfg.URL, "error", err)
		return events.NopPublisher{}
	}
	return p
}

func newMailer(cfg config.EmailConfig) mailer.Service {
	switch {
	case cfg.DevMode:
		logger.Info("Using dev mailer")
		return mailer.NewDevMailer()
	case cfg.MailerSendKey != "":
		return mailer.NewMailer(cfg.MailerSendKey, cfg.FromName, cfg.SMTPFrom)
	default:
		return mailer.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPFrom, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPUseTLS)
	}
}

func newSMS(cfg config.SMSConfig) sms.Service {
	if cfg.DevMode || cfg.GatewayURL == "" {
		logger.Info("Using dev SMS sender")
		return sms.NewDevSender()
	}
	return sms.NewGateway(cfg.GatewayURL, cfg.UserID, cfg.Password, cfg.SenderID)
}
