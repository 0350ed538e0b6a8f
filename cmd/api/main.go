// cmd/api/main.go
package main

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

	"github.com/dangerclosesec/portal/internal/auth"
	"github.com/dangerclosesec/portal/internal/config"
	"github.com/dangerclosesec/portal/internal/email"
	"github.com/dangerclosesec/portal/internal/email/mailer"
	"github.com/dangerclosesec/portal/internal/handler"
	"github.com/dangerclosesec/portal/internal/observability/tracing"
	"github.com/dangerclosesec/portal/internal/repository"
	"github.com/dangerclosesec/portal/internal/schema"
	"github.com/dangerclosesec/portal/internal/service"
	"github.com/dangerclosesec/portal/internal/worker"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "startup error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Initialize structured logger
	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:     slog.LevelInfo,
		AddSource: true,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				return slog.Attr{
					Key:   a.Key,
					Value: slog.StringValue(a.Value.Time().Format(time.RFC3339)),
				}
			}
			return a
		},
	}))
	slog.SetDefault(log)

	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Init(ctx, log, cfg.Tracing.Endpoint, cfg.Tracing.ServiceName, cfg.Env)
	if err != nil {
		return fmt.Errorf("initializing tracing: %w", err)
	}

	db, err := setupDatabase(cfg)
	if err != nil {
		return fmt.Errorf("setting up database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("getting database instance: %w", err)
	}
	defer sqlDB.Close()

	if cfg.Database.AutoMigrate {
		applied, err := schema.NewMigrator(sqlDB, log).Migrate(ctx)
		if err != nil {
			return fmt.Errorf("migrating schema: %w", err)
		}
		log.Info("schema ready", "applied", applied)
	}

	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	orgRepo := repository.NewOrganizationRepository(db)
	reportRepo := repository.NewReportRepository(db)

	// Initialize auth services
	passwordHasher := auth.NewPasswordHasher()
	tokenManager := auth.NewTokenManager(cfg.JWT.Secret, cfg.JWT.ExpiryPeriod)

	var reportOpts []service.ReportServiceOption
	if cfg.EmailEnabled() {
		emailService, err := email.NewEmailService(cfg, email.ProviderFor(cfg))
		if err != nil {
			return fmt.Errorf("initializing email service: %w", err)
		}
		reportOpts = append(reportOpts, service.WithNotifier(mailer.NewReportStatusMailer(emailService, cfg.Server.PublicURL)))
	} else {
		log.Info("email disabled: no SENDGRID_API_KEY or SMTP_HOST")
	}

	authService := service.NewAuthService(userRepo, passwordHasher, tokenManager)
	orgService := service.NewOrganizationService(orgRepo)
	userService := service.NewUserService(userRepo, passwordHasher)
	reportService := service.NewReportService(reportRepo, userRepo, reportOpts...)

	router := handler.NewRouter(handler.RouterConfig{
		Logger:         log,
		TokenManager:   tokenManager,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		RequestTimeout: cfg.Server.RequestTimeout,
		Auth:           handler.NewAuthHandler(authService),
		Organizations:  handler.NewOrganizationHandler(orgService),
		Users:          handler.NewUserHandler(userService),
		Reports:        handler.NewReportHandler(reportService),
		Health:         handler.NewHealthHandler(sqlDB),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           otelhttp.NewHandler(router, "portal"),
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       120 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()
	go worker.NewOverdueWorker(reportService, log, cfg.Overdue.SweepInterval).Start(workerCtx)

	serverErrors := make(chan error, 1)
	go func() {
		log.Info("server starting", "port", cfg.Server.Port)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case <-ctx.Done():
		log.Info("shutdown started")
		cancelWorker()

		// Give outstanding requests a deadline for completion
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			srv.Close()
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}

		if err := shutdownTracing(shutdownCtx); err != nil {
			log.Warn("tracing shutdown failed", "error", err)
		}
	}

	return nil
}

func setupDatabase(cfg *config.Config) (*gorm.DB, error) {
	level := logger.Warn
	if cfg.Env == "development" {
		level = logger.Info
	}

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(level),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN()), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("getting database instance: %w", err)
	}

	// Configure connection pool
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(25)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return db, nil
}
