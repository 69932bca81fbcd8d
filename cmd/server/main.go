package main

import (
	"context"
	"database/sql"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/contrib/otelfiber/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/crypto/bcrypt"

	_ "github.com/jackc/pgx/v5/stdlib"

	"account-service/internal/api"
	"account-service/internal/config"
	"account-service/internal/events"
	"account-service/internal/jwt"
	"account-service/internal/media"
	"account-service/internal/password"
	"account-service/internal/repository"
	"account-service/internal/service"
	"account-service/internal/tracing"
	_ "account-service/migrations"
)

const serviceName = "account-service"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	api.SetupGlobalHandler(serviceName, cfg.SlogLevel())

	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		handleMigrations(cfg)
		return
	}

	shutdownTracer, err := tracing.InitTracerProvider(serviceName, cfg.OtelEndpoint)
	if err != nil {
		log.Fatalf("Failed to initialize OpenTelemetry: %v", err)
	}
	defer func() {
		if err := shutdownTracer(context.Background()); err != nil {
			slog.Error("Error shutting down tracer provider", slog.String("error", err.Error()))
		}
	}()

	db := connectDB(cfg)
	defer db.Close()

	var publisher events.EventPublisher = events.NopPublisher{}
	natsPublisher, err := events.NewNatsPublisher(cfg.NatsURL)
	if err != nil {
		slog.Warn("Failed to connect to NATS, account events are disabled", slog.String("error", err.Error()))
	} else {
		defer natsPublisher.Close()
		publisher = natsPublisher
		slog.Info("Successfully connected to NATS")
	}

	uploader, err := media.NewS3Uploader(context.Background(), cfg)
	if err != nil {
		log.Fatalf("Failed to initialize media storage: %v", err)
	}

	userRepo := repository.NewPostgresUserRepository(db)
	hasher := password.NewBcryptHasher(bcrypt.DefaultCost)
	issuer := jwt.NewIssuer(cfg.AccessTokenSecret, cfg.RefreshTokenSecret, cfg.AccessTokenExpiry, cfg.RefreshTokenExpiry)

	registrationService := service.NewRegistrationService(userRepo, hasher, uploader, publisher)
	sessionService := service.NewSessionService(userRepo, hasher, issuer, publisher)
	activityService := service.NewActivityService(repository.NewPostgresAccountEventRepository(db))

	authHandler := api.NewAuthHandler(registrationService, sessionService, cfg.UploadTempDir, api.CookieOptions{
		Secure:     cfg.CookieSecure,
		AccessTTL:  issuer.AccessTTL(),
		RefreshTTL: issuer.RefreshTTL(),
	})

	app := fiber.New(fiber.Config{
		ErrorHandler: api.ErrorHandler,
		BodyLimit:    10 * 1024 * 1024,
	})
	app.Use(otelfiber.Middleware())
	app.Use(api.PrometheusMiddleware())

	app.Get("/health", func(c *fiber.Ctx) error {
		if err := db.PingContext(c.UserContext()); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "unavailable", "service": serviceName})
		}
		return c.JSON(fiber.Map{"status": "ok", "service": serviceName})
	})

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	api.SetupRoutes(app, authHandler, api.NewActivityHandler(activityService), issuer, api.RateLimiter(cfg.RateLimitMax, cfg.RateLimitExpiration))

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		slog.Info("Shutting down account-service...")
		if err := app.Shutdown(); err != nil {
			slog.Error("Error during server shutdown", slog.String("error", err.Error()))
		}
	}()

	slog.Info("Listening", slog.String("service", serviceName), slog.String("port", cfg.Port))
	if err := app.Listen(":" + cfg.Port); err != nil {
		slog.Error("Server stopped", slog.String("error", err.Error()))
	}
}

func connectDB(cfg *config.Config) *sqlx.DB {
	db, err := sqlx.Connect("pgx", cfg.DatabaseURL())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	slog.Info("Successfully connected to the database")
	return db
}

func handleMigrations(cfg *config.Config) {
	slog.Info("Running database migrations...")

	db, err := sql.Open("pgx", cfg.DatabaseURL())
	if err != nil {
		log.Fatalf("failed to connect to database for migration: %v", err)
	}
	defer db.Close()

	if err := goose.SetDialect("postgres"); err != nil {
		log.Fatalf("failed to set goose dialect: %v", err)
	}

	if err := goose.Up(db, "migrations"); err != nil {
		log.Fatalf("goose: failed to run migrations: %v", err)
	}

	slog.Info("Migrations applied successfully")
}
