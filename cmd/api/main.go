package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/uptrace/bun"

	"github.com/stayloop/booking-api/internal/auth"
	"github.com/stayloop/booking-api/internal/config"
	"github.com/stayloop/booking-api/internal/database"
	httpServer "github.com/stayloop/booking-api/internal/http"
	"github.com/stayloop/booking-api/internal/logging"
	"github.com/stayloop/booking-api/internal/notification"
	"github.com/stayloop/booking-api/internal/otp"
	"github.com/stayloop/booking-api/internal/ratelimit"
	"github.com/stayloop/booking-api/internal/user"
)

// @title           Stayloop Booking API
// @version         1.0
// @description     Authentication and account service for the Stayloop property-booking platform.

// @host      localhost:8080
// @BasePath  /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the token.

func main() {
	if err := run(); err != nil {
		log.Fatalf("Application error: %v", err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := logging.NewLogger(cfg.Server.IsDevelopment())
	logger.Info("starting application",
		"env", cfg.Server.Env,
		"port", cfg.Server.Port,
	)

	db, err := initDB(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	redisClient, err := initRedis(cfg.Redis)
	if err != nil {
		return fmt.Errorf("failed to initialize Redis: %w", err)
	}
	defer redisClient.Close()

	// Repositories
	userRepo := user.NewRepository(db)
	sessionRegistry := auth.NewSessionRegistry(db)

	// Token backend
	var tokenService auth.TokenService
	switch cfg.Auth.TokenBackend {
	case "paseto":
		tokenService, err = auth.NewPasetoService(cfg.Auth.PasetoKey)
	default:
		tokenService, err = auth.NewJWTService(cfg.Auth.JWTSecret)
	}
	if err != nil {
		return fmt.Errorf("failed to initialize token service: %w", err)
	}

	// OTP store: Redis unless explicitly pinned to process memory
	var codeStore otp.Store
	if cfg.OTP.Store == "memory" {
		logger.Warn("using in-memory OTP store; codes are invisible to other instances")
		codeStore = otp.NewMemoryStore(cfg.OTP.TTL)
	} else {
		codeStore = otp.NewRedisStore(redisClient, cfg.OTP.TTL)
	}

	notifier := initNotifier(cfg.Notifier, logger)

	rateLimiter := ratelimit.NewLimiter(redisClient)

	authService := auth.NewService(
		userRepo,
		sessionRegistry,
		auth.NewPasswordHasher(),
		tokenService,
		codeStore,
		notifier,
		logger,
	)

	authHandler := auth.NewHandler(authService, rateLimiter, logger)
	authMiddleware := auth.NewMiddleware(tokenService, sessionRegistry, cfg.Auth.CheckSession)

	router := httpServer.NewRouter(cfg, db, authHandler, authMiddleware, logger)

	serverAddr := ":" + cfg.Server.Port
	server := httpServer.NewServer(
		serverAddr,
		router,
		cfg.Server.ReadTimeout,
		cfg.Server.WriteTimeout,
	)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- server.Start()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdown:
		log.Printf("Received signal: %v", sig)

		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// initDB opens the Postgres connection, applies migrations and returns a
// Bun DB instance
func initDB(cfg config.DatabaseConfig) (*bun.DB, error) {
	sqlDB, err := sql.Open("postgres", cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)

	if err := database.Migrate(sqlDB); err != nil {
		sqlDB.Close()
		return nil, err
	}

	return database.NewBunDB(sqlDB), nil
}

// initRedis initializes the Redis connection and returns a Redis client
func initRedis(cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	return client, nil
}

// initNotifier picks the code-delivery backend
func initNotifier(cfg config.NotifierConfig, logger *logging.Logger) notification.Notifier {
	switch cfg.Backend {
	case "smtp":
		return notification.NewSMTPNotifier(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword)
	case "log":
		return notification.NewLoggerNotifier(logger)
	default:
		return notification.NewEmailJSNotifier(
			cfg.EmailJSServiceID,
			cfg.EmailJSTemplateID,
			cfg.EmailJSPublicKey,
			cfg.EmailJSPrivateKey,
		)
	}
}
