package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"flashai/internal/config"
	"flashai/internal/database"
	"flashai/internal/handler"
	"flashai/internal/logger"
	"flashai/internal/middleware"
	"flashai/internal/openrouter"
	"flashai/internal/repository"
	"flashai/internal/service"
	"flashai/internal/token"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	ginprometheus "github.com/zsais/go-gin-prometheus"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.LoadConfig(".env")
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{Level: cfg.LogLevel, Encoding: "json"})
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()
	zap.ReplaceGlobals(log)
	log.Info("Configuration loaded", zap.String("env", cfg.Env), zap.String("dsn", cfg.MaskedDSN()))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- External Connections ---
	pgPool, err := database.Connect(ctx, cfg, database.DefaultRetryPolicy, log)
	if err != nil {
		log.Fatal("Failed to connect to PostgreSQL", zap.Error(err))
	}
	defer pgPool.Close()

	if err := database.Migrate(ctx, pgPool, log); err != nil {
		log.Fatal("Failed to apply database migrations", zap.Error(err))
	}

	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient, err = database.ConnectRedis(ctx, cfg, database.DefaultRetryPolicy, log)
		if err != nil {
			log.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer redisClient.Close()
	}

	// --- Dependency Injection ---
	codec, err := token.NewCodec(token.Config{
		Secret:   cfg.JWTSecret,
		Issuer:   cfg.JWTIssuer,
		Audience: cfg.JWTAudience,
		TTL:      cfg.AccessTokenTTL,
	}, log)
	if err != nil {
		log.Fatal("Failed to create token codec", zap.Error(err))
	}

	userRepo := repository.NewPgUserRepository(pgPool, log)
	errorLogRepo := repository.NewPgGenerationErrorLogRepository(pgPool, log)

	completionClient, err := openrouter.New(openrouter.Config{
		APIKey:     cfg.OpenRouter.APIKey,
		BaseURL:    cfg.OpenRouter.BaseURL,
		Model:      cfg.OpenRouter.Model,
		Timeout:    cfg.OpenRouter.Timeout,
		MaxRetries: cfg.OpenRouter.MaxRetries,
		RetryDelay: cfg.OpenRouter.RetryDelay,
		Referer:    cfg.OpenRouter.Referer,
		Title:      cfg.OpenRouter.Title,
		Defaults: openrouter.Params{
			Temperature: &cfg.OpenRouter.Temperature,
			MaxTokens:   &cfg.OpenRouter.MaxTokens,
			TopP:        &cfg.OpenRouter.TopP,
		},
		TokenEstimation: cfg.OpenRouter.TokenEstimation,
	}, errorLogRepo, log)
	if err != nil {
		log.Fatal("Failed to create completion client", zap.Error(err))
	}

	authService := service.NewAuthService(userRepo, codec, cfg.PasswordPepper, log)
	generationService := service.NewGenerationService(completionClient, log)
	h := handler.NewHandler(authService, generationService, log)

	// --- HTTP Server Setup (Gin) ---
	gin.SetMode(gin.ReleaseMode)
	if cfg.Env == "development" {
		gin.SetMode(gin.DebugMode)
	}

	router := gin.New()
	router.RedirectTrailingSlash = true
	router.Use(middleware.GinZapLogger(log))
	router.Use(gin.Recovery())
	router.Use(cors.New(corsConfig(cfg, log)))
	router.Use(middleware.NewAuthorizer(codec, middleware.DefaultRoutePolicy(), log).Handler())

	// Регистрирует /metrics и middleware метрик, поэтому подключается до маршрутов.
	ginprometheus.NewPrometheus("gin").Use(router)

	authLimiter := middleware.NewRateLimiter(middleware.RateLimitConfig{
		Limit:  cfg.AuthRateLimit,
		Window: cfg.AuthRateWindow,
	}, redisClient, log)
	h.RegisterRoutes(router, authLimiter)

	srv := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.OpenRouter.Timeout*time.Duration(cfg.OpenRouter.MaxRetries+1) + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("Starting HTTP server", zap.String("port", cfg.ServerPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("HTTP Server listen error", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	<-ctx.Done()
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP Server forced to shutdown", zap.Error(err))
	}
	log.Info("Server exiting")
}

func corsConfig(cfg *config.Config, log *zap.Logger) cors.Config {
	c := cors.DefaultConfig()
	if origins := cfg.GetAllowedOrigins(); len(origins) > 0 {
		c.AllowOrigins = origins
	} else {
		c.AllowOrigins = []string{"http://localhost:3000"}
		log.Info("CORSAllowedOrigins not set, allowing default", zap.String("origin", "http://localhost:3000"))
	}
	c.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	c.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization"}
	c.ExposeHeaders = []string{"X-Request-ID"}
	c.MaxAge = 12 * time.Hour
	return c
}
