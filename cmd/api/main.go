package main

import (
	"log"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"academybook/internal/config"
	"academybook/internal/database"
	"academybook/internal/middleware"
	"academybook/internal/modules/booking"
	"academybook/internal/modules/notification"
	"academybook/internal/queue"
	"academybook/internal/repository"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	logger, err := zap.NewProduction()
	if cfg.AppEnv == "dev" {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("database connect failed", zap.Error(err))
	}
	if err := repository.Migrate(db); err != nil {
		logger.Fatal("migrate failed", zap.Error(err))
	}

	bookingRepo := repository.NewBookingRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	jobRepo := repository.NewJobRepository(db)
	tokenRepo := repository.NewDeviceTokenRepository(db)
	contactRepo := repository.NewUserContactRepository(db)

	jobs := queue.New(jobRepo, logger, nil)
	notification.RegisterPolicies(jobs)

	var tokens notification.TokenResolver = tokenRepo
	var contacts notification.ContactResolver = contactRepo
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		tokens = notification.NewCachedTokenResolver(rdb, tokenRepo, logger)
		contacts = notification.NewCachedContactResolver(rdb, contactRepo, logger)
	}

	push := notification.NewBreakerPushClient(notification.LogPushClient{Log: logger})
	dispatcher := notification.NewDispatcher(push, tokens, contacts, jobs, logger)

	bookingService := booking.NewService(bookingRepo, auditRepo, dispatcher, logger)
	bookingHandler := booking.NewHandler(bookingService)

	if cfg.AppEnv != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.Default()

	v1 := r.Group("/api/v1")
	protected := v1.Group("/")
	protected.Use(middleware.Auth(cfg.JWTSecret))
	bookingHandler.RegisterRoutes(protected)

	logger.Info("api listening", zap.String("addr", cfg.HTTPAddr))
	if err := r.Run(cfg.HTTPAddr); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}
