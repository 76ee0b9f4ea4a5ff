package main // Entry point package

import (
	"context"
	"log"
	"os"

	"github.com/joho/godotenv"    // Load environment variables from .env
	"github.com/labstack/echo/v4" // Echo web framework
	"go.uber.org/zap"

	"github.com/civictrack/road-registry/internal/config"
	"github.com/civictrack/road-registry/internal/database"
	"github.com/civictrack/road-registry/internal/handler"
	"github.com/civictrack/road-registry/internal/logger"
	"github.com/civictrack/road-registry/internal/queue"
	"github.com/civictrack/road-registry/internal/repository"
	"github.com/civictrack/road-registry/internal/router"
	"github.com/civictrack/road-registry/internal/service"
)

func main() {
	// A missing .env is fine in production where real env vars are set.
	_ = godotenv.Load()

	cfg := config.Load()
	zl := logger.Must(os.Getenv("LOG_LEVEL"))
	defer func() { _ = zl.Sync() }()

	db, err := database.Open(context.Background(), cfg)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}
	defer func() { _ = db.Close() }()

	// Redis backs the response cache and rate limiter on the public road
	// routes; nil means "run without them".
	rdb := config.NewRedisClient()
	if rdb == nil {
		zl.Warn("redis unavailable, running without cache and rate limiting")
	}

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	roads := repository.NewRoadRepo(db)
	builders := repository.NewBuilderRepo(db)
	ratings := repository.NewRatingRepo(db, roads)
	reviews := repository.NewReviewRepo(db, roads)

	sessions := service.NewSessionService(users, tokens, service.SessionConfig{
		JWTSecret:      cfg.JWTSecret,
		AccessTTLMin:   cfg.AccessTTLMin,
		RefreshTTLDays: cfg.RefreshTTLDays,
		BcryptCost:     cfg.BcryptCost,
	}, zl)

	media, err := service.NewMediaStore(cfg.MediaDir, cfg.MediaMaxBytes)
	if err != nil {
		log.Fatalf("media store init failed: %v", err)
	}

	authH := handler.NewAuthHandler(sessions)
	roadH := handler.NewRoadHandler(roads, ratings, reviews, media, cfg.APIURL, zl)
	employeeH := handler.NewEmployeeHandler(roads, builders, users)
	builderH := handler.NewBuilderHandler(roads, builders)

	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()

	router.RegisterRoutes(e)
	router.RegisterAuth(e, authH, cfg.JWTSecret, users)
	router.RegisterPublic(e, roadH, builderH, rdb)
	router.RegisterUser(e, roadH, cfg.JWTSecret, users)
	router.RegisterEmployee(e, employeeH, cfg.JWTSecret, users)
	router.RegisterBuilder(e, builderH, cfg.JWTSecret, users)

	// The contribution consumer keeps its own reconnect loop; it never
	// returns under normal operation.
	go func() {
		if err := queue.StartContributionConsumer(); err != nil {
			zl.Error("contribution consumer stopped", zap.Error(err))
		}
	}()

	addr := ":" + cfg.Port
	zl.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env))
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
