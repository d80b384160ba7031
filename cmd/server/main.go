package main

import (
	"context"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/Infiora/infiora-backend/internal/auth"
	"github.com/Infiora/infiora-backend/internal/config"
	"github.com/Infiora/infiora-backend/internal/database"
	"github.com/Infiora/infiora-backend/internal/handler"
	"github.com/Infiora/infiora-backend/internal/middleware"
	"github.com/Infiora/infiora-backend/internal/queue"
	"github.com/Infiora/infiora-backend/internal/repository"
	"github.com/Infiora/infiora-backend/internal/router"
	queue_publisher "github.com/Infiora/infiora-backend/internal/service"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := database.EnsureSchema(ctx, db); err != nil {
		cancel()
		log.Fatalf("schema: %v", err)
	}
	cancel()

	users := repository.NewUserRepo(db)
	hotels := repository.NewHotelRepo(db)
	tokens := repository.NewTokenRepo(db)
	tokenSvc := auth.NewTokenService(tokens, users, cfg.JWTSecret, cfg.AccessTTLDays, cfg.RefreshTTLDays)

	// The email consumer runs in-process and retries the broker connection
	// on its own; a missing broker never blocks the API.
	go func() {
		if err := queue.StartEmailConsumer(); err != nil {
			log.Printf("email consumer stopped: %v", err)
		}
	}()

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.Logger())

	rdb := config.NewRedisClient()
	rl := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)

	router.RegisterRoutes(e)
	router.RegisterAPI(e, router.Deps{
		Auth:      handler.NewAuthHandler(users, tokenSvc, queue_publisher.PublishEmail, cfg.BcryptCost),
		Users:     handler.NewUserHandler(users, tokenSvc, cfg.BcryptCost),
		Hotels:    handler.NewHotelHandler(hotels),
		JWTSecret: cfg.JWTSecret,
		Accounts:  users,
		RateLimit: rl,
	})

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
