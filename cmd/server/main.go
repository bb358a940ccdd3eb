package main // Entry point package

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/parking-lot-reservation/internal/cache"
	"github.com/iliyamo/parking-lot-reservation/internal/config"
	"github.com/iliyamo/parking-lot-reservation/internal/database"
	"github.com/iliyamo/parking-lot-reservation/internal/handler"
	"github.com/iliyamo/parking-lot-reservation/internal/middleware"
	"github.com/iliyamo/parking-lot-reservation/internal/model"
	"github.com/iliyamo/parking-lot-reservation/internal/queue"
	"github.com/iliyamo/parking-lot-reservation/internal/repository"
	"github.com/iliyamo/parking-lot-reservation/internal/router"
	"github.com/iliyamo/parking-lot-reservation/internal/service"
)

func main() {
	_ = godotenv.Load() // .env is optional; real env vars win
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := database.Migrate(ctx, db); err != nil {
		cancel()
		log.Fatalf("migrate: %v", err)
	}
	if err := ensureAdmin(ctx, db, cfg); err != nil {
		cancel()
		log.Fatalf("bootstrap admin: %v", err)
	}
	cancel()

	// Redis backs the listing cache and the rate limiter; both degrade
	// to pass-through when it is unreachable.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Println("redis unavailable: listing cache and rate limiting disabled")
	}
	listing := cache.NewLotListingCache(rdb, config.LoadListingCacheConfig())

	lots := repository.NewLotRepo(db)
	spots := repository.NewSpotRepo(db)
	reservations := repository.NewReservationRepo(db)
	users := repository.NewUserRepo(db)

	publisher := queue.NewPublisher()
	engine := service.NewAllocationEngine(db, lots, spots, reservations, listing, publisher)
	reporting := service.NewReportingService(users, reservations)

	// Background workers: receipt log for closed reservations and the
	// export/report task runner. Both reconnect forever on their own.
	go func() {
		if err := queue.StartReservationLogConsumer(); err != nil {
			log.Printf("closed-consumer stopped: %v", err)
		}
	}()
	go func() {
		if err := queue.StartTaskConsumer(reporting); err != nil {
			log.Printf("task-consumer stopped: %v", err)
		}
	}()

	e := echo.New()
	e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))

	router.RegisterRoutes(e)
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, users), cfg.JWTSecret)
	router.RegisterUser(e, handler.NewReservationHandler(engine, reporting, publisher), cfg.JWTSecret)
	router.RegisterAdmin(e,
		handler.NewLotAdminHandler(engine, lots, spots),
		handler.NewAdminReportHandler(reporting, publisher),
		cfg.JWTSecret)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}

// ensureAdmin creates the admin account on first start when
// ADMIN_USERNAME and ADMIN_PASSWORD are set and the user is absent.
func ensureAdmin(ctx context.Context, db *sql.DB, cfg config.Config) error {
	username := os.Getenv("ADMIN_USERNAME")
	password := os.Getenv("ADMIN_PASSWORD")
	if username == "" || password == "" {
		return nil
	}
	users := repository.NewUserRepo(db)
	if _, err := users.GetByUsername(ctx, username); err == nil {
		return nil
	} else if !errors.Is(err, sql.ErrNoRows) {
		return err
	}
	_, err := users.Create(ctx, username, password, model.RoleAdmin, cfg.BcryptCost)
	if err != nil && !errors.Is(err, repository.ErrUsernameExists) {
		return err
	}
	log.Printf("created admin account %q", username)
	return nil
}
