package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/pongarena/backend/internal/api"
	"github.com/pongarena/backend/internal/bus"
	"github.com/pongarena/backend/internal/config"
	"github.com/pongarena/backend/internal/database"
	"github.com/pongarena/backend/internal/game"
	"github.com/pongarena/backend/internal/invite"
	"github.com/pongarena/backend/internal/migrations"
	"github.com/pongarena/backend/internal/notify"
	"github.com/pongarena/backend/internal/redis"
	"github.com/pongarena/backend/internal/ws"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := config.Load()

	db, err := database.Connect(cfg.DatabaseURL, cfg.DBMaxOpenConns, cfg.DBMaxIdleConns)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Run migrations on start if requested
	if os.Getenv("MIGRATE_ON_START") == "true" {
		log.Println("↗ Running DB migrations on startup...")
		if err := migrations.RunMigrations(cfg.DatabaseURL); err != nil {
			log.Fatalf("Failed to run migrations: %v", err)
		}
	}

	rdb, err := redis.Connect(cfg.RedisURL, cfg.RedisClientName)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer rdb.Close()

	ctx := context.Background()

	// Message bus: Redis-backed so group sends reach every node.
	messageBus := bus.NewRedisBus(rdb)
	go messageBus.Run(ctx)

	registry := game.NewRegistry()
	engine := game.NewEngine(game.NewResultStore(db), messageBus, registry,
		time.Duration(cfg.InactiveTimeoutSeconds)*time.Second,
		time.Duration(cfg.GameOverLingerSeconds)*time.Second)

	notifier := notify.New(db, messageBus)
	invites := invite.NewService(db, messageBus, notifier,
		time.Duration(cfg.InviteExpirySeconds)*time.Second)
	go invites.RunExpiry(ctx, time.Duration(cfg.InviteSweepPollSeconds)*time.Second)

	// Matchmaker worker, one sweep at a time across the fleet.
	lock := redis.NewLock(rdb, "matchmaking:lock", time.Duration(cfg.MatchmakerLockSeconds)*time.Second)
	matchmaker := game.NewMatchmaker(db, messageBus, lock,
		time.Duration(cfg.MatchmakerPollSeconds)*time.Second)
	go matchmaker.Run(ctx)

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()

	deps := &ws.Deps{
		DB:       db,
		Bus:      messageBus,
		Cfg:      cfg,
		Engine:   engine,
		Registry: registry,
		Invites:  invites,
		Notifier: notifier,
	}
	api.SetupRoutes(router, deps, rdb)

	port := cfg.Port
	if port == "" {
		port = "8080"
	}

	log.Printf("Starting PongArena server on port %s", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
