package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"battle-seoul/config"
	"battle-seoul/handlers"
	"battle-seoul/middleware"
	"battle-seoul/models"
	"battle-seoul/services"
	"battle-seoul/utils"
	"battle-seoul/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := utils.NewLogger(cfg.Log)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync()

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{TranslateError: true})
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	if err := db.AutoMigrate(models.AutoMigrateModels()...); err != nil {
		logger.Fatal("failed to migrate database", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var uploader services.Uploader
	if cfg.R2.Enabled() {
		r2, err := utils.NewR2Uploader(ctx, cfg.R2)
		if err != nil {
			logger.Fatal("failed to initialize R2 client", zap.Error(err))
		}
		uploader = r2
	} else {
		logger.Warn("R2 not configured, image uploads disabled")
	}

	clock := clockwork.NewRealClock()

	pointsService := services.NewPointsService(db, clock, logger)
	contenderService := services.NewContenderService(db, uploader, clock, logger)
	matchingService := services.NewMatchingService(db, cfg.Matching, cfg.Scoring, clock, logger)
	votingService := services.NewVotingService(db, pointsService, cfg.VotePoints, clock, logger)
	streamService := services.NewBattleStreamService(db, clock, logger)

	worker := workers.NewMatchingWorker(matchingService, cfg.Matching.DefaultMaxMatches,
		cfg.Matching.Interval, cfg.Matching.ExpirySweep, logger)
	if err := worker.Start(); err != nil {
		logger.Fatal("failed to start scheduler", zap.Error(err))
	}

	app := fiber.New(fiber.Config{
		BodyLimit:    utils.MaxImageBytes + 1024*1024,
		ErrorHandler: handlers.NewErrorHandler(logger),
	})

	// Only gateway requests are allowed.
	app.Use(middleware.GatewayAuthMiddleware(cfg.ServiceToken, logger))

	app.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Join(cfg.AllowedOrigins, ","),
		AllowMethods:     "GET,POST,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Accept-Language, Authorization, X-Requested-With, X-Request-ID, Cache-Control, X-User-ID, X-User-Roles",
		ExposeHeaders:    "Content-Length, Content-Type, X-Request-ID",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	handlers.SetupContenderRoutes(app, contenderService)
	handlers.SetupBattleRoutes(app, matchingService, votingService, streamService)
	handlers.SetupProgressionRoutes(app, pointsService)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			logger.Error("server error", zap.Error(err))
			stop()
		}
	}()

	logger.Info("server running",
		zap.String("port", cfg.Port),
		zap.Strings("allowed_origins", cfg.AllowedOrigins),
		zap.Duration("matching_cooldown", cfg.Matching.Cooldown))

	<-ctx.Done()
	logger.Info("shutting down")

	if err := worker.Stop(); err != nil {
		logger.Error("scheduler shutdown", zap.Error(err))
	}
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
}
