package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/Replant-Application/Replant-BE-sub002/cache"
	"github.com/Replant-Application/Replant-BE-sub002/config"
	"github.com/Replant-Application/Replant-BE-sub002/handlers"
	"github.com/Replant-Application/Replant-BE-sub002/logger"
	"github.com/Replant-Application/Replant-BE-sub002/middleware"
	"github.com/Replant-Application/Replant-BE-sub002/models"
	"github.com/Replant-Application/Replant-BE-sub002/queue"
	"github.com/Replant-Application/Replant-BE-sub002/services"
	"github.com/Replant-Application/Replant-BE-sub002/utils"
	"github.com/Replant-Application/Replant-BE-sub002/workers"
)

func main() {
	logger.Init()
	defer logger.Sync()

	dsn := config.Cfg.DatabaseURL
	if dsn == "" {
		logger.L.Fatal("DATABASE_URL environment variable not set")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		logger.L.Fatal("Failed to connect to database", zap.Error(err))
	}

	if err := db.AutoMigrate(
		&models.MissionType{},
		&models.MissionInstance{},
		&models.VerificationSubmission{},
		&models.Vote{},
		&models.Companion{},
		&models.Badge{},
		&models.OutcomeEvent{},
	); err != nil {
		logger.L.Fatal("Failed to migrate database", zap.Error(err))
	}
	if err := models.EnsureLiveAssignmentIndex(db); err != nil {
		logger.L.Fatal("Failed to create live assignment index", zap.Error(err))
	}

	// Optional infrastructure: the service degrades rather than dies
	// when Redis, RabbitMQ or S3 are unreachable at boot.
	if err := cache.Init(); err != nil {
		logger.L.Warn("Redis unavailable, scheduler locks disabled", zap.Error(err))
	}
	if err := queue.Init(); err != nil {
		logger.L.Warn("RabbitMQ unavailable, outcome events will queue in the outbox", zap.Error(err))
	}
	if err := utils.InitS3(); err != nil {
		logger.L.Warn("S3 unavailable, proof image upload disabled", zap.Error(err))
	}

	missionService := services.NewMissionService(db)
	verificationService := services.NewVerificationService(db)
	companionService := services.NewCompanionService(db)
	badgeService := services.NewBadgeService(db)

	if err := missionService.SeedMissionTypes(); err != nil {
		logger.L.Fatal("Failed to seed mission types", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scheduler := services.NewScheduler(missionService, companionService)
	if err := scheduler.Start(); err != nil {
		logger.L.Fatal("Failed to start scheduler", zap.Error(err))
	}
	defer scheduler.Stop()

	outcomeWorker := workers.NewOutcomeWorker(db)
	go outcomeWorker.Run(ctx)

	app := fiber.New(fiber.Config{
		AppName:   config.Cfg.ServiceName,
		BodyLimit: 20 * 1024 * 1024, // proof images come through here
	})

	// 🔐 Only gateway requests allowed — no exceptions
	app.Use(middleware.GatewayAuthMiddleware())

	app.Use(cors.New(cors.Config{
		AllowOrigins:     config.Cfg.AllowedOrigins,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, X-User-ID, X-User-Roles",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": config.Cfg.ServiceName})
	})

	handlers.SetupMissionRoutes(app, missionService)
	handlers.SetupVerificationRoutes(app, verificationService)
	handlers.SetupCompanionRoutes(app, companionService, badgeService)

	go func() {
		if err := app.Listen(":" + config.Cfg.ServerPort); err != nil {
			logger.L.Error("Server error", zap.Error(err))
		}
	}()

	logger.L.Info("✅ Mission service running",
		zap.String("port", config.Cfg.ServerPort),
		zap.String("environment", config.Cfg.Environment),
	)

	<-ctx.Done()
	logger.L.Info("Shutting down server...")

	if err := app.Shutdown(); err != nil {
		logger.L.Error("Shutdown error", zap.Error(err))
	}
	queue.Close()
	_ = cache.Close()
}
