package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"ironquest/config"
	"ironquest/database"
	"ironquest/handlers"
	"ironquest/middleware"
	"ironquest/services"
	"ironquest/utils"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("FATAL: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("FATAL: %v", err)
	}
	if cfg.IsProduction() && (cfg.CORSOrigins == "" || cfg.CORSOrigins == "http://localhost:3000") {
		log.Println("WARNING: CORS_ORIGINS not properly configured for production")
	}

	zl, err := utils.InitLogger(cfg)
	if err != nil {
		log.Fatalf("FATAL: init logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	db := database.InitDB(cfg)
	defer database.CloseDB()

	if err := database.SeedCatalog(db, database.DefaultCatalog()); err != nil {
		zl.Fatal("seed achievement catalog", zap.Error(err))
	}

	rdb := utils.NewRedis(cfg)
	if rdb != nil {
		defer rdb.Close()
	}

	hub := services.NewHub()
	cache := services.NewProgressCache(rdb, cfg.CacheTTL, zl)
	notifier := services.MultiNotifier{
		services.LogNotifier{Log: zl},
		services.NewRedisPushQueue(rdb),
		hub,
	}

	progress := services.NewProgressionService(db,
		services.WithNotifier(notifier),
		services.WithCache(cache),
		services.WithLogger(zl),
	)

	resetJob := services.NewWeeklyResetJob(db, cfg.ResetChunkSize, cfg.ResetTimeout, zl)
	resetLock := services.NewJobLock(rdb, services.WeeklyResetLockKey, cfg.ResetTimeout+time.Minute)
	runner := services.NewWeeklyResetRunner(db, resetJob, resetLock, notifier, cache, zl)

	scheduler := services.NewWeeklyResetScheduler(runner, services.Schedule{
		Weekday:  cfg.ResetWeekday,
		Hour:     cfg.ResetHour,
		Minute:   cfg.ResetMinute,
		Location: cfg.ResetLocation,
	}, zl)
	if !cfg.SchedulerDisabled {
		scheduler.Start()
		defer scheduler.Stop()
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler,
		BodyLimit:    4 * 1024 * 1024, // 4MB
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(requestid.New(requestid.Config{Generator: uuid.NewString}))
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${locals:requestid} ${status} - ${method} ${path} (${latency})\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
	}))
	app.Use(middleware.FiberRateLimitMiddleware(middleware.NewRateLimiter(cfg.RateLimitPerMinute)))

	h := &handlers.Handler{
		DB:       db,
		Auth:     middleware.NewAuth(cfg.JWTSecret, cfg.TokenTTL),
		Progress: progress,
		Quests:   services.NewQuestService(progress),
		Activity: services.NewActivityService(progress),
		Reset:    runner,
		Hub:      hub,
		Log:      zl,

		AuthLimiter: middleware.NewAuthRateLimiter(cfg.AuthRateLimitMax, cfg.AuthRateLimitWindow),
	}
	h.Routes(app)

	go func() {
		zl.Info("HTTP server starting",
			zap.String("port", cfg.Port),
			zap.String("env", cfg.AppEnv),
			zap.Bool("redis", rdb != nil),
			zap.Bool("weekly_reset_scheduler", !cfg.SchedulerDisabled))
		if err := app.Listen(":" + cfg.Port); err != nil {
			zl.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(ctx); err != nil {
		zl.Warn("server shutdown error", zap.Error(err))
	}
	zl.Info("server stopped")
}
