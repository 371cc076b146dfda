package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/reelworks/mediagen/internal/client"
	"github.com/reelworks/mediagen/internal/config"
	"github.com/reelworks/mediagen/internal/dispatch"
	"github.com/reelworks/mediagen/internal/handler"
	"github.com/reelworks/mediagen/internal/middleware"
	"github.com/reelworks/mediagen/internal/model"
	"github.com/reelworks/mediagen/internal/service"
	"github.com/reelworks/mediagen/internal/store"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize Redis client
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx := context.Background()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Printf("Warning: Redis not available: %v", err)
	}

	// Job store
	jobStore := store.NewRedisStore(redisClient)

	// Object storage (falls back to in-process storage when unconfigured)
	var storage client.StorageClient
	if cfg.Storage.AccessKeyID != "" && cfg.Storage.SecretAccessKey != "" {
		s3Client, err := client.NewS3Client(&cfg.Storage)
		if err != nil {
			log.Fatalf("Failed to initialize object storage: %v", err)
		}
		storage = s3Client
	} else {
		log.Println("Info: object storage not configured, using in-process storage")
		storage = client.NewMemoryStorage()
	}

	// Task dispatcher
	var dispatcher dispatch.Dispatcher
	switch cfg.Dispatch.Backend {
	case "local":
		log.Printf("Info: local dispatch backend (%s)", cfg.Dispatch.WorkerBin)
		dispatcher = dispatch.NewLocalDispatcher(cfg.Dispatch.WorkerBin)
	default:
		asynqClient := asynq.NewClient(asynq.RedisClientOpt{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer asynqClient.Close()
		dispatcher = dispatch.NewQueueDispatcher(asynqClient)
	}

	// Initialize validator
	validate := validator.New()

	// Services
	trailerService := service.NewTrailerService(jobStore, dispatcher, storage, cfg)
	clipService := service.NewClipExtractorService(jobStore, dispatcher, cfg)
	videoQcService := service.NewVideoQcService(jobStore, dispatcher, storage, cfg)

	// Handlers
	trailerHandler := handler.NewTrailerHandler(trailerService, validate)
	clipHandler := handler.NewClipExtractorHandler(clipService, storage, validate)
	videoQcHandler := handler.NewVideoQcHandler(videoQcService, validate)
	progressHandler := handler.NewProgressHandler(validate,
		trailerService.Flow(), clipService.Flow(), videoQcService.Flow())

	rateLimiter := middleware.NewRateLimiter(redisClient)

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: customErrorHandler,
		BodyLimit:    10 * 1024 * 1024, // 10MB
	})

	// Global middleware
	app.Use(recover.New())
	logFormat := "[${time}] ${status} - ${latency} ${method} ${path}\n"
	if strings.EqualFold(cfg.Server.LogLevel, "debug") {
		logFormat = "[${time}] ${status} - ${latency} ${method} ${path} ${queryParams} ${body}\n"
		log.Println("Debug logging enabled")
	}
	app.Use(logger.New(logger.Config{
		Format: logFormat,
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))

	// Base URL - timestamp
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"timestamp": time.Now().Unix(),
		})
	})

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		redisOK := redisClient.Ping(c.Context()).Err() == nil
		return c.JSON(fiber.Map{
			"status": "ok",
			"services": fiber.Map{
				"redis":    redisOK,
				"storage":  cfg.Storage.AccessKeyID != "",
				"dispatch": cfg.Dispatch.Backend,
			},
		})
	})

	createLimit := rateLimiter.CreateLimit(cfg.RateLimit.CreatePerHour)
	startLimit := rateLimiter.StartLimit(cfg.RateLimit.StartPerHour)

	// Trailer routes
	trailer := app.Group("/trailer")
	trailer.Post("/project", createLimit, trailerHandler.CreateProject)
	trailer.Post("/generate/:projectId", startLimit, trailerHandler.Generate)
	trailer.Post("/draft-narrative", startLimit, trailerHandler.DraftNarrative)
	trailer.Post("/approve-narrative", startLimit, trailerHandler.ApproveNarrative)
	trailer.Get("/narrative/:projectId", trailerHandler.Narrative)
	trailer.Get("/narrative-status/:projectId", trailerHandler.NarrativeStatus)
	trailer.Get("/status/:projectId", trailerHandler.Status)
	trailer.Get("/project/:projectId", trailerHandler.Project)
	trailer.Get("/projects", trailerHandler.List)
	trailer.Post("/progress/:projectId",
		middleware.InternalAuth(cfg.Internal.Secret, model.KindTrailer),
		progressHandler.Handle(model.KindTrailer))

	// Clip extractor routes
	clips := app.Group("/clip-extractor")
	clips.Post("/project", createLimit, clipHandler.CreateProject)
	clips.Post("/extract/:projectId", startLimit, clipHandler.Extract)
	clips.Get("/status/:projectId", clipHandler.Status)
	clips.Get("/project/:projectId", clipHandler.Project)
	clips.Get("/projects", clipHandler.List)
	clips.Get("/stream/:projectId/:fileName", clipHandler.Stream)
	clips.Post("/progress/:projectId",
		middleware.InternalAuth(cfg.Internal.Secret, model.KindClipExtractor),
		progressHandler.Handle(model.KindClipExtractor))

	// Video QC routes
	videoQc := app.Group("/video-qc")
	videoQc.Post("/project", createLimit, videoQcHandler.CreateProject)
	videoQc.Post("/initiate/:projectId", startLimit, videoQcHandler.Initiate)
	videoQc.Get("/status/:projectId", videoQcHandler.Status)
	videoQc.Get("/project/:projectId", videoQcHandler.Project)
	videoQc.Get("/projects", videoQcHandler.List)
	videoQc.Post("/progress/:projectId",
		middleware.InternalAuth(cfg.Internal.Secret, model.KindVideoQc),
		progressHandler.Handle(model.KindVideoQc))

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Println("Shutting down server...")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
	}()

	// Start server
	addr := ":" + cfg.Server.Port
	log.Printf("Server starting on %s", addr)
	if err := app.Listen(addr); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	return c.Status(code).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    "SERVICE_ERROR",
			"message": message,
		},
	})
}
