package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/aalto-grades/aalto-grades-sub002/internal/config"
	"github.com/aalto-grades/aalto-grades-sub002/internal/database"
	"github.com/aalto-grades/aalto-grades-sub002/internal/graph"
	"github.com/aalto-grades/aalto-grades-sub002/internal/handler"
	"github.com/aalto-grades/aalto-grades-sub002/internal/middleware"
	"github.com/aalto-grades/aalto-grades-sub002/internal/models"
	"github.com/aalto-grades/aalto-grades-sub002/internal/repository"
	"github.com/aalto-grades/aalto-grades-sub002/internal/router"
	"github.com/aalto-grades/aalto-grades-sub002/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.Course{},
		&models.CourseTask{},
		&models.TaskGrade{},
		&models.GradingModel{},
		&models.FinalGrade{},
	); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.ConnectRedis(cfg.RedisURL)
		if err != nil {
			log.Fatalf("failed to connect to redis: %v", err)
		}
		defer redisClient.Close()
	} else {
		logger.Warn().Msg("redis url not set, summary caching disabled")
	}

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = nats.Connect(cfg.NATSURL)
		if err != nil {
			log.Fatalf("failed to connect to nats: %v", err)
		}
		defer natsConn.Drain()
	} else {
		logger.Warn().Msg("nats url not set, grade events disabled")
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	registry := graph.NewRegistry()
	evaluator := graph.NewEvaluator(registry)

	courseRepo := repository.NewCourseRepository(db)
	courseTaskRepo := repository.NewCourseTaskRepository(db)
	taskGradeRepo := repository.NewTaskGradeRepository(db)
	gradingModelRepo := repository.NewGradingModelRepository(db)
	finalGradeRepo := repository.NewFinalGradeRepository(db)

	events := service.NewNATSEventPublisher(natsConn, cfg.EventSubject, logger)

	courseService := service.NewCourseService(courseRepo, validate, logger)
	courseTaskService := service.NewCourseTaskService(courseTaskRepo, courseRepo, gradingModelRepo, validate, events, logger)
	gradingModelService := service.NewGradingModelService(gradingModelRepo, courseRepo, courseTaskRepo, registry, validate, logger)
	taskGradeService := service.NewTaskGradeService(taskGradeRepo, courseTaskRepo, validate, logger)
	finalGradeService := service.NewFinalGradeService(finalGradeRepo, taskGradeRepo, gradingModelRepo, evaluator, validate, events, logger)
	summaryService := service.NewGradeSummaryService(finalGradeRepo, courseRepo, redisClient, cfg.SummaryCacheTTL, logger)

	courseHandler := handler.NewCourseHandler(courseService, logger)
	courseTaskHandler := handler.NewCourseTaskHandler(courseTaskService, logger)
	gradingModelHandler := handler.NewGradingModelHandler(gradingModelService, logger)
	taskGradeHandler := handler.NewTaskGradeHandler(taskGradeService, logger)
	finalGradeHandler := handler.NewFinalGradeHandler(finalGradeService, summaryService, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		CourseHandler:       courseHandler,
		CourseTaskHandler:   courseTaskHandler,
		GradingModelHandler: gradingModelHandler,
		TaskGradeHandler:    taskGradeHandler,
		FinalGradeHandler:   finalGradeHandler,
		JWTMiddleware:       middleware.JWTProtected(cfg.JWTSecret),
		ImportRateLimit:     middleware.RateLimit("grade-import", cfg.ImportRateLimit, cfg.ImportRateWindow),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app)
}

func waitForShutdown(app *fiber.App) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
