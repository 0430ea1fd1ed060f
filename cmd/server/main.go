package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/360-proctor/proctoring-service/internal/cache"
	"github.com/360-proctor/proctoring-service/internal/config"
	"github.com/360-proctor/proctoring-service/internal/detection"
	"github.com/360-proctor/proctoring-service/internal/events"
	"github.com/360-proctor/proctoring-service/internal/handlers"
	"github.com/360-proctor/proctoring-service/internal/models"
	"github.com/360-proctor/proctoring-service/internal/proctoring"
	"github.com/360-proctor/proctoring-service/internal/repositories/postgres"
	"github.com/360-proctor/proctoring-service/internal/services"
	"github.com/360-proctor/proctoring-service/internal/utils"
	"github.com/360-proctor/proctoring-service/internal/ws"
	"github.com/360-proctor/proctoring-service/pkg"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		panic("failed to load configuration: " + err.Error())
	}

	var logger utils.Logger
	if cfg.Environment == "production" {
		logger = utils.NewDefaultLogger()
	} else {
		logger = utils.NewDevelopmentLogger()
	}
	slogger := utils.ToSlogLogger(logger)

	// Database
	db, err := pkg.InitDatabase(cfg)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	if err := db.AutoMigrate(
		&models.User{},
		&models.Exam{},
		&models.ExamProctoringSettings{},
		&models.ExamSession{},
		&models.Alert{},
		&models.Notification{},
	); err != nil {
		logger.Error("Failed to run database migrations", "error", err)
		os.Exit(1)
	}
	repo := postgres.NewRepository(db)

	// Redis cache
	redisClient, err := pkg.NewRedisClient(cfg)
	if err != nil {
		logger.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	zapLogger, err := zap.NewProduction()
	if err != nil {
		logger.Error("Failed to initialize cache logger", "error", err)
		os.Exit(1)
	}
	cacheService := cache.NewRedisCache(redisClient, zapLogger)

	// Event publisher
	var publisher events.EventPublisher
	if cfg.EventsEnabled {
		publisher, err = events.NewKafkaEventPublisher(events.PublisherConfig{
			KafkaBrokers: cfg.KafkaBrokers,
			TopicName:    cfg.KafkaTopic,
			Logger:       slogger,
		})
		if err != nil {
			logger.Error("Failed to create Kafka publisher, falling back to mock", "error", err)
			publisher = events.NewMockEventPublisher(slogger)
		}
	} else {
		publisher = events.NewMockEventPublisher(slogger)
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			logger.Error("Failed to close event publisher", "error", err)
		}
	}()

	// Realtime hub and proctoring pipeline
	hub := ws.NewHub(slogger)
	coordinator := proctoring.NewCoordinator(
		detection.NewClassifier(slogger),
		proctoring.NewTrustScoreEngine(slogger),
		proctoring.NewLedger(),
		proctoring.CoordinatorOptions{
			Publisher: publisher,
			Hub:       hub,
			Repo:      repo,
			Cache:     cacheService,
			Logger:    slogger,
		},
	)

	// Services
	validator := utils.NewValidator()
	examService := services.NewExamService(repo, cacheService, slogger, validator)
	alertService := services.NewAlertService(repo, slogger, validator)
	notificationService := services.NewNotificationService(repo, publisher, slogger, validator)
	reportService := services.NewReportService(repo, coordinator, slogger)

	// HTTP server
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.LoggerMiddleware(logger))

	handlerManager := handlers.NewHandlerManager(
		coordinator,
		examService,
		alertService,
		notificationService,
		reportService,
		hub,
		validator,
		logger,
	)
	handlerManager.SetupRoutes(router)

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logger.Info("Starting proctoring service", "port", cfg.Port, "environment", cfg.Environment)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Forced shutdown", "error", err)
	}
	logger.Info("Server stopped")
}
