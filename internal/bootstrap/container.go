package bootstrap

import (
	"context"
	"log"

	"eaglearn-be/internal/broker"
	"eaglearn-be/internal/config"
	"eaglearn-be/internal/controller"
	"eaglearn-be/internal/fusion"
	"eaglearn-be/internal/handler"
	"eaglearn-be/internal/pkg/crypto"
	"eaglearn-be/internal/pkg/logger"
	"eaglearn-be/internal/repository/memory"
	"eaglearn-be/internal/repository/unitofwork"
	"eaglearn-be/internal/service"
	"eaglearn-be/pkg/events"

	pktNats "eaglearn-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	SessionController     controller.ISessionController
	DashboardController   controller.IDashboardController
	CalibrationController controller.ICalibrationController

	// Background Services (Exposed for main.go to run)
	PersisterService service.IPersisterService
	RetentionService service.IRetentionService

	// Streaming
	StreamHandler *handler.StreamHandler
	StreamHub     *broker.Hub
	Pipeline      *fusion.Pipeline

	db *gorm.DB
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core Facades
	cipher, err := crypto.NewFieldCipher(cfg.Security.EncryptionKey)
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize field cipher: %v", err)
	}
	uowFactory := unitofwork.NewRepositoryFactory(db, cipher)
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")
	streamLogger := logger.NewIsolatedLogger(cfg.App.StreamLogFilePath)

	// 2. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	// 2.5 Infrastructure
	// NATS
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
	}
	natsSub, err := pktNats.NewSubscriber(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Subscriber: %v", err)
	}

	// Redis
	opt, err := redis.ParseURL(cfg.App.RedisURL)
	if err != nil {
		log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
		opt = &redis.Options{
			Addr: cfg.App.RedisURL,
		}
	}
	rdb := redis.NewClient(opt)
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Printf("[WARN] Failed to connect to Redis: %v", err)
	}

	// Stream Broker
	resumeRepo := memory.NewResumptionRepository(cfg.Broker.ResumeWindow)
	hub := broker.NewHub(cfg.Broker, resumeRepo, rdb, streamLogger)
	go hub.Run(context.Background())

	// 3. Services
	observationPublisher := service.NewPublisherService(cfg.Keys.ObservationTopic, pubSub)
	scorePublisher := service.NewPublisherService(cfg.Keys.ScoreTopic, pubSub)

	scoreRouter := service.NewScoreRouter(hub, scorePublisher, natsPub, sysLogger)
	pipeline := fusion.NewPipeline(cfg.Fusion, scoreRouter, sysLogger)
	go pipeline.Run(context.Background())

	monitorService := service.NewMonitorService(
		uowFactory,
		pipeline,
		hub,
		observationPublisher,
		natsPub,
		sysLogger,
	)
	persisterService := service.NewPersisterService(
		pubSub,
		cfg.Keys.ObservationTopic,
		cfg.Keys.ScoreTopic,
		uowFactory,
		sysLogger,
	)
	retentionService := service.NewRetentionService(cfg.Retention, uowFactory, hub, sysLogger)
	dashboardService := service.NewDashboardService(uowFactory)
	calibrationService := service.NewCalibrationService(uowFactory)

	// Durable audit trail of mirrored events
	if natsSub != nil {
		if err := natsSub.Subscribe("events.>", "eaglearn_event_audit", func(ctx context.Context, event events.Event) error {
			sysLogger.Info("event_audit", event.EventType(), event.Payload())
			return nil
		}); err != nil {
			log.Printf("[WARN] Failed to subscribe to event audit: %v", err)
		}
	}

	// 4. Controllers & Handlers
	streamHandler := handler.NewStreamHandler(hub, monitorService, streamLogger)

	return &Container{
		SessionController:     controller.NewSessionController(monitorService),
		DashboardController:   controller.NewDashboardController(dashboardService),
		CalibrationController: controller.NewCalibrationController(calibrationService),

		PersisterService: persisterService,
		RetentionService: retentionService,

		StreamHandler: streamHandler,
		StreamHub:     hub,
		Pipeline:      pipeline,

		db: db,
	}
}

// HealthCheck reports readiness of the database and the persistence path.
func (c *Container) HealthCheck(ctx *fiber.Ctx) error {
	dbStatus := "ok"
	sqlDB, err := c.db.DB()
	if err != nil {
		dbStatus = "error"
	} else if err := sqlDB.PingContext(ctx.Context()); err != nil {
		dbStatus = "error"
	}

	persistence := "ok"
	if c.PersisterService.Degraded() {
		persistence = "degraded"
	}

	status := fiber.StatusOK
	if dbStatus != "ok" {
		status = fiber.StatusServiceUnavailable
	}

	return ctx.Status(status).JSON(fiber.Map{
		"database":    dbStatus,
		"persistence": persistence,
	})
}
