package main

import (
	"context"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/communityhq/opportunity-board/config"
	"github.com/communityhq/opportunity-board/database"
	"github.com/communityhq/opportunity-board/handlers"
	"github.com/communityhq/opportunity-board/jobs"
	"github.com/communityhq/opportunity-board/services"
	"github.com/communityhq/opportunity-board/shared"
	"github.com/sirupsen/logrus"
)

func main() {
	// Load config
	cfg := config.LoadConfig()

	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logrus.SetLevel(level)
	}

	// Connect to database
	if err := database.Connect(cfg.DatabaseURL); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	// Run migrations
	if err := database.Migrate("database/schema.sql"); err != nil {
		log.Printf("Migration warning: %v", err)
	}

	clientFactory := shared.NewHTTPClientFactory(30 * time.Second)

	fetcherConfig := config.DefaultFetcherConfig()
	fetcherConfig.EnableRenderer = cfg.RendererEnabled()
	extractionConfig := config.DefaultExtractionConfig()

	// Initialize services
	opportunityService := services.NewOpportunityService(database.DB)
	tagService := services.NewTagService(database.DB)
	companyService := services.NewCompanyService(database.DB)
	fetcher := services.NewPageContentFetcher(fetcherConfig)
	aiClient := services.NewChatCompletionClient(cfg.AIBaseURL, cfg.AIAPIKey, cfg.AIModel, extractionConfig, clientFactory)

	var notifier services.NotificationEmitter = services.NoopNotificationEmitter{}
	if cfg.SlackBotToken != "" {
		notifier = services.NewSlackNotificationEmitter(cfg.SlackBotToken, clientFactory)
	}

	var analytics services.AnalyticsEmitter = services.NoopAnalyticsEmitter{}
	if cfg.AnalyticsEndpoint != "" {
		analytics = services.NewHTTPAnalyticsEmitter(cfg.AnalyticsEndpoint, cfg.AnalyticsAPIKey, clientFactory)
	}

	queue := jobs.NewQueue(cfg.GetJobWorkerCount())

	enrichmentService := services.NewEnrichmentService(
		opportunityService, tagService, companyService,
		fetcher, aiClient, notifier, analytics, queue, *extractionConfig,
	)
	moderationService := services.NewModerationService(opportunityService, fetcher, analytics, queue)

	jobs.RegisterHandlers(queue, enrichmentService, moderationService, notifier, analytics)
	queue.Start(context.Background())
	defer queue.Stop()

	// Periodic expiration sweeps. The done channel parks the ticker before
	// the queue shuts down.
	sweepDone := make(chan struct{})
	defer close(sweepDone)
	go func() {
		sweepTicker := time.NewTicker(cfg.GetSweepInterval())
		defer sweepTicker.Stop()

		for {
			select {
			case <-sweepDone:
				return
			case <-sweepTicker.C:
				err := queue.Enqueue(services.JobSweepExpired, services.SweepExpiredPayload{Limit: 50})
				if err != nil {
					shared.ReportException("sweep_ticker", err)
				}
			}
		}
	}()

	// Initialize handlers
	opportunityHandler := handlers.NewOpportunityHandler(opportunityService, enrichmentService, moderationService, queue)
	tagHandler := handlers.NewTagHandler(tagService)

	// Setup Fiber
	app := fiber.New()

	// Middleware
	app.Use(logger.New())
	app.Use(cors.New())

	// Health check endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		if err := database.HealthCheck(); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"status": "degraded",
				"error":  err.Error(),
			})
		}
		return c.JSON(fiber.Map{
			"status":    "ok",
			"timestamp": time.Now().Unix(),
		})
	})

	// Routes
	api := app.Group("/api/v1")

	// Opportunity routes
	api.Get("/opportunities", opportunityHandler.List)
	api.Post("/opportunities", opportunityHandler.Submit)
	api.Get("/opportunities/:id", opportunityHandler.Get)
	api.Put("/opportunities/:id", opportunityHandler.Edit)
	api.Delete("/opportunities/:id", opportunityHandler.Delete)
	api.Post("/opportunities/:id/bookmark", opportunityHandler.ToggleBookmark)
	api.Post("/opportunities/:id/report", opportunityHandler.Report)
	api.Post("/opportunities/:id/refine", opportunityHandler.Refine)
	api.Post("/opportunities/:id/check", opportunityHandler.TriggerExpirationCheck)

	// Chat ingestion webhook
	api.Post("/slack/opportunity", opportunityHandler.IngestSlackMessage)

	// Tag routes
	api.Get("/tags", tagHandler.List)
	api.Post("/tags", tagHandler.Create)

	// Start server
	log.Printf("Server starting on port %s", cfg.ServerPort)
	if err := app.Listen(":" + cfg.ServerPort); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
}
