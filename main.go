// Package main provides the main entry point for the drip engine service
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/engageworks/drip-engine/app/handlers"
	"github.com/engageworks/drip-engine/app/middleware"
	"github.com/engageworks/drip-engine/app/router"
	"github.com/engageworks/drip-engine/app/scheduler"
	"github.com/engageworks/drip-engine/app/services"
	businessflow "github.com/engageworks/drip-engine/business_flow"
	"github.com/engageworks/drip-engine/config"
	"github.com/engageworks/drip-engine/models"
	"github.com/engageworks/drip-engine/repository"
	"github.com/gofiber/fiber/v3"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Application represents the main application structure
type Application struct {
	router    *router.FiberRouter
	config    *config.ProductionConfig
	server    *fiber.App
	stopFuncs []func()
}

func main() {
	log.Println("Starting drip engine...")

	// Load production configuration
	cfg, err := config.LoadProductionConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize application
	app, err := initializeApplication(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	// Setup routes
	app.router.SetupRoutes()

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Start server in goroutine
	go func() {
		address := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		log.Printf("Server starting on %s", address)

		if err := app.server.Listen(address); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for shutdown signal
	<-sigChan
	log.Println("Shutting down gracefully...")

	// Stop background workers
	for _, fn := range app.stopFuncs {
		fn()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := app.server.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}

	log.Println("Server stopped")
}

// initializeDatabase initializes the database connection with connection pooling
func initializeDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name, cfg.SSLMode)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Get underlying sql.DB for connection pooling configuration
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	// Configure connection pooling
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	// Test the connection
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Printf("Database connection established with %d max open connections, %d max idle connections",
		cfg.MaxOpenConns, cfg.MaxIdleConns)

	return db, nil
}

// initializeCache initializes the Cache client and verifies connectivity
func initializeCache(cfg config.CacheConfig) (*redis.Client, error) {
	if !cfg.Enabled || cfg.Provider != "redis" {
		return nil, nil
	}

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	// Override DB if provided in config
	opt.DB = cfg.RedisDB

	rc := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rc.Ping(ctx).Err(); err != nil {
		_ = rc.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	log.Printf("Redis connection established to %s (db=%d)", cfg.RedisURL, cfg.RedisDB)
	return rc, nil
}

// startCacheHealthMonitor starts a background goroutine that periodically pings Redis
// to detect connectivity issues. The returned cancel function stops the monitor.
func startCacheHealthMonitor(parent context.Context, client *redis.Client, interval time.Duration) func() {
	monitorCtx, cancel := context.WithCancel(parent)
	if interval <= 0 {
		interval = 30 * time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-monitorCtx.Done():
				return
			case <-ticker.C:
				ctx, c := context.WithTimeout(context.Background(), 3*time.Second)
				if err := client.Ping(ctx).Err(); err != nil {
					log.Printf("Redis healthcheck failed: %v", err)
				}
				c()
			}
		}
	}()
	return cancel
}

// initializeGateway selects the outbound WhatsApp gateway implementation
func initializeGateway(cfg *config.ProductionConfig) services.WhatsAppGateway {
	if cfg.Gateway.Mock {
		log.Println("Using mock WhatsApp gateway")
		return services.NewMockWhatsAppGateway()
	}
	return services.NewWhatsAppGateway(&cfg.Gateway)
}

// initializeClassifier selects the intent classifier and lead extractor implementations
func initializeClassifier(cfg *config.ProductionConfig) (services.IntentClassifier, services.LeadExtractor) {
	if cfg.Classifier.Mock {
		log.Println("Using mock intent classifier and lead extractor")
		return services.NewMockIntentClassifier(models.IntentGeneral), services.NewMockLeadExtractor(nil)
	}
	return services.NewIntentClassifier(&cfg.Classifier), services.NewLeadExtractor(&cfg.Classifier)
}

// initializeApplication initializes the main application components
func initializeApplication(cfg *config.ProductionConfig) (*Application, error) {
	var stopFuncs []func()

	// Initialize database
	db, err := initializeDatabase(cfg.Database)
	if err != nil {
		return nil, err
	}

	rc, err := initializeCache(cfg.Cache)
	if err != nil {
		return nil, err
	}

	if rc != nil {
		cancel := startCacheHealthMonitor(context.Background(), rc, cfg.Cache.DefaultTTL)
		stopFuncs = append(stopFuncs, cancel)
	}

	// Initialize repositories
	leadRepo := repository.NewLeadRepository(db)
	employeeRepo := repository.NewEmployeeRepository(db)
	templateRepo := repository.NewDripTemplateRepository(db)
	assignmentRepo := repository.NewLeadDripAssignmentRepository(db)
	messageRepo := repository.NewScheduledMessageRepository(db)
	followUpRepo := repository.NewManualFollowUpRepository(db)
	whatsappMessageRepo := repository.NewWhatsAppMessageRepository(db)
	operatorRepo := repository.NewOperatorRepository(db)
	auditRepo := repository.NewAuditLogRepository(db)

	// Initialize services
	gateway := initializeGateway(cfg)
	classifier, extractor := initializeClassifier(cfg)
	notifier := services.NewStaffNotifier(gateway, &cfg.Dispatch, cfg.Admin.Phone)

	// Initialize token service
	tokenService, err := services.NewTokenService(
		cfg.JWT.AccessTokenTTL,
		cfg.JWT.RefreshTokenTTL,
		cfg.JWT.Issuer,
		cfg.JWT.Audience,
		cfg.JWT.UseRSAKeys,
		cfg.JWT.PrivateKey,
		cfg.JWT.PublicKey,
		cfg.JWT.SecretKey,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize token service: %w", err)
	}

	log.Printf("Token service initialized with issuer: %s, audience: %s", cfg.JWT.Issuer, cfg.JWT.Audience)

	// Initialize flows
	dripFlow := businessflow.NewDripFlow(
		db,
		leadRepo,
		templateRepo,
		assignmentRepo,
		messageRepo,
		auditRepo,
	)

	dispatchFlow := businessflow.NewDispatchFlow(
		leadRepo,
		templateRepo,
		messageRepo,
		followUpRepo,
		auditRepo,
		gateway,
		&cfg.Dispatch,
	)

	followUpFlow := businessflow.NewFollowUpFlow(
		leadRepo,
		employeeRepo,
		followUpRepo,
		auditRepo,
		notifier,
	)

	templateFlow := businessflow.NewTemplateFlow(db, templateRepo, auditRepo)

	messagingFlow := businessflow.NewMessagingFlow(
		leadRepo,
		whatsappMessageRepo,
		auditRepo,
		gateway,
		&cfg.Dispatch,
	)

	conversationFlow := businessflow.NewConversationFlow(
		leadRepo,
		employeeRepo,
		whatsappMessageRepo,
		auditRepo,
		followUpFlow,
		classifier,
		extractor,
		gateway,
		rc,
		&cfg.Cache,
		&cfg.Webhook,
		&cfg.Dispatch,
	)

	authFlow := businessflow.NewOperatorAuthFlow(
		operatorRepo,
		auditRepo,
		tokenService,
	)

	// Seed the built-in drip templates so apply works on a fresh database
	seedCtx, seedCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer seedCancel()
	if err := templateFlow.SeedDefaults(seedCtx); err != nil {
		return nil, fmt.Errorf("failed to seed default templates: %w", err)
	}

	// Initialize handlers
	dripHandler := handlers.NewDripHandler(dripFlow, dispatchFlow)
	templateHandler := handlers.NewTemplateHandler(templateFlow)
	webhookHandler := handlers.NewWebhookHandler(conversationFlow, &cfg.Webhook)
	whatsappHandler := handlers.NewWhatsAppHandler(messagingFlow)
	followUpHandler := handlers.NewFollowUpHandler(followUpFlow)
	authHandler := handlers.NewOperatorAuthHandler(authFlow)

	// Initialize auth middleware
	authMiddleware := middleware.NewAuthMiddleware(tokenService)

	// Initialize router
	appRouter := router.NewFiberRouter(
		dripHandler,
		templateHandler,
		webhookHandler,
		whatsappHandler,
		followUpHandler,
		authHandler,
		authMiddleware,
	)

	// Start dispatch loops
	sched := scheduler.NewDispatchScheduler(dispatchFlow, cfg.Dispatch)
	stopScheduler := sched.Start(context.Background())
	stopFuncs = append(stopFuncs, stopScheduler)

	// Create application struct from FiberRouter
	fiberRouter := appRouter.(*router.FiberRouter)
	application := &Application{
		router:    fiberRouter,
		config:    cfg,
		server:    fiberRouter.GetApp(),
		stopFuncs: stopFuncs,
	}

	return application, nil
}
