package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/bakery-orders-api/config"
	"github.com/kendall-kelly/bakery-orders-api/controllers"
	"github.com/kendall-kelly/bakery-orders-api/logger"
	"github.com/kendall-kelly/bakery-orders-api/middleware"
	"github.com/kendall-kelly/bakery-orders-api/models"
	"github.com/kendall-kelly/bakery-orders-api/services"
	"github.com/kendall-kelly/bakery-orders-api/utils"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log := logger.Get()
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	if err := logger.Init(logger.Options{Level: cfg.LogLevel, Format: cfg.LogFormat, File: cfg.LogFile}); err != nil {
		log := logger.Get()
		log.Fatal().Err(err).Msg("failed to initialize logger")
	}
	log := logger.Component("main")
	log.Info().Str("env", cfg.GoEnv).Msg("starting Bakery Orders API server")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := config.ConnectDatabase(); err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}

	db := config.GetDB()
	if err := db.AutoMigrate(models.All()...); err != nil {
		log.Fatal().Err(err).Msg("failed to migrate database")
	}
	log.Info().Msg("database migration completed successfully")

	images, err := newImageService(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize payment evidence storage")
	}

	events := newEventPublisher(cfg)
	defer func() {
		if err := events.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close event publisher")
		}
	}()

	services.InitOrderService(db, services.OrderServiceOptions{
		Catalog:           services.NewCachedMenuCatalog(services.NewDBMenuCatalog(db), cfg.MenuCacheSize, cfg.MenuCacheTTL),
		TrustClientPrices: cfg.TrustClientPrices,
		Images:            images,
		Events:            events,
		DeliveryFee:       cfg.DeliveryFee,
		CodeMaxAttempts:   cfg.CodeMaxAttempts,
	})

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	auth, err := middleware.EnsureValidToken(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to configure token validation")
	}
	router := setupRouter(cfg, auth)

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("server is running")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}

// newImageService stores payment evidence in S3 when a bucket is configured, on local disk otherwise
func newImageService(ctx context.Context, cfg *config.Config) (services.ImageService, error) {
	if cfg.UsesS3() {
		s3Service, err := services.InitS3Service(ctx)
		if err != nil {
			return nil, err
		}
		return services.InitImageService(s3Service), nil
	}

	if err := os.MkdirAll(cfg.UploadDir, 0o755); err != nil {
		return nil, err
	}
	utils.UploadDir = cfg.UploadDir
	return services.InitLocalImageService(cfg.UploadDir), nil
}

// newEventPublisher connects to RabbitMQ when configured. Without a broker,
// or when it is unreachable at startup, events are dropped.
func newEventPublisher(cfg *config.Config) services.EventPublisher {
	log := logger.Component("main")
	if cfg.RabbitMQURL == "" {
		log.Info().Msg("RABBITMQ_URL not set, lifecycle events are not published")
		return services.NoopPublisher{}
	}

	publisher, err := services.NewRabbitMQPublisher(cfg.RabbitMQURL, cfg.RabbitMQExchange)
	if err != nil {
		log.Error().Err(err).Msg("failed to connect to RabbitMQ, lifecycle events are not published")
		return services.NoopPublisher{}
	}
	log.Info().Str("exchange", cfg.RabbitMQExchange).Msg("publishing lifecycle events to RabbitMQ")
	return publisher
}

// setupRouter builds the HTTP router; auth guards the business endpoints
func setupRouter(cfg *config.Config, auth gin.HandlerFunc) *gin.Engine {
	router := gin.New()
	router.Use(middleware.RequestID(), middleware.RequestLogger(), gin.Recovery())

	corsConfig := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders: []string{middleware.RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	if len(cfg.CORSAllowedOrigins) == 0 || slices.Contains(cfg.CORSAllowedOrigins, "*") {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = cfg.CORSAllowedOrigins
	}
	router.Use(cors.New(corsConfig))
	router.Use(middleware.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst))

	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", healthCheck)
		v1.GET("/database/status", databaseStatus)
	}
	controllers.RegisterRoutes(v1, auth)

	return router
}

// healthCheck handles the health check endpoint
func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Bakery Orders API is running",
	})
}

// databaseStatus checks database connectivity and returns table information
func databaseStatus(c *gin.Context) {
	db := config.GetDB()

	sqlDB, err := db.DB()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to get database instance",
			},
		})
		return
	}

	if err := sqlDB.PingContext(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_CONNECTION_ERROR",
				"message": "Database connection failed",
			},
		})
		return
	}

	// Works on both PostgreSQL and SQLite
	tables, err := db.Migrator().GetTables()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_QUERY_ERROR",
				"message": "Failed to query tables",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Database connected",
		"tables":  tables,
	})
}
