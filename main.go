package main

import (
	"log"
	"log/slog"
	"net/http"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/plugins/migratecmd"
	pubnub "github.com/pubnub/go/v7"

	"fuelqueue-system/config"
	"fuelqueue-system/handlers"
	_ "fuelqueue-system/migrations"
	"fuelqueue-system/monitoring"
	"fuelqueue-system/security"
	"fuelqueue-system/services"
	"fuelqueue-system/utils"
)

func main() {
	app := pocketbase.New()

	// Load configuration
	cfg := config.LoadConfig()

	// Initialize Redis
	redisClient, err := utils.NewRedisClient(cfg.RedisURL, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		log.Fatal(err)
	}

	// Initialize the SMS gateway channel
	pn := newPubNub(cfg)

	// Initialize services
	notifier := services.NewNotifyService(pn, cfg)
	gate := services.NewEligibilityService(cfg.CooldownWindow)
	stock := services.NewStockService()
	stationService := services.NewStationService(app, redisClient, cfg.StationCacheTTL)

	var monitor *monitoring.Monitor
	if cfg.EnableMetrics {
		monitor = monitoring.NewMonitor(stationService)
		monitoring.StartMetricsServer(cfg.MetricsPort, redisClient)
	}

	queueService := services.NewQueueService(app, redisClient, notifier, gate, stock, monitor, cfg)
	sessions := security.NewSessionManager(app, redisClient, cfg.SessionTTL)
	limiter := security.NewRateLimiter(redisClient, cfg.RegisterRateLimit, cfg.RegisterRateWindow)

	// Initialize handlers
	queueHandler := handlers.NewQueueHandler(app, queueService, stationService)
	operatorHandler := handlers.NewOperatorHandler(app, queueService, sessions)
	adminHandler := handlers.NewAdminHandler(app, stationService)

	// Enable migrations
	migratecmd.MustRegister(app, app.RootCmd, migratecmd.Config{
		Automigrate: true,
	})

	// Register routes
	app.OnServe().BindFunc(func(se *core.ServeEvent) error {
		// Client endpoints
		se.Router.POST("/api/queue/register", limiter.Limit("register", queueHandler.Register))
		se.Router.GET("/api/queue/status", queueHandler.Status)
		se.Router.GET("/api/stations", queueHandler.ListStations)

		// Operator endpoints
		se.Router.POST("/api/operator/login", limiter.Limit("login", operatorHandler.Login))
		se.Router.POST("/api/operator/logout", operatorHandler.Logout)
		se.Router.POST("/api/operator/promote", operatorHandler.Promote)
		se.Router.POST("/api/operator/serve", operatorHandler.Serve)
		se.Router.POST("/api/operator/cancel", operatorHandler.Cancel)
		se.Router.GET("/api/operator/queues", operatorHandler.Queues)

		// Admin endpoints
		admin := se.Router.Group("/api/admin")
		admin.Bind(apis.RequireSuperuserAuth())
		admin.POST("/stations", adminHandler.CreateStation)
		admin.PATCH("/stations/{id}", adminHandler.UpdateStation)
		admin.PATCH("/stations/{id}/stock", adminHandler.Restock)
		admin.PATCH("/stations/{id}/credentials", adminHandler.SetCredentials)
		admin.GET("/overview", adminHandler.Overview)

		// Health check
		se.Router.GET("/health", func(e *core.RequestEvent) error {
			if err := utils.RedisHealthCheck(redisClient); err != nil {
				return e.JSON(http.StatusServiceUnavailable, map[string]string{
					"status": "unhealthy",
					"error":  err.Error(),
				})
			}
			return e.JSON(http.StatusOK, map[string]string{"status": "healthy"})
		})

		slog.Info("server routes registered")

		return se.Next()
	})

	app.OnTerminate().BindFunc(func(te *core.TerminateEvent) error {
		if err := redisClient.Close(); err != nil {
			slog.Warn("redis close failed", "error", err)
		}
		return te.Next()
	})

	// Start server
	if err := app.Start(); err != nil {
		log.Fatal(err)
	}
}

// newPubNub builds the gateway client, or nil when no publish key is
// configured; the notifier degrades to warnings in that case.
func newPubNub(cfg *config.Config) *pubnub.PubNub {
	if cfg.PubNubPublishKey == "" {
		slog.Warn("pubnub publish key not set, sms notifications disabled")
		return nil
	}

	pnCfg := pubnub.NewConfigWithUserId(pubnub.UserId(cfg.PubNubUserID))
	pnCfg.PublishKey = cfg.PubNubPublishKey
	pnCfg.SubscribeKey = cfg.PubNubSubscribeKey
	pnCfg.SecretKey = cfg.PubNubSecretKey

	return pubnub.NewPubNub(pnCfg)
}
