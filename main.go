package main

import (
	"context"
	"log"
	"time"

	"github.com/xAleksandar/tonight-app-sub000/config"
	"github.com/xAleksandar/tonight-app-sub000/handlers"
	"github.com/xAleksandar/tonight-app-sub000/middleware"
	"github.com/xAleksandar/tonight-app-sub000/realtime"
	"github.com/xAleksandar/tonight-app-sub000/routes"
	"github.com/xAleksandar/tonight-app-sub000/services"
	"github.com/xAleksandar/tonight-app-sub000/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	utils.LogStartup("tonight-coordination", "1.0.0", cfg.Port)

	api := services.NewAPIClient(cfg.APIBaseURL, cfg.SessionToken)
	wsHandler := handlers.NewWSHandler(cfg.EventID)
	coordinator := services.NewEventCoordinator(api, cfg.EventID, wsHandler)

	// Initial sync before the socket comes up; a failure here is not
	// fatal, the first driver refresh will retry.
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	if err := coordinator.Refresh(ctx); err != nil {
		utils.SafeWarn("initial event sync failed: %v", err)
	} else {
		log.Println("✅ Event snapshot loaded")
	}
	cancel()

	bridge := realtime.NewBridge(realtime.Options{
		SocketURL:     cfg.SocketURL,
		SessionToken:  cfg.SessionToken,
		SessionSecret: cfg.SessionSecret,
		EventID:       cfg.EventID,
		JoinRequestID: cfg.JoinRequestID,
	}, coordinator.Feed, coordinator)

	go bridge.Run(context.Background())

	router := gin.Default()

	corsConfig := cors.Config{
		AllowOrigins:     []string{cfg.FrontendURL},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           86400,
	}
	router.Use(cors.New(corsConfig))

	router.Use(func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Printf("📨 %s %s - %d (%v)", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	})

	router.Use(middleware.RateLimiter(100, time.Minute))

	v1 := router.Group("/api/v1")
	{
		v1.GET("/ws/events/:id", wsHandler.HandleWS)

		protected := v1.Group("/")
		protected.Use(middleware.AuthMiddleware(cfg.SessionSecret))
		{
			routes.SetupCoordinationRoutes(protected, coordinator)
		}
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "healthy",
			"version": "1.0.0",
			"time":    time.Now().Format(time.RFC3339),
		})
	})

	log.Printf("🚀 Server starting on port %s...", cfg.Port)
	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
