package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"github.com/transitworks/bus-booking-backend/internal/config"
	"github.com/transitworks/bus-booking-backend/internal/database"
	"github.com/transitworks/bus-booking-backend/internal/events"
	"github.com/transitworks/bus-booking-backend/internal/handlers"
	"github.com/transitworks/bus-booking-backend/internal/middleware"
	"github.com/transitworks/bus-booking-backend/internal/models"
	"github.com/transitworks/bus-booking-backend/internal/services"
	"github.com/transitworks/bus-booking-backend/pkg/jwt"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	logLevel, err := logrus.ParseLevel(cfg.Server.LogLevel)
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	logger.Info("Database connection established")

	var emitter events.Emitter
	if cfg.Redis.Addr != "" {
		redisEmitter, err := events.NewRedisEmitter(cfg.Redis, logger)
		if err != nil {
			logger.Fatalf("Failed to connect to Redis: %v", err)
		}
		emitter = redisEmitter
		logger.WithField("channel", cfg.Redis.Channel).Info("Redis event emitter initialized")
	} else {
		emitter = events.NewLogEmitter(logger)
		logger.Info("No Redis address configured, events will be logged only")
	}
	defer emitter.Close()

	policy, err := services.NewCancellationPolicy(cfg.Cancellation.Tiers)
	if err != nil {
		logger.Fatalf("Invalid cancellation schedule: %v", err)
	}

	jwtService := jwt.NewService(cfg.JWT.Secret, cfg.JWT.AccessTokenExpiry, cfg.JWT.Issuer)

	// Repositories
	userRepo := database.NewUserRepository(db)
	routeRepo := database.NewRouteRepository(db)
	busRepo := database.NewBusRepository(db.DB)
	tripRepo := database.NewTripRepository(db.DB)
	bookingRepo := database.NewBookingRepository(db.DB)
	paymentRepo := database.NewPaymentRepository(db.DB)

	// Services
	authService := services.NewAuthService(userRepo, jwtService, cfg.Security.BcryptCost, logger)
	routeService := services.NewRouteService(routeRepo, logger)
	busService := services.NewBusService(busRepo, emitter, logger)
	tripService := services.NewTripService(tripRepo, routeRepo, busRepo, emitter, logger)
	bookingService := services.NewBookingService(bookingRepo, tripRepo, routeRepo, busRepo, policy, emitter, logger)
	paymentService := services.NewPaymentService(paymentRepo, bookingRepo, emitter, logger)

	// Handlers
	authHandler := handlers.NewAuthHandler(authService, logger)
	routeHandler := handlers.NewRouteHandler(routeService, logger)
	busHandler := handlers.NewBusHandler(busService, logger)
	tripHandler := handlers.NewTripHandler(tripService, logger)
	bookingHandler := handlers.NewBookingHandler(bookingService, logger)
	paymentHandler := handlers.NewPaymentHandler(paymentService, logger)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(logger))

	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     cfg.CORS.AllowedMethods,
		AllowHeaders:     cfg.CORS.AllowedHeaders,
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/health", healthCheckHandler(db.DB))

	authRequired := middleware.AuthMiddleware(jwtService)
	adminOnly := middleware.RequireRole(models.RoleAdmin)
	adminOrDriver := middleware.RequireRole(models.RoleAdmin, models.RoleDriver)

	v1 := router.Group("/api/v1")
	{
		auth := v1.Group("/auth")
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
			auth.GET("/profile", authRequired, authHandler.Profile)
		}

		routes := v1.Group("/routes")
		{
			routes.GET("", routeHandler.List)
			routes.GET("/:id", routeHandler.Get)
			routes.POST("", authRequired, adminOnly, routeHandler.Create)
			routes.PATCH("/:id", authRequired, adminOnly, routeHandler.Update)
			routes.DELETE("/:id", authRequired, adminOnly, routeHandler.Deactivate)
		}

		buses := v1.Group("/buses")
		{
			buses.GET("", busHandler.List)
			buses.GET("/:id", busHandler.Get)
			buses.POST("", authRequired, adminOnly, busHandler.Create)
			buses.PATCH("/:id", authRequired, adminOnly, busHandler.Update)
			buses.POST("/:id/seats", authRequired, adminOnly, busHandler.AdjustSeats)
			buses.PUT("/:id/location", authRequired, adminOrDriver, busHandler.UpdateLocation)
		}

		trips := v1.Group("/trips")
		{
			trips.GET("", tripHandler.List)
			trips.GET("/:id", tripHandler.Get)
			trips.POST("", authRequired, adminOnly, tripHandler.Create)
			trips.PUT("/:id/status", authRequired, adminOrDriver, tripHandler.UpdateStatus)
		}

		bookings := v1.Group("/bookings", authRequired)
		{
			bookings.POST("", bookingHandler.Create)
			bookings.GET("", bookingHandler.List)
			bookings.GET("/upcoming", bookingHandler.ListUpcoming)
			bookings.GET("/:id", bookingHandler.Get)
			bookings.PATCH("/:id", bookingHandler.Update)
			bookings.POST("/:id/cancel", bookingHandler.Cancel)
			bookings.POST("/:id/complete", adminOrDriver, bookingHandler.Complete)
		}

		payments := v1.Group("/payments", authRequired)
		{
			payments.POST("/intent", paymentHandler.CreateIntent)
			payments.GET("", paymentHandler.List)
			payments.GET("/failed", adminOnly, paymentHandler.ListFailed)
			payments.GET("/:id", paymentHandler.Get)
			payments.POST("/:id/process", paymentHandler.Process)
			payments.POST("/:id/confirm", paymentHandler.Confirm)
			payments.POST("/:id/fail", paymentHandler.Fail)
			payments.POST("/:id/cancel", paymentHandler.Cancel)
			payments.POST("/:id/retry", adminOnly, paymentHandler.Retry)
			payments.POST("/:id/refund", adminOnly, paymentHandler.Refund)
		}
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Infof("Server starting on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	}

	logger.Info("Server exited successfully")
}

// requestLogger logs each HTTP request with latency and status
func requestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		logger.WithFields(logrus.Fields{
			"status":     c.Writer.Status(),
			"method":     c.Request.Method,
			"path":       path,
			"query":      c.Request.URL.RawQuery,
			"ip":         c.ClientIP(),
			"latency_ms": time.Since(start).Milliseconds(),
		}).Info("Request completed")
	}
}

// healthCheckHandler reports process and database health
func healthCheckHandler(db *sqlx.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"database": "unreachable",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":   "healthy",
			"database": "connected",
			"time":     time.Now().UTC(),
		})
	}
}
