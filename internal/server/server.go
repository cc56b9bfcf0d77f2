// Package server contains the HTTP and WebSocket API over the identity and social data stores.
package server

import (
	"context"
	"log/slog"
	"time"

	"garagebook/internal/bootstrap"
	"garagebook/internal/cache"
	"garagebook/internal/config"
	"garagebook/internal/database"
	"garagebook/internal/featureflags"
	"garagebook/internal/middleware"
	"garagebook/internal/models"
	"garagebook/internal/notifications"
	"garagebook/internal/observability"
	"garagebook/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	shutdownCtx    context.Context
	shutdownFn     context.CancelFunc
	directory      *service.Directory
	garage         *service.Garage
	featureFlags   *featureflags.Manager
	hub            *notifications.Hub
	notifier       *notifications.Notifier
	relay          *notifications.Relay
	now            func() time.Time
}

// NewServer creates a server over an initialized runtime.
func NewServer(rt *bootstrap.Runtime) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		config:         rt.Config,
		db:             rt.DB,
		redis:          rt.Redis,
		promMiddleware: observability.InitMetrics("garagebook-api"),
		shutdownCtx:    ctx,
		shutdownFn:     cancel,
		directory:      rt.Directory,
		garage:         rt.Garage,
		featureFlags:   rt.Flags,
		hub:            rt.Hub,
		notifier:       rt.Notifier,
		relay:          rt.Relay,
		now:            time.Now,
	}
}

// App builds the Fiber application with middleware and routes. It is
// built once; later calls return the same app.
func (s *Server) App() *fiber.App {
	if s.app != nil {
		return s.app
	}
	app := fiber.New(fiber.Config{
		AppName: "GarageBook API",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if fe, ok := err.(*fiber.Error); ok {
				return models.RespondWithError(c, fe.Code, fe)
			}
			middleware.Logger.ErrorContext(c.UserContext(), "unhandled error", slog.String("error", err.Error()))
			return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
		},
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	s.app = app
	return app
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.TracingMiddleware())
	app.Use(middleware.ContextMiddleware())

	if s.promMiddleware != nil {
		app.Use(s.promMiddleware.Middleware)
	}

	app.Use(helmet.New())
	app.Use(middleware.StructuredLogger())

	// CORS runs before anything that can short-circuit so error responses still carry its headers.
	app.Use(cors.New(cors.Config{
		AllowOrigins:     s.config.AllowedOrigins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Upgrade, Connection, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowCredentials: s.config.AllowedOrigins != "*",
		MaxAge:           86400,
	}))

	app.Use(limiter.New(limiter.Config{
		Max:        300,
		Expiration: time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions || s.config.Env == "test"
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests, please try again later.",
			})
		},
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	api := app.Group("/api")
	protected := api.Group("", s.AuthRequired())

	auth := api.Group("/auth")
	auth.Post("/register", middleware.RateLimit(s.redis, 5, 10*time.Minute, "register"), s.Register)
	auth.Post("/login", middleware.RateLimit(s.redis, 10, 5*time.Minute, "login"), s.Login)
	auth.Post("/logout", s.AuthRequired(), s.Logout)

	// Browsing garages is public; everything that changes state needs a token.
	vehicles := api.Group("/vehicles")
	vehicles.Get("/", s.ExploreVehicles)
	vehicles.Get("/makes", s.GetMakes)
	vehicles.Get("/:id", s.GetVehicle)

	myVehicles := protected.Group("/vehicles")
	myVehicles.Post("/", middleware.RateLimit(s.redis, 10, 10*time.Minute, "create_vehicle"), s.CreateVehicle)
	myVehicles.Post("/:id/like", s.LikeVehicle)
	myVehicles.Post("/:id/comments", middleware.RateLimit(s.redis, 10, time.Minute, "create_comment"), s.AddComment)
	myVehicles.Put("/:id", s.UpdateVehicle)
	myVehicles.Delete("/:id", s.DeleteVehicle)

	users := protected.Group("/users")
	users.Get("/", s.GetAllUsers)
	users.Get("/me", s.GetMyProfile)
	users.Put("/me", s.UpdateMyProfile)
	// Specific /:id/:resource routes before the generic /:id route.
	users.Get("/:id/vehicles", s.GetUserVehicles)
	users.Get("/:id/stats", s.GetUserStats)
	users.Post("/:id/follow", s.FollowUser)
	users.Delete("/:id/follow", s.UnfollowUser)
	users.Get("/:id", s.GetUserProfile)

	notes := protected.Group("/notifications")
	notes.Get("/", s.GetNotifications)
	notes.Post("/read-all", s.MarkAllNotificationsRead)
	notes.Post("/:id/read", s.MarkNotificationRead)

	api.Get("/ws", s.AuthRequired(), s.WebSocketUpgrade, s.WebSocketHandler())
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   s.now(),
	})
}

// ReadinessCheck reports the database and Redis. Redis is optional, so
// "disabled" does not fail readiness.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "memory"
	if s.db != nil {
		dbStatus = "healthy"
		if err := database.Ping(ctx, s.db); err != nil {
			dbStatus = "unhealthy"
		}
	}

	redisStatus := "disabled"
	if s.redis != nil {
		redisStatus = "healthy"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	}

	status := fiber.StatusOK
	overall := "healthy"
	if dbStatus == "unhealthy" || redisStatus == "unhealthy" {
		status = fiber.StatusServiceUnavailable
		overall = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overall,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"connections": s.hub.ConnectionCount(),
		"time":        s.now(),
	})
}

// StartBackground wires the change feed and, with Redis, the cross-instance subscriber.
func (s *Server) StartBackground() error {
	s.relay.StartChangeFeed(s.shutdownCtx, s.garage)
	if s.notifier.Enabled() {
		if err := s.hub.StartWiring(s.shutdownCtx, s.notifier); err != nil {
			return err
		}
	}
	return nil
}

// Start serves HTTP on the configured port until Shutdown.
func (s *Server) Start() error {
	app := s.App()
	if err := s.StartBackground(); err != nil {
		middleware.Logger.Error("failed to start realtime wiring", slog.String("error", err.Error()))
	}
	middleware.Logger.Info("server starting", slog.String("port", s.config.Port))
	return app.Listen(":" + s.config.Port)
}

// Shutdown stops background work, drains HTTP and closes websocket clients.
func (s *Server) Shutdown(ctx context.Context) error {
	s.shutdownFn()

	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			middleware.Logger.Error("error shutting down HTTP server", slog.String("error", err.Error()))
		}
	}
	if err := s.hub.Shutdown(ctx); err != nil {
		middleware.Logger.Error("error shutting down hub", slog.String("error", err.Error()))
	}

	middleware.Logger.Info("server shutdown complete")
	return nil
}

// revoked reports whether the token id was revoked by logout. Without Redis
// nothing is ever revoked.
func (s *Server) revoked(ctx context.Context, jti string) bool {
	if s.redis == nil || jti == "" {
		return false
	}
	n, err := s.redis.Exists(ctx, cache.RevokedTokenKey(jti)).Result()
	return err == nil && n > 0
}
