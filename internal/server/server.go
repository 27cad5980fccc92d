// Package server exposes the thread and profile operations as a JSON API.
package server

import (
	"context"
	"errors"
	"time"

	_ "threads/docs" // swagger docs
	"threads/internal/cache"
	"threads/internal/config"
	"threads/internal/database"
	"threads/internal/featureflags"
	"threads/internal/middleware"
	"threads/internal/models"
	"threads/internal/notifications"
	"threads/internal/repository"
	"threads/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/swagger"
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
	auth           middleware.AuthConfig
	views          *cache.ViewCache
	featureFlags   *featureflags.Manager
	notifier       *notifications.Notifier
	threadService  *service.ThreadService
	userService    *service.UserService
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// redisClient may be nil, which disables the view cache, rate limits and
// cross-instance revalidation.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if db == nil {
		return nil, errors.New("database handle is required")
	}

	threadRepo := repository.NewThreadRepository(db)
	userRepo := repository.NewUserRepository(db)

	viewTTL := time.Duration(cfg.ViewCacheTTLSeconds) * time.Second
	if viewTTL <= 0 {
		viewTTL = cache.DefaultViewTTL
	}

	server := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics("threads-api"),
		auth: middleware.AuthConfig{
			Secret:   cfg.JWTSecret,
			Issuer:   cfg.AuthIssuer,
			Audience: cfg.AuthAudience,
		},
		featureFlags: featureflags.NewManager(cfg.FeatureFlags),
	}

	var publisher cache.RevalidationPublisher
	if redisClient != nil {
		server.notifier = notifications.NewNotifier(redisClient)
		publisher = server.notifier
		server.views = cache.NewViewCache(viewTTL)
	}
	revalidator := cache.NewViewRevalidator(publisher, server.views)

	server.threadService = service.NewThreadService(threadRepo, userRepo, revalidator)
	server.userService = service.NewUserService(userRepo, threadRepo, revalidator)

	return server, nil
}

// NewApp builds a Fiber app with the full middleware chain and routes.
func (s *Server) NewApp() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName: "Threads API",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			var fe *fiber.Error
			if errors.As(err, &fe) {
				return c.Status(fe.Code).JSON(models.ErrorResponse{Error: fe.Message})
			}
			middleware.Logger.ErrorContext(c.UserContext(), "unhandled error", "error", err)
			return models.RespondWithError(c, fiber.StatusInternalServerError,
				models.NewInternalError(err))
		},
	})

	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())

	// Tracing runs before the context middleware so trace_id reaches the logger.
	app.Use(middleware.TracingMiddleware())
	app.Use(middleware.ContextMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	app.Use(helmet.New())
	app.Use(middleware.StructuredLogger())

	// CORS must run before anything that can short-circuit.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:3000"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	// Global rate limiting (100 requests per minute per IP)
	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(models.ErrorResponse{
				Error: "Too many requests, please try again later.",
				Code:  "RATE_LIMITED",
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
	app.Get("/swagger/*", swagger.HandlerDefault)

	api := app.Group("/api", middleware.AuthRequired(s.auth))

	// Profile routes are reachable before onboarding; they are how onboarding happens.
	api.Get("/users/me", s.GetMyProfile)
	api.Put("/users/me", s.UpdateMyProfile)

	gated := api.Group("", s.OnboardingRequired())

	threads := gated.Group("/threads")
	threads.Get("/", s.GetThreads)
	threads.Post("/", middleware.RateLimit(
		s.redis, "create_thread", 5, time.Minute), s.CreateThread)
	// Define specific /:id/:resource routes BEFORE generic /:id route
	threads.Post("/:id/comments", middleware.RateLimit(
		s.redis, "create_comment", 10, time.Minute), s.AddComment)
	threads.Get("/:id", s.GetThread)

	users := gated.Group("/users")
	users.Get("/", s.GetUsers)
	users.Get("/:externalId/threads", s.GetUserThreads)
	users.Get("/:externalId", s.GetUser)

	gated.Get("/activity", s.GetActivity)
}

// OnboardingRequired resolves the authenticated subject to a local user and
// refuses callers who have not completed onboarding. It must run after
// middleware.AuthRequired.
func (s *Server) OnboardingRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		externalID, _ := c.Locals(middleware.ExternalIDLocal).(string)
		user, err := s.userService.FetchUser(c.UserContext(), externalID)
		if err != nil {
			return respondError(c, err)
		}
		if user == nil || !user.Onboarded {
			return respondError(c, models.NewOnboardingRequiredError())
		}

		c.Locals("userID", user.ID)
		ctx := context.WithValue(c.UserContext(), middleware.UserIDKey, user.ID)
		c.SetUserContext(ctx)

		return c.Next()
	}
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness probe requests. Redis is optional, so only
// an unreachable configured Redis makes the service unready.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	sqlDB, err := s.db.DB()
	if err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "disabled"
	if s.redis != nil {
		redisStatus = "healthy"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus == "unhealthy" || redisStatus == "unhealthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overallStatus,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// StartRevalidationSubscriber evicts this instance's local copy of every view
// revalidated by any instance, until ctx is cancelled.
func (s *Server) StartRevalidationSubscriber(ctx context.Context) error {
	if s.notifier == nil {
		return nil
	}
	return s.notifier.StartRevalidationSubscriber(ctx, func(path string) {
		s.views.Evict(path)
		middleware.Logger.Debug("view revalidated", "path", path)
	})
}

// Start starts the server
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.shutdownCtx = ctx
	s.shutdownFn = cancel

	s.app = s.NewApp()

	if err := s.StartRevalidationSubscriber(s.shutdownCtx); err != nil {
		middleware.Logger.Warn("revalidation subscriber not started", "error", err)
	}

	middleware.Logger.Info("server starting", "port", s.config.Port)
	return s.app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.shutdownFn != nil {
		s.shutdownFn()
	}

	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			middleware.Logger.Error("error shutting down HTTP server", "error", err)
		}
	}

	if err := database.Close(s.db); err != nil {
		middleware.Logger.Error("error closing database", "error", err)
	}

	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			middleware.Logger.Error("error closing redis", "error", err)
		}
	}

	middleware.Logger.Info("server shutdown complete")
	return nil
}
