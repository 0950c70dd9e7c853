// Package server contains the HTTP handlers for the feed, identity, and profile API.
package server

import (
	"context"
	"errors"
	"strings"
	"time"

	_ "lufeed/docs" // swagger docs
	"lufeed/internal/auth"
	"lufeed/internal/cache"
	"lufeed/internal/config"
	"lufeed/internal/featureflags"
	"lufeed/internal/feed"
	"lufeed/internal/middleware"
	"lufeed/internal/models"
	"lufeed/internal/observability"
	"lufeed/internal/repository"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/monitor"
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
	promMiddleware *fiberprometheus.FiberPrometheus
	auth           *auth.Provider
	feed           *feed.Aggregator
	featureFlags   *featureflags.Manager
	now            func() time.Time
	unsubscribe    func()
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// redisClient may be nil.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	if cfg == nil || db == nil {
		return nil, errors.New("server requires config and database")
	}

	flags := featureflags.NewManager(cfg.FeatureFlags)
	provider := auth.NewProvider(repository.NewUserRepository(db), auth.Options{
		Secret: cfg.JWTSecret,
		Redis:  redisClient,
	})
	aggregator := feed.New(repository.NewFeedStore(db), feed.Options{
		Timeout: cfg.StoreTimeout,
		Flags:   flags,
	})

	s := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics("lufeed-api"),
		auth:           provider,
		feed:           aggregator,
		featureFlags:   flags,
		now:            time.Now,
	}
	s.unsubscribe = provider.Subscribe(s.onSessionChange)
	return s, nil
}

// onSessionChange keeps the audit trail of sign-ins and profile edits.
func (s *Server) onSessionChange(ev auth.SessionEvent) {
	observability.Logger.Info("session changed",
		"event", string(ev.Type),
		"user_id", ev.UID,
	)
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	// Panic recovery
	app.Use(recover.New())

	// Request ID for tracing
	app.Use(requestid.New())

	// Spans first so ContextMiddleware sees the trace ID
	app.Use(middleware.TracingMiddleware())
	app.Use(middleware.ContextMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	// Security headers
	app.Use(helmet.New())

	app.Use(middleware.StructuredLogger())

	// CORS runs before the limiter so rejected requests still carry CORS headers.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:8081,http://localhost:19006,http://127.0.0.1:8081"
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
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests, please try again later.",
			})
		},
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	api := app.Group("/api")

	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}
	api.Get("/metrics/dashboard", monitor.New(monitor.Config{
		Title: "lufeed Metrics Dashboard",
	}))

	api.Get("/swagger/*", swagger.HandlerDefault)

	authGroup := api.Group("/auth")
	authGroup.Post("/signup", middleware.RateLimit(
		s.redis, 3, 10*time.Minute, "signup"), s.Signup)
	authGroup.Post("/login", middleware.RateLimit(
		s.redis, 10, 5*time.Minute, "login"), s.Login)
	authGroup.Post("/logout", s.Logout)

	api.Get("/categories", s.GetCategories)
	api.Get("/flags", s.OptionalAuth(), s.GetFeatureFlags)

	feedGroup := api.Group("/feed")
	feedGroup.Get("/", s.GetFeed)
	feedGroup.Get("/cached", s.GetCachedFeed)

	// Sharing works without an account; everything else under /posts needs one.
	posts := api.Group("/posts")
	posts.Post("/:id/share", s.OptionalAuth(), s.SharePost)
	posts.Post("/", s.AuthRequired(), middleware.RateLimit(
		s.redis, 5, 5*time.Minute, "create_post"), s.CreatePost)
	posts.Post("/:id/like", s.AuthRequired(), s.ToggleLike)
	posts.Post("/:id/comments", s.AuthRequired(), middleware.RateLimit(
		s.redis, 10, time.Minute, "create_comment"), s.AddComment)

	users := api.Group("/users", s.AuthRequired())
	users.Get("/me", s.GetMyProfile)
	users.Put("/me", s.UpdateMyProfile)
	users.Get("/me/posts", s.GetMyPosts)
}

// Shutdown releases resources owned by the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
	var errs []error
	if s.db != nil {
		if sqlDB, err := s.db.DB(); err == nil {
			errs = append(errs, sqlDB.Close())
		}
	}
	if s.redis != nil {
		cache.Close()
	}
	if err := ctx.Err(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   s.now(),
	})
}

// ReadinessCheck handles readiness probe requests. Redis is optional: without
// it the feed serves uncached and revocations stay in process.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	sqlDB, err := s.db.DB()
	if err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "unavailable"
	if s.redis != nil {
		redisStatus = "healthy"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus == "unhealthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	} else if redisStatus == "unhealthy" {
		overallStatus = "degraded"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overallStatus,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": s.now(),
	})
}

// AuthRequired rejects requests without a valid session token.
func (s *Server) AuthRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := bearerToken(c)
		if token == "" {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Authorization required"))
		}

		session, err := s.auth.CurrentSession(c.UserContext(), token)
		if err != nil {
			return respondError(c, err)
		}

		s.attachSession(c, session)
		return c.Next()
	}
}

// OptionalAuth attaches the session when a valid token is present and
// otherwise lets the request through anonymously.
func (s *Server) OptionalAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if token := bearerToken(c); token != "" {
			if session, err := s.auth.CurrentSession(c.UserContext(), token); err == nil {
				s.attachSession(c, session)
			}
		}
		return c.Next()
	}
}

func (s *Server) attachSession(c *fiber.Ctx, session *models.Session) {
	c.Locals(middleware.LocalSession, session)
	c.Locals(middleware.LocalUserID, session.UID)
	c.SetUserContext(observability.WithUserID(c.UserContext(), session.UID))
}

func bearerToken(c *fiber.Ctx) string {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return ""
	}
	scheme, token, ok := strings.Cut(authHeader, " ")
	if !ok || scheme != "Bearer" {
		return ""
	}
	return strings.TrimSpace(token)
}
