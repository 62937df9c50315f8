package gateway

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	fiberLogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/saxenasajal03/ConnectX/internal/events"
	"github.com/saxenasajal03/ConnectX/internal/middleware"
	"github.com/saxenasajal03/ConnectX/internal/services/auth"
	"github.com/saxenasajal03/ConnectX/internal/services/social"
	socialHandlers "github.com/saxenasajal03/ConnectX/internal/services/social/handlers"
	"github.com/saxenasajal03/ConnectX/internal/store"
	"github.com/saxenasajal03/ConnectX/pkg/config"
	"go.uber.org/zap"
)

const healthTimeout = 2 * time.Second

// APIGateway handles the central routing and global middleware.
type APIGateway struct {
	router    *fiber.App
	logger    *zap.Logger
	cfg       config.Config
	store     store.Store
	publisher events.Publisher
	limiter   fiber.Storage
}

// Option customizes the gateway's collaborators.
type Option func(*APIGateway)

// WithPublisher sets the relationship event publisher.
func WithPublisher(p events.Publisher) Option {
	return func(g *APIGateway) { g.publisher = p }
}

// WithLimiterStorage shares rate-limit counters through the given storage.
func WithLimiterStorage(s fiber.Storage) Option {
	return func(g *APIGateway) { g.limiter = s }
}

// NewAPIGateway creates a new instance of APIGateway with a configured Fiber router.
func NewAPIGateway(cfg config.Config, logger *zap.Logger, st store.Store, opts ...Option) *APIGateway {
	app := fiber.New(fiber.Config{
		AppName: "ConnectX API Gateway",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			var e *fiber.Error
			if errors.As(err, &e) {
				code = e.Code
			}
			if code >= fiber.StatusInternalServerError {
				logger.Error("gateway error", zap.Error(err))
			}
			c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	gw := &APIGateway{
		router:    app,
		logger:    logger,
		cfg:       cfg,
		store:     st,
		publisher: events.NoopPublisher{},
	}
	for _, opt := range opts {
		opt(gw)
	}

	gw.applyMiddleware()
	gw.setupHealthCheck()

	if st != nil {
		authSvc := auth.NewAuthService(cfg, logger)
		socialSvc := social.NewSocialService(cfg, logger, st, gw.publisher)
		gw.registerRoutes(authSvc, socialSvc)
	}

	return gw
}

func (g *APIGateway) registerRoutes(authSvc auth.Service, socialSvc social.Service) {
	authMiddleware := middleware.AuthMiddleware(authSvc, g.cfg.JWT.CookieName, g.logger)

	friendH := socialHandlers.NewFriendHandlers(socialSvc, g.logger)
	friendH.Register(g.MountGroup("/api/users", authMiddleware))
}

// applyMiddleware sets up global middleware for the gateway.
func (g *APIGateway) applyMiddleware() {
	g.router.Use(cors.New(cors.Config{
		AllowOrigins:     g.cfg.Server.CORSAllowOrigins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: g.cfg.Server.CORSAllowOrigins != "*",
	}))
	g.router.Use(fiberLogger.New())
	g.router.Use(recover.New())

	limiterCfg := limiter.Config{
		Max:        g.cfg.Server.RateLimitMax,
		Expiration: g.cfg.Server.RateLimitDuration,
		Next: func(c *fiber.Ctx) bool {
			return c.Path() == "/health"
		},
	}
	if g.limiter != nil {
		limiterCfg.Storage = g.limiter
	}
	g.router.Use(limiter.New(limiterCfg))
}

// setupHealthCheck reports liveness and whether the store answers.
func (g *APIGateway) setupHealthCheck() {
	g.router.Get("/health", func(c *fiber.Ctx) error {
		if g.store != nil {
			ctx, cancel := context.WithTimeout(c.UserContext(), healthTimeout)
			defer cancel()
			if err := g.store.Ping(ctx); err != nil {
				g.logger.Warn("health check failed", zap.Error(err))
				return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
					"status": "unavailable",
				})
			}
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status": "ok",
		})
	})
}

// MountGroup allows services to mount their own route groups on the gateway.
func (g *APIGateway) MountGroup(prefix string, handlers ...fiber.Handler) fiber.Router {
	return g.router.Group(prefix, handlers...)
}

// Router returns the underlying Fiber app (useful for testing).
func (g *APIGateway) Router() *fiber.App {
	return g.router
}

// Start begins listening on the configured host and port.
func (g *APIGateway) Start() error {
	addr := fmt.Sprintf("%s:%d", g.cfg.Server.Host, g.cfg.Server.Port)
	g.logger.Info("Starting API Gateway", zap.String("address", addr))
	return g.router.Listen(addr)
}

// Shutdown gracefully stops the gateway.
func (g *APIGateway) Shutdown(ctx context.Context) error {
	g.logger.Info("Shutting down API Gateway...")
	return g.router.ShutdownWithContext(ctx)
}
