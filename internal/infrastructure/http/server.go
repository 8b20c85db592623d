package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	handlers "github.com/wekeepgrowing/semo-keyhub/internal/adapter/handler/http"
	"github.com/wekeepgrowing/semo-keyhub/internal/config"
	"github.com/wekeepgrowing/semo-keyhub/internal/middleware/auth"
	pkglogger "github.com/wekeepgrowing/semo-keyhub/pkg/logger"
	"go.uber.org/zap"
)

// Services bundles the use cases exposed over HTTP. Readiness maps a dependency name to a
// reachability check.
type Services struct {
	Keys      handlers.KeyService
	Promotion handlers.PromotionService
	Tiers     handlers.TierService
	Platforms handlers.PlatformService
	Processor handlers.ProcessorService
	Webhooks  handlers.WebhookProcessor
	Verifier  auth.TokenVerifier
	Ensurer   auth.PlatformEnsurer
	Readiness map[string]func(ctx context.Context) error
}

type Server struct {
	config   *config.Config
	logger   *zap.Logger
	echo     *echo.Echo
	services Services
}

func NewServer(cfg *config.Config, logger *zap.Logger, services Services) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	pkglogger.WithEchoLogger(e, logger)
	e.Validator = handlers.NewRequestValidator()

	origins := cfg.Server.HTTP.CORSOrigins
	if len(origins) == 0 && cfg.Service.ClientURL != "" {
		origins = []string{cfg.Service.ClientURL}
	}

	// Middleware
	e.Use(middleware.RequestID())
	e.Use(pkglogger.NewEchoRequestLogger(logger))
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: origins,
		AllowMethods: []string{echo.GET, echo.POST, echo.PUT, echo.DELETE},
	}))

	s := &Server{
		config:   cfg,
		logger:   logger,
		echo:     e,
		services: services,
	}
	s.setupRoutes()
	return s
}

// Echo exposes the router for in-process tests.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.HTTP.Host, s.config.Server.HTTP.Port)
	s.logger.Info("Starting HTTP server", zap.String("address", addr))

	if err := s.echo.Start(addr); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) setupRoutes() {
	// Health check
	s.echo.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "healthy",
			"service": s.config.Service.Name,
		})
	})
	s.echo.GET("/ready", s.ready)

	// Initialize handlers
	projectHandler := handlers.NewProjectHandler(s.services.Keys, s.services.Promotion, s.logger.Named("projects"))
	tierHandler := handlers.NewTierHandler(s.services.Tiers, s.logger.Named("tiers"))
	platformHandler := handlers.NewPlatformHandler(s.services.Platforms, s.config.Service.ClientURL, s.logger.Named("platform"))
	processorHandler := handlers.NewProcessorHandler(s.services.Processor, s.logger.Named("processor"))
	webhookHandler := handlers.NewWebhookHandler(s.services.Webhooks, s.logger.Named("webhook"))

	// JWT middleware configuration
	jwtConfig := auth.JWTConfig{
		Verifier:  s.services.Verifier,
		Platforms: s.services.Ensurer,
		Logger:    s.logger,
	}

	// Webhook route (outside API versioning)
	s.echo.POST("/webhook", webhookHandler.HandleWebhook)

	// API v1 routes, all authenticated
	v1 := s.echo.Group("/api/v1", auth.JWTMiddleware(jwtConfig))

	projects := v1.Group("/projects")
	projects.POST("", projectHandler.CreateProject)
	projects.POST("/:key/rotate", projectHandler.RotateSecret)
	projects.POST("/:key/promote", projectHandler.Promote)
	projects.GET("/:key/tiers", tierHandler.ListTiers)
	projects.PUT("/:key/tiers", tierHandler.UpsertTier)
	projects.DELETE("/:key/tiers/:name", tierHandler.DeleteTier)

	platform := v1.Group("/platform")
	platform.GET("", platformHandler.Export)
	platform.GET("/subscription", platformHandler.Subscription)
	platform.POST("/checkout", platformHandler.CreateCheckout)

	v1.POST("/processor/connect", processorHandler.Connect)
}

// ready runs every readiness check with a short deadline and reports each result.
func (s *Server) ready(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	status := http.StatusOK
	results := make(map[string]string, len(s.services.Readiness))
	for name, check := range s.services.Readiness {
		if err := check(ctx); err != nil {
			s.logger.Warn("Readiness check failed", zap.String("check", name), zap.Error(err))
			results[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		results[name] = "ok"
	}
	return c.JSON(status, map[string]interface{}{
		"status": http.StatusText(status),
		"checks": results,
	})
}
