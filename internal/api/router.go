package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/sonbon03/vinhxuan-mono-sub003/docs"
	"github.com/sonbon03/vinhxuan-mono-sub003/internal/api/handler"
	"github.com/sonbon03/vinhxuan-mono-sub003/internal/api/middleware"
	"github.com/sonbon03/vinhxuan-mono-sub003/internal/core/domain"
	"github.com/sonbon03/vinhxuan-mono-sub003/internal/core/ports"
	"github.com/sonbon03/vinhxuan-mono-sub003/internal/infrastructure/http/handlers"
)

// Dependencies are the services the router mounts.
type Dependencies struct {
	Auth   ports.AuthService
	Users  ports.UserService
	Matrix *domain.PermissionMatrix
	Checks map[string]handlers.Check
	Log    zerolog.Logger
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(deps Dependencies) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(deps.Log))
	e.Use(echoprometheus.NewMiddleware("auth"))

	authHandler := handler.NewAuthHandler(deps.Auth, deps.Matrix)
	userHandler := handler.NewUserHandler(deps.Users, deps.Matrix)

	// --- Auth routes ---
	auth := e.Group("/auth")
	auth.POST("/login", authHandler.Login)
	auth.POST("/refresh", authHandler.Refresh)
	auth.POST("/logout", authHandler.Logout)
	auth.POST("/authorize", authHandler.Authorize)
	auth.GET("/me", authHandler.Me, middleware.RequirePermission(deps.Auth, domain.PermReadOwnProfile))

	// --- User administration ---
	users := e.Group("/v1/users")
	users.POST("", userHandler.Create, middleware.RequirePermission(deps.Auth, domain.PermWriteUsers))
	users.GET("/:id", userHandler.Get, middleware.Authenticate(deps.Auth))
	users.PATCH("/:id/status", userHandler.SetStatus, middleware.RequirePermission(deps.Auth, domain.PermWriteUsers))

	// --- Health probes (no auth required) ---
	healthHandler := handlers.NewHealthHandler()
	readinessHandler := handlers.NewReadinessHandler(deps.Checks)

	e.GET("/health", healthHandler.Liveness)           // liveness  – is the process alive?
	e.GET("/health/ready", readinessHandler.Readiness) // readiness – are dependencies up?

	e.GET("/metrics", echoprometheus.NewHandler())
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e
}

func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogURI:       true,
		LogMethod:    true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			evt := log.Info()
			switch {
			case v.Status >= 500:
				evt = log.Error().Err(v.Error)
			case v.Error != nil:
				evt = log.Warn().Err(v.Error)
			}
			evt.
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Msg("request")
			return nil
		},
	})
}
