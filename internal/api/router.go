package api

import (
	"net/http"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	"github.com/pepcraft/storefront/internal/api/handler"
	"github.com/pepcraft/storefront/internal/api/middleware"
	"github.com/pepcraft/storefront/internal/core/ports"
	"github.com/pepcraft/storefront/internal/infrastructure/http/handlers"
)

// RouterDeps are the collaborators the HTTP layer is built from.
type RouterDeps struct {
	Workspaces middleware.WorkspaceResolver
	OAuth      handler.OAuthCompleter
	Catalog    ports.CatalogService
	Newsletter ports.NewsletterService
	// Readiness lists the dependencies probed by /health/ready.
	Readiness map[string]handlers.Pinger
	SiteURL   string
	Log       zerolog.Logger
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(deps RouterDeps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(deps.Log))
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins:     []string{deps.SiteURL},
		AllowHeaders:     []string{echo.HeaderContentType, middleware.HeaderClientID},
		ExposeHeaders:    []string{middleware.HeaderClientID},
		AllowCredentials: true,
	}))
	e.Use(echoprometheus.NewMiddleware("storefront"))

	// --- Handlers ---
	authHandler := handler.NewAuthHandler(deps.OAuth, deps.SiteURL, deps.Log)
	cartHandler := handler.NewCartHandler(deps.Catalog)
	productHandler := handler.NewProductHandler(deps.Catalog)
	newsletterHandler := handler.NewNewsletterHandler(deps.Newsletter)
	client := middleware.Client(deps.Workspaces)

	// --- Auth routes ---
	// The callback is reached by the provider redirect, which carries no
	// client header; the originating client is recovered from the state.
	e.GET("/auth/callback", authHandler.Callback)

	auth := e.Group("/auth", client)
	auth.POST("/login", authHandler.Login)
	auth.POST("/signup", authHandler.Signup)
	auth.POST("/logout", authHandler.Logout)
	auth.GET("/google", authHandler.Google)
	auth.GET("/session", authHandler.Session)
	auth.PUT("/modal", authHandler.SetModal)

	// --- Cart routes ---
	cart := e.Group("/cart", client)
	cart.GET("", cartHandler.Get)
	cart.DELETE("", cartHandler.Clear)
	cart.POST("/items", cartHandler.Add)
	cart.PATCH("/items/:id", cartHandler.UpdateQuantity)
	cart.DELETE("/items/:id", cartHandler.Remove)
	cart.PUT("/panel", cartHandler.SetPanel)

	// --- Catalog and newsletter (no client identity needed) ---
	e.GET("/products", productHandler.List)
	e.GET("/products/:id", productHandler.Get)
	e.POST("/newsletter", newsletterHandler.Subscribe)

	// --- Health probes ---
	healthHandler := handlers.NewHealthHandler()
	healthDepsHandler := handlers.NewHealthDependenciesHandler(deps.Readiness)

	e.GET("/health", healthHandler.Liveness)            // liveness  – is the process alive?
	e.GET("/health/ready", healthDepsHandler.Readiness) // readiness – are dependencies up?

	// --- Ops ---
	e.GET("/metrics", echoprometheus.NewHandler())
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e
}

func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/metrics" || c.Path() == "/health"
		},
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			ev := log.Info()
			if v.Error != nil || v.Status >= http.StatusInternalServerError {
				ev = log.Error().Err(v.Error)
			}
			ev.Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Str("client_id", c.Response().Header().Get(middleware.HeaderClientID)).
				Msg("request")
			return nil
		},
	})
}
