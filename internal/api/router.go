package api

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/gendalf/services-portal/docs"
	"github.com/gendalf/services-portal/internal/api/handler"
	"github.com/gendalf/services-portal/internal/api/middleware"
	"github.com/gendalf/services-portal/internal/core/policy"
	"github.com/gendalf/services-portal/internal/core/ports"
)

// Deps carries everything the router wires into handlers.
type Deps struct {
	Log    zerolog.Logger
	Engine *policy.Engine

	Authn         ports.TokenAuthenticator
	Auth          ports.AuthService
	Tenants       ports.TenantService
	Catalog       ports.CatalogService
	Tariffs       ports.TariffService
	Subscriptions ports.SubscriptionService
	Accounts      ports.AccountService
	Assignments   ports.AssignmentService
	Usage         ports.UsageService
	UsageQueue    handler.UsageQueue

	// Health maps dependency names to readiness checks.
	Health map[string]handler.Pinger
	// Registerer receives the HTTP request metrics. Defaults to
	// prometheus.DefaultRegisterer.
	Registerer prometheus.Registerer
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(d.Log)

	reg := d.Registerer
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestIDWithConfig(echomiddleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(requestLogger(d.Log))
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Subsystem:  "portal",
		Registerer: reg,
		Skipper:    skipProbes,
	}))

	// --- Operational endpoints (no auth required) ---
	health := handler.NewHealthHandler(d.Health)
	e.GET("/health", health.Liveness)
	e.GET("/health/ready", health.Readiness)
	e.GET("/metrics", echoprometheus.NewHandler())
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	authn := middleware.Auth(d.Authn)
	gate := func(res policy.Resource, act policy.Action) echo.MiddlewareFunc {
		return middleware.Require(d.Engine, res, act)
	}

	// --- Auth ---
	authHandler := handler.NewAuthHandler(d.Auth)
	e.POST("/auth/login", authHandler.Login)
	e.GET("/auth/me", authHandler.Me, authn)

	// --- Clients ---
	clients := handler.NewClientHandler(d.Tenants)
	g := e.Group("/clients", authn)
	g.POST("", clients.Create, gate(policy.ResourceClient, policy.ActionCreate))
	g.GET("", clients.List, gate(policy.ResourceClient, policy.ActionList))
	g.GET("/me", clients.Mine, gate(policy.ResourceClient, policy.ActionRead))
	g.GET("/:id", clients.Get, gate(policy.ResourceClient, policy.ActionRead))
	g.PUT("/:id", clients.Update, gate(policy.ResourceClient, policy.ActionUpdate))
	g.DELETE("/:id", clients.Delete, gate(policy.ResourceClient, policy.ActionDelete))

	// --- Service catalog ---
	services := handler.NewServiceHandler(d.Catalog)
	g = e.Group("/services", authn)
	g.POST("", services.Create, gate(policy.ResourceService, policy.ActionCreate))
	g.GET("", services.List, gate(policy.ResourceService, policy.ActionList))
	g.GET("/:id", services.Get, gate(policy.ResourceService, policy.ActionRead))
	g.PUT("/:id", services.Update, gate(policy.ResourceService, policy.ActionUpdate))
	g.DELETE("/:id", services.Delete, gate(policy.ResourceService, policy.ActionDelete))

	// --- Tariffs ---
	tariffs := handler.NewTariffHandler(d.Tariffs)
	g = e.Group("/tariffs", authn)
	g.POST("", tariffs.Create, gate(policy.ResourceTariff, policy.ActionCreate))
	g.GET("", tariffs.List, gate(policy.ResourceTariff, policy.ActionList))
	g.GET("/:id", tariffs.Get, gate(policy.ResourceTariff, policy.ActionRead))
	g.PUT("/:id", tariffs.Update, gate(policy.ResourceTariff, policy.ActionUpdate))
	g.DELETE("/:id", tariffs.Delete, gate(policy.ResourceTariff, policy.ActionDelete))

	// --- Subscriptions ---
	subs := handler.NewSubscriptionHandler(d.Subscriptions)
	g = e.Group("/clientservices", authn)
	g.POST("", subs.Connect, gate(policy.ResourceClientService, policy.ActionCreate))
	g.GET("/client/:client_id", subs.ListByClient, gate(policy.ResourceClientService, policy.ActionList))
	g.DELETE("/:id", subs.Disconnect, gate(policy.ResourceClientService, policy.ActionDelete))

	// --- Users ---
	users := handler.NewUserHandler(d.Accounts)
	g = e.Group("/users", authn)
	g.POST("", users.Create, gate(policy.ResourceUser, policy.ActionCreate))
	g.GET("", users.List, gate(policy.ResourceUser, policy.ActionList))
	g.GET("/:id", users.Get, gate(policy.ResourceUser, policy.ActionRead))
	g.PUT("/:id", users.Update, gate(policy.ResourceUser, policy.ActionUpdate))
	g.DELETE("/:id", users.Delete, gate(policy.ResourceUser, policy.ActionDelete))

	// --- Assignments ---
	assignments := handler.NewAssignmentHandler(d.Assignments)
	g = e.Group("/user_service", authn)
	g.POST("", assignments.Assign, gate(policy.ResourceUserService, policy.ActionAssign))
	g.GET("/user/:user_id", assignments.ListByUser, gate(policy.ResourceUserService, policy.ActionList))
	g.DELETE("/:id", assignments.Revoke, gate(policy.ResourceUserService, policy.ActionRevoke))

	// --- Usage ---
	usage := handler.NewUsageHandler(d.Usage, d.UsageQueue)
	g = e.Group("/usage", authn)
	g.POST("", usage.Record, gate(policy.ResourceUsage, policy.ActionRecord))
	g.POST("/batch", usage.Batch, gate(policy.ResourceUsage, policy.ActionRecord))
	g.GET("/client/:client_id", usage.ByClient, gate(policy.ResourceUsageByClient, policy.ActionRead))
	g.GET("/user/:user_id", usage.ByUser, gate(policy.ResourceUsageByUser, policy.ActionRead))
	g.GET("/service/:service_id", usage.ByService, gate(policy.ResourceUsageByService, policy.ActionRead))

	return e
}

// requestLogger emits one zerolog event per request.
func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		Skipper:      skipProbes,
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogRemoteIP:  true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			ev := log.Info()
			switch {
			case v.Status >= http.StatusInternalServerError:
				ev = log.Error().Err(v.Error)
			case v.Status >= http.StatusBadRequest:
				ev = log.Warn()
			}
			ev.Str("request_id", v.RequestID).
				Str("method", v.Method).
				Str("uri", v.URI).
				Str("remote_ip", v.RemoteIP).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Msg("request")
			return nil
		},
	})
}

func skipProbes(c echo.Context) bool {
	p := c.Request().URL.Path
	return p == "/metrics" || strings.HasPrefix(p, "/health")
}
