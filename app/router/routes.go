// Package router provides HTTP routing, middleware configuration, and server setup for the web application
package router

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"slices"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gofiber/fiber/v3/middleware/cache"
	"github.com/gofiber/fiber/v3/middleware/compress"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/helmet"
	"github.com/gofiber/fiber/v3/middleware/limiter"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/gofiber/fiber/v3/middleware/requestid"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/amirphl/Kusanagi/app/dto"
	"github.com/amirphl/Kusanagi/app/handlers"
	"github.com/amirphl/Kusanagi/app/middleware"
	"github.com/amirphl/Kusanagi/config"
	"github.com/amirphl/Kusanagi/docs"
	"github.com/amirphl/Kusanagi/utils"
)

const healthPath = "/api/v1/health"

// HealthProbe reports whether a dependency is reachable
type HealthProbe func(ctx context.Context) error

// Dependency is a probed backing service. A failing optional dependency is
// reported in the health body but does not fail the check.
type Dependency struct {
	Probe    HealthProbe
	Optional bool
}

// Router interface for HTTP routing
type Router interface {
	SetupRoutes()
	Start(address string) error
	GetApp() *fiber.App
}

// FiberRouter implements Router using Fiber v3
type FiberRouter struct {
	app              *fiber.App
	cfg              *config.ProductionConfig
	logger           *zap.Logger
	shortLinkHandler handlers.ShortLinkHandlerInterface
	analyticsHandler handlers.AnalyticsHandlerInterface
	dependencies     map[string]Dependency
	blockedIPs       []net.IP
	blockedNets      []*net.IPNet
}

// NewFiberRouter creates a new Fiber router
func NewFiberRouter(
	cfg *config.ProductionConfig,
	logger *zap.Logger,
	shortLinkHandler handlers.ShortLinkHandlerInterface,
	analyticsHandler handlers.AnalyticsHandlerInterface,
	dependencies map[string]Dependency,
) Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &FiberRouter{
		cfg:              cfg,
		logger:           logger,
		shortLinkHandler: shortLinkHandler,
		analyticsHandler: analyticsHandler,
		dependencies:     dependencies,
	}
	r.blockedIPs, r.blockedNets = parseBlacklist(cfg.Security.IPBlacklist, logger)

	bodyLimit := cfg.Server.BodyLimit
	if bodyLimit <= 0 {
		bodyLimit = 4 * 1024 * 1024
	}
	r.app = fiber.New(fiber.Config{
		AppName:      "Kusanagi API",
		ServerHeader: "Kusanagi",
		ErrorHandler: r.errorHandler,
		BodyLimit:    bodyLimit,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		ProxyHeader:  cfg.Server.ProxyHeader,
		TrustProxy:   len(cfg.Server.TrustedProxies) > 0,
		TrustProxyConfig: fiber.TrustProxyConfig{
			Proxies: cfg.Server.TrustedProxies,
		},
		JSONEncoder: json.Marshal,
		JSONDecoder: json.Unmarshal,
	})
	return r
}

// SetupRoutes configures all application routes
func (r *FiberRouter) SetupRoutes() {
	r.logger.Info("Setting up routes...")

	r.setupMiddleware()

	api := r.app.Group("/api/v1")

	// Health check route (no rate limiting)
	api.Get("/health", r.healthCheck)

	if r.cfg.Metrics.Enabled {
		r.app.Get(r.metricsPath(), adaptor.HTTPHandler(promhttp.Handler()))
	}

	// API documentation route (development only)
	if r.cfg.Deployment.IsDevelopment() {
		api.Get("/docs", r.getAPIDocumentation)
		api.Get("/swagger.json", r.serveSwaggerJSON)
		r.app.Get("/swagger", r.serveSwaggerUI)
		r.logger.Info("API documentation enabled for development")
	}

	api.Use(r.rateLimiter(r.cfg.Security.GlobalRateLimit, func(c fiber.Ctx) bool {
		return c.Path() == healthPath
	}))

	links := api.Group("/url")
	links.Post("/shorten", r.shortLinkHandler.Shorten)
	links.Get("/:code/info", r.shortLinkHandler.Info)
	links.Delete("/:code", r.shortLinkHandler.Delete)

	analytics := api.Group("/analytics")
	analytics.Get("/dashboard", r.analyticsHandler.Dashboard)
	analytics.Get("/:code/export", r.analyticsHandler.ExportClicks)
	analytics.Get("/:code", r.analyticsHandler.LinkAnalytics)

	// Redirects live at the root and get their own budget
	r.app.Get("/:code", r.rateLimiter(r.cfg.Security.RedirectRateLimit, nil), r.shortLinkHandler.Redirect)

	// Not found handler
	r.app.Use(r.notFoundHandler)

	r.logger.Info("Routes configured successfully")
}

// SetupMiddleware configures global middleware
func (r *FiberRouter) setupMiddleware() {
	// Request ID middleware - must be first
	r.app.Use(requestid.New(requestid.Config{
		Header: "X-Request-ID",
		Generator: func() string {
			return uuid.NewString()
		},
	}))

	r.app.Use(helmet.New(helmet.Config{
		XSSProtection:             "1; mode=block",
		ContentTypeNosniff:        "nosniff",
		XFrameOptions:             "DENY",
		HSTSMaxAge:                31536000, // 1 year
		HSTSExcludeSubdomains:     false,
		ContentSecurityPolicy:     "default-src 'self'; script-src 'self' 'unsafe-inline' https://unpkg.com; style-src 'self' 'unsafe-inline' https://unpkg.com; img-src 'self' data: https:; font-src 'self' https:; connect-src 'self' https:; frame-ancestors 'none';",
		ReferrerPolicy:            "strict-origin-when-cross-origin",
		CrossOriginOpenerPolicy:   "same-origin",
		CrossOriginResourcePolicy: "cross-origin",
		OriginAgentCluster:        "?1",
		XDNSPrefetchControl:       "off",
		XDownloadOptions:          "noopen",
		XPermittedCrossDomain:     "none",
	}))

	sec := r.cfg.Security
	r.app.Use(cors.New(cors.Config{
		AllowOrigins:     sec.AllowedOrigins,
		AllowMethods:     sec.AllowedMethods,
		AllowHeaders:     sec.AllowedHeaders,
		ExposeHeaders:    []string{"X-Request-ID", "X-Response-Time"},
		AllowCredentials: sec.AllowCredentials && !slices.Contains(sec.AllowedOrigins, "*"),
		MaxAge:           sec.CORSMaxAge,
	}))

	if r.cfg.Server.EnableCompression {
		r.app.Use(compress.New(compress.Config{
			Level: compress.LevelBestSpeed,
			Next: func(c fiber.Ctx) bool {
				contentType := c.Get("Content-Type")
				return strings.Contains(contentType, "image/") ||
					strings.Contains(contentType, "video/") ||
					strings.Contains(contentType, "audio/")
			},
		}))
	}

	// Generated docs never change while the process runs
	r.app.Use(cache.New(cache.Config{
		Next: func(c fiber.Ctx) bool {
			return c.Method() != fiber.MethodGet || !strings.HasPrefix(c.Path(), "/api/v1/docs")
		},
		Expiration: 30 * time.Minute,
	}))

	if r.cfg.Logging.EnableAccessLog {
		r.app.Use(logger.New(logger.Config{
			Format:     `{"time":"${time}","pid":"${pid}","request_id":"${locals:requestid}","level":"info","method":"${method}","path":"${path}","protocol":"${protocol}","ip":"${ip}","user_agent":"${ua}","status":${status},"latency":"${latency}","bytes_in":${bytesReceived},"bytes_out":${bytesSent},"referer":"${referer}"}` + "\n",
			TimeFormat: time.RFC3339,
			TimeZone:   "UTC",
			Next: func(c fiber.Ctx) bool {
				return c.Path() == healthPath
			},
		}))
	}

	if r.cfg.Metrics.Enabled {
		r.app.Use(middleware.Metrics())
	}

	r.app.Use(r.securityMiddleware)

	r.app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
		StackTraceHandler: func(c fiber.Ctx, e any) {
			r.logger.Error("panic",
				zap.Any("request_id", c.Locals("requestid")),
				zap.Any("error", e),
				zap.String("path", c.Path()),
				zap.String("method", c.Method()),
				zap.String("ip", c.IP()),
				zap.Stack("stack"),
			)
		},
	}))
}

func (r *FiberRouter) rateLimiter(maxRequests int, next func(c fiber.Ctx) bool) fiber.Handler {
	window := r.cfg.Security.RateLimitWindow
	if window <= 0 {
		window = time.Minute
	}
	if maxRequests <= 0 {
		return func(c fiber.Ctx) error { return c.Next() }
	}
	return limiter.New(limiter.Config{
		Max:        maxRequests,
		Expiration: window,
		KeyGenerator: func(c fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(dto.APIResponse{
				Success: false,
				Message: "Too many requests. Please try again later.",
				Error: dto.ErrorDetail{
					Code: "RATE_LIMIT_EXCEEDED",
				},
			})
		},
		Next: next,
	})
}

// securityMiddleware stamps the response time and rejects blacklisted clients
func (r *FiberRouter) securityMiddleware(c fiber.Ctx) error {
	c.Set("X-Response-Time", utils.UTCNow().Format(time.RFC3339))

	if r.isBlocked(c.IP()) {
		return c.Status(fiber.StatusForbidden).JSON(dto.APIResponse{
			Success: false,
			Message: "Access denied from this IP address",
			Error: dto.ErrorDetail{
				Code: "ACCESS_DENIED",
			},
		})
	}
	return c.Next()
}

func (r *FiberRouter) isBlocked(clientIP string) bool {
	ip := net.ParseIP(clientIP)
	if ip == nil {
		return false
	}
	for _, blocked := range r.blockedIPs {
		if blocked.Equal(ip) {
			return true
		}
	}
	for _, network := range r.blockedNets {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

// parseBlacklist accepts single addresses and CIDR ranges; invalid entries are skipped
func parseBlacklist(entries []string, logger *zap.Logger) ([]net.IP, []*net.IPNet) {
	var ips []net.IP
	var nets []*net.IPNet
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if strings.Contains(entry, "/") {
			_, network, err := net.ParseCIDR(entry)
			if err != nil {
				logger.Warn("Ignoring invalid blacklist range", zap.String("entry", entry), zap.Error(err))
				continue
			}
			nets = append(nets, network)
			continue
		}
		ip := net.ParseIP(entry)
		if ip == nil {
			logger.Warn("Ignoring invalid blacklist address", zap.String("entry", entry))
			continue
		}
		ips = append(ips, ip)
	}
	return ips, nets
}

func (r *FiberRouter) metricsPath() string {
	if r.cfg.Metrics.Path == "" {
		return "/metrics"
	}
	return r.cfg.Metrics.Path
}

// Start starts the HTTP server
func (r *FiberRouter) Start(address string) error {
	r.logger.Info("Starting server", zap.String("address", address))
	return r.app.Listen(address)
}

// GetApp returns the Fiber app instance
func (r *FiberRouter) GetApp() *fiber.App {
	return r.app
}

// healthCheck pings every registered dependency. Only a required dependency
// being down turns the answer into 503; an optional one only degrades it.
func (r *FiberRouter) healthCheck(c fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	checks := make(map[string]string, len(r.dependencies))
	healthy, degraded := true, false
	for name, dep := range r.dependencies {
		if err := dep.Probe(ctx); err != nil {
			checks[name] = "down"
			if dep.Optional {
				degraded = true
			} else {
				healthy = false
			}
			r.logger.Warn("Health probe failed",
				zap.String("dependency", name),
				zap.Bool("optional", dep.Optional),
				zap.Error(err),
			)
			continue
		}
		checks[name] = "up"
	}

	data := fiber.Map{
		"status":    "ok",
		"timestamp": utils.UTCNow().Unix(),
		"version":   r.cfg.Deployment.Version,
		"service":   "kusanagi-api",
		"checks":    checks,
	}
	if !healthy {
		data["status"] = "unhealthy"
		return c.Status(fiber.StatusServiceUnavailable).JSON(dto.APIResponse{
			Success: false,
			Message: "Service is unavailable",
			Data:    data,
			Error:   dto.ErrorDetail{Code: "DEPENDENCY_DOWN"},
		})
	}
	if degraded {
		data["status"] = "degraded"
		return c.JSON(dto.APIResponse{
			Success: true,
			Message: "Service is degraded",
			Data:    data,
		})
	}
	return c.JSON(dto.APIResponse{
		Success: true,
		Message: "Service is healthy",
		Data:    data,
	})
}

// API documentation endpoint
func (r *FiberRouter) getAPIDocumentation(c fiber.Ctx) error {
	return c.JSON(dto.APIResponse{
		Success: true,
		Message: "API documentation retrieved successfully",
		Data: fiber.Map{
			"title":       docs.SwaggerInfo.Title,
			"version":     docs.SwaggerInfo.Version,
			"description": docs.SwaggerInfo.Description,
			"endpoints":   GetRouteDocumentation(),
		},
	})
}

// serveSwaggerJSON renders the document registered by the generated docs package
func (r *FiberRouter) serveSwaggerJSON(c fiber.Ctx) error {
	c.Set("Content-Type", "application/json")
	return c.SendString(docs.SwaggerInfo.ReadDoc())
}

// Serve Swagger UI HTML page
func (r *FiberRouter) serveSwaggerUI(c fiber.Ctx) error {
	htmlContent := `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Kusanagi API - Swagger UI</title>
    <link rel="stylesheet" type="text/css" href="https://unpkg.com/swagger-ui-dist@5.9.0/swagger-ui.css" />
    <style>
        body {
            margin:0;
            background: #fafafa;
        }
    </style>
</head>
<body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5.9.0/swagger-ui-bundle.js"></script>
    <script src="https://unpkg.com/swagger-ui-dist@5.9.0/swagger-ui-standalone-preset.js"></script>
    <script>
        window.onload = function() {
            SwaggerUIBundle({
                url: '/api/v1/swagger.json',
                dom_id: '#swagger-ui',
                deepLinking: true,
                presets: [
                    SwaggerUIBundle.presets.apis,
                    SwaggerUIStandalonePreset
                ],
                layout: "StandaloneLayout",
                validatorUrl: null
            });
        };
    </script>
</body>
</html>`

	c.Set("Content-Type", "text/html")
	return c.SendString(htmlContent)
}

// Not found handler
func (r *FiberRouter) notFoundHandler(c fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(dto.APIResponse{
		Success: false,
		Message: "The requested resource was not found",
		Error: dto.ErrorDetail{
			Code: "NOT_FOUND",
			Details: fiber.Map{
				"path":       c.Path(),
				"method":     c.Method(),
				"request_id": c.Locals("requestid"),
			},
		},
	})
}

// Global error handler
func (r *FiberRouter) errorHandler(c fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "An internal server error occurred"
	errCode := "INTERNAL_ERROR"

	// Retrieve the custom status code if it's a fiber.*Error
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		if code < fiber.StatusInternalServerError {
			message = fe.Message
			errCode = "REQUEST_ERROR"
		}
	}

	r.logger.Error("Request failed",
		zap.Int("status", code),
		zap.Any("request_id", c.Locals("requestid")),
		zap.String("path", c.Path()),
		zap.Error(err),
	)

	return c.Status(code).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code: errCode,
			Details: fiber.Map{
				"timestamp":  utils.UTCNow().Unix(),
				"request_id": c.Locals("requestid"),
			},
		},
	})
}

// GetRouteDocumentation returns API documentation
func GetRouteDocumentation() []map[string]any {
	return []map[string]any{
		{
			"method":      "POST",
			"path":        "/api/v1/url/shorten",
			"description": "Create a short link or return the active one for the same URL",
			"parameters": map[string]any{
				"originalUrl":   "string (required) - http or https URL",
				"customAlias":   "string (optional) - 3 to 20 chars of [A-Za-z0-9-]",
				"expiresInDays": "number (optional) - 0 expires immediately",
				"ownerId":       "string (optional) - owner used by the dashboard filter",
			},
		},
		{
			"method":      "GET",
			"path":        "/api/v1/url/:code/info",
			"description": "Resolve a code without recording a click",
			"parameters": map[string]any{
				"code": "string (required) - short code or alias in URL path",
			},
		},
		{
			"method":      "DELETE",
			"path":        "/api/v1/url/:code",
			"description": "Deactivate a short link",
			"parameters": map[string]any{
				"code": "string (required) - short code or alias in URL path",
			},
		},
		{
			"method":      "GET",
			"path":        "/api/v1/analytics/dashboard",
			"description": "Totals, recent and top links with click breakdowns",
			"parameters": map[string]any{
				"owner_id": "string (optional) - query parameter, falls back to the X-Owner-ID header",
			},
		},
		{
			"method":      "GET",
			"path":        "/api/v1/analytics/:code",
			"description": "Click history and breakdowns of one link",
			"parameters": map[string]any{
				"code": "string (required) - short code or alias in URL path",
			},
		},
		{
			"method":      "GET",
			"path":        "/api/v1/analytics/:code/export",
			"description": "Download the stored clicks of a link",
			"parameters": map[string]any{
				"code":   "string (required) - short code or alias in URL path",
				"format": "string (optional) - query parameter: csv|xlsx (default: csv)",
			},
		},
		{
			"method":      "GET",
			"path":        "/:code",
			"description": "Permanent redirect to the target URL",
			"parameters": map[string]any{
				"code": "string (required) - [A-Za-z0-9_-]{3,20}",
			},
		},
		{
			"method":      "GET",
			"path":        "/api/v1/health",
			"description": "Health check endpoint",
			"parameters":  map[string]any{},
		},
	}
}
