package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"runtime"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	echoSwagger "github.com/swaggo/echo-swagger"
	"golang.org/x/time/rate"

	_ "github.com/geominder/core/docs"
	httpHandlers "github.com/geominder/core/internal/adapters/http"
	"github.com/geominder/core/internal/application/services"
	"github.com/geominder/core/internal/domain/entities"
	"github.com/geominder/core/internal/domain/geometry"
	"github.com/geominder/core/internal/infrastructure/config"
	"github.com/geominder/core/internal/infrastructure/logger"
	"github.com/geominder/core/internal/infrastructure/storage"
)

// Server represents the HTTP server
type Server struct {
	echo     *echo.Echo
	config   *config.Config
	logger   *logger.Logger
	backends *storage.Backends
	registry *prometheus.Registry
	repo     *services.ReminderRepository
	auth     *services.AuthService
}

// CustomValidator wraps the validator
type CustomValidator struct {
	validator *validator.Validate
}

// Validate validates structs
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}

// New creates a new server instance
func New(cfg *config.Config, backends *storage.Backends, appLogger *logger.Logger) (*Server, error) {
	e := echo.New()

	// Set custom validator
	e.Validator = &CustomValidator{validator: validator.New()}

	// Configure Echo
	e.HideBanner = true
	e.HidePort = true

	// Custom error handler
	e.HTTPErrorHandler = customErrorHandler(appLogger)

	// Initialize services
	idling := services.NewIdlingResource("reminder_repository")
	metrics := services.NewMetrics(idling)
	reminderRepo := services.NewReminderRepository(backends.Store, idling, metrics, appLogger)
	authService := services.NewAuthService(cfg.JWT, cfg.Auth, metrics, appLogger)
	reducer := geometry.NewReducer(cfg.Geofence.DefaultRadiusMeters)

	// Initialize handlers
	authHandler := httpHandlers.NewAuthHandler(authService, appLogger)
	reminderHandler := httpHandlers.NewReminderHandler(reminderRepo, backends.Geofences, reducer, cfg.Geofence.ToggleRadiusMeters, appLogger)
	geometryHandler := httpHandlers.NewGeometryHandler(reducer, backends.Geofences, appLogger)
	sessionHandler := httpHandlers.NewSessionHandler(
		reminderRepo,
		backends.Geofences,
		reducer,
		cfg.Geofence.ToggleRadiusMeters,
		allowedOrigins(cfg.Security),
		appLogger,
	)

	server := &Server{
		echo:     e,
		config:   cfg,
		logger:   appLogger,
		backends: backends,
		registry: prometheus.NewRegistry(),
		repo:     reminderRepo,
		auth:     authService,
	}

	// Setup middleware
	server.setupMiddleware()

	// Setup metrics
	if cfg.Metrics.Enabled {
		if err := server.setupMetrics(metrics); err != nil {
			return nil, err
		}
	}

	// Setup routes
	server.setupRoutes(authHandler, reminderHandler, geometryHandler, sessionHandler)

	return server, nil
}

// Echo exposes the router, mainly for tests
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

// Repository returns the reminder repository served by this server
func (s *Server) Repository() *services.ReminderRepository {
	return s.repo
}

// setupMiddleware configures middleware
func (s *Server) setupMiddleware() {
	// Recovery middleware
	s.echo.Use(middleware.Recover())

	// Logger middleware
	s.echo.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogMethod:    true,
		LogLatency:   true,
		LogError:     true,
		LogRemoteIP:  true,
		LogUserAgent: true,
		LogRequestID: true,
		LogValuesFunc: func(c echo.Context, values middleware.RequestLoggerValues) error {
			reqLogger := s.logger.WithRequestID(values.RequestID)
			if claims := getClaimsFromContext(c); claims != nil {
				reqLogger = reqLogger.WithFields("subject", claims.Subject)
			}
			if values.Error != nil {
				reqLogger.Errorw("HTTP request failed",
					"method", values.Method,
					"uri", values.URI,
					"status", values.Status,
					"error", values.Error.Error(),
				)
				return nil
			}

			reqLogger.LogHTTPRequest(
				values.Method,
				values.URI,
				values.UserAgent,
				values.RemoteIP,
				values.Status,
				float64(values.Latency.Nanoseconds())/1000000,
			)
			return nil
		},
	}))

	// CORS middleware
	s.echo.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: allowedOrigins(s.config.Security),
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		AllowMethods: []string{echo.GET, echo.HEAD, echo.PUT, echo.POST, echo.DELETE},
	}))

	// Rate limiting middleware
	if s.config.Security.RateLimitRequests > 0 {
		window := s.config.Security.RateLimitWindow
		if window <= 0 {
			window = time.Second
		}
		s.echo.Use(middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
			Store: middleware.NewRateLimiterMemoryStoreWithConfig(
				middleware.RateLimiterMemoryStoreConfig{
					Rate:      rate.Limit(float64(s.config.Security.RateLimitRequests) / window.Seconds()),
					Burst:     s.config.Security.RateLimitRequests,
					ExpiresIn: window,
				},
			),
			IdentifierExtractor: func(ctx echo.Context) (string, error) {
				return ctx.RealIP(), nil
			},
			ErrorHandler: func(context echo.Context, err error) error {
				return context.JSON(http.StatusForbidden, map[string]string{"message": "rate limit exceeded"})
			},
			DenyHandler: func(context echo.Context, identifier string, err error) error {
				return context.JSON(http.StatusTooManyRequests, map[string]string{"message": "rate limit exceeded"})
			},
		}))
	}

	// Security headers
	s.echo.Use(middleware.SecureWithConfig(middleware.SecureConfig{
		XSSProtection:      "1; mode=block",
		ContentTypeNosniff: "nosniff",
		XFrameOptions:      "DENY",
		HSTSMaxAge:         31536000,
	}))

	// Request ID middleware
	s.echo.Use(middleware.RequestID())

	// Timeout middleware; WebSocket upgrades need the raw connection
	s.echo.Use(middleware.TimeoutWithConfig(middleware.TimeoutConfig{
		Skipper: func(c echo.Context) bool {
			return strings.HasSuffix(c.Request().URL.Path, "/ws")
		},
		Timeout: 30 * time.Second,
	}))
}

// setupRoutes configures all routes
func (s *Server) setupRoutes(
	authHandler *httpHandlers.AuthHandler,
	reminderHandler *httpHandlers.ReminderHandler,
	geometryHandler *httpHandlers.GeometryHandler,
	sessionHandler *httpHandlers.SessionHandler,
) {
	// Health check routes
	s.echo.GET("/health", s.healthCheck)
	s.echo.GET("/health/detailed", s.detailedHealthCheck)
	s.echo.GET("/ready", s.readinessCheck)

	// Swagger documentation
	s.echo.GET("/swagger/*", echoSwagger.WrapHandler)

	// API v1 routes
	v1 := s.echo.Group("/api/v1")

	// Auth routes
	authGroup := v1.Group("/auth")
	authGroup.POST("/login", authHandler.Login)
	authGroup.GET("/state", authHandler.State)
	authGroup.POST("/logout", authHandler.Logout, s.authMiddleware())

	// Reminder routes (authenticated)
	reminderGroup := v1.Group("/reminders", s.authMiddleware())
	reminderGroup.GET("", reminderHandler.ListReminders)
	reminderGroup.POST("", reminderHandler.CreateReminder)
	reminderGroup.DELETE("", reminderHandler.DeleteAllReminders)
	reminderGroup.GET("/:id", reminderHandler.GetReminder)
	reminderGroup.PUT("/:id", reminderHandler.UpdateReminder)
	reminderGroup.DELETE("/:id", reminderHandler.DeleteReminder)

	// Geometry routes (authenticated)
	v1.POST("/geometry/circle", geometryHandler.Circle, s.authMiddleware())
	v1.GET("/geofences/containing", geometryHandler.Containing, s.authMiddleware())

	// Edit sessions (authenticated)
	v1.GET("/sessions/ws", sessionHandler.Connect, s.authMiddleware())
}

// setupMetrics configures Prometheus metrics
func (s *Server) setupMetrics(repoMetrics *services.Metrics) error {
	requestsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	s.registry.MustRegister(
		requestsTotal,
		requestDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	if err := repoMetrics.Register(s.registry); err != nil {
		return fmt.Errorf("failed to register repository metrics: %w", err)
	}

	// Custom metrics middleware
	s.echo.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)

			duration := time.Since(start)
			status := c.Response().Status
			if err != nil {
				var he *echo.HTTPError
				if errors.As(err, &he) {
					status = he.Code
				}
			}

			requestsTotal.WithLabelValues(
				c.Request().Method,
				c.Path(),
				fmt.Sprintf("%d", status),
			).Inc()

			requestDuration.WithLabelValues(
				c.Request().Method,
				c.Path(),
			).Observe(duration.Seconds())

			return err
		}
	})

	// Metrics endpoint
	metricsHandler := promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})
	s.echo.GET("/metrics", echo.WrapHandler(metricsHandler))

	return nil
}

// Health check handlers
func (s *Server) healthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) detailedHealthCheck(c echo.Context) error {
	status := "ok"
	checks := make(map[string]interface{})

	for name, err := range s.backends.HealthCheck(c.Request().Context()) {
		if err != nil {
			status = "error"
			checks[name] = map[string]interface{}{
				"status": "error",
				"error":  err.Error(),
			}
			continue
		}
		check := map[string]interface{}{"status": "ok"}
		if name == "database" {
			check["stats"] = s.backends.DB.GetConnectionInfo()
		}
		checks[name] = check
	}

	checks["reminder_repository"] = map[string]interface{}{
		"status":         "ok",
		"busy":           s.repo.Idling().Count(),
		"storage_driver": s.config.Storage.Driver,
	}

	response := map[string]interface{}{
		"status": status,
		"time":   time.Now().UTC().Format(time.RFC3339),
		"checks": checks,
		"version": map[string]string{
			"app": s.config.App.Version,
			"go":  runtime.Version(),
		},
	}

	if status == "ok" {
		return c.JSON(http.StatusOK, response)
	}
	return c.JSON(http.StatusServiceUnavailable, response)
}

func (s *Server) readinessCheck(c echo.Context) error {
	for name, err := range s.backends.HealthCheck(c.Request().Context()) {
		if err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{
				"status": "not_ready",
				"reason": name + "_not_ready",
			})
		}
	}

	return c.JSON(http.StatusOK, map[string]string{
		"status": "ready",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// Start starts the HTTP server
func (s *Server) Start(address string) error {
	s.logger.Infow("Starting server", "address", address)

	s.echo.Server.ReadTimeout = s.config.Server.ReadTimeout
	s.echo.Server.WriteTimeout = s.config.Server.WriteTimeout
	s.echo.Server.IdleTimeout = s.config.Server.IdleTimeout

	return s.echo.Start(address)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down server")
	return s.echo.Shutdown(ctx)
}

func allowedOrigins(cfg config.SecurityConfig) []string {
	var origins []string
	for _, o := range strings.Split(cfg.CORSAllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}

// customErrorHandler handles HTTP errors
func customErrorHandler(logger *logger.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		var (
			code = http.StatusInternalServerError
			msg  interface{}

			he   *echo.HTTPError
			verr *entities.ValidationError
			vErrs validator.ValidationErrors
		)

		switch {
		case errors.As(err, &he):
			code = he.Code
			msg = map[string]interface{}{"message": he.Message}
			if he.Internal != nil {
				err = fmt.Errorf("%v, %v", err, he.Internal)
			}
		case errors.As(err, &verr):
			code = http.StatusUnprocessableEntity
			msg = map[string]string{"message": verr.Key, "field": verr.Field}
		case errors.As(err, &vErrs):
			code = http.StatusBadRequest
			msg = map[string]string{"message": "validation failed", "details": vErrs.Error()}
		case errors.Is(err, entities.ErrReminderNotFound):
			code = http.StatusNotFound
			msg = map[string]string{"message": entities.ReminderNotFoundMessage}
		case services.IsAuthError(err):
			code = http.StatusUnauthorized
			msg = map[string]string{"message": "unauthorized"}
		case errors.Is(err, entities.ErrInvalidLocation):
			code = http.StatusBadRequest
			msg = map[string]string{"message": err.Error()}
		default:
			msg = map[string]string{"message": http.StatusText(code)}
		}

		if code == http.StatusInternalServerError {
			logger.Errorw("Internal server error", "error", err, "path", c.Request().URL.Path)
		}

		// Send response
		if !c.Response().Committed {
			if c.Request().Method == echo.HEAD {
				err = c.NoContent(code)
			} else {
				err = c.JSON(code, msg)
			}
			if err != nil {
				logger.Errorw("Error sending response", "error", err)
			}
		}
	}
}
