// Package api exposes the route sighting aggregator over HTTP.
package api

import (
	"crypto/rand"
	"log/slog"
	"net/http"
	"path/filepath"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/joyvchen/birdride/internal/aggregator"
	"github.com/joyvchen/birdride/internal/conf"
	"github.com/joyvchen/birdride/internal/imageprovider"
	"github.com/joyvchen/birdride/internal/logging"
)

// Controller manages the API routes and handlers.
type Controller struct {
	Echo  *echo.Echo
	Group *echo.Group

	aggregator *aggregator.Aggregator
	images     *imageprovider.Cache
	settings   *conf.Settings

	apiLogger      *slog.Logger
	apiLevelVar    *slog.LevelVar
	apiLoggerClose func() error
}

// New creates the API controller and registers its routes on e. The image
// cache is optional; without one, responses carry no photos.
func New(e *echo.Echo, agg *aggregator.Aggregator, images *imageprovider.Cache, settings *conf.Settings) *Controller {
	c := &Controller{
		Echo:        e,
		aggregator:  agg,
		images:      images,
		settings:    settings,
		apiLevelVar: new(slog.LevelVar),
	}

	if settings != nil && settings.Debug {
		c.apiLevelVar.Set(slog.LevelDebug)
	} else {
		c.apiLevelVar.Set(slog.LevelInfo)
	}

	logger, closeFn, err := logging.NewFileLogger(filepath.Join("logs", "api.log"), "api", c.apiLevelVar)
	if err != nil {
		e.Logger.Warnf("failed to initialize API log file: %v", err)
	} else {
		c.apiLogger = logger
		c.apiLoggerClose = closeFn
	}

	c.Group = e.Group("/api/v1")
	c.Group.Use(middleware.Recover())
	c.Group.Use(middleware.CORS())
	c.Group.Use(middleware.BodyLimit("64K"))

	c.initRoutes()
	return c
}

// RegisterMetricsHandler exposes the Prometheus registry on /metrics.
func (c *Controller) RegisterMetricsHandler(registry *prometheus.Registry) {
	c.Echo.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
}

func (c *Controller) initRoutes() {
	c.Group.GET("/sightings", c.GetSightings)
	c.Group.GET("/health", c.GetHealth)
}

// GetHealth reports liveness.
func (c *Controller) GetHealth(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// Shutdown closes resources held by the controller.
func (c *Controller) Shutdown() {
	if c.apiLoggerClose != nil {
		if err := c.apiLoggerClose(); err != nil {
			c.Echo.Logger.Warnf("failed to close API log file: %v", err)
		}
	}
}

// ErrorResponse is the JSON error envelope for every API failure.
type ErrorResponse struct {
	Error         string `json:"error"`
	Message       string `json:"message"`
	Code          int    `json:"code"`
	CorrelationID string `json:"correlation_id"`
}

// HandleError logs the failure and writes the error envelope.
func (c *Controller) HandleError(ctx echo.Context, err error, message string, code int) error {
	resp := &ErrorResponse{
		Error:         err.Error(),
		Message:       message,
		Code:          code,
		CorrelationID: generateCorrelationID(),
	}

	if c.apiLogger != nil {
		c.apiLogger.Error("request failed",
			"correlation_id", resp.CorrelationID,
			"message", message,
			"error", err.Error(),
			"code", code,
			"path", ctx.Request().URL.Path,
			"method", ctx.Request().Method,
			"ip", ctx.RealIP())
	}

	return ctx.JSON(code, resp)
}

// generateCorrelationID returns a short random token for correlating a logged
// failure with the response the caller saw.
func generateCorrelationID() string {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	const length = 8

	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return "ERR-RAND"
	}
	for i := range b {
		b[i] = charset[int(b[i])%len(charset)]
	}
	return string(b)
}
