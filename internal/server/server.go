// Package server exposes the query generator over a small JSON HTTP API that
// the browser form (or any other client) can call.
package server

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/VictoriaMetrics/metrics"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/google/uuid"

	"github.com/mr-karan/sparkq/internal/sqlgen"
)

const requestIDHeader = "X-Request-ID"

// Options configures the HTTP server.
type Options struct {
	Address      string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	CORSOrigins  []string
	Lint         bool
	Version      string
	Logger       *slog.Logger
}

// Server serves the generator. The generator and registry are read-only,
// so handlers share them without locking.
type Server struct {
	app     *fiber.App
	gen     *sqlgen.Generator
	opts    Options
	log     *slog.Logger
	version string
}

// New builds the fiber app and registers routes.
func New(gen *sqlgen.Generator, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		gen:     gen,
		opts:    opts,
		log:     logger.With("component", "server"),
		version: opts.Version,
	}

	s.app = fiber.New(fiber.Config{
		AppName:               "sparkq",
		DisableStartupMessage: true,
		ReadTimeout:           opts.ReadTimeout,
		WriteTimeout:          opts.WriteTimeout,
		ErrorHandler:          s.errorHandler,
	})

	origins := "*"
	if len(opts.CORSOrigins) > 0 {
		origins = strings.Join(opts.CORSOrigins, ",")
	}
	s.app.Use(cors.New(cors.Config{
		AllowOrigins: origins,
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, " + requestIDHeader,
	}))
	s.app.Use(s.requestMiddleware)

	s.registerRoutes()
	return s
}

// App returns the underlying fiber app.
func (s *Server) App() *fiber.App {
	return s.app
}

// Start listens on the configured address and blocks until shutdown.
func (s *Server) Start() error {
	addr := s.opts.Address
	if addr == "" {
		addr = ":8125"
	}
	s.log.Info("starting server", "address", addr)
	if err := s.app.Listen(addr); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	return nil
}

// Shutdown stops the server, waiting up to timeout for in-flight requests.
func (s *Server) Shutdown(timeout time.Duration) error {
	return s.app.ShutdownWithTimeout(timeout)
}

func (s *Server) registerRoutes() {
	api := s.app.Group("/api/v1")

	api.Get("/health", s.handleHealth)
	api.Get("/metrics", s.handleMetrics)

	api.Get("/tables", s.handleListTables)
	api.Get("/tables/:table/fields", s.handleListFields)
	api.Get("/tables/:table/conditions", s.handleListConditions)
	api.Get("/join-keys", s.handleJoinKeys)
	api.Get("/quick-queries", s.handleListQuickQueries)

	api.Post("/validate", s.handleValidate)
	api.Post("/generate", s.handleGenerate)
	api.Post("/quick/:key", s.handleQuickQuery)
}

// requestMiddleware tags each request with an ID and records its latency.
func (s *Server) requestMiddleware(c *fiber.Ctx) error {
	start := time.Now()

	reqID := c.Get(requestIDHeader)
	if reqID == "" {
		reqID = uuid.New().String()
	}
	c.Set(requestIDHeader, reqID)
	c.Locals("request_id", reqID)

	err := c.Next()

	path := c.Route().Path
	metrics.GetOrCreateHistogram(fmt.Sprintf(`sparkq_http_request_duration_seconds{path=%q}`, path)).UpdateDuration(start)
	metrics.GetOrCreateCounter(fmt.Sprintf(`sparkq_http_requests_total{path=%q,status="%d"}`, path, c.Response().StatusCode())).Inc()

	s.log.Debug("request",
		"request_id", reqID,
		"method", c.Method(),
		"path", c.Path(),
		"status", c.Response().StatusCode(),
		"duration", time.Since(start))
	return err
}

func (s *Server) errorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		errType := GeneralErrorType
		if fe.Code == fiber.StatusNotFound {
			errType = NotFoundErrorType
		}
		return SendErrorWithType(c, fe.Code, fe.Message, errType)
	}
	s.log.Error("unhandled error", "error", err, "path", c.Path())
	return SendErrorWithType(c, fiber.StatusInternalServerError, "Internal server error", GeneralErrorType)
}
