// Package web serves the body controller over HTTP: the legacy /bodyaction
// endpoint the master process calls, a JSON API, a websocket event stream and
// Prometheus metrics.
package web

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-sapien/internal/log"
	"github.com/teslashibe/go-sapien/pkg/actuator"
	"github.com/teslashibe/go-sapien/pkg/body"
	"github.com/teslashibe/go-sapien/pkg/hub"
	"github.com/teslashibe/go-sapien/pkg/sensor"
)

// DefaultSubmitTimeout bounds how long a request waits for queue space.
const DefaultSubmitTimeout = 5 * time.Second

// Dispatcher is the part of body.Dispatcher the server drives.
type Dispatcher interface {
	Submit(ctx context.Context, cmd body.Command) (body.Command, error)
	Stop()
	Status() body.Status
}

// Outputs exposes the actuator shadow for status reports.
type Outputs interface {
	Active() []actuator.Output
	Snapshot() [2]uint16
}

// Server is the HTTP front of one body.
type Server struct {
	app    *fiber.App
	disp   Dispatcher
	outs   Outputs
	feed   *sensor.Feed
	events *hub.Hub
	logger *slog.Logger

	metrics       http.Handler
	submitTimeout time.Duration
}

// Option configures a Server.
type Option func(*Server)

// WithOutputs adds the actuator shadow to /api/status.
func WithOutputs(o Outputs) Option {
	return func(s *Server) { s.outs = o }
}

// WithFeed enables /api/sensors and sensor pushes over the websocket.
func WithFeed(f *sensor.Feed) Option {
	return func(s *Server) { s.feed = f }
}

// WithHub sets the hub /ws/events clients join. The server runs it.
func WithHub(h *hub.Hub) Option {
	return func(s *Server) { s.events = h }
}

// WithMetrics mounts h at /metrics.
func WithMetrics(h http.Handler) Option {
	return func(s *Server) { s.metrics = h }
}

// WithSubmitTimeout overrides DefaultSubmitTimeout.
func WithSubmitTimeout(d time.Duration) Option {
	return func(s *Server) { s.submitTimeout = d }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// New builds the server and its routes.
func New(d Dispatcher, opts ...Option) *Server {
	s := &Server{
		disp:          d,
		submitTimeout: DefaultSubmitTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = log.Component("web")
	}
	if s.events == nil {
		s.events = hub.New("events")
	}
	s.events.OnMessage(s.handleFrame)

	app := fiber.New(fiber.Config{
		AppName:               "go-sapien",
		DisableStartupMessage: true,
		ErrorHandler:          s.handleError,
	})
	app.Use(recover.New())
	app.Use(cors.New())

	app.Get("/bodyaction", s.handleBodyAction)

	api := app.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Get("/actions", s.handleListActions)
	api.Post("/actions", s.handleSubmit)
	api.Post("/stop", s.handleStop)
	api.Post("/sensors", s.handleSensors)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/events", websocket.New(s.handleEventsWS))

	if s.metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(s.metrics))
	}

	s.app = app
	return s
}

// App returns the fiber app, mainly for app.Test.
func (s *Server) App() *fiber.App { return s.app }

// Events returns the websocket hub.
func (s *Server) Events() *hub.Hub { return s.events }

// Run listens on addr until ctx is done.
func (s *Server) Run(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is done.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	go s.events.Run(ctx)

	errc := make(chan error, 1)
	go func() { errc <- s.app.Listener(ln) }()
	s.logger.Info("http api listening", "addr", ln.Addr().String())

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		if err := s.app.ShutdownWithTimeout(5 * time.Second); err != nil {
			return err
		}
		if err := <-errc; err != nil && !errors.Is(err, net.ErrClosed) {
			return err
		}
		return nil
	}
}
