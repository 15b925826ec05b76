// Package web serves the live dashboard: the annotated camera stream,
// detector status, alert history and camera controls.
package web

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/teslashibe/go-spotter/pkg/alert"
	"github.com/teslashibe/go-spotter/pkg/camera"
	"github.com/teslashibe/go-spotter/pkg/detection"
	"github.com/teslashibe/go-spotter/pkg/hub"
)

// State is what the dashboard shows above the video.
type State struct {
	Message  string        `json:"message"` // Initializing, Starting Webcam, Loading model, ...
	Loaded   bool          `json:"loaded"`
	Running  bool          `json:"running"`
	Error    string        `json:"error,omitempty"`
	Model    string        `json:"model"`
	Camera   camera.Config `json:"camera"`
	FPS      float64       `json:"fps"`
	Frames   uint64        `json:"frames"`
	Alert    alert.Status  `json:"alert"`
	Watchers int           `json:"watchers"`
}

// Config configures the dashboard server.
type Config struct {
	Addr      string `yaml:"addr"`
	StaticDir string `yaml:"static_dir"`
}

// DefaultConfig serves on :8080 from ./web.
func DefaultConfig() Config {
	return Config{Addr: ":8080", StaticDir: "./web"}
}

// Server is the web dashboard server
type Server struct {
	app    *fiber.App
	config Config
	logger *zap.Logger

	state   State
	stateMu sync.RWMutex

	dets   []detection.ObjectDetection
	detsMu sync.RWMutex

	statusHub *hub.Hub
	eventsHub *hub.Hub
	cameraHub *hub.Hub

	cameras *camera.Manager
	history *alert.History
	metrics http.Handler

	// OnRearm is called by POST /api/alerts/rearm.
	OnRearm func()

	// OnDetect runs the detector on an uploaded JPEG.
	OnDetect func(jpeg []byte) ([]detection.ObjectDetection, error)

	// OnTarget switches the alert target class.
	OnTarget func(class string) error
}

// Option configures optional server dependencies.
type Option func(*Server)

// WithCameraManager enables the camera settings endpoints.
func WithCameraManager(m *camera.Manager) Option {
	return func(s *Server) { s.cameras = m }
}

// WithHistory exposes alert history.
func WithHistory(h *alert.History) Option {
	return func(s *Server) { s.history = h }
}

// WithMetrics mounts a Prometheus handler at /metrics.
func WithMetrics(h http.Handler) Option {
	return func(s *Server) { s.metrics = h }
}

// NewServer creates a new web dashboard server
func NewServer(cfg Config, logger *zap.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("web")

	s := &Server{
		config:    cfg,
		logger:    logger,
		statusHub: hub.New("status", hub.WithRetain(), hub.WithLogger(logger)),
		eventsHub: hub.New("events", hub.WithLogger(logger)),
		cameraHub: hub.New("camera", hub.WithLogger(logger)),
	}
	for _, opt := range opts {
		opt(s)
	}

	app := fiber.New(fiber.Config{
		AppName:               "Spotter Dashboard",
		DisableStartupMessage: true,
		BodyLimit:             8 * 1024 * 1024, // uploaded frames for /api/detect
	})
	app.Use(cors.New())

	if cfg.StaticDir != "" {
		app.Static("/", cfg.StaticDir)
	}

	api := app.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Get("/detections", s.handleDetections)
	api.Post("/detect", s.handleDetect)
	api.Get("/alerts", s.handleAlerts)
	api.Post("/alerts/rearm", s.handleRearm)
	api.Put("/alerts/target", s.handleTarget)
	api.Get("/camera", s.handleGetCamera)
	api.Put("/camera", s.handleUpdateCamera)
	api.Get("/camera/presets", s.handleCameraPresets)
	api.Get("/classes", s.handleClasses)

	if s.metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(s.metrics))
	}

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/camera", websocket.New(s.serveHub(s.cameraHub)))
	app.Get("/ws/status", websocket.New(s.serveHub(s.statusHub)))
	app.Get("/ws/events", websocket.New(s.serveHub(s.eventsHub)))

	s.app = app
	return s
}

// App exposes the fiber app, mainly for app.Test.
func (s *Server) App() *fiber.App {
	return s.app
}

// Run listens on the configured address until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve runs the hubs and serves on ln until ctx is done.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	go s.statusHub.Run(ctx)
	go s.eventsHub.Run(ctx)
	go s.cameraHub.Run(ctx)

	errc := make(chan error, 1)
	go func() { errc <- s.app.Listener(ln) }()
	s.logger.Info("dashboard listening", zap.String("addr", ln.Addr().String()))

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		if err := s.app.Shutdown(); err != nil && !errors.Is(err, net.ErrClosed) {
			return err
		}
		return nil
	}
}

// UpdateState mutates the dashboard state and broadcasts it.
func (s *Server) UpdateState(update func(*State)) {
	s.stateMu.Lock()
	update(&s.state)
	s.state.Watchers = s.cameraHub.ClientCount()
	state := s.state
	s.stateMu.Unlock()

	if err := s.statusHub.BroadcastJSON(state); err != nil {
		s.logger.Warn("broadcast status", zap.Error(err))
	}
}

// State returns a copy of the dashboard state.
func (s *Server) State() State {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.state
}

// SetDetections stores the latest frame's detections.
func (s *Server) SetDetections(dets []detection.ObjectDetection) {
	cp := append([]detection.ObjectDetection(nil), dets...)
	s.detsMu.Lock()
	s.dets = cp
	s.detsMu.Unlock()
}

// SendCameraFrame sends an annotated JPEG frame to all viewers.
func (s *Server) SendCameraFrame(jpeg []byte) {
	s.cameraHub.BroadcastBinary(jpeg)
}

// Watching reports whether any viewer is connected, so the loop can
// skip JPEG encoding when nobody is looking.
func (s *Server) Watching() bool {
	return s.cameraHub.ClientCount() > 0
}

// Events returns the hub that carries alert and vibrate messages.
func (s *Server) Events() *hub.Hub {
	return s.eventsHub
}

func (s *Server) serveHub(h *hub.Hub) func(*websocket.Conn) {
	return func(c *websocket.Conn) {
		client := hub.NewClient(h, c)
		if client == nil {
			return
		}
		client.Run()
	}
}
