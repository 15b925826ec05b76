package spotter

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/teslashibe/go-spotter/pkg/alert"
	"github.com/teslashibe/go-spotter/pkg/camera"
	"github.com/teslashibe/go-spotter/pkg/detection"
	"github.com/teslashibe/go-spotter/pkg/metrics"
	"github.com/teslashibe/go-spotter/pkg/render"
	"github.com/teslashibe/go-spotter/pkg/web"
)

// Status messages shown while starting up.
const (
	StatusInitializing   = "Initializing"
	StatusStartingWebcam = "Starting Webcam"
	StatusLoadingModel   = "Loading model"
	StatusRunning        = "Running"
	StatusStopped        = "Stopped"
)

// App wires the webcam, detector, dashboard and alerters together.
type App struct {
	config Config
	logger *zap.Logger
	clock  clock.Clock

	cameras   *camera.Manager
	renderer  *render.Renderer
	debouncer *alert.Debouncer
	alerts    *alert.Multi
	history   *alert.History
	metrics   *metrics.Metrics
	web       *web.Server

	mu       sync.Mutex
	webcam   *camera.Webcam
	detector detection.Detector
}

// New validates cfg and builds the components that need no hardware.
func New(cfg Config, logger *zap.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	renderer, err := render.New(cfg.Render)
	if err != nil {
		return nil, err
	}

	a := &App{
		config:   cfg,
		logger:   logger.Named("spotter"),
		clock:    clock.New(),
		cameras:  camera.NewManager(cfg.Camera),
		renderer: renderer,
		history:  alert.NewHistory(cfg.Alerters.History),
		metrics:  metrics.New(),
	}
	a.debouncer = alert.NewDebouncer(cfg.Alert, a.clock)

	a.web = web.NewServer(cfg.Web, logger,
		web.WithCameraManager(a.cameras),
		web.WithHistory(a.history),
		web.WithMetrics(a.metrics.Handler()),
	)
	a.web.OnRearm = a.debouncer.Reset
	a.web.OnTarget = a.setTarget
	a.web.OnDetect = a.detectJPEG

	alerters, err := BuildAlerters(cfg, a.web.Events(), logger)
	if err != nil {
		return nil, err
	}
	a.alerts, err = alert.NewMulti(cfg.Alerters.Timeout, logger, alerters...)
	if err != nil {
		return nil, err
	}
	a.alerts.OnResult = a.metrics.ObserveAlert

	return a, nil
}

// Web exposes the dashboard server.
func (a *App) Web() *web.Server { return a.web }

func (a *App) setTarget(class string) error {
	if !detection.IsKnownClass(class) {
		return fmt.Errorf("unknown class %q", class)
	}
	a.debouncer.SetTarget(class)
	a.logger.Info("alert target changed", zap.String("target", class))
	return nil
}

func (a *App) detectJPEG(jpeg []byte) ([]detection.ObjectDetection, error) {
	a.mu.Lock()
	det := a.detector
	a.mu.Unlock()
	if det == nil {
		return nil, errors.New("model not loaded")
	}
	return detection.DetectJPEG(det, jpeg)
}

func (a *App) status(msg string) {
	a.logger.Info(msg)
	a.web.UpdateState(func(s *web.State) { s.Message = msg })
}

func (a *App) fail(msg string, err error) {
	a.logger.Error(msg, zap.Error(err))
	a.web.UpdateState(func(s *web.State) {
		s.Message = msg
		s.Error = err.Error()
		s.Running = false
	})
}

// Run starts the dashboard, opens the webcam while the model loads and
// runs the frame loop until ctx is done. If the webcam or model cannot
// be opened the dashboard keeps showing the error until ctx is done.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	webErr := make(chan error, 1)
	go func() { webErr <- a.web.Run(ctx) }()
	go a.metrics.SampleProcess(ctx, a.config.Loop.MetricsInterval, a.logger)

	a.web.UpdateState(func(s *web.State) {
		s.Model = a.config.Model.Family + "/" + a.config.Model.Base
		s.Camera = a.cameras.GetConfig()
		s.Alert = a.debouncer.Status()
	})
	a.status(StatusInitializing)

	pending := detection.LoadAsync(ctx, a.config.Model)

	a.status(StatusStartingWebcam)
	webcam, err := camera.Open(a.cameras.GetConfig())
	if err != nil {
		a.fail("webcam unavailable", err)
		defer discard(pending)
		return a.hold(ctx, webErr, fmt.Errorf("open webcam: %w", err))
	}
	a.mu.Lock()
	a.webcam = webcam
	a.mu.Unlock()

	reconf := camera.NewReconfigurer(webcam, a.config.Loop.ReconfigureDelay, a.logger)
	a.cameras.OnConfigChange = func(cfg camera.Config) error {
		a.web.UpdateState(func(s *web.State) { s.Camera = cfg })
		return reconf.Apply(cfg)
	}

	a.status(StatusLoadingModel)
	det, err := pending.Wait(ctx)
	if err != nil {
		if ctx.Err() != nil {
			defer discard(pending)
			return a.stop(webErr)
		}
		a.fail("model unavailable", err)
		return a.hold(ctx, webErr, fmt.Errorf("load model: %w", err))
	}
	a.mu.Lock()
	a.detector = det
	a.mu.Unlock()

	a.web.UpdateState(func(s *web.State) {
		s.Message = StatusRunning
		s.Loaded = true
		s.Running = true
	})
	a.logger.Info("model loaded", zap.String("model", a.config.Model.Family))

	loop := &Loop{
		Source:      webcam,
		Detector:    det,
		Renderer:    a.renderer,
		Debouncer:   a.debouncer,
		Alerts:      a.alerts,
		History:     a.history,
		Publisher:   a.web,
		Metrics:     a.metrics,
		Framerate:   func() int { return a.cameras.GetConfig().Framerate },
		Quality:     func() int { return a.cameras.GetConfig().Quality },
		MaxFailures: a.config.Loop.MaxReadFailures,
		Clock:       a.clock,
		Logger:      a.logger.Named("loop"),
	}
	if err := loop.Run(ctx); err != nil {
		a.fail("frame loop stopped", err)
		return a.hold(ctx, webErr, err)
	}
	a.status(StatusStopped)
	return a.stop(webErr)
}

// hold keeps the dashboard up to show err until ctx is done.
func (a *App) hold(ctx context.Context, webErr <-chan error, err error) error {
	select {
	case <-ctx.Done():
	case werr := <-webErr:
		return errors.Join(err, werr)
	}
	return errors.Join(err, a.stop(webErr))
}

// discard closes a detector that finished loading after it stopped being needed.
func discard(p *detection.Pending) {
	if det, err := p.Wait(context.Background()); err == nil {
		det.Close()
	}
}

func (a *App) stop(webErr <-chan error) error {
	if err := <-webErr; err != nil {
		return fmt.Errorf("dashboard: %w", err)
	}
	return nil
}

// Shutdown releases the webcam and the model.
func (a *App) Shutdown() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.webcam != nil {
		if err := a.webcam.Close(); err != nil {
			a.logger.Warn("close webcam", zap.Error(err))
		}
		a.webcam = nil
	}
	if a.detector != nil {
		if err := a.detector.Close(); err != nil {
			a.logger.Warn("close detector", zap.Error(err))
		}
		a.detector = nil
	}
}
