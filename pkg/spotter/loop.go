package spotter

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"
	"gocv.io/x/gocv"

	"github.com/teslashibe/go-spotter/pkg/alert"
	"github.com/teslashibe/go-spotter/pkg/detection"
	"github.com/teslashibe/go-spotter/pkg/metrics"
	"github.com/teslashibe/go-spotter/pkg/render"
	"github.com/teslashibe/go-spotter/pkg/web"
)

// ErrTooManyReadFailures stops the loop when the webcam stops delivering.
var ErrTooManyReadFailures = errors.New("too many consecutive frame read failures")

// FrameSource yields the current webcam frame. *camera.Webcam satisfies it.
type FrameSource interface {
	Read(dst *gocv.Mat) error
}

// Publisher receives loop output. *web.Server satisfies it.
type Publisher interface {
	Watching() bool
	SendCameraFrame(jpeg []byte)
	SetDetections(dets []detection.ObjectDetection)
	UpdateState(update func(*web.State))
}

// Loop reads, detects, renders and publishes one frame per tick.
type Loop struct {
	Source    FrameSource
	Detector  detection.Detector
	Renderer  *render.Renderer
	Debouncer *alert.Debouncer
	Alerts    *alert.Multi   // nil disables alert delivery
	History   *alert.History // nil skips recording
	Publisher Publisher
	Metrics   *metrics.Metrics // nil disables metrics

	// Framerate is read every tick so camera changes retime the loop.
	Framerate   func() int
	Quality     func() int
	MaxFailures int

	Clock  clock.Clock
	Logger *zap.Logger

	// StatusInterval throttles status broadcasts between state changes.
	StatusInterval time.Duration
}

func (l *Loop) defaults() {
	if l.Clock == nil {
		l.Clock = clock.New()
	}
	if l.Logger == nil {
		l.Logger = zap.NewNop()
	}
	if l.MaxFailures <= 0 {
		l.MaxFailures = 30
	}
	if l.StatusInterval <= 0 {
		l.StatusInterval = time.Second
	}
	if l.Quality == nil {
		l.Quality = func() int { return 80 }
	}
	if l.Framerate == nil {
		l.Framerate = func() int { return 30 }
	}
}

func tickInterval(fps int) time.Duration {
	if fps <= 0 {
		fps = 30
	}
	return time.Second / time.Duration(fps)
}

// Run processes frames until ctx is done or reads keep failing.
// The ticker holds at most one pending tick, so ticks that pass while a
// frame is being processed are dropped rather than queued.
func (l *Loop) Run(ctx context.Context) error {
	l.defaults()

	interval := tickInterval(l.Framerate())
	ticker := l.Clock.Ticker(interval)
	defer ticker.Stop()

	frame := gocv.NewMat()
	defer frame.Close()

	stats := loopStats{start: l.Clock.Now()}
	failures := 0

	l.Logger.Info("frame loop started", zap.Duration("interval", interval))

	for {
		select {
		case <-ctx.Done():
			l.Logger.Info("frame loop stopped", zap.Uint64("frames", stats.total))
			return nil
		case <-ticker.C:
		}

		if d := tickInterval(l.Framerate()); d != interval {
			interval = d
			ticker.Reset(interval)
		}

		if err := l.Source.Read(&frame); err != nil {
			failures++
			if l.Metrics != nil {
				l.Metrics.ReadError()
			}
			l.Logger.Debug("frame read failed", zap.Error(err), zap.Int("consecutive", failures))
			if failures >= l.MaxFailures {
				return fmt.Errorf("%w: %v", ErrTooManyReadFailures, err)
			}
			continue
		}
		failures = 0

		if frame.Empty() {
			continue
		}
		l.process(ctx, &frame, &stats)
	}
}

// loopStats tracks throughput for the status line.
type loopStats struct {
	start      time.Time
	window     int
	total      uint64
	fps        float64
	lastStatus time.Time
	indicator  alert.Indicator
}

func (l *Loop) process(ctx context.Context, frame *gocv.Mat, stats *loopStats) {
	now := l.Clock.Now()

	dets, err := l.Detector.Detect(*frame)
	inference := l.Clock.Now().Sub(now)
	if err != nil {
		if l.Metrics != nil {
			l.Metrics.DetectError()
		}
		l.Logger.Warn("detect failed", zap.Error(err))
		return
	}
	if l.Metrics != nil {
		l.Metrics.ObserveFrame(inference, dets)
	}

	l.Renderer.Draw(frame, dets)
	l.Publisher.SetDetections(dets)

	fired := l.Debouncer.Observe(dets)

	var jpeg []byte
	if l.Publisher.Watching() || fired != nil {
		if jpeg, err = render.EncodeJPEG(*frame, l.Quality()); err != nil {
			l.Logger.Warn("encode frame", zap.Error(err))
		}
	}
	if jpeg != nil && l.Publisher.Watching() {
		l.Publisher.SendCameraFrame(jpeg)
	}

	if fired != nil {
		ev := alert.NewEvent(*fired, now, jpeg)
		l.Logger.Info("target confirmed",
			zap.String("event", ev.ID),
			zap.String("label", ev.Label),
			zap.Float64("confidence", ev.Confidence),
		)
		go l.dispatch(ctx, ev)
	}

	stats.total++
	if elapsed := now.Sub(stats.start); elapsed >= time.Second {
		stats.fps = float64(stats.window) / elapsed.Seconds()
		stats.window = 0
		stats.start = now
		if l.Metrics != nil {
			l.Metrics.SetFPS(stats.fps)
		}
	}
	stats.window++

	st := l.Debouncer.Status()
	if st.Indicator != stats.indicator || now.Sub(stats.lastStatus) >= l.StatusInterval {
		stats.indicator = st.Indicator
		stats.lastStatus = now
		fps, total := stats.fps, stats.total
		l.Publisher.UpdateState(func(s *web.State) {
			s.Running = true
			s.FPS = fps
			s.Frames = total
			s.Alert = st
		})
	}
}

func (l *Loop) dispatch(ctx context.Context, ev alert.Event) {
	if l.Alerts == nil {
		return
	}
	results := l.Alerts.Deliver(ctx, ev)
	if l.History != nil {
		l.History.Add(alert.NewRecord(ev, results))
	}
}
