// Package metrics exposes Prometheus metrics for the detection pipeline.
package metrics

import (
	"context"
	"math"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shirou/gopsutil/v4/process"
	"go.uber.org/zap"

	"github.com/teslashibe/go-spotter/pkg/detection"
)

const namespace = "spotter"

// Metrics holds the collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	frames       prometheus.Counter
	readErrors   prometheus.Counter
	detectErrors prometheus.Counter
	detections   *prometheus.CounterVec
	inference    prometheus.Histogram
	alerts       *prometheus.CounterVec
	fps          prometheus.Gauge
	cpu          prometheus.Gauge
	rss          prometheus.Gauge
}

// New registers all collectors plus the Go runtime collector.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		frames: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_total",
			Help:      "Frames processed by the detection loop.",
		}),
		readErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frame_read_errors_total",
			Help:      "Failed webcam reads.",
		}),
		detectErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "detect_errors_total",
			Help:      "Frames where inference failed.",
		}),
		detections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "detections_total",
			Help:      "Objects detected, by class.",
		}, []string{"class"}),
		inference: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "inference_seconds",
			Help:      "Model inference latency.",
			Buckets:   []float64{.005, .01, .02, .035, .05, .075, .1, .15, .25, .5, 1},
		}),
		alerts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_total",
			Help:      "Alert deliveries, by alerter and result.",
		}, []string{"alerter", "result"}),
		fps: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "loop_fps",
			Help:      "Frames per second achieved by the detection loop.",
		}),
		cpu: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "process_cpu_percent",
			Help:      "Process CPU usage in percent.",
		}),
		rss: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "process_rss_bytes",
			Help:      "Process resident set size.",
		}),
	}

	m.registry.MustRegister(
		m.frames, m.readErrors, m.detectErrors, m.detections, m.inference,
		m.alerts, m.fps, m.cpu, m.rss,
		collectors.NewGoCollector(),
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveFrame records one processed frame.
func (m *Metrics) ObserveFrame(inference time.Duration, dets []detection.ObjectDetection) {
	m.frames.Inc()
	m.inference.Observe(inference.Seconds())
	for _, d := range dets {
		m.detections.WithLabelValues(d.ClassName).Inc()
	}
}

// ReadError counts a failed webcam read.
func (m *Metrics) ReadError() { m.readErrors.Inc() }

// DetectError counts a failed inference.
func (m *Metrics) DetectError() { m.detectErrors.Inc() }

// SetFPS records the loop rate.
func (m *Metrics) SetFPS(fps float64) { m.fps.Set(fps) }

// ObserveAlert records one alerter outcome. It matches alert.Multi.OnResult.
func (m *Metrics) ObserveAlert(alerter string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.alerts.WithLabelValues(alerter, result).Inc()
}

// SampleProcess updates the CPU and RSS gauges every interval until ctx
// is done.
func (m *Metrics) SampleProcess(ctx context.Context, interval time.Duration, logger *zap.Logger) {
	proc, err := process.NewProcessWithContext(ctx, int32(os.Getpid()))
	if err != nil {
		logger.Warn("process metrics unavailable", zap.Error(err))
		return
	}

	if interval <= 0 {
		interval = 5 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		m.sample(ctx, proc)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (m *Metrics) sample(ctx context.Context, proc *process.Process) {
	if mem, err := proc.MemoryInfoWithContext(ctx); err == nil {
		m.rss.Set(float64(mem.RSS))
	}
	if cpu, err := proc.CPUPercentWithContext(ctx); err == nil {
		m.cpu.Set(math.Round(cpu*100) / 100)
	}
}
