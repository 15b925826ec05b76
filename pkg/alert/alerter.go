package alert

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/teslashibe/go-spotter/pkg/detection"
)

// Event describes one confirmed detection.
type Event struct {
	ID         string              `json:"id"`
	Label      string              `json:"label"`
	Confidence float64             `json:"confidence"`
	Box        detection.Detection `json:"box"`
	Time       time.Time           `json:"time"`
	Snapshot   []byte              `json:"-"` // annotated JPEG, may be nil
}

// NewEvent builds an Event with a fresh ID.
func NewEvent(det detection.ObjectDetection, at time.Time, snapshot []byte) Event {
	return Event{
		ID:         uuid.NewString(),
		Label:      det.ClassName,
		Confidence: det.Confidence,
		Box:        det.Detection,
		Time:       at,
		Snapshot:   snapshot,
	}
}

// Phrase is the sentence spoken for the event.
func (e Event) Phrase() string {
	return e.Label + " found"
}

// Alerter delivers an Event somewhere.
type Alerter interface {
	Name() string
	Alert(ctx context.Context, ev Event) error
}

// Multi runs several alerters concurrently.
type Multi struct {
	alerters []Alerter
	timeout  time.Duration
	logger   *zap.Logger

	// OnResult is called once per alerter with its outcome.
	OnResult func(name string, err error)
}

// NewMulti fans events out to alerters, each bounded by timeout.
// Outcomes are reported by name, so names must be unique.
func NewMulti(timeout time.Duration, logger *zap.Logger, alerters ...Alerter) (*Multi, error) {
	seen := make(map[string]bool, len(alerters))
	for _, a := range alerters {
		if seen[a.Name()] {
			return nil, fmt.Errorf("duplicate alerter %q", a.Name())
		}
		seen[a.Name()] = true
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Multi{alerters: alerters, timeout: timeout, logger: logger.Named("alert")}, nil
}

// Name implements Alerter.
func (m *Multi) Name() string { return "multi" }

// Alerters returns the configured alerters.
func (m *Multi) Alerters() []Alerter { return m.alerters }

// Alert delivers ev to every alerter and joins their errors.
func (m *Multi) Alert(ctx context.Context, ev Event) error {
	results := m.Deliver(ctx, ev)
	var errs []error
	for _, a := range m.alerters {
		if err := results[a.Name()]; err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", a.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// Deliver runs every alerter concurrently and returns each outcome by name.
func (m *Multi) Deliver(ctx context.Context, ev Event) map[string]error {
	if m.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}

	errs := make([]error, len(m.alerters))
	var wg sync.WaitGroup
	for i, a := range m.alerters {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := a.Alert(ctx, ev)
			if err != nil {
				m.logger.Warn("alerter failed",
					zap.String("alerter", a.Name()),
					zap.String("event", ev.ID),
					zap.Error(err),
				)
			}
			if m.OnResult != nil {
				m.OnResult(a.Name(), err)
			}
			errs[i] = err
		}()
	}
	wg.Wait()

	results := make(map[string]error, len(m.alerters))
	for i, a := range m.alerters {
		results[a.Name()] = errs[i]
	}
	return results
}

// NewRecord summarizes Deliver results for the history.
func NewRecord(ev Event, results map[string]error) Record {
	r := Record{Event: ev, Results: make(map[string]string, len(results))}
	for name, err := range results {
		if err != nil {
			r.Results[name] = err.Error()
		} else {
			r.Results[name] = "ok"
		}
	}
	return r
}

// Record is an event with per-alerter outcomes.
type Record struct {
	Event
	Results map[string]string `json:"results"` // alerter name -> "ok" or error text
}

// History keeps the most recent alert records.
type History struct {
	mu      sync.Mutex
	max     int
	records []Record
}

// NewHistory keeps at most max records.
func NewHistory(max int) *History {
	if max <= 0 {
		max = 50
	}
	return &History{max: max}
}

// Add appends a record, evicting the oldest when full.
func (h *History) Add(r Record) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.records = append(h.records, r)
	if len(h.records) > h.max {
		h.records = h.records[len(h.records)-h.max:]
	}
}

// List returns records newest first.
func (h *History) List() []Record {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Record, len(h.records))
	for i, r := range h.records {
		out[len(h.records)-1-i] = r
	}
	return out
}
