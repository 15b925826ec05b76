package alert

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Snapshot writes the annotated frame of each event to a directory.
type Snapshot struct {
	dir string
}

// NewSnapshot creates dir if needed.
func NewSnapshot(dir string) (*Snapshot, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("snapshot dir: %w", err)
	}
	return &Snapshot{dir: dir}, nil
}

// Name implements Alerter.
func (s *Snapshot) Name() string { return "snapshot" }

// Alert implements Alerter.
func (s *Snapshot) Alert(_ context.Context, ev Event) error {
	if len(ev.Snapshot) == 0 {
		return errors.New("event has no snapshot")
	}
	path := filepath.Join(s.dir, SnapshotName(ev))
	if err := os.WriteFile(path, ev.Snapshot, 0o644); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return nil
}

// SnapshotName is <time>_<label>_<id>.jpg, sortable by time.
func SnapshotName(ev Event) string {
	label := strings.ReplaceAll(ev.Label, " ", "-")
	return fmt.Sprintf("%s_%s_%s.jpg", ev.Time.UTC().Format("20060102T150405.000Z"), label, ev.ID)
}
