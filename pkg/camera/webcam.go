package camera

import (
	"errors"
	"fmt"
	"strconv"
	"sync"

	"gocv.io/x/gocv"
)

var (
	// ErrNotOpened is returned when reading from a closed or failed device.
	ErrNotOpened = errors.New("camera: device not opened")

	// ErrEmptyFrame is returned when the device produced no image.
	ErrEmptyFrame = errors.New("camera: empty frame")
)

// Webcam wraps a gocv capture device.
type Webcam struct {
	mu     sync.Mutex
	cap    *gocv.VideoCapture
	config Config
}

// Open requests access to the device described by cfg and applies the
// requested resolution and framerate. Drivers may silently pick the
// nearest supported mode.
func Open(cfg Config) (*Webcam, error) {
	vc, err := openCapture(cfg)
	if err != nil {
		return nil, err
	}
	return &Webcam{cap: vc, config: cfg}, nil
}

func openCapture(cfg Config) (*gocv.VideoCapture, error) {
	var device any = cfg.Device
	if idx, err := strconv.Atoi(cfg.Device); err == nil {
		device = idx
	}

	vc, err := gocv.OpenVideoCapture(device)
	if err != nil {
		return nil, fmt.Errorf("open camera %s: %w", cfg.Device, err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, fmt.Errorf("open camera %s: %w", cfg.Device, ErrNotOpened)
	}

	vc.Set(gocv.VideoCaptureFrameWidth, float64(cfg.Width))
	vc.Set(gocv.VideoCaptureFrameHeight, float64(cfg.Height))
	vc.Set(gocv.VideoCaptureFPS, float64(cfg.Framerate))
	return vc, nil
}

// Read pulls the current frame into dst, mirrored when configured.
func (w *Webcam) Read(dst *gocv.Mat) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.cap == nil {
		return ErrNotOpened
	}
	if ok := w.cap.Read(dst); !ok {
		return ErrNotOpened
	}
	if dst.Empty() {
		return ErrEmptyFrame
	}
	if w.config.Mirrored() {
		gocv.Flip(*dst, dst, 1)
	}
	return nil
}

// Size returns the resolution the device actually delivers.
func (w *Webcam) Size() (width, height int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cap == nil {
		return 0, 0
	}
	return int(w.cap.Get(gocv.VideoCaptureFrameWidth)), int(w.cap.Get(gocv.VideoCaptureFrameHeight))
}

// Config returns the configuration the device was opened with.
func (w *Webcam) Config() Config {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.config
}

// Reopen swaps in a device opened with cfg. The old device stays in use
// if the new one fails to open.
func (w *Webcam) Reopen(cfg Config) error {
	vc, err := openCapture(cfg)
	if err != nil {
		return err
	}

	w.mu.Lock()
	old := w.cap
	w.cap = vc
	w.config = cfg
	w.mu.Unlock()

	if old != nil {
		old.Close()
	}
	return nil
}

// Close releases the capture device.
func (w *Webcam) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cap == nil {
		return nil
	}
	err := w.cap.Close()
	w.cap = nil
	return err
}
