package detection

import (
	"fmt"
	"image"
	"os"
	"sync"

	"gocv.io/x/gocv"
)

// SSDDetector runs TensorFlow SSD MobileNet graphs trained on COCO.
type SSDDetector struct {
	net       gocv.Net
	config    ModelConfig
	mu        sync.Mutex
	inputSize image.Point
}

// NewSSD loads a frozen graph and its text graph.
func NewSSD(cfg ModelConfig) (*SSDDetector, error) {
	modelPath, configPath, err := cfg.Paths()
	if err != nil {
		return nil, err
	}
	for _, p := range []string{modelPath, configPath} {
		if _, err := os.Stat(p); os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrModelNotFound, p)
		}
	}

	net := gocv.ReadNet(modelPath, configPath)
	if net.Empty() {
		return nil, fmt.Errorf("failed to load SSD model from %s", modelPath)
	}
	net.SetPreferableBackend(gocv.NetBackendDefault)
	net.SetPreferableTarget(gocv.NetTargetCPU)

	return &SSDDetector{
		net:       net,
		config:    cfg,
		inputSize: image.Pt(cfg.InputWidth, cfg.InputHeight),
	}, nil
}

// Detect finds objects in the frame
func (d *SSDDetector) Detect(img gocv.Mat) ([]ObjectDetection, error) {
	if img.Empty() {
		return nil, ErrEmptyImage
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	blob := gocv.BlobFromImage(img, 1.0, d.inputSize, gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	d.net.SetInput(blob, "")
	output := d.net.Forward("")
	defer output.Close()

	// Output shape: [1, 1, N, 7]
	data, err := output.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("read ssd output: %w", err)
	}

	dets := parseSSD(data, d.config.ConfidenceThresh)
	return limit(dets, d.config.Classes, d.config.MaxDetections), nil
}

// parseSSD reads DetectionOutput rows of
// [batch, classID, score, left, top, right, bottom] with normalized corners.
func parseSSD(data []float32, thresh float32) []ObjectDetection {
	var dets []ObjectDetection
	for i := 0; i+7 <= len(data); i += 7 {
		score := data[i+2]
		if score < thresh {
			continue
		}
		classID := int(data[i+1])
		left, top := clamp01(data[i+3]), clamp01(data[i+4])
		right, bottom := clamp01(data[i+5]), clamp01(data[i+6])
		if right <= left || bottom <= top {
			continue
		}
		dets = append(dets, ObjectDetection{
			Detection: Detection{
				X:          float64(left),
				Y:          float64(top),
				W:          float64(right - left),
				H:          float64(bottom - top),
				Confidence: float64(score),
			},
			ClassID:   classID,
			ClassName: className(COCO91Classes, classID),
		})
	}
	return dets
}

func clamp01(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Close releases the detector resources
func (d *SSDDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.net.Close()
}

var _ Detector = (*SSDDetector)(nil)
