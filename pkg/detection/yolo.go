package detection

import (
	"fmt"
	"image"
	"os"
	"sync"

	"gocv.io/x/gocv"
)

// YOLODetector uses YOLOv8 for general object detection
type YOLODetector struct {
	net       gocv.Net
	config    ModelConfig
	mu        sync.Mutex
	inputSize image.Point
}

// NewYOLO creates a new YOLO object detector
func NewYOLO(cfg ModelConfig) (*YOLODetector, error) {
	modelPath, _, err := cfg.Paths()
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(modelPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", ErrModelNotFound, modelPath)
	}

	net := gocv.ReadNetFromONNX(modelPath)
	if net.Empty() {
		return nil, fmt.Errorf("failed to load YOLO model from %s", modelPath)
	}

	net.SetPreferableBackend(gocv.NetBackendDefault)
	net.SetPreferableTarget(gocv.NetTargetCPU)

	return &YOLODetector{
		net:       net,
		config:    cfg,
		inputSize: image.Pt(cfg.InputWidth, cfg.InputHeight),
	}, nil
}

// Detect finds objects in the frame
func (d *YOLODetector) Detect(img gocv.Mat) ([]ObjectDetection, error) {
	if img.Empty() {
		return nil, ErrEmptyImage
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	blob := gocv.BlobFromImage(img, 1.0/255.0, d.inputSize, gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	d.net.SetInput(blob, "")
	output := d.net.Forward("")
	defer output.Close()

	// Output shape: [1, 84, N] - 84 = 4 bbox + 80 classes
	data, err := output.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("read yolo output: %w", err)
	}
	sizes := output.Size()
	if len(sizes) != 3 {
		return nil, fmt.Errorf("unexpected yolo output shape %v", sizes)
	}

	imgW, imgH := float32(img.Cols()), float32(img.Rows())
	cands := yoloCandidates(data, sizes[1], sizes[2], d.config, imgW, imgH)
	return limit(d.suppress(cands, imgW, imgH), d.config.Classes, d.config.MaxDetections), nil
}

// yoloCandidate is a pre-NMS box in pixel coordinates.
type yoloCandidate struct {
	box     image.Rectangle
	score   float32
	classID int
}

// yoloCandidates scans a [attrs, n] YOLOv8 tensor laid out attribute-major.
func yoloCandidates(data []float32, attrs, n int, cfg ModelConfig, imgW, imgH float32) []yoloCandidate {
	var out []yoloCandidate
	if attrs < 5 || len(data) < attrs*n {
		return out
	}

	sx := imgW / float32(cfg.InputWidth)
	sy := imgH / float32(cfg.InputHeight)

	for i := 0; i < n; i++ {
		maxScore := float32(0)
		maxClassID := 0
		for c := 4; c < attrs; c++ {
			if score := data[c*n+i]; score > maxScore {
				maxScore = score
				maxClassID = c - 4
			}
		}
		if maxScore < cfg.ConfidenceThresh {
			continue
		}

		// center x, center y, width, height in input pixels
		cx, cy := data[0*n+i], data[1*n+i]
		w, h := data[2*n+i], data[3*n+i]

		out = append(out, yoloCandidate{
			box: image.Rect(
				int((cx-w/2)*sx), int((cy-h/2)*sy),
				int((cx+w/2)*sx), int((cy+h/2)*sy),
			),
			score:   maxScore,
			classID: maxClassID,
		})
	}
	return out
}

func (d *YOLODetector) suppress(cands []yoloCandidate, imgW, imgH float32) []ObjectDetection {
	if len(cands) == 0 {
		return nil
	}

	boxes := make([]image.Rectangle, len(cands))
	scores := make([]float32, len(cands))
	for i, c := range cands {
		boxes[i] = c.box
		scores[i] = c.score
	}

	indices := gocv.NMSBoxes(boxes, scores, d.config.ConfidenceThresh, d.config.NMSThresh)

	dets := make([]ObjectDetection, 0, len(indices))
	for _, idx := range indices {
		c := cands[idx]
		dets = append(dets, ObjectDetection{
			Detection: Detection{
				X:          float64(c.box.Min.X) / float64(imgW),
				Y:          float64(c.box.Min.Y) / float64(imgH),
				W:          float64(c.box.Dx()) / float64(imgW),
				H:          float64(c.box.Dy()) / float64(imgH),
				Confidence: float64(c.score),
			},
			ClassID:   c.classID,
			ClassName: className(COCOClasses, c.classID),
		})
	}
	return dets
}

// Close releases the detector resources
func (d *YOLODetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.net.Close()
}

var _ Detector = (*YOLODetector)(nil)
