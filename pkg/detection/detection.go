// Package detection runs pretrained object-detection models over frames.
package detection

import (
	"errors"
	"fmt"
	"image"
	"sort"

	"gocv.io/x/gocv"
)

var (
	// ErrModelNotFound is returned when the model file does not exist.
	ErrModelNotFound = errors.New("detection: model file not found")

	// ErrEmptyImage is returned when Detect is given an empty frame.
	ErrEmptyImage = errors.New("detection: empty image")
)

// Detection is a bounding box in normalized image coordinates.
type Detection struct {
	X, Y       float64 // Top-left corner (0-1 normalized)
	W, H       float64 // Width and height (0-1 normalized)
	Confidence float64 // Detection confidence (0-1)
}

// Center returns the center point of the detection
func (d Detection) Center() (x, y float64) {
	return d.X + d.W/2, d.Y + d.H/2
}

// Area returns the area of the bounding box
func (d Detection) Area() float64 {
	return d.W * d.H
}

// Box returns the bounding box (x, y, width, height) in pixels for an
// image of the given size, clipped to the image.
func (d Detection) Box(width, height int) image.Rectangle {
	r := image.Rect(
		int(d.X*float64(width)),
		int(d.Y*float64(height)),
		int((d.X+d.W)*float64(width)),
		int((d.Y+d.H)*float64(height)),
	)
	return r.Intersect(image.Rect(0, 0, width, height))
}

// ObjectDetection represents a detected object with class info
type ObjectDetection struct {
	Detection
	ClassID   int    `json:"class_id"`
	ClassName string `json:"class"`
}

// Detector is the interface for detection backends.
type Detector interface {
	// Detect finds objects in a BGR frame.
	Detect(img gocv.Mat) ([]ObjectDetection, error)

	// Close releases resources
	Close() error
}

// DetectJPEG decodes a JPEG and runs d over it.
func DetectJPEG(d Detector, jpeg []byte) ([]ObjectDetection, error) {
	img, err := gocv.IMDecode(jpeg, gocv.IMReadColor)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	defer img.Close()

	if img.Empty() {
		return nil, ErrEmptyImage
	}
	return d.Detect(img)
}

// SelectBest picks the best detection from multiple detections
// Priority: confidence * 0.7 + area * 0.3
func SelectBest(dets []ObjectDetection) *ObjectDetection {
	if len(dets) == 0 {
		return nil
	}
	if len(dets) == 1 {
		return &dets[0]
	}

	maxArea := 0.0
	for _, d := range dets {
		if d.Area() > maxArea {
			maxArea = d.Area()
		}
	}

	bestScore := -1.0
	var best *ObjectDetection
	for i := range dets {
		score := dets[i].Confidence * 0.7
		if maxArea > 0 {
			score += (dets[i].Area() / maxArea) * 0.3
		}
		if score > bestScore {
			bestScore = score
			best = &dets[i]
		}
	}
	return best
}

// FilterClass returns the detections of a specific class.
func FilterClass(dets []ObjectDetection, className string) []ObjectDetection {
	var filtered []ObjectDetection
	for _, det := range dets {
		if det.ClassName == className {
			filtered = append(filtered, det)
		}
	}
	return filtered
}

// limit applies the class allow-list and keeps the max most confident.
func limit(dets []ObjectDetection, classes []string, max int) []ObjectDetection {
	if len(classes) > 0 {
		allowed := make(map[string]bool, len(classes))
		for _, c := range classes {
			allowed[c] = true
		}
		kept := dets[:0]
		for _, d := range dets {
			if allowed[d.ClassName] {
				kept = append(kept, d)
			}
		}
		dets = kept
	}

	sort.SliceStable(dets, func(i, j int) bool {
		return dets[i].Confidence > dets[j].Confidence
	})
	if max > 0 && len(dets) > max {
		dets = dets[:max]
	}
	return dets
}
