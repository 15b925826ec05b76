// Package render draws detections onto frames and encodes them for display.
package render

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"strconv"
	"strings"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-spotter/pkg/detection"
)

// Style holds overlay colors and stroke settings.
type Style struct {
	BoxColor   string  `yaml:"box_color" json:"box_color"`
	TextColor  string  `yaml:"text_color" json:"text_color"`
	LineWidth  int     `yaml:"line_width" json:"line_width"`
	FontScale  float64 `yaml:"font_scale" json:"font_scale"`
	LabelScore bool    `yaml:"label_score" json:"label_score"` // Append confidence to labels
}

// DefaultStyle matches a cyan box with black label text.
func DefaultStyle() Style {
	return Style{
		BoxColor:  "#00FFFF",
		TextColor: "#000000",
		LineWidth: 2,
		FontScale: 0.6, // ~16px Hershey glyphs
	}
}

// Renderer draws detections with a fixed style.
type Renderer struct {
	box, text color.RGBA
	lineWidth int
	fontScale float64
	font      gocv.HersheyFont
	withScore bool
}

// New builds a Renderer, parsing the style colors.
func New(s Style) (*Renderer, error) {
	box, err := ParseHexColor(s.BoxColor)
	if err != nil {
		return nil, fmt.Errorf("box color: %w", err)
	}
	text, err := ParseHexColor(s.TextColor)
	if err != nil {
		return nil, fmt.Errorf("text color: %w", err)
	}
	if s.LineWidth <= 0 {
		s.LineWidth = 2
	}
	if s.FontScale <= 0 {
		s.FontScale = 0.6
	}
	return &Renderer{
		box:       box,
		text:      text,
		lineWidth: s.LineWidth,
		fontScale: s.FontScale,
		font:      gocv.FontHersheySimplex,
		withScore: s.LabelScore,
	}, nil
}

// Draw overlays every detection onto img.
func (r *Renderer) Draw(img *gocv.Mat, dets []detection.ObjectDetection) {
	if img.Empty() {
		return
	}
	w, h := img.Cols(), img.Rows()
	for _, d := range dets {
		box := d.Box(w, h)
		if box.Empty() {
			continue
		}
		label := r.Label(d)

		gocv.Rectangle(img, box, r.box, r.lineWidth)

		textSize := gocv.GetTextSize(label, r.font, r.fontScale, 1)
		gocv.Rectangle(img, LabelRect(box, textSize), r.box, -1)

		// PutText anchors at the baseline; shift down so the top of the
		// glyphs sits on the box edge.
		org := image.Pt(box.Min.X, box.Min.Y+textSize.Y)
		gocv.PutText(img, label, org, r.font, r.fontScale, r.text, 1)
	}
}

// Label returns the caption drawn above a detection.
func (r *Renderer) Label(d detection.ObjectDetection) string {
	if r.withScore {
		return fmt.Sprintf("%s %.0f%%", d.ClassName, d.Confidence*100)
	}
	return d.ClassName
}

// LabelRect is the filled background behind a label: text size plus a
// 4px pad, anchored at the box origin.
func LabelRect(box image.Rectangle, textSize image.Point) image.Rectangle {
	return image.Rect(box.Min.X, box.Min.Y, box.Min.X+textSize.X+4, box.Min.Y+textSize.Y+4)
}

// ParseHexColor parses "#RRGGBB" (the leading # is optional).
func ParseHexColor(s string) (color.RGBA, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) != 6 {
		return color.RGBA{}, fmt.Errorf("invalid hex color %q", s)
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("invalid hex color %q: %w", s, err)
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}, nil
}

// ErrEmptyFrame is returned when encoding an empty Mat.
var ErrEmptyFrame = errors.New("render: empty frame")

// EncodeJPEG encodes img at the given quality (1-100).
func EncodeJPEG(img gocv.Mat, quality int) ([]byte, error) {
	if img.Empty() {
		return nil, ErrEmptyFrame
	}
	if quality < 1 || quality > 100 {
		quality = 80
	}
	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, img, []int{gocv.IMWriteJpegQuality, quality})
	if err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	defer buf.Close()

	// buf.GetBytes aliases C memory owned by buf.
	out := make([]byte, buf.Len())
	copy(out, buf.GetBytes())
	return out, nil
}
