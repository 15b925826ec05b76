package detection

import (
	"fmt"
	"path/filepath"
)

// Model families understood by New.
const (
	FamilyYOLOv8 = "yolov8"
	FamilySSD    = "ssd"
)

// SSD base networks, named after the coco-ssd options.
const (
	BaseLiteMobileNetV2 = "lite_mobilenet_v2"
	BaseMobileNetV2     = "mobilenet_v2"
	BaseMobileNetV1     = "mobilenet_v1"
)

// ssdBases maps a base network to its frozen graph and text graph names.
var ssdBases = map[string][2]string{
	BaseLiteMobileNetV2: {"ssdlite_mobilenet_v2_coco.pb", "ssdlite_mobilenet_v2_coco.pbtxt"},
	BaseMobileNetV2:     {"ssd_mobilenet_v2_coco.pb", "ssd_mobilenet_v2_coco.pbtxt"},
	BaseMobileNetV1:     {"ssd_mobilenet_v1_coco.pb", "ssd_mobilenet_v1_coco.pbtxt"},
}

// ModelConfig holds detector configuration
type ModelConfig struct {
	Family     string `yaml:"family"`      // yolov8 or ssd
	Base       string `yaml:"base"`        // SSD base network
	Dir        string `yaml:"dir"`         // Directory searched for default file names
	ModelPath  string `yaml:"model_path"`  // Weights; derived from Family/Base when empty
	ConfigPath string `yaml:"config_path"` // SSD text graph; derived when empty

	ConfidenceThresh float32  `yaml:"confidence"`     // Minimum confidence
	NMSThresh        float32  `yaml:"nms"`            // IoU threshold for NMS (YOLO only)
	InputWidth       int      `yaml:"input_width"`    // Network input width
	InputHeight      int      `yaml:"input_height"`   // Network input height
	MaxDetections    int      `yaml:"max_detections"` // Keep at most this many boxes per frame
	Classes          []string `yaml:"classes"`        // Optional allow-list of class names
}

// DefaultModelConfig returns the lite MobileNet v2 SSD, the smallest
// of the pretrained COCO detectors.
func DefaultModelConfig() ModelConfig {
	return ModelConfig{
		Family:           FamilySSD,
		Base:             BaseLiteMobileNetV2,
		Dir:              "models",
		ConfidenceThresh: 0.5,
		NMSThresh:        0.45,
		InputWidth:       300,
		InputHeight:      300,
		MaxDetections:    20,
	}
}

// DefaultYOLOConfig returns production defaults for YOLOv8n
func DefaultYOLOConfig() ModelConfig {
	cfg := DefaultModelConfig()
	cfg.Family = FamilyYOLOv8
	cfg.Base = ""
	cfg.InputWidth = 640
	cfg.InputHeight = 640
	return cfg
}

// Paths resolves the weights and graph files for the configured model.
func (c ModelConfig) Paths() (model, config string, err error) {
	model, config = c.ModelPath, c.ConfigPath
	switch c.Family {
	case FamilyYOLOv8:
		if model == "" {
			model = filepath.Join(c.Dir, "yolov8n.onnx")
		}
		return model, "", nil
	case FamilySSD:
		names, ok := ssdBases[c.Base]
		if !ok && (model == "" || config == "") {
			return "", "", fmt.Errorf("unknown ssd base %q", c.Base)
		}
		if model == "" {
			model = filepath.Join(c.Dir, names[0])
		}
		if config == "" {
			config = filepath.Join(c.Dir, names[1])
		}
		return model, config, nil
	default:
		return "", "", fmt.Errorf("unknown model family %q", c.Family)
	}
}

// Validate checks thresholds and sizes.
func (c ModelConfig) Validate() error {
	if _, _, err := c.Paths(); err != nil {
		return err
	}
	if c.ConfidenceThresh <= 0 || c.ConfidenceThresh > 1 {
		return fmt.Errorf("confidence must be in (0, 1], got %v", c.ConfidenceThresh)
	}
	if c.NMSThresh < 0 || c.NMSThresh > 1 {
		return fmt.Errorf("nms must be in [0, 1], got %v", c.NMSThresh)
	}
	if c.InputWidth <= 0 || c.InputHeight <= 0 {
		return fmt.Errorf("input size must be positive, got %dx%d", c.InputWidth, c.InputHeight)
	}
	for _, name := range c.Classes {
		if !IsKnownClass(name) {
			return fmt.Errorf("unknown class %q", name)
		}
	}
	return nil
}
