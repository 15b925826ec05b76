package spotter

import (
	"fmt"
	"time"

	"github.com/teslashibe/go-spotter/internal/config"
	"github.com/teslashibe/go-spotter/pkg/alert"
	"github.com/teslashibe/go-spotter/pkg/camera"
	"github.com/teslashibe/go-spotter/pkg/detection"
	"github.com/teslashibe/go-spotter/pkg/render"
	"github.com/teslashibe/go-spotter/pkg/web"
)

// Speech providers selectable in SpeechConfig.Provider.
const (
	SpeechAuto       = "auto" // cloud providers with keys, then espeak
	SpeechOpenAI     = "openai"
	SpeechElevenLabs = "elevenlabs"
	SpeechEspeak     = "espeak"
)

// Config holds the application configuration.
type Config struct {
	LogLevel string `yaml:"log_level"`

	Camera   camera.Config         `yaml:"camera"`
	Model    detection.ModelConfig `yaml:"model"`
	Render   render.Style          `yaml:"render"`
	Alert    alert.Config          `yaml:"alert"`
	Alerters AlertersConfig        `yaml:"alerters"`
	Web      web.Config            `yaml:"web"`
	Loop     LoopConfig            `yaml:"loop"`

	// API keys come from the environment only.
	OpenAIKey     string `yaml:"-"`
	ElevenLabsKey string `yaml:"-"`
}

// LoopConfig tunes the frame loop.
type LoopConfig struct {
	MaxReadFailures  int           `yaml:"max_read_failures"` // consecutive failed reads before giving up
	ReconfigureDelay time.Duration `yaml:"reconfigure_delay"` // quiet period before reopening the camera
	MetricsInterval  time.Duration `yaml:"metrics_interval"`  // process sampling period
}

// AlertersConfig selects where confirmed detections are announced.
type AlertersConfig struct {
	Timeout  time.Duration       `yaml:"timeout"`
	Speech   SpeechConfig        `yaml:"speech"`
	Haptic   HapticConfig        `yaml:"haptic"`
	Webhook  alert.WebhookConfig `yaml:"webhook"`  // enabled when URL is set
	Snapshot SnapshotConfig      `yaml:"snapshot"` // enabled when Dir is set
	History  int                 `yaml:"history"`  // records kept for /api/alerts
}

// SpeechConfig configures the spoken alert.
type SpeechConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Provider string `yaml:"provider"`
	Voice    string `yaml:"voice"`
	Player   string `yaml:"player"` // ffplay or aplay; empty picks whichever is installed
}

// HapticConfig configures the vibrate command sent to dashboard clients.
type HapticConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Duration time.Duration `yaml:"duration"`
}

// SnapshotConfig configures the snapshot alerter.
type SnapshotConfig struct {
	Dir string `yaml:"dir"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		LogLevel: "info",
		Camera:   camera.DefaultConfig(),
		Model:    detection.DefaultModelConfig(),
		Render:   render.DefaultStyle(),
		Alert:    alert.DefaultConfig(),
		Alerters: AlertersConfig{
			Timeout: 10 * time.Second,
			Speech:  SpeechConfig{Enabled: true, Provider: SpeechAuto},
			Haptic:  HapticConfig{Enabled: true, Duration: 500 * time.Millisecond},
			Webhook: alert.WebhookConfig{Retries: 2, Timeout: 5 * time.Second},
			History: 50,
		},
		Web: web.DefaultConfig(),
		Loop: LoopConfig{
			MaxReadFailures:  30,
			ReconfigureDelay: 400 * time.Millisecond,
			MetricsInterval:  5 * time.Second,
		},
	}
}

// Load builds a Config from defaults, the YAML file at path (the
// default file when empty) and the environment, in that order.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	if err := config.LoadFile(path, &cfg); err != nil {
		return cfg, err
	}
	cfg.LoadEnvConfig()
	return cfg, nil
}

// LoadEnvConfig applies environment variable overrides.
func (c *Config) LoadEnvConfig() {
	c.Camera.Device = config.String("SPOTTER_CAMERA", c.Camera.Device)
	c.Model.ModelPath = config.String("SPOTTER_MODEL", c.Model.ModelPath)
	c.Model.ConfidenceThresh = float32(config.Float("SPOTTER_CONFIDENCE", float64(c.Model.ConfidenceThresh)))
	c.Alert.Target = config.String("SPOTTER_TARGET", c.Alert.Target)
	c.Alert.Hold = config.Duration("SPOTTER_HOLD", c.Alert.Hold)
	c.Alerters.Webhook.URL = config.String("SPOTTER_WEBHOOK_URL", c.Alerters.Webhook.URL)
	c.LogLevel = config.String("SPOTTER_LOG_LEVEL", c.LogLevel)

	c.OpenAIKey = config.String("OPENAI_API_KEY", c.OpenAIKey)
	c.ElevenLabsKey = config.String("ELEVENLABS_API_KEY", c.ElevenLabsKey)
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if errs := c.Camera.Validate(); len(errs) > 0 {
		return &ConfigError{Field: "camera", Message: errs[0]}
	}
	if err := c.Model.Validate(); err != nil {
		return &ConfigError{Field: "model", Message: err.Error()}
	}
	if _, err := render.New(c.Render); err != nil {
		return &ConfigError{Field: "render", Message: err.Error()}
	}
	if err := c.Alert.Validate(); err != nil {
		return &ConfigError{Field: "alert", Message: err.Error()}
	}
	if c.Loop.MaxReadFailures <= 0 {
		return &ConfigError{Field: "loop.max_read_failures", Message: "must be positive"}
	}

	speech := c.Alerters.Speech
	if speech.Enabled {
		switch speech.Provider {
		case SpeechAuto, SpeechEspeak:
		case SpeechOpenAI:
			if c.OpenAIKey == "" {
				return &ConfigError{Field: "OpenAIKey", Message: "OPENAI_API_KEY environment variable is required for OpenAI speech"}
			}
		case SpeechElevenLabs:
			if c.ElevenLabsKey == "" {
				return &ConfigError{Field: "ElevenLabsKey", Message: "ELEVENLABS_API_KEY environment variable is required for ElevenLabs speech"}
			}
		default:
			return &ConfigError{Field: "alerters.speech.provider", Message: fmt.Sprintf("unknown provider %q", speech.Provider)}
		}
	}
	return nil
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error: %s: %s", e.Field, e.Message)
}
