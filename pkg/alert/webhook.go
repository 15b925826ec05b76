package alert

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/teslashibe/go-spotter/internal/httpc"
)

// WebhookConfig configures the webhook alerter.
type WebhookConfig struct {
	URL             string            `yaml:"url"`
	Headers         map[string]string `yaml:"headers"`
	Retries         int               `yaml:"retries"`
	Timeout         time.Duration     `yaml:"timeout"`
	IncludeSnapshot bool              `yaml:"include_snapshot"`
}

// webhookPayload is the JSON body posted for each event.
type webhookPayload struct {
	Event
	Message  string `json:"message"`
	Snapshot string `json:"snapshot,omitempty"` // base64 JPEG
}

// Webhook POSTs events as JSON.
type Webhook struct {
	cfg    WebhookConfig
	client *resty.Client
}

// NewWebhook creates a webhook alerter.
func NewWebhook(cfg WebhookConfig) (*Webhook, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("webhook url is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	client := httpc.NewResty(cfg.Timeout).
		SetRetryCount(cfg.Retries).
		SetRetryWaitTime(250 * time.Millisecond).
		SetHeaders(cfg.Headers).
		AddRetryCondition(httpc.RetryCondition)
	return &Webhook{cfg: cfg, client: client}, nil
}

// Name implements Alerter.
func (w *Webhook) Name() string { return "webhook" }

// Alert implements Alerter.
func (w *Webhook) Alert(ctx context.Context, ev Event) error {
	body := webhookPayload{Event: ev, Message: ev.Phrase()}
	if w.cfg.IncludeSnapshot && len(ev.Snapshot) > 0 {
		body.Snapshot = base64.StdEncoding.EncodeToString(ev.Snapshot)
	}

	resp, err := w.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		Post(w.cfg.URL)
	if err != nil {
		return fmt.Errorf("post: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("post: %s", resp.Status())
	}
	return nil
}
