package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// Config holds alerting settings.
type Config struct {
	Enabled bool   `json:"enabled"`
	Webhook string `json:"webhook"`
	NtfyURL string `json:"ntfy"`
}

// Notifier fires webhook and ntfy POSTs for operator alerts, typically
// when the log pipeline hits a fatal condition.
type Notifier struct {
	cfg    Config
	logger *slog.Logger
}

// New returns a Notifier with the given config.
func New(cfg Config, logger *slog.Logger) *Notifier {
	return &Notifier{cfg: cfg, logger: logger}
}

// Alert reports a critical condition to the configured endpoints.
// Delivery is best effort; a failed POST is logged and otherwise
// ignored.
func (n *Notifier) Alert(subject, detail string) {
	if !n.cfg.Enabled {
		return
	}
	if n.cfg.Webhook != "" {
		n.sendWebhook(subject, detail)
	}
	if n.cfg.NtfyURL != "" {
		n.sendNtfy(subject, detail)
	}
}

type webhookPayload struct {
	Event     string `json:"event"`
	Detail    string `json:"detail"`
	Timestamp string `json:"timestamp"`
}

func (n *Notifier) sendWebhook(subject, detail string) {
	payload := webhookPayload{
		Event:     subject,
		Detail:    detail,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Post(n.cfg.Webhook, "application/json", bytes.NewReader(data))
	if err != nil {
		n.logger.Warn("notify: webhook failed", "err", err)
		return
	}
	resp.Body.Close()
}

type ntfyPayload struct {
	Title    string   `json:"title"`
	Message  string   `json:"message"`
	Priority int      `json:"priority"`
	Tags     []string `json:"tags"`
}

func (n *Notifier) sendNtfy(subject, detail string) {
	payload := ntfyPayload{
		Title:    fmt.Sprintf("mainframe: %s", subject),
		Message:  detail,
		Priority: 4,
		Tags:     []string{"rotating_light"},
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Post(n.cfg.NtfyURL, "application/json", bytes.NewReader(data))
	if err != nil {
		n.logger.Warn("notify: ntfy failed", "err", err)
		return
	}
	resp.Body.Close()
}
