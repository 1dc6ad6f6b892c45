package alerts

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"carbridge/pricer/internal/constants"
	"carbridge/pricer/internal/logging"
)

// Notifier delivers fire-and-forget operator alerts to a webhook. Delivery
// failures are logged and swallowed: alerting must never take the pipeline
// down with it.
type Notifier struct {
	webhookURL string
	client     *http.Client
}

func NewNotifier(webhookURL string) *Notifier {
	return &Notifier{
		webhookURL: webhookURL,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type alertPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
	SentAt  string `json:"sent_at"`
}

// Notify sends one alert keyed by a code from internal/constants. A missing
// webhook URL turns alerts into log lines only.
func (n *Notifier) Notify(ctx context.Context, code string, detail string) {
	logging.Warn("Operator alert",
		"code", code,
		"message", constants.AlertMessage(code),
		"detail", detail,
	)

	if n.webhookURL == "" {
		return
	}

	payload := alertPayload{
		Code:    code,
		Message: constants.AlertMessage(code),
		Detail:  detail,
		SentAt:  time.Now().UTC().Format(time.RFC3339),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		logging.Error("Failed to marshal alert payload", "code", code, "error", err.Error())
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		logging.Error("Failed to build alert request", "code", code, "error", err.Error())
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		logging.Error("Failed to deliver alert", "code", code, "error", err.Error())
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		logging.Error("Alert webhook returned non-success", "code", code, "status", resp.StatusCode)
	}
}
