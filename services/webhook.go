package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// WebhookNotifier forwards notifications to an external alerting endpoint
// via HTTP POST, for surface-level integrations such as sirens or pagers.
type WebhookNotifier struct {
	logger     *zap.Logger
	apiURL     string
	httpClient *http.Client
}

// webhookPayload is the body posted to the alerting endpoint
type webhookPayload struct {
	Message    string `json:"message"`
	Severity   string `json:"severity"`
	DurationMs int64  `json:"duration_ms"`
}

func NewWebhookNotifier(logger *zap.Logger, apiURL string) *WebhookNotifier {
	return &WebhookNotifier{
		logger: logger,
		apiURL: apiURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (w *WebhookNotifier) Notify(n Notification) {
	payload := webhookPayload{
		Message:    n.Message,
		Severity:   string(n.Severity),
		DurationMs: n.Duration.Milliseconds(),
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		w.logger.Error("Failed to marshal webhook payload", zap.Error(err))
		return
	}

	endpoint := fmt.Sprintf("%s/api/v1/notifications", w.apiURL)

	req, err := http.NewRequest(http.MethodPost, endpoint, bytes.NewBuffer(jsonData))
	if err != nil {
		w.logger.Error("Failed to create webhook request",
			zap.Error(err),
			zap.String("url", endpoint))
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "minewatch/1.0")

	resp, err := w.httpClient.Do(req)
	if err != nil {
		w.logger.Error("Failed to deliver webhook notification",
			zap.Error(err),
			zap.String("url", endpoint))
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		w.logger.Error("Webhook endpoint returned error",
			zap.Int("status_code", resp.StatusCode),
			zap.String("status", resp.Status))
		return
	}

	w.logger.Debug("Webhook notification delivered",
		zap.String("severity", string(n.Severity)),
		zap.Int("status_code", resp.StatusCode))
}
