package webhook

import (
	"context"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/egpaydcx/egpay-backend/internal/utils/logger"
)

// Client pings uptime monitors after scheduled work completes
type Client struct {
	http   *resty.Client
	logger *logger.Logger
}

// New creates a new webhook client with timeout
func New(logger *logger.Logger) *Client {
	return &Client{
		http:   resty.New().SetTimeout(10 * time.Second),
		logger: logger,
	}
}

// CallUptimeWebhook makes a GET request to the webhook URL and reports whether it answered 2xx
func (c *Client) CallUptimeWebhook(ctx context.Context, webhookURL string) bool {
	if webhookURL == "" {
		return false
	}

	resp, err := c.http.R().SetContext(ctx).Get(webhookURL)
	if err != nil {
		c.logger.Error("Failed to call uptime webhook", map[string]string{
			"url":   webhookURL,
			"error": err.Error(),
		})
		return false
	}

	if resp.IsError() {
		c.logger.Warn("Uptime webhook answered with error status", map[string]string{
			"url":         webhookURL,
			"status_code": resp.Status(),
		})
		return false
	}

	c.logger.Debug("Successfully called uptime webhook", map[string]string{
		"url":         webhookURL,
		"status_code": resp.Status(),
	})
	return true
}
