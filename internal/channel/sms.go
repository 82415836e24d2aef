package channel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/cuongbtq/interpreter-booking/internal/booking/notify"
)

var _ notify.SMSSender = (*SMSClient)(nil)

// SMSConfig holds SMS gateway configuration
type SMSConfig struct {
	BaseURL  string
	Username string
	Password string
	From     string
	Timeout  time.Duration
}

// SMSClient sends text messages through an HTTP gateway
type SMSClient struct {
	config *SMSConfig
	client *http.Client
	logger *slog.Logger
}

type smsRequest struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Message string `json:"message"`
}

// NewSMSClient creates an SMS client
func NewSMSClient(config *SMSConfig, logger *slog.Logger) *SMSClient {
	return &SMSClient{
		config: config,
		client: newHTTPClient(config.Timeout),
		logger: logger,
	}
}

// SendSMS sends message to the given number from the configured sender
func (c *SMSClient) SendSMS(ctx context.Context, to, message string) error {
	if strings.TrimSpace(to) == "" {
		return notify.ErrNoAddress
	}
	if c.config.BaseURL == "" {
		return fmt.Errorf("sms: gateway url is required")
	}

	body, err := json.Marshal(smsRequest{From: c.config.From, To: to, Message: message})
	if err != nil {
		return fmt.Errorf("failed to marshal sms request: %w", err)
	}

	url := strings.TrimRight(c.config.BaseURL, "/") + "/messages"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create sms request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.config.Username != "" {
		req.SetBasicAuth(c.config.Username, c.config.Password)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send sms request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusError("sms", resp)
	}

	c.logger.Debug("SMS accepted by gateway", slog.Int("message_length", len(message)))
	return nil
}
