package channel

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/cuongbtq/interpreter-booking/internal/booking/notify"
)

const (
	defaultPushURL  = "https://onesignal.com/api/v1"
	defaultSound    = "default"
	sendAfterLayout = "2006-01-02 15:04:05 GMT-0700"
)

var _ notify.Pusher = (*PushClient)(nil)

// PushConfig holds push provider configuration
type PushConfig struct {
	BaseURL string
	AppID   string
	APIKey  string
	Title   string
	Timeout time.Duration
}

// PushClient sends push notifications through the OneSignal REST API,
// targeting devices tagged with the recipient's email
type PushClient struct {
	config *PushConfig
	client *http.Client
	logger *slog.Logger
}

type pushFilter struct {
	Field    string `json:"field"`
	Key      string `json:"key"`
	Relation string `json:"relation"`
	Value    string `json:"value"`
}

type pushRequest struct {
	AppID         string            `json:"app_id"`
	Filters       []pushFilter      `json:"filters"`
	Data          map[string]string `json:"data,omitempty"`
	Headings      map[string]string `json:"headings"`
	Contents      map[string]string `json:"contents"`
	IOSBadgeType  string            `json:"ios_badgeType"`
	IOSBadgeCount int               `json:"ios_badgeCount"`
	AndroidSound  string            `json:"android_sound"`
	IOSSound      string            `json:"ios_sound"`
	SendAfter     string            `json:"send_after,omitempty"`
}

type pushResponse struct {
	ID     string   `json:"id"`
	Errors []string `json:"errors,omitempty"`
}

// NewPushClient creates a push client
func NewPushClient(config *PushConfig, logger *slog.Logger) *PushClient {
	return &PushClient{
		config: config,
		client: newHTTPClient(config.Timeout),
		logger: logger,
	}
}

func (c *PushClient) baseURL() string {
	if c.config.BaseURL == "" {
		return defaultPushURL
	}
	return strings.TrimRight(c.config.BaseURL, "/")
}

func sounds(sound string) (android, ios string) {
	if sound == "" || sound == defaultSound {
		return defaultSound, defaultSound
	}
	return sound, sound + ".mp3"
}

func (c *PushClient) request(msg notify.PushMessage) pushRequest {
	android, ios := sounds(msg.Sound)
	title := c.config.Title
	if title == "" {
		title = "DigitalTolk"
	}

	req := pushRequest{
		AppID: c.config.AppID,
		Filters: []pushFilter{{
			Field:    "tag",
			Key:      "email",
			Relation: "=",
			Value:    strings.ToLower(msg.Recipient.Email),
		}},
		Data:          msg.Data,
		Headings:      map[string]string{"en": title},
		Contents:      map[string]string{"en": msg.Contents},
		IOSBadgeType:  "Increase",
		IOSBadgeCount: 1,
		AndroidSound:  android,
		IOSSound:      ios,
	}
	if msg.SendAfter != nil {
		req.SendAfter = msg.SendAfter.Format(sendAfterLayout)
	}
	return req
}

// SendPush posts one notification. A non-nil SendAfter is passed through so
// the provider holds the message.
func (c *PushClient) SendPush(ctx context.Context, msg notify.PushMessage) error {
	if msg.Recipient.Email == "" {
		return notify.ErrNoAddress
	}

	body, err := json.Marshal(c.request(msg))
	if err != nil {
		return fmt.Errorf("failed to marshal push request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL()+"/notifications", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create push request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Basic "+c.config.APIKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send push request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusError("push", resp)
	}

	var decoded pushResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return fmt.Errorf("failed to decode push response: %w", err)
	}
	if len(decoded.Errors) > 0 {
		return errors.New("push: " + strings.Join(decoded.Errors, "; "))
	}

	c.logger.Debug("Push accepted by provider",
		slog.String("id", msg.ID),
		slog.String("provider_id", decoded.ID),
		slog.Int64("job_id", msg.JobID),
		slog.Bool("delayed", msg.SendAfter != nil),
	)
	return nil
}
