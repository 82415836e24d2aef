package channel

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/smtp"
	"strings"
	"testing"
	"time"

	"github.com/cuongbtq/interpreter-booking/internal/booking/domain"
	"github.com/cuongbtq/interpreter-booking/internal/booking/notify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestPushClient_SendPush(t *testing.T) {
	var (
		got  pushRequest
		auth string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/notifications", r.URL.Path)
		auth = r.Header.Get("Authorization")
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"id":"n-1","recipients":1}`))
	}))
	defer srv.Close()

	client := NewPushClient(&PushConfig{BaseURL: srv.URL, AppID: "app", APIKey: "secret"}, discardLogger())
	sendAfter := time.Date(2024, 5, 11, 7, 0, 0, 0, time.FixedZone("CEST", 2*3600))

	err := client.SendPush(context.Background(), notify.PushMessage{
		ID:        "p1",
		Recipient: domain.Recipient{UserID: 1, Email: "Anna@Example.com"},
		JobID:     42,
		Contents:  "Ny bokning",
		Sound:     "emergency_booking",
		Data:      map[string]string{"job_id": "42"},
		SendAfter: &sendAfter,
	})
	require.NoError(t, err)

	assert.Equal(t, "Basic secret", auth)
	assert.Equal(t, "app", got.AppID)
	require.Len(t, got.Filters, 1)
	assert.Equal(t, "anna@example.com", got.Filters[0].Value)
	assert.Equal(t, "emergency_booking", got.AndroidSound)
	assert.Equal(t, "emergency_booking.mp3", got.IOSSound)
	assert.Equal(t, "Ny bokning", got.Contents["en"])
	assert.Equal(t, "2024-05-11 07:00:00 GMT+0200", got.SendAfter)
}

func TestPushClient_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr string
	}{
		{"server error", http.StatusBadGateway, "upstream down", "status 502: upstream down"},
		{"provider errors", http.StatusOK, `{"errors":["All included players are not subscribed"]}`, "not subscribed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			client := NewPushClient(&PushConfig{BaseURL: srv.URL}, discardLogger())
			err := client.SendPush(context.Background(), notify.PushMessage{
				Recipient: domain.Recipient{Email: "a@example.com"},
			})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	client := NewPushClient(&PushConfig{}, discardLogger())
	assert.ErrorIs(t, client.SendPush(context.Background(), notify.PushMessage{}), notify.ErrNoAddress)
}

func TestSounds(t *testing.T) {
	android, ios := sounds("")
	assert.Equal(t, "default", android)
	assert.Equal(t, "default", ios)

	android, ios = sounds("normal_booking")
	assert.Equal(t, "normal_booking", android)
	assert.Equal(t, "normal_booking.mp3", ios)
}

func TestSMSClient_SendSMS(t *testing.T) {
	var got smsRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "dt", user)
		assert.Equal(t, "pw", pass)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	client := NewSMSClient(&SMSConfig{BaseURL: srv.URL, Username: "dt", Password: "pw", From: "DigitalTolk"}, discardLogger())
	require.NoError(t, client.SendSMS(context.Background(), "+46700000000", "Hej"))
	assert.Equal(t, smsRequest{From: "DigitalTolk", To: "+46700000000", Message: "Hej"}, got)

	assert.ErrorIs(t, client.SendSMS(context.Background(), " ", "Hej"), notify.ErrNoAddress)
}

func TestSMSClient_GatewayError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := NewSMSClient(&SMSConfig{BaseURL: srv.URL}, discardLogger())
	err := client.SendSMS(context.Background(), "+46700000000", "Hej")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 401")
}

func TestSMTPMailer_SendEmail(t *testing.T) {
	var (
		gotAddr string
		gotTo   []string
		gotMsg  string
	)
	mailer := NewSMTPMailer(&SMTPConfig{
		Host:     "smtp.example.com",
		Port:     587,
		From:     "noreply@example.com",
		FromName: "DigitalTolk",
	}, discardLogger())
	mailer.now = func() time.Time { return time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC) }
	mailer.send = func(addr string, auth smtp.Auth, _ string, to []string, msg []byte) error {
		assert.Nil(t, auth)
		gotAddr, gotTo, gotMsg = addr, to, string(msg)
		return nil
	}

	job := domain.Job{ID: 42, Duration: 45, Due: time.Date(2024, 5, 12, 10, 0, 0, 0, time.UTC)}
	err := mailer.SendEmail(context.Background(), notify.Email{
		To:       "kund@example.com",
		Name:     "Kund",
		Subject:  "Bekräftelse",
		Template: notify.TemplateChangedDate,
		Data: map[string]any{
			"user":     "Kund",
			"job_id":   job.ID,
			"job":      job,
			"old_time": "2024-05-11 09:00",
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "smtp.example.com:587", gotAddr)
	assert.Equal(t, []string{"kund@example.com"}, gotTo)
	assert.Contains(t, gotMsg, "Subject: =?utf-8?q?Bekr=C3=A4ftelse?=\r\n")
	assert.Contains(t, gotMsg, "Hej Kund,")
	assert.Contains(t, gotMsg, "från 2024-05-11 09:00")
	assert.Contains(t, gotMsg, "Bokning #42, 2024-05-12 10:00, 45 min.")
	assert.False(t, strings.Contains(gotMsg, "<no value>"))
}

func TestSMTPMailer_Errors(t *testing.T) {
	mailer := NewSMTPMailer(&SMTPConfig{Host: "localhost", Port: 25}, discardLogger())
	mailer.send = func(string, smtp.Auth, string, []string, []byte) error { return nil }

	assert.ErrorIs(t, mailer.SendEmail(context.Background(), notify.Email{}), notify.ErrNoAddress)

	err := mailer.SendEmail(context.Background(), notify.Email{To: "a@example.com", Template: "emails.unknown"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown email template")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, mailer.SendEmail(ctx, notify.Email{To: "a@example.com", Template: notify.TemplateJobCreated}), context.Canceled)
}

func TestEmailTemplatesCoverHandlerTemplates(t *testing.T) {
	data := map[string]any{
		"user":         "Anna",
		"job_id":       int64(1),
		"job":          domain.Job{ID: 1, Status: domain.StatusAssigned},
		"session_time": "1:30:00",
		"for_text":     "lön",
	}
	for name := range emailBodies {
		body, err := renderEmail(name, data)
		require.NoError(t, err, name)
		assert.True(t, strings.HasPrefix(body, "Hej Anna,"), name)
	}
}
