package channel

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"mime"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/cuongbtq/interpreter-booking/internal/booking/notify"
)

var _ notify.Mailer = (*SMTPMailer)(nil)

// SMTPConfig holds outgoing mail configuration
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
}

type sendFunc func(addr string, auth smtp.Auth, from string, to []string, msg []byte) error

// SMTPMailer renders booking emails and sends them over SMTP
type SMTPMailer struct {
	config *SMTPConfig
	send   sendFunc
	now    func() time.Time
	logger *slog.Logger
}

// NewSMTPMailer creates a mailer sending through config.Host
func NewSMTPMailer(config *SMTPConfig, logger *slog.Logger) *SMTPMailer {
	return &SMTPMailer{
		config: config,
		send:   smtp.SendMail,
		now:    time.Now,
		logger: logger,
	}
}

func (m *SMTPMailer) auth() smtp.Auth {
	if m.config.Username == "" {
		return nil
	}
	return smtp.PlainAuth("", m.config.Username, m.config.Password, m.config.Host)
}

// SendEmail renders email.Template and sends it
func (m *SMTPMailer) SendEmail(ctx context.Context, email notify.Email) error {
	if email.To == "" {
		return notify.ErrNoAddress
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	body, err := renderEmail(email.Template, email.Data)
	if err != nil {
		return err
	}

	msg := m.compose(email, body)
	addr := net.JoinHostPort(m.config.Host, strconv.Itoa(m.config.Port))
	if err := m.send(addr, m.auth(), m.config.From, []string{email.To}, msg); err != nil {
		return fmt.Errorf("failed to send email via %s: %w", addr, err)
	}

	m.logger.Debug("Email sent",
		slog.String("to", email.To),
		slog.String("template", email.Template),
	)
	return nil
}

func (m *SMTPMailer) compose(email notify.Email, body string) []byte {
	from := m.config.From
	if m.config.FromName != "" {
		from = fmt.Sprintf("%s <%s>", mime.QEncoding.Encode("utf-8", m.config.FromName), m.config.From)
	}
	to := email.To
	if email.Name != "" {
		to = fmt.Sprintf("%s <%s>", mime.QEncoding.Encode("utf-8", email.Name), email.To)
	}

	var buf bytes.Buffer
	header := func(k, v string) {
		buf.WriteString(k + ": " + v + "\r\n")
	}
	header("From", from)
	header("To", to)
	header("Subject", mime.QEncoding.Encode("utf-8", email.Subject))
	header("Date", m.now().Format(time.RFC1123Z))
	header("MIME-Version", "1.0")
	header("Content-Type", `text/plain; charset="utf-8"`)
	header("Content-Transfer-Encoding", "8bit")
	buf.WriteString("\r\n")
	buf.WriteString(strings.ReplaceAll(body, "\n", "\r\n"))
	return buf.Bytes()
}
