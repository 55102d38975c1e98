package email

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"sync"

	"github.com/avatarctic/services-marketplace/internal/core/ports"
	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/sirupsen/logrus"
)

// ErrQueueFull is returned by Enqueue when the delivery buffer is saturated.
var ErrQueueFull = errors.New("email queue full")

// ErrClosed is returned by Enqueue after Close.
var ErrClosed = errors.New("email service closed")

// EmailConfig holds email service configuration
type EmailConfig struct {
	SendGridAPIKey string
	FromEmail      string
	FromName       string
	CompanyName    string
	BaseURL        string
	QueueSize      int
}

// Sender delivers one message. *sendgrid.Client satisfies it.
type Sender interface {
	Send(email *mail.SGMailV3) (*rest.Response, error)
}

// Template names accepted in ports.Notification.Template.
const (
	TemplateBookingCreated = "booking_created"
	TemplateDisputeFiled   = "dispute_filed"
)

var templates = template.Must(template.New("email").Parse(`
{{define "booking_created"}}<p>Hello,</p>
<p>A booking for <strong>{{.ServiceTitle}}</strong> was requested for {{.ScheduledAt}}.</p>
<p><a href="{{.BaseURL}}/bookings/{{.BookingID}}">View booking</a></p>
<p>{{.CompanyName}}</p>{{end}}
{{define "dispute_filed"}}<p>Hello,</p>
<p>A dispute was filed on booking {{.BookingID}}: {{.Reason}}</p>
<p>Our team will review it and get back to you.</p>
<p>{{.CompanyName}}</p>{{end}}
`))

// EmailService delivers notifications through SendGrid from a background worker so
// request handlers never wait on the provider.
type EmailService struct {
	config *EmailConfig
	logger *logrus.Logger
	client Sender
	queue  chan ports.Notification

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

// NewEmailService creates a new email service instance and starts its worker.
// Without an API key messages are rendered and logged but not sent.
func NewEmailService(config *EmailConfig, logger *logrus.Logger) *EmailService {
	var client Sender
	if config.SendGridAPIKey != "" {
		client = sendgrid.NewSendClient(config.SendGridAPIKey)
	}
	return NewEmailServiceWithSender(config, client, logger)
}

// NewEmailServiceWithSender is NewEmailService with an explicit transport.
func NewEmailServiceWithSender(config *EmailConfig, client Sender, logger *logrus.Logger) *EmailService {
	size := config.QueueSize
	if size <= 0 {
		size = 256
	}
	e := &EmailService{
		config: config,
		logger: logger,
		client: client,
		queue:  make(chan ports.Notification, size),
		done:   make(chan struct{}),
	}
	go e.run()
	return e
}

// Enqueue buffers n for delivery. It never blocks on the provider.
func (e *EmailService) Enqueue(ctx context.Context, n ports.Notification) error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return ErrClosed
	}
	select {
	case e.queue <- n:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		if e.logger != nil {
			e.logger.WithFields(logrus.Fields{"to": n.To, "template": n.Template}).Warn("email queue full, dropping notification")
		}
		return ErrQueueFull
	}
}

// Close stops accepting notifications and waits for the queue to drain.
func (e *EmailService) Close(ctx context.Context) error {
	e.mu.Lock()
	if !e.closed {
		e.closed = true
		close(e.queue)
	}
	e.mu.Unlock()
	select {
	case <-e.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *EmailService) run() {
	defer close(e.done)
	for n := range e.queue {
		if err := e.deliver(n); err != nil && e.logger != nil {
			e.logger.WithFields(logrus.Fields{"to": n.To, "template": n.Template}).WithError(err).Error("Failed to deliver notification")
		}
	}
}

func (e *EmailService) deliver(n ports.Notification) error {
	html, err := e.renderTemplate(n.Template, n.Data)
	if err != nil {
		return err
	}
	if e.client == nil {
		if e.logger != nil {
			e.logger.WithFields(logrus.Fields{"to": n.To, "subject": n.Subject}).Debug("email delivery disabled, skipping send")
		}
		return nil
	}
	return e.sendEmail(n.To, n.Subject, html)
}

// sendEmail sends an email using SendGrid
func (e *EmailService) sendEmail(to, subject, htmlContent string) error {
	from := mail.NewEmail(e.config.FromName, e.config.FromEmail)
	recipient := mail.NewEmail("", to)

	message := mail.NewSingleEmail(from, subject, recipient, "", htmlContent)

	response, err := e.client.Send(message)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	if response.StatusCode >= 400 {
		return fmt.Errorf("failed to send email: provider returned %d", response.StatusCode)
	}

	if e.logger != nil {
		e.logger.WithFields(logrus.Fields{
			"to":          to,
			"subject":     subject,
			"status_code": response.StatusCode,
		}).Info("Email sent successfully")
	}
	return nil
}

// renderTemplate renders an email template with the provided data
func (e *EmailService) renderTemplate(templateName string, data map[string]any) (string, error) {
	tmpl := templates.Lookup(templateName)
	if tmpl == nil {
		return "", fmt.Errorf("template %s not found", templateName)
	}
	view := map[string]any{
		"CompanyName": e.config.CompanyName,
		"BaseURL":     e.config.BaseURL,
	}
	for k, v := range data {
		view[k] = v
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, view); err != nil {
		return "", fmt.Errorf("failed to execute template %s: %w", templateName, err)
	}
	return buf.String(), nil
}

var _ ports.Notifier = (*EmailService)(nil)
