// Package notify delivers applicant notices by email (SES) and SMS (SNS).
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	awsclient "assistance-workflow/internal/common/aws"
	"assistance-workflow/internal/common/config"
	apperrors "assistance-workflow/internal/common/errors"
	"assistance-workflow/internal/common/logger"
	"assistance-workflow/internal/models"
)

// EmailSender sends a plain-text email and returns the provider message id.
type EmailSender interface {
	SendText(ctx context.Context, to, subject, body string) (string, error)
}

// SMSSender sends a text message and returns the provider message id.
type SMSSender interface {
	SendSMS(ctx context.Context, phone, message string) (string, error)
}

type Config struct {
	EmailEnabled bool
	SMSEnabled   bool
	Office       string
}

type Notifier struct {
	config Config
	email  EmailSender
	sms    SMSSender
	logger logger.Logger
}

// New builds a Notifier. A nil sender disables its channel.
func New(cfg Config, email EmailSender, sms SMSSender, log logger.Logger) *Notifier {
	if cfg.Office == "" {
		cfg.Office = "the City Social Welfare Office"
	}
	return &Notifier{
		config: cfg,
		email:  email,
		sms:    sms,
		logger: log.WithFields(map[string]interface{}{"component": "notify"}),
	}
}

// NewAWS wires SES and SNS clients from the notification settings.
func NewAWS(ctx context.Context, nc config.NotificationConfig, log logger.Logger) (*Notifier, error) {
	cfg := Config{
		EmailEnabled: nc.Email.Enabled,
		SMSEnabled:   nc.SMS.Enabled,
		Office:       nc.Office,
	}
	if !cfg.EmailEnabled && !cfg.SMSEnabled {
		return New(cfg, nil, nil, log), nil
	}

	awsCfg, err := awsclient.LoadConfig(ctx, nc.AWS.Region)
	if err != nil {
		return nil, err
	}

	var email EmailSender
	var sms SMSSender
	if cfg.EmailEnabled {
		if nc.Email.FromEmail == "" {
			return nil, fmt.Errorf("notifications.email.from_email is required when email is enabled")
		}
		email = awsclient.NewSESClient(awsCfg, nc.Email.FromEmail)
	}
	if cfg.SMSEnabled {
		sms = awsclient.NewSNSClient(awsCfg, nc.SMS.SenderID)
	}
	return New(cfg, email, sms, log), nil
}

// Notify renders the notice and attempts every enabled channel that has a
// recipient. It returns one record per channel and a NOTIFICATION_SEND_FAILED
// error when any attempt failed. With no usable channel a single disabled
// record is returned.
func (n *Notifier) Notify(ctx context.Context, notice models.Notice) ([]models.Notification, error) {
	if notice.Application == nil {
		return nil, apperrors.NewValidationError("application", "notice has no application")
	}
	tmpl, ok := templates[notice.Type]
	if !ok {
		return nil, apperrors.NewValidationError("type", fmt.Sprintf("no template for notification type %q", notice.Type))
	}

	app := notice.Application
	data := templateData(app, n.config.Office)
	emailTo := strings.TrimSpace(app.Applicant.Email)
	phone := strings.TrimSpace(app.Applicant.Phone)

	var records []models.Notification
	var errs []error

	if n.emailEnabled() && emailTo != "" {
		rec := n.record(notice, models.ChannelEmail, emailTo)
		subject := renderTemplate(tmpl.Subject, data)
		body := renderTemplate(tmpl.Body, data)
		if _, err := n.email.SendText(ctx, emailTo, subject, body); err != nil {
			rec.Status = models.DeliveryFailed
			rec.Error = err.Error()
			errs = append(errs, apperrors.NewNotificationSendFailedError(models.ChannelEmail, err))
			n.logger.Error("email send failed", map[string]interface{}{
				"error":         err,
				"applicationId": app.ID,
				"type":          notice.Type,
			})
		}
		records = append(records, rec)
	}

	if n.smsEnabled() && phone != "" {
		rec := n.record(notice, models.ChannelSMS, phone)
		if _, err := n.sms.SendSMS(ctx, phone, renderTemplate(tmpl.SMS, data)); err != nil {
			rec.Status = models.DeliveryFailed
			rec.Error = err.Error()
			errs = append(errs, apperrors.NewNotificationSendFailedError(models.ChannelSMS, err))
			n.logger.Error("SMS send failed", map[string]interface{}{
				"error":         err,
				"applicationId": app.ID,
				"type":          notice.Type,
			})
		}
		records = append(records, rec)
	}

	if len(records) == 0 {
		rec := n.record(notice, models.ChannelEmail, emailTo)
		rec.Status = models.DeliveryDisabled
		n.logger.Warn("no notification channel available", map[string]interface{}{
			"applicationId": app.ID,
			"type":          notice.Type,
		})
		return []models.Notification{rec}, nil
	}

	n.logger.Info("notification processed", map[string]interface{}{
		"applicationId": app.ID,
		"type":          notice.Type,
		"channels":      len(records),
		"failures":      len(errs),
	})

	switch len(errs) {
	case 0:
		return records, nil
	case 1:
		return records, errs[0]
	default:
		return records, apperrors.NewNotificationSendFailedError("email+sms", errors.Join(errs...))
	}
}

func (n *Notifier) emailEnabled() bool { return n.config.EmailEnabled && n.email != nil }

func (n *Notifier) smsEnabled() bool { return n.config.SMSEnabled && n.sms != nil }

func (n *Notifier) record(notice models.Notice, channel, recipient string) models.Notification {
	return models.Notification{
		ApplicationID: notice.Application.ID,
		Type:          notice.Type,
		Channel:       channel,
		Recipient:     recipient,
		Status:        models.DeliverySent,
	}
}
