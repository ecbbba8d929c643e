package notify

import (
	"context"
	"errors"
	"fmt"

	"courier-assistant/internal/metrics"
	"courier-assistant/internal/models"

	logrus "github.com/sirupsen/logrus"
)

// Target identifies where a courier's reminders go. A linked Telegram chat
// wins; otherwise the account email is used.
type Target struct {
	TelegramChatID *int64
	Email          string
	Name           string
}

// Notifier delivers call reminders. A returned error means the reminder was
// not delivered and the call status must stay unchanged so the next checker
// iteration retries delivery.
type Notifier interface {
	SendCallNotification(ctx context.Context, target Target, n models.CallNotification) error
}

// ErrNoChannel is returned when a target has neither a Telegram chat nor an
// email address.
var ErrNoChannel = errors.New("notify: no delivery channel for user")

// MultiChannel routes reminders to Telegram when linked, email otherwise.
type MultiChannel struct {
	telegram *TelegramSender
	email    *EmailSender
	tm       *TemplateManager
}

func NewMultiChannel(telegram *TelegramSender, email *EmailSender, tm *TemplateManager) *MultiChannel {
	return &MultiChannel{telegram: telegram, email: email, tm: tm}
}

func (m *MultiChannel) SendCallNotification(ctx context.Context, target Target, n models.CallNotification) error {
	switch {
	case target.TelegramChatID != nil && m.telegram != nil:
		err := m.telegram.SendMessage(ctx, *target.TelegramChatID, n.Message)
		observe("telegram", err)
		return err

	case target.Email != "" && m.email != nil:
		subject := fmt.Sprintf("Time to call: order %s", n.OrderNumber)
		html, err := m.tm.GenerateCallReminderHTML(n, target.Name)
		if err != nil {
			logrus.WithError(err).Error("call reminder template failed")
			html = ""
		}
		err = m.email.SendEmail(ctx, target.Email, subject, n.Message, html)
		observe("email", err)
		return err

	default:
		return ErrNoChannel
	}
}

func observe(channel string, err error) {
	status := "sent"
	if err != nil {
		status = "error"
	}
	metrics.Notifications.WithLabelValues(channel, status).Inc()
}
