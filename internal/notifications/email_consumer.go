package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	pubsub "cloud.google.com/go/pubsub/v2"

	"github.com/angelmondragon/oddsvault-backend/pkg/enums"
	"github.com/angelmondragon/oddsvault-backend/pkg/logger"
	"github.com/angelmondragon/oddsvault-backend/pkg/mailer"
	"github.com/angelmondragon/oddsvault-backend/pkg/outbox/payloads"
)

const emailConsumerName = "notification-email"

type emailRenderer interface {
	Render(name enums.EmailTemplate, data mailer.TemplateData) (string, string, error)
}

// EmailConsumer renders notification_email_requested events and hands them
// to the configured sender.
type EmailConsumer struct {
	*receiver
	renderer emailRenderer
	sender   mailer.Sender
	baseURL  string
}

// NewEmailConsumer builds the email delivery consumer. baseURL prefixes
// relative links in the payload.
func NewEmailConsumer(renderer emailRenderer, sender mailer.Sender, baseURL string, subscription *pubsub.Subscriber, tracker processedTracker, logg *logger.Logger) (*EmailConsumer, error) {
	if renderer == nil {
		return nil, fmt.Errorf("email renderer required")
	}
	if sender == nil {
		return nil, fmt.Errorf("email sender required")
	}
	c := &EmailConsumer{renderer: renderer, sender: sender, baseURL: strings.TrimRight(baseURL, "/")}
	r, err := newReceiver(emailConsumerName, subscription, tracker, logg, c.handle)
	if err != nil {
		return nil, err
	}
	c.receiver = r
	return c, nil
}

func (c *EmailConsumer) handle(ctx context.Context, logCtx context.Context, eventType string, data json.RawMessage) error {
	if eventType != string(enums.EventNotificationEmailRequested) {
		c.logg.Info(logCtx, "skipping non-email event")
		return errSkip
	}
	var payload payloads.NotificationEmailRequestedEvent
	if err := json.Unmarshal(data, &payload); err != nil {
		c.logg.Error(logCtx, "failed to parse email payload", err)
		return errSkip
	}
	if strings.TrimSpace(payload.To) == "" {
		c.logg.Warn(logCtx, "email payload missing recipient")
		return errSkip
	}

	subject, html, err := c.renderer.Render(payload.Template, c.templateData(payload))
	if err != nil {
		c.logg.Error(logCtx, "failed to render email", err)
		return errSkip
	}
	if err := c.sender.Send(ctx, mailer.Message{
		To:      payload.To,
		ToName:  payload.Name,
		Subject: subject,
		HTML:    html,
	}); err != nil {
		return err
	}
	c.logg.Info(c.logg.WithField(logCtx, "template", string(payload.Template)), "email sent")
	return nil
}

func (c *EmailConsumer) templateData(payload payloads.NotificationEmailRequestedEvent) mailer.TemplateData {
	data := mailer.TemplateData{
		Subject: payload.Subject,
		Name:    payload.Name,
		Fields:  payload.Data,
	}
	if payload.Data == nil {
		data.Fields = map[string]string{}
	}
	data.Message = data.Fields["message"]
	if link := data.Fields["link"]; link != "" {
		if strings.HasPrefix(link, "/") {
			link = c.baseURL + link
		}
		data.ActionURL = link
	}
	return data
}
