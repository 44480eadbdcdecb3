package mailer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/wneessen/go-mail"

	"github.com/angelmondragon/oddsvault-backend/pkg/config"
	"github.com/angelmondragon/oddsvault-backend/pkg/enums"
)

func TestRendererCoversEveryTemplate(t *testing.T) {
	r, err := NewRenderer("OddsVault")
	require.NoError(t, err)

	for name := range defaultSubjects {
		subject, body, err := r.Render(name, TemplateData{Name: "Ada", Message: "Hello\n\nSecond", Fields: map[string]string{"plan_name": "VIP"}})
		require.NoError(t, err, name)
		require.NotEmpty(t, subject)
		require.Contains(t, body, "Hi Ada")
		require.Contains(t, body, "OddsVault")
	}
}

func TestRenderCustomParagraphsAndEscaping(t *testing.T) {
	r, err := NewRenderer("")
	require.NoError(t, err)

	subject, body, err := r.Render(enums.EmailTemplateCustom, TemplateData{
		Subject: "Heads up",
		Message: "First line\n\n<script>x</script>",
	})
	require.NoError(t, err)
	require.Equal(t, "Heads up", subject)
	require.Contains(t, body, "<p>First line</p>")
	require.NotContains(t, body, "<script>")
	require.Contains(t, body, "Hi there")
}

func TestRenderPaymentFields(t *testing.T) {
	r, err := NewRenderer("OddsVault")
	require.NoError(t, err)

	_, body, err := r.Render(enums.EmailTemplatePaymentApproved, TemplateData{
		Fields:    map[string]string{"amount": "NGN 5000", "reference": "OV-123", "plan_name": "Standard"},
		ActionURL: "https://oddsvault.app/dashboard",
	})
	require.NoError(t, err)
	require.Contains(t, body, "NGN 5000")
	require.Contains(t, body, "OV-123")
	require.Contains(t, body, "Open OddsVault")
}

func TestRenderUnknownTemplate(t *testing.T) {
	r, err := NewRenderer("OddsVault")
	require.NoError(t, err)
	_, _, err = r.Render(enums.EmailTemplate("nope"), TemplateData{})
	require.Error(t, err)
}

func TestSMTPSenderBuildsMessage(t *testing.T) {
	sender, err := NewSMTPSender(config.SMTPConfig{Host: "smtp.test", Port: 587, From: "no-reply@oddsvault.app", FromName: "OddsVault"})
	require.NoError(t, err)

	var captured *mail.Msg
	sender.dialer = func(m *mail.Msg) error {
		captured = m
		return nil
	}

	require.NoError(t, sender.Send(context.Background(), Message{To: "fan@example.com", ToName: "Fan", Subject: "Hi", HTML: "<p>x</p>"}))
	require.NotNil(t, captured)
	require.Equal(t, []string{"Hi"}, captured.GetGenHeader(mail.HeaderSubject))
	to := captured.GetTo()
	require.Len(t, to, 1)
	require.Equal(t, "fan@example.com", to[0].Address)

	require.Error(t, sender.Send(context.Background(), Message{Subject: "missing to"}))
}

func TestNewSenderFallsBackToLog(t *testing.T) {
	sender, err := NewSender(config.SMTPConfig{}, nil)
	require.NoError(t, err)
	_, ok := sender.(*LogSender)
	require.True(t, ok)
	require.NoError(t, sender.Send(context.Background(), Message{To: "a@b.c"}))

	_, err = NewSMTPSender(config.SMTPConfig{})
	require.Error(t, err)
}
