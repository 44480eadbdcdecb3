package enums

import "fmt"

// EmailTemplate is the `type` discriminator on notification and email payloads.
type EmailTemplate string

const (
	EmailTemplateWelcome               EmailTemplate = "welcome"
	EmailTemplateSubscriptionActivated EmailTemplate = "subscription_activated"
	EmailTemplatePaymentReceived       EmailTemplate = "payment_received"
	EmailTemplatePaymentApproved       EmailTemplate = "payment_approved"
	EmailTemplateNewPredictions        EmailTemplate = "new_predictions"
	EmailTemplateSubscriptionExpired   EmailTemplate = "subscription_expired"
	EmailTemplateCustom                EmailTemplate = "custom"
)

var validEmailTemplates = []EmailTemplate{
	EmailTemplateWelcome,
	EmailTemplateSubscriptionActivated,
	EmailTemplatePaymentReceived,
	EmailTemplatePaymentApproved,
	EmailTemplateNewPredictions,
	EmailTemplateSubscriptionExpired,
	EmailTemplateCustom,
}

// IsValid reports whether the value is a known EmailTemplate.
func (e EmailTemplate) IsValid() bool {
	for _, candidate := range validEmailTemplates {
		if candidate == e {
			return true
		}
	}
	return false
}

func ParseEmailTemplate(value string) (EmailTemplate, error) {
	for _, candidate := range validEmailTemplates {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid email template %q", value)
}
