package notifications

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/angelmondragon/oddsvault-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/oddsvault-backend/pkg/errors"
)

// TypedRequest is the body of the create and send-email endpoints. Type
// selects how Data is decoded.
type TypedRequest struct {
	Type   string          `json:"type" validate:"required"`
	UserID string          `json:"user_id" validate:"omitempty,uuid"`
	Email  string          `json:"email" validate:"omitempty,email"`
	Name   string          `json:"name" validate:"omitempty,max=120"`
	Data   json.RawMessage `json:"data"`
}

type welcomeData struct{}

type subscriptionData struct {
	PlanName   string `json:"plan_name"`
	ExpiryDate string `json:"expiry_date"`
}

type paymentData struct {
	PlanName  string `json:"plan_name"`
	Amount    string `json:"amount"`
	Reference string `json:"reference"`
}

type predictionsData struct {
	PlanType string `json:"plan_type"`
	Date     string `json:"date"`
	Count    int    `json:"count"`
}

// customData.Kind picks the in-app category and defaults to system.
type customData struct {
	Title   string `json:"title"`
	Subject string `json:"subject"`
	Message string `json:"message"`
	Link    string `json:"link"`
	Kind    string `json:"kind"`
}

// content is the decoded form of a TypedRequest, ready to become an in-app
// row or an email.
type content struct {
	template enums.EmailTemplate
	kind     enums.NotificationType
	title    string
	message  string
	link     string
	subject  string
	fields   map[string]string
}

func decodeContent(req TypedRequest) (*content, error) {
	template, err := enums.ParseEmailTemplate(strings.TrimSpace(req.Type))
	if err != nil || template == enums.EmailTemplateSubscriptionExpired {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "unknown notification type %q", req.Type)
	}
	c := &content{template: template, fields: map[string]string{}}

	switch template {
	case enums.EmailTemplateWelcome:
		var d welcomeData
		if err := decodeData(req.Data, &d); err != nil {
			return nil, err
		}
		c.kind = enums.NotificationTypeSystem
		c.title = "Welcome aboard"
		c.message = "Your account is ready. Pick a plan to unlock premium predictions."
		c.link = "/plans"
	case enums.EmailTemplateSubscriptionActivated:
		var d subscriptionData
		if err := decodeData(req.Data, &d); err != nil {
			return nil, err
		}
		if d.PlanName == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "plan_name is required")
		}
		c.kind = enums.NotificationTypeSubscription
		c.title = "Subscription active"
		c.message = fmt.Sprintf("Your %s subscription is now active.", d.PlanName)
		if d.ExpiryDate != "" {
			c.message = fmt.Sprintf("Your %s subscription is active until %s.", d.PlanName, d.ExpiryDate)
		}
		c.link = "/predictions"
		c.fields["plan_name"] = d.PlanName
		c.fields["expiry_date"] = d.ExpiryDate
	case enums.EmailTemplatePaymentReceived, enums.EmailTemplatePaymentApproved:
		var d paymentData
		if err := decodeData(req.Data, &d); err != nil {
			return nil, err
		}
		if d.PlanName == "" || d.Reference == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "plan_name and reference are required")
		}
		c.kind = enums.NotificationTypePayment
		c.title = "Payment received"
		c.message = fmt.Sprintf("We received your %s payment for %s (ref %s).", d.Amount, d.PlanName, d.Reference)
		if template == enums.EmailTemplatePaymentApproved {
			c.title = "Payment approved"
			c.message = fmt.Sprintf("Your %s payment for %s was approved (ref %s).", d.Amount, d.PlanName, d.Reference)
		}
		c.link = "/account/transactions"
		c.fields["plan_name"] = d.PlanName
		c.fields["amount"] = d.Amount
		c.fields["reference"] = d.Reference
	case enums.EmailTemplateNewPredictions:
		var d predictionsData
		if err := decodeData(req.Data, &d); err != nil {
			return nil, err
		}
		if d.PlanType == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "plan_type is required")
		}
		c.kind = enums.NotificationTypePrediction
		c.title = "New predictions available"
		c.message = fmt.Sprintf("New %s predictions are live.", d.PlanType)
		if d.Count > 0 {
			c.message = fmt.Sprintf("%d new %s predictions are live.", d.Count, d.PlanType)
		}
		c.link = "/predictions?plan=" + d.PlanType
		c.fields["plan_name"] = d.PlanType
		c.fields["date"] = d.Date
		c.fields["count"] = strconv.Itoa(d.Count)
	case enums.EmailTemplateCustom:
		var d customData
		if err := decodeData(req.Data, &d); err != nil {
			return nil, err
		}
		if strings.TrimSpace(d.Title) == "" || strings.TrimSpace(d.Message) == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "title and message are required")
		}
		c.kind = enums.NotificationTypeSystem
		if raw := strings.TrimSpace(d.Kind); raw != "" {
			kind, err := enums.ParseNotificationType(raw)
			if err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid kind")
			}
			c.kind = kind
		}
		c.title = strings.TrimSpace(d.Title)
		c.message = strings.TrimSpace(d.Message)
		c.link = strings.TrimSpace(d.Link)
		c.subject = strings.TrimSpace(d.Subject)
		if c.subject == "" {
			c.subject = c.title
		}
		c.fields["message"] = c.message
	}
	return c, nil
}

// decodeData rejects unknown fields so a payload sent under the wrong type
// fails loudly.
func decodeData(raw json.RawMessage, out any) error {
	if len(bytes.TrimSpace(raw)) == 0 || string(bytes.TrimSpace(raw)) == "null" {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid notification data")
	}
	return nil
}
