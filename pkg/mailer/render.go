package mailer

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"

	"github.com/angelmondragon/oddsvault-backend/pkg/enums"
)

//go:embed templates/*.html
var templateFS embed.FS

var defaultSubjects = map[enums.EmailTemplate]string{
	enums.EmailTemplateWelcome:               "Welcome to %s",
	enums.EmailTemplateSubscriptionActivated: "Your %s subscription is active",
	enums.EmailTemplatePaymentReceived:       "Payment received - %s",
	enums.EmailTemplatePaymentApproved:       "Payment approved - %s",
	enums.EmailTemplateNewPredictions:        "New predictions on %s",
	enums.EmailTemplateSubscriptionExpired:   "Your subscription on %s has expired",
	enums.EmailTemplateCustom:                "A message from %s",
}

// TemplateData feeds every email template.
type TemplateData struct {
	SiteName    string
	Subject     string
	Name        string
	Message     string
	ActionURL   string
	ActionLabel string
	Fields      map[string]string
}

// Paragraphs splits Message on blank lines for the custom template.
func (d TemplateData) Paragraphs() []string {
	var out []string
	for _, p := range strings.Split(d.Message, "\n\n") {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// Renderer parses the embedded templates once.
type Renderer struct {
	siteName  string
	templates map[enums.EmailTemplate]*template.Template
}

func NewRenderer(siteName string) (*Renderer, error) {
	if strings.TrimSpace(siteName) == "" {
		siteName = "OddsVault"
	}
	r := &Renderer{siteName: siteName, templates: map[enums.EmailTemplate]*template.Template{}}
	for name := range defaultSubjects {
		tmpl, err := template.ParseFS(templateFS, "templates/layout.html", fmt.Sprintf("templates/%s.html", name))
		if err != nil {
			return nil, fmt.Errorf("parse %s template: %w", name, err)
		}
		r.templates[name] = tmpl
	}
	return r, nil
}

// Render returns the subject and HTML body for the template.
func (r *Renderer) Render(name enums.EmailTemplate, data TemplateData) (string, string, error) {
	tmpl, ok := r.templates[name]
	if !ok {
		return "", "", fmt.Errorf("unknown email template %q", name)
	}
	data.SiteName = r.siteName
	if strings.TrimSpace(data.Subject) == "" {
		data.Subject = fmt.Sprintf(defaultSubjects[name], r.siteName)
	}
	if data.ActionURL != "" && data.ActionLabel == "" {
		data.ActionLabel = "Open " + r.siteName
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", data); err != nil {
		return "", "", fmt.Errorf("render %s: %w", name, err)
	}
	return data.Subject, buf.String(), nil
}
