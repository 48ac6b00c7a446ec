package email

import (
	"embed"
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// Template names understood by the Renderer.
const (
	TemplateTaskAssignment = "task_assignment"
	TemplateDueReminder    = "due_reminder"
	TemplateWelcome        = "welcome"
	TemplateDailyReminder  = "daily_reminder"
	TemplateWeeklyDigest   = "weekly_digest"
	TemplateProjectUpdate  = "project_update"
)

// Renderer renders named email templates to a text body and an HTML body.
// Templates are embedded in the binary; a missing template is a programming
// error surfaced at construction time, not at send time.
type Renderer struct {
	text *texttemplate.Template
	html *htmltemplate.Template
}

// NewRenderer parses all embedded templates.
func NewRenderer() (*Renderer, error) {
	text, err := texttemplate.ParseFS(templateFS, "templates/*.txt.tmpl")
	if err != nil {
		return nil, fmt.Errorf("failed to parse text templates: %w", err)
	}

	html, err := htmltemplate.ParseFS(templateFS, "templates/*.html.tmpl")
	if err != nil {
		return nil, fmt.Errorf("failed to parse html templates: %w", err)
	}

	return &Renderer{text: text, html: html}, nil
}

// Render executes the named template pair against data and returns the
// plain-text and HTML bodies.
func (r *Renderer) Render(name string, data any) (textBody, htmlBody string, err error) {
	var tb strings.Builder
	if err := r.text.ExecuteTemplate(&tb, name+".txt.tmpl", data); err != nil {
		return "", "", fmt.Errorf("failed to render text template %q: %w", name, err)
	}

	var hb strings.Builder
	if err := r.html.ExecuteTemplate(&hb, name+".html.tmpl", data); err != nil {
		return "", "", fmt.Errorf("failed to render html template %q: %w", name, err)
	}

	return tb.String(), hb.String(), nil
}
