package notify

import (
	"bytes"
	"errors"
	"text/template"
)

const DefaultTemplate = `[Count {{.EventLabel}}]
Location: {{.Location}}
Book: {{.BookNumber}}
Game: {{.Game}}
Expected Remaining: {{.ExpectedRemaining}}
Physical Remaining: {{.PhysicalRemaining}}
Variance: {{.Variance}} ({{.VarianceAmount}})
Count Date: {{.CountDate}}
Logged By: {{.LoggedBy}}
{{ if .ReasonCode }}Reason: {{.ReasonCode}}
{{ end }}Suggestion: {{.Suggestion}}`

// TemplateData provides fields for rendering alert content.
type TemplateData struct {
	Location          string
	LocationID        string
	BookNumber        string
	BookID            string
	Game              string
	ExpectedRemaining string
	PhysicalRemaining string
	Variance          string
	VarianceAmount    string
	CountDate         string
	LoggedBy          string
	ReasonCode        string
	Suggestion        string
	Event             string
	EventLabel        string
}

// Template renders alert content.
type Template struct {
	tpl *template.Template
}

// NewTemplate parses an alert template, falling back to DefaultTemplate.
func NewTemplate(tpl string) (*Template, error) {
	if tpl == "" {
		tpl = DefaultTemplate
	}
	parsed, err := template.New("count-alert").Parse(tpl)
	if err != nil {
		return nil, err
	}
	return &Template{tpl: parsed}, nil
}

// Render applies the template to data.
func (t *Template) Render(data TemplateData) (string, error) {
	if t == nil || t.tpl == nil {
		return "", errors.New("alert template: nil")
	}
	var buf bytes.Buffer
	if err := t.tpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
