package whatsapp

import (
	"fmt"
	"strings"
	"text/template"
	"time"
)

const DefaultTemplate = `Olá, {{.ClientName}}! Lembrete do seu horário de {{.ServiceName}} com {{.ProfessionalName}} em {{.Date | brDate}} às {{.Time}}. {{.BusinessName}}`

// Message holds the fields available to reminder templates.
type Message struct {
	ClientName       string
	ServiceName      string
	ProfessionalName string
	BusinessName     string
	Date             string // YYYY-MM-DD
	Time             string // HH:MM
}

type Renderer struct {
	tmpl *template.Template
}

// NewRenderer parses text; an empty text selects DefaultTemplate.
func NewRenderer(text string) (*Renderer, error) {
	if strings.TrimSpace(text) == "" {
		text = DefaultTemplate
	}
	tmpl, err := template.New("reminder").
		Option("missingkey=error").
		Funcs(template.FuncMap{"brDate": brDate}).
		Parse(text)
	if err != nil {
		return nil, fmt.Errorf("parse reminder template: %w", err)
	}
	return &Renderer{tmpl: tmpl}, nil
}

func (r *Renderer) Render(m Message) (string, error) {
	var b strings.Builder
	if err := r.tmpl.Execute(&b, m); err != nil {
		return "", fmt.Errorf("render reminder: %w", err)
	}
	return strings.TrimSpace(b.String()), nil
}

// brDate renders YYYY-MM-DD as DD/MM/YYYY and leaves other input unchanged.
func brDate(date string) string {
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		return date
	}
	return t.Format("02/01/2006")
}
