package notify

import (
	"bytes"
	"embed"
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"
	"time"
)

//go:embed templates/*.html
var templateFS embed.FS

// Template keys
const (
	AccessCode      = "access_code"
	LOICode         = "loi_code"
	ContractCode    = "contract_code"
	DeclarationCode = "declaration_code"
	MatchFound      = "match_found"
	EntityApproved  = "entity_approved"
	EntityRejected  = "entity_rejected"
	EntityActivated = "entity_activated"
	EntitySubmitted = "entity_submitted"
)

var templateNames = []string{
	AccessCode,
	LOICode,
	ContractCode,
	DeclarationCode,
	MatchFound,
	EntityApproved,
	EntityRejected,
	EntityActivated,
	EntitySubmitted,
}

// Vars are the variables available to every template
type Vars struct {
	Name            string
	Title           string
	City            string
	EntityType      string
	Code            string
	Score           int
	ExpiresAt       string
	CommissionRate  string
	CommissionTerms string
	Reason          string
	Link            string
	Year            int
}

// Rendered is a rendered template
type Rendered struct {
	Subject string
	Text    string
	HTML    string
}

type pair struct {
	html *htmltemplate.Template
	text *texttemplate.Template
}

// Renderer renders the embedded e-mail templates. Subject and plain text
// parts go through text/template, the HTML body through html/template.
type Renderer struct {
	templates map[string]pair
}

// NewRenderer parses every embedded template
func NewRenderer() (*Renderer, error) {
	r := &Renderer{templates: make(map[string]pair)}

	baseContent, err := templateFS.ReadFile("templates/base.html")
	if err != nil {
		return nil, fmt.Errorf("failed to read base template: %w", err)
	}

	for _, name := range templateNames {
		content, err := templateFS.ReadFile("templates/" + name + ".html")
		if err != nil {
			return nil, fmt.Errorf("failed to read template %s: %w", name, err)
		}

		html, err := htmltemplate.New("email").Parse(string(baseContent))
		if err != nil {
			return nil, fmt.Errorf("failed to parse base template for %s: %w", name, err)
		}
		if _, err = html.Parse(string(content)); err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", name, err)
		}

		text, err := texttemplate.New(name).Parse(string(content))
		if err != nil {
			return nil, fmt.Errorf("failed to parse text template %s: %w", name, err)
		}

		r.templates[name] = pair{html: html, text: text}
	}

	return r, nil
}

// Render renders the named template
func (r *Renderer) Render(name string, vars Vars) (*Rendered, error) {
	tmpl, ok := r.templates[name]
	if !ok {
		return nil, fmt.Errorf("template %s not found", name)
	}
	if vars.Year == 0 {
		vars.Year = time.Now().Year()
	}

	var subject, text, html bytes.Buffer
	if err := tmpl.text.ExecuteTemplate(&subject, "subject", vars); err != nil {
		return nil, fmt.Errorf("failed to execute subject of %s: %w", name, err)
	}
	if err := tmpl.text.ExecuteTemplate(&text, "text", vars); err != nil {
		return nil, fmt.Errorf("failed to execute text of %s: %w", name, err)
	}
	if err := tmpl.html.Execute(&html, vars); err != nil {
		return nil, fmt.Errorf("failed to execute template %s: %w", name, err)
	}

	return &Rendered{
		Subject: strings.TrimSpace(subject.String()),
		Text:    strings.TrimSpace(text.String()),
		HTML:    html.String(),
	}, nil
}
