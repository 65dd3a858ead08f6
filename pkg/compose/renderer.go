// Package compose builds provider-agnostic message sequences from agent
// roles, task descriptions, and conversation context. Pure functions, no I/O.
package compose

import (
	"bytes"
	"embed"
	"fmt"
	"text/template"
)

//go:embed templates/*.tpl.md
var templateFS embed.FS

// RoleTemplate identifies the system-prompt template for one agent role.
type RoleTemplate string

const (
	// ArchitectTemplate is the system prompt for the architect role.
	ArchitectTemplate RoleTemplate = "architect.tpl.md"
	// FrontendTemplate is the system prompt for the frontend role.
	FrontendTemplate RoleTemplate = "frontend.tpl.md"
	// BackendTemplate is the system prompt for the backend role.
	BackendTemplate RoleTemplate = "backend.tpl.md"
	// TestingTemplate is the system prompt for the testing role.
	TestingTemplate RoleTemplate = "testing.tpl.md"
	// DevOpsTemplate is the system prompt for the devops role.
	DevOpsTemplate RoleTemplate = "devops.tpl.md"
	// GenericTemplate is the fallback system prompt for custom or unknown roles.
	GenericTemplate RoleTemplate = "generic.tpl.md"
)

// Renderer renders role system-prompt templates.
type Renderer struct {
	templates map[RoleTemplate]*template.Template
}

// NewRenderer loads all role templates from the embedded filesystem.
func NewRenderer() (*Renderer, error) {
	r := &Renderer{templates: make(map[RoleTemplate]*template.Template)}

	names := []RoleTemplate{
		ArchitectTemplate,
		FrontendTemplate,
		BackendTemplate,
		TestingTemplate,
		DevOpsTemplate,
		GenericTemplate,
	}
	for _, name := range names {
		content, err := templateFS.ReadFile("templates/" + string(name))
		if err != nil {
			return nil, fmt.Errorf("failed to read template %s: %w", name, err)
		}
		tmpl, err := template.New(string(name)).Parse(string(content))
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", name, err)
		}
		r.templates[name] = tmpl
	}
	return r, nil
}

// Render renders the named template with the given data.
func (r *Renderer) Render(name RoleTemplate, data any) (string, error) {
	tmpl, exists := r.templates[name]
	if !exists {
		return "", fmt.Errorf("template not found: %s", name)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render template %s: %w", name, err)
	}
	return buf.String(), nil
}
