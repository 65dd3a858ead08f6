package compose

import (
	"strings"

	"agentcore/pkg/agent/llm"
)

// Role is an enumerated capability tag for a pipeline agent. It determines
// the system-prompt template and, in the pipeline, which stage the agent
// participates in. Immutable once an agent is created.
type Role string

const (
	RoleArchitect Role = "architect"
	RoleFrontend  Role = "frontend"
	RoleBackend   Role = "backend"
	RoleTesting   Role = "testing"
	RoleDevOps    Role = "devops"
	RoleCustom    Role = "custom"
)

// templateFor maps each role to its system-prompt template. Unknown roles
// fall back to the generic assistant template.
func templateFor(role Role) RoleTemplate {
	switch role {
	case RoleArchitect:
		return ArchitectTemplate
	case RoleFrontend:
		return FrontendTemplate
	case RoleBackend:
		return BackendTemplate
	case RoleTesting:
		return TestingTemplate
	case RoleDevOps:
		return DevOpsTemplate
	default:
		return GenericTemplate
	}
}

// Input carries everything Compose needs to build a message sequence.
type Input struct {
	Role       Role
	Task       string   // optional task description, prefixed to the prompt
	UserPrompt string   // the main prompt
	Context    string   // optional prior-conversation context
	Metadata   string   // optional project metadata appended after the prompt
	Images     []string // optional image references, kept in input order
}

// Composer builds message sequences. It holds only the parsed templates and
// is safe for concurrent use.
type Composer struct {
	renderer *Renderer
}

// New creates a Composer with all role templates loaded.
func New() (*Composer, error) {
	renderer, err := NewRenderer()
	if err != nil {
		return nil, err
	}
	return &Composer{renderer: renderer}, nil
}

// Compose builds an ordered message sequence: one system message keyed by
// role, an optional user/assistant pair carrying prior context, then the main
// user message (task, prompt, metadata, images in that order). Deterministic:
// the same input always yields the same sequence.
func (c *Composer) Compose(in Input) ([]llm.Message, error) {
	systemPrompt, err := c.renderer.Render(templateFor(in.Role), nil)
	if err != nil {
		return nil, err
	}

	messages := []llm.Message{llm.NewSystemMessage(systemPrompt)}

	if in.Context != "" {
		messages = append(messages,
			llm.NewUserMessage("Context from earlier in this project:\n\n"+in.Context),
			llm.NewAssistantMessage("Understood. I will build on that context."),
		)
	}

	var b strings.Builder
	if in.Task != "" {
		b.WriteString("Task: ")
		b.WriteString(in.Task)
		b.WriteString("\n\n")
	}
	b.WriteString(in.UserPrompt)
	if in.Metadata != "" {
		b.WriteString("\n\nProject metadata:\n")
		b.WriteString(in.Metadata)
	}
	text := b.String()

	main := llm.NewUserMessage(text)
	if len(in.Images) > 0 {
		// Multi-part content: text first, then each image in input order.
		parts := make([]llm.Part, 0, len(in.Images)+1)
		parts = append(parts, llm.Part{Type: llm.PartText, Text: text})
		for _, ref := range in.Images {
			parts = append(parts, llm.Part{Type: llm.PartImage, ImageRef: ref})
		}
		main = llm.Message{Role: llm.RoleUser, Parts: parts}
	}
	messages = append(messages, main)

	return messages, nil
}
