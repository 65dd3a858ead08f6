package compose

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agentcore/pkg/agent/llm"
)

func newTestComposer(t *testing.T) *Composer {
	t.Helper()
	c, err := New()
	require.NoError(t, err)
	return c
}

func TestComposeDeterministic(t *testing.T) {
	c := newTestComposer(t)
	in := Input{
		Role:       RoleBackend,
		Task:       "Build the API",
		UserPrompt: "Use REST with JSON payloads.",
		Context:    "The frontend is already scaffolded.",
		Metadata:   "repo: example/app",
		Images:     []string{"img-1", "img-2"},
	}

	first, err := c.Compose(in)
	require.NoError(t, err)
	second, err := c.Compose(in)
	require.NoError(t, err)
	assert.Equal(t, first, second, "same input must yield an identical sequence")
}

func TestComposeMessageOrder(t *testing.T) {
	c := newTestComposer(t)
	messages, err := c.Compose(Input{
		Role:       RoleFrontend,
		Task:       "Build the dashboard",
		UserPrompt: "Use the design system components.",
		Context:    "Design tokens are defined in tokens.css.",
	})
	require.NoError(t, err)

	require.Len(t, messages, 4)
	assert.Equal(t, llm.RoleSystem, messages[0].Role)
	assert.Equal(t, llm.RoleUser, messages[1].Role)
	assert.Contains(t, messages[1].Text(), "tokens.css")
	assert.Equal(t, llm.RoleAssistant, messages[2].Role)
	assert.Equal(t, llm.RoleUser, messages[3].Role)
	assert.Contains(t, messages[3].Text(), "Task: Build the dashboard")
	assert.Contains(t, messages[3].Text(), "design system components")
}

func TestComposeWithoutContextSkipsPair(t *testing.T) {
	c := newTestComposer(t)
	messages, err := c.Compose(Input{Role: RoleTesting, UserPrompt: "Write tests."})
	require.NoError(t, err)

	require.Len(t, messages, 2)
	assert.Equal(t, llm.RoleSystem, messages[0].Role)
	assert.Equal(t, llm.RoleUser, messages[1].Role)
}

func TestComposeImagesPreserveOrder(t *testing.T) {
	c := newTestComposer(t)
	messages, err := c.Compose(Input{
		Role:       RoleFrontend,
		UserPrompt: "Match these mockups.",
		Images:     []string{"mock-a", "mock-b", "mock-c"},
	})
	require.NoError(t, err)

	main := messages[len(messages)-1]
	require.Len(t, main.Parts, 4)
	assert.Equal(t, llm.PartText, main.Parts[0].Type)
	for i, ref := range []string{"mock-a", "mock-b", "mock-c"} {
		part := main.Parts[i+1]
		assert.Equal(t, llm.PartImage, part.Type)
		assert.Equal(t, ref, part.ImageRef)
	}
}

func TestComposeRoleSelectsTemplate(t *testing.T) {
	c := newTestComposer(t)

	architect, err := c.Compose(Input{Role: RoleArchitect, UserPrompt: "x"})
	require.NoError(t, err)
	devops, err := c.Compose(Input{Role: RoleDevOps, UserPrompt: "x"})
	require.NoError(t, err)
	assert.NotEqual(t, architect[0].Text(), devops[0].Text())
}

func TestComposeUnknownRoleFallsBackToGeneric(t *testing.T) {
	c := newTestComposer(t)

	custom, err := c.Compose(Input{Role: RoleCustom, UserPrompt: "x"})
	require.NoError(t, err)
	unknown, err := c.Compose(Input{Role: Role("juggler"), UserPrompt: "x"})
	require.NoError(t, err)
	assert.Equal(t, custom[0].Text(), unknown[0].Text())
	assert.NotEmpty(t, custom[0].Text())
}

func TestComposeMetadataAppended(t *testing.T) {
	c := newTestComposer(t)
	messages, err := c.Compose(Input{
		Role:       RoleBackend,
		UserPrompt: "Implement the schema.",
		Metadata:   "database: postgres",
	})
	require.NoError(t, err)

	text := messages[len(messages)-1].Text()
	assert.Contains(t, text, "Project metadata:")
	assert.Contains(t, text, "database: postgres")
}
