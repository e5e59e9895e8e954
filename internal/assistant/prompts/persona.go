package prompts

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"

	"github.com/nova-assistant/server/internal/assistant/model"
)

//go:embed template/persona_prompt.txt
var personaSystemPrompt string

// RenderPersonaSystem renders the assistant persona system prompt.
func RenderPersonaSystem(ctx context.Context, cfg model.PersonaConfig) (string, error) {
	tpl := prompt.FromMessages(
		schema.GoTemplate,
		schema.SystemMessage(personaSystemPrompt),
	)
	msgs, err := tpl.Format(ctx, map[string]any{
		"Username":      cfg.Username,
		"AssistantName": cfg.AssistantName,
	})
	if err != nil {
		return "", fmt.Errorf("persona prompt render: %w", err)
	}
	if len(msgs) == 0 || msgs[0] == nil {
		return "", fmt.Errorf("persona prompt render: empty result")
	}
	return msgs[0].Content, nil
}
