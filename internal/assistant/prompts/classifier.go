package prompts

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"
)

//go:embed template/classifier_prompt.txt
var classifierSystemPrompt string

// RenderClassifierSystem renders the classifier's instructional preamble via
// the eino prompt component. The template is static; routing it through the
// component keeps prompt callbacks firing like every other prompt.
func RenderClassifierSystem(ctx context.Context) (string, error) {
	tpl := prompt.FromMessages(
		schema.FString,
		schema.MessagesPlaceholder("system_messages", false),
	)
	msgs, err := tpl.Format(ctx, map[string]any{
		"system_messages": []*schema.Message{schema.SystemMessage(classifierSystemPrompt)},
	})
	if err != nil {
		return "", fmt.Errorf("classifier prompt render: %w", err)
	}
	if len(msgs) == 0 || msgs[0] == nil {
		return "", fmt.Errorf("classifier prompt render: empty result")
	}
	return msgs[0].Content, nil
}
