package observers

import (
	"context"

	einocb "github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components/prompt"
	callbackHelper "github.com/cloudwego/eino/utils/callbacks"

	logx "github.com/nova-assistant/server/pkg/logger"
)

// newPromptHandler logs prompt rendering activity.
func newPromptHandler() *callbackHelper.PromptCallbackHandler {
	return &callbackHelper.PromptCallbackHandler{
		OnStart: func(ctx context.Context, info *einocb.RunInfo, input *prompt.CallbackInput) context.Context {
			evt := logx.Debug().Str("node", info.Name)
			if input != nil {
				evt = evt.Int("variables", len(input.Variables))
			}
			evt.Msg("prompt render start")
			return ctx
		},
		OnEnd: func(ctx context.Context, info *einocb.RunInfo, output *prompt.CallbackOutput) context.Context {
			evt := logx.Debug().Str("node", info.Name)
			if output != nil {
				evt = evt.Int("messages", len(output.Result))
			}
			evt.Msg("prompt render end")
			return ctx
		},
		OnError: func(ctx context.Context, info *einocb.RunInfo, err error) context.Context {
			logx.Error().Str("node", info.Name).Err(err).Msg("prompt render failed")
			return ctx
		},
	}
}
