package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/nova-assistant/server/internal/assistant/classify"
	"github.com/nova-assistant/server/internal/assistant/conversations"
	"github.com/nova-assistant/server/internal/assistant/model"
	"github.com/nova-assistant/server/internal/assistant/prompts"
	"github.com/nova-assistant/server/internal/assistant/search"
	logx "github.com/nova-assistant/server/pkg/logger"
)

const (
	NodeInputConverter      = "InputConverter"
	NodeClassifierChatModel = "ClassifierChatModel"
	NodeActionParser        = "ActionParser"
	NodeClassifierRetry     = "ClassifierRetry"
	NodeCommandDispatch     = "CommandDispatch"
	NodeEvidenceCollector   = "EvidenceCollector"
	NodeResponseAssembler   = "ResponseAssembler"
	NodeDegradedResponder   = "DegradedResponder"
	NodeResponseChatModel   = "ResponseChatModel"
)

const (
	apologyFailure = "I apologize, but I encountered an error. Please try again in a moment."
	apologyNoModel = "I apologize, but no completion model is available right now. Please check your API key and internet connection."
	apologyDecide  = "I apologize, but I couldn't decide how to handle that. Please try rephrasing your question."

	degradedNotice = "I'm running without a language model right now, so I can only fetch live search results. Ask me something that needs up-to-date information."

	// endOfTurnArtifact sometimes leaks from the completion backend.
	endOfTurnArtifact = "</s>"
)

// NewInputConverterPreHandler resets per-query state and records the session
// and utterance.
func NewInputConverterPreHandler() func(context.Context, model.QueryInput, *model.AppState) (model.QueryInput, error) {
	return func(ctx context.Context, in model.QueryInput, s *model.AppState) (model.QueryInput, error) {
		s.SessionID = in.SessionID
		s.Query = in.Query
		s.Classification = nil
		s.ClassifyRetries = 0
		s.Evidence = ""
		s.TotalCostUSD = 0
		return in, nil
	}
}

// NewInputConverterNode builds the classifier request from the utterance.
func NewInputConverterNode(classifierPrompt string) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, input model.QueryInput) ([]*schema.Message, error) {
		if strings.TrimSpace(input.Query) == "" {
			return nil, fmt.Errorf("empty query")
		}
		return classify.BuildMessages(classifierPrompt, input.Query), nil
	})
}

// NewClassifierPostHandler logs usage cost for the classifier model.
func NewClassifierPostHandler(modelName string) func(context.Context, *schema.Message, *model.AppState) (*schema.Message, error) {
	return func(ctx context.Context, out *schema.Message, state *model.AppState) (*schema.Message, error) {
		recordUsageCost(out, state, modelName, NodeClassifierChatModel)
		return out, nil
	}
}

// NewActionParserNode converts the raw classifier reply into a
// ClassificationResult.
func NewActionParserNode() *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, resp *schema.Message) (model.ClassificationResult, error) {
		if resp == nil {
			return model.ErrorSentinel("empty classifier reply"), nil
		}
		if msg, ok := resp.Extra[extraClassifierError].(string); ok {
			return model.ErrorSentinel(msg), nil
		}

		var query string
		err := compose.ProcessState(ctx, func(_ context.Context, state *model.AppState) error {
			query = state.Query
			return nil
		})
		if err != nil {
			return model.ClassificationResult{}, fmt.Errorf("failed to access state: %w", err)
		}

		return classify.ParseReply(resp.Content, query), nil
	})
}

// NewActionParserPostHandler stores the result in state and enforces the
// ambiguity retry budget: once exhausted, the utterance defaults to general.
func NewActionParserPostHandler(maxRetries int) func(context.Context, model.ClassificationResult, *model.AppState) (model.ClassificationResult, error) {
	return func(ctx context.Context, out model.ClassificationResult, state *model.AppState) (model.ClassificationResult, error) {
		if out.Ambiguous {
			if state.ClassifyRetries >= maxRetries {
				logx.Warn().
					Str("session_id", state.SessionID).
					Int("retries", state.ClassifyRetries).
					Msg("classifier still ambiguous after retries, defaulting to general")
				out = model.GeneralFallback(state.Query)
			} else {
				state.ClassifyRetries++
			}
		}
		result := out
		state.Classification = &result
		return out, nil
	}
}

// NewRouteCondition routes the parsed classification: re-ask on ambiguity,
// direct reply for command-only or sentinel results, the evidence path for
// realtime queries, the plain conversational path otherwise.
func NewRouteCondition() func(context.Context, model.ClassificationResult) (string, error) {
	return func(ctx context.Context, in model.ClassificationResult) (string, error) {
		switch {
		case in.Ambiguous:
			return NodeClassifierRetry, nil
		case in.IsError() || in.CommandsOnly():
			return NodeCommandDispatch, nil
		case in.HasRealtime():
			return NodeEvidenceCollector, nil
		default:
			return NodeResponseAssembler, nil
		}
	}
}

// NewClassifierRetryNode rebuilds the classifier request for one more round.
func NewClassifierRetryNode(classifierPrompt string) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, _ model.ClassificationResult) ([]*schema.Message, error) {
		var query string
		err := compose.ProcessState(ctx, func(_ context.Context, state *model.AppState) error {
			query = state.Query
			logx.Debug().Str("session_id", state.SessionID).Msg("re-asking classifier after placeholder echo")
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to access state: %w", err)
		}
		return classify.BuildMessages(classifierPrompt, query), nil
	})
}

// NewCommandDispatchNode surfaces the recognized actions without invoking the
// response model. Automation of the actions is a downstream concern. It also
// turns the classifier's hard-failure sentinel into a user-facing apology.
func NewCommandDispatchNode() *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, in model.ClassificationResult) (*schema.Message, error) {
		if in.IsError() {
			logx.Error().Str("detail", in.Actions[0].Argument).Msg("classification failed")
			return schema.AssistantMessage(apologyDecide, nil), nil
		}

		parts := make([]string, 0, len(in.Actions))
		for _, a := range in.Actions {
			parts = append(parts, a.String())
		}
		return schema.AssistantMessage(strings.Join(parts, ", "), nil), nil
	})
}

// NewEvidenceCollectorNode runs the search engine for realtime queries and
// stashes the evidence in state. Search never fails; an apologetic string is
// evidence too.
func NewEvidenceCollectorNode(engine *search.Engine) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, in model.ClassificationResult) (model.ClassificationResult, error) {
		var query string
		err := compose.ProcessState(ctx, func(_ context.Context, state *model.AppState) error {
			query = state.Query
			return nil
		})
		if err != nil {
			return in, fmt.Errorf("failed to access state: %w", err)
		}

		evidence := engine.Search(ctx, query)

		err = compose.ProcessState(ctx, func(_ context.Context, state *model.AppState) error {
			state.Evidence = evidence
			return nil
		})
		if err != nil {
			return in, fmt.Errorf("failed to access state: %w", err)
		}
		return in, nil
	})
}

// NewResponseAssemblerNode saves the user turn and assembles the completion
// request: persona, optional evidence block, time context, then the recent
// window (tight when evidence is present).
func NewResponseAssemblerNode(mm *conversations.Manager, personaPrompt string, now func() time.Time) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, _ model.ClassificationResult) ([]*schema.Message, error) {
		var sessionID, query, evidence string
		err := compose.ProcessState(ctx, func(_ context.Context, state *model.AppState) error {
			sessionID = state.SessionID
			query = state.Query
			evidence = state.Evidence
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to access state: %w", err)
		}

		if err := mm.SaveUserMessage(ctx, sessionID, query); err != nil {
			return nil, fmt.Errorf("save user turn: %w", err)
		}

		messages := []*schema.Message{schema.SystemMessage(personaPrompt)}

		var turns []*schema.Message
		if evidence != "" {
			messages = append(messages,
				schema.SystemMessage(prompts.SearchInstruction(query)),
				schema.SystemMessage(evidence),
			)
			if turns, err = mm.RecentSearchTurns(ctx, sessionID); err != nil {
				return nil, fmt.Errorf("load search window: %w", err)
			}
		} else {
			if turns, err = mm.RecentChatTurns(ctx, sessionID); err != nil {
				return nil, fmt.Errorf("load chat window: %w", err)
			}
		}

		messages = append(messages, schema.SystemMessage(prompts.TimeContext(now())))
		messages = append(messages, turns...)
		return messages, nil
	})
}

// NewAvailabilityCondition routes to the degraded responder when no
// completion backend is reachable.
func NewAvailabilityCondition() func(context.Context, []*schema.Message) (string, error) {
	return func(ctx context.Context, _ []*schema.Message) (string, error) {
		var availability model.Availability
		err := compose.ProcessState(ctx, func(_ context.Context, state *model.AppState) error {
			availability = state.Availability
			return nil
		})
		if err != nil {
			return "", fmt.Errorf("failed to access state: %w", err)
		}
		if availability == model.AvailabilityDegraded {
			return NodeDegradedResponder, nil
		}
		return NodeResponseChatModel, nil
	}
}

// NewDegradedResponderNode answers with the raw evidence text when the
// completion capability is unavailable, still recording an assistant turn.
func NewDegradedResponderNode(mm *conversations.Manager) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, _ []*schema.Message) (*schema.Message, error) {
		var sessionID, evidence string
		err := compose.ProcessState(ctx, func(_ context.Context, state *model.AppState) error {
			sessionID = state.SessionID
			evidence = state.Evidence
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to access state: %w", err)
		}

		content := answerModifier(evidence)
		if content == "" {
			content = degradedNotice
		}

		if err := mm.SaveAssistantMessage(ctx, sessionID, content); err != nil {
			logx.Error().Str("session_id", sessionID).Err(err).Msg("failed to save degraded response")
		}
		return schema.AssistantMessage(content, nil), nil
	})
}

// NewResponseChatModelPostHandler cleans the reply, logs usage cost and
// persists the assistant turn.
func NewResponseChatModelPostHandler(mm *conversations.Manager, modelName string) func(context.Context, *schema.Message, *model.AppState) (*schema.Message, error) {
	return func(ctx context.Context, out *schema.Message, state *model.AppState) (*schema.Message, error) {
		recordUsageCost(out, state, modelName, NodeResponseChatModel)

		if out == nil {
			return nil, fmt.Errorf("response model returned nil message")
		}
		out.Content = answerModifier(strings.ReplaceAll(out.Content, endOfTurnArtifact, ""))

		if strings.TrimSpace(out.Content) != "" {
			if err := mm.SaveAssistantMessage(ctx, state.SessionID, out.Content); err != nil {
				logx.Error().Str("session_id", state.SessionID).Err(err).Msg("failed to save assistant response")
			}
		}
		return out, nil
	}
}

// answerModifier collapses blank lines; presentation only.
func answerModifier(answer string) string {
	if answer == "" {
		return ""
	}
	lines := strings.Split(answer, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if strings.TrimSpace(line) != "" {
			kept = append(kept, line)
		}
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}

// recordUsageCost computes and logs per-call model cost, accumulating the
// running total in state.
func recordUsageCost(out *schema.Message, state *model.AppState, modelName, node string) {
	if !model.CostEnabled() || out == nil || out.ResponseMeta == nil || out.ResponseMeta.Usage == nil {
		return
	}
	pricing := model.ResolvePricing(modelName)
	inC, outC, totalC := model.ComputeCost(out.ResponseMeta.Usage, pricing)
	state.TotalCostUSD += totalC

	logx.Debug().
		Str("session_id", state.SessionID).
		Str("node", node).
		Str("model", modelName).
		Int("prompt_tokens", out.ResponseMeta.Usage.PromptTokens).
		Int("completion_tokens", out.ResponseMeta.Usage.CompletionTokens).
		Float64("input_cost_usd", inC).
		Float64("output_cost_usd", outC).
		Float64("total_cost_usd", state.TotalCostUSD).
		Msg("LLM usage")
}
