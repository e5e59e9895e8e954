package pipeline

import (
	"context"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	logx "github.com/nova-assistant/server/pkg/logger"
)

// extraClassifierError marks a classifier reply that stands in for a failed
// model call. The parser turns it into an error sentinel so the graph keeps
// running instead of aborting.
const extraClassifierError = "classifier_error"

// resilientChatModel wraps the classifier model so that call failures become
// in-band sentinel messages rather than graph errors.
type resilientChatModel struct {
	inner einomodel.BaseChatModel
}

var _ einomodel.BaseChatModel = resilientChatModel{}

func (r resilientChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.Message, error) {
	out, err := r.inner.Generate(ctx, input, opts...)
	if err != nil {
		logx.Error().Err(err).Msg("classifier model call failed, continuing with sentinel")
		return classifierErrorMessage(err), nil
	}
	return out, nil
}

func (r resilientChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.StreamReader[*schema.Message], error) {
	out, err := r.inner.Stream(ctx, input, opts...)
	if err != nil {
		logx.Error().Err(err).Msg("classifier model stream failed, continuing with sentinel")
		return schema.StreamReaderFromArray([]*schema.Message{classifierErrorMessage(err)}), nil
	}
	return out, nil
}

func classifierErrorMessage(err error) *schema.Message {
	return &schema.Message{
		Role:  schema.Assistant,
		Extra: map[string]any{extraClassifierError: err.Error()},
	}
}

// degradedClassifier routes every utterance down the realtime path when no
// completion backend is configured, so the assistant can still surface live
// search results.
type degradedClassifier struct{}

var _ einomodel.BaseChatModel = degradedClassifier{}

func (degradedClassifier) Generate(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.Message, error) {
	query := ""
	for i := len(input) - 1; i >= 0; i-- {
		if input[i] != nil && input[i].Role == schema.User {
			query = strings.TrimSpace(input[i].Content)
			break
		}
	}
	return schema.AssistantMessage("realtime "+query, nil), nil
}

func (d degradedClassifier) Stream(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := d.Generate(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

// unavailableChatModel fills the response model slot in degraded mode. The
// availability branch keeps it off every path; reaching it is a wiring bug.
type unavailableChatModel struct{}

var _ einomodel.BaseChatModel = unavailableChatModel{}

func (unavailableChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.Message, error) {
	return nil, fmt.Errorf("completion backend not configured")
}

func (unavailableChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, fmt.Errorf("completion backend not configured")
}
