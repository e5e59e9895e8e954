package pipeline

import (
	"context"
	"fmt"
	"testing"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nova-assistant/server/internal/assistant/model"
)

func TestAnswerModifier(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"single line", "single line"},
		{"first\n\n\nsecond", "first\nsecond"},
		{"\n\n  \nonly\n\n", "only"},
		{"a\nb\nc", "a\nb\nc"},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, answerModifier(tc.in), "in=%q", tc.in)
	}
}

func TestRouteCondition(t *testing.T) {
	cond := NewRouteCondition()

	tests := []struct {
		name string
		in   model.ClassificationResult
		want string
	}{
		{
			name: "ambiguous result re-asks",
			in:   model.ClassificationResult{Ambiguous: true},
			want: NodeClassifierRetry,
		},
		{
			name: "error sentinel short-circuits",
			in:   model.ErrorSentinel("boom"),
			want: NodeCommandDispatch,
		},
		{
			name: "commands only skip the response model",
			in: model.ClassificationResult{Actions: []model.Action{
				{Category: model.CategoryOpen, Argument: "chrome"},
				{Category: model.CategoryPlay, Argument: "jazz"},
			}},
			want: NodeCommandDispatch,
		},
		{
			name: "realtime goes through evidence collection",
			in: model.ClassificationResult{Actions: []model.Action{
				{Category: model.CategoryRealtime, Argument: "bitcoin price"},
			}},
			want: NodeEvidenceCollector,
		},
		{
			name: "mixed realtime and general prefers evidence",
			in: model.ClassificationResult{Actions: []model.Action{
				{Category: model.CategoryGeneral, Argument: "hi"},
				{Category: model.CategoryRealtime, Argument: "news"},
			}},
			want: NodeEvidenceCollector,
		},
		{
			name: "general goes straight to assembly",
			in:   model.GeneralFallback("how are you"),
			want: NodeResponseAssembler,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := cond(context.Background(), tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestActionParserPostHandlerRetryBudget(t *testing.T) {
	handler := NewActionParserPostHandler(1)
	state := &model.AppState{SessionID: "s1", Query: "hmm"}
	ambiguous := model.ClassificationResult{Ambiguous: true, Raw: "general (query)"}

	// Below the cap: counter advances, result stays ambiguous for the re-ask.
	out, err := handler(context.Background(), ambiguous, state)
	require.NoError(t, err)
	assert.True(t, out.Ambiguous)
	assert.Equal(t, 1, state.ClassifyRetries)

	// Budget exhausted: the utterance defaults to general, ambiguity cleared.
	out, err = handler(context.Background(), ambiguous, state)
	require.NoError(t, err)
	assert.False(t, out.Ambiguous)
	require.Len(t, out.Actions, 1)
	assert.Equal(t, model.CategoryGeneral, out.Actions[0].Category)
	assert.Equal(t, "hmm", out.Actions[0].Argument)
	assert.Equal(t, 1, state.ClassifyRetries)

	require.NotNil(t, state.Classification)
	assert.False(t, state.Classification.Ambiguous)
}

func TestActionParserPostHandlerUnambiguousPassesThrough(t *testing.T) {
	handler := NewActionParserPostHandler(1)
	state := &model.AppState{SessionID: "s1", Query: "open chrome"}
	in := model.ClassificationResult{Actions: []model.Action{
		{Category: model.CategoryOpen, Argument: "chrome"},
	}}

	out, err := handler(context.Background(), in, state)

	require.NoError(t, err)
	assert.Equal(t, in, out)
	assert.Zero(t, state.ClassifyRetries)
	require.NotNil(t, state.Classification)
	assert.Equal(t, in, *state.Classification)
}

type failingChatModel struct{}

func (failingChatModel) Generate(context.Context, []*schema.Message, ...einomodel.Option) (*schema.Message, error) {
	return nil, fmt.Errorf("connection refused")
}

func (failingChatModel) Stream(context.Context, []*schema.Message, ...einomodel.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, fmt.Errorf("connection refused")
}

func TestResilientChatModelConvertsErrorToSentinel(t *testing.T) {
	c := resilientChatModel{inner: failingChatModel{}}

	out, err := c.Generate(context.Background(), []*schema.Message{schema.UserMessage("hi")})

	require.NoError(t, err)
	require.NotNil(t, out)
	detail, ok := out.Extra[extraClassifierError].(string)
	require.True(t, ok)
	assert.Contains(t, detail, "connection refused")
}

func TestDegradedClassifierRoutesToRealtime(t *testing.T) {
	c := degradedClassifier{}

	out, err := c.Generate(context.Background(), []*schema.Message{
		schema.SystemMessage("instructions"),
		schema.UserMessage("  bitcoin price today  "),
	})

	require.NoError(t, err)
	assert.Equal(t, "realtime bitcoin price today", out.Content)
}
