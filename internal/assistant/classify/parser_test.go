package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nova-assistant/server/internal/assistant/model"
)

func TestParseReplySingleAction(t *testing.T) {
	res := ParseReply("general how are you", "how are you")

	require.Len(t, res.Actions, 1)
	assert.Equal(t, model.CategoryGeneral, res.Actions[0].Category)
	assert.Equal(t, "how are you", res.Actions[0].Argument)
	assert.False(t, res.Ambiguous)
	assert.True(t, res.HasGeneral())
}

func TestParseReplyMultipleActionsKeepOrder(t *testing.T) {
	res := ParseReply("open chrome, open firefox", "open chrome and firefox")

	require.Len(t, res.Actions, 2)
	assert.Equal(t, model.CategoryOpen, res.Actions[0].Category)
	assert.Equal(t, "chrome", res.Actions[0].Argument)
	assert.Equal(t, model.CategoryOpen, res.Actions[1].Category)
	assert.Equal(t, "firefox", res.Actions[1].Argument)
	assert.True(t, res.CommandsOnly())
}

func TestParseReplyDiscardsUnknownPieces(t *testing.T) {
	res := ParseReply("sure! here you go, open notepad", "open notepad")

	require.Len(t, res.Actions, 1)
	assert.Equal(t, model.CategoryOpen, res.Actions[0].Category)
	assert.Equal(t, "notepad", res.Actions[0].Argument)
}

func TestParseReplyLongestCategoryWins(t *testing.T) {
	res := ParseReply("generate image a red fox", "draw a red fox")

	require.Len(t, res.Actions, 1)
	assert.Equal(t, model.CategoryGenerateImage, res.Actions[0].Category)
	assert.Equal(t, "a red fox", res.Actions[0].Argument)
}

func TestParseReplyPlaceholderIsAmbiguous(t *testing.T) {
	res := ParseReply("general (query)", "hmm")

	assert.True(t, res.Ambiguous)
}

func TestParseReplyEmptyFallsBackToGeneral(t *testing.T) {
	for _, raw := range []string{"", "   ", "I cannot classify that."} {
		res := ParseReply(raw, "whats up")

		require.Len(t, res.Actions, 1, "raw=%q", raw)
		assert.Equal(t, model.CategoryGeneral, res.Actions[0].Category)
		assert.Equal(t, "whats up", res.Actions[0].Argument)
		assert.False(t, res.Ambiguous)
	}
}

func TestParseReplyStripsNewlines(t *testing.T) {
	res := ParseReply("realtime who won the\n match today", "who won the match today")

	require.Len(t, res.Actions, 1)
	assert.Equal(t, model.CategoryRealtime, res.Actions[0].Category)
	assert.True(t, res.HasRealtime())
}

func TestParseReplyMixedRealtimeAndCommand(t *testing.T) {
	res := ParseReply("open chrome, realtime bitcoin price", "open chrome and tell me the bitcoin price")

	require.Len(t, res.Actions, 2)
	assert.True(t, res.HasRealtime())
	assert.False(t, res.CommandsOnly())
}

func TestBuildMessagesShape(t *testing.T) {
	msgs := BuildMessages("system prompt", "hello there")

	require.NotEmpty(t, msgs)
	assert.Equal(t, "system prompt", msgs[0].Content)
	last := msgs[len(msgs)-1]
	assert.Equal(t, "hello there", last.Content)
}
