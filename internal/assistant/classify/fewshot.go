package classify

import (
	"github.com/cloudwego/eino/schema"
)

// fewShot is the fixed example history establishing the classifier's reply
// grammar, including multi-action decomposition and mixed general+reminder
// utterances.
var fewShot = []*schema.Message{
	schema.UserMessage("how are you?"),
	schema.AssistantMessage("general how are you?", nil),
	schema.UserMessage("do you like pizza?"),
	schema.AssistantMessage("general do you like pizza?", nil),
	schema.UserMessage("open chrome and tell me about mahatma gandhi"),
	schema.AssistantMessage("open chrome, general tell me about mahatma gandhi", nil),
	schema.UserMessage("open chrome and firefox"),
	schema.AssistantMessage("open chrome, open firefox", nil),
	schema.UserMessage("what is today's date and by the way remind me that i have dancing performance on 5th aug at 11pm"),
	schema.AssistantMessage("general what is today's date, reminder 11pm 5th aug dancing performance", nil),
	schema.UserMessage("chat with me"),
	schema.AssistantMessage("general chat with me", nil),
}

// BuildMessages assembles the classifier request: instructional system
// prompt, the few-shot history, then the utterance under classification.
func BuildMessages(systemPrompt, utterance string) []*schema.Message {
	msgs := make([]*schema.Message, 0, len(fewShot)+2)
	msgs = append(msgs, schema.SystemMessage(systemPrompt))
	msgs = append(msgs, fewShot...)
	msgs = append(msgs, schema.UserMessage(utterance))
	return msgs
}
