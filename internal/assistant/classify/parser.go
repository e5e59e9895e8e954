package classify

import (
	"strings"

	"github.com/nova-assistant/server/internal/assistant/model"
)

// placeholderMarker is the literal token an ambiguous reply echoes back
// instead of substituting the actual utterance.
const placeholderMarker = "(query)"

// ParseReply converts a raw classifier reply into a ClassificationResult.
// The reply grammar is comma-joined "category (argument)" pieces; pieces not
// starting with a vocabulary category are discarded, in left-to-right order.
// An empty filtered set defaults to a single general action carrying the
// utterance. Replies echoing the "(query)" placeholder are flagged ambiguous
// so the caller can re-ask within its retry budget.
func ParseReply(raw, utterance string) model.ClassificationResult {
	flat := strings.ReplaceAll(raw, "\n", "")

	var actions []model.Action
	ambiguous := false
	for _, piece := range strings.Split(flat, ",") {
		piece = strings.TrimSpace(piece)
		if piece == "" {
			continue
		}
		action, ok := parseAction(piece)
		if !ok {
			continue
		}
		if strings.Contains(strings.ToLower(piece), placeholderMarker) {
			ambiguous = true
		}
		actions = append(actions, action)
	}

	if ambiguous {
		return model.ClassificationResult{Actions: actions, Ambiguous: true, Raw: raw}
	}
	if len(actions) == 0 {
		return model.GeneralFallback(utterance)
	}
	return model.ClassificationResult{Actions: actions, Raw: raw}
}

// parseAction matches the longest category prefix and takes the remainder as
// the argument, unwrapping one level of surrounding parentheses.
func parseAction(piece string) (model.Action, bool) {
	lower := strings.ToLower(piece)
	for _, cat := range model.Vocabulary {
		if !strings.HasPrefix(lower, string(cat)) {
			continue
		}
		arg := strings.TrimSpace(piece[len(cat):])
		if strings.HasPrefix(arg, "(") && strings.HasSuffix(arg, ")") && len(arg) >= 2 {
			arg = strings.TrimSpace(arg[1 : len(arg)-1])
		}
		return model.Action{Category: cat, Argument: arg}, true
	}
	return model.Action{}, false
}
