package model

import "strings"

// Category is one label from the closed action vocabulary the classifier may
// emit. Anything outside the vocabulary is discarded during parsing.
type Category string

const (
	CategoryGeneral       Category = "general"
	CategoryRealtime      Category = "realtime"
	CategoryOpen          Category = "open"
	CategoryClose         Category = "close"
	CategoryPlay          Category = "play"
	CategoryGenerateImage Category = "generate image"
	CategorySystem        Category = "system"
	CategoryContent       Category = "content"
	CategoryGoogleSearch  Category = "google search"
	CategoryYoutubeSearch Category = "youtube search"
	CategoryReminder      Category = "reminder"
	CategoryExit          Category = "exit"

	// CategoryError marks the non-actionable sentinel produced on a hard
	// classification failure. It never reaches the response model.
	CategoryError Category = "error"
)

// Vocabulary lists the recognized categories longest-first, so that prefix
// matching resolves "generate image ..." before "general ...".
var Vocabulary = []Category{
	CategoryGenerateImage,
	CategoryYoutubeSearch,
	CategoryGoogleSearch,
	CategoryRealtime,
	CategoryReminder,
	CategoryGeneral,
	CategoryContent,
	CategorySystem,
	CategoryClose,
	CategoryOpen,
	CategoryPlay,
	CategoryExit,
}

// Action is one classified instruction: a category plus its free-text argument.
type Action struct {
	Category Category
	Argument string
}

func (a Action) String() string {
	if a.Argument == "" {
		return string(a.Category)
	}
	return string(a.Category) + " " + a.Argument
}

// ClassificationResult is the ordered outcome of one classifier round.
type ClassificationResult struct {
	Actions []Action
	// Ambiguous is set when the model echoed the literal "(query)"
	// placeholder instead of substituting the utterance.
	Ambiguous bool
	// Raw keeps the unparsed model reply for logging.
	Raw string
}

// IsError reports whether the result is the hard-failure sentinel.
func (r ClassificationResult) IsError() bool {
	return len(r.Actions) == 1 && r.Actions[0].Category == CategoryError
}

// HasRealtime reports whether any action requires live search grounding.
func (r ClassificationResult) HasRealtime() bool {
	return r.has(CategoryRealtime)
}

// HasGeneral reports whether any action is a plain conversational query.
func (r ClassificationResult) HasGeneral() bool {
	return r.has(CategoryGeneral)
}

// CommandsOnly reports whether every action is an actionable command that the
// response model should not answer (open, close, play, reminder, ...).
func (r ClassificationResult) CommandsOnly() bool {
	if len(r.Actions) == 0 {
		return false
	}
	for _, a := range r.Actions {
		switch a.Category {
		case CategoryGeneral, CategoryRealtime, CategoryError:
			return false
		}
	}
	return true
}

func (r ClassificationResult) has(c Category) bool {
	for _, a := range r.Actions {
		if a.Category == c {
			return true
		}
	}
	return false
}

// GeneralFallback builds the default result for utterances that matched no
// category: a single general action carrying the original utterance.
func GeneralFallback(utterance string) ClassificationResult {
	return ClassificationResult{
		Actions: []Action{{Category: CategoryGeneral, Argument: strings.TrimSpace(utterance)}},
	}
}

// ErrorSentinel builds the non-actionable error result.
func ErrorSentinel(msg string) ClassificationResult {
	return ClassificationResult{
		Actions: []Action{{Category: CategoryError, Argument: msg}},
	}
}
