package prompts

import (
	"fmt"
	"time"
)

// SearchInstruction tells the response model to ground its answer in the
// attached search evidence.
func SearchInstruction(query string) string {
	return fmt.Sprintf(
		"Use the following search results to answer the question: '%s'. "+
			"Only use information from these results. If the search results don't "+
			"contain relevant information, say that you need to search for more "+
			"specific details.", query)
}

// TimeContext produces the current-time statement injected into every
// completion request.
func TimeContext(now time.Time) string {
	return "Current time: " + now.Format("Monday, January 02, 2006 15:04")
}
