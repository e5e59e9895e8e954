package model

// Availability is the completion-capability state, probed once at startup and
// checked once per request. Degraded mode answers with raw evidence instead
// of a model completion.
type Availability int

const (
	AvailabilityReady Availability = iota
	AvailabilityDegraded
)

func (a Availability) String() string {
	if a == AvailabilityDegraded {
		return "degraded"
	}
	return "ready"
}

// AppState stores per-invocation state for the pipeline graph.
// All reads/writes happen only inside graph state handlers
// (WithStatePreHandler, WithStatePostHandler, compose.ProcessState), which
// the graph serializes, so no mutex is required.
type AppState struct {
	SessionID string
	Query     string

	Classification  *ClassificationResult // set by the parser post-handler
	ClassifyRetries int                   // bounded re-asks on ambiguous replies
	Evidence        string                // set by the evidence collector
	Availability    Availability          // fixed at build time

	// Accumulated LLM cost (USD) across model invocations for this query.
	TotalCostUSD float64
}

// QueryInput is the public input for one pipeline invocation.
type QueryInput struct {
	SessionID string `json:"session_id"`
	Query     string `json:"query"`
}
