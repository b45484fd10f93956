// Package pipeline sequences interpretation, retrieval, filtering,
// persistence and the staged reasoning calls behind a single result
// envelope. The envelope is the only type the pipeline boundary exposes;
// every run ends in exactly one of its terminal states.
package pipeline

import (
	"github.com/rahulvdev/betedge/internal/canonical"
	"github.com/rahulvdev/betedge/internal/matchcontext"
	"github.com/rahulvdev/betedge/internal/odds"
)

// Status is the terminal state of a pipeline run.
type Status string

const (
	// StatusOK ends a run with a usable payload.
	StatusOK Status = "ok"
	// StatusQueryError means the free-text request could not be turned
	// into a valid structured intent. Nothing was fetched or written.
	StatusQueryError Status = "query_error"
	// StatusNoMatches means the intent was valid but yielded no events,
	// either upstream or after the team filter. The message distinguishes
	// the two cases.
	StatusNoMatches Status = "no_matches"
	// StatusError is reserved for deep analysis invoked without an event.
	StatusError Status = "error"
)

// Envelope is the tagged result of a pipeline run. Fields beyond RunID,
// Status and Message are populated per state: Intent on every post-interpret
// state, Matches and the stored/failed counts on ok, Analysis only from
// RunDeepAnalysis.
type Envelope struct {
	RunID   string `json:"run_id"`
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`

	Query   string            `json:"query,omitempty"`
	Intent  *StructuredIntent `json:"structured_query,omitempty"`
	Matches []canonical.Event `json:"filtered_matches,omitempty"`
	Odds    *odds.Board       `json:"odds,omitempty"`

	StoredCount int `json:"stored_count"`
	FailedCount int `json:"failed_count"`

	Analysis *Analysis `json:"analysis,omitempty"`
}

// Analysis carries the five reasoning-stage outputs of a deep-analysis run.
type Analysis struct {
	Event          canonical.Event     `json:"match"`
	Context        matchcontext.Bundle `json:"context"`
	Prediction     Prediction          `json:"prediction"`
	Verification   Verification        `json:"verification"`
	Action         ActionTag           `json:"action"`
	Recommendation string              `json:"recommendation"`
	Ethics         EthicsResult        `json:"ethics"`
}
