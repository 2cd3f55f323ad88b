// Package analysis defines the boundary to the AI feedback backend. The
// core only knows this contract: hand over a completed session's responses
// once, get per-response feedback and aggregate trait scores back, or a
// DispatchError. Retries are a user action, never automatic.
package analysis

import (
	"context"
	"fmt"

	"github.com/arpit9377/ssb-insight-ai-sub001/internal/models"
)

// ResponseInput is one answered prompt handed to the backend.
type ResponseInput struct {
	PromptKey string `json:"promptKey"`
	Prompt    string `json:"prompt"`
	Text      string `json:"text"`
	ElapsedMs int    `json:"elapsedMs"`
}

// Request is everything the backend needs for one completed session.
type Request struct {
	OwnerKey  string
	SessionID string
	TestType  models.TestType
	Responses []ResponseInput
	// Premium selects the deeper analysis tier.
	Premium bool
}

// Feedback is the backend's comment on one response.
type Feedback struct {
	PromptKey string
	Comment   string
}

// TraitRating is one aggregate officer-like-quality score for the session.
type TraitRating struct {
	Category models.TraitCategory
	Score    float64
}

// Result is the backend's full assessment of one session.
type Result struct {
	Feedback     []Feedback
	Traits       []TraitRating
	Summary      string
	OverallScore float64
}

// Analyzer is the callable boundary. Implementations must be safe for
// concurrent use; the dispatcher invokes it once per completed session.
type Analyzer interface {
	Analyze(ctx context.Context, req Request) (*Result, error)
}

// DispatchError wraps any failure to obtain feedback for a session. The
// session stays valid and completed; only the feedback is absent.
type DispatchError struct {
	SessionID string
	Err       error
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("analysis dispatch for session %s: %v", e.SessionID, e.Err)
}

func (e *DispatchError) Unwrap() error { return e.Err }
