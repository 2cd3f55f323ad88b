package models

import (
	"time"

	"github.com/lib/pq"
)

// SessionStatus is the lifecycle state of a TestSession. There are only two:
// a session is either being worked through or it is done. Completed is
// terminal; nothing moves a session back.
type SessionStatus string

const (
	StatusInProgress SessionStatus = "in_progress"
	StatusCompleted  SessionStatus = "completed"
)

// AnalysisStatus tracks the AI feedback lifecycle for a completed session.
// A session stays completed whatever happens here.
type AnalysisStatus string

const (
	AnalysisNone     AnalysisStatus = ""
	AnalysisPending  AnalysisStatus = "pending"
	AnalysisComplete AnalysisStatus = "complete"
	AnalysisFailed   AnalysisStatus = "failed"
)

// TestSession is one run through a test: an owner, a shuffled order of
// prompts drawn from the content bank, and a cursor into that order.
// CurrentIndex only ever moves forward and is bounded by [0, len(PromptOrder)];
// Status flips to completed exactly when the cursor reaches the end.
type TestSession struct {
	ID             string `gorm:"primaryKey"`
	OwnerKey       string `gorm:"index"`
	TestType       TestType
	PromptOrder    pq.Int64Array `gorm:"type:integer[]"`
	CurrentIndex   int
	Status         SessionStatus
	AnalysisStatus AnalysisStatus
	OverallScore   float64
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// PromptCount returns the number of prompts in this session.
func (s *TestSession) PromptCount() int {
	return len(s.PromptOrder)
}

// CurrentPromptKey returns the identifier of the prompt the cursor points at.
// ok is false once the session is past its last prompt.
func (s *TestSession) CurrentPromptKey() (string, bool) {
	if s.CurrentIndex < 0 || s.CurrentIndex >= len(s.PromptOrder) {
		return "", false
	}
	return PromptKey(s.TestType, s.PromptOrder[s.CurrentIndex]), true
}

// Response is one answer inside a session. At most one row exists per
// (session, prompt) pair; re-submission overwrites. Feedback and trait
// scores arrive later, from the analysis backend.
type Response struct {
	ID        uint   `gorm:"primaryKey"`
	SessionID string `gorm:"index"`
	PromptKey string
	Text      string `gorm:"type:text"`
	ElapsedMs int
	Feedback  string `gorm:"type:text"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TraitScore is one aggregate trait rating for a completed session,
// produced by the analysis backend.
type TraitScore struct {
	ID        uint   `gorm:"primaryKey"`
	SessionID string `gorm:"index"`
	Category  TraitCategory
	Score     float64
	CreatedAt time.Time
}
