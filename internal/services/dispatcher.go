package services

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/arpit9377/ssb-insight-ai-sub001/internal/analysis"
	"github.com/arpit9377/ssb-insight-ai-sub001/internal/models"
	"github.com/arpit9377/ssb-insight-ai-sub001/internal/repository"
	"github.com/arpit9377/ssb-insight-ai-sub001/internal/scoring"

	"go.uber.org/zap"
)

// Dispatcher hands completed sessions to the analysis backend and persists
// what comes back. One dispatch per completion; failures leave the session
// completed with feedback absent, and the user retries from the results
// view. No automatic retry: a silent retry could double-bill a premium
// analysis.
type Dispatcher struct {
	log      *zap.Logger
	analyzer analysis.Analyzer
	content  *models.Content
	timeout  time.Duration
}

func NewDispatcher(log *zap.Logger, analyzer analysis.Analyzer, content *models.Content, timeout time.Duration) *Dispatcher {
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &Dispatcher{log: log, analyzer: analyzer, content: content, timeout: timeout}
}

// Dispatch runs the analysis in the background and returns immediately.
func (d *Dispatcher) Dispatch(s *models.TestSession, premium bool) {
	go d.run(s, premium)
}

// Retry re-dispatches a completed session whose feedback is absent. The
// analysis backend treats a session re-run as idempotent: results simply
// overwrite.
func (d *Dispatcher) Retry(s *models.TestSession, premium bool) {
	go d.run(s, premium)
}

func (d *Dispatcher) run(s *models.TestSession, premium bool) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	if err := repository.SetAnalysisStatus(ctx, s.ID, models.AnalysisPending, 0); err != nil {
		d.log.Error("Failed to mark analysis pending", zap.String("session", s.ID), zap.Error(err))
	}

	responses, err := repository.ResponsesForSession(ctx, s.ID)
	if err != nil {
		d.fail(ctx, s.ID, err)
		return
	}

	req := analysis.Request{
		OwnerKey:  s.OwnerKey,
		SessionID: s.ID,
		TestType:  s.TestType,
		Premium:   premium,
	}
	for _, r := range responses {
		input := analysis.ResponseInput{
			PromptKey: r.PromptKey,
			Text:      r.Text,
			ElapsedMs: r.ElapsedMs,
		}
		if prompt, ok := promptForKey(d.content, s.TestType, r.PromptKey); ok {
			input.Prompt = prompt.Text
		}
		req.Responses = append(req.Responses, input)
	}

	result, err := d.analyzer.Analyze(ctx, req)
	if err != nil {
		d.fail(ctx, s.ID, err)
		return
	}

	for _, fb := range result.Feedback {
		if err := repository.AttachFeedback(ctx, s.ID, fb.PromptKey, fb.Comment); err != nil {
			d.log.Error("Failed to attach feedback",
				zap.String("session", s.ID),
				zap.String("prompt", fb.PromptKey),
				zap.Error(err),
			)
		}
	}

	traitRows := make([]models.TraitScore, 0, len(result.Traits))
	for _, tr := range result.Traits {
		traitRows = append(traitRows, models.TraitScore{
			SessionID: s.ID,
			Category:  tr.Category,
			Score:     tr.Score,
		})
	}
	if err := repository.SaveTraitScores(ctx, s.ID, traitRows); err != nil {
		d.fail(ctx, s.ID, err)
		return
	}

	overall := result.OverallScore
	if overall == 0 {
		overall = scoring.AggregateTraits(result.Traits)
	}
	if err := repository.SetAnalysisStatus(ctx, s.ID, models.AnalysisComplete, overall); err != nil {
		d.log.Error("Failed to mark analysis complete", zap.String("session", s.ID), zap.Error(err))
		return
	}

	d.log.Info("Analysis completed",
		zap.String("session", s.ID),
		zap.Float64("overall_score", overall),
		zap.Bool("premium", premium),
	)
}

func (d *Dispatcher) fail(ctx context.Context, sessionID string, err error) {
	d.log.Error("Analysis dispatch failed", zap.String("session", sessionID), zap.Error(err))
	if err := repository.SetAnalysisStatus(ctx, sessionID, models.AnalysisFailed, 0); err != nil {
		d.log.Error("Failed to mark analysis failed", zap.String("session", sessionID), zap.Error(err))
	}
}

// promptForKey resolves a stored prompt key back to its bank prompt.
func promptForKey(content *models.Content, t models.TestType, promptKey string) (models.Prompt, bool) {
	sep := strings.LastIndex(promptKey, "-")
	if sep < 0 {
		return models.Prompt{}, false
	}
	bankIndex, err := strconv.ParseInt(promptKey[sep+1:], 10, 64)
	if err != nil {
		return models.Prompt{}, false
	}
	return content.PromptAt(t, bankIndex)
}
