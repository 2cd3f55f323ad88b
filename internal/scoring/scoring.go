// Package scoring computes summary statistics over a session's responses
// and aggregates trait ratings into a session score.
package scoring

import (
	"math"
	"strings"

	"github.com/arpit9377/ssb-insight-ai-sub001/internal/analysis"
	"github.com/arpit9377/ssb-insight-ai-sub001/internal/models"
)

// ResponseStats summarizes how a candidate worked through a session.
type ResponseStats struct {
	Answered       int     `json:"answered"`
	PromptCount    int     `json:"promptCount"`
	CompletionRate float64 `json:"completionRate"`
	MeanElapsedMs  float64 `json:"meanElapsedMs"`
	ElapsedSDMs    float64 `json:"elapsedSdMs"`
	MeanWords      float64 `json:"meanWords"`
}

// ComputeResponseStats derives the stats for one session's responses.
func ComputeResponseStats(responses []models.Response, promptCount int) ResponseStats {
	stats := ResponseStats{
		Answered:    len(responses),
		PromptCount: promptCount,
	}
	if promptCount > 0 {
		stats.CompletionRate = float64(len(responses)) / float64(promptCount)
	}
	if len(responses) == 0 {
		return stats
	}

	var elapsedSum, wordSum float64
	for _, r := range responses {
		elapsedSum += float64(r.ElapsedMs)
		wordSum += float64(len(strings.Fields(r.Text)))
	}
	stats.MeanElapsedMs = elapsedSum / float64(len(responses))
	stats.MeanWords = wordSum / float64(len(responses))
	stats.ElapsedSDMs = elapsedStdDev(responses, stats.MeanElapsedMs)
	return stats
}

func elapsedStdDev(responses []models.Response, mean float64) float64 {
	if len(responses) < 2 {
		return 0
	}
	var sumSquares float64
	for _, r := range responses {
		diff := float64(r.ElapsedMs) - mean
		sumSquares += diff * diff
	}
	return math.Sqrt(sumSquares / float64(len(responses)-1))
}

// AggregateTraits averages the backend's trait ratings into one session
// score. When the backend already supplied an overall score that wins;
// this is the fallback for partial results.
func AggregateTraits(traits []analysis.TraitRating) float64 {
	if len(traits) == 0 {
		return 0
	}
	var sum float64
	for _, t := range traits {
		sum += t.Score
	}
	return sum / float64(len(traits))
}
