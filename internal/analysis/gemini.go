package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/arpit9377/ssb-insight-ai-sub001/internal/config"
	"github.com/arpit9377/ssb-insight-ai-sub001/internal/models"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

// Gemini is the production Analyzer, backed by the Gemini API. Free
// sessions go to the fast model, premium sessions to the deeper one.
type Gemini struct {
	log          *zap.Logger
	client       *genai.Client
	model        string
	premiumModel string
}

func NewGemini(ctx context.Context, log *zap.Logger, cfg config.AnalysisConfig) (*Gemini, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("analysis API key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: cfg.APIKey})
	if err != nil {
		return nil, fmt.Errorf("failed to create analysis client: %w", err)
	}

	return &Gemini{
		log:          log,
		client:       client,
		model:        cfg.Model,
		premiumModel: cfg.PremiumModel,
	}, nil
}

// geminiAssessment is the JSON shape the model is instructed to return.
type geminiAssessment struct {
	Responses []struct {
		PromptKey string `json:"prompt_key"`
		Comment   string `json:"comment"`
	} `json:"responses"`
	Traits []struct {
		Category string  `json:"category"`
		Score    float64 `json:"score"`
	} `json:"traits"`
	Summary      string  `json:"summary"`
	OverallScore float64 `json:"overall_score"`
}

func (g *Gemini) Analyze(ctx context.Context, req Request) (*Result, error) {
	model := g.model
	if req.Premium {
		model = g.premiumModel
	}

	contents := []*genai.Content{
		genai.NewContentFromText(buildPrompt(req), genai.RoleUser),
	}
	resp, err := g.client.Models.GenerateContent(ctx, model, contents, &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	})
	if err != nil {
		return nil, &DispatchError{SessionID: req.SessionID, Err: err}
	}

	var assessment geminiAssessment
	if err := json.Unmarshal([]byte(resp.Text()), &assessment); err != nil {
		return nil, &DispatchError{SessionID: req.SessionID, Err: fmt.Errorf("malformed assessment: %w", err)}
	}

	result := &Result{
		Summary:      assessment.Summary,
		OverallScore: assessment.OverallScore,
	}
	for _, r := range assessment.Responses {
		result.Feedback = append(result.Feedback, Feedback{PromptKey: r.PromptKey, Comment: r.Comment})
	}
	for _, tr := range assessment.Traits {
		category, err := models.ParseTraitCategory(tr.Category)
		if err != nil {
			// The trait set is closed; anything outside it is dropped loudly.
			g.log.Warn("Analysis returned unknown trait category",
				zap.String("session", req.SessionID),
				zap.String("category", tr.Category),
			)
			continue
		}
		result.Traits = append(result.Traits, TraitRating{Category: category, Score: tr.Score})
	}
	return result, nil
}

// buildPrompt renders the session into the assessment instruction.
func buildPrompt(req Request) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are an SSB psychological assessor. Evaluate the candidate's %s responses below.\n", testTypeLabel(req.TestType))
	b.WriteString("Return JSON with fields: responses (array of {prompt_key, comment}), ")
	b.WriteString("traits (array of {category, score} where category is one of ")
	for i, t := range models.AllTraitCategories() {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%q", t.String())
	}
	b.WriteString(" and score is 1-10), summary (string), overall_score (1-10).\n")
	if req.Premium {
		b.WriteString("Give detailed, per-response coaching feedback with concrete improvements.\n")
	} else {
		b.WriteString("Give concise, one-sentence feedback per response.\n")
	}
	b.WriteString("\nResponses:\n")
	for _, r := range req.Responses {
		fmt.Fprintf(&b, "- [%s] prompt: %s\n  answer (%.1fs): %s\n", r.PromptKey, r.Prompt, float64(r.ElapsedMs)/1000, r.Text)
	}
	return b.String()
}

func testTypeLabel(t models.TestType) string {
	switch t {
	case models.WordAssociation:
		return "word association test (WAT)"
	case models.SituationReaction:
		return "situation reaction test (SRT)"
	case models.PictureStory:
		return "thematic apperception test (TAT)"
	case models.PhotoStory:
		return "picture perception and discussion test (PPDT)"
	}
	return string(t)
}
