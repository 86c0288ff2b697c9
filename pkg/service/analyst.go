package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/adforge-ai/adgen-backend/internal/ai"
	"github.com/adforge-ai/adgen-backend/pkg/constant"
	"github.com/adforge-ai/adgen-backend/pkg/logger"
	"github.com/adforge-ai/adgen-backend/pkg/repository"
)

// ScoreParam carries one scoring pass over a full draft set.
type ScoreParam struct {
	Drafts   []Draft
	Platform constant.Platform
	Goal     constant.Goal
	Length   LengthSelection
	// BrandVoice is the voice the rubric judges against, empty when the
	// tenant has none and no override was given.
	BrandVoice string
}

// AnalystScorerI predicts a quality score for each draft. Scoring never
// fails a request: a scorer that cannot produce scores reports zeros.
type AnalystScorerI interface {
	Score(ctx context.Context, param ScoreParam) (*ai.ChatResult, error)
}

// AnalystScorer is the chat-model-backed AnalystScorerI implementation.
type AnalystScorer struct {
	aiProvider ai.Provider
	model      string
}

// NewAnalystScorer returns a scorer using the given model.
func NewAnalystScorer(aiProvider ai.Provider, model string) *AnalystScorer {
	return &AnalystScorer{aiProvider: aiProvider, model: model}
}

const analystSystemPrompt = `You are a performance marketing analyst. You score ad copy against a fixed rubric and you are strict: most ads score between 4 and 7. Respond with JSON only.`

type scoresEnvelope struct {
	Scores []scorePayload `json:"scores"`
}

type scorePayload struct {
	VariantIndex int                        `json:"variant_index"`
	Score        float64                    `json:"score"`
	Critique     string                     `json:"critique"`
	Breakdown    *repository.ScoreBreakdown `json:"breakdown,omitempty"`
}

// Score runs one low-temperature rubric call over the whole draft set and
// writes the results into the drafts in place. Parse or call failures
// degrade to zero scores with a warning; ranking still works, it just
// carries no signal.
func (s *AnalystScorer) Score(ctx context.Context, param ScoreParam) (*ai.ChatResult, error) {
	log, _ := logger.GetZapLogger(ctx)

	res, err := s.aiProvider.Chat(ctx, ai.ChatParams{
		Model:        s.model,
		SystemPrompt: analystSystemPrompt,
		UserPrompt:   buildRubricPrompt(param),
		Temperature:  0.1,
		JSONOutput:   true,
	})
	if err != nil {
		log.Warn("analyst call failed, scoring all variants 0", zap.Error(err))
		zeroScores(param.Drafts)
		return nil, nil
	}

	if err := applyScores(param.Drafts, res.Content, param.BrandVoice == ""); err != nil {
		log.Warn("analyst response unusable, scoring all variants 0",
			zap.Error(err), zap.String("model", res.Model))
		zeroScores(param.Drafts)
	}
	return res, nil
}

func buildRubricPrompt(param ScoreParam) string {
	budget := param.Length.Budget
	hasVoice := param.BrandVoice != ""

	var b strings.Builder
	fmt.Fprintf(&b, "Score these %d ad variants for the %s platform, campaign goal %q.\n\n", len(param.Drafts), param.Platform, param.Goal)

	b.WriteString("## Rubric\n")
	b.WriteString("hook_strength (0-2): does the opening stop the scroll?\n")
	b.WriteString("context_relevance (0-2): is the message understood in one read and on topic?\n")
	fmt.Fprintf(&b, "platform_compliance (0-2): native to %s. Primary text near %d characters scores 2; within %d scores at least 1; anything longer scores 0.\n",
		param.Platform, budget.PrimaryIdeal, budget.PrimaryMax)
	fmt.Fprintf(&b, "cta_clarity (0-2): does the CTA match the %q goal? CTAs that work for this goal sound like: %s.\n",
		param.Goal, strings.Join(constant.CTAPhrases[param.Goal], "; "))
	if hasVoice {
		b.WriteString("brand_fit (0-2): does the copy follow the brand voice below?\n")
		b.WriteString("\n## Brand voice\n")
		b.WriteString(param.BrandVoice)
		b.WriteString("\n")
	} else {
		b.WriteString("There is no brand voice on file. Omit brand_fit; score on the other four dimensions out of 8.\n")
	}

	b.WriteString("\n## Variants\n")
	for _, d := range param.Drafts {
		fmt.Fprintf(&b, "variant_index %d (%s):\nheadline: %q\nprimary_text: %q\n", d.VariantIndex, d.VariantType, d.Headline, d.PrimaryText)
		if d.Description != "" {
			fmt.Fprintf(&b, "description: %q\n", d.Description)
		}
		fmt.Fprintf(&b, "cta: %q\n\n", d.CTA)
	}

	b.WriteString("## Output\n")
	if hasVoice {
		b.WriteString(`Respond with {"scores": [...]}, one entry per variant: {"variant_index": n, "score": total out of 10, "critique": "one or two sentences", "breakdown": {"hook_strength": n, "context_relevance": n, "platform_compliance": n, "cta_clarity": n, "brand_fit": n}}.`)
	} else {
		b.WriteString(`Respond with {"scores": [...]}, one entry per variant: {"variant_index": n, "score": total out of 8, "critique": "one or two sentences", "breakdown": {"hook_strength": n, "context_relevance": n, "platform_compliance": n, "cta_clarity": n}}.`)
	}
	return b.String()
}

// applyScores parses the analyst payload and writes scores into the drafts.
// When there was no brand voice the model scored out of 8; those totals are
// renormalized onto the 0..10 scale so ranking stays comparable across
// requests.
func applyScores(drafts []Draft, content string, renormalize bool) error {
	var envelope scoresEnvelope
	if err := json.Unmarshal([]byte(content), &envelope); err != nil {
		return fmt.Errorf("decoding scores: %w", err)
	}
	if len(envelope.Scores) != len(drafts) {
		return fmt.Errorf("expected %d scores, got %d", len(drafts), len(envelope.Scores))
	}

	byIndex := make(map[int]*Draft, len(drafts))
	for i := range drafts {
		byIndex[drafts[i].VariantIndex] = &drafts[i]
	}

	for _, sc := range envelope.Scores {
		draft, ok := byIndex[sc.VariantIndex]
		if !ok {
			return fmt.Errorf("score for unknown variant_index %d", sc.VariantIndex)
		}
		score := sc.Score
		if renormalize {
			score = score * 10 / 8
		}
		if score < 0 {
			score = 0
		}
		if score > 10 {
			score = 10
		}
		draft.Score = score
		draft.Critique = sc.Critique
		draft.Breakdown = sc.Breakdown
	}
	return nil
}

func zeroScores(drafts []Draft) {
	for i := range drafts {
		drafts[i].Score = 0
		drafts[i].Critique = ""
		drafts[i].Breakdown = nil
	}
}

// SortDrafts orders drafts best first: score descending, then the original
// variant index for a deterministic tie break.
func SortDrafts(drafts []Draft) {
	sort.SliceStable(drafts, func(i, j int) bool {
		if drafts[i].Score != drafts[j].Score {
			return drafts[i].Score > drafts[j].Score
		}
		return drafts[i].VariantIndex < drafts[j].VariantIndex
	})
}
