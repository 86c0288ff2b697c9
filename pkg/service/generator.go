package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"
	"go.uber.org/zap"

	"github.com/adforge-ai/adgen-backend/internal/ai"
	"github.com/adforge-ai/adgen-backend/pkg/constant"
	errorsx "github.com/adforge-ai/adgen-backend/pkg/errors"
	"github.com/adforge-ai/adgen-backend/pkg/logger"
	"github.com/adforge-ai/adgen-backend/pkg/repository"
)

const (
	// promptEncoding is the tokenizer used to budget the retrieved context
	// block inside the creative prompt.
	promptEncoding = "cl100k_base"

	maxPracticesInPrompt = 5
	maxExamplesInPrompt  = 3
)

// Draft is one generated ad variant before persistence. The analyst phase
// fills Score, Critique and Breakdown in place.
type Draft struct {
	VariantIndex  int
	VariantType   constant.VariantType
	Headline      string
	AltHeadlines  []string
	PrimaryText   string
	Description   string
	CTA           string
	CTARationale  string
	HookTechnique string
	Tone          string
	Reasoning     string
	Length        constant.AdLength

	// Score is on the analyst's 0..10 scale. PredictedScore persisted on the
	// variant is Score/10.
	Score     float64
	Critique  string
	Breakdown *repository.ScoreBreakdown
}

// GenerateParam carries everything the creative phase needs for one request.
type GenerateParam struct {
	Description        string
	Platform           constant.Platform
	Goal               constant.Goal
	Format             string
	TargetAudience     string
	BrandVoiceOverride string
	Length             LengthSelection
	RAG                *RAGContext
	ImageAnalysis      *repository.ImageAnalysisResult
}

// CreativeGeneratorI produces the fixed set of ad drafts for one request.
type CreativeGeneratorI interface {
	Generate(ctx context.Context, param GenerateParam) ([]Draft, *ai.ChatResult, error)
}

// CreativeGenerator is the chat-model-backed CreativeGeneratorI
// implementation.
type CreativeGenerator struct {
	aiProvider   ai.Provider
	model        string
	contextLimit int

	encOnce sync.Once
	enc     *tiktoken.Tiktoken
}

// NewCreativeGenerator returns a generator that drafts with the given model
// and trims retrieved context to contextTokenBudget tokens.
func NewCreativeGenerator(aiProvider ai.Provider, model string, contextTokenBudget int) *CreativeGenerator {
	return &CreativeGenerator{
		aiProvider:   aiProvider,
		model:        model,
		contextLimit: contextTokenBudget,
	}
}

const creativeSystemPrompt = `You are a senior direct-response copywriter. You write platform-native ad copy grounded strictly in the provided best practices and examples. You never invent product claims that are not supported by the product description.`

// draftsEnvelope is the exact shape the creative model is instructed to
// return.
type draftsEnvelope struct {
	Variants []draftPayload `json:"variants"`
}

type draftPayload struct {
	VariantType   string   `json:"variant_type"`
	Headline      string   `json:"headline"`
	AltHeadlines  []string `json:"alt_headlines"`
	PrimaryText   string   `json:"primary_text"`
	Description   string   `json:"description"`
	CTA           string   `json:"cta"`
	CTARationale  string   `json:"cta_rationale"`
	HookTechnique string   `json:"hook_technique"`
	Tone          string   `json:"tone"`
	Reasoning     string   `json:"reasoning"`
}

// Generate runs one creative call and parses it strictly. Any shortfall in
// the model output fails the whole request: the pipeline persists exactly
// zero or three variants, never a partial set.
func (g *CreativeGenerator) Generate(ctx context.Context, param GenerateParam) ([]Draft, *ai.ChatResult, error) {
	if param.RAG == nil {
		return nil, nil, fmt.Errorf("%w: missing retrieval context", errorsx.ErrGenerationFailed)
	}

	userPrompt := g.buildUserPrompt(ctx, param)

	res, err := g.aiProvider.Chat(ctx, ai.ChatParams{
		Model:        g.model,
		SystemPrompt: creativeSystemPrompt,
		UserPrompt:   userPrompt,
		Temperature:  0.9,
		JSONOutput:   true,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", errorsx.ErrGenerationFailed, err)
	}

	drafts, err := parseDrafts(res.Content, param.Length)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", errorsx.ErrGenerationFailed, err)
	}
	return drafts, res, nil
}

func (g *CreativeGenerator) buildUserPrompt(ctx context.Context, param GenerateParam) string {
	log, _ := logger.GetZapLogger(ctx)
	budget := param.Length.Budget

	var b strings.Builder

	fmt.Fprintf(&b, "Write exactly %d ad variants for the %s platform, campaign goal %q.\n",
		constant.VariantsPerRequest, param.Platform, param.Goal)
	b.WriteString("The three variants must take three distinct creative angles, in this order:\n")
	fmt.Fprintf(&b, "1. %s: lead with feeling, aspiration or pain relief.\n", constant.VariantTypeEmotional)
	fmt.Fprintf(&b, "2. %s: lead with the concrete benefit or outcome.\n", constant.VariantTypeBenefit)
	fmt.Fprintf(&b, "3. %s: write like an enthusiastic customer, first person, conversational.\n", constant.VariantTypeUGC)

	b.WriteString("\n## Product\n")
	fmt.Fprintf(&b, "Description: %s\n", param.Description)
	if param.Format != "" {
		fmt.Fprintf(&b, "Ad format: %s\n", param.Format)
	}
	if param.TargetAudience != "" {
		fmt.Fprintf(&b, "Target audience: %s\n", param.TargetAudience)
	}
	if param.ImageAnalysis != nil {
		fmt.Fprintf(&b, "Image analysis: category=%s", param.ImageAnalysis.Category)
		if param.ImageAnalysis.Subcategory != "" {
			fmt.Fprintf(&b, "/%s", param.ImageAnalysis.Subcategory)
		}
		if len(param.ImageAnalysis.Mood) > 0 {
			fmt.Fprintf(&b, ", mood: %s", strings.Join(param.ImageAnalysis.Mood, ", "))
		}
		if param.ImageAnalysis.DetectedText != "" {
			fmt.Fprintf(&b, ", text in image: %q", param.ImageAnalysis.DetectedText)
		}
		b.WriteString("\n")
	}

	b.WriteString("\n## Hard limits\n")
	fmt.Fprintf(&b, "headline: at most %d characters\n", budget.HeadlineMax)
	fmt.Fprintf(&b, "primary_text: aim for %d characters, never exceed %d\n", budget.PrimaryIdeal, budget.PrimaryMax)
	if budget.DescriptionMax > 0 {
		fmt.Fprintf(&b, "description: at most %d characters\n", budget.DescriptionMax)
	} else {
		b.WriteString("description: leave empty, this platform has no description field\n")
	}

	if phrases, ok := constant.CTAPhrases[param.Goal]; ok {
		fmt.Fprintf(&b, "\nCTA phrases that work for this goal: %s. Pick or adapt one per variant.\n",
			strings.Join(phrases, "; "))
	}

	if voice := brandVoiceBlock(param); voice != "" {
		b.WriteString("\n## Brand voice\n")
		b.WriteString(voice)
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(g.contextBlock(ctx, param.RAG, log))

	b.WriteString("\n## Output\n")
	b.WriteString(`Respond with a single JSON object: {"variants": [v1, v2, v3]}. Each variant has the fields variant_type, headline, alt_headlines (2 alternatives), primary_text, description, cta, cta_rationale, hook_technique, tone, reasoning. No other fields, no markdown.`)

	return b.String()
}

// contextBlock renders the retrieved knowledge and trims it to the token
// budget, dropping examples before practices. At least one practice always
// survives.
func (g *CreativeGenerator) contextBlock(ctx context.Context, rag *RAGContext, log *zap.Logger) string {
	practices := rag.BestPractices
	if len(practices) > maxPracticesInPrompt {
		practices = practices[:maxPracticesInPrompt]
	}
	examples := rag.Examples
	if len(examples) > maxExamplesInPrompt {
		examples = examples[:maxExamplesInPrompt]
	}

	render := func() string {
		var b strings.Builder
		b.WriteString("## Best practices to apply\n")
		for i, p := range practices {
			fmt.Fprintf(&b, "%d. %s: %s", i+1, p.Title, p.Description)
			if p.Example != "" {
				fmt.Fprintf(&b, " (e.g. %s)", p.Example)
			}
			b.WriteString("\n")
		}
		if len(examples) > 0 {
			b.WriteString("\n## High-performing examples for inspiration (do not copy)\n")
			for i, e := range examples {
				fmt.Fprintf(&b, "%d. headline: %q, primary text: %q\n", i+1, e.Headline, e.PrimaryText)
			}
		}
		return b.String()
	}

	block := render()
	enc := g.encoder(log)
	if enc == nil || g.contextLimit <= 0 {
		return block
	}

	for len(enc.Encode(block, nil, nil)) > g.contextLimit {
		switch {
		case len(examples) > 0:
			examples = examples[:len(examples)-1]
		case len(practices) > 1:
			practices = practices[:len(practices)-1]
		default:
			return block
		}
		block = render()
	}
	return block
}

func (g *CreativeGenerator) encoder(log *zap.Logger) *tiktoken.Tiktoken {
	g.encOnce.Do(func() {
		enc, err := tiktoken.GetEncoding(promptEncoding)
		if err != nil {
			log.Warn("tokenizer unavailable, skipping context trimming", zap.Error(err))
			return
		}
		g.enc = enc
	})
	return g.enc
}

// brandVoiceBlock resolves the voice instructions for the prompt. A per
// request override beats the stored tenant profile.
func brandVoiceBlock(param GenerateParam) string {
	if param.BrandVoiceOverride != "" {
		return param.BrandVoiceOverride
	}
	if param.RAG != nil && param.RAG.BrandVoice != nil {
		return param.RAG.BrandVoice.InstructionBlock
	}
	return ""
}

func parseDrafts(content string, length LengthSelection) ([]Draft, error) {
	var envelope draftsEnvelope
	dec := json.NewDecoder(strings.NewReader(content))
	if err := dec.Decode(&envelope); err != nil {
		return nil, fmt.Errorf("decoding variants: %w", err)
	}
	if len(envelope.Variants) != constant.VariantsPerRequest {
		return nil, fmt.Errorf("expected %d variants, got %d", constant.VariantsPerRequest, len(envelope.Variants))
	}

	budget := length.Budget
	drafts := make([]Draft, 0, constant.VariantsPerRequest)
	for i, v := range envelope.Variants {
		if v.Headline == "" || v.PrimaryText == "" || v.CTA == "" {
			return nil, fmt.Errorf("variant %d is missing a required field", i)
		}
		if len([]rune(v.Headline)) > budget.HeadlineMax {
			return nil, fmt.Errorf("variant %d headline exceeds %d characters", i, budget.HeadlineMax)
		}
		if len([]rune(v.PrimaryText)) > budget.PrimaryMax {
			return nil, fmt.Errorf("variant %d primary text exceeds %d characters", i, budget.PrimaryMax)
		}
		if budget.DescriptionMax > 0 && len([]rune(v.Description)) > budget.DescriptionMax {
			return nil, fmt.Errorf("variant %d description exceeds %d characters", i, budget.DescriptionMax)
		}
		description := v.Description
		if budget.DescriptionMax == 0 {
			description = ""
		}
		drafts = append(drafts, Draft{
			VariantIndex:  i + 1,
			VariantType:   normalizeVariantType(v.VariantType, i),
			Headline:      v.Headline,
			AltHeadlines:  v.AltHeadlines,
			PrimaryText:   v.PrimaryText,
			Description:   description,
			CTA:           v.CTA,
			CTARationale:  v.CTARationale,
			HookTechnique: v.HookTechnique,
			Tone:          v.Tone,
			Reasoning:     v.Reasoning,
			Length:        length.Length,
		})
	}
	return drafts, nil
}

// normalizeVariantType maps the model's declared angle onto a known
// VariantType, falling back to the angle requested for that slot.
func normalizeVariantType(raw string, index int) constant.VariantType {
	declared := constant.VariantType(strings.ToLower(strings.TrimSpace(raw)))
	for _, known := range constant.VariantTypes {
		if declared == known {
			return declared
		}
	}
	requested := []constant.VariantType{
		constant.VariantTypeEmotional,
		constant.VariantTypeBenefit,
		constant.VariantTypeUGC,
	}
	if index >= 0 && index < len(requested) {
		return requested[index]
	}
	return constant.VariantTypeBenefit
}
