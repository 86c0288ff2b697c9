package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/adforge-ai/adgen-backend/internal/ai"
	"github.com/adforge-ai/adgen-backend/pkg/logger"
	"github.com/adforge-ai/adgen-backend/pkg/repository"
)

// visionPrompt instructs the vision model to classify a product image
// against the fixed schema the pipeline decodes.
const visionPrompt = `Analyze this product image for advertising purposes. Respond with a single JSON object with exactly these fields:
{
  "category": "main product category",
  "subcategory": "more specific category, or empty string",
  "tags": ["visual", "tags"],
  "colors": ["dominant", "colors"],
  "mood": ["mood", "words"],
  "scene_context": ["scene", "context", "words"],
  "detected_text": "any text visible in the image, or empty string",
  "object_count": 1,
  "quality_score": 0.8,
  "keywords": ["search", "keywords", "for", "this", "product"]
}
quality_score is a number between 0 and 1. object_count is the number of distinct objects. Respond with the JSON object only.`

// ImageAnalyzerI classifies a product image, serving repeated references
// from a cache.
type ImageAnalyzerI interface {
	// Analyze returns the analysis and whether it was served from cache.
	Analyze(ctx context.Context, imageRef string) (*repository.ImageAnalysisResult, bool, error)
}

// ImageAnalyzer is the vision-backed ImageAnalyzerI implementation.
type ImageAnalyzer struct {
	cache      repository.ImageAnalysisCache
	aiProvider ai.Provider
	model      string
	cacheTTL   time.Duration
}

// NewImageAnalyzer returns an analyzer that calls the given vision model on
// cache misses.
func NewImageAnalyzer(cache repository.ImageAnalysisCache, aiProvider ai.Provider, model string, cacheTTL time.Duration) *ImageAnalyzer {
	if cacheTTL <= 0 {
		cacheTTL = 30 * 24 * time.Hour
	}
	return &ImageAnalyzer{
		cache:      cache,
		aiProvider: aiProvider,
		model:      model,
		cacheTTL:   cacheTTL,
	}
}

// Analyze checks the cache first; a hit returns immediately without any
// external call. On a miss it issues one vision call, validates the response
// against the fixed schema, writes the result to the cache (best-effort) and
// returns it. A vision failure is returned to the caller: with an image
// supplied, downstream creative alignment depends on this result, so the
// orchestrator treats it as fatal.
func (a *ImageAnalyzer) Analyze(ctx context.Context, imageRef string) (*repository.ImageAnalysisResult, bool, error) {
	log, _ := logger.GetZapLogger(ctx)

	cached, err := a.cache.GetImageAnalysis(ctx, imageRef)
	if err != nil {
		// A cache-read failure is not a vision failure; fall through to the
		// vision call.
		log.Warn("image analysis cache read failed", zap.Error(err))
	}
	if cached != nil {
		return cached, true, nil
	}

	resp, err := a.aiProvider.AnalyzeImage(ctx, ai.VisionParams{
		Model:    a.model,
		ImageURL: imageRef,
		Prompt:   visionPrompt,
	})
	if err != nil {
		return nil, false, fmt.Errorf("vision call failed: %w", err)
	}

	var result repository.ImageAnalysisResult
	if err := json.Unmarshal([]byte(resp.Content), &result); err != nil {
		return nil, false, fmt.Errorf("vision response is not valid JSON: %w", err)
	}
	if err := validateImageAnalysis(&result); err != nil {
		return nil, false, fmt.Errorf("vision response failed validation: %w", err)
	}

	// Cache write is best-effort; a failure must not fail the analysis.
	if err := a.cache.SetImageAnalysis(ctx, imageRef, &result, a.cacheTTL); err != nil {
		log.Warn("image analysis cache write failed", zap.Error(err))
	}

	return &result, false, nil
}

func validateImageAnalysis(result *repository.ImageAnalysisResult) error {
	if result.Category == "" {
		return fmt.Errorf("category is empty")
	}
	if result.QualityScore < 0 || result.QualityScore > 1 {
		return fmt.Errorf("quality_score %f out of range [0,1]", result.QualityScore)
	}
	if result.ObjectCount < 0 {
		return fmt.Errorf("object_count %d is negative", result.ObjectCount)
	}
	if len(result.Keywords) == 0 && len(result.Tags) == 0 {
		return fmt.Errorf("no tags or keywords returned")
	}
	return nil
}

// SearchTerms flattens an analysis into the terms the researcher appends to
// the retrieval query.
func SearchTerms(result *repository.ImageAnalysisResult) []string {
	if result == nil {
		return nil
	}
	terms := make([]string, 0, 2+len(result.Keywords)+len(result.Mood))
	if result.Category != "" {
		terms = append(terms, result.Category)
	}
	if result.Subcategory != "" {
		terms = append(terms, result.Subcategory)
	}
	terms = append(terms, result.Keywords...)
	terms = append(terms, result.Mood...)
	return terms
}
