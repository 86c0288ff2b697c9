package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/adforge-ai/adgen-backend/internal/ai"
	"github.com/adforge-ai/adgen-backend/pkg/constant"
	errorsx "github.com/adforge-ai/adgen-backend/pkg/errors"
	"github.com/adforge-ai/adgen-backend/pkg/logger"
	"github.com/adforge-ai/adgen-backend/pkg/repository"
	"github.com/adforge-ai/adgen-backend/pkg/types"
)

// GenerateAds runs the full pipeline for one request: length selection,
// optional image analysis, knowledge retrieval, creative drafting, analyst
// scoring and the final atomic persistence of the ranked variant set.
func (s *service) GenerateAds(ctx context.Context, param GenerateAdsParam) (*GenerateAdsResult, error) {
	log, _ := logger.GetZapLogger(ctx)
	start := time.Now()

	if err := validateGenerateParam(param); err != nil {
		return nil, err
	}

	req, err := s.repository.CreateAdRequest(ctx, repository.AdRequest{
		TenantUID:          param.TenantUID,
		UserUID:            param.UserUID,
		ProductUID:         param.ProductUID,
		Platform:           string(param.Platform),
		Goal:               string(param.Goal),
		Format:             param.Format,
		Description:        param.Description,
		ImageRef:           param.ImageRef,
		BrandVoiceOverride: param.BrandVoiceOverride,
		TargetAudience:     param.TargetAudience,
		Status:             string(constant.RequestStatusPending),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: creating ad request: %v", errorsx.ErrPersistenceFailed, err)
	}

	log = log.With(zap.String("requestUID", req.UID.String()),
		zap.String("platform", string(param.Platform)),
		zap.String("goal", string(param.Goal)))

	result, err := s.runPipeline(ctx, log, req, param, start)
	if err != nil {
		s.failRequest(ctx, log, req.UID, err)
		return nil, err
	}
	return result, nil
}

func (s *service) runPipeline(ctx context.Context, log *zap.Logger, req *repository.AdRequest, param GenerateAdsParam, start time.Time) (*GenerateAdsResult, error) {
	var cost float64

	selection := s.lengthSelector.Select(ctx, param.Platform, param.Length)
	log.Info("length selected",
		zap.String("length", string(selection.Length)),
		zap.String("rule", selection.RuleName))

	var analysis *repository.ImageAnalysisResult
	if param.ImageRef != "" {
		if err := s.transition(ctx, req.UID, constant.RequestStatusAnalyzing); err != nil {
			return nil, err
		}
		phaseCtx, cancel := context.WithTimeout(ctx, s.config.CallTimeout)
		res, fromCache, err := s.imageAnalyzer.Analyze(phaseCtx, param.ImageRef)
		cancel()
		if err != nil {
			if cancelled(ctx) {
				return nil, errorsx.ErrRequestCancelled
			}
			return nil, fmt.Errorf("%w: %v", errorsx.ErrImageAnalysisFailed, err)
		}
		analysis = res
		if !fromCache {
			cost += s.config.Costs.Vision
		}
	}
	if cancelled(ctx) {
		return nil, errorsx.ErrRequestCancelled
	}

	if err := s.transition(ctx, req.UID, constant.RequestStatusGenerating); err != nil {
		return nil, err
	}

	researchParam := ResearchParam{
		Description: param.Description,
		Platform:    param.Platform,
		Goal:        param.Goal,
		Category:    param.Category,
		Format:      param.Format,
	}
	if analysis != nil {
		researchParam.ImageTerms = SearchTerms(analysis)
	}
	tenantUID := param.TenantUID
	researchParam.TenantUID = &tenantUID

	phaseCtx, cancel := context.WithTimeout(ctx, s.config.CallTimeout)
	rag, err := s.researcher.Research(phaseCtx, researchParam)
	cancel()
	if err != nil {
		if cancelled(ctx) {
			return nil, errorsx.ErrRequestCancelled
		}
		return nil, err
	}
	cost += s.config.Costs.Embedding
	log.Info("knowledge retrieved",
		zap.Int("practices", rag.Meta.PracticeCount),
		zap.Int("examples", rag.Meta.ExampleCount),
		zap.Float64("avgSimilarity", rag.Meta.AvgSimilarity))

	phaseCtx, cancel = context.WithTimeout(ctx, s.config.CallTimeout)
	drafts, creativeRes, err := s.generator.Generate(phaseCtx, GenerateParam{
		Description:        param.Description,
		Platform:           param.Platform,
		Goal:               param.Goal,
		Format:             param.Format,
		TargetAudience:     param.TargetAudience,
		BrandVoiceOverride: param.BrandVoiceOverride,
		Length:             selection,
		RAG:                rag,
		ImageAnalysis:      analysis,
	})
	cancel()
	if err != nil {
		if cancelled(ctx) {
			return nil, errorsx.ErrRequestCancelled
		}
		return nil, err
	}
	cost += s.config.Costs.Creative
	logUsage(log, "creative drafted", creativeRes)

	phaseCtx, cancel = context.WithTimeout(ctx, s.config.CallTimeout)
	analystRes, err := s.analyst.Score(phaseCtx, ScoreParam{
		Drafts:     drafts,
		Platform:   param.Platform,
		Goal:       param.Goal,
		Length:     selection,
		BrandVoice: brandVoiceBlock(GenerateParam{BrandVoiceOverride: param.BrandVoiceOverride, RAG: rag}),
	})
	cancel()
	if err != nil {
		if cancelled(ctx) {
			return nil, errorsx.ErrRequestCancelled
		}
		return nil, err
	}
	if analystRes != nil {
		cost += s.config.Costs.Analyst
		logUsage(log, "variants scored", analystRes)
	}
	if cancelled(ctx) {
		return nil, errorsx.ErrRequestCancelled
	}

	SortDrafts(drafts)

	variants, err := draftsToVariants(req.UID, drafts, rag)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errorsx.ErrPersistenceFailed, err)
	}
	persisted, err := s.repository.CreateAdVariants(ctx, variants)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errorsx.ErrPersistenceFailed, err)
	}

	generationMS := time.Since(start).Milliseconds()
	retrievalMeta, err := json.Marshal(rag.Meta)
	if err != nil {
		retrievalMeta = nil
	}
	if err := s.repository.CompleteAdRequest(ctx, req.UID, repository.AdRequestCompletion{
		SelectedLength: string(selection.Length),
		GenerationMS:   generationMS,
		CostEstimate:   cost,
		RetrievalMeta:  datatypes.JSON(retrievalMeta),
	}); err != nil {
		return nil, fmt.Errorf("%w: completing ad request: %v", errorsx.ErrPersistenceFailed, err)
	}

	log.Info("ad request generated",
		zap.Int64("generationMS", generationMS),
		zap.Float64("costEstimate", cost))

	return &GenerateAdsResult{
		RequestUID:   req.UID,
		Variants:     persisted,
		GenerationMS: generationMS,
		CostEstimate: cost,
	}, nil
}

// transition persists a status move, treating a write failure as fatal so the
// stored status never runs ahead of reality.
func (s *service) transition(ctx context.Context, uid types.RequestUIDType, status constant.RequestStatus) error {
	if err := s.repository.UpdateAdRequestStatus(ctx, uid, status); err != nil {
		return fmt.Errorf("%w: moving request to %s: %v", errorsx.ErrPersistenceFailed, status, err)
	}
	return nil
}

// failRequest records the terminal failed status. The write is best effort:
// the caller already has the pipeline error and a second failure here must
// not mask it.
func (s *service) failRequest(ctx context.Context, log *zap.Logger, uid types.RequestUIDType, cause error) {
	writeCtx := context.WithoutCancel(ctx)
	if err := s.repository.MarkAdRequestFailed(writeCtx, uid, cause.Error()); err != nil {
		log.Error("failed to record request failure", zap.Error(err), zap.NamedError("cause", cause))
	}
}

func draftsToVariants(requestUID types.RequestUIDType, drafts []Draft, rag *RAGContext) ([]repository.AdVariant, error) {
	knowledgeUIDs := rag.KnowledgeUIDs()
	variants := make([]repository.AdVariant, 0, len(drafts))
	for _, d := range drafts {
		var breakdown datatypes.JSON
		if d.Breakdown != nil {
			raw, err := json.Marshal(d.Breakdown)
			if err != nil {
				return nil, fmt.Errorf("marshalling score breakdown: %w", err)
			}
			breakdown = datatypes.JSON(raw)
		}
		variants = append(variants, repository.AdVariant{
			RequestUID:        requestUID,
			VariantIndex:      d.VariantIndex,
			VariantType:       string(d.VariantType),
			Headline:          d.Headline,
			AltHeadlines:      d.AltHeadlines,
			PrimaryText:       d.PrimaryText,
			Description:       d.Description,
			CTA:               d.CTA,
			CTARationale:      d.CTARationale,
			HookTechnique:     d.HookTechnique,
			Tone:              d.Tone,
			PredictedScore:    d.Score / 10,
			ScoreBreakdown:    breakdown,
			Reasoning:         scoreReasoning(d),
			UsedKnowledgeUIDs: knowledgeUIDs,
		})
	}
	return variants, nil
}

// scoreReasoning joins the creative rationale with the analyst critique.
func scoreReasoning(d Draft) string {
	parts := make([]string, 0, 2)
	if d.Reasoning != "" {
		parts = append(parts, d.Reasoning)
	}
	if d.Critique != "" {
		parts = append(parts, "Analyst: "+d.Critique)
	}
	return strings.Join(parts, " ")
}

func validateGenerateParam(param GenerateAdsParam) error {
	if param.TenantUID.IsNil() {
		return fmt.Errorf("%w: tenant uid is required", errorsx.ErrInvalidArgument)
	}
	if strings.TrimSpace(param.Description) == "" {
		return fmt.Errorf("%w: description is required", errorsx.ErrInvalidArgument)
	}
	if !constant.ValidPlatform(param.Platform) {
		return fmt.Errorf("%w: unknown platform %q", errorsx.ErrInvalidArgument, param.Platform)
	}
	if !constant.ValidGoal(param.Goal) {
		return fmt.Errorf("%w: unknown goal %q", errorsx.ErrInvalidArgument, param.Goal)
	}
	return nil
}

func cancelled(ctx context.Context) bool {
	return ctx.Err() != nil
}

func logUsage(log *zap.Logger, msg string, res *ai.ChatResult) {
	if res == nil {
		return
	}
	log.Info(msg,
		zap.String("model", res.Model),
		zap.Int64("inputTokens", res.InputTokens),
		zap.Int64("outputTokens", res.OutputTokens))
}
