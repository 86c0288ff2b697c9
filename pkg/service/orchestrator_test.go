package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
	"github.com/gofrs/uuid"

	"github.com/adforge-ai/adgen-backend/internal/ai"
	"github.com/adforge-ai/adgen-backend/pkg/constant"
	errorsx "github.com/adforge-ai/adgen-backend/pkg/errors"
	"github.com/adforge-ai/adgen-backend/pkg/repository"
	"github.com/adforge-ai/adgen-backend/pkg/types"
)

type fakeLengthSelector struct {
	selection LengthSelection
}

func (f *fakeLengthSelector) Select(ctx context.Context, platform constant.Platform, signals LengthSignals) LengthSelection {
	return f.selection
}

type fakeImageAnalyzer struct {
	result    *repository.ImageAnalysisResult
	fromCache bool
	err       error
	calls     int
}

func (f *fakeImageAnalyzer) Analyze(ctx context.Context, imageRef string) (*repository.ImageAnalysisResult, bool, error) {
	f.calls++
	return f.result, f.fromCache, f.err
}

type fakeResearcher struct {
	rag *RAGContext
	err error
}

func (f *fakeResearcher) Research(ctx context.Context, param ResearchParam) (*RAGContext, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.rag, nil
}

type fakeGenerator struct {
	drafts []Draft
	err    error
}

func (f *fakeGenerator) Generate(ctx context.Context, param GenerateParam) ([]Draft, *ai.ChatResult, error) {
	if f.err != nil {
		return nil, nil, f.err
	}
	return f.drafts, &ai.ChatResult{Model: "fake-creative"}, nil
}

type fakeScorer struct {
	scores map[int]float64
}

func (f *fakeScorer) Score(ctx context.Context, param ScoreParam) (*ai.ChatResult, error) {
	for i := range param.Drafts {
		param.Drafts[i].Score = f.scores[param.Drafts[i].VariantIndex]
	}
	return &ai.ChatResult{Model: "fake-analyst"}, nil
}

func generatedDrafts() []Draft {
	return []Draft{
		{VariantIndex: 1, VariantType: constant.VariantTypeEmotional, Headline: "a", PrimaryText: "b", CTA: "c"},
		{VariantIndex: 2, VariantType: constant.VariantTypeBenefit, Headline: "d", PrimaryText: "e", CTA: "f"},
		{VariantIndex: 3, VariantType: constant.VariantTypeUGC, Headline: "g", PrimaryText: "h", CTA: "i"},
	}
}

type orchestratorFixture struct {
	repo       *fakeRepo
	analyzer   *fakeImageAnalyzer
	researcher *fakeResearcher
	generator  *fakeGenerator
	scorer     *fakeScorer

	statuses []string
	failed   []string
	created  []repository.AdVariant
	complete *repository.AdRequestCompletion
}

func newOrchestratorFixture() *orchestratorFixture {
	fx := &orchestratorFixture{
		analyzer:   &fakeImageAnalyzer{result: &repository.ImageAnalysisResult{Category: "electronics"}},
		researcher: &fakeResearcher{rag: testRAGContext()},
		generator:  &fakeGenerator{drafts: generatedDrafts()},
		scorer:     &fakeScorer{scores: map[int]float64{1: 6, 2: 8, 3: 7}},
	}
	fx.repo = &fakeRepo{
		createAdRequestFn: func(ctx context.Context, req repository.AdRequest) (*repository.AdRequest, error) {
			req.UID = uuid.Must(uuid.NewV4())
			return &req, nil
		},
		updateStatusFn: func(ctx context.Context, uid types.RequestUIDType, status string) error {
			fx.statuses = append(fx.statuses, status)
			return nil
		},
		markFailedFn: func(ctx context.Context, uid types.RequestUIDType, errMsg string) error {
			fx.failed = append(fx.failed, errMsg)
			return nil
		},
		completeFn: func(ctx context.Context, uid types.RequestUIDType, update repository.AdRequestCompletion) error {
			fx.complete = &update
			return nil
		},
		createVariantsFn: func(ctx context.Context, variants []repository.AdVariant) ([]repository.AdVariant, error) {
			fx.created = variants
			return variants, nil
		},
	}
	return fx
}

func (fx *orchestratorFixture) service() Service {
	return NewService(
		fx.repo,
		&fakeLengthSelector{selection: metaMediumSelection()},
		fx.analyzer,
		fx.researcher,
		fx.generator,
		fx.scorer,
		OrchestratorConfig{
			CallTimeout: time.Second,
			Costs:       UnitCosts{Vision: 1, Embedding: 2, Creative: 4, Analyst: 8},
		},
	)
}

func validGenerateParam() GenerateAdsParam {
	return GenerateAdsParam{
		TenantUID:   uuid.Must(uuid.NewV4()),
		Platform:    constant.PlatformMeta,
		Goal:        constant.GoalConversion,
		Description: "A smart alarm clock",
	}
}

func TestGenerateAds_Success(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()

	fx := newOrchestratorFixture()
	result, err := fx.service().GenerateAds(ctx, validGenerateParam())
	c.Assert(err, qt.IsNil)

	c.Assert(result.Variants, qt.HasLen, 3)
	// Ranked best first.
	c.Check(result.Variants[0].VariantIndex, qt.Equals, 2)
	c.Check(result.Variants[0].PredictedScore, qt.Equals, 0.8)
	c.Check(result.Variants[1].VariantIndex, qt.Equals, 3)
	c.Check(result.Variants[2].VariantIndex, qt.Equals, 1)

	// Every variant records the knowledge it generated from.
	for _, v := range result.Variants {
		c.Check([]string(v.UsedKnowledgeUIDs), qt.HasLen, 3)
	}

	// No image: cost covers embedding, creative and analyst only.
	c.Check(result.CostEstimate, qt.Equals, 14.0)

	// pending row moves straight to generating without an analyzing step.
	c.Check(fx.statuses, qt.DeepEquals, []string{"generating"})
	c.Check(fx.analyzer.calls, qt.Equals, 0)

	c.Assert(fx.complete, qt.IsNotNil)
	c.Check(fx.complete.SelectedLength, qt.Equals, "MEDIUM")
	c.Check(fx.complete.CostEstimate, qt.Equals, 14.0)
	c.Check(len(fx.failed), qt.Equals, 0)
}

func TestGenerateAds_WithImage(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()

	fx := newOrchestratorFixture()
	param := validGenerateParam()
	param.ImageRef = "https://cdn.example.com/clock.jpg"

	result, err := fx.service().GenerateAds(ctx, param)
	c.Assert(err, qt.IsNil)

	c.Check(fx.statuses, qt.DeepEquals, []string{"analyzing", "generating"})
	c.Check(fx.analyzer.calls, qt.Equals, 1)
	// Vision cost is charged for a fresh analysis.
	c.Check(result.CostEstimate, qt.Equals, 15.0)
}

func TestGenerateAds_CachedImageSkipsVisionCost(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()

	fx := newOrchestratorFixture()
	fx.analyzer.fromCache = true
	param := validGenerateParam()
	param.ImageRef = "https://cdn.example.com/clock.jpg"

	result, err := fx.service().GenerateAds(ctx, param)
	c.Assert(err, qt.IsNil)
	c.Check(result.CostEstimate, qt.Equals, 14.0)
}

func TestGenerateAds_ValidationErrors(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()

	fx := newOrchestratorFixture()
	svc := fx.service()

	tests := []struct {
		name   string
		mutate func(p *GenerateAdsParam)
	}{
		{name: "missing tenant", mutate: func(p *GenerateAdsParam) { p.TenantUID = uuid.Nil }},
		{name: "empty description", mutate: func(p *GenerateAdsParam) { p.Description = "  " }},
		{name: "unknown platform", mutate: func(p *GenerateAdsParam) { p.Platform = "myspace" }},
		{name: "unknown goal", mutate: func(p *GenerateAdsParam) { p.Goal = "world-domination" }},
	}

	for _, tc := range tests {
		c.Run(tc.name, func(c *qt.C) {
			param := validGenerateParam()
			tc.mutate(&param)
			_, err := svc.GenerateAds(ctx, param)
			c.Assert(err, qt.ErrorIs, errorsx.ErrInvalidArgument)
		})
	}
	// Validation failures never create a request row.
	c.Check(len(fx.failed), qt.Equals, 0)
}

func TestGenerateAds_ImageAnalysisFailureIsFatal(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()

	fx := newOrchestratorFixture()
	fx.analyzer.err = fmt.Errorf("vision model rejected the image")
	param := validGenerateParam()
	param.ImageRef = "https://cdn.example.com/clock.jpg"

	_, err := fx.service().GenerateAds(ctx, param)
	c.Assert(err, qt.ErrorIs, errorsx.ErrImageAnalysisFailed)
	c.Assert(fx.failed, qt.HasLen, 1)
	c.Check(fx.created, qt.HasLen, 0)
}

func TestGenerateAds_RetrievalFailureIsFatal(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()

	fx := newOrchestratorFixture()
	fx.researcher.err = fmt.Errorf("%w: no best practices matched", errorsx.ErrRetrievalFailed)

	_, err := fx.service().GenerateAds(ctx, validGenerateParam())
	c.Assert(err, qt.ErrorIs, errorsx.ErrRetrievalFailed)
	c.Assert(fx.failed, qt.HasLen, 1)
	c.Check(fx.created, qt.HasLen, 0)
}

func TestGenerateAds_GenerationFailureIsFatal(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()

	fx := newOrchestratorFixture()
	fx.generator.err = fmt.Errorf("%w: expected 3 variants, got 2", errorsx.ErrGenerationFailed)

	_, err := fx.service().GenerateAds(ctx, validGenerateParam())
	c.Assert(err, qt.ErrorIs, errorsx.ErrGenerationFailed)
	c.Assert(fx.failed, qt.HasLen, 1)
	c.Check(fx.created, qt.HasLen, 0)
}

func TestGenerateAds_PersistenceFailure(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()

	fx := newOrchestratorFixture()
	fx.repo.createVariantsFn = func(ctx context.Context, variants []repository.AdVariant) ([]repository.AdVariant, error) {
		return nil, fmt.Errorf("deadlock detected")
	}

	_, err := fx.service().GenerateAds(ctx, validGenerateParam())
	c.Assert(err, qt.ErrorIs, errorsx.ErrPersistenceFailed)
	c.Assert(fx.failed, qt.HasLen, 1)
}

func TestGenerateAds_Cancellation(t *testing.T) {
	c := qt.New(t)

	fx := newOrchestratorFixture()
	ctx, cancel := context.WithCancel(context.Background())
	// Cancel while the pipeline is in flight: the researcher fake triggers it
	// right before returning.
	cancellingResearcher := &cancellingResearcherFake{inner: fx.researcher, cancel: cancel}

	svc := NewService(
		fx.repo,
		&fakeLengthSelector{selection: metaMediumSelection()},
		fx.analyzer,
		cancellingResearcher,
		fx.generator,
		fx.scorer,
		OrchestratorConfig{CallTimeout: time.Second},
	)

	_, err := svc.GenerateAds(ctx, validGenerateParam())
	c.Assert(err, qt.ErrorIs, errorsx.ErrRequestCancelled)
	// The failure is still recorded on the request row.
	c.Assert(fx.failed, qt.HasLen, 1)
	c.Check(fx.created, qt.HasLen, 0)
}

type cancellingResearcherFake struct {
	inner  ResearcherI
	cancel context.CancelFunc
}

func (f *cancellingResearcherFake) Research(ctx context.Context, param ResearchParam) (*RAGContext, error) {
	rag, err := f.inner.Research(ctx, param)
	f.cancel()
	return rag, err
}
