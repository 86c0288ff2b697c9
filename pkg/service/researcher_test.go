package service

import (
	"context"
	"fmt"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/gofrs/uuid"

	"github.com/adforge-ai/adgen-backend/internal/ai"
	"github.com/adforge-ai/adgen-backend/pkg/constant"
	errorsx "github.com/adforge-ai/adgen-backend/pkg/errors"
	"github.com/adforge-ai/adgen-backend/pkg/repository"
	"github.com/adforge-ai/adgen-backend/pkg/types"
)

func testResearchParam() ResearchParam {
	return ResearchParam{
		Description: "A smart alarm clock",
		Platform:    constant.PlatformMeta,
		Goal:        constant.GoalConversion,
		Category:    "electronics",
	}
}

func TestResearcher_Research(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()

	practiceUIDs := []types.KnowledgeUIDType{uuid.Must(uuid.NewV4()), uuid.Must(uuid.NewV4())}
	exampleUID := uuid.Must(uuid.NewV4())
	tenantUID := uuid.Must(uuid.NewV4())

	vectorDB := &fakeVectorDB{
		searchFn: func(ctx context.Context, param repository.SearchKnowledgeParam) ([]repository.KnowledgeMatch, error) {
			switch param.Collection {
			case repository.BestPracticeCollection:
				// Second hit falls below the similarity floor.
				return []repository.KnowledgeMatch{
					{ItemUID: practiceUIDs[0].String(), Score: 0.9},
					{ItemUID: practiceUIDs[1].String(), Score: 0.4},
				}, nil
			case repository.AdExampleCollection:
				return []repository.KnowledgeMatch{
					{ItemUID: exampleUID.String(), Score: 0.7},
				}, nil
			}
			return nil, fmt.Errorf("unexpected collection %q", param.Collection)
		},
	}

	repo := &fakeRepo{
		getPracticesFn: func(ctx context.Context, uids []types.KnowledgeUIDType) ([]repository.BestPractice, error) {
			items := make([]repository.BestPractice, len(uids))
			for i, uid := range uids {
				items[i] = repository.BestPractice{UID: uid, Title: "practice"}
			}
			return items, nil
		},
		getExamplesFn: func(ctx context.Context, uids []types.KnowledgeUIDType) ([]repository.AdExample, error) {
			items := make([]repository.AdExample, len(uids))
			for i, uid := range uids {
				items[i] = repository.AdExample{UID: uid, Headline: "example"}
			}
			return items, nil
		},
		getBrandVoiceFn: func(ctx context.Context, got types.TenantUIDType) (*repository.BrandVoiceProfile, error) {
			return &repository.BrandVoiceProfile{TenantUID: got, InstructionBlock: "be kind", Completed: true}, nil
		},
	}

	researcher := NewResearcher(repo, vectorDB, &fakeProvider{}, 10, 5, 0.6, 0.5)

	param := testResearchParam()
	param.ImageTerms = []string{"bedside", "minimalist"}
	param.TenantUID = &tenantUID

	rag, err := researcher.Research(ctx, param)
	c.Assert(err, qt.IsNil)

	c.Check(rag.Query, qt.Equals, "A smart alarm clock bedside minimalist")
	c.Assert(rag.BestPractices, qt.HasLen, 1)
	c.Check(rag.BestPractices[0].UID, qt.Equals, practiceUIDs[0])
	c.Check(rag.BestPractices[0].Similarity, qt.Equals, float32(0.9))
	c.Assert(rag.Examples, qt.HasLen, 1)
	c.Check(rag.Examples[0].Similarity, qt.Equals, float32(0.7))
	c.Assert(rag.BrandVoice, qt.IsNotNil)
	c.Check(rag.BrandVoice.InstructionBlock, qt.Equals, "be kind")

	c.Check(rag.Meta.PracticeCount, qt.Equals, 1)
	c.Check(rag.Meta.ExampleCount, qt.Equals, 1)
	c.Check(rag.KnowledgeUIDs(), qt.DeepEquals, []string{practiceUIDs[0].String(), exampleUID.String()})
}

func TestResearcher_NoPracticesIsFatal(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()

	vectorDB := &fakeVectorDB{
		searchFn: func(ctx context.Context, param repository.SearchKnowledgeParam) ([]repository.KnowledgeMatch, error) {
			return nil, nil
		},
	}
	researcher := NewResearcher(&fakeRepo{}, vectorDB, &fakeProvider{}, 10, 5, 0.6, 0.5)

	_, err := researcher.Research(ctx, testResearchParam())
	c.Assert(err, qt.ErrorIs, errorsx.ErrRetrievalFailed)
}

func TestResearcher_EmbeddingFailureIsFatal(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()

	provider := &fakeProvider{
		embedFn: func(ctx context.Context, texts []string) (*ai.EmbedResult, error) {
			return nil, fmt.Errorf("embedding service down")
		},
	}
	researcher := NewResearcher(&fakeRepo{}, &fakeVectorDB{}, provider, 10, 5, 0.6, 0.5)

	_, err := researcher.Research(ctx, testResearchParam())
	c.Assert(err, qt.ErrorIs, errorsx.ErrRetrievalFailed)
}

func TestResearcher_ExampleFailureDegrades(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()

	practiceUID := uuid.Must(uuid.NewV4())
	vectorDB := &fakeVectorDB{
		searchFn: func(ctx context.Context, param repository.SearchKnowledgeParam) ([]repository.KnowledgeMatch, error) {
			if param.Collection == repository.AdExampleCollection {
				return nil, fmt.Errorf("collection not loaded")
			}
			return []repository.KnowledgeMatch{{ItemUID: practiceUID.String(), Score: 0.8}}, nil
		},
	}
	repo := &fakeRepo{
		getPracticesFn: func(ctx context.Context, uids []types.KnowledgeUIDType) ([]repository.BestPractice, error) {
			return []repository.BestPractice{{UID: practiceUID}}, nil
		},
	}

	researcher := NewResearcher(repo, vectorDB, &fakeProvider{}, 10, 5, 0.6, 0.5)

	rag, err := researcher.Research(ctx, testResearchParam())
	c.Assert(err, qt.IsNil)
	c.Assert(rag.BestPractices, qt.HasLen, 1)
	c.Check(rag.Examples, qt.HasLen, 0)
}

func TestResearcher_BrandVoiceFailureDegrades(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()

	practiceUID := uuid.Must(uuid.NewV4())
	tenantUID := uuid.Must(uuid.NewV4())
	vectorDB := &fakeVectorDB{
		searchFn: func(ctx context.Context, param repository.SearchKnowledgeParam) ([]repository.KnowledgeMatch, error) {
			if param.Collection == repository.BestPracticeCollection {
				return []repository.KnowledgeMatch{{ItemUID: practiceUID.String(), Score: 0.8}}, nil
			}
			return nil, nil
		},
	}
	repo := &fakeRepo{
		getPracticesFn: func(ctx context.Context, uids []types.KnowledgeUIDType) ([]repository.BestPractice, error) {
			return []repository.BestPractice{{UID: practiceUID}}, nil
		},
		getBrandVoiceFn: func(ctx context.Context, got types.TenantUIDType) (*repository.BrandVoiceProfile, error) {
			return nil, fmt.Errorf("db timeout")
		},
	}

	researcher := NewResearcher(repo, vectorDB, &fakeProvider{}, 10, 5, 0.6, 0.5)

	param := testResearchParam()
	param.TenantUID = &tenantUID
	rag, err := researcher.Research(ctx, param)
	c.Assert(err, qt.IsNil)
	c.Check(rag.BrandVoice, qt.IsNil)
}
