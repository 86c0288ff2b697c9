package service

import (
	"context"
	"fmt"

	"github.com/gofrs/uuid"

	"github.com/adforge-ai/adgen-backend/internal/ai"
	"github.com/adforge-ai/adgen-backend/pkg/constant"
	"github.com/adforge-ai/adgen-backend/pkg/repository"
	"github.com/adforge-ai/adgen-backend/pkg/types"
)

// fakeProvider implements ai.Provider with settable behavior per call.
type fakeProvider struct {
	embedFn   func(ctx context.Context, texts []string) (*ai.EmbedResult, error)
	chatFn    func(ctx context.Context, params ai.ChatParams) (*ai.ChatResult, error)
	analyzeFn func(ctx context.Context, params ai.VisionParams) (*ai.ChatResult, error)
}

func (f *fakeProvider) Name() string                      { return "fake" }
func (f *fakeProvider) GetEmbeddingDimensionality() int32 { return 1536 }
func (f *fakeProvider) Close() error                      { return nil }

func (f *fakeProvider) EmbedTexts(ctx context.Context, texts []string) (*ai.EmbedResult, error) {
	if f.embedFn == nil {
		vectors := make([][]float32, len(texts))
		for i := range vectors {
			vectors[i] = []float32{0.1, 0.2, 0.3}
		}
		return &ai.EmbedResult{Vectors: vectors, Model: "fake-embed", Dimensionality: 3}, nil
	}
	return f.embedFn(ctx, texts)
}

func (f *fakeProvider) Chat(ctx context.Context, params ai.ChatParams) (*ai.ChatResult, error) {
	if f.chatFn == nil {
		return nil, fmt.Errorf("unexpected chat call")
	}
	return f.chatFn(ctx, params)
}

func (f *fakeProvider) AnalyzeImage(ctx context.Context, params ai.VisionParams) (*ai.ChatResult, error) {
	if f.analyzeFn == nil {
		return nil, fmt.Errorf("unexpected vision call")
	}
	return f.analyzeFn(ctx, params)
}

// fakeRepo embeds the Repository interface so each test overrides only the
// methods its code path reaches.
type fakeRepo struct {
	repository.Repository

	createAdRequestFn   func(ctx context.Context, req repository.AdRequest) (*repository.AdRequest, error)
	updateStatusFn      func(ctx context.Context, uid types.RequestUIDType, status string) error
	markFailedFn        func(ctx context.Context, uid types.RequestUIDType, errMsg string) error
	completeFn          func(ctx context.Context, uid types.RequestUIDType, update repository.AdRequestCompletion) error
	createVariantsFn    func(ctx context.Context, variants []repository.AdVariant) ([]repository.AdVariant, error)
	getPracticesFn      func(ctx context.Context, uids []types.KnowledgeUIDType) ([]repository.BestPractice, error)
	getExamplesFn       func(ctx context.Context, uids []types.KnowledgeUIDType) ([]repository.AdExample, error)
	getBrandVoiceFn     func(ctx context.Context, tenantUID types.TenantUIDType) (*repository.BrandVoiceProfile, error)
}

func (f *fakeRepo) CreateAdRequest(ctx context.Context, req repository.AdRequest) (*repository.AdRequest, error) {
	return f.createAdRequestFn(ctx, req)
}

func (f *fakeRepo) UpdateAdRequestStatus(ctx context.Context, uid types.RequestUIDType, status constant.RequestStatus) error {
	if f.updateStatusFn == nil {
		return nil
	}
	return f.updateStatusFn(ctx, uid, string(status))
}

func (f *fakeRepo) MarkAdRequestFailed(ctx context.Context, uid types.RequestUIDType, errMsg string) error {
	if f.markFailedFn == nil {
		return nil
	}
	return f.markFailedFn(ctx, uid, errMsg)
}

func (f *fakeRepo) CompleteAdRequest(ctx context.Context, uid types.RequestUIDType, update repository.AdRequestCompletion) error {
	if f.completeFn == nil {
		return nil
	}
	return f.completeFn(ctx, uid, update)
}

func (f *fakeRepo) CreateAdVariants(ctx context.Context, variants []repository.AdVariant) ([]repository.AdVariant, error) {
	return f.createVariantsFn(ctx, variants)
}

func (f *fakeRepo) GetBestPracticesByUIDs(ctx context.Context, uids []types.KnowledgeUIDType) ([]repository.BestPractice, error) {
	return f.getPracticesFn(ctx, uids)
}

func (f *fakeRepo) GetAdExamplesByUIDs(ctx context.Context, uids []types.KnowledgeUIDType) ([]repository.AdExample, error) {
	return f.getExamplesFn(ctx, uids)
}

func (f *fakeRepo) GetBrandVoiceByTenant(ctx context.Context, tenantUID types.TenantUIDType) (*repository.BrandVoiceProfile, error) {
	if f.getBrandVoiceFn == nil {
		return nil, nil
	}
	return f.getBrandVoiceFn(ctx, tenantUID)
}

// fakeVectorDB implements repository.VectorDatabase.
type fakeVectorDB struct {
	searchFn func(ctx context.Context, param repository.SearchKnowledgeParam) ([]repository.KnowledgeMatch, error)
}

func (f *fakeVectorDB) EnsureCollections(ctx context.Context) error { return nil }

func (f *fakeVectorDB) UpsertKnowledgeVectors(ctx context.Context, collection string, vectors []repository.KnowledgeVector) error {
	return nil
}

func (f *fakeVectorDB) SearchKnowledge(ctx context.Context, param repository.SearchKnowledgeParam) ([]repository.KnowledgeMatch, error) {
	return f.searchFn(ctx, param)
}

func (f *fakeVectorDB) DeleteKnowledgeVectors(ctx context.Context, collection string, itemUIDs []string) error {
	return nil
}

func (f *fakeVectorDB) GetHealth(ctx context.Context) (bool, error) { return true, nil }
func (f *fakeVectorDB) Close()                                      {}

// testRAGContext builds a small retrieval context shared by the generator and
// orchestrator tests.
func testRAGContext() *RAGContext {
	return &RAGContext{
		Query:     "smart alarm clock",
		Embedding: []float32{0.1, 0.2, 0.3},
		BestPractices: []repository.BestPractice{
			{
				UID:         uuid.Must(uuid.NewV4()),
				Title:       "Hook with a question",
				Description: "Open with a question the audience asks themselves.",
				Similarity:  0.91,
			},
			{
				UID:         uuid.Must(uuid.NewV4()),
				Title:       "Quantify the benefit",
				Description: "Numbers outperform adjectives.",
				Similarity:  0.84,
			},
		},
		Examples: []repository.AdExample{
			{
				UID:         uuid.Must(uuid.NewV4()),
				Headline:    "Mornings, fixed",
				PrimaryText: "The alarm that learns when to wake you.",
				Similarity:  0.77,
			},
		},
		Meta: RetrievalMeta{PracticeCount: 2, ExampleCount: 1, AvgSimilarity: 0.84},
	}
}
