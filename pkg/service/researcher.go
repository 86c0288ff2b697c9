package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gofrs/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/adforge-ai/adgen-backend/internal/ai"
	"github.com/adforge-ai/adgen-backend/pkg/constant"
	errorsx "github.com/adforge-ai/adgen-backend/pkg/errors"
	"github.com/adforge-ai/adgen-backend/pkg/logger"
	"github.com/adforge-ai/adgen-backend/pkg/repository"
	"github.com/adforge-ai/adgen-backend/pkg/types"
)

// ResearchParam describes one retrieval pass.
type ResearchParam struct {
	Description string
	// ImageTerms enrich the retrieval query with image-analysis vocabulary.
	ImageTerms []string
	Platform   constant.Platform
	Goal       constant.Goal
	Category   string
	Format     string
	// TenantUID, when set, triggers the brand-voice fetch.
	TenantUID *types.TenantUIDType
}

// RetrievalMeta records how a retrieval pass went; persisted on the request
// for inspection.
type RetrievalMeta struct {
	PracticeCount int     `json:"practice_count"`
	ExampleCount  int     `json:"example_count"`
	AvgSimilarity float64 `json:"avg_similarity"`
	LatencyMS     int64   `json:"latency_ms"`
}

// RAGContext is the retrieval result one request generates against. It is
// ephemeral: it exists only for the duration of one request and is never
// persisted as such.
type RAGContext struct {
	Query         string
	Embedding     []float32
	BestPractices []repository.BestPractice
	Examples      []repository.AdExample
	BrandVoice    *repository.BrandVoiceProfile
	Meta          RetrievalMeta
}

// KnowledgeUIDs returns the ids of all retrieved knowledge items, recorded
// on each generated variant.
func (c *RAGContext) KnowledgeUIDs() []string {
	uids := make([]string, 0, len(c.BestPractices)+len(c.Examples))
	for _, p := range c.BestPractices {
		uids = append(uids, p.UID.String())
	}
	for _, e := range c.Examples {
		uids = append(uids, e.UID.String())
	}
	return uids
}

// ResearcherI assembles the RAGContext for one request.
type ResearcherI interface {
	Research(ctx context.Context, param ResearchParam) (*RAGContext, error)
}

// Researcher is the vector-search-backed ResearcherI implementation.
type Researcher struct {
	repository repository.Repository
	vectorDB   repository.VectorDatabase
	aiProvider ai.Provider

	practiceTopK  int
	exampleTopK   int
	practiceFloor float64
	exampleFloor  float64
}

// NewResearcher returns a researcher with the given retrieval caps and
// similarity floors.
func NewResearcher(
	repo repository.Repository,
	vectorDB repository.VectorDatabase,
	aiProvider ai.Provider,
	practiceTopK, exampleTopK int,
	practiceFloor, exampleFloor float64,
) *Researcher {
	if practiceTopK <= 0 {
		practiceTopK = 10
	}
	if exampleTopK <= 0 {
		exampleTopK = 5
	}
	return &Researcher{
		repository:    repo,
		vectorDB:      vectorDB,
		aiProvider:    aiProvider,
		practiceTopK:  practiceTopK,
		exampleTopK:   exampleTopK,
		practiceFloor: practiceFloor,
		exampleFloor:  exampleFloor,
	}
}

// Research embeds the enriched query once, then runs the three retrieval
// sub-calls concurrently: best practices (mandatory), high-performing
// examples (degrades to empty) and the tenant's brand voice (degrades to
// nil). The sub-calls join before the creative phase begins.
func (r *Researcher) Research(ctx context.Context, param ResearchParam) (*RAGContext, error) {
	log, _ := logger.GetZapLogger(ctx)
	start := time.Now()

	query := param.Description
	if len(param.ImageTerms) > 0 {
		query = query + " " + strings.Join(param.ImageTerms, " ")
	}

	embedRes, err := r.aiProvider.EmbedTexts(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("%w: embedding query: %v", errorsx.ErrRetrievalFailed, err)
	}
	if len(embedRes.Vectors) != 1 {
		return nil, fmt.Errorf("%w: expected 1 query vector, got %d", errorsx.ErrRetrievalFailed, len(embedRes.Vectors))
	}
	vector := embedRes.Vectors[0]

	rag := &RAGContext{
		Query:     query,
		Embedding: vector,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		practices, err := r.searchBestPractices(gctx, vector, param)
		if err != nil {
			return err
		}
		rag.BestPractices = practices
		return nil
	})

	g.Go(func() error {
		examples, err := r.searchAdExamples(gctx, vector, param)
		if err != nil {
			// Example retrieval failure is non-fatal and degrades to an
			// empty list.
			log.Warn("example retrieval degraded to empty", zap.Error(err))
			examples = []repository.AdExample{}
		}
		rag.Examples = examples
		return nil
	})

	g.Go(func() error {
		if param.TenantUID == nil {
			return nil
		}
		voice, err := r.repository.GetBrandVoiceByTenant(gctx, *param.TenantUID)
		if err != nil {
			// Brand-voice failure degrades to "no override".
			log.Warn("brand voice fetch degraded to none", zap.Error(err))
			return nil
		}
		rag.BrandVoice = voice
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Exactly three variants are generated from this knowledge; with no best
	// practices at all there is nothing to ground them on.
	if len(rag.BestPractices) == 0 {
		return nil, fmt.Errorf("%w: no best practices matched platform=%s goal=%s category=%s",
			errorsx.ErrRetrievalFailed, param.Platform, param.Goal, param.Category)
	}

	rag.Meta = RetrievalMeta{
		PracticeCount: len(rag.BestPractices),
		ExampleCount:  len(rag.Examples),
		AvgSimilarity: avgSimilarity(rag),
		LatencyMS:     time.Since(start).Milliseconds(),
	}

	return rag, nil
}

func (r *Researcher) searchBestPractices(ctx context.Context, vector []float32, param ResearchParam) ([]repository.BestPractice, error) {
	exprs := []string{
		repository.InExpr(repository.KnowledgeFieldPlatform, []string{string(param.Platform), constant.WildcardAll}),
		repository.InExpr(repository.KnowledgeFieldGoal, []string{string(param.Goal), constant.WildcardAll}),
	}
	if param.Category != "" {
		exprs = append(exprs, repository.InExpr(repository.KnowledgeFieldCategory, []string{param.Category, constant.WildcardAll}))
	}

	matches, err := r.vectorDB.SearchKnowledge(ctx, repository.SearchKnowledgeParam{
		Collection: repository.BestPracticeCollection,
		Vector:     vector,
		TopK:       r.practiceTopK,
		Expr:       strings.Join(exprs, " and "),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: searching best practices: %v", errorsx.ErrRetrievalFailed, err)
	}

	matches = filterByFloor(matches, float32(r.practiceFloor))
	if len(matches) == 0 {
		return []repository.BestPractice{}, nil
	}

	uids, scores, err := matchUIDs(matches)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errorsx.ErrRetrievalFailed, err)
	}

	items, err := r.repository.GetBestPracticesByUIDs(ctx, uids)
	if err != nil {
		return nil, fmt.Errorf("%w: hydrating best practices: %v", errorsx.ErrRetrievalFailed, err)
	}

	// Preserve similarity order and attach the transient scores.
	byUID := make(map[types.KnowledgeUIDType]repository.BestPractice, len(items))
	for _, item := range items {
		byUID[item.UID] = item
	}
	ordered := make([]repository.BestPractice, 0, len(matches))
	for i, uid := range uids {
		item, ok := byUID[uid]
		if !ok {
			continue
		}
		item.Similarity = scores[i]
		ordered = append(ordered, item)
	}
	return ordered, nil
}

func (r *Researcher) searchAdExamples(ctx context.Context, vector []float32, param ResearchParam) ([]repository.AdExample, error) {
	exprs := []string{
		repository.InExpr(repository.KnowledgeFieldPlatform, []string{string(param.Platform), constant.WildcardAll}),
		repository.InExpr(repository.KnowledgeFieldPerformance, []string{string(constant.PerformanceHigh)}),
	}
	if param.Category != "" {
		exprs = append(exprs, repository.InExpr(repository.KnowledgeFieldCategory, []string{param.Category, constant.WildcardAll}))
	}

	matches, err := r.vectorDB.SearchKnowledge(ctx, repository.SearchKnowledgeParam{
		Collection: repository.AdExampleCollection,
		Vector:     vector,
		TopK:       r.exampleTopK,
		Expr:       strings.Join(exprs, " and "),
	})
	if err != nil {
		return nil, fmt.Errorf("searching ad examples: %w", err)
	}

	matches = filterByFloor(matches, float32(r.exampleFloor))
	if len(matches) == 0 {
		return []repository.AdExample{}, nil
	}

	uids, scores, err := matchUIDs(matches)
	if err != nil {
		return nil, err
	}

	items, err := r.repository.GetAdExamplesByUIDs(ctx, uids)
	if err != nil {
		return nil, fmt.Errorf("hydrating ad examples: %w", err)
	}

	byUID := make(map[types.KnowledgeUIDType]repository.AdExample, len(items))
	for _, item := range items {
		byUID[item.UID] = item
	}
	ordered := make([]repository.AdExample, 0, len(matches))
	for i, uid := range uids {
		item, ok := byUID[uid]
		if !ok {
			continue
		}
		item.Similarity = scores[i]
		ordered = append(ordered, item)
	}
	return ordered, nil
}

func filterByFloor(matches []repository.KnowledgeMatch, floor float32) []repository.KnowledgeMatch {
	kept := matches[:0]
	for _, m := range matches {
		if m.Score >= floor {
			kept = append(kept, m)
		}
	}
	return kept
}

func matchUIDs(matches []repository.KnowledgeMatch) ([]types.KnowledgeUIDType, []float32, error) {
	uids := make([]types.KnowledgeUIDType, 0, len(matches))
	scores := make([]float32, 0, len(matches))
	for _, m := range matches {
		uid, err := uuid.FromString(m.ItemUID)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to parse knowledge item uid %q: %w", m.ItemUID, err)
		}
		uids = append(uids, uid)
		scores = append(scores, m.Score)
	}
	return uids, scores, nil
}

func avgSimilarity(rag *RAGContext) float64 {
	var sum float64
	var n int
	for _, p := range rag.BestPractices {
		sum += float64(p.Similarity)
		n++
	}
	for _, e := range rag.Examples {
		sum += float64(e.Similarity)
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}
