package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
	"go.uber.org/zap"

	"github.com/adforge-ai/adgen-backend/pkg/logger"
)

// Fixed collection names. Knowledge is global rather than per-tenant, so the
// two collections are created once and shared.
const (
	BestPracticeCollection = "best_practices"
	AdExampleCollection    = "ad_examples"
)

// Milvus implementation constants
const (
	vectorDim  = 1536
	scannNList = 1024
	metricType = entity.COSINE
	withRaw    = true

	nProbe   = 250
	reorderK = 250

	knowledgeFieldItemUID     = "item_uid"
	knowledgeFieldPlatform    = "platform"
	knowledgeFieldGoal        = "goal"
	knowledgeFieldCategory    = "category"
	knowledgeFieldPerformance = "performance"
	knowledgeFieldEmbedding   = "embedding"
)

// KnowledgeVector is the vector representation of one knowledge item plus the
// scalar metadata used in boolean filter expressions.
type KnowledgeVector struct {
	ItemUID     string
	Platform    string
	Goal        string
	Category    string
	Performance string
	Vector      []float32
}

// KnowledgeMatch is one similarity-search hit.
type KnowledgeMatch struct {
	ItemUID string
	Score   float32
}

// SearchKnowledgeParam contains the parameters for a similarity search over a
// knowledge collection.
type SearchKnowledgeParam struct {
	Collection string
	Vector     []float32
	TopK       int
	// Expr is a milvus boolean expression over the scalar metadata fields,
	// e.g. `platform in ["meta", "all"] and goal in ["conversion", "all"]`.
	Expr string
}

// VectorDatabase implements the necessary use cases to interact with a vector
// database (e.g., Milvus).
type VectorDatabase interface {
	EnsureCollections(ctx context.Context) error
	UpsertKnowledgeVectors(ctx context.Context, collection string, vectors []KnowledgeVector) error
	SearchKnowledge(ctx context.Context, param SearchKnowledgeParam) ([]KnowledgeMatch, error)
	DeleteKnowledgeVectors(ctx context.Context, collection string, itemUIDs []string) error
	GetHealth(ctx context.Context) (bool, error)
	Close()
}

type milvusClient struct {
	c client.Client
}

// NewVectorDatabase returns a VectorDatabase implementation (milvus).
func NewVectorDatabase(ctx context.Context, host, port string) (VectorDatabase, error) {
	c, err := client.NewGrpcClient(ctx, host+":"+port)
	if err != nil {
		return nil, err
	}
	return &milvusClient{c: c}, nil
}

// GetHealth reports whether the milvus cluster is healthy.
func (m *milvusClient) GetHealth(ctx context.Context) (bool, error) {
	h, err := m.c.CheckHealth(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to check health: %w", err)
	}
	if h == nil {
		return false, fmt.Errorf("health check returned nil")
	}
	return h.IsHealthy, nil
}

// EnsureCollections creates the two knowledge collections and their indexes
// if they don't exist yet.
func (m *milvusClient) EnsureCollections(ctx context.Context) error {
	for _, name := range []string{BestPracticeCollection, AdExampleCollection} {
		if err := m.createKnowledgeCollection(ctx, name); err != nil {
			return err
		}
	}
	return nil
}

func (m *milvusClient) createKnowledgeCollection(ctx context.Context, collectionName string) error {
	log, _ := logger.GetZapLogger(ctx)

	// 1. Check if the collection already exists
	has, err := m.c.HasCollection(ctx, collectionName)
	if err != nil {
		return fmt.Errorf("failed to check collection existence: %w", err)
	}
	if has {
		log.Info("Collection already exists", zap.String("collection_name", collectionName))
		return nil
	}

	// 2. Create the collection with the specified schema
	dim := fmt.Sprintf("%d", vectorDim)
	schema := &entity.Schema{
		CollectionName: collectionName,
		Description:    "",
		Fields: []*entity.Field{
			{Name: knowledgeFieldItemUID, DataType: entity.FieldTypeVarChar, PrimaryKey: true, TypeParams: map[string]string{"max_length": "255"}},
			{Name: knowledgeFieldPlatform, DataType: entity.FieldTypeVarChar, TypeParams: map[string]string{"max_length": "32"}},
			{Name: knowledgeFieldGoal, DataType: entity.FieldTypeVarChar, TypeParams: map[string]string{"max_length": "32"}},
			{Name: knowledgeFieldCategory, DataType: entity.FieldTypeVarChar, TypeParams: map[string]string{"max_length": "64"}},
			{Name: knowledgeFieldPerformance, DataType: entity.FieldTypeVarChar, TypeParams: map[string]string{"max_length": "16"}},
			{Name: knowledgeFieldEmbedding, DataType: entity.FieldTypeFloatVector, TypeParams: map[string]string{"dim": dim}},
		},
	}

	if err := m.c.CreateCollection(ctx, schema, 1); err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	// 3. Create index
	index, err := entity.NewIndexSCANN(metricType, scannNList, withRaw)
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	if err := m.c.CreateIndex(ctx, collectionName, knowledgeFieldEmbedding, index, false); err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}

	log.Info("Collection created successfully", zap.String("collection_name", collectionName))
	return nil
}

// UpsertKnowledgeVectors upserts vectors with their filter metadata into a
// knowledge collection.
func (m *milvusClient) UpsertKnowledgeVectors(ctx context.Context, collectionName string, vectors []KnowledgeVector) error {
	has, err := m.c.HasCollection(ctx, collectionName)
	if err != nil {
		return fmt.Errorf("failed to check collection existence: %w", err)
	}
	if !has {
		return fmt.Errorf("collection %s does not exist", collectionName)
	}

	count := len(vectors)
	itemUIDs := make([]string, count)
	platforms := make([]string, count)
	goals := make([]string, count)
	categories := make([]string, count)
	performances := make([]string, count)
	embeddings := make([][]float32, count)

	for i, v := range vectors {
		itemUIDs[i] = v.ItemUID
		platforms[i] = v.Platform
		goals[i] = v.Goal
		categories[i] = v.Category
		performances[i] = v.Performance
		embeddings[i] = v.Vector
	}

	columns := []entity.Column{
		entity.NewColumnVarChar(knowledgeFieldItemUID, itemUIDs),
		entity.NewColumnVarChar(knowledgeFieldPlatform, platforms),
		entity.NewColumnVarChar(knowledgeFieldGoal, goals),
		entity.NewColumnVarChar(knowledgeFieldCategory, categories),
		entity.NewColumnVarChar(knowledgeFieldPerformance, performances),
		entity.NewColumnFloatVector(knowledgeFieldEmbedding, vectorDim, embeddings),
	}

	if _, err := m.c.Upsert(ctx, collectionName, "", columns...); err != nil {
		return fmt.Errorf("failed to upsert vectors: %w", err)
	}

	// Flush so freshly embedded knowledge is immediately searchable.
	if err := m.c.Flush(ctx, collectionName, false); err != nil {
		return fmt.Errorf("failed to flush collection after upsert: %w", err)
	}

	return nil
}

// SearchKnowledge searches a knowledge collection for the vectors most
// similar to the query vector, constrained by the filter expression.
func (m *milvusClient) SearchKnowledge(ctx context.Context, param SearchKnowledgeParam) ([]KnowledgeMatch, error) {
	log, _ := logger.GetZapLogger(ctx)

	has, err := m.c.HasCollection(ctx, param.Collection)
	if err != nil {
		return nil, fmt.Errorf("failed to check collection existence: %w", err)
	}
	if !has {
		return nil, fmt.Errorf("collection %s does not exist", param.Collection)
	}

	if err := m.c.LoadCollection(ctx, param.Collection, false); err != nil {
		return nil, fmt.Errorf("failed to load collection: %w", err)
	}

	sp, err := entity.NewIndexSCANNSearchParam(nProbe, reorderK)
	if err != nil {
		return nil, fmt.Errorf("failed to create search param: %w", err)
	}

	results, err := m.c.Search(
		ctx, param.Collection, nil, param.Expr,
		[]string{knowledgeFieldItemUID},
		[]entity.Vector{entity.FloatVector(param.Vector)},
		knowledgeFieldEmbedding, metricType, param.TopK, sp)
	if err != nil {
		log.Error("failed to search embeddings", zap.Error(err))
		return nil, fmt.Errorf("failed to search embeddings: %w", err)
	}

	matches := []KnowledgeMatch{}
	for _, result := range results {
		itemUIDs, err := getStringData(result.Fields.GetColumn(knowledgeFieldItemUID))
		if err != nil {
			return nil, fmt.Errorf("error with item_uid column: %w", err)
		}
		for i := range itemUIDs {
			matches = append(matches, KnowledgeMatch{
				ItemUID: itemUIDs[i],
				Score:   result.Scores[i],
			})
		}
	}

	return matches, nil
}

// DeleteKnowledgeVectors deletes vectors by item UID.
func (m *milvusClient) DeleteKnowledgeVectors(ctx context.Context, collectionName string, itemUIDs []string) error {
	if len(itemUIDs) == 0 {
		return nil
	}

	// The expression should be in the format: "item_uid in ['pk1', 'pk2', ...]"
	expr := fmt.Sprintf("%s in ['%s']", knowledgeFieldItemUID, strings.Join(itemUIDs, "','"))

	if err := m.c.Delete(ctx, collectionName, "", expr); err != nil {
		return fmt.Errorf("failed to delete embeddings: %w", err)
	}
	if err := m.c.Flush(ctx, collectionName, false); err != nil {
		return fmt.Errorf("failed to flush collection after deletion: %w", err)
	}
	return nil
}

// Close releases the milvus connection.
func (m *milvusClient) Close() {
	m.c.Close()
}

// Helper function to safely get string data from a column
func getStringData(col entity.Column) ([]string, error) {
	switch v := col.(type) {
	case *entity.ColumnVarChar:
		return v.Data(), nil
	case *entity.ColumnString:
		return v.Data(), nil
	default:
		return nil, fmt.Errorf("unexpected column type for string data: %T", col)
	}
}

// InExpr builds a milvus `field in [...]` boolean expression over varchar
// values.
func InExpr(field string, values []string) string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = fmt.Sprintf("%q", v)
	}
	return fmt.Sprintf("%s in [%s]", field, strings.Join(quoted, ", "))
}

// KnowledgeFieldPlatform and friends expose the scalar field names for
// callers that build filter expressions.
const (
	KnowledgeFieldPlatform    = knowledgeFieldPlatform
	KnowledgeFieldGoal        = knowledgeFieldGoal
	KnowledgeFieldCategory    = knowledgeFieldCategory
	KnowledgeFieldPerformance = knowledgeFieldPerformance
)
