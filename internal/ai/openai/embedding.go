package openai

import (
	"context"
	"fmt"

	"github.com/openai/openai-go/v3"

	"github.com/adforge-ai/adgen-backend/internal/ai"
)

// EmbedTexts generates embeddings for a batch of texts in one API call.
// Failures are returned as-is; retry policy belongs to the caller.
func (p *Provider) EmbedTexts(ctx context.Context, texts []string) (*ai.EmbedResult, error) {
	if len(texts) == 0 {
		return &ai.EmbedResult{
			Vectors:        [][]float32{},
			Model:          p.embeddingModel,
			Dimensionality: DefaultEmbeddingDimension,
		}, nil
	}

	for i, text := range texts {
		if text == "" {
			return nil, fmt.Errorf("cannot generate embeddings: text at index %d is empty", i)
		}
	}

	resp, err := p.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{
			OfArrayOfStrings: texts,
		},
		Model: p.embeddingModel,
	})
	if err != nil {
		return nil, fmt.Errorf("openai embedding call: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(resp.Data))
	}

	vectors := make([][]float32, len(texts))
	for _, emb := range resp.Data {
		if emb.Index < 0 || emb.Index >= int64(len(texts)) {
			return nil, fmt.Errorf("embedding index %d out of range", emb.Index)
		}
		if len(emb.Embedding) == 0 {
			return nil, fmt.Errorf("empty embedding vector at index %d", emb.Index)
		}

		// Convert float64 to float32
		vector := make([]float32, len(emb.Embedding))
		for j, val := range emb.Embedding {
			vector[j] = float32(val)
		}
		vectors[emb.Index] = vector
	}

	return &ai.EmbedResult{
		Vectors:        vectors,
		Model:          p.embeddingModel,
		Dimensionality: DefaultEmbeddingDimension,
	}, nil
}
