package openai

import (
	"context"
	"fmt"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	errorsx "github.com/adforge-ai/adgen-backend/pkg/errors"
)

// Provider implements the ai.Provider interface for OpenAI. A single client
// serves the three call shapes the pipeline needs: embeddings, chat
// completions and vision-over-image-URL.
type Provider struct {
	client         *openai.Client
	embeddingModel string
}

// NewProvider creates a new OpenAI AI provider
func NewProvider(ctx context.Context, apiKey, embeddingModel string) (*Provider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: OpenAI API key is missing", errorsx.ErrInvalidArgument)
	}
	if embeddingModel == "" {
		embeddingModel = DefaultEmbeddingModel
	}

	// The SDK retries transient failures twice by default; the pipeline
	// leaves retry decisions to its callers.
	client := openai.NewClient(
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	)

	return &Provider{
		client:         &client,
		embeddingModel: embeddingModel,
	}, nil
}

// Name returns the provider name
func (p *Provider) Name() string {
	return ModelFamily
}

// GetEmbeddingDimensionality returns the OpenAI embedding vector dimensionality (1536)
func (p *Provider) GetEmbeddingDimensionality() int32 {
	return DefaultEmbeddingDimension
}

// Close releases provider resources
func (p *Provider) Close() error {
	return nil
}
