package openai

import (
	"context"
	"fmt"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/shared"

	"github.com/adforge-ai/adgen-backend/internal/ai"
	errorsx "github.com/adforge-ai/adgen-backend/pkg/errors"
)

// AnalyzeImage sends one image URL plus an instruction prompt to a
// vision-capable chat model. The response is constrained to a JSON object so
// the caller can decode it against a fixed schema. The image stays a URL
// reference end to end; no bytes are fetched by this backend.
func (p *Provider) AnalyzeImage(ctx context.Context, params ai.VisionParams) (*ai.ChatResult, error) {
	if params.Model == "" {
		return nil, fmt.Errorf("%w: vision model is required", errorsx.ErrInvalidArgument)
	}
	if params.ImageURL == "" {
		return nil, fmt.Errorf("%w: image URL cannot be empty", errorsx.ErrInvalidArgument)
	}
	if params.Prompt == "" {
		return nil, fmt.Errorf("%w: vision prompt cannot be empty", errorsx.ErrInvalidArgument)
	}

	resp, err := p.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: params.Model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
				openai.TextContentPart(params.Prompt),
				openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
					URL: params.ImageURL,
				}),
			}),
		},
		// Vision classification favors determinism.
		Temperature: openai.Float(0.1),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("openai vision call failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai vision call returned no choices")
	}

	content := resp.Choices[0].Message.Content
	if content == "" {
		return nil, fmt.Errorf("openai vision call returned empty content")
	}

	return &ai.ChatResult{
		Content:      content,
		Model:        params.Model,
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
	}, nil
}
