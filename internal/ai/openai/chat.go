package openai

import (
	"context"
	"fmt"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/shared"

	"github.com/adforge-ai/adgen-backend/internal/ai"
	errorsx "github.com/adforge-ai/adgen-backend/pkg/errors"
)

// Chat performs one chat completion call. JSONOutput constrains the response
// to a single JSON object via the response_format parameter.
func (p *Provider) Chat(ctx context.Context, params ai.ChatParams) (*ai.ChatResult, error) {
	if params.Model == "" {
		return nil, fmt.Errorf("%w: chat model is required", errorsx.ErrInvalidArgument)
	}
	if params.UserPrompt == "" {
		return nil, fmt.Errorf("%w: prompt cannot be empty", errorsx.ErrInvalidArgument)
	}

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, 2)
	if params.SystemPrompt != "" {
		messages = append(messages, openai.SystemMessage(params.SystemPrompt))
	}
	messages = append(messages, openai.UserMessage(params.UserPrompt))

	req := openai.ChatCompletionNewParams{
		Model:       params.Model,
		Messages:    messages,
		Temperature: openai.Float(params.Temperature),
	}
	if params.MaxTokens > 0 {
		req.MaxCompletionTokens = openai.Int(params.MaxTokens)
	}
	if params.JSONOutput {
		req.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		}
	}

	resp, err := p.client.Chat.Completions.New(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("openai chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai chat completion returned no choices")
	}

	content := resp.Choices[0].Message.Content
	if content == "" {
		return nil, fmt.Errorf("openai chat completion returned empty content")
	}

	return &ai.ChatResult{
		Content:      content,
		Model:        params.Model,
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
	}, nil
}
