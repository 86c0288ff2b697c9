package ai

import "context"

// ChatParams carries one chat-style generation call.
type ChatParams struct {
	// Model identifier, e.g. "gpt-4o". The pipeline picks the model per
	// phase: an expensive, high-temperature call for creative drafting and a
	// cheap, low-temperature call for scoring.
	Model string
	// SystemPrompt frames the task.
	SystemPrompt string
	// UserPrompt is the request body.
	UserPrompt string
	// Temperature controls sampling. Creative drafting runs hot (~0.9),
	// analyst scoring runs cold (~0.1).
	Temperature float64
	// JSONOutput constrains the model to emit a single JSON object.
	JSONOutput bool
	// MaxTokens caps the completion length. Zero means provider default.
	MaxTokens int64
}

// ChatResult is the outcome of a chat call.
type ChatResult struct {
	Content      string
	Model        string
	InputTokens  int64
	OutputTokens int64
}

// EmbedResult is the outcome of an embedding call.
type EmbedResult struct {
	Vectors        [][]float32
	Model          string
	Dimensionality int32
}

// VisionParams carries one vision-model call over a single image.
type VisionParams struct {
	Model    string
	ImageURL string
	Prompt   string
}

// Provider abstracts the external model services the pipeline depends on:
// text embedding, chat-style generation and image understanding.
type Provider interface {
	// Name returns the provider name.
	Name() string

	// EmbedTexts generates one embedding vector per input text.
	EmbedTexts(ctx context.Context, texts []string) (*EmbedResult, error)

	// GetEmbeddingDimensionality returns the vector dimensionality produced
	// by EmbedTexts.
	GetEmbeddingDimensionality() int32

	// Chat performs one chat-style generation call.
	Chat(ctx context.Context, params ChatParams) (*ChatResult, error)

	// AnalyzeImage sends one image plus an instruction prompt to a
	// vision-capable model and returns the raw JSON response.
	AnalyzeImage(ctx context.Context, params VisionParams) (*ChatResult, error)

	// Close releases provider resources.
	Close() error
}
