package llm

import (
	"context"
	"errors"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/tripcraft/tripgen/pkg/models"
)

// OpenAIClient talks to the OpenAI chat completions API, or any compatible
// endpoint when baseURL is set.
type OpenAIClient struct {
	client openai.Client
}

// NewOpenAI creates an OpenAIClient. SDK retries are disabled; retry policy
// belongs to the caller.
func NewOpenAI(apiKey, baseURL string) *OpenAIClient {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &OpenAIClient{client: openai.NewClient(opts...)}
}

// Complete sends a system and user message and returns the first choice.
func (c *OpenAIClient) Complete(ctx context.Context, req Request, timeout time.Duration) (Completion, error) {
	ctx, cancel := withTimeout(ctx, timeout)
	defer cancel()

	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(req.Model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(req.System),
			openai.UserMessage(req.User),
		},
	}
	if req.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(req.MaxTokens)
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		status := 0
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			status = apiErr.StatusCode
		}
		return Completion{}, classify(ctx, "openai", status, err)
	}
	usage := models.TokenUsage{
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return Completion{Usage: usage}, classify(ctx, "openai", 0, ErrEmptyResponse)
	}
	return Completion{Content: resp.Choices[0].Message.Content, Usage: usage}, nil
}
