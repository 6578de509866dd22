package llm

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/tripcraft/tripgen/pkg/models"
)

const defaultAnthropicMaxTokens = 4096

// AnthropicClient talks to the Anthropic Messages API.
type AnthropicClient struct {
	client anthropic.Client
}

// NewAnthropic creates an AnthropicClient with SDK retries disabled.
func NewAnthropic(apiKey, baseURL string) *AnthropicClient {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &AnthropicClient{client: anthropic.NewClient(opts...)}
}

// Complete sends the user prompt with the system prompt and concatenates
// the text blocks of the reply.
func (c *AnthropicClient) Complete(ctx context.Context, req Request, timeout time.Duration) (Completion, error) {
	ctx, cancel := withTimeout(ctx, timeout)
	defer cancel()

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultAnthropicMaxTokens
	}

	resp, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(req.Model),
		MaxTokens: maxTokens,
		System:    []anthropic.TextBlockParam{{Text: req.System}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.User)),
		},
	})
	if err != nil {
		status := 0
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			status = apiErr.StatusCode
		}
		return Completion{}, classify(ctx, "anthropic", status, err)
	}

	var content strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			content.WriteString(block.Text)
		}
	}
	usage := models.TokenUsage{
		PromptTokens:     resp.Usage.InputTokens,
		CompletionTokens: resp.Usage.OutputTokens,
	}
	if content.Len() == 0 {
		return Completion{Usage: usage}, classify(ctx, "anthropic", 0, ErrEmptyResponse)
	}
	return Completion{Content: content.String(), Usage: usage}, nil
}
