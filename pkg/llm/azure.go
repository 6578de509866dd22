package llm

import (
	"context"
	"errors"
	"time"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/tripcraft/tripgen/pkg/models"
)

// AzureClient talks to Azure OpenAI. The request model is used as the
// deployment name.
type AzureClient struct {
	client *goopenai.Client
}

// NewAzure creates an AzureClient for https://{resource}.openai.azure.com.
func NewAzure(apiKey, baseURL string) *AzureClient {
	cfg := goopenai.DefaultAzureConfig(apiKey, baseURL)
	return &AzureClient{client: goopenai.NewClientWithConfig(cfg)}
}

// Complete sends a system and user message to the deployment.
func (c *AzureClient) Complete(ctx context.Context, req Request, timeout time.Duration) (Completion, error) {
	ctx, cancel := withTimeout(ctx, timeout)
	defer cancel()

	resp, err := c.client.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
		Model: req.Model,
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleSystem, Content: req.System},
			{Role: goopenai.ChatMessageRoleUser, Content: req.User},
		},
		MaxTokens: int(req.MaxTokens),
	})
	if err != nil {
		return Completion{}, classify(ctx, "azure", azureStatus(err), err)
	}
	usage := models.TokenUsage{
		PromptTokens:     int64(resp.Usage.PromptTokens),
		CompletionTokens: int64(resp.Usage.CompletionTokens),
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return Completion{Usage: usage}, classify(ctx, "azure", 0, ErrEmptyResponse)
	}
	return Completion{Content: resp.Choices[0].Message.Content, Usage: usage}, nil
}

func azureStatus(err error) int {
	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	return 0
}
