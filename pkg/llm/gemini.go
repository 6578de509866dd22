package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"google.golang.org/genai"

	"github.com/tripcraft/tripgen/pkg/models"
)

// GeminiClient talks to the Gemini API.
type GeminiClient struct {
	client *genai.Client
}

// NewGemini creates a GeminiClient. baseURL overrides the API endpoint.
func NewGemini(ctx context.Context, apiKey, baseURL string) (*GeminiClient, error) {
	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	return &GeminiClient{client: client}, nil
}

// Complete generates content with the system prompt as system instruction.
func (c *GeminiClient) Complete(ctx context.Context, req Request, timeout time.Duration) (Completion, error) {
	ctx, cancel := withTimeout(ctx, timeout)
	defer cancel()

	gc := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(req.System, genai.RoleUser),
	}
	if req.MaxTokens > 0 {
		gc.MaxOutputTokens = int32(req.MaxTokens)
	}

	resp, err := c.client.Models.GenerateContent(ctx, req.Model, genai.Text(req.User), gc)
	if err != nil {
		status := 0
		var apiErr genai.APIError
		var apiErrPtr *genai.APIError
		switch {
		case errors.As(err, &apiErr):
			status = apiErr.Code
		case errors.As(err, &apiErrPtr):
			status = apiErrPtr.Code
		}
		return Completion{}, classify(ctx, "gemini", status, err)
	}

	var usage models.TokenUsage
	if resp.UsageMetadata != nil {
		usage.PromptTokens = int64(resp.UsageMetadata.PromptTokenCount)
		usage.CompletionTokens = int64(resp.UsageMetadata.CandidatesTokenCount)
	}
	content := resp.Text()
	if content == "" {
		return Completion{Usage: usage}, classify(ctx, "gemini", 0, ErrEmptyResponse)
	}
	return Completion{Content: content, Usage: usage}, nil
}
