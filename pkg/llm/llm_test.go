package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tripcraft/tripgen/pkg/config"
)

var testReq = Request{System: "You plan trips.", User: "Create a 3-day itinerary for Rome.", Model: "test-model", MaxTokens: 512}

func TestOpenAIComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/chat/completions"), r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "test-model", body["model"])
		assert.Len(t, body["messages"], 2)

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"id":"chatcmpl-1","object":"chat.completion","created":1,"model":"test-model",
			"choices":[{"index":0,"message":{"role":"assistant","content":"Day 1: Colosseum"},"finish_reason":"stop"}],
			"usage":{"prompt_tokens":120,"completion_tokens":45,"total_tokens":165}}`)
	}))
	defer srv.Close()

	c := NewOpenAI("sk-test", srv.URL+"/v1")
	got, err := c.Complete(context.Background(), testReq, 5*time.Second)
	require.NoError(t, err)
	assert.Equal(t, "Day 1: Colosseum", got.Content)
	assert.EqualValues(t, 120, got.Usage.PromptTokens)
	assert.EqualValues(t, 45, got.Usage.CompletionTokens)
}

func TestOpenAIServerErrorIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadGateway)
		io.WriteString(w, `{"error":{"message":"upstream down","type":"server_error"}}`)
	}))
	defer srv.Close()

	_, err := NewOpenAI("sk-test", srv.URL+"/v1").Complete(context.Background(), testReq, 5*time.Second)
	require.Error(t, err)
	assert.True(t, IsTransient(err), err)
}

func TestOpenAIBadRequestIsPermanent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		io.WriteString(w, `{"error":{"message":"bad model","type":"invalid_request_error"}}`)
	}))
	defer srv.Close()

	_, err := NewOpenAI("sk-test", srv.URL+"/v1").Complete(context.Background(), testReq, 5*time.Second)
	require.Error(t, err)
	assert.False(t, IsTransient(err), err)
}

func TestOpenAITimeoutIsTransient(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	_, err := NewOpenAI("sk-test", srv.URL+"/v1").Complete(context.Background(), testReq, 50*time.Millisecond)
	require.Error(t, err)
	assert.True(t, IsTransient(err), err)
}

func TestAzureComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "/openai/deployments/")
		assert.True(t, strings.HasSuffix(r.URL.Path, "/chat/completions"), r.URL.Path)
		assert.Equal(t, "az-key", r.Header.Get("api-key"))

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"id":"1","object":"chat.completion","created":1,"model":"test-model",
			"choices":[{"index":0,"message":{"role":"assistant","content":"Day 1: Vatican"},"finish_reason":"stop"}],
			"usage":{"prompt_tokens":80,"completion_tokens":20,"total_tokens":100}}`)
	}))
	defer srv.Close()

	got, err := NewAzure("az-key", srv.URL).Complete(context.Background(), testReq, 5*time.Second)
	require.NoError(t, err)
	assert.Equal(t, "Day 1: Vatican", got.Content)
	assert.EqualValues(t, 80, got.Usage.PromptTokens)
	assert.EqualValues(t, 20, got.Usage.CompletionTokens)
}

func TestAzureThrottleIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		io.WriteString(w, `{"error":{"message":"slow down","type":"rate_limit","code":"429"}}`)
	}))
	defer srv.Close()

	_, err := NewAzure("az-key", srv.URL).Complete(context.Background(), testReq, 5*time.Second)
	require.Error(t, err)
	assert.True(t, IsTransient(err), err)
}

func TestAnthropicComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/v1/messages"), r.URL.Path)
		assert.Equal(t, "ant-key", r.Header.Get("X-Api-Key"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "test-model", body["model"])
		assert.NotNil(t, body["system"])

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"id":"msg_1","type":"message","role":"assistant","model":"test-model",
			"content":[{"type":"text","text":"Day 1: "},{"type":"text","text":"Trastevere"}],
			"stop_reason":"end_turn","usage":{"input_tokens":200,"output_tokens":60}}`)
	}))
	defer srv.Close()

	got, err := NewAnthropic("ant-key", srv.URL).Complete(context.Background(), testReq, 5*time.Second)
	require.NoError(t, err)
	assert.Equal(t, "Day 1: Trastevere", got.Content)
	assert.EqualValues(t, 200, got.Usage.PromptTokens)
	assert.EqualValues(t, 60, got.Usage.CompletionTokens)
}

func TestAnthropicOverloadedIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(529)
		io.WriteString(w, `{"type":"error","error":{"type":"overloaded_error","message":"Overloaded"}}`)
	}))
	defer srv.Close()

	_, err := NewAnthropic("ant-key", srv.URL).Complete(context.Background(), testReq, 5*time.Second)
	require.Error(t, err)
	assert.True(t, IsTransient(err), err)
}

func TestGeminiComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "test-model:generateContent")

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"candidates":[{"content":{"role":"model","parts":[{"text":"Day 1: Pantheon"}]},"finishReason":"STOP"}],
			"usageMetadata":{"promptTokenCount":90,"candidatesTokenCount":30,"totalTokenCount":120}}`)
	}))
	defer srv.Close()

	c, err := NewGemini(context.Background(), "g-key", srv.URL)
	require.NoError(t, err)
	got, err := c.Complete(context.Background(), testReq, 5*time.Second)
	require.NoError(t, err)
	assert.Equal(t, "Day 1: Pantheon", got.Content)
	assert.EqualValues(t, 90, got.Usage.PromptTokens)
	assert.EqualValues(t, 30, got.Usage.CompletionTokens)
}

func TestTransportErrorIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := NewOpenAI("sk-test", url+"/v1").Complete(context.Background(), testReq, time.Second)
	require.Error(t, err)
	assert.True(t, IsTransient(err), err)
}

func TestClassify(t *testing.T) {
	ctx := context.Background()
	base := errors.New("boom")

	assert.True(t, IsTransient(classify(ctx, "p", 500, base)))
	assert.True(t, IsTransient(classify(ctx, "p", 429, base)))
	assert.True(t, IsTransient(classify(ctx, "p", 0, context.DeadlineExceeded)))
	assert.False(t, IsTransient(classify(ctx, "p", 401, base)))
	assert.False(t, IsTransient(classify(ctx, "p", 0, base)))

	// The original error stays reachable.
	assert.ErrorIs(t, classify(ctx, "p", 503, base), base)
}

func TestRegistry(t *testing.T) {
	r, err := FromConfig(context.Background(), []config.ProviderConfig{
		{Name: "oa", Type: "openai", APIKey: "k"},
		{Name: "an", Type: "anthropic", APIKey: "k"},
		{Name: "az", Type: "azure", APIKey: "k", URL: "https://example.openai.azure.com"},
	})
	require.NoError(t, err)

	c, err := r.Client("an")
	require.NoError(t, err)
	assert.IsType(t, &AnthropicClient{}, c)

	_, err = r.Client("missing")
	assert.Error(t, err)

	_, err = FromConfig(context.Background(), []config.ProviderConfig{{Name: "x", Type: "bard"}})
	assert.Error(t, err)
	_, err = FromConfig(context.Background(), []config.ProviderConfig{{Name: "x", Type: "azure"}})
	assert.Error(t, err)
}

func TestEmptyResponseKeepsBilledUsage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"id":"chatcmpl-2","object":"chat.completion","created":1,"model":"test-model",
			"choices":[{"index":0,"message":{"role":"assistant","content":""},"finish_reason":"length"}],
			"usage":{"prompt_tokens":300,"completion_tokens":512,"total_tokens":812}}`)
	}))
	defer srv.Close()

	got, err := NewOpenAI("sk-test", srv.URL+"/v1").Complete(context.Background(), testReq, 5*time.Second)
	require.ErrorIs(t, err, ErrEmptyResponse)
	assert.False(t, IsTransient(err))
	assert.EqualValues(t, 300, got.Usage.PromptTokens)
	assert.EqualValues(t, 512, got.Usage.CompletionTokens)
}

func TestAnthropicEmptyResponseKeepsBilledUsage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"id":"msg_2","type":"message","role":"assistant","model":"test-model",
			"content":[],"stop_reason":"max_tokens","usage":{"input_tokens":210,"output_tokens":0}}`)
	}))
	defer srv.Close()

	got, err := NewAnthropic("ant-key", srv.URL).Complete(context.Background(), testReq, 5*time.Second)
	require.ErrorIs(t, err, ErrEmptyResponse)
	assert.EqualValues(t, 210, got.Usage.PromptTokens)
}

func TestNonPositiveTimeoutStillBounded(t *testing.T) {
	ctx, cancel := withTimeout(context.Background(), 0)
	defer cancel()
	deadline, ok := ctx.Deadline()
	require.True(t, ok)
	assert.WithinDuration(t, time.Now().Add(DefaultCallTimeout), deadline, time.Second)
}
