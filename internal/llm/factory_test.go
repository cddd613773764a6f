package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bodyshape-coach/internal/config"
)

func TestCreateClient_NotConfigured(t *testing.T) {
	f := &Factory{}

	_, err := f.CreateClient(config.ProviderOpenAI)
	assert.True(t, errors.Is(err, ErrNotConfigured))

	_, err = f.CreateClient("YANDEX")
	assert.True(t, errors.Is(err, ErrNotConfigured))

	_, err = f.CreateClient("claude")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrNotConfigured))
}

func TestNewFactory_ProviderFromConfig(t *testing.T) {
	cfg := &config.Config{LLMProvider: config.ProviderOpenAI, OpenAIAPIKey: "sk-test", OpenAIModel: "gpt-test"}
	c, err := NewFactory(cfg).CreateClient(cfg.LLMProvider)
	require.NoError(t, err)
	assert.IsType(t, &OpenAIClient{}, c)

	_, err = NewFactory(cfg).CreateClient(config.ProviderYandex)
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestCreateClient_OpenAI(t *testing.T) {
	f := &Factory{OpenaiAPIKey: "sk-test", OpenaiModel: "gpt-test", Timeout: time.Second}
	c, err := f.CreateClient("OpenAI")
	require.NoError(t, err)
	oc, ok := c.(*OpenAIClient)
	require.True(t, ok)
	assert.Equal(t, "gpt-test", oc.model)
}

func TestOpenAIClient_Generate(t *testing.T) {
	var got struct {
		Model       string  `json:"model"`
		MaxTokens   int     `json:"max_tokens"`
		Temperature float32 `json:"temperature"`
		Messages    []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"Do squats."}}],"usage":{"prompt_tokens":3,"completion_tokens":2,"total_tokens":5}}`))
	}))
	defer srv.Close()

	c := NewOpenAI(OpenAIOptions{APIKey: "k", BaseURL: srv.URL, MaxTokens: 600, Temperature: 0.7})
	resp, err := c.Generate(context.Background(), []Message{
		{Role: RoleSystem, Content: "coach"},
		{Role: RoleUser, Content: "legs?"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Do squats.", resp.Content)
	assert.Equal(t, 5, resp.TotalTokens)

	assert.Equal(t, "gpt-3.5-turbo", got.Model)
	assert.Equal(t, 600, got.MaxTokens)
	assert.InDelta(t, 0.7, got.Temperature, 0.001)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "legs?", got.Messages[1].Content)
}

func TestOpenAIClient_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "Bearer empty" {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"choices":[]}`))
			return
		}
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"slow down","type":"rate_limit"}}`))
	}))
	defer srv.Close()

	c := NewOpenAI(OpenAIOptions{APIKey: "k", BaseURL: srv.URL})
	_, err := c.Generate(context.Background(), []Message{{Role: RoleUser, Content: "hi"}})
	assert.Error(t, err)

	c = NewOpenAI(OpenAIOptions{APIKey: "empty", BaseURL: srv.URL})
	_, err = c.Generate(context.Background(), []Message{{Role: RoleUser, Content: "hi"}})
	assert.True(t, errors.Is(err, ErrEmptyResponse))
}
