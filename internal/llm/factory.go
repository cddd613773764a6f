package llm

import (
	"fmt"
	"strings"
	"time"

	"bodyshape-coach/internal/config"
)

// Factory creates the advice collaborator from configuration.
type Factory struct {
	OpenaiAPIKey      string
	OpenaiBaseURL     string
	OpenaiModel       string
	OpenaiMaxTokens   int
	OpenaiTemperature float32
	Timeout           time.Duration
	YandexOAuthToken  string
	YandexFolderID    string
}

func NewFactory(cfg *config.Config) *Factory {
	return &Factory{
		OpenaiAPIKey:      cfg.OpenAIAPIKey,
		OpenaiBaseURL:     cfg.OpenAIBaseURL,
		OpenaiModel:       cfg.OpenAIModel,
		OpenaiMaxTokens:   cfg.OpenAIMaxTokens,
		OpenaiTemperature: cfg.OpenAITemperature,
		Timeout:           cfg.LLMTimeout,
		YandexOAuthToken:  cfg.YandexOAuthToken,
		YandexFolderID:    cfg.YandexFolderID,
	}
}

// CreateClient returns ErrNotConfigured when the provider has no
// credentials; callers then run with local advice only.
func (f *Factory) CreateClient(provider config.LLMProvider) (Client, error) {
	switch config.LLMProvider(strings.ToLower(string(provider))) {
	case config.ProviderOpenAI:
		if f.OpenaiAPIKey == "" {
			return nil, fmt.Errorf("openai: %w", ErrNotConfigured)
		}
		return NewOpenAI(OpenAIOptions{
			APIKey:      f.OpenaiAPIKey,
			BaseURL:     f.OpenaiBaseURL,
			Model:       f.OpenaiModel,
			MaxTokens:   f.OpenaiMaxTokens,
			Temperature: f.OpenaiTemperature,
			Timeout:     f.Timeout,
		}), nil
	case config.ProviderYandex:
		if f.YandexOAuthToken == "" || f.YandexFolderID == "" {
			return nil, fmt.Errorf("yandex: %w", ErrNotConfigured)
		}
		c, err := NewYandex(f.YandexOAuthToken, f.YandexFolderID)
		if err != nil {
			return nil, err
		}
		return c, nil
	default:
		return nil, fmt.Errorf("unknown llm provider: %s", provider)
	}
}
