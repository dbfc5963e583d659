package ai

import (
	"fmt"
	"time"

	"github.com/mkrawiec/textsync/internal/ai/anthropic"
	"github.com/mkrawiec/textsync/internal/ai/google"
	"github.com/mkrawiec/textsync/internal/ai/openai"
	"github.com/mkrawiec/textsync/pkg/models"
)

// NewProvider constructs the provider matching a stored model row. DeepSeek
// speaks the OpenAI chat protocol, so it shares the openai client with a
// different base URL.
func NewProvider(model *models.AIModel, timeout time.Duration) (models.Provider, error) {
	switch model.Provider {
	case models.ProviderOpenAI:
		return openai.New(openai.Config{
			Name:        "openai",
			APIKey:      model.APIKey,
			BaseURL:     or(model.BaseURL, "https://api.openai.com/v1"),
			Model:       model.ModelName,
			Temperature: model.Temperature,
			MaxTokens:   model.MaxTokens,
			Timeout:     timeout,
		}), nil
	case models.ProviderDeepSeek:
		return openai.New(openai.Config{
			Name:        "deepseek",
			APIKey:      model.APIKey,
			BaseURL:     or(model.BaseURL, "https://api.deepseek.com/v1"),
			Model:       model.ModelName,
			Temperature: model.Temperature,
			MaxTokens:   model.MaxTokens,
			Timeout:     timeout,
		}), nil
	case models.ProviderAnthropic:
		return anthropic.New(anthropic.Config{
			APIKey:      model.APIKey,
			BaseURL:     model.BaseURL,
			Model:       model.ModelName,
			Temperature: model.Temperature,
			MaxTokens:   model.MaxTokens,
		}), nil
	case models.ProviderGoogle:
		return google.New(google.Config{
			APIKey:      model.APIKey,
			BaseURL:     or(model.BaseURL, "https://generativelanguage.googleapis.com"),
			Model:       model.ModelName,
			Temperature: model.Temperature,
			MaxTokens:   model.MaxTokens,
			Timeout:     timeout,
		}), nil
	default:
		return nil, fmt.Errorf("unknown AI provider %q: must be one of OpenAI, DeepSeek, Google, Anthropic", model.Provider)
	}
}

func or(v, fallback string) string {
	if v != "" {
		return v
	}
	return fallback
}
