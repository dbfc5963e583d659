package ai_test

import (
	"testing"
	"time"

	"github.com/mkrawiec/textsync/internal/ai"
	"github.com/mkrawiec/textsync/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func modelFor(provider string) *models.AIModel {
	return &models.AIModel{
		Provider:  provider,
		ModelName: "test-model",
		APIKey:    "sk-test",
		IsActive:  true,
	}
}

func TestNewProvider_OpenAI(t *testing.T) {
	p, err := ai.NewProvider(modelFor(models.ProviderOpenAI), time.Second)
	require.NoError(t, err)
	assert.Equal(t, "openai", p.Name())
}

func TestNewProvider_DeepSeek(t *testing.T) {
	p, err := ai.NewProvider(modelFor(models.ProviderDeepSeek), time.Second)
	require.NoError(t, err)
	assert.Equal(t, "deepseek", p.Name())
}

func TestNewProvider_Anthropic(t *testing.T) {
	p, err := ai.NewProvider(modelFor(models.ProviderAnthropic), time.Second)
	require.NoError(t, err)
	assert.Equal(t, "anthropic", p.Name())
}

func TestNewProvider_Google(t *testing.T) {
	p, err := ai.NewProvider(modelFor(models.ProviderGoogle), time.Second)
	require.NoError(t, err)
	assert.Equal(t, "google", p.Name())
}

func TestNewProvider_Unknown(t *testing.T) {
	_, err := ai.NewProvider(modelFor("Mistral"), time.Second)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown AI provider")
	assert.Contains(t, err.Error(), "Mistral")
}
