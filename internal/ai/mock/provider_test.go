package mock_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mkrawiec/textsync/internal/ai/mock"
	"github.com/mkrawiec/textsync/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- NewEchoProvider ---

func TestNewEchoProvider_Name(t *testing.T) {
	p := mock.NewEchoProvider("text")
	assert.Equal(t, "mock", p.Name())
}

func TestNewEchoProvider_Complete(t *testing.T) {
	p := mock.NewEchoProvider("the corrected text")
	c, err := p.Complete(context.Background(), "any prompt")

	require.NoError(t, err)
	assert.JSONEq(t, `{"corrected": "the corrected text", "summary": ""}`, c.Text)
	assert.Equal(t, int64(100), c.TokensInput)
	assert.Equal(t, int64(50), c.TokensOutput)
	assert.Equal(t, "mock-v1", c.Model)
	assert.Equal(t, "stop", c.FinishReason)
}

func TestNewEchoProvider_CountsCalls(t *testing.T) {
	p := mock.NewEchoProvider("text")
	_, _ = p.Complete(context.Background(), "one")
	_, _ = p.Complete(context.Background(), "two")
	assert.Equal(t, 2, p.Calls)
}

// --- NewFailingProvider ---

func TestNewFailingProvider_Complete(t *testing.T) {
	custom := errors.New("custom AI error")
	p := mock.NewFailingProvider(custom)

	_, err := p.Complete(context.Background(), "prompt")
	assert.ErrorIs(t, err, custom)
	assert.Equal(t, "mock-failing", p.Name())
}

// --- NewTimeoutProvider ---

func TestNewTimeoutProvider_Complete(t *testing.T) {
	p := mock.NewTimeoutProvider()
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := p.Complete(ctx, "prompt")
	assert.True(t, models.IsTransient(err))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

// --- Zero-value MockProvider ---

func TestMockProvider_NilFunc(t *testing.T) {
	p := &mock.MockProvider{Name_: "bare"}

	c, err := p.Complete(context.Background(), "prompt")
	assert.NoError(t, err)
	assert.Equal(t, models.Completion{}, c)
	assert.Equal(t, 1, p.Calls)
}
