// Package mock provides a models.Provider for tests.
package mock

import (
	"context"
	"fmt"

	"github.com/mkrawiec/textsync/pkg/models"
)

// MockProvider satisfies models.Provider for testing.
type MockProvider struct {
	Name_        string
	CompleteFunc func(ctx context.Context, prompt string) (models.Completion, error)
	Calls        int
}

func (m *MockProvider) Name() string { return m.Name_ }

func (m *MockProvider) Complete(ctx context.Context, prompt string) (models.Completion, error) {
	m.Calls++
	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, prompt)
	}
	return models.Completion{}, nil
}

// NewEchoProvider returns a provider that answers the correction contract
// with the prompt's text unchanged.
func NewEchoProvider(corrected string) *MockProvider {
	return &MockProvider{
		Name_: "mock",
		CompleteFunc: func(_ context.Context, _ string) (models.Completion, error) {
			return models.Completion{
				Text:         fmt.Sprintf(`{"corrected": %q, "summary": %q}`, corrected, ""),
				TokensInput:  100,
				TokensOutput: 50,
				Model:        "mock-v1",
				FinishReason: "stop",
			}, nil
		},
	}
}

// NewFailingProvider returns a provider that always returns the given error.
func NewFailingProvider(err error) *MockProvider {
	return &MockProvider{
		Name_: "mock-failing",
		CompleteFunc: func(_ context.Context, _ string) (models.Completion, error) {
			return models.Completion{}, err
		},
	}
}

// NewTimeoutProvider returns a provider that blocks until context is cancelled.
func NewTimeoutProvider() *MockProvider {
	return &MockProvider{
		Name_: "mock-timeout",
		CompleteFunc: func(ctx context.Context, _ string) (models.Completion, error) {
			<-ctx.Done()
			return models.Completion{}, models.TransientModelError("mock-timeout", ctx.Err())
		},
	}
}

// Compile-time check that MockProvider implements Provider.
var _ models.Provider = (*MockProvider)(nil)
