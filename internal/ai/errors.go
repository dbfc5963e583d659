// Package ai runs the correction pipeline: it feeds pending task items to a
// configured model provider, validates the output and accounts for usage.
package ai

import "errors"

var (
	// ErrNoModel means the task has no active AI model attached.
	ErrNoModel = errors.New("no ai model configured")
	// ErrInvalidResponse means the model output did not follow the JSON
	// contract the prompt demands.
	ErrInvalidResponse = errors.New("ai provider returned invalid response")
	// ErrInterrupted means the task was cancelled or paused externally while
	// the pipeline was running.
	ErrInterrupted = errors.New("processing interrupted")
)
