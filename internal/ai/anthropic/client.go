// Package anthropic implements models.Provider using the official
// anthropic-sdk-go client.
package anthropic

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/mkrawiec/textsync/pkg/models"
)

// defaultMaxTokens caps the response when the model row sets no limit; the
// Messages API requires an explicit value.
const defaultMaxTokens = 4096

// Config holds the per-model settings for one client.
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature *float64
	MaxTokens   *int64
}

// Client implements models.Provider over the Anthropic Messages API.
type Client struct {
	cfg    Config
	client anthropic.Client
}

// New creates an Anthropic client.
func New(cfg Config) *Client {
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &Client{cfg: cfg, client: anthropic.NewClient(opts...)}
}

func (c *Client) Name() string { return "anthropic" }

func (c *Client) Complete(ctx context.Context, prompt string) (models.Completion, error) {
	maxTokens := int64(defaultMaxTokens)
	if c.cfg.MaxTokens != nil {
		maxTokens = *c.cfg.MaxTokens
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.cfg.Model),
		MaxTokens: maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}
	if c.cfg.Temperature != nil {
		params.Temperature = anthropic.Float(*c.cfg.Temperature)
	}

	msg, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return models.Completion{}, classify(err)
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return models.Completion{}, models.PermanentModelError("anthropic",
			fmt.Errorf("response contains no text blocks"))
	}

	return models.Completion{
		Text:         sb.String(),
		TokensInput:  msg.Usage.InputTokens,
		TokensOutput: msg.Usage.OutputTokens,
		Model:        string(msg.Model),
		FinishReason: string(msg.StopReason),
	}, nil
}

// classify maps SDK errors onto the retry taxonomy. API errors carry an HTTP
// status; everything else is a network-level failure and retryable.
func classify(err error) error {
	var apierr *anthropic.Error
	if errors.As(err, &apierr) {
		return models.NewModelError("anthropic", apierr.StatusCode, err)
	}
	return models.TransientModelError("anthropic", err)
}

var _ models.Provider = (*Client)(nil)
