// Package openai implements models.Provider over the OpenAI chat completions
// protocol. DeepSeek exposes the same protocol and reuses this client.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/mkrawiec/textsync/pkg/models"
)

// Config holds the per-model settings for one client.
type Config struct {
	Name        string
	APIKey      string
	BaseURL     string
	Model       string
	Temperature *float64
	MaxTokens   *int64
	Timeout     time.Duration
}

// Client implements models.Provider using the chat completions endpoint.
type Client struct {
	cfg    Config
	client *http.Client
}

// New creates a chat completions client.
func New(cfg Config) *Client {
	return &Client{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

func (c *Client) Name() string { return c.cfg.Name }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature *float64      `json:"temperature,omitempty"`
	MaxTokens   *int64        `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int64 `json:"prompt_tokens"`
		CompletionTokens int64 `json:"completion_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

func (c *Client) Complete(ctx context.Context, prompt string) (models.Completion, error) {
	body, err := json.Marshal(chatRequest{
		Model:       c.cfg.Model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: c.cfg.Temperature,
		MaxTokens:   c.cfg.MaxTokens,
	})
	if err != nil {
		return models.Completion{}, fmt.Errorf("encoding request: %w", err)
	}

	u := c.cfg.BaseURL + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return models.Completion{}, fmt.Errorf("building request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return models.Completion{}, models.TransientModelError(c.cfg.Name, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return models.Completion{}, models.TransientModelError(c.cfg.Name, err)
	}

	var chat chatResponse
	if jerr := json.Unmarshal(data, &chat); jerr != nil && resp.StatusCode == http.StatusOK {
		return models.Completion{}, models.PermanentModelError(c.cfg.Name,
			fmt.Errorf("decoding response: %w", jerr))
	}

	if resp.StatusCode != http.StatusOK {
		msg := fmt.Errorf("chat completion failed")
		if chat.Error != nil {
			msg = fmt.Errorf("%s", chat.Error.Message)
		}
		return models.Completion{}, models.NewModelError(c.cfg.Name, resp.StatusCode, msg)
	}
	if len(chat.Choices) == 0 {
		return models.Completion{}, models.PermanentModelError(c.cfg.Name,
			fmt.Errorf("response contains no choices"))
	}

	return models.Completion{
		Text:         chat.Choices[0].Message.Content,
		TokensInput:  chat.Usage.PromptTokens,
		TokensOutput: chat.Usage.CompletionTokens,
		Model:        chat.Model,
		FinishReason: chat.Choices[0].FinishReason,
	}, nil
}

var _ models.Provider = (*Client)(nil)
