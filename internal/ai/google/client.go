// Package google implements models.Provider over the Gemini generateContent
// REST API.
package google

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mkrawiec/textsync/pkg/models"
)

// Config holds the per-model settings for one client.
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature *float64
	MaxTokens   *int64
	Timeout     time.Duration
}

// Client implements models.Provider using the Gemini REST API.
type Client struct {
	cfg    Config
	client *http.Client
}

// New creates a Gemini client.
func New(cfg Config) *Client {
	return &Client{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

func (c *Client) Name() string { return "google" }

type contentPart struct {
	Text string `json:"text"`
}

type content struct {
	Parts []contentPart `json:"parts"`
}

type generateRequest struct {
	Contents         []content         `json:"contents"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
}

type generationConfig struct {
	Temperature     *float64 `json:"temperature,omitempty"`
	MaxOutputTokens *int64   `json:"maxOutputTokens,omitempty"`
}

type candidate struct {
	Content      content `json:"content"`
	FinishReason string  `json:"finishReason"`
}

type generateResponse struct {
	Candidates    []candidate `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int64 `json:"promptTokenCount"`
		CandidatesTokenCount int64 `json:"candidatesTokenCount"`
	} `json:"usageMetadata"`
	Error *struct {
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

func (c *Client) Complete(ctx context.Context, prompt string) (models.Completion, error) {
	req := generateRequest{
		Contents: []content{{Parts: []contentPart{{Text: prompt}}}},
	}
	if c.cfg.Temperature != nil || c.cfg.MaxTokens != nil {
		req.GenerationConfig = &generationConfig{
			Temperature:     c.cfg.Temperature,
			MaxOutputTokens: c.cfg.MaxTokens,
		}
	}

	body, err := json.Marshal(req)
	if err != nil {
		return models.Completion{}, fmt.Errorf("encoding request: %w", err)
	}

	u := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.cfg.BaseURL, c.cfg.Model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return models.Completion{}, fmt.Errorf("building request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", c.cfg.APIKey)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return models.Completion{}, models.TransientModelError("google", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return models.Completion{}, models.TransientModelError("google", err)
	}

	var gen generateResponse
	if jerr := json.Unmarshal(data, &gen); jerr != nil && resp.StatusCode == http.StatusOK {
		return models.Completion{}, models.PermanentModelError("google",
			fmt.Errorf("decoding response: %w", jerr))
	}

	if resp.StatusCode != http.StatusOK {
		msg := fmt.Errorf("generateContent failed")
		if gen.Error != nil {
			msg = fmt.Errorf("%s (%s)", gen.Error.Message, gen.Error.Status)
		}
		return models.Completion{}, models.NewModelError("google", resp.StatusCode, msg)
	}
	if len(gen.Candidates) == 0 {
		return models.Completion{}, models.PermanentModelError("google",
			fmt.Errorf("response contains no candidates"))
	}

	var sb strings.Builder
	for _, part := range gen.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}

	return models.Completion{
		Text:         sb.String(),
		TokensInput:  gen.UsageMetadata.PromptTokenCount,
		TokensOutput: gen.UsageMetadata.CandidatesTokenCount,
		Model:        c.cfg.Model,
		FinishReason: gen.Candidates[0].FinishReason,
	}, nil
}

var _ models.Provider = (*Client)(nil)
