package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mkrawiec/textsync/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(baseURL string) *Client {
	return New(Config{
		Name:    "openai",
		APIKey:  "sk-test",
		BaseURL: baseURL,
		Model:   "gpt-4o-mini",
		Timeout: 5 * time.Second,
	})
}

func TestComplete_ValidResponse(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("unexpected authorization header: %s", got)
		}

		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gpt-4o-mini", req.Model)
		require.Len(t, req.Messages, 1)
		assert.Equal(t, "user", req.Messages[0].Role)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"model": "gpt-4o-mini-2024",
			"choices": []map[string]any{
				{
					"message":       map[string]string{"role": "assistant", "content": `{"corrected": "ok", "summary": ""}`},
					"finish_reason": "stop",
				},
			},
			"usage": map[string]int{"prompt_tokens": 120, "completion_tokens": 30},
		})
	}))
	defer ts.Close()

	c := newTestClient(ts.URL)
	got, err := c.Complete(context.Background(), "fix this")
	require.NoError(t, err)
	assert.Equal(t, `{"corrected": "ok", "summary": ""}`, got.Text)
	assert.Equal(t, int64(120), got.TokensInput)
	assert.Equal(t, int64(30), got.TokensOutput)
	assert.Equal(t, "gpt-4o-mini-2024", got.Model)
	assert.Equal(t, "stop", got.FinishReason)
}

func TestComplete_RateLimitIsTransient(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]string{"message": "rate limit exceeded", "type": "rate_limit_error"},
		})
	}))
	defer ts.Close()

	_, err := newTestClient(ts.URL).Complete(context.Background(), "fix this")
	require.Error(t, err)
	assert.True(t, models.IsTransient(err))

	var me *models.ModelError
	require.True(t, errors.As(err, &me))
	assert.Equal(t, http.StatusTooManyRequests, me.Status)
}

func TestComplete_AuthFailureIsPermanent(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]string{"message": "invalid api key", "type": "auth_error"},
		})
	}))
	defer ts.Close()

	_, err := newTestClient(ts.URL).Complete(context.Background(), "fix this")
	require.Error(t, err)
	assert.False(t, models.IsTransient(err))
	assert.Contains(t, err.Error(), "invalid api key")
}

func TestComplete_ServerErrorIsTransient(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer ts.Close()

	_, err := newTestClient(ts.URL).Complete(context.Background(), "fix this")
	require.Error(t, err)
	assert.True(t, models.IsTransient(err))
}

func TestComplete_NoChoicesIsPermanent(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"choices": []any{}})
	}))
	defer ts.Close()

	_, err := newTestClient(ts.URL).Complete(context.Background(), "fix this")
	require.Error(t, err)
	assert.False(t, models.IsTransient(err))
}

func TestComplete_ConnectionRefusedIsTransient(t *testing.T) {
	_, err := newTestClient("http://127.0.0.1:1").Complete(context.Background(), "fix this")
	require.Error(t, err)
	assert.True(t, models.IsTransient(err))
}
