package reasoning

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chatReply(content string) map[string]any {
	return map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"role": "assistant", "content": content}},
		},
	}
}

func TestCallReturnsFirstChoice(t *testing.T) {
	var gotAuth, gotPath string
	var gotBody struct {
		Model    string `json:"model"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
		Temperature float64 `json:"temperature"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_ = json.NewEncoder(w).Encode(chatReply(`{"action": "HOLD"}`))
	}))
	defer srv.Close()

	c := NewOpenAIChatClient(srv.URL, "sk-test", "test-model", 5*time.Second, 0.3, 0)
	out, err := c.Call(context.Background(), "you are an analyst", "what about NVDA?")
	require.NoError(t, err)

	assert.Equal(t, `{"action": "HOLD"}`, out)
	assert.Equal(t, "Bearer sk-test", gotAuth)
	assert.Equal(t, "/chat/completions", gotPath)
	assert.Equal(t, "test-model", gotBody.Model)
	require.Len(t, gotBody.Messages, 2)
	assert.Equal(t, "system", gotBody.Messages[0].Role)
	assert.Equal(t, "user", gotBody.Messages[1].Role)
	assert.InDelta(t, 0.3, gotBody.Temperature, 1e-9)
}

func TestCallRetriesOnThrottle(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			_ = json.NewEncoder(w).Encode(map[string]any{"error": map[string]any{"message": "rate limited"}})
			return
		}
		_ = json.NewEncoder(w).Encode(chatReply("BUY"))
	}))
	defer srv.Close()

	c := NewOpenAIChatClient(srv.URL, "", "test-model", 5*time.Second, 0, 2)
	out, err := c.Call(context.Background(), "", "prompt")
	require.NoError(t, err)
	assert.Equal(t, "BUY", out)
	assert.Equal(t, int32(2), hits.Load())
}

func TestCallDoesNotRetryClientErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]any{"error": map[string]any{"message": "model not found"}})
	}))
	defer srv.Close()

	c := NewOpenAIChatClient(srv.URL, "", "test-model", 5*time.Second, 0, 2)
	_, err := c.Call(context.Background(), "sys", "prompt")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model not found")
	assert.Equal(t, int32(1), hits.Load(), "400 不重试")
}

func TestCallZeroRetriesIsSingleAttempt(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewOpenAIChatClient(srv.URL, "", "test-model", 5*time.Second, 0, 0)
	_, err := c.Call(context.Background(), "sys", "prompt")
	require.Error(t, err)
	assert.Equal(t, int32(1), hits.Load())
}

func TestEndpointNormalization(t *testing.T) {
	cases := []struct {
		base string
		want string
	}{
		{"https://api.openai.com/v1", "https://api.openai.com/v1/chat/completions"},
		{"https://api.openai.com/v1/", "https://api.openai.com/v1/chat/completions"},
		{"https://api.deepseek.com/v1/chat/completions", "https://api.deepseek.com/v1/chat/completions"},
		{"", "https://api.openai.com/v1/chat/completions"},
	}
	for _, tc := range cases {
		c := &OpenAIChatClient{BaseURL: tc.base}
		assert.Equal(t, tc.want, c.endpoint(), "base=%q", tc.base)
	}
}
