package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mikey/chatguard/internal/config"
	"github.com/mikey/chatguard/internal/utils"
	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	apiCfg := openai.DefaultConfig("test-key")
	apiCfg.BaseURL = srv.URL + "/v1"

	logger := zap.NewNop()
	return NewClient(openai.NewClientWithConfig(apiCfg), config.OpenAIConfig{
		ModelName:   "gpt-test",
		MaxTokens:   64,
		MaxTextSize: 16,
	}, logger, utils.NewTextProcessor(logger))
}

func TestClassify(t *testing.T) {
	var got openai.ChatCompletionRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(openai.ChatCompletionResponse{
			ID: "cmpl-1",
			Choices: []openai.ChatCompletionChoice{{
				Message: openai.ChatCompletionMessage{
					Role:    openai.ChatMessageRoleAssistant,
					Content: `{"matches": true, "score": 0.95, "confidence": 0.9, "explanation": "server ad"}`,
				},
			}},
		})
	})

	verdict, err := client.Classify(context.Background(), "advertises a server", "join my server at play.example.net")
	require.NoError(t, err)
	assert.True(t, verdict.Matches)
	assert.InDelta(t, 0.95, verdict.Score, 1e-9)
	assert.Equal(t, "gpt-test", verdict.ModelUsed)

	assert.Equal(t, "gpt-test", got.Model)
	require.Len(t, got.Messages, 2)
	assert.Contains(t, got.Messages[1].Content, "advertises a server")
	assert.Contains(t, got.Messages[1].Content, "truncated")
	assert.False(t, strings.Contains(got.Messages[1].Content, "play.example.net"))
}

func TestClassifyEmptyChoices(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(openai.ChatCompletionResponse{ID: "cmpl-2"})
	})

	_, err := client.Classify(context.Background(), "spam", "hi")
	assert.Error(t, err)
}
