package llmprovider

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"neuro/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompleteParsesResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "qwen2.5:7b", payload["model"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"choices": [{"message": {"content": "hello"}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 10, "completion_tokens": 2, "total_tokens": 12}
		}`))
	}))
	defer server.Close()

	client := NewClient("qwen2.5:7b", Config{BaseURL: server.URL})
	resp, err := client.Complete(t.Context(), Request{Messages: []Message{{Role: "user", Content: "hi"}}})
	require.NoError(t, err)
	assert.Equal(t, "hello", resp.Content)
	assert.Equal(t, "stop", resp.StopReason)
	assert.Equal(t, 12, resp.Usage.TotalTokens)
}

func TestCompleteClassifiesAuthFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error": "invalid key"}`))
	}))
	defer server.Close()

	client := NewClient("qwen2.5:7b", Config{BaseURL: server.URL})
	_, err := client.Complete(t.Context(), Request{})
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.KindAuth))
}

func TestConvertToolsIncludesParameters(t *testing.T) {
	out := convertTools([]ToolDefinition{{Name: "read_file", Description: "reads a file", Parameters: map[string]any{"type": "object"}}})
	require.Len(t, out, 1)
	fn := out[0]["function"].(map[string]any)
	assert.Equal(t, "read_file", fn["name"])
}
