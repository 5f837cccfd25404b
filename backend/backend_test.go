package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/openai/openai-go/option"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type chatRequest struct {
	Model       string  `json:"model"`
	Temperature float64 `json:"temperature"`
	Messages    []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
	ResponseFormat struct {
		Type       string `json:"type"`
		JSONSchema struct {
			Name   string         `json:"name"`
			Strict bool           `json:"strict"`
			Schema map[string]any `json:"schema"`
		} `json:"json_schema"`
	} `json:"response_format"`
}

func completionBody(content, refusal string) string {
	message := map[string]any{"role": "assistant", "content": content}
	if refusal != "" {
		message["refusal"] = refusal
	}

	body, _ := json.Marshal(map[string]any{
		"id":      "chatcmpl-test",
		"object":  "chat.completion",
		"created": 1700000000,
		"model":   "gpt-4o-mini",
		"choices": []any{map[string]any{
			"index":         0,
			"finish_reason": "stop",
			"message":       message,
		}},
		"usage": map[string]any{"prompt_tokens": 12, "completion_tokens": 5, "total_tokens": 17},
	})
	return string(body)
}

func newTestBackend(t *testing.T, handler http.HandlerFunc) *OpenAI {
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	o, err := NewOpenAI("test-key", option.WithBaseURL(srv.URL+"/"), option.WithMaxRetries(0))
	require.NoError(t, err)
	return o.WithLogger(zerolog.Nop())
}

var testSchema = map[string]any{
	"type":                 "object",
	"properties":           map[string]any{"name": map[string]any{"type": "string"}},
	"required":             []string{"name"},
	"additionalProperties": false,
}

func TestComplete(t *testing.T) {
	var got chatRequest
	var auth string

	o := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		auth = r.Header.Get("Authorization")

		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, completionBody(`{"name":"Ada"}`, ""))
	})

	out, err := o.Complete(context.Background(), CompletionRequest{
		Instruction: "Extract the content",
		Document:    "URL: https://site.test/\n\nAda",
		Schema:      testSchema,
		SchemaName:  "person",
		Temperature: 0.2,
		Model:       "gpt-4o",
	})
	require.NoError(t, err)

	assert.Equal(t, `{"name":"Ada"}`, out)
	assert.Equal(t, "Bearer test-key", auth)
	assert.Equal(t, "gpt-4o", got.Model)
	assert.InDelta(t, 0.2, got.Temperature, 1e-9)

	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "Extract the content", got.Messages[0].Content)
	assert.Equal(t, "user", got.Messages[1].Role)
	assert.Equal(t, "URL: https://site.test/\n\nAda", got.Messages[1].Content)

	assert.Equal(t, "json_schema", got.ResponseFormat.Type)
	assert.Equal(t, "person", got.ResponseFormat.JSONSchema.Name)
	assert.True(t, got.ResponseFormat.JSONSchema.Strict)
	assert.Equal(t, "object", got.ResponseFormat.JSONSchema.Schema["type"])
}

func TestCompleteDefaultModel(t *testing.T) {
	var got chatRequest

	o := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, completionBody(`{}`, ""))
	})

	_, err := o.Complete(context.Background(), CompletionRequest{Schema: testSchema, SchemaName: "x"})
	require.NoError(t, err)
	assert.Equal(t, DefaultModel, got.Model)
}

func TestCompleteRefusal(t *testing.T) {
	o := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, completionBody("", "I can't help with that."))
	})

	_, err := o.Complete(context.Background(), CompletionRequest{Schema: testSchema, SchemaName: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "refused")
}

func TestCompleteEmptyContent(t *testing.T) {
	o := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, completionBody("", ""))
	})

	_, err := o.Complete(context.Background(), CompletionRequest{Schema: testSchema, SchemaName: "x"})
	assert.True(t, errors.Is(err, ErrNoCompletion))
}

func TestCompleteServerError(t *testing.T) {
	o := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":{"message":"bad key","type":"invalid_request_error"}}`)
	})

	_, err := o.Complete(context.Background(), CompletionRequest{Schema: testSchema, SchemaName: "x"})
	assert.Error(t, err)
}

func TestNewOpenAIAPIKey(t *testing.T) {
	t.Setenv(APIKeyEnv, "")

	_, err := NewOpenAI("")
	assert.True(t, errors.Is(err, ErrMissingAPIKey))

	t.Setenv(APIKeyEnv, "from-env")

	o, err := NewOpenAI("")
	require.NoError(t, err)
	assert.NotNil(t, o)
}
