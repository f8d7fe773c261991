package anthropic

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/korpora-labs/korpus-cli/internal/core/domain"
	"github.com/korpora-labs/korpus-cli/internal/core/ports/driven"
)

func newTestService(t *testing.T, handler http.HandlerFunc) *LLMService {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	svc, err := NewLLMService(Config{
		APIKey:  "test-key",
		BaseURL: server.URL,
	})
	require.NoError(t, err)
	return svc
}

func messageJSON(text string) string {
	out, _ := json.Marshal(map[string]any{
		"content":     []map[string]any{{"type": "text", "text": text}},
		"stop_reason": "end_turn",
	})
	return string(out)
}

func TestNewLLMServiceRequiresAPIKey(t *testing.T) {
	_, err := NewLLMService(Config{})
	assert.Error(t, err)
}

func TestGenerate(t *testing.T) {
	var gotReq map[string]any
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		assert.Equal(t, "2023-06-01", r.Header.Get("anthropic-version"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		fmt.Fprint(w, messageJSON("four"))
	})

	result, err := svc.Generate(context.Background(), "what is 2+2", driven.GenerateOptions{})
	require.NoError(t, err)
	assert.Equal(t, "four", result)

	// max_tokens is mandatory and defaulted when unset.
	assert.EqualValues(t, 1024, gotReq["max_tokens"])
	messages := gotReq["messages"].([]any)
	require.Len(t, messages, 1)
	assert.Equal(t, "what is 2+2", messages[0].(map[string]any)["content"])
}

func TestChatExtractsSystemMessage(t *testing.T) {
	var gotReq map[string]any
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		fmt.Fprint(w, messageJSON("hello"))
	})

	result, err := svc.Chat(context.Background(), []driven.ChatMessage{
		{Role: "system", Content: "be brief"},
		{Role: "user", Content: "hi"},
	}, driven.ChatOptions{MaxTokens: 50})
	require.NoError(t, err)
	assert.Equal(t, "hello", result)

	assert.Equal(t, "be brief", gotReq["system"])
	assert.EqualValues(t, 50, gotReq["max_tokens"])
	messages := gotReq["messages"].([]any)
	require.Len(t, messages, 1)
	assert.Equal(t, "user", messages[0].(map[string]any)["role"])
}

func TestChatConcatenatesTextBlocks(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"content": [{"type": "text", "text": "one "}, {"type": "text", "text": "two"}]}`)
	})

	result, err := svc.Chat(context.Background(), []driven.ChatMessage{{Role: "user", Content: "hi"}}, driven.ChatOptions{})
	require.NoError(t, err)
	assert.Equal(t, "one two", result)
}

func TestChatAPIErrorIsUnavailable(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error": {"type": "invalid_request_error", "message": "bad model"}}`)
	})

	_, err := svc.Chat(context.Background(), []driven.ChatMessage{{Role: "user", Content: "hi"}}, driven.ChatOptions{})
	assert.ErrorIs(t, err, domain.ErrLLMUnavailable)
	assert.Contains(t, err.Error(), "bad model")
}

func TestChatOverloadedIsTransient(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusTooManyRequests)
	})

	_, err := svc.Chat(context.Background(), []driven.ChatMessage{{Role: "user", Content: "hi"}}, driven.ChatOptions{})
	assert.ErrorIs(t, err, domain.ErrTransient)
}

func TestVisionSendsImageBlock(t *testing.T) {
	var gotReq map[string]any
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		fmt.Fprint(w, messageJSON("page text"))
	})

	image := []byte{0x89, 0x50, 0x4e, 0x47}
	result, err := svc.Vision(context.Background(), image, "image/png", "transcribe this page")
	require.NoError(t, err)
	assert.Equal(t, "page text", result)

	messages := gotReq["messages"].([]any)
	require.Len(t, messages, 1)
	blocks := messages[0].(map[string]any)["content"].([]any)
	require.Len(t, blocks, 2)

	imageBlock := blocks[0].(map[string]any)
	assert.Equal(t, "image", imageBlock["type"])
	source := imageBlock["source"].(map[string]any)
	assert.Equal(t, "base64", source["type"])
	assert.Equal(t, "image/png", source["media_type"])
	assert.Equal(t, base64.StdEncoding.EncodeToString(image), source["data"])

	textBlock := blocks[1].(map[string]any)
	assert.Equal(t, "text", textBlock["type"])
	assert.Equal(t, "transcribe this page", textBlock["text"])
}

func TestVisionRejectsEmptyImage(t *testing.T) {
	svc, err := NewLLMService(Config{APIKey: "k"})
	require.NoError(t, err)

	_, err = svc.Vision(context.Background(), nil, "image/png", "transcribe")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestChatStream(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		var gotReq map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		assert.Equal(t, true, gotReq["stream"])

		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "event: message_start\n")
		fmt.Fprint(w, "data: {\"type\": \"message_start\"}\n\n")
		fmt.Fprint(w, "data: {\"type\": \"content_block_delta\", \"delta\": {\"type\": \"text_delta\", \"text\": \"Hel\"}}\n\n")
		fmt.Fprint(w, "data: {\"type\": \"content_block_delta\", \"delta\": {\"type\": \"text_delta\", \"text\": \"lo\"}}\n\n")
		fmt.Fprint(w, "data: {\"type\": \"message_stop\"}\n\n")
	})

	deltas, err := svc.ChatStream(context.Background(), []driven.ChatMessage{{Role: "user", Content: "hi"}}, driven.ChatOptions{})
	require.NoError(t, err)

	var text strings.Builder
	var done bool
	for delta := range deltas {
		if delta.Done {
			require.NoError(t, delta.Err)
			done = true
			continue
		}
		text.WriteString(delta.Delta)
	}
	assert.True(t, done)
	assert.Equal(t, "Hello", text.String())
}

func TestChatStreamMidStreamError(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"type\": \"content_block_delta\", \"delta\": {\"type\": \"text_delta\", \"text\": \"par\"}}\n\n")
		fmt.Fprint(w, "data: {\"type\": \"error\", \"error\": {\"type\": \"overloaded_error\", \"message\": \"overloaded\"}}\n\n")
	})

	deltas, err := svc.ChatStream(context.Background(), []driven.ChatMessage{{Role: "user", Content: "hi"}}, driven.ChatOptions{})
	require.NoError(t, err)

	var streamErr error
	for delta := range deltas {
		if delta.Done {
			streamErr = delta.Err
		}
	}
	require.Error(t, streamErr)
	assert.ErrorIs(t, streamErr, domain.ErrLLMUnavailable)
}

func TestChatStreamRejectedUpfront(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	})

	_, err := svc.ChatStream(context.Background(), []driven.ChatMessage{{Role: "user", Content: "hi"}}, driven.ChatOptions{})
	assert.ErrorIs(t, err, domain.ErrTransient)
}

func TestPing(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/models", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		fmt.Fprint(w, `{"data": []}`)
	})

	assert.NoError(t, svc.Ping(context.Background()))
}
