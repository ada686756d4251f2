package chat

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sagar/internal/assistant"
)

type wireMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type wireRequest struct {
	Model    string        `json:"model"`
	Messages []wireMessage `json:"messages"`
}

func completionServer(t *testing.T, status int, content string, seen *wireRequest) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/chat/completions"), r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		if seen != nil {
			assert.NoError(t, json.NewDecoder(r.Body).Decode(seen))
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			_, _ = w.Write([]byte(`{"error":{"message":"invalid key","type":"invalid_request_error"}}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"created": 0,
			"model":   "llama-3.1-8b-instant",
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": content},
			}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(t *testing.T, url string) *Client {
	t.Helper()
	c, err := New(Options{
		APIKey:  "test-key",
		BaseURL: url,
		Model:   "llama-3.1-8b-instant",
		Timeout: 5 * time.Second,
	})
	require.NoError(t, err)
	return c
}

func TestComplete_SendsHistory(t *testing.T) {
	var req wireRequest
	srv := completionServer(t, http.StatusOK, "  Tokyo is nine hours ahead.  ", &req)
	c := newTestClient(t, srv.URL)

	history := []assistant.Turn{
		{Role: assistant.RoleUser, Content: "what time is it in london"},
		{Role: assistant.RoleAssistant, Content: "It is noon."},
	}
	reply, err := c.Complete(context.Background(), history, "and in tokyo")
	require.NoError(t, err)

	assert.Equal(t, "Tokyo is nine hours ahead.", reply)
	assert.Equal(t, "llama-3.1-8b-instant", req.Model)
	require.Len(t, req.Messages, 4)
	assert.Equal(t, wireMessage{"system", systemPrompt}, req.Messages[0])
	assert.Equal(t, wireMessage{"user", "what time is it in london"}, req.Messages[1])
	assert.Equal(t, wireMessage{"assistant", "It is noon."}, req.Messages[2])
	assert.Equal(t, wireMessage{"user", "and in tokyo"}, req.Messages[3])
}

func TestComplete_EmptyReply(t *testing.T) {
	srv := completionServer(t, http.StatusOK, "   ", nil)
	c := newTestClient(t, srv.URL)

	_, err := c.Complete(context.Background(), nil, "hello there")
	assert.ErrorIs(t, err, ErrEmptyReply)
}

func TestComplete_ServiceError(t *testing.T) {
	srv := completionServer(t, http.StatusUnauthorized, "", nil)
	c := newTestClient(t, srv.URL)

	_, err := c.Complete(context.Background(), nil, "hello there")
	assert.Error(t, err)
}

func TestNew_RequiresKey(t *testing.T) {
	_, err := New(Options{APIKey: "  "})
	assert.ErrorIs(t, err, assistant.ErrNotInstalled)
}

func TestBuildMessages_SkipsUnknownRoles(t *testing.T) {
	msgs := buildMessages([]assistant.Turn{{Role: "tool", Content: "x"}}, "hi")
	assert.Len(t, msgs, 2)
}
