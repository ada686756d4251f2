// Package chat answers free-form questions through an OpenAI compatible
// chat completion endpoint.
package chat

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"net/http"
	"strings"
	"time"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"sagar/internal/assistant"
)

const systemPrompt = "You are a concise voice assistant named Sagar Biswas. " +
	"Give short, clear replies suitable for speech output."

var ErrEmptyReply = errors.New("empty reply")

type Options struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
	// HTTPClient is used when set, e.g. a SOCKS client from internal/proxy.
	HTTPClient *http.Client
}

// Client implements assistant.Chatter.
type Client struct {
	api     openai.Client
	model   string
	timeout time.Duration
}

func New(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, fmt.Errorf("chat: %w: no API key", assistant.ErrNotInstalled)
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(opts.APIKey),
		option.WithMaxRetries(1),
	}
	if opts.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(opts.BaseURL))
	}
	if opts.HTTPClient != nil {
		reqOpts = append(reqOpts, option.WithHTTPClient(opts.HTTPClient))
	}

	return &Client{
		api:     openai.NewClient(reqOpts...),
		model:   opts.Model,
		timeout: opts.Timeout,
	}, nil
}

// Complete sends the system prompt, the prior turns and message, and returns
// the trimmed reply text.
func (c *Client) Complete(ctx context.Context, history []assistant.Turn, message string) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	resp, err := c.api.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: buildMessages(history, message),
		Model:    openai.ChatModel(c.model),
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", ErrEmptyReply
	}

	log.Debug("Chat reply", "model", resp.Model, "chars", len(content))
	return content, nil
}

func buildMessages(history []assistant.Turn, message string) []openai.ChatCompletionMessageParamUnion {
	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, len(history)+2)
	msgs = append(msgs, openai.SystemMessage(systemPrompt))
	for _, t := range history {
		switch t.Role {
		case assistant.RoleUser:
			msgs = append(msgs, openai.UserMessage(t.Content))
		case assistant.RoleAssistant:
			msgs = append(msgs, openai.AssistantMessage(t.Content))
		}
	}
	return append(msgs, openai.UserMessage(message))
}
