// Package openai implements llm.ChatClient against the OpenAI Chat
// Completions API, adapted from the teacher's internal/llm/openai/client.go:
// the same sdk.NewClient(option.WithAPIKey/WithBaseURL/WithHTTPClient)
// construction and sdk.SystemMessage/UserMessage/AssistantMessage message
// adaptation, generalized down from the teacher's tool-calling, streaming,
// image-attachment, and self-hosted-tokenizer machinery to the single
// Chat call §4.9's normalizer needs (also serves as an alternate chat
// provider selectable via config per SPEC_FULL's domain-stack table).
package openai

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	sdk "github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"trialgraph/internal/config"
	"trialgraph/internal/llm"
)

// Client implements llm.ChatClient against one configured OpenAI model.
type Client struct {
	sdk   sdk.Client
	model string
}

// New constructs a Client from an OpenAIConfig, honoring an alternate
// BaseURL for self-hosted/OpenAI-compatible servers (llama.cpp, vLLM).
func New(cfg config.OpenAIConfig, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		opts = append(opts, option.WithBaseURL(base))
	}
	opts = append(opts, option.WithHTTPClient(httpClient))

	return &Client{
		sdk:   sdk.NewClient(opts...),
		model: cfg.Model,
	}
}

// Chat issues one Chat Completions request and returns the first choice's
// text content.
func (c *Client) Chat(ctx context.Context, messages []llm.Message, temperature float64) (string, error) {
	params := sdk.ChatCompletionNewParams{
		Model:       sdk.ChatModel(c.model),
		Messages:    adaptMessages(messages),
		Temperature: sdk.Float(temperature),
	}

	comp, err := c.sdk.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("openai chat: %w", err)
	}
	if len(comp.Choices) == 0 {
		return "", fmt.Errorf("openai chat: empty response")
	}
	return comp.Choices[0].Message.Content, nil
}

func adaptMessages(msgs []llm.Message) []sdk.ChatCompletionMessageParamUnion {
	out := make([]sdk.ChatCompletionMessageParamUnion, 0, len(msgs))
	for _, m := range msgs {
		content := m.Content
		switch strings.ToLower(strings.TrimSpace(m.Role)) {
		case "system":
			out = append(out, sdk.SystemMessage(content))
		case "assistant":
			out = append(out, sdk.AssistantMessage(content))
		default:
			out = append(out, sdk.UserMessage(content))
		}
	}
	return out
}
