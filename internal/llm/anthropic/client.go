// Package anthropic implements llm.ChatClient against the Anthropic
// Messages API, adapted from the teacher's internal/llm/anthropic/client.go:
// the same SDK construction (option.WithAPIKey/WithBaseURL/WithHTTPClient),
// the same "system block separate from message list" conversion, generalized
// down from tool-calling/streaming/thinking/prompt-caching to the single-
// shot, low-temperature Chat call §4.9's normalizer needs.
package anthropic

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"trialgraph/internal/config"
	"trialgraph/internal/llm"
)

const defaultMaxTokens int64 = 1024

// Client implements llm.ChatClient against one configured Anthropic model.
type Client struct {
	sdk       anthropicsdk.Client
	model     string
	maxTokens int64
}

// New constructs a Client from an AnthropicConfig, defaulting the model to
// Claude 3.7 Sonnet when unset, matching the teacher's own fallback.
func New(cfg config.AnthropicConfig, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	opts := []option.RequestOption{
		option.WithAPIKey(strings.TrimSpace(cfg.APIKey)),
		option.WithHTTPClient(httpClient),
	}
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		opts = append(opts, option.WithBaseURL(strings.TrimSuffix(base, "/")))
	}

	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = string(anthropicsdk.ModelClaude3_7SonnetLatest)
	}

	return &Client{
		sdk:       anthropicsdk.NewClient(opts...),
		model:     model,
		maxTokens: defaultMaxTokens,
	}
}

// Chat issues one single-turn (or short multi-turn) completion request,
// splitting out "system" role messages the way the Messages API requires.
func (c *Client) Chat(ctx context.Context, messages []llm.Message, temperature float64) (string, error) {
	system, converted, err := adaptMessages(messages)
	if err != nil {
		return "", err
	}

	params := anthropicsdk.MessageNewParams{
		Model:       anthropicsdk.Model(c.model),
		Messages:    converted,
		System:      system,
		MaxTokens:   c.maxTokens,
		Temperature: anthropicsdk.Float(temperature),
	}

	resp, err := c.sdk.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("anthropic chat: %w", err)
	}
	return textFromResponse(resp), nil
}

func adaptMessages(msgs []llm.Message) ([]anthropicsdk.TextBlockParam, []anthropicsdk.MessageParam, error) {
	if len(msgs) == 0 {
		return nil, nil, fmt.Errorf("anthropic: messages required")
	}
	var system []anthropicsdk.TextBlockParam
	out := make([]anthropicsdk.MessageParam, 0, len(msgs))
	for _, m := range msgs {
		content := strings.TrimSpace(m.Content)
		switch strings.ToLower(strings.TrimSpace(m.Role)) {
		case "system":
			if content != "" {
				system = append(system, anthropicsdk.TextBlockParam{Text: content})
			}
		case "assistant":
			if content != "" {
				out = append(out, anthropicsdk.NewAssistantMessage(anthropicsdk.NewTextBlock(content)))
			}
		case "user", "":
			if content != "" {
				out = append(out, anthropicsdk.NewUserMessage(anthropicsdk.NewTextBlock(content)))
			}
		default:
			return nil, nil, fmt.Errorf("anthropic: unsupported role %q", m.Role)
		}
	}
	return system, out, nil
}

func textFromResponse(resp *anthropicsdk.Message) string {
	if resp == nil {
		return ""
	}
	var sb strings.Builder
	for _, block := range resp.Content {
		if tb, ok := block.AsAny().(anthropicsdk.TextBlock); ok {
			sb.WriteString(tb.Text)
		}
	}
	return sb.String()
}
