// Package google implements llm.ChatClient against the Gemini API via
// google.golang.org/genai, adapted from the teacher's internal/llm/google/
// client.go: the same genai.NewClient(ClientConfig{APIKey, HTTPClient,
// HTTPOptions}) construction and role-to-genai.Content conversion,
// generalized down from tool-calling/streaming/thought-signature/image
// handling to the single GenerateContent call §4.9's normalizer needs
// (also serves as a third alternate chat provider per the provider-factory
// pattern in SPEC_FULL's domain-stack table).
package google

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	genai "google.golang.org/genai"

	"trialgraph/internal/config"
	"trialgraph/internal/llm"
)

// Client implements llm.ChatClient against one configured Gemini model.
type Client struct {
	client *genai.Client
	model  string
}

// New constructs a Client from a GoogleConfig, defaulting to
// gemini-1.5-flash when no model is configured, matching the teacher's own
// fallback.
func New(cfg config.GoogleConfig, httpClient *http.Client) (*Client, error) {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = "gemini-1.5-flash"
	}

	httpOpts := genai.HTTPOptions{}
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		httpOpts.BaseURL = strings.TrimSuffix(base, "/") + "/"
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:      strings.TrimSpace(cfg.APIKey),
		HTTPClient:  httpClient,
		HTTPOptions: httpOpts,
	})
	if err != nil {
		return nil, fmt.Errorf("init google client: %w", err)
	}

	return &Client{client: client, model: model}, nil
}

// Chat issues one GenerateContent request and returns the first candidate's
// concatenated text parts.
func (c *Client) Chat(ctx context.Context, messages []llm.Message, temperature float64) (string, error) {
	contents, err := toContents(messages)
	if err != nil {
		return "", err
	}

	temp := float32(temperature)
	cfg := &genai.GenerateContentConfig{Temperature: &temp}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("google chat: %w", err)
	}
	return textFromResponse(resp)
}

func toContents(msgs []llm.Message) ([]*genai.Content, error) {
	if len(msgs) == 0 {
		return nil, fmt.Errorf("google: messages required")
	}
	contents := make([]*genai.Content, 0, len(msgs))
	for _, m := range msgs {
		role := genai.RoleUser
		text := m.Content
		switch strings.ToLower(strings.TrimSpace(m.Role)) {
		case "", "user":
			role = genai.RoleUser
		case "system":
			role = genai.RoleUser
			text = "[system] " + text
		case "assistant":
			role = genai.RoleModel
		default:
			return nil, fmt.Errorf("google: unsupported role %q", m.Role)
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{{Text: text}},
		})
	}
	return contents, nil
}

func textFromResponse(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil {
		return "", fmt.Errorf("google: nil response")
	}
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return "", fmt.Errorf("google: request blocked: %s", resp.PromptFeedback.BlockReason)
	}
	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("google: no candidates in response")
	}
	candidate := resp.Candidates[0]
	switch candidate.FinishReason {
	case genai.FinishReasonSafety:
		return "", fmt.Errorf("google: response blocked by safety filters")
	case genai.FinishReasonRecitation:
		return "", fmt.Errorf("google: response blocked due to recitation")
	}
	if candidate.Content == nil {
		return "", nil
	}
	var sb strings.Builder
	for _, part := range candidate.Content.Parts {
		if part == nil || part.Thought {
			continue
		}
		sb.WriteString(part.Text)
	}
	return sb.String(), nil
}
