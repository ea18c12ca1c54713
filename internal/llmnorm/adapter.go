package llmnorm

import (
	"context"

	"trialgraph/internal/llm"
)

// ChatterFromClient adapts an internal/llm.ChatClient (anthropic, openai, or
// google) to this package's own Chatter interface, translating between the
// two packages' identically-shaped but distinctly-typed Message structs so
// internal/llmnorm never imports a specific provider package directly.
func ChatterFromClient(client llm.ChatClient) Chatter {
	if client == nil {
		return nil
	}
	return clientChatter{client: client}
}

type clientChatter struct {
	client llm.ChatClient
}

func (c clientChatter) Chat(ctx context.Context, messages []Message, temperature float64) (string, error) {
	converted := make([]llm.Message, len(messages))
	for i, m := range messages {
		converted[i] = llm.Message{Role: m.Role, Content: m.Content}
	}
	return c.client.Chat(ctx, converted, temperature)
}
