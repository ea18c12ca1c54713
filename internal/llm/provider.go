// Package llm declares the narrow chat-completion contract §4.9's value
// normalizer (internal/llmnorm) needs, and the concrete provider clients
// (anthropic, openai, google) that implement it. Generalized down from the
// teacher's much richer multi-turn, tool-calling, streaming Provider: the
// normalizer issues single-shot, low-temperature extraction prompts only
// (internal/llmnorm.BuildPrompt), so tool schemas, streaming handlers,
// thought signatures, and image payloads have no caller here.
package llm

import "context"

// Message is one turn in a chat-completion request.
type Message struct {
	Role    string // "system" | "user" | "assistant"
	Content string
}

// ChatClient is the contract every provider package in this tree
// implements. Temperature is threaded explicitly (unlike the teacher's
// fixed-per-model Provider.Chat) because §4.9.1 calls for
// low-temperature, close-to-deterministic extraction.
type ChatClient interface {
	Chat(ctx context.Context, messages []Message, temperature float64) (string, error)
}

// EstimateTokens provides a heuristic fallback (chars/4) for rough
// prompt-size logging when a provider has no cheaper accurate count
// available; retained from the teacher's token-budgeting helpers.
func EstimateTokens(s string) int {
	if s == "" {
		return 0
	}
	return len([]rune(s))/4 + 1
}

// EstimateTokensForMessages sums EstimateTokens over a message slice.
func EstimateTokensForMessages(msgs []Message) int {
	total := 0
	for _, m := range msgs {
		total += EstimateTokens(m.Content)
	}
	return total
}
