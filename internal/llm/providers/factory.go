// Package providers selects one llm.ChatClient implementation by config,
// adapted from the teacher's internal/llm/providers/factory.go switch-on-
// provider-name shape, narrowed to the three ChatClient-only constructors
// and dropping the teacher's "local" completions-API alias (this tree has
// no self-hosted llama.cpp deployment target to alias it to).
package providers

import (
	"fmt"
	"net/http"

	"trialgraph/internal/config"
	"trialgraph/internal/llm"
	"trialgraph/internal/llm/anthropic"
	"trialgraph/internal/llm/google"
	openaillm "trialgraph/internal/llm/openai"
)

// Build constructs the configured llm.ChatClient. An empty provider name
// disables normalization: callers check for a nil return per §4.9's
// "LLM unavailable keeps the regex value" fallback.
func Build(cfg config.LLMConfig, httpClient *http.Client) (llm.ChatClient, error) {
	switch cfg.Provider {
	case "":
		return nil, nil
	case "openai":
		return openaillm.New(cfg.OpenAI, httpClient), nil
	case "anthropic":
		return anthropic.New(cfg.Anthropic, httpClient), nil
	case "google":
		return google.New(cfg.Google, httpClient)
	default:
		return nil, fmt.Errorf("unsupported llm provider: %s", cfg.Provider)
	}
}
