package llmnorm

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"trialgraph/internal/domain"
)

// Message is the minimal chat message shape the normalizer sends; mirrors
// the narrow contract internal/llm's provider clients implement.
type Message struct {
	Role    string
	Content string
}

// Chatter is the narrow LLM contract this package depends on. Wired to a
// real provider client at orchestration time; nil is treated as
// LLM-unavailable, per domain.ErrLLMUnavailable.
type Chatter interface {
	Chat(ctx context.Context, messages []Message, temperature float64) (string, error)
}

// BuildPrompt constructs the system/user message pair from §4.9 step 1.
func BuildPrompt(factKey, textFragment string) []Message {
	return []Message{
		{Role: "system", Content: fmt.Sprintf("extract a strict value for `%s` as JSON", factKey)},
		{Role: "user", Content: TruncateFragment(textFragment)},
	}
}

var codeFenceRe = regexp.MustCompile("```[a-zA-Z]*\\n?|```")

// ExtractJSON strips markdown code fences, extracts the first balanced
// {...} object, and parses it, per §4.9 step 3.
func ExtractJSON(response string) (map[string]any, bool) {
	stripped := codeFenceRe.ReplaceAllString(response, "")
	obj, ok := firstBalancedObject(stripped)
	if !ok {
		return nil, false
	}
	var out map[string]any
	if err := json.Unmarshal([]byte(obj), &out); err != nil {
		return nil, false
	}
	return out, true
}

func firstBalancedObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start == -1 {
		return "", false
	}
	depth := 0
	for i := start; i < len(s); i++ {
		switch s[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}

// Normalize runs the full §4.9 protocol for one candidate fact: build the
// prompt, call the LLM, extract and compare its JSON value against the
// regex-extracted value, and return the resulting status plus the value
// to persist (unchanged unless §4.9.1's list-narrowing rule applies).
func Normalize(ctx context.Context, chatter Chatter, factKey, rawSpan string, regexValue any) (domain.FactStatus, any, error) {
	if chatter == nil {
		return domain.FactStatus(""), regexValue, domain.ErrLLMUnavailable
	}

	messages := BuildPrompt(factKey, rawSpan)
	response, err := chatter.Chat(ctx, messages, 0)
	if err != nil {
		return domain.FactStatus(""), regexValue, err
	}

	obj, ok := ExtractJSON(response)
	if !ok {
		// Unparsable LLM output: treat like an empty value, per §4.9.1's
		// "Empty LLM value is not a conflict" rule.
		return domain.FactExtracted, regexValue, nil
	}
	llmValue, hasValue := obj["value"]
	if !hasValue || isEmptyValue(llmValue) {
		return domain.FactExtracted, regexValue, nil
	}

	matched, finalValue := Compare(regexValue, llmValue, 0)
	if matched {
		return domain.FactValidated, finalValue, nil
	}
	return domain.FactConflicting, regexValue, nil
}

func isEmptyValue(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	case []any:
		return len(t) == 0
	case map[string]any:
		return len(t) == 0
	default:
		return false
	}
}
