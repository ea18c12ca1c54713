// Package llmnorm implements C9: LLM-assisted value normalization and
// double-checking of regex-extracted fact values, per spec §4.9/§4.9.1.
package llmnorm

import (
	"regexp"
)

// complexSpanMinLen is the "raw span length > 50" complexity trigger.
const complexSpanMinLen = 50

var (
	numeralRe         = regexp.MustCompile(`\d+`)
	compositionEN     = regexp.MustCompile(`(?i)\bincluding\b`)
	compositionRU     = regexp.MustCompile(`(?i)включая`)
	numeralsCommaList = regexp.MustCompile(`\d+\s*,\s*\d+`)
)

// IsComplexValue reports whether a candidate fact's raw span and parsed
// value are complex enough to warrant LLM double-checking, per §4.9.
func IsComplexValue(rawSpan string, valueJSON map[string]any) bool {
	if len(rawSpan) > complexSpanMinLen {
		return true
	}
	if len(numeralRe.FindAllString(rawSpan, -1)) >= 2 {
		return true
	}
	if compositionEN.MatchString(rawSpan) || compositionRU.MatchString(rawSpan) || numeralsCommaList.MatchString(rawSpan) {
		return true
	}
	if valueJSON != nil {
		if v, ok := valueJSON["value"]; ok {
			if _, isList := v.([]any); isList {
				return true
			}
		}
	}
	return false
}

// TruncateFragment truncates a text fragment to the 500-char limit used
// when constructing the LLM prompt, per §4.9 step 1.
func TruncateFragment(s string) string {
	const maxLen = 500
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen])
}
