package llmnorm

import (
	"fmt"
	"math"
	"strings"

	"trialgraph/internal/facts"
)

// maxCompareDepth is the recursion depth cap for dict comparison, per
// §4.9.1.
const maxCompareDepth = 50

const floatTolerance = 0.01

// Compare implements the §4.9.1 comparison rules. It returns whether the
// regex and LLM values match, and the value to keep: unchanged on a
// straightforward match or mismatch, but replaced by the LLM's scalar
// when the list-narrowing rule (regex returned a list, LLM chose one of
// its elements) applies.
func Compare(regexValue, llmValue any, depth int) (matched bool, finalValue any) {
	if depth > maxCompareDepth {
		return false, regexValue
	}

	switch rv := regexValue.(type) {
	case float64, int:
		return compareNumeric(rv, llmValue)
	case string:
		return compareString(rv, llmValue)
	case []any:
		return compareList(rv, llmValue, depth)
	case map[string]any:
		return compareDict(rv, llmValue, depth)
	default:
		return fmt.Sprint(regexValue) == fmt.Sprint(llmValue), regexValue
	}
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	}
	return 0, false
}

func compareNumeric(regexValue, llmValue any) (bool, any) {
	rf, rok := toFloat(regexValue)
	lf, lok := toFloat(llmValue)
	if !rok || !lok {
		return false, regexValue
	}
	return math.Abs(rf-lf) <= floatTolerance, regexValue
}

func compareString(regexValue string, llmValue any) (bool, any) {
	lv, ok := llmValue.(string)
	if !ok {
		return false, regexValue
	}
	rIso, rIsDate := facts.ParseDate(regexValue)
	lIso, lIsDate := facts.ParseDate(lv)
	if rIsDate && lIsDate {
		return rIso == lIso, regexValue
	}
	return normalizeForCompare(regexValue) == normalizeForCompare(lv), regexValue
}

func normalizeForCompare(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

func compareList(regexValue []any, llmValue any, depth int) (bool, any) {
	if lv, ok := llmValue.([]any); ok {
		if len(regexValue) != len(lv) {
			return false, regexValue
		}
		for i := range regexValue {
			if m, _ := Compare(regexValue[i], lv[i], depth+1); !m {
				return false, regexValue
			}
		}
		return true, regexValue
	}
	// LLM returned a scalar: a match means it chose one of the regex
	// list's elements, in which case the LLM value replaces the regex
	// value, per §4.9.1.
	for _, elem := range regexValue {
		if m, _ := Compare(elem, llmValue, depth+1); m {
			return true, llmValue
		}
	}
	return false, regexValue
}

func compareDict(regexValue map[string]any, llmValue any, depth int) (bool, any) {
	lv, ok := llmValue.(map[string]any)
	if !ok {
		return false, regexValue
	}
	if len(regexValue) != len(lv) {
		return false, regexValue
	}
	for k, rv := range regexValue {
		lvv, exists := lv[k]
		if !exists {
			return false, regexValue
		}
		if m, _ := Compare(rv, lvv, depth+1); !m {
			return false, regexValue
		}
	}
	return true, regexValue
}
