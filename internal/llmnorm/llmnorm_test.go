package llmnorm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trialgraph/internal/domain"
)

func TestIsComplexValueByLength(t *testing.T) {
	long := ""
	for i := 0; i < 60; i++ {
		long += "a"
	}
	assert.True(t, IsComplexValue(long, nil))
}

func TestIsComplexValueByNumeralCount(t *testing.T) {
	assert.True(t, IsComplexValue("ratio 2:1 or 3:1", nil))
	assert.False(t, IsComplexValue("single value 5", nil))
}

func TestIsComplexValueByCompositionMarker(t *testing.T) {
	assert.True(t, IsComplexValue("procedures including ECG and vitals", nil))
	assert.True(t, IsComplexValue("процедуры включая ЭКГ", nil))
}

func TestIsComplexValueByListValue(t *testing.T) {
	assert.True(t, IsComplexValue("short", map[string]any{"value": []any{"2:1", "3:1"}}))
}

func TestTruncateFragment(t *testing.T) {
	long := ""
	for i := 0; i < 600; i++ {
		long += "x"
	}
	assert.Len(t, TruncateFragment(long), 500)
}

func TestExtractJSONStripsFencesAndFindsBalancedObject(t *testing.T) {
	response := "```json\n{\"value\": 42}\n```"
	obj, ok := ExtractJSON(response)
	require.True(t, ok)
	assert.Equal(t, float64(42), obj["value"])
}

func TestExtractJSONHandlesNestedBraces(t *testing.T) {
	response := "noise before {\"value\": {\"nested\": 1}} noise after"
	obj, ok := ExtractJSON(response)
	require.True(t, ok)
	nested := obj["value"].(map[string]any)
	assert.Equal(t, float64(1), nested["nested"])
}

func TestExtractJSONFailsWithoutObject(t *testing.T) {
	_, ok := ExtractJSON("no json here")
	assert.False(t, ok)
}

func TestCompareNumericWithTolerance(t *testing.T) {
	matched, _ := Compare(1.005, 1.01, 0)
	assert.True(t, matched)
	matched, _ = Compare(1.0, 1.5, 0)
	assert.False(t, matched)
}

func TestCompareStringNormalizesWhitespaceAndCase(t *testing.T) {
	matched, _ := Compare("  Placebo  Controlled ", "placebo controlled", 0)
	assert.True(t, matched)
}

func TestCompareStringAsDates(t *testing.T) {
	matched, _ := Compare("14.05.2023", "2023-05-14", 0)
	assert.True(t, matched)
}

func TestCompareListScalarNarrowing(t *testing.T) {
	matched, final := Compare([]any{"2:1", "3:1"}, "3:1", 0)
	assert.True(t, matched)
	assert.Equal(t, "3:1", final)
}

func TestCompareListScalarNoMatch(t *testing.T) {
	matched, final := Compare([]any{"2:1", "3:1"}, "4:1", 0)
	assert.False(t, matched)
	assert.Equal(t, []any{"2:1", "3:1"}, final)
}

type fakeChatter struct {
	response string
	err      error
}

func (f fakeChatter) Chat(_ context.Context, _ []Message, _ float64) (string, error) {
	return f.response, f.err
}

func TestNormalizeValidatedOnMatch(t *testing.T) {
	status, value, err := Normalize(context.Background(), fakeChatter{response: `{"value": "3:1"}`}, "randomization_ratio", "randomization ratio, including 3:1 and 2:1", "3:1")
	require.NoError(t, err)
	assert.Equal(t, "3:1", value)
	assert.Equal(t, domain.FactValidated, status)
}

func TestNormalizeEmptyLLMValueKeepsRegexExtracted(t *testing.T) {
	status, value, err := Normalize(context.Background(), fakeChatter{response: `{"value": ""}`}, "k", "span", "regex-value")
	require.NoError(t, err)
	assert.Equal(t, "regex-value", value)
	assert.Equal(t, domain.FactExtracted, status)
}

func TestNormalizeNilChatterIsLLMUnavailable(t *testing.T) {
	_, _, err := Normalize(context.Background(), nil, "k", "span", "v")
	require.Error(t, err)
}
