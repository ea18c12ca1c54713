package zones

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trialgraph/internal/domain"
)

func TestClassifyEmptyInput(t *testing.T) {
	rb := DefaultRulebook()
	res := rb.Classify("", "", domain.LanguageUnknown)
	assert.Equal(t, domain.ZoneUnknown, res.Zone)
}

func TestClassifyStatisticsEnglish(t *testing.T) {
	rb := DefaultRulebook()
	res := rb.Classify("Methods/Statistical Analysis", "Sample Size and Power Calculation", domain.LanguageEN)
	require.Equal(t, domain.ZoneStatistics, res.Zone)
	assert.Greater(t, res.Confidence, 0.5)
}

func TestClassifySafetyRussian(t *testing.T) {
	rb := DefaultRulebook()
	res := rb.Classify("Безопасность", "Нежелательные явления", domain.LanguageRU)
	assert.Equal(t, domain.ZoneSafety, res.Zone)
}

func TestClassifyNoMatchIsUnknown(t *testing.T) {
	rb := DefaultRulebook()
	res := rb.Classify("Appendix Z", "Miscellaneous Notes", domain.LanguageEN)
	assert.Equal(t, domain.ZoneUnknown, res.Zone)
}

func TestClassifyIsDeterministic(t *testing.T) {
	rb := DefaultRulebook()
	a := rb.Classify("Eligibility", "Inclusion Criteria", domain.LanguageEN)
	b := rb.Classify("Eligibility", "Inclusion Criteria", domain.LanguageEN)
	assert.Equal(t, a, b)
}

func TestClassifyIgnoresOtherLanguagePatternsWhenLanguageKnown(t *testing.T) {
	rb := DefaultRulebook()
	// English-language anchor whose only lexical overlap is with an RU
	// pattern should not match purely on transliteration coincidence.
	res := rb.Classify("Section", "randomization ratio table", domain.LanguageEN)
	assert.NotEqual(t, domain.ZoneSafety, res.Zone)
}
