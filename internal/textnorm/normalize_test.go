package textnorm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trialgraph/internal/domain"
)

func TestNormalize(t *testing.T) {
	require.Equal(t, "", Normalize(""))
	require.Equal(t, "a b", Normalize("  a   b  "))
	require.Equal(t, "a b c", Normalize("a\tb\n\nc"))
}

func TestHashRoundTrips(t *testing.T) {
	n := Normalize("  Schedule  of Activities ")
	h1 := Hash(n)
	h2 := Hash(Normalize(n))
	assert.Equal(t, h1, h2, "R2: re-normalizing a normalized string must not change its hash")
	assert.Len(t, h1, 64)
}

func TestDetectLanguage(t *testing.T) {
	cases := []struct {
		name string
		text string
		want domain.Language
	}{
		{"empty", "", domain.LanguageUnknown},
		{"pure english", "Total N = 120 participants", domain.LanguageEN},
		{"pure russian", "Протокол клинического исследования", domain.LanguageRU},
		{"mixed enough", "Протокол протокол протокол протокол протокол AAAAAAAAAA", domain.LanguageRU},
		{"digits only", "12345", domain.LanguageUnknown},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, DetectLanguage(c.text))
		})
	}
}

func TestDetectLanguageMixedThreshold(t *testing.T) {
	// 10 Cyrillic + 10 Latin letters, evenly split -> ratio 0.5 -> MIXED.
	text := "абвгдежзик ABCDEFGHIJ"
	assert.Equal(t, domain.LanguageMixed, DetectLanguage(text))
}

func TestDetectLanguageBelowMixedFloor(t *testing.T) {
	// ratio is in the middle band but doesn't have >=10 of both letters -> UNKNOWN.
	text := "абвг ABCD"
	assert.Equal(t, domain.LanguageUnknown, DetectLanguage(text))
}
