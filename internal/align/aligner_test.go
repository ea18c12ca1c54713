package align

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trialgraph/internal/domain"
)

func anchor(id, sectionPath, textNorm string, zone domain.SourceZone, lang domain.Language) domain.Anchor {
	return domain.Anchor{
		DocVersionID: "v",
		AnchorID:     id,
		SectionPath:  sectionPath,
		ContentType:  domain.ContentPara,
		TextNorm:     textNorm,
		SourceZone:   zone,
		Language:     lang,
	}
}

func TestAlignHashExactMatchesSharedHashSegment(t *testing.T) {
	a := anchor("v1:P:3:abc123", "root/intro", "some text", domain.ZoneUnknown, domain.LanguageEN)
	b := anchor("v2:P:3:abc123", "root/intro", "some text edited", domain.ZoneUnknown, domain.LanguageEN)

	matches, stats := Align("doc", "v1", "v2", []domain.Anchor{a}, []domain.Anchor{b}, nil, nil, 0.6)
	require.Len(t, matches, 1)
	assert.Equal(t, domain.MatchExactHash, matches[0].Method)
	assert.Equal(t, 1.0, matches[0].Score)
	assert.Equal(t, 1, stats.Matched)
	assert.Equal(t, 0, stats.Changed)
}

func TestAlignFuzzyMatchBelowOneIsCountedAsChanged(t *testing.T) {
	a := anchor("v1:P:1:aaa", "root/statistics", "the study evaluates safety and efficacy of drug x in patients", domain.ZoneStatistics, domain.LanguageEN)
	b := anchor("v2:P:1:bbb", "root/statistics", "the trial evaluates safety and tolerability of compound y in subjects", domain.ZoneStatistics, domain.LanguageEN)

	matches, stats := Align("doc", "v1", "v2", []domain.Anchor{a}, []domain.Anchor{b}, nil, nil, 0.3)
	require.Len(t, matches, 1)
	assert.Less(t, matches[0].Score, 1.0)
	assert.Equal(t, 1, stats.Changed)
}

func TestAlignOnlyMatchesWithinSameContentType(t *testing.T) {
	p := anchor("v1:P:1:aaa", "root", "identical text", domain.ZoneUnknown, domain.LanguageEN)
	hdr := anchor("v2:HDR:1:aaa", "root", "identical text", domain.ZoneUnknown, domain.LanguageEN)
	hdr.ContentType = domain.ContentHeading

	matches, stats := Align("doc", "v1", "v2", []domain.Anchor{p}, []domain.Anchor{hdr}, nil, nil, 0.6)
	assert.Empty(t, matches)
	assert.Equal(t, 0, stats.Matched)
	assert.Equal(t, 1, stats.Added)
	assert.Equal(t, 1, stats.Removed)
}

func TestAlignGreedyAssignmentIsOneToOne(t *testing.T) {
	a1 := anchor("v1:P:1:aaa", "root/s1", "statistical methods overview", domain.ZoneStatistics, domain.LanguageEN)
	a2 := anchor("v1:P:2:bbb", "root/s2", "safety reporting overview", domain.ZoneSafety, domain.LanguageEN)
	b1 := anchor("v2:P:1:ccc", "root/s1", "statistical methods overview text", domain.ZoneStatistics, domain.LanguageEN)

	matches, stats := Align("doc", "v1", "v2", []domain.Anchor{a1, a2}, []domain.Anchor{b1}, nil, nil, 0.3)
	require.Len(t, matches, 1)
	assert.Equal(t, a1.AnchorID, matches[0].FromAnchorID)
	assert.Equal(t, 1, stats.Removed)
}

func TestAlignEmbeddingUnavailableFallsBackToFuzzyMethod(t *testing.T) {
	a := anchor("v1:P:1:aaa", "root", "a somewhat different heading text here", domain.ZoneUnknown, domain.LanguageEN)
	b := anchor("v2:P:1:bbb", "root", "a somewhat different heading text there", domain.ZoneUnknown, domain.LanguageEN)

	matches, _ := Align("doc", "v1", "v2", []domain.Anchor{a}, []domain.Anchor{b}, nil, nil, 0.3)
	require.Len(t, matches, 1)
	assert.Equal(t, domain.MatchFuzzy, matches[0].Method)
}

func TestAlignEmbeddingPresentUsesHybridMethod(t *testing.T) {
	a := anchor("v1:P:1:aaa", "root", "completely unrelated short text", domain.ZoneUnknown, domain.LanguageEN)
	b := anchor("v2:P:1:bbb", "root", "totally different other words", domain.ZoneUnknown, domain.LanguageEN)
	embA := map[string][]float32{"v1:P:1:aaa": {1, 0, 0}}
	embB := map[string][]float32{"v2:P:1:bbb": {0.99, 0.01, 0}}

	matches, _ := Align("doc", "v1", "v2", []domain.Anchor{a}, []domain.Anchor{b}, embA, embB, 0.3)
	require.Len(t, matches, 1)
	assert.Equal(t, domain.MatchHybrid, matches[0].Method)
}

func TestAlignBelowMinScoreDropsMatch(t *testing.T) {
	a := anchor("v1:P:1:aaa", "root/s1", "completely different subject one", domain.ZoneStatistics, domain.LanguageEN)
	b := anchor("v2:P:1:bbb", "root/s9", "utterly unrelated topic two", domain.ZoneSafety, domain.LanguageRU)

	matches, stats := Align("doc", "v1", "v2", []domain.Anchor{a}, []domain.Anchor{b}, nil, nil, 0.6)
	assert.Empty(t, matches)
	assert.Equal(t, 1, stats.Added)
	assert.Equal(t, 1, stats.Removed)
}
