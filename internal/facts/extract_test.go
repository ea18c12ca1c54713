package facts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trialgraph/internal/domain"
)

func mkAnchor(id string, ct domain.ContentType, text string, ordinal int, lang domain.Language) domain.Anchor {
	return domain.Anchor{AnchorID: id, ContentType: ct, TextNorm: text, Ordinal: ordinal, Language: lang}
}

func TestExtractProtocolVersionEnglish(t *testing.T) {
	anchors := []domain.Anchor{
		mkAnchor("a1", domain.ContentPara, "This is Protocol Version: ABC-123 initial release.", 0, domain.LanguageEN),
	}
	facts, evidence := Extract("study1", "docv1", anchors, DefaultCatalog())
	require.Len(t, facts, 1)
	assert.Equal(t, "protocol_meta", facts[0].FactType)
	assert.Equal(t, "protocol_version", facts[0].FactKey)
	assert.Equal(t, "ABC-123", facts[0].ValueJSON["value"])
	assert.Equal(t, domain.FactExtracted, facts[0].Status)
	require.Len(t, evidence, 1)
	assert.Equal(t, "a1", evidence[0].AnchorRef)
	assert.Equal(t, domain.EvidencePrimary, evidence[0].Role)
}

func TestExtractPlannedNTotal(t *testing.T) {
	anchors := []domain.Anchor{
		mkAnchor("a1", domain.ContentPara, "Total N= 120 participants will be enrolled.", 0, domain.LanguageEN),
	}
	facts, _ := Extract("study1", "docv1", anchors, DefaultCatalog())
	require.Len(t, facts, 1)
	assert.Equal(t, 120, facts[0].ValueJSON["value"])
	assert.Equal(t, "participants", facts[0].Unit)
}

func TestExtractAmendmentDateParsesISO(t *testing.T) {
	anchors := []domain.Anchor{
		mkAnchor("a1", domain.ContentPara, "Amendment Date: 2023-05-14 for clarity.", 0, domain.LanguageEN),
	}
	facts, _ := Extract("study1", "docv1", anchors, DefaultCatalog())
	require.Len(t, facts, 1)
	assert.Equal(t, "2023-05-14", facts[0].ValueJSON["value"])
	assert.Equal(t, domain.FactExtracted, facts[0].Status)
}

func TestExtractAmendmentDateUnparsableIsNeedsReview(t *testing.T) {
	anchors := []domain.Anchor{
		mkAnchor("a1", domain.ContentPara, "Amendment Date: sometime soon.", 0, domain.LanguageEN),
	}
	facts, evidence := Extract("study1", "docv1", anchors, DefaultCatalog())
	require.Len(t, facts, 1)
	assert.Equal(t, domain.FactNeedsReview, facts[0].Status)
	assert.Nil(t, facts[0].ValueJSON)
	require.Len(t, evidence, 1, "anchor still attached as PRIMARY even when unparsable")
}

func TestExtractFirstMatchingAnchorWinsInSortOrder(t *testing.T) {
	anchors := []domain.Anchor{
		mkAnchor("later", domain.ContentPara, "Total N= 999 participants.", 1, domain.LanguageEN),
		mkAnchor("earlier", domain.ContentPara, "Total N= 50 participants.", 0, domain.LanguageEN),
	}
	facts, evidence := Extract("study1", "docv1", anchors, DefaultCatalog())
	require.Len(t, facts, 1)
	assert.Equal(t, 50, facts[0].ValueJSON["value"])
	assert.Equal(t, "earlier", evidence[0].AnchorRef)
}

func TestExtractRussianProtocolVersion(t *testing.T) {
	anchors := []domain.Anchor{
		mkAnchor("a1", domain.ContentPara, "Версия протокола: RU-7", 0, domain.LanguageRU),
	}
	facts, _ := Extract("study1", "docv1", anchors, DefaultCatalog())
	require.Len(t, facts, 1)
	assert.Equal(t, "RU-7", facts[0].ValueJSON["value"])
}

func TestExtractIgnoresCellAndTableAnchors(t *testing.T) {
	anchors := []domain.Anchor{
		mkAnchor("c1", domain.ContentCell, "Total N= 40", 0, domain.LanguageEN),
	}
	facts, _ := Extract("study1", "docv1", anchors, DefaultCatalog())
	assert.Empty(t, facts)
}

func TestParseDateFormats(t *testing.T) {
	cases := []struct {
		raw  string
		want string
	}{
		{"2023-05-14", "2023-05-14"},
		{"14.05.2023", "2023-05-14"},
		{"14/05/2023", "2023-05-14"},
		{"14 May 2023", "2023-05-14"},
		{"14 мая 2023", "2023-05-14"},
	}
	for _, c := range cases {
		got, ok := ParseDate(c.raw)
		require.True(t, ok, c.raw)
		assert.Equal(t, c.want, got)
	}
}

func TestParseDateFailsOnGarbage(t *testing.T) {
	_, ok := ParseDate("whenever it's ready")
	assert.False(t, ok)
}
