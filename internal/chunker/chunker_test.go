package chunker

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trialgraph/internal/domain"
)

func mkAnchor(section string, ct domain.ContentType, text string, zone domain.SourceZone, lang domain.Language) domain.Anchor {
	return domain.Anchor{
		DocVersionID: "docv1",
		SectionPath:  section,
		ContentType:  ct,
		TextNorm:     text,
		SourceZone:   zone,
		Language:     lang,
		AnchorID:     "docv1:p:x:" + text,
	}
}

func TestChunkGroupsBySectionPath(t *testing.T) {
	anchors := []domain.Anchor{
		mkAnchor("Intro", domain.ContentHeading, "Intro", domain.ZoneUnknown, domain.LanguageEN),
		mkAnchor("Intro", domain.ContentPara, "first paragraph", domain.ZoneUnknown, domain.LanguageEN),
		mkAnchor("Intro", domain.ContentPara, "second paragraph", domain.ZoneUnknown, domain.LanguageEN),
		mkAnchor("Eligibility", domain.ContentHeading, "Eligibility", domain.ZoneEligibility, domain.LanguageEN),
		mkAnchor("Eligibility", domain.ContentPara, "inclusion criteria text", domain.ZoneEligibility, domain.LanguageEN),
	}
	chunks, err := Chunk(context.Background(), "docv1", anchors, nil)
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, "Intro", chunks[0].SectionPath)
	assert.Equal(t, "Eligibility", chunks[1].SectionPath)
	assert.Equal(t, domain.ZoneEligibility, chunks[1].SourceZone)
}

func TestChunkSkipsCellAndFootnoteAnchors(t *testing.T) {
	anchors := []domain.Anchor{
		mkAnchor("Intro", domain.ContentPara, "body", domain.ZoneUnknown, domain.LanguageEN),
		mkAnchor("FOOTNOTES", domain.ContentFootnote, "a footnote", domain.ZoneUnknown, domain.LanguageEN),
		mkAnchor("SoA", domain.ContentCell, "X", domain.ZoneProcedures, domain.LanguageEN),
	}
	chunks, err := Chunk(context.Background(), "docv1", anchors, nil)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "body", chunks[0].Text)
}

func TestChunkSplitsOversizedSection(t *testing.T) {
	var anchors []domain.Anchor
	long := ""
	for i := 0; i < 100; i++ {
		long += "word "
	}
	for i := 0; i < 10; i++ {
		anchors = append(anchors, mkAnchor("Background", domain.ContentPara, long, domain.ZoneUnknown, domain.LanguageEN))
	}
	chunks, err := Chunk(context.Background(), "docv1", anchors, nil)
	require.NoError(t, err)
	assert.Greater(t, len(chunks), 1, "an oversized section must split into more than one chunk")
	for _, c := range chunks {
		assert.Equal(t, "Background", c.SectionPath)
	}
}

type fakeEmbedder struct{}

func (fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{float32(i), 1, 2}
	}
	return out, nil
}

func TestChunkAttachesEmbeddings(t *testing.T) {
	anchors := []domain.Anchor{
		mkAnchor("Intro", domain.ContentPara, "body text", domain.ZoneUnknown, domain.LanguageEN),
	}
	chunks, err := Chunk(context.Background(), "docv1", anchors, fakeEmbedder{})
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.NotEmpty(t, chunks[0].Embedding)
}
