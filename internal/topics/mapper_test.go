package topics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trialgraph/internal/domain"
)

func block(id, headingText, preview string, zone domain.SourceZone, lang domain.Language) domain.HeadingBlock {
	return domain.HeadingBlock{
		HeadingBlockID: id,
		DocVersionID:   "v1",
		HeadingText:    headingText,
		TextPreview:    preview,
		SourceZone:     zone,
		Language:       lang,
	}
}

func statsTopic() domain.Topic {
	return domain.Topic{
		WorkspaceID: "w1",
		TopicKey:    "statistical_methods",
		Title:       "Statistical Methods",
		TitleRU:     "Статистические методы",
		Profile: domain.TopicProfile{
			AliasesByLang: map[domain.Language][]string{
				domain.LanguageEN: {"Statistical Methods", "Statistical Analysis"},
				domain.LanguageRU: {"Статистические методы"},
			},
			KeywordsByLang: map[domain.Language][]string{
				domain.LanguageEN: {"sample size", "power", "alpha", "hypothesis"},
			},
			SourceZones: []domain.SourceZone{domain.ZoneStatistics},
		},
	}
}

func TestMapDocumentVersionExactAliasMatchAssignsHighConfidence(t *testing.T) {
	b := block("hb1", "Statistical Methods", "Sample size calculation uses alpha 0.05.", domain.ZoneStatistics, domain.LanguageEN)
	assignments, metrics := MapDocumentVersion("Protocol Title", "protocol", []domain.HeadingBlock{b}, []domain.Topic{statsTopic()}, nil, nil, nil)
	require.Len(t, assignments, 1)
	assert.Equal(t, "statistical_methods", assignments[0].TopicKey)
	assert.Greater(t, assignments[0].Confidence, 0.55)
	assert.Equal(t, 1.0, metrics.Coverage)
}

func TestMapDocumentVersionWeakEvidenceStaysUnmapped(t *testing.T) {
	b := block("hb1", "Unrelated Section", "Nothing relevant here at all.", domain.ZoneUnknown, domain.LanguageEN)
	assignments, metrics := MapDocumentVersion("", "protocol", []domain.HeadingBlock{b}, []domain.Topic{statsTopic()}, nil, nil, nil)
	assert.Empty(t, assignments)
	assert.Equal(t, 0.0, metrics.Coverage)
}

func TestMapDocumentVersionExcludePatternRejectsTopic(t *testing.T) {
	topic := statsTopic()
	topic.Profile.ExcludeByLang = map[domain.Language][]string{
		domain.LanguageEN: {"not applicable"},
	}
	b := block("hb1", "Statistical Methods (Not Applicable)", "", domain.ZoneStatistics, domain.LanguageEN)
	assignments, _ := MapDocumentVersion("", "protocol", []domain.HeadingBlock{b}, []domain.Topic{topic}, nil, nil, nil)
	assert.Empty(t, assignments)
}

func TestMapDocumentVersionDissimilarZoneAppliesPenalty(t *testing.T) {
	topic := statsTopic()
	topic.DissimilarZones = []domain.SourceZone{domain.ZoneSafety}
	b := block("hb1", "Statistical Methods", "", domain.ZoneSafety, domain.LanguageEN)
	assignments, metrics := MapDocumentVersion("", "protocol", []domain.HeadingBlock{b}, []domain.Topic{topic}, nil, nil, nil)
	assert.Empty(t, assignments)
	assert.Equal(t, 1.0, metrics.ConflictRate)
}

func TestMapDocumentVersionDocTypeFilter(t *testing.T) {
	topic := statsTopic()
	topic.Profile.DocTypes = []string{"sap"}
	b := block("hb1", "Statistical Methods", "", domain.ZoneStatistics, domain.LanguageEN)
	assignments, _ := MapDocumentVersion("", "protocol", []domain.HeadingBlock{b}, []domain.Topic{topic}, nil, nil, nil)
	assert.Empty(t, assignments)
}

func TestMapDocumentVersionEmbeddingSimilarityContributes(t *testing.T) {
	topic := statsTopic()
	topic.Embedding = []float32{1, 0, 0}
	b := block("hb1", "Some Heading", "", domain.ZoneUnknown, domain.LanguageEN)
	embeddings := map[string][]float32{"hb1": {1, 0, 0}}
	assignments, _ := MapDocumentVersion("", "protocol", []domain.HeadingBlock{b}, []domain.Topic{topic}, nil, embeddings, nil)
	require.Len(t, assignments, 1)
}

func TestMapDocumentVersionClusterPriorHintAloneDoesNotMapBlock(t *testing.T) {
	topic := statsTopic()
	topic.Profile.KeywordsByLang = nil
	topic.Profile.AliasesByLang = nil
	b := block("hb1", "Section Nine", "", domain.ZoneUnknown, domain.LanguageEN)
	hints := map[string]string{"hb1": "statistical_methods"}
	_, metrics := MapDocumentVersion("", "protocol", []domain.HeadingBlock{b}, []domain.Topic{topic}, nil, nil, hints)
	assert.Equal(t, 0.0, metrics.Coverage)
}

func TestClusterPriorGroupsBySimilarityAndPicksDominantTopic(t *testing.T) {
	blocks := []domain.HeadingBlock{
		block("h1", "Statistical Methods", "", domain.ZoneStatistics, domain.LanguageEN),
		block("h2", "Statistical Analysis", "", domain.ZoneStatistics, domain.LanguageEN),
		block("h3", "Statistical Methods Overview", "", domain.ZoneStatistics, domain.LanguageEN),
	}
	embeddings := map[string][]float32{
		"h1": {1, 0, 0},
		"h2": {0.99, 0.01, 0},
		"h3": {0.98, 0.02, 0},
	}
	hints := ClusterPrior("", blocks, embeddings, []domain.Topic{statsTopic()})
	assert.Equal(t, "statistical_methods", hints["h1"])
	assert.Equal(t, "statistical_methods", hints["h2"])
	assert.Equal(t, "statistical_methods", hints["h3"])
}

func TestClusterPriorIgnoresSmallGroups(t *testing.T) {
	blocks := []domain.HeadingBlock{
		block("h1", "Statistical Methods", "", domain.ZoneStatistics, domain.LanguageEN),
		block("h2", "Statistical Analysis", "", domain.ZoneStatistics, domain.LanguageEN),
	}
	embeddings := map[string][]float32{
		"h1": {1, 0, 0},
		"h2": {0.99, 0.01, 0},
	}
	hints := ClusterPrior("", blocks, embeddings, []domain.Topic{statsTopic()})
	assert.Empty(t, hints)
}
