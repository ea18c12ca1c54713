// Package topics implements C10: mapping heading blocks to a workspace's
// topic catalog, per spec §4.10. Grounded on
// original_source/archive_data/03_topic_mapping/topic_mapping.py's
// per-cluster multi-signal scoring, adapted from "cluster of headings
// across documents" to "heading block within one document version" since
// this pipeline has no corpus-wide clustering store.
package topics

import (
	"math"
	"sort"
	"strings"

	"trialgraph/internal/domain"
	"trialgraph/internal/strsim"
	"trialgraph/internal/textnorm"
)

const (
	tauBase             = 0.55
	tauStrongZone       = 0.45
	strongZoneThreshold = 0.7
	keywordScoreCap     = 0.8
	aliasBoostThreshold = 0.7
	aliasBoostFactor    = 1.2
	weakEvidenceBound   = 0.4
	neighborBonusValue  = 0.2
	clusterPriorValue   = 0.3
	zonePenaltyValue    = 0.2
	zonePenaltyFloor    = 0.2
	ambiguityDelta      = 0.08
	previewMinWords     = 3
)

// candidate is one topic's score against one heading block, kept around
// after the pass for metrics computation.
type candidate struct {
	topicKey       string
	score          float64
	aliasScore     float64
	keywordScore   float64
	embeddingScore float64
	zonePrior      float64
	dissimilar     bool
	debug          map[string]any
}

// Metrics summarizes mapping quality across all blocks of one document
// version, mirroring the Python service's coverage/ambiguity/fallback
// metrics (with conflict_rate supplemented from the same source).
type Metrics struct {
	Coverage     float64 `json:"coverage"`
	Ambiguity    float64 `json:"ambiguity"`
	FallbackRate float64 `json:"fallback_rate"`
	ConflictRate float64 `json:"conflict_rate"`
}

// MapDocumentVersion scores every heading block in document order against
// every applicable catalog topic and returns the assignments clearing the
// dynamic confidence threshold, plus aggregate metrics.
//
// embeddings maps HeadingBlockID to the embedding of the heading text plus
// the block's text preview (computed by the caller; the preview is the
// first ~300 characters and is not cut at sentence boundaries);
// clusterPrior maps HeadingBlockID to
// a topic key the optional clustering hint (cluster.go) favors.
func MapDocumentVersion(
	docTitle, docType string,
	blocks []domain.HeadingBlock,
	catalog []domain.Topic,
	zonePriors []domain.TopicZonePrior,
	embeddings map[string][]float32,
	clusterPrior map[string]string,
) ([]domain.BlockTopicAssignment, Metrics) {
	zonePriorIndex := indexZonePriors(zonePriors)
	topicsByKey := make(map[string]domain.Topic, len(catalog))
	for _, t := range catalog {
		topicsByKey[t.TopicKey] = t
	}

	var assignments []domain.BlockTopicAssignment
	var tops []candidate
	var seconds []candidate
	lastMappedTopic := ""

	for _, block := range blocks {
		var cands []candidate
		for _, t := range catalog {
			if !applicableDocType(t, docType) {
				continue
			}
			if excludedByLanguagePattern(t, block.Language, block.HeadingText) {
				continue
			}
			c := scoreTopic(block, t, docTitle, zonePriorIndex[docType], embeddings[block.HeadingBlockID], lastMappedTopic, clusterPrior[block.HeadingBlockID])
			cands = append(cands, c)
		}
		sort.Slice(cands, func(i, j int) bool { return cands[i].score > cands[j].score })
		if len(cands) > 3 {
			cands = cands[:3]
		}
		if len(cands) == 0 {
			continue
		}

		best := cands[0]
		tops = append(tops, best)
		if len(cands) >= 2 {
			seconds = append(seconds, cands[1])
		} else {
			seconds = append(seconds, candidate{})
		}

		strongZone := best.zonePrior >= strongZoneThreshold || zoneExplicitlyListed(topicsByKey[best.topicKey], block.SourceZone)
		tau := tauBase
		if strongZone {
			tau = tauStrongZone
		}

		if best.score >= tau {
			assignments = append(assignments, domain.BlockTopicAssignment{
				DocVersionID:   block.DocVersionID,
				HeadingBlockID: block.HeadingBlockID,
				TopicKey:       best.topicKey,
				Confidence:     best.score,
				Debug:          best.debug,
			})
			lastMappedTopic = best.topicKey
		}
	}

	return assignments, computeMetrics(len(blocks), len(assignments), tops, seconds)
}

func applicableDocType(t domain.Topic, docType string) bool {
	if len(t.Profile.DocTypes) == 0 {
		return true
	}
	for _, dt := range t.Profile.DocTypes {
		if dt == docType {
			return true
		}
	}
	return false
}

func excludedByLanguagePattern(t domain.Topic, lang domain.Language, headingText string) bool {
	normalized := strings.ToLower(textnorm.Normalize(headingText))
	for _, pattern := range relevantLangList(t.Profile.ExcludeByLang, lang) {
		if strings.Contains(normalized, strings.ToLower(textnorm.Normalize(pattern))) {
			return true
		}
	}
	return false
}

func relevantLangList(byLang map[domain.Language][]string, lang domain.Language) []string {
	var out []string
	if lang == domain.LanguageRU || lang == domain.LanguageMixed {
		out = append(out, byLang[domain.LanguageRU]...)
	}
	if lang == domain.LanguageEN || lang == domain.LanguageMixed {
		out = append(out, byLang[domain.LanguageEN]...)
	}
	return out
}

func scoreTopic(block domain.HeadingBlock, t domain.Topic, docTitle string, zonePriorsForType map[zoneKey]float64, blockEmbedding []float32, lastMappedTopic, clusterHint string) candidate {
	aliasScore, aliasExplain := aliasMatchScore(block, t, docTitle)
	keywordScore, kwExplain := keywordMatchScore(block, t)

	zonePrior, zoneReason := zonePriorFor(t, block.SourceZone, zonePriorsForType)
	dissimilar := isDissimilarZone(t, block.SourceZone) || zonePrior < zonePenaltyFloor
	zonePenalty := 1.0
	if dissimilar {
		zonePenalty = zonePenaltyValue
	}

	embeddingScore := 0.0
	if len(blockEmbedding) > 0 && len(t.Embedding) > 0 && len(blockEmbedding) == len(t.Embedding) {
		embeddingScore = cosineSimilarity32(blockEmbedding, t.Embedding)
	}

	clusterPriorScore := 0.0
	if clusterHint == t.TopicKey {
		clusterPriorScore = clusterPriorValue
	}

	neighborBonus := 0.0
	if lastMappedTopic == t.TopicKey && aliasScore < weakEvidenceBound && keywordScore < weakEvidenceBound {
		neighborBonus = neighborBonusValue
	}

	var base float64
	if embeddingScore > 0 || len(t.Embedding) > 0 {
		base = 0.5*embeddingScore + 0.3*math.Max(aliasScore, 0.7*keywordScore) + 0.2*zonePrior
	} else {
		// No embedding available for this topic: re-weight across the
		// remaining three signals so their weights still sum to 1.
		base = 0.5*math.Max(aliasScore, 0.7*keywordScore) + 0.3*zonePrior + 0.2*clusterPriorScore
	}

	aliasBoost := 1.0
	if aliasScore > aliasBoostThreshold {
		aliasBoost = aliasBoostFactor
	}
	score := math.Min(1.0, (base+neighborBonus)*aliasBoost) * zonePenalty

	return candidate{
		topicKey:       t.TopicKey,
		score:          score,
		aliasScore:     aliasScore,
		keywordScore:   keywordScore,
		embeddingScore: embeddingScore,
		zonePrior:      zonePrior,
		dissimilar:     dissimilar,
		debug: map[string]any{
			"alias_match":       aliasExplain,
			"keyword_match":     kwExplain,
			"embedding_score":   embeddingScore,
			"zone_prior":        zonePrior,
			"zone_prior_reason": zoneReason,
			"neighbor_bonus":    neighborBonus,
			"cluster_prior":     clusterPriorScore,
		},
	}
}

func aliasMatchScore(block domain.HeadingBlock, t domain.Topic, docTitle string) (float64, map[string]any) {
	candidates := []string{block.HeadingText}
	if docTitle != "" {
		candidates = append(candidates, docTitle)
	}

	aliases := relevantLangList(t.Profile.AliasesByLang, block.Language)
	best := 0.0
	var bestAlias, bestHeading string
	for _, text := range candidates {
		norm := textnorm.Normalize(text)
		for _, alias := range aliases {
			ratio := strsim.Ratio(norm, textnorm.Normalize(alias))
			if ratio > best {
				best, bestAlias, bestHeading = ratio, alias, text
			}
		}
	}

	// RU fallback against the topic's title_ru when alias matches are weak.
	if block.Language == domain.LanguageRU && best < aliasBoostThreshold && t.TitleRU != "" {
		for _, text := range candidates {
			ratio := strsim.Ratio(textnorm.Normalize(text), textnorm.Normalize(t.TitleRU))
			if ratio > best {
				best, bestAlias, bestHeading = ratio, t.TitleRU, text
			}
		}
	}

	return best, map[string]any{"best_ratio": best, "matched_alias": bestAlias, "matched_text": bestHeading}
}

func keywordMatchScore(block domain.HeadingBlock, t domain.Topic) (float64, map[string]any) {
	keywords := relevantLangList(t.Profile.KeywordsByLang, block.Language)
	if len(keywords) == 0 && (block.Language == domain.LanguageRU || block.Language == domain.LanguageMixed) && t.TitleRU != "" {
		keywords = titleWordsFallback(t.TitleRU)
	}
	if len(keywords) == 0 {
		return 0.0, map[string]any{"reason": "no_keywords"}
	}

	haystack := textnorm.Normalize(block.HeadingText + " " + block.TextPreview)
	var matched []string
	for _, kw := range keywords {
		if strings.Contains(haystack, textnorm.Normalize(kw)) {
			matched = append(matched, kw)
		}
	}
	if len(matched) == 0 {
		return 0.0, map[string]any{"matched_keywords": []string{}}
	}
	ratio := float64(len(matched)) / float64(len(keywords))
	score := math.Min(keywordScoreCap, keywordScoreCap*ratio)
	return score, map[string]any{"matched_keywords": matched, "match_ratio": ratio}
}

func titleWordsFallback(titleRU string) []string {
	var out []string
	for _, w := range strings.Fields(titleRU) {
		if len([]rune(w)) > previewMinWords {
			out = append(out, w)
		}
	}
	return out
}

type zoneKey struct {
	topicKey string
	zone     domain.SourceZone
}

func indexZonePriors(priors []domain.TopicZonePrior) map[string]map[zoneKey]float64 {
	idx := make(map[string]map[zoneKey]float64)
	for _, p := range priors {
		byType, ok := idx[p.DocType]
		if !ok {
			byType = make(map[zoneKey]float64)
			idx[p.DocType] = byType
		}
		byType[zoneKey{p.TopicKey, p.Zone}] = p.Weight
	}
	return idx
}

func zonePriorFor(t domain.Topic, zone domain.SourceZone, priorsForType map[zoneKey]float64) (float64, string) {
	if priorsForType != nil {
		if w, ok := priorsForType[zoneKey{t.TopicKey, zone}]; ok {
			return w, "explicit_topic_zone_prior"
		}
	}
	if isDissimilarZone(t, zone) {
		return zonePenaltyValue, "dissimilar_zone"
	}
	for _, z := range t.Profile.SourceZones {
		if z == zone {
			return 0.8, "matched_zone"
		}
	}
	return 0.5, "neutral"
}

func isDissimilarZone(t domain.Topic, zone domain.SourceZone) bool {
	for _, z := range t.DissimilarZones {
		if z == zone {
			return true
		}
	}
	return false
}

func zoneExplicitlyListed(t domain.Topic, zone domain.SourceZone) bool {
	for _, z := range t.Profile.SourceZones {
		if z == zone {
			return true
		}
	}
	return false
}

func cosineSimilarity32(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

func computeMetrics(totalBlocks, assignedCount int, tops, seconds []candidate) Metrics {
	if totalBlocks == 0 {
		return Metrics{}
	}
	var ambiguous, fallback, conflict int
	for i, top := range tops {
		if i < len(seconds) && seconds[i].topicKey != "" && top.score-seconds[i].score < ambiguityDelta {
			ambiguous++
		}
		if top.aliasScore == 0 && top.embeddingScore == 0 && top.keywordScore > 0 {
			fallback++
		}
		if top.dissimilar {
			conflict++
		}
	}
	n := float64(totalBlocks)
	return Metrics{
		Coverage:     float64(assignedCount) / n,
		Ambiguity:    float64(ambiguous) / n,
		FallbackRate: float64(fallback) / n,
		ConflictRate: float64(conflict) / n,
	}
}
