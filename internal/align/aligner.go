// Package align implements C11: deterministic anchor-to-anchor alignment
// between two versions of the same document, per spec §4.11. Grounded on
// original_source/backend/app/services/anchor_aligner.py's three-phase
// match (hash-exact, scored candidates, greedy 1-to-1).
package align

import (
	"math"
	"sort"
	"strings"

	"trialgraph/internal/domain"
	"trialgraph/internal/strsim"
)

const (
	defaultMinScore  = 0.6
	zoneBonus        = 0.05
	languageBonus    = 0.05
	pathJumpPenalty  = 0.15
	embeddingWeight  = 0.65
	fuzzyWeightEmb   = 0.25
	structWeightEmb  = 0.10
	structZoneShare  = 0.6
	structPathShare  = 0.4
	fuzzyWeightNoEmb = 0.60
	structWeightNoEmb = 0.40
)

// Stats mirrors the aligner's summary counters from §4.11.
type Stats struct {
	Matched int `json:"matched"`
	Changed int `json:"changed"`
	Added   int `json:"added"`
	Removed int `json:"removed"`
}

// Align matches anchors of doc version A against doc version B, grouped
// by content_type, and returns the resulting AnchorMatch edges plus
// summary statistics. embeddingsA/embeddingsB map anchor_id to the
// embedding of any chunk containing that anchor (first wins, resolved by
// the caller per §4.11 step 2).
func Align(documentID, fromVersionID, toVersionID string, anchorsA, anchorsB []domain.Anchor, embeddingsA, embeddingsB map[string][]float32, minScore float64) ([]domain.AnchorMatch, Stats) {
	if minScore <= 0 {
		minScore = defaultMinScore
	}

	byTypeA := groupByContentType(anchorsA)
	byTypeB := groupByContentType(anchorsB)

	var matches []domain.AnchorMatch
	for ctype, groupA := range byTypeA {
		groupB, ok := byTypeB[ctype]
		if !ok {
			continue
		}
		matches = append(matches, matchWithinType(documentID, fromVersionID, toVersionID, groupA, groupB, embeddingsA, embeddingsB, minScore)...)
	}

	matchedB := make(map[string]bool, len(matches))
	for _, m := range matches {
		matchedB[m.ToAnchorID] = true
	}
	changed := 0
	for _, m := range matches {
		if m.Score < 1.0 {
			changed++
		}
	}
	stats := Stats{
		Matched: len(matches),
		Changed: changed,
		Added:   len(anchorsB) - len(matchedB),
		Removed: len(anchorsA) - len(matches),
	}
	return matches, stats
}

func groupByContentType(anchors []domain.Anchor) map[domain.ContentType][]domain.Anchor {
	grouped := make(map[domain.ContentType][]domain.Anchor)
	for _, a := range anchors {
		grouped[a.ContentType] = append(grouped[a.ContentType], a)
	}
	return grouped
}

func matchWithinType(documentID, fromVersionID, toVersionID string, anchorsA, anchorsB []domain.Anchor, embeddingsA, embeddingsB map[string][]float32, minScore float64) []domain.AnchorMatch {
	if len(anchorsA) == 0 || len(anchorsB) == 0 {
		return nil
	}

	// Phase 1: hash-exact.
	hashIndexB := make(map[string][]domain.Anchor, len(anchorsB))
	for _, b := range anchorsB {
		h := domain.HashSegment(b.AnchorID)
		hashIndexB[h] = append(hashIndexB[h], b)
	}

	usedA := make(map[string]bool)
	usedB := make(map[string]bool)
	var matches []domain.AnchorMatch

	for _, a := range anchorsA {
		h := domain.HashSegment(a.AnchorID)
		bucket := hashIndexB[h]
		if len(bucket) == 0 {
			continue
		}
		b := bucket[0]
		hashIndexB[h] = bucket[1:]
		matches = append(matches, domain.AnchorMatch{
			DocumentID:       documentID,
			FromDocVersionID: fromVersionID,
			ToDocVersionID:   toVersionID,
			FromAnchorID:     a.AnchorID,
			ToAnchorID:       b.AnchorID,
			Score:            1.0,
			Method:           domain.MatchExactHash,
			Meta:             domain.MatchMeta{FuzzyScore: 1.0, PathScore: 1.0},
		})
		usedA[a.AnchorID] = true
		usedB[b.AnchorID] = true
	}

	var remainingA, remainingB []domain.Anchor
	for _, a := range anchorsA {
		if !usedA[a.AnchorID] {
			remainingA = append(remainingA, a)
		}
	}
	for _, b := range anchorsB {
		if !usedB[b.AnchorID] {
			remainingB = append(remainingB, b)
		}
	}
	if len(remainingA) == 0 || len(remainingB) == 0 {
		return matches
	}

	// Phase 2: candidate scoring.
	type candidate struct {
		a, b  domain.Anchor
		score float64
		meta  domain.MatchMeta
	}
	var candidates []candidate
	for _, a := range remainingA {
		for _, b := range remainingB {
			score, meta := computeScore(a, b, embeddingsA[a.AnchorID], embeddingsB[b.AnchorID])

			zb, lb := 0.0, 0.0
			if a.SourceZone == b.SourceZone {
				zb = zoneBonus
			}
			if a.Language == b.Language && a.Language != domain.LanguageUnknown {
				lb = languageBonus
			}
			meta.ZoneBonus = zb
			meta.LanguageBonus = lb

			final := score + zb + lb
			if final > 1.0 {
				final = 1.0
			}
			if final >= minScore {
				candidates = append(candidates, candidate{a: a, b: b, score: final, meta: meta})
			}
		}
	}

	sort.Slice(candidates, func(i, j int) bool { return candidates[i].score > candidates[j].score })

	// Phase 3: greedy 1-to-1.
	for _, c := range candidates {
		if usedA[c.a.AnchorID] || usedB[c.b.AnchorID] {
			continue
		}
		method := domain.MatchFuzzy
		if c.meta.EmbeddingScore > 0 {
			method = domain.MatchHybrid
		}
		matches = append(matches, domain.AnchorMatch{
			DocumentID:       documentID,
			FromDocVersionID: fromVersionID,
			ToDocVersionID:   toVersionID,
			FromAnchorID:     c.a.AnchorID,
			ToAnchorID:       c.b.AnchorID,
			Score:            c.score,
			Method:           method,
			Meta:             c.meta,
		})
		usedA[c.a.AnchorID] = true
		usedB[c.b.AnchorID] = true
	}

	return matches
}

func computeScore(a, b domain.Anchor, embA, embB []float32) (float64, domain.MatchMeta) {
	fuzzy := fuzzyScore(a.TextNorm, b.TextNorm)
	meta := domain.MatchMeta{FuzzyScore: fuzzy}

	embScore := 0.0
	if len(embA) > 0 && len(embB) > 0 && len(embA) == len(embB) {
		embScore = cosineSimilarity32(embA, embB)
		meta.EmbeddingScore = embScore
	}

	zoneScore := 0.0
	if a.SourceZone == b.SourceZone {
		zoneScore = 1.0
	}
	meta.ZoneScore = zoneScore

	pathScore := pathSimilarity(a.SectionPath, b.SectionPath)
	meta.PathScore = pathScore

	var combined float64
	if embScore > 0 {
		combined = embeddingWeight*embScore + fuzzyWeightEmb*fuzzy + structWeightEmb*(structZoneShare*zoneScore+structPathShare*pathScore)
	} else {
		combined = fuzzyWeightNoEmb*fuzzy + structWeightNoEmb*(0.5*zoneScore+0.5*pathScore)
	}

	penalty := pathJumpPenalty * (1.0 - pathScore)
	meta.PathPenalty = penalty
	combined -= penalty
	if combined < 0 {
		combined = 0
	}
	return combined, meta
}

// fuzzyScore is §4.11's "0.6·ratcliff-Obershelp + 0.4·Jaccard over tokens,
// after stripping non-alphanumerics".
func fuzzyScore(a, b string) float64 {
	if a == "" || b == "" {
		return 0.0
	}
	tokensA := strsim.Tokenize(a)
	tokensB := strsim.Tokenize(b)
	ratio := strsim.Ratio(strings.Join(tokensA, " "), strings.Join(tokensB, " "))
	jaccard := strsim.Jaccard(tokensA, tokensB)
	return 0.6*ratio + 0.4*jaccard
}

// pathSimilarity is the longest-common-prefix ratio of section paths,
// split on "/".
func pathSimilarity(pathA, pathB string) float64 {
	partsA := strings.Split(pathA, "/")
	partsB := strings.Split(pathB, "/")
	common := 0
	for i := 0; i < len(partsA) && i < len(partsB); i++ {
		if partsA[i] != partsB[i] {
			break
		}
		common = i + 1
	}
	maxLen := len(partsA)
	if len(partsB) > maxLen {
		maxLen = len(partsB)
	}
	if maxLen == 0 {
		return 0
	}
	return float64(common) / float64(maxLen)
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
