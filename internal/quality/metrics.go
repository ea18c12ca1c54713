// Package quality implements C13: per-run metrics aggregation and the
// quality gate that decides whether an IngestionRun is ok, partial, or
// failed. Grounded on
// original_source/backend/app/services/ingestion/metrics_collector.py;
// that file's own metrics dataclasses (app.services.ingestion.metrics)
// were not part of the retrieved source, so the field shapes here are
// inferred directly from how metrics_collector.py populates them.
package quality

import (
	"math"
	"sort"

	"trialgraph/internal/domain"
)

// shortTextThreshold mirrors metrics_collector.py's length(text_norm)<10
// "empty_or_short" anchor check.
const shortTextThreshold = 10

// topHeadingsLimit mirrors the LIMIT 10 on the top-unknown-headings query.
const topHeadingsLimit = 10

// headingPreviewLen mirrors the text_norm[:100] truncation.
const headingPreviewLen = 100

// Percentiles holds the p50/p95 pair §4.13 asks for everywhere it
// mentions percentiles.
type Percentiles struct {
	P50 float64 `json:"p50"`
	P95 float64 `json:"p95"`
}

// HeadingCount is one entry of AnchorMetrics.TopUnknownHeadings.
type HeadingCount struct {
	Heading string `json:"heading"`
	Count   int    `json:"count"`
}

// AnchorMetrics is §4.13's anchor metrics block.
type AnchorMetrics struct {
	Total              int            `json:"total"`
	ByContentType      map[string]int `json:"by_content_type"`
	BySourceZone       map[string]int `json:"by_source_zone"`
	ByLanguage         map[string]int `json:"by_language"`
	UnknownZoneRate    float64        `json:"unknown_zone_rate"`
	EmptyOrShort       int            `json:"empty_or_short"`
	TextLen            Percentiles    `json:"text_len"`
	TopUnknownHeadings []HeadingCount `json:"top_unknown_headings,omitempty"`
}

// ChunkMetrics is §4.13's chunk metrics block.
type ChunkMetrics struct {
	Total         int            `json:"total"`
	BySourceZone  map[string]int `json:"by_source_zone"`
	ByLanguage    map[string]int `json:"by_language"`
	TokenEstimate Percentiles    `json:"token_estimate"`
	AnchorCount   Percentiles    `json:"anchor_count"`
}

// FactsMetrics is §4.13's facts metrics block.
type FactsMetrics struct {
	Total            int            `json:"total"`
	ByFactKey        map[string]int `json:"by_fact_key"`
	ByStatus         map[string]int `json:"by_status"`
	ConflictingCount int            `json:"conflicting_count"`
	NeedsReview      []string       `json:"needs_review"`
	MissingRequired  []string       `json:"missing_required"`
}

// SoAMetrics is §4.13's SoA metrics block.
type SoAMetrics struct {
	Found             bool     `json:"found"`
	TableScore        *float64 `json:"table_score,omitempty"`
	VisitsCount       int      `json:"visits_count"`
	ProceduresCount   int      `json:"procedures_count"`
	MatrixCellsTotal  int      `json:"matrix_cells_total"`
	MatrixMarkedCells int      `json:"matrix_marked_cells"`
}

// SectionStatus is one target_section's reported state.
type SectionStatus struct {
	Status     string  `json:"status"`
	Confidence float64 `json:"confidence,omitempty"`
}

// SectionMapMetrics is §4.13's section-map coverage block.
type SectionMapMetrics struct {
	Expected         int                      `json:"expected"`
	Total            int                      `json:"total"`
	ByStatus         map[string]int           `json:"by_status"`
	PerTargetSection map[string]SectionStatus `json:"per_target_section"`
	MissingCoreKeys  []string                 `json:"missing_core_keys,omitempty"`
}

// Metrics is the full per-run metrics tree, matching the
// `metrics: {anchors, chunks, facts, soa, section_maps}` shape of the
// ingestion-run summary JSON (§6).
type Metrics struct {
	Anchors     AnchorMetrics     `json:"anchors"`
	Chunks      ChunkMetrics      `json:"chunks"`
	Facts       FactsMetrics      `json:"facts"`
	SoA         SoAMetrics        `json:"soa"`
	SectionMaps SectionMapMetrics `json:"section_maps"`
}

// CollectAnchorMetrics aggregates one document version's anchors.
func CollectAnchorMetrics(anchors []domain.Anchor) AnchorMetrics {
	m := AnchorMetrics{
		ByContentType: map[string]int{},
		BySourceZone:  map[string]int{},
		ByLanguage:    map[string]int{},
	}
	m.Total = len(anchors)
	if m.Total == 0 {
		return m
	}

	var unknownCount int
	textLens := make([]float64, 0, len(anchors))
	headingCounts := map[string]int{}

	for _, a := range anchors {
		m.ByContentType[string(a.ContentType)]++
		m.BySourceZone[string(a.SourceZone)]++
		m.ByLanguage[string(a.Language)]++
		if a.SourceZone == domain.ZoneUnknown {
			unknownCount++
		}

		textLen := len([]rune(a.TextNorm))
		textLens = append(textLens, float64(textLen))
		if textLen < shortTextThreshold {
			m.EmptyOrShort++
		}

		if a.ContentType == domain.ContentHeading && a.SourceZone == domain.ZoneUnknown {
			headingCounts[truncateRunes(a.TextNorm, headingPreviewLen)]++
		}
	}

	m.UnknownZoneRate = float64(unknownCount) / float64(m.Total)
	m.TextLen = computePercentiles(textLens)
	m.TopUnknownHeadings = topHeadings(headingCounts, topHeadingsLimit)
	return m
}

// CollectChunkMetrics aggregates one document version's chunks.
func CollectChunkMetrics(chunks []domain.Chunk) ChunkMetrics {
	m := ChunkMetrics{
		BySourceZone: map[string]int{},
		ByLanguage:   map[string]int{},
	}
	m.Total = len(chunks)

	tokenEstimates := make([]float64, 0, len(chunks))
	anchorCounts := make([]float64, 0, len(chunks))
	for _, c := range chunks {
		m.BySourceZone[string(c.SourceZone)]++
		m.ByLanguage[string(c.Language)]++
		tokenEstimates = append(tokenEstimates, float64(c.TokenEst))
		anchorCounts = append(anchorCounts, float64(len(c.AnchorIDs)))
	}
	m.TokenEstimate = computePercentiles(tokenEstimates)
	m.AnchorCount = computePercentiles(anchorCounts)
	return m
}

// CollectFactsMetrics aggregates one document version's facts.
// requiredFactKeys are "fact_type/fact_key" composite keys, matching
// ByFactKey's own key shape.
func CollectFactsMetrics(facts []domain.Fact, requiredFactKeys []string) FactsMetrics {
	m := FactsMetrics{
		ByFactKey: map[string]int{},
		ByStatus:  map[string]int{},
	}
	for _, f := range facts {
		m.Total++
		key := f.FactType + "/" + f.FactKey
		m.ByFactKey[key]++
		m.ByStatus[string(f.Status)]++
		switch f.Status {
		case domain.FactConflicting:
			m.ConflictingCount++
		case domain.FactNeedsReview:
			m.NeedsReview = append(m.NeedsReview, key)
		}
	}
	for _, required := range requiredFactKeys {
		if m.ByFactKey[required] == 0 {
			m.MissingRequired = append(m.MissingRequired, required)
		}
	}
	sort.Strings(m.NeedsReview)
	sort.Strings(m.MissingRequired)
	return m
}

// CollectSoAMetrics summarizes one SoA extraction result (§4.5).
func CollectSoAMetrics(soa domain.SoaResult) SoAMetrics {
	m := SoAMetrics{Found: soa.Found}
	if !soa.Found {
		return m
	}
	score := soa.Confidence
	m.TableScore = &score
	m.VisitsCount = len(soa.Visits)
	m.ProceduresCount = len(soa.Procedures)
	m.MatrixCellsTotal = len(soa.Visits) * len(soa.Procedures)
	m.MatrixMarkedCells = len(soa.Matrix)
	return m
}

// CollectSectionMapMetrics summarizes section-map coverage over a
// configured core-section list.
func CollectSectionMapMetrics(maps []domain.SectionMap, expected int, coreSections []string) SectionMapMetrics {
	m := SectionMapMetrics{
		Expected:         expected,
		Total:            len(maps),
		ByStatus:         map[string]int{},
		PerTargetSection: map[string]SectionStatus{},
	}

	mappedCore := make(map[string]bool, len(coreSections))
	for _, sm := range maps {
		m.ByStatus[string(sm.Status)]++
		m.PerTargetSection[sm.TargetSection] = SectionStatus{Status: string(sm.Status), Confidence: sm.Confidence}
		if sm.Status == domain.SectionMapMapped || sm.Status == domain.SectionMapNeedsReview {
			mappedCore[sm.TargetSection] = true
		}
	}

	if len(coreSections) > 0 {
		for _, key := range coreSections {
			if !mappedCore[key] {
				m.MissingCoreKeys = append(m.MissingCoreKeys, key)
			}
		}
	}
	return m
}

func topHeadings(counts map[string]int, limit int) []HeadingCount {
	if len(counts) == 0 {
		return nil
	}
	items := make([]HeadingCount, 0, len(counts))
	for h, c := range counts {
		items = append(items, HeadingCount{Heading: h, Count: c})
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Count != items[j].Count {
			return items[i].Count > items[j].Count
		}
		return items[i].Heading < items[j].Heading
	})
	if len(items) > limit {
		items = items[:limit]
	}
	return items
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// computePercentiles computes p50/p95 via linear interpolation between
// closest ranks (the common default, e.g. numpy.percentile); the
// original's own compute_percentiles implementation was not part of the
// retrieved source, so this is the standard choice rather than a port.
func computePercentiles(values []float64) Percentiles {
	if len(values) == 0 {
		return Percentiles{}
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	return Percentiles{P50: percentileAt(sorted, 50), P95: percentileAt(sorted, 95)}
}

func percentileAt(sorted []float64, p int) float64 {
	if len(sorted) == 1 {
		return sorted[0]
	}
	rank := float64(p) / 100.0 * float64(len(sorted)-1)
	lower := int(math.Floor(rank))
	upper := int(math.Ceil(rank))
	if lower == upper {
		return sorted[lower]
	}
	frac := rank - float64(lower)
	return sorted[lower] + frac*(sorted[upper]-sorted[lower])
}
