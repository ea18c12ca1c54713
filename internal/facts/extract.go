// Package facts implements C8: rules-based extraction of study-scoped
// Facts with anchor provenance, per spec §4.8.
package facts

import (
	"sort"

	"trialgraph/internal/domain"
)

// eligibleContentTypes is the set the extractor operates over, per §4.8:
// "anchors of content_type ∈ {HDR, P, LI, FN}".
var eligibleContentTypes = map[domain.ContentType]bool{
	domain.ContentHeading:  true,
	domain.ContentPara:     true,
	domain.ContentListItem: true,
	domain.ContentFootnote: true,
}

// sortForExtraction orders anchors HDR-first then P/LI/FN, then by
// ordinal, per §4.8.
func sortForExtraction(anchors []domain.Anchor) []domain.Anchor {
	out := make([]domain.Anchor, 0, len(anchors))
	for _, a := range anchors {
		if eligibleContentTypes[a.ContentType] {
			out = append(out, a)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		iHDR := out[i].ContentType == domain.ContentHeading
		jHDR := out[j].ContentType == domain.ContentHeading
		if iHDR != jHDR {
			return iHDR
		}
		return out[i].Ordinal < out[j].Ordinal
	})
	return out
}

// Extract runs every rule in catalog against docVersionID's eligible
// anchors (sorted per §4.8) and returns the resulting Facts plus their
// PRIMARY FactEvidence. For each rule, the first matching anchor in sort
// order is PRIMARY evidence. A recognized-but-unparsable marker still
// yields a NEEDS_REVIEW fact with value_json nil and the anchor attached.
func Extract(studyID, docVersionID string, anchors []domain.Anchor, catalog []Rule) ([]domain.Fact, []domain.FactEvidence) {
	sorted := sortForExtraction(anchors)

	var facts []domain.Fact
	var evidence []domain.FactEvidence

	for _, rule := range catalog {
		for _, a := range sorted {
			re, ok := rule.Patterns[a.Language]
			if !ok {
				// Languages without a dedicated pattern still get a best
				// effort match against the EN pattern, since MIXED/UNKNOWN
				// text commonly carries English markers verbatim.
				re = rule.Patterns[domain.LanguageEN]
			}
			if re == nil {
				continue
			}
			match := re.FindStringSubmatch(a.TextNorm)
			if match == nil {
				continue
			}

			value, unit, parsed := rule.ParseValue(a.TextNorm, match)
			status := domain.FactExtracted
			var valueJSON map[string]any
			if !parsed {
				status = domain.FactNeedsReview
				valueJSON = nil
			} else {
				valueJSON = map[string]any{"value": value}
			}

			facts = append(facts, domain.Fact{
				StudyID:                 studyID,
				FactType:                rule.FactType,
				FactKey:                 rule.FactKey,
				ValueJSON:               valueJSON,
				Unit:                    unit,
				Status:                  status,
				Confidence:              1.0,
				CreatedFromDocVersionID: docVersionID,
			})
			evidence = append(evidence, domain.FactEvidence{
				FactType:  rule.FactType,
				FactKey:   rule.FactKey,
				StudyID:   studyID,
				AnchorRef: a.AnchorID,
				Role:      domain.EvidencePrimary,
			})
			break // first matching anchor wins; stop scanning for this rule.
		}
	}

	return facts, evidence
}
