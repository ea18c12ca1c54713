package facts

import "trialgraph/internal/domain"

// soaConfidenceThreshold mirrors the original ingestion service's
// fact_status = EXTRACTED if soa_result.confidence >= 0.7 else
// NEEDS_REVIEW gate.
const soaConfidenceThreshold = 0.7

// soaMatrixEvidenceCap bounds how many matrix cells get PRIMARY evidence
// rows, matching the original's "ограничиваем первыми 100" cap. Fixed
// rather than configurable, per the spec's own unresolved-performance-only
// framing.
const soaMatrixEvidenceCap = 100

// FromSoA builds the "soa" facts (visits, procedures, matrix) and their
// PRIMARY evidence from one document version's extracted Schedule-of-
// Activities result, grounded on the ingestion service's visits_fact/
// procedures_fact/matrix_fact construction.
func FromSoA(studyID, docVersionID string, r domain.SoaResult) ([]domain.Fact, []domain.FactEvidence) {
	if !r.Found {
		return nil, nil
	}

	status := domain.FactExtracted
	if r.Confidence < soaConfidenceThreshold {
		status = domain.FactNeedsReview
	}

	var out []domain.Fact
	var evidence []domain.FactEvidence

	if len(r.Visits) > 0 {
		out = append(out, domain.Fact{
			StudyID:                 studyID,
			FactType:                "soa",
			FactKey:                 "visits",
			ValueJSON:               map[string]any{"visits": r.Visits},
			Status:                  status,
			Confidence:              r.Confidence,
			CreatedFromDocVersionID: docVersionID,
		})
		for _, v := range r.Visits {
			if v.AnchorRef == "" {
				continue
			}
			evidence = append(evidence, domain.FactEvidence{
				StudyID: studyID, FactType: "soa", FactKey: "visits",
				AnchorRef: v.AnchorRef, Role: domain.EvidencePrimary,
			})
		}
	}

	if len(r.Procedures) > 0 {
		out = append(out, domain.Fact{
			StudyID:                 studyID,
			FactType:                "soa",
			FactKey:                 "procedures",
			ValueJSON:               map[string]any{"procedures": r.Procedures},
			Status:                  status,
			Confidence:              r.Confidence,
			CreatedFromDocVersionID: docVersionID,
		})
		for _, p := range r.Procedures {
			if p.AnchorRef == "" {
				continue
			}
			evidence = append(evidence, domain.FactEvidence{
				StudyID: studyID, FactType: "soa", FactKey: "procedures",
				AnchorRef: p.AnchorRef, Role: domain.EvidencePrimary,
			})
		}
	}

	if len(r.Matrix) > 0 {
		out = append(out, domain.Fact{
			StudyID:                 studyID,
			FactType:                "soa",
			FactKey:                 "matrix",
			ValueJSON:               map[string]any{"matrix": r.Matrix},
			Status:                  status,
			Confidence:              r.Confidence,
			CreatedFromDocVersionID: docVersionID,
		})
		capped := r.Matrix
		if len(capped) > soaMatrixEvidenceCap {
			capped = capped[:soaMatrixEvidenceCap]
		}
		for _, m := range capped {
			if m.AnchorRef == "" {
				continue
			}
			evidence = append(evidence, domain.FactEvidence{
				StudyID: studyID, FactType: "soa", FactKey: "matrix",
				AnchorRef: m.AnchorRef, Role: domain.EvidencePrimary,
			})
		}
	}

	return out, evidence
}
