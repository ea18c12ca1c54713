// Package conflicts implements C12: the per-study fact-conflict
// detector. Grounded on
// original_source/backend/app/services/fact_consistency.py's
// structural and cross-document consistency checks.
package conflicts

import (
	"fmt"
	"sort"

	"github.com/google/uuid"

	"trialgraph/internal/domain"
)

// criticalFactKeys are the fact_key values whose cross-document value
// change is escalated to CRITICAL severity per §4.12.
var criticalFactKeys = map[string]bool{
	"sample_size":       true,
	"planned_n_total":   true,
	"planned_n_per_arm": true,
	"N":                 true,
}

// Result bundles everything one detection pass produces.
type Result struct {
	Conflicts []domain.Conflict
	Items     []domain.ConflictItem

	// FlippedFactKeys lists the Fact.Key() of every fact that must be
	// moved to FactConflicting as a side effect of structural_alternatives.
	FlippedFactKeys []string

	// Tasks holds the resolve_conflict tasks to raise for CRITICAL
	// conflicts not already covered by an open task.
	Tasks []domain.Task
}

// Detect runs the structural and cross-document consistency checks from
// §4.12 over one study's non-CONFLICTING facts.
//
// evidence supplies the fact->anchor linkage needed for cross-document
// comparison; matches is every AnchorMatch produced by the aligner (C11)
// for document versions touched by this study. existingTaskConflictIDs
// holds the conflict_id of every still-open resolve_conflict task, so
// repeated runs over unchanged data do not raise duplicate tasks.
func Detect(studyID string, facts []domain.Fact, evidence []domain.FactEvidence, matches []domain.AnchorMatch, existingTaskConflictIDs map[string]bool) Result {
	active := make([]domain.Fact, 0, len(facts))
	for _, f := range facts {
		if f.Status != domain.FactConflicting {
			active = append(active, f)
		}
	}

	var result Result
	detectStructural(studyID, active, &result)
	detectCrossDocument(studyID, active, evidence, matches, &result)

	if existingTaskConflictIDs == nil {
		existingTaskConflictIDs = map[string]bool{}
	}
	for _, c := range result.Conflicts {
		if c.Severity != domain.SeverityCritical || existingTaskConflictIDs[c.ConflictID] {
			continue
		}
		result.Tasks = append(result.Tasks, domain.Task{
			TaskID:  taskID(c.ConflictID),
			StudyID: studyID,
			Type:    domain.TaskResolveConflict,
			Status:  domain.TaskOpen,
			Payload: map[string]any{
				"conflict_id":   c.ConflictID,
				"conflict_type": string(c.Type),
				"severity":      string(c.Severity),
				"title":         c.Title,
			},
		})
	}
	return result
}

func detectStructural(studyID string, facts []domain.Fact, result *Result) {
	var ageMin, ageMax *domain.Fact

	for i := range facts {
		f := &facts[i]

		if alts, ok := f.Meta["alternatives"].([]any); ok && len(alts) > 0 {
			checkAlternatives(studyID, f, alts, result)
		}

		switch f.FactKey {
		case "age_min":
			ageMin = f
		case "age_max":
			ageMax = f
		case "age_range":
			checkAgeRangeFact(studyID, f, result)
		case "alpha":
			checkAlpha(studyID, f, result)
		case "power":
			checkPower(studyID, f, result)
		}
	}

	if ageMin != nil && ageMax != nil {
		checkAgeRangePair(studyID, *ageMin, *ageMax, result)
	}
}

func checkAlternatives(studyID string, f *domain.Fact, alts []any, result *Result) {
	mainValue := ExtractMainValue(f.ValueJSON)
	conflicting := false
	for _, alt := range alts {
		altValue := alt
		if m, ok := alt.(map[string]any); ok {
			altValue = ExtractMainValue(m)
		}
		if !ValuesEqual(mainValue, altValue) {
			conflicting = true
			break
		}
	}
	if !conflicting {
		return
	}

	result.FlippedFactKeys = append(result.FlippedFactKeys, f.Key())
	conflict := newConflict(studyID, domain.ConflictStructuralAlternatives, domain.SeverityMedium,
		fmt.Sprintf("Alternative values conflict for fact %s", f.FactKey),
		fmt.Sprintf("Fact %s:%s carries alternative values in meta.alternatives that differ from the main value %v.", f.FactType, f.FactKey, mainValue))
	result.Conflicts = append(result.Conflicts, conflict)
	result.Items = append(result.Items, domain.ConflictItem{
		ConflictID:  conflict.ConflictID,
		LeftFactKey: f.Key(),
		Evidence:    map[string]any{"main_value": mainValue, "alternatives": alts},
	})
}

func checkAgeRangeFact(studyID string, f *domain.Fact, result *Result) {
	minVal, okMin := ExtractNumeric(f.ValueJSON["min"])
	maxVal, okMax := ExtractNumeric(f.ValueJSON["max"])
	if !okMin || !okMax || minVal <= maxVal {
		return
	}
	conflict := newConflict(studyID, domain.ConflictStructuralRange, domain.SeverityHigh,
		"Invalid age range",
		fmt.Sprintf("age_min (%v) is greater than age_max (%v).", minVal, maxVal))
	result.Conflicts = append(result.Conflicts, conflict)
	result.Items = append(result.Items, domain.ConflictItem{
		ConflictID:  conflict.ConflictID,
		LeftFactKey: f.Key(),
		Evidence:    map[string]any{"age_min": minVal, "age_max": maxVal},
	})
}

func checkAgeRangePair(studyID string, ageMin, ageMax domain.Fact, result *Result) {
	minVal, okMin := ExtractNumeric(ageMin.ValueJSON)
	maxVal, okMax := ExtractNumeric(ageMax.ValueJSON)
	if !okMin || !okMax || minVal <= maxVal {
		return
	}
	conflict := newConflict(studyID, domain.ConflictStructuralRange, domain.SeverityHigh,
		"Invalid age range",
		fmt.Sprintf("age_min (%v) is greater than age_max (%v).", minVal, maxVal))
	result.Conflicts = append(result.Conflicts, conflict)
	result.Items = append(result.Items, domain.ConflictItem{
		ConflictID:   conflict.ConflictID,
		LeftFactKey:  ageMin.Key(),
		RightFactKey: ageMax.Key(),
		Evidence:     map[string]any{"age_min": minVal, "age_max": maxVal},
	})
}

func checkAlpha(studyID string, f *domain.Fact, result *Result) {
	alpha, ok := ExtractNumeric(f.ValueJSON)
	if !ok || alpha < 0.1 {
		return
	}
	conflict := newConflict(studyID, domain.ConflictStructuralAlpha, domain.SeverityMedium,
		"Alpha value out of bounds",
		fmt.Sprintf("alpha (%v) does not satisfy the expected < 0.1 threshold.", alpha))
	result.Conflicts = append(result.Conflicts, conflict)
	result.Items = append(result.Items, domain.ConflictItem{
		ConflictID:  conflict.ConflictID,
		LeftFactKey: f.Key(),
		Evidence:    map[string]any{"alpha": alpha, "threshold": 0.1},
	})
}

func checkPower(studyID string, f *domain.Fact, result *Result) {
	power, ok := ExtractNumeric(f.ValueJSON)
	if !ok || power > 0.7 {
		return
	}
	conflict := newConflict(studyID, domain.ConflictStructuralPower, domain.SeverityMedium,
		"Power value out of bounds",
		fmt.Sprintf("power (%v) does not satisfy the expected > 0.7 threshold.", power))
	result.Conflicts = append(result.Conflicts, conflict)
	result.Items = append(result.Items, domain.ConflictItem{
		ConflictID:  conflict.ConflictID,
		LeftFactKey: f.Key(),
		Evidence:    map[string]any{"power": power, "threshold": 0.7},
	})
}

func detectCrossDocument(studyID string, facts []domain.Fact, evidence []domain.FactEvidence, matches []domain.AnchorMatch, result *Result) {
	anchorsByFactKey := make(map[string][]string, len(evidence))
	for _, ev := range evidence {
		k := domain.Fact{StudyID: ev.StudyID, FactType: ev.FactType, FactKey: ev.FactKey}.Key()
		anchorsByFactKey[k] = append(anchorsByFactKey[k], ev.AnchorRef)
	}

	matchesByPair := make(map[[2]string][]domain.AnchorMatch, len(matches))
	for _, m := range matches {
		key := unorderedPair(m.FromDocVersionID, m.ToDocVersionID)
		matchesByPair[key] = append(matchesByPair[key], m)
	}

	byFactKey := make(map[string][]domain.Fact, len(facts))
	for _, f := range facts {
		byFactKey[f.FactKey] = append(byFactKey[f.FactKey], f)
	}

	factKeys := make([]string, 0, len(byFactKey))
	for k := range byFactKey {
		factKeys = append(factKeys, k)
	}
	sort.Strings(factKeys)

	for _, factKey := range factKeys {
		list := byFactKey[factKey]
		if len(list) < 2 {
			continue
		}

		// Internal arbitration: multiple facts for the same (fact_key,
		// doc_version_id) are extraction noise, not a cross-document
		// conflict. Keep the max-confidence one per version.
		byVersion := bestFactPerVersion(list)
		versionIDs := make([]string, 0, len(byVersion))
		for v := range byVersion {
			versionIDs = append(versionIDs, v)
		}
		sort.Strings(versionIDs)

		for i, vA := range versionIDs {
			for _, vB := range versionIDs[i+1:] {
				edges := matchesByPair[unorderedPair(vA, vB)]
				if len(edges) == 0 {
					continue
				}

				factA, factB := byVersion[vA], byVersion[vB]
				if ValuesEqual(factA.ValueJSON, factB.ValueJSON) {
					continue
				}

				linked, leftAnchor, rightAnchor := factsRelatedViaAnchors(
					vA, anchorsByFactKey[factA.Key()], anchorsByFactKey[factB.Key()], edges)
				if !linked {
					continue
				}

				severity := domain.SeverityHigh
				if criticalFactKeys[factKey] {
					severity = domain.SeverityCritical
				}
				valueA := ExtractMainValue(factA.ValueJSON)
				valueB := ExtractMainValue(factB.ValueJSON)

				conflict := newConflict(studyID, domain.ConflictCrossDocumentValue, severity,
					fmt.Sprintf("Fact %s changed between document versions", factKey),
					fmt.Sprintf("Fact %s changed between versions %s (%v) and %s (%v).", factKey, vA, valueA, vB, valueB))
				result.Conflicts = append(result.Conflicts, conflict)
				result.Items = append(result.Items, domain.ConflictItem{
					ConflictID:     conflict.ConflictID,
					LeftAnchorRef:  leftAnchor,
					RightAnchorRef: rightAnchor,
					LeftFactKey:    factA.Key(),
					RightFactKey:   factB.Key(),
					Evidence: map[string]any{
						"value_a":   valueA,
						"value_b":   valueB,
						"version_a": vA,
						"version_b": vB,
					},
				})
			}
		}
	}
}

func bestFactPerVersion(facts []domain.Fact) map[string]domain.Fact {
	best := make(map[string]domain.Fact, len(facts))
	for _, f := range facts {
		if f.CreatedFromDocVersionID == "" {
			continue
		}
		cur, ok := best[f.CreatedFromDocVersionID]
		if !ok || f.Confidence > cur.Confidence {
			best[f.CreatedFromDocVersionID] = f
		}
	}
	return best
}

// factsRelatedViaAnchors reports whether any AnchorMatch edge links an
// anchor supporting factA (in version vA) to one supporting factB.
func factsRelatedViaAnchors(vA string, anchorsA, anchorsB []string, edges []domain.AnchorMatch) (bool, string, string) {
	setA := toSet(anchorsA)
	setB := toSet(anchorsB)
	for _, m := range edges {
		if m.FromDocVersionID == vA {
			if setA[m.FromAnchorID] && setB[m.ToAnchorID] {
				return true, m.FromAnchorID, m.ToAnchorID
			}
		} else {
			if setA[m.ToAnchorID] && setB[m.FromAnchorID] {
				return true, m.ToAnchorID, m.FromAnchorID
			}
		}
	}
	return false, "", ""
}

func toSet(xs []string) map[string]bool {
	s := make(map[string]bool, len(xs))
	for _, x := range xs {
		s[x] = true
	}
	return s
}

func unorderedPair(a, b string) [2]string {
	if a <= b {
		return [2]string{a, b}
	}
	return [2]string{b, a}
}

func newConflict(studyID string, ctype domain.ConflictType, severity domain.ConflictSeverity, title, description string) domain.Conflict {
	return domain.Conflict{
		ConflictID:  conflictID(studyID, ctype, title, description),
		StudyID:     studyID,
		Type:        ctype,
		Severity:    severity,
		Status:      domain.ConflictOpen,
		Title:       title,
		Description: description,
	}
}

// conflictID derives a stable id from the conflict's content, so
// re-running detection over unchanged data reproduces the same id and
// task creation stays idempotent.
func conflictID(studyID string, ctype domain.ConflictType, title, description string) string {
	seed := studyID + "|" + string(ctype) + "|" + title + "|" + description
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(seed)).String()
}

func taskID(conflictID string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte("resolve_conflict|"+conflictID)).String()
}
