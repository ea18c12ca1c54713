package zones

import (
	"fmt"
	"sort"
	"strings"

	"trialgraph/internal/domain"
)

// Result is the classifier's output for one (section_path, heading) pair.
type Result struct {
	Zone       domain.SourceZone
	Confidence float64
	Rationale  string
}

// Classify applies the rulebook to section_path and the nearest heading
// text, optionally restricting patterns to a known language. Pure and
// deterministic: identical inputs always yield identical output.
func (rb Rulebook) Classify(sectionPath, headingText string, lang domain.Language) Result {
	haystack := strings.ToLower(sectionPath + " " + headingText)
	if strings.TrimSpace(haystack) == "" {
		return Result{Zone: domain.ZoneUnknown, Confidence: 1.0, Rationale: "empty input"}
	}

	type score struct {
		zone    domain.SourceZone
		total   float64
		matched []string
	}
	var scores []score

	for _, rule := range rb.Rules {
		var total float64
		var matched []string
		for _, p := range rule.Patterns {
			if lang != "" && lang != domain.LanguageUnknown && lang != domain.LanguageMixed && p.Language != lang {
				continue
			}
			if p.re.MatchString(haystack) {
				total += p.Weight
				matched = append(matched, p.Name)
			}
		}
		if total > 0 {
			scores = append(scores, score{zone: rule.Zone, total: total, matched: matched})
		}
	}

	if len(scores) == 0 {
		return Result{Zone: domain.ZoneUnknown, Confidence: 0.5, Rationale: "no pattern matched"}
	}

	sort.Slice(scores, func(i, j int) bool {
		if scores[i].total != scores[j].total {
			return scores[i].total > scores[j].total
		}
		return scores[i].zone < scores[j].zone
	})
	best := scores[0]

	// Confidence saturates toward 1.0 as matched weight accumulates, and is
	// pulled down when a runner-up zone scored almost as highly.
	confidence := best.total / (best.total + 1.0)
	if len(scores) > 1 && scores[1].total > 0 {
		margin := (best.total - scores[1].total) / best.total
		confidence *= 0.5 + 0.5*margin
	}
	if confidence > 1.0 {
		confidence = 1.0
	}

	return Result{
		Zone:       best.zone,
		Confidence: confidence,
		Rationale:  fmt.Sprintf("matched %s", strings.Join(best.matched, ", ")),
	}
}
