// Package zones implements C3: classification of an anchor's section_path
// and nearest heading into a coarse source_zone, per spec §4.3. Classification
// is pure and deterministic; the weighted-pattern rulebook is configuration,
// not code.
package zones

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"trialgraph/internal/domain"
)

// Pattern is one weighted regular expression contributing evidence toward a
// zone, scoped to a single language.
type Pattern struct {
	Name     string
	Language domain.Language
	Weight   float64
	re       *regexp.Regexp
}

// ZoneRule groups every pattern that can vote for a single zone.
type ZoneRule struct {
	Zone     domain.SourceZone
	Patterns []Pattern
}

// Rulebook is the full weighted-pattern configuration the classifier
// consumes. Zero value is usable but classifies everything as unknown;
// callers normally start from DefaultRulebook.
type Rulebook struct {
	Rules []ZoneRule
}

// NewPattern compiles a case-insensitive pattern for the given language.
// Panics on invalid regex, since rulebooks are fixed configuration compiled
// once at startup.
func NewPattern(name string, lang domain.Language, weight float64, pattern string) Pattern {
	// RE2's \b and \w only know ASCII; widen them to Unicode letters and
	// digits so Cyrillic patterns match at word boundaries too.
	pattern = strings.NewReplacer(`\b`, `(?:^|$|[^\p{L}\p{N}_])`, `\w`, `[\p{L}\p{N}_]`).Replace(pattern)
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		panic(fmt.Sprintf("zones: invalid pattern %q: %v", name, err))
	}
	return Pattern{Name: name, Language: lang, Weight: weight, re: re}
}

// DefaultRulebook is the built-in EN/RU weighted-pattern configuration
// covering the zones enumerated in domain.SourceZone.
func DefaultRulebook() Rulebook {
	return Rulebook{Rules: []ZoneRule{
		{
			Zone: domain.ZoneStatistics,
			Patterns: []Pattern{
				NewPattern("stats_en_analysis", domain.LanguageEN, 1.0, `\b(statistical analysis|analysis plan|sample size|power calculation|significance level|p-value|confidence interval)\b`),
				NewPattern("stats_en_alpha", domain.LanguageEN, 0.8, `\b(alpha|type I error|multiplicity|hypothesis testing)\b`),
				NewPattern("stats_ru_analysis", domain.LanguageRU, 1.0, `\b(статистическ\w* анализ|план анализа|размер выборки|уровень значимости|доверительн\w* интервал)\b`),
			},
		},
		{
			Zone: domain.ZoneSafety,
			Patterns: []Pattern{
				NewPattern("safety_en_ae", domain.LanguageEN, 1.0, `\b(adverse event|adverse reaction|serious adverse event|safety monitoring|toxicity|pharmacovigilance)\b`),
				NewPattern("safety_en_sae", domain.LanguageEN, 0.9, `\bSAEs?\b`),
				NewPattern("safety_ru_ae", domain.LanguageRU, 1.0, `\b(нежелательн\w* явлени\w*|нежелательн\w* реакци\w*|серьезн\w* нежелательн\w*|безопасност\w*)\b`),
			},
		},
		{
			Zone: domain.ZoneIP,
			Patterns: []Pattern{
				NewPattern("ip_en_drug", domain.LanguageEN, 1.0, `\b(investigational product|study drug|dosing|dose escalation|drug accountability|formulation|pharmacokinetic)\b`),
				NewPattern("ip_ru_drug", domain.LanguageRU, 1.0, `\b(исследуем\w* препарат|исследуемого лекарственного средства|дозирован\w*|фармакокинетик\w*)\b`),
			},
		},
		{
			Zone: domain.ZoneEligibility,
			Patterns: []Pattern{
				NewPattern("elig_en", domain.LanguageEN, 1.0, `\b(inclusion criteria|exclusion criteria|eligibility|informed consent|screening)\b`),
				NewPattern("elig_ru", domain.LanguageRU, 1.0, `\b(критери\w* включения|критери\w* исключения|информированн\w* согласи\w*|скрининг)\b`),
			},
		},
		{
			Zone: domain.ZoneProcedures,
			Patterns: []Pattern{
				NewPattern("proc_en", domain.LanguageEN, 1.0, `\b(schedule of activities|study visit|physical examination|vital signs|ECG|laboratory assessment|procedure)\b`),
				NewPattern("proc_ru", domain.LanguageRU, 1.0, `\b(график процедур|визит\w*|физикальн\w* осмотр|жизненн\w* показател\w*|лабораторн\w* исследован\w*)\b`),
			},
		},
		{
			Zone: domain.ZoneEndpoints,
			Patterns: []Pattern{
				NewPattern("endpoints_en", domain.LanguageEN, 1.0, `\b(primary endpoint|secondary endpoint|efficacy endpoint|objective\w*|outcome measure)\b`),
				NewPattern("endpoints_ru", domain.LanguageRU, 1.0, `\b(первичн\w* конечн\w* точк\w*|вторичн\w* конечн\w* точк\w*|цел\w* исследования)\b`),
			},
		},
	}}
}

// Hash derives a stable content hash over every pattern's zone, language,
// weight, and source regex, independent of slice order. Used to seed the
// ingestion run's pipeline_config_hash so changing the rulebook changes
// the hash recorded on every subsequent run, per §6.
func (rb Rulebook) Hash() string {
	lines := make([]string, 0, len(rb.Rules)*2)
	for _, rule := range rb.Rules {
		for _, p := range rule.Patterns {
			lines = append(lines, fmt.Sprintf("%s|%s|%s|%.4f|%s", rule.Zone, p.Name, p.Language, p.Weight, p.re.String()))
		}
	}
	sort.Strings(lines)
	sum := sha256.Sum256([]byte(strings.Join(lines, "\n")))
	return hex.EncodeToString(sum[:])
}
