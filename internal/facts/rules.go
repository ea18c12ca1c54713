package facts

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"trialgraph/internal/domain"
)

// Rule is one entry of the rule catalog described in §4.8. Patterns is
// keyed by language; ParseValue turns a regex match into a JSON-able value,
// returning ok=false when a marker was recognized but no valid value could
// be parsed (still eligible for a NEEDS_REVIEW fact per the upsert policy).
type Rule struct {
	FactType   string
	FactKey    string
	Patterns   map[domain.Language]*regexp.Regexp
	ParseValue func(raw string, match []string) (value any, unit string, ok bool)
}

func compilePattern(p string) *regexp.Regexp {
	return regexp.MustCompile(p)
}

// CatalogHash derives a stable content hash over a rule catalog's
// fact_type/fact_key/language/pattern tuples, independent of slice order.
// Combined with the zone rulebook's own Hash into the ingestion run's
// pipeline_config_hash, so editing the catalog changes every subsequent
// run's recorded hash, per §6.
func CatalogHash(catalog []Rule) string {
	lines := make([]string, 0, len(catalog)*2)
	for _, rule := range catalog {
		for lang, re := range rule.Patterns {
			lines = append(lines, rule.FactType+"|"+rule.FactKey+"|"+string(lang)+"|"+re.String())
		}
	}
	sort.Strings(lines)
	sum := sha256.Sum256([]byte(strings.Join(lines, "\n")))
	return hex.EncodeToString(sum[:])
}

// DefaultCatalog is the minimum rule catalog from §4.8; rule names are
// normative, patterns illustrative.
func DefaultCatalog() []Rule {
	return []Rule{
		{
			FactType: "protocol_meta",
			FactKey:  "protocol_version",
			Patterns: map[domain.Language]*regexp.Regexp{
				domain.LanguageEN: compilePattern(`(?i)\bprotocol\s*(version|no\.?|number)\b\s*[:#]?\s*([A-Za-z0-9._/\-]+)`),
				domain.LanguageRU: compilePattern(`(?i)(версия|номер)\s+протокола[:#]?\s*([A-Za-zА-Яа-я0-9._/\-]+)`),
			},
			ParseValue: func(raw string, match []string) (any, string, bool) {
				if len(match) < 3 {
					return nil, "", false
				}
				v := strings.TrimSpace(match[2])
				if v == "" {
					return nil, "", false
				}
				return v, "", true
			},
		},
		{
			FactType: "protocol_meta",
			FactKey:  "amendment_date",
			Patterns: map[domain.Language]*regexp.Regexp{
				domain.LanguageEN: compilePattern(`(?i)amendment date\s*[:#]?\s*(.{0,40})`),
				domain.LanguageRU: compilePattern(`(?i)дата (внесения изменений|поправки)[:#]?\s*(.{0,40})`),
			},
			ParseValue: func(raw string, match []string) (any, string, bool) {
				span := match[len(match)-1]
				iso, ok := ParseDate(span)
				if !ok {
					return nil, "", false
				}
				return iso, "", true
			},
		},
		{
			FactType: "population",
			FactKey:  "planned_n_total",
			Patterns: map[domain.Language]*regexp.Regexp{
				domain.LanguageEN: compilePattern(`(?i)(total n\s*=\s*|planned enrollment[:\s]*|n\s*=\s*)(\d{1,7})`),
				domain.LanguageRU: compilePattern(`(?i)(планируемое число[:\s]*|всего n\s*=\s*)(\d{1,7})`),
			},
			ParseValue: func(raw string, match []string) (any, string, bool) {
				digits := match[len(match)-1]
				n, err := strconv.Atoi(digits)
				if err != nil || n <= 0 || n > 1_000_000 {
					return nil, "", false
				}
				return n, "participants", true
			},
		},
	}
}
