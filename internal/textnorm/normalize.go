// Package textnorm implements C1: whitespace normalization, stable
// hashing, and RU/EN/MIXED language detection, per spec §4.1.
package textnorm

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"

	"trialgraph/internal/domain"
)

var whitespaceRe = regexp.MustCompile(`\s+`)

// Normalize trims and collapses all whitespace runs to a single space.
// Empty input returns empty output.
func Normalize(s string) string {
	if s == "" {
		return ""
	}
	out := whitespaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(out)
}

// Hash computes the SHA-256 hex digest of the UTF-8 bytes of normalized
// text, per §4.1. Callers are expected to pass already-normalized text;
// Hash itself does not re-normalize so that P3 (text_hash == SHA256(norm))
// stays a single, unambiguous call site.
func Hash(normalized string) string {
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}

var (
	cyrillicRe = regexp.MustCompile(`[А-Яа-яЁё]`)
	latinRe    = regexp.MustCompile(`[A-Za-z]`)
)

// DetectLanguage classifies text as RU, EN, MIXED, or UNKNOWN using the
// exact thresholds from §4.1. These are normative and must not be tuned
// per-document.
func DetectLanguage(text string) domain.Language {
	cyr := len(cyrillicRe.FindAllString(text, -1))
	lat := len(latinRe.FindAllString(text, -1))
	total := cyr + lat
	if total == 0 {
		return domain.LanguageUnknown
	}
	ratio := float64(cyr) / float64(total)
	switch {
	case ratio >= 0.7:
		return domain.LanguageRU
	case ratio <= 0.3:
		return domain.LanguageEN
	case cyr >= 10 && lat >= 10:
		return domain.LanguageMixed
	default:
		return domain.LanguageUnknown
	}
}
