// Package headings implements C2: per-paragraph heading detection via a
// style/outline/numbering/visual-fallback cascade, per spec §4.2.
package headings

import (
	"regexp"
	"strings"
	"unicode"

	"trialgraph/internal/docxreader"
	"trialgraph/internal/textnorm"
)

// Mode identifies which cascade stage produced a HeadingHit.
type Mode string

const (
	ModeStyle     Mode = "style"
	ModeOutline   Mode = "outline"
	ModeNumbering Mode = "numbering"
	ModeVisual    Mode = "visual"
	ModeNone      Mode = ""
)

// HeadingHit is the per-paragraph detection result.
type HeadingHit struct {
	IsHeading       bool
	Level           int // valid only when IsHeading
	Mode            Mode
	NormalizedTitle string
}

// Real reports whether the hit counts as a "real" heading for section-path
// purposes: only style and outline detections qualify, per §4.2.
func (h HeadingHit) Real() bool {
	return h.IsHeading && (h.Mode == ModeStyle || h.Mode == ModeOutline)
}

var (
	styleHeadingRe = regexp.MustCompile(`(?i)^(heading|заголовок)\s*([1-9])?`)
	numberingRe    = regexp.MustCompile(`^\d+(\.\d+){0,5}\s+`)
	// sentencePunct matches a trailing sentence terminator, used to reject
	// numbering candidates that are really the start of a numbered sentence.
	sentencePunct = regexp.MustCompile(`[.!?]\s*$`)
)

const (
	// numberingMaxLen bounds how long the remaining text after the numbering
	// prefix may be before we reject it as a heading candidate.
	numberingMaxLen = 160
	// visualShortTextMaxLen is the longest text, in runes, the visual
	// fallback still accepts as a heading.
	visualShortTextMaxLen = 120
)

// DocStats carries document-wide font statistics needed by the visual
// fallback heuristic (§4.2 step 4). Computed once per document by
// DetectAll and passed through to Detect.
type DocStats struct {
	MedianFontPt float64
}

// Detect classifies a single paragraph. enableVisualFallback must only be
// true on the document's second pass, per §4.4 step 3. rejectionCounter, if
// non-nil, is incremented every time a numbering-like prefix is rejected by
// the sentence-shape heuristic; the caller exposes it in run metrics.
func Detect(p docxreader.Paragraph, stats DocStats, enableVisualFallback bool, rejectionCounter *int) HeadingHit {
	text := textnorm.Normalize(p.Text())
	if text == "" {
		return HeadingHit{}
	}

	if m := styleHeadingRe.FindStringSubmatch(p.StyleName()); m != nil {
		level := 1
		if m[2] != "" {
			level = int(m[2][0] - '0')
		}
		return HeadingHit{IsHeading: true, Level: level, Mode: ModeStyle, NormalizedTitle: text}
	}

	if lvl, ok := p.OutlineLevel(); ok && lvl >= 1 {
		return HeadingHit{IsHeading: true, Level: lvl, Mode: ModeOutline, NormalizedTitle: text}
	}

	if hit, ok := detectNumbering(text, rejectionCounter); ok {
		return hit
	}

	if enableVisualFallback {
		if hit, ok := detectVisual(p, text, stats); ok {
			return hit
		}
	}

	return HeadingHit{}
}

func detectNumbering(text string, rejectionCounter *int) (HeadingHit, bool) {
	loc := numberingRe.FindStringIndex(text)
	if loc == nil {
		return HeadingHit{}, false
	}
	prefix := text[:loc[1]]
	rest := strings.TrimSpace(text[loc[1]:])

	reject := func() {
		if rejectionCounter != nil {
			*rejectionCounter++
		}
	}

	if rest == "" || len(rest) > numberingMaxLen {
		reject()
		return HeadingHit{}, false
	}
	if sentencePunct.MatchString(rest) {
		reject()
		return HeadingHit{}, false
	}

	level := strings.Count(strings.TrimSpace(prefix), ".") + 1
	return HeadingHit{IsHeading: true, Level: level, Mode: ModeNumbering, NormalizedTitle: text}, true
}

func detectVisual(p docxreader.Paragraph, text string, stats DocStats) (HeadingHit, bool) {
	if !p.Bold() {
		return HeadingHit{}, false
	}
	if stats.MedianFontPt <= 0 || p.FontSizePt() <= stats.MedianFontPt {
		return HeadingHit{}, false
	}
	if len([]rune(text)) > visualShortTextMaxLen {
		return HeadingHit{}, false
	}
	if !hasLetters(text) {
		return HeadingHit{}, false
	}
	// Visual headings carry no reliable level signal; level 1 is a
	// placeholder, consistent with them never updating the heading stack.
	return HeadingHit{IsHeading: true, Level: 1, Mode: ModeVisual, NormalizedTitle: text}, true
}

func hasLetters(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}
