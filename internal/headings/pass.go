package headings

import "trialgraph/internal/docxreader"

// Quality summarizes the heading detection pass, per §4.4: "Heading-quality
// summary: none / low / ok based on counts and whether visual fallback
// dominated."
type Quality string

const (
	QualityNone Quality = "none"
	QualityLow  Quality = "low"
	QualityOK   Quality = "ok"
)

// Summary reports aggregate detection outcome and metrics for one document.
type Summary struct {
	HeadingCount          int
	RealHeadingCount      int
	VisualHeadingCount    int
	NumberingRejections   int
	VisualFallbackEnabled bool
	Quality               Quality
}

// visualFallbackMinParagraphsWithText and visualFallbackMaxHeadings gate the
// second pass, per §4.4 step 3: "If heading_count == 0 or
// (paragraphs_with_text > 50 and heading_count < 3), re-run with visual
// fallback enabled."
const (
	visualFallbackMinParagraphsWithText = 50
	visualFallbackMaxHeadings           = 3
)

// DetectAll runs the full two-pass detection described in §4.4 steps 1-3
// over every paragraph of the document and returns one HeadingHit per
// paragraph (aligned by index) plus the run summary.
func DetectAll(paragraphs []docxreader.Paragraph) ([]HeadingHit, Summary) {
	stats := computeDocStats(paragraphs)

	hits, headingCount, paragraphsWithText, rejections := runPass(paragraphs, stats, false)

	visualEnabled := false
	if headingCount == 0 || (paragraphsWithText > visualFallbackMinParagraphsWithText && headingCount < visualFallbackMaxHeadings) {
		visualEnabled = true
		hits, headingCount, paragraphsWithText, rejections = runPass(paragraphs, stats, true)
	}

	var realCount, visualCount int
	for _, h := range hits {
		if !h.IsHeading {
			continue
		}
		if h.Real() {
			realCount++
		} else if h.Mode == ModeVisual {
			visualCount++
		}
	}

	summary := Summary{
		HeadingCount:          headingCount,
		RealHeadingCount:      realCount,
		VisualHeadingCount:    visualCount,
		NumberingRejections:   rejections,
		VisualFallbackEnabled: visualEnabled,
		Quality:               classifyQuality(headingCount, realCount, visualCount),
	}
	return hits, summary
}

func runPass(paragraphs []docxreader.Paragraph, stats DocStats, visual bool) ([]HeadingHit, int, int, int) {
	hits := make([]HeadingHit, len(paragraphs))
	var rejections int
	var headingCount, paragraphsWithText int
	for i, p := range paragraphs {
		hit := Detect(p, stats, visual, &rejections)
		hits[i] = hit
		if hit.IsHeading {
			headingCount++
		}
		if p.Text() != "" {
			paragraphsWithText++
		}
	}
	return hits, headingCount, paragraphsWithText, rejections
}

func classifyQuality(headingCount, realCount, visualCount int) Quality {
	switch {
	case headingCount == 0:
		return QualityNone
	case realCount == 0 && visualCount > 0:
		// Visual fallback dominated entirely: low confidence in section paths.
		return QualityLow
	case realCount < visualFallbackMaxHeadings:
		return QualityLow
	default:
		return QualityOK
	}
}
