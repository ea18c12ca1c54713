package headings

import (
	"sort"

	"trialgraph/internal/docxreader"
)

// computeDocStats derives the font-size median used by the visual-fallback
// heuristic, ignoring paragraphs that report no usable font size.
func computeDocStats(paragraphs []docxreader.Paragraph) DocStats {
	var sizes []float64
	for _, p := range paragraphs {
		if s := p.FontSizePt(); s > 0 {
			sizes = append(sizes, s)
		}
	}
	if len(sizes) == 0 {
		return DocStats{}
	}
	sort.Float64s(sizes)
	mid := len(sizes) / 2
	var median float64
	if len(sizes)%2 == 0 {
		median = (sizes[mid-1] + sizes[mid]) / 2
	} else {
		median = sizes[mid]
	}
	return DocStats{MedianFontPt: median}
}
