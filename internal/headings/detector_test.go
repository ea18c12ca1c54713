package headings

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trialgraph/internal/docxreader"
)

type fakeParagraph struct {
	text         string
	style        string
	outlineLevel int
	hasOutline   bool
	numbering    bool
	fontSize     float64
	bold         bool
}

func (f fakeParagraph) Text() string      { return f.text }
func (f fakeParagraph) StyleName() string { return f.style }
func (f fakeParagraph) OutlineLevel() (int, bool) {
	return f.outlineLevel, f.hasOutline
}
func (f fakeParagraph) HasNumbering() bool  { return f.numbering }
func (f fakeParagraph) FontSizePt() float64 { return f.fontSize }
func (f fakeParagraph) Bold() bool          { return f.bold }

func TestDetectStyleHeading(t *testing.T) {
	p := fakeParagraph{text: "Introduction", style: "Heading 2"}
	hit := Detect(p, DocStats{}, false, nil)
	require.True(t, hit.IsHeading)
	assert.Equal(t, ModeStyle, hit.Mode)
	assert.Equal(t, 2, hit.Level)
	assert.True(t, hit.Real())
}

func TestDetectStyleHeadingRussian(t *testing.T) {
	p := fakeParagraph{text: "Введение", style: "Заголовок 1"}
	hit := Detect(p, DocStats{}, false, nil)
	require.True(t, hit.IsHeading)
	assert.Equal(t, ModeStyle, hit.Mode)
	assert.Equal(t, 1, hit.Level)
}

func TestDetectOutlineHeading(t *testing.T) {
	p := fakeParagraph{text: "Objectives", style: "Normal", outlineLevel: 3, hasOutline: true}
	hit := Detect(p, DocStats{}, false, nil)
	require.True(t, hit.IsHeading)
	assert.Equal(t, ModeOutline, hit.Mode)
	assert.Equal(t, 3, hit.Level)
	assert.True(t, hit.Real())
}

func TestDetectNumberingHeading(t *testing.T) {
	p := fakeParagraph{text: "1.2.3 Study Design", style: "Normal"}
	hit := Detect(p, DocStats{}, false, nil)
	require.True(t, hit.IsHeading)
	assert.Equal(t, ModeNumbering, hit.Mode)
	assert.Equal(t, 3, hit.Level)
	assert.False(t, hit.Real(), "numbering hits are not 'real' for section-path purposes")
}

func TestDetectNumberingRejectsSentenceShape(t *testing.T) {
	var rejections int
	p := fakeParagraph{text: "1 patient was withdrawn from the study due to an adverse event reported on day 3.", style: "Normal"}
	hit := Detect(p, DocStats{}, false, &rejections)
	assert.False(t, hit.IsHeading)
	assert.Equal(t, 1, rejections)
}

func TestDetectNumberingRejectsOverlyLongRemainder(t *testing.T) {
	var rejections int
	long := "2 "
	for i := 0; i < 40; i++ {
		long += "word "
	}
	p := fakeParagraph{text: long, style: "Normal"}
	hit := Detect(p, DocStats{}, false, &rejections)
	assert.False(t, hit.IsHeading)
	assert.Equal(t, 1, rejections)
}

func TestDetectVisualFallbackDisabledByDefault(t *testing.T) {
	p := fakeParagraph{text: "Key Findings", style: "Normal", fontSize: 16, bold: true}
	hit := Detect(p, DocStats{MedianFontPt: 11}, false, nil)
	assert.False(t, hit.IsHeading)
}

func TestDetectVisualFallbackWhenEnabled(t *testing.T) {
	p := fakeParagraph{text: "Key Findings", style: "Normal", fontSize: 16, bold: true}
	hit := Detect(p, DocStats{MedianFontPt: 11}, true, nil)
	require.True(t, hit.IsHeading)
	assert.Equal(t, ModeVisual, hit.Mode)
	assert.False(t, hit.Real())
}

func TestDetectVisualFallbackRejectsLongText(t *testing.T) {
	long := ""
	for i := 0; i < 30; i++ {
		long += "lorem ipsum "
	}
	p := fakeParagraph{text: long, style: "Normal", fontSize: 16, bold: true}
	hit := Detect(p, DocStats{MedianFontPt: 11}, true, nil)
	assert.False(t, hit.IsHeading)
}

func TestDetectEmptyParagraph(t *testing.T) {
	hit := Detect(fakeParagraph{text: "   "}, DocStats{}, false, nil)
	assert.False(t, hit.IsHeading)
}

func TestDetectAllTriggersVisualFallbackWhenFewHeadingsAndManyParagraphs(t *testing.T) {
	paragraphs := make([]docxreader.Paragraph, 0, 60)
	paragraphs = append(paragraphs, fakeParagraph{text: "Key Findings", style: "Normal", fontSize: 16, bold: true})
	for i := 0; i < 55; i++ {
		paragraphs = append(paragraphs, fakeParagraph{text: "ordinary body text here", style: "Normal", fontSize: 11})
	}

	hits, summary := DetectAll(paragraphs)
	require.Len(t, hits, len(paragraphs))
	assert.True(t, summary.VisualFallbackEnabled)
	assert.Equal(t, 1, summary.VisualHeadingCount)
	assert.Equal(t, QualityLow, summary.Quality)
}

func TestDetectAllNoVisualFallbackWhenEnoughRealHeadings(t *testing.T) {
	paragraphs := []docxreader.Paragraph{
		fakeParagraph{text: "Intro", style: "Heading 1"},
		fakeParagraph{text: "body text", style: "Normal"},
		fakeParagraph{text: "Methods", style: "Heading 1"},
		fakeParagraph{text: "body text", style: "Normal"},
		fakeParagraph{text: "Results", style: "Heading 1"},
	}
	hits, summary := DetectAll(paragraphs)
	require.Len(t, hits, len(paragraphs))
	assert.False(t, summary.VisualFallbackEnabled)
	assert.Equal(t, 3, summary.RealHeadingCount)
	assert.Equal(t, QualityOK, summary.Quality)
}
