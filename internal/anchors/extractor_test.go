package anchors

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trialgraph/internal/docxreader"
	"trialgraph/internal/domain"
	"trialgraph/internal/zones"
)

type fakeParagraph struct {
	text      string
	style     string
	numbering bool
}

func (f fakeParagraph) Text() string               { return f.text }
func (f fakeParagraph) StyleName() string          { return f.style }
func (f fakeParagraph) OutlineLevel() (int, bool)  { return 0, false }
func (f fakeParagraph) HasNumbering() bool         { return f.numbering }
func (f fakeParagraph) FontSizePt() float64        { return 11 }
func (f fakeParagraph) Bold() bool                 { return false }

type fakeFootnote struct {
	paragraphs []docxreader.Paragraph
}

func (f fakeFootnote) Paragraphs() []docxreader.Paragraph { return f.paragraphs }

type fakeDocument struct {
	paragraphs []docxreader.Paragraph
	footnotes  []docxreader.Footnote
	footnoteErr error
}

func (d fakeDocument) Paragraphs() []docxreader.Paragraph { return d.paragraphs }
func (d fakeDocument) Tables() []docxreader.Table          { return nil }
func (d fakeDocument) Footnotes() ([]docxreader.Footnote, error) {
	return d.footnotes, d.footnoteErr
}

func TestExtractBuildsSectionPathAndFrontmatter(t *testing.T) {
	doc := fakeDocument{paragraphs: []docxreader.Paragraph{
		fakeParagraph{text: "Preamble text before any heading", style: "Normal"},
		fakeParagraph{text: "Introduction", style: "Heading 1"},
		fakeParagraph{text: "General background paragraph.", style: "Normal"},
		fakeParagraph{text: "Eligibility", style: "Heading 2"},
		fakeParagraph{text: "Patients must meet inclusion criteria.", style: "Normal"},
	}}

	got, summary, _ := Extract("docv1", doc, zones.DefaultRulebook())
	require.Len(t, got, 5)

	assert.Equal(t, domain.SectionFrontmatter, got[0].SectionPath)
	assert.Equal(t, domain.ContentPara, got[0].ContentType)

	assert.Equal(t, "Introduction", got[1].SectionPath)
	assert.Equal(t, domain.ContentHeading, got[1].ContentType)

	assert.Equal(t, "Introduction", got[2].SectionPath)
	assert.Equal(t, domain.ContentPara, got[2].ContentType)

	assert.Equal(t, "Introduction/Eligibility", got[3].SectionPath)
	assert.Equal(t, domain.ContentHeading, got[3].ContentType)

	assert.Equal(t, "Introduction/Eligibility", got[4].SectionPath)
	assert.Equal(t, domain.ZoneEligibility, got[4].SourceZone)

	assert.Equal(t, 5, summary.AnchorsCreated)
	assert.Equal(t, 0, summary.FootnoteAnchors)
}

func TestExtractHeadingStackPopsOnSameOrHigherLevel(t *testing.T) {
	doc := fakeDocument{paragraphs: []docxreader.Paragraph{
		fakeParagraph{text: "A", style: "Heading 1"},
		fakeParagraph{text: "B", style: "Heading 2"},
		fakeParagraph{text: "C", style: "Heading 1"},
		fakeParagraph{text: "body under C", style: "Normal"},
	}}
	got, _, _ := Extract("docv1", doc, zones.DefaultRulebook())
	require.Len(t, got, 4)
	assert.Equal(t, "C", got[2].SectionPath)
	assert.Equal(t, "C", got[3].SectionPath)
}

func TestExtractListItemClassification(t *testing.T) {
	doc := fakeDocument{paragraphs: []docxreader.Paragraph{
		fakeParagraph{text: "Intro", style: "Heading 1"},
		fakeParagraph{text: "bullet one", style: "List Paragraph"},
		fakeParagraph{text: "bullet two", style: "Normal", numbering: true},
	}}
	got, _, _ := Extract("docv1", doc, zones.DefaultRulebook())
	require.Len(t, got, 3)
	assert.Equal(t, domain.ContentListItem, got[1].ContentType)
	assert.Equal(t, domain.ContentListItem, got[2].ContentType)
}

func TestExtractAnchorIDReconstructible(t *testing.T) {
	doc := fakeDocument{paragraphs: []docxreader.Paragraph{
		fakeParagraph{text: "Hello world", style: "Normal"},
	}}
	got, _, _ := Extract("docv1", doc, zones.DefaultRulebook())
	require.Len(t, got, 1)
	assert.Equal(t, "docv1:p:1:"+got[0].TextHash, got[0].AnchorID)
}

func TestExtractFootnotes(t *testing.T) {
	doc := fakeDocument{
		paragraphs: []docxreader.Paragraph{
			fakeParagraph{text: "Intro", style: "Heading 1"},
		},
		footnotes: []docxreader.Footnote{
			fakeFootnote{paragraphs: []docxreader.Paragraph{
				fakeParagraph{text: "see appendix A", style: "Normal"},
				fakeParagraph{text: "", style: "Normal"},
				fakeParagraph{text: "second note", style: "Normal"},
			}},
		},
	}
	got, summary, _ := Extract("docv1", doc, zones.DefaultRulebook())
	require.Equal(t, 3, len(got))
	assert.Equal(t, 2, summary.FootnoteAnchors)
	fn0 := got[1]
	assert.Equal(t, domain.ContentFootnote, fn0.ContentType)
	assert.Equal(t, domain.SectionFootnotes, fn0.SectionPath)
	assert.Equal(t, "docv1:fn:0:0:"+fn0.TextHash, fn0.AnchorID)
	fn1 := got[2]
	assert.Equal(t, "docv1:fn:0:1:"+fn1.TextHash, fn1.AnchorID)
}

func TestExtractFootnotesUnavailableIsWarningNotFatal(t *testing.T) {
	doc := fakeDocument{
		paragraphs:  []docxreader.Paragraph{fakeParagraph{text: "Intro", style: "Heading 1"}},
		footnotes:   nil,
		footnoteErr: nil,
	}
	got, summary, _ := Extract("docv1", doc, zones.DefaultRulebook())
	require.Len(t, got, 1)
	assert.NotEmpty(t, summary.FootnotesWarning)
}
