package soa

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trialgraph/internal/docxreader"
	"trialgraph/internal/domain"
)

type fakeCell struct{ text string }

func (c fakeCell) Text() string { return c.text }
func (c fakeCell) ColSpan() int { return 1 }

type fakeRow struct{ cells []docxreader.Cell }

func (r fakeRow) Cells() []docxreader.Cell { return r.cells }

type fakeTable struct {
	rows              []docxreader.Row
	precedingParaIdx  int
}

func (t fakeTable) Rows() []docxreader.Row            { return t.rows }
func (t fakeTable) PrecedingParagraphIndex() int       { return t.precedingParaIdx }

func row(cells ...string) docxreader.Row {
	out := make([]docxreader.Cell, len(cells))
	for i, c := range cells {
		out[i] = fakeCell{text: c}
	}
	return fakeRow{cells: out}
}

func soaTable() fakeTable {
	return fakeTable{rows: []docxreader.Row{
		row("Procedure", "Screening", "Baseline", "Week 4"),
		row("Informed consent", "X", "X", ""),
		row("Vital signs", "X", "X", "X"),
		row("ECG", "", "X", ""),
	}}
}

func TestScoreIdentifiesSoATable(t *testing.T) {
	s := Score(soaTable(), "Schedule of Activities")
	assert.Greater(t, s, scoreThreshold)
}

func TestScoreLowForUnrelatedTable(t *testing.T) {
	table := fakeTable{rows: []docxreader.Row{
		row("Name", "Value"),
		row("foo", "bar"),
	}}
	s := Score(table, "Appendix")
	assert.Less(t, s, scoreThreshold)
}

func TestDetectPicksHighestScoringAboveThreshold(t *testing.T) {
	tables := []docxreader.Table{
		fakeTable{rows: []docxreader.Row{row("Name", "Value"), row("foo", "bar")}},
		soaTable(),
	}
	idx, score, found := Detect(tables, func(docxreader.Table) string { return "Schedule of Activities" })
	require.True(t, found)
	assert.Equal(t, 1, idx)
	assert.Greater(t, score, scoreThreshold)
}

func TestExtractProducesVisitsProceduresMatrixAndCellAnchors(t *testing.T) {
	tables := []docxreader.Table{soaTable()}
	resolve := func(docxreader.Table) (string, string) { return "Schedule of Activities", "Schedule of Activities" }

	anchors, result := Extract("docv1", tables, resolve)
	require.True(t, result.Found)
	assert.Equal(t, 0, result.TableIndex)
	require.Len(t, result.Visits, 3)
	assert.Equal(t, "V1", result.Visits[0].VisitID)
	assert.Equal(t, "Screening", result.Visits[0].Label)

	require.Len(t, result.Procedures, 3)
	assert.Equal(t, "Informed consent", result.Procedures[0].Label)

	// 6 marked cells in the fixture (X,X / X,X,X / X) = 6
	assert.Len(t, result.Matrix, 6)

	for _, a := range anchors {
		assert.Equal(t, domain.ContentCell, a.ContentType)
		assert.Equal(t, "Schedule of Activities", a.SectionPath)
	}
}

func TestExtractNoTableFound(t *testing.T) {
	tables := []docxreader.Table{
		fakeTable{rows: []docxreader.Row{row("Name", "Value"), row("foo", "bar")}},
	}
	anchors, result := Extract("docv1", tables, func(docxreader.Table) (string, string) { return "Appendix", "Appendix" })
	assert.Nil(t, anchors)
	assert.False(t, result.Found)
	assert.NotEmpty(t, result.Warnings)
}

func TestNeedsReviewBelowThreshold(t *testing.T) {
	assert.True(t, NeedsReview(domain.SoaResult{Confidence: 0.5}))
	assert.False(t, NeedsReview(domain.SoaResult{Confidence: 0.9}))
}
