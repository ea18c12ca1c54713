package soa

import (
	"fmt"

	"trialgraph/internal/docxreader"
	"trialgraph/internal/domain"
	"trialgraph/internal/textnorm"
)

// confidenceNeedsReview is the threshold below which facts derived from the
// SoA result must be marked NEEDS_REVIEW, per §4.5.
const confidenceNeedsReview = 0.7

// NearestHeadingFunc resolves the section path and nearest heading text
// active at the point a table appears in document order.
type NearestHeadingFunc func(table docxreader.Table) (sectionPath, headingText string)

// Extract runs detection (§4.5 Detection) then, if a table clears the
// threshold, structural extraction (§4.5 Extraction): header resolution,
// visits/procedures/matrix, and one CELL anchor per non-empty cell.
func Extract(docVersionID string, tables []docxreader.Table, resolve NearestHeadingFunc) ([]domain.Anchor, domain.SoaResult) {
	nearestHeadingText := func(t docxreader.Table) string {
		_, h := resolve(t)
		return h
	}

	tableIndex, score, found := Detect(tables, nearestHeadingText)
	if !found {
		return nil, domain.SoaResult{Found: false, Warnings: []string{"no table scored above the SoA detection threshold"}}
	}

	table := tables[tableIndex]
	sectionPath, _ := resolve(table)
	rows := table.Rows()

	var anchors []domain.Anchor
	var warnings []string

	header := rows[0].Cells()
	visits := make([]domain.Visit, 0, len(header)-1)
	visitAnchorByCol := map[int]string{}
	for col, c := range header {
		if col == 0 {
			continue
		}
		text := textnorm.Normalize(c.Text())
		var anchorRef string
		if text != "" {
			anchorRef = cellAnchorID(docVersionID, tableIndex, 0, col, text)
			anchors = append(anchors, cellAnchor(docVersionID, anchorRef, sectionPath, text, tableIndex, 0, col, true, nil))
		}
		visits = append(visits, domain.Visit{
			VisitID:   fmt.Sprintf("V%d", col),
			Label:     text,
			AnchorRef: anchorRef,
		})
		visitAnchorByCol[col] = anchorRef
	}

	procedures := make([]domain.Procedure, 0, len(rows)-1)
	var matrix []domain.MatrixCell
	for row := 1; row < len(rows); row++ {
		cells := rows[row].Cells()
		if len(cells) == 0 {
			continue
		}
		procText := textnorm.Normalize(cells[0].Text())
		var procAnchorRef string
		if procText != "" {
			procAnchorRef = cellAnchorID(docVersionID, tableIndex, row, 0, procText)
			anchors = append(anchors, cellAnchor(docVersionID, procAnchorRef, sectionPath, procText, tableIndex, row, 0, true, nil))
		}
		procID := fmt.Sprintf("P%d", row)
		procedures = append(procedures, domain.Procedure{
			ProcID:    procID,
			Label:     procText,
			AnchorRef: procAnchorRef,
		})

		for col := 1; col < len(cells); col++ {
			value := textnorm.Normalize(cells[col].Text())
			if value == "" {
				continue
			}
			visitID := fmt.Sprintf("V%d", col)
			anchorRef := cellAnchorID(docVersionID, tableIndex, row, col, value)
			headerPath := []string{procText, headerLabelAt(header, col)}
			anchors = append(anchors, cellAnchor(docVersionID, anchorRef, sectionPath, value, tableIndex, row, col, false, headerPath))
			matrix = append(matrix, domain.MatrixCell{
				VisitID:   visitID,
				ProcID:    procID,
				Value:     value,
				AnchorRef: anchorRef,
			})
		}
	}

	if len(visits) == 0 || len(procedures) == 0 {
		warnings = append(warnings, "SoA table resolved with no visits or no procedures")
	}

	return anchors, domain.SoaResult{
		Found:       true,
		TableIndex:  tableIndex,
		SectionPath: sectionPath,
		Confidence:  score,
		Visits:      visits,
		Procedures:  procedures,
		Matrix:      matrix,
		Warnings:    warnings,
	}
}

// NeedsReview reports whether a SoaResult's confidence is too low to trust
// derived facts without human review, per §4.5.
func NeedsReview(r domain.SoaResult) bool {
	return r.Confidence < confidenceNeedsReview
}

func headerLabelAt(header []docxreader.Cell, col int) string {
	if col < 0 || col >= len(header) {
		return ""
	}
	return textnorm.Normalize(header[col].Text())
}

func cellAnchorID(docVersionID string, tableIndex, row, col int, text string) string {
	hash := textnorm.Hash(text)
	positional := fmt.Sprintf("%d.%d.%d", tableIndex, row, col)
	return domain.BuildAnchorID(docVersionID, domain.ContentCell, positional, hash)
}

func cellAnchor(docVersionID, anchorID, sectionPath, text string, tableIndex, row, col int, isHeader bool, headerPath []string) domain.Anchor {
	return domain.Anchor{
		DocVersionID: docVersionID,
		AnchorID:     anchorID,
		SectionPath:  sectionPath,
		ContentType:  domain.ContentCell,
		TextRaw:      text,
		TextNorm:     text,
		TextHash:     textnorm.Hash(text),
		Location: domain.Location{Cell: &domain.CellLocation{
			TableIndex: tableIndex,
			RowIndex:   row,
			ColIndex:   col,
			IsHeader:   isHeader,
			HeaderPath: headerPath,
		}},
		SourceZone: domain.ZoneProcedures,
		Language:   textnorm.DetectLanguage(text),
	}
}

