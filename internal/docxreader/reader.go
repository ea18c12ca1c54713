// Package docxreader declares the contract the ingestion core consumes
// from an already-opened DOCX document. Per spec §6, the reader itself
// (format-specific parsing) is an external collaborator; this package only
// describes the shape the core code walks.
package docxreader

// Paragraph exposes what the heading detector, anchor extractor, and
// visual-fallback heuristic need from a single paragraph.
type Paragraph interface {
	// Text returns the paragraph's concatenated run text, unnormalized.
	Text() string
	// StyleName returns the paragraph style name (e.g. "Heading 1",
	// "Заголовок 2", "List Bullet", "Normal"), empty if none.
	StyleName() string
	// OutlineLevel returns the word-processor outline level (1-based) and
	// whether one is set at all.
	OutlineLevel() (level int, ok bool)
	// HasNumbering reports whether the paragraph carries numbering
	// properties (numPr), independent of visible numbering text.
	HasNumbering() bool
	// FontSizePt returns the paragraph's dominant run font size in points,
	// 0 if unknown. Used only by the visual-fallback heuristic.
	FontSizePt() float64
	// Bold reports whether the dominant run is bold. Used only by the
	// visual-fallback heuristic.
	Bold() bool
}

// Cell exposes a single table cell's text and merge span.
type Cell interface {
	Text() string
	// ColSpan is the number of grid columns this cell occupies (>=1).
	ColSpan() int
}

// Row exposes the ordered cells of one table row.
type Row interface {
	Cells() []Cell
}

// Table exposes rows of cells, in document row order.
type Table interface {
	Rows() []Row
	// PrecedingParagraphIndex is the index (into Document.Paragraphs) of
	// the last paragraph that appears before this table in document
	// order, or -1 if the table precedes every paragraph. Lets callers
	// resolve which heading-stack state was active when the table
	// appeared, since paragraphs and tables are exposed as separate
	// collections rather than one interleaved body sequence.
	PrecedingParagraphIndex() int
}

// Footnote exposes one footnote's ordered, non-empty-filtered paragraphs.
type Footnote interface {
	Paragraphs() []Paragraph
}

// Document is the full contract the anchor extractor (C4) and SoA
// extractor (C5) consume.
type Document interface {
	Paragraphs() []Paragraph
	Tables() []Table
	// Footnotes returns the document's footnotes in index order. A nil
	// slice (as opposed to an error) signals the reader could not expose
	// footnote metadata; callers treat this as FootnotesUnavailable, a
	// warning rather than a fatal error.
	Footnotes() ([]Footnote, error)
}
