package domain

// Location is a tagged union over the structural position of an Anchor.
// Exactly one of Body, Footnote, or Cell is non-nil; which one is implied
// by ContentType (see Anchor.ContentType).
type Location struct {
	Body     *BodyLocation     `json:"body,omitempty"`
	Footnote *FootnoteLocation `json:"footnote,omitempty"`
	Cell     *CellLocation     `json:"cell,omitempty"`
}

// BodyLocation covers HDR/P/LI anchors.
type BodyLocation struct {
	ParagraphIndex int    `json:"paragraph_index"`
	Style          string `json:"style"`
}

// FootnoteLocation covers FN anchors.
type FootnoteLocation struct {
	FootnoteIndex      int `json:"footnote_index"`
	FootnoteParaIndex  int `json:"footnote_para_index"`
}

// CellLocation covers CELL anchors, including the SoA header-path trace.
type CellLocation struct {
	TableIndex int      `json:"table_index"`
	RowIndex   int       `json:"row_index"`
	ColIndex   int       `json:"col_index"`
	IsHeader   bool      `json:"is_header"`
	HeaderPath []string  `json:"header_path,omitempty"`
}

// Anchor is the unit of textual evidence produced by the ingestion pipeline.
// See spec §3 for the full contract and invariants I-1..I-3.
type Anchor struct {
	DocVersionID string      `json:"doc_version_id"`
	AnchorID     string      `json:"anchor_id"`
	SectionPath  string      `json:"section_path"`
	ContentType  ContentType `json:"content_type"`
	Ordinal      int         `json:"ordinal"`
	TextRaw      string      `json:"text_raw"`
	TextNorm     string      `json:"text_norm"`
	TextHash     string      `json:"text_hash"`
	Location     Location    `json:"location"`
	SourceZone   SourceZone  `json:"source_zone"`
	Language     Language    `json:"language"`

	// ParaIndex is the document-order position used to sort anchors and to
	// reconstruct anchor_id per invariant I-1. For body anchors it is the
	// paragraph index; for footnotes/cells it is left at 0 and the
	// positional identity lives in Location instead.
	ParaIndex int `json:"-"`

	// HeadingLevel is the detector-assigned level, meaningful only when
	// ContentType == ContentHeading. Used by the heading-block builder
	// (§4.7) to find the next heading of same-or-lower level.
	HeadingLevel int `json:"heading_level,omitempty"`
}
