package domain

// Chunk aggregates a contiguous run of body anchors (HDR/P/LI) within one
// section into a bounded, embedding-ready text blob. See spec §4.6.
type Chunk struct {
	ChunkID      string     `json:"chunk_id"`
	DocVersionID string     `json:"doc_version_id"`
	SectionPath  string     `json:"section_path"`
	AnchorIDs    []string   `json:"anchor_ids"`
	Text         string     `json:"text"`
	Embedding    []float32  `json:"embedding,omitempty"`
	TokenEst     int        `json:"token_estimate"`
	SourceZone   SourceZone `json:"source_zone"`
	Language     Language   `json:"language"`
}

// HeadingBlock is a derived grouping: a heading anchor plus its contiguous
// descendants until the next heading of same-or-lower level. See spec §4.7.
type HeadingBlock struct {
	HeadingBlockID  string     `json:"heading_block_id"`
	DocVersionID    string     `json:"doc_version_id"`
	HeadingAnchorID string     `json:"heading_anchor_id"`
	HeadingText     string     `json:"heading_text"`
	HeadingLevel    int        `json:"heading_level"`
	ContentAnchorIDs []string  `json:"content_anchor_ids"`
	TextPreview     string     `json:"text_preview"`
	SourceZone      SourceZone `json:"source_zone"`
	Language        Language   `json:"language"`
}
