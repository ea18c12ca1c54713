package domain

// Fact is a study-scoped structured claim with provenance back to one or
// more anchors. Unique per (study_id, fact_type, fact_key) — invariant I-4.
type Fact struct {
	StudyID              string         `json:"study_id"`
	FactType             string         `json:"fact_type"`
	FactKey              string         `json:"fact_key"`
	ValueJSON            map[string]any `json:"value_json"`
	Unit                 string         `json:"unit,omitempty"`
	Status               FactStatus     `json:"status"`
	Confidence           float64        `json:"confidence"`
	CreatedFromDocVersionID string      `json:"created_from_doc_version_id"`

	// Meta carries fact-key-specific side channels such as `alternatives`
	// (§4.12 structural_alternatives). Age range and alpha/power checks read
	// their own facts (fact_key `age_min`, `age_max`, `alpha`, `power`), not
	// Meta.
	Meta map[string]any `json:"meta,omitempty"`
}

// FactEvidence is the typed relation from a Fact to the anchor(s) that
// support it. Evidence is replaced atomically on re-extraction — I-5.
type FactEvidence struct {
	FactType  string       `json:"fact_type"`
	FactKey   string       `json:"fact_key"`
	StudyID   string       `json:"study_id"`
	AnchorRef string       `json:"anchor_ref"`
	Role      EvidenceRole `json:"role"`
}

// Key returns the (study_id, fact_type, fact_key) upsert key as a single
// string, handy for map-based dedup during extraction and conflict checks.
func (f Fact) Key() string {
	return f.StudyID + "\x00" + f.FactType + "\x00" + f.FactKey
}
