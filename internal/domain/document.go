package domain

import "time"

// Document is a logical artifact inside a Study (protocol, SAP, CSR, ...).
type Document struct {
	DocumentID string `json:"document_id"`
	StudyID    string `json:"study_id"`
	DocType    string `json:"doc_type"` // protocol|sap|csr|ib|icf|other
	Title      string `json:"title"`
}

// DocumentVersion binds one Document to exactly one immutable source file.
type DocumentVersion struct {
	DocVersionID string    `json:"doc_version_id"`
	DocumentID   string    `json:"document_id"`
	SourcePath   string    `json:"source_path"`
	VersionNo    int       `json:"version_no"`
	CreatedAt    time.Time `json:"created_at"`
}

// IngestionRun is the per-(doc_version_id, force?) bookkeeping record the
// orchestrator (C14) owns. Shape mirrors the stable summary JSON of §6.
type IngestionRun struct {
	RunID              string       `json:"run_id"`
	DocVersionID       string       `json:"doc_version_id"`
	Status             RunStatus    `json:"status"`
	AnchorsCreated     int          `json:"anchors_created"`
	SoAFound           bool         `json:"soa_found"`
	SoAFactsWritten    int          `json:"soa_facts_written"`
	ChunksCreated      int          `json:"chunks_created"`
	MappingStatus      string       `json:"mapping_status"`
	Warnings           []string     `json:"warnings"`
	Errors             []string     `json:"errors"`
	Metrics            map[string]any `json:"metrics"`
	DocxSummary        map[string]any `json:"docx_summary,omitempty"`
	PipelineConfigHash string       `json:"pipeline_config_hash"`
	StartedAt          time.Time    `json:"started_at"`
	FinishedAt         time.Time    `json:"finished_at"`
}

// SectionMap is one target_section's mapping status for a document
// version, consumed (not produced) by the quality gate (C13) for
// coverage metrics over a configured core-section list.
type SectionMap struct {
	DocVersionID  string           `json:"doc_version_id"`
	TargetSection string           `json:"target_section"`
	Status        SectionMapStatus `json:"status"`
	Confidence    float64          `json:"confidence,omitempty"`
}

// NewRun opens a run record in the "partial" state, per §4.14 step 2.
func NewRun(runID, docVersionID, pipelineConfigHash string, startedAt time.Time) IngestionRun {
	return IngestionRun{
		RunID:              runID,
		DocVersionID:       docVersionID,
		Status:             RunPartial,
		Warnings:           []string{},
		Errors:             []string{},
		Metrics:            map[string]any{},
		PipelineConfigHash: pipelineConfigHash,
		StartedAt:          startedAt,
	}
}
