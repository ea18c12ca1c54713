// Package ingestion implements C14: the orchestrator that composes every
// other component into one sequential, transactional ingestion of a
// document version, per spec §4.14. The store interfaces below are
// consumer-defined (the orchestrator names exactly the persistence shape
// it needs), mirroring internal/persistence/databases/interfaces.go's
// FullTextSearch/VectorStore/GraphDB pattern rather than depending on a
// single monolithic repository type.
package ingestion

import (
	"context"
	"time"

	"trialgraph/internal/docxreader"
	"trialgraph/internal/domain"
)

// Clock abstracts time.Now for deterministic tests, grounded on
// internal/rag/service/options.go's Clock/SystemClock pair.
type Clock interface {
	Now() time.Time
}

// SystemClock implements Clock using time.Now.
type SystemClock struct{}

// Now returns the current wall-clock time.
func (SystemClock) Now() time.Time { return time.Now() }

// VersionLookup resolves a doc_version_id to its DocumentVersion and
// owning Document, step 1's "validate source file exists" prerequisite.
type VersionLookup interface {
	Get(ctx context.Context, docVersionID string) (domain.DocumentVersion, domain.Document, error)
}

// SourceOpener opens the already-located source file as a walkable DOCX
// document. Implementations are expected to return domain.ErrFileMissing
// or domain.ErrUnsupportedFormat for the corresponding failure modes.
type SourceOpener interface {
	Open(ctx context.Context, sourcePath string) (docxreader.Document, error)
}

// AnchorStore persists the anchors produced by C4/C5.
type AnchorStore interface {
	DeleteByDocVersion(ctx context.Context, docVersionID string) error
	BulkInsert(ctx context.Context, anchors []domain.Anchor) error
}

// ChunkStore persists the chunks produced by C6.
type ChunkStore interface {
	DeleteByDocVersion(ctx context.Context, docVersionID string) error
	BulkInsert(ctx context.Context, chunks []domain.Chunk) error
}

// HeadingBlockStore persists the heading blocks produced by C7.
type HeadingBlockStore interface {
	DeleteByDocVersion(ctx context.Context, docVersionID string) error
	BulkInsert(ctx context.Context, blocks []domain.HeadingBlock) error
}

// FactStore persists the facts produced by C8/C9 and the SoA fact builder.
// DeleteCreatedFromVersion mirrors the cleanup-phase delete of
// `Fact.created_from_doc_version_id = :doc_version_id`.
type FactStore interface {
	DeleteCreatedFromVersion(ctx context.Context, docVersionID string) error
	BulkInsert(ctx context.Context, facts []domain.Fact) error
	// ListByStudy returns every current fact for a study, across all of
	// its document versions. The quality gate (C13) evaluates the
	// required-facts and conflicting-facts rules against this full
	// study-scoped view, not just the facts this run just wrote, since a
	// required fact may already have been extracted from a different
	// document version.
	ListByStudy(ctx context.Context, studyID string) ([]domain.Fact, error)
}

// FactEvidenceStore persists each Fact's supporting evidence rows.
type FactEvidenceStore interface {
	DeleteCreatedFromVersion(ctx context.Context, docVersionID string) error
	BulkInsert(ctx context.Context, evidence []domain.FactEvidence) error
}

// TopicCatalog is the read-only workspace configuration the topic mapper
// (C10) scores heading blocks against.
type TopicCatalog interface {
	ListTopics(ctx context.Context, workspaceID string) ([]domain.Topic, error)
	ListZonePriors(ctx context.Context, workspaceID string) ([]domain.TopicZonePrior, error)
}

// AssignmentStore persists the block-to-topic assignments produced by C10.
type AssignmentStore interface {
	DeleteByDocVersion(ctx context.Context, docVersionID string) error
	BulkInsert(ctx context.Context, assignments []domain.BlockTopicAssignment) error
}

// RunStore owns the IngestionRun lifecycle: opening one in `partial`
// status (step 2), and the final update to `ok`/`partial`/`failed`
// (steps 9-10). GetLatest backs the force=false idempotent-skip decision.
type RunStore interface {
	Create(ctx context.Context, run domain.IngestionRun) error
	Update(ctx context.Context, run domain.IngestionRun) error
	GetLatest(ctx context.Context, docVersionID string) (domain.IngestionRun, bool, error)
}

// Embedder produces embeddings for chunk text and heading-block previews.
// Matches internal/chunker.Embedder's contract so one implementation
// serves both the chunker and the topic mapper's block embeddings.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}
